package infrastructure

import (
	"context"
	"fmt"
	"image/color"
	"math"
	"os"
	"qcl-datasheet/internal/domain"
	"qcl-datasheet/internal/figure"
	"qcl-datasheet/pkg/axis"
	"strconv"

	"go.uber.org/zap"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// maxTicks caps constant tick generation for degenerate steps.
const maxTicks = 200

// PlotRenderer draws plot descriptions in-process with gonum/plot. Graphs
// that carry series are stacked top to bottom on one page; axis-only
// graphs have nothing to draw and are skipped.
type PlotRenderer struct {
	logger  *zap.Logger
	formats []string
	width   vg.Length
	height  vg.Length
}

func NewPlotRenderer(logger *zap.Logger, cfg domain.RenderConfig) *PlotRenderer {
	formats := cfg.Formats
	if len(formats) == 0 {
		formats = []string{"png"}
	}
	w, h := cfg.WidthIn, cfg.HeightIn
	if w <= 0 {
		w = 15
	}
	if h <= 0 {
		h = 15
	}
	return &PlotRenderer{
		logger:  logger,
		formats: formats,
		width:   vg.Length(w) * vg.Inch,
		height:  vg.Length(h) * vg.Inch,
	}
}

// Render writes basePath.<format> for every configured format.
func (r *PlotRenderer) Render(ctx context.Context, desc *figure.Description, basePath string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var plots [][]*plot.Plot
	for i, g := range desc.Graphs {
		if len(g.Series) == 0 {
			continue
		}
		p, err := r.prepPlot(g)
		if err != nil {
			return nil, fmt.Errorf("graph %d of %s: %w", i, desc.Name, err)
		}
		plots = append(plots, []*plot.Plot{p})
	}
	if len(plots) == 0 {
		return nil, fmt.Errorf("%s: %w", desc.Name, domain.ErrNoTraces)
	}

	written := make([]string, 0, len(r.formats))
	for _, format := range r.formats {
		path := basePath + "." + format
		if err := r.savePlot(plots, path, format); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	r.logger.Info("Figure rendered",
		zap.String("name", desc.Name),
		zap.Strings("files", written))
	return written, nil
}

func (r *PlotRenderer) prepPlot(g figure.Graph) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = g.Subtitle
	p.Title.TextStyle.Font.Variant = "Sans"

	p.X.Label.Text = g.X.Label
	p.X.Label.TextStyle.Font.Variant = "Sans"
	p.X.LineStyle.Width = vg.Points(1.5)
	p.X.Tick.Label.Font.Variant = "Sans"
	if ticks := constantTicks(g.World.Xmin, g.World.Xmax, g.X.Step); ticks != nil {
		p.X.Tick.Marker = ticks
	}

	p.Y.Label.Text = g.Y.Label
	p.Y.Label.TextStyle.Font.Variant = "Sans"
	p.Y.LineStyle.Width = vg.Points(1.5)
	p.Y.Tick.Label.Font.Variant = "Sans"
	if ticks := constantTicks(g.World.Ymin, g.World.Ymax, g.Y.Step); ticks != nil {
		p.Y.Tick.Marker = ticks
	}

	if g.X.Grid || g.Y.Grid {
		grid := plotter.NewGrid()
		grid.Vertical.Dashes = []vg.Length{vg.Points(2), vg.Points(2)}
		grid.Horizontal.Dashes = []vg.Length{vg.Points(2), vg.Points(2)}
		if !g.X.Grid {
			grid.Vertical.Color = nil
		}
		if !g.Y.Grid {
			grid.Horizontal.Color = nil
		}
		p.Add(grid)
	}

	p.Legend.TextStyle.Font.Variant = "Sans"
	p.Legend.Top = true
	p.Legend.Left = true
	p.Legend.Padding = vg.Points(10)
	p.Legend.ThumbnailWidth = vg.Points(50)

	for _, s := range g.Series {
		n := min(len(s.X), len(s.Y))
		if n == 0 {
			continue
		}
		xys := make(plotter.XYs, n)
		for k := 0; k < n; k++ {
			xys[k].X = s.X[k]
			xys[k].Y = s.Y[k]
		}
		c := paletteColor(s.Color)

		if s.Markers {
			sc, err := plotter.NewScatter(xys)
			if err != nil {
				return nil, err
			}
			sc.GlyphStyle.Color = c
			sc.GlyphStyle.Shape = draw.CircleGlyph{}
			sc.GlyphStyle.Radius = vg.Points(4)
			p.Add(sc)
			if s.Legend != "" {
				p.Legend.Add(s.Legend, sc)
			}
			continue
		}

		line, err := plotter.NewLine(xys)
		if err != nil {
			return nil, err
		}
		line.LineStyle.Width = vg.Points(math.Max(1, s.LineWidth/3.5))
		line.LineStyle.Color = c
		p.Add(line)
		if s.Legend != "" {
			p.Legend.Add(s.Legend, line)
		}
	}

	// p.Add widens the axes to the data; the world is fixed
	p.X.Min, p.X.Max = g.World.Xmin, g.World.Xmax
	p.Y.Min, p.Y.Max = g.World.Ymin, g.World.Ymax

	return p, nil
}

func (r *PlotRenderer) savePlot(plots [][]*plot.Plot, path, format string) error {
	if len(plots) == 1 {
		if err := plots[0][0].Save(r.width, r.height, path); err != nil {
			return fmt.Errorf("save %s: %w", path, err)
		}
		return nil
	}

	c, err := draw.NewFormattedCanvas(r.width, r.height, format)
	if err != nil {
		return fmt.Errorf("canvas %s: %w", format, err)
	}
	tiles := draw.Tiles{
		Rows: len(plots),
		Cols: 1,
		PadX: vg.Millimeter,
		PadY: vg.Millimeter,
	}
	canvases := plot.Align(plots, tiles, draw.New(c))
	for j := range plots {
		plots[j][0].Draw(canvases[j][0])
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := c.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// constantTicks places a labelled tick at every multiple of step inside
// [lo, hi]. It returns nil when step cannot produce a sensible axis or no
// multiple falls inside the range.
func constantTicks(lo, hi, step float64) plot.Ticker {
	if step <= 0 || hi <= lo || math.IsInf(step, 0) || math.IsNaN(step) || (hi-lo)/step > maxTicks {
		return nil
	}
	inner := axis.Plan{
		Step: step,
		Min:  math.Ceil(lo/step-1e-9) * step,
		Max:  math.Floor(hi/step+1e-9) * step,
	}
	if inner.Max < inner.Min {
		return nil
	}
	var ticks []plot.Tick
	for _, v := range inner.Ticks() {
		// round off float noise so labels stay short
		v = math.Round(v/step) * step
		ticks = append(ticks, plot.Tick{Value: v, Label: strconv.FormatFloat(v, 'g', 6, 64)})
	}
	return plot.ConstantTicks(ticks)
}

func paletteColor(i int) color.Color {
	if i < 0 || i >= len(figure.Palette) {
		i = 1
	}
	c := figure.Palette[i]
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 255}
}
