package infrastructure

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"qcl-datasheet/internal/figure"
	"strconv"

	"go.uber.org/zap"
)

const (
	graceVersion   = 50123
	graceCharSize  = 1.5
	graceLegendPos = "0.18, 0.86"
)

// AgrWriter serializes plot descriptions as Grace project files.
type AgrWriter struct {
	logger *zap.Logger
}

func NewAgrWriter(logger *zap.Logger) *AgrWriter {
	return &AgrWriter{logger: logger}
}

// Render writes basePath + ".agr" and returns that path.
func (w *AgrWriter) Render(_ context.Context, desc *figure.Description, basePath string) ([]string, error) {
	path := basePath + ".agr"
	if err := w.WriteFile(path, desc); err != nil {
		return nil, err
	}
	return []string{path}, nil
}

// WriteFile writes desc to filename in Grace format.
func (w *AgrWriter) WriteFile(filename string, desc *figure.Description) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := w.Write(file, desc); err != nil {
		return err
	}

	w.logger.Debug("Grace file written",
		zap.String("file", filename),
		zap.Int("graphs", len(desc.Graphs)))
	return nil
}

// Write emits the color map, every graph header with its axes and series
// styles, and then the data blocks of all series.
func (w *AgrWriter) Write(out io.Writer, desc *figure.Description) error {
	bw := bufio.NewWriter(out)

	fmt.Fprintf(bw, "@version %d\n", graceVersion)
	for i, c := range figure.Palette {
		fmt.Fprintf(bw, "@map color %d to (%d, %d, %d), \"%s\"\n", i, c.R, c.G, c.B, c.Name)
	}

	for g, graph := range desc.Graphs {
		id := "g" + strconv.Itoa(g)
		writeGraph(bw, id, graph)
		writeAxis(bw, "x", graph.X)
		writeAxis(bw, "y", graph.Y)
		for s, series := range graph.Series {
			writeSeries(bw, "s"+strconv.Itoa(s), series)
		}
	}

	first := true
	for g, graph := range desc.Graphs {
		for s, series := range graph.Series {
			if !first {
				bw.WriteString("&\n")
			}
			first = false
			fmt.Fprintf(bw, "@target g%d.s%d\n@type xy\n", g, s)
			n := min(len(series.X), len(series.Y))
			for k := 0; k < n; k++ {
				fmt.Fprintf(bw, "%s %s\n", fixed(series.X[k]), fixed(series.Y[k]))
			}
		}
	}
	if !first {
		bw.WriteString("&\n")
	}

	return bw.Flush()
}

func writeGraph(w *bufio.Writer, id string, g figure.Graph) {
	fmt.Fprintf(w, "@%s on\n", id)
	fmt.Fprintf(w, "@with %s\n", id)
	fmt.Fprintf(w, "@    world %s, %s, %s, %s\n",
		fixed(g.World.Xmin), fixed(g.World.Ymin), fixed(g.World.Xmax), fixed(g.World.Ymax))
	fmt.Fprintf(w, "@    view %s, %s, %s, %s\n",
		fixed(g.View.Xmin), fixed(g.View.Ymin), fixed(g.View.Xmax), fixed(g.View.Ymax))
	if g.Subtitle != "" {
		fmt.Fprintf(w, "@    subtitle \"%s\"\n", g.Subtitle)
		w.WriteString("@    subtitle size 1.100000\n")
	}
	w.WriteString("@    legend on\n")
	fmt.Fprintf(w, "@    legend %s\n", graceLegendPos)
	w.WriteString("@    legend char size 1.100000\n")
}

func writeAxis(w *bufio.Writer, xy string, a figure.Axis) {
	p := "@    " + xy + "axis "
	label := a.Markup
	if label == "" {
		label = a.Label
	}
	w.WriteString(p + "on\n")
	fmt.Fprintf(w, "%slabel \"%s\"\n", p, label)
	if a.Grid {
		w.WriteString(p + "tick major linestyle 2\n")
		w.WriteString(p + "tick major linewidth 1.1\n")
		w.WriteString(p + "tick major grid on\n")
	}
	fmt.Fprintf(w, "%stick major %s\n", p, fixed(a.Step))
	w.WriteString(p + "tick minor ticks 1\n")
	fmt.Fprintf(w, "%slabel char size %s\n", p, fixed(graceCharSize))
	w.WriteString(p + "ticklabel on\n")
	fmt.Fprintf(w, "%sticklabel char size %s\n", p, fixed(graceCharSize))
	place := a.Placement.String()
	fmt.Fprintf(w, "%slabel place %s\n", p, place)
	fmt.Fprintf(w, "%sticklabel place %s\n", p, place)
	fmt.Fprintf(w, "%stick place %s\n", p, place)
}

func writeSeries(w *bufio.Writer, id string, s figure.Series) {
	p := "@    " + id + " "
	width := fixed(s.LineWidth)
	fmt.Fprintf(w, "%sline linewidth %s\n", p, width)
	fmt.Fprintf(w, "%sline color %d\n", p, s.Color)
	fmt.Fprintf(w, "%slegend \"%s\"\n", p, s.LegendMarkup())
	if !s.Markers {
		w.WriteString(p + "line linestyle 1\n")
		return
	}
	w.WriteString(p + "line linestyle 0\n")
	w.WriteString(p + "symbol 1\n")
	w.WriteString(p + "symbol size 1.000000\n")
	fmt.Fprintf(w, "%ssymbol color %d\n", p, s.Color)
	w.WriteString(p + "symbol pattern 1\n")
	fmt.Fprintf(w, "%ssymbol fill color %d\n", p, s.Color)
	w.WriteString(p + "symbol fill pattern 1\n")
	fmt.Fprintf(w, "%ssymbol linewidth %s\n", p, width)
	w.WriteString(p + "symbol char 65\n")
}

func fixed(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
