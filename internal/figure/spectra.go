package figure

import (
	"qcl-datasheet/internal/analysis"
)

const (
	waterfallOffset = 1.1
	waterfallHeight = 2.0
	waterfallFloor  = -0.07
)

// BuildSpectra stacks the normalized spectra of sp as a waterfall, trace i
// lifted by 1.1*i, over the automatic or caller-supplied frequency window.
func BuildSpectra(name string, sp *analysis.Spectra) *Description {
	xmin, xmax := sp.Xmin(), sp.Xmax()

	g := Graph{
		World:    World{Xmin: xmin, Ymin: waterfallFloor, Xmax: xmax, Ymax: float64(sp.Len()) * waterfallHeight},
		View:     DefaultView,
		Subtitle: "Spectra Waterfall Plot",
		X:        Axis{Label: "f [THz]", Markup: `\qf\Q [THz]`, Step: (xmax - xmin) / 6, Grid: true},
		Y:        Axis{Label: "a.u.", Markup: "a.u.", Step: 1, Grid: true},
	}

	for i, tr := range sp.Traces() {
		offset := waterfallOffset * float64(i)
		y := make([]float64, len(tr.Y1))
		for k, v := range tr.Y1 {
			y[k] = v + offset
		}
		g.Series = append(g.Series, Series{
			Legend:    sp.LegendForTrace(i),
			X:         tr.X,
			Y:         y,
			Color:     ColorFor(i),
			LineWidth: defaultLineWidth,
		})
	}

	return &Description{Name: name, Graphs: []Graph{g}}
}
