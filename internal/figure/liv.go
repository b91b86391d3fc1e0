package figure

import (
	"math"
	"qcl-datasheet/internal/analysis"
	"qcl-datasheet/pkg/axis"
)

// BuildLIV lays out the two-graph LIV figure: I-V in g0 and J-L in g1 on the
// opposite axes. widthUm and lengthMm give the ridge area; unit is appended
// to every legend, e.g. "K".
func BuildLIV(name string, liv *analysis.LIV, widthUm, lengthMm float64, unit string) *Description {
	if unit == "" {
		unit = "K"
	}
	densityScale := 1e5 / (widthUm * lengthMm)
	if math.IsInf(densityScale, 0) || math.IsNaN(densityScale) {
		densityScale = 1
	}

	iMin, iMax := finite(liv.MinX(), liv.MaxX())
	vMin, vMax := finite(liv.MinY1(), liv.MaxY1())

	ip := axis.Nice(iMin, iMax, axis.DefaultLIVTicks)
	vp := axis.Nice(vMin, vMax, axis.DefaultLIVTicks)

	iv := Graph{
		World: World{Xmin: offAxis(ip.Min), Ymin: offAxis(vp.Min), Xmax: ip.Max, Ymax: vp.Max},
		View:  DefaultView,
		X:     Axis{Label: "I [A]", Markup: `\qI\Q [A]`, Step: ip.Step, Grid: true},
		Y:     Axis{Label: "V [V]", Markup: `\qV\Q [V]`, Step: vp.Step, Grid: true},
	}

	jp := axis.Nice(iMin*densityScale, iMax*densityScale, axis.DefaultLIVTicks)
	lMin, lMax := 0.0001, 1.75*liv.ScaleFactor()
	lStep := axis.ChooseNiceStep(lMin, lMax, axis.DefaultTicks)

	lLabel := "L [mW]"
	lMarkup := `\qL\Q [mW]`
	if liv.ScaleFactor() == 100 {
		lLabel, lMarkup = "L [a.u.]", `\qL\Q [a.u]`
	}

	jl := Graph{
		World: World{Xmin: offAxis(jp.Min), Ymin: lMin, Xmax: jp.Max, Ymax: lMax},
		View:  DefaultView,
		X:     Axis{Label: "J [A cm^-2]", Markup: `\qJ\Q [A cm\S-2\N]`, Step: jp.Step, Placement: Opposite},
		Y:     Axis{Label: lLabel, Markup: lMarkup, Step: lStep, Placement: Opposite},
	}

	for i, tr := range liv.Traces() {
		color := ColorFor(i)
		iv.Series = append(iv.Series, Series{
			X:         tr.X,
			Y:         tr.Y1,
			Color:     color,
			LineWidth: defaultLineWidth,
		})

		j := make([]float64, len(tr.X))
		for k, x := range tr.X {
			j[k] = x * densityScale
		}
		jl.Series = append(jl.Series, Series{
			Legend:    formatValue(tr.Value) + " [" + unit + "]",
			X:         j,
			Y:         tr.Y2,
			Color:     color,
			LineWidth: defaultLineWidth,
		})
	}

	return &Description{Name: name, Graphs: []Graph{iv, jl}}
}

func finite(lo, hi float64) (float64, float64) {
	if math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		return 0, 1
	}
	return lo, hi
}
