package figure

import (
	"fmt"
	"math"
	"qcl-datasheet/internal/analysis"
	"qcl-datasheet/pkg/axis"
	"strings"
)

// milliSwitch is the padded Ith maximum, in A, below which the threshold
// plot is drawn in mA.
const milliSwitch = 9.9

var tAxis = Axis{Label: "T [K]", Markup: `\qT\Q [K]`, Grid: true}

// temperaturePlan snaps the T axis and pads only its upper end by 10%.
func temperaturePlan(t []float64) axis.Plan {
	lo, hi := bounds(t)
	p := axis.Nice(lo, hi, axis.DefaultTicks)
	p.Max += (p.Max - p.Min) * 0.1
	return p
}

// BuildIth lays out threshold current against temperature with its
// exponential fit in g0 and a data-less g1 carrying the current density
// axis. It returns nil when no trace reached threshold.
func BuildIth(name string, th *analysis.Threshold, widthUm, lengthMm float64, fitPoints int) *Description {
	t := th.Temperatures()
	if len(t) == 0 {
		return nil
	}

	ith := append([]float64(nil), th.Ith()...)
	ithMin, ithMax := bounds(ith)
	ithMax *= 1.05

	milli := ithMax < milliSwitch
	scale, unit := 1.0, "A"
	if milli {
		scale, unit = 1000, "mA"
		for k := range ith {
			ith[k] *= scale
		}
		ithMin *= scale
		ithMax *= scale
	}

	tp := temperaturePlan(t)
	yp := axis.Nice(ithMin, ithMax, axis.DefaultTicks)

	g0 := Graph{
		World:    World{Xmin: tp.Min, Ymin: yp.Min, Xmax: tp.Max, Ymax: yp.Max},
		View:     DefaultView,
		Subtitle: "Threshold Current vs Temperature",
		X:        withStep(tAxis, tp.Step),
		Y: Axis{
			Label:  "Ith [" + unit + "]",
			Markup: `\qI\Q\sth\N [` + unit + "]",
			Step:   yp.Step,
			Grid:   true,
		},
		Series: []Series{{
			Legend:    " Experimental data ",
			X:         t,
			Y:         ith,
			Color:     3,
			Markers:   true,
			LineWidth: defaultLineWidth,
		}},
	}

	area := (widthUm * 1e-4) * (lengthMm * 0.1)
	desc := &Description{Name: name}

	tFit, ithFit := th.ApplyExponentialFit(fitPoints)
	if e, ok := th.ExponentialParams(); ok && len(ithFit) > 0 {
		fit := make([]float64, len(ithFit))
		for k, v := range ithFit {
			fit[k] = v * scale
		}

		a, c0, t0 := e.A*scale, e.C0*scale, e.T0()
		ja, jc0 := e.A/area, e.C0/area

		legend := fmt.Sprintf("Ith(T) = %.1f + %.1f exp(T / %.1f) [%s]; Jth(T) = %.1f + %.1f exp(T / %.1f) [A cm^-2]",
			c0, a, t0, unit, jc0, ja, t0)
		markup := fmt.Sprintf(`\qI\Q\sth\N(T) = %.1f + %.1f exp(\qT\Q / %.1f) [%s]\n\n\qJ\Q\sth\N(T) = %.1f + %.1f exp(\qT\Q / %.1f) [A cm\S-2\N]`,
			c0, a, t0, unit, jc0, ja, t0)

		g0.Series = append(g0.Series, Series{
			Legend:    legend,
			Markup:    markup,
			X:         tFit,
			Y:         fit,
			Color:     9,
			LineWidth: defaultLineWidth,
		})

		desc.Ith = &IthCaption{
			Ith: fmt.Sprintf(`%.1f + %.1f \exp(T / %.1f) ~\mathrm{%s}`, c0, a, t0, unit),
			Jth: fmt.Sprintf(`%.1f + %.1f \exp(T / %.1f) ~\mathrm{A cm^{-2}}`, jc0, ja, t0),
		}
	}

	jyMin, jyMax := yp.Min/scale/area, yp.Max/scale/area
	g1 := Graph{
		World: World{Xmin: tp.Min, Ymin: jyMin, Xmax: tp.Max, Ymax: jyMax},
		View:  DefaultView,
		X:     withStep(tAxis, tp.Step),
		Y: Axis{
			Label:     "Jth [A/cm^2]",
			Markup:    `J\s\qth\Q\N [A/cm\S2\N]`,
			Step:      axis.ChooseNiceStep(jyMin, jyMax, axis.DefaultTicks),
			Placement: Opposite,
		},
	}

	desc.Graphs = []Graph{g0, g1}
	return desc
}

// BuildDR lays out the dynamic range against temperature with a polynomial
// fit of the given order. It returns nil when no trace reached threshold.
func BuildDR(name string, th *analysis.Threshold, fitPoints, order int) *Description {
	t, dr := th.Temperatures(), th.DR()
	if len(t) == 0 {
		return nil
	}

	tp := temperaturePlan(t)
	lo, hi := bounds(dr)
	yp := axis.Nice(lo, hi, axis.DefaultTicks)

	g := Graph{
		World:    World{Xmin: tp.Min, Ymin: yp.Min, Xmax: tp.Max, Ymax: yp.Max},
		View:     DefaultView,
		Subtitle: "Dynamic Range vs Temperature",
		X:        withStep(tAxis, tp.Step),
		Y:        Axis{Label: "ΔI [mA]", Markup: `\q\xD\f{}I\Q [mA]`, Step: yp.Step, Grid: true},
		Series: []Series{{
			Legend:    " Experimental data ",
			X:         t,
			Y:         dr,
			Color:     12,
			Markers:   true,
			LineWidth: defaultLineWidth,
		}},
	}

	tFit, drFit := th.ApplyPolynomialFit(fitPoints, order)
	if coeffs, ok := th.PolynomialCoefficients(); ok && len(drFit) > 0 {
		poly := PolynomialLegend(coeffs)
		g.Series = append(g.Series, Series{
			Legend:    "DR = " + poly,
			Markup:    `\qD\Q\sR\N = ` + poly,
			X:         tFit,
			Y:         drFit,
			Color:     14,
			LineWidth: defaultLineWidth,
		})
	}

	return &Description{Name: name, Graphs: []Graph{g}}
}

// PolynomialLegend prints coefficients (lowest power first) from the
// highest power down. Zero terms are elided and unit factors are implied.
func PolynomialLegend(coeffs []float64) string {
	var b strings.Builder
	first := true
	for i := len(coeffs) - 1; i >= 0; i-- {
		c := coeffs[i]
		if c == 0 {
			continue
		}
		switch {
		case !first && c > 0:
			b.WriteString(" + ")
		case !first:
			b.WriteString(" - ")
		case c < 0:
			b.WriteString("-")
		}
		first = false

		if math.Abs(c) != 1 || i == 0 {
			fmt.Fprintf(&b, "%.1f", math.Abs(c))
		}
		if i > 0 {
			b.WriteString("x")
		}
		if i > 1 {
			fmt.Fprintf(&b, "^%d", i)
		}
	}
	if first {
		return "0.0"
	}
	return b.String()
}

func withStep(a Axis, step float64) Axis {
	a.Step = step
	return a
}
