// Package figure builds renderer-independent plot descriptions for the
// LIV, threshold and spectra figures of a datasheet.
package figure

import (
	"fmt"
	"math"
	"strings"
)

// Placement selects the side of the frame an axis is drawn on.
type Placement int

const (
	Normal Placement = iota
	Opposite
)

func (p Placement) String() string {
	if p == Opposite {
		return "opposite"
	}
	return "normal"
}

// Color is one entry of the fixed 16 color table. Index 0 is the background.
type Color struct {
	Name    string
	R, G, B uint8
}

var Palette = [16]Color{
	{"white", 255, 255, 255},
	{"black", 0, 0, 0},
	{"red", 255, 0, 0},
	{"blue", 0, 0, 255},
	{"green4", 0, 139, 0},
	{"orange", 255, 165, 0},
	{"brown", 188, 143, 143},
	{"maroon", 103, 7, 72},
	{"green", 0, 255, 0},
	{"azure", 0, 127, 255},
	{"copper", 184, 115, 51},
	{"gold", 255, 215, 0},
	{"magenta", 255, 0, 255},
	{"gray", 128, 128, 128},
	{"indigo", 114, 33, 188},
	{"turquoise", 64, 224, 208},
}

// ColorFor returns the palette index of trace i. The first 15 traces take
// indices 1..15; later ones mirror back down the table and never land on
// the background color.
func ColorFor(i int) int {
	if i <= 14 {
		return i + 1
	}
	if c := 16 - i; c >= 1 {
		return c
	}
	return i%15 + 1
}

// World is the data rectangle of a graph.
type World struct {
	Xmin, Ymin, Xmax, Ymax float64
}

// View is the graph rectangle in page coordinates.
type View struct {
	Xmin, Ymin, Xmax, Ymax float64
}

var DefaultView = View{Xmin: 0.15, Ymin: 0.15, Xmax: 1.13, Ymax: 0.88}

// Axis describes one graph axis. Label is plain text, Markup is the same
// label in Grace escape syntax.
type Axis struct {
	Label     string
	Markup    string
	Step      float64
	Placement Placement
	Grid      bool
}

// Series is one curve of a graph.
type Series struct {
	Legend    string
	Markup    string
	X, Y      []float64
	Color     int
	Markers   bool
	LineWidth float64
}

// LegendMarkup returns the Grace form of the legend.
func (s Series) LegendMarkup() string {
	if s.Markup != "" {
		return s.Markup
	}
	return GraceMarkup(s.Legend)
}

// Graph is a set of series sharing a world and a pair of axes.
type Graph struct {
	World    World
	View     View
	Subtitle string
	X, Y     Axis
	Series   []Series
}

// IthCaption carries the fitted threshold formulas in LaTeX math form,
// right-hand sides only.
type IthCaption struct {
	Ith string
	Jth string
}

// Description is a complete figure. Name is the artifact base name,
// e.g. "pulsed_liv" or "Ith_vs_T_cw_liv".
type Description struct {
	Name   string
	Graphs []Graph
	Ith    *IthCaption
}

const defaultLineWidth = 7

var graceReplacer = strings.NewReplacer(
	"₋₁", `\s-1\N`,
	"₀", `\s0\N`,
	"₁", `\s1\N`,
)

// GraceMarkup converts the unicode subscripts used in plain legends.
func GraceMarkup(s string) string {
	return graceReplacer.Replace(s)
}

// formatValue prints v with no decimals when it is integral, else one.
func formatValue(v float64) string {
	if math.Mod(v, 1) == 0 {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.1f", v)
}

func bounds(v []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, x := range v {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	return lo, hi
}

// offAxis nudges a zero lower bound so both axes do not print 0 at the origin.
func offAxis(v float64) float64 {
	if v == 0 {
		return 0.0001
	}
	return v * 1.0001
}
