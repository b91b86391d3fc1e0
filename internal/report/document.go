// Package report decides which tables, figures and notes a datasheet
// contains. It produces a structured Document and leaves markup to the
// writer.
package report

import (
	"qcl-datasheet/internal/domain"
	"qcl-datasheet/internal/figure"
	"strings"
)

// Mode is a measurement regime. Figure names and metadata keys are prefixed
// with it.
type Mode string

const (
	Pulsed Mode = "pulsed"
	CW     Mode = "cw"
)

// Title is the human-readable regime name used in captions.
func (m Mode) Title() string {
	if m == CW {
		return "CW"
	}
	return "Pulsed"
}

// Row is a two-column table row. Label is plain text; Value is LaTeX-ready.
type Row struct {
	Label string
	Value string
}

// Figure is one figure environment. With two files the files are set side
// by side, each with its subcaption. Paths are relative to the document.
type Figure struct {
	Files       []string
	SubCaptions []string
	Caption     string
}

type Subsection struct {
	Title  string
	Table  []Row
	Figure *Figure
	Notes  string
}

type Section struct {
	Title       string
	Subsections []Subsection
}

// Document is the selected content of a datasheet. Title, Author and Date are
// plain text; every other string is LaTeX-ready.
type Document struct {
	Title    string
	Author   string
	Date     string
	Summary  []Row
	Sections []Section
}

// Params are the run-level report parameters: "Author", "Date",
// "Device Name", "Sample Name", "Dimensions" (a map with length, width and
// height) and the "<mode>_ftir_fixed_temp_freq_range" strings.
type Params map[string]domain.Value

// Get returns the trimmed scalar value for key, or def when it is blank.
func (p Params) Get(key, def string) string {
	v, ok := p[key]
	if !ok {
		return def
	}
	s := strings.TrimSpace(v.String())
	if s == "" {
		return def
	}
	return s
}

// Dimension reads one entry of the "Dimensions" map; missing entries are 0.
func (p Params) Dimension(name string) float64 {
	v, ok := p["Dimensions"]
	if !ok || v.Kind != domain.KindMap {
		return 0
	}
	return v.Map[name]
}

// FigureSet holds the base names of the figures that exist, e.g.
// "pulsed_liv.pdf".
type FigureSet map[string]bool

func NewFigureSet(names ...string) FigureSet {
	s := make(FigureSet, len(names))
	for _, n := range names {
		s[n] = true
	}
	return s
}

// FitSource supplies the fitted threshold formulas of a regime.
type FitSource interface {
	IthCaption(mode Mode) (figure.IthCaption, bool)
}

// Captions is a FitSource backed by a map.
type Captions map[Mode]figure.IthCaption

func (c Captions) IthCaption(mode Mode) (figure.IthCaption, bool) {
	v, ok := c[mode]
	return v, ok
}
