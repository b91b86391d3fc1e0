package domain

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// EmptyExtrema returns bounds that any real sample will tighten.
func EmptyExtrema() Extrema {
	return Extrema{
		MinX:         math.Inf(1),
		MaxX:         math.Inf(-1),
		MinY1:        math.Inf(1),
		MaxY1:        math.Inf(-1),
		PreNormMaxY2: math.Inf(-1),
	}
}

// Merge folds the bounds of a single trace into e.
func (e Extrema) Merge(t *Trace) Extrema {
	if len(t.X) > 0 {
		e.MinX = math.Min(e.MinX, floats.Min(t.X))
		e.MaxX = math.Max(e.MaxX, floats.Max(t.X))
	}
	if len(t.Y1) > 0 {
		e.MinY1 = math.Min(e.MinY1, floats.Min(t.Y1))
		e.MaxY1 = math.Max(e.MaxY1, floats.Max(t.Y1))
	}
	if t.HasY2() {
		e.PreNormMaxY2 = math.Max(e.PreNormMaxY2, floats.Max(t.Y2))
	}
	return e
}

// ReduceExtrema computes the global bounds of traces in a single pass.
// It must run after every trace has been parsed.
func ReduceExtrema(traces []Trace) Extrema {
	e := EmptyExtrema()
	for i := range traces {
		e = e.Merge(&traces[i])
	}
	return e
}
