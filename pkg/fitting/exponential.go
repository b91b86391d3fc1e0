package fitting

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Exponential is A*exp(B*x) + C0.
type Exponential struct {
	A, B, C0 float64
}

func (e Exponential) Eval(x float64) float64 {
	return e.A*math.Exp(e.B*x) + e.C0
}

func (e Exponential) String() string {
	return fmt.Sprintf("%g exp(%g x) + %g", e.A, e.B, e.C0)
}

// T0 is the characteristic scale 1/B, or +Inf for a flat curve.
func (e Exponential) T0() float64 {
	if e.B == 0 {
		return math.Inf(1)
	}
	return 1 / e.B
}

// ExponentialFit log-linearizes y - 0.99*min(y) and fits a line to it.
// C0 is set to min(y).
func ExponentialFit(x, y []float64) (Exponential, bool) {
	e, err := ExponentialFitE(x, y)
	return e, err == nil
}

// ExponentialFitE is ExponentialFit with the failure reason.
func ExponentialFitE(x, y []float64) (Exponential, error) {
	n := len(x)
	if n < 2 || len(y) != n {
		return Exponential{}, ErrInsufficientData
	}

	yMin := floats.Min(y)
	logAdj := make([]float64, n)
	for i, v := range y {
		adj := v - 0.99*yMin
		if adj <= 0 {
			return Exponential{}, ErrNonPositiveAdjusted
		}
		logAdj[i] = math.Log(adj)
	}

	var sumX, sumY, sumXX, sumXY float64
	for i := 0; i < n; i++ {
		sumX += x[i]
		sumY += logAdj[i]
		sumXX += x[i] * x[i]
		sumXY += x[i] * logAdj[i]
	}

	fn := float64(n)
	den := fn*sumXX - sumX*sumX
	if den == 0 {
		return Exponential{}, ErrSingularSystem
	}

	b := (fn*sumXY - sumX*sumY) / den
	lnA := (sumY - b*sumX) / fn
	return Exponential{A: math.Exp(lnA), B: b, C0: yMin}, nil
}

// Linspace returns n evenly spaced values from start to end inclusive.
func Linspace(start, end float64, n int) []float64 {
	switch {
	case n <= 0:
		return []float64{}
	case n == 1:
		return []float64{start}
	}
	return floats.Span(make([]float64, n), start, end)
}

// Sample evaluates m at every x.
func Sample(m Model, x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = m.Eval(v)
	}
	return out
}
