package fitting

import (
	"fmt"
	"math"

	"github.com/maorshutman/lm"
)

// RefineExponential polishes seed with Levenberg-Marquardt on the plain
// residuals A*exp(B*x)+C0-y. On any failure the seed is returned with false.
func RefineExponential(x, y []float64, seed Exponential) (Exponential, bool) {
	e, err := RefineExponentialE(x, y, seed)
	if err != nil {
		return seed, false
	}
	return e, true
}

// RefineExponentialE is RefineExponential with the failure reason.
func RefineExponentialE(x, y []float64, seed Exponential) (res Exponential, err error) {
	if len(x) < 3 || len(y) != len(x) {
		return seed, ErrInsufficientData
	}

	fnc := func(dst, p []float64) {
		for i := range x {
			dst[i] = p[0]*math.Exp(p[1]*x[i]) + p[2] - y[i]
		}
	}
	jac := lm.NumJac{Func: fnc}

	problem := lm.LMProblem{
		Dim:        3,
		Size:       len(x),
		Func:       fnc,
		Jac:        jac.Jac,
		InitParams: []float64{seed.A, seed.B, seed.C0},
		Tau:        1e-6,
		Eps1:       1e-10,
		Eps2:       1e-10,
	}

	// lm panics on singular steps.
	defer func() {
		if r := recover(); r != nil {
			res, err = seed, fmt.Errorf("%w: %v", ErrSingularSystem, r)
		}
	}()

	out, lmErr := lm.LM(problem, &lm.Settings{Iterations: 1000, ObjectiveTol: 1e-16})
	if lmErr != nil {
		return seed, lmErr
	}
	if len(out.X) != 3 {
		return seed, ErrSingularSystem
	}
	for _, v := range out.X {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return seed, ErrSingularSystem
		}
	}

	refined := Exponential{A: out.X[0], B: out.X[1], C0: out.X[2]}
	if sumSquares(x, y, refined) > sumSquares(x, y, seed) {
		return seed, nil
	}
	return refined, nil
}

func sumSquares(x, y []float64, m Model) float64 {
	s := 0.0
	for i := range x {
		d := m.Eval(x[i]) - y[i]
		s += d * d
	}
	return s
}
