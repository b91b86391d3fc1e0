// Package fitting holds the closed-form least-squares fitters used for
// threshold-current and dynamic-range trends.
package fitting

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrInsufficientData is returned when there are too few points for the model.
	ErrInsufficientData = errors.New("insufficient data for fit")
	// ErrNonPositiveAdjusted is returned when a log-linearized value is not positive.
	ErrNonPositiveAdjusted = errors.New("non-positive value after offset adjustment")
	// ErrSingularSystem is returned when the normal equations cannot be solved.
	ErrSingularSystem = errors.New("singular normal equations")
)

// Model is a fitted curve.
type Model interface {
	Eval(x float64) float64
	String() string
}

// Polynomial is c[0] + c[1]x + ... + c[Order]x^Order.
type Polynomial struct {
	Order        int
	Coefficients []float64
}

func (p Polynomial) Eval(x float64) float64 {
	y := 0.0
	for i := len(p.Coefficients) - 1; i >= 0; i-- {
		y = y*x + p.Coefficients[i]
	}
	return y
}

func (p Polynomial) String() string {
	terms := make([]string, 0, len(p.Coefficients))
	for i, c := range p.Coefficients {
		terms = append(terms, fmt.Sprintf("%gx^%d", c, i))
	}
	return strings.Join(terms, " + ")
}

// PolynomialFit fits y = sum c[j] x^j by least squares. It needs more points than order.
func PolynomialFit(x, y []float64, order int) (Polynomial, bool) {
	p, err := PolynomialFitE(x, y, order)
	return p, err == nil
}

// PolynomialFitE is PolynomialFit with the failure reason.
func PolynomialFitE(x, y []float64, order int) (Polynomial, error) {
	n := len(x)
	if order < 0 || n <= order || len(y) != n {
		return Polynomial{}, ErrInsufficientData
	}
	cols := order + 1

	vander := mat.NewDense(n, cols, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < cols; j++ {
			vander.Set(i, j, math.Pow(x[i], float64(j)))
		}
	}

	var xtx mat.Dense
	xtx.Mul(vander.T(), vander)
	var xty mat.VecDense
	xty.MulVec(vander.T(), mat.NewVecDense(n, y))

	aug := make([][]float64, cols)
	for i := range aug {
		aug[i] = make([]float64, cols+1)
		for j := 0; j < cols; j++ {
			aug[i][j] = xtx.At(i, j)
		}
		aug[i][cols] = xty.AtVec(i)
	}

	coeffs, err := solveAugmented(aug)
	if err != nil {
		return Polynomial{}, err
	}
	return Polynomial{Order: order, Coefficients: coeffs}, nil
}

// solveAugmented runs Gaussian elimination with partial pivoting on an
// n x (n+1) augmented matrix, then back-substitutes.
func solveAugmented(aug [][]float64) ([]float64, error) {
	n := len(aug)
	for i := 0; i < n; i++ {
		pivot := i
		for j := i + 1; j < n; j++ {
			if math.Abs(aug[j][i]) > math.Abs(aug[pivot][i]) {
				pivot = j
			}
		}
		if aug[pivot][i] == 0 {
			return nil, ErrSingularSystem
		}
		aug[i], aug[pivot] = aug[pivot], aug[i]

		for j := i + 1; j < n; j++ {
			factor := aug[j][i] / aug[i][i]
			for k := i; k <= n; k++ {
				aug[j][k] -= aug[i][k] * factor
			}
		}
	}

	out := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		out[i] = aug[i][n] / aug[i][i]
		for j := i - 1; j >= 0; j-- {
			aug[j][n] -= aug[j][i] * out[i]
		}
	}
	return out, nil
}
