package analysis

import (
	"math"
	"qcl-datasheet/internal/domain"
	"qcl-datasheet/pkg/fitting"

	"go.uber.org/zap"
)

// Threshold holds the lasing threshold current and dynamic range of every
// LIV trace whose optical output reaches the threshold.
type Threshold struct {
	logger *zap.Logger

	t   []float64
	ith []float64
	dr  []float64

	refine bool
	exp    fitting.Exponential
	expOK  bool
	poly   fitting.Polynomial
	polyOK bool
}

// NewThreshold scans the normalized LIV traces. threshold is in the same
// units as the normalized optical column.
func NewThreshold(logger *zap.Logger, liv *LIV, threshold float64) *Threshold {
	th := &Threshold{logger: logger}

	for idx, tr := range liv.Traces() {
		current, light := tr.X, tr.Y2
		if len(current) != len(light) {
			logger.Warn("Skipping trace with mismatched I/L size",
				zap.Int("trace", idx),
				zap.String("label", tr.Label),
				zap.Int("current", len(current)),
				zap.Int("light", len(light)))
			continue
		}

		first := -1
		iMin, iMax := math.Inf(1), math.Inf(-1)
		for j, l := range light {
			if l < threshold {
				continue
			}
			if first < 0 {
				first = j
			}
			iMin = math.Min(iMin, current[j])
			iMax = math.Max(iMax, current[j])
		}

		if first < 0 {
			logger.Debug("Trace never reaches threshold",
				zap.String("label", tr.Label),
				zap.Float64("threshold", threshold),
				zap.Error(domain.ErrNoThresholdCrossing))
			continue
		}

		th.t = append(th.t, tr.Value)
		th.ith = append(th.ith, current[first])
		th.dr = append(th.dr, (iMax-iMin)*1000)
	}

	logger.Info("Threshold analysis done",
		zap.Int("traces", liv.Len()),
		zap.Int("surviving", len(th.t)))

	return th
}

// SetRefine enables a Levenberg-Marquardt polish of the exponential fit.
func (th *Threshold) SetRefine(on bool) { th.refine = on }

func (th *Threshold) Temperatures() []float64 { return th.t }
func (th *Threshold) Ith() []float64          { return th.ith }
func (th *Threshold) DR() []float64           { return th.dr }

// CanPlot reports whether enough traces survived for a trend.
func (th *Threshold) CanPlot() bool { return len(th.t) >= 2 }

func (th *Threshold) span(n int) []float64 {
	if len(th.t) == 0 {
		return []float64{}
	}
	return fitting.Linspace(th.t[0], th.t[len(th.t)-1], n)
}

// ApplyExponentialFit fits Ith(T) and samples it at n points across the
// measured T range. The fitted values are empty if the fit fails.
func (th *Threshold) ApplyExponentialFit(n int) ([]float64, []float64) {
	tFit := th.span(n)

	e, err := fitting.ExponentialFitE(th.t, th.ith)
	if err != nil {
		th.expOK = false
		th.logger.Info("Exponential Ith fit failed", zap.Error(err))
		return tFit, []float64{}
	}
	if th.refine {
		if refined, ok := fitting.RefineExponential(th.t, th.ith, e); ok {
			e = refined
		} else {
			th.logger.Info("Exponential refinement failed, keeping closed-form fit")
		}
	}

	th.exp, th.expOK = e, true
	return tFit, fitting.Sample(e, tFit)
}

// ExponentialParams returns the last successful exponential fit.
func (th *Threshold) ExponentialParams() (fitting.Exponential, bool) {
	return th.exp, th.expOK
}

// ApplyPolynomialFit fits DR(T) with the given order and samples it at n
// points across the measured T range.
func (th *Threshold) ApplyPolynomialFit(n, order int) ([]float64, []float64) {
	tFit := th.span(n)

	p, err := fitting.PolynomialFitE(th.t, th.dr, order)
	if err != nil {
		th.polyOK = false
		th.logger.Info("Polynomial DR fit failed", zap.Int("order", order), zap.Error(err))
		return tFit, []float64{}
	}

	th.poly, th.polyOK = p, true
	return tFit, fitting.Sample(p, tFit)
}

// PolynomialCoefficients returns the last successful polynomial fit, lowest power first.
func (th *Threshold) PolynomialCoefficients() ([]float64, bool) {
	return th.poly.Coefficients, th.polyOK
}
