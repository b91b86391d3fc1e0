// Package axis picks tick steps and bounds for plot axes.
package axis

import "math"

const (
	// DefaultLIVTicks is the tick budget for the LIV I-V and J axes.
	DefaultLIVTicks = 8
	// DefaultTicks is the tick budget used everywhere else.
	DefaultTicks = 7
)

var multipliers = []float64{1, 2, 2.5, 5, 10}

// Plan is a snapped axis: bounds are multiples of Step.
type Plan struct {
	Step float64
	Min  float64
	Max  float64
}

// ChooseNiceStep returns the smallest step from {1,2,2.5,5,10}x10^n that
// covers [min, max] with at most maxTicks intervals.
func ChooseNiceStep(min, max float64, maxTicks int) float64 {
	rng := max - min
	if rng <= 0 || maxTicks <= 0 {
		return 1.0
	}

	rough := rng / float64(maxTicks)
	magnitude := math.Pow(10, math.Floor(math.Log10(rough)))

	for _, m := range multipliers {
		step := m * magnitude
		if rng/step <= float64(maxTicks) {
			return step
		}
	}
	return 10 * magnitude
}

// Snap floors min and ceils max to multiples of step.
func Snap(min, max, step float64) Plan {
	if step <= 0 {
		return Plan{Step: step, Min: min, Max: max}
	}
	return Plan{
		Step: step,
		Min:  math.Floor(min/step) * step,
		Max:  math.Ceil(max/step) * step,
	}
}

// Nice chooses a step and snaps the bounds to it.
func Nice(min, max float64, maxTicks int) Plan {
	return Snap(min, max, ChooseNiceStep(min, max, maxTicks))
}

// AdjustRange shifts [min, max] so that target falls on a tick boundary of
// a ticks-interval axis of unchanged width.
func AdjustRange(min, max, target float64, ticks int) Plan {
	if ticks <= 0 {
		ticks = 6
	}
	step := (max - min) / float64(ticks)
	if step == 0 {
		return Plan{Step: step, Min: min, Max: max}
	}
	offset := math.Round((target - min) / step)
	lo := target - offset*step
	return Plan{Step: step, Min: lo, Max: lo + float64(ticks)*step}
}

// Ticks lists the tick positions of p from Min to Max inclusive.
func (p Plan) Ticks() []float64 {
	if p.Step <= 0 || p.Max < p.Min {
		return []float64{p.Min}
	}
	n := int(math.Round((p.Max-p.Min)/p.Step)) + 1
	out := make([]float64, n)
	for i := range out {
		out[i] = p.Min + float64(i)*p.Step
	}
	return out
}
