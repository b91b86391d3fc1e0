package axis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChooseNiceStep(t *testing.T) {
	tests := []struct {
		name     string
		min, max float64
		ticks    int
		want     float64
	}{
		{"temperature span", 0, 97, 7, 20},
		{"unit span", 0, 1, 8, 0.2},
		{"quarter steps", 0, 2.4, 8, 0.5},
		{"empty range", 5, 5, 7, 1},
		{"inverted range", 10, 5, 7, 1},
		{"two and a half", 0, 17, 7, 2.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ChooseNiceStep(tt.min, tt.max, tt.ticks), 1e-12)
		})
	}
}

func TestChooseNiceStepProperties(t *testing.T) {
	mins := []float64{-3.7, 0, 0.0001, 12.5, 290}
	spans := []float64{0.013, 0.9, 1, 7.3, 97, 1234.5, 1e5}

	for _, lo := range mins {
		for _, span := range spans {
			for ticks := 3; ticks <= 10; ticks++ {
				hi := lo + span
				step := ChooseNiceStep(lo, hi, ticks)
				require.Greater(t, step, 0.0)

				assert.LessOrEqual(t, math.Ceil((hi-lo)/step-1e-9), float64(ticks),
					"min=%v max=%v ticks=%d step=%v", lo, hi, ticks, step)

				mantissa := step / math.Pow(10, math.Floor(math.Log10(step)+1e-12))
				found := false
				for _, m := range []float64{1, 2, 2.5, 5, 10} {
					if math.Abs(mantissa-m) < 1e-9 {
						found = true
					}
				}
				assert.True(t, found, "step %v is not a nice multiple", step)
			}
		}
	}
}

func TestSnap(t *testing.T) {
	p := Snap(0.13, 2.71, 0.5)
	assert.InDelta(t, 0.0, p.Min, 1e-12)
	assert.InDelta(t, 3.0, p.Max, 1e-12)
	assert.Len(t, p.Ticks(), 7)
}

func TestAdjustRange(t *testing.T) {
	p := AdjustRange(3.0, 3.6, 3.23, 6)

	assert.InDelta(t, 0.1, p.Step, 1e-12)
	assert.InDelta(t, 3.03, p.Min, 1e-9)
	assert.InDelta(t, 3.63, p.Max, 1e-9)

	onTick := (3.23 - p.Min) / p.Step
	assert.InDelta(t, math.Round(onTick), onTick, 1e-9)
}
