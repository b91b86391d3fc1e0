package analysis

import (
	"context"
	"math"
	"qcl-datasheet/internal/domain"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeReader struct {
	traces map[string]*domain.Trace
}

func (f *fakeReader) ReadTrace(path string, columns int, _ domain.ParseOptions) (*domain.Trace, error) {
	t, ok := f.traces[path]
	if !ok {
		empty := &domain.Trace{X: []float64{}, Y1: []float64{}}
		if columns == 3 {
			empty.Y2 = []float64{}
		}
		return empty, domain.ErrFileUnreadable
	}
	cp := &domain.Trace{
		X:  append([]float64(nil), t.X...),
		Y1: append([]float64(nil), t.Y1...),
	}
	if t.Y2 != nil {
		cp.Y2 = append([]float64(nil), t.Y2...)
	}
	return cp, nil
}

func livTrace(imax, lmax float64) *domain.Trace {
	t := &domain.Trace{}
	for i := 1; i <= 10; i++ {
		f := float64(i) / 10
		t.X = append(t.X, f*imax)
		t.Y1 = append(t.Y1, 1+f)
		t.Y2 = append(t.Y2, f*f*lmax)
	}
	return t
}

func TestBuildOrdersByLabelValue(t *testing.T) {
	reader := &fakeReader{traces: map[string]*domain.Trace{
		"a.txt": livTrace(1.0, 5),
		"b.txt": livTrace(2.0, 10),
		"c.txt": livTrace(1.5, 7),
	}}
	b := NewBuilder(zap.NewNop(), reader, 2)

	set, err := b.Build(context.Background(), map[string]string{
		"a.txt": "10",
		"b.txt": "50",
		"c.txt": "30",
	}, LIVColumns, domain.ParseOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"10", "30", "50"}, set.Values())
	assert.InDelta(t, 0.1, set.Stats.MinX, 1e-12)
	assert.InDelta(t, 2.0, set.Stats.MaxX, 1e-12)
	assert.InDelta(t, 1.1, set.Stats.MinY1, 1e-12)
	assert.InDelta(t, 2.0, set.Stats.MaxY1, 1e-12)
	assert.InDelta(t, 10.0, set.Stats.PreNormMaxY2, 1e-12)
}

func TestBuildIsStableForEqualLabels(t *testing.T) {
	reader := &fakeReader{traces: map[string]*domain.Trace{
		"1.txt": livTrace(1, 1),
		"2.txt": livTrace(1, 1),
		"3.txt": livTrace(1, 1),
		"4.txt": livTrace(1, 1),
	}}
	b := NewBuilder(zap.NewNop(), reader, 4)

	set, err := b.Build(context.Background(), map[string]string{
		"1.txt": "20",
		"2.txt": "abc",
		"3.txt": "5",
		"4.txt": "0",
	}, LIVColumns, domain.ParseOptions{})
	require.NoError(t, err)

	// "abc" reads as 0 and precedes "0" because its path sorts first.
	assert.Equal(t, []string{"abc", "0", "5", "20"}, set.Values())
}

func TestBuildKeepsUnreadableFilesAsEmptyTraces(t *testing.T) {
	reader := &fakeReader{traces: map[string]*domain.Trace{"ok.txt": livTrace(1, 4)}}
	b := NewBuilder(zap.NewNop(), reader, 1)

	set, err := b.Build(context.Background(), map[string]string{
		"ok.txt":      "20",
		"missing.txt": "10",
	}, LIVColumns, domain.ParseOptions{})
	require.NoError(t, err)
	require.Len(t, set.Traces, 2)

	assert.Equal(t, 0, set.Traces[0].Len())
	assert.Equal(t, 10, set.Traces[1].Len())
	assert.InDelta(t, 4.0, set.Stats.PreNormMaxY2, 1e-12)
}

func TestBuildHonorsCancellation(t *testing.T) {
	reader := &fakeReader{traces: map[string]*domain.Trace{}}
	b := NewBuilder(zap.NewNop(), reader, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	files := map[string]string{}
	for _, p := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		files[p] = "1"
	}
	set, err := b.Build(ctx, files, LIVColumns, domain.ParseOptions{})
	if err != nil {
		assert.ErrorIs(t, err, context.Canceled)
		assert.Nil(t, set)
	}
}

func newLIV(t *testing.T, files map[string]string, traces map[string]*domain.Trace, scale float64) *LIV {
	t.Helper()
	b := NewBuilder(zap.NewNop(), &fakeReader{traces: traces}, 2)
	liv, err := b.BuildLIV(context.Background(), files, scale)
	require.NoError(t, err)
	return liv
}

func TestLIVNormalization(t *testing.T) {
	liv := newLIV(t,
		map[string]string{"a": "10", "b": "20"},
		map[string]*domain.Trace{"a": livTrace(1, 2), "b": livTrace(1, 4)},
		100)

	traces := liv.Traces()
	assert.InDelta(t, 50.0, traces[0].Y2[9], 1e-9)
	assert.InDelta(t, 100.0, traces[1].Y2[9], 1e-9)
	assert.Equal(t, 100.0, liv.ScaleFactor())
	assert.InDelta(t, 2.0, liv.MaxY1(), 1e-12)
}

func TestLIVNormalizeTwiceRescales(t *testing.T) {
	liv := newLIV(t,
		map[string]string{"a": "10"},
		map[string]*domain.Trace{"a": livTrace(1, 4)},
		100)

	before := append([]float64(nil), liv.Traces()[0].Y2...)
	liv.Normalize()
	after := liv.Traces()[0].Y2

	assert.InDelta(t, 100.0, before[9], 1e-9)
	assert.NotEqual(t, before, after)
	assert.InDelta(t, 2500.0, after[9], 1e-6)
}

func TestLIVZeroReferenceUsesOne(t *testing.T) {
	dark := livTrace(1, 0)
	liv := newLIV(t, map[string]string{"a": "10"}, map[string]*domain.Trace{"a": dark}, 100)

	for _, v := range liv.Traces()[0].Y2 {
		assert.Equal(t, 0.0, v)
	}
}

func TestThresholdSkipsTracesBelowThreshold(t *testing.T) {
	liv := newLIV(t,
		map[string]string{"a": "10", "b": "30", "c": "50"},
		map[string]*domain.Trace{
			"a": livTrace(1.0, 10),
			"b": livTrace(1.5, 0.2),
			"c": livTrace(2.0, 8),
		},
		100)

	th := NewThreshold(zap.NewNop(), liv, 3.0)

	assert.Equal(t, []float64{10, 50}, th.Temperatures())
	assert.Len(t, th.Ith(), liv.Len()-1)
	assert.Len(t, th.DR(), liv.Len()-1)
	assert.True(t, th.CanPlot())

	// trace a: L = f^2*100 crosses 3 at f=0.2, so Ith = 0.2 A and DR spans 0.2..1.0 A.
	assert.InDelta(t, 0.2, th.Ith()[0], 1e-12)
	assert.InDelta(t, 800.0, th.DR()[0], 1e-9)
}

func TestThresholdSkipsMismatchedTraces(t *testing.T) {
	bad := livTrace(1, 10)
	bad.Y2 = bad.Y2[:5]
	liv := NewLIV(&domain.TraceSet{
		Traces: []domain.Trace{{Label: "10", Value: 10, X: bad.X, Y1: bad.Y1, Y2: bad.Y2}},
		Stats:  domain.Extrema{PreNormMaxY2: 10},
	}, 100)

	th := NewThreshold(zap.NewNop(), liv, 3)
	assert.Empty(t, th.Temperatures())
	assert.False(t, th.CanPlot())
}

func TestThresholdFits(t *testing.T) {
	traces := map[string]*domain.Trace{}
	files := map[string]string{}
	for i, temp := range []string{"20", "40", "60", "80", "100"} {
		name := "t" + temp
		tr := livTrace(1, 10)
		// shift the current axis so that Ith grows with temperature
		for j := range tr.X {
			tr.X[j] += 0.05 * math.Exp(0.02*float64(20*(i+1)))
		}
		traces[name] = tr
		files[name] = temp
	}
	liv := newLIV(t, files, traces, 100)
	th := NewThreshold(zap.NewNop(), liv, 3)
	require.True(t, th.CanPlot())

	tFit, iFit := th.ApplyExponentialFit(50)
	assert.Len(t, tFit, 50)
	assert.Len(t, iFit, 50)
	assert.InDelta(t, 20.0, tFit[0], 1e-12)
	assert.InDelta(t, 100.0, tFit[49], 1e-12)
	params, ok := th.ExponentialParams()
	assert.True(t, ok)
	assert.Greater(t, params.B, 0.0)

	tFit, drFit := th.ApplyPolynomialFit(20, 3)
	assert.Len(t, tFit, 20)
	assert.Len(t, drFit, 20)
	coeffs, ok := th.PolynomialCoefficients()
	assert.True(t, ok)
	assert.Len(t, coeffs, 4)
}

func TestThresholdFitFailureYieldsEmptyCurve(t *testing.T) {
	liv := newLIV(t,
		map[string]string{"a": "10", "b": "20"},
		map[string]*domain.Trace{"a": livTrace(1, 10), "b": livTrace(1, 10)},
		100)
	th := NewThreshold(zap.NewNop(), liv, 3)

	tFit, drFit := th.ApplyPolynomialFit(10, 3)
	assert.Len(t, tFit, 10)
	assert.Empty(t, drFit)
	_, ok := th.PolynomialCoefficients()
	assert.False(t, ok)
}

func gaussian(x, center, amp, sigma float64) float64 {
	d := x - center
	return amp * math.Exp(-d*d/(2*sigma*sigma))
}

func grid(from, step float64, n int) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = from + float64(i)*step
	}
	return x
}

func TestSingleGaussianPeak(t *testing.T) {
	x := grid(3.0, 0.001, 1001)
	y := make([]float64, len(x))
	for i, v := range x {
		y[i] = gaussian(v, 3.5, 1.0, 0.01)
	}

	f0 := FindCenterMode(x, y)
	assert.InDelta(t, 3.5, f0, 1e-9)

	fwhm := CalculateFWHM(x, y, f0)
	assert.Greater(t, fwhm, 0.0)
	assert.InDelta(t, 2*math.Sqrt(2*math.Ln2)*0.01, fwhm, 1e-3)
	assert.Equal(t, f0/fwhm, CalculateQFactor(f0, fwhm))
}

func TestQFactor(t *testing.T) {
	assert.Equal(t, 0.0, CalculateQFactor(3.5, 0))
	assert.Equal(t, 0.0, CalculateQFactor(3.5, -0.1))
	assert.Equal(t, 3.5/0.02, CalculateQFactor(3.5, 0.02))
}

func TestFWHMWithoutCrossingIsZero(t *testing.T) {
	x := []float64{1, 2, 3}
	y := []float64{1, 0.9, 0.8}
	assert.Equal(t, 0.0, CalculateFWHM(x, y, 1))
}

func TestSmoothClampsEdges(t *testing.T) {
	got := Smooth([]float64{0, 0, 10, 0, 0}, 5)
	assert.InDeltaSlice(t, []float64{10.0 / 3, 2.5, 2, 2.5, 10.0 / 3}, got, 1e-12)
}

func TestIsProminentPeak(t *testing.T) {
	y := []float64{0, 0.1, 0.5, 0.1, 0}
	assert.True(t, IsProminentPeak(y, 2, 0.3))
	assert.False(t, IsProminentPeak(y, 2, 0.6))
	assert.False(t, IsProminentPeak(y, 7, 0.1))
}

func twoModeTrace() *domain.Trace {
	x := grid(3.3, 0.001, 501)
	y := make([]float64, len(x))
	for i, v := range x {
		y[i] = gaussian(v, 3.5, 2.0, 0.005) + gaussian(v, 3.6, 0.8, 0.005)
	}
	return &domain.Trace{X: x, Y1: y}
}

func TestSpectraModesAndLegend(t *testing.T) {
	tr := twoModeTrace()
	set := &domain.TraceSet{Traces: []domain.Trace{{Label: "500", Value: 500, X: tr.X, Y1: tr.Y1}}}

	sp := NewSpectra(set, SpectraOptions{Workers: 2})

	center, ok := sp.CenterMode(0)
	require.True(t, ok)
	assert.InDelta(t, 3.5, center.Frequency, 1e-9)
	assert.InDelta(t, 1.0, center.Amplitude, 1e-9)

	sides := sp.SideModes(0)
	require.Len(t, sides, 1)
	assert.InDelta(t, 3.6, sides[0].Frequency, 1e-9)

	legend := sp.LegendForTrace(0)
	assert.True(t, strings.HasPrefix(legend, "   500 mA: f₀ = 3.500 THz"), legend)
	assert.Contains(t, legend, "f₁ = 3.600 THz, FSR₁ = 100.0 GHz")
	assert.NotContains(t, legend, "f₋₁")

	assert.Equal(t, "3.500 THz - 3.600 THz", sp.GlobalFrequencyRange())
}

func TestSpectraWindowSnapsToLowestCenter(t *testing.T) {
	tr := twoModeTrace()
	set := &domain.TraceSet{Traces: []domain.Trace{{Label: "500", Value: 500, X: tr.X, Y1: tr.Y1}}}
	sp := NewSpectra(set, SpectraOptions{})

	lo, hi := sp.Xmin(), sp.Xmax()
	require.Less(t, lo, hi)
	assert.Less(t, lo, 3.5)
	assert.Greater(t, hi, 3.6)

	step := (hi - lo) / 6
	ticks := (3.5 - lo) / step
	assert.InDelta(t, math.Round(ticks), ticks, 1e-6)
}

func TestSpectraCallerRangeWins(t *testing.T) {
	tr := twoModeTrace()
	set := &domain.TraceSet{Traces: []domain.Trace{{Label: "1", Value: 1, X: tr.X, Y1: tr.Y1}}}
	sp := NewSpectra(set, SpectraOptions{Fmin: 3.2, Fmax: 3.9})

	assert.Equal(t, 3.2, sp.Xmin())
	assert.Equal(t, 3.9, sp.Xmax())
}

func TestSpectraEmpty(t *testing.T) {
	sp := NewSpectra(&domain.TraceSet{}, SpectraOptions{})
	assert.Equal(t, 0.0, sp.Xmin())
	assert.Equal(t, 0.0, sp.Xmax())
	assert.Equal(t, "", sp.GlobalFrequencyRange())
	assert.Equal(t, "", sp.LegendForTrace(0))
}

func TestSpectraReversesDescendingAxis(t *testing.T) {
	set := &domain.TraceSet{Traces: []domain.Trace{{
		Label: "1",
		X:     []float64{3, 2, 1},
		Y1:    []float64{4, 2, 1},
	}}}
	sp := NewSpectra(set, SpectraOptions{})

	tr := sp.Traces()[0]
	assert.Equal(t, []float64{1, 2, 3}, tr.X)
	assert.Equal(t, []float64{0.25, 0.5, 1}, tr.Y1)
}

func TestGlobalFrequencyRangeSingleValue(t *testing.T) {
	x := grid(3.0, 0.001, 1001)
	y := make([]float64, len(x))
	for i, v := range x {
		y[i] = gaussian(v, 3.5, 1.0, 0.01)
	}
	set := &domain.TraceSet{Traces: []domain.Trace{
		{Label: "1", X: x, Y1: append([]float64(nil), y...)},
		{Label: "2", X: append([]float64(nil), x...), Y1: append([]float64(nil), y...)},
	}}
	sp := NewSpectra(set, SpectraOptions{})

	assert.Equal(t, "3.500 THz", sp.GlobalFrequencyRange())
}
