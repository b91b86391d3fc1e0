package analysis

import (
	"context"
	"fmt"
	"math"
	"qcl-datasheet/internal/domain"
	"qcl-datasheet/pkg/axis"
	"slices"
	"strings"
	"sync"

	"gonum.org/v1/gonum/floats"
)

const (
	// SpectraColumns is the column count of an FTIR spectrum file.
	SpectraColumns = 2

	smoothWindow      = 5
	prominenceRange   = 10
	prominenceRatio   = 0.05
	sameModeTolerance = 1e-6
	windowAmplitude   = 0.15
	windowMargin      = 0.020
	rangeTicks        = 6

	// DefaultSideModeThreshold is the relative height a side mode must clear.
	DefaultSideModeThreshold = 0.1
)

// SpectraOptions configures spectral mode detection.
type SpectraOptions struct {
	// Fmin and Fmax override the automatic plot window when non-zero.
	Fmin, Fmax float64
	// SideModeThreshold is relative to the smoothed maximum; 0 means 0.15.
	SideModeThreshold float64
	Workers           int
	// Unit follows each trace label in legends; empty means mA.
	Unit string
}

// Spectra is a per-trace normalized FTIR set together with its detected modes.
type Spectra struct {
	set     *domain.TraceSet
	opts    SpectraOptions
	centers []domain.Peak
	sides   [][]domain.Peak
	found   []bool
}

// BuildSpectra parses files, converting wavenumbers to THz, and detects modes.
func (b *Builder) BuildSpectra(ctx context.Context, files map[string]string, opts SpectraOptions) (*Spectra, error) {
	set, err := b.Build(ctx, files, SpectraColumns, domain.ParseOptions{XScale: domain.WavenumberToTHz, Sort: true})
	if err != nil {
		return nil, err
	}
	if opts.Workers == 0 {
		opts.Workers = b.workers
	}
	return NewSpectra(set, opts), nil
}

// NewSpectra orients and normalizes every trace, then finds the center and
// side modes of each one.
func NewSpectra(set *domain.TraceSet, opts SpectraOptions) *Spectra {
	if opts.SideModeThreshold == 0 {
		opts.SideModeThreshold = 0.15
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Unit == "" {
		opts.Unit = "mA"
	}

	s := &Spectra{
		set:     set,
		opts:    opts,
		centers: make([]domain.Peak, len(set.Traces)),
		sides:   make([][]domain.Peak, len(set.Traces)),
		found:   make([]bool, len(set.Traces)),
	}

	for i := range set.Traces {
		ensureAscendingX(&set.Traces[i])
		normalizeByOwnMax(set.Traces[i].Y1)
	}
	s.detect()
	return s
}

// detect runs peak detection per trace on a bounded pool; each worker writes
// only its own index.
func (s *Spectra) detect() {
	var wg sync.WaitGroup
	indices := make(chan int, len(s.set.Traces))
	for i := range s.set.Traces {
		indices <- i
	}
	close(indices)

	for w, n := 0, min(s.opts.Workers, max(1, len(s.set.Traces))); w < n; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				s.detectTrace(i)
			}
		}()
	}
	wg.Wait()
}

func (s *Spectra) detectTrace(i int) {
	t := &s.set.Traces[i]
	if len(t.X) == 0 || len(t.Y1) != len(t.X) {
		return
	}

	f0 := FindCenterMode(t.X, t.Y1)
	fwhm := CalculateFWHM(t.X, t.Y1, f0)
	s.centers[i] = domain.Peak{
		Frequency: f0,
		Amplitude: floats.Max(t.Y1),
		FWHM:      fwhm,
		QFactor:   CalculateQFactor(f0, fwhm),
	}
	s.found[i] = true

	var sides []domain.Peak
	for _, p := range FindSideModes(t.X, t.Y1, s.opts.SideModeThreshold) {
		if math.Abs(p.Frequency-f0) < sameModeTolerance {
			continue
		}
		sides = append(sides, p)
	}
	s.sides[i] = sides
}

func ensureAscendingX(t *domain.Trace) {
	if len(t.X) < 2 || t.X[0] <= t.X[len(t.X)-1] {
		return
	}
	slices.Reverse(t.X)
	slices.Reverse(t.Y1)
}

func normalizeByOwnMax(y []float64) {
	if len(y) == 0 {
		return
	}
	m := floats.Max(y)
	if m == 0 {
		return
	}
	floats.Scale(1/m, y)
}

func (s *Spectra) Traces() []domain.Trace { return s.set.Traces }
func (s *Spectra) Values() []string       { return s.set.Values() }
func (s *Spectra) Len() int               { return len(s.set.Traces) }

// CenterMode returns the center peak of trace i and whether one was found.
func (s *Spectra) CenterMode(i int) (domain.Peak, bool) {
	if i < 0 || i >= len(s.centers) {
		return domain.Peak{}, false
	}
	return s.centers[i], s.found[i]
}

// SideModes returns the side peaks of trace i.
func (s *Spectra) SideModes(i int) []domain.Peak {
	if i < 0 || i >= len(s.sides) {
		return nil
	}
	return s.sides[i]
}

// FindCenterMode returns the x of the first global maximum of y.
func FindCenterMode(x, y []float64) float64 {
	if len(y) == 0 || len(x) < len(y) {
		return 0
	}
	return x[floats.MaxIdx(y)]
}

// CalculateFWHM measures the full width at half maximum around the sample
// closest to peakFreq. It returns 0 if either half-max crossing is missing.
func CalculateFWHM(x, y []float64, peakFreq float64) float64 {
	idx := closestIndex(x, peakFreq)
	if idx < 0 || idx >= len(y) {
		return 0
	}

	half := y[idx] / 2
	left := leftCrossing(x, y, idx, half)
	right := rightCrossing(x, y, idx, half)
	if math.IsNaN(left) || math.IsNaN(right) || left == right {
		return 0
	}
	return math.Abs(right - left)
}

// CalculateQFactor is f0/fwhm, or 0 for a non-positive width.
func CalculateQFactor(f0, fwhm float64) float64 {
	if fwhm <= 0 {
		return 0
	}
	return f0 / fwhm
}

func closestIndex(x []float64, target float64) int {
	if len(x) == 0 {
		return -1
	}
	best := 0
	bestDiff := math.Abs(x[0] - target)
	for i := 1; i < len(x); i++ {
		if d := math.Abs(x[i] - target); d < bestDiff {
			best, bestDiff = i, d
		}
	}
	return best
}

func crosses(a, b, half float64) bool {
	return (a >= half && b < half) || (a <= half && b > half)
}

func leftCrossing(x, y []float64, peak int, half float64) float64 {
	for i := peak; i > 0; i-- {
		if crosses(y[i], y[i-1], half) {
			return interpolate(x[i], y[i], x[i-1], y[i-1], half)
		}
	}
	return math.NaN()
}

func rightCrossing(x, y []float64, peak int, half float64) float64 {
	for i := peak; i < len(x)-1; i++ {
		if crosses(y[i], y[i+1], half) {
			return interpolate(x[i], y[i], x[i+1], y[i+1], half)
		}
	}
	return math.NaN()
}

func interpolate(x1, y1, x2, y2, half float64) float64 {
	if x1 == x2 || y1 == y2 {
		return x1
	}
	slope := (y2 - y1) / (x2 - x1)
	return x1 + (half-y1)/slope
}

// Smooth is a centered moving average whose window shrinks at the edges.
func Smooth(y []float64, window int) []float64 {
	out := make([]float64, len(y))
	half := window / 2
	for i := range y {
		lo := max(0, i-half)
		hi := min(len(y)-1, i+half)
		out[i] = floats.Sum(y[lo:hi+1]) / float64(hi-lo+1)
	}
	return out
}

// IsProminentPeak reports whether y[index] rises at least minProminence above
// the higher of the lowest points within 10 samples on each side.
func IsProminentPeak(y []float64, index int, minProminence float64) bool {
	if index < 0 || index >= len(y) {
		return false
	}
	leftMin, rightMin := y[index], y[index]
	lo := max(0, index-prominenceRange)
	hi := min(len(y)-1, index+prominenceRange)
	for i := lo; i < index; i++ {
		leftMin = math.Min(leftMin, y[i])
	}
	for i := index + 1; i <= hi; i++ {
		rightMin = math.Min(rightMin, y[i])
	}
	return y[index]-math.Max(leftMin, rightMin) >= minProminence
}

// FindSideModes returns prominent local maxima of the smoothed spectrum above
// threshold times its maximum. Widths are measured on the smoothed curve and
// modes without a measurable width are dropped.
func FindSideModes(x, y []float64, threshold float64) []domain.Peak {
	if len(y) == 0 || len(x) < len(y) {
		return nil
	}

	ys := Smooth(y, smoothWindow)
	peak := floats.Max(ys)
	if peak == 0 {
		return nil
	}
	minHeight := threshold * peak
	minProminence := prominenceRatio * peak

	var modes []domain.Peak
	for i := 1; i < len(ys)-1; i++ {
		if ys[i] <= minHeight || ys[i] <= ys[i-1] || ys[i] <= ys[i+1] {
			continue
		}
		if !IsProminentPeak(ys, i, minProminence) {
			continue
		}
		f0 := x[i]
		fwhm := CalculateFWHM(x, ys, f0)
		if fwhm <= 0 {
			continue
		}
		modes = append(modes, domain.Peak{
			Frequency: f0,
			Amplitude: ys[i],
			FWHM:      fwhm,
			QFactor:   CalculateQFactor(f0, fwhm),
		})
	}
	return modes
}

// Xmin is the left edge of the plot window.
func (s *Spectra) Xmin() float64 {
	if s.opts.Fmin != 0 {
		return s.opts.Fmin
	}
	plan, ok := s.window()
	if !ok {
		return 0
	}
	return plan.Min
}

// Xmax is the right edge of the plot window.
func (s *Spectra) Xmax() float64 {
	if s.opts.Fmax != 0 {
		return s.opts.Fmax
	}
	plan, ok := s.window()
	if !ok {
		return 0
	}
	return plan.Max
}

// window spans every center mode and every strong side mode, each widened by
// its own FWHM, then pads and snaps so the lowest center lands on a tick.
func (s *Spectra) window() (axis.Plan, bool) {
	lo, hi := math.Inf(1), math.Inf(-1)
	lowest := math.Inf(1)
	seen := false

	for i, c := range s.centers {
		if !s.found[i] {
			continue
		}
		seen = true
		lo = math.Min(lo, c.Frequency-c.FWHM)
		hi = math.Max(hi, c.Frequency+c.FWHM)
		lowest = math.Min(lowest, c.Frequency)
		for _, p := range s.sides[i] {
			if p.Amplitude > windowAmplitude {
				lo = math.Min(lo, p.Frequency-p.FWHM)
				hi = math.Max(hi, p.Frequency+p.FWHM)
			}
		}
	}
	if !seen {
		return axis.Plan{}, false
	}
	return axis.AdjustRange(lo-windowMargin, hi+windowMargin, lowest, rangeTicks), true
}

// LegendForTrace describes the center mode of trace i and its nearest side
// mode on each side with the free spectral range to it.
func (s *Spectra) LegendForTrace(i int) string {
	c, ok := s.CenterMode(i)
	if !ok {
		if i >= 0 && i < len(s.set.Traces) {
			return fmt.Sprintf("%6s %s", s.set.Traces[i].Label, s.opts.Unit)
		}
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%6s %s: f₀ = %.3f THz", s.set.Traces[i].Label, s.opts.Unit, c.Frequency)

	left, right := nearestSides(c.Frequency, s.sides[i])
	if right != nil {
		fmt.Fprintf(&b, ", f₁ = %.3f THz, FSR₁ = %.1f GHz",
			right.Frequency, (right.Frequency-c.Frequency)*1000)
	}
	if left != nil {
		fmt.Fprintf(&b, ", f₋₁ = %.3f THz, FSR₋₁ = %.1f GHz",
			left.Frequency, (c.Frequency-left.Frequency)*1000)
	}
	return b.String()
}

func nearestSides(f0 float64, sides []domain.Peak) (left, right *domain.Peak) {
	for k := range sides {
		p := &sides[k]
		d := math.Abs(p.Frequency - f0)
		switch {
		case p.Frequency < f0:
			if left == nil || d < math.Abs(left.Frequency-f0) {
				left = p
			}
		case p.Frequency > f0:
			if right == nil || d < math.Abs(right.Frequency-f0) {
				right = p
			}
		}
	}
	return left, right
}

// GlobalFrequencyRange spans all center and side modes of the set.
func (s *Spectra) GlobalFrequencyRange() string {
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, c := range s.centers {
		if !s.found[i] {
			continue
		}
		lo, hi = math.Min(lo, c.Frequency), math.Max(hi, c.Frequency)
		for _, p := range s.sides[i] {
			lo, hi = math.Min(lo, p.Frequency), math.Max(hi, p.Frequency)
		}
	}
	if math.IsInf(lo, 1) {
		return ""
	}
	if fuzzyEqual(lo, hi) {
		return fmt.Sprintf("%.3f THz", lo)
	}
	return fmt.Sprintf("%.3f THz - %.3f THz", lo, hi)
}

func fuzzyEqual(a, b float64) bool {
	return math.Abs(a-b)*1e12 <= math.Min(math.Abs(a), math.Abs(b))
}
