package analysis

import (
	"context"
	"math"
	"qcl-datasheet/internal/domain"
)

// LIVColumns is the column count of a light-current-voltage file.
const LIVColumns = 3

// LIV holds a light-current-voltage trace set whose optical column has been
// rescaled so that the brightest sample of the whole set equals ScaleFactor.
type LIV struct {
	set   *domain.TraceSet
	scale float64
}

// NewLIV normalizes set in place exactly once.
func NewLIV(set *domain.TraceSet, scaleFactor float64) *LIV {
	if scaleFactor == 0 {
		scaleFactor = 100
	}
	l := &LIV{set: set, scale: scaleFactor}
	l.Normalize()
	return l
}

// BuildLIV parses files and returns the normalized set.
func (b *Builder) BuildLIV(ctx context.Context, files map[string]string, scaleFactor float64) (*LIV, error) {
	set, err := b.Build(ctx, files, LIVColumns, domain.ParseOptions{XScale: 1, Sort: true})
	if err != nil {
		return nil, err
	}
	return NewLIV(set, scaleFactor), nil
}

// Normalize rescales y2 against the pre-normalization global maximum.
// It is not idempotent: each call multiplies by scale/ref again.
func (l *LIV) Normalize() {
	ref := l.set.Stats.PreNormMaxY2
	if ref == 0 || len(l.set.Traces) == 0 || math.IsInf(ref, 0) {
		ref = 1
	}
	for i := range l.set.Traces {
		y2 := l.set.Traces[i].Y2
		for j := range y2 {
			y2[j] = y2[j] / ref * l.scale
		}
	}
}

func (l *LIV) Traces() []domain.Trace { return l.set.Traces }
func (l *LIV) Values() []string       { return l.set.Values() }
func (l *LIV) Len() int               { return len(l.set.Traces) }
func (l *LIV) ScaleFactor() float64   { return l.scale }
func (l *LIV) MinX() float64          { return l.set.Stats.MinX }
func (l *LIV) MaxX() float64          { return l.set.Stats.MaxX }
func (l *LIV) MinY1() float64         { return l.set.Stats.MinY1 }
func (l *LIV) MaxY1() float64         { return l.set.Stats.MaxY1 }
