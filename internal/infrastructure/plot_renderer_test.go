package infrastructure

import (
	"context"
	"os"
	"path/filepath"
	"qcl-datasheet/internal/analysis"
	"qcl-datasheet/internal/domain"
	"qcl-datasheet/internal/figure"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func smallRenderer(formats ...string) *PlotRenderer {
	return NewPlotRenderer(zap.NewNop(), domain.RenderConfig{Formats: formats, WidthIn: 4, HeightIn: 4})
}

func TestPlotRendererWritesEveryFormat(t *testing.T) {
	desc := figure.BuildLIV("pulsed_liv", newLIV(livTrace("20", 1, 10), livTrace("80", 2, 20)), 10, 2, "K")
	base := filepath.Join(t.TempDir(), "pulsed_liv")

	files, err := smallRenderer("png", "svg").Render(context.Background(), desc, base)
	require.NoError(t, err)
	assert.Equal(t, []string{base + ".png", base + ".svg"}, files)

	for _, f := range files {
		info, err := os.Stat(f)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}
}

func TestPlotRendererSkipsAxisOnlyGraphs(t *testing.T) {
	liv := newLIV(livTrace("10", 1.0, 10), livTrace("50", 1.5, 10), livTrace("90", 2.0, 10))
	desc := figure.BuildIth("Ith_vs_T_cw_liv", analysis.NewThreshold(zap.NewNop(), liv, 3), 10, 2, 20)
	require.NotNil(t, desc)
	base := filepath.Join(t.TempDir(), "ith")

	files, err := smallRenderer("png").Render(context.Background(), desc, base)
	require.NoError(t, err)
	assert.FileExists(t, files[0])
}

func TestPlotRendererWithoutSeries(t *testing.T) {
	desc := &figure.Description{Name: "empty", Graphs: []figure.Graph{{}}}
	_, err := smallRenderer("png").Render(context.Background(), desc, filepath.Join(t.TempDir(), "empty"))
	assert.ErrorIs(t, err, domain.ErrNoTraces)
}

func TestPlotRendererHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := smallRenderer("png").Render(ctx, &figure.Description{}, filepath.Join(t.TempDir(), "x"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConstantTicks(t *testing.T) {
	ticks := constantTicks(0, 1, 0.25).Ticks(0, 1)
	var values []float64
	for _, tk := range ticks {
		values = append(values, tk.Value)
	}
	assert.Equal(t, []float64{0, 0.25, 0.5, 0.75, 1}, values)

	assert.Nil(t, constantTicks(0, 1, 0))
	assert.Nil(t, constantTicks(1, 0, 0.1))
	assert.Nil(t, constantTicks(0, 1e6, 1))
	assert.Nil(t, constantTicks(0.1, 0.2, 0.25))

	ticks = constantTicks(0.1, 1.1, 0.5).Ticks(0.1, 1.1)
	require.Len(t, ticks, 2)
	assert.Equal(t, "0.5", ticks[0].Label)
	assert.Equal(t, "1", ticks[1].Label)
}
