package infrastructure

import (
	"qcl-datasheet/internal/domain"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestReadConfigDefaults(t *testing.T) {
	path := writeFile(t, "config.yaml", "device:\n  width_um: 150\n  length_mm: 2\n")

	cfg, err := NewYAMLConfigReader(zap.NewNop()).ReadConfig(path)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, cfg.Workers, 1)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 3.0, cfg.LIV.Threshold)
	assert.Equal(t, 100.0, cfg.LIV.ScaleFactor)
	assert.Equal(t, 50, cfg.LIV.FitPoints)
	assert.Equal(t, 3, cfg.LIV.DRPolyOrder)
	assert.Equal(t, 0.15, cfg.Spectra.SideModeThreshold)
	assert.Equal(t, EngineGrace, cfg.Render.Engine)
	assert.Equal(t, []string{"png", "svg", "pdf"}, cfg.Render.Formats)
	assert.Empty(t, cfg.Date)
	assert.Equal(t, 60*time.Second, cfg.Render.Timeout)
	assert.Equal(t, 600, cfg.External.PNGDPI)
	assert.Equal(t, 150.0, cfg.Device.WidthUm)
	assert.NotNil(t, cfg.Pulsed)
}

func TestReadConfigOverrides(t *testing.T) {
	path := writeFile(t, "config.yaml", `
workers: 3
liv:
  threshold: 5
  scale_factor: 250
render:
  formats: [png]
  timeout: 5s
pulsed:
  pulsed_duty_cycle_liv: "2"
`)

	cfg, err := NewYAMLConfigReader(zap.NewNop()).ReadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, 5.0, cfg.LIV.Threshold)
	assert.Equal(t, 250.0, cfg.LIV.ScaleFactor)
	assert.Equal(t, []string{"png"}, cfg.Render.Formats)
	assert.Equal(t, 5*time.Second, cfg.Render.Timeout)
	assert.Equal(t, "2", cfg.Pulsed.Get("pulsed_duty_cycle_liv", "5"))
}

func TestReadConfigRejectsUnknownFormat(t *testing.T) {
	path := writeFile(t, "config.yaml", "render:\n  formats: [bmp]\n")

	_, err := NewYAMLConfigReader(zap.NewNop()).ReadConfig(path)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestReadConfigRejectsUnknownEngine(t *testing.T) {
	path := writeFile(t, "config.yaml", "render:\n  engine: gnuplot\n")

	_, err := NewYAMLConfigReader(zap.NewNop()).ReadConfig(path)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestReadConfigEmptyPath(t *testing.T) {
	cfg, err := NewYAMLConfigReader(zap.NewNop()).ReadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "K", cfg.LIV.TraceUnit)
}
