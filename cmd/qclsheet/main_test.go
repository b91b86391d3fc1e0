package main

import (
	"errors"
	"qcl-datasheet/internal/domain"
	"qcl-datasheet/internal/report"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTraces(t *testing.T) {
	files, err := parseTraces([]string{"data/t80.txt=80", "data/a=b/t120.txt=120", "data/300mA.txt"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"data/t80.txt":      "80",
		"data/a=b/t120.txt": "120",
		"data/300mA.txt":    "300mA",
	}, files)

	_, err = parseTraces([]string{"=80"})
	assert.Error(t, err)
}

func TestParseMode(t *testing.T) {
	m, err := parseMode("CW")
	require.NoError(t, err)
	assert.Equal(t, report.CW, m)

	_, err = parseMode("quasi-cw")
	assert.Error(t, err)
}

type stubConfigReader struct {
	config *domain.Config
	err    error
	path   string
}

func (r *stubConfigReader) ReadConfig(path string) (*domain.Config, error) {
	r.path = path
	return r.config, r.err
}

func TestLoadConfigAppliesOverrides(t *testing.T) {
	reader := &stubConfigReader{config: &domain.Config{LogLevel: "info", Render: domain.RenderConfig{Engine: "grace"}}}

	cfg, err := loadConfig(reader, "qcl.yaml", "debug", "gonum")
	require.NoError(t, err)
	assert.Equal(t, "qcl.yaml", reader.path)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "gonum", cfg.Render.Engine)

	reader.config = &domain.Config{LogLevel: "warn", Render: domain.RenderConfig{Engine: "grace"}}
	cfg, err = loadConfig(reader, "", "", "")
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "grace", cfg.Render.Engine)

	reader = &stubConfigReader{err: errors.New("bad config")}
	_, err = loadConfig(reader, "qcl.yaml", "", "")
	assert.EqualError(t, err, "bad config")
}
