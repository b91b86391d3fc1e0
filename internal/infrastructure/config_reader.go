package infrastructure

import (
	"fmt"
	"os"
	"qcl-datasheet/internal/domain"
	"runtime"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Render engines.
const (
	EngineGrace = "grace"
	EngineGonum = "gonum"
)

type YAMLConfigReader struct {
	logger *zap.Logger
}

func NewYAMLConfigReader(logger *zap.Logger) *YAMLConfigReader {
	return &YAMLConfigReader{logger: logger}
}

// ReadConfig loads path and fills in defaults. An empty path yields the defaults alone.
func (r *YAMLConfigReader) ReadConfig(path string) (*domain.Config, error) {
	var config domain.Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
		}
	}

	SetDefaults(&config)

	if err := validate(&config); err != nil {
		return nil, err
	}

	r.logger.Debug("Config loaded",
		zap.String("path", path),
		zap.Int("workers", config.Workers),
		zap.Float64("threshold", config.LIV.Threshold))

	return &config, nil
}

// SetDefaults fills every zero-valued field that has a documented default.
func SetDefaults(config *domain.Config) {
	if config.Workers == 0 {
		config.Workers = max(1, runtime.NumCPU()-1)
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}

	if config.LIV.Threshold == 0 {
		config.LIV.Threshold = 3.0
	}
	if config.LIV.ScaleFactor == 0 {
		config.LIV.ScaleFactor = 100.0
	}
	if config.LIV.TraceUnit == "" {
		config.LIV.TraceUnit = "K"
	}
	if config.LIV.FitPoints == 0 {
		config.LIV.FitPoints = 50
	}
	if config.LIV.DRPolyOrder == 0 {
		config.LIV.DRPolyOrder = 3
	}

	if config.Spectra.SideModeThreshold == 0 {
		config.Spectra.SideModeThreshold = 0.15
	}
	if config.Spectra.TraceUnit == "" {
		config.Spectra.TraceUnit = "mA"
	}

	if config.Render.Engine == "" {
		config.Render.Engine = EngineGrace
	}
	if len(config.Render.Formats) == 0 {
		config.Render.Formats = []string{"png", "svg", "pdf"}
	}
	if config.Render.WidthIn == 0 {
		config.Render.WidthIn = 15
	}
	if config.Render.HeightIn == 0 {
		config.Render.HeightIn = 15
	}
	if config.Render.Timeout == 0 {
		config.Render.Timeout = 60 * time.Second
	}

	if config.External.GracePath == "" {
		config.External.GracePath = "qtgrace"
	}
	if config.External.GhostscriptPath == "" {
		config.External.GhostscriptPath = "gs"
	}
	if config.External.LatexPath == "" {
		config.External.LatexPath = "pdflatex"
	}
	if config.External.PNGDPI == 0 {
		config.External.PNGDPI = 600
	}

	if config.Pulsed == nil {
		config.Pulsed = domain.MetadataMap{}
	}
	if config.CW == nil {
		config.CW = domain.MetadataMap{}
	}
}

func validate(config *domain.Config) error {
	if config.Workers < 1 {
		return fmt.Errorf("%w: workers must be positive, got %d", domain.ErrInvalidConfig, config.Workers)
	}
	if config.LIV.FitPoints < 2 {
		return fmt.Errorf("%w: liv.fit_points must be at least 2", domain.ErrInvalidConfig)
	}
	if config.LIV.DRPolyOrder < 0 {
		return fmt.Errorf("%w: liv.dr_poly_order must not be negative", domain.ErrInvalidConfig)
	}
	switch config.Render.Engine {
	case EngineGrace, EngineGonum:
	default:
		return fmt.Errorf("%w: unknown render engine %q", domain.ErrInvalidConfig, config.Render.Engine)
	}
	for _, f := range config.Render.Formats {
		switch f {
		case "png", "svg", "pdf", "eps", "jpg", "tiff":
		default:
			return fmt.Errorf("%w: unsupported render format %q", domain.ErrInvalidConfig, f)
		}
	}
	return nil
}
