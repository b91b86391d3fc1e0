package domain

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"qcl-datasheet/pkg/fitting"
)

// NoiseFloor is the hardware convention below which an x sample is treated as noise.
const NoiseFloor = 0.005

// WavenumberToTHz converts a spectrometer x axis (cm^-1) into THz.
const WavenumberToTHz = 0.0299792458

// Config holds the application configuration.
type Config struct {
	LogLevel string         `yaml:"log_level"`
	LogFile  string         `yaml:"log_file"`
	Workers  int            `yaml:"workers"`
	Author   string         `yaml:"author"`
	Date     string         `yaml:"date"`
	Device   DeviceConfig   `yaml:"device"`
	LIV      LIVConfig      `yaml:"liv"`
	Spectra  SpectraConfig  `yaml:"spectra"`
	Render   RenderConfig   `yaml:"render"`
	External ExternalConfig `yaml:"external"`
	Pulsed   MetadataMap    `yaml:"pulsed"`
	CW       MetadataMap    `yaml:"cw"`
}

type DeviceConfig struct {
	Name     string  `yaml:"name"`
	Sample   string  `yaml:"sample"`
	WidthUm  float64 `yaml:"width_um"`
	LengthMm float64 `yaml:"length_mm"`
	HeightUm float64 `yaml:"height_um"`
}

type LIVConfig struct {
	Threshold   float64 `yaml:"threshold"`
	ScaleFactor float64 `yaml:"scale_factor"`
	TraceUnit   string  `yaml:"trace_unit"`
	FitPoints   int     `yaml:"fit_points"`
	DRPolyOrder int     `yaml:"dr_poly_order"`
	RefineFit   bool    `yaml:"refine_fit"`
}

type SpectraConfig struct {
	Fmin              float64 `yaml:"fmin"`
	Fmax              float64 `yaml:"fmax"`
	SideModeThreshold float64 `yaml:"side_mode_threshold"`
	TraceUnit         string  `yaml:"trace_unit"`
}

type RenderConfig struct {
	// Engine is "grace" (Grace projects converted by external tools) or
	// "gonum" (figures drawn in process).
	Engine   string        `yaml:"engine"`
	Formats  []string      `yaml:"formats"`
	WidthIn  float64       `yaml:"width_in"`
	HeightIn float64       `yaml:"height_in"`
	Timeout  time.Duration `yaml:"timeout"`
}

type ExternalConfig struct {
	GracePath       string `yaml:"grace_path"`
	GhostscriptPath string `yaml:"ghostscript_path"`
	LatexPath       string `yaml:"latex_path"`
	PNGDPI          int    `yaml:"png_dpi"`
}

// Trace is one measurement run tagged with its auxiliary variable (temperature or current).
type Trace struct {
	Label string
	Value float64
	X     []float64
	Y1    []float64
	Y2    []float64
}

// Len returns the number of samples in the trace.
func (t *Trace) Len() int { return len(t.X) }

// HasY2 reports whether the trace holds third-column samples.
func (t *Trace) HasY2() bool { return len(t.Y2) > 0 }

// Extrema holds the global bounds accumulated over a trace set.
type Extrema struct {
	MinX, MaxX   float64
	MinY1, MaxY1 float64
	PreNormMaxY2 float64
}

// TraceSet is an ordered collection of traces sorted by label value.
type TraceSet struct {
	Traces []Trace
	Stats  Extrema
}

// Values returns the raw label strings in trace order.
func (s *TraceSet) Values() []string {
	out := make([]string, len(s.Traces))
	for i, t := range s.Traces {
		out[i] = t.Label
	}
	return out
}

// Peak describes a spectral mode.
type Peak struct {
	Frequency float64
	Amplitude float64
	FWHM      float64
	QFactor   float64
}

// MetadataMap is a flat key/value instrument description supplied by the caller.
type MetadataMap map[string]string

// Get returns the trimmed value for key, or def when it is missing or blank.
func (m MetadataMap) Get(key, def string) string {
	v := strings.TrimSpace(m[key])
	if v == "" {
		return def
	}
	return v
}

// ValueKind discriminates the variants a report parameter can hold.
type ValueKind int

const (
	KindString ValueKind = iota
	KindMap
)

// Value is a tagged union used for report parameters such as "Dimensions".
type Value struct {
	Kind ValueKind
	Str  string
	Map  map[string]float64
}

func StringValue(s string) Value { return Value{Kind: KindString, Str: s} }
func MapValue(m map[string]float64) Value { return Value{Kind: KindMap, Map: m} }

// String renders a string value; maps render empty.
func (v Value) String() string {
	if v.Kind == KindString {
		return v.Str
	}
	return ""
}

// ParseLabel converts a trace label to its numeric value. Non-numeric labels sort as 0.
func ParseLabel(label string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(label), 64)
	if err != nil {
		return 0
	}
	return v
}

var (
	ErrFileUnreadable      = errors.New("trace file unreadable")
	ErrInsufficientData    = fitting.ErrInsufficientData
	ErrNonPositiveAdjusted = fitting.ErrNonPositiveAdjusted
	ErrSingularSystem      = fitting.ErrSingularSystem
	ErrNoThresholdCrossing = errors.New("output never reaches threshold")
	ErrMissingExternalTool = errors.New("external tool not found")
	ErrExternalToolFailed  = errors.New("external tool failed")
	ErrExternalToolTimeout = errors.New("external tool timed out")
	ErrInvalidConfig       = errors.New("invalid config")
	ErrNoTraces            = errors.New("no traces")
)
