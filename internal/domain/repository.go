package domain

// ParseOptions tunes how a trace file is turned into columns.
type ParseOptions struct {
	// XScale multiplies the first column before the noise filter; 0 means 1.
	XScale float64
	// Sort orders rows ascending by x after filtering.
	Sort bool
}

// TraceReader reads one whitespace-delimited measurement file.
type TraceReader interface {
	ReadTrace(path string, columns int, opts ParseOptions) (*Trace, error)
}

// ConfigReader reads application configuration.
type ConfigReader interface {
	ReadConfig(path string) (*Config, error)
}
