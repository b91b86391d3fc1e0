// Package app runs the characterization steps: trace files in, figures and
// the datasheet out.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"qcl-datasheet/internal/analysis"
	"qcl-datasheet/internal/domain"
	"qcl-datasheet/internal/figure"
	"qcl-datasheet/internal/report"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"
)

const (
	stateFile = "run.yaml"

	ithFormulaKey = "_ith_formula"
	jthFormulaKey = "_jth_formula"
	freqRangeKey  = "_ftir_fixed_temp_freq_range"
)

// Sweep names the variable that changes between the traces of a spectra set.
type Sweep string

const (
	SweepCurrent     Sweep = "I"
	SweepTemperature Sweep = "T"
)

// Renderer writes a plot description to basePath plus an extension chosen
// by the implementation and returns the files written.
type Renderer interface {
	Render(ctx context.Context, desc *figure.Description, basePath string) ([]string, error)
}

type Compiler interface {
	Compile(ctx context.Context, texPath string) (string, error)
}

type DatasheetWriter interface {
	WriteFile(filename string, doc *report.Document) error
}

// StateStore persists derived values between runs on the same directory.
type StateStore interface {
	Load(path string) (domain.MetadataMap, error)
	Save(path string, state domain.MetadataMap) error
}

// Deps are the collaborators of a Characterizer. With a nil Converter the
// Renderer is expected to write the final figures itself.
type Deps struct {
	Reader    domain.TraceReader
	Renderer  Renderer
	Converter Converter
	State     StateStore
	Writer    DatasheetWriter
	Compiler  Compiler
}

type Characterizer struct {
	logger   *zap.Logger
	config   *domain.Config
	builder  *analysis.Builder
	renderer Renderer
	pool     *ConversionPool
	state    StateStore
	selector *report.Selector
	writer   DatasheetWriter
	compiler Compiler

	mu sync.Mutex
}

func NewCharacterizer(logger *zap.Logger, config *domain.Config, deps Deps) *Characterizer {
	c := &Characterizer{
		logger:   logger,
		config:   config,
		builder:  analysis.NewBuilder(logger, deps.Reader, config.Workers),
		renderer: deps.Renderer,
		state:    deps.State,
		selector: report.NewSelector(logger),
		writer:   deps.Writer,
		compiler: deps.Compiler,
	}
	if deps.Converter != nil {
		c.pool = NewConversionPool(logger, deps.Converter, config.Workers)
	}
	return c
}

// RunLIV analyses one LIV set and publishes <mode>_liv and, when at least
// two traces reach threshold, Ith_vs_T_<mode>_liv and DR_vs_T_<mode>_liv.
// files maps each path to its temperature label.
func (c *Characterizer) RunLIV(ctx context.Context, mode report.Mode, files map[string]string, outDir string) ([]string, error) {
	p := string(mode)
	meta := c.metadata(mode)
	scale := metaFloat(meta, p+"_power_scale_liv", c.config.LIV.ScaleFactor)

	liv, err := c.builder.BuildLIV(ctx, files, scale)
	if err != nil {
		return nil, err
	}
	if liv.Len() == 0 {
		return nil, fmt.Errorf("%s liv: %w", p, domain.ErrNoTraces)
	}

	dev := c.config.Device
	descs := []*figure.Description{
		figure.BuildLIV(p+"_liv", liv, dev.WidthUm, dev.LengthMm, c.config.LIV.TraceUnit),
	}
	// Blank formulas mark a run without a fit.
	updates := domain.MetadataMap{p + ithFormulaKey: "", p + jthFormulaKey: ""}

	th := analysis.NewThreshold(c.logger, liv, c.config.LIV.Threshold)
	th.SetRefine(c.config.LIV.RefineFit)
	if th.CanPlot() {
		ith := figure.BuildIth("Ith_vs_T_"+p+"_liv", th, dev.WidthUm, dev.LengthMm, c.config.LIV.FitPoints)
		if ith != nil && ith.Ith != nil {
			updates[p+ithFormulaKey] = ith.Ith.Ith
			updates[p+jthFormulaKey] = ith.Ith.Jth
		}
		descs = append(descs, ith,
			figure.BuildDR("DR_vs_T_"+p+"_liv", th, c.config.LIV.FitPoints, c.config.LIV.DRPolyOrder))
	} else {
		c.logger.Info("Skipping Ith plot: insufficient valid traces",
			zap.String("mode", p),
			zap.Int("surviving", len(th.Temperatures())))
	}

	if err := c.remember(outDir, updates); err != nil {
		return nil, err
	}
	return c.publish(ctx, outDir, descs...)
}

// RunSpectra analyses one FTIR set and publishes <mode>_ftir_vs_<sweep>. A
// current sweep is taken at fixed temperature and its emission frequency
// range goes into the datasheet summary.
func (c *Characterizer) RunSpectra(ctx context.Context, mode report.Mode, sweep Sweep, files map[string]string, outDir string) ([]string, error) {
	p := string(mode)
	meta := c.metadata(mode)

	unit := c.config.Spectra.TraceUnit
	if sweep == SweepTemperature {
		unit = c.config.LIV.TraceUnit
	}

	sp, err := c.builder.BuildSpectra(ctx, files, analysis.SpectraOptions{
		Fmin:              metaFloat(meta, p+"_fmin_spectra", c.config.Spectra.Fmin),
		Fmax:              metaFloat(meta, p+"_fmax_spectra", c.config.Spectra.Fmax),
		SideModeThreshold: c.config.Spectra.SideModeThreshold,
		Unit:              unit,
	})
	if err != nil {
		return nil, err
	}
	if sp.Len() == 0 {
		return nil, fmt.Errorf("%s spectra: %w", p, domain.ErrNoTraces)
	}

	if sweep == SweepCurrent {
		if r := sp.GlobalFrequencyRange(); r != "" {
			if err := c.remember(outDir, domain.MetadataMap{p + freqRangeKey: r}); err != nil {
				return nil, err
			}
		}
	}

	return c.publish(ctx, outDir, figure.BuildSpectra(p+"_ftir_vs_"+string(sweep), sp))
}

// RunDatasheet writes datasheet.tex for the figures present in
// outDir/Figures and, with compile set, typesets it. It returns the path of
// the last file produced.
func (c *Characterizer) RunDatasheet(ctx context.Context, outDir string, compile bool) (string, error) {
	pdfs, err := filepath.Glob(filepath.Join(outDir, domain.FiguresDir, "*.pdf"))
	if err != nil {
		return "", err
	}
	names := make([]string, len(pdfs))
	for i, f := range pdfs {
		names[i] = filepath.Base(f)
	}

	state, err := c.loadState(outDir)
	if err != nil {
		return "", err
	}

	params := c.params(state)
	captions := report.Captions{}
	for _, mode := range []report.Mode{report.Pulsed, report.CW} {
		if caption, ok := c.ithCaption(outDir, mode, state); ok {
			captions[mode] = caption
		}
	}

	doc := c.selector.Select(report.NewFigureSet(names...), c.config.Pulsed, c.config.CW, params, captions)

	tex := filepath.Join(outDir, domain.DatasheetName+".tex")
	if err := c.writer.WriteFile(tex, doc); err != nil {
		return "", err
	}
	if !compile || c.compiler == nil {
		return tex, nil
	}
	return c.compiler.Compile(ctx, tex)
}

// Convert runs every Grace project in dir through the conversion pool.
func (c *Characterizer) Convert(ctx context.Context, dir string) ([]domain.ConversionResult, error) {
	if c.pool == nil {
		return nil, fmt.Errorf("%w: no converter configured", domain.ErrMissingExternalTool)
	}
	paths, err := filepath.Glob(filepath.Join(dir, "*.agr"))
	if err != nil {
		return nil, err
	}
	return c.pool.ConvertAll(ctx, paths)
}

// publish renders every description and, when a converter is configured,
// converts the rendered artifacts.
func (c *Characterizer) publish(ctx context.Context, outDir string, descs ...*figure.Description) ([]string, error) {
	sub := domain.FiguresDir
	if c.pool != nil {
		sub = domain.GraceDir
	}
	dir := filepath.Join(outDir, sub)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	var rendered []string
	for _, desc := range descs {
		if desc == nil {
			continue
		}
		files, err := c.renderer.Render(ctx, desc, filepath.Join(dir, desc.Name))
		if err != nil {
			return rendered, fmt.Errorf("render %s: %w", desc.Name, err)
		}
		rendered = append(rendered, files...)
	}

	if c.pool == nil {
		return rendered, nil
	}

	results, err := c.pool.ConvertAll(ctx, rendered)
	var outputs []string
	for _, r := range results {
		outputs = append(outputs, r.Outputs...)
	}
	return outputs, err
}

func (c *Characterizer) metadata(mode report.Mode) domain.MetadataMap {
	if mode == report.CW {
		return c.config.CW
	}
	return c.config.Pulsed
}

func (c *Characterizer) loadState(outDir string) (domain.MetadataMap, error) {
	if c.state == nil {
		return domain.MetadataMap{}, nil
	}
	return c.state.Load(filepath.Join(outDir, stateFile))
}

// remember merges updates into the persisted run state.
func (c *Characterizer) remember(outDir string, updates domain.MetadataMap) error {
	if c.state == nil || len(updates) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return err
	}
	state, err := c.loadState(outDir)
	if err != nil {
		return err
	}
	for k, v := range updates {
		state[k] = v
	}
	return c.state.Save(filepath.Join(outDir, stateFile), state)
}

func (c *Characterizer) params(state domain.MetadataMap) report.Params {
	dev := c.config.Device
	params := report.Params{
		"Author":      domain.StringValue(c.config.Author),
		"Device Name": domain.StringValue(dev.Name),
		"Sample Name": domain.StringValue(dev.Sample),
		"Dimensions": domain.MapValue(map[string]float64{
			"length": dev.LengthMm,
			"width":  dev.WidthUm,
			"height": dev.HeightUm,
		}),
	}
	if c.config.Date != "" {
		params["Date"] = domain.StringValue(c.config.Date)
	}
	for _, mode := range []report.Mode{report.Pulsed, report.CW} {
		key := string(mode) + freqRangeKey
		if v := state.Get(key, ""); v != "" {
			params[key] = domain.StringValue(v)
		}
	}
	return params
}

// ithCaption prefers the formulas stored by RunLIV, where a blank entry
// means the last run had no fit, and falls back to the legend of an
// existing Grace project when RunLIV never ran on outDir.
func (c *Characterizer) ithCaption(outDir string, mode report.Mode, state domain.MetadataMap) (figure.IthCaption, bool) {
	p := string(mode)
	if _, stored := state[p+ithFormulaKey]; stored {
		ith, jth := state.Get(p+ithFormulaKey, ""), state.Get(p+jthFormulaKey, "")
		if ith == "" || jth == "" {
			return figure.IthCaption{}, false
		}
		return figure.IthCaption{Ith: ith, Jth: jth}, true
	}

	data, err := os.ReadFile(filepath.Join(outDir, domain.GraceDir, "Ith_vs_T_"+p+"_liv.agr"))
	if err != nil {
		return figure.IthCaption{}, false
	}
	caption, ok := report.ParseIthFormula(string(data))
	if !ok {
		c.logger.Debug("No threshold formula in Grace project", zap.String("mode", p))
	}
	return caption, ok
}

// metaFloat reads a numeric metadata entry, or def when it is missing or
// not a number.
func metaFloat(m domain.MetadataMap, key string, def float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(m[key]), 64)
	if err != nil {
		return def
	}
	return v
}
