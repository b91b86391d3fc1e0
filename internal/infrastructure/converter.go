package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"qcl-datasheet/internal/domain"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Runner executes an external program in dir and returns its combined
// output. An empty dir means the current directory.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

// ExecRunner runs programs with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

// ExecConverter turns Grace projects into PDF and PNG figures via the grace
// and ghostscript command line tools.
type ExecConverter struct {
	logger  *zap.Logger
	runner  Runner
	grace   string
	gs      string
	latex   string
	dpi     int
	timeout time.Duration
}

func NewExecConverter(logger *zap.Logger, runner Runner, ext domain.ExternalConfig, timeout time.Duration) *ExecConverter {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &ExecConverter{
		logger:  logger,
		runner:  runner,
		grace:   ext.GracePath,
		gs:      ext.GhostscriptPath,
		latex:   ext.LatexPath,
		dpi:     ext.PNGDPI,
		timeout: timeout,
	}
}

// Convert renders agrPath to PostScript, then to PDF and PNG, and moves the
// results into the Figures directory one level above agrPath. The
// intermediate PostScript file is removed.
func (c *ExecConverter) Convert(ctx context.Context, agrPath string) ([]string, error) {
	dir := filepath.Dir(agrPath)
	base := strings.TrimSuffix(filepath.Base(agrPath), filepath.Ext(agrPath))
	ps := filepath.Join(dir, base+".ps")
	pdf := filepath.Join(dir, base+".pdf")
	png := filepath.Join(dir, base+".png")

	if err := c.step(ctx, "", c.grace, "-nosafe", "-hdevice", "PostScript", "-noask", "-hardcopy", "-printfile", ps, agrPath); err != nil {
		return nil, err
	}
	if err := c.step(ctx, "", c.gs, "-sDEVICE=pdfwrite", "-o", pdf, ps); err != nil {
		return nil, err
	}
	if err := c.step(ctx, "", c.gs, "-sDEVICE=png16m", "-r"+strconv.Itoa(c.dpi), "-o", png, pdf); err != nil {
		return nil, err
	}

	figures := filepath.Join(filepath.Dir(dir), domain.FiguresDir)
	if err := os.MkdirAll(figures, 0755); err != nil {
		return nil, err
	}

	var moved []string
	for _, src := range []string{pdf, png} {
		dst := filepath.Join(figures, filepath.Base(src))
		if err := os.Rename(src, dst); err != nil {
			return moved, fmt.Errorf("move %s: %w", src, err)
		}
		moved = append(moved, dst)
	}

	if err := os.Remove(ps); err != nil && !errors.Is(err, os.ErrNotExist) {
		c.logger.Warn("Failed to delete PostScript file", zap.String("file", ps), zap.Error(err))
	}

	c.logger.Info("Figure converted",
		zap.String("source", agrPath),
		zap.Strings("files", moved))
	return moved, nil
}

// Compile runs a LaTeX compiler over texPath from its own directory so that
// relative figure paths resolve.
func (c *ExecConverter) Compile(ctx context.Context, texPath string) (string, error) {
	dir := filepath.Dir(texPath)
	name := filepath.Base(texPath)
	if err := c.step(ctx, dir, c.latex, "-interaction=nonstopmode", name); err != nil {
		return "", err
	}
	pdf := filepath.Join(dir, strings.TrimSuffix(name, filepath.Ext(name))+".pdf")
	if _, err := os.Stat(pdf); err != nil {
		return "", fmt.Errorf("%w: %s produced no %s", domain.ErrExternalToolFailed, c.latex, pdf)
	}
	c.logger.Info("Datasheet compiled", zap.String("file", pdf))
	return pdf, nil
}

// step runs one tool under the per-step timeout and classifies failures.
func (c *ExecConverter) step(ctx context.Context, dir, tool string, args ...string) error {
	if tool == "" {
		return fmt.Errorf("%w: no path configured", domain.ErrMissingExternalTool)
	}

	stepCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	c.logger.Debug("Running external tool", zap.String("tool", tool), zap.Strings("args", args))

	output, err := c.runner.Run(stepCtx, dir, tool, args...)
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(stepCtx.Err(), context.DeadlineExceeded):
		err = fmt.Errorf("%w: %s after %s", domain.ErrExternalToolTimeout, tool, c.timeout)
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, os.ErrNotExist):
		err = fmt.Errorf("%w: %s", domain.ErrMissingExternalTool, tool)
	default:
		err = fmt.Errorf("%w: %s: %v, output: %s", domain.ErrExternalToolFailed, tool, err, output)
	}
	c.logger.Error("External tool failed", zap.String("tool", tool), zap.Error(err))
	return err
}
