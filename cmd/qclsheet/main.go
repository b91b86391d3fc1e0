package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"qcl-datasheet/internal/app"
	"qcl-datasheet/internal/domain"
	"qcl-datasheet/internal/infrastructure"
	"qcl-datasheet/internal/report"
	"strings"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	var (
		configPath string
		logLevel   string
		engine     string
	)

	// setup reads the config, applies the global flags and wires the
	// characterizer.
	setup := func() (*zap.Logger, *app.Characterizer, error) {
		logger := initLogger("info")

		config, err := loadConfig(infrastructure.NewYAMLConfigReader(logger), configPath, logLevel, engine)
		if err != nil {
			return nil, nil, err
		}

		if config.LogFile != "" {
			logger = initLogger(config.LogLevel, config.LogFile)
		} else {
			logger = initLogger(config.LogLevel)
		}
		return logger, newCharacterizer(logger, config), nil
	}

	application := &cli.App{
		Name:  "qclsheet",
		Usage: "characterize quantum cascade lasers and build their datasheet",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "path to config file", Destination: &configPath},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error", Destination: &logLevel},
			&cli.StringFlag{Name: "engine", Usage: "grace or gonum; overrides render.engine", Destination: &engine},
		},
		Commands: []*cli.Command{
			{
				Name:  "liv",
				Usage: "analyse LIV traces and plot LIV, Ith(T) and DR(T)",
				Flags: []cli.Flag{modeFlag(), outFlag(), traceFlag()},
				Action: func(c *cli.Context) error {
					mode, err := parseMode(c.String("mode"))
					if err != nil {
						return err
					}
					logger, ch, err := setup()
					if err != nil {
						return cli.Exit(err, 1)
					}
					defer logger.Sync()

					files, err := parseTraces(c.StringSlice("trace"))
					if err != nil {
						return cli.Exit(err, 1)
					}
					outputs, err := ch.RunLIV(c.Context, mode, files, c.String("out"))
					return finish(logger, "LIV", outputs, err)
				},
			},
			{
				Name:  "spectra",
				Usage: "analyse FTIR spectra and plot the waterfall",
				Flags: []cli.Flag{
					modeFlag(), outFlag(), traceFlag(),
					&cli.StringFlag{Name: "sweep", Aliases: []string{"s"}, Usage: "I (current sweep at fixed temperature) or T", Value: string(app.SweepCurrent)},
				},
				Action: func(c *cli.Context) error {
					mode, err := parseMode(c.String("mode"))
					if err != nil {
						return err
					}
					sweep := app.Sweep(strings.ToUpper(c.String("sweep")))
					if sweep != app.SweepCurrent && sweep != app.SweepTemperature {
						return cli.Exit(fmt.Sprintf("unknown sweep %q", c.String("sweep")), 1)
					}
					logger, ch, err := setup()
					if err != nil {
						return cli.Exit(err, 1)
					}
					defer logger.Sync()

					files, err := parseTraces(c.StringSlice("trace"))
					if err != nil {
						return cli.Exit(err, 1)
					}
					outputs, err := ch.RunSpectra(c.Context, mode, sweep, files, c.String("out"))
					return finish(logger, "spectra", outputs, err)
				},
			},
			{
				Name:  "datasheet",
				Usage: "write datasheet.tex for the figures in <out>/Figures",
				Flags: []cli.Flag{
					outFlag(),
					&cli.BoolFlag{Name: "compile", Usage: "run the LaTeX compiler on the result"},
				},
				Action: func(c *cli.Context) error {
					logger, ch, err := setup()
					if err != nil {
						return cli.Exit(err, 1)
					}
					defer logger.Sync()

					path, err := ch.RunDatasheet(c.Context, c.String("out"), c.Bool("compile"))
					if err != nil {
						return finish(logger, "datasheet", nil, err)
					}
					return finish(logger, "datasheet", []string{path}, nil)
				},
			},
			{
				Name:      "convert",
				Usage:     "convert every Grace project in a directory to PDF and PNG",
				ArgsUsage: "[dir]",
				Flags:     []cli.Flag{outFlag()},
				Action: func(c *cli.Context) error {
					engine = infrastructure.EngineGrace
					logger, ch, err := setup()
					if err != nil {
						return cli.Exit(err, 1)
					}
					defer logger.Sync()

					dir := c.Args().First()
					if dir == "" {
						dir = filepath.Join(c.String("out"), domain.GraceDir)
					}
					results, err := ch.Convert(c.Context, dir)
					var outputs []string
					for _, r := range results {
						outputs = append(outputs, r.Outputs...)
					}
					return finish(logger, "conversion", outputs, err)
				},
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := application.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func modeFlag() cli.Flag {
	return &cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Usage: "pulsed or cw", Value: string(report.Pulsed)}
}

func outFlag() cli.Flag {
	return &cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output directory", Value: "."}
}

func traceFlag() cli.Flag {
	return &cli.StringSliceFlag{Name: "trace", Aliases: []string{"t"}, Usage: "measurement file as path=label, once per trace", Required: true}
}

func newCharacterizer(logger *zap.Logger, config *domain.Config) *app.Characterizer {
	converter := infrastructure.NewExecConverter(logger, nil, config.External, config.Render.Timeout)
	deps := app.Deps{
		Reader:   infrastructure.NewTXTFileReader(logger),
		State:    infrastructure.NewYAMLStateStore(logger),
		Writer:   infrastructure.NewLaTeXWriter(logger),
		Compiler: converter,
	}

	if config.Render.Engine == infrastructure.EngineGonum {
		deps.Renderer = infrastructure.NewPlotRenderer(logger, config.Render)
	} else {
		deps.Renderer = infrastructure.NewAgrWriter(logger)
		deps.Converter = converter
	}
	return app.NewCharacterizer(logger, config, deps)
}

// loadConfig reads path and applies the global flag overrides on top.
func loadConfig(reader domain.ConfigReader, path, logLevel, engine string) (*domain.Config, error) {
	config, err := reader.ReadConfig(path)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		config.LogLevel = logLevel
	}
	if engine != "" {
		config.Render.Engine = engine
	}
	return config, nil
}

// finish logs the outcome of a command and turns a failure into an exit code.
func finish(logger *zap.Logger, what string, files []string, err error) error {
	if err != nil {
		logger.Error("Command failed", zap.String("step", what), zap.Strings("files", files), zap.Error(err))
		return cli.Exit(err, 1)
	}
	logger.Info("Command completed", zap.String("step", what), zap.Strings("files", files))
	return nil
}

func parseMode(s string) (report.Mode, error) {
	switch m := report.Mode(strings.ToLower(s)); m {
	case report.Pulsed, report.CW:
		return m, nil
	default:
		return "", cli.Exit(fmt.Sprintf("unknown mode %q", s), 1)
	}
}

// parseTraces turns path=label arguments into the file map. Without a label
// the file name stem is used.
func parseTraces(args []string) (map[string]string, error) {
	files := make(map[string]string, len(args))
	for _, a := range args {
		path, label := a, ""
		if i := strings.LastIndex(a, "="); i >= 0 {
			path, label = a[:i], a[i+1:]
		}
		if path == "" {
			return nil, fmt.Errorf("empty path in trace %q", a)
		}
		if label == "" {
			label = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}
		files[path] = label
	}
	return files, nil
}

// initLogger initializes the logger with the specified level and log file
// names. Without a file it logs to stderr.
func initLogger(level string, logfileName ...string) *zap.Logger {
	config := zap.NewProductionConfig()

	switch level {
	case "debug":
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "warn":
		config.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		config.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	outputPath := []string{"stderr"}
	if len(logfileName) > 0 {
		outputPath = logfileName
	}

	config.OutputPaths = outputPath
	config.ErrorOutputPaths = outputPath
	config.EncoderConfig.TimeKey = "t"
	config.EncoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder
	config.DisableCaller = false

	logger, err := config.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
