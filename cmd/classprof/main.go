// Copyright The Telegen Authors
// SPDX-License-Identifier: Apache-2.0

// Command classprof reports call-site polymorphism found in a class-profile
// dump and estimates what guarded devirtualization would predict.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/platformbuilds/classprof/internal/classify"
	"github.com/platformbuilds/classprof/internal/config"
	"github.com/platformbuilds/classprof/internal/pgolog"
	"github.com/platformbuilds/classprof/internal/report"
	"github.com/platformbuilds/classprof/internal/tracing"
	"github.com/platformbuilds/classprof/internal/version"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type flags struct {
	config   string
	format   string
	top      int
	strict   bool
	logLevel string
	version  bool
}

func parseFlags(args []string, stderr io.Writer) (*flags, *flag.FlagSet, error) {
	f := &flags{}
	fs := flag.NewFlagSet("classprof", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&f.config, "config", "", "path to config yaml (optional)")
	fs.StringVar(&f.format, "format", "", "report format: text or prometheus")
	fs.IntVar(&f.top, "top", 0, "list the N most sampled call sites GDV cannot fully predict")
	fs.BoolVar(&f.strict, "strict", false, "reject call sites whose entry count does not match their histogram")
	fs.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error")
	fs.BoolVar(&f.version, "version", false, "print version and exit")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: classprof [flags] <dump-file>\n")
		fs.PrintDefaults()
	}
	return f, fs, fs.Parse(args)
}

// loadConfig reads the optional config file and lets explicitly set flags
// override it.
func loadConfig(f *flags, fs *flag.FlagSet) (*config.Config, error) {
	cfg := config.Default()
	if f.config != "" {
		var err error
		if cfg, err = config.Load(f.config); err != nil {
			return nil, err
		}
	}
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "format":
			cfg.Output.Format = f.format
		case "top":
			cfg.Output.Top = f.top
		case "strict":
			cfg.Parse.Strict = f.strict
		case "log-level":
			cfg.Log.Level = f.logLevel
		}
	})
	return cfg, cfg.Validate()
}

// newLogger builds a development-style console logger on w.
func newLogger(level string, w io.Writer) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("unsupported log level %q: %w", level, err)
	}
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.AddSync(w),
		zap.NewAtomicLevelAt(lvl),
	)
	return zap.New(core), nil
}

func run(args []string, stdout, stderr io.Writer) int {
	f, fs, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if f.version {
		fmt.Fprintln(stdout, version.String())
		return exitOK
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return exitUsage
	}

	cfg, err := loadConfig(f, fs)
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return exitError
	}
	logger, err := newLogger(cfg.Log.Level, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return exitError
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	shutdown, err := tracing.Setup(ctx, cfg.Tracing)
	if err != nil {
		logger.Warn("Tracing disabled", zap.Error(err))
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			logger.Warn("Failed to flush spans", zap.Error(err))
		}
	}()

	if err := analyze(ctx, fs.Arg(0), cfg, logger, stdout); err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}
	return exitOK
}

func analyze(ctx context.Context, path string, cfg *config.Config, logger *zap.Logger, w io.Writer) error {
	ctx, span := otel.Tracer("github.com/platformbuilds/classprof/cmd/classprof").Start(ctx, "classprof.run")
	defer span.End()
	span.SetAttributes(attribute.String("classprof.dump", path))

	parser := pgolog.New(pgolog.Options{Strict: cfg.Parse.Strict, Logger: logger})
	res, err := parser.ParseFile(ctx, path)
	if err != nil {
		span.RecordError(err)
		return err
	}

	scopes, err := classify.AnalyzeScopes(ctx, res.CallSites, cfg.Thresholds)
	if err != nil {
		return err
	}

	in := report.Input{Result: res, Scopes: scopes}
	if cfg.Output.Top > 0 {
		scope, err := classify.ParseScope(cfg.Output.TopScope)
		if err != nil {
			return err
		}
		in.Hot = classify.Hottest(res.CallSites, cfg.Thresholds, scope, cfg.Output.Top)
	}

	var emitter report.Emitter
	switch cfg.Output.Format {
	case config.FormatPrometheus:
		emitter = &report.Prometheus{Namespace: cfg.Metrics.Namespace}
	default:
		emitter, err = report.New(cfg.Output.Format)
		if err != nil {
			return err
		}
	}
	logger.Debug("Writing report",
		zap.String("format", cfg.Output.Format),
		zap.Int("methods", len(res.Methods)),
		zap.Int("call_sites", len(res.CallSites)),
	)
	return emitter.Emit(w, in)
}
