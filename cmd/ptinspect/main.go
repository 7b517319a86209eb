// Package main provides ptinspect, a command that loads a script module
// archive and prints its module tree as YAML. Load metrics, when requested,
// are written to stderr in the Prometheus text format.
//
// Usage:
//
//	ptinspect [flags] <archive>
//	ptinspect version
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ZephyrSails/pytorch/internal/config"
	"github.com/ZephyrSails/pytorch/internal/importer"
	"github.com/ZephyrSails/pytorch/internal/inspect"
	"github.com/ZephyrSails/pytorch/internal/metrics"
	"github.com/ZephyrSails/pytorch/internal/nn"
	"github.com/ZephyrSails/pytorch/internal/serialization"
)

const version = "v0.1.0"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 1 && args[0] == "version" {
		fmt.Fprintf(stdout, "ptinspect %s\n", version)
		return 0
	}

	fs := pflag.NewFlagSet("ptinspect", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: ptinspect [flags] <archive>")
		fs.PrintDefaults()
	}
	config.BindFlags(fs)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintf(stderr, "ptinspect: %v\n", err)
		fs.Usage()
		return 2
	}

	zapLog, err := newZapLogger(cfg, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "ptinspect: failed to create logger: %v\n", err)
		return 1
	}
	defer func() { _ = zapLog.Sync() }()
	log := zapr.NewLogger(zapLog)

	if err := inspectArchive(cfg, log, stdout, stderr); err != nil {
		log.Error(err, "inspect failed", "path", cfg.Path)
		return 1
	}
	return 0
}

func newZapLogger(cfg *config.Config, w io.Writer) (*zap.Logger, error) {
	encCfg := zap.NewDevelopmentEncoderConfig()
	var enc zapcore.Encoder
	switch cfg.LogFormat {
	case config.LogFormatJSON:
		enc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	case config.LogFormatConsole:
		enc = zapcore.NewConsoleEncoder(encCfg)
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.LogFormat)
	}

	// logr verbosity V(n) maps to zap level -n.
	level := zap.NewAtomicLevelAt(zapcore.Level(-cfg.LogLevel))
	core := zapcore.NewCore(enc, zapcore.AddSync(w), level)
	return zap.New(core), nil
}

func inspectArchive(cfg *config.Config, log logr.Logger, stdout, stderr io.Writer) error {
	reader, err := serialization.OpenWithOptions(cfg.Path, serialization.ReaderOptions{UseMmap: cfg.UseMmap})
	if err != nil {
		return err
	}
	defer reader.Close()
	log.V(1).Info("opened archive", "path", cfg.Path, "size", reader.Size(),
		"records", len(reader.Records()), "mmap", reader.Mapped())

	reg := prometheus.NewRegistry()
	factory := importer.NewTreeFactory(nn.NewModule(importer.RootModuleName))
	opts := importer.Options{
		Logger:  log,
		Metrics: metrics.NewMetrics(reg),
	}
	if err := importer.NewDeserializer(reader, opts).Deserialize(factory); err != nil {
		return err
	}

	report := inspect.Summarize(factory.Root(), inspect.Options{IncludeCode: cfg.IncludeCode})
	report.Path = cfg.Path
	if cfg.ListRecords {
		if err := report.AddRecords(reader); err != nil {
			return err
		}
	}
	if err := inspect.Write(stdout, report); err != nil {
		return err
	}

	if cfg.PrintMetrics {
		return writeMetrics(stderr, reg)
	}
	return nil
}

func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("failed to encode metrics: %w", err)
		}
	}
	return nil
}
