// Command reviewetl runs the product review batch job: it loads raw review
// CSV files, writes a cleaned copy and four aggregate reports.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"reviewetl/internal/config"
	"reviewetl/internal/logging"
	"reviewetl/internal/metrics"
	"reviewetl/internal/pipeline"
	"reviewetl/internal/storage"

	// register every sink backend with the storage factory.
	_ "reviewetl/internal/storage/all"
)

func main() {
	var (
		cfgPath           string
		envFile           string
		metricsBackendFlg string
		pushGatewayURLFlg string
		validate          bool
		preview           int
	)
	flag.StringVar(&cfgPath, "config", "configs/reviewetl.yaml", "job config (YAML or JSON)")
	flag.StringVar(&envFile, "env-file", ".env", "optional dotenv file loaded before the config")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "", "metrics backend override (none, prometheus, datadog)")
	flag.StringVar(&pushGatewayURLFlg, "pushgateway-url", "", "Pushgateway base URL override")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	flag.IntVar(&preview, "preview", 0, "print the first N rows of every report after the run")
	verbose := flag.Bool("v", false, "enable debug logs")
	flag.Parse()

	if err := config.LoadDotEnv(envFile); err != nil {
		fatalf("%v", err)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fatalf("%v", err)
	}
	if metricsBackendFlg != "" {
		cfg.Metrics.Backend = metricsBackendFlg
	}
	if pushGatewayURLFlg != "" {
		cfg.Metrics.PushgatewayURL = pushGatewayURLFlg
	}
	if *verbose {
		cfg.Logging.Level = "debug"
	}

	issues := config.ValidateJob(*cfg)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if err := config.Validate(*cfg); err != nil {
		fatalf("configuration is invalid: %s", cfgPath)
	}
	if validate {
		fmt.Fprintf(os.Stderr, "configuration is valid: %s\n", cfgPath)
		return
	}

	base, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fatalf("%v", err)
	}
	defer func() { _ = base.Sync() }()
	runID := uuid.NewString()
	logger := logging.ForRun(base, cfg.Job, runID)

	flush := setupMetrics(cfg.Job, cfg.Metrics, logger)
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, runID, preview, logger); err != nil {
		logger.Error("run failed", zap.Error(err))
		flush()
		_ = base.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Job, runID string, preview int, logger *zap.Logger) error {
	src, locations, err := buildSource(ctx, cfg.Source, logger)
	if err != nil {
		return err
	}
	sink, err := storage.New(ctx, storage.Config{
		Kind:      cfg.Sink.Kind,
		DSN:       cfg.Sink.DSN,
		S3:        cfg.Sink.S3,
		BatchSize: cfg.Sink.BatchSize,
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	defer sink.Close()

	logger.Info("run starting",
		zap.String("source", cfg.Source.Kind),
		zap.Strings("locations", locations),
		zap.String("sink", cfg.Sink.Kind),
	)
	sum, err := pipeline.Run(ctx, pipeline.Deps{
		Source: src,
		Writer: newWriter(sink, cfg.Destinations, logger),
		Logger: logger,
	}, pipeline.Options{
		Job:              cfg.Job,
		RunID:            runID,
		Locations:        locations,
		Load:             loadOptions(cfg.Source),
		NormalizeWorkers: cfg.Runtime.NormalizeWorkers,
		AggregateWorkers: cfg.Runtime.AggregateWorkers,
		SinkKind:         cfg.Sink.Kind,
		ManifestPath:     cfg.Manifest.Path,
	})
	if err != nil {
		return err
	}

	logger.Info("run finished",
		zap.Int("input_rows", sum.InputRows),
		zap.Int("artifacts", len(sum.Artifacts)),
		zap.Duration("elapsed", sum.Elapsed),
	)
	if preview > 0 {
		for _, r := range sum.Reports {
			fmt.Println(renderPreview(r.Name, r.Table, preview))
		}
	}
	return nil
}

func setupMetrics(job string, m config.Metrics, logger *zap.Logger) func() {
	b, err := newMetricsBackend(job, m)
	if err != nil {
		logger.Warn("metrics disabled", zap.String("backend", m.Backend), zap.Error(err))
		return func() {}
	}
	if b == nil {
		logger.Debug("metrics disabled", zap.String("backend", m.Backend))
		return func() {}
	}
	metrics.SetBackend(b)
	logger.Info("metrics enabled", zap.String("backend", m.Backend))

	flushed := false
	return func() {
		if flushed {
			return
		}
		flushed = true
		if err := metrics.Flush(); err != nil {
			logger.Warn("metrics flush failed", zap.Error(err))
		}
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
