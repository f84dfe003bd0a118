// Package main implements platewatch, an automatic number plate
// recognition pipeline. It captures frames from an RTSP/HTTP camera
// stream, detects plates with a YOLO ONNX model, reads them with
// Tesseract OCR, stabilizes the readings across frames, and enriches
// each unique valid plate with vehicle registry data persisted to Excel
// logs.
//
// The default mode scans the stream continuously. -once processes a
// single frame and exits; -batch skips the camera entirely and enriches
// previously logged plates.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"platewatch/internal/anpr"
	"platewatch/internal/config"
	"platewatch/internal/enrich"
	"platewatch/internal/logstore"
	"platewatch/internal/lookup"
	"platewatch/internal/pipeline"
	"platewatch/internal/vision"
)

type options struct {
	configPath string
	once       bool
	batch      bool
}

func parseFlags() (*options, error) {
	fs := flag.NewFlagSet("platewatch", flag.ContinueOnError)

	var opts options
	fs.StringVar(&opts.configPath, "config", "", "Path to the YAML configuration file (default: platewatch.yaml)")
	fs.BoolVar(&opts.once, "once", false, "Capture and process a single frame, then exit")
	fs.BoolVar(&opts.batch, "batch", false, "Enrich previously logged plates instead of scanning")

	if err := fs.Parse(os.Args[1:]); err != nil {
		return nil, err
	}
	if opts.once && opts.batch {
		return nil, fmt.Errorf("-once and -batch are mutually exclusive")
	}
	return &opts, nil
}

// setupLogger configures structured logging based on the configured format.
func setupLogger(format, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	switch format {
	case "kv":
		handler = slog.NewTextHandler(os.Stdout, opts)
	default:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func main() {
	opts, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Log.Format, cfg.Log.Level)
	slog.SetDefault(logger)

	// Handle interrupt signals
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, opts, cfg, logger); err != nil {
		logger.Error("platewatch failed", "error", err)
		os.Exit(1)
	}
	logger.Info("platewatch stopped")
}

func run(ctx context.Context, opts *options, cfg *config.Config, logger *slog.Logger) error {
	basicLog := logstore.NewBasicStore(cfg.Output.BasicLogFile)
	enrichedLog := logstore.NewFullStore(cfg.Output.EnrichedLogFile)

	registry, err := lookup.New(cfg.Lookup.Mode, cfg.Lookup.BaseURL, cfg.Lookup.Timeout)
	if err != nil {
		return err
	}

	// Status messages feed whatever presentation layer is attached; here
	// they go to the log.
	status := pipeline.NewChanSink(64)
	go func() {
		for msg := range status.C {
			logger.Info("status", "message", msg)
		}
	}()
	defer close(status.C)

	if opts.batch {
		enricher := enrich.New(registry, basicLog, enrichedLog, cfg.Batch.Pause, status, logger)
		return enricher.Run(ctx)
	}
	return runScanner(ctx, opts, cfg, logger, registry, basicLog, enrichedLog, status)
}

func runScanner(
	ctx context.Context,
	opts *options,
	cfg *config.Config,
	logger *slog.Logger,
	registry anpr.LookupClient,
	basicLog anpr.BasicLog,
	enrichedLog anpr.EnrichedLog,
	status anpr.StatusSink,
) error {
	detector, err := vision.NewYOLODetector(cfg.Detection.ModelPath, cfg.Detection.InputSize, logger)
	if err != nil {
		return fmt.Errorf("load detection model: %w", err)
	}
	defer detector.Close()

	ocr, err := vision.NewTesseractRecognizer(cfg.OCR.Language)
	if err != nil {
		return fmt.Errorf("init ocr: %w", err)
	}
	defer ocr.Close()

	if cfg.Output.SnapshotDir != "" {
		if err := os.MkdirAll(cfg.Output.SnapshotDir, 0o755); err != nil {
			logger.Warn("snapshot directory unavailable", "dir", cfg.Output.SnapshotDir, "error", err)
			cfg.Output.SnapshotDir = ""
		}
	}

	var validatorOpts []anpr.ValidatorOption
	if cfg.Plate.AllowBharatSeries {
		validatorOpts = append(validatorOpts, anpr.WithBharatSeries())
	}
	if len(cfg.Plate.RegionCodes) > 0 {
		validatorOpts = append(validatorOpts, anpr.WithRegionCodes(cfg.Plate.RegionCodes))
	}

	stage := pipeline.NewDetectionStage(detector, ocr, pipeline.StageConfig{
		InputSize:           cfg.Detection.InputSize,
		ConfidenceThreshold: cfg.Detection.ConfidenceThreshold,
		MinAspectRatio:      cfg.Detection.MinAspectRatio,
		MaxAspectRatio:      cfg.Detection.MaxAspectRatio,
		MaxPlateLength:      cfg.Plate.MaxLength,
	}, logger)

	orch := pipeline.NewOrchestrator(
		anpr.NewPlateValidator(validatorOpts...),
		pipeline.NewDedupSet(),
		registry,
		basicLog,
		enrichedLog,
		cfg.Enrichment.Mode,
		status,
		logger,
	)

	source := vision.NewSource(cfg.Camera.URL, cfg.Camera.Backoff, vision.GocvDialer, logger, status)
	source.Start()
	defer source.Stop()

	runner := pipeline.NewRunner(
		source,
		stage,
		anpr.NewStabilizer(cfg.Plate.HistorySize),
		orch,
		pipeline.RunnerConfig{
			QuantizationFactor: cfg.Plate.QuantizationFactor,
			LiveInterval:       cfg.Live.Interval,
			SnapshotDir:        cfg.Output.SnapshotDir,
		},
		status,
		logger,
	)
	logger.Info("scanner ready",
		"session_id", runner.SessionID(),
		"camera", cfg.Camera.URL,
		"enrichment_mode", cfg.Enrichment.Mode,
	)

	if opts.once {
		// Wait for the stream to deliver a frame before capturing.
		frame, err := source.AwaitFrame(ctx)
		if err != nil {
			return fmt.Errorf("await first frame: %w", err)
		}
		frame.Close()
		valid, err := runner.CaptureOnce(ctx)
		if err != nil {
			return err
		}
		logger.Info("single capture finished", "valid_plates", valid)
		return nil
	}

	if err := runner.RunLive(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
