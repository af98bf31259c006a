package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"tritonclient/client"
	"tritonclient/config"
	"tritonclient/inference"
	"tritonclient/logging"
	"tritonclient/ml"
	"tritonclient/monitoring"
	"tritonclient/report"
	"tritonclient/tensor"
)

// options 命令行参数
type options struct {
	dataFile  string
	batchSize int
	watch     bool
}

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	url := flag.String("url", "localhost:8000", "inference server endpoint")
	protocol := flag.String("protocol", "http", "wire protocol: http or grpc")
	model := flag.String("model", "Times_Classify", "model name")
	dataFile := flag.String("data-file", "", "path to a .npy array used instead of generated sample data")
	batchSize := flag.Int("batch-size", 1, "batch size (>= 1)")
	labelsFile := flag.String("labels-file", "", "file with one class label per line")
	seed := flag.Int64("seed", 42, "seed for generated sample data")
	watch := flag.Bool("watch", false, "re-run prediction whenever the data file changes")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}

	// explicitly set flags override the config file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "url":
			cfg.Server.URL = *url
		case "protocol":
			cfg.Server.Protocol = *protocol
		case "model":
			cfg.Model.Name = *model
		case "labels-file":
			cfg.Model.LabelsFile = *labelsFile
		case "seed":
			cfg.Sample.Seed = *seed
		case "verbose":
			cfg.Server.Verbose = *verbose
		}
	})
	if cfg.Server.Verbose {
		cfg.Log.Level = "debug"
	}

	if *batchSize < 1 {
		log.Fatalf("batch-size must be >= 1, got %d", *batchSize)
	}
	if *watch && *dataFile == "" {
		log.Fatal("watch requires data-file")
	}

	logger, err := logging.New(logging.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	opts := options{
		dataFile:  *dataFile,
		batchSize: *batchSize,
		watch:     *watch,
	}
	if err := run(cfg, opts, logger); err != nil {
		logger.Error("triton client failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, opts options, logger *zap.Logger) error {
	labels, err := cfg.ResolveLabels()
	if err != nil {
		return fmt.Errorf("failed to load labels: %w", err)
	}

	c, err := client.New(client.Config{
		URL:         cfg.Server.URL,
		Protocol:    inference.Protocol(cfg.Server.Protocol),
		Timeout:     cfg.Server.Timeout,
		CacheSize:   cfg.Model.MetadataCacheSize,
		InputName:   cfg.Model.InputName,
		OutputNames: cfg.Model.OutputNames,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := os.Stdout
	report.Connecting(out, c.URL(), c.Protocol())
	live := c.CheckServerHealth(ctx)
	report.ServerStatus(out, live)
	if !live {
		return nil
	}

	report.Models(out, c.ListModels(ctx))

	modelName := cfg.Model.Name
	info, err := c.GetModelInfo(ctx, modelName)
	if err != nil {
		// already logged by the client
		return nil
	}
	report.ModelInfo(out, modelName, info)

	predict := func() (*ml.PredictionResult, time.Duration, error) {
		data, err := loadInput(opts.dataFile, cfg.Sample.Seed)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to load input: %w", err)
		}
		report.Input(out, data)

		result, latency, err := c.PredictWithLabels(ctx, modelName, data, labels, opts.batchSize)
		if err != nil {
			return nil, latency, err
		}
		return result, latency, report.Prediction(out, result, labels)
	}

	if !opts.watch {
		if _, _, err := predict(); err != nil && !isReported(err) {
			return err
		}
		return nil
	}

	tracker := monitoring.NewLatencyTracker()
	runOnce := func() {
		result, latency, err := predict()
		recordRun(tracker, modelName, result, latency, err)
		if err != nil && !isReported(err) {
			logger.Error("prediction failed", zap.String("path", opts.dataFile), zap.Error(err))
		}
	}

	runOnce()
	logger.Info("watching data file", zap.String("path", opts.dataFile))
	if err := config.WatchFile(ctx, opts.dataFile, logger, runOnce); err != nil {
		return err
	}
	report.Latency(out, tracker.Summary())
	return nil
}

// loadInput reads the data file, or generates a seeded sample window when
// no file is given.
func loadInput(path string, seed int64) (tensor.Array, error) {
	if path == "" {
		return tensor.FromValues(ml.GenerateSample(seed))
	}
	return tensor.LoadNPY(path)
}

// recordRun adds one watch-mode run to tracker. Runs that never reached the
// server, such as unreadable or malformed input, are not recorded.
func recordRun(tracker *monitoring.LatencyTracker, model string, result *ml.PredictionResult, latency time.Duration, err error) {
	switch {
	case result != nil:
		tracker.Record(model, latency, nil)
	case errors.Is(err, inference.ErrInference):
		tracker.Record(model, latency, err)
	}
}

// isReported reports whether err was already logged by the client.
func isReported(err error) bool {
	return errors.Is(err, inference.ErrInference) || errors.Is(err, tensor.ErrDataShape)
}
