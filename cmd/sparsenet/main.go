package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"sparsenet/internal/config"
	"sparsenet/internal/dataset"
	"sparsenet/internal/metrics"
	"sparsenet/internal/trainer"
)

func init() {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
}

func main() {
	cfgPath := flag.String("config", "configs/mnist.yaml", "Path to YAML config")
	dataDir := flag.String("data-dir", "", "Override dataset directory")
	epochs := flag.Int("epochs", 0, "Number of training epochs")
	batchSize := flag.Int("batch-size", 0, "Batch size")
	seed := flag.Int64("seed", 0, "PRNG seed")
	numWorkers := flag.Int("num-workers", 0, "Number of data loader workers")
	logEvery := flag.Int("log-every", 0, "Log every N steps")
	metricsPort := flag.Int("metrics-port", 0, "Prometheus listen port (0 disables)")

	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *cfgPath).Msg("could not load config")
	}

	cfg.ApplyOverrides(config.Overrides{
		DataDir:     *dataDir,
		Epochs:      *epochs,
		BatchSize:   *batchSize,
		Seed:        *seed,
		NumWorkers:  *numWorkers,
		LogEvery:    *logEvery,
		MetricsPort: *metricsPort,
	})

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	runID := uuid.New().String()
	log.Info().Str("run", runID).Str("data", cfg.DataDir).Int("epochs", cfg.Epochs).Msg("starting")

	train, test, err := dataset.Load(cfg.DataDir)
	if err != nil {
		log.Fatal().Err(err).Msg("could not load dataset")
	}
	log.Info().Int("train", train.Len()).Int("test", test.Len()).Msg("dataset loaded")

	var observer *metrics.Observer
	if cfg.MetricsPort > 0 {
		observer = metrics.NewObserver()
		metrics.Serve(cfg.MetricsPort)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := trainer.Run(ctx, trainer.RunConfig{
		Train:           train,
		Test:            test,
		Epochs:          cfg.Epochs,
		BatchSize:       cfg.BatchSize,
		LearningRate:    cfg.LearningRate,
		Momentum:        cfg.Momentum,
		HiddenUnits:     cfg.HiddenUnits,
		WeightSparsity:  cfg.WeightSparsity,
		PercentOn:       cfg.PercentOn,
		BoostStrength:   cfg.BoostStrength,
		BoostFactor:     cfg.BoostFactor,
		DutyCyclePeriod: cfg.DutyCyclePeriod,
		NoiseLevels:     cfg.NoiseLevels,
		NoiseSeed:       cfg.Seed,
		Seed:            cfg.Seed,
		NumWorkers:      cfg.NumWorkers,
		LogEvery:        cfg.LogEvery,
		Observer:        observer,
	})
	if err != nil {
		log.Fatal().Err(err).Str("run", runID).Msg("training failed")
	}

	for _, r := range report.Sweep {
		log.Info().
			Str("run", runID).
			Float64("noise", r.Level).
			Float64("accuracy", r.Accuracy).
			Float64("loss", r.Loss).
			Msg("result")
	}
	log.Info().
		Str("run", runID).
		Float64("mean_accuracy", report.MeanAccuracy).
		Float64("min_accuracy", report.MinAccuracy).
		Msg("done")
}
