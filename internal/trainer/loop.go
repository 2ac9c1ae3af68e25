package trainer

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"sparsenet/internal/dataset"
	"sparsenet/internal/metrics"
	"sparsenet/internal/nn"
)

const numClasses = 10

// RunConfig captures the knobs for one experiment run.
type RunConfig struct {
	Train *dataset.Set
	Test  *dataset.Set

	Epochs    int
	BatchSize int

	LearningRate float64
	Momentum     float64

	HiddenUnits     int
	WeightSparsity  float64
	PercentOn       float64
	BoostStrength   float64
	BoostFactor     float64
	DutyCyclePeriod int

	NoiseLevels []float64
	NoiseSeed   int64

	Seed       int64
	NumWorkers int
	LogEvery   int

	Observer *metrics.Observer
}

// Results aggregates one evaluation pass.
type Results struct {
	Loss     float64
	Accuracy float64
	Correct  int
	Total    int
}

// NoiseResult pairs a noise level with its evaluation.
type NoiseResult struct {
	Level float64
	Results
}

// Report is the outcome of a full run: per-epoch clean accuracy plus the
// noise sweep.
type Report struct {
	Epochs       []Results
	Sweep        []NoiseResult
	MeanAccuracy float64
	MinAccuracy  float64
}

// Run trains the sparse network and evaluates it across the noise sweep.
func Run(ctx context.Context, cfg RunConfig) (*Report, error) {
	if cfg.Epochs <= 0 {
		return nil, errors.New("trainer: epochs must be > 0")
	}
	if cfg.BatchSize <= 0 {
		return nil, errors.New("trainer: batch size must be > 0")
	}
	if cfg.LogEvery <= 0 {
		cfg.LogEvery = 100
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	model := buildModel(cfg, rng)
	opt := nn.NewSGD(cfg.LearningRate, cfg.Momentum)
	report := &Report{}

	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		avgLoss, err := trainEpoch(ctx, model, opt, cfg, epoch)
		if err != nil {
			return nil, err
		}
		model.UpdateBoostStrength()

		res, err := Evaluate(ctx, model, cfg.Test, cfg.BatchSize, cfg.NumWorkers, nil)
		if err != nil {
			return nil, err
		}
		report.Epochs = append(report.Epochs, res)
		log.Info().
			Int("epoch", epoch).
			Float64("train_loss", avgLoss).
			Float64("test_loss", res.Loss).
			Float64("accuracy", res.Accuracy).
			Int("correct", res.Correct).
			Msg("epoch complete")
		cfg.Observer.Accuracy(0, res.Accuracy)
	}

	sweep, err := NoiseSweep(ctx, model, cfg)
	if err != nil {
		return nil, err
	}
	report.Sweep = sweep

	accs := make([]float64, len(sweep))
	for i, r := range sweep {
		accs[i] = r.Accuracy
	}
	if len(accs) > 0 {
		report.MeanAccuracy = stat.Mean(accs, nil)
		report.MinAccuracy = floats.Min(accs)
	}
	return report, nil
}

// trainEpoch makes one pass over the training set: forward, loss, backward,
// optimizer step, then rezeroing so masked weights stay at zero.
func trainEpoch(ctx context.Context, model *nn.Sequential, opt *nn.SGD, cfg RunConfig, epoch int) (float64, error) {
	stream, err := dataset.Stream(ctx, dataset.StreamOptions{
		Set:        cfg.Train,
		BatchSize:  cfg.BatchSize,
		Shuffle:    true,
		Seed:       cfg.Seed + int64(epoch),
		NumWorkers: cfg.NumWorkers,
	})
	if err != nil {
		return 0, err
	}

	var window metrics.Window
	totalLoss := 0.0
	steps := 0

	for {
		startData := time.Now()
		batch, ok, err := nextBatch(ctx, stream)
		if err != nil {
			return 0, err
		}
		if !ok {
			break
		}
		dataTime := time.Since(startData)

		startCompute := time.Now()
		in := toTensor(batch, cfg.Train.Rows, cfg.Train.Cols)
		logProbs := model.Forward(in, true)
		loss, grad := nn.NLLLoss(logProbs, batch.Labels)
		model.Backward(grad)
		opt.Step(model.Parameters(), model.Gradients())
		model.Rezero()
		computeTime := time.Since(startCompute)

		steps++
		totalLoss += loss
		window.Record(len(batch.Labels), dataTime, computeTime, loss)
		cfg.Observer.Step(loss)

		if steps%cfg.LogEvery == 0 {
			snap := window.Snapshot()
			log.Debug().
				Int("epoch", epoch).
				Int("step", steps).
				Float64("images_per_sec", snap.ImagesPerSec).
				Float64("data_ms", snap.AvgDataMS).
				Float64("compute_ms", snap.AvgComputeMS).
				Float64("loss", snap.AvgLoss).
				Msg("train")
		}
	}

	if steps == 0 {
		return 0, errors.New("trainer: empty epoch")
	}
	return totalLoss / float64(steps), nil
}

// Evaluate runs the model over a set without gradient work, optionally
// through a noise transform, and accumulates loss and accuracy.
func Evaluate(ctx context.Context, model *nn.Sequential, set *dataset.Set, batchSize, numWorkers int, transform *dataset.Noise) (Results, error) {
	stream, err := dataset.Stream(ctx, dataset.StreamOptions{
		Set:        set,
		BatchSize:  batchSize,
		NumWorkers: numWorkers,
		Transform:  transform,
	})
	if err != nil {
		return Results{}, err
	}

	res := Results{}
	lossSum := 0.0
	for {
		batch, ok, err := nextBatch(ctx, stream)
		if err != nil {
			return Results{}, err
		}
		if !ok {
			break
		}
		in := toTensor(batch, set.Rows, set.Cols)
		logProbs := model.Forward(in, false)
		loss, _ := nn.NLLLoss(logProbs, batch.Labels)
		lossSum += loss * float64(len(batch.Labels))

		for i, pred := range nn.Argmax(logProbs) {
			if pred == batch.Labels[i] {
				res.Correct++
			}
		}
		res.Total += len(batch.Labels)
	}
	if res.Total == 0 {
		return Results{}, errors.New("trainer: empty evaluation set")
	}
	res.Loss = lossSum / float64(res.Total)
	res.Accuracy = float64(res.Correct) / float64(res.Total)
	return res, nil
}

// NoiseSweep evaluates the trained model at each configured noise level.
func NoiseSweep(ctx context.Context, model *nn.Sequential, cfg RunConfig) ([]NoiseResult, error) {
	results := make([]NoiseResult, 0, len(cfg.NoiseLevels))
	for _, level := range cfg.NoiseLevels {
		var transform *dataset.Noise
		if level > 0 {
			transform = dataset.NewNoise(level, cfg.NoiseSeed)
		}
		res, err := Evaluate(ctx, model, cfg.Test, cfg.BatchSize, cfg.NumWorkers, transform)
		if err != nil {
			return nil, fmt.Errorf("evaluate at noise %.2f: %w", level, err)
		}
		log.Info().
			Float64("noise", level).
			Float64("accuracy", res.Accuracy).
			Float64("loss", res.Loss).
			Int("correct", res.Correct).
			Int("total", res.Total).
			Msg("noise evaluation")
		cfg.Observer.Accuracy(level, res.Accuracy)
		results = append(results, NoiseResult{Level: level, Results: res})
	}
	return results, nil
}

func nextBatch(ctx context.Context, stream <-chan dataset.Batch) (dataset.Batch, bool, error) {
	select {
	case <-ctx.Done():
		return dataset.Batch{}, false, ctx.Err()
	case batch, ok := <-stream:
		if !ok {
			return dataset.Batch{}, false, nil
		}
		return batch, true, nil
	}
}

func toTensor(batch dataset.Batch, rows, cols int) *nn.Tensor {
	in := nn.NewTensor(len(batch.Inputs), 1, rows, cols)
	size := rows * cols
	for i, pixels := range batch.Inputs {
		copy(in.Data[i*size:(i+1)*size], pixels)
	}
	return in
}
