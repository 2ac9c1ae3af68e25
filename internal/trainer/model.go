package trainer

import (
	"math/rand"

	"sparsenet/internal/nn"
)

const (
	convChannels = 32
	convKernel   = 5
	poolSize     = 2
)

// buildModel assembles the sparse CNN: a sparse convolution with k-winner
// channel maps, then a sparse hidden layer with k-winner units, then a
// dense classifier head over log-probabilities.
func buildModel(cfg RunConfig, rng *rand.Rand) *nn.Sequential {
	conv := nn.NewConv2d(1, convChannels, convKernel, rng)
	pooled := conv.OutputSize(cfg.Train.Rows) / poolSize
	flat := convChannels * pooled * pooled

	hidden := nn.NewLinear(flat, cfg.HiddenUnits, rng)
	head := nn.NewLinear(cfg.HiddenUnits, numClasses, rng)

	return nn.NewSequential(
		nn.NewSparseWeights2d(conv, cfg.WeightSparsity, rng),
		nn.NewKWinners2d(convChannels, cfg.PercentOn, cfg.BoostStrength, cfg.BoostFactor, cfg.DutyCyclePeriod),
		nn.NewMaxPool2d(poolSize),
		nn.NewFlatten(),
		nn.NewSparseWeights(hidden, cfg.WeightSparsity, rng),
		nn.NewKWinners(cfg.HiddenUnits, cfg.PercentOn, cfg.BoostStrength, cfg.BoostFactor, cfg.DutyCyclePeriod),
		head,
		nn.NewLogSoftmax(),
	)
}
