package trainer

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sparsenet/internal/dataset"
	"sparsenet/internal/nn"
)

// quadrantSet builds 2x2 images where exactly one pixel is lit and the
// label names that pixel. Trivially separable.
func quadrantSet(n int) *dataset.Set {
	s := &dataset.Set{Rows: 2, Cols: 2}
	for i := 0; i < n; i++ {
		pixels := make([]float64, 4)
		pixels[i%4] = 1
		s.Images = append(s.Images, pixels)
		s.Labels = append(s.Labels, i%4)
	}
	return s
}

func TestTrainEpoch_ReducesLoss(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	model := nn.NewSequential(
		nn.NewFlatten(),
		nn.NewLinear(4, numClasses, rng),
		nn.NewLogSoftmax(),
	)
	opt := nn.NewSGD(0.5, 0)

	cfg := RunConfig{
		Train:     quadrantSet(100),
		BatchSize: 10,
		LogEvery:  1000,
	}

	first, err := trainEpoch(context.Background(), model, opt, cfg, 1)
	require.NoError(t, err)
	var last float64
	for epoch := 2; epoch <= 5; epoch++ {
		last, err = trainEpoch(context.Background(), model, opt, cfg, epoch)
		require.NoError(t, err)
	}
	assert.Less(t, last, first)
}

func perfectQuadrantModel(t *testing.T) *nn.Sequential {
	t.Helper()
	linear := nn.NewLinear(4, numClasses, rand.New(rand.NewSource(3)))
	// Route each lit pixel to its own class with a margin that dwarfs the
	// random bias.
	w := linear.Weight()
	w.Zero()
	for c := 0; c < 4; c++ {
		w.Data[c*4+c] = 10
	}
	return nn.NewSequential(nn.NewFlatten(), linear, nn.NewLogSoftmax())
}

func TestEvaluate_PerfectModel(t *testing.T) {
	model := perfectQuadrantModel(t)

	res, err := Evaluate(context.Background(), model, quadrantSet(40), 8, 2, nil)
	require.NoError(t, err)

	assert.Equal(t, 40, res.Total)
	assert.Equal(t, 40, res.Correct)
	assert.Equal(t, 1.0, res.Accuracy)
	assert.Less(t, res.Loss, 0.1)
}

func TestEvaluate_NoiseRemovesSignal(t *testing.T) {
	model := perfectQuadrantModel(t)

	// Whitening every pixel leaves nothing to separate the classes.
	res, err := Evaluate(context.Background(), model, quadrantSet(40), 8, 2, dataset.NewNoise(1.0, 1))
	require.NoError(t, err)
	assert.Less(t, res.Accuracy, 1.0)
}

func TestRun_Validation(t *testing.T) {
	_, err := Run(context.Background(), RunConfig{Epochs: 0, BatchSize: 1})
	assert.Error(t, err)

	_, err = Run(context.Background(), RunConfig{Epochs: 1, BatchSize: 0})
	assert.Error(t, err)
}

func TestRun_EndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("full run")
	}

	// 8x8 inputs: conv5 -> 4x4 maps -> pool -> 2x2.
	train := brightCornerSet(80, 1)
	test := brightCornerSet(20, 2)

	report, err := Run(context.Background(), RunConfig{
		Train:           train,
		Test:            test,
		Epochs:          2,
		BatchSize:       10,
		LearningRate:    0.05,
		Momentum:        0.5,
		HiddenUnits:     64,
		WeightSparsity:  0.5,
		PercentOn:       0.2,
		BoostStrength:   1.0,
		BoostFactor:     0.9,
		DutyCyclePeriod: 1000,
		NoiseLevels:     []float64{0, 0.25},
		Seed:            11,
		NumWorkers:      2,
		LogEvery:        1000,
	})
	require.NoError(t, err)

	require.Len(t, report.Epochs, 2)
	require.Len(t, report.Sweep, 2)
	for _, r := range report.Sweep {
		assert.GreaterOrEqual(t, r.Accuracy, 0.0)
		assert.LessOrEqual(t, r.Accuracy, 1.0)
		assert.Equal(t, 20, r.Total)
	}
	assert.GreaterOrEqual(t, report.MeanAccuracy, report.MinAccuracy)
}

// brightCornerSet builds 8x8 images labeled by which corner holds the
// bright block.
func brightCornerSet(n int, seed int64) *dataset.Set {
	rng := rand.New(rand.NewSource(seed))
	s := &dataset.Set{Rows: 8, Cols: 8}
	for i := 0; i < n; i++ {
		pixels := make([]float64, 64)
		label := i % 2
		offset := 0
		if label == 1 {
			offset = 4*8 + 4
		}
		for y := 0; y < 4; y++ {
			for x := 0; x < 4; x++ {
				pixels[offset+y*8+x] = 0.75 + rng.Float64()*0.25
			}
		}
		s.Images = append(s.Images, pixels)
		s.Labels = append(s.Labels, label)
	}
	return s
}
