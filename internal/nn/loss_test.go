package nn

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogSoftmax_Normalizes(t *testing.T) {
	l := NewLogSoftmax()
	out := l.Forward(&Tensor{Shape: []int{2, 3}, Data: []float64{
		1, 2, 3,
		100, 100, 100,
	}}, false)

	for b := 0; b < 2; b++ {
		sum := 0.0
		for _, v := range out.Data[b*3 : (b+1)*3] {
			sum += math.Exp(v)
		}
		assert.InDelta(t, 1.0, sum, 1e-9, "sample %d", b)
	}
	// Equal logits yield uniform log-probabilities, stable at large scale.
	assert.InDelta(t, math.Log(1.0/3.0), out.Data[3], 1e-9)
}

func TestNLLLoss_PerfectPrediction(t *testing.T) {
	logProbs := &Tensor{Shape: []int{1, 2}, Data: []float64{math.Log(1 - 1e-12), math.Log(1e-12)}}
	loss, _ := NLLLoss(logProbs, []int{0})
	assert.InDelta(t, 0, loss, 1e-9)
}

func TestNLLLoss_GradientThroughLogSoftmax(t *testing.T) {
	l := NewLogSoftmax()
	out := l.Forward(&Tensor{Shape: []int{1, 3}, Data: []float64{0.5, -0.2, 0.1}}, true)

	loss, grad := NLLLoss(out, []int{1})
	require.Greater(t, loss, 0.0)

	gradIn := l.Backward(grad)
	// Softmax cross-entropy gradients sum to zero per sample.
	sum := 0.0
	for _, v := range gradIn.Data {
		sum += v
	}
	assert.InDelta(t, 0, sum, 1e-12)
	// The true class is pushed up, the rest down.
	assert.Negative(t, gradIn.Data[1])
	assert.Positive(t, gradIn.Data[0])
	assert.Positive(t, gradIn.Data[2])
}

func TestArgmax(t *testing.T) {
	logProbs := &Tensor{Shape: []int{2, 3}, Data: []float64{
		-1, -0.1, -2,
		-0.5, -3, -4,
	}}
	assert.Equal(t, []int{1, 0}, Argmax(logProbs))
}
