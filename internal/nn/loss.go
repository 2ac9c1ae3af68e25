package nn

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// LogSoftmax normalizes each sample's logits into log-probabilities.
type LogSoftmax struct {
	output *Tensor
}

func NewLogSoftmax() *LogSoftmax { return &LogSoftmax{} }

func (l *LogSoftmax) Forward(in *Tensor, train bool) *Tensor {
	batch, n := in.Shape[0], in.Shape[1]
	out := NewTensor(batch, n)
	for b := 0; b < batch; b++ {
		row := in.Data[b*n : (b+1)*n]
		max := floats.Max(row)
		sum := 0.0
		for _, v := range row {
			sum += math.Exp(v - max)
		}
		logSum := max + math.Log(sum)
		for i, v := range row {
			out.Data[b*n+i] = v - logSum
		}
	}
	l.output = out
	return out
}

func (l *LogSoftmax) Backward(grad *Tensor) *Tensor {
	batch, n := grad.Shape[0], grad.Shape[1]
	in := NewTensor(batch, n)
	for b := 0; b < batch; b++ {
		gRow := grad.Data[b*n : (b+1)*n]
		oRow := l.output.Data[b*n : (b+1)*n]
		sum := floats.Sum(gRow)
		for i := range gRow {
			in.Data[b*n+i] = gRow[i] - math.Exp(oRow[i])*sum
		}
	}
	return in
}

// NLLLoss computes the negative log-likelihood over log-probabilities,
// averaged over the batch, and the gradient w.r.t. the log-probabilities.
func NLLLoss(logProbs *Tensor, labels []int) (float64, *Tensor) {
	batch, n := logProbs.Shape[0], logProbs.Shape[1]
	grad := NewTensor(batch, n)
	loss := 0.0
	for b, label := range labels {
		loss -= logProbs.Data[b*n+label]
		grad.Data[b*n+label] = -1.0 / float64(batch)
	}
	return loss / float64(batch), grad
}

// Argmax returns the predicted class for each sample.
func Argmax(logProbs *Tensor) []int {
	batch, n := logProbs.Shape[0], logProbs.Shape[1]
	out := make([]int, batch)
	for b := 0; b < batch; b++ {
		out[b] = floats.MaxIdx(logProbs.Data[b*n : (b+1)*n])
	}
	return out
}
