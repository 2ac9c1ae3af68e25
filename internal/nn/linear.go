package nn

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Linear is a fully connected layer, y = x*W^T + b.
type Linear struct {
	In  int
	Out int

	weight *Tensor // [Out, In]
	bias   *Tensor // [Out]
	gradW  *Tensor
	gradB  *Tensor

	input *Tensor // cached for backward
}

// NewLinear constructs the layer with uniform init scaled by fan-in.
func NewLinear(in, out int, rng *rand.Rand) *Linear {
	l := &Linear{
		In:     in,
		Out:    out,
		weight: NewTensor(out, in),
		bias:   NewTensor(out),
		gradW:  NewTensor(out, in),
		gradB:  NewTensor(out),
	}
	bound := 1.0 / math.Sqrt(float64(in))
	for i := range l.weight.Data {
		l.weight.Data[i] = (rng.Float64()*2 - 1) * bound
	}
	for i := range l.bias.Data {
		l.bias.Data[i] = (rng.Float64()*2 - 1) * bound
	}
	return l
}

func (l *Linear) Forward(in *Tensor, train bool) *Tensor {
	batch := in.Batch()
	l.input = in

	x := mat.NewDense(batch, l.In, in.Data)
	w := mat.NewDense(l.Out, l.In, l.weight.Data)

	out := NewTensor(batch, l.Out)
	y := mat.NewDense(batch, l.Out, out.Data)
	y.Mul(x, w.T())

	for b := 0; b < batch; b++ {
		row := out.Data[b*l.Out : (b+1)*l.Out]
		for c := range row {
			row[c] += l.bias.Data[c]
		}
	}
	return out
}

func (l *Linear) Backward(grad *Tensor) *Tensor {
	batch := grad.Batch()

	gy := mat.NewDense(batch, l.Out, grad.Data)
	x := mat.NewDense(batch, l.In, l.input.Data)
	w := mat.NewDense(l.Out, l.In, l.weight.Data)

	gw := mat.NewDense(l.Out, l.In, l.gradW.Data)
	gw.Mul(gy.T(), x)

	l.gradB.Zero()
	for b := 0; b < batch; b++ {
		row := grad.Data[b*l.Out : (b+1)*l.Out]
		for c, g := range row {
			l.gradB.Data[c] += g
		}
	}

	in := NewTensor(batch, l.In)
	gx := mat.NewDense(batch, l.In, in.Data)
	gx.Mul(gy, w)
	return in
}

func (l *Linear) Parameters() []*Tensor { return []*Tensor{l.weight, l.bias} }
func (l *Linear) Gradients() []*Tensor  { return []*Tensor{l.gradW, l.gradB} }

// Weight exposes the weight tensor for sparse masking.
func (l *Linear) Weight() *Tensor { return l.weight }
