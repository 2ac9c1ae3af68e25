package nn

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinear_Forward(t *testing.T) {
	l := NewLinear(2, 2, rand.New(rand.NewSource(1)))
	copy(l.weight.Data, []float64{1, 2, 3, 4})
	copy(l.bias.Data, []float64{0.5, -0.5})

	out := l.Forward(&Tensor{Shape: []int{1, 2}, Data: []float64{1, 1}}, true)

	require.Equal(t, []int{1, 2}, out.Shape)
	assert.InDeltaSlice(t, []float64{3.5, 6.5}, out.Data, 1e-12)
}

func TestLinear_Backward(t *testing.T) {
	l := NewLinear(2, 2, rand.New(rand.NewSource(1)))
	copy(l.weight.Data, []float64{1, 2, 3, 4})
	copy(l.bias.Data, []float64{0, 0})

	l.Forward(&Tensor{Shape: []int{1, 2}, Data: []float64{1, 1}}, true)
	gradIn := l.Backward(&Tensor{Shape: []int{1, 2}, Data: []float64{1, 0}})

	assert.InDeltaSlice(t, []float64{1, 1, 0, 0}, l.gradW.Data, 1e-12)
	assert.InDeltaSlice(t, []float64{1, 0}, l.gradB.Data, 1e-12)
	assert.InDeltaSlice(t, []float64{1, 2}, gradIn.Data, 1e-12)
}

func TestConv2d_OutputShape(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	c := NewConv2d(1, 32, 5, rng)

	in := NewTensor(2, 1, 28, 28)
	out := c.Forward(in, true)

	assert.Equal(t, []int{2, 32, 24, 24}, out.Shape)
	assert.Equal(t, 24, c.OutputSize(28))
}

func TestConv2d_SumsWindow(t *testing.T) {
	c := NewConv2d(1, 1, 2, rand.New(rand.NewSource(1)))
	for i := range c.weight.Data {
		c.weight.Data[i] = 1
	}
	c.bias.Data[0] = 0

	in := &Tensor{Shape: []int{1, 1, 3, 3}, Data: []float64{
		1, 2, 3,
		4, 5, 6,
		7, 8, 9,
	}}
	out := c.Forward(in, true)

	assert.InDeltaSlice(t, []float64{12, 16, 24, 28}, out.Data, 1e-12)
}

func TestMaxPool2d(t *testing.T) {
	p := NewMaxPool2d(2)
	in := &Tensor{Shape: []int{1, 1, 4, 4}, Data: []float64{
		1, 2, 5, 6,
		3, 4, 7, 8,
		9, 1, 2, 1,
		1, 1, 1, 3,
	}}
	out := p.Forward(in, true)

	require.Equal(t, []int{1, 1, 2, 2}, out.Shape)
	assert.Equal(t, []float64{4, 8, 9, 3}, out.Data)

	grad := p.Backward(&Tensor{Shape: []int{1, 1, 2, 2}, Data: []float64{1, 2, 3, 4}})
	expect := make([]float64, 16)
	expect[5] = 1  // position of 4
	expect[7] = 2  // position of 8
	expect[8] = 3  // position of 9
	expect[15] = 4 // position of 3
	assert.Equal(t, expect, grad.Data)
}

func TestFlatten_RoundTrip(t *testing.T) {
	f := NewFlatten()
	in := NewTensor(2, 3, 4, 4)
	out := f.Forward(in, true)
	require.Equal(t, []int{2, 48}, out.Shape)

	back := f.Backward(out)
	assert.Equal(t, []int{2, 3, 4, 4}, back.Shape)
}

func TestSGD_MomentumStep(t *testing.T) {
	opt := NewSGD(0.1, 0.9)
	p := &Tensor{Shape: []int{1}, Data: []float64{1}}
	g := &Tensor{Shape: []int{1}, Data: []float64{0.5}}

	opt.Step([]*Tensor{p}, []*Tensor{g})
	assert.InDelta(t, 0.95, p.Data[0], 1e-12)

	opt.Step([]*Tensor{p}, []*Tensor{g})
	assert.InDelta(t, 0.855, p.Data[0], 1e-12)
}

func TestSequential_WalksLayers(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	model := NewSequential(
		NewSparseWeights(NewLinear(4, 6, rng), 0.5, rng),
		NewKWinners(6, 0.5, 1.0, 0.5, 1000),
		NewLinear(6, 2, rng),
		NewLogSoftmax(),
	)

	out := model.Forward(&Tensor{Shape: []int{1, 4}, Data: []float64{1, 0, 1, 0}}, true)
	require.Equal(t, []int{1, 2}, out.Shape)

	// Two linear layers, each with weight and bias.
	assert.Len(t, model.Parameters(), 4)
	assert.Len(t, model.Gradients(), 4)

	// Rezero and boost updates reach the wrapped layers without panicking.
	model.Rezero()
	model.UpdateBoostStrength()
}
