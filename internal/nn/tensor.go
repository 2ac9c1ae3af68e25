package nn

import "fmt"

// Tensor is a dense row-major value with an explicit shape. Activations
// carry a leading batch dimension; parameters do not.
type Tensor struct {
	Shape []int
	Data  []float64
}

// NewTensor allocates a zeroed tensor with the given shape.
func NewTensor(shape ...int) *Tensor {
	size := 1
	for _, d := range shape {
		size *= d
	}
	return &Tensor{
		Shape: append([]int(nil), shape...),
		Data:  make([]float64, size),
	}
}

// Size returns the number of elements.
func (t *Tensor) Size() int {
	return len(t.Data)
}

// Batch returns the leading dimension.
func (t *Tensor) Batch() int {
	if len(t.Shape) == 0 {
		return 0
	}
	return t.Shape[0]
}

// SampleSize returns elements per sample (size without the batch dimension).
func (t *Tensor) SampleSize() int {
	if t.Batch() == 0 {
		return 0
	}
	return len(t.Data) / t.Shape[0]
}

// Reshape returns a tensor sharing t's data with a new shape.
func (t *Tensor) Reshape(shape ...int) *Tensor {
	size := 1
	for _, d := range shape {
		size *= d
	}
	if size != len(t.Data) {
		panic(fmt.Sprintf("nn: reshape %v to %v", t.Shape, shape))
	}
	return &Tensor{Shape: append([]int(nil), shape...), Data: t.Data}
}

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	out := NewTensor(t.Shape...)
	copy(out.Data, t.Data)
	return out
}

// Zero sets every element to zero.
func (t *Tensor) Zero() {
	for i := range t.Data {
		t.Data[i] = 0
	}
}
