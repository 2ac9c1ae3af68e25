package nn

import (
	"math"
	"math/rand"
)

// Conv2d is a 2D convolution, stride 1, no padding.
type Conv2d struct {
	InChannels  int
	OutChannels int
	Kernel      int

	weight *Tensor // [OutChannels, InChannels, Kernel, Kernel]
	bias   *Tensor // [OutChannels]
	gradW  *Tensor
	gradB  *Tensor

	input *Tensor
}

// NewConv2d constructs the layer with uniform init scaled by fan-in.
func NewConv2d(inChannels, outChannels, kernel int, rng *rand.Rand) *Conv2d {
	c := &Conv2d{
		InChannels:  inChannels,
		OutChannels: outChannels,
		Kernel:      kernel,
		weight:      NewTensor(outChannels, inChannels, kernel, kernel),
		bias:        NewTensor(outChannels),
		gradW:       NewTensor(outChannels, inChannels, kernel, kernel),
		gradB:       NewTensor(outChannels),
	}
	fanIn := inChannels * kernel * kernel
	bound := 1.0 / math.Sqrt(float64(fanIn))
	for i := range c.weight.Data {
		c.weight.Data[i] = (rng.Float64()*2 - 1) * bound
	}
	for i := range c.bias.Data {
		c.bias.Data[i] = (rng.Float64()*2 - 1) * bound
	}
	return c
}

// OutputSize returns the spatial output size for a given input size.
func (c *Conv2d) OutputSize(in int) int {
	return in - c.Kernel + 1
}

func (c *Conv2d) Forward(in *Tensor, train bool) *Tensor {
	batch, inH, inW := in.Shape[0], in.Shape[2], in.Shape[3]
	outH := c.OutputSize(inH)
	outW := c.OutputSize(inW)
	c.input = in

	out := NewTensor(batch, c.OutChannels, outH, outW)
	for b := 0; b < batch; b++ {
		for oc := 0; oc < c.OutChannels; oc++ {
			for oy := 0; oy < outH; oy++ {
				for ox := 0; ox < outW; ox++ {
					sum := c.bias.Data[oc]
					for ic := 0; ic < c.InChannels; ic++ {
						inBase := ((b*c.InChannels+ic)*inH + oy) * inW
						wBase := ((oc*c.InChannels + ic) * c.Kernel) * c.Kernel
						for ky := 0; ky < c.Kernel; ky++ {
							inRow := in.Data[inBase+ky*inW+ox : inBase+ky*inW+ox+c.Kernel]
							wRow := c.weight.Data[wBase+ky*c.Kernel : wBase+(ky+1)*c.Kernel]
							for kx, w := range wRow {
								sum += w * inRow[kx]
							}
						}
					}
					out.Data[((b*c.OutChannels+oc)*outH+oy)*outW+ox] = sum
				}
			}
		}
	}
	return out
}

func (c *Conv2d) Backward(grad *Tensor) *Tensor {
	batch, inH, inW := c.input.Shape[0], c.input.Shape[2], c.input.Shape[3]
	outH, outW := grad.Shape[2], grad.Shape[3]

	c.gradW.Zero()
	c.gradB.Zero()
	in := NewTensor(batch, c.InChannels, inH, inW)

	for b := 0; b < batch; b++ {
		for oc := 0; oc < c.OutChannels; oc++ {
			for oy := 0; oy < outH; oy++ {
				for ox := 0; ox < outW; ox++ {
					g := grad.Data[((b*c.OutChannels+oc)*outH+oy)*outW+ox]
					if g == 0 {
						continue
					}
					c.gradB.Data[oc] += g
					for ic := 0; ic < c.InChannels; ic++ {
						inBase := ((b*c.InChannels+ic)*inH+oy)*inW + ox
						wBase := (oc*c.InChannels + ic) * c.Kernel * c.Kernel
						for ky := 0; ky < c.Kernel; ky++ {
							for kx := 0; kx < c.Kernel; kx++ {
								idx := inBase + ky*inW + kx
								c.gradW.Data[wBase+ky*c.Kernel+kx] += g * c.input.Data[idx]
								in.Data[idx] += g * c.weight.Data[wBase+ky*c.Kernel+kx]
							}
						}
					}
				}
			}
		}
	}
	return in
}

func (c *Conv2d) Parameters() []*Tensor { return []*Tensor{c.weight, c.bias} }
func (c *Conv2d) Gradients() []*Tensor  { return []*Tensor{c.gradW, c.gradB} }

// Weight exposes the weight tensor for sparse masking.
func (c *Conv2d) Weight() *Tensor { return c.weight }
