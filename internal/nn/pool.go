package nn

// MaxPool2d downsamples spatial maps by taking the max over non-overlapping
// windows. Stride equals the window size.
type MaxPool2d struct {
	Size int

	argmax   []int // flat input index of each output element
	inShape  []int
	outShape []int
}

// NewMaxPool2d constructs a pooling layer with the given window size.
func NewMaxPool2d(size int) *MaxPool2d {
	return &MaxPool2d{Size: size}
}

func (p *MaxPool2d) Forward(in *Tensor, train bool) *Tensor {
	batch, ch, inH, inW := in.Shape[0], in.Shape[1], in.Shape[2], in.Shape[3]
	outH := inH / p.Size
	outW := inW / p.Size

	out := NewTensor(batch, ch, outH, outW)
	p.argmax = make([]int, out.Size())
	p.inShape = in.Shape
	p.outShape = out.Shape

	for b := 0; b < batch; b++ {
		for c := 0; c < ch; c++ {
			mapBase := (b*ch + c) * inH * inW
			for oy := 0; oy < outH; oy++ {
				for ox := 0; ox < outW; ox++ {
					best := mapBase + (oy*p.Size)*inW + ox*p.Size
					for ky := 0; ky < p.Size; ky++ {
						for kx := 0; kx < p.Size; kx++ {
							idx := mapBase + (oy*p.Size+ky)*inW + ox*p.Size + kx
							if in.Data[idx] > in.Data[best] {
								best = idx
							}
						}
					}
					outIdx := ((b*ch+c)*outH+oy)*outW + ox
					out.Data[outIdx] = in.Data[best]
					p.argmax[outIdx] = best
				}
			}
		}
	}
	return out
}

func (p *MaxPool2d) Backward(grad *Tensor) *Tensor {
	in := NewTensor(p.inShape...)
	for i, g := range grad.Data {
		in.Data[p.argmax[i]] += g
	}
	return in
}

// Flatten collapses all sample dimensions into one.
type Flatten struct {
	inShape []int
}

func NewFlatten() *Flatten { return &Flatten{} }

func (f *Flatten) Forward(in *Tensor, train bool) *Tensor {
	f.inShape = in.Shape
	return in.Reshape(in.Batch(), in.SampleSize())
}

func (f *Flatten) Backward(grad *Tensor) *Tensor {
	return grad.Reshape(f.inShape...)
}
