package nn

// Sequential chains layers in order.
type Sequential struct {
	layers []Layer
}

// NewSequential builds a container over the given layers.
func NewSequential(layers ...Layer) *Sequential {
	return &Sequential{layers: layers}
}

func (s *Sequential) Forward(in *Tensor, train bool) *Tensor {
	out := in
	for _, l := range s.layers {
		out = l.Forward(out, train)
	}
	return out
}

func (s *Sequential) Backward(grad *Tensor) *Tensor {
	for i := len(s.layers) - 1; i >= 0; i-- {
		grad = s.layers[i].Backward(grad)
	}
	return grad
}

// Parameters gathers trainable tensors from all layers.
func (s *Sequential) Parameters() []*Tensor {
	var params []*Tensor
	for _, l := range s.layers {
		if p, ok := l.(ParamLayer); ok {
			params = append(params, p.Parameters()...)
		}
	}
	return params
}

// Gradients gathers gradient tensors in the same order as Parameters.
func (s *Sequential) Gradients() []*Tensor {
	var grads []*Tensor
	for _, l := range s.layers {
		if p, ok := l.(ParamLayer); ok {
			grads = append(grads, p.Gradients()...)
		}
	}
	return grads
}

// Rezero re-enforces the zero mask of every sparse-weight layer.
func (s *Sequential) Rezero() {
	for _, l := range s.layers {
		if r, ok := l.(Rezeroer); ok {
			r.Rezero()
		}
	}
}

// UpdateBoostStrength decays boosting on every k-winner layer.
func (s *Sequential) UpdateBoostStrength() {
	for _, l := range s.layers {
		if b, ok := l.(Booster); ok {
			b.UpdateBoostStrength()
		}
	}
}
