package nn

// Layer transforms a batch of activations. Backward must be called with the
// gradient of the loss w.r.t. the output of the most recent Forward.
type Layer interface {
	Forward(in *Tensor, train bool) *Tensor
	Backward(grad *Tensor) *Tensor
}

// ParamLayer exposes trainable parameters and their gradients in matching
// order, for the optimizer.
type ParamLayer interface {
	Layer
	Parameters() []*Tensor
	Gradients() []*Tensor
}

// Rezeroer is implemented by sparse-weight layers whose zero mask must be
// re-enforced after each optimizer step.
type Rezeroer interface {
	Rezero()
}

// Booster is implemented by k-winner layers whose boost strength decays
// between epochs.
type Booster interface {
	UpdateBoostStrength()
}
