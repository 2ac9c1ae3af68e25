package nn

// SGD updates parameters by stochastic gradient descent with momentum.
type SGD struct {
	LR       float64
	Momentum float64

	velocities []*Tensor
}

// NewSGD constructs the optimizer.
func NewSGD(lr, momentum float64) *SGD {
	return &SGD{LR: lr, Momentum: momentum}
}

// Step applies one update to params given matching grads.
func (s *SGD) Step(params, grads []*Tensor) {
	if s.velocities == nil {
		s.velocities = make([]*Tensor, len(params))
		for i, p := range params {
			s.velocities[i] = NewTensor(p.Shape...)
		}
	}
	for i, p := range params {
		g := grads[i]
		v := s.velocities[i]
		for j := range p.Data {
			grad := g.Data[j]
			if s.Momentum != 0 {
				v.Data[j] = s.Momentum*v.Data[j] + grad
				grad = v.Data[j]
			}
			p.Data[j] -= s.LR * grad
		}
	}
}
