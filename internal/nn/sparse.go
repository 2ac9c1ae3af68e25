package nn

import "math/rand"

// SparseWeights wraps a Linear layer and holds a fixed fraction of its
// incoming weights per unit at zero. The mask is sampled once at
// construction and never changes; Rezero re-enforces it after the optimizer
// has moved masked entries off zero.
type SparseWeights struct {
	*Linear
	Sparsity float64

	mask []int
}

// NewSparseWeights masks the given fraction of each unit's incoming weights.
func NewSparseWeights(inner *Linear, sparsity float64, rng *rand.Rand) *SparseWeights {
	s := &SparseWeights{
		Linear:   inner,
		Sparsity: sparsity,
		mask:     sampleMask(inner.Out, inner.In, sparsity, rng),
	}
	s.Rezero()
	return s
}

// Rezero sets every masked weight back to zero.
func (s *SparseWeights) Rezero() {
	w := s.Linear.Weight()
	for _, i := range s.mask {
		w.Data[i] = 0
	}
}

// SparseWeights2d wraps a Conv2d layer, masking each output channel's
// kernel entries.
type SparseWeights2d struct {
	*Conv2d
	Sparsity float64

	mask []int
}

// NewSparseWeights2d masks the given fraction of each channel's kernel weights.
func NewSparseWeights2d(inner *Conv2d, sparsity float64, rng *rand.Rand) *SparseWeights2d {
	rowLen := inner.InChannels * inner.Kernel * inner.Kernel
	s := &SparseWeights2d{
		Conv2d:   inner,
		Sparsity: sparsity,
		mask:     sampleMask(inner.OutChannels, rowLen, sparsity, rng),
	}
	s.Rezero()
	return s
}

// Rezero sets every masked weight back to zero.
func (s *SparseWeights2d) Rezero() {
	w := s.Conv2d.Weight()
	for _, i := range s.mask {
		w.Data[i] = 0
	}
}

// sampleMask picks round(rowLen*sparsity) flat weight indices per row.
func sampleMask(rows, rowLen int, sparsity float64, rng *rand.Rand) []int {
	perRow := int(float64(rowLen)*sparsity + 0.5)
	mask := make([]int, 0, rows*perRow)
	for r := 0; r < rows; r++ {
		perm := rng.Perm(rowLen)
		for _, j := range perm[:perRow] {
			mask = append(mask, r*rowLen+j)
		}
	}
	return mask
}
