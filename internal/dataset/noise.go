package dataset

import "math/rand"

// Noise overwrites a fixed fraction of pixel positions with a white value.
// Each sample's positions derive from the seed and the sample index, so a
// pass over the dataset is reproducible regardless of worker scheduling.
type Noise struct {
	Level float64
	White float64
	Seed  int64
}

// NewNoise builds a transform at the given level with white pixels at 1.0.
func NewNoise(level float64, seed int64) *Noise {
	return &Noise{Level: level, White: 1.0, Seed: seed}
}

// Apply mutates pixels in place, overwriting floor(len*Level) distinct
// positions. index identifies the sample within its set.
func (n *Noise) Apply(pixels []float64, index int) {
	count := int(float64(len(pixels)) * n.Level)
	if count <= 0 {
		return
	}
	rng := rand.New(rand.NewSource(n.Seed + int64(index)))
	for _, pos := range rng.Perm(len(pixels))[:count] {
		pixels[pos] = n.White
	}
}
