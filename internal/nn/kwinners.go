package nn

import (
	"math"
	"sort"
)

// KWinners keeps the top-k activations of each sample and zeroes the rest.
// Selection runs on boosted values: units that have been winning less often
// than the target density get their pre-activations scaled up, so winners
// rotate over time. Kept units pass through at their original value.
type KWinners struct {
	N         int
	PercentOn float64

	k               int
	boostStrength   float64
	boostFactor     float64
	dutyCyclePeriod int
	dutyCycle       []float64
	iterations      int

	winners []bool // per element of the last forward batch
}

// NewKWinners constructs a k-winners layer over n units.
func NewKWinners(n int, percentOn, boostStrength, boostFactor float64, dutyCyclePeriod int) *KWinners {
	return &KWinners{
		N:               n,
		PercentOn:       percentOn,
		k:               int(math.Round(percentOn * float64(n))),
		boostStrength:   boostStrength,
		boostFactor:     boostFactor,
		dutyCyclePeriod: dutyCyclePeriod,
		dutyCycle:       make([]float64, n),
	}
}

func (l *KWinners) Forward(in *Tensor, train bool) *Tensor {
	batch := in.Batch()
	out := NewTensor(in.Shape...)
	l.winners = make([]bool, in.Size())

	boosted := make([]float64, l.N)
	wins := make([]float64, l.N)
	for b := 0; b < batch; b++ {
		row := in.Data[b*l.N : (b+1)*l.N]
		for i, v := range row {
			boosted[i] = v * math.Exp(l.boostStrength*(l.PercentOn-l.dutyCycle[i]))
		}
		for _, i := range topK(boosted, l.k) {
			out.Data[b*l.N+i] = row[i]
			l.winners[b*l.N+i] = true
			wins[i]++
		}
	}

	if train {
		l.updateDutyCycle(wins, batch)
	}
	return out
}

func (l *KWinners) Backward(grad *Tensor) *Tensor {
	in := NewTensor(grad.Shape...)
	for i, on := range l.winners {
		if on {
			in.Data[i] = grad.Data[i]
		}
	}
	return in
}

// UpdateBoostStrength decays the boost strength by the configured factor.
func (l *KWinners) UpdateBoostStrength() {
	l.boostStrength *= l.boostFactor
}

// DutyCycle returns the running win frequency of unit i.
func (l *KWinners) DutyCycle(i int) float64 { return l.dutyCycle[i] }

func (l *KWinners) updateDutyCycle(wins []float64, batch int) {
	l.iterations += batch
	period := float64(l.dutyCyclePeriod)
	if l.iterations < l.dutyCyclePeriod {
		period = float64(l.iterations)
	}
	for i := range l.dutyCycle {
		l.dutyCycle[i] = (l.dutyCycle[i]*(period-float64(batch)) + wins[i]) / period
	}
}

// KWinners2d applies k-winners-take-all across the full channel volume of
// each sample, with boosting and duty cycles tracked per channel.
type KWinners2d struct {
	Channels  int
	PercentOn float64

	boostStrength   float64
	boostFactor     float64
	dutyCyclePeriod int
	dutyCycle       []float64
	iterations      int

	winners []bool
}

// NewKWinners2d constructs a k-winners layer over channel maps.
func NewKWinners2d(channels int, percentOn, boostStrength, boostFactor float64, dutyCyclePeriod int) *KWinners2d {
	return &KWinners2d{
		Channels:        channels,
		PercentOn:       percentOn,
		boostStrength:   boostStrength,
		boostFactor:     boostFactor,
		dutyCyclePeriod: dutyCyclePeriod,
		dutyCycle:       make([]float64, channels),
	}
}

func (l *KWinners2d) Forward(in *Tensor, train bool) *Tensor {
	batch, area := in.Shape[0], in.Shape[2]*in.Shape[3]
	volume := l.Channels * area
	k := int(math.Round(l.PercentOn * float64(volume)))

	out := NewTensor(in.Shape...)
	l.winners = make([]bool, in.Size())

	boosted := make([]float64, volume)
	wins := make([]float64, l.Channels)
	for b := 0; b < batch; b++ {
		sample := in.Data[b*volume : (b+1)*volume]
		for c := 0; c < l.Channels; c++ {
			factor := math.Exp(l.boostStrength * (l.PercentOn - l.dutyCycle[c]))
			for j := c * area; j < (c+1)*area; j++ {
				boosted[j] = sample[j] * factor
			}
		}
		for _, i := range topK(boosted, k) {
			out.Data[b*volume+i] = sample[i]
			l.winners[b*volume+i] = true
			wins[i/area]++
		}
	}

	if train {
		l.updateDutyCycle(wins, batch, area)
	}
	return out
}

func (l *KWinners2d) Backward(grad *Tensor) *Tensor {
	in := NewTensor(grad.Shape...)
	for i, on := range l.winners {
		if on {
			in.Data[i] = grad.Data[i]
		}
	}
	return in
}

// UpdateBoostStrength decays the boost strength by the configured factor.
func (l *KWinners2d) UpdateBoostStrength() {
	l.boostStrength *= l.boostFactor
}

// DutyCycle returns the running win frequency of channel c.
func (l *KWinners2d) DutyCycle(c int) float64 { return l.dutyCycle[c] }

func (l *KWinners2d) updateDutyCycle(wins []float64, batch, area int) {
	l.iterations += batch
	period := float64(l.dutyCyclePeriod)
	if l.iterations < l.dutyCyclePeriod {
		period = float64(l.iterations)
	}
	for c := range l.dutyCycle {
		l.dutyCycle[c] = (l.dutyCycle[c]*(period-float64(batch)) + wins[c]/float64(area)) / period
	}
}

// topK returns the indices of the k largest values. All indices are
// returned when k >= len(values); none when k <= 0.
func topK(values []float64, k int) []int {
	n := len(values)
	if k <= 0 {
		return nil
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	if k >= n {
		return idx
	}
	sort.Slice(idx, func(a, b int) bool { return values[idx[a]] > values[idx[b]] })
	return idx[:k]
}
