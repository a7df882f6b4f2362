package synth

import (
	"math"
	"math/rand/v2"
)

// Sine is sin(2*pi*freq*t).
func Sine(freq, t float64) float64 {
	return math.Sin(2 * math.Pi * freq * t)
}

// Sawtooth rises linearly from -1 to 1 once per period. Negative frequencies
// run the ramp backwards.
func Sawtooth(freq, t float64) float64 {
	x := t * freq
	return 2*(x-math.Floor(x)) - 1
}

// Square is 1 while the matching sine is non-negative, -1 otherwise.
func Square(freq, t float64) float64 {
	if math.Sin(2*math.Pi*freq*t) >= 0 {
		return 1
	}
	return -1
}

// ExpDecay is exp(-rate*t).
func ExpDecay(t, rate float64) float64 {
	return math.Exp(-rate * t)
}

// AttackDecay is a fast-attack, slow-decay envelope peaking near 0.84 at
// t = 0.08s. It is zero at t = 0.
func AttackDecay(t float64) float64 {
	return math.Exp(-2*t) * (1 - math.Exp(-50*t))
}

// Noise is a seeded white noise source in [-0.5, 0.5). It is not safe for
// concurrent use; each synthesis run owns one.
type Noise struct {
	r *rand.Rand
}

// NewNoise returns a noise source. Equal seeds produce equal sequences.
func NewNoise(seed uint64) *Noise {
	return &Noise{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Next returns the next noise sample.
func (n *Noise) Next() float64 {
	return n.r.Float64() - 0.5
}
