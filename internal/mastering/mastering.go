// Package mastering holds the fixed post-processing chain applied to every
// buffer before it is written.
package mastering

import (
	"math"

	"github.com/satindergrewal/tonesmith/internal/audio"
)

// Chain parameters.
const (
	CompressThreshold = 0.8
	CompressRatio     = 4.0
	WidenAmount       = 1.2
	EnhanceAmount     = 0.1
	EnhanceDrive      = 2.0
	LimitCeiling      = 0.95
)

// Stage transforms a buffer in place.
type Stage func(b *audio.Buffer)

// Chain runs stages in order.
type Chain []Stage

// Default is compression, stereo widening, harmonic enhancement and then the
// limiter. It is not idempotent as a whole; only Limit is.
var Default = Chain{Compress, Widen, Enhance, Limit}

// Process applies every stage to b in order and returns it. b is consumed:
// callers must not keep another reference to it.
func (c Chain) Process(b *audio.Buffer) *audio.Buffer {
	for _, stage := range c {
		stage(b)
	}
	return b
}

// Compress reduces anything above CompressThreshold by CompressRatio, per
// sample.
func Compress(b *audio.Buffer) {
	for i, s := range b.Samples {
		x := float64(s)
		if a := math.Abs(x); a > CompressThreshold {
			b.Samples[i] = float32(math.Copysign(CompressThreshold+(a-CompressThreshold)/CompressRatio, x))
		}
	}
}

// Widen scales the side signal of each stereo frame by WidenAmount. Buffers
// with a channel count other than two are left alone.
func Widen(b *audio.Buffer) {
	if b.Channels != 2 {
		return
	}
	for i := 0; i+1 < len(b.Samples); i += 2 {
		l, r := float64(b.Samples[i]), float64(b.Samples[i+1])
		mid := (l + r) / 2
		side := (l - r) / 2
		b.Samples[i] = float32(mid + WidenAmount*side)
		b.Samples[i+1] = float32(mid - WidenAmount*side)
	}
}

// Enhance adds EnhanceAmount*tanh(EnhanceDrive*x) to each sample.
func Enhance(b *audio.Buffer) {
	for i, s := range b.Samples {
		x := float64(s)
		b.Samples[i] = float32(x + EnhanceAmount*math.Tanh(EnhanceDrive*x))
	}
}

// Limit hard-clips to ±LimitCeiling. NaN samples become 0.
func Limit(b *audio.Buffer) {
	for i, s := range b.Samples {
		switch {
		case math.IsNaN(float64(s)):
			b.Samples[i] = 0
		case s > LimitCeiling:
			b.Samples[i] = LimitCeiling
		case s < -LimitCeiling:
			b.Samples[i] = -LimitCeiling
		}
	}
}
