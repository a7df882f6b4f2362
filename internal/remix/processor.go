// Package remix reshapes existing audio with a short-time Fourier transform
// and a per-style spectral gain curve.
package remix

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/satindergrewal/tonesmith/internal/audio"
	"github.com/satindergrewal/tonesmith/internal/logging"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/dsp/fourier"
)

// STFT parameters.
const (
	WindowSize  = 2048
	HopSize     = WindowSize / 4
	OverlapGain = 0.5
)

// ErrInvalidRequest is returned for malformed styles and out-of-range
// effect amounts.
var ErrInvalidRequest = errors.New("invalid remix request")

// Request carries the style and effect amounts for one remix. Reverb, Delay
// and Distortion are validated and reported but not applied by the
// spectral stage.
type Request struct {
	Style       Style
	BassBoost   float64
	TrebleBoost float64
	Reverb      float64
	Delay       float64
	Distortion  float64
}

// NewRequest returns a request for style pre-filled with its preset.
func NewRequest(s Style) Request {
	p := s.Info().Preset
	return Request{
		Style:       s,
		BassBoost:   p.BassBoost,
		TrebleBoost: p.TrebleBoost,
		Reverb:      p.Reverb,
		Delay:       p.Delay,
		Distortion:  p.Distortion,
	}
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// Validate checks boosts are finite and effect amounts lie in [0, 1].
func (r Request) Validate() error {
	if !r.Style.valid() {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, r.Style)
	}
	if !finite(r.BassBoost) || !finite(r.TrebleBoost) {
		return fmt.Errorf("%w: boosts must be finite (bass %v, treble %v)", ErrInvalidRequest, r.BassBoost, r.TrebleBoost)
	}
	for _, amt := range []struct {
		name string
		v    float64
	}{{"reverb", r.Reverb}, {"delay", r.Delay}, {"distortion", r.Distortion}} {
		if !(amt.v >= 0 && amt.v <= 1) {
			return fmt.Errorf("%w: %s %v outside [0, 1]", ErrInvalidRequest, amt.name, amt.v)
		}
	}
	return nil
}

// Processor runs the overlap-add remix. It keeps no state between calls and
// is safe for concurrent use.
type Processor struct {
	Log logrus.FieldLogger
}

// New creates a processor.
func New(log logrus.FieldLogger) *Processor {
	return &Processor{Log: logging.OrDiscard(log)}
}

// Process returns a new buffer the same length as in. Each window of
// WindowSize samples starting at a multiple of HopSize, for as long as the
// window fits, is transformed, scaled by the style's gain curve, inverted
// and added into the output at OverlapGain. Samples past the last window
// are copied through unchanged. Windows are read from in, which is never
// modified, and no analysis window function is applied.
func (p *Processor) Process(ctx context.Context, in *audio.Buffer, req Request) (*audio.Buffer, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	start := time.Now()
	gains := req.transfer(WindowSize, in.SampleRate)
	fft := fourier.NewCmplxFFT(WindowSize)

	acc := make([]float64, len(in.Samples))
	for i, v := range in.Samples {
		acc[i] = float64(v)
	}

	window := make([]complex128, WindowSize)
	spectrum := make([]complex128, WindowSize)
	recon := make([]complex128, WindowSize)
	scale := OverlapGain / WindowSize // Sequence is unnormalized

	windows := 0
	for i := 0; i+WindowSize <= len(in.Samples); i += HopSize {
		if windows%64 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		for j := range window {
			window[j] = complex(float64(in.Samples[i+j]), 0)
		}
		fft.Coefficients(spectrum, window)
		for k, g := range gains {
			spectrum[k] *= complex(g, 0)
		}
		fft.Sequence(recon, spectrum)
		for j, c := range recon {
			acc[i+j] += real(c) * scale
		}
		windows++
	}

	out := &audio.Buffer{
		Samples:    make([]float32, len(acc)),
		SampleRate: in.SampleRate,
		Channels:   in.Channels,
	}
	for i, v := range acc {
		out.Samples[i] = toFloat32(v)
	}

	p.Log.WithFields(logrus.Fields{
		"style":   req.Style.String(),
		"windows": windows,
		"samples": len(out.Samples),
		"elapsed": time.Since(start).Round(time.Millisecond),
	}).Debug("Remix complete")
	return out, nil
}

// toFloat32 narrows v, saturating at the float32 range. NaN becomes 0.
func toFloat32(v float64) float32 {
	switch {
	case math.IsNaN(v):
		return 0
	case v > math.MaxFloat32:
		return math.MaxFloat32
	case v < -math.MaxFloat32:
		return -math.MaxFloat32
	}
	return float32(v)
}
