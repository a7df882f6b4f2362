// Package synth renders procedural multi-voice audio for a genre, tempo and
// duration.
package synth

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/satindergrewal/tonesmith/internal/audio"
	"github.com/satindergrewal/tonesmith/internal/logging"
	"github.com/sirupsen/logrus"
)

// ErrInvalidRequest is returned for non-positive durations or tempos and for
// requests too large to address.
var ErrInvalidRequest = errors.New("invalid synthesis request")

// Request describes one rendering.
type Request struct {
	Genre       Genre
	Instruments []string // advisory
	Tempo       int      // beats per minute
	Duration    int      // whole seconds
	SampleRate  int      // 0 selects the synthesizer default
	Seed        uint64   // noise seed
}

// Validate checks the request against the synthesizer's sample rate.
func (r Request) Validate(defaultRate int) error {
	if r.Duration <= 0 {
		return fmt.Errorf("%w: duration %ds must be positive", ErrInvalidRequest, r.Duration)
	}
	if r.Tempo <= 0 {
		return fmt.Errorf("%w: tempo %d must be positive", ErrInvalidRequest, r.Tempo)
	}
	rate := r.rate(defaultRate)
	if rate <= 0 {
		return fmt.Errorf("%w: sample rate %d must be positive", ErrInvalidRequest, rate)
	}
	if r.Duration > math.MaxInt/rate/audio.Channels {
		return fmt.Errorf("%w: %ds at %d Hz overflows the sample count", ErrInvalidRequest, r.Duration, rate)
	}
	return nil
}

func (r Request) rate(defaultRate int) int {
	if r.SampleRate != 0 {
		return r.SampleRate
	}
	return defaultRate
}

// Synthesizer renders genre recipes. It holds no per-request state and is
// safe for concurrent use.
type Synthesizer struct {
	SampleRate int
	Log        logrus.FieldLogger
}

// New creates a synthesizer with a default sample rate.
func New(sampleRate int, log logrus.FieldLogger) *Synthesizer {
	if sampleRate <= 0 {
		sampleRate = audio.DefaultSampleRate
	}
	return &Synthesizer{SampleRate: sampleRate, Log: logging.OrDiscard(log)}
}

// Synthesize renders req into a new stereo buffer of exactly
// Duration*SampleRate frames. Both channels carry the same mono mix and no
// sample is clipped. The context is checked once per second of output.
func (s *Synthesizer) Synthesize(ctx context.Context, req Request) (*audio.Buffer, error) {
	if err := req.Validate(s.SampleRate); err != nil {
		return nil, err
	}
	g := req.Genre
	if !g.valid() {
		g = Electronic
	}

	rate := req.rate(s.SampleRate)
	frames := req.Duration * rate
	c := &clock{
		rate:  rate,
		tempo: req.Tempo,
		spb:   max(1, int(float64(rate)/(float64(req.Tempo)/60))),
		noise: NewNoise(req.Seed),
	}

	for _, name := range req.Instruments {
		if _, ok := LookupInstrument(name); !ok {
			s.Log.WithField("instrument", name).Debug("Ignoring unknown instrument")
		}
	}

	start := time.Now()
	buf := audio.NewBuffer(frames, rate)
	render := recipes[g]
	for i := 0; i < frames; i++ {
		if i%rate == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		c.i = i
		c.t = float64(i) / float64(rate)
		v := float32(render(c))
		buf.Samples[i*audio.Channels] = v
		buf.Samples[i*audio.Channels+1] = v
	}

	s.Log.WithFields(logrus.Fields{
		"genre":   g.String(),
		"tempo":   req.Tempo,
		"frames":  frames,
		"elapsed": time.Since(start).Round(time.Millisecond),
	}).Debug("Synthesis complete")
	return buf, nil
}
