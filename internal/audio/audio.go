package audio

import (
	"errors"
	"fmt"
	"time"
)

const (
	DefaultSampleRate = 96000 // synthesis output rate
	Channels          = 2
	OpusSampleRate    = 48000
	OpusFrameDuration = 20 * time.Millisecond
)

// ErrUnsupported is returned when a container cannot be read or produced.
var ErrUnsupported = errors.New("unsupported audio format")

// Buffer is an interleaved float32 sample buffer. A Buffer has exactly one
// owner at a time: stages that take a *Buffer and return it have consumed it.
type Buffer struct {
	Samples    []float32
	SampleRate int
	Channels   int
}

// NewBuffer allocates a zeroed stereo buffer holding frames sample frames.
func NewBuffer(frames, sampleRate int) *Buffer {
	return &Buffer{
		Samples:    make([]float32, frames*Channels),
		SampleRate: sampleRate,
		Channels:   Channels,
	}
}

// Frames returns the number of sample frames (samples per channel).
func (b *Buffer) Frames() int {
	if b.Channels <= 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

// Duration returns the playback length of the buffer.
func (b *Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(b.Frames()) * time.Second / time.Duration(b.SampleRate)
}

// Clone returns a deep copy.
func (b *Buffer) Clone() *Buffer {
	samples := make([]float32, len(b.Samples))
	copy(samples, b.Samples)
	return &Buffer{Samples: samples, SampleRate: b.SampleRate, Channels: b.Channels}
}

// Validate checks the interleaving invariant.
func (b *Buffer) Validate() error {
	if b.Channels <= 0 {
		return fmt.Errorf("buffer has %d channels", b.Channels)
	}
	if b.SampleRate <= 0 {
		return fmt.Errorf("buffer has sample rate %d", b.SampleRate)
	}
	if len(b.Samples)%b.Channels != 0 {
		return fmt.Errorf("buffer length %d is not a multiple of %d channels", len(b.Samples), b.Channels)
	}
	return nil
}
