package audio

import (
	"fmt"
	"io"
	"slices"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4/pkg/media/oggwriter"
	"gopkg.in/hraban/opus.v2"
)

const opusPayloadType = 111

var opusRates = []int{8000, 12000, 16000, 24000, 48000}

// opusRate picks the encoder rate and the integer decimation factor needed
// to reach it from sampleRate.
func opusRate(sampleRate int) (rate, factor int, err error) {
	if slices.Contains(opusRates, sampleRate) {
		return sampleRate, 1, nil
	}
	if sampleRate > OpusSampleRate && sampleRate%OpusSampleRate == 0 {
		return OpusSampleRate, sampleRate / OpusSampleRate, nil
	}
	return 0, 0, fmt.Errorf("%w: opus cannot encode %d Hz", ErrUnsupported, sampleRate)
}

// decimate averages each run of factor frames into one.
func decimate(b *Buffer, factor int) []float32 {
	if factor == 1 {
		return b.Samples
	}
	ch := b.Channels
	frames := b.Frames() / factor
	out := make([]float32, frames*ch)
	for f := 0; f < frames; f++ {
		for c := 0; c < ch; c++ {
			var sum float64
			for k := 0; k < factor; k++ {
				sum += float64(b.Samples[(f*factor+k)*ch+c])
			}
			out[f*ch+c] = float32(sum / float64(factor))
		}
	}
	return out
}

// noCloseWriter hides Close so the ogg writer leaves the file to its owner.
type noCloseWriter struct{ io.Writer }

// WriteOpus encodes b as Ogg Opus in 20 ms packets.
func WriteOpus(w io.Writer, b *Buffer, bitrate int) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if b.Channels != Channels {
		return fmt.Errorf("%w: opus export needs %d channels, got %d", ErrUnsupported, Channels, b.Channels)
	}
	rate, factor, err := opusRate(b.SampleRate)
	if err != nil {
		return err
	}

	enc, err := opus.NewEncoder(rate, Channels, opus.AppAudio)
	if err != nil {
		return fmt.Errorf("opus encoder: %w", err)
	}
	if err := enc.SetBitrate(bitrate); err != nil {
		return fmt.Errorf("opus bitrate %d: %w", bitrate, err)
	}

	ogg, err := oggwriter.NewWith(noCloseWriter{w}, uint32(rate), Channels)
	if err != nil {
		return fmt.Errorf("ogg writer: %w", err)
	}

	pcm := decimate(b, factor)
	frameSize := rate * int(OpusFrameDuration.Milliseconds()) / 1000
	// Ogg Opus granule positions count 48 kHz samples whatever the encoder rate.
	granuleStep := uint32(OpusSampleRate * int(OpusFrameDuration.Milliseconds()) / 1000)
	frameSamples := frameSize * Channels

	frame := make([]float32, frameSamples)
	packet := make([]byte, 4000)
	var seq uint16
	var ts uint32

	for off := 0; off < len(pcm); off += frameSamples {
		n := copy(frame, pcm[off:min(off+frameSamples, len(pcm))])
		clear(frame[n:]) // pad the final packet with silence

		size, err := enc.EncodeFloat32(frame, packet)
		if err != nil {
			return fmt.Errorf("opus encode: %w", err)
		}
		pkt := &rtp.Packet{
			Header: rtp.Header{
				Version:        2,
				PayloadType:    opusPayloadType,
				SequenceNumber: seq,
				Timestamp:      ts,
				SSRC:           1,
			},
			Payload: packet[:size],
		}
		if err := ogg.WriteRTP(pkt); err != nil {
			return fmt.Errorf("ogg page: %w", err)
		}
		seq++
		ts += granuleStep
	}
	return ogg.Close()
}
