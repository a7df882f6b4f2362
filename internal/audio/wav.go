package audio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/wav"
)

// WAV layout constants.
const (
	HeaderSize  = 44
	FormatPCM   = 1
	FormatFloat = 3
)

const maxRIFFData = math.MaxUint32 - (HeaderSize - 8)

// putHeader fills a canonical 44-byte RIFF/WAVE header.
func putHeader(h []byte, formatCode, channels, sampleRate, bitsPerSample, dataSize int) {
	blockAlign := channels * bitsPerSample / 8

	copy(h[0:4], "RIFF")
	binary.LittleEndian.PutUint32(h[4:8], uint32(36+dataSize))
	copy(h[8:12], "WAVE")

	copy(h[12:16], "fmt ")
	binary.LittleEndian.PutUint32(h[16:20], 16)
	binary.LittleEndian.PutUint16(h[20:22], uint16(formatCode))
	binary.LittleEndian.PutUint16(h[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(h[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(h[28:32], uint32(sampleRate*blockAlign))
	binary.LittleEndian.PutUint16(h[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(h[34:36], uint16(bitsPerSample))

	copy(h[36:40], "data")
	binary.LittleEndian.PutUint32(h[40:44], uint32(dataSize))
}

// WriteWAV32 writes b as an IEEE-float RIFF/WAVE stream: a 44-byte header
// followed by the raw little-endian float32 samples in buffer order.
func WriteWAV32(w io.Writer, b *Buffer) error {
	if err := b.Validate(); err != nil {
		return err
	}
	dataSize := len(b.Samples) * 4
	if dataSize > maxRIFFData {
		return fmt.Errorf("%w: %d bytes of sample data exceeds the RIFF size field", ErrUnsupported, dataSize)
	}

	bw := bufio.NewWriterSize(w, 64*1024)

	header := make([]byte, HeaderSize)
	putHeader(header, FormatFloat, b.Channels, b.SampleRate, 32, dataSize)
	if _, err := bw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	chunk := make([]byte, 4096*4)
	for off := 0; off < len(b.Samples); off += 4096 {
		end := min(off+4096, len(b.Samples))
		n := 0
		for _, s := range b.Samples[off:end] {
			binary.LittleEndian.PutUint32(chunk[n:], math.Float32bits(s))
			n += 4
		}
		if _, err := bw.Write(chunk[:n]); err != nil {
			return fmt.Errorf("write samples: %w", err)
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

// WriteWAV16 writes b as 16-bit PCM. Samples are clamped to [-1, 1] and
// scaled by 32768 with truncation toward zero; full scale saturates at 32767.
func WriteWAV16(w io.WriteSeeker, b *Buffer) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if len(b.Samples)*2 > maxRIFFData {
		return fmt.Errorf("%w: %d bytes of sample data exceeds the RIFF size field", ErrUnsupported, len(b.Samples)*2)
	}
	format := beep.Format{
		SampleRate:  beep.SampleRate(b.SampleRate),
		NumChannels: b.Channels,
		Precision:   2,
	}
	if err := wav.Encode(w, &bufferStreamer{buf: b}, format); err != nil {
		return fmt.Errorf("encode pcm16: %w", err)
	}
	return nil
}

// bufferStreamer exposes a Buffer as a beep.Streamer.
type bufferStreamer struct {
	buf *Buffer
	pos int
}

func (s *bufferStreamer) Stream(samples [][2]float64) (n int, ok bool) {
	frames := s.buf.Frames()
	if s.pos >= frames {
		return 0, false
	}
	ch := s.buf.Channels
	for n < len(samples) && s.pos < frames {
		base := s.pos * ch
		left := float64(s.buf.Samples[base])
		right := left
		if ch > 1 {
			right = float64(s.buf.Samples[base+1])
		}
		samples[n] = [2]float64{left, right}
		n++
		s.pos++
	}
	return n, true
}

func (s *bufferStreamer) Err() error { return nil }

// wavHeader is the subset of a canonical header the loader inspects.
type wavHeader struct {
	formatCode    int
	channels      int
	sampleRate    int
	bitsPerSample int
}

// parseHeader reads a canonical header. ok is false when raw does not start
// with RIFF/WAVE/fmt.
func parseHeader(raw []byte) (h wavHeader, ok bool) {
	if len(raw) < HeaderSize {
		return h, false
	}
	if string(raw[0:4]) != "RIFF" || string(raw[8:12]) != "WAVE" || string(raw[12:16]) != "fmt " {
		return h, false
	}
	h.formatCode = int(binary.LittleEndian.Uint16(raw[20:22]))
	h.channels = int(binary.LittleEndian.Uint16(raw[22:24]))
	h.sampleRate = int(binary.LittleEndian.Uint32(raw[24:28]))
	h.bitsPerSample = int(binary.LittleEndian.Uint16(raw[34:36]))
	return h, true
}
