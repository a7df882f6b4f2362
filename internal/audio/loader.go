package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"
	"github.com/satindergrewal/tonesmith/internal/logging"
	"github.com/sirupsen/logrus"
)

// Placeholder decoder constants.
const (
	StubMP3BytesPerSecond = 16000 // duration estimate for undecoded MP3 input
	StubToneHz            = 440.0
	StubAmplitude         = 0.5
	StubMIDISeconds       = 30
	StubMIDIDecay         = 0.1
)

const resampleQuality = 4

// Notice records a placeholder codec standing in for a real one.
type Notice struct {
	Codec  string
	Detail string
}

func (n Notice) String() string { return n.Codec + ": " + n.Detail }

// MP3Decoder turns an MP3 file into samples at the requested rate.
type MP3Decoder interface {
	DecodeMP3(ctx context.Context, path string, sampleRate int) (*Buffer, []Notice, error)
}

// SupportedInput reports whether the loader accepts path's extension.
func SupportedInput(path string) bool {
	switch inputExt(path) {
	case "wav", "mp3", "mid", "midi":
		return true
	}
	return false
}

func inputExt(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}

// Loader reads remix input files into buffers at a fixed engine rate.
type Loader struct {
	SampleRate int
	MP3        MP3Decoder
	Log        logrus.FieldLogger
}

// NewLoader creates a loader. A nil decoder selects the placeholder MP3 path.
func NewLoader(sampleRate int, dec MP3Decoder, log logrus.FieldLogger) *Loader {
	if dec == nil {
		dec = StubMP3Decoder{}
	}
	return &Loader{SampleRate: sampleRate, MP3: dec, Log: logging.OrDiscard(log)}
}

// Load dispatches on the file extension.
func (l *Loader) Load(ctx context.Context, path string) (*Buffer, []Notice, error) {
	switch ext := inputExt(path); ext {
	case "wav":
		buf, err := l.loadWAV(path)
		return buf, nil, err
	case "mp3":
		return l.MP3.DecodeMP3(ctx, path, l.SampleRate)
	case "mid", "midi":
		if _, err := os.Stat(path); err != nil {
			return nil, nil, fmt.Errorf("stat %s: %w", path, err)
		}
		notice := Notice{
			Codec:  "midi-decode",
			Detail: fmt.Sprintf("MIDI is not parsed; substituted a %ds %.0f Hz decaying tone", StubMIDISeconds, StubToneHz),
		}
		return midiPlaceholder(l.SampleRate), []Notice{notice}, nil
	default:
		return nil, nil, fmt.Errorf("%w: input extension %q", ErrUnsupported, ext)
	}
}

// loadWAV decodes 16-bit PCM files through beep. Everything else takes the
// reference path: skip a fixed 44-byte header and read the remainder as
// little-endian float32, which matches WriteWAV32 exactly.
func (l *Loader) loadWAV(path string) (*Buffer, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if h, ok := parseHeader(raw); ok && h.formatCode == FormatPCM {
		buf, err := decodePCM(raw, l.SampleRate)
		if err == nil {
			return buf, nil
		}
		l.Log.WithError(err).WithField("path", path).Debug("PCM decode failed, reading raw float samples")
	}

	buf, bad := rawFloat(raw, l.SampleRate)
	if bad > 0 {
		l.Log.WithFields(logrus.Fields{"path": path, "samples": bad}).Warn("Replaced non-finite input samples with silence")
	}
	return buf, nil
}

// rawFloat reads whatever follows the header as float32, dropping a trailing
// partial frame. Non-finite values become 0; bad counts them.
func rawFloat(raw []byte, sampleRate int) (buf *Buffer, bad int) {
	data := raw[min(HeaderSize, len(raw)):]
	n := len(data) / 4
	n -= n % Channels

	buf = &Buffer{
		Samples:    make([]float32, n),
		SampleRate: sampleRate,
		Channels:   Channels,
	}
	for i := range buf.Samples {
		v := math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
		if f := float64(v); math.IsNaN(f) || math.IsInf(f, 0) {
			v = 0
			bad++
		}
		buf.Samples[i] = v
	}
	return buf, bad
}

func decodePCM(raw []byte, sampleRate int) (*Buffer, error) {
	s, format, err := wav.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return drain(s, format, sampleRate)
}

// drain reads a beep stream to the end, resampling to sampleRate if needed.
func drain(s beep.Streamer, format beep.Format, sampleRate int) (*Buffer, error) {
	if int(format.SampleRate) != sampleRate {
		s = beep.Resample(resampleQuality, format.SampleRate, beep.SampleRate(sampleRate), s)
	}

	buf := &Buffer{SampleRate: sampleRate, Channels: Channels}
	chunk := make([][2]float64, 4096)
	for {
		n, ok := s.Stream(chunk)
		for _, frame := range chunk[:n] {
			buf.Samples = append(buf.Samples, float32(frame[0]), float32(frame[1]))
		}
		if !ok {
			break
		}
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("decode stream: %w", err)
	}
	return buf, nil
}

// StubMP3Decoder does not decode: it returns a 440 Hz tone whose length is
// estimated from the file size.
type StubMP3Decoder struct{}

func (StubMP3Decoder) DecodeMP3(ctx context.Context, path string, sampleRate int) (*Buffer, []Notice, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, fmt.Errorf("stat %s: %w", path, err)
	}
	seconds := int(info.Size() / StubMP3BytesPerSecond)

	buf := NewBuffer(seconds*sampleRate, sampleRate)
	for i := 0; i < seconds*sampleRate; i++ {
		t := float64(i) / float64(sampleRate)
		v := float32(math.Sin(2*math.Pi*StubToneHz*t) * StubAmplitude)
		buf.Samples[i*Channels] = v
		buf.Samples[i*Channels+1] = v
	}

	notice := Notice{
		Codec:  "mp3-decode",
		Detail: fmt.Sprintf("MP3 is not decoded; substituted a %ds %.0f Hz tone estimated from %d bytes", seconds, StubToneHz, info.Size()),
	}
	return buf, []Notice{notice}, nil
}

// NativeMP3Decoder decodes in-process with beep/mp3.
type NativeMP3Decoder struct{}

func (NativeMP3Decoder) DecodeMP3(ctx context.Context, path string, sampleRate int) (*Buffer, []Notice, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	s, format, err := mp3.Decode(f)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("%w: mp3 %s: %v", ErrUnsupported, path, err)
	}
	defer s.Close()

	buf, err := drain(s, format, sampleRate)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: mp3 %s: %v", ErrUnsupported, path, err)
	}
	return buf, nil, nil
}

// FFmpegMP3Decoder decodes through an ffmpeg binary.
type FFmpegMP3Decoder struct {
	Bin string
	Run Runner
}

// NewFFmpegMP3Decoder returns a decoder using the given ffmpeg binary.
func NewFFmpegMP3Decoder(bin string) *FFmpegMP3Decoder {
	return &FFmpegMP3Decoder{Bin: bin, Run: ExecRunner}
}

func (d *FFmpegMP3Decoder) DecodeMP3(ctx context.Context, path string, sampleRate int) (*Buffer, []Notice, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, nil, fmt.Errorf("stat %s: %w", path, err)
	}
	buf, err := ffmpegDecode(ctx, d.Run, d.Bin, path, sampleRate)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	return buf, nil, nil
}

func midiPlaceholder(sampleRate int) *Buffer {
	frames := StubMIDISeconds * sampleRate
	buf := NewBuffer(frames, sampleRate)
	for i := 0; i < frames; i++ {
		t := float64(i) / float64(sampleRate)
		v := float32(math.Sin(2*math.Pi*StubToneHz*t) * math.Exp(-StubMIDIDecay*t) * StubAmplitude)
		buf.Samples[i*Channels] = v
		buf.Samples[i*Channels+1] = v
	}
	return buf
}
