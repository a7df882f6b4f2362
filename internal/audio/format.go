package audio

import (
	"fmt"
	"strings"
)

// Format is an output container. It selects the serialization path only;
// samples stay float32 in memory regardless of format.
type Format int

const (
	WAV32 Format = iota
	WAV16
	MP3128
	MP3192
	MP3320
	MP3512
	Opus
)

type formatInfo struct {
	id        string
	display   string
	extension string
	quality   string
	kbps      int // nominal bitrate, 0 for PCM
	bitDepth  int
}

var formats = [...]formatInfo{
	WAV32:  {"wav32", "WAV 32-bit Float", "wav", "Studio Quality", 0, 32},
	WAV16:  {"wav16", "WAV 16-bit", "wav", "CD Quality", 0, 16},
	MP3128: {"mp3_128", "MP3 128 kbps", "mp3", "Standard", 128, 0},
	MP3192: {"mp3_192", "MP3 192 kbps", "mp3", "Good", 192, 0},
	MP3320: {"mp3_320", "MP3 320 kbps", "mp3", "High Quality", 320, 0},
	MP3512: {"mp3_512", "MP3 512 kbps", "mp3", "Ultra Quality", 512, 0},
	Opus:   {"opus", "Ogg Opus", "ogg", "Streaming", 0, 0},
}

// Formats returns every supported format in declaration order.
func Formats() []Format {
	out := make([]Format, len(formats))
	for i := range formats {
		out[i] = Format(i)
	}
	return out
}

// ParseFormat resolves a format id ("wav32", "mp3_320", ...). Matching is
// case-insensitive and accepts "-" in place of "_".
func ParseFormat(s string) (Format, error) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for i, f := range formats {
		if f.id == key {
			return Format(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupported, s)
}

func (f Format) valid() bool { return f >= 0 && int(f) < len(formats) }

func (f Format) String() string {
	if !f.valid() {
		return fmt.Sprintf("Format(%d)", int(f))
	}
	return formats[f].id
}

// DisplayName is the human-readable label, e.g. "MP3 320 kbps".
func (f Format) DisplayName() string {
	if !f.valid() {
		return f.String()
	}
	return formats[f].display
}

// Extension is the file extension without the dot.
func (f Format) Extension() string {
	if !f.valid() {
		return ""
	}
	return formats[f].extension
}

// Quality is the nominal quality tier label.
func (f Format) Quality() string {
	if !f.valid() {
		return ""
	}
	return formats[f].quality
}

// Bitrate returns the nominal MP3 bitrate in kbps, 0 for non-MP3 formats.
func (f Format) Bitrate() int {
	if !f.valid() {
		return 0
	}
	return formats[f].kbps
}

// BitDepth is the PCM sample width, 0 for compressed formats.
func (f Format) BitDepth() int {
	if !f.valid() {
		return 0
	}
	return formats[f].bitDepth
}

// IsMP3 reports whether the format goes through the MP3 transcode path.
func (f Format) IsMP3() bool { return f.Bitrate() > 0 }

func (f Format) MarshalText() ([]byte, error) {
	if !f.valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnsupported, int(f))
	}
	return []byte(f.String()), nil
}

func (f *Format) UnmarshalText(text []byte) error {
	parsed, err := ParseFormat(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
