package engine

import (
	"time"

	"github.com/satindergrewal/tonesmith/internal/audio"
)

// GenerateRequest asks for a new synthesized track. Empty fields take the
// engine defaults: Electronic genre, the configured format, sample rate and
// output directory.
type GenerateRequest struct {
	Genre       string   `json:"genre"`
	Instruments []string `json:"instruments,omitempty"`
	Tempo       int      `json:"tempo"`
	Duration    int      `json:"duration"` // seconds
	Format      string   `json:"format,omitempty"`
	SampleRate  int      `json:"sample_rate,omitempty"`
	Seed        uint64   `json:"seed,omitempty"`
	OutputDir   string   `json:"output_dir,omitempty"`
}

// RemixRequest asks for a remix of an existing file. Nil effect amounts are
// filled from the style's preset.
type RemixRequest struct {
	InputPath   string   `json:"input_path"`
	Style       string   `json:"style"`
	BassBoost   *float64 `json:"bass_boost,omitempty"`
	TrebleBoost *float64 `json:"treble_boost,omitempty"`
	Reverb      *float64 `json:"reverb,omitempty"`
	Delay       *float64 `json:"delay,omitempty"`
	Distortion  *float64 `json:"distortion,omitempty"`
	Format      string   `json:"format,omitempty"`
	OutputDir   string   `json:"output_dir,omitempty"`
}

// Result describes a written file.
type Result struct {
	ID         string        `json:"id"`
	Path       string        `json:"path"`
	Title      string        `json:"title"`
	Format     audio.Format  `json:"format"`
	SampleRate int           `json:"sample_rate"`
	Channels   int           `json:"channels"`
	BitDepth   int           `json:"bit_depth,omitempty"`
	Frames     int           `json:"frames"`
	Duration   time.Duration `json:"duration"`
	Size       int64         `json:"size"`
	Genre      string        `json:"genre,omitempty"`
	Style      string        `json:"style,omitempty"`
	Warnings   []string      `json:"warnings,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
}
