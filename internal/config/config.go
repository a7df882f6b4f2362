package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/satindergrewal/tonesmith/internal/audio"
)

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// Config holds all runtime configuration, loaded from environment variables.
type Config struct {
	// Server
	Port        int
	MaxDuration int // seconds, largest duration the HTTP API accepts

	// Files
	InputDir    string // remix inputs named over HTTP resolve inside this dir
	OutputDir   string
	SampleRate  int
	Format      string // default container id, see audio.ParseFormat
	OpusBitrate int    // bits per second

	// Codecs
	Transcoder string // MP3 encode: stub or ffmpeg
	MP3Decoder string // MP3 input: stub, native or ffmpeg
	FFmpeg     string // ffmpeg binary

	// Jobs
	Workers    int
	QueueSize  int
	JobTimeout time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment variables with sane defaults.
func Load() Config {
	return Config{
		Port:        envInt("TONESMITH_PORT", 8080),
		MaxDuration: envInt("TONESMITH_MAX_DURATION", 600),

		InputDir:    envStr("TONESMITH_INPUT_DIR", "./input"),
		OutputDir:   envStr("TONESMITH_OUTPUT_DIR", "./output"),
		SampleRate:  envInt("TONESMITH_SAMPLE_RATE", audio.DefaultSampleRate),
		Format:      envStr("TONESMITH_FORMAT", "wav32"),
		OpusBitrate: envInt("TONESMITH_OPUS_BITRATE", 128000),

		Transcoder: envStr("TONESMITH_TRANSCODER", "stub"),
		MP3Decoder: envStr("TONESMITH_MP3_DECODER", "stub"),
		FFmpeg:     envStr("TONESMITH_FFMPEG", "ffmpeg"),

		Workers:    envInt("TONESMITH_WORKERS", 2),
		QueueSize:  envInt("TONESMITH_QUEUE_SIZE", 16),
		JobTimeout: time.Duration(envFloat("TONESMITH_JOB_TIMEOUT", 10) * float64(time.Minute)),

		LogLevel:  envStr("TONESMITH_LOG_LEVEL", "info"),
		LogFormat: envStr("TONESMITH_LOG_FORMAT", "text"),
	}
}

// Validate rejects values that would only fail later, at request time.
func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("TONESMITH_SAMPLE_RATE %d must be positive", c.SampleRate)
	}
	if _, err := audio.ParseFormat(c.Format); err != nil {
		return fmt.Errorf("TONESMITH_FORMAT: %w", err)
	}
	switch c.Transcoder {
	case "stub", "ffmpeg":
	default:
		return fmt.Errorf("TONESMITH_TRANSCODER %q: want stub or ffmpeg", c.Transcoder)
	}
	switch c.MP3Decoder {
	case "stub", "native", "ffmpeg":
	default:
		return fmt.Errorf("TONESMITH_MP3_DECODER %q: want stub, native or ffmpeg", c.MP3Decoder)
	}
	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
