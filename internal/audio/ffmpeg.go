package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"strconv"
)

// MaxMP3Bitrate is the highest bitrate the MP3 format defines (kbps).
const MaxMP3Bitrate = 320

// Runner executes an external command and returns its stdout.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs the command with os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Transcoder converts a 32-bit float WAV file into an MP3 file.
type Transcoder interface {
	Transcode(ctx context.Context, srcWAV, dst string, kbps int) error
	// Stub reports whether the output is a relabelled copy rather than a real encode.
	Stub() bool
}

// CopyTranscoder writes the WAV bytes unchanged to dst. The result is a WAV
// file carrying an .mp3 extension.
type CopyTranscoder struct{}

func (CopyTranscoder) Stub() bool { return true }

func (CopyTranscoder) Transcode(ctx context.Context, srcWAV, dst string, kbps int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, err := os.Open(srcWAV)
	if err != nil {
		return fmt.Errorf("open %s: %w", srcWAV, err)
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return fmt.Errorf("copy to %s: %w", dst, err)
	}
	return out.Close()
}

// FFmpegTranscoder encodes with libmp3lame through an ffmpeg binary.
type FFmpegTranscoder struct {
	Bin string
	Run Runner
}

// NewFFmpegTranscoder returns a transcoder using the given ffmpeg binary.
func NewFFmpegTranscoder(bin string) *FFmpegTranscoder {
	return &FFmpegTranscoder{Bin: bin, Run: ExecRunner}
}

func (t *FFmpegTranscoder) Stub() bool { return false }

func (t *FFmpegTranscoder) Transcode(ctx context.Context, srcWAV, dst string, kbps int) error {
	kbps = min(kbps, MaxMP3Bitrate)
	_, err := t.Run(ctx, t.Bin,
		"-y",
		"-i", srcWAV,
		"-codec:a", "libmp3lame",
		"-b:a", strconv.Itoa(kbps)+"k",
		"-f", "mp3",
		"-loglevel", "error",
		dst,
	)
	if err != nil {
		return fmt.Errorf("ffmpeg encode %s: %w", dst, err)
	}
	return nil
}

// ffmpegDecode decodes any input ffmpeg understands into interleaved stereo
// float32 at sampleRate.
func ffmpegDecode(ctx context.Context, run Runner, bin, path string, sampleRate int) (*Buffer, error) {
	out, err := run(ctx, bin,
		"-i", path,
		"-f", "f32le",
		"-acodec", "pcm_f32le",
		"-ar", strconv.Itoa(sampleRate),
		"-ac", strconv.Itoa(Channels),
		"-loglevel", "error",
		"pipe:1",
	)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg decode %s: %w", path, err)
	}

	// Whole frames only
	frameBytes := 4 * Channels
	out = out[:len(out)-len(out)%frameBytes]

	buf := &Buffer{
		Samples:    make([]float32, len(out)/4),
		SampleRate: sampleRate,
		Channels:   Channels,
	}
	for i := range buf.Samples {
		buf.Samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(out[i*4:]))
	}
	return buf, nil
}
