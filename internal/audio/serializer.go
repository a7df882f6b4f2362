package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/satindergrewal/tonesmith/internal/logging"
	"github.com/sirupsen/logrus"
)

// Serializer writes buffers to disk. Output goes to a temporary name in the
// destination directory and is renamed into place only on success, so a
// path returned without error always holds a complete file.
type Serializer struct {
	Transcoder  Transcoder
	OpusBitrate int
	Log         logrus.FieldLogger
}

// NewSerializer creates a serializer. A nil transcoder selects CopyTranscoder.
func NewSerializer(t Transcoder, opusBitrate int, log logrus.FieldLogger) *Serializer {
	if t == nil {
		t = CopyTranscoder{}
	}
	return &Serializer{Transcoder: t, OpusBitrate: opusBitrate, Log: logging.OrDiscard(log)}
}

// Write serializes b to path in the given format, creating parent directories.
func (s *Serializer) Write(ctx context.Context, b *Buffer, f Format, path string) ([]Notice, error) {
	if !f.valid() {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, f)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}

	part := tempName(path, ".part")
	notices, err := s.writeTo(ctx, b, f, part)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		os.Remove(part)
		return nil, err
	}
	if err := os.Rename(part, path); err != nil {
		os.Remove(part)
		return nil, fmt.Errorf("rename %s: %w", path, err)
	}

	s.Log.WithFields(logrus.Fields{
		"path":    path,
		"format":  f.String(),
		"samples": len(b.Samples),
	}).Debug("Audio written")
	return notices, nil
}

func (s *Serializer) writeTo(ctx context.Context, b *Buffer, f Format, path string) ([]Notice, error) {
	switch {
	case f == WAV32:
		return nil, writeFile(path, func(fh *os.File) error { return WriteWAV32(fh, b) })
	case f == WAV16:
		return nil, writeFile(path, func(fh *os.File) error { return WriteWAV16(fh, b) })
	case f == Opus:
		return nil, writeFile(path, func(fh *os.File) error { return WriteOpus(fh, b, s.OpusBitrate) })
	case f.IsMP3():
		return s.writeMP3(ctx, b, f, path)
	}
	return nil, fmt.Errorf("%w: %v", ErrUnsupported, f)
}

// writeMP3 renders an intermediate float WAV and transcodes it. The
// intermediate file is removed on every path.
func (s *Serializer) writeMP3(ctx context.Context, b *Buffer, f Format, path string) ([]Notice, error) {
	wavPath := tempName(path, ".tmp.wav")
	defer os.Remove(wavPath)

	if err := writeFile(wavPath, func(fh *os.File) error { return WriteWAV32(fh, b) }); err != nil {
		return nil, err
	}
	if err := s.Transcoder.Transcode(ctx, wavPath, path, f.Bitrate()); err != nil {
		return nil, err
	}
	if !s.Transcoder.Stub() {
		return nil, nil
	}

	s.Log.WithFields(logrus.Fields{"path": path, "format": f.String()}).Warn("MP3 encoder stub: output is WAV data with an .mp3 extension")
	return []Notice{{
		Codec:  "mp3-encode",
		Detail: fmt.Sprintf("no MP3 encoder configured; %s contains 32-bit float WAV data", filepath.Base(path)),
	}}, nil
}

func writeFile(path string, fn func(*os.File) error) error {
	fh, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := fn(fh); err != nil {
		fh.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := fh.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

// tempName returns a unique hidden sibling of path.
func tempName(path, suffix string) string {
	dir, base := filepath.Split(path)
	return filepath.Join(dir, "."+base+"-"+uuid.NewString()[:8]+suffix)
}
