package engine

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/satindergrewal/tonesmith/internal/audio"
	"github.com/satindergrewal/tonesmith/internal/remix"
)

const testRate = 8000

func newTestEngine(t *testing.T) (*Engine, string) {
	t.Helper()
	dir := t.TempDir()
	return New(Config{SampleRate: testRate, OutputDir: dir}), dir
}

func ptr(v float64) *float64 { return &v }

// writeTone writes a 32-bit float WAV holding a stereo sine.
func writeTone(t *testing.T, path string, freq float64, frames int) {
	t.Helper()
	b := audio.NewBuffer(frames, testRate)
	for i := 0; i < frames; i++ {
		v := float32(math.Sin(2*math.Pi*freq*float64(i)/testRate) * 0.5)
		b.Samples[2*i], b.Samples[2*i+1] = v, v
	}
	fh, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer fh.Close()
	if err := audio.WriteWAV32(fh, b); err != nil {
		t.Fatal(err)
	}
}

func files(t *testing.T, dir string) []string {
	t.Helper()
	var out []string
	filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			out = append(out, path)
		}
		return nil
	})
	return out
}

// --- Generate ---

func TestGenerateElectronicFiveSeconds(t *testing.T) {
	dir := t.TempDir()
	e := New(Config{OutputDir: dir})

	res, err := e.Generate(context.Background(), GenerateRequest{Genre: "Electronic", Tempo: 120, Duration: 5})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.SampleRate != 96000 || res.Channels != 2 || res.BitDepth != 32 || res.Format != audio.WAV32 {
		t.Errorf("result = %+v", res)
	}
	if res.Frames*res.Channels != 960000 {
		t.Errorf("samples = %d, want 960000", res.Frames*res.Channels)
	}
	if res.Genre != "electronic" || res.Title == "" {
		t.Errorf("genre %q title %q", res.Genre, res.Title)
	}
	if filepath.Dir(res.Path) != filepath.Join(dir, GeneratedDir) {
		t.Errorf("path = %s, want it under %s", res.Path, GeneratedDir)
	}
	if !strings.HasPrefix(filepath.Base(res.Path), "generated_music_") || filepath.Ext(res.Path) != ".wav" {
		t.Errorf("file name = %s", filepath.Base(res.Path))
	}

	raw, err := os.ReadFile(res.Path)
	if err != nil {
		t.Fatal(err)
	}
	if got := binary.LittleEndian.Uint32(raw[40:44]); got != 3840000 {
		t.Errorf("data chunk size = %d, want 3840000", got)
	}
	if got := binary.LittleEndian.Uint16(raw[20:22]); got != audio.FormatFloat {
		t.Errorf("format code = %d, want %d", got, audio.FormatFloat)
	}
	if res.Size != int64(len(raw)) || len(raw) != audio.HeaderSize+3840000 {
		t.Errorf("size = %d (file %d), want %d", res.Size, len(raw), audio.HeaderSize+3840000)
	}
	for i := audio.HeaderSize; i < len(raw); i += 4 * 997 {
		v := math.Float32frombits(binary.LittleEndian.Uint32(raw[i:]))
		if math.Abs(float64(v)) > 0.95 {
			t.Fatalf("sample at byte %d = %v exceeds the limiter ceiling", i, v)
		}
	}
}

func TestGenerateWAV16(t *testing.T) {
	e, _ := newTestEngine(t)
	res, err := e.Generate(context.Background(), GenerateRequest{Genre: "jazz", Tempo: 100, Duration: 1, Format: "wav16"})
	if err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(res.Path)
	if err != nil {
		t.Fatal(err)
	}
	if want := int64(audio.HeaderSize + testRate*2*2); info.Size() != want {
		t.Errorf("size = %d, want %d", info.Size(), want)
	}
	if res.BitDepth != 16 {
		t.Errorf("BitDepth = %d, want 16", res.BitDepth)
	}
}

func TestGenerateMP3Stub(t *testing.T) {
	e, dir := newTestEngine(t)
	res, err := e.Generate(context.Background(), GenerateRequest{Genre: "rock", Tempo: 140, Duration: 1, Format: "mp3_512"})
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Ext(res.Path) != ".mp3" {
		t.Errorf("path = %s, want .mp3", res.Path)
	}
	if len(res.Warnings) != 1 || !strings.HasPrefix(res.Warnings[0], "mp3-encode") {
		t.Errorf("warnings = %v, want one mp3-encode warning", res.Warnings)
	}
	if got := files(t, dir); len(got) != 1 {
		t.Errorf("files = %v, want only the output", got)
	}
}

func TestGenerateOutputDirOverride(t *testing.T) {
	e, _ := newTestEngine(t)
	dir := filepath.Join(t.TempDir(), "a", "b")
	res, err := e.Generate(context.Background(), GenerateRequest{Tempo: 120, Duration: 1, OutputDir: dir})
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Dir(res.Path) != dir {
		t.Errorf("path = %s, want it in %s", res.Path, dir)
	}
	if res.Genre != "electronic" {
		t.Errorf("empty genre resolved to %q, want electronic", res.Genre)
	}
}

func TestGenerateInvalid(t *testing.T) {
	tests := []struct {
		name string
		req  GenerateRequest
	}{
		{"zero duration", GenerateRequest{Tempo: 120, Duration: 0}},
		{"negative tempo", GenerateRequest{Tempo: -1, Duration: 5}},
		{"zero tempo", GenerateRequest{Tempo: 0, Duration: 5}},
		{"unknown format", GenerateRequest{Tempo: 120, Duration: 1, Format: "flac"}},
	}
	for _, tt := range tests {
		e, dir := newTestEngine(t)
		res, err := e.Generate(context.Background(), tt.req)
		if !errors.Is(err, ErrInvalidRequest) {
			t.Errorf("%s: error = %v, want ErrInvalidRequest", tt.name, err)
		}
		if errors.Is(err, ErrIO) || errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("%s: error %v matches more than one kind", tt.name, err)
		}
		var ee *Error
		if !errors.As(err, &ee) || ee.Op != "generate" {
			t.Errorf("%s: error %v is not an *Error from generate", tt.name, err)
		}
		if res != nil {
			t.Errorf("%s: got a result", tt.name)
		}
		if got := files(t, dir); len(got) != 0 {
			t.Errorf("%s: files written: %v", tt.name, got)
		}
	}
}

func TestGenerateUnwritableDir(t *testing.T) {
	e, dir := newTestEngine(t)
	blocker := filepath.Join(dir, "file")
	os.WriteFile(blocker, nil, 0o644)

	_, err := e.Generate(context.Background(), GenerateRequest{Tempo: 120, Duration: 1, OutputDir: filepath.Join(blocker, "sub")})
	if !errors.Is(err, ErrIO) {
		t.Errorf("error = %v, want ErrIO", err)
	}
}

func TestGenerateCancelled(t *testing.T) {
	e, dir := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Generate(ctx, GenerateRequest{Tempo: 120, Duration: 2})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if got := files(t, dir); len(got) != 0 {
		t.Errorf("files written: %v", got)
	}
}

// --- Remix ---

func TestRemixWAV(t *testing.T) {
	e, dir := newTestEngine(t)
	in := filepath.Join(t.TempDir(), "loop.wav")
	writeTone(t, in, 100, testRate)

	res, err := e.Remix(context.Background(), RemixRequest{InputPath: in, Style: "trap"})
	if err != nil {
		t.Fatalf("Remix: %v", err)
	}
	if res.Frames != testRate {
		t.Errorf("Frames = %d, want %d", res.Frames, testRate)
	}
	if res.Style != "trap" || res.Title != "Trap remix of loop" {
		t.Errorf("style %q title %q", res.Style, res.Title)
	}
	if filepath.Dir(res.Path) != filepath.Join(dir, RemixDir) || !strings.HasPrefix(filepath.Base(res.Path), "remix_") {
		t.Errorf("path = %s", res.Path)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("warnings = %v", res.Warnings)
	}
}

func TestRemixUnknownStyle(t *testing.T) {
	e, _ := newTestEngine(t)
	in := filepath.Join(t.TempDir(), "loop.wav")
	writeTone(t, in, 440, 4096)

	res, err := e.Remix(context.Background(), RemixRequest{InputPath: in, Style: "unknown_style_xyz", BassBoost: ptr(2)})
	if err != nil {
		t.Fatalf("Remix: %v", err)
	}
	if res.Style != "generic" {
		t.Errorf("Style = %q, want generic", res.Style)
	}
}

func TestRemixPlaceholderInputs(t *testing.T) {
	e, _ := newTestEngine(t)
	tmp := t.TempDir()
	mp3 := filepath.Join(tmp, "song.mp3")
	os.WriteFile(mp3, make([]byte, 2*audio.StubMP3BytesPerSecond), 0o644)
	mid := filepath.Join(tmp, "song.mid")
	os.WriteFile(mid, []byte("MThd"), 0o644)

	tests := []struct {
		path   string
		codec  string
		frames int
	}{
		{mp3, "mp3-decode", 2 * testRate},
		{mid, "midi-decode", audio.StubMIDISeconds * testRate},
	}
	for _, tt := range tests {
		res, err := e.Remix(context.Background(), RemixRequest{InputPath: tt.path, Style: "ambient"})
		if err != nil {
			t.Errorf("%s: %v", tt.path, err)
			continue
		}
		if len(res.Warnings) == 0 || !strings.HasPrefix(res.Warnings[0], tt.codec) {
			t.Errorf("%s: warnings = %v, want %s", tt.path, res.Warnings, tt.codec)
		}
		if res.Frames != tt.frames {
			t.Errorf("%s: frames = %d, want %d", tt.path, res.Frames, tt.frames)
		}
	}
}

func TestRemixErrors(t *testing.T) {
	tmp := t.TempDir()
	wav := filepath.Join(tmp, "ok.wav")
	writeTone(t, wav, 440, 3000)
	flac := filepath.Join(tmp, "song.flac")
	os.WriteFile(flac, []byte("fLaC"), 0o644)

	tests := []struct {
		name string
		req  RemixRequest
		kind error
	}{
		{"empty path", RemixRequest{}, ErrInvalidRequest},
		{"unsupported extension", RemixRequest{InputPath: flac}, ErrUnsupportedFormat},
		{"missing file", RemixRequest{InputPath: filepath.Join(tmp, "gone.wav")}, ErrIO},
		{"malformed style", RemixRequest{InputPath: wav, Style: "trap!!"}, ErrInvalidRequest},
		{"reverb out of range", RemixRequest{InputPath: wav, Reverb: ptr(2)}, ErrInvalidRequest},
		{"NaN bass", RemixRequest{InputPath: wav, BassBoost: ptr(math.NaN())}, ErrInvalidRequest},
		{"bad format", RemixRequest{InputPath: wav, Format: "aiff"}, ErrInvalidRequest},
	}
	for _, tt := range tests {
		e, dir := newTestEngine(t)
		_, err := e.Remix(context.Background(), tt.req)
		if !errors.Is(err, tt.kind) {
			t.Errorf("%s: error = %v, want %v", tt.name, err, tt.kind)
		}
		if got := files(t, dir); len(got) != 0 {
			t.Errorf("%s: files written: %v", tt.name, got)
		}
	}
}

func TestRemixParamsFromPreset(t *testing.T) {
	r := remixParams(remix.Dubstep, RemixRequest{TrebleBoost: ptr(0.25)})
	if r.BassBoost != 1.8 || r.TrebleBoost != 0.25 || r.Reverb != 0.4 {
		t.Errorf("params = %+v", r)
	}
}
