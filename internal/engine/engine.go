// Package engine exposes the two public operations: synthesize a new track
// and remix an existing file. Each call owns its buffers and temporary files,
// so an Engine may serve concurrent requests.
package engine

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/satindergrewal/tonesmith/internal/audio"
	"github.com/satindergrewal/tonesmith/internal/logging"
	"github.com/satindergrewal/tonesmith/internal/mastering"
	"github.com/satindergrewal/tonesmith/internal/remix"
	"github.com/satindergrewal/tonesmith/internal/synth"
	"github.com/sirupsen/logrus"
)

// Output subdirectories under Config.OutputDir.
const (
	GeneratedDir = "generated"
	RemixDir     = "remixes"
)

// Config is fixed for the lifetime of an Engine.
type Config struct {
	SampleRate  int              // synthesis and load rate; 0 means audio.DefaultSampleRate
	Format      audio.Format     // used when a request names none
	OutputDir   string           // root for GeneratedDir and RemixDir
	Transcoder  audio.Transcoder // nil keeps the MP3 copy stub
	MP3Decoder  audio.MP3Decoder // nil keeps the MP3 placeholder tone
	OpusBitrate int
	Log         logrus.FieldLogger
}

// Engine runs generate and remix requests.
type Engine struct {
	cfg    Config
	log    logrus.FieldLogger
	synth  *synth.Synthesizer
	remix  *remix.Processor
	loader *audio.Loader
	writer *audio.Serializer
	master mastering.Chain
}

// New creates an engine.
func New(cfg Config) *Engine {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = audio.DefaultSampleRate
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "output"
	}
	if cfg.OpusBitrate <= 0 {
		cfg.OpusBitrate = 128000
	}
	log := logging.OrDiscard(cfg.Log)

	return &Engine{
		cfg:    cfg,
		log:    log,
		synth:  synth.New(cfg.SampleRate, log),
		remix:  remix.New(log),
		loader: audio.NewLoader(cfg.SampleRate, cfg.MP3Decoder, log),
		writer: audio.NewSerializer(cfg.Transcoder, cfg.OpusBitrate, log),
		master: mastering.Default,
	}
}

// Generate synthesizes, masters and writes a track.
func (e *Engine) Generate(ctx context.Context, req GenerateRequest) (*Result, error) {
	const op = "generate"

	genre, known := synth.ParseGenre(req.Genre)
	if !known && req.Genre != "" {
		e.log.WithField("genre", req.Genre).Info("Unknown genre, using electronic")
	}
	format, err := e.format(req.Format)
	if err != nil {
		return nil, newError(op, ErrInvalidRequest, err)
	}

	buf, err := e.synth.Synthesize(ctx, synth.Request{
		Genre:       genre,
		Instruments: req.Instruments,
		Tempo:       req.Tempo,
		Duration:    req.Duration,
		SampleRate:  req.SampleRate,
		Seed:        req.Seed,
	})
	if err != nil {
		return nil, classify(op, err)
	}
	buf = e.master.Process(buf)

	id := uuid.NewString()
	dir := cmp.Or(req.OutputDir, filepath.Join(e.cfg.OutputDir, GeneratedDir))
	path := filepath.Join(dir, outputName("generated_music", id, format))

	res, err := e.write(ctx, op, buf, format, path)
	if err != nil {
		return nil, err
	}
	res.ID = id
	res.Title = synth.TrackTitle(genre, id)
	res.Genre = genre.String()

	e.log.WithFields(logrus.Fields{
		"id":       id,
		"genre":    res.Genre,
		"tempo":    req.Tempo,
		"duration": req.Duration,
		"format":   format.String(),
		"path":     res.Path,
	}).Info("Track generated")
	return res, nil
}

// Remix loads, transforms, masters and writes a remix of req.InputPath.
func (e *Engine) Remix(ctx context.Context, req RemixRequest) (*Result, error) {
	const op = "remix"

	if req.InputPath == "" {
		return nil, newError(op, ErrInvalidRequest, errors.New("input path is empty"))
	}
	if !audio.SupportedInput(req.InputPath) {
		return nil, newError(op, ErrUnsupportedFormat,
			fmt.Errorf("input %s: want .wav, .mp3, .mid or .midi", filepath.Base(req.InputPath)))
	}
	style, err := remix.ParseStyle(req.Style)
	if err != nil {
		return nil, classify(op, err)
	}
	rr := remixParams(style, req)
	if err := rr.Validate(); err != nil {
		return nil, classify(op, err)
	}
	format, err := e.format(req.Format)
	if err != nil {
		return nil, newError(op, ErrInvalidRequest, err)
	}

	in, notices, err := e.loader.Load(ctx, req.InputPath)
	if err != nil {
		return nil, classify(op, err)
	}
	e.warn(req.InputPath, notices)

	out, err := e.remix.Process(ctx, in, rr)
	if err != nil {
		return nil, classify(op, err)
	}
	out = e.master.Process(out)

	id := uuid.NewString()
	dir := cmp.Or(req.OutputDir, filepath.Join(e.cfg.OutputDir, RemixDir))
	path := filepath.Join(dir, outputName("remix", id, format))

	res, err := e.write(ctx, op, out, format, path)
	if err != nil {
		return nil, err
	}
	res.ID = id
	res.Style = style.String()
	res.Title = style.Info().Name + " remix of " + strings.TrimSuffix(filepath.Base(req.InputPath), filepath.Ext(req.InputPath))
	res.Warnings = append(noticeStrings(notices), res.Warnings...)

	e.log.WithFields(logrus.Fields{
		"id":     id,
		"style":  res.Style,
		"input":  req.InputPath,
		"format": format.String(),
		"path":   res.Path,
	}).Info("Remix written")
	return res, nil
}

// remixParams fills unset effect amounts from the style preset.
func remixParams(s remix.Style, req RemixRequest) remix.Request {
	r := remix.NewRequest(s)
	set := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	set(&r.BassBoost, req.BassBoost)
	set(&r.TrebleBoost, req.TrebleBoost)
	set(&r.Reverb, req.Reverb)
	set(&r.Delay, req.Delay)
	set(&r.Distortion, req.Distortion)
	return r
}

func (e *Engine) format(id string) (audio.Format, error) {
	if id == "" {
		return e.cfg.Format, nil
	}
	return audio.ParseFormat(id)
}

// write serializes buf and describes the result. On failure nothing is left
// at path.
func (e *Engine) write(ctx context.Context, op string, buf *audio.Buffer, f audio.Format, path string) (*Result, error) {
	notices, err := e.writer.Write(ctx, buf, f, path)
	if err != nil {
		return nil, classify(op, err)
	}
	e.warn(path, notices)

	info, err := os.Stat(path)
	if err != nil {
		return nil, classify(op, err)
	}
	return &Result{
		Path:       path,
		Format:     f,
		SampleRate: buf.SampleRate,
		Channels:   buf.Channels,
		BitDepth:   f.BitDepth(),
		Frames:     buf.Frames(),
		Duration:   buf.Duration(),
		Size:       info.Size(),
		Warnings:   noticeStrings(notices),
		CreatedAt:  time.Now(),
	}, nil
}

func (e *Engine) warn(path string, notices []audio.Notice) {
	for _, n := range notices {
		e.log.WithFields(logrus.Fields{"path": path, "codec": n.Codec}).Warn(n.Detail)
	}
}

func noticeStrings(notices []audio.Notice) []string {
	var out []string
	for _, n := range notices {
		out = append(out, n.String())
	}
	return out
}

// outputName is <prefix>_<unix-ms>_<first 8 of id>.<ext>.
func outputName(prefix, id string, f audio.Format) string {
	return fmt.Sprintf("%s_%d_%s.%s", prefix, time.Now().UnixMilli(), id[:8], f.Extension())
}
