package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/satindergrewal/tonesmith/internal/audio"
	"github.com/satindergrewal/tonesmith/internal/config"
	"github.com/satindergrewal/tonesmith/internal/engine"
	"github.com/satindergrewal/tonesmith/internal/jobs"
	"github.com/satindergrewal/tonesmith/internal/logging"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tonesmith: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	format, _ := audio.ParseFormat(cfg.Format)

	log.WithFields(logrus.Fields{
		"port":        cfg.Port,
		"input":       cfg.InputDir,
		"output":      cfg.OutputDir,
		"sample_rate": cfg.SampleRate,
		"format":      format.String(),
		"transcoder":  cfg.Transcoder,
		"mp3_decoder": cfg.MP3Decoder,
		"workers":     cfg.Workers,
	}).Info("Tonesmith starting")

	eng := engine.New(engine.Config{
		SampleRate:  cfg.SampleRate,
		Format:      format,
		OutputDir:   cfg.OutputDir,
		Transcoder:  transcoder(cfg),
		MP3Decoder:  mp3Decoder(cfg),
		OpusBitrate: cfg.OpusBitrate,
		Log:         log,
	})

	queue := jobs.New[*engine.Result](jobs.Config{
		Workers:   cfg.Workers,
		QueueSize: cfg.QueueSize,
		Timeout:   cfg.JobTimeout,
		Log:       log.WithField("component", "jobs"),
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	queueDone := make(chan struct{})
	go func() {
		defer close(queueDone)
		queue.Run(ctx)
	}()

	srv := &server{
		engine:      eng,
		queue:       queue,
		maxDuration: cfg.MaxDuration,
		inputDir:    cfg.InputDir,
		log:         log.WithField("component", "http"),
	}
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Info("Shutting down...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Infof("Listening on http://localhost:%d", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server error: %v", err)
	}

	<-queueDone
	log.Info("Stopped")
}

func transcoder(cfg config.Config) audio.Transcoder {
	if cfg.Transcoder == "ffmpeg" {
		return audio.NewFFmpegTranscoder(cfg.FFmpeg)
	}
	return nil
}

func mp3Decoder(cfg config.Config) audio.MP3Decoder {
	switch cfg.MP3Decoder {
	case "native":
		return audio.NativeMP3Decoder{}
	case "ffmpeg":
		return audio.NewFFmpegMP3Decoder(cfg.FFmpeg)
	}
	return nil
}
