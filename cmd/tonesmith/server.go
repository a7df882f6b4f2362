package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/satindergrewal/tonesmith/internal/audio"
	"github.com/satindergrewal/tonesmith/internal/engine"
	"github.com/satindergrewal/tonesmith/internal/jobs"
	"github.com/satindergrewal/tonesmith/internal/remix"
	"github.com/satindergrewal/tonesmith/internal/synth"
	"github.com/sirupsen/logrus"
)

// Runner is the subset of the engine the HTTP layer drives.
type Runner interface {
	Generate(ctx context.Context, req engine.GenerateRequest) (*engine.Result, error)
	Remix(ctx context.Context, req engine.RemixRequest) (*engine.Result, error)
}

// Sample rates the HTTP API accepts; 0 selects the engine default.
const (
	minSampleRate = 8000
	maxSampleRate = 192000
)

type server struct {
	engine      Runner
	queue       *jobs.Queue[*engine.Result]
	maxDuration int
	inputDir    string
	log         logrus.FieldLogger
}

func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/generate", s.handleGenerate)
	mux.HandleFunc("POST /api/remix", s.handleRemix)

	mux.HandleFunc("GET /api/jobs", s.handleListJobs)
	mux.HandleFunc("GET /api/jobs/{id}", s.handleGetJob)
	mux.HandleFunc("DELETE /api/jobs/{id}", s.handleCancelJob)
	mux.HandleFunc("GET /api/jobs/{id}/download", s.handleDownload)
	mux.HandleFunc("GET /api/events", s.handleEvents)

	mux.HandleFunc("GET /api/genres", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, synth.Genres())
	})
	mux.HandleFunc("GET /api/instruments", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, synth.Instruments())
	})
	mux.HandleFunc("GET /api/styles", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, remix.Styles())
	})
	mux.HandleFunc("GET /api/formats", s.handleFormats)

	return mux
}

func (s *server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req engine.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Duration > s.maxDuration {
		http.Error(w, fmt.Sprintf("duration must be at most %ds", s.maxDuration), http.StatusBadRequest)
		return
	}
	if req.SampleRate != 0 && (req.SampleRate < minSampleRate || req.SampleRate > maxSampleRate) {
		http.Error(w, fmt.Sprintf("sample_rate must be between %d and %d", minSampleRate, maxSampleRate), http.StatusBadRequest)
		return
	}
	req.OutputDir = "" // clients cannot choose where files land

	s.submit(w, "generate", func(ctx context.Context) (*engine.Result, error) {
		return s.engine.Generate(ctx, req)
	})
}

func (s *server) handleRemix(w http.ResponseWriter, r *http.Request) {
	var req engine.RemixRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	// input_path names a file inside the input dir; absolute and ".." paths are refused.
	if !filepath.IsLocal(req.InputPath) {
		http.Error(w, "input_path must be a relative path inside the input directory", http.StatusBadRequest)
		return
	}
	req.InputPath = filepath.Join(s.inputDir, req.InputPath)
	req.OutputDir = ""

	s.submit(w, "remix", func(ctx context.Context) (*engine.Result, error) {
		return s.engine.Remix(ctx, req)
	})
}

func (s *server) submit(w http.ResponseWriter, kind string, fn jobs.Func[*engine.Result]) {
	task, err := s.queue.Submit(kind, fn)
	switch {
	case errors.Is(err, jobs.ErrQueueFull), errors.Is(err, jobs.ErrClosed):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.log.WithFields(logrus.Fields{"job": task.ID, "kind": kind}).Info("Job queued")
	w.Header().Set("Location", "/api/jobs/"+task.ID)
	writeJSON(w, http.StatusAccepted, task.Snapshot())
}

func (s *server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	tasks := s.queue.List()
	out := make([]jobs.Snapshot[*engine.Result], 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.Snapshot())
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	task, ok := s.queue.Get(r.PathValue("id"))
	if !ok {
		http.Error(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, task.Snapshot())
}

func (s *server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	task, err := s.queue.Cancel(r.PathValue("id"))
	switch {
	case errors.Is(err, jobs.ErrNotFound):
		http.Error(w, "job not found", http.StatusNotFound)
		return
	case errors.Is(err, jobs.ErrFinished):
		http.Error(w, "job already finished", http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, task.Snapshot())
}

func (s *server) handleDownload(w http.ResponseWriter, r *http.Request) {
	task, ok := s.queue.Get(r.PathValue("id"))
	if !ok {
		http.Error(w, "job not found", http.StatusNotFound)
		return
	}
	if task.Status() != jobs.Done {
		http.Error(w, "job has no output yet", http.StatusConflict)
		return
	}
	res, _ := task.Result()
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filepath.Base(res.Path)))
	w.Header().Set("Content-Type", "application/octet-stream")
	http.ServeFile(w, r, res.Path)
}

// handleEvents streams job status transitions as server-sent events until
// the client goes away.
func (s *server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache, no-store")
	w.Header().Set("Connection", "keep-alive")

	events := s.queue.Events()
	listener := events.Subscribe()
	defer events.Unsubscribe(listener)

	s.log.WithField("listeners", events.ListenerCount()).Debug("Event listener connected")
	defer s.log.Debug("Event listener disconnected")

	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-listener.Done():
			return
		case e := <-listener.C:
			data, err := json.Marshal(e)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Status, data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

type formatInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Extension string `json:"extension"`
	Quality   string `json:"quality"`
	Bitrate   int    `json:"bitrate,omitempty"`
	BitDepth  int    `json:"bit_depth,omitempty"`
}

func (s *server) handleFormats(w http.ResponseWriter, r *http.Request) {
	var out []formatInfo
	for _, f := range audio.Formats() {
		out = append(out, formatInfo{
			ID:        f.String(),
			Name:      f.DisplayName(),
			Extension: f.Extension(),
			Quality:   f.Quality(),
			Bitrate:   f.Bitrate(),
			BitDepth:  f.BitDepth(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
