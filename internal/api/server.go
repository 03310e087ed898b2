// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package api exposes the recording engine over HTTP: lifecycle
// control, source acquisition, composition settings and artifact
// retrieval, plus health and Prometheus endpoints.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ManuGH/recstudio/internal/compose"
	"github.com/ManuGH/recstudio/internal/config"
	"github.com/ManuGH/recstudio/internal/log"
	"github.com/ManuGH/recstudio/internal/session"
	"github.com/ManuGH/recstudio/internal/source"
)

// Server wires HTTP routes to the single engine session.
type Server struct {
	cfg      config.Config
	session  *session.Session
	registry *source.Registry
	logger   zerolog.Logger
}

func New(cfg config.Config, sess *session.Session, reg *source.Registry) *Server {
	return &Server{
		cfg:      cfg,
		session:  sess,
		registry: reg,
		logger:   log.WithComponent("api"),
	}
}

// Handler builds the chi router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.Limit(
			s.cfg.RateLimitRequests,
			s.cfg.RateLimitWindow,
			httprate.WithKeyFuncs(httprate.KeyByIP),
		))

		r.Get("/session", s.handleStatus)
		r.Post("/session/start", s.handleStart)
		r.Post("/session/stop", s.handleStop)
		r.Post("/session/reset", s.handleReset)

		r.Put("/config/layout", s.handleSetLayout)
		r.Put("/config/background", s.handleSetBackground)
		r.Patch("/config/webcam", s.handlePatchWebcam)

		r.Post("/sources/screen", s.handleAcquireScreen)
		r.Post("/sources/camera", s.handleAcquireCamera)
		r.Post("/sources/{kind}/toggle", s.handleToggle)
		r.Delete("/sources/{kind}", s.handleRelease)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type artifactView struct {
	URL             string  `json:"url,omitempty"`
	DurationSeconds float64 `json:"duration_seconds"`
	SizeBytes       int     `json:"size_bytes"`
}

type statusView struct {
	State          session.State  `json:"state"`
	SessionID      string         `json:"session_id,omitempty"`
	ElapsedSeconds int            `json:"elapsed_seconds"`
	Layout         compose.Layout `json:"layout"`
	ActiveSources  []source.Kind  `json:"active_sources"`
	Error          string         `json:"error,omitempty"`
	Artifact       *artifactView  `json:"artifact,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	view := statusView{
		State:          s.session.State(),
		SessionID:      s.session.ID(),
		ElapsedSeconds: s.session.Elapsed(),
		Layout:         s.session.Layout(),
		ActiveSources:  s.registry.ActiveKinds(),
	}
	if err := s.session.Err(); err != nil {
		view.Error = err.Error()
	}
	if art := s.session.Artifact(); art != nil && !art.Released() {
		view.Artifact = &artifactView{
			URL:             art.URL(),
			DurationSeconds: art.Duration().Seconds(),
			SizeBytes:       len(art.Bytes()),
		}
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if err := s.session.Start(r.Context()); err != nil {
		switch {
		case errors.Is(err, session.ErrNoActiveSource):
			writeError(w, http.StatusConflict, err)
		case s.session.State() == session.StateError:
			writeError(w, http.StatusInternalServerError, err)
		default:
			writeError(w, http.StatusConflict, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"session_id": s.session.ID(),
		"state":      string(s.session.State()),
	})
}

type stopRequest struct {
	Preserve []source.Kind `json:"preserve"`
	Reason   string        `json:"reason"`
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	var body stopRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	req := session.StopRequest{Reason: body.Reason}
	if body.Reason == "" {
		req.Reason = "api"
	}
	if len(body.Preserve) > 0 {
		req.Preserve = make(map[source.Kind]bool, len(body.Preserve))
		for _, k := range body.Preserve {
			req.Preserve[k] = true
		}
	}

	art, err := s.session.RequestStop(r.Context(), req)
	if err != nil {
		if s.session.State() == session.StateError {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusOK, artifactView{
		URL:             art.URL(),
		DurationSeconds: art.Duration().Seconds(),
		SizeBytes:       len(art.Bytes()),
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.session.Reset()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetLayout(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Layout compose.Layout `json:"layout"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.session.SetLayout(body.Layout); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"layout": body.Layout})
}

func (s *Server) handleSetBackground(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Kind   compose.BackgroundKind `json:"kind"`
		Preset string                 `json:"preset"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	switch body.Kind {
	case compose.BackgroundNone, compose.BackgroundGradient, compose.BackgroundImage:
	default:
		writeError(w, http.StatusBadRequest, errors.New("unknown background kind"))
		return
	}
	s.session.SetBackground(compose.Background{Kind: body.Kind, Preset: body.Preset})
	writeJSON(w, http.StatusOK, map[string]any{"kind": body.Kind, "preset": body.Preset})
}

// handlePatchWebcam merges the provided fields onto the current webcam
// placement; absent fields keep their value.
func (s *Server) handlePatchWebcam(w http.ResponseWriter, r *http.Request) {
	var body struct {
		X      *int           `json:"x"`
		Y      *int           `json:"y"`
		Width  *int           `json:"width"`
		Height *int           `json:"height"`
		Shape  *compose.Shape `json:"shape"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	cfg := s.session.WebcamConfig()
	if body.X != nil {
		cfg.X = *body.X
	}
	if body.Y != nil {
		cfg.Y = *body.Y
	}
	if body.Width != nil {
		cfg.Width = *body.Width
	}
	if body.Height != nil {
		cfg.Height = *body.Height
	}
	if body.Shape != nil {
		switch *body.Shape {
		case compose.ShapeCircle, compose.ShapeSquare, compose.ShapeRoundedSquare:
			cfg.Shape = *body.Shape
		default:
			writeError(w, http.StatusBadRequest, errors.New("unknown webcam shape"))
			return
		}
	}
	s.session.SetWebcamConfig(cfg)
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) constraints(withAudio bool) source.Constraints {
	return source.Constraints{
		Width:      s.cfg.CanvasWidth,
		Height:     s.cfg.CanvasHeight,
		FrameRate:  s.cfg.FrameRate,
		SampleRate: s.cfg.SampleRate,
		WithAudio:  withAudio,
	}
}

func (s *Server) handleAcquireScreen(w http.ResponseWriter, r *http.Request) {
	if _, err := s.registry.AcquireScreen(r.Context(), s.constraints(true)); err != nil {
		writeCaptureError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"active_sources": s.registry.ActiveKinds()})
}

func (s *Server) handleAcquireCamera(w http.ResponseWriter, r *http.Request) {
	cam, mic, err := s.registry.AcquireCameraAndMicrophone(r.Context(), s.constraints(true))
	if err != nil {
		writeCaptureError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"camera":         cam != nil,
		"microphone":     mic != nil,
		"active_sources": s.registry.ActiveKinds(),
	})
}

func parseKind(raw string) (source.Kind, bool) {
	switch k := source.Kind(raw); k {
	case source.Screen, source.Camera, source.Microphone:
		return k, true
	default:
		return "", false
	}
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	kind, ok := parseKind(chi.URLParam(r, "kind"))
	if !ok {
		writeError(w, http.StatusBadRequest, errors.New("unknown source kind"))
		return
	}
	var body struct {
		Enabled *bool `json:"enabled"`
	}
	if err := decodeJSON(r, &body); err != nil || body.Enabled == nil {
		writeError(w, http.StatusBadRequest, errors.New("body must carry enabled"))
		return
	}
	if !s.registry.Toggle(kind, *body.Enabled) {
		writeError(w, http.StatusNotFound, errors.New("no live source of that kind"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"kind": kind, "enabled": *body.Enabled})
}

func (s *Server) handleRelease(w http.ResponseWriter, r *http.Request) {
	kind, ok := parseKind(chi.URLParam(r, "kind"))
	if !ok {
		writeError(w, http.StatusBadRequest, errors.New("unknown source kind"))
		return
	}
	s.registry.Release(kind)
	w.WriteHeader(http.StatusNoContent)
}

// decodeJSON decodes a small JSON body, tolerating an empty one.
func decodeJSON(r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20)
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// ListenAndServe runs the API until ctx is done, then drains with a
// short grace period.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.cfg.ListenAddr).Msg("api listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
