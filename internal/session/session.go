// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package session orchestrates one recording: it drives the lifecycle
// machine, wires compositor output and mixed audio into the encoder,
// collects artifact chunks and enforces the maximum duration. All
// collaborators are injected so the pipeline tests in isolation.
package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"sync"
	"time"

	"github.com/ManuGH/recstudio/internal/artifact"
	"github.com/ManuGH/recstudio/internal/compose"
	"github.com/ManuGH/recstudio/internal/encoder"
	"github.com/ManuGH/recstudio/internal/fsm"
	"github.com/ManuGH/recstudio/internal/heartbeat"
	"github.com/ManuGH/recstudio/internal/log"
	"github.com/ManuGH/recstudio/internal/metrics"
	"github.com/ManuGH/recstudio/internal/mixer"
	"github.com/ManuGH/recstudio/internal/source"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrNoActiveSource rejects a start without any live capture source.
var ErrNoActiveSource = errors.New("session: no active capture source")

// ErrSourceEnded marks a source dying while the pipeline depended on it.
var ErrSourceEnded = errors.New("session: source ended unexpectedly")

const teardownTimeout = 10 * time.Second

// Config fixes the session parameters.
type Config struct {
	CanvasWidth   int
	CanvasHeight  int
	FrameRate     int
	SampleRate    int
	MaxDuration   time.Duration
	ChunkInterval time.Duration
	OutputDir     string // artifact persist location; empty keeps it in memory
}

// DefaultConfig is the fixed product surface: 1080p at 30 fps, 120s
// ceiling, 1s chunk slices.
func DefaultConfig() Config {
	return Config{
		CanvasWidth:   1920,
		CanvasHeight:  1080,
		FrameRate:     30,
		SampleRate:    48000,
		MaxDuration:   120 * time.Second,
		ChunkInterval: time.Second,
	}
}

// StopRequest parameterizes a stop. Preserve lists the source kinds to
// keep alive for a retake; everything else is released.
type StopRequest struct {
	Preserve map[source.Kind]bool
	Reason   string
}

// PreserveForRetake keeps camera and microphone across the stop.
func PreserveForRetake() map[source.Kind]bool {
	return map[source.Kind]bool{source.Camera: true, source.Microphone: true}
}

// Session is the engine's single live recording session.
type Session struct {
	cfg          Config
	lifecycle    *fsm.Machine[State, Event]
	registry     *source.Registry
	enc          encoder.Encoder
	scheduler    *heartbeat.Scheduler
	clock        heartbeat.Clock
	visibleProbe func() bool
	logger       zerolog.Logger

	mu           sync.Mutex
	id           string
	layout       compose.Layout
	webcam       compose.WebcamConfig
	background   compose.Background
	canvas       *image.RGBA
	audioOut     mixer.Output
	audioBuf     []float32
	lastAudio    time.Time
	chunks       [][]byte
	startedAt    time.Time
	elapsed      int
	maxFired     bool
	watchdogStop chan struct{}
	art          *artifact.Artifact
	cause        error
}

// Option tweaks session construction.
type Option func(*Session)

// WithClock substitutes the time source for tests.
func WithClock(c heartbeat.Clock) Option {
	return func(s *Session) { s.clock = c }
}

// WithVisibilityProbe wires the host's "is the view visible" signal
// into the heartbeat scheduler.
func WithVisibilityProbe(probe func() bool) Option {
	return func(s *Session) { s.visibleProbe = probe }
}

// New builds a session around its collaborators. The session starts
// idle; Start begins a recording.
func New(cfg Config, reg *source.Registry, enc encoder.Encoder, opts ...Option) *Session {
	s := &Session{
		cfg:       cfg,
		lifecycle: newLifecycle(),
		registry:  reg,
		enc:       enc,
		clock:     heartbeat.RealClock{},
		logger:    log.WithComponent("session"),
		layout:    compose.LayoutScreenCameraBottomRight,
		webcam:    compose.WebcamConfig{Shape: compose.ShapeCircle},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.scheduler = heartbeat.New(cfg.FrameRate, s.visibleProbe, heartbeat.WithClock(s.clock))

	// An externally-ended screen share finalizes gracefully while
	// recording; during initialization it is a hard fault.
	reg.OnScreenEnded(func() {
		switch s.State() {
		case StateRecording:
			ctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
			defer cancel()
			if _, err := s.RequestStop(ctx, StopRequest{Preserve: PreserveForRetake(), Reason: "screen share ended"}); err != nil {
				s.logger.Warn().Err(err).Msg("stop after external screen end rejected")
			}
		case StateInitializing:
			s.fault(fmt.Errorf("%w: screen", ErrSourceEnded))
		}
	})
	return s
}

// ID returns the identity of the current or last run, or "".
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return s.lifecycle.State()
}

// Err returns the terminal cause while in the error state.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cause
}

// Elapsed returns whole recorded seconds, monotonic within one run.
func (s *Session) Elapsed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsed
}

// Artifact returns the finalized artifact after completion, or nil.
func (s *Session) Artifact() *artifact.Artifact {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.art
}

// OnStateChange subscribes to lifecycle transitions; used to mirror
// engine state into presentation layers.
func (s *Session) OnStateChange(cb func(State)) {
	s.lifecycle.Subscribe(func(from, to State, ev Event) { cb(to) })
}

// Start drives idle → initializing → recording. Any failure along the
// way faults the session and releases everything acquired so far.
func (s *Session) Start(ctx context.Context) error {
	if len(s.registry.ActiveKinds()) == 0 {
		return ErrNoActiveSource
	}
	if _, err := s.lifecycle.Fire(EventStart); err != nil {
		s.logger.Warn().Err(err).Msg("start rejected")
		return err
	}

	s.mu.Lock()
	s.id = uuid.NewString()
	s.canvas = image.NewRGBA(image.Rect(0, 0, s.cfg.CanvasWidth, s.cfg.CanvasHeight))
	s.chunks = nil
	s.art = nil
	s.cause = nil
	s.elapsed = 0
	s.maxFired = false
	id := s.id
	s.mu.Unlock()
	s.logger.Info().Str("session_id", id).Msg("session starting")

	if err := s.buildPipeline(ctx); err != nil {
		s.fault(err)
		return err
	}

	if _, err := s.lifecycle.Fire(EventStreamsReady); err != nil {
		// Raced by a reset or fault during initialization; do not
		// leave the encoder running.
		stopCtx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
		_ = s.enc.Stop(stopCtx)
		cancel()
		return err
	}

	now := s.clock.Now()
	s.mu.Lock()
	s.startedAt = now
	s.lastAudio = now
	s.watchdogStop = make(chan struct{})
	stop := s.watchdogStop
	s.mu.Unlock()

	go s.watchdog(stop)
	s.scheduler.Start(s.tick)
	s.logger.Info().Str("session_id", id).Msg("recording")
	return nil
}

// buildPipeline wires mixer and encoder while initializing.
func (s *Session) buildPipeline(ctx context.Context) error {
	mic := s.registry.Handle(source.Microphone)
	screen := s.registry.Handle(source.Screen)

	mix := mixer.New(s.cfg.SampleRate)
	mix.Add(mic, mixer.DefaultVoiceGain)
	mix.Add(screen, mixer.DefaultSystemGain)

	audioOut, err := mix.Build()
	if errors.Is(err, mixer.ErrNoAudio) {
		// Never drop all audio without trying a direct passthrough.
		audioOut, err = mixer.Passthrough(s.cfg.SampleRate, mic, screen)
	}
	if errors.Is(err, mixer.ErrNoAudio) {
		s.logger.Info().Msg("no audio source, recording video-only")
		audioOut = nil
	} else if err != nil {
		return err
	}

	s.mu.Lock()
	s.audioOut = audioOut
	s.mu.Unlock()

	s.enc.OnChunk(s.appendChunk)
	s.enc.OnError(func(err error) { s.fault(err) })

	if err := s.enc.Start(ctx, encoder.Options{
		Width:         s.cfg.CanvasWidth,
		Height:        s.cfg.CanvasHeight,
		FrameRate:     s.cfg.FrameRate,
		SampleRate:    s.cfg.SampleRate,
		HasAudio:      audioOut != nil,
		ChunkInterval: s.cfg.ChunkInterval,
	}); err != nil {
		return fmt.Errorf("session: encoder start: %w", err)
	}
	return nil
}

// tick composes one frame and feeds the encoder. Runs on the heartbeat
// goroutine; a tick after stop or fault observes a non-recording state
// and is a no-op.
func (s *Session) tick() {
	if s.State() != StateRecording {
		return
	}

	s.mu.Lock()
	canvas := s.canvas
	in := compose.Inputs{
		Layout:     s.layout,
		Webcam:     s.webcam,
		Background: s.background,
	}
	s.mu.Unlock()

	if h := s.registry.Handle(source.Screen); h != nil {
		if img, ok := h.Frame(); ok {
			in.Screen = img
		}
	}
	if h := s.registry.Handle(source.Camera); h != nil {
		if img, ok := h.Frame(); ok {
			in.Camera = img
		}
	}

	compose.Compose(canvas, in)
	if err := s.enc.WriteFrame(canvas); err != nil {
		s.fault(err)
		return
	}
	s.pumpAudio()
}

// pumpAudio pulls the PCM the elapsed wall time owes the encoder.
func (s *Session) pumpAudio() {
	s.mu.Lock()
	out := s.audioOut
	if out == nil {
		s.mu.Unlock()
		return
	}
	now := s.clock.Now()
	n := int(float64(s.cfg.SampleRate) * now.Sub(s.lastAudio).Seconds())
	if n > s.cfg.SampleRate {
		n = s.cfg.SampleRate // cap the catch-up to one second
	}
	if n <= 0 {
		s.mu.Unlock()
		return
	}
	s.lastAudio = now
	if cap(s.audioBuf) < n {
		s.audioBuf = make([]float32, n)
	}
	buf := s.audioBuf[:n]
	s.mu.Unlock()

	out.ReadPCM(buf)
	if err := s.enc.WriteAudio(buf); err != nil {
		s.fault(err)
	}
}

func (s *Session) appendChunk(c encoder.Chunk) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = append(s.chunks, c.Bytes)
}

// watchdog advances elapsedSeconds once per second and triggers the
// max-duration stop exactly once, through the same path as a user stop.
func (s *Session) watchdog(stop <-chan struct{}) {
	ticker := s.clock.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			if s.State() != StateRecording {
				continue
			}
			now := s.clock.Now()
			s.mu.Lock()
			elapsed := int(now.Sub(s.startedAt).Seconds())
			if elapsed > s.elapsed {
				s.elapsed = elapsed
			}
			metrics.SessionElapsedSeconds.Set(float64(s.elapsed))
			hitMax := s.cfg.MaxDuration > 0 &&
				time.Duration(s.elapsed)*time.Second >= s.cfg.MaxDuration &&
				!s.maxFired
			if hitMax {
				s.maxFired = true
			}
			s.mu.Unlock()

			if hitMax {
				s.logger.Info().Int("elapsed", s.Elapsed()).Msg("max duration reached")
				ctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
				if _, err := s.RequestStop(ctx, StopRequest{Preserve: PreserveForRetake(), Reason: "max duration"}); err != nil {
					s.logger.Warn().Err(err).Msg("max-duration stop rejected")
				}
				cancel()
			}
		}
	}
}

// RequestStop drives recording → stopping → completed: flush the
// encoder, assemble the artifact, release what the request does not
// preserve. It is the single cancellation path; calling it in any
// other state is a logged no-op.
func (s *Session) RequestStop(ctx context.Context, req StopRequest) (*artifact.Artifact, error) {
	if _, err := s.lifecycle.Fire(EventRequestStop); err != nil {
		s.logger.Warn().Err(err).Str("reason", req.Reason).Msg("stop rejected")
		return nil, err
	}
	s.logger.Info().Str("reason", req.Reason).Msg("stopping")

	s.stopWatchdog()
	s.scheduler.Stop()

	if err := s.enc.Stop(ctx); err != nil {
		s.fault(err)
		return nil, err
	}

	now := s.clock.Now()
	s.mu.Lock()
	chunks := s.chunks
	s.chunks = nil
	duration := now.Sub(s.startedAt)
	id := s.id
	s.mu.Unlock()

	art := artifact.Assemble(chunks, duration)
	if s.cfg.OutputDir != "" {
		path := filepath.Join(s.cfg.OutputDir, "rec-"+id+".webm")
		if err := art.Persist(path); err != nil {
			// The in-memory artifact is still intact and playable
			// through the bytes; only the file URL is lost.
			s.logger.Warn().Err(err).Msg("artifact persist failed")
		}
	}

	s.mu.Lock()
	s.art = art
	s.mu.Unlock()

	if _, err := s.lifecycle.Fire(EventEncoderFlushed); err != nil {
		return art, err
	}

	s.registry.ReleaseAll(req.Preserve)
	metrics.IncSessionOutcome("completed")
	metrics.SessionElapsedSeconds.Set(0)
	s.logger.Info().Str("session_id", id).Dur("duration", duration).Int("chunks", len(chunks)).Msg("completed")
	return art, nil
}

// fault moves the session to the terminal error state with best-effort
// teardown. The transition doubles as the dedupe gate: only the first
// fault wins. Never leaves a capture device held open.
func (s *Session) fault(cause error) {
	if _, err := s.lifecycle.Fire(EventFault); err != nil {
		return
	}
	s.mu.Lock()
	s.cause = cause
	s.mu.Unlock()
	s.logger.Error().Err(cause).Msg("session fault")

	// Teardown runs off-thread: fault may be reported from within a
	// heartbeat tick, and stopping the scheduler joins that goroutine.
	go func() {
		s.stopWatchdog()
		s.scheduler.Stop()
		ctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
		defer cancel()
		if err := s.enc.Stop(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("encoder stop during fault teardown")
		}
		s.registry.ReleaseAll(nil)
		metrics.IncSessionOutcome("error")
		metrics.SessionElapsedSeconds.Set(0)
	}()
}

// Reset returns the session to idle from any state, releasing every
// capture handle and the previous artifact.
func (s *Session) Reset() {
	prev := s.State()
	if _, err := s.lifecycle.Fire(EventReset); err != nil {
		return
	}

	s.stopWatchdog()
	s.scheduler.Stop()
	if prev == StateRecording || prev == StateInitializing || prev == StateStopping {
		ctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
		_ = s.enc.Stop(ctx)
		cancel()
	}
	s.registry.ReleaseAll(nil)

	s.mu.Lock()
	if s.art != nil {
		s.art.Release()
		s.art = nil
	}
	s.chunks = nil
	s.elapsed = 0
	s.cause = nil
	s.id = ""
	s.mu.Unlock()

	metrics.SessionElapsedSeconds.Set(0)
	s.logger.Info().Str("from", string(prev)).Msg("reset to idle")
}

func (s *Session) stopWatchdog() {
	s.mu.Lock()
	stop := s.watchdogStop
	s.watchdogStop = nil
	s.mu.Unlock()
	if stop != nil {
		close(stop)
	}
}
