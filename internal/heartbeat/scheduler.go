// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package heartbeat drives repeated compositor invocation from two
// independent tick sources: a primary tick at the display refresh
// cadence that the host suspends while the view is deprioritized, and
// a coarser fallback tick that only runs while the primary is
// suppressed. One select loop serves both sources, so composition
// stays single-threaded and the two can never double-draw; the
// visibility probe is the only guard.
package heartbeat

import (
	"sync"
	"time"

	"github.com/ManuGH/recstudio/internal/log"
	"github.com/ManuGH/recstudio/internal/metrics"
	"github.com/rs/zerolog"
)

const (
	// DefaultFallbackInterval is the coarse liveness cadence (10 Hz)
	// used while the host has suspended the primary tick.
	DefaultFallbackInterval = 100 * time.Millisecond

	tickPrimary  = "primary"
	tickFallback = "fallback"
)

// Scheduler coordinates the dual-clock tick loop. It is reusable:
// Start after Stop begins a fresh generation, and ticks belonging to a
// previous generation are provable no-ops.
type Scheduler struct {
	clock            Clock
	logger           zerolog.Logger
	visible          func() bool
	frameInterval    time.Duration
	fallbackInterval time.Duration

	mu      sync.Mutex
	gen     uint64
	cancel  chan struct{}
	done    chan struct{}
	running bool
}

// Option tweaks scheduler construction.
type Option func(*Scheduler)

// WithClock substitutes the time source, used by tests.
func WithClock(c Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithFallbackInterval overrides the fallback cadence.
func WithFallbackInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.fallbackInterval = d }
}

// New builds a scheduler ticking at frameRate while visible returns
// true and at the fallback cadence while it returns false. A nil
// visible probe means "always visible" for hosts without the
// throttling quirk; the fallback source then never fires a draw.
func New(frameRate int, visible func() bool, opts ...Option) *Scheduler {
	if frameRate <= 0 {
		frameRate = 30
	}
	if visible == nil {
		visible = func() bool { return true }
	}
	s := &Scheduler{
		clock:            RealClock{},
		logger:           log.WithComponent("heartbeat"),
		visible:          visible,
		frameInterval:    time.Second / time.Duration(frameRate),
		fallbackInterval: DefaultFallbackInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins the tick loop, invoking tick once per due heartbeat.
// It is a no-op while already running.
func (s *Scheduler) Start(tick func()) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.gen++
	gen := s.gen
	cancel := make(chan struct{})
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	s.logger.Debug().Uint64("generation", gen).Dur("frame_interval", s.frameInterval).Msg("heartbeat started")
	go s.loop(gen, tick, cancel, done)
}

func (s *Scheduler) loop(gen uint64, tick func(), cancel <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	primary := s.clock.NewTicker(s.frameInterval)
	fallback := s.clock.NewTicker(s.fallbackInterval)
	defer primary.Stop()
	defer fallback.Stop()

	for {
		select {
		case <-cancel:
			return
		case <-primary.C():
			if !s.current(gen) {
				return
			}
			if !s.visible() {
				// Host has deprioritized rendering; the fallback
				// source keeps the compositor alive.
				metrics.IncTickSkipped(tickPrimary)
				continue
			}
			tick()
			metrics.IncFrameComposed(tickPrimary)
		case <-fallback.C():
			if !s.current(gen) {
				return
			}
			if s.visible() {
				metrics.IncTickSkipped(tickFallback)
				continue
			}
			tick()
			metrics.IncFrameComposed(tickFallback)
		}
	}
}

// Stop tears both tick sources down together and waits for the loop to
// exit, so no tick fires after Stop returns. Idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.gen++ // invalidate in-flight ticks of the old generation
	close(s.cancel)
	done := s.done
	s.mu.Unlock()

	<-done
	s.logger.Debug().Msg("heartbeat stopped")
}

func (s *Scheduler) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running && s.gen == gen
}
