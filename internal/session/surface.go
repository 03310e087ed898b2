// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package session

import (
	"fmt"

	"github.com/ManuGH/recstudio/internal/compose"
	"github.com/ManuGH/recstudio/internal/source"
)

// The configuration surface is safe at any time, including while
// recording: the compositor reads the current values on every tick.

// SetLayout switches the composition layout.
func (s *Session) SetLayout(l compose.Layout) error {
	if !compose.ValidLayout(l) {
		return fmt.Errorf("session: unknown layout %q", l)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layout = l
	return nil
}

// Layout returns the current layout.
func (s *Session) Layout() compose.Layout {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.layout
}

// SetBackground replaces the background spec.
func (s *Session) SetBackground(bg compose.Background) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.background = bg
}

// SetWebcamConfig replaces the webcam rectangle/shape. Callers doing
// partial updates merge onto WebcamConfig() first.
func (s *Session) SetWebcamConfig(cfg compose.WebcamConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.webcam = cfg
}

// WebcamConfig returns the current webcam placement.
func (s *Session) WebcamConfig() compose.WebcamConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.webcam
}

// ToggleCamera mutes/unmutes camera frames without renegotiating the
// device. The recorded output follows within one tick.
func (s *Session) ToggleCamera(enabled bool) bool {
	return s.registry.Toggle(source.Camera, enabled)
}

// ToggleMicrophone mutes/unmutes the voice track.
func (s *Session) ToggleMicrophone(enabled bool) bool {
	return s.registry.Toggle(source.Microphone, enabled)
}
