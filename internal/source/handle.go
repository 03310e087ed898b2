// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package source

import (
	"image"
	"sync"
)

// Handle owns the tracks of one acquired endpoint. A disabled handle
// keeps the device connection alive but stops frames and samples from
// flowing, so re-enabling is instantaneous. A stopped handle never
// yields a frame or a sample again.
type Handle struct {
	kind Kind

	mu      sync.Mutex
	video   VideoTrack
	audio   AudioTrack
	stop    func()
	enabled bool
	stopped bool
}

func newHandle(kind Kind, video VideoTrack, audio AudioTrack, stop func()) *Handle {
	return &Handle{kind: kind, video: video, audio: audio, stop: stop, enabled: true}
}

// Kind returns the endpoint kind this handle was acquired for.
func (h *Handle) Kind() Kind { return h.kind }

// Enabled reports whether the handle currently contributes signal.
func (h *Handle) Enabled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.enabled && !h.stopped
}

// Stopped reports whether the underlying device has been released.
func (h *Handle) Stopped() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stopped
}

// Frame returns the latest decodable frame of the video track. It
// returns ok=false when the handle is disabled, stopped, has no video
// track, or the track is not yet decodable.
func (h *Handle) Frame() (image.Image, bool) {
	h.mu.Lock()
	v := h.video
	live := h.enabled && !h.stopped
	h.mu.Unlock()
	if !live || v == nil {
		return nil, false
	}
	return v.Frame()
}

// Audio returns the audio track, or nil when the handle is disabled,
// stopped or carries no audio. The mixer calls this on every pull so a
// toggle takes effect within one tick.
func (h *Handle) Audio() AudioTrack {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.enabled || h.stopped {
		return nil
	}
	return h.audio
}

// HasAudioTrack reports whether the handle owns an audio track at all,
// regardless of the enabled flag.
func (h *Handle) HasAudioTrack() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.audio != nil
}

// HasVideoTrack reports whether the handle owns a video track at all.
func (h *Handle) HasVideoTrack() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.video != nil
}

func (h *Handle) setEnabled(enabled bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.enabled = enabled
}

// markStopped flags the handle stopped without releasing the device.
// Used when the device ended externally: the tracks are already dead.
func (h *Handle) markStopped() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopped = true
}

// release stops the underlying device resource. Idempotent.
func (h *Handle) release() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.stopped = true
	stop := h.stop
	h.mu.Unlock()
	if stop != nil {
		stop()
	}
}
