// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package testutil provides in-memory fakes for the capture and
// encoder boundaries so engine tests run without devices or ffmpeg.
package testutil

import (
	"context"
	"image"
	"image/color"
	"sync"

	"github.com/ManuGH/recstudio/internal/source"
)

// FakeVideoTrack yields a settable solid-color frame.
type FakeVideoTrack struct {
	mu      sync.Mutex
	frame   image.Image
	ready   bool
	stopped bool
}

// NewFakeVideoTrack returns a ready track filled with c at w×h.
func NewFakeVideoTrack(w, h int, c color.Color) *FakeVideoTrack {
	return &FakeVideoTrack{frame: image.NewUniform(c), ready: true}
}

func (t *FakeVideoTrack) Frame() (image.Image, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped || !t.ready {
		return nil, false
	}
	return t.frame, true
}

func (t *FakeVideoTrack) SetReady(ready bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ready = ready
}

func (t *FakeVideoTrack) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

func (t *FakeVideoTrack) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// FakeAudioTrack yields a constant sample value, handy for asserting
// gain math in mixer tests.
type FakeAudioTrack struct {
	mu      sync.Mutex
	value   float32
	rate    int
	stopped bool
}

func NewFakeAudioTrack(value float32, rate int) *FakeAudioTrack {
	return &FakeAudioTrack{value: value, rate: rate}
}

func (t *FakeAudioTrack) ReadPCM(dst []float32) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return 0
	}
	for i := range dst {
		dst[i] = t.value
	}
	return len(dst)
}

func (t *FakeAudioTrack) SampleRate() int { return t.rate }

func (t *FakeAudioTrack) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

func (t *FakeAudioTrack) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// FakeAcquisition bundles fake tracks and lets tests fire the
// externally-triggered end.
type FakeAcquisition struct {
	mu      sync.Mutex
	video   *FakeVideoTrack
	audio   *FakeAudioTrack
	onEnded func()
	stopped bool
}

func (a *FakeAcquisition) Video() source.VideoTrack {
	if a.video == nil {
		return nil
	}
	return a.video
}

func (a *FakeAcquisition) Audio() source.AudioTrack {
	if a.audio == nil {
		return nil
	}
	return a.audio
}

func (a *FakeAcquisition) OnEnded(cb func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onEnded = cb
}

func (a *FakeAcquisition) Stop() {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return
	}
	a.stopped = true
	a.mu.Unlock()
	if a.video != nil {
		a.video.Stop()
	}
	if a.audio != nil {
		a.audio.Stop()
	}
}

// TriggerEnd simulates the device disappearing: tracks die first, then
// the registered callback fires, mirroring real capture stacks.
func (a *FakeAcquisition) TriggerEnd() {
	if a.video != nil {
		a.video.Stop()
	}
	if a.audio != nil {
		a.audio.Stop()
	}
	a.mu.Lock()
	cb := a.onEnded
	a.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// FakeCapturer implements source.Capturer with per-kind scripted
// failures and records every acquisition for later inspection.
type FakeCapturer struct {
	mu          sync.Mutex
	errs        map[source.Kind]error
	acquired    map[source.Kind]*FakeAcquisition
	ScreenAudio bool // include a system-audio track on screen acquisitions
}

func NewFakeCapturer() *FakeCapturer {
	return &FakeCapturer{
		errs:     make(map[source.Kind]error),
		acquired: make(map[source.Kind]*FakeAcquisition),
	}
}

// FailWith scripts kind to fail with a classified capture error.
func (c *FakeCapturer) FailWith(kind source.Kind, reason source.Reason) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs[kind] = source.NewCaptureError(reason, kind, nil)
}

// Acquisition returns the last acquisition handed out for kind.
func (c *FakeCapturer) Acquisition(kind source.Kind) *FakeAcquisition {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.acquired[kind]
}

func (c *FakeCapturer) Acquire(ctx context.Context, kind source.Kind, con source.Constraints) (source.Acquisition, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.errs[kind]; err != nil {
		return nil, err
	}

	rate := con.SampleRate
	if rate == 0 {
		rate = 48000
	}
	acq := &FakeAcquisition{}
	switch kind {
	case source.Camera:
		acq.video = NewFakeVideoTrack(1280, 720, color.RGBA{R: 255, A: 255})
		if con.WithAudio {
			acq.audio = NewFakeAudioTrack(0.5, rate)
		}
	case source.Microphone:
		acq.audio = NewFakeAudioTrack(0.5, rate)
	case source.Screen:
		acq.video = NewFakeVideoTrack(1920, 1080, color.RGBA{B: 255, A: 255})
		if c.ScreenAudio {
			acq.audio = NewFakeAudioTrack(0.25, rate)
		}
	}
	c.acquired[kind] = acq
	return acq, nil
}
