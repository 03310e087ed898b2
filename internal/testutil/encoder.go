// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package testutil

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"

	"github.com/ManuGH/recstudio/internal/encoder"
)

// FakeEncoder records writes and emits deterministic chunks so session
// tests can assert the artifact pipeline without ffmpeg.
type FakeEncoder struct {
	mu           sync.Mutex
	started      bool
	stopped      bool
	opts         encoder.Options
	frames       int
	lastFrame    *image.RGBA
	audioSamples int
	seq          int
	onChunk      func(encoder.Chunk)
	onError      func(error)

	StartErr      error // scripted Start failure
	FrameErrAfter int   // WriteFrame fails once this many frames were accepted (0 = never)
}

func NewFakeEncoder() *FakeEncoder { return &FakeEncoder{} }

func (e *FakeEncoder) OnChunk(cb func(encoder.Chunk)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onChunk = cb
}

func (e *FakeEncoder) OnError(cb func(error)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onError = cb
}

func (e *FakeEncoder) Start(ctx context.Context, opts encoder.Options) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.StartErr != nil {
		return e.StartErr
	}
	e.started = true
	e.stopped = false
	e.opts = opts
	return nil
}

func (e *FakeEncoder) WriteFrame(frame *image.RGBA) error {
	e.mu.Lock()
	if !e.started || e.stopped {
		e.mu.Unlock()
		return errors.New("fake encoder: not running")
	}
	e.frames++
	cp := image.NewRGBA(frame.Rect)
	copy(cp.Pix, frame.Pix)
	e.lastFrame = cp
	fail := e.FrameErrAfter > 0 && e.frames > e.FrameErrAfter
	cb := e.onError
	e.mu.Unlock()
	if fail {
		err := errors.New("fake encoder: scripted frame failure")
		if cb != nil {
			cb(err)
		}
		return err
	}
	return nil
}

func (e *FakeEncoder) WriteAudio(samples []float32) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started || e.stopped {
		return errors.New("fake encoder: not running")
	}
	e.audioSamples += len(samples)
	return nil
}

// Stop emits one final chunk carrying a byte per accepted frame, so a
// session that composed anything always finalizes a non-empty artifact.
func (e *FakeEncoder) Stop(ctx context.Context) error {
	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return nil
	}
	e.stopped = true
	e.seq++
	size := e.frames
	if size == 0 {
		size = 1
	}
	chunk := encoder.Chunk{Seq: e.seq, Bytes: make([]byte, size), At: time.Now()}
	cb := e.onChunk
	e.mu.Unlock()
	if cb != nil {
		cb(chunk)
	}
	return nil
}

// Frames returns the number of accepted frames.
func (e *FakeEncoder) Frames() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frames
}

// LastFrame returns a copy of the most recently accepted frame.
func (e *FakeEncoder) LastFrame() *image.RGBA {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastFrame
}

// AudioSamples returns the number of accepted PCM samples.
func (e *FakeEncoder) AudioSamples() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.audioSamples
}

// Running reports Start-without-Stop state.
func (e *FakeEncoder) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.started && !e.stopped
}
