// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package source

import (
	"context"
	"errors"
	"sync"

	"github.com/ManuGH/recstudio/internal/log"
	"github.com/ManuGH/recstudio/internal/metrics"
	"github.com/rs/zerolog"
)

// Registry is the sole owner and mutator of capture handles. At most
// one handle per kind is live at a time; acquiring a kind again first
// releases the previous handle.
type Registry struct {
	capturer Capturer
	logger   zerolog.Logger

	mu            sync.Mutex
	handles       map[Kind]*Handle
	onScreenEnded func()
}

func NewRegistry(capturer Capturer) *Registry {
	return &Registry{
		capturer: capturer,
		logger:   log.WithComponent("source.registry"),
		handles:  make(map[Kind]*Handle),
	}
}

// OnScreenEnded registers the callback invoked when the screen share is
// ended externally (host "stop sharing" affordance). The session uses
// it to request a graceful stop while recording.
func (r *Registry) OnScreenEnded(cb func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onScreenEnded = cb
}

// AcquireCameraAndMicrophone requests camera plus microphone. On a
// missing or busy camera it retries audio-only, so a denied camera
// never costs the user their voice track. A total failure is returned
// as a *CaptureError; partial success returns the handles that exist
// (nil for the missing one) and no error.
func (r *Registry) AcquireCameraAndMicrophone(ctx context.Context, c Constraints) (cam, mic *Handle, err error) {
	c.WithAudio = true
	acq, err := r.capturer.Acquire(ctx, Camera, c)
	if err != nil {
		reason := ReasonOf(err)
		metrics.IncCaptureError(string(reason))
		switch reason {
		case ReasonNoDevice, ReasonDeviceBusy:
			r.logger.Warn().Str("reason", string(reason)).Msg("camera unavailable, retrying audio-only")
			return r.acquireMicrophoneOnly(ctx, c)
		default:
			return nil, nil, classify(err, Camera)
		}
	}

	video := acq.Video()
	audio := acq.Audio()
	if video == nil && audio == nil {
		acq.Stop()
		return nil, nil, NewCaptureError(ReasonUnknown, Camera, errors.New("acquisition carried no tracks"))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if video != nil {
		cam = newHandle(Camera, video, nil, video.Stop)
		r.replaceLocked(Camera, cam)
	}
	if audio != nil {
		mic = newHandle(Microphone, nil, audio, audio.Stop)
		r.replaceLocked(Microphone, mic)
	}
	r.logger.Info().Bool("camera", cam != nil).Bool("microphone", mic != nil).Msg("camera/microphone acquired")
	return cam, mic, nil
}

func (r *Registry) acquireMicrophoneOnly(ctx context.Context, c Constraints) (cam, mic *Handle, err error) {
	acq, err := r.capturer.Acquire(ctx, Microphone, Constraints{SampleRate: c.SampleRate, WithAudio: true})
	if err != nil {
		metrics.IncCaptureError(string(ReasonOf(err)))
		return nil, nil, classify(err, Microphone)
	}
	audio := acq.Audio()
	if audio == nil {
		acq.Stop()
		return nil, nil, NewCaptureError(ReasonNoDevice, Microphone, errors.New("audio-only acquisition carried no audio track"))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	mic = newHandle(Microphone, nil, audio, audio.Stop)
	r.replaceLocked(Microphone, mic)
	r.logger.Info().Msg("microphone acquired (audio-only fallback)")
	return nil, mic, nil
}

// AcquireScreen requests screen capture and wires the external-end
// listener. When the share ends externally the handle is marked
// stopped before the registered callback runs, so no composition tick
// ever reads a dead track.
func (r *Registry) AcquireScreen(ctx context.Context, c Constraints) (*Handle, error) {
	acq, err := r.capturer.Acquire(ctx, Screen, c)
	if err != nil {
		metrics.IncCaptureError(string(ReasonOf(err)))
		return nil, classify(err, Screen)
	}
	video := acq.Video()
	if video == nil {
		acq.Stop()
		return nil, NewCaptureError(ReasonUnknown, Screen, errors.New("screen acquisition carried no video track"))
	}

	h := newHandle(Screen, video, acq.Audio(), acq.Stop)
	acq.OnEnded(func() {
		h.markStopped()
		r.logger.Info().Msg("screen share ended externally")
		r.mu.Lock()
		cb := r.onScreenEnded
		r.mu.Unlock()
		if cb != nil {
			cb()
		}
	})

	r.mu.Lock()
	defer r.mu.Unlock()
	r.replaceLocked(Screen, h)
	r.logger.Info().Bool("system_audio", h.audio != nil).Msg("screen acquired")
	return h, nil
}

// Handle returns the live handle for kind, or nil.
func (r *Registry) Handle(kind Kind) *Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := r.handles[kind]
	if h != nil && h.Stopped() {
		return nil
	}
	return h
}

// Toggle sets the enabled flag without destroying or re-requesting the
// device. Returns false when no live handle exists for kind.
func (r *Registry) Toggle(kind Kind, enabled bool) bool {
	h := r.Handle(kind)
	if h == nil {
		return false
	}
	h.setEnabled(enabled)
	r.logger.Debug().Str("kind", string(kind)).Bool("enabled", enabled).Msg("source toggled")
	return true
}

// Release stops the device behind kind. Idempotent.
func (r *Registry) Release(kind Kind) {
	r.mu.Lock()
	h := r.handles[kind]
	delete(r.handles, kind)
	r.mu.Unlock()
	if h != nil {
		h.release()
	}
}

// ReleaseAll releases every handle except the kinds marked in preserve.
// Preserved handles stay live so a retake can reuse them.
func (r *Registry) ReleaseAll(preserve map[Kind]bool) {
	r.mu.Lock()
	victims := make([]*Handle, 0, len(r.handles))
	for kind, h := range r.handles {
		if preserve[kind] {
			continue
		}
		victims = append(victims, h)
		delete(r.handles, kind)
	}
	r.mu.Unlock()
	for _, h := range victims {
		h.release()
	}
}

// ActiveKinds lists kinds with a live, unstopped handle.
func (r *Registry) ActiveKinds() []Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]Kind, 0, len(r.handles))
	for kind, h := range r.handles {
		if !h.Stopped() {
			kinds = append(kinds, kind)
		}
	}
	return kinds
}

func (r *Registry) replaceLocked(kind Kind, h *Handle) {
	if prev := r.handles[kind]; prev != nil {
		prev.release()
	}
	r.handles[kind] = h
}

func classify(err error, kind Kind) error {
	var ce *CaptureError
	if errors.As(err, &ce) {
		return ce
	}
	return NewCaptureError(ReasonUnknown, kind, err)
}
