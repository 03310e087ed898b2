// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package source owns the capture boundary: acquisition of screen,
// camera and microphone endpoints, their enable/disable semantics and
// their teardown. Nothing outside this package mutates a capture
// device; compositor and mixer only read from handles they are given.
package source

import (
	"context"
	"image"
)

// Kind identifies one external capture endpoint.
type Kind string

const (
	Screen     Kind = "screen"
	Camera     Kind = "camera"
	Microphone Kind = "microphone"
)

// Constraints parameterizes an acquisition request.
type Constraints struct {
	Width      int
	Height     int
	FrameRate  int
	SampleRate int
	WithAudio  bool
}

// VideoTrack is one video signal within an acquisition. Frame returns
// the most recent decodable frame; ok is false while the track is not
// yet decodable or has been stopped, in which case the compositor must
// skip the source for that tick.
type VideoTrack interface {
	Frame() (image.Image, bool)
	Stop()
}

// AudioTrack is one mono float32 PCM signal within an acquisition.
// ReadPCM fills dst with up to len(dst) samples and returns the number
// written; a stopped track returns 0.
type AudioTrack interface {
	ReadPCM(dst []float32) int
	SampleRate() int
	Stop()
}

// Acquisition is what a Capturer returns for one successful acquire
// call. Video/Audio may each be nil when the endpoint does not carry
// that signal. OnEnded registers the externally-triggered end callback
// (the user pressing the host's "stop sharing" affordance, a device
// being unplugged); at most one callback is supported. Stop is
// idempotent and releases the underlying device.
type Acquisition interface {
	Video() VideoTrack
	Audio() AudioTrack
	OnEnded(func())
	Stop()
}

// Capturer is the external capture boundary. Implementations classify
// failures as *CaptureError; any other error is treated as Unknown.
type Capturer interface {
	Acquire(ctx context.Context, kind Kind, c Constraints) (Acquisition, error)
}
