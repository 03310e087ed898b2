// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package encoder defines the encoder boundary consumed by the
// recording session and an ffmpeg-backed implementation. Chunks are
// emitted on a small time slice so a crash mid-recording loses at most
// one interval of data, never the whole session.
package encoder

import (
	"context"
	"image"
	"time"
)

// Options fixes the encode parameters for one session.
type Options struct {
	Width         int
	Height        int
	FrameRate     int
	SampleRate    int
	HasAudio      bool
	ChunkInterval time.Duration
}

// Chunk is one time-sliced piece of the encoded artifact.
type Chunk struct {
	Seq   int
	Bytes []byte
	At    time.Time
}

// Encoder is the consumed encoder boundary. Callbacks must be
// registered before Start. Stop flushes the pipeline and delivers the
// final chunk before returning.
type Encoder interface {
	Start(ctx context.Context, opts Options) error
	WriteFrame(frame *image.RGBA) error
	WriteAudio(samples []float32) error
	OnChunk(func(Chunk))
	OnError(func(error))
	Stop(ctx context.Context) error
}
