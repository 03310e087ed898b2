// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package encoder

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/ManuGH/recstudio/internal/log"
	"github.com/ManuGH/recstudio/internal/metrics"
	"github.com/rs/zerolog"
)

// ErrInit marks encoder startup failures; callers treat it as fatal
// for the session.
var ErrInit = errors.New("encoder init failure")

// FFmpeg encodes raw RGBA frames and mono PCM through an ffmpeg child
// process into a WebM stream, sliced into chunks on a fixed interval.
type FFmpeg struct {
	binary string
	logger zerolog.Logger

	mu           sync.Mutex
	cmd          *exec.Cmd
	stdin        io.WriteCloser
	audioW       *os.File
	audioCleanup func()
	opts         Options
	onChunk      func(Chunk)
	onError      func(error)
	started      bool
	stopping     bool
	seq          int
	pending      bytes.Buffer
	stderr       bytes.Buffer

	waitResult chan error
	readerDone chan struct{}
	tickerStop chan struct{}
}

// FFmpegOption tweaks adapter construction.
type FFmpegOption func(*FFmpeg)

// WithBinary points the adapter at a specific ffmpeg binary instead of
// resolving it from PATH.
func WithBinary(path string) FFmpegOption {
	return func(e *FFmpeg) { e.binary = path }
}

// NewFFmpeg builds an adapter around the ffmpeg binary on PATH.
func NewFFmpeg(opts ...FFmpegOption) *FFmpeg {
	e := &FFmpeg{
		binary: "ffmpeg",
		logger: log.WithComponent("encoder.ffmpeg"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *FFmpeg) OnChunk(cb func(Chunk)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onChunk = cb
}

func (e *FFmpeg) OnError(cb func(error)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onError = cb
}

// Start spawns ffmpeg. A failing audio pipe downgrades the session to
// video-only rather than failing the start.
func (e *FFmpeg) Start(ctx context.Context, opts Options) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return fmt.Errorf("%w: already started", ErrInit)
	}

	audioPath := ""
	if opts.HasAudio {
		path, cleanup, err := makeAudioPipe()
		if err != nil {
			e.logger.Warn().Err(err).Msg("audio pipe unavailable, encoding video-only")
			opts.HasAudio = false
		} else {
			audioPath = path
			e.audioCleanup = cleanup
		}
	}

	cmd := exec.CommandContext(ctx, e.binary, buildArgs(opts, audioPath)...)
	cmd.Stderr = &e.stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		e.cleanupLocked()
		return fmt.Errorf("%w: stdin pipe: %v", ErrInit, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		e.cleanupLocked()
		return fmt.Errorf("%w: stdout pipe: %v", ErrInit, err)
	}
	if err := cmd.Start(); err != nil {
		e.cleanupLocked()
		return fmt.Errorf("%w: %v", ErrInit, err)
	}

	if audioPath != "" {
		// O_RDWR keeps the open from blocking on a FIFO with no
		// reader yet.
		w, err := os.OpenFile(audioPath, os.O_RDWR, 0)
		if err != nil {
			e.logger.Warn().Err(err).Msg("audio pipe open failed, audio dropped")
		} else {
			e.audioW = w
		}
	}

	e.cmd = cmd
	e.stdin = stdin
	e.opts = opts
	e.started = true
	e.stopping = false
	e.seq = 0
	e.pending.Reset()
	e.waitResult = make(chan error, 1)
	e.readerDone = make(chan struct{})
	e.tickerStop = make(chan struct{})

	go e.readOutput(stdout)
	go e.emitChunks(opts.ChunkInterval)
	go e.watch(cmd)

	e.logger.Info().
		Int("width", opts.Width).
		Int("height", opts.Height).
		Int("framerate", opts.FrameRate).
		Bool("audio", audioPath != "").
		Msg("encoder started")
	return nil
}

func (e *FFmpeg) readOutput(stdout io.Reader) {
	defer close(e.readerDone)
	buf := make([]byte, 32*1024)
	for {
		n, err := stdout.Read(buf)
		if n > 0 {
			e.mu.Lock()
			e.pending.Write(buf[:n])
			e.mu.Unlock()
		}
		if err != nil {
			return
		}
	}
}

func (e *FFmpeg) emitChunks(interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-e.tickerStop:
			return
		case <-ticker.C:
			e.flushChunk()
		}
	}
}

// flushChunk hands the accumulated bytes to the chunk callback.
func (e *FFmpeg) flushChunk() {
	e.mu.Lock()
	if e.pending.Len() == 0 {
		e.mu.Unlock()
		return
	}
	data := make([]byte, e.pending.Len())
	copy(data, e.pending.Bytes())
	e.pending.Reset()
	e.seq++
	chunk := Chunk{Seq: e.seq, Bytes: data, At: time.Now()}
	cb := e.onChunk
	e.mu.Unlock()

	metrics.ObserveChunk(len(data))
	if cb != nil {
		cb(chunk)
	}
}

func (e *FFmpeg) watch(cmd *exec.Cmd) {
	err := cmd.Wait()
	e.mu.Lock()
	stopping := e.stopping
	cb := e.onError
	stderr := e.stderr.String()
	e.mu.Unlock()

	if !stopping {
		// The process died underneath a live session.
		if err == nil {
			err = errors.New("ffmpeg exited before stop")
		}
		e.logger.Error().Err(err).Str("stderr", stderr).Msg("encoder failed mid-session")
		if cb != nil {
			cb(fmt.Errorf("encoder: %w", err))
		}
	}
	e.waitResult <- err
}

// WriteFrame pushes one composed RGBA frame into the video pipe.
func (e *FFmpeg) WriteFrame(frame *image.RGBA) error {
	e.mu.Lock()
	stdin := e.stdin
	started := e.started
	w, h := e.opts.Width, e.opts.Height
	e.mu.Unlock()
	if !started || stdin == nil {
		return errors.New("encoder: not started")
	}
	if frame.Bounds().Dx() != w || frame.Bounds().Dy() != h {
		return fmt.Errorf("encoder: frame size %dx%d does not match %dx%d",
			frame.Bounds().Dx(), frame.Bounds().Dy(), w, h)
	}
	if _, err := stdin.Write(frame.Pix); err != nil {
		return fmt.Errorf("encoder: write frame: %w", err)
	}
	return nil
}

// WriteAudio pushes mono float32 samples into the audio pipe. Silently
// a no-op when the session runs video-only.
func (e *FFmpeg) WriteAudio(samples []float32) error {
	e.mu.Lock()
	w := e.audioW
	e.mu.Unlock()
	if w == nil {
		return nil
	}
	buf := make([]byte, 4*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(s))
	}
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("encoder: write audio: %w", err)
	}
	return nil
}

// Stop signals EOF, waits for ffmpeg to flush, and delivers the final
// chunk before returning.
func (e *FFmpeg) Stop(ctx context.Context) error {
	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return nil
	}
	e.stopping = true
	stdin := e.stdin
	audioW := e.audioW
	e.stdin = nil
	e.audioW = nil
	e.mu.Unlock()

	if stdin != nil {
		_ = stdin.Close()
	}
	if audioW != nil {
		_ = audioW.Close()
	}

	var waitErr error
	select {
	case waitErr = <-e.waitResult:
	case <-ctx.Done():
		_ = e.cmd.Process.Kill()
		waitErr = ctx.Err()
		<-e.waitResult
	}

	<-e.readerDone
	close(e.tickerStop)
	e.flushChunk()

	e.mu.Lock()
	e.started = false
	e.cleanupLocked()
	e.mu.Unlock()

	if waitErr != nil {
		return fmt.Errorf("encoder: flush: %w", waitErr)
	}
	e.logger.Info().Msg("encoder flushed")
	return nil
}

func (e *FFmpeg) cleanupLocked() {
	if e.audioCleanup != nil {
		e.audioCleanup()
		e.audioCleanup = nil
	}
}
