// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package sim provides a synthetic capture backend: procedurally drawn
// video and generated tones instead of real devices. The daemon uses it
// on hosts without capture hardware; it also powers demos and soak
// runs.
package sim

import (
	"context"
	"image"
	"image/color"
	"math"
	"sync"
	"time"

	"github.com/ManuGH/recstudio/internal/log"
	"github.com/ManuGH/recstudio/internal/source"
	"github.com/rs/zerolog"
)

const (
	defaultScreenWidth  = 1920
	defaultScreenHeight = 1080
	defaultCameraWidth  = 1280
	defaultCameraHeight = 720
	defaultSampleRate   = 48000

	microphoneToneHz = 440
	screenToneHz     = 220
)

// Capturer synthesizes one acquisition per kind.
type Capturer struct {
	logger zerolog.Logger

	mu   sync.Mutex
	live map[source.Kind]*acquisition
}

func New() *Capturer {
	return &Capturer{
		logger: log.WithComponent("capture.sim"),
		live:   make(map[source.Kind]*acquisition),
	}
}

// Acquire synthesizes tracks for kind. It never fails; scripted
// failures belong to tests, not to the simulator.
func (c *Capturer) Acquire(ctx context.Context, kind source.Kind, con source.Constraints) (source.Acquisition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rate := con.SampleRate
	if rate <= 0 {
		rate = defaultSampleRate
	}

	acq := &acquisition{}
	switch kind {
	case source.Screen:
		w, h := con.Width, con.Height
		if w <= 0 || h <= 0 {
			w, h = defaultScreenWidth, defaultScreenHeight
		}
		acq.video = newVideoTrack(w, h, screenPattern)
		acq.audio = newToneTrack(screenToneHz, 0.2, rate)
	case source.Camera:
		w, h := con.Width, con.Height
		if w <= 0 || h <= 0 {
			w, h = defaultCameraWidth, defaultCameraHeight
		}
		acq.video = newVideoTrack(w, h, cameraPattern)
		if con.WithAudio {
			acq.audio = newToneTrack(microphoneToneHz, 0.4, rate)
		}
	case source.Microphone:
		acq.audio = newToneTrack(microphoneToneHz, 0.4, rate)
	}

	c.mu.Lock()
	c.live[kind] = acq
	c.mu.Unlock()
	c.logger.Info().Str("kind", string(kind)).Msg("synthetic source acquired")
	return acq, nil
}

// EndScreen simulates the host ending the screen share externally.
func (c *Capturer) EndScreen() {
	c.mu.Lock()
	acq := c.live[source.Screen]
	c.mu.Unlock()
	if acq != nil {
		acq.triggerEnd()
	}
}

type acquisition struct {
	mu      sync.Mutex
	video   *videoTrack
	audio   *toneTrack
	onEnded func()
	stopped bool
}

func (a *acquisition) Video() source.VideoTrack {
	if a.video == nil {
		return nil
	}
	return a.video
}

func (a *acquisition) Audio() source.AudioTrack {
	if a.audio == nil {
		return nil
	}
	return a.audio
}

func (a *acquisition) OnEnded(cb func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onEnded = cb
}

func (a *acquisition) Stop() {
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

func (a *acquisition) triggerEnd() {
	a.Stop()
	a.mu.Lock()
	cb := a.onEnded
	a.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// pattern draws one frame for the elapsed time since acquisition.
type pattern func(dst *image.RGBA, elapsed time.Duration)

// videoTrack re-renders its pattern on every Frame call, so the output
// visibly moves without a background goroutine.
type videoTrack struct {
	mu      sync.Mutex
	frame   *image.RGBA
	draw    pattern
	started time.Time
	stopped bool
}

func newVideoTrack(w, h int, draw pattern) *videoTrack {
	return &videoTrack{
		frame:   image.NewRGBA(image.Rect(0, 0, w, h)),
		draw:    draw,
		started: time.Now(),
	}
}

func (t *videoTrack) Frame() (image.Image, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return nil, false
	}
	t.draw(t.frame, time.Since(t.started))
	return t.frame, true
}

func (t *videoTrack) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

// screenPattern renders a dark slate field with a light scanline
// sweeping top to bottom once per two seconds.
func screenPattern(dst *image.RGBA, elapsed time.Duration) {
	b := dst.Bounds()
	h := b.Dy()
	sweep := int(elapsed.Seconds()/2*float64(h)) % h
	for y := b.Min.Y; y < b.Max.Y; y++ {
		c := color.RGBA{R: 0x1e, G: 0x29, B: 0x3b, A: 0xff}
		if d := y - sweep; d >= 0 && d < 4 {
			c = color.RGBA{R: 0x94, G: 0xa3, B: 0xb8, A: 0xff}
		}
		for x := b.Min.X; x < b.Max.X; x++ {
			dst.SetRGBA(x, y, c)
		}
	}
}

// cameraPattern renders a warm field with a dot orbiting the center.
func cameraPattern(dst *image.RGBA, elapsed time.Duration) {
	b := dst.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dst.SetRGBA(x, y, color.RGBA{R: 0x7c, G: 0x3a, B: 0xed, A: 0xff})
		}
	}
	cx := float64(b.Min.X+b.Max.X) / 2
	cy := float64(b.Min.Y+b.Max.Y) / 2
	radius := float64(b.Dy()) / 4
	angle := elapsed.Seconds() * math.Pi // half a turn per second
	dot := image.Point{
		X: int(cx + radius*math.Cos(angle)),
		Y: int(cy + radius*math.Sin(angle)),
	}
	r := b.Dy() / 20
	for y := dot.Y - r; y <= dot.Y+r; y++ {
		for x := dot.X - r; x <= dot.X+r; x++ {
			dx, dy := x-dot.X, y-dot.Y
			if dx*dx+dy*dy <= r*r && image.Pt(x, y).In(b) {
				dst.SetRGBA(x, y, color.RGBA{R: 0xfa, G: 0xfa, B: 0xf9, A: 0xff})
			}
		}
	}
}

// toneTrack generates a phase-continuous sine tone.
type toneTrack struct {
	mu      sync.Mutex
	freq    float64
	gain    float64
	rate    int
	phase   float64
	stopped bool
}

func newToneTrack(freq, gain float64, rate int) *toneTrack {
	return &toneTrack{freq: freq, gain: gain, rate: rate}
}

func (t *toneTrack) ReadPCM(dst []float32) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return 0
	}
	step := 2 * math.Pi * t.freq / float64(t.rate)
	for i := range dst {
		dst[i] = float32(t.gain * math.Sin(t.phase))
		t.phase += step
	}
	// Keep the phase bounded over long runs.
	t.phase = math.Mod(t.phase, 2*math.Pi)
	return len(dst)
}

func (t *toneTrack) SampleRate() int { return t.rate }

func (t *toneTrack) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}
