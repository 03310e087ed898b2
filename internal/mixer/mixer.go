// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package mixer sums N independent audio sources into one output
// track with per-source gain. Sources are read through their handles
// on every pull, so toggling a source off silences it within one tick
// without renegotiating the device.
package mixer

import (
	"errors"
	"sync"

	"github.com/ManuGH/recstudio/internal/log"
	"github.com/ManuGH/recstudio/internal/metrics"
	"github.com/ManuGH/recstudio/internal/source"
	"github.com/rs/zerolog"
)

// Gain defaults: ambient/system audio sits below the voice track.
const (
	DefaultSystemGain = 0.8
	DefaultVoiceGain  = 1.0
)

// ErrNoAudio is returned when zero wired sources can ever produce
// audio. The caller must then try a direct passthrough of a raw track
// before giving up on audio entirely.
var ErrNoAudio = errors.New("mixer: no audio sources")

// Output is one mixed mono float32 PCM track.
type Output interface {
	ReadPCM(dst []float32) int
	SampleRate() int
}

type input struct {
	handle *source.Handle
	gain   float32
}

// Mixer accumulates sources and builds one summed output.
type Mixer struct {
	sampleRate int
	logger     zerolog.Logger
	inputs     []input
}

func New(sampleRate int) *Mixer {
	return &Mixer{
		sampleRate: sampleRate,
		logger:     log.WithComponent("mixer"),
	}
}

// Add wires a handle into the mix at the given gain. Handles without
// an audio track are ignored.
func (m *Mixer) Add(h *source.Handle, gain float64) {
	if h == nil || !h.HasAudioTrack() {
		return
	}
	m.inputs = append(m.inputs, input{handle: h, gain: float32(gain)})
	m.logger.Debug().Str("kind", string(h.Kind())).Float64("gain", gain).Msg("audio source wired")
}

// Build returns the summed output, or ErrNoAudio when nothing was
// wired.
func (m *Mixer) Build() (Output, error) {
	if len(m.inputs) == 0 {
		return nil, ErrNoAudio
	}
	metrics.MixerSources.Set(float64(len(m.inputs)))
	return &mixed{inputs: m.inputs, rate: m.sampleRate}, nil
}

type mixed struct {
	mu      sync.Mutex
	inputs  []input
	rate    int
	scratch []float32
}

func (o *mixed) SampleRate() int { return o.rate }

// ReadPCM fills dst with the gain-weighted sum of all live inputs,
// clamped to [-1, 1]. Disabled or stopped inputs contribute silence.
func (o *mixed) ReadPCM(dst []float32) int {
	o.mu.Lock()
	defer o.mu.Unlock()

	for i := range dst {
		dst[i] = 0
	}
	if cap(o.scratch) < len(dst) {
		o.scratch = make([]float32, len(dst))
	}
	scratch := o.scratch[:len(dst)]

	for _, in := range o.inputs {
		track := in.handle.Audio()
		if track == nil {
			continue
		}
		n := track.ReadPCM(scratch)
		for i := 0; i < n; i++ {
			dst[i] += scratch[i] * in.gain
		}
	}

	for i := range dst {
		if dst[i] > 1 {
			dst[i] = 1
		} else if dst[i] < -1 {
			dst[i] = -1
		}
	}
	return len(dst)
}

// Passthrough wraps the first handle that owns an audio track as a raw
// output with unity gain. It returns ErrNoAudio when none qualifies.
func Passthrough(rate int, handles ...*source.Handle) (Output, error) {
	for _, h := range handles {
		if h != nil && h.HasAudioTrack() {
			return &passthrough{handle: h, rate: rate}, nil
		}
	}
	return nil, ErrNoAudio
}

type passthrough struct {
	handle *source.Handle
	rate   int
}

func (p *passthrough) SampleRate() int { return p.rate }

func (p *passthrough) ReadPCM(dst []float32) int {
	track := p.handle.Audio()
	if track == nil {
		for i := range dst {
			dst[i] = 0
		}
		return len(dst)
	}
	n := track.ReadPCM(dst)
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
	return len(dst)
}
