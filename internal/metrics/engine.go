// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package metrics provides Prometheus metrics for the recording engine.
// Label cardinality is kept low: no session IDs in labels.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FramesComposedTotal counts composed output frames by tick source.
	FramesComposedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recstudio_frames_composed_total",
		Help: "Total number of composed output frames, by tick source (primary/fallback).",
	}, []string{"tick"})

	// TicksSkippedTotal counts heartbeat ticks skipped by the visibility guard.
	TicksSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recstudio_ticks_skipped_total",
		Help: "Total number of heartbeat ticks suppressed by the visibility guard, by tick source.",
	}, []string{"tick"})

	// SessionsTotal counts finished recording sessions by outcome.
	SessionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recstudio_sessions_total",
		Help: "Total number of recording sessions, by outcome (completed/error).",
	}, []string{"outcome"})

	// CaptureErrorsTotal counts classified capture acquisition failures.
	CaptureErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recstudio_capture_errors_total",
		Help: "Total number of capture acquisition failures, by reason.",
	}, []string{"reason"})

	// EncoderChunksTotal counts emitted encoder chunks.
	EncoderChunksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recstudio_encoder_chunks_total",
		Help: "Total number of encoder chunks emitted.",
	})

	// EncoderBytesTotal counts encoded bytes across all chunks.
	EncoderBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recstudio_encoder_bytes_total",
		Help: "Total number of encoded bytes emitted across all chunks.",
	})

	// MixerSources tracks the number of audio sources wired into the mixer.
	MixerSources = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "recstudio_mixer_sources",
		Help: "Number of audio sources currently wired into the mixer.",
	})

	// SessionElapsedSeconds mirrors the elapsed time of the live session.
	SessionElapsedSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "recstudio_session_elapsed_seconds",
		Help: "Elapsed seconds of the currently recording session (0 when idle).",
	})
)

// IncFrameComposed records one composed frame for the given tick source.
func IncFrameComposed(tick string) {
	FramesComposedTotal.WithLabelValues(tick).Inc()
}

// IncTickSkipped records one suppressed tick for the given tick source.
func IncTickSkipped(tick string) {
	TicksSkippedTotal.WithLabelValues(tick).Inc()
}

// IncSessionOutcome records a finished session by outcome.
func IncSessionOutcome(outcome string) {
	SessionsTotal.WithLabelValues(outcome).Inc()
}

// IncCaptureError records a classified capture failure.
func IncCaptureError(reason string) {
	CaptureErrorsTotal.WithLabelValues(reason).Inc()
}

// ObserveChunk records one emitted encoder chunk of the given size.
func ObserveChunk(sizeBytes int) {
	EncoderChunksTotal.Inc()
	EncoderBytesTotal.Add(float64(sizeBytes))
}
