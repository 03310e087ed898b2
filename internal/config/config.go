// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package config resolves the daemon configuration from RECSTUDIO_*
// environment variables with logged defaults.
package config

import (
	"fmt"
	"time"
)

// Config is the resolved daemon configuration.
type Config struct {
	ListenAddr string
	OutputDir  string

	CanvasWidth   int
	CanvasHeight  int
	FrameRate     int
	SampleRate    int
	MaxDuration   time.Duration
	ChunkInterval time.Duration

	FFmpegPath string
	SimCapture bool

	RateLimitRequests int
	RateLimitWindow   time.Duration

	LogLevel string
}

// FromEnv resolves every setting from the environment, logging the
// source of each value.
func FromEnv() Config {
	return Config{
		ListenAddr: parseString("RECSTUDIO_LISTEN", ":8080"),
		OutputDir:  parseString("RECSTUDIO_OUTPUT_DIR", "./recordings"),

		CanvasWidth:   parseInt("RECSTUDIO_CANVAS_WIDTH", 1920),
		CanvasHeight:  parseInt("RECSTUDIO_CANVAS_HEIGHT", 1080),
		FrameRate:     parseInt("RECSTUDIO_FRAME_RATE", 30),
		SampleRate:    parseInt("RECSTUDIO_SAMPLE_RATE", 48000),
		MaxDuration:   parseDuration("RECSTUDIO_MAX_DURATION", 120*time.Second),
		ChunkInterval: parseDuration("RECSTUDIO_CHUNK_INTERVAL", time.Second),

		FFmpegPath: parseString("RECSTUDIO_FFMPEG", "ffmpeg"),
		SimCapture: parseBool("RECSTUDIO_SIM_CAPTURE", true),

		RateLimitRequests: parseInt("RECSTUDIO_RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   parseDuration("RECSTUDIO_RATE_LIMIT_WINDOW", time.Minute),

		LogLevel: parseString("RECSTUDIO_LOG_LEVEL", "info"),
	}
}

// Validate rejects configurations the pipeline cannot run with.
func (c Config) Validate() error {
	if c.CanvasWidth <= 0 || c.CanvasHeight <= 0 {
		return fmt.Errorf("config: canvas %dx%d must be positive", c.CanvasWidth, c.CanvasHeight)
	}
	if c.CanvasWidth%2 != 0 || c.CanvasHeight%2 != 0 {
		// The encoder's pixel formats require even dimensions.
		return fmt.Errorf("config: canvas %dx%d must have even dimensions", c.CanvasWidth, c.CanvasHeight)
	}
	if c.FrameRate <= 0 || c.FrameRate > 120 {
		return fmt.Errorf("config: frame rate %d out of range (1..120)", c.FrameRate)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("config: sample rate %d must be positive", c.SampleRate)
	}
	if c.MaxDuration < 0 {
		return fmt.Errorf("config: max duration %s must not be negative", c.MaxDuration)
	}
	if c.ChunkInterval <= 0 {
		return fmt.Errorf("config: chunk interval %s must be positive", c.ChunkInterval)
	}
	if c.RateLimitRequests <= 0 || c.RateLimitWindow <= 0 {
		return fmt.Errorf("config: rate limit %d/%s must be positive", c.RateLimitRequests, c.RateLimitWindow)
	}
	return nil
}
