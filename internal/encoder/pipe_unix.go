// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

//go:build unix

package encoder

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// makeAudioPipe creates a FIFO ffmpeg reads PCM from as a second
// input, since a single stdin cannot carry two streams.
func makeAudioPipe() (string, func(), error) {
	dir, err := os.MkdirTemp("", "recstudio-audio-")
	if err != nil {
		return "", nil, fmt.Errorf("audio pipe tempdir: %w", err)
	}
	path := filepath.Join(dir, "audio.pcm")
	if err := syscall.Mkfifo(path, 0o600); err != nil {
		_ = os.RemoveAll(dir)
		return "", nil, fmt.Errorf("mkfifo: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(dir) }
	return path, cleanup, nil
}
