// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package artifact holds the finalized recording: an immutable byte
// container plus a playable URL, created once at session completion
// and explicitly released on reset.
package artifact

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/renameio/v2"
)

// Artifact is the finished recording handed to an external uploader.
type Artifact struct {
	mu       sync.Mutex
	bytes    []byte
	duration time.Duration
	path     string
	released bool
}

// Assemble concatenates the emitted chunks into one artifact.
func Assemble(chunks [][]byte, duration time.Duration) *Artifact {
	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	data := make([]byte, 0, total)
	for _, c := range chunks {
		data = append(data, c...)
	}
	return &Artifact{bytes: data, duration: duration}
}

// Bytes returns the encoded container, or nil after release.
func (a *Artifact) Bytes() []byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.bytes
}

// Duration returns the recorded duration.
func (a *Artifact) Duration() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.duration
}

// Persist writes the artifact atomically to path and makes it
// playable. A partially written file is never observable.
func (a *Artifact) Persist(path string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.released {
		return fmt.Errorf("artifact: released")
	}
	if err := renameio.WriteFile(path, a.bytes, 0o644); err != nil {
		return fmt.Errorf("artifact: persist: %w", err)
	}
	a.path = path
	return nil
}

// URL returns the playable file URL, or "" before Persist or after
// Release.
func (a *Artifact) URL() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.path == "" || a.released {
		return ""
	}
	return "file://" + a.path
}

// Release frees the byte container and removes the persisted file.
// Idempotent.
func (a *Artifact) Release() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.released {
		return
	}
	a.released = true
	a.bytes = nil
	if a.path != "" {
		_ = os.Remove(a.path)
		a.path = ""
	}
}

// Released reports whether the artifact resources were freed.
func (a *Artifact) Released() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.released
}
