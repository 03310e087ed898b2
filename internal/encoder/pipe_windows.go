// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

//go:build windows

package encoder

import "errors"

// Windows has no FIFO equivalent we can hand ffmpeg as a path; the
// encoder downgrades to video-only there.
func makeAudioPipe() (string, func(), error) {
	return "", nil, errors.New("audio pipe not supported on windows")
}
