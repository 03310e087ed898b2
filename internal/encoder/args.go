// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package encoder

import "strconv"

// buildArgs assembles the ffmpeg invocation: raw RGBA frames on stdin,
// optional mono f32le PCM from audioPath, VP9+Opus in WebM on stdout.
// Pure so the argument layout is testable without spawning ffmpeg.
func buildArgs(opts Options, audioPath string) []string {
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-video_size", strconv.Itoa(opts.Width) + "x" + strconv.Itoa(opts.Height),
		"-framerate", strconv.Itoa(opts.FrameRate),
		"-i", "pipe:0",
	}
	if audioPath != "" {
		args = append(args,
			"-f", "f32le",
			"-ar", strconv.Itoa(opts.SampleRate),
			"-ac", "1",
			"-i", audioPath,
		)
	}
	args = append(args,
		"-c:v", "libvpx-vp9",
		"-deadline", "realtime",
		"-cpu-used", "8",
		"-b:v", "4M",
	)
	if audioPath != "" {
		args = append(args, "-c:a", "libopus", "-b:a", "128k")
	}
	args = append(args, "-f", "webm", "pipe:1")
	return args
}
