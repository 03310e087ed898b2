package encoder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuildArgsVideoOnly(t *testing.T) {
	args := buildArgs(Options{
		Width: 1920, Height: 1080, FrameRate: 30,
		ChunkInterval: time.Second,
	}, "")

	assert.Contains(t, args, "rawvideo")
	assert.Contains(t, args, "1920x1080")
	assert.Contains(t, args, "30")
	assert.Contains(t, args, "libvpx-vp9")
	assert.NotContains(t, args, "f32le")
	assert.NotContains(t, args, "libopus")
	assert.Equal(t, "pipe:1", args[len(args)-1])
}

func TestBuildArgsWithAudioPipe(t *testing.T) {
	args := buildArgs(Options{
		Width: 1280, Height: 720, FrameRate: 60,
		SampleRate: 48000, HasAudio: true,
	}, "/tmp/audio.pcm")

	assert.Contains(t, args, "f32le")
	assert.Contains(t, args, "48000")
	assert.Contains(t, args, "/tmp/audio.pcm")
	assert.Contains(t, args, "libopus")

	// Video input must precede the audio input so stream order is stable.
	vidIdx := indexOf(args, "pipe:0")
	audIdx := indexOf(args, "/tmp/audio.pcm")
	assert.Less(t, vidIdx, audIdx)
}

func indexOf(args []string, want string) int {
	for i, a := range args {
		if a == want {
			return i
		}
	}
	return -1
}
