package compose

import (
	"image"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestCoverCropWideSourceIntoSquare(t *testing.T) {
	// 1280x720 into 640x640: crop must be the centered 720x720 square.
	got := CoverCrop(image.Pt(1280, 720), image.Rect(0, 0, 640, 640))
	want := image.Rect(280, 0, 1000, 720)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("cover crop mismatch (-want +got):\n%s", diff)
	}
}

func TestContainMatchingAspectFillsExactly(t *testing.T) {
	// 1280x720 into 640x360: same aspect, no letterbox.
	got := ContainRect(image.Pt(1280, 720), image.Rect(0, 0, 640, 360))
	assert.Equal(t, image.Rect(0, 0, 640, 360), got)
}

func TestContainWideSourceLetterboxesVertically(t *testing.T) {
	got := ContainRect(image.Pt(1920, 1080), image.Rect(0, 0, 1000, 1000))
	// Scaled height 1000*1080/1920 = 562, centered.
	assert.Equal(t, 1000, got.Dx())
	assert.Equal(t, 562, got.Dy())
	assert.Equal(t, (1000-562)/2, got.Min.Y)
	assert.Equal(t, 0, got.Min.X)
}

func TestContainTallSourceLetterboxesHorizontally(t *testing.T) {
	got := ContainRect(image.Pt(720, 1280), image.Rect(0, 0, 1920, 1080))
	assert.Equal(t, 1080, got.Dy())
	assert.Equal(t, 1080*720/1280, got.Dx())
	assert.Equal(t, (1920-got.Dx())/2, got.Min.X)
}

func TestCoverCropTallSource(t *testing.T) {
	got := CoverCrop(image.Pt(720, 1280), image.Rect(0, 0, 640, 360))
	// Destination is wider: full width kept, height cropped to match.
	assert.Equal(t, 720, got.Dx())
	assert.Equal(t, 720*360/640, got.Dy())
}

func TestContainRespectsDestinationOffset(t *testing.T) {
	dst := image.Rect(100, 50, 740, 410) // 640x360
	got := ContainRect(image.Pt(1280, 720), dst)
	assert.Equal(t, dst, got)
}
