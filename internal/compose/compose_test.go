package compose

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uniform(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

var (
	red  = color.RGBA{R: 0xff, A: 0xff}
	blue = color.RGBA{B: 0xff, A: 0xff}
)

// Every layout must fully cover the canvas regardless of source aspect.
func TestComposeFullyFillsCanvasForAllLayouts(t *testing.T) {
	screen := uniform(999, 333, blue) // deliberately odd aspect
	camera := uniform(123, 456, red)

	for _, layout := range Layouts() {
		layout := layout
		t.Run(string(layout), func(t *testing.T) {
			dst := image.NewRGBA(image.Rect(0, 0, 320, 180))
			// Leave the canvas transparent so undrawn gaps are detectable.
			Compose(dst, Inputs{Screen: screen, Camera: camera, Layout: layout})

			for y := 0; y < 180; y++ {
				for x := 0; x < 320; x++ {
					_, _, _, a := dst.At(x, y).RGBA()
					require.Equal(t, uint32(0xffff), a, "undrawn pixel at (%d,%d)", x, y)
				}
			}
		})
	}
}

func TestComposeWithoutAnySourceDrawsBackgroundOnly(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 64, 64))
	Compose(dst, Inputs{Layout: LayoutScreenCameraBottomRight})

	assert.Equal(t, black, dst.RGBAAt(32, 32))
}

func TestComposeFallsBackToCameraOnlyWithoutScreen(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 100, 100))
	Compose(dst, Inputs{Camera: uniform(100, 100, red), Layout: LayoutScreenCameraBottomRight})

	// Camera cover fills the whole canvas, not just a corner bubble.
	assert.Equal(t, red, dst.RGBAAt(2, 2))
	assert.Equal(t, red, dst.RGBAAt(50, 50))
}

func TestComposeFallsBackToScreenOnlyWithoutCamera(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 100, 100))
	Compose(dst, Inputs{Screen: uniform(100, 100, blue), Layout: LayoutScreenCameraBottomRight})

	assert.Equal(t, blue, dst.RGBAAt(50, 50))
}

func TestCircleWebcamLeavesCornersUnclipped(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 400, 400))
	Compose(dst, Inputs{
		Screen: uniform(400, 400, blue),
		Camera: uniform(200, 200, red),
		Layout: LayoutScreenCameraBottomRight,
		Webcam: WebcamConfig{X: 100, Y: 100, Width: 100, Height: 100, Shape: ShapeCircle},
	})

	// Center of the webcam rect shows camera.
	assert.Equal(t, red, dst.RGBAAt(150, 150))
	// The rect corner lies outside the circle: screen shows through,
	// allowing for the border ring drawn around the circle.
	corner := dst.RGBAAt(101, 101)
	assert.NotEqual(t, red, corner)
}

func TestSquareWebcamFillsItsRect(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 400, 400))
	Compose(dst, Inputs{
		Screen: uniform(400, 400, blue),
		Camera: uniform(200, 200, red),
		Layout: LayoutScreenCameraBottomRight,
		Webcam: WebcamConfig{X: 100, Y: 100, Width: 100, Height: 100, Shape: ShapeSquare},
	})

	assert.Equal(t, red, dst.RGBAAt(101, 101))
	assert.Equal(t, red, dst.RGBAAt(199, 199))
}

func TestSideBySideLeftPlacesCameraStrip(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 300, 100))
	Compose(dst, Inputs{
		Screen: uniform(300, 100, blue),
		Camera: uniform(100, 100, red),
		Layout: LayoutSideBySideLeft,
	})

	assert.Equal(t, red, dst.RGBAAt(50, 50), "left third is the camera strip")
	assert.Equal(t, blue, dst.RGBAAt(200, 50), "remainder is the screen")
}

func TestSideBySideRightPlacesCameraStrip(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 300, 100))
	Compose(dst, Inputs{
		Screen: uniform(300, 100, blue),
		Camera: uniform(100, 100, red),
		Layout: LayoutSideBySideRight,
	})

	assert.Equal(t, red, dst.RGBAAt(250, 50))
	assert.Equal(t, blue, dst.RGBAAt(50, 50))
}

func TestWebcamDefaultRectBottomRight(t *testing.T) {
	canvas := image.Rect(0, 0, 1920, 1080)
	r := webcamRect(WebcamConfig{}, LayoutScreenCameraBottomRight, canvas)
	assert.Equal(t, 1920-defaultWebcamSize-defaultWebcamMargin, r.Min.X)
	assert.Equal(t, 1080-defaultWebcamSize-defaultWebcamMargin, r.Min.Y)

	l := webcamRect(WebcamConfig{}, LayoutScreenCameraBottomLeft, canvas)
	assert.Equal(t, defaultWebcamMargin, l.Min.X)
}

func TestWebcamRectClampedToCanvas(t *testing.T) {
	canvas := image.Rect(0, 0, 200, 200)
	r := webcamRect(WebcamConfig{X: 150, Y: 150, Width: 100, Height: 100}, LayoutScreenCameraBottomRight, canvas)
	assert.True(t, r.In(canvas))
}

func TestGradientBackgroundBlendsStops(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 10, 100))
	Compose(dst, Inputs{Background: Background{Kind: BackgroundGradient, Preset: "ocean"}})

	top := dst.RGBAAt(5, 0)
	bottom := dst.RGBAAt(5, 99)
	assert.Equal(t, gradientPresets["ocean"][0], top)
	assert.Equal(t, gradientPresets["ocean"][1], bottom)
}

func TestUnknownGradientPresetFallsBackToBlack(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 8, 8))
	Compose(dst, Inputs{Background: Background{Kind: BackgroundGradient, Preset: "nope"}})
	assert.Equal(t, black, dst.RGBAAt(4, 4))
}

func TestImageBackgroundWithoutDecodedImageFallsBackToBlack(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 8, 8))
	Compose(dst, Inputs{Background: Background{Kind: BackgroundImage}})
	assert.Equal(t, black, dst.RGBAAt(4, 4))
}

func TestImageBackgroundDrawsCover(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 50, 50))
	Compose(dst, Inputs{Background: Background{Kind: BackgroundImage, Image: uniform(200, 100, red)}})
	assert.Equal(t, red, dst.RGBAAt(25, 25))
	assert.Equal(t, red, dst.RGBAAt(0, 0))
}

func TestValidLayout(t *testing.T) {
	assert.True(t, ValidLayout(LayoutSideBySideLeft))
	assert.False(t, ValidLayout("picture-in-picture-top"))
}
