// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package compose maps (sources, canvas, layout, background) to one
// drawn output frame. Compose is pure per call and holds no state, so
// adding a layout means adding one draw function without touching the
// others.
package compose

import (
	"image"
	"image/color"
	"image/draw"

	xdraw "golang.org/x/image/draw"
)

// Layout names one deterministic placement policy.
type Layout string

const (
	LayoutScreenCameraBottomRight Layout = "screen-camera-bottom-right"
	LayoutScreenCameraBottomLeft  Layout = "screen-camera-bottom-left"
	LayoutSideBySideLeft          Layout = "side-by-side-left"
	LayoutSideBySideRight         Layout = "side-by-side-right"
	LayoutCameraOnlyContain       Layout = "camera-only-contain"
	LayoutCameraOnlyCover         Layout = "camera-only-cover"
	LayoutScreenOnly              Layout = "screen-only"
)

// Layouts lists every known layout id.
func Layouts() []Layout {
	return []Layout{
		LayoutScreenCameraBottomRight,
		LayoutScreenCameraBottomLeft,
		LayoutSideBySideLeft,
		LayoutSideBySideRight,
		LayoutCameraOnlyContain,
		LayoutCameraOnlyCover,
		LayoutScreenOnly,
	}
}

// ValidLayout reports whether id names a known layout.
func ValidLayout(id Layout) bool {
	for _, l := range Layouts() {
		if l == id {
			return true
		}
	}
	return false
}

// WebcamConfig positions the camera rectangle for the positioned
// layouts. Zero Width/Height means "use the layout default". The
// caller may mutate its copy at any time; the compositor reads it
// fresh on every frame.
type WebcamConfig struct {
	X      int
	Y      int
	Width  int
	Height int
	Shape  Shape
}

const (
	defaultWebcamSize   = 280
	defaultWebcamMargin = 32
	webcamBorderWidth   = 4
	shadowOffset        = 4
	sideStripFraction   = 3 // camera strip is one third of the canvas
)

// Inputs carries everything one Compose call reads. A nil Screen or
// Camera means the source is absent, disabled or not yet decodable for
// this tick and must be skipped without failing the frame.
type Inputs struct {
	Screen     image.Image
	Camera     image.Image
	Layout     Layout
	Webcam     WebcamConfig
	Background Background
}

// Compose draws one output frame onto dst. The canvas is always fully
// covered: background first, then the sources the effective layout
// places.
func Compose(dst *image.RGBA, in Inputs) {
	drawBackground(dst, in.Background)

	layout := effectiveLayout(in.Layout, in.Screen != nil, in.Camera != nil)
	switch layout {
	case LayoutScreenCameraBottomRight, LayoutScreenCameraBottomLeft:
		drawContain(dst, in.Screen, dst.Bounds())
		drawCameraShaped(dst, in.Camera, webcamRect(in.Webcam, layout, dst.Bounds()), in.Webcam.Shape)
	case LayoutSideBySideLeft:
		strip, rest := splitVertical(dst.Bounds(), true)
		drawCover(dst, in.Camera, strip)
		drawCover(dst, in.Screen, rest)
	case LayoutSideBySideRight:
		strip, rest := splitVertical(dst.Bounds(), false)
		drawCover(dst, in.Camera, strip)
		drawCover(dst, in.Screen, rest)
	case LayoutCameraOnlyContain:
		drawContain(dst, in.Camera, dst.Bounds())
	case LayoutCameraOnlyCover:
		drawCover(dst, in.Camera, dst.Bounds())
	case LayoutScreenOnly:
		drawContain(dst, in.Screen, dst.Bounds())
	}
}

// effectiveLayout degrades the requested layout to whatever the
// available sources can satisfy, so a denied screen share still
// records camera-only and vice versa.
func effectiveLayout(requested Layout, hasScreen, hasCamera bool) Layout {
	switch {
	case !hasScreen && !hasCamera:
		return ""
	case !hasScreen:
		if requested == LayoutCameraOnlyContain {
			return LayoutCameraOnlyContain
		}
		return LayoutCameraOnlyCover
	case !hasCamera:
		return LayoutScreenOnly
	default:
		return requested
	}
}

// webcamRect resolves the camera rectangle: caller config wins, the
// layout provides defaults, and the rect is clamped onto the canvas.
func webcamRect(cfg WebcamConfig, layout Layout, canvas image.Rectangle) image.Rectangle {
	w, h := cfg.Width, cfg.Height
	if w <= 0 || h <= 0 {
		w, h = defaultWebcamSize, defaultWebcamSize
	}
	x, y := cfg.X, cfg.Y
	if cfg.Width <= 0 || cfg.Height <= 0 {
		y = canvas.Max.Y - h - defaultWebcamMargin
		if layout == LayoutScreenCameraBottomLeft {
			x = canvas.Min.X + defaultWebcamMargin
		} else {
			x = canvas.Max.X - w - defaultWebcamMargin
		}
	}
	r := image.Rect(x, y, x+w, y+h)
	return r.Intersect(canvas)
}

func splitVertical(canvas image.Rectangle, stripLeft bool) (strip, rest image.Rectangle) {
	stripW := canvas.Dx() / sideStripFraction
	if stripLeft {
		strip = image.Rect(canvas.Min.X, canvas.Min.Y, canvas.Min.X+stripW, canvas.Max.Y)
		rest = image.Rect(canvas.Min.X+stripW, canvas.Min.Y, canvas.Max.X, canvas.Max.Y)
		return strip, rest
	}
	strip = image.Rect(canvas.Max.X-stripW, canvas.Min.Y, canvas.Max.X, canvas.Max.Y)
	rest = image.Rect(canvas.Min.X, canvas.Min.Y, canvas.Max.X-stripW, canvas.Max.Y)
	return strip, rest
}

// drawContain scales src to fit inside dstRect, centered, letterboxed
// onto whatever background is already there. A nil src is skipped.
func drawContain(dst *image.RGBA, src image.Image, dstRect image.Rectangle) {
	if src == nil {
		return
	}
	target := ContainRect(sizeOf(src), dstRect)
	xdraw.ApproxBiLinear.Scale(dst, target, src, src.Bounds(), xdraw.Src, nil)
}

// drawCover center-crops src to dstRect's aspect and scales it to fill
// dstRect exactly. A nil src is skipped.
func drawCover(dst *image.RGBA, src image.Image, dstRect image.Rectangle) {
	if src == nil {
		return
	}
	crop := CoverCrop(sizeOf(src), dstRect).Add(src.Bounds().Min)
	xdraw.ApproxBiLinear.Scale(dst, dstRect, src, crop, xdraw.Src, nil)
}

// drawCameraShaped renders the camera into rect clipped to shape, with
// a drop shadow behind and a border ring around it.
func drawCameraShaped(dst *image.RGBA, cam image.Image, rect image.Rectangle, shape Shape) {
	if cam == nil || rect.Empty() {
		return
	}

	shadowRect := rect.Add(image.Pt(shadowOffset, shadowOffset))
	fillShaped(dst, shadowRect, color.RGBA{A: 0x5a}, shape)

	borderRect := rect.Inset(-webcamBorderWidth)
	fillShaped(dst, borderRect, color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}, shape)

	// Render the cropped camera into an offscreen tile, then clip it in.
	tile := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	crop := CoverCrop(sizeOf(cam), tile.Bounds()).Add(cam.Bounds().Min)
	xdraw.ApproxBiLinear.Scale(tile, tile.Bounds(), cam, crop, xdraw.Src, nil)

	if mask := maskFor(shape, rect); mask != nil {
		draw.DrawMask(dst, rect, tile, image.Point{}, mask, rect.Min, draw.Over)
		return
	}
	draw.Draw(dst, rect, tile, image.Point{}, draw.Over)
}

func fillShaped(dst *image.RGBA, rect image.Rectangle, c color.RGBA, shape Shape) {
	src := image.NewUniform(c)
	if mask := maskFor(shape, rect); mask != nil {
		draw.DrawMask(dst, rect, src, image.Point{}, mask, rect.Min, draw.Over)
		return
	}
	draw.Draw(dst, rect, src, image.Point{}, draw.Over)
}
