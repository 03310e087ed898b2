// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package compose

import (
	"image"
	"image/color"
	"image/draw"

	xdraw "golang.org/x/image/draw"
)

// BackgroundKind selects how the canvas is filled behind the sources.
type BackgroundKind string

const (
	BackgroundNone     BackgroundKind = "none"
	BackgroundGradient BackgroundKind = "gradient"
	BackgroundImage    BackgroundKind = "image"
)

// Background is an immutable background choice. An image background
// requires a preloaded decoded image; a nil Image falls back to solid
// black rather than failing the frame.
type Background struct {
	Kind   BackgroundKind
	Preset string      // gradient preset name
	Image  image.Image // decoded image for BackgroundImage
}

// Two-stop gradient presets. Unknown presets fall back to solid black;
// background choice must never abort a frame.
var gradientPresets = map[string][2]color.RGBA{
	"sunset":   {{R: 0xf9, G: 0x73, B: 0x16, A: 0xff}, {R: 0xdb, G: 0x27, B: 0x77, A: 0xff}},
	"ocean":    {{R: 0x0e, G: 0xa5, B: 0xe9, A: 0xff}, {R: 0x1e, G: 0x3a, B: 0x8a, A: 0xff}},
	"forest":   {{R: 0x22, G: 0xc5, B: 0x5e, A: 0xff}, {R: 0x14, G: 0x53, B: 0x2d, A: 0xff}},
	"midnight": {{R: 0x33, G: 0x41, B: 0x55, A: 0xff}, {R: 0x0f, G: 0x17, B: 0x2a, A: 0xff}},
	"lavender": {{R: 0xa7, G: 0x8b, B: 0xfa, A: 0xff}, {R: 0x4c, G: 0x1d, B: 0x95, A: 0xff}},
}

// GradientPresets lists the accepted preset names.
func GradientPresets() []string {
	names := make([]string, 0, len(gradientPresets))
	for name := range gradientPresets {
		names = append(names, name)
	}
	return names
}

var black = color.RGBA{A: 0xff}

func drawBackground(dst *image.RGBA, bg Background) {
	switch bg.Kind {
	case BackgroundGradient:
		stops, ok := gradientPresets[bg.Preset]
		if !ok {
			fill(dst, black)
			return
		}
		fillGradient(dst, stops[0], stops[1])
	case BackgroundImage:
		if bg.Image == nil {
			fill(dst, black)
			return
		}
		crop := CoverCrop(sizeOf(bg.Image), dst.Bounds())
		crop = crop.Add(bg.Image.Bounds().Min)
		xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), bg.Image, crop, xdraw.Src, nil)
	default:
		fill(dst, black)
	}
}

func fill(dst *image.RGBA, c color.RGBA) {
	draw.Draw(dst, dst.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
}

// fillGradient paints a vertical two-stop blend, one row color per
// scanline.
func fillGradient(dst *image.RGBA, top, bottom color.RGBA) {
	b := dst.Bounds()
	h := b.Dy()
	if h <= 0 {
		return
	}
	den := h - 1
	if den < 1 {
		den = 1
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		t := float64(y-b.Min.Y) / float64(den)
		row := color.RGBA{
			R: lerp8(top.R, bottom.R, t),
			G: lerp8(top.G, bottom.G, t),
			B: lerp8(top.B, bottom.B, t),
			A: 0xff,
		}
		i := dst.PixOffset(b.Min.X, y)
		for x := 0; x < b.Dx(); x++ {
			dst.Pix[i] = row.R
			dst.Pix[i+1] = row.G
			dst.Pix[i+2] = row.B
			dst.Pix[i+3] = row.A
			i += 4
		}
	}
}

func lerp8(a, b uint8, t float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*t + 0.5)
}
