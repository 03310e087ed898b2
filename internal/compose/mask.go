// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package compose

import (
	"image"
	"image/color"
)

// Shape clips the webcam rectangle.
type Shape string

const (
	ShapeCircle        Shape = "circle"
	ShapeSquare        Shape = "square"
	ShapeRoundedSquare Shape = "rounded-square"
)

// maskFor returns an alpha mask with bounds == rect for the given
// shape, or nil when no clipping is needed (square).
func maskFor(shape Shape, rect image.Rectangle) image.Image {
	switch shape {
	case ShapeCircle:
		return &ellipseMask{rect: rect}
	case ShapeRoundedSquare:
		r := rect.Dx() / 8
		if rr := rect.Dy() / 8; rr < r {
			r = rr
		}
		return &roundedMask{rect: rect, radius: r}
	default:
		return nil
	}
}

// ellipseMask is fully opaque inside the ellipse inscribed in rect.
type ellipseMask struct {
	rect image.Rectangle
}

func (m *ellipseMask) ColorModel() color.Model { return color.AlphaModel }
func (m *ellipseMask) Bounds() image.Rectangle { return m.rect }

func (m *ellipseMask) At(x, y int) color.Color {
	// Normalized distance from center, measured at the pixel center.
	fx := (float64(x-m.rect.Min.X) + 0.5) / float64(m.rect.Dx())
	fy := (float64(y-m.rect.Min.Y) + 0.5) / float64(m.rect.Dy())
	dx := fx - 0.5
	dy := fy - 0.5
	if dx*dx+dy*dy <= 0.25 {
		return color.Alpha{A: 0xff}
	}
	return color.Alpha{}
}

// roundedMask is opaque inside rect minus the four corner cutouts.
type roundedMask struct {
	rect   image.Rectangle
	radius int
}

func (m *roundedMask) ColorModel() color.Model { return color.AlphaModel }
func (m *roundedMask) Bounds() image.Rectangle { return m.rect }

func (m *roundedMask) At(x, y int) color.Color {
	r := m.radius
	if r <= 0 {
		return color.Alpha{A: 0xff}
	}
	left := m.rect.Min.X + r
	right := m.rect.Max.X - r
	top := m.rect.Min.Y + r
	bottom := m.rect.Max.Y - r

	cx, cy := x, y
	switch {
	case x < left && y < top:
		cx, cy = left, top
	case x >= right && y < top:
		cx, cy = right-1, top
	case x < left && y >= bottom:
		cx, cy = left, bottom-1
	case x >= right && y >= bottom:
		cx, cy = right-1, bottom-1
	default:
		return color.Alpha{A: 0xff}
	}
	dx := x - cx
	dy := y - cy
	if dx*dx+dy*dy <= r*r {
		return color.Alpha{A: 0xff}
	}
	return color.Alpha{}
}
