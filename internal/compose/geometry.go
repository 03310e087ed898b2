// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package compose

import "image"

// ContainRect returns the centered sub-rectangle of dst that a source
// of size src fills when scaled to fit entirely inside dst while
// preserving aspect. The remainder of dst is letterbox.
func ContainRect(src image.Point, dst image.Rectangle) image.Rectangle {
	if src.X <= 0 || src.Y <= 0 {
		return dst
	}
	dw, dh := dst.Dx(), dst.Dy()
	// Aspect comparison by cross-multiplication keeps everything in ints:
	// src.X/src.Y > dw/dh  <=>  src.X*dh > dw*src.Y
	if src.X*dh > dw*src.Y {
		w := dw
		h := dw * src.Y / src.X
		y := dst.Min.Y + (dh-h)/2
		return image.Rect(dst.Min.X, y, dst.Min.X+w, y+h)
	}
	h := dh
	w := dh * src.X / src.Y
	x := dst.Min.X + (dw-w)/2
	return image.Rect(x, dst.Min.Y, x+w, dst.Min.Y+h)
}

// CoverCrop returns the centered sub-rectangle of the source (in
// source coordinates, origin at 0,0) whose aspect matches dst. Scaling
// that crop to dst fills it exactly; the overflow is cropped away.
func CoverCrop(src image.Point, dst image.Rectangle) image.Rectangle {
	if src.X <= 0 || src.Y <= 0 {
		return image.Rect(0, 0, src.X, src.Y)
	}
	dw, dh := dst.Dx(), dst.Dy()
	if dw <= 0 || dh <= 0 {
		return image.Rect(0, 0, src.X, src.Y)
	}
	if src.X*dh > dw*src.Y {
		// Source wider than destination aspect: crop horizontally.
		w := src.Y * dw / dh
		x := (src.X - w) / 2
		return image.Rect(x, 0, x+w, src.Y)
	}
	h := src.X * dh / dw
	y := (src.Y - h) / 2
	return image.Rect(0, y, src.X, y+h)
}

func sizeOf(img image.Image) image.Point {
	b := img.Bounds()
	return image.Pt(b.Dx(), b.Dy())
}
