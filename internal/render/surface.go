/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0
 */

// Package render draws the interactive editing surface: the scaled base
// image, every caption, and the selection decoration of the selected box.
package render

import (
	"image"
	"image/draw"

	xdraw "golang.org/x/image/draw"
)

// Size is a surface size in whole pixels.
type Size struct {
	W, H int
}

func (s Size) Empty() bool { return s.W <= 0 || s.H <= 0 }

// FitWithin scales (w, h) down to fit (maxW, maxH) preserving the aspect
// ratio. The width cap is applied first, then the height cap; images are
// never upscaled. The result is truncated to whole pixels, at least 1.
func FitWithin(w, h, maxW, maxH int) Size {
	if w <= 0 || h <= 0 {
		return Size{}
	}
	fw, fh := float64(w), float64(h)
	if maxW > 0 && fw > float64(maxW) {
		fh = fh * float64(maxW) / fw
		fw = float64(maxW)
	}
	if maxH > 0 && fh > float64(maxH) {
		fw = fw * float64(maxH) / fh
		fh = float64(maxH)
	}
	return Size{W: max(1, int(fw)), H: max(1, int(fh))}
}

// SetupSurface sizes the interactive surface for img.
func SetupSurface(img image.Image, maxW, maxH int) Size {
	if img == nil {
		return Size{}
	}
	b := img.Bounds()
	return FitWithin(b.Dx(), b.Dy(), maxW, maxH)
}

// ScaleImage resamples src to exactly size using Catmull-Rom.
func ScaleImage(src image.Image, size Size) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, size.W, size.H))
	if src == nil || size.Empty() {
		return dst
	}
	sb := src.Bounds()
	if sb.Dx() == size.W && sb.Dy() == size.H {
		draw.Draw(dst, dst.Bounds(), src, sb.Min, draw.Src)
		return dst
	}
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, sb, xdraw.Src, nil)
	return dst
}
