/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0
 */

package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"strings"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"

	"github.com/CGYORK/meme-generator-project/internal/domain"
	"github.com/CGYORK/meme-generator-project/internal/geometry"
	"github.com/CGYORK/meme-generator-project/internal/textlayout"
)

// DragOpacity is the fill opacity of the box being dragged.
const DragOpacity = 0.8

var outlineColor = color.Black

// Caption is one text box resolved to drawing units.
type Caption struct {
	Lines   []string
	X, Y    float64
	Size    float64
	Color   color.Color
	Opacity float64
}

// CaptionFor resolves box for a surface scaled by (sx, sy) relative to the
// one its coordinates were recorded on. The font follows the horizontal
// scale.
func CaptionFor(box domain.TextBox, sx, sy, opacity float64) Caption {
	return Caption{
		Lines:   domain.Lines(box.Text),
		X:       box.X * sx,
		Y:       box.Y * sy,
		Size:    float64(box.FontSize) * sx,
		Color:   domain.ParseColor(box.Color),
		Opacity: opacity,
	}
}

// StrokeWidth is the outline width for a font size.
func StrokeWidth(size float64) float64 { return math.Max(5, size/8) }

// DrawCaption draws c centered on (X, Y) line by line: a black outline of
// StrokeWidth, then the fill at c.Opacity. The outline is always opaque.
// Whitespace-only lines are skipped but keep their slot.
func DrawCaption(dc *gg.Context, face font.Face, c Caption) {
	dst, ok := dc.Image().(draw.Image)
	if !ok || face == nil {
		return
	}
	lh := c.Size * geometry.LineHeightFactor
	startY := c.Y - float64(len(c.Lines)-1)*lh/2
	radius := StrokeWidth(c.Size) / 2
	fill := image.NewUniform(domain.WithOpacity(c.Color, c.Opacity))
	outline := image.NewUniform(outlineColor)

	for i, line := range c.Lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		mask, at := lineMask(face, line, c.X, startY+float64(i)*lh, radius)
		r := mask.Bounds().Add(at)
		// canvas-style stroke: the glyph mask dilated by the stroke radius
		ri := int(math.Floor(radius))
		for dy := -ri; dy <= ri; dy++ {
			for dx := -ri; dx <= ri; dx++ {
				if float64(dx*dx+dy*dy) > radius*radius {
					continue
				}
				draw.DrawMask(dst, r.Add(image.Pt(dx, dy)), outline, image.Point{}, mask, image.Point{}, draw.Over)
			}
		}
		draw.DrawMask(dst, r, fill, image.Point{}, mask, image.Point{}, draw.Over)
	}
}

// lineMask rasterizes line once into an alpha mask anchored at its middle
// and returns the mask with the destination offset of its origin.
func lineMask(face font.Face, line string, x, y, radius float64) (*image.Alpha, image.Point) {
	w := textlayout.Advance(face, line)
	h := float64(face.Metrics().Height) / 64
	pad := int(math.Ceil(radius)) + 2
	mw := int(math.Ceil(w)) + 2*pad
	mh := int(math.Ceil(2*h)) + 2*pad

	left, top := x-float64(mw)/2, y-float64(mh)/2
	ox, oy := int(math.Floor(left)), int(math.Floor(top))

	mdc := gg.NewContext(mw, mh)
	mdc.SetFontFace(face)
	mdc.SetColor(color.White)
	mdc.DrawStringAnchored(line, float64(mw)/2+(left-float64(ox)), float64(mh)/2+(top-float64(oy)), 0.5, 0.5)

	mask := image.NewAlpha(image.Rect(0, 0, mw, mh))
	draw.Draw(mask, mask.Bounds(), mdc.Image(), image.Point{}, draw.Src)
	return mask, image.Pt(ox, oy)
}
