/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0
 */

package ui

import (
	"github.com/CGYORK/meme-generator-project/internal/geometry"
	"github.com/CGYORK/meme-generator-project/internal/interact"
	"github.com/CGYORK/meme-generator-project/internal/render"
)

// placement is where the surface is drawn inside the canvas widget: scaled
// to fit and centered.
type placement struct {
	OffX, OffY float64
	W, H       float64
}

func placeSurface(areaW, areaH float64, s render.Size) placement {
	if s.Empty() || areaW <= 0 || areaH <= 0 {
		return placement{}
	}
	sw, sh := float64(s.W), float64(s.H)
	scale := min(areaW/sw, areaH/sh)
	w, h := sw*scale, sh*scale
	return placement{OffX: (areaW - w) / 2, OffY: (areaH - h) / 2, W: w, H: h}
}

func (p placement) viewport(s render.Size) interact.Viewport {
	return interact.Viewport{DisplayW: p.W, DisplayH: p.H, SurfaceW: float64(s.W), SurfaceH: float64(s.H)}
}

// local converts a widget position to display coordinates of the surface.
func (p placement) local(x, y float64) geometry.Point {
	return geometry.Point{X: x - p.OffX, Y: y - p.OffY}
}
