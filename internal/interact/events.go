/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0
 */

package interact

import "github.com/CGYORK/meme-generator-project/internal/geometry"

// Kind is the kind of an input event.
type Kind int

const (
	Press Kind = iota
	Move
	Release
	// Leave is the pointer leaving the surface; it ends a gesture like Release.
	Leave
	// Cancel is a cancelled touch sequence.
	Cancel
)

// Source distinguishes mouse from touch input.
type Source int

const (
	Mouse Source = iota
	Touch
)

// Viewport maps display coordinates (the size the surface is shown at) to
// backing surface pixels. The surface may be scaled by the host layout.
type Viewport struct {
	DisplayW, DisplayH float64
	SurfaceW, SurfaceH float64
}

// ToSurface converts a display-local point to surface coordinates. A zero
// display size is treated as 1:1.
func (v Viewport) ToSurface(p geometry.Point) geometry.Point {
	sx, sy := 1.0, 1.0
	if v.DisplayW > 0 && v.SurfaceW > 0 {
		sx = v.SurfaceW / v.DisplayW
	}
	if v.DisplayH > 0 && v.SurfaceH > 0 {
		sy = v.SurfaceH / v.DisplayH
	}
	return geometry.Point{X: p.X * sx, Y: p.Y * sy}
}

// Event is one pointer or touch event in display-local coordinates.
// Touch events carry all active touch points; only the first is used.
type Event struct {
	Kind   Kind
	Source Source
	Points []geometry.Point
	View   Viewport
}

// MouseEvent builds a single-point mouse event.
func MouseEvent(k Kind, x, y float64, view Viewport) Event {
	return Event{Kind: k, Source: Mouse, Points: []geometry.Point{{X: x, Y: y}}, View: view}
}

// TouchEvent builds a touch event from the active touch points.
func TouchEvent(k Kind, view Viewport, points ...geometry.Point) Event {
	return Event{Kind: k, Source: Touch, Points: points, View: view}
}

// Handle dispatches an event through the state machine. Mouse and touch
// share the same transitions; touch only differs in that presses ask the
// host to suppress default gestures and that hovering does not exist.
func (c *Controller) Handle(ev Event) Result {
	switch ev.Kind {
	case Release, Leave, Cancel:
		return c.Release()
	}
	if len(ev.Points) == 0 {
		return Result{Cursor: c.cursor}
	}
	p := ev.View.ToSurface(ev.Points[0])
	switch ev.Kind {
	case Press:
		res := c.Press(p)
		if ev.Source == Touch && c.active() {
			res.PreventDefault = true
		}
		return res
	case Move:
		if ev.Source == Touch {
			if c.state == Idle {
				return Result{}
			}
			res := c.Move(p)
			res.PreventDefault = true
			return res
		}
		return c.Move(p)
	}
	return Result{Cursor: c.cursor}
}
