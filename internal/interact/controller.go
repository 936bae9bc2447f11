/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package interact turns pointer and touch input into caption edits.
// It implements the select / drag / resize / delete gesture state machine on
// top of a store.Store and uses the geometry package for hit testing.
package interact

import (
	"log/slog"
	"math"

	"github.com/CGYORK/meme-generator-project/internal/domain"
	"github.com/CGYORK/meme-generator-project/internal/geometry"
	applog "github.com/CGYORK/meme-generator-project/internal/log"
	"github.com/CGYORK/meme-generator-project/internal/store"
)

// State is the current gesture kind.
type State int

const (
	Idle State = iota
	Dragging
	Resizing
)

func (s State) String() string {
	switch s {
	case Dragging:
		return "dragging"
	case Resizing:
		return "resizing"
	default:
		return "idle"
	}
}

// Cursor is a pointer-affordance hint for the host.
type Cursor int

const (
	CursorDefault Cursor = iota
	CursorPointer        // over the delete affordance
	CursorMove           // over a box or while dragging
	CursorResize         // over the resize affordance or while resizing (nwse)
)

// Result tells the host what an input event did.
type Result struct {
	// Consumed is set when the event hit an affordance or a box.
	Consumed bool
	// Redraw is set when visible output changed.
	Redraw bool
	// Changed is set when the store was mutated.
	Changed bool
	// PreventDefault asks the host to suppress platform scroll/zoom (touch presses).
	PreventDefault bool
	Cursor         Cursor
}

// Controller holds the transient gesture state for one editing session.
type Controller struct {
	store    *store.Store
	measurer geometry.Measurer
	log      *slog.Logger

	width, height float64

	state  State
	target string
	// drag: pointer minus anchor at press time
	offset geometry.Point
	// resize: frozen at press time so the gesture is a clean scale
	center        geometry.Point
	startDistance float64
	startFontSize int

	gestureChanged bool
	cursor         Cursor
}

func NewController(s *store.Store, m geometry.Measurer) *Controller {
	return &Controller{
		store:    s,
		measurer: m,
		log:      applog.WithComponent("interact"),
	}
}

// SetCanvas sets the interactive surface size. A zero size disables input
// until an image is loaded.
func (c *Controller) SetCanvas(w, h float64) {
	c.width, c.height = w, h
	if !c.active() {
		c.reset()
	}
}

func (c *Controller) active() bool { return c.width > 0 && c.height > 0 }

func (c *Controller) State() State { return c.state }

// DragTarget returns the id of the box being dragged, if any. Resizing does
// not count as dragging for the render feedback.
func (c *Controller) DragTarget() (string, bool) {
	if c.state == Dragging {
		return c.target, true
	}
	return "", false
}

// Target returns the id of the box under the active gesture.
func (c *Controller) Target() (string, bool) {
	if c.state == Idle {
		return "", false
	}
	return c.target, true
}

// GestureChanged reports whether the current or most recent gesture
// mutated the store.
func (c *Controller) GestureChanged() bool { return c.gestureChanged }

func (c *Controller) Cursor() Cursor { return c.cursor }

func (c *Controller) reset() {
	c.state = Idle
	c.target = ""
}

// Press handles a pointer press at p in surface coordinates.
func (c *Controller) Press(p geometry.Point) Result {
	if !c.active() {
		return Result{}
	}
	c.gestureChanged = false

	if sel, ok := c.store.Selected(); ok {
		bounds := geometry.Bounds(sel, c.measurer)
		if geometry.DeleteRect(bounds).Contains(p) {
			if err := c.store.Delete(sel.ID); err != nil {
				c.log.Warn("delete via affordance failed", slog.String("id", sel.ID), slog.Any("err", err))
				return Result{}
			}
			c.reset()
			c.gestureChanged = true
			c.cursor = CursorDefault
			c.log.Debug("deleted via affordance", slog.String("id", sel.ID))
			return Result{Consumed: true, Redraw: true, Changed: true, Cursor: c.cursor}
		}
		if geometry.ResizeRect(bounds).Contains(p) {
			c.state = Resizing
			c.target = sel.ID
			c.center = bounds.Center()
			c.startDistance = math.Max(1, geometry.Distance(p, c.center))
			c.startFontSize = sel.FontSize
			c.cursor = CursorResize
			c.log.Debug("resize start", slog.String("id", sel.ID), slog.Float64("distance", c.startDistance), slog.Int("font_size", sel.FontSize))
			return Result{Consumed: true, Cursor: c.cursor}
		}
	}

	if hit, ok := geometry.HitTest(p, c.store.Boxes(), c.measurer); ok {
		_ = c.store.Select(hit.ID)
		c.state = Dragging
		c.target = hit.ID
		c.offset = p.Sub(geometry.Point{X: hit.X, Y: hit.Y})
		c.cursor = CursorMove
		c.log.Debug("drag start", slog.String("id", hit.ID))
		return Result{Consumed: true, Redraw: true, Cursor: c.cursor}
	}

	if _, ok := c.store.Selected(); ok {
		c.store.ClearSelection()
		c.cursor = CursorDefault
		return Result{Redraw: true, Cursor: c.cursor}
	}
	return Result{Cursor: c.cursor}
}

// Move handles pointer motion at p in surface coordinates.
func (c *Controller) Move(p geometry.Point) Result {
	if !c.active() {
		return Result{}
	}
	switch c.state {
	case Dragging:
		x := geometry.Clamp(p.X-c.offset.X, 0, c.width)
		y := geometry.Clamp(p.Y-c.offset.Y, 0, c.height)
		if _, err := c.store.Update(c.target, domain.Position(x, y)); err != nil {
			c.reset()
			return Result{Redraw: true}
		}
		c.gestureChanged = true
		return Result{Consumed: true, Redraw: true, Changed: true, Cursor: CursorMove}
	case Resizing:
		d := math.Max(1, geometry.Distance(p, c.center))
		size := ResizeFontSize(c.startFontSize, c.startDistance, d)
		if _, err := c.store.Update(c.target, domain.FontSize(size)); err != nil {
			c.reset()
			return Result{Redraw: true}
		}
		c.gestureChanged = true
		return Result{Consumed: true, Redraw: true, Changed: true, Cursor: CursorResize}
	}
	c.cursor = c.hover(p)
	return Result{Cursor: c.cursor}
}

// hover picks a cursor hint without changing any state.
func (c *Controller) hover(p geometry.Point) Cursor {
	if sel, ok := c.store.Selected(); ok {
		bounds := geometry.Bounds(sel, c.measurer)
		if geometry.DeleteRect(bounds).Contains(p) {
			return CursorPointer
		}
		if geometry.ResizeRect(bounds).Contains(p) {
			return CursorResize
		}
	}
	if _, ok := geometry.HitTest(p, c.store.Boxes(), c.measurer); ok {
		return CursorMove
	}
	return CursorDefault
}

// Release ends the active gesture. It is also used for pointer-leave and
// touch cancel.
func (c *Controller) Release() Result {
	if c.state == Idle {
		return Result{Cursor: c.cursor}
	}
	c.log.Debug("gesture end", slog.String("state", c.state.String()), slog.String("id", c.target), slog.Bool("changed", c.gestureChanged))
	wasDragging := c.state == Dragging
	c.reset()
	c.cursor = CursorDefault
	// dragging draws the target at reduced opacity, so ending it needs a redraw
	return Result{Consumed: true, Redraw: wasDragging, Cursor: c.cursor}
}

// ResizeFontSize scales startSize by current/start distance, rounds, and
// clamps to the legal font size range.
func ResizeFontSize(startSize int, startDistance, currentDistance float64) int {
	if startDistance <= 0 {
		startDistance = 1
	}
	scale := currentDistance / startDistance
	v := math.Round(float64(startSize) * scale)
	if math.IsNaN(v) || v < domain.MinFontSize {
		return domain.MinFontSize
	}
	if v > domain.MaxFontSize {
		return domain.MaxFontSize
	}
	return int(v)
}
