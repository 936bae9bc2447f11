/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package geometry computes caption bounds, affordance rectangles and hit
// tests. Every function is pure: given the same inputs (including a
// consistent Measurer) it returns the same result, which keeps hit testing
// stable across redraws.
package geometry

import (
	"math"

	"github.com/CGYORK/meme-generator-project/internal/domain"
)

const (
	// Padding is added on each side of the measured text block.
	Padding = 20.0
	// LineHeightFactor converts font size to line height.
	LineHeightFactor = 1.2

	DeleteAffordanceSize = 18.0
	ResizeAffordanceSize = 14.0
)

// Point is a position in surface pixels.
type Point struct{ X, Y float64 }

// Sub returns p - q.
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// Rect is an axis-aligned rectangle given by its edges.
type Rect struct {
	Left, Top, Right, Bottom float64
}

func (r Rect) Width() float64  { return r.Right - r.Left }
func (r Rect) Height() float64 { return r.Bottom - r.Top }
func (r Rect) Center() Point   { return Point{(r.Left + r.Right) / 2, (r.Top + r.Bottom) / 2} }

// Contains is inclusive on all four edges.
func (r Rect) Contains(p Point) bool { return PointInRect(p.X, p.Y, r) }

// PointInRect reports whether (x,y) lies inside r, edges included.
func PointInRect(x, y float64, r Rect) bool {
	return x >= r.Left && x <= r.Right && y >= r.Top && y <= r.Bottom
}

// Measurer reports the rendered advance width of a single line of text.
// Implementations must be deterministic for identical inputs.
type Measurer interface {
	MeasureLine(family string, sizePx float64, line string) float64
}

// Bounds returns the rectangle a text box occupies for selection and hit
// testing. Blank text is measured as domain.PlaceholderText so that an empty
// box can still be found and grabbed.
func Bounds(box domain.TextBox, m Measurer) Rect {
	text := box.Text
	if box.Blank() {
		text = domain.PlaceholderText
	}
	lines := domain.Lines(text)
	size := float64(box.FontSize)
	lh := size * LineHeightFactor
	n := float64(len(lines))

	startY := box.Y - (n-1)*lh/2
	endY := startY + n*lh

	maxW := 0.0
	for _, ln := range lines {
		if w := m.MeasureLine(box.FontFamily, size, ln); w > maxW {
			maxW = w
		}
	}
	half := maxW/2 + Padding
	return Rect{
		Left:   box.X - half,
		Right:  box.X + half,
		Top:    startY - size/2 - Padding,
		Bottom: endY + size/2 + Padding,
	}
}

// DeleteRect is the delete affordance anchored at the top-right corner of bounds.
func DeleteRect(bounds Rect) Rect {
	return Rect{
		Left:   bounds.Right - DeleteAffordanceSize,
		Right:  bounds.Right,
		Top:    bounds.Top,
		Bottom: bounds.Top + DeleteAffordanceSize,
	}
}

// ResizeRect is the resize affordance anchored at the bottom-right corner of bounds.
func ResizeRect(bounds Rect) Rect {
	return Rect{
		Left:   bounds.Right - ResizeAffordanceSize,
		Right:  bounds.Right,
		Top:    bounds.Bottom - ResizeAffordanceSize,
		Bottom: bounds.Bottom,
	}
}

// HitTest returns the top-most box whose bounds contain p. Boxes are in
// z-order, so the search runs from the end of the slice.
func HitTest(p Point, boxes []domain.TextBox, m Measurer) (domain.TextBox, bool) {
	for i := len(boxes) - 1; i >= 0; i-- {
		if Bounds(boxes[i], m).Contains(p) {
			return boxes[i], true
		}
	}
	return domain.TextBox{}, false
}

// Distance is the Euclidean distance between a and b.
func Distance(a, b Point) float64 { return math.Hypot(a.X-b.X, a.Y-b.Y) }

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
