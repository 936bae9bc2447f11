/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the caption model shared by the editing core.
// A meme is a base image plus an ordered list of text boxes; slice order is
// z-order (later entries are drawn on top and hit-tested first).

import "strings"

// Font size limits enforced on every update.
const (
	MinFontSize     = 12
	MaxFontSize     = 120
	DefaultFontSize = 40
)

const (
	DefaultFontFamily = "Impact"
	DefaultColor      = "#ffffff"
	// PlaceholderText stands in for blank text when computing bounds. It is never drawn.
	PlaceholderText = "Text"
)

// FontFamilies lists the families offered for selection, in display order.
// Other values are accepted on a TextBox but are not offered.
var FontFamilies = []string{
	"Impact",
	"Arial",
	"Comic Sans MS",
	"Times New Roman",
	"Georgia",
	"Verdana",
	"Courier New",
	"Helvetica",
}

// TextBox is one caption layer. X and Y are the centroid of the text block
// in surface pixels: lines are centered horizontally on X and the block is
// centered vertically on Y.
type TextBox struct {
	ID         string  `json:"id"`
	Text       string  `json:"text"`
	FontSize   int     `json:"fontSize"`
	FontFamily string  `json:"fontFamily"`
	Color      string  `json:"color"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
}

// Blank reports whether the box has nothing to draw.
func (b TextBox) Blank() bool { return strings.TrimSpace(b.Text) == "" }

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Text       *string  `json:"text,omitempty" yaml:"text,omitempty"`
	FontSize   *int     `json:"fontSize,omitempty" yaml:"font_size,omitempty"`
	FontFamily *string  `json:"fontFamily,omitempty" yaml:"font_family,omitempty"`
	Color      *string  `json:"color,omitempty" yaml:"color,omitempty"`
	X          *float64 `json:"x,omitempty" yaml:"x,omitempty"`
	Y          *float64 `json:"y,omitempty" yaml:"y,omitempty"`
}

// IsEmpty reports whether applying p is a no-op.
func (p Patch) IsEmpty() bool {
	return p.Text == nil && p.FontSize == nil && p.FontFamily == nil && p.Color == nil && p.X == nil && p.Y == nil
}

// Apply merges p into b and returns the result. FontSize is clamped to
// [MinFontSize, MaxFontSize]; the ID is never changed.
func (p Patch) Apply(b TextBox) TextBox {
	if p.Text != nil {
		b.Text = *p.Text
	}
	if p.FontSize != nil {
		b.FontSize = ClampFontSize(*p.FontSize)
	}
	if p.FontFamily != nil {
		b.FontFamily = *p.FontFamily
	}
	if p.Color != nil {
		b.Color = *p.Color
	}
	if p.X != nil {
		b.X = *p.X
	}
	if p.Y != nil {
		b.Y = *p.Y
	}
	return b
}

// Convenience constructors for patches.
func Text(s string) Patch         { return Patch{Text: &s} }
func FontSize(n int) Patch        { return Patch{FontSize: &n} }
func FontFamily(f string) Patch   { return Patch{FontFamily: &f} }
func Color(c string) Patch        { return Patch{Color: &c} }
func Position(x, y float64) Patch { return Patch{X: &x, Y: &y} }

// ClampFontSize forces n into the legal font size range.
func ClampFontSize(n int) int {
	if n < MinFontSize {
		return MinFontSize
	}
	if n > MaxFontSize {
		return MaxFontSize
	}
	return n
}

// Lines splits caption text on line breaks. CRLF is treated as a single break.
func Lines(text string) []string {
	return strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
}

// Preset is a vertical placement for newly added boxes, as a fraction of surface height.
type Preset float64

const (
	PresetTop    Preset = 0.15
	PresetMiddle Preset = 0.5
	PresetBottom Preset = 0.85
)

var presetCycle = [...]Preset{PresetTop, PresetMiddle, PresetBottom}

// PresetFor returns the placement for the box added after existing others:
// top, middle, bottom, top, ...
func PresetFor(existing int) Preset {
	if existing < 0 {
		existing = 0
	}
	return presetCycle[existing%len(presetCycle)]
}
