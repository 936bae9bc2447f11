/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0
 */

package domain

import (
	"image/color"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// ParseColor converts a caption color string to a color.Color.
// Accepts #rgb and #rrggbb hex forms; anything else falls back to white.
func ParseColor(s string) color.Color {
	s = strings.TrimSpace(s)
	if s == "" {
		return color.White
	}
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return color.White
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// HexColor formats c as #rrggbb, dropping alpha. Fully transparent colors
// format as DefaultColor.
func HexColor(c color.Color) string {
	cf, ok := colorful.MakeColor(c)
	if !ok {
		return DefaultColor
	}
	return cf.Hex()
}

// WithOpacity scales the alpha of c by opacity in [0,1].
func WithOpacity(c color.Color, opacity float64) color.Color {
	if opacity >= 1 {
		return c
	}
	if opacity < 0 {
		opacity = 0
	}
	r, g, b, a := c.RGBA()
	return color.NRGBA64{
		R: unpremul(r, a),
		G: unpremul(g, a),
		B: unpremul(b, a),
		A: uint16(float64(a) * opacity),
	}
}

func unpremul(v, a uint32) uint16 {
	if a == 0 {
		return 0
	}
	return uint16(v * 0xffff / a)
}
