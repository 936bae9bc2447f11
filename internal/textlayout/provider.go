/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

// Font resolution and text measurement for captions.
// Geometry and rendering both go through a Provider so that hit testing and
// drawing agree on how wide a line is.

import (
	"math"
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

// Provider maps a family name and pixel size to a concrete font face.
type Provider interface {
	Face(family string, sizePx float64) font.Face
}

// FaceProvider resolves families from a FontLibrary first and falls back to
// the embedded Go fonts. Faces are cached per (family, size).
type FaceProvider struct {
	Lib *FontLibrary

	mu       sync.Mutex
	faces    map[faceKey]font.Face
	fallback map[string]*truetype.Font
}

type faceKey struct {
	family string
	size   float64
}

func NewFaceProvider(lib *FontLibrary) *FaceProvider {
	return &FaceProvider{Lib: lib}
}

// Face returns a cached face for family at sizePx.
func (p *FaceProvider) Face(family string, sizePx float64) font.Face {
	if sizePx <= 0 {
		sizePx = 12
	}
	// quarter pixel buckets keep the cache bounded during export scaling
	sizePx = math.Round(sizePx*4) / 4
	key := faceKey{family: familyKey(family), size: sizePx}

	p.mu.Lock()
	defer p.mu.Unlock()
	if f, ok := p.faces[key]; ok {
		return f
	}
	if p.faces == nil {
		p.faces = make(map[faceKey]font.Face)
	}
	face, ok := p.Lib.newFace(family, sizePx)
	if !ok {
		face = p.fallbackFace(family, sizePx)
	}
	p.faces[key] = face
	return face
}

// fallbackTTF picks the embedded Go font closest in spirit to a caption family.
func fallbackTTF(family string) (string, []byte) {
	switch familyKey(family) {
	case "impact":
		return "gobold", gobold.TTF
	case "courier new":
		return "gomono", gomono.TTF
	case "times new roman", "georgia":
		return "gomedium", gomedium.TTF
	default:
		return "goregular", goregular.TTF
	}
}

func (p *FaceProvider) fallbackFace(family string, sizePx float64) font.Face {
	name, data := fallbackTTF(family)
	if p.fallback == nil {
		p.fallback = make(map[string]*truetype.Font)
	}
	f, ok := p.fallback[name]
	if !ok {
		parsed, err := truetype.Parse(data)
		if err != nil {
			// embedded fonts always parse; keep rendering alive regardless
			return basicfont.Face7x13
		}
		f = parsed
		p.fallback[name] = f
	}
	return truetype.NewFace(f, &truetype.Options{Size: sizePx, DPI: 72, Hinting: font.HintingNone})
}

// BasicProvider uses x/image/basicfont Face7x13 for deterministic tests.
type BasicProvider struct{}

func (BasicProvider) Face(string, float64) font.Face { return basicfont.Face7x13 }

// ProviderMeasurer measures lines with the faces a Provider resolves.
// It implements geometry.Measurer.
type ProviderMeasurer struct{ Provider Provider }

func (m ProviderMeasurer) MeasureLine(family string, sizePx float64, line string) float64 {
	p := m.Provider
	if p == nil {
		p = BasicProvider{}
	}
	return Advance(p.Face(family, sizePx), line)
}

// Advance returns the width of s in pixels.
func Advance(face font.Face, s string) float64 {
	return float64(font.MeasureString(face, s)) / 64
}

// FixedMeasurer gives every rune the same advance, expressed as a fraction
// of the font size. Useful for headless layout and tests.
type FixedMeasurer struct{ Advance float64 }

func (m FixedMeasurer) MeasureLine(_ string, sizePx float64, line string) float64 {
	adv := m.Advance
	if adv <= 0 {
		adv = 0.6
	}
	return float64(len([]rune(line))) * sizePx * adv
}
