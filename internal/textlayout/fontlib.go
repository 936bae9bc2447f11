/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
)

// FontLibrary stores OpenType/TrueType fonts loaded from disk, keyed by the
// caption font family name ("Impact", "Arial", ...). Lookups are
// case-insensitive.
type FontLibrary struct {
	fonts map[string]*opentype.Font
}

func NewFontLibrary() *FontLibrary { return &FontLibrary{fonts: make(map[string]*opentype.Font)} }

func familyKey(family string) string { return strings.ToLower(strings.TrimSpace(family)) }

// LoadFile parses the font at path and registers it under family.
func (fl *FontLibrary) LoadFile(family, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read font %s: %w", path, err)
	}
	return fl.LoadBytes(family, data)
}

// LoadBytes parses raw font data and registers it under family.
func (fl *FontLibrary) LoadBytes(family string, data []byte) error {
	if fl.fonts == nil {
		fl.fonts = make(map[string]*opentype.Font)
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return fmt.Errorf("parse font %s: %w", family, err)
	}
	fl.fonts[familyKey(family)] = f
	return nil
}

// LoadFamilies loads every family -> path entry. It stops at the first error.
func (fl *FontLibrary) LoadFamilies(paths map[string]string) error {
	// sorted for stable error reporting
	names := make([]string, 0, len(paths))
	for name := range paths {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if strings.TrimSpace(paths[name]) == "" {
			continue
		}
		if err := fl.LoadFile(name, paths[name]); err != nil {
			return err
		}
	}
	return nil
}

// Families returns the loaded family keys in sorted order.
func (fl *FontLibrary) Families() []string {
	if fl == nil {
		return nil
	}
	out := make([]string, 0, len(fl.fonts))
	for k := range fl.fonts {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (fl *FontLibrary) newFace(family string, sizePx float64) (font.Face, bool) {
	if fl == nil || fl.fonts == nil {
		return nil, false
	}
	f, ok := fl.fonts[familyKey(family)]
	if !ok {
		return nil, false
	}
	// DPI 72 makes Size a pixel size.
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: sizePx, DPI: 72, Hinting: font.HintingNone})
	if err != nil {
		return nil, false
	}
	return face, true
}
