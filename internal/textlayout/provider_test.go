/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/font/gofont/goregular"
)

func TestFaceProviderFallbackAndCache(t *testing.T) {
	p := NewFaceProvider(nil)
	f1 := p.Face("Impact", 40)
	f2 := p.Face("impact", 40)
	if f1 == nil || f1 != f2 {
		t.Fatalf("expected cached face for same family/size")
	}
	if p.Face("Impact", 80) == f1 {
		t.Fatalf("different sizes must not share a face")
	}
}

func TestMeasureScalesWithSize(t *testing.T) {
	m := ProviderMeasurer{Provider: NewFaceProvider(nil)}
	small := m.MeasureLine("Arial", 20, "HELLO")
	large := m.MeasureLine("Arial", 40, "HELLO")
	if small <= 0 || large <= small {
		t.Fatalf("expected width to grow with size: %v -> %v", small, large)
	}
	if m.MeasureLine("Arial", 40, "HELLO") != large {
		t.Fatalf("measurement is not deterministic")
	}
}

func TestFontLibraryLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.ttf")
	if err := os.WriteFile(path, goregular.TTF, 0o644); err != nil {
		t.Fatalf("write font: %v", err)
	}
	lib := NewFontLibrary()
	if err := lib.LoadFamilies(map[string]string{"Verdana": path}); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := lib.Families(); len(got) != 1 || got[0] != "verdana" {
		t.Fatalf("unexpected families: %v", got)
	}
	p := NewFaceProvider(lib)
	if w := Advance(p.Face("Verdana", 30), "abc"); w <= 0 {
		t.Fatalf("expected positive advance from loaded font, got %v", w)
	}
}

func TestFontLibraryRejectsGarbage(t *testing.T) {
	lib := NewFontLibrary()
	if err := lib.LoadBytes("Broken", []byte("not a font")); err == nil {
		t.Fatalf("expected parse error")
	}
	if err := lib.LoadFile("Missing", filepath.Join(t.TempDir(), "nope.ttf")); err == nil {
		t.Fatalf("expected read error")
	}
}

func TestFixedMeasurer(t *testing.T) {
	m := FixedMeasurer{Advance: 0.5}
	if got := m.MeasureLine("any", 40, "abcd"); got != 80 {
		t.Fatalf("width = %v, want 80", got)
	}
	if got := (FixedMeasurer{}).MeasureLine("any", 10, "ab"); got != 12 {
		t.Fatalf("default advance width = %v, want 12", got)
	}
}

func TestBasicProviderMeasurer(t *testing.T) {
	m := ProviderMeasurer{Provider: BasicProvider{}}
	if got := m.MeasureLine("x", 99, "abc"); got != 21 {
		t.Fatalf("basicfont width = %v, want 21", got)
	}
}
