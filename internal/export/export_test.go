/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/CGYORK/meme-generator-project/internal/domain"
	"github.com/CGYORK/meme-generator-project/internal/render"
	"github.com/CGYORK/meme-generator-project/internal/textlayout"
)

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

func redBox(x, y float64) domain.TextBox {
	return domain.TextBox{ID: "a", Text: "HI", FontSize: 40, FontFamily: "Impact", Color: "#ff0000", X: x, Y: y}
}

func countRed(img *image.RGBA, r image.Rectangle) int {
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if img.RGBAAt(x, y) == (color.RGBA{255, 0, 0, 255}) {
				n++
			}
		}
	}
	return n
}

func TestExportErrors(t *testing.T) {
	e := NewExporter(textlayout.BasicProvider{})
	if _, err := e.Export(nil, render.Size{W: 10, H: 10}, []domain.TextBox{redBox(1, 1)}); !errors.Is(err, domain.ErrNoImageLoaded) {
		t.Fatalf("expected ErrNoImageLoaded, got %v", err)
	}
	img := solid(10, 10, color.White)
	if _, err := e.Export(img, render.Size{}, []domain.TextBox{redBox(1, 1)}); !errors.Is(err, domain.ErrNoImageLoaded) {
		t.Fatalf("expected ErrNoImageLoaded for empty surface, got %v", err)
	}
	if _, err := e.Export(img, render.Size{W: 10, H: 10}, nil); !errors.Is(err, domain.ErrEmptyCaptionSet) {
		t.Fatalf("expected ErrEmptyCaptionSet, got %v", err)
	}
}

func TestExportSizeCaps(t *testing.T) {
	e := NewExporter(nil)
	if got := e.Size(solid(2400, 1800, color.White)); got != (render.Size{W: 1200, H: 900}) {
		t.Fatalf("Size = %+v", got)
	}
	if got := e.Size(solid(500, 400, color.White)); got != (render.Size{W: 500, H: 400}) {
		t.Fatalf("small images must not be upscaled: %+v", got)
	}
}

func TestRenderScalesCaptions(t *testing.T) {
	e := NewExporter(textlayout.BasicProvider{})
	img := solid(2400, 1800, color.White)
	// surface 800x600, export 1200x900: scale 1.5 on both axes
	out, err := e.Render(img, render.Size{W: 800, H: 600}, []domain.TextBox{redBox(400, 300)})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if out.Bounds().Dx() != 1200 || out.Bounds().Dy() != 900 {
		t.Fatalf("export bounds = %v", out.Bounds())
	}
	if countRed(out, image.Rect(570, 430, 630, 470)) == 0 {
		t.Fatalf("caption not found at the scaled position")
	}
	if countRed(out, image.Rect(370, 280, 430, 320)) != 0 {
		t.Fatalf("caption drawn at unscaled position")
	}
}

func TestRenderHasNoSelectionDecoration(t *testing.T) {
	e := NewExporter(textlayout.BasicProvider{})
	img := solid(200, 100, color.White)
	out, err := e.Render(img, render.Size{W: 200, H: 100}, []domain.TextBox{redBox(100, 50)})
	if err != nil {
		t.Fatal(err)
	}
	// this is inside the delete affordance on the interactive surface
	if got := out.RGBAAt(110, 19); got != (color.RGBA{255, 255, 255, 255}) {
		t.Fatalf("export must not carry decorations: %v", got)
	}
}

func TestExportPNGIsDeterministic(t *testing.T) {
	e := NewExporter(textlayout.BasicProvider{})
	img := solid(300, 200, color.RGBA{20, 40, 60, 255})
	boxes := []domain.TextBox{redBox(150, 100)}
	a, err := e.Export(img, render.Size{W: 300, H: 200}, boxes)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := e.Export(img, render.Size{W: 300, H: 200}, boxes)
	if !bytes.Equal(a, b) {
		t.Fatalf("identical input produced different PNG bytes")
	}
	dec, err := png.Decode(bytes.NewReader(a))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if dec.Bounds().Dx() != 300 || dec.Bounds().Dy() != 200 {
		t.Fatalf("decoded bounds = %v", dec.Bounds())
	}
}

func TestExportPDF(t *testing.T) {
	e := NewExporter(textlayout.BasicProvider{})
	e.Format = FormatPDF
	data, err := e.Export(solid(120, 80, color.White), render.Size{W: 120, H: 80}, []domain.TextBox{redBox(60, 40)})
	if err != nil {
		t.Fatalf("Export pdf: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Fatalf("output is not a PDF: %q", data[:min(16, len(data))])
	}
}

func TestParseFormatAndNames(t *testing.T) {
	for in, want := range map[string]Format{"": FormatPNG, "PNG": FormatPNG, " pdf ": FormatPDF} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("gif"); err == nil {
		t.Fatalf("expected error for gif")
	}
	if DefaultFileName(FormatPNG) != "meme.png" || DefaultFileName(FormatPDF) != "meme.pdf" {
		t.Fatalf("unexpected default names")
	}
	if u := DataURL(FormatPNG, []byte{1, 2, 3}); u != "data:image/png;base64,AQID" {
		t.Fatalf("DataURL = %q", u)
	}
}

func TestWriteFileReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "meme.png")
	if err := WriteFile(path, []byte("one")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := WriteFile(path, []byte("two")); err != nil {
		t.Fatalf("WriteFile overwrite: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil || string(b) != "two" {
		t.Fatalf("content = %q, %v", b, err)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
}
