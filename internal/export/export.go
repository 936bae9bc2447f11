/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export produces the shareable meme: the source image at export
// resolution with every caption burned in and no editing decoration.
package export

import (
	"fmt"
	"image"
	"log/slog"
	"strings"

	"github.com/fogleman/gg"

	"github.com/CGYORK/meme-generator-project/internal/domain"
	applog "github.com/CGYORK/meme-generator-project/internal/log"
	"github.com/CGYORK/meme-generator-project/internal/render"
	"github.com/CGYORK/meme-generator-project/internal/textlayout"
)

// Export caps applied to the source image's natural size.
const (
	DefaultMaxWidth  = 1200
	DefaultMaxHeight = 1200
)

type Format string

const (
	FormatPNG Format = "png"
	FormatPDF Format = "pdf"
)

// ParseFormat accepts "png" or "pdf" in any case; empty means PNG.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatPNG:
		return FormatPNG, nil
	case FormatPDF:
		return FormatPDF, nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// MIMEType returns the media type of encoded output.
func (f Format) MIMEType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "image/png"
}

// Exporter renders captions onto an independently capped copy of the source
// image. Box coordinates are given in interactive surface units and are
// rescaled to the export size.
type Exporter struct {
	Provider  textlayout.Provider
	MaxWidth  int
	MaxHeight int
	Format    Format
}

func NewExporter(p textlayout.Provider) *Exporter {
	return &Exporter{Provider: p, MaxWidth: DefaultMaxWidth, MaxHeight: DefaultMaxHeight, Format: FormatPNG}
}

// Size returns the export size for img.
func (e *Exporter) Size(img image.Image) render.Size {
	maxW, maxH := e.MaxWidth, e.MaxHeight
	if maxW <= 0 {
		maxW = DefaultMaxWidth
	}
	if maxH <= 0 {
		maxH = DefaultMaxHeight
	}
	return render.SetupSurface(img, maxW, maxH)
}

// Render draws boxes onto img at export resolution. surface is the size the
// box coordinates refer to. Font size and x follow the horizontal scale, y
// the vertical one.
func (e *Exporter) Render(img image.Image, surface render.Size, boxes []domain.TextBox) (*image.RGBA, error) {
	if img == nil || surface.Empty() {
		return nil, domain.ErrNoImageLoaded
	}
	if len(boxes) == 0 {
		return nil, domain.ErrEmptyCaptionSet
	}
	size := e.Size(img)
	out := render.ScaleImage(img, size)
	sx := float64(size.W) / float64(surface.W)
	sy := float64(size.H) / float64(surface.H)

	p := e.Provider
	if p == nil {
		p = textlayout.NewFaceProvider(nil)
	}
	dc := gg.NewContextForRGBA(out)
	for _, b := range boxes {
		if b.Text == "" {
			continue
		}
		c := render.CaptionFor(b, sx, sy, 1)
		render.DrawCaption(dc, p.Face(b.FontFamily, c.Size), c)
	}
	return out, nil
}

// Export renders and encodes in e.Format.
func (e *Exporter) Export(img image.Image, surface render.Size, boxes []domain.TextBox) ([]byte, error) {
	l := applog.WithOperation(applog.WithComponent("export"), "export")
	out, err := e.Render(img, surface, boxes)
	if err != nil {
		return nil, err
	}
	format := e.Format
	if format == "" {
		format = FormatPNG
	}
	var data []byte
	switch format {
	case FormatPNG:
		data, err = EncodePNG(out)
	case FormatPDF:
		data, err = EncodePDF(out)
	default:
		err = fmt.Errorf("unknown export format %q", format)
	}
	if err != nil {
		l.Error("encode failed", slog.String("format", string(format)), slog.Any("err", err))
		return nil, err
	}
	l.Debug("exported", slog.String("format", string(format)), slog.Int("w", out.Bounds().Dx()), slog.Int("h", out.Bounds().Dy()), slog.Int("boxes", len(boxes)), slog.Int("bytes", len(data)))
	return data, nil
}
