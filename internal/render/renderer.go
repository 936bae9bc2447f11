/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0
 */

package render

import (
	"image"
	"image/draw"
	"reflect"
	"sync"

	"github.com/fogleman/gg"

	"github.com/CGYORK/meme-generator-project/internal/domain"
	"github.com/CGYORK/meme-generator-project/internal/geometry"
	"github.com/CGYORK/meme-generator-project/internal/textlayout"
)

// Frame is everything one redraw depends on.
type Frame struct {
	Image        image.Image
	Size         Size
	Boxes        []domain.TextBox
	SelectedID   string
	DragTargetID string
}

// Renderer draws frames. It caches the scaled base image, so redraws during
// a gesture only pay for the captions.
type Renderer struct {
	Provider textlayout.Provider

	mu        sync.Mutex
	cacheSrc  image.Image
	cacheSize Size
	cacheImg  *image.RGBA
}

func NewRenderer(p textlayout.Provider) *Renderer {
	if p == nil {
		p = textlayout.NewFaceProvider(nil)
	}
	return &Renderer{Provider: p}
}

// Measurer returns the measurer matching what Render draws.
func (r *Renderer) Measurer() geometry.Measurer { return textlayout.ProviderMeasurer{Provider: r.Provider} }

// Render draws f onto a fresh RGBA image of f.Size. A frame without an
// image or with an empty size yields nil.
func (r *Renderer) Render(f Frame) *image.RGBA {
	if f.Image == nil || f.Size.Empty() {
		return nil
	}
	dst := image.NewRGBA(image.Rect(0, 0, f.Size.W, f.Size.H))
	draw.Draw(dst, dst.Bounds(), r.base(f.Image, f.Size), image.Point{}, draw.Src)

	dc := gg.NewContextForRGBA(dst)
	var selected *domain.TextBox
	for i, b := range f.Boxes {
		if b.ID == f.SelectedID {
			selected = &f.Boxes[i]
		}
		if b.Text == "" {
			continue
		}
		opacity := 1.0
		if f.DragTargetID != "" && b.ID == f.DragTargetID {
			opacity = DragOpacity
		}
		DrawCaption(dc, r.Provider.Face(b.FontFamily, float64(b.FontSize)), CaptionFor(b, 1, 1, opacity))
	}
	if selected != nil {
		DrawSelection(dc, geometry.Bounds(*selected, r.Measurer()))
	}
	return dst
}

// base returns src scaled to size, reusing the last result when neither
// changed.
func (r *Renderer) base(src image.Image, size Size) *image.RGBA {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cacheImg != nil && r.cacheSize == size && sameImage(r.cacheSrc, src) {
		return r.cacheImg
	}
	r.cacheImg = ScaleImage(src, size)
	r.cacheSrc = src
	r.cacheSize = size
	return r.cacheImg
}

// Invalidate drops the cached base image.
func (r *Renderer) Invalidate() {
	r.mu.Lock()
	r.cacheSrc, r.cacheImg, r.cacheSize = nil, nil, Size{}
	r.mu.Unlock()
}

func sameImage(a, b image.Image) bool {
	if a == nil || b == nil {
		return false
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	return ta == tb && ta.Comparable() && a == b
}
