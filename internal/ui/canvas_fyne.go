//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/driver/mobile"
	"fyne.io/fyne/v2/widget"

	"github.com/CGYORK/meme-generator-project/internal/editor"
	"github.com/CGYORK/meme-generator-project/internal/interact"
)

// MemeCanvas shows the session's surface scaled to fit and forwards mouse
// and touch input to it.
type MemeCanvas struct {
	widget.BaseWidget
	sess *editor.Session
	// touching is set between TouchDown and TouchUp so drags are reported as touch.
	touching bool
}

func NewMemeCanvas(sess *editor.Session) *MemeCanvas {
	c := &MemeCanvas{sess: sess}
	c.ExtendBaseWidget(c)
	return c
}

func (c *MemeCanvas) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(color.RGBA{R: 30, G: 30, B: 34, A: 255})
	img := canvas.NewImageFromImage(nil)
	img.FillMode = canvas.ImageFillStretch
	img.Hide()
	hint := canvas.NewText("Upload an image or pick a template to start", color.Gray{Y: 180})
	hint.Alignment = fyne.TextAlignCenter
	r := &memeCanvasRenderer{c: c, bg: bg, img: img, hint: hint, objects: []fyne.CanvasObject{bg, img, hint}}
	r.Refresh()
	return r
}

func (c *MemeCanvas) placement() placement {
	sz := c.Size()
	return placeSurface(float64(sz.Width), float64(sz.Height), c.sess.Surface())
}

func (c *MemeCanvas) pointer(kind interact.Kind, src interact.Source, pos fyne.Position) {
	pl := c.placement()
	view := pl.viewport(c.sess.Surface())
	pt := pl.local(float64(pos.X), float64(pos.Y))
	var ev interact.Event
	if src == interact.Touch {
		ev = interact.TouchEvent(kind, view, pt)
	} else {
		ev = interact.MouseEvent(kind, pt.X, pt.Y, view)
	}
	c.sess.HandlePointer(ev)
}

func (c *MemeCanvas) MouseDown(e *desktop.MouseEvent) {
	if e.Button != desktop.MouseButtonPrimary {
		return
	}
	c.pointer(interact.Press, interact.Mouse, e.Position)
}

func (c *MemeCanvas) MouseUp(e *desktop.MouseEvent) {
	c.pointer(interact.Release, interact.Mouse, e.Position)
}

func (c *MemeCanvas) MouseIn(e *desktop.MouseEvent) {
	c.pointer(interact.Move, interact.Mouse, e.Position)
}

func (c *MemeCanvas) MouseMoved(e *desktop.MouseEvent) {
	c.pointer(interact.Move, interact.Mouse, e.Position)
}

func (c *MemeCanvas) MouseOut() {
	c.sess.HandlePointer(interact.Event{Kind: interact.Leave, Source: interact.Mouse})
}

// Dragged receives moves while a button or finger is down.
func (c *MemeCanvas) Dragged(e *fyne.DragEvent) {
	src := interact.Mouse
	if c.touching {
		src = interact.Touch
	}
	c.pointer(interact.Move, src, e.Position)
}

// DragEnd is a no-op: the release arrives through MouseUp or TouchUp.
func (c *MemeCanvas) DragEnd() {}

func (c *MemeCanvas) TouchDown(e *mobile.TouchEvent) {
	c.touching = true
	c.pointer(interact.Press, interact.Touch, e.Position)
}

func (c *MemeCanvas) TouchUp(*mobile.TouchEvent) {
	c.touching = false
	c.sess.HandlePointer(interact.TouchEvent(interact.Release, interact.Viewport{}))
}

func (c *MemeCanvas) TouchCancel(*mobile.TouchEvent) {
	c.touching = false
	c.sess.HandlePointer(interact.TouchEvent(interact.Cancel, interact.Viewport{}))
}

// Cursor maps the controller's hover hint to a desktop cursor. fyne has no
// move or diagonal resize cursor; crosshair and horizontal resize are the
// closest stock shapes.
func (c *MemeCanvas) Cursor() desktop.Cursor {
	switch c.sess.Cursor() {
	case interact.CursorPointer:
		return desktop.PointerCursor
	case interact.CursorMove:
		return desktop.CrosshairCursor
	case interact.CursorResize:
		return desktop.HResizeCursor
	}
	return desktop.DefaultCursor
}

type memeCanvasRenderer struct {
	c       *MemeCanvas
	bg      *canvas.Rectangle
	img     *canvas.Image
	hint    *canvas.Text
	objects []fyne.CanvasObject
}

func (r *memeCanvasRenderer) Destroy()                     {}
func (r *memeCanvasRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *memeCanvasRenderer) MinSize() fyne.Size           { return fyne.NewSize(400, 300) }

func (r *memeCanvasRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	r.bg.Move(fyne.NewPos(0, 0))
	pl := placeSurface(float64(size.Width), float64(size.Height), r.c.sess.Surface())
	r.img.Move(fyne.NewPos(float32(pl.OffX), float32(pl.OffY)))
	r.img.Resize(fyne.NewSize(float32(pl.W), float32(pl.H)))
	hs := r.hint.MinSize()
	r.hint.Move(fyne.NewPos((size.Width-hs.Width)/2, (size.Height-hs.Height)/2))
	r.hint.Resize(hs)
}

func (r *memeCanvasRenderer) Refresh() {
	if frame := r.c.sess.Render(); frame != nil {
		r.img.Image = frame
		r.img.Show()
		r.hint.Hide()
	} else {
		r.img.Image = nil
		r.img.Hide()
		r.hint.Show()
	}
	r.Layout(r.c.Size())
	r.img.Refresh()
	canvas.Refresh(r.c)
}
