/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package editor composes one meme editing session: the text box store, the
// interaction controller, rendering, export, image loading and history. All
// methods are meant to be called from the host's event thread; the only
// asynchronous step is image decoding. Its completion goes through the
// loader's Dispatcher when one is set; otherwise it waits in the session's
// queue until the host calls DeliverLoads.
package editor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/CGYORK/meme-generator-project/internal/domain"
	"github.com/CGYORK/meme-generator-project/internal/export"
	"github.com/CGYORK/meme-generator-project/internal/imagesrc"
	"github.com/CGYORK/meme-generator-project/internal/interact"
	applog "github.com/CGYORK/meme-generator-project/internal/log"
	"github.com/CGYORK/meme-generator-project/internal/render"
	"github.com/CGYORK/meme-generator-project/internal/store"
	"github.com/CGYORK/meme-generator-project/internal/textlayout"
	"github.com/CGYORK/meme-generator-project/internal/undo"
)

// Options configures a Session. Zero values select the defaults.
type Options struct {
	SurfaceMaxWidth  int
	SurfaceMaxHeight int
	ExportMaxWidth   int
	ExportMaxHeight  int
	ExportFormat     export.Format

	Provider textlayout.Provider
	Loader   *imagesrc.Loader
	Undo     undo.Config

	Notifier Notifier
	// OnRedraw is called after every change that affects visible output.
	OnRedraw func()
	// OnImageLoaded is called when an asynchronous load completes.
	OnImageLoaded func(*imagesrc.Image, error)
}

const (
	DefaultSurfaceMaxWidth  = 800
	DefaultSurfaceMaxHeight = 600
)

type Session struct {
	id   string
	opts Options
	log  *slog.Logger
	ctx  context.Context

	store    *store.Store
	ctrl     *interact.Controller
	renderer *render.Renderer
	exporter *export.Exporter
	loader   *imagesrc.Loader
	history  *undo.Manager
	loads    *imagesrc.Queue

	image   *imagesrc.Image
	surface render.Size

	// pending is the sequence number of the newest asynchronous load.
	pending int
	// gestureBefore is the store state at the start of the current gesture.
	gestureBefore []byte
}

func New(opts Options) *Session {
	if opts.SurfaceMaxWidth <= 0 {
		opts.SurfaceMaxWidth = DefaultSurfaceMaxWidth
	}
	if opts.SurfaceMaxHeight <= 0 {
		opts.SurfaceMaxHeight = DefaultSurfaceMaxHeight
	}
	if opts.Provider == nil {
		opts.Provider = textlayout.NewFaceProvider(nil)
	}
	if opts.Loader == nil {
		opts.Loader = imagesrc.NewLoader()
	}
	id := uuid.NewString()
	s := &Session{
		id:       id,
		opts:     opts,
		log:      applog.WithComponent("editor").With(slog.String("session", id)),
		ctx:      applog.WithSession(context.Background(), id),
		store:    store.New(),
		renderer: render.NewRenderer(opts.Provider),
		loader:   opts.Loader,
		history:  undo.NewManager(opts.Undo),
		loads:    imagesrc.NewQueue(),
	}
	s.exporter = export.NewExporter(opts.Provider)
	if opts.ExportMaxWidth > 0 {
		s.exporter.MaxWidth = opts.ExportMaxWidth
	}
	if opts.ExportMaxHeight > 0 {
		s.exporter.MaxHeight = opts.ExportMaxHeight
	}
	if opts.ExportFormat != "" {
		s.exporter.Format = opts.ExportFormat
	}
	s.ctrl = interact.NewController(s.store, s.renderer.Measurer())
	return s
}

func (s *Session) ID() string { return s.id }

// fail reports err to the user and hands it back to the caller.
func (s *Session) fail(op string, err error) error {
	n := noticeFor(err)
	return s.failWith(op, n)
}

func (s *Session) failWith(op string, n Notice) error {
	s.log.Warn("operation rejected", slog.String("op", op), slog.String("notice", n.Kind.String()), slog.Any("err", n.Err))
	if s.opts.Notifier != nil {
		s.opts.Notifier.Notify(n)
	}
	return n.Err
}

func (s *Session) redraw() {
	if s.opts.OnRedraw != nil {
		s.opts.OnRedraw()
	}
}

// record stores the current state for undo ahead of a mutation.
func (s *Session) record() {
	snap, err := s.store.Snapshot()
	if err != nil {
		s.log.Error("history snapshot failed", slog.Any("err", err))
		return
	}
	s.history.Record(snap)
}

func (s *Session) requireImage(op string) error {
	if s.image == nil || s.surface.Empty() {
		return s.fail(op, domain.ErrNoImageLoaded)
	}
	return nil
}

// AddTextBox appends a default box at the next preset position. The
// selection is not changed.
func (s *Session) AddTextBox() (domain.TextBox, error) {
	if err := s.requireImage("add"); err != nil {
		return domain.TextBox{}, err
	}
	before, _ := s.store.Snapshot()
	b, err := s.store.Add(float64(s.surface.W), float64(s.surface.H))
	if err != nil {
		return domain.TextBox{}, s.fail("add", err)
	}
	s.history.Break()
	s.history.Record(before)
	s.history.Break()
	s.log.Debug("text box added", slog.String("id", b.ID), slog.Float64("y", b.Y))
	s.redraw()
	return b, nil
}

// UpdateTextBox merges p into the box. Rapid updates, such as typing,
// coalesce into one undo step.
func (s *Session) UpdateTextBox(id string, p domain.Patch) (domain.TextBox, error) {
	if err := s.requireImage("update"); err != nil {
		return domain.TextBox{}, err
	}
	if _, ok := s.store.Get(id); !ok {
		return domain.TextBox{}, s.fail("update", fmt.Errorf("update %s: %w", id, domain.ErrTextBoxNotFound))
	}
	if p.IsEmpty() {
		b, _ := s.store.Get(id)
		return b, nil
	}
	s.record()
	b, err := s.store.Update(id, p)
	if err != nil {
		return domain.TextBox{}, s.fail("update", err)
	}
	s.redraw()
	return b, nil
}

func (s *Session) DeleteTextBox(id string) error {
	if err := s.requireImage("delete"); err != nil {
		return err
	}
	before, _ := s.store.Snapshot()
	if err := s.store.Delete(id); err != nil {
		return s.fail("delete", err)
	}
	s.history.Break()
	s.history.Record(before)
	s.history.Break()
	s.log.Debug("text box deleted", slog.String("id", id))
	s.redraw()
	return nil
}

// SelectTextBox selects id; an empty id clears the selection.
func (s *Session) SelectTextBox(id string) error {
	if err := s.requireImage("select"); err != nil {
		return err
	}
	if err := s.store.Select(id); err != nil {
		return s.fail("select", err)
	}
	s.redraw()
	return nil
}

// LoadImageFromSource starts decoding ref and returns immediately. On
// success the image replaces the current one; on failure the session is
// left unchanged and a notice names ref. Only the newest load is applied.
// Without a loader Dispatcher the result is applied by DeliverLoads.
func (s *Session) LoadImageFromSource(ctx context.Context, ref string) {
	s.pending++
	seq := s.pending
	s.log.Info("loading image", slog.String("source", shortRef(ref)))
	var d imagesrc.Dispatcher = s.loads
	if s.loader.Dispatcher != nil {
		d = s.loader.Dispatcher
	}
	s.loader.LoadAsyncVia(ctx, ref, d, func(img *imagesrc.Image, err error) {
		if seq != s.pending {
			s.log.Debug("stale image load dropped", slog.String("source", shortRef(ref)))
			return
		}
		if err != nil {
			_ = s.fail("load", err)
		} else {
			s.SetImage(img)
		}
		if s.opts.OnImageLoaded != nil {
			s.opts.OnImageLoaded(img, err)
		}
	})
}

// LoadsReady receives a value when a finished load is waiting for
// DeliverLoads.
func (s *Session) LoadsReady() <-chan struct{} { return s.loads.Ready() }

// DeliverLoads applies finished loads on the calling goroutine and reports
// how many completions ran.
func (s *Session) DeliverLoads() int { return s.loads.Drain() }

// LoadImage decodes ref synchronously and installs it.
func (s *Session) LoadImage(ctx context.Context, ref string) error {
	s.pending++
	img, err := s.loader.Load(ctx, ref)
	if err != nil {
		return s.fail("load", err)
	}
	s.SetImage(img)
	return nil
}

// SetImage installs a decoded image and resizes the surface. Existing boxes
// and the selection are kept.
func (s *Session) SetImage(img *imagesrc.Image) {
	if img == nil || img.Bitmap == nil {
		return
	}
	s.image = img
	s.surface = render.SetupSurface(img.Bitmap, s.opts.SurfaceMaxWidth, s.opts.SurfaceMaxHeight)
	s.renderer.Invalidate()
	s.ctrl.Release()
	s.ctrl.SetCanvas(float64(s.surface.W), float64(s.surface.H))
	s.log.Info("image ready", slog.String("source", shortRef(img.Source)), slog.Int("w", img.Width), slog.Int("h", img.Height), slog.Int("surface_w", s.surface.W), slog.Int("surface_h", s.surface.H), slog.Int("boxes", s.store.Len()))
	s.redraw()
}

// ExportAsEncodedImage returns the encoded export for a persistence sink.
func (s *Session) ExportAsEncodedImage() ([]byte, error) {
	var bmp image.Image
	if s.image != nil {
		bmp = s.image.Bitmap
	}
	data, err := s.exporter.Export(bmp, s.surface, s.store.Boxes())
	if err != nil {
		return nil, s.exportFailed("export", err)
	}
	return data, nil
}

// ExportDataURL is ExportAsEncodedImage as a data: URL.
func (s *Session) ExportDataURL() (string, error) {
	data, err := s.ExportAsEncodedImage()
	if err != nil {
		return "", err
	}
	return export.DataURL(s.exporter.Format, data), nil
}

// DownloadMeme saves the export to path. An empty path or a directory gets
// the default file name. It returns the written path.
func (s *Session) DownloadMeme(path string) (string, error) {
	var bmp image.Image
	if s.image != nil {
		bmp = s.image.Bitmap
	}
	data, err := s.exporter.Export(bmp, s.surface, s.store.Boxes())
	if err != nil {
		return "", s.exportFailed("download", err)
	}
	name := export.DefaultFileName(s.exporter.Format)
	switch {
	case path == "":
		path = name
	default:
		if fi, err := os.Stat(path); err == nil && fi.IsDir() {
			path = filepath.Join(path, name)
		}
	}
	if err := export.WriteFile(path, data); err != nil {
		return "", s.fail("download", err)
	}
	s.log.InfoContext(s.ctx, "meme saved", slog.String("path", path), slog.Int("bytes", len(data)))
	return path, nil
}

func (s *Session) exportFailed(op string, err error) error {
	if errors.Is(err, domain.ErrNoImageLoaded) {
		return s.failWith(op, Notice{Kind: NoticeNoImage, Message: "Please upload an image and add at least one text box!", Err: err})
	}
	return s.fail(op, err)
}

// HandlePointer routes a host pointer event to the interaction controller.
// A gesture that changed the store becomes one undo step.
func (s *Session) HandlePointer(ev interact.Event) interact.Result {
	if ev.Kind == interact.Press {
		s.gestureBefore, _ = s.store.Snapshot()
	}
	res := s.ctrl.Handle(ev)
	switch ev.Kind {
	case interact.Press:
		if res.Changed {
			// the delete affordance acts on press
			s.commitGesture()
		}
	case interact.Release, interact.Leave, interact.Cancel:
		if s.ctrl.GestureChanged() {
			s.commitGesture()
		}
		s.gestureBefore = nil
	}
	if res.Redraw {
		s.redraw()
	}
	return res
}

func (s *Session) commitGesture() {
	if s.gestureBefore == nil {
		return
	}
	s.history.Break()
	s.history.Record(s.gestureBefore)
	s.history.Break()
	s.gestureBefore = nil
}

// Undo reverts the newest change. It reports whether anything changed.
func (s *Session) Undo() bool { return s.step(s.history.Undo, "undo") }

// Redo reapplies the newest undone change.
func (s *Session) Redo() bool { return s.step(s.history.Redo, "redo") }

func (s *Session) step(fn func([]byte) ([]byte, bool), op string) bool {
	if s.ctrl.State() != interact.Idle {
		return false
	}
	cur, err := s.store.Snapshot()
	if err != nil {
		return false
	}
	prev, ok := fn(cur)
	if !ok {
		return false
	}
	if err := s.store.Restore(prev); err != nil {
		s.log.Error("history restore failed", slog.String("op", op), slog.Any("err", err))
		return false
	}
	s.log.Debug(op, slog.Int("boxes", s.store.Len()))
	s.redraw()
	return true
}

func (s *Session) CanUndo() bool { return s.history.CanUndo() }
func (s *Session) CanRedo() bool { return s.history.CanRedo() }

// Frame captures what the interactive surface shows right now.
func (s *Session) Frame() render.Frame {
	f := render.Frame{Size: s.surface, Boxes: s.store.Boxes(), SelectedID: s.store.SelectedID()}
	if s.image != nil {
		f.Image = s.image.Bitmap
	}
	if id, ok := s.ctrl.DragTarget(); ok {
		f.DragTargetID = id
	}
	return f
}

// Render draws the current frame; nil before an image is loaded.
func (s *Session) Render() *image.RGBA { return s.renderer.Render(s.Frame()) }

func (s *Session) TextBoxes() []domain.TextBox { return s.store.Boxes() }

func (s *Session) TextBox(id string) (domain.TextBox, bool) { return s.store.Get(id) }

func (s *Session) Selected() (domain.TextBox, bool) { return s.store.Selected() }

func (s *Session) Surface() render.Size { return s.surface }

// ExportFormat is the encoding used by the export operations.
func (s *Session) ExportFormat() export.Format { return s.exporter.Format }

func (s *Session) HasImage() bool { return s.image != nil }

func (s *Session) Image() *imagesrc.Image { return s.image }

func (s *Session) Cursor() interact.Cursor { return s.ctrl.Cursor() }

func (s *Session) Gesture() interact.State { return s.ctrl.State() }

// FontFamilies lists the families offered in the font picker.
func (s *Session) FontFamilies() []string {
	return append([]string(nil), domain.FontFamilies...)
}

// Summary describes the session for crash reports.
func (s *Session) Summary() string {
	src := "<none>"
	if s.image != nil {
		src = shortRef(s.image.Source)
	}
	return fmt.Sprintf("id=%s image=%s surface=%dx%d boxes=%d selected=%q", s.id, src, s.surface.W, s.surface.H, s.store.Len(), s.store.SelectedID())
}

func shortRef(ref string) string {
	if len(ref) > 64 {
		return ref[:64] + "..."
	}
	return ref
}
