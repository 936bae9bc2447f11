/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/CGYORK/meme-generator-project/internal/domain"
	"github.com/CGYORK/meme-generator-project/internal/export"
	"github.com/CGYORK/meme-generator-project/internal/geometry"
	"github.com/CGYORK/meme-generator-project/internal/imagesrc"
	"github.com/CGYORK/meme-generator-project/internal/interact"
	"github.com/CGYORK/meme-generator-project/internal/render"
	"github.com/CGYORK/meme-generator-project/internal/textlayout"
	"github.com/CGYORK/meme-generator-project/internal/undo"
)

func pngDataURL(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{30, 60, 90, 255}), image.Point{}, draw.Src)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

type recorder struct {
	notices []Notice
	redraws int
}

func newSession(t *testing.T, rec *recorder) *Session {
	t.Helper()
	return New(Options{
		Provider: textlayout.BasicProvider{},
		Undo:     undo.Config{MinInterval: time.Hour},
		Notifier: NotifierFunc(func(n Notice) { rec.notices = append(rec.notices, n) }),
		OnRedraw: func() { rec.redraws++ },
	})
}

func loaded(t *testing.T, rec *recorder, w, h int) *Session {
	t.Helper()
	s := newSession(t, rec)
	if err := s.LoadImage(context.Background(), pngDataURL(t, w, h)); err != nil {
		t.Fatalf("LoadImage: %v", err)
	}
	return s
}

func TestAddWithoutImageNotifies(t *testing.T) {
	rec := &recorder{}
	s := newSession(t, rec)
	if _, err := s.AddTextBox(); !errors.Is(err, domain.ErrNoImageLoaded) {
		t.Fatalf("expected ErrNoImageLoaded, got %v", err)
	}
	if len(rec.notices) != 1 || rec.notices[0].Kind != NoticeNoImage {
		t.Fatalf("notices = %+v", rec.notices)
	}
	if len(s.TextBoxes()) != 0 {
		t.Fatalf("store must be unchanged")
	}
}

func TestLoadSizesSurface(t *testing.T) {
	rec := &recorder{}
	s := loaded(t, rec, 1600, 1200)
	if got := s.Surface(); got != (render.Size{W: 800, H: 600}) {
		t.Fatalf("surface = %+v", got)
	}
	if !s.HasImage() || rec.redraws == 0 {
		t.Fatalf("load should install the image and redraw")
	}
}

func TestAddPresetsCycle(t *testing.T) {
	rec := &recorder{}
	s := loaded(t, rec, 800, 400)
	var ys []float64
	for i := 0; i < 4; i++ {
		b, err := s.AddTextBox()
		if err != nil {
			t.Fatal(err)
		}
		if b.X != 400 || b.Text != "" || b.FontSize != 40 || b.FontFamily != "Impact" || b.Color != "#ffffff" {
			t.Fatalf("unexpected defaults %+v", b)
		}
		ys = append(ys, b.Y)
	}
	want := []float64{60, 200, 340, 60}
	for i := range want {
		if ys[i] != want[i] {
			t.Fatalf("y[%d] = %v, want %v", i, ys[i], want[i])
		}
	}
	if _, ok := s.Selected(); ok {
		t.Fatalf("add must not select")
	}
}

func TestUpdateKeepsSelectionInSync(t *testing.T) {
	rec := &recorder{}
	s := loaded(t, rec, 800, 400)
	b, _ := s.AddTextBox()
	if err := s.SelectTextBox(b.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.UpdateTextBox(b.ID, domain.FontSize(500)); err != nil {
		t.Fatal(err)
	}
	sel, ok := s.Selected()
	if !ok || sel.FontSize != 120 {
		t.Fatalf("selection not in sync: %+v", sel)
	}
	if _, err := s.UpdateTextBox("nope", domain.Text("x")); !errors.Is(err, domain.ErrTextBoxNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if rec.notices[len(rec.notices)-1].Kind != NoticeNotFound {
		t.Fatalf("missing not-found notice")
	}
}

func TestDeleteSelectedClearsSelection(t *testing.T) {
	rec := &recorder{}
	s := loaded(t, rec, 800, 400)
	b, _ := s.AddTextBox()
	_ = s.SelectTextBox(b.ID)
	if err := s.DeleteTextBox(b.ID); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Selected(); ok || len(s.TextBoxes()) != 0 {
		t.Fatalf("delete left state behind")
	}
}

func TestExportErrorsNotify(t *testing.T) {
	rec := &recorder{}
	s := newSession(t, rec)
	if _, err := s.ExportAsEncodedImage(); !errors.Is(err, domain.ErrNoImageLoaded) {
		t.Fatalf("expected ErrNoImageLoaded, got %v", err)
	}
	s = loaded(t, rec, 100, 100)
	if _, err := s.DownloadMeme(t.TempDir()); !errors.Is(err, domain.ErrEmptyCaptionSet) {
		t.Fatalf("expected ErrEmptyCaptionSet, got %v", err)
	}
	last := rec.notices[len(rec.notices)-1]
	if last.Kind != NoticeEmptyCaptions || last.Message == "" {
		t.Fatalf("unexpected notice %+v", last)
	}
}

func TestDownloadWritesDefaultName(t *testing.T) {
	rec := &recorder{}
	s := loaded(t, rec, 1600, 1200)
	b, _ := s.AddTextBox()
	_, _ = s.UpdateTextBox(b.ID, domain.Text("TOP TEXT"))
	dir := t.TempDir()
	path, err := s.DownloadMeme(dir)
	if err != nil {
		t.Fatalf("DownloadMeme: %v", err)
	}
	if path != filepath.Join(dir, "meme.png") {
		t.Fatalf("path = %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 1200 || cfg.Height != 900 {
		t.Fatalf("export size = %dx%d", cfg.Width, cfg.Height)
	}
	url, err := s.ExportDataURL()
	if err != nil || len(url) < 30 || url[:22] != "data:image/png;base64," {
		t.Fatalf("ExportDataURL = %.30q, %v", url, err)
	}
}

func TestDecodeFailureLeavesStateAndNamesSource(t *testing.T) {
	rec := &recorder{}
	s := loaded(t, rec, 800, 400)
	_, _ = s.AddTextBox()
	before := s.Surface()
	ref := filepath.Join(t.TempDir(), "missing.png")
	if err := s.LoadImage(context.Background(), ref); !errors.Is(err, domain.ErrImageDecodeFailed) {
		t.Fatalf("expected decode failure, got %v", err)
	}
	if s.Surface() != before || len(s.TextBoxes()) != 1 {
		t.Fatalf("failed load changed the session")
	}
	last := rec.notices[len(rec.notices)-1]
	if last.Kind != NoticeDecodeFailed || !bytes.Contains([]byte(last.Message), []byte(ref)) {
		t.Fatalf("notice should name the source: %+v", last)
	}
}

func TestNewImageKeepsBoxes(t *testing.T) {
	rec := &recorder{}
	s := loaded(t, rec, 800, 400)
	b, _ := s.AddTextBox()
	_ = s.SelectTextBox(b.ID)
	if err := s.LoadImage(context.Background(), pngDataURL(t, 300, 300)); err != nil {
		t.Fatal(err)
	}
	if s.Surface() != (render.Size{W: 300, H: 300}) {
		t.Fatalf("surface = %+v", s.Surface())
	}
	if sel, ok := s.Selected(); !ok || sel.ID != b.ID {
		t.Fatalf("boxes and selection should survive a new image")
	}
}

func TestAsyncLoadDeliversThroughDispatcher(t *testing.T) {
	rec := &recorder{}
	queue := make(chan func(), 2)
	loader := imagesrc.NewLoader()
	loader.Dispatcher = imagesrc.DispatcherFunc(func(fn func()) { queue <- fn })
	done := 0
	s := New(Options{
		Provider:      textlayout.BasicProvider{},
		Loader:        loader,
		Notifier:      NotifierFunc(func(n Notice) { rec.notices = append(rec.notices, n) }),
		OnImageLoaded: func(*imagesrc.Image, error) { done++ },
	})
	s.LoadImageFromSource(context.Background(), pngDataURL(t, 10, 10))
	s.LoadImageFromSource(context.Background(), pngDataURL(t, 20, 20))
	if s.HasImage() {
		t.Fatalf("image installed before completion")
	}
	for i := 0; i < 2; i++ {
		select {
		case fn := <-queue:
			fn()
		case <-time.After(5 * time.Second):
			t.Fatalf("load did not complete")
		}
	}
	if s.Surface() != (render.Size{W: 20, H: 20}) {
		t.Fatalf("newest load should win, surface = %+v", s.Surface())
	}
	if done != 1 {
		t.Fatalf("OnImageLoaded calls = %d, want 1", done)
	}
}

func waitLoads(t *testing.T, s *Session, want int) {
	t.Helper()
	got := 0
	for got < want {
		select {
		case <-s.LoadsReady():
			got += s.DeliverLoads()
		case <-time.After(5 * time.Second):
			t.Fatalf("delivered %d loads, want %d", got, want)
		}
	}
}

func TestAsyncLoadWaitsForDeliverLoadsByDefault(t *testing.T) {
	rec := &recorder{}
	s := newSession(t, rec)
	completions := 0
	s.opts.OnImageLoaded = func(*imagesrc.Image, error) { completions++ }

	s.LoadImageFromSource(context.Background(), pngDataURL(t, 40, 20))
	// Editing keeps running on this goroutine while the decode is in flight.
	for i := 0; i < 50; i++ {
		if _, err := s.AddTextBox(); !errors.Is(err, domain.ErrNoImageLoaded) {
			t.Fatalf("add before delivery: %v", err)
		}
		_ = s.Render()
	}
	if s.HasImage() || completions != 0 {
		t.Fatalf("load applied before DeliverLoads")
	}
	waitLoads(t, s, 1)
	if !s.HasImage() || s.Surface() != (render.Size{W: 40, H: 20}) || completions != 1 {
		t.Fatalf("image=%v surface=%+v completions=%d", s.HasImage(), s.Surface(), completions)
	}
	if _, err := s.AddTextBox(); err != nil {
		t.Fatalf("add after delivery: %v", err)
	}
	if n := s.DeliverLoads(); n != 0 {
		t.Fatalf("queue should be empty, ran %d", n)
	}
}

func TestDeliverLoadsAppliesNewestOnly(t *testing.T) {
	rec := &recorder{}
	s := newSession(t, rec)
	s.LoadImageFromSource(context.Background(), pngDataURL(t, 10, 10))
	s.LoadImageFromSource(context.Background(), "data:image/png;base64,AAAA")
	s.LoadImageFromSource(context.Background(), pngDataURL(t, 30, 15))
	waitLoads(t, s, 3)
	if s.Surface() != (render.Size{W: 30, H: 15}) {
		t.Fatalf("newest load should win, surface = %+v", s.Surface())
	}
	if len(rec.notices) != 0 {
		t.Fatalf("superseded failure should not notify: %+v", rec.notices)
	}
}

func TestPointerGestureIsOneUndoStep(t *testing.T) {
	rec := &recorder{}
	s := loaded(t, rec, 800, 400)
	b, _ := s.AddTextBox()
	b, _ = s.UpdateTextBox(b.ID, domain.Text("HELLO"))
	view := interact.Viewport{DisplayW: 800, DisplayH: 400, SurfaceW: 800, SurfaceH: 400}

	s.HandlePointer(interact.MouseEvent(interact.Press, b.X, b.Y, view))
	if f := s.Frame(); f.DragTargetID != b.ID || f.SelectedID != b.ID {
		t.Fatalf("frame during drag = %+v", f)
	}
	for i := 1; i <= 5; i++ {
		s.HandlePointer(interact.MouseEvent(interact.Move, b.X+float64(10*i), b.Y+float64(5*i), view))
	}
	s.HandlePointer(interact.MouseEvent(interact.Release, 0, 0, view))
	moved, _ := s.TextBox(b.ID)
	if moved.X != 450 || moved.Y != 85 {
		t.Fatalf("moved to (%v,%v)", moved.X, moved.Y)
	}
	if !s.Undo() {
		t.Fatalf("undo failed")
	}
	back, _ := s.TextBox(b.ID)
	if back.X != b.X || back.Y != b.Y {
		t.Fatalf("undo should restore (%v,%v), got (%v,%v)", b.X, b.Y, back.X, back.Y)
	}
	if !s.Redo() {
		t.Fatalf("redo failed")
	}
	again, _ := s.TextBox(b.ID)
	if again.X != 450 {
		t.Fatalf("redo should reapply the drag")
	}
}

func TestDeleteAffordanceThroughSession(t *testing.T) {
	rec := &recorder{}
	s := loaded(t, rec, 800, 400)
	b, _ := s.AddTextBox()
	b, _ = s.UpdateTextBox(b.ID, domain.Text("HELLO"))
	_ = s.SelectTextBox(b.ID)
	view := interact.Viewport{}
	bounds := geometry.Bounds(b, textlayout.ProviderMeasurer{Provider: textlayout.BasicProvider{}})
	del := geometry.DeleteRect(bounds).Center()
	res := s.HandlePointer(interact.MouseEvent(interact.Press, del.X, del.Y, view))
	if !res.Changed || len(s.TextBoxes()) != 0 {
		t.Fatalf("delete affordance did not delete: %+v", res)
	}
	s.HandlePointer(interact.MouseEvent(interact.Release, del.X, del.Y, view))
	if !s.Undo() || len(s.TextBoxes()) != 1 {
		t.Fatalf("delete should be undoable")
	}
}

func TestTypingCoalescesIntoOneUndo(t *testing.T) {
	rec := &recorder{}
	s := loaded(t, rec, 800, 400)
	b, _ := s.AddTextBox()
	for _, txt := range []string{"H", "HE", "HEL"} {
		_, _ = s.UpdateTextBox(b.ID, domain.Text(txt))
	}
	s.Undo()
	got, _ := s.TextBox(b.ID)
	if got.Text != "" {
		t.Fatalf("one undo should revert the typing burst, got %q", got.Text)
	}
	s.Undo()
	if len(s.TextBoxes()) != 0 {
		t.Fatalf("second undo should revert the add")
	}
}

func TestRenderAndSummary(t *testing.T) {
	rec := &recorder{}
	s := newSession(t, rec)
	if s.Render() != nil {
		t.Fatalf("no frame without image")
	}
	s = loaded(t, rec, 200, 100)
	b, _ := s.AddTextBox()
	_, _ = s.UpdateTextBox(b.ID, domain.Text("HI"))
	img := s.Render()
	if img == nil || img.Bounds().Dx() != 200 {
		t.Fatalf("unexpected render %v", img)
	}
	if sum := s.Summary(); !bytes.Contains([]byte(sum), []byte("boxes=1")) {
		t.Fatalf("summary = %q", sum)
	}
	if len(s.FontFamilies()) != len(domain.FontFamilies) {
		t.Fatalf("font families mismatch")
	}
}

func TestExportFormatOption(t *testing.T) {
	s := New(Options{Provider: textlayout.BasicProvider{}, ExportFormat: export.FormatPDF})
	if err := s.LoadImage(context.Background(), pngDataURL(t, 50, 50)); err != nil {
		t.Fatal(err)
	}
	b, _ := s.AddTextBox()
	_, _ = s.UpdateTextBox(b.ID, domain.Text("X"))
	data, err := s.ExportAsEncodedImage()
	if err != nil || !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Fatalf("expected pdf export, err=%v", err)
	}
}
