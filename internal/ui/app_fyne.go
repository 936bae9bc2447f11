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
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/png"
	"log/slog"
	"path/filepath"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	fstorage "fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/CGYORK/meme-generator-project/internal/config"
	"github.com/CGYORK/meme-generator-project/internal/crash"
	"github.com/CGYORK/meme-generator-project/internal/domain"
	"github.com/CGYORK/meme-generator-project/internal/editor"
	"github.com/CGYORK/meme-generator-project/internal/export"
	"github.com/CGYORK/meme-generator-project/internal/gallery"
	"github.com/CGYORK/meme-generator-project/internal/imagesrc"
	applog "github.com/CGYORK/meme-generator-project/internal/log"
	"github.com/CGYORK/meme-generator-project/internal/render"
	"github.com/CGYORK/meme-generator-project/internal/version"
)

const appTitle = "Meme Generator"

// Run starts the desktop editor. imageRef, when set, is loaded on start.
func Run(cfg config.AppConfig, imageRef string) error {
	l := applog.WithComponent("ui")
	l.Info("starting UI", slog.String("version", version.Version))

	fyneApp := app.NewWithID("memegen")
	w := fyneApp.NewWindow(appTitle)
	// Restore window size from preferences (with sane minimums)
	prefs := fyneApp.Preferences()
	winW := max(prefs.IntWithFallback("window.width", 1280), 900)
	winH := max(prefs.IntWithFallback("window.height", 800), 640)
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts, err := editor.OptionsFrom(cfg)
	if err != nil {
		l.Warn("session options degraded", slog.Any("err", err))
	}
	loader := imagesrc.NewLoader()
	loader.Dispatcher = imagesrc.DispatcherFunc(fyne.Do)
	opts.Loader = loader

	v := &editorView{win: w, status: widget.NewLabel("Ready")}
	var refreshRecent func()
	opts.Notifier = editor.NotifierFunc(func(n editor.Notice) {
		dialog.ShowInformation(appTitle, n.Message, w)
	})
	opts.OnRedraw = v.sync
	opts.OnImageLoaded = func(img *imagesrc.Image, err error) {
		if err != nil {
			v.status.SetText("Image not loaded")
			return
		}
		addRecent(prefs, img.Source)
		if refreshRecent != nil {
			refreshRecent()
		}
		v.status.SetText(fmt.Sprintf("%s (%dx%d)", shortName(img.Source), img.Width, img.Height))
		v.sync()
	}
	sess := editor.New(opts)
	defer crash.Recover(sess.Summary)
	v.sess = sess
	v.canvas = NewMemeCanvas(sess)

	cache := openThumbCache(cfg, l)
	cat, err := gallery.CatalogFrom(cfg.Templates.Catalog)
	if err != nil {
		l.Warn("template catalog not loaded, using bundled templates", slog.Any("err", err))
		cat = gallery.DefaultCatalog()
	}
	templates := newTemplatePanel(ctx, cat, cache, loader, func(t gallery.Template) {
		v.status.SetText("Loading " + t.Name + "...")
		sess.LoadImageFromSource(ctx, t.Path)
	})

	openImage := func() {
		fd := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			if rc == nil {
				return
			}
			path := rc.URI().Path()
			_ = rc.Close()
			v.status.SetText("Loading " + shortName(path) + "...")
			sess.LoadImageFromSource(ctx, path)
		}, w)
		fd.SetFilter(fstorage.NewExtensionFileFilter([]string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".bmp"}))
		fd.Show()
	}
	download := func() {
		data, err := sess.ExportAsEncodedImage()
		if err != nil {
			// the session already showed the notice
			return
		}
		fd := dialog.NewFileSave(func(wc fyne.URIWriteCloser, err error) {
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			if wc == nil {
				return
			}
			defer wc.Close()
			if _, err := wc.Write(data); err != nil {
				l.Error("download write failed", slog.Any("err", err))
				dialog.ShowError(err, w)
				return
			}
			v.status.SetText("Saved " + wc.URI().Path())
		}, w)
		fd.SetFileName(export.DefaultFileName(sess.ExportFormat()))
		fd.Show()
	}

	side := v.buildSidePanel(openImage, download)
	center := container.NewBorder(nil, v.status, nil, nil, v.canvas)
	content := container.NewBorder(nil, nil, side, templates, center)
	w.SetContent(content)

	// Menus
	recentMenu := fyne.NewMenu("Open Recent")
	refreshRecent = func() {
		recentMenu.Items = recentMenu.Items[:0]
		for _, p := range loadRecent(prefs) {
			recentMenu.Items = append(recentMenu.Items, fyne.NewMenuItem(p, func() {
				sess.LoadImageFromSource(ctx, p)
			}))
		}
		if len(recentMenu.Items) == 0 {
			none := fyne.NewMenuItem("(none)", nil)
			none.Disabled = true
			recentMenu.Items = append(recentMenu.Items, none)
		}
		if mm := w.MainMenu(); mm != nil {
			mm.Refresh()
		}
	}
	recentItem := fyne.NewMenuItem("Open Recent", nil)
	recentItem.ChildMenu = recentMenu
	refreshRecent()

	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Open Image…", openImage),
		recentItem,
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Download Meme…", download),
	)
	editMenu := fyne.NewMenu("Edit",
		fyne.NewMenuItem("Undo", func() { sess.Undo() }),
		fyne.NewMenuItem("Redo", func() { sess.Redo() }),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Add Text", func() { _, _ = sess.AddTextBox() }),
		fyne.NewMenuItem("Delete Selected", v.deleteSelected),
	)
	helpMenu := fyne.NewMenu("Help", fyne.NewMenuItem("About", func() {
		dialog.ShowInformation("About", version.String(), w)
	}))
	w.SetMainMenu(fyne.NewMainMenu(fileMenu, editMenu, helpMenu))

	// Shortcuts
	w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyZ, Modifier: fyne.KeyModifierShortcutDefault}, func(fyne.Shortcut) { sess.Undo() })
	w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyZ, Modifier: fyne.KeyModifierShortcutDefault | fyne.KeyModifierShift}, func(fyne.Shortcut) { sess.Redo() })
	w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyS, Modifier: fyne.KeyModifierShortcutDefault}, func(fyne.Shortcut) { download() })
	w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyO, Modifier: fyne.KeyModifierShortcutDefault}, func(fyne.Shortcut) { openImage() })

	w.SetOnClosed(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
		cancel()
		if cache != nil {
			_ = cache.Close()
		}
	})

	if strings.TrimSpace(imageRef) != "" {
		sess.LoadImageFromSource(ctx, imageRef)
	}
	v.sync()
	w.ShowAndRun()
	return nil
}

func openThumbCache(cfg config.AppConfig, l *slog.Logger) *gallery.ThumbCache {
	path := cfg.Templates.Cache
	if path == "" {
		p, err := gallery.DefaultCachePath()
		if err != nil {
			l.Warn("no cache dir, thumbnails are not cached", slog.Any("err", err))
			return nil
		}
		path = p
	}
	cache, err := gallery.Open(path)
	if err != nil {
		l.Warn("thumbnail cache unavailable", slog.Any("err", err))
		return nil
	}
	if cfg.Templates.CacheMaxBytes > 0 {
		cache.MaxBytes = cfg.Templates.CacheMaxBytes
	}
	return cache
}

func shortName(ref string) string {
	if strings.HasPrefix(ref, "data:") {
		return "pasted image"
	}
	return filepath.Base(ref)
}

// editorView mirrors the session in the side panel controls.
type editorView struct {
	sess   *editor.Session
	win    fyne.Window
	canvas *MemeCanvas
	status *widget.Label

	boxes       []domain.TextBox
	boxList     *widget.List
	addBtn      *widget.Button
	textEntry   *widget.Entry
	sizeSlider  *widget.Slider
	sizeLabel   *widget.Label
	fontSelect  *widget.Select
	colorEntry  *widget.Entry
	colorSwatch *canvas.Rectangle
	pickBtn     *widget.Button
	deleteBtn   *widget.Button
	undoBtn     *widget.Button
	redoBtn     *widget.Button

	// syncing suppresses control callbacks while controls mirror the session.
	syncing bool
}

func (v *editorView) buildSidePanel(openImage, download func()) fyne.CanvasObject {
	v.addBtn = widget.NewButtonWithIcon("Add Text", theme.ContentAddIcon(), func() { _, _ = v.sess.AddTextBox() })
	v.boxList = widget.NewList(
		func() int { return len(v.boxes) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(i widget.ListItemID, o fyne.CanvasObject) {
			label := ""
			if i >= 0 && int(i) < len(v.boxes) {
				label = boxLabel(int(i), v.boxes[i])
			}
			o.(*widget.Label).SetText(label)
		},
	)
	v.boxList.OnSelected = func(id widget.ListItemID) {
		if v.syncing || int(id) >= len(v.boxes) {
			return
		}
		_ = v.sess.SelectTextBox(v.boxes[id].ID)
	}

	v.textEntry = widget.NewMultiLineEntry()
	v.textEntry.SetPlaceHolder(domain.PlaceholderText)
	v.textEntry.SetMinRowsVisible(3)
	v.textEntry.OnChanged = func(s string) { v.update(domain.Patch{Text: &s}) }

	v.sizeLabel = widget.NewLabel("")
	v.sizeSlider = widget.NewSlider(domain.MinFontSize, domain.MaxFontSize)
	v.sizeSlider.Step = 1
	v.sizeSlider.OnChanged = func(f float64) {
		n := int(f)
		v.sizeLabel.SetText(fmt.Sprintf("Size: %dpx", n))
		v.update(domain.Patch{FontSize: &n})
	}

	v.fontSelect = widget.NewSelect(v.sess.FontFamilies(), func(s string) { v.update(domain.Patch{FontFamily: &s}) })

	v.colorSwatch = canvas.NewRectangle(color.White)
	v.colorSwatch.SetMinSize(fyne.NewSize(24, 24))
	v.colorEntry = widget.NewEntry()
	v.colorEntry.SetPlaceHolder("#ffffff")
	v.colorEntry.OnSubmitted = func(s string) {
		hex := domain.HexColor(domain.ParseColor(s))
		v.update(domain.Patch{Color: &hex})
	}
	v.pickBtn = widget.NewButton("Pick…", func() {
		picker := dialog.NewColorPicker("Text Color", "Choose a caption color", func(c color.Color) {
			hex := domain.HexColor(c)
			v.update(domain.Patch{Color: &hex})
		}, v.win)
		picker.Advanced = true
		picker.Show()
	})

	v.deleteBtn = widget.NewButtonWithIcon("Delete", theme.DeleteIcon(), v.deleteSelected)
	v.deleteBtn.Importance = widget.DangerImportance
	v.undoBtn = widget.NewButtonWithIcon("", theme.ContentUndoIcon(), func() { v.sess.Undo() })
	v.redoBtn = widget.NewButtonWithIcon("", theme.ContentRedoIcon(), func() { v.sess.Redo() })

	controls := container.NewVBox(
		widget.NewLabel("Text"), v.textEntry,
		v.sizeLabel, v.sizeSlider,
		widget.NewLabel("Font"), v.fontSelect,
		widget.NewLabel("Color"), container.NewBorder(nil, nil, v.colorSwatch, v.pickBtn, v.colorEntry),
		v.deleteBtn,
	)
	top := container.NewVBox(
		container.NewGridWithColumns(2,
			widget.NewButtonWithIcon("Open…", theme.FolderOpenIcon(), openImage),
			widget.NewButtonWithIcon("Download", theme.DownloadIcon(), download),
		),
		container.NewHBox(v.addBtn, v.undoBtn, v.redoBtn),
		widget.NewSeparator(),
		widget.NewLabel("Text boxes"),
	)
	width := canvas.NewRectangle(color.Transparent)
	width.SetMinSize(fyne.NewSize(260, 0))
	return container.NewStack(width, container.NewBorder(top, controls, nil, nil, v.boxList))
}

func boxLabel(i int, b domain.TextBox) string {
	text := strings.TrimSpace(domain.Lines(b.Text)[0])
	if text == "" {
		text = domain.PlaceholderText
	}
	return fmt.Sprintf("%d. %s", i+1, text)
}

// update applies p to the selected box unless the controls are being synced.
func (v *editorView) update(p domain.Patch) {
	if v.syncing || v.sess == nil {
		return
	}
	b, ok := v.sess.Selected()
	if !ok {
		return
	}
	_, _ = v.sess.UpdateTextBox(b.ID, p)
}

func (v *editorView) deleteSelected() {
	if b, ok := v.sess.Selected(); ok {
		_ = v.sess.DeleteTextBox(b.ID)
	}
}

// sync mirrors the session into the controls and repaints the canvas.
func (v *editorView) sync() {
	if v.sess == nil || v.boxList == nil {
		return
	}
	v.syncing = true
	defer func() { v.syncing = false }()

	v.boxes = v.sess.TextBoxes()
	v.boxList.Refresh()
	setEnabled(v.addBtn, v.sess.HasImage())
	setEnabled(v.undoBtn, v.sess.CanUndo())
	setEnabled(v.redoBtn, v.sess.CanRedo())

	sel, ok := v.sess.Selected()
	idx := -1
	for i, b := range v.boxes {
		if ok && b.ID == sel.ID {
			idx = i
		}
	}
	editable := []fyne.Disableable{v.textEntry, v.sizeSlider, v.fontSelect, v.colorEntry, v.pickBtn, v.deleteBtn}
	if idx < 0 {
		v.boxList.UnselectAll()
		for _, d := range editable {
			d.Disable()
		}
		v.sizeLabel.SetText("Size")
	} else {
		v.boxList.Select(widget.ListItemID(idx))
		for _, d := range editable {
			d.Enable()
		}
		if v.textEntry.Text != sel.Text {
			v.textEntry.SetText(sel.Text)
		}
		v.sizeSlider.SetValue(float64(sel.FontSize))
		v.sizeLabel.SetText(fmt.Sprintf("Size: %dpx", sel.FontSize))
		v.fontSelect.SetSelected(sel.FontFamily)
		v.colorEntry.SetText(sel.Color)
		v.colorSwatch.FillColor = domain.ParseColor(sel.Color)
		v.colorSwatch.Refresh()
	}
	v.canvas.Refresh()
}

func setEnabled(d fyne.Disableable, on bool) {
	if on {
		d.Enable()
	} else {
		d.Disable()
	}
}

// newTemplatePanel lists catalog templates with thumbnails decoded in the
// background.
func newTemplatePanel(ctx context.Context, cat gallery.Catalog, cache *gallery.ThumbCache, loader *imagesrc.Loader, onPick func(gallery.Template)) fyne.CanvasObject {
	width := canvas.NewRectangle(color.Transparent)
	width.SetMinSize(fyne.NewSize(240, 0))
	if len(cat.Templates) == 0 {
		return container.NewStack(width, widget.NewLabel("No templates available"))
	}
	thumbs := make([]image.Image, len(cat.Templates))
	failed := make([]bool, len(cat.Templates))
	list := widget.NewList(
		func() int { return len(cat.Templates) },
		func() fyne.CanvasObject {
			img := canvas.NewImageFromImage(nil)
			img.FillMode = canvas.ImageFillContain
			img.SetMinSize(fyne.NewSize(gallery.DefaultThumbEdge, gallery.DefaultThumbEdge))
			return container.NewBorder(nil, nil, img, nil, widget.NewLabel(""))
		},
		func(i widget.ListItemID, o fyne.CanvasObject) {
			row := o.(*fyne.Container)
			label := row.Objects[0].(*widget.Label)
			img := row.Objects[1].(*canvas.Image)
			name := cat.Templates[i].Name
			if failed[i] {
				name += " (unavailable)"
			}
			label.SetText(name)
			img.Image = thumbs[i]
			img.Refresh()
		},
	)
	list.OnSelected = func(id widget.ListItemID) {
		if failed[id] {
			return
		}
		onPick(cat.Templates[id])
	}
	go func() {
		for i, t := range cat.Templates {
			if ctx.Err() != nil {
				return
			}
			img, err := thumbnail(ctx, cache, loader, t)
			fyne.Do(func() {
				thumbs[i] = img
				failed[i] = err != nil
				list.RefreshItem(i)
			})
		}
	}()
	header := widget.NewLabelWithStyle("Templates", fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
	return container.NewStack(width, container.NewBorder(header, nil, nil, nil, list))
}

func thumbnail(ctx context.Context, cache *gallery.ThumbCache, loader *imagesrc.Loader, t gallery.Template) (image.Image, error) {
	if cache == nil {
		src, err := loader.Load(ctx, t.Path)
		if err != nil {
			return nil, err
		}
		edge := gallery.DefaultThumbEdge
		return render.ScaleImage(src.Bitmap, render.FitWithin(src.Width, src.Height, edge, edge)), nil
	}
	data, err := cache.Thumbnail(ctx, t, loader)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	return img, err
}
