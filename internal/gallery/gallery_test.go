/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0
 */

package gallery

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/CGYORK/meme-generator-project/internal/domain"
	"github.com/CGYORK/meme-generator-project/internal/imagesrc"
)

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()
	want := []string{"Batman Slapping Robin", "Disaster Girl", "Laughing Leo"}
	got := c.Names()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("names = %v, want %v", got, want)
	}
	if !strings.HasSuffix(c.Templates[2].Path, ".webp") {
		t.Fatalf("Laughing Leo should ship as webp, got %s", c.Templates[2].Path)
	}
}

func TestParseCatalogYAMLAndJSON(t *testing.T) {
	yml := "templates:\n  - name: Drake\n    path: drake.png\n  - name: Doge\n    path: /abs/doge.jpg\n"
	c, err := ParseCatalog([]byte(yml))
	if err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if len(c.Templates) != 2 || c.Templates[1].Path != "/abs/doge.jpg" {
		t.Fatalf("unexpected catalog: %+v", c)
	}
	js := `{"templates":[{"name":"Drake","path":"drake.png"}]}`
	c, err = ParseCatalog([]byte(js))
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	if c.Templates[0].Name != "Drake" {
		t.Fatalf("unexpected catalog: %+v", c)
	}
}

func TestParseCatalogRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"empty":        "",
		"missing path": "templates:\n  - name: Drake\n",
		"empty name":   "templates:\n  - name: \"\"\n    path: a.png\n",
		"extra field":  "templates:\n  - name: Drake\n    path: a.png\n    rating: 5\n",
		"not a list":   "templates: drake\n",
		"duplicate":    "templates:\n  - name: Drake\n    path: a.png\n  - name: drake\n    path: b.png\n",
	}
	for name, in := range cases {
		if _, err := ParseCatalog([]byte(in)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestLoadCatalogResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	in := "templates:\n  - name: Drake\n    path: img/drake.png\n  - name: Inline\n    path: \"data:image/png;base64,AAAA\"\n"
	if err := os.WriteFile(path, []byte(in), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if want := filepath.Join(dir, "img", "drake.png"); c.Templates[0].Path != want {
		t.Fatalf("path = %s, want %s", c.Templates[0].Path, want)
	}
	if !strings.HasPrefix(c.Templates[1].Path, "data:") {
		t.Fatalf("data URL should be untouched, got %s", c.Templates[1].Path)
	}
	if _, err := LoadCatalog(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing catalog")
	}
}

func TestFind(t *testing.T) {
	c := DefaultCatalog()
	tpl, err := c.Find("  disaster girl ")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if tpl.Name != "Disaster Girl" {
		t.Fatalf("found %q", tpl.Name)
	}
	if _, err := c.Find("Distracted Boyfriend"); !errors.Is(err, ErrTemplateNotFound) {
		t.Fatalf("expected ErrTemplateNotFound, got %v", err)
	}
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 80, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func openCache(t *testing.T) *ThumbCache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "cache", "thumbs.sqlite"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	var tick int64
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return c
}

// starved cannot read any file, so a successful Thumbnail call proves a hit.
func starved() *imagesrc.Loader {
	l := imagesrc.NewLoader()
	l.MaxBytes = 1
	return l
}

func TestThumbnailFitsAndCaches(t *testing.T) {
	ctx := context.Background()
	c := openCache(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "wide.png")
	writePNG(t, path, 400, 200)
	tpl := Template{Name: "Wide", Path: path}

	data, err := c.Thumbnail(ctx, tpl, imagesrc.NewLoader())
	if err != nil {
		t.Fatalf("Thumbnail: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode thumbnail: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 100 || b.Dy() != 50 {
		t.Fatalf("thumbnail size = %dx%d, want 100x50", b.Dx(), b.Dy())
	}

	again, err := c.Thumbnail(ctx, tpl, starved())
	if err != nil {
		t.Fatalf("expected cache hit, got %v", err)
	}
	if !bytes.Equal(again, data) {
		t.Fatalf("cached bytes differ")
	}
	total, err := c.TotalBytes(ctx)
	if err != nil || total != int64(len(data)) {
		t.Fatalf("TotalBytes = %d, %v; want %d", total, err, len(data))
	}
}

func TestThumbnailRefreshesWhenSourceChanges(t *testing.T) {
	ctx := context.Background()
	c := openCache(t)
	path := filepath.Join(t.TempDir(), "t.png")
	writePNG(t, path, 200, 200)
	tpl := Template{Name: "T", Path: path}
	if _, err := c.Thumbnail(ctx, tpl, imagesrc.NewLoader()); err != nil {
		t.Fatal(err)
	}
	writePNG(t, path, 50, 200)
	data, err := c.Thumbnail(ctx, tpl, imagesrc.NewLoader())
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 25 || b.Dy() != 100 {
		t.Fatalf("thumbnail size = %dx%d, want 25x100", b.Dx(), b.Dy())
	}
	if n, _ := c.Len(ctx); n != 1 {
		t.Fatalf("stale row kept: %d rows", n)
	}
}

func TestThumbnailEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	c := openCache(t)
	dir := t.TempDir()
	a := Template{Name: "A", Path: filepath.Join(dir, "a.png")}
	b := Template{Name: "B", Path: filepath.Join(dir, "b.png")}
	writePNG(t, a.Path, 120, 120)
	writePNG(t, b.Path, 120, 120)

	first, err := c.Thumbnail(ctx, a, imagesrc.NewLoader())
	if err != nil {
		t.Fatal(err)
	}
	c.MaxBytes = int64(len(first))
	if _, err := c.Thumbnail(ctx, b, imagesrc.NewLoader()); err != nil {
		t.Fatal(err)
	}
	if n, _ := c.Len(ctx); n != 1 {
		t.Fatalf("rows = %d, want 1", n)
	}
	if _, err := c.Thumbnail(ctx, b, starved()); err != nil {
		t.Fatalf("newest entry should survive: %v", err)
	}
	if _, err := c.Thumbnail(ctx, a, starved()); err == nil {
		t.Fatalf("oldest entry should have been evicted")
	}
}

func TestThumbnailMissingSource(t *testing.T) {
	c := openCache(t)
	_, err := c.Thumbnail(context.Background(), Template{Name: "gone", Path: filepath.Join(t.TempDir(), "gone.png")}, nil)
	if !errors.Is(err, domain.ErrImageDecodeFailed) {
		t.Fatalf("expected ErrImageDecodeFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "gone.png") {
		t.Fatalf("error should name the source: %v", err)
	}
}

func TestThumbnailDataURL(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 10, 40))); err != nil {
		t.Fatal(err)
	}
	ref := "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
	c := openCache(t)
	data, err := c.Thumbnail(context.Background(), Template{Name: "inline", Path: ref}, nil)
	if err != nil {
		t.Fatalf("Thumbnail: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 10 || b.Dy() != 40 {
		t.Fatalf("small images are not upscaled, got %dx%d", b.Dx(), b.Dy())
	}
}
