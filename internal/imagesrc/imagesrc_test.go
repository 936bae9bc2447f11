/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0
 */

package imagesrc

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
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{255, 0, 0, 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestLoadPathAndFileURL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cat.png")
	if err := os.WriteFile(path, pngBytes(t, 64, 32), 0o644); err != nil {
		t.Fatal(err)
	}
	l := NewLoader()
	img, err := l.Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load path: %v", err)
	}
	if img.Width != 64 || img.Height != 32 || img.Format != "png" || img.Source != path {
		t.Fatalf("unexpected image %+v", img)
	}

	u := "file://" + filepath.ToSlash(path)
	if !strings.HasPrefix(filepath.ToSlash(path), "/") {
		u = "file:///" + filepath.ToSlash(path)
	}
	if _, err := l.Load(context.Background(), u); err != nil {
		t.Fatalf("Load file URL %s: %v", u, err)
	}

	l.Base = dir
	if _, err := l.Load(context.Background(), "cat.png"); err != nil {
		t.Fatalf("Load relative: %v", err)
	}
}

func TestLoadDataURL(t *testing.T) {
	ref := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes(t, 3, 2))
	img, err := NewLoader().Load(context.Background(), ref)
	if err != nil {
		t.Fatalf("Load data URL: %v", err)
	}
	if img.Width != 3 || img.Height != 2 {
		t.Fatalf("size = %dx%d", img.Width, img.Height)
	}
}

func TestLoadFailuresNameSource(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(garbage, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	refs := []string{
		filepath.Join(dir, "missing.png"),
		garbage,
		"data:image/png;base64,!!!",
		"data:nocomma",
		"",
	}
	for _, ref := range refs {
		_, err := NewLoader().Load(context.Background(), ref)
		if !errors.Is(err, domain.ErrImageDecodeFailed) {
			t.Fatalf("%q: expected ErrImageDecodeFailed, got %v", ref, err)
		}
		var de *domain.ImageDecodeError
		if !errors.As(err, &de) || de.Source != ref {
			t.Fatalf("%q: error does not carry the source: %v", ref, err)
		}
	}
}

func TestLoadRespectsMaxBytes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.png")
	data := pngBytes(t, 64, 64)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	l := NewLoader()
	l.MaxBytes = int64(len(data) - 1)
	if _, err := l.Load(context.Background(), path); err == nil {
		t.Fatalf("expected size limit error")
	}
}

func TestLoadCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewLoader().Load(ctx, "whatever.png"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestLoadAsyncUsesDispatcher(t *testing.T) {
	ref := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes(t, 5, 5))
	queue := make(chan func(), 1)
	l := NewLoader()
	l.Dispatcher = DispatcherFunc(func(fn func()) { queue <- fn })

	var got *Image
	var gotErr error
	calls := 0
	l.LoadAsync(context.Background(), ref, func(img *Image, err error) {
		calls++
		got, gotErr = img, err
	})
	select {
	case fn := <-queue:
		if calls != 0 {
			t.Fatalf("callback ran before dispatch")
		}
		fn()
	case <-time.After(5 * time.Second):
		t.Fatalf("load did not complete")
	}
	if calls != 1 || gotErr != nil || got == nil || got.Width != 5 {
		t.Fatalf("calls=%d img=%+v err=%v", calls, got, gotErr)
	}
}

func TestQueueDrainsOnOwner(t *testing.T) {
	ref := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes(t, 6, 3))
	q := NewQueue()
	l := NewLoader()
	var got []int
	for i := 0; i < 2; i++ {
		i := i
		l.LoadAsyncVia(context.Background(), ref, q, func(img *Image, err error) {
			if err != nil || img.Width != 6 {
				t.Errorf("img=%+v err=%v", img, err)
			}
			got = append(got, i)
		})
	}
	ran := 0
	for ran < 2 {
		select {
		case <-q.Ready():
			ran += q.Drain()
		case <-time.After(5 * time.Second):
			t.Fatalf("drained %d of 2", ran)
		}
	}
	if len(got) != 2 || q.Len() != 0 {
		t.Fatalf("got=%v pending=%d", got, q.Len())
	}
}

func TestFromBytesEmpty(t *testing.T) {
	if _, err := FromBytes("x", nil); !errors.Is(err, domain.ErrImageDecodeFailed) {
		t.Fatalf("expected decode failure, got %v", err)
	}
}
