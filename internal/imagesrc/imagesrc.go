/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0
 */

// Package imagesrc resolves an image reference (a file path, a file:// URL
// or a base64 data: URL) into a decoded bitmap.
package imagesrc

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/CGYORK/meme-generator-project/internal/domain"
	applog "github.com/CGYORK/meme-generator-project/internal/log"
)

// DefaultMaxBytes bounds how much is read from a single source.
const DefaultMaxBytes = 64 << 20

// Image is a decoded source with its intrinsic size.
type Image struct {
	Source string
	Format string
	Bitmap image.Image
	Width  int
	Height int
}

// Dispatcher runs completion callbacks on the host's event thread.
type Dispatcher interface {
	Dispatch(fn func())
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(fn func())

func (f DispatcherFunc) Dispatch(fn func()) { f(fn) }

// Queue holds completions until the owner drains them on its own goroutine.
type Queue struct {
	mu    sync.Mutex
	fns   []func()
	ready chan struct{}
}

func NewQueue() *Queue { return &Queue{ready: make(chan struct{}, 1)} }

func (q *Queue) Dispatch(fn func()) {
	q.mu.Lock()
	q.fns = append(q.fns, fn)
	q.mu.Unlock()
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Ready receives a value after Dispatch; one signal may cover several
// queued completions.
func (q *Queue) Ready() <-chan struct{} { return q.ready }

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.fns)
}

// Drain runs every queued completion on the calling goroutine, in order, and
// returns how many ran.
func (q *Queue) Drain() int {
	q.mu.Lock()
	fns := q.fns
	q.fns = nil
	q.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
	return len(fns)
}

type Loader struct {
	MaxBytes   int64
	Dispatcher Dispatcher
	// Base resolves relative paths; empty means the working directory.
	Base string

	log *slog.Logger
}

func NewLoader() *Loader {
	return &Loader{MaxBytes: DefaultMaxBytes, log: applog.WithComponent("imagesrc")}
}

// Load reads and decodes ref. Any failure is an *domain.ImageDecodeError
// naming ref.
func (l *Loader) Load(ctx context.Context, ref string) (*Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, &domain.ImageDecodeError{Source: ref, Err: err}
	}
	data, err := l.read(ref)
	if err != nil {
		l.logger().Warn("image read failed", slog.String("source", ref), slog.Any("err", err))
		return nil, &domain.ImageDecodeError{Source: ref, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, &domain.ImageDecodeError{Source: ref, Err: err}
	}
	img, err := FromBytes(ref, data)
	if err != nil {
		l.logger().Warn("image decode failed", slog.String("source", ref), slog.Any("err", err))
		return nil, err
	}
	l.logger().Debug("image loaded", slog.String("source", shorten(ref)), slog.String("format", img.Format), slog.Int("w", img.Width), slog.Int("h", img.Height))
	return img, nil
}

// LoadAsync decodes on a new goroutine and delivers the result through the
// loader's Dispatcher. done is called exactly once; with a nil Dispatcher it
// runs on the decode goroutine.
func (l *Loader) LoadAsync(ctx context.Context, ref string, done func(*Image, error)) {
	l.LoadAsyncVia(ctx, ref, l.Dispatcher, done)
}

// LoadAsyncVia is LoadAsync with an explicit Dispatcher.
func (l *Loader) LoadAsyncVia(ctx context.Context, ref string, d Dispatcher, done func(*Image, error)) {
	go func() {
		img, err := l.Load(ctx, ref)
		if d == nil {
			done(img, err)
			return
		}
		d.Dispatch(func() { done(img, err) })
	}()
}

// FromBytes decodes data; source only labels errors and the result.
func FromBytes(source string, data []byte) (*Image, error) {
	if len(data) == 0 {
		return nil, &domain.ImageDecodeError{Source: source, Err: errors.New("empty data")}
	}
	bmp, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &domain.ImageDecodeError{Source: source, Err: err}
	}
	b := bmp.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, &domain.ImageDecodeError{Source: source, Err: errors.New("image has no pixels")}
	}
	return &Image{Source: source, Format: format, Bitmap: bmp, Width: b.Dx(), Height: b.Dy()}, nil
}

func (l *Loader) read(ref string) ([]byte, error) {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return nil, errors.New("empty source")
	case strings.HasPrefix(ref, "data:"):
		return decodeDataURL(ref)
	}
	p, err := l.Resolve(ref)
	if err != nil {
		return nil, err
	}
	return l.readFile(p)
}

// Resolve maps a file reference to a filesystem path. Data URLs have no
// path and resolve to "".
func (l *Loader) Resolve(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	switch {
	case strings.HasPrefix(ref, "data:"):
		return "", nil
	case strings.HasPrefix(ref, "file://"):
		u, err := url.Parse(ref)
		if err != nil {
			return "", err
		}
		p := u.Path
		// file:///C:/x on windows parses to /C:/x
		if len(p) > 2 && p[0] == '/' && p[2] == ':' {
			p = p[1:]
		}
		return filepath.FromSlash(p), nil
	}
	if !filepath.IsAbs(ref) && l.Base != "" {
		return filepath.Join(l.Base, ref), nil
	}
	return ref, nil
}

func (l *Loader) readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	limit := l.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("file exceeds %d bytes", limit)
	}
	return data, nil
}

// decodeDataURL handles data:[<mediatype>][;base64],<data>.
func decodeDataURL(ref string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(ref, "data:"), ",")
	if !ok {
		return nil, errors.New("malformed data URL")
	}
	if strings.HasSuffix(meta, ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			// some producers strip padding
			data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		}
		return data, err
	}
	s, err := url.PathUnescape(payload)
	return []byte(s), err
}

func (l *Loader) logger() *slog.Logger {
	if l.log != nil {
		return l.log
	}
	return applog.WithComponent("imagesrc")
}

// shorten keeps data URLs out of log lines.
func shorten(ref string) string {
	if strings.HasPrefix(ref, "data:") && len(ref) > 48 {
		return ref[:48] + "..."
	}
	return ref
}
