/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0
 */

package gallery

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/CGYORK/meme-generator-project/internal/domain"
	"github.com/CGYORK/meme-generator-project/internal/export"
	"github.com/CGYORK/meme-generator-project/internal/imagesrc"
	applog "github.com/CGYORK/meme-generator-project/internal/log"
	"github.com/CGYORK/meme-generator-project/internal/render"
)

const (
	// DefaultThumbEdge is the picker tile size.
	DefaultThumbEdge = 100
	// DefaultCacheMaxBytes caps the sum of stored thumbnail sizes.
	DefaultCacheMaxBytes = 16 << 20
)

// ThumbCache stores PNG thumbnails in SQLite keyed by source path, mtime and
// size, evicting least recently used rows past MaxBytes.
type ThumbCache struct {
	MaxBytes int64
	Edge     int

	db  *sql.DB
	now func() time.Time
	log *slog.Logger
}

// DefaultCachePath is the thumbnail database under the user cache dir.
func DefaultCachePath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "memegen", "thumbs.sqlite"), nil
}

// Open creates or opens the cache database at path.
func Open(path string) (*ThumbCache, error) {
	l := applog.WithOperation(applog.WithComponent("gallery"), "cache_open").With(slog.String("path", path))
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("cache path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := ensureSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure schema failed", slog.Any("err", err))
		return nil, err
	}
	return &ThumbCache{
		MaxBytes: DefaultCacheMaxBytes,
		Edge:     DefaultThumbEdge,
		db:       db,
		now:      time.Now,
		log:      applog.WithComponent("gallery"),
	}, nil
}

func ensureSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS thumbs (
			id          INTEGER PRIMARY KEY,
			path        TEXT    NOT NULL,
			mtime       INTEGER NOT NULL,
			src_size    INTEGER NOT NULL,
			edge        INTEGER NOT NULL,
			png         BLOB    NOT NULL,
			size        INTEGER NOT NULL,
			last_access INTEGER NOT NULL
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_thumbs_key ON thumbs(path, mtime, src_size, edge)`,
		`CREATE INDEX IF NOT EXISTS idx_thumbs_access ON thumbs(last_access)`,
	}
	for _, q := range stmts {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure thumbs schema: %w", err)
		}
	}
	return nil
}

func (c *ThumbCache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

type thumbKey struct {
	path  string
	mtime int64
	size  int64
}

// Thumbnail returns a PNG of tpl fitted within Edge x Edge, decoding through
// loader on a miss.
func (c *ThumbCache) Thumbnail(ctx context.Context, tpl Template, loader *imagesrc.Loader) ([]byte, error) {
	if loader == nil {
		loader = imagesrc.NewLoader()
	}
	key, err := keyFor(tpl.Path, loader)
	if err != nil {
		return nil, &domain.ImageDecodeError{Source: tpl.Path, Err: err}
	}
	edge := c.edge()
	blob, err := c.get(ctx, key, edge)
	if err != nil {
		return nil, err
	}
	if blob != nil {
		return blob, nil
	}
	img, err := loader.Load(ctx, tpl.Path)
	if err != nil {
		return nil, err
	}
	thumb := render.ScaleImage(img.Bitmap, render.FitWithin(img.Width, img.Height, edge, edge))
	data, err := export.EncodePNG(thumb)
	if err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	if err := c.put(ctx, key, edge, data); err != nil {
		// a cache write failure still yields a usable thumbnail
		c.log.Warn("thumbnail cache write failed", slog.String("template", tpl.Name), slog.Any("err", err))
	}
	return data, nil
}

func keyFor(ref string, loader *imagesrc.Loader) (thumbKey, error) {
	p, err := loader.Resolve(ref)
	if err != nil {
		return thumbKey{}, err
	}
	if p == "" {
		sum := sha256.Sum256([]byte(ref))
		return thumbKey{path: "data:sha256:" + hex.EncodeToString(sum[:]), size: int64(len(ref))}, nil
	}
	fi, err := os.Stat(p)
	if err != nil {
		return thumbKey{}, err
	}
	if fi.IsDir() {
		return thumbKey{}, fmt.Errorf("%s is a directory", p)
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		abs = p
	}
	return thumbKey{path: abs, mtime: fi.ModTime().UnixNano(), size: fi.Size()}, nil
}

func (c *ThumbCache) edge() int {
	if c.Edge > 0 {
		return c.Edge
	}
	return DefaultThumbEdge
}

func (c *ThumbCache) get(ctx context.Context, k thumbKey, edge int) ([]byte, error) {
	var blob []byte
	err := c.db.QueryRowContext(ctx, `SELECT png FROM thumbs WHERE path=? AND mtime=? AND src_size=? AND edge=?`,
		k.path, k.mtime, k.size, edge).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query thumbnail: %w", err)
	}
	_, _ = c.db.ExecContext(ctx, `UPDATE thumbs SET last_access=? WHERE path=? AND mtime=? AND src_size=? AND edge=?`,
		c.now().UnixNano(), k.path, k.mtime, k.size, edge)
	return blob, nil
}

func (c *ThumbCache) put(ctx context.Context, k thumbKey, edge int, blob []byte) error {
	// rows for an older version of the same file are never read again
	if _, err := c.db.ExecContext(ctx, `DELETE FROM thumbs WHERE path=? AND (mtime<>? OR src_size<>?)`, k.path, k.mtime, k.size); err != nil {
		return fmt.Errorf("drop stale thumbnails: %w", err)
	}
	now := c.now().UnixNano()
	_, err := c.db.ExecContext(ctx, `INSERT INTO thumbs(path,mtime,src_size,edge,png,size,last_access)
		VALUES(?,?,?,?,?,?,?)
		ON CONFLICT(path,mtime,src_size,edge) DO UPDATE SET png=excluded.png, size=excluded.size, last_access=excluded.last_access`,
		k.path, k.mtime, k.size, edge, blob, len(blob), now)
	if err != nil {
		return fmt.Errorf("upsert thumbnail: %w", err)
	}
	if c.MaxBytes > 0 {
		return c.evictToFit(ctx, c.MaxBytes)
	}
	return nil
}

// evictToFit deletes least recently used rows until the total size fits.
func (c *ThumbCache) evictToFit(ctx context.Context, capBytes int64) error {
	total, err := c.TotalBytes(ctx)
	if err != nil {
		return err
	}
	if total <= capBytes {
		return nil
	}
	rows, err := c.db.QueryContext(ctx, `SELECT id, size FROM thumbs ORDER BY last_access ASC, id ASC`)
	if err != nil {
		return fmt.Errorf("select victims: %w", err)
	}
	var victims []any
	cur := total
	for rows.Next() {
		var id, sz int64
		if err := rows.Scan(&id, &sz); err != nil {
			_ = rows.Close()
			return err
		}
		victims = append(victims, id)
		cur -= sz
		if cur <= capBytes {
			break
		}
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	// the cursor must be closed before writing on a single connection
	if err := rows.Close(); err != nil {
		return err
	}
	if len(victims) == 0 {
		return nil
	}
	q := `DELETE FROM thumbs WHERE id IN (?` + strings.Repeat(",?", len(victims)-1) + `)`
	if _, err := c.db.ExecContext(ctx, q, victims...); err != nil {
		return fmt.Errorf("evict delete: %w", err)
	}
	c.log.Debug("thumbnails evicted", slog.Int("count", len(victims)), slog.Int64("bytes_before", total))
	return nil
}

// TotalBytes sums the stored thumbnail sizes.
func (c *ThumbCache) TotalBytes(ctx context.Context) (int64, error) {
	var total int64
	if err := c.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(size),0) FROM thumbs`).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum thumbnail size: %w", err)
	}
	return total, nil
}

// Len reports the number of cached thumbnails.
func (c *ThumbCache) Len(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM thumbs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count thumbnails: %w", err)
	}
	return n, nil
}
