/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0
 */

package ui

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// prefStore is the subset of fyne.Preferences used for the recent list.
type prefStore interface {
	StringWithFallback(key, fallback string) string
	SetString(key, value string)
}

const (
	recentPrefsKey = "recent.images"
	recentMax      = 10
)

// loadRecent returns remembered image paths that still exist, newest first.
func loadRecent(p prefStore) []string {
	raw := p.StringWithFallback(recentPrefsKey, "")
	var items []string
	if strings.TrimSpace(raw) != "" {
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			items = nil
		}
	}
	out := make([]string, 0, len(items))
	for _, s := range items {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, err := os.Stat(s); err == nil {
			out = append(out, s)
		}
	}
	return out
}

func saveRecent(p prefStore, items []string) {
	if len(items) > recentMax {
		items = items[:recentMax]
	}
	b, _ := json.Marshal(items)
	p.SetString(recentPrefsKey, string(b))
}

// addRecent moves path to the front. Data URLs are not remembered.
func addRecent(p prefStore, path string) {
	if strings.TrimSpace(path) == "" || strings.HasPrefix(path, "data:") {
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	rec := loadRecent(p)
	out := make([]string, 0, 1+len(rec))
	out = append(out, abs)
	for _, s := range rec {
		// case-insensitive for Windows paths
		if strings.EqualFold(s, abs) {
			continue
		}
		out = append(out, s)
	}
	saveRecent(p, out)
}
