/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0
 */

package editor

import (
	"fmt"

	"github.com/CGYORK/meme-generator-project/internal/config"
	"github.com/CGYORK/meme-generator-project/internal/export"
	"github.com/CGYORK/meme-generator-project/internal/textlayout"
	"github.com/CGYORK/meme-generator-project/internal/undo"
)

// OptionsFrom maps the persisted configuration onto session options. A
// font that fails to load is reported in err while the returned options
// stay usable with the embedded fallbacks.
func OptionsFrom(cfg config.AppConfig) (Options, error) {
	opts := Options{
		SurfaceMaxWidth:  cfg.Editor.SurfaceMaxWidth,
		SurfaceMaxHeight: cfg.Editor.SurfaceMaxHeight,
		ExportMaxWidth:   cfg.Editor.ExportMaxWidth,
		ExportMaxHeight:  cfg.Editor.ExportMaxHeight,
		Undo: undo.Config{
			MaxBytes:    cfg.Editor.UndoMaxBytes,
			MinInterval: cfg.Editor.UndoMinInterval(),
		},
	}
	var firstErr error
	if cfg.Editor.ExportFormat != "" {
		f, err := export.ParseFormat(cfg.Editor.ExportFormat)
		if err != nil {
			firstErr = err
		} else {
			opts.ExportFormat = f
		}
	}
	lib := textlayout.NewFontLibrary()
	if err := lib.LoadFamilies(cfg.Fonts.Families); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("load fonts: %w", err)
	}
	opts.Provider = textlayout.NewFaceProvider(lib)
	return opts, firstErr
}
