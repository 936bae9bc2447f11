/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0
 */

package domain

import (
	"errors"
	"fmt"
)

// Error kinds raised by the editing core. None of them is fatal: callers
// report them to the user and leave editing state unchanged.
var (
	ErrNoImageLoaded     = errors.New("no image loaded: please upload an image first")
	ErrEmptyCaptionSet   = errors.New("no text boxes: please add at least one text box")
	ErrImageDecodeFailed = errors.New("failed to load image")
	ErrTextBoxNotFound   = errors.New("text box not found")
)

// ImageDecodeError reports an image source that could not be read or decoded.
type ImageDecodeError struct {
	Source string
	Err    error
}

func (e *ImageDecodeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("failed to load image %q", e.Source)
	}
	return fmt.Sprintf("failed to load image %q: %v", e.Source, e.Err)
}

func (e *ImageDecodeError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrImageDecodeFailed) match any ImageDecodeError.
func (e *ImageDecodeError) Is(target error) bool { return target == ErrImageDecodeFailed }
