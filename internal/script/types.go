/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"fmt"
	"strings"

	"github.com/CGYORK/meme-generator-project/internal/domain"
)

// Script is a headless editing session: an optional starting image followed
// by steps applied in order.
type Script struct {
	// Image is loaded before the first step. Relative paths resolve against Dir.
	Image string
	// Dir is the directory the script was read from, if any.
	Dir   string
	Steps []Step
}

// Op names a step.
type Op string

const (
	OpAdd     Op = "add"
	OpUpdate  Op = "update"
	OpSelect  Op = "select"
	OpDelete  Op = "delete"
	OpPress   Op = "press"
	OpMove    Op = "move"
	OpRelease Op = "release"
	OpUndo    Op = "undo"
	OpRedo    Op = "redo"
	OpLoad    Op = "load"
	OpExport  Op = "export"
)

// Step is one edit. Box is a 1-based index into the session's text boxes;
// 0 means none (select) or the newest box (update after add).
type Step struct {
	Op    Op
	Box   int
	Patch domain.Patch
	X, Y  float64
	Touch bool
	Path  string
	// Line is the 1-based source line of the step.
	Line int
}

// Error represents a parse error with position context.
type Error struct {
	Line    int
	Column  int
	Message string
}

func (e Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d:%d: %s", e.Line, e.Column, e.Message)
	}
	return e.Message
}

// Errors collects every problem found in one parse.
type Errors []Error

func (es Errors) Error() string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "; ")
}
