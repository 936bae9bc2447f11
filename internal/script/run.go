/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/CGYORK/meme-generator-project/internal/domain"
	"github.com/CGYORK/meme-generator-project/internal/editor"
	"github.com/CGYORK/meme-generator-project/internal/geometry"
	"github.com/CGYORK/meme-generator-project/internal/interact"
	applog "github.com/CGYORK/meme-generator-project/internal/log"
)

// Report summarizes a completed run.
type Report struct {
	Steps   int
	Exports []string
}

// Run applies the script to sess and stops at the first failing step.
// Pointer coordinates are surface pixels.
func Run(ctx context.Context, sess *editor.Session, s Script) (Report, error) {
	l := applog.WithOperation(applog.WithComponent("script"), "run")
	var rep Report
	if s.Image != "" {
		if err := sess.LoadImage(ctx, s.resolve(s.Image)); err != nil {
			return rep, fmt.Errorf("load image: %w", err)
		}
	}
	for i, st := range s.Steps {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		path, err := s.apply(ctx, sess, st)
		if err != nil {
			l.Warn("step failed", slog.Int("step", i+1), slog.String("op", string(st.Op)), slog.Any("err", err))
			return rep, fmt.Errorf("step %d (%s, line %d): %w", i+1, st.Op, st.Line, err)
		}
		if path != "" {
			rep.Exports = append(rep.Exports, path)
		}
		rep.Steps++
	}
	l.Debug("script finished", slog.Int("steps", rep.Steps), slog.Int("exports", len(rep.Exports)))
	return rep, nil
}

func (s Script) apply(ctx context.Context, sess *editor.Session, st Step) (string, error) {
	switch st.Op {
	case OpAdd:
		box, err := sess.AddTextBox()
		if err != nil || st.Patch.IsEmpty() {
			return "", err
		}
		_, err = sess.UpdateTextBox(box.ID, st.Patch)
		return "", err
	case OpUpdate:
		id, err := boxID(sess, st.Box)
		if err != nil {
			return "", err
		}
		_, err = sess.UpdateTextBox(id, st.Patch)
		return "", err
	case OpSelect:
		if st.Box == 0 {
			return "", sess.SelectTextBox("")
		}
		id, err := boxID(sess, st.Box)
		if err != nil {
			return "", err
		}
		return "", sess.SelectTextBox(id)
	case OpDelete:
		id, err := boxID(sess, st.Box)
		if err != nil {
			return "", err
		}
		return "", sess.DeleteTextBox(id)
	case OpPress, OpMove, OpRelease:
		sess.HandlePointer(pointerEvent(st))
		return "", nil
	case OpUndo:
		sess.Undo()
		return "", nil
	case OpRedo:
		sess.Redo()
		return "", nil
	case OpLoad:
		return "", sess.LoadImage(ctx, s.resolve(st.Path))
	case OpExport:
		out := st.Path
		if out == "" {
			out = s.Dir
		} else {
			out = s.resolve(out)
		}
		return sess.DownloadMeme(out)
	}
	return "", fmt.Errorf("unknown operation %q", st.Op)
}

func pointerEvent(st Step) interact.Event {
	kind := interact.Press
	switch st.Op {
	case OpMove:
		kind = interact.Move
	case OpRelease:
		kind = interact.Release
	}
	// script coordinates are already in surface pixels
	view := interact.Viewport{}
	if st.Touch {
		if kind == interact.Release {
			return interact.TouchEvent(kind, view)
		}
		return interact.TouchEvent(kind, view, geometry.Point{X: st.X, Y: st.Y})
	}
	return interact.MouseEvent(kind, st.X, st.Y, view)
}

// boxID maps a 1-based index (0 meaning the newest box) to an id.
func boxID(sess *editor.Session, n int) (string, error) {
	boxes := sess.TextBoxes()
	if n == 0 {
		n = len(boxes)
	}
	if n < 1 || n > len(boxes) {
		return "", fmt.Errorf("%w: box %d of %d", domain.ErrTextBoxNotFound, n, len(boxes))
	}
	return boxes[n-1].ID, nil
}

func (s Script) resolve(ref string) string {
	if s.Dir == "" || strings.HasPrefix(ref, "data:") || strings.HasPrefix(ref, "file://") || filepath.IsAbs(ref) {
		return ref
	}
	return filepath.Join(s.Dir, ref)
}
