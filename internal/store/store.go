/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package store owns the ordered collection of caption boxes for one editing
// session together with the single selection. All mutation of boxes goes
// through a Store.
package store

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/CGYORK/meme-generator-project/internal/domain"
)

// Store is not safe for concurrent use; it belongs to the goroutine that
// handles input for its session.
type Store struct {
	boxes []domain.TextBox
	// selection is kept as an id so it always reads the collection's copy
	selectedID string
	// NewID generates box ids; replaceable in tests.
	NewID func() string
}

func New() *Store {
	return &Store{NewID: func() string { return "textbox-" + uuid.NewString() }}
}

// Add appends a new default box to the top of the z-order. The surface size
// decides the placement: centered horizontally, vertically at the preset
// for the current box count. A zero surface means no image is loaded.
func (s *Store) Add(surfaceW, surfaceH float64) (domain.TextBox, error) {
	if surfaceW <= 0 || surfaceH <= 0 {
		return domain.TextBox{}, domain.ErrNoImageLoaded
	}
	preset := domain.PresetFor(len(s.boxes))
	b := domain.TextBox{
		ID:         s.nextID(),
		Text:       "",
		FontSize:   domain.DefaultFontSize,
		FontFamily: domain.DefaultFontFamily,
		Color:      domain.DefaultColor,
		X:          surfaceW / 2,
		Y:          surfaceH * float64(preset),
	}
	s.boxes = append(s.boxes, b)
	return b, nil
}

func (s *Store) nextID() string {
	gen := s.NewID
	if gen == nil {
		gen = func() string { return "textbox-" + uuid.NewString() }
	}
	for {
		id := gen()
		if s.indexOf(id) < 0 {
			return id
		}
	}
}

func (s *Store) indexOf(id string) int {
	for i := range s.boxes {
		if s.boxes[i].ID == id {
			return i
		}
	}
	return -1
}

// Update merges p into the box with the given id and returns the result.
func (s *Store) Update(id string, p domain.Patch) (domain.TextBox, error) {
	i := s.indexOf(id)
	if i < 0 {
		return domain.TextBox{}, fmt.Errorf("update %s: %w", id, domain.ErrTextBoxNotFound)
	}
	s.boxes[i] = p.Apply(s.boxes[i])
	return s.boxes[i], nil
}

// Delete removes the box. Deleting the selected box clears the selection.
func (s *Store) Delete(id string) error {
	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("delete %s: %w", id, domain.ErrTextBoxNotFound)
	}
	s.boxes = append(s.boxes[:i], s.boxes[i+1:]...)
	if s.selectedID == id {
		s.selectedID = ""
	}
	return nil
}

// Get returns the box with the given id.
func (s *Store) Get(id string) (domain.TextBox, bool) {
	if i := s.indexOf(id); i >= 0 {
		return s.boxes[i], true
	}
	return domain.TextBox{}, false
}

// Select makes id the selected box. An empty id clears the selection.
func (s *Store) Select(id string) error {
	if id == "" {
		s.selectedID = ""
		return nil
	}
	if s.indexOf(id) < 0 {
		return fmt.Errorf("select %s: %w", id, domain.ErrTextBoxNotFound)
	}
	s.selectedID = id
	return nil
}

func (s *Store) ClearSelection() { s.selectedID = "" }

// Selected returns the current values of the selected box.
func (s *Store) Selected() (domain.TextBox, bool) {
	if s.selectedID == "" {
		return domain.TextBox{}, false
	}
	return s.Get(s.selectedID)
}

func (s *Store) SelectedID() string { return s.selectedID }

// Boxes returns a copy of the collection in z-order.
func (s *Store) Boxes() []domain.TextBox {
	out := make([]domain.TextBox, len(s.boxes))
	copy(out, s.boxes)
	return out
}

func (s *Store) Len() int { return len(s.boxes) }

type snapshot struct {
	Boxes    []domain.TextBox `json:"boxes"`
	Selected string           `json:"selected,omitempty"`
}

// Snapshot serializes the collection and selection.
func (s *Store) Snapshot() ([]byte, error) {
	b, err := json.Marshal(snapshot{Boxes: s.boxes, Selected: s.selectedID})
	if err != nil {
		return nil, fmt.Errorf("snapshot store: %w", err)
	}
	return b, nil
}

// Restore replaces the collection with a Snapshot. On error the store is unchanged.
func (s *Store) Restore(data []byte) error {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("restore store: %w", err)
	}
	seen := make(map[string]bool, len(snap.Boxes))
	for _, b := range snap.Boxes {
		if b.ID == "" || seen[b.ID] {
			return fmt.Errorf("restore store: duplicate or empty id %q", b.ID)
		}
		seen[b.ID] = true
	}
	s.boxes = snap.Boxes
	if s.boxes == nil {
		s.boxes = []domain.TextBox{}
	}
	s.selectedID = ""
	if seen[snap.Selected] {
		s.selectedID = snap.Selected
	}
	return nil
}
