/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package undo

import (
	"sync"
	"time"
)

// Snapshot is an opaque state blob. Size is estimated as len(Blob).
type Snapshot struct {
	Blob []byte
	TS   time.Time
}

// Config controls memory and depth caps and coalescing behavior.
type Config struct {
	// MaxBytes is a soft cap over both stacks; the oldest undo entries are
	// pruned first when it is exceeded.
	MaxBytes int
	// MaxDepth limits the number of undo entries (0 means unlimited).
	MaxDepth int
	// MinInterval coalesces records arriving within the interval of the
	// previous one. The earlier before-state is kept so one undo reverts the
	// whole burst (a drag produces one record per pointer move).
	MinInterval time.Duration
}

// Manager is an undo/redo history of before-states. It is safe for
// concurrent use.
type Manager struct {
	cfg Config
	mu  sync.Mutex

	undo []Snapshot
	redo []Snapshot
	// last is when the newest undo entry was recorded or coalesced into.
	last time.Time
	// broken forces the next Record to start a new entry.
	broken     bool
	totalBytes int

	// Now is the clock; replaceable in tests.
	Now func() time.Time
}

func NewManager(cfg Config) *Manager {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 4 * 1024 * 1024
	}
	if cfg.MinInterval < 0 {
		cfg.MinInterval = 0
	}
	return &Manager{cfg: cfg, Now: time.Now}
}

// Record stores before, the state prior to a mutation. Any record
// invalidates the redo stack.
func (m *Manager) Record(before []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.Now()
	m.dropRedoLocked()
	if n := len(m.undo); n > 0 && !m.broken && m.cfg.MinInterval > 0 && now.Sub(m.last) < m.cfg.MinInterval {
		m.last = now
		return
	}
	m.broken = false
	m.undo = append(m.undo, Snapshot{Blob: before, TS: now})
	m.last = now
	m.totalBytes += len(before)
	m.enforceCapsLocked()
}

// Break ends the current coalescing window, for example at the end of a
// pointer gesture.
func (m *Manager) Break() {
	m.mu.Lock()
	m.broken = true
	m.mu.Unlock()
}

// Undo pops the newest before-state and pushes current onto the redo stack.
func (m *Manager) Undo(current []byte) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.undo)
	if n == 0 {
		return nil, false
	}
	s := m.undo[n-1]
	m.undo = m.undo[:n-1]
	m.totalBytes -= len(s.Blob)
	m.redo = append(m.redo, Snapshot{Blob: current, TS: m.Now()})
	m.totalBytes += len(current)
	m.broken = true
	m.enforceCapsLocked()
	return s.Blob, true
}

// Redo pops the newest redo state and pushes current back onto the undo stack.
func (m *Manager) Redo(current []byte) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.redo)
	if n == 0 {
		return nil, false
	}
	s := m.redo[n-1]
	m.redo = m.redo[:n-1]
	m.totalBytes -= len(s.Blob)
	m.undo = append(m.undo, Snapshot{Blob: current, TS: m.Now()})
	m.totalBytes += len(current)
	m.broken = true
	m.enforceCapsLocked()
	return s.Blob, true
}

func (m *Manager) CanUndo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.undo) > 0
}

func (m *Manager) CanRedo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.redo) > 0
}

// Clear drops both stacks.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.undo, m.redo = nil, nil
	m.totalBytes = 0
	m.broken = false
}

// Stats returns current sizes for diagnostics.
func (m *Manager) Stats() (totalBytes, undoDepth, redoDepth int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totalBytes, len(m.undo), len(m.redo)
}

func (m *Manager) dropRedoLocked() {
	for _, s := range m.redo {
		m.totalBytes -= len(s.Blob)
	}
	m.redo = nil
}

func (m *Manager) enforceCapsLocked() {
	if m.cfg.MaxDepth > 0 && len(m.undo) > m.cfg.MaxDepth {
		toDrop := len(m.undo) - m.cfg.MaxDepth
		for i := 0; i < toDrop; i++ {
			m.totalBytes -= len(m.undo[i].Blob)
		}
		m.undo = append([]Snapshot{}, m.undo[toDrop:]...)
	}
	// keep at least the newest entry so the last change stays undoable
	for m.cfg.MaxBytes > 0 && m.totalBytes > m.cfg.MaxBytes && len(m.undo) > 1 {
		m.totalBytes -= len(m.undo[0].Blob)
		m.undo = m.undo[1:]
	}
	if m.totalBytes < 0 {
		m.totalBytes = 0
	}
}
