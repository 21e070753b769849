/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package memory keeps what a classification run has learned so far: the recent types
// and how often each character spoke. Tracker extends that with dialogue spans,
// relations and corrections, and Store persists Tracker snapshots between runs.
package memory

import (
	"sync"

	"goscreenplay/internal/domain"
	"goscreenplay/internal/patterns"
)

// DefaultCapacity bounds the recent-type ring.
const DefaultCapacity = 12

// Entry is one classified line as seen by memory.
type Entry struct {
	Index      int
	Type       domain.ElementType
	Text       string
	Confidence int
}

// Memory is what the pipeline writes to and reads from while classifying.
// BeginRun marks the start of a run; entry indexes are relative to it.
type Memory interface {
	BeginRun()
	Record(e Entry)
	ReplaceLast(e Entry)
	Seen(name string) bool
	RecentTypes() []domain.ElementType
}

// Snapshot is a copy of SessionMemory safe to hand out.
type Snapshot struct {
	RecentTypes        []domain.ElementType `json:"recentTypes"`
	CharacterFrequency map[string]int       `json:"characterFrequency"`
}

// SessionMemory is a bounded ring of recent types plus a character frequency map.
// It is safe for concurrent use.
type SessionMemory struct {
	mu         sync.RWMutex
	capacity   int
	recent     []domain.ElementType
	characters map[string]int
}

// New returns an empty memory; capacity <= 0 selects DefaultCapacity.
func New(capacity int) *SessionMemory {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &SessionMemory{capacity: capacity, characters: make(map[string]int)}
}

// BeginRun empties the recent-type ring. Character counts carry over.
func (m *SessionMemory) BeginRun() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recent = nil
}

// Record appends e.Type (evicting the oldest beyond capacity) and counts character cues.
func (m *SessionMemory) Record(e Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recent = append(m.recent, e.Type)
	if over := len(m.recent) - m.capacity; over > 0 {
		m.recent = append(m.recent[:0:0], m.recent[over:]...)
	}
	m.countLocked(e)
}

// ReplaceLast overwrites the latest slot instead of appending. Character counting still applies.
func (m *SessionMemory) ReplaceLast(e Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n := len(m.recent); n > 0 {
		m.recent[n-1] = e.Type
	} else {
		m.recent = append(m.recent, e.Type)
	}
	m.countLocked(e)
}

func (m *SessionMemory) countLocked(e Entry) {
	if e.Type != domain.TypeCharacter {
		return
	}
	if name := patterns.NormalizeCharacterName(e.Text); name != "" {
		m.characters[name]++
	}
}

// retype changes the type of the entry back slots from the newest (1 is the
// newest) and moves its character count along.
func (m *SessionMemory) retype(back int, from, to domain.ElementType, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := len(m.recent) - back; back > 0 && i >= 0 {
		m.recent[i] = to
	}
	name := patterns.NormalizeCharacterName(text)
	if name == "" || from == to {
		return
	}
	if from == domain.TypeCharacter {
		if m.characters[name]--; m.characters[name] <= 0 {
			delete(m.characters, name)
		}
	}
	if to == domain.TypeCharacter {
		m.characters[name]++
	}
}

// Seen reports whether a normalized character name was recorded before.
func (m *SessionMemory) Seen(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.characters[name] > 0
}

// RecentTypes returns a copy, oldest first.
func (m *SessionMemory) RecentTypes() []domain.ElementType {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.ElementType(nil), m.recent...)
}

// Snapshot returns a defensive copy of the memory.
func (m *SessionMemory) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := Snapshot{
		RecentTypes:        append([]domain.ElementType(nil), m.recent...),
		CharacterFrequency: make(map[string]int, len(m.characters)),
	}
	for k, v := range m.characters {
		s.CharacterFrequency[k] = v
	}
	return s
}

func (m *SessionMemory) restore(s Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recent = append([]domain.ElementType(nil), s.RecentTypes...)
	if over := len(m.recent) - m.capacity; over > 0 {
		m.recent = m.recent[over:]
	}
	m.characters = make(map[string]int, len(s.CharacterFrequency))
	for k, v := range s.CharacterFrequency {
		m.characters[k] = v
	}
}
