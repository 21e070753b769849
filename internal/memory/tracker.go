/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package memory

import (
	"sync"

	"goscreenplay/internal/domain"
	"goscreenplay/internal/patterns"
)

const (
	maxHistory     = 512
	maxSpans       = 64
	maxRelations   = 256
	maxCorrections = 256
)

// DefaultPatternMinCount is how often a pair must repeat to be reported.
const DefaultPatternMinCount = 2

// Span is a run of dialogue-block lines opened by one character cue.
type Span struct {
	Speaker string `json:"speaker"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
}

// RelationKind names the link between two lines.
type RelationKind string

const (
	RelationSpeaks    RelationKind = "speaks"
	RelationAnnotates RelationKind = "annotates"
	RelationContinues RelationKind = "continues"
	RelationLocates   RelationKind = "locates"
)

// Relation links line From to line To.
type Relation struct {
	From int          `json:"from"`
	To   int          `json:"to"`
	Kind RelationKind `json:"kind"`
}

// Correction records a type change applied after classification. LineIndex is
// relative to the current run when recorded and session-wide once stored.
type Correction struct {
	LineIndex  int                `json:"lineIndex"`
	Text       string             `json:"text,omitempty"`
	From       domain.ElementType `json:"from"`
	To         domain.ElementType `json:"to"`
	Confidence int                `json:"confidence"`
	Source     string             `json:"source"`
	Reason     string             `json:"reason,omitempty"`
}

// Pattern is a repeated adjacent pair of types.
type Pattern struct {
	First  domain.ElementType `json:"first"`
	Second domain.ElementType `json:"second"`
	Count  int                `json:"count"`
}

// TrackerSnapshot is the persisted form of a Tracker. Line indexes in it are
// session-wide: run N starts at the NextLine left by run N-1.
type TrackerSnapshot struct {
	Session          Snapshot             `json:"session"`
	Runs             int                  `json:"runs"`
	NextLine         int                  `json:"nextLine"`
	History          []domain.ElementType `json:"history"`
	DialogueSpans    []Span               `json:"dialogueSpans"`
	Relations        []Relation           `json:"relations"`
	Corrections      []Correction         `json:"corrections"`
	ConfidenceByLine map[int]int          `json:"confidenceByLine"`
}

// Tracker is SessionMemory plus dialogue spans, line relations, corrections and
// per-line confidence. All collections are capped; the oldest items go first.
// Entries carry run-relative indexes; the tracker stores them offset by the
// run's base so runs of one session never share a line index.
type Tracker struct {
	*SessionMemory

	mu          sync.Mutex
	runs        int
	base        int
	next        int
	history     []domain.ElementType
	spans       []Span
	open        bool
	relations   []Relation
	corrections []Correction
	confidence  map[int]int
	last        *Entry
}

// NewTracker returns an empty tracker.
func NewTracker(capacity int) *Tracker {
	return &Tracker{SessionMemory: New(capacity), confidence: make(map[int]int)}
}

// RestoreTracker rebuilds a tracker from a snapshot.
func RestoreTracker(s TrackerSnapshot, capacity int) *Tracker {
	t := NewTracker(capacity)
	t.SessionMemory.restore(s.Session)
	t.runs = s.Runs
	t.base = s.NextLine
	t.next = s.NextLine
	t.history = append(t.history, s.History...)
	t.spans = append(t.spans, s.DialogueSpans...)
	t.relations = append(t.relations, s.Relations...)
	t.corrections = append(t.corrections, s.Corrections...)
	for k, v := range s.ConfidenceByLine {
		t.confidence[k] = v
	}
	return t
}

// BeginRun starts a new run: indexes restart at the session's next line and
// nothing from the previous run is adjacent to the first entry.
func (t *Tracker) BeginRun() {
	t.SessionMemory.BeginRun()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.runs++
	t.base = t.next
	t.last = nil
	t.open = false
}

// Runs is the number of runs started on this tracker, persisted ones included.
func (t *Tracker) Runs() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.runs
}

func (t *Tracker) globalLocked(e Entry) Entry {
	e.Index += t.base
	t.next = max(t.next, e.Index+1)
	return e
}

// Record appends e and derives spans and relations from the previous entry.
func (t *Tracker) Record(e Entry) {
	t.SessionMemory.Record(e)
	t.mu.Lock()
	defer t.mu.Unlock()
	e = t.globalLocked(e)
	t.history = capTail(append(t.history, e.Type), maxHistory)
	t.confidence[e.Index] = e.Confidence
	if t.last != nil {
		if kind, ok := relationFor(t.last.Type, e.Type); ok {
			t.relations = capTail(append(t.relations, Relation{From: t.last.Index, To: e.Index, Kind: kind}), maxRelations)
		}
	}
	t.trackSpanLocked(e, false)
	last := e
	t.last = &last
}

// ReplaceLast overwrites the latest entry.
func (t *Tracker) ReplaceLast(e Entry) {
	t.SessionMemory.ReplaceLast(e)
	t.mu.Lock()
	defer t.mu.Unlock()
	e = t.globalLocked(e)
	if n := len(t.history); n > 0 {
		t.history[n-1] = e.Type
	} else {
		t.history = append(t.history, e.Type)
	}
	if t.last != nil && t.last.Index != e.Index {
		delete(t.confidence, t.last.Index)
	}
	t.confidence[e.Index] = e.Confidence
	t.trackSpanLocked(e, true)
	last := e
	t.last = &last
}

func (t *Tracker) trackSpanLocked(e Entry, replace bool) {
	if replace && e.Type != domain.TypeCharacter && t.open && len(t.spans) > 0 && t.spans[len(t.spans)-1].Start == t.lastIndexLocked() {
		t.spans = t.spans[:len(t.spans)-1]
		t.open = false
	}
	switch {
	case e.Type == domain.TypeCharacter:
		span := Span{Speaker: patterns.NormalizeCharacterName(e.Text), Start: e.Index, End: e.Index}
		if replace && t.open && len(t.spans) > 0 && t.spans[len(t.spans)-1].Start == t.lastIndexLocked() {
			t.spans[len(t.spans)-1] = span
		} else {
			t.spans = capTail(append(t.spans, span), maxSpans)
		}
		t.open = true
	case e.Type.InDialogueBlock() && t.open && len(t.spans) > 0:
		t.spans[len(t.spans)-1].End = e.Index
	default:
		t.open = false
	}
}

func (t *Tracker) lastIndexLocked() int {
	if t.last == nil {
		return -1
	}
	return t.last.Index
}

func relationFor(prev, curr domain.ElementType) (RelationKind, bool) {
	switch {
	case prev == domain.TypeCharacter && curr == domain.TypeDialogue:
		return RelationSpeaks, true
	case prev == domain.TypeParenthetical && curr == domain.TypeDialogue:
		return RelationAnnotates, true
	case prev == domain.TypeDialogue && curr == domain.TypeDialogue:
		return RelationContinues, true
	case prev == domain.TypeSceneHeaderTopLine && curr == domain.TypeSceneHeader3:
		return RelationLocates, true
	}
	return "", false
}

// RecordCorrection stores a correction to a line of the current run. The line's
// confidence, its history slot, its recent-type slot and the character counts
// all follow the corrected type.
func (t *Tracker) RecordCorrection(c Correction) {
	t.mu.Lock()
	c.LineIndex += t.base
	back := t.next - c.LineIndex
	if i := len(t.history) - back; back > 0 && i >= 0 {
		t.history[i] = c.To
	}
	t.corrections = capTail(append(t.corrections, c), maxCorrections)
	t.confidence[c.LineIndex] = c.Confidence
	t.mu.Unlock()
	t.SessionMemory.retype(back, c.From, c.To, c.Text)
}

// Corrections returns a copy of the recorded corrections.
func (t *Tracker) Corrections() []Correction {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Correction(nil), t.corrections...)
}

// DialogueSpans returns a copy of the tracked spans.
func (t *Tracker) DialogueSpans() []Span {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Span(nil), t.spans...)
}

// Relations returns a copy of the tracked relations.
func (t *Tracker) Relations() []Relation {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Relation(nil), t.relations...)
}

// ConfidenceAt returns the last known confidence of a session-wide line index.
func (t *Tracker) ConfidenceAt(index int) (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.confidence[index]
	return c, ok
}

// RepeatedPattern returns the most frequent adjacent pair of distinct types seen at
// least minCount times. Both orders of a pair are counted separately, so A→B and B→A
// compete; ties go to the pair that appeared first.
func (t *Tracker) RepeatedPattern(minCount int) (Pattern, bool) {
	if minCount <= 0 {
		minCount = DefaultPatternMinCount
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	type pair struct{ a, b domain.ElementType }
	counts := make(map[pair]int)
	var order []pair
	for i := 0; i+1 < len(t.history); i++ {
		p := pair{t.history[i], t.history[i+1]}
		if p.a == p.b {
			continue
		}
		if counts[p] == 0 {
			order = append(order, p)
		}
		counts[p]++
	}
	var best Pattern
	for _, p := range order {
		if c := counts[p]; c > best.Count {
			best = Pattern{First: p.a, Second: p.b, Count: c}
		}
	}
	return best, best.Count >= minCount
}

// Snapshot returns a persisted form of the tracker.
func (t *Tracker) Snapshot() TrackerSnapshot {
	s := TrackerSnapshot{Session: t.SessionMemory.Snapshot()}
	t.mu.Lock()
	defer t.mu.Unlock()
	s.Runs = t.runs
	s.NextLine = t.next
	s.History = append([]domain.ElementType(nil), t.history...)
	s.DialogueSpans = append([]Span(nil), t.spans...)
	s.Relations = append([]Relation(nil), t.relations...)
	s.Corrections = append([]Correction(nil), t.corrections...)
	s.ConfidenceByLine = make(map[int]int, len(t.confidence))
	for k, v := range t.confidence {
		s.ConfidenceByLine[k] = v
	}
	return s
}

func capTail[T any](s []T, limit int) []T {
	if over := len(s) - limit; over > 0 {
		return append(s[:0:0], s[over:]...)
	}
	return s
}
