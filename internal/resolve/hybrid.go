/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package resolve

import (
	"strings"

	"goscreenplay/internal/detect"
	"goscreenplay/internal/domain"
	"goscreenplay/internal/patterns"
)

// Confidences assigned by the hybrid classifier and the decision combination.
const (
	ConfidenceBasmala        = 99
	ConfidenceTopLine        = 96
	ConfidenceTransition     = 95
	ConfidenceKnownCharacter = 92
	ConfidenceDash           = 90
	ConfidenceDialogueRun    = 86
	ConfidenceActionRun      = 85
	ConfidenceFallback       = 80
	ConfidenceUnaccepted     = 70
	ConfidenceNarrowGap      = 65
	ConfidenceNoCandidate    = 55
	reinforcementWindow      = 3
	decisiveGap              = 4
	narrowGap                = 2
)

// MemoryView is the read side of session memory the hybrid classifier consults.
type MemoryView interface {
	Seen(name string) bool
	RecentTypes() []domain.ElementType
}

// Result is a classified line with its header split when the type is a top line.
type Result struct {
	Type       domain.ElementType
	Confidence int
	Method     domain.Method
	Header1    string
	Header2    string
}

// ClassifyLine layers pattern priorities and session memory over a fallback type,
// in this order: basmala, composite header, transition, known character, dialogue run,
// action run and finally the fallback itself.
func ClassifyLine(line string, fallback domain.ElementType, ctx domain.Context, mem MemoryView) Result {
	t := strings.TrimSpace(line)
	if detect.IsBasmala(t) {
		return Result{Type: domain.TypeBasmala, Confidence: ConfidenceBasmala, Method: domain.MethodPatternMatch}
	}
	if h1, h2, ok := detect.SplitTopLine(t); ok {
		return Result{Type: domain.TypeSceneHeaderTopLine, Confidence: ConfidenceTopLine, Method: domain.MethodPatternMatch, Header1: h1, Header2: h2}
	}
	if detect.IsTransition(t) {
		return Result{Type: domain.TypeTransition, Confidence: ConfidenceTransition, Method: domain.MethodPatternMatch}
	}
	if mem != nil {
		if fallback == domain.TypeCharacter && mem.Seen(patterns.NormalizeCharacterName(t)) {
			return Result{Type: domain.TypeCharacter, Confidence: ConfidenceKnownCharacter, Method: domain.MethodContextInferred}
		}
		recent := lastN(mem.RecentTypes(), reinforcementWindow)
		if fallback == domain.TypeDialogue && len(recent) == reinforcementWindow && all(recent, func(et domain.ElementType) bool { return et == domain.TypeDialogue }) {
			return Result{Type: domain.TypeDialogue, Confidence: ConfidenceDialogueRun, Method: domain.MethodContextInferred}
		}
		if fallback == domain.TypeAction && len(recent) == reinforcementWindow && all(recent, func(et domain.ElementType) bool { return et == domain.TypeAction }) {
			return Result{Type: domain.TypeAction, Confidence: ConfidenceActionRun, Method: domain.MethodContextInferred}
		}
	}
	return Result{Type: fallback, Confidence: ConfidenceFallback, Method: domain.MethodFallback}
}

// Classify runs the resolver and the hybrid classifier and combines their verdicts.
// A leading dash always yields a pattern-matched action. A plain fallback is sharpened
// by the resolver: a decisive gap makes it context-inferred and a missing or narrow
// candidate field lowers its confidence.
func Classify(line string, ctx domain.Context, mem MemoryView) (Result, Decision) {
	d := ResolveNarrativeDecision(line, ctx)
	r := ClassifyLine(line, d.Type, ctx, mem)
	if d.Dash && r.Method != domain.MethodPatternMatch {
		return Result{Type: domain.TypeAction, Confidence: ConfidenceDash, Method: domain.MethodPatternMatch}, d
	}
	if r.Method != domain.MethodFallback {
		return r, d
	}
	switch {
	case !d.Eligible():
		r.Confidence = ConfidenceNoCandidate
	case d.Gap() >= decisiveGap && d.Accepted:
		r.Method = domain.MethodContextInferred
	case d.Gap() < narrowGap:
		r.Confidence = ConfidenceNarrowGap
	case !d.Accepted:
		r.Confidence = ConfidenceUnaccepted
	}
	return r, d
}

func lastN(types []domain.ElementType, n int) []domain.ElementType {
	if len(types) <= n {
		return types
	}
	return types[len(types)-n:]
}

func all(types []domain.ElementType, pred func(domain.ElementType) bool) bool {
	for _, t := range types {
		if !pred(t) {
			return false
		}
	}
	return true
}
