/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package detect

import (
	"strings"

	"goscreenplay/internal/domain"
	"goscreenplay/internal/patterns"
)

// verbPrepositions follow a verb in the "verb + preposition" action pattern.
var verbPrepositions = patterns.NewSet(
	"إلى", "نحو", "من", "على", "عبر", "داخل", "خارج", "في", "باتجاه", "حول", "بجوار", "أمام", "خلف",
)

// ActionEvidence is the bundle of action signals found on one line.
type ActionEvidence struct {
	Dash            bool
	Cue             bool
	Pattern         bool
	Verb            bool
	Audio           bool
	Structure       bool
	NarrativeSyntax bool
	PronounVerb     bool
	ThenVerb        bool
	// ShortCue marks a short line ending in a colon; it never counts as action.
	ShortCue bool
}

var actionRules = []Rule[ActionEvidence]{
	{Name: "cue", Weight: 2, Test: func(e ActionEvidence) bool { return e.Cue }},
	{Name: "pattern", Weight: 2, Test: func(e ActionEvidence) bool { return e.Pattern }},
	{Name: "verb", Weight: 2, Test: func(e ActionEvidence) bool { return e.Verb }},
	{Name: "audio", Weight: 2, Test: func(e ActionEvidence) bool { return e.Audio }},
	{Name: "structure", Weight: 1, Test: func(e ActionEvidence) bool { return e.Structure }},
	{Name: "narrative", Weight: 1, Test: func(e ActionEvidence) bool { return e.NarrativeSyntax }},
	{Name: "pronoun-verb", Weight: 1, Test: func(e ActionEvidence) bool { return e.PronounVerb }},
	{Name: "then-verb", Weight: 1, Test: func(e ActionEvidence) bool { return e.ThenVerb }},
}

// CollectActionEvidence inspects text for every action signal.
func CollectActionEvidence(text string) ActionEvidence {
	t := strings.TrimSpace(text)
	var e ActionEvidence
	if t == "" {
		return e
	}
	if patterns.StartsWithDash(t) {
		e.Dash = true
	}
	if patterns.EndsWithColon(t) && patterns.WordCount(t) <= 4 {
		e.ShortCue = true
	}
	toks := patterns.FoldTokens(t)
	if len(toks) == 0 {
		return e
	}
	e.Cue = patterns.ActionCues.HasPrefix(toks)
	e.Audio = patterns.AudioCues.HasPrefix(toks)
	e.NarrativeSyntax = patterns.NarrativeOpeners.HasPrefix(toks)

	verbAt := -1
	switch {
	case patterns.IsActionVerb(toks[0]):
		verbAt = 0
	case len(toks) > 1 && patterns.IsActionVerb(toks[1]) && !patterns.DialogueOpeners.Has(toks[0]):
		verbAt = 1
	}
	e.Verb = verbAt >= 0
	if verbAt >= 0 && verbAt+1 < len(toks) && verbPrepositions.Has(toks[verbAt+1]) {
		e.Pattern = true
	}
	if verbAt >= 0 && verbAt+2 < len(toks) && verbPrepositions.Has(toks[verbAt+2]) {
		e.Pattern = true
	}
	for i := 0; i+1 < len(toks); i++ {
		if !patterns.IsActionVerb(toks[i+1]) {
			continue
		}
		if patterns.Pronouns.Has(toks[i]) {
			e.PronounVerb = true
		}
		if patterns.ThenWords.Has(toks[i]) {
			e.ThenVerb = true
		}
	}
	e.Structure = len(toks) >= 4 &&
		!strings.ContainsAny(t, patterns.DialogueTerminals+patterns.Quotes) &&
		!patterns.HasEllipsis(t) &&
		!patterns.EndsWithColon(t)
	return e
}

// Score is the weighted sum of the fired signals. The dash shortcut is not scored.
func (e ActionEvidence) Score() int {
	s, _ := Score(actionRules, e)
	return s
}

// Signals lists the fired signal names in rule order.
func (e ActionEvidence) Signals() []string {
	_, fired := Score(actionRules, e)
	if e.Dash {
		fired = append([]string{"dash"}, fired...)
	}
	return fired
}

// Strong reports evidence that overrides a dialogue cue.
func (e ActionEvidence) Strong() bool {
	if e.Dash {
		return true
	}
	return (e.Verb && (e.Pattern || e.Structure)) || e.Cue || e.Audio || e.Score() >= 4
}

// ActionThreshold is stricter inside a dialogue block and looser right after an action line.
func ActionThreshold(ctx domain.Context) int {
	switch {
	case ctx.IsInDialogueBlock:
		return 3
	case ctx.PreviousType == domain.TypeAction:
		return 1
	}
	return 2
}

// IsAction accepts a leading dash outright; otherwise the score must reach the
// context-dependent threshold.
func IsAction(text string, ctx domain.Context) bool {
	e := CollectActionEvidence(text)
	if e.Dash {
		return true
	}
	if e.ShortCue {
		return false
	}
	return e.Score() >= ActionThreshold(ctx)
}
