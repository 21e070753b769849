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

const (
	// DialogueThreshold is the probability a line needs without dialect markers.
	DialogueThreshold = 6
	// DialectDialogueThreshold applies when colloquial markers are present.
	DialectDialogueThreshold = 5
)

var vocative = patterns.Fold("يا")

type dialogueInput struct {
	text   string
	toks   []string
	ctx    domain.Context
	cue    bool
	action ActionEvidence
}

var dialogueRules = []Rule[dialogueInput]{
	{Name: "cue", Weight: 4, Test: func(in dialogueInput) bool { return in.cue }},
	{Name: "terminal", Weight: 2, Test: func(in dialogueInput) bool {
		return patterns.EndsWithAny(in.text, patterns.DialogueTerminals)
	}},
	{Name: "ellipsis", Weight: 1, Test: func(in dialogueInput) bool { return patterns.HasEllipsis(in.text) }},
	{Name: "length", Weight: 1, Test: func(in dialogueInput) bool { return len(in.toks) >= 2 && len(in.toks) <= 25 }},
	{Name: "flow", Weight: 2, Test: func(in dialogueInput) bool { return in.ctx.IsInDialogueBlock }},
	{Name: "dash", Weight: -6, Test: func(in dialogueInput) bool { return in.action.Dash }},
}

// DirectDialogueCue reports an opener word, a vocative, quotes or a trailing ?!؟.
func DirectDialogueCue(text string) bool {
	t := strings.TrimSpace(text)
	if t == "" {
		return false
	}
	if strings.ContainsAny(t, patterns.Quotes) || patterns.EndsWithAny(t, patterns.DialogueTerminals) {
		return true
	}
	toks := patterns.FoldTokens(t)
	if len(toks) == 0 {
		return false
	}
	if patterns.DialogueOpeners.Has(toks[0]) {
		return true
	}
	for i := 0; i+1 < len(toks); i++ {
		if toks[i] == vocative {
			return true
		}
	}
	return false
}

// HasDialectMarkers reports colloquial vocabulary.
func HasDialectMarkers(text string) bool {
	for _, tok := range patterns.FoldTokens(text) {
		if patterns.DialectMarkers.Has(tok) {
			return true
		}
	}
	return false
}

// DialogueProbability scores how much text reads like speech. Action evidence is
// subtracted so a cue alone cannot carry a narrative line.
func DialogueProbability(text string, ctx domain.Context) int {
	t := strings.TrimSpace(text)
	in := dialogueInput{
		text:   t,
		toks:   patterns.FoldTokens(t),
		ctx:    ctx,
		cue:    DirectDialogueCue(t),
		action: CollectActionEvidence(t),
	}
	score, _ := Score(dialogueRules, in)
	return score - in.action.Score()
}

// DialogueThresholdFor picks the threshold for text.
func DialogueThresholdFor(text string) int {
	if HasDialectMarkers(text) {
		return DialectDialogueThreshold
	}
	return DialogueThreshold
}

// IsDialogue accepts a direct cue unless strong action evidence is present, and
// otherwise compares the probability with the threshold.
func IsDialogue(text string, ctx domain.Context) bool {
	t := strings.TrimSpace(text)
	if t == "" || patterns.EndsWithColon(t) || IsParenthetical(t) {
		return false
	}
	action := CollectActionEvidence(t)
	if action.Dash {
		return false
	}
	if DirectDialogueCue(t) && !action.Strong() {
		return true
	}
	return DialogueProbability(t, ctx) >= DialogueThresholdFor(t)
}
