/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package review

import (
	"fmt"

	"goscreenplay/internal/detect"
	"goscreenplay/internal/domain"
	"goscreenplay/internal/patterns"
	"goscreenplay/internal/repair"
)

// window gives a detector the line under review and its neighbours.
type window struct {
	drafts []domain.Draft
	i      int
}

func (w window) cur() domain.Draft { return w.drafts[w.i] }

func (w window) prev() (domain.Draft, bool) {
	if w.i == 0 {
		return domain.Draft{}, false
	}
	return w.drafts[w.i-1], true
}

func (w window) next() (domain.Draft, bool) {
	if w.i+1 >= len(w.drafts) {
		return domain.Draft{}, false
	}
	return w.drafts[w.i+1], true
}

// context rebuilds the classification context the line was classified under.
func (w window) context() domain.Context {
	return domain.BuildContext(w.drafts[:w.i], domain.DefaultContextWindow)
}

type detector struct {
	id  DetectorID
	run func(w window) (Finding, bool)
}

// detectors run in this order; findings keep it.
var detectors = []detector{
	{DetectorSequence, sequenceViolation},
	{DetectorContent, contentMismatch},
	{DetectorSplitName, splitCharacterFragment},
	{DetectorStatistical, statisticalAnomaly},
	{DetectorConfidence, confidenceDrop},
}

// Detector scores.
const (
	scoreSequence         = 70
	scoreSequenceStrong   = 60
	scoreThenVerb         = 96
	scoreDashDialogue     = 88
	scoreColonDialogue    = 82
	scoreQuestionAction   = 75
	scoreCharacterNoColon = 90
	scoreCharacterGrammar = 85
	scoreLocationAction   = 80
	scoreBadTransition    = 75
	scoreBadParenthetical = 80
	scoreSplitFragment    = 80
	scoreStatBase         = 45
	scoreStatStep         = 3
	scoreStatMaxExtra     = 25
	scoreConfidenceBase   = 30
	scoreConfidenceMax    = 70
	confidenceDropBelow   = 70
)

// allowedNext lists the types that may follow each type.
var allowedNext = map[domain.ElementType][]domain.ElementType{
	domain.TypeBasmala:            {domain.TypeSceneHeaderTopLine, domain.TypeAction, domain.TypeTransition},
	domain.TypeSceneHeaderTopLine: {domain.TypeSceneHeader3, domain.TypeAction, domain.TypeCharacter, domain.TypeTransition, domain.TypeSceneHeaderTopLine},
	domain.TypeSceneHeader3:       {domain.TypeSceneHeader3, domain.TypeAction, domain.TypeCharacter, domain.TypeTransition, domain.TypeSceneHeaderTopLine},
	domain.TypeAction:             {domain.TypeAction, domain.TypeCharacter, domain.TypeTransition, domain.TypeSceneHeaderTopLine, domain.TypeSceneHeader3},
	domain.TypeCharacter:          {domain.TypeDialogue, domain.TypeParenthetical},
	domain.TypeParenthetical:      {domain.TypeDialogue},
	domain.TypeDialogue:           {domain.TypeDialogue, domain.TypeCharacter, domain.TypeParenthetical, domain.TypeAction, domain.TypeTransition, domain.TypeSceneHeaderTopLine},
	domain.TypeTransition:         {domain.TypeSceneHeaderTopLine, domain.TypeAction, domain.TypeSceneHeader3},
}

// Allowed reports whether next may directly follow prev.
func Allowed(prev, next domain.ElementType) bool {
	for _, t := range allowedNext[prev] {
		if t == next {
			return true
		}
	}
	return false
}

func sequenceViolation(w window) (Finding, bool) {
	cur := w.cur()
	score := scoreSequence
	if cur.Method == domain.MethodPatternMatch {
		score = scoreSequenceStrong
	}
	if prev, ok := w.prev(); ok && !Allowed(prev.Type, cur.Type) {
		f := Finding{Score: score, Reason: fmt.Sprintf("%s cannot follow %s", cur.Type, prev.Type)}
		switch {
		case prev.Type == domain.TypeCharacter || prev.Type == domain.TypeParenthetical:
			f.Suggested = domain.TypeDialogue
		case cur.Type == domain.TypeDialogue || cur.Type == domain.TypeParenthetical:
			f.Suggested = domain.TypeAction
		}
		return f, true
	}
	if cur.Type == domain.TypeCharacter {
		next, ok := w.next()
		if !ok || !Allowed(cur.Type, next.Type) {
			return Finding{Score: score, Reason: "character cue without a following speech", Suggested: domain.TypeAction}, true
		}
	}
	return Finding{}, false
}

func contentMismatch(w window) (Finding, bool) {
	cur := w.cur()
	text := cur.Text
	switch cur.Type {
	case domain.TypeDialogue:
		if k, ok := thenVerbAt(text); ok {
			return Finding{Score: scoreThenVerb, Reason: fmt.Sprintf("narrative connector followed by an action verb at word %d", k+1), Suggested: domain.TypeAction}, true
		}
		if patterns.StartsWithDash(text) {
			return Finding{Score: scoreDashDialogue, Reason: "dialogue opens with an action dash", Suggested: domain.TypeAction}, true
		}
		if patterns.EndsWithColon(text) && patterns.IsCharacterName(patterns.TrimColon(text)) {
			return Finding{Score: scoreColonDialogue, Reason: "dialogue reads as a character cue", Suggested: domain.TypeCharacter}, true
		}
	case domain.TypeAction:
		if patterns.StartsWithDash(text) {
			return Finding{}, false
		}
		ev := detect.CollectActionEvidence(text)
		if detect.DirectDialogueCue(text) && !ev.Strong() && w.context().IsInDialogueBlock {
			return Finding{Score: scoreQuestionAction, Reason: "action carries a direct dialogue cue inside a dialogue block", Suggested: domain.TypeDialogue}, true
		}
	case domain.TypeCharacter:
		if !patterns.EndsWithColon(text) {
			return Finding{Score: scoreCharacterNoColon, Reason: "character cue without a colon", Suggested: domain.TypeAction}, true
		}
		if !patterns.IsCharacterName(patterns.TrimColon(text)) {
			return Finding{Score: scoreCharacterGrammar, Reason: "character cue fails the name grammar", Suggested: domain.TypeAction}, true
		}
	case domain.TypeSceneHeader3:
		if ev := detect.CollectActionEvidence(text); ev.Verb && ev.Score() >= 2 {
			return Finding{Score: scoreLocationAction, Reason: "location line reads as action", Suggested: domain.TypeAction}, true
		}
	case domain.TypeTransition:
		if !detect.IsTransition(text) {
			return Finding{Score: scoreBadTransition, Reason: "transition without a transition cue", Suggested: domain.TypeAction}, true
		}
	case domain.TypeParenthetical:
		if !detect.IsParenthetical(text) {
			return Finding{Score: scoreBadParenthetical, Reason: "parenthetical not enclosed in parentheses", Suggested: domain.TypeAction}, true
		}
	}
	return Finding{}, false
}

// thenVerbAt finds a mid-sentence "then + action verb" and returns the connector index.
func thenVerbAt(text string) (int, bool) {
	toks := patterns.FoldTokens(text)
	for k := 1; k+1 < len(toks); k++ {
		if patterns.ThenWords.Has(toks[k]) && patterns.IsActionVerb(toks[k+1]) {
			return k, true
		}
	}
	return 0, false
}

func splitCharacterFragment(w window) (Finding, bool) {
	cur := w.cur()
	switch cur.Type {
	case domain.TypeAction:
		next, ok := w.next()
		if !ok || next.Type != domain.TypeCharacter {
			return Finding{}, false
		}
		if name, ok := repair.MergeBrokenCharacterName(cur.Text, next.Text); ok {
			return Finding{Score: scoreSplitFragment, Reason: fmt.Sprintf("fragment of the character cue %q", name), Suggested: domain.TypeCharacter}, true
		}
	case domain.TypeCharacter:
		prev, ok := w.prev()
		if !ok || prev.Type != domain.TypeAction {
			return Finding{}, false
		}
		if name, ok := repair.MergeBrokenCharacterName(prev.Text, cur.Text); ok {
			return Finding{Score: scoreSplitFragment, Reason: fmt.Sprintf("cue continues the previous line as %q", name)}, true
		}
	}
	return Finding{}, false
}

// wordRange is the expected word count of a type.
type wordRange struct{ lo, hi int }

var expectedWords = map[domain.ElementType]wordRange{
	domain.TypeBasmala:            {3, 8},
	domain.TypeSceneHeaderTopLine: {1, 16},
	domain.TypeSceneHeader3:       {1, detect.MaxDetailedLocationWords},
	domain.TypeAction:             {1, 80},
	domain.TypeCharacter:          {1, patterns.MaxCharacterNameTokens},
	domain.TypeDialogue:           {1, 60},
	domain.TypeParenthetical:      {1, 12},
	domain.TypeTransition:         {1, 5},
}

func statisticalAnomaly(w window) (Finding, bool) {
	cur := w.cur()
	r, ok := expectedWords[cur.Type]
	if !ok {
		return Finding{}, false
	}
	n := patterns.WordCount(cur.Text)
	excess := 0
	switch {
	case n < r.lo:
		excess = r.lo - n
	case n > r.hi:
		excess = n - r.hi
	default:
		return Finding{}, false
	}
	return Finding{
		Score:  scoreStatBase + min(excess*scoreStatStep, scoreStatMaxExtra),
		Reason: fmt.Sprintf("%d words, expected %d-%d for %s", n, r.lo, r.hi, cur.Type),
	}, true
}

func confidenceDrop(w window) (Finding, bool) {
	cur := w.cur()
	fallback := cur.Method == domain.MethodFallback
	if cur.Confidence >= confidenceDropBelow && !(fallback && cur.Confidence < confidencePivot) {
		return Finding{}, false
	}
	score := scoreConfidenceBase + max(confidenceDropBelow-cur.Confidence, 0)
	if fallback {
		score += fallbackPenalty
	}
	return Finding{
		Score:  min(score, scoreConfidenceMax),
		Reason: fmt.Sprintf("low confidence %d (%s)", cur.Confidence, cur.Method),
	}, true
}
