/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package resolve decides between the narrative candidates (action, dialogue, character)
// when no single detector claimed a line, and layers the memory-aware hybrid classifier
// on top of that decision.
package resolve

import (
	"strings"

	"goscreenplay/internal/detect"
	"goscreenplay/internal/domain"
	"goscreenplay/internal/patterns"
)

const (
	// DashScore is the action score when a leading dash is present.
	DashScore = 100
	// CharacterBaseScore is the fixed score of an eligible character candidate.
	CharacterBaseScore = 5
	// maxRecencyBonus caps the bonus from same-type predecessors.
	maxRecencyBonus = 2
)

// Candidate is one eligible type with its score.
type Candidate struct {
	Type  domain.ElementType
	Score int
}

// Decision is the resolver's verdict.
type Decision struct {
	Type domain.ElementType
	// Score of the winner and RunnerUp of the best other candidate (0 when alone).
	Score    int
	RunnerUp int
	// Candidates holds the eligible types in enumeration order.
	Candidates []Candidate
	// Dash is set when a leading dash decided for action.
	Dash bool
	// Accepted reports whether the winner's own detector accepts the line at its threshold.
	Accepted bool
}

// Gap is the winner's margin over the runner-up.
func (d Decision) Gap() int { return d.Score - d.RunnerUp }

// Eligible reports whether any candidate passed its gate.
func (d Decision) Eligible() bool { return len(d.Candidates) > 0 }

// ResolveNarrativeDecision scores the eligible candidates and picks the highest.
// Ties resolve in enumeration order: action, dialogue, character. With no eligible
// candidate the decision is action and Eligible reports false.
func ResolveNarrativeDecision(line string, ctx domain.Context) Decision {
	t := strings.TrimSpace(line)
	action := detect.CollectActionEvidence(t)
	if action.Dash {
		return Decision{
			Type:       domain.TypeAction,
			Score:      DashScore,
			Candidates: []Candidate{{Type: domain.TypeAction, Score: DashScore}},
			Dash:       true,
			Accepted:   true,
		}
	}

	var cands []Candidate
	if !action.ShortCue && action.Score() >= 1 {
		s := action.Score()*2 + recency(ctx, domain.TypeAction)
		cands = append(cands, Candidate{Type: domain.TypeAction, Score: s})
	}
	colon := patterns.EndsWithColon(t)
	prob := detect.DialogueProbability(t, ctx)
	cue := detect.DirectDialogueCue(t)
	if !colon && (cue || prob >= detect.DialogueThresholdFor(t)-3) {
		s := prob + recency(ctx, domain.TypeDialogue)
		if ctx.IsInDialogueBlock {
			s += 2
		}
		cands = append(cands, Candidate{Type: domain.TypeDialogue, Score: s})
	}
	if colon && patterns.IsCharacterName(patterns.TrimColon(t)) {
		cands = append(cands, Candidate{Type: domain.TypeCharacter, Score: CharacterBaseScore})
	}

	if len(cands) == 0 {
		return Decision{Type: domain.TypeAction}
	}
	best := 0
	for i := 1; i < len(cands); i++ {
		if cands[i].Score > cands[best].Score {
			best = i
		}
	}
	d := Decision{Type: cands[best].Type, Score: cands[best].Score, Candidates: cands}
	for i, c := range cands {
		if i != best && c.Score > d.RunnerUp {
			d.RunnerUp = c.Score
		}
	}
	switch d.Type {
	case domain.TypeAction:
		d.Accepted = detect.IsAction(t, ctx)
	case domain.TypeDialogue:
		d.Accepted = detect.IsDialogue(t, ctx)
	case domain.TypeCharacter:
		d.Accepted = detect.IsCharacter(t, ctx)
	}
	return d
}

func recency(ctx domain.Context, t domain.ElementType) int {
	n := ctx.CountRecent(t, 3)
	if n > maxRecencyBonus {
		return maxRecencyBonus
	}
	return n
}
