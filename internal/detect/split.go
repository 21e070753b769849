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

// Part is one piece of a line that carried several elements.
type Part struct {
	Type domain.ElementType
	Text string
}

// SplitInline splits "name: dialogue" or "name (cue): dialogue" into character,
// optional parenthetical and dialogue parts.
func SplitInline(text string) ([]Part, bool) {
	t := strings.TrimSpace(text)
	if IsSceneNumberLine(t) || IsParenthetical(t) {
		return nil, false
	}
	m := patterns.InlineSplitRe.FindStringSubmatch(t)
	if m == nil {
		return nil, false
	}
	name := strings.TrimSpace(m[2])
	rest := strings.TrimSpace(m[4])
	if rest == "" || !patterns.IsCharacterName(name) || IsTimeLocationLine(name) {
		return nil, false
	}
	cue := strings.TrimSpace(m[1])
	if cue == "" {
		cue = strings.TrimSpace(m[3])
	}
	if cue == "" {
		if mm := patterns.LeadingParentheticalRe.FindStringSubmatch(rest); mm != nil && strings.TrimSpace(mm[2]) != "" {
			cue = strings.TrimSpace(mm[1])
			rest = strings.TrimSpace(mm[2])
		}
	}
	parts := []Part{{Type: domain.TypeCharacter, Text: name + ":"}}
	if cue != "" {
		parts = append(parts, Part{Type: domain.TypeParenthetical, Text: "(" + cue + ")"})
	}
	parts = append(parts, Part{Type: domain.TypeDialogue, Text: rest})
	return parts, true
}

// SplitImplicit handles "<known name> <speech>" without a colon inside a dialogue
// block. known receives the normalized name; without it nothing is split.
func SplitImplicit(text string, ctx domain.Context, known func(string) bool) ([]Part, bool) {
	if known == nil || !ctx.IsInDialogueBlock {
		return nil, false
	}
	t := strings.TrimSpace(text)
	if patterns.EndsWithColon(t) || patterns.StartsWithDash(t) {
		return nil, false
	}
	fields := strings.Fields(t)
	for n := 3; n >= 1; n-- {
		if len(fields) <= n {
			continue
		}
		name := strings.Join(fields[:n], " ")
		rest := strings.Join(fields[n:], " ")
		if !patterns.IsCharacterName(name) || !known(patterns.NormalizeCharacterName(name)) {
			continue
		}
		if !DirectDialogueCue(rest) || CollectActionEvidence(rest).Strong() {
			continue
		}
		return []Part{
			{Type: domain.TypeCharacter, Text: name + ":"},
			{Type: domain.TypeDialogue, Text: rest},
		}, true
	}
	return nil, false
}
