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

// IsCharacter accepts a cue line "<name>:" whose name passes the grammar. A one or two
// letter token straight after a dialogue line is treated as a stray fragment instead.
func IsCharacter(text string, ctx domain.Context) bool {
	t := strings.TrimSpace(text)
	if !patterns.EndsWithColon(t) {
		return false
	}
	if IsSceneNumberLine(t) || IsTransition(t) || IsParenthetical(t) {
		return false
	}
	name := patterns.TrimColon(t)
	if !patterns.IsCharacterName(name) {
		return false
	}
	if ctx.IsInDialogueBlock && ctx.PreviousType == domain.TypeDialogue {
		toks := strings.Fields(name)
		if len(toks) == 1 && len([]rune(toks[0])) <= 2 {
			return false
		}
	}
	return true
}

// IsParenthetical requires the whole trimmed line to be one balanced "( ... )" group.
func IsParenthetical(text string) bool {
	t := strings.TrimSpace(text)
	if len(t) < 3 || !strings.HasPrefix(t, "(") || !strings.HasSuffix(t, ")") {
		return false
	}
	depth := 0
	runes := []rune(t)
	for i, r := range runes {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 || (depth == 0 && i != len(runes)-1) {
				return false
			}
		}
	}
	return depth == 0 && strings.TrimSpace(string(runes[1:len(runes)-1])) != ""
}
