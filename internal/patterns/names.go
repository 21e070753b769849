/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package patterns

import (
	"strings"
	"unicode"
)

const (
	// MaxCharacterNameRunes bounds a character cue without its colon.
	MaxCharacterNameRunes = 32
	// MaxCharacterNameTokens bounds the words of a character cue.
	MaxCharacterNameTokens = 5
)

// TrimColon removes one trailing colon (ASCII or full width) and surrounding space.
func TrimColon(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ":")
	s = strings.TrimSuffix(s, "：")
	return strings.TrimSpace(s)
}

// IsCharacterName applies the character-name grammar: letters, digits and spaces only,
// at most five tokens, no stop words and no action verb opener.
func IsCharacterName(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" || len([]rune(name)) > MaxCharacterNameRunes {
		return false
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != ' ' && !unicode.Is(arabicMarks, r) {
			return false
		}
	}
	toks := FoldTokens(name)
	if len(toks) == 0 || len(toks) > MaxCharacterNameTokens {
		return false
	}
	for _, tok := range toks {
		if StopWords.Has(tok) {
			return false
		}
	}
	if IsActionVerb(toks[0]) || SceneWords.Has(toks[0]) {
		return false
	}
	return true
}

// NormalizeCharacterName produces the key used to count character appearances.
func NormalizeCharacterName(text string) string {
	return strings.Join(FoldTokens(TrimColon(text)), " ")
}
