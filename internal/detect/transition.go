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
	"unicode"

	"goscreenplay/internal/patterns"
)

// IsTransition matches the closed cue-phrase set anchored to the end of the line.
// At most one leading token is tolerated and it must be "ثم" or a number.
func IsTransition(text string) bool {
	t := strings.TrimSpace(text)
	if t == "" || patterns.EndsWithAny(t, patterns.DialogueTerminals) {
		return false
	}
	toks := patterns.FoldTokens(t)
	if len(toks) == 0 || len(toks) > 5 {
		return false
	}
	ph := patterns.Transitions.MatchSuffix(toks)
	if ph == nil {
		return false
	}
	prefix := toks[:len(toks)-len(ph)]
	switch len(prefix) {
	case 0:
		return true
	case 1:
		return patterns.ThenWords.Has(prefix[0]) || isNumber(prefix[0])
	}
	return false
}

func isNumber(tok string) bool {
	for _, r := range tok {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return tok != ""
}
