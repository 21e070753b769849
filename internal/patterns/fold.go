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

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// arabicMarks covers tatweel, harakat, Quranic small marks and the superscript alef.
var arabicMarks = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x0640, Hi: 0x0640, Stride: 1},
		{Lo: 0x064B, Hi: 0x065F, Stride: 1},
		{Lo: 0x0670, Hi: 0x0670, Stride: 1},
		{Lo: 0x06D6, Hi: 0x06ED, Stride: 1},
	},
}

// DigitValue maps Arabic-Indic and extended (Persian) digits to ASCII.
// Other runes are returned unchanged.
func DigitValue(r rune) rune {
	switch {
	case r >= '٠' && r <= '٩':
		return '0' + (r - '٠')
	case r >= '۰' && r <= '۹':
		return '0' + (r - '۰')
	}
	return r
}

func foldRune(r rune) rune {
	switch r {
	case 'أ', 'إ', 'آ', 'ٱ':
		return 'ا'
	case 'ى':
		return 'ي'
	case 'ؤ':
		return 'و'
	case 'ئ':
		return 'ي'
	}
	return unicode.ToLower(DigitValue(r))
}

// NormalizeDigits rewrites Hindi/Persian digits as ASCII and applies NFKC, keeping letters as written.
func NormalizeDigits(s string) string {
	t := transform.Chain(norm.NFKC, runes.Map(DigitValue))
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Fold returns the matching form of s. Lexicons and detectors compare folded text only:
// NFKC (presentation forms, ligatures), marks removed, alef/yeh/hamza carriers unified,
// ASCII digits, lower-case Latin.
func Fold(s string) string {
	t := transform.Chain(norm.NFKC, runes.Remove(runes.In(arabicMarks)), runes.Map(foldRune))
	out, _, err := transform.String(t, s)
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}

// Tokens splits folded text into letter/digit runs.
func Tokens(folded string) []string {
	return strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// FoldTokens is Tokens(Fold(s)).
func FoldTokens(s string) []string { return Tokens(Fold(s)) }

// StripConjunction removes a leading wa/fa conjunction from a token of at least four letters.
func StripConjunction(tok string) string {
	r := []rune(tok)
	if len(r) >= 4 && (r[0] == 'و' || r[0] == 'ف') {
		return string(r[1:])
	}
	return tok
}

// StripArticle removes the definite article (and a glued wa/bi/li prefix before it).
func StripArticle(tok string) string {
	for _, p := range []string{"وال", "بال", "فال", "كال", "لل", "ال"} {
		if strings.HasPrefix(tok, p) && len([]rune(tok))-len([]rune(p)) >= 2 {
			return strings.TrimPrefix(tok, p)
		}
	}
	return tok
}

// WordCount counts whitespace separated words of s.
func WordCount(s string) int { return len(strings.Fields(s)) }

// Set is a folded lexicon.
type Set map[string]struct{}

// NewSet folds every word before inserting it.
func NewSet(words ...string) Set {
	s := make(Set, len(words))
	for _, w := range words {
		s[Fold(strings.TrimSpace(w))] = struct{}{}
	}
	return s
}

// Has reports whether the folded token is present.
func (s Set) Has(tok string) bool {
	_, ok := s[tok]
	return ok
}

// Phrases is a lexicon of folded multi-word phrases matched on token boundaries.
type Phrases [][]string

// NewPhrases folds and tokenizes each phrase.
func NewPhrases(list ...string) Phrases {
	out := make(Phrases, 0, len(list))
	for _, p := range list {
		if toks := FoldTokens(p); len(toks) > 0 {
			out = append(out, toks)
		}
	}
	return out
}

// Contains reports whether any phrase occurs in toks.
func (p Phrases) Contains(toks []string) bool {
	for _, ph := range p {
		if IndexOf(toks, ph) >= 0 {
			return true
		}
	}
	return false
}

// HasPrefix reports whether toks starts with any phrase.
func (p Phrases) HasPrefix(toks []string) bool {
	for _, ph := range p {
		if len(ph) <= len(toks) && equalTokens(toks[:len(ph)], ph) {
			return true
		}
	}
	return false
}

// MatchSuffix returns the longest phrase that ends toks, or nil.
func (p Phrases) MatchSuffix(toks []string) []string {
	var best []string
	for _, ph := range p {
		if len(ph) <= len(toks) && equalTokens(toks[len(toks)-len(ph):], ph) && len(ph) > len(best) {
			best = ph
		}
	}
	return best
}

// IndexOf returns the first index of needle in toks, or -1.
func IndexOf(toks, needle []string) int {
	if len(needle) == 0 || len(needle) > len(toks) {
		return -1
	}
	for i := 0; i+len(needle) <= len(toks); i++ {
		if equalTokens(toks[i:i+len(needle)], needle) {
			return i
		}
	}
	return -1
}

func equalTokens(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
