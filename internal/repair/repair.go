/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package repair cleans pasted/imported lines before detection and merges lines that
// an importer broke apart (split character names, wrapped dialogue).
package repair

import (
	"html"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"goscreenplay/internal/domain"
	"goscreenplay/internal/patterns"
)

var (
	reTag       = regexp.MustCompile(`<[^<>]*>`)
	reEmphasis  = regexp.MustCompile("\\*\\*|__|~~|`")
	reInvisible = regexp.MustCompile(`[\x{00AD}\x{061C}\x{200B}-\x{200F}\x{202A}-\x{202E}\x{2060}-\x{2069}\x{FEFF}]`)
	reSpaces    = regexp.MustCompile(`[ \x{00A0}\x{2000}-\x{200A}\x{202F}\x{205F}\x{3000}\r\f\v]+`)
	reTabs      = regexp.MustCompile(` *\t[ \t]*`)
	reBullets   = regexp.MustCompile(`^(?:[•●▪◦·▫■□◆◇►▶*]\s*)+`)
)

// RepairLine strips markup artifacts, removes invisible characters, collapses whitespace
// runs (a tab run stays a single tab) and trims leading bullet glyphs. Idempotent.
func RepairLine(raw string) string {
	s := raw
	for {
		next := repairOnce(s)
		if next == s {
			return s
		}
		s = next
	}
}

func repairOnce(s string) string {
	s = norm.NFKC.String(s)
	for {
		next := reTag.ReplaceAllString(s, "")
		if next == s {
			break
		}
		s = next
	}
	if strings.Contains(s, "&") {
		s = html.UnescapeString(s)
	}
	s = reEmphasis.ReplaceAllString(s, "")
	s = reInvisible.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "\n", " ")
	s = reSpaces.ReplaceAllString(s, " ")
	s = reTabs.ReplaceAllString(s, "\t")
	s = strings.Trim(s, " \t")
	s = reBullets.ReplaceAllString(s, "")
	return strings.Trim(s, " \t")
}

// NormalizeLine is RepairLine plus Hindi/Persian digit normalization.
func NormalizeLine(raw string) string {
	return patterns.NormalizeDigits(RepairLine(raw))
}

// MergeBrokenCharacterName joins a name fragment with the next line's "rest:" when an
// importer split a character cue across two lines. It returns the merged cue and true
// only when the merge re-passes the character-name grammar.
func MergeBrokenCharacterName(prev, curr string) (string, bool) {
	p := strings.TrimSpace(prev)
	c := strings.TrimSpace(curr)
	if p == "" || c == "" {
		return "", false
	}
	if patterns.EndsWithAny(p, patterns.SentenceTerminals+":：،,؛") {
		return "", false
	}
	if !patterns.EndsWithColon(c) || patterns.EndsWithColon(p) {
		return "", false
	}
	rest := patterns.TrimColon(c)
	if rest == "" {
		return "", false
	}
	if len(strings.Fields(p)) > 2 || len([]rune(p)) > 16 || len(strings.Fields(rest)) > 2 {
		return "", false
	}
	name := p + " " + rest
	if len([]rune(name)) > patterns.MaxCharacterNameRunes {
		return "", false
	}
	if !patterns.IsCharacterName(name) {
		return "", false
	}
	return name + ":", true
}

// ShouldMergeWrappedLines reports whether curr continues a wrapped dialogue line prev.
func ShouldMergeWrappedLines(prev, curr string, prevType domain.ElementType) bool {
	if prevType != domain.TypeDialogue {
		return false
	}
	p := strings.TrimSpace(prev)
	c := strings.TrimSpace(curr)
	if p == "" || c == "" {
		return false
	}
	if patterns.StartsWithBullet(p) || patterns.StartsWithDash(p) || patterns.StartsWithBullet(c) || patterns.StartsWithDash(c) {
		return false
	}
	if patterns.EndsWithColon(c) {
		return false
	}
	if patterns.EndsWithAny(p, patterns.SentenceTerminals) {
		return false
	}
	return opensWithContinuation(c)
}

func opensWithContinuation(c string) bool {
	if strings.HasPrefix(c, "...") || strings.HasPrefix(c, "…") {
		return true
	}
	toks := patterns.FoldTokens(c)
	return len(toks) > 0 && patterns.ContinuationOpeners.Has(toks[0])
}

// MergeWrapped joins a wrapped continuation onto its dialogue line.
func MergeWrapped(prev, curr string) string {
	return strings.TrimSpace(strings.TrimSpace(prev) + " " + strings.TrimSpace(curr))
}
