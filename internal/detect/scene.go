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

// MaxDetailedLocationWords bounds a scene-header-3 line.
const MaxDetailedLocationWords = 14

// IsBasmala requires the three canonical tokens after bracket stripping.
func IsBasmala(text string) bool {
	s := patterns.BracketRe.ReplaceAllString(text, " ")
	toks := patterns.FoldTokens(s)
	if len(toks) == 0 || len(toks) > 8 {
		return false
	}
	for _, want := range patterns.BasmalaTokens {
		found := false
		for _, tok := range toks {
			if tok == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// IsSceneNumberLine is the level-1 test: a scene-number token opens the line.
func IsSceneNumberLine(text string) bool {
	return patterns.SceneNumberRe.MatchString(text)
}

// IsTimeLocationLine is the level-2 test: a time-of-day token and an interior/exterior token.
func IsTimeLocationLine(text string) bool {
	var hasTime, hasPlace bool
	for _, tok := range patterns.FoldTokens(text) {
		if patterns.TimeOfDay.Has(tok) {
			hasTime = true
		}
		if patterns.InteriorExterior.Has(tok) {
			hasPlace = true
		}
	}
	return hasTime && hasPlace
}

// TopLineKind tells how much of the composite header a line carries.
type TopLineKind int

const (
	TopLineNone TopLineKind = iota
	// TopLineComposite has a scene number and a valid time/location remainder.
	TopLineComposite
	// TopLineNumberOnly is a scene number with no valid time/location part.
	TopLineNumberOnly
	// TopLineTimeLocationOnly is a bare time/location line.
	TopLineTimeLocationOnly
)

// TopLine is the detected split of a composite header.
type TopLine struct {
	Kind    TopLineKind
	Header1 string
	Header2 string
}

// SplitTopLine splits "مشهد 1 - ليل - داخلي" into header1 (number/kind) and header2
// (time/location). ok is true only when header2 independently passes the level-2 test.
func SplitTopLine(text string) (header1, header2 string, ok bool) {
	t := strings.TrimSpace(text)
	loc := patterns.SceneNumberRe.FindStringIndex(t)
	if loc == nil {
		return "", "", false
	}
	header1 = strings.TrimSpace(t[:loc[1]])
	rest := strings.TrimSpace(patterns.HeaderSeparatorRe.ReplaceAllString(t[loc[1]:], ""))
	if rest == "" || !IsTimeLocationLine(rest) {
		return header1, "", false
	}
	return header1, rest, true
}

// DetectTopLine classifies text against the composite header forms.
func DetectTopLine(text string) TopLine {
	t := strings.TrimSpace(text)
	if h1, h2, ok := SplitTopLine(t); ok {
		return TopLine{Kind: TopLineComposite, Header1: h1, Header2: h2}
	}
	if IsSceneNumberLine(t) {
		if patterns.WordCount(t) > 6 || patterns.EndsWithAny(t, patterns.DialogueTerminals) {
			return TopLine{}
		}
		return TopLine{Kind: TopLineNumberOnly, Header1: t}
	}
	if IsTimeLocationLine(t) && patterns.WordCount(t) <= 8 && !strings.ContainsAny(t, patterns.SentenceTerminals) {
		return TopLine{Kind: TopLineTimeLocationOnly, Header2: t}
	}
	return TopLine{}
}

var prepositionsAfterFrom = patterns.NewSet("إلى", "الى", "حتى", "نحو")

// IsDetailedLocation is the level-3 test. The context only matters for the last clause:
// a line directly after a composite header qualifies without a place cue.
func IsDetailedLocation(text string, ctx domain.Context) bool {
	t := strings.TrimSpace(text)
	if t == "" || IsSceneNumberLine(t) || IsTransition(t) {
		return false
	}
	if strings.ContainsAny(t, patterns.LocationForbidden) || patterns.StartsWithDash(t) {
		return false
	}
	toks := patterns.FoldTokens(t)
	if len(toks) == 0 || len(toks) > MaxDetailedLocationWords {
		return false
	}
	if patterns.IsActionVerb(toks[0]) || patterns.DialogueOpeners.Has(toks[0]) {
		return false
	}
	if HasPlacePrefix(toks) || isLocationRange(toks) || isMultiLocation(t) {
		return true
	}
	return ctx.IsAfterSceneHeaderTopLine
}

// HasPlacePrefix reports whether the first folded token names a known kind of place.
func HasPlacePrefix(toks []string) bool {
	if len(toks) == 0 {
		return false
	}
	return patterns.PlacePrefixes.Has(patterns.StripArticle(patterns.StripConjunction(toks[0])))
}

// isLocationRange matches "من <place> إلى <place>".
func isLocationRange(toks []string) bool {
	if len(toks) < 4 || toks[0] != patterns.Fold("من") {
		return false
	}
	if !HasPlacePrefix(toks[1:]) {
		return false
	}
	for _, tok := range toks[2:] {
		if prepositionsAfterFrom.Has(tok) {
			return true
		}
	}
	return false
}

// isMultiLocation matches "منزل أحمد - المطبخ" style lines: several short parts,
// at least one opening with a place prefix.
func isMultiLocation(t string) bool {
	parts := patterns.MultiLocationSplitRe.Split(t, -1)
	if len(parts) < 2 {
		return false
	}
	place := false
	for _, p := range parts {
		toks := patterns.FoldTokens(p)
		if len(toks) == 0 || len(toks) > 5 {
			return false
		}
		if patterns.IsActionVerb(toks[0]) || patterns.DialogueOpeners.Has(toks[0]) {
			return false
		}
		if HasPlacePrefix(toks) {
			place = true
		}
	}
	return place
}
