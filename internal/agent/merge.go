/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package agent

import (
	"fmt"
	"math"
	"sort"

	"goscreenplay/internal/detect"
	"goscreenplay/internal/domain"
)

// DefaultConfidenceFloor is the lowest confidence an agent correction gets.
const DefaultConfidenceFloor = 85

// MergeResult accounts for every requested item.
type MergeResult struct {
	Drafts           []domain.Draft
	Applied          []int
	Unchanged        []int
	Skipped          []int
	Missing          []int
	UnresolvedForced []int
}

// Merge applies decisions to a copy of drafts. A decision changes a draft only when
// its item was requested, its index is in range, the draft text still matches
// the selection snapshot and the type differs; a scene header additionally needs
// a valid split. When a forced item ends without an effective change, Merge
// returns ErrUnresolvedForced and the unmodified drafts.
func Merge(drafts []domain.Draft, sel Selection, decisions []Decision, floor int) (MergeResult, error) {
	if floor <= 0 {
		floor = DefaultConfidenceFloor
	}
	out := append([]domain.Draft(nil), drafts...)
	res := MergeResult{}
	decided := map[int]bool{}
	applied := map[int]bool{}
	for _, d := range decisions {
		i := d.ItemIndex
		snap, requested := sel.Snapshot[i]
		if !requested || decided[i] || i < 0 || i >= len(out) || out[i].Text != snap {
			res.Skipped = append(res.Skipped, i)
			continue
		}
		decided[i] = true
		typ, ok := domain.ParseElementType(d.FinalType)
		if !ok || typ == out[i].Type {
			res.Unchanged = append(res.Unchanged, i)
			continue
		}
		next, ok := corrected(out[i], typ, d.Confidence, floor)
		if !ok {
			res.Unchanged = append(res.Unchanged, i)
			continue
		}
		out[i] = next
		applied[i] = true
		res.Applied = append(res.Applied, i)
	}
	for _, l := range sel.Lines {
		if !decided[l.ItemIndex] {
			res.Missing = append(res.Missing, l.ItemIndex)
		}
	}
	for _, f := range sel.Forced {
		if !applied[f] {
			res.UnresolvedForced = append(res.UnresolvedForced, f)
		}
	}
	sort.Ints(res.Missing)
	if len(res.UnresolvedForced) > 0 {
		res.Drafts = append([]domain.Draft(nil), drafts...)
		return res, fmt.Errorf("%w: items %v", ErrUnresolvedForced, res.UnresolvedForced)
	}
	res.Drafts = out
	return res, nil
}

// corrected rewrites d as typ. Confidence is the maximum of the original, the
// decision and the floor.
func corrected(d domain.Draft, typ domain.ElementType, confidence float64, floor int) (domain.Draft, bool) {
	next := domain.Draft{
		Type:       typ,
		Text:       d.Text,
		Confidence: domain.ClampConfidence(max(d.Confidence, int(math.Round(confidence*100)), floor)),
		Method:     domain.MethodAgentCorrected,
	}
	if typ == domain.TypeSceneHeaderTopLine {
		tl := detect.DetectTopLine(d.Text)
		if tl.Kind == detect.TopLineNone {
			return domain.Draft{}, false
		}
		next.Header1, next.Header2 = tl.Header1, tl.Header2
	}
	return next, true
}
