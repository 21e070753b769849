/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package agent

import (
	"math"
	"sort"

	"goscreenplay/internal/review"
)

// DefaultRatio caps the selected lines at this share of the reviewed lines.
const DefaultRatio = 0.18

// Selection is what one escalation asks about. Snapshot holds the text of each
// selected draft at build time; decisions for drafts whose text has since
// changed are skipped.
type Selection struct {
	Lines    []review.Line
	Forced   []int
	Snapshot map[int]string
}

// Empty reports whether nothing qualified.
func (s Selection) Empty() bool { return len(s.Lines) == 0 }

// Cap returns max(1, ceil(total*ratio)).
func Cap(total int, ratio float64) int {
	return max(1, int(math.Ceil(float64(total)*ratio)))
}

// Select picks the lines to escalate. Forced lines are always taken, ordered by
// score. Candidate lines need a critical mismatch or at least two distinct
// detectors and fill the remaining room under Cap.
func Select(p review.Packet, ratio float64) Selection {
	if ratio <= 0 {
		ratio = DefaultRatio
	}
	var forced, candidates []review.Line
	for _, l := range p.Lines {
		switch {
		case l.Band == review.BandAgentForced:
			forced = append(forced, l)
		case l.Band == review.BandAgentCandidate && (l.Critical || l.DistinctDetectors >= 2):
			candidates = append(candidates, l)
		}
	}
	byScore := func(ls []review.Line) {
		sort.SliceStable(ls, func(i, j int) bool {
			if ls[i].EscalationScore != ls[j].EscalationScore {
				return ls[i].EscalationScore > ls[j].EscalationScore
			}
			return ls[i].ItemIndex < ls[j].ItemIndex
		})
	}
	byScore(forced)
	byScore(candidates)

	s := Selection{Snapshot: map[int]string{}}
	for _, l := range forced {
		s.Lines = append(s.Lines, l)
		s.Forced = append(s.Forced, l.ItemIndex)
	}
	room := Cap(p.TotalReviewed, ratio) - len(s.Lines)
	for i := 0; i < room && i < len(candidates); i++ {
		s.Lines = append(s.Lines, candidates[i])
	}
	for _, l := range s.Lines {
		s.Snapshot[l.ItemIndex] = l.Text
	}
	return s
}

// Request builds the wire request for s.
func (s Selection) Request(sessionID string, totalReviewed int, packetText string) Request {
	req := Request{
		SessionID:           sessionID,
		TotalReviewed:       totalReviewed,
		ReviewPacketText:    packetText,
		SuspiciousLines:     make([]SuspiciousLine, 0, len(s.Lines)),
		RequiredItemIndexes: make([]int, 0, len(s.Lines)),
		ForcedItemIndexes:   append([]int{}, s.Forced...),
	}
	for _, l := range s.Lines {
		req.SuspiciousLines = append(req.SuspiciousLines, SuspiciousLine{
			ItemIndex:         l.ItemIndex,
			LineIndex:         l.LineIndex,
			Text:              l.Text,
			AssignedType:      l.Assigned,
			TotalSuspicion:    l.TotalSuspicion,
			Reasons:           l.Reasons(),
			ContextLines:      l.Context,
			EscalationScore:   l.EscalationScore,
			RoutingBand:       string(l.Band),
			CriticalMismatch:  l.Critical,
			DistinctDetectors: l.DistinctDetectors,
			SuggestedType:     l.Suggested,
		})
		req.RequiredItemIndexes = append(req.RequiredItemIndexes, l.ItemIndex)
	}
	return req
}

func (s Selection) isForced(i int) bool {
	for _, f := range s.Forced {
		if f == i {
			return true
		}
	}
	return false
}
