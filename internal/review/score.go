/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package review

import (
	"fmt"
	"math"
	"sort"

	"goscreenplay/internal/domain"
)

// Band is the routing tier of a reviewed line.
type Band string

const (
	BandPass           Band = "pass"
	BandLocalReview    Band = "local-review"
	BandAgentCandidate Band = "agent-candidate"
	BandAgentForced    Band = "agent-forced"
)

// Band thresholds on the escalation score.
const (
	LocalReviewMin    = 65
	AgentCandidateMin = 80
	AgentForcedMin    = 90
)

// Suspicion and escalation tuning.
const (
	maxSuspicion       = 99
	maxEscalation      = 100
	restWeight         = 0.3
	criticalMin        = 90
	fallbackPenalty    = 10
	inferredPenalty    = 4
	confidencePivot    = 80
	maxConfidenceBoost = 12
	diversityStep      = 5
	maxDiversityBoost  = 15
	suggestionBoost    = 4
	criticalBoost      = 10
)

// BandFor maps an escalation score onto its band. The mapping is monotonic.
func BandFor(score int) Band {
	switch {
	case score >= AgentForcedMin:
		return BandAgentForced
	case score >= AgentCandidateMin:
		return BandAgentCandidate
	case score >= LocalReviewMin:
		return BandLocalReview
	default:
		return BandPass
	}
}

// Rank orders bands from pass (0) to agent-forced (3).
func (b Band) Rank() int {
	switch b {
	case BandLocalReview:
		return 1
	case BandAgentCandidate:
		return 2
	case BandAgentForced:
		return 3
	default:
		return 0
	}
}

// CombineSuspicion adds the highest finding score and 30% of the rest, capped at 99.
func CombineSuspicion(findings []Finding) int {
	if len(findings) == 0 {
		return 0
	}
	scores := make([]int, len(findings))
	for i, f := range findings {
		scores[i] = f.Score
	}
	sort.Sort(sort.Reverse(sort.IntSlice(scores)))
	rest := 0
	for _, s := range scores[1:] {
		rest += s
	}
	total := scores[0] + int(math.Round(restWeight*float64(rest)))
	return min(total, maxSuspicion)
}

// EscalationScore layers method, confidence, diversity, suggestion and critical
// terms over the total suspicion of l.
func EscalationScore(l Line) int {
	if len(l.Findings) == 0 {
		return 0
	}
	score := l.TotalSuspicion
	switch l.Method {
	case domain.MethodFallback:
		score += fallbackPenalty
	case domain.MethodContextInferred:
		score += inferredPenalty
	}
	if l.Confidence < confidencePivot {
		score += min((confidencePivot-l.Confidence)/2, maxConfidenceBoost)
	}
	if l.DistinctDetectors > 1 {
		score += min((l.DistinctDetectors-1)*diversityStep, maxDiversityBoost)
	}
	if l.Suggested != "" {
		score += suggestionBoost
	}
	if l.Critical {
		score += criticalBoost
	}
	return min(score, maxEscalation)
}

func distinctDetectors(findings []Finding) int {
	seen := map[DetectorID]struct{}{}
	for _, f := range findings {
		seen[f.Detector] = struct{}{}
	}
	return len(seen)
}

// isCritical reports a content mismatch strong enough to force review.
func isCritical(findings []Finding) bool {
	for _, f := range findings {
		if f.Detector == DetectorContent && f.Score >= criticalMin {
			return true
		}
	}
	return false
}

// suggestion returns the suggested type of the highest scoring finding that has one.
func suggestion(findings []Finding) domain.ElementType {
	best, bestScore := domain.ElementType(""), -1
	for _, f := range findings {
		if f.Suggested != "" && f.Score > bestScore {
			best, bestScore = f.Suggested, f.Score
		}
	}
	return best
}

func contextLines(drafts []domain.Draft, i, radius int) []string {
	lo, hi := max(i-radius, 0), min(i+radius, len(drafts)-1)
	out := make([]string, 0, hi-lo+1)
	for j := lo; j <= hi; j++ {
		marker := " "
		if j == i {
			marker = ">"
		}
		out = append(out, fmt.Sprintf("%s%d [%s] %s", marker, j+1, drafts[j].Type, drafts[j].Text))
	}
	return out
}
