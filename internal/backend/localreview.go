/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package backend

import (
	"fmt"
	"time"

	"goscreenplay/internal/agent"
)

// LocalModel names the reviewer behind /api/review.
const LocalModel = "local-suggestions"

// localConfidence is what the local reviewer reports for an adopted suggestion.
const localConfidence = 0.9

// LocalReview answers an escalation request from the reviewer's own suggestions.
// A line without a usable suggestion gets no decision, so a forced line without
// one stays unresolved on the caller side.
func LocalReview(req agent.Request) agent.Response {
	start := time.Now()
	resp := agent.Response{Status: agent.StatusSkipped, Model: LocalModel}
	decided := map[int]bool{}
	for _, l := range req.SuspiciousLines {
		if l.SuggestedType == "" || l.SuggestedType == l.AssignedType || !l.SuggestedType.Valid() {
			continue
		}
		reason := "suggested by review"
		if len(l.Reasons) > 0 {
			reason = l.Reasons[0]
		}
		resp.Decisions = append(resp.Decisions, agent.Decision{
			ItemIndex:  l.ItemIndex,
			FinalType:  string(l.SuggestedType),
			Confidence: localConfidence,
			Reason:     reason,
		})
		decided[l.ItemIndex] = true
	}

	meta := &agent.Meta{
		RequestedCount:    len(req.RequiredItemIndexes),
		DecisionCount:     len(resp.Decisions),
		ForcedItemIndexes: req.ForcedItemIndexes,
	}
	for _, i := range req.RequiredItemIndexes {
		if !decided[i] {
			meta.MissingItemIndexes = append(meta.MissingItemIndexes, i)
		}
	}
	for _, i := range req.ForcedItemIndexes {
		if !decided[i] {
			meta.UnresolvedForcedItemIndexes = append(meta.UnresolvedForcedItemIndexes, i)
		}
	}
	resp.Meta = meta

	switch {
	case len(resp.Decisions) == 0:
		resp.Message = "no line carried a usable suggestion"
	case len(meta.UnresolvedForcedItemIndexes) > 0:
		resp.Status = agent.StatusWarning
		resp.Message = fmt.Sprintf("%d forced line(s) left unresolved", len(meta.UnresolvedForcedItemIndexes))
	default:
		resp.Status = agent.StatusApplied
	}
	resp.LatencyMs = elapsedMs(start)
	return resp
}

func elapsedMs(start time.Time) int64 { return time.Since(start).Milliseconds() }
