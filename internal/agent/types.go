/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package agent delegates suspicious lines to a remote review service and merges
// its verdicts back into the draft sequence. One Escalator owns at most one
// in-flight request; starting a new one aborts the previous.
package agent

import "goscreenplay/internal/domain"

// Status is the outcome the remote service reports.
type Status string

const (
	StatusApplied Status = "applied"
	StatusWarning Status = "warning"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "error"
)

func (s Status) known() bool {
	switch s {
	case StatusApplied, StatusWarning, StatusSkipped, StatusFailed:
		return true
	}
	return false
}

// SuspiciousLine is one selected line with its review evidence.
type SuspiciousLine struct {
	ItemIndex         int                `json:"itemIndex"`
	LineIndex         int                `json:"lineIndex"`
	Text              string             `json:"text"`
	AssignedType      domain.ElementType `json:"assignedType"`
	TotalSuspicion    int                `json:"totalSuspicion"`
	Reasons           []string           `json:"reasons"`
	ContextLines      []string           `json:"contextLines"`
	EscalationScore   int                `json:"escalationScore"`
	RoutingBand       string             `json:"routingBand"`
	CriticalMismatch  bool               `json:"criticalMismatch"`
	DistinctDetectors int                `json:"distinctDetectors"`
	SuggestedType     domain.ElementType `json:"suggestedType,omitempty"`
}

// Request is the escalation payload.
type Request struct {
	SessionID           string           `json:"sessionId"`
	TotalReviewed       int              `json:"totalReviewed"`
	ReviewPacketText    string           `json:"reviewPacketText,omitempty"`
	SuspiciousLines     []SuspiciousLine `json:"suspiciousLines"`
	RequiredItemIndexes []int            `json:"requiredItemIndexes"`
	ForcedItemIndexes   []int            `json:"forcedItemIndexes"`
}

// Decision is the service's verdict for one item. Confidence is in [0,1].
type Decision struct {
	ItemIndex  int     `json:"itemIndex"`
	FinalType  string  `json:"finalType"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// Meta is the coverage accounting the service may attach.
type Meta struct {
	RequestedCount              int   `json:"requestedCount"`
	DecisionCount               int   `json:"decisionCount"`
	MissingItemIndexes          []int `json:"missingItemIndexes"`
	ForcedItemIndexes           []int `json:"forcedItemIndexes"`
	UnresolvedForcedItemIndexes []int `json:"unresolvedForcedItemIndexes"`
}

// Response is the escalation answer.
type Response struct {
	Status    Status     `json:"status"`
	Model     string     `json:"model"`
	Decisions []Decision `json:"decisions"`
	Message   string     `json:"message"`
	LatencyMs int64      `json:"latencyMs"`
	Meta      *Meta      `json:"meta,omitempty"`
}
