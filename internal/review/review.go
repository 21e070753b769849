/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package review re-scans a classified draft sequence for lines that are probably
// wrong. Each line gets findings from independent detectors, a combined suspicion,
// an escalation score and a routing band that decides whether the line is dropped,
// shown for local review or sent to the agent.
package review

import (
	"log/slog"

	"goscreenplay/internal/domain"
	applog "goscreenplay/internal/log"
	"goscreenplay/internal/telemetry"
)

// DefaultRadius is the number of neighbouring drafts on each side kept as context.
const DefaultRadius = 5

// DetectorID names the detector that produced a finding.
type DetectorID string

const (
	DetectorSequence    DetectorID = "sequence-violation"
	DetectorContent     DetectorID = "content-type-mismatch"
	DetectorSplitName   DetectorID = "split-character-fragment"
	DetectorStatistical DetectorID = "statistical-anomaly"
	DetectorConfidence  DetectorID = "confidence-drop"
)

// Finding is one detector's complaint about a line.
type Finding struct {
	Detector  DetectorID         `json:"detectorId"`
	Score     int                `json:"suspicionScore"`
	Reason    string             `json:"reason"`
	Suggested domain.ElementType `json:"suggestedType,omitempty"`
}

// Line is the review of one draft. ItemIndex is the draft's position in the
// reviewed sequence; LineIndex is the same position counted from one.
type Line struct {
	ItemIndex         int                `json:"itemIndex"`
	LineIndex         int                `json:"lineIndex"`
	Text              string             `json:"text"`
	Assigned          domain.ElementType `json:"assignedType"`
	Method            domain.Method      `json:"method"`
	Confidence        int                `json:"confidence"`
	Findings          []Finding          `json:"findings"`
	TotalSuspicion    int                `json:"totalSuspicion"`
	EscalationScore   int                `json:"escalationScore"`
	Band              Band               `json:"routingBand"`
	Critical          bool               `json:"criticalMismatch"`
	DistinctDetectors int                `json:"distinctDetectors"`
	Suggested         domain.ElementType `json:"suggestedType,omitempty"`
	Context           []string           `json:"contextLines"`
}

// Reasons lists the finding reasons in detector order.
func (l Line) Reasons() []string {
	out := make([]string, 0, len(l.Findings))
	for _, f := range l.Findings {
		out = append(out, f.Reason)
	}
	return out
}

// Packet holds every reviewed line that did not route to pass.
type Packet struct {
	TotalReviewed int    `json:"totalReviewed"`
	Lines         []Line `json:"lines"`
}

// Count returns how many lines sit in band b.
func (p Packet) Count(b Band) int {
	n := 0
	for _, l := range p.Lines {
		if l.Band == b {
			n++
		}
	}
	return n
}

// Options configures a Reviewer.
type Options struct {
	Radius int
	Logger *slog.Logger
}

// Reviewer runs the detectors over a draft sequence. It holds no per-run state and
// is safe for concurrent use.
type Reviewer struct {
	radius int
	log    *slog.Logger
}

// New builds a Reviewer; a non-positive radius selects DefaultRadius.
func New(opts Options) *Reviewer {
	r := &Reviewer{radius: opts.Radius, log: opts.Logger}
	if r.radius <= 0 {
		r.radius = DefaultRadius
	}
	if r.log == nil {
		r.log = applog.WithComponent("review")
	}
	return r
}

// Review scores every draft and returns the lines that need attention.
func (r *Reviewer) Review(drafts []domain.Draft) Packet {
	p := Packet{TotalReviewed: len(drafts)}
	for i := range drafts {
		l := r.reviewLine(drafts, i)
		telemetry.ObserveBand(string(l.Band))
		if l.Band == BandPass {
			continue
		}
		p.Lines = append(p.Lines, l)
	}
	r.log.Debug("reviewed",
		slog.Int("lines", len(drafts)),
		slog.Int("flagged", len(p.Lines)),
		slog.Int("forced", p.Count(BandAgentForced)))
	return p
}

func (r *Reviewer) reviewLine(drafts []domain.Draft, i int) Line {
	d := drafts[i]
	w := window{drafts: drafts, i: i}
	l := Line{
		ItemIndex:  i,
		LineIndex:  i + 1,
		Text:       d.Text,
		Assigned:   d.Type,
		Method:     d.Method,
		Confidence: d.Confidence,
	}
	for _, det := range detectors {
		if f, ok := det.run(w); ok {
			f.Detector = det.id
			l.Findings = append(l.Findings, f)
		}
	}
	if len(l.Findings) == 0 {
		l.Band = BandPass
		return l
	}
	l.TotalSuspicion = CombineSuspicion(l.Findings)
	l.DistinctDetectors = distinctDetectors(l.Findings)
	l.Critical = isCritical(l.Findings)
	l.Suggested = suggestion(l.Findings)
	l.EscalationScore = EscalationScore(l)
	l.Band = BandFor(l.EscalationScore)
	l.Context = contextLines(drafts, i, r.radius)
	return l
}
