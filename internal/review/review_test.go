/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package review

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"goscreenplay/internal/domain"
	"goscreenplay/internal/script"
)

func draft(t domain.ElementType, text string, conf int, m domain.Method) domain.Draft {
	return domain.Draft{Type: t, Text: text, Confidence: conf, Method: m}
}

func TestThenVerbInsideDialogueIsCritical(t *testing.T) {
	drafts := []domain.Draft{
		draft(domain.TypeCharacter, "أحمد:", 90, domain.MethodPatternMatch),
		draft(domain.TypeDialogue, "انتظرتك طويلا ثم يخرج من الغرفة بسرعة", 85, domain.MethodPatternMatch),
	}
	p := New(Options{}).Review(drafts)
	if len(p.Lines) != 1 {
		t.Fatalf("expected one flagged line, got %+v", p.Lines)
	}
	l := p.Lines[0]
	if l.ItemIndex != 1 || !l.Critical || l.Suggested != domain.TypeAction {
		t.Fatalf("unexpected line: %+v", l)
	}
	if l.Findings[0].Detector != DetectorContent || l.Findings[0].Score < 96 {
		t.Fatalf("expected a content mismatch of at least 96: %+v", l.Findings)
	}
	if l.Band != BandAgentForced && l.Band != BandAgentCandidate {
		t.Fatalf("critical mismatch must route to the agent, got %s", l.Band)
	}
}

func TestBandIsMonotonic(t *testing.T) {
	prev := -1
	for s := 0; s <= 100; s++ {
		r := BandFor(s).Rank()
		if r < prev {
			t.Fatalf("band rank decreased at score %d", s)
		}
		prev = r
	}
	cases := map[int]Band{0: BandPass, 64: BandPass, 65: BandLocalReview, 79: BandLocalReview, 80: BandAgentCandidate, 89: BandAgentCandidate, 90: BandAgentForced, 100: BandAgentForced}
	for s, want := range cases {
		if got := BandFor(s); got != want {
			t.Fatalf("BandFor(%d) = %s, want %s", s, got, want)
		}
	}
}

func TestCombineSuspicion(t *testing.T) {
	cases := []struct {
		scores []int
		want   int
	}{
		{nil, 0},
		{[]int{50}, 50},
		{[]int{40, 70}, 82},
		{[]int{96, 70, 45}, 99},
	}
	for _, c := range cases {
		var fs []Finding
		for _, s := range c.scores {
			fs = append(fs, Finding{Score: s})
		}
		if got := CombineSuspicion(fs); got != c.want {
			t.Fatalf("CombineSuspicion(%v) = %d, want %d", c.scores, got, c.want)
		}
	}
}

func TestEscalationScoreTerms(t *testing.T) {
	base := Line{Findings: []Finding{{Detector: DetectorConfidence, Score: 50}}, TotalSuspicion: 50, Confidence: 90, Method: domain.MethodPatternMatch, DistinctDetectors: 1}
	if got := EscalationScore(base); got != 50 {
		t.Fatalf("plain score = %d", got)
	}
	l := base
	l.Method = domain.MethodFallback
	l.Confidence = 40
	l.DistinctDetectors = 5
	l.Suggested = domain.TypeAction
	// 50 + 10 fallback + 12 capped confidence + 15 capped diversity + 4 suggestion
	if got := EscalationScore(l); got != 91 {
		t.Fatalf("layered score = %d", got)
	}
	l.Critical = true
	if got := EscalationScore(l); got != 100 {
		t.Fatalf("score must cap at 100, got %d", got)
	}
	if EscalationScore(Line{}) != 0 {
		t.Fatalf("no findings must score 0")
	}
}

func TestSequenceViolation(t *testing.T) {
	drafts := []domain.Draft{
		draft(domain.TypeCharacter, "سارة:", 90, domain.MethodPatternMatch),
		draft(domain.TypeAction, "يغلق الباب بهدوء ثم يجلس", 70, domain.MethodContextInferred),
	}
	p := New(Options{}).Review(drafts)
	var got []DetectorID
	for _, l := range p.Lines {
		for _, f := range l.Findings {
			got = append(got, f.Detector)
		}
	}
	if len(got) == 0 || got[0] != DetectorSequence {
		t.Fatalf("expected a sequence violation, got %v", got)
	}
	if Allowed(domain.TypeCharacter, domain.TypeAction) || !Allowed(domain.TypeCharacter, domain.TypeDialogue) {
		t.Fatalf("allowed-next table broken")
	}
}

func TestSplitCharacterFragment(t *testing.T) {
	drafts := []domain.Draft{
		draft(domain.TypeAction, "عبد", 55, domain.MethodFallback),
		draft(domain.TypeCharacter, "الرحمن:", 90, domain.MethodPatternMatch),
		draft(domain.TypeDialogue, "أنا هنا.", 88, domain.MethodContextInferred),
	}
	p := New(Options{}).Review(drafts)
	if len(p.Lines) == 0 || p.Lines[0].ItemIndex != 0 {
		t.Fatalf("fragment not flagged: %+v", p.Lines)
	}
	l := p.Lines[0]
	if l.Suggested != domain.TypeCharacter || l.DistinctDetectors < 2 {
		t.Fatalf("unexpected fragment review: %+v", l)
	}
}

func TestStatisticalAndConfidenceFindings(t *testing.T) {
	long := strings.TrimSpace(strings.Repeat("كلمة ", 12))
	f, ok := statisticalAnomaly(window{drafts: []domain.Draft{draft(domain.TypeCharacter, long+":", 90, domain.MethodPatternMatch)}})
	if !ok || f.Score != 45+min(7*3, 25) {
		t.Fatalf("statistical finding: %+v %v", f, ok)
	}
	f, ok = confidenceDrop(window{drafts: []domain.Draft{draft(domain.TypeAction, "شيء ما", 55, domain.MethodFallback)}})
	if !ok || f.Score != 55 {
		t.Fatalf("confidence finding: %+v %v", f, ok)
	}
	if _, ok := confidenceDrop(window{drafts: []domain.Draft{draft(domain.TypeAction, "شيء", 92, domain.MethodPatternMatch)}}); ok {
		t.Fatalf("high confidence must not be flagged")
	}
}

func TestCleanScriptPasses(t *testing.T) {
	drafts, _ := script.NewClassifier(script.Options{}).ClassifyText("أحمد:\nأنا هنا.\n- تدخل سارة إلى المطبخ")
	p := New(Options{}).Review(drafts)
	if p.TotalReviewed != len(drafts) {
		t.Fatalf("total reviewed = %d", p.TotalReviewed)
	}
	if p.Count(BandAgentForced) != 0 || p.Count(BandAgentCandidate) != 0 {
		t.Fatalf("clean script escalated: %s", RenderText(p))
	}
}

func TestReviewIsDeterministicAndRendered(t *testing.T) {
	drafts := []domain.Draft{
		draft(domain.TypeCharacter, "أحمد:", 90, domain.MethodPatternMatch),
		draft(domain.TypeDialogue, "انتظرتك طويلا ثم يخرج من الغرفة بسرعة", 85, domain.MethodPatternMatch),
	}
	r := New(Options{Radius: 1})
	a, b := r.Review(drafts), r.Review(drafts)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("review differs between runs:\n%s", diff)
	}
	if n := len(a.Lines[0].Context); n != 2 {
		t.Fatalf("radius 1 at the end should give two context lines, got %d", n)
	}
	text := RenderText(a)
	for _, want := range []string{"1 of 2 lines flagged", "content-type-mismatch (96)", "-> action", "critical"} {
		if !strings.Contains(text, want) {
			t.Fatalf("packet text missing %q:\n%s", want, text)
		}
	}
}
