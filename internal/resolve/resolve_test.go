/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package resolve

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"goscreenplay/internal/domain"
)

type fakeMemory struct {
	seen   map[string]bool
	recent []domain.ElementType
}

func (f fakeMemory) Seen(name string) bool             { return f.seen[name] }
func (f fakeMemory) RecentTypes() []domain.ElementType { return f.recent }

func TestDashWinsOverEverything(t *testing.T) {
	mem := fakeMemory{recent: []domain.ElementType{domain.TypeAction, domain.TypeAction, domain.TypeAction}}
	r, d := Classify("- يدخل أحمد", domain.Context{IsInDialogueBlock: true}, mem)
	if !d.Dash || r.Type != domain.TypeAction || r.Method != domain.MethodPatternMatch || r.Confidence != ConfidenceDash {
		t.Fatalf("dash line = %+v (%+v)", r, d)
	}
}

func TestResolverPicksAction(t *testing.T) {
	d := ResolveNarrativeDecision("يدخل أحمد إلى الغرفة ببطء", domain.Context{})
	if d.Type != domain.TypeAction || d.Score != 10 || d.Gap() != 10 || !d.Accepted {
		t.Fatalf("decision = %+v", d)
	}
	r, _ := Classify("يدخل أحمد إلى الغرفة ببطء", domain.Context{}, nil)
	if r.Method != domain.MethodContextInferred || r.Confidence != ConfidenceFallback {
		t.Fatalf("decisive gap should be context-inferred: %+v", r)
	}
}

func TestResolverPicksDialogue(t *testing.T) {
	d := ResolveNarrativeDecision("أين كنت؟", domain.Context{})
	if d.Type != domain.TypeDialogue || len(d.Candidates) != 1 || d.Score != 7 {
		t.Fatalf("decision = %+v", d)
	}
}

func TestNoCandidateFallsBackToAction(t *testing.T) {
	d := ResolveNarrativeDecision("الغرفة مظلمة", domain.Context{})
	if d.Eligible() || d.Type != domain.TypeAction {
		t.Fatalf("decision = %+v", d)
	}
	r, _ := Classify("الغرفة مظلمة", domain.Context{}, nil)
	if r.Type != domain.TypeAction || r.Method != domain.MethodFallback || r.Confidence != ConfidenceNoCandidate {
		t.Fatalf("result = %+v", r)
	}
}

func TestKnownCharacterUpgrade(t *testing.T) {
	ctx := domain.Context{PreviousType: domain.TypeDialogue, PreviousTypes: []domain.ElementType{domain.TypeDialogue}, IsInDialogueBlock: true}
	r, d := Classify("س:", ctx, nil)
	if d.Type != domain.TypeCharacter || d.Accepted {
		t.Fatalf("decision = %+v", d)
	}
	if r.Confidence != ConfidenceUnaccepted || r.Method != domain.MethodFallback {
		t.Fatalf("unknown short cue = %+v", r)
	}
	mem := fakeMemory{seen: map[string]bool{"س": true}}
	r, _ = Classify("س:", ctx, mem)
	if r.Type != domain.TypeCharacter || r.Confidence != ConfidenceKnownCharacter || r.Method != domain.MethodContextInferred {
		t.Fatalf("known cue = %+v", r)
	}
}

func TestDialogueReinforcement(t *testing.T) {
	recent := []domain.ElementType{domain.TypeDialogue, domain.TypeDialogue, domain.TypeDialogue}
	ctx := domain.Context{PreviousTypes: recent, PreviousType: domain.TypeDialogue, IsInDialogueBlock: true}
	r, _ := Classify("كنت أفكر", ctx, fakeMemory{recent: recent})
	if r.Type != domain.TypeDialogue || r.Confidence != ConfidenceDialogueRun || r.Method != domain.MethodContextInferred {
		t.Fatalf("result = %+v", r)
	}

	// a cue and a parenthetical are in the block but are not dialogue lines
	mixed := []domain.ElementType{domain.TypeCharacter, domain.TypeParenthetical, domain.TypeDialogue}
	ctx = domain.Context{PreviousTypes: mixed, PreviousType: domain.TypeDialogue, IsInDialogueBlock: true}
	r = ClassifyLine("كنت أفكر", domain.TypeDialogue, ctx, fakeMemory{recent: mixed})
	if r.Confidence != ConfidenceFallback || r.Method != domain.MethodFallback {
		t.Fatalf("mixed block reinforced: %+v", r)
	}
}

func TestHybridPatternPriorities(t *testing.T) {
	cases := []struct {
		line string
		want domain.ElementType
		conf int
	}{
		{"بسم الله الرحمن الرحيم", domain.TypeBasmala, ConfidenceBasmala},
		{"مشهد 2 - نهار - خارجي", domain.TypeSceneHeaderTopLine, ConfidenceTopLine},
		{"قطع إلى:", domain.TypeTransition, ConfidenceTransition},
	}
	for _, c := range cases {
		r := ClassifyLine(c.line, domain.TypeAction, domain.Context{}, nil)
		if r.Type != c.want || r.Confidence != c.conf || r.Method != domain.MethodPatternMatch {
			t.Fatalf("%q = %+v", c.line, r)
		}
	}
	r := ClassifyLine("مشهد 2 - نهار - خارجي", domain.TypeAction, domain.Context{}, nil)
	if r.Header1 != "مشهد 2" || r.Header2 != "نهار - خارجي" {
		t.Fatalf("headers = %q %q", r.Header1, r.Header2)
	}
}

func TestResolverIsDeterministic(t *testing.T) {
	ctx := domain.Context{PreviousTypes: []domain.ElementType{domain.TypeAction}, PreviousType: domain.TypeAction}
	lines := []string{"يجلس على الكرسي ثم ينظر", "ماذا تريد؟", "نرى المدينة من بعيد", "سارة:"}
	for _, l := range lines {
		a := ResolveNarrativeDecision(l, ctx)
		b := ResolveNarrativeDecision(l, ctx)
		if diff := cmp.Diff(a, b); diff != "" {
			t.Fatalf("non-deterministic decision for %q (-a +b):\n%s", l, diff)
		}
	}
}
