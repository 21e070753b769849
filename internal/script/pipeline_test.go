/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"goscreenplay/internal/detect"
	"goscreenplay/internal/domain"
	"goscreenplay/internal/memory"
)

const sample = `بسم الله الرحمن الرحيم
مشهد 1 - ليل - داخلي
منزل أحمد - الصالة
يجلس أحمد على الأريكة وهو يقرأ الجريدة.

سارة:
(بقلق)
أين كنت طوال الليل؟
أحمد: كنت في العمل.
- تدخل سارة إلى المطبخ
قطع إلى:`

func classify1(lines ...string) []domain.Draft {
	return NewClassifier(Options{}).ClassifyLines(lines)
}

func TestCompositeTopLine(t *testing.T) {
	got := classify1("مشهد 1  ليل - داخلي")
	if len(got) != 1 {
		t.Fatalf("expected one draft, got %+v", got)
	}
	d := got[0]
	if d.Type != domain.TypeSceneHeaderTopLine || d.Header1 != "مشهد 1" || !detect.IsTimeLocationLine(d.Header2) {
		t.Fatalf("unexpected top line: %+v", d)
	}
}

func TestDashActionIsPatternMatch(t *testing.T) {
	got := classify1("- يدخل أحمد إلى الغرفة")
	if len(got) != 1 || got[0].Type != domain.TypeAction || got[0].Method != domain.MethodPatternMatch {
		t.Fatalf("unexpected drafts: %+v", got)
	}
}

func TestCharacterThenDialogue(t *testing.T) {
	got := classify1("أحمد:", "أنا هنا.")
	if len(got) != 2 || got[0].Type != domain.TypeCharacter || got[1].Type != domain.TypeDialogue {
		t.Fatalf("unexpected drafts: %+v", got)
	}
}

func TestBrokenCharacterNameMerges(t *testing.T) {
	c := NewClassifier(Options{})
	got := c.ClassifyLines([]string{"عبد", "الرحمن:"})
	if len(got) != 1 || got[0].Type != domain.TypeCharacter || got[0].Text != "عبد الرحمن:" {
		t.Fatalf("unexpected drafts: %+v", got)
	}
	if !c.Memory().Seen("عبد الرحمن") {
		t.Fatalf("merged name not recorded in memory")
	}
	if n := len(c.Memory().RecentTypes()); n != 1 {
		t.Fatalf("memory should hold one slot after replace, got %d", n)
	}
}

func TestWrappedDialogueMerges(t *testing.T) {
	got := classify1("أحمد:", "أنا ذاهب", "إلى السوق الآن.")
	if len(got) != 2 || got[1].Text != "أنا ذاهب إلى السوق الآن." {
		t.Fatalf("unexpected drafts: %+v", got)
	}
}

func TestNumberOnlyHeaderTakesFollowingTimeLocation(t *testing.T) {
	got := classify1("مشهد 3", "ليل - داخلي")
	if len(got) != 1 || got[0].Header1 != "مشهد 3" || got[0].Header2 != "ليل - داخلي" {
		t.Fatalf("unexpected drafts: %+v", got)
	}
	got = classify1("نهار - خارجي")
	if len(got) != 1 || got[0].Type != domain.TypeSceneHeaderTopLine || got[0].Header1 != "" || got[0].Header2 != "نهار - خارجي" {
		t.Fatalf("lone time/location line: %+v", got)
	}
}

func TestSampleScript(t *testing.T) {
	drafts, errs := NewClassifier(Options{}).ClassifyText(sample)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %+v", errs)
	}
	want := []domain.ElementType{
		domain.TypeBasmala, domain.TypeSceneHeaderTopLine, domain.TypeSceneHeader3, domain.TypeAction,
		domain.TypeCharacter, domain.TypeParenthetical, domain.TypeDialogue,
		domain.TypeCharacter, domain.TypeDialogue, domain.TypeAction, domain.TypeTransition,
	}
	var got []domain.ElementType
	for _, d := range drafts {
		got = append(got, d.Type)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("types (-want +got):\n%s", diff)
	}
}

func TestClassificationIsDeterministic(t *testing.T) {
	a, _ := NewClassifier(Options{}).ClassifyText(sample)
	b, _ := NewClassifier(Options{}).ClassifyText(sample)
	ja, _ := json.Marshal(a)
	jb, _ := json.Marshal(b)
	if string(ja) != string(jb) {
		t.Fatalf("output differs between runs:\n%s\n%s", ja, jb)
	}
}

func TestEveryLineGetsExactlyOneValidType(t *testing.T) {
	for _, line := range strings.Split(sample, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		got := classify1(line)
		if len(got) == 0 {
			t.Fatalf("no draft for %q", line)
		}
		for _, d := range got {
			if !d.Type.Valid() || d.Confidence < 0 || d.Confidence > 100 {
				t.Fatalf("invalid draft for %q: %+v", line, d)
			}
		}
	}
	if got := classify1("", "   ", "\u200f"); len(got) != 0 {
		t.Fatalf("blank input produced drafts: %+v", got)
	}
}

func TestCorrectionHookIsDefensive(t *testing.T) {
	lines := []string{"أحمد:", "أنا هنا."}
	base := classify1(lines...)
	hooks := map[string]CorrectionHook{
		"error": func([]domain.Draft) ([]domain.Draft, error) { return nil, errors.New("boom") },
		"panic": func([]domain.Draft) ([]domain.Draft, error) { panic("boom") },
		"empty": func([]domain.Draft) ([]domain.Draft, error) { return []domain.Draft{}, nil },
		"bad": func(d []domain.Draft) ([]domain.Draft, error) {
			d[0].Type = "bogus"
			return d, nil
		},
	}
	for name, h := range hooks {
		got := NewClassifier(Options{Hook: h}).ClassifyLines(lines)
		if diff := cmp.Diff(base, got); diff != "" {
			t.Fatalf("hook %s changed the result (-want +got):\n%s", name, diff)
		}
	}
	demote := func(d []domain.Draft) ([]domain.Draft, error) {
		d[1].Type = domain.TypeAction
		return d, nil
	}
	got := NewClassifier(Options{Hook: demote}).ClassifyLines(lines)
	if got[1].Type != domain.TypeAction {
		t.Fatalf("valid hook output not applied: %+v", got)
	}
}

func TestClassifyBlocks(t *testing.T) {
	blocks := []domain.TypedBlock{
		{Type: "scene_header_1", Text: "مشهد 2 - نهار - خارجي"},
		{Type: "action", Text: "أين أنت؟"},
		{Type: "??", Text: "سارة:"},
		{Type: "", Text: "أين أنت؟"},
	}
	got := NewClassifier(Options{}).ClassifyBlocks(blocks)
	if len(got) != 4 {
		t.Fatalf("unexpected drafts: %+v", got)
	}
	if got[0].Type != domain.TypeSceneHeaderTopLine || got[0].Header2 != "نهار - خارجي" || got[0].Confidence != 100 {
		t.Fatalf("typed header: %+v", got[0])
	}
	if got[1].Type != domain.TypeAction {
		t.Fatalf("typed block must bypass detection: %+v", got[1])
	}
	if got[2].Type != domain.TypeCharacter || got[3].Type != domain.TypeDialogue {
		t.Fatalf("untyped blocks must be detected: %+v", got[2:])
	}
}

func TestPersistedMemoryIsUsed(t *testing.T) {
	tr := memory.NewTracker(0)
	c := NewClassifier(Options{Memory: tr})
	c.ClassifyLines([]string{"سارة:", "مرحبا."})
	if spans := tr.DialogueSpans(); len(spans) != 1 || spans[0].Speaker != "سارة" {
		t.Fatalf("tracker not fed: %+v", spans)
	}
}

func TestBuildOutline(t *testing.T) {
	drafts, _ := NewClassifier(Options{}).ClassifyText(sample)
	o := BuildOutline(drafts)
	if len(o.Preamble) != 1 || o.Preamble[0].Type != domain.TypeBasmala {
		t.Fatalf("preamble: %+v", o.Preamble)
	}
	if len(o.Scenes) != 1 {
		t.Fatalf("expected one scene, got %d", len(o.Scenes))
	}
	s := o.Scenes[0]
	if s.Header1 != "مشهد 1" || s.Location != "منزل أحمد - الصالة" {
		t.Fatalf("scene: %+v", s)
	}
	if diff := cmp.Diff([]string{"سارة", "أحمد"}, s.Characters); diff != "" {
		t.Fatalf("characters (-want +got):\n%s", diff)
	}
}

func TestLastRunCounts(t *testing.T) {
	c := NewClassifier(Options{})
	c.ClassifyLines([]string{"أحمد:", "", "أنا هنا."})
	if got := c.LastRun(); got.Lines != 3 || got.Drafts != 2 {
		t.Fatalf("unexpected stats: %+v", got)
	}
}

func TestReclassifyingContinuedSessionIsStable(t *testing.T) {
	lines := []string{"تمشي امرأة في الشارع ببطء.", "يسقط المطر بغزارة.", "تتوقف السيارة أمام المنزل.", "يفتح الباب."}
	tr := memory.NewTracker(0)
	first := NewClassifier(Options{Memory: tr}).ClassifyLines(lines)

	restored := memory.RestoreTracker(tr.Snapshot(), 0)
	second := NewClassifier(Options{Memory: restored}).ClassifyLines(lines)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("second run differs (-first +second):\n%s", diff)
	}
	if restored.Runs() != 2 {
		t.Fatalf("runs = %d, want 2", restored.Runs())
	}
}
