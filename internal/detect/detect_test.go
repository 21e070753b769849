/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package detect

import (
	"testing"

	"goscreenplay/internal/domain"
	"goscreenplay/internal/patterns"
)

func TestBasmala(t *testing.T) {
	for _, s := range []string{"بسم الله الرحمن الرحيم", "﴿بسم الله الرحمن الرحيم﴾", "(بِسْمِ اللَّهِ الرَّحْمَنِ الرَّحِيمِ)"} {
		if !IsBasmala(s) {
			t.Fatalf("expected basmala: %q", s)
		}
	}
	if IsBasmala("بسم الله") {
		t.Fatalf("partial basmala accepted")
	}
}

func TestTopLineForms(t *testing.T) {
	h1, h2, ok := SplitTopLine("مشهد 1  ليل - داخلي")
	if !ok || h1 != "مشهد 1" || h2 != "ليل - داخلي" {
		t.Fatalf("SplitTopLine = %q %q %v", h1, h2, ok)
	}
	h1, h2, ok = SplitTopLine("المشهد ٣: نهار - خارجي")
	if !ok || h1 != "المشهد ٣" || h2 != "نهار - خارجي" {
		t.Fatalf("SplitTopLine colon form = %q %q %v", h1, h2, ok)
	}
	if _, _, ok := SplitTopLine("مشهد 4 - منزل أحمد"); ok {
		t.Fatalf("remainder without time token must not split")
	}
	if got := DetectTopLine("مشهد 5"); got.Kind != TopLineNumberOnly || got.Header1 != "مشهد 5" {
		t.Fatalf("number only = %+v", got)
	}
	if got := DetectTopLine("ليل - داخلي"); got.Kind != TopLineTimeLocationOnly || got.Header2 != "ليل - داخلي" {
		t.Fatalf("time/location only = %+v", got)
	}
	if got := DetectTopLine("يدخل أحمد الغرفة"); got.Kind != TopLineNone {
		t.Fatalf("action line detected as header: %+v", got)
	}
}

func TestDetailedLocation(t *testing.T) {
	none := domain.Context{}
	after := domain.Context{PreviousType: domain.TypeSceneHeaderTopLine, IsAfterSceneHeaderTopLine: true}
	accept := []string{"منزل أحمد - الصالة", "من المطبخ إلى الصالة", "غرفة المعيشة"}
	for _, s := range accept {
		if !IsDetailedLocation(s, none) {
			t.Fatalf("expected location: %q", s)
		}
	}
	if IsDetailedLocation("عند البحيرة", none) {
		t.Fatalf("bare phrase accepted without context")
	}
	if !IsDetailedLocation("عند البحيرة", after) {
		t.Fatalf("bare phrase after top line should be accepted")
	}
	reject := []string{"يدخل إلى المطبخ", "غرفة مظلمة تماما.", "أين أنت؟", "أحمد:"}
	for _, s := range reject {
		if IsDetailedLocation(s, after) {
			t.Fatalf("unexpected location: %q", s)
		}
	}
}

func TestTransition(t *testing.T) {
	for _, s := range []string{"قطع إلى:", "CUT TO:", "ثم قطع", "إظلام تدريجي."} {
		if !IsTransition(s) {
			t.Fatalf("expected transition: %q", s)
		}
	}
	for _, s := range []string{"أحمد قطع", "قطع؟", "هو قطع الحبل"} {
		if IsTransition(s) {
			t.Fatalf("unexpected transition: %q", s)
		}
	}
}

func TestActionEvidence(t *testing.T) {
	e := CollectActionEvidence("- يدخل أحمد")
	if !e.Dash || !IsAction("- يدخل أحمد", domain.Context{IsInDialogueBlock: true}) {
		t.Fatalf("dash line must be action: %+v", e)
	}
	e = CollectActionEvidence("يدخل أحمد إلى الغرفة ببطء")
	if !e.Verb || !e.Pattern || !e.Structure || e.Score() != 5 {
		t.Fatalf("unexpected evidence %+v score %d", e, e.Score())
	}
	if !e.Strong() {
		t.Fatalf("verb pattern should be strong")
	}
	if IsAction("أحمد:", domain.Context{}) {
		t.Fatalf("short cue counted as action")
	}
	e = CollectActionEvidence("كنت هناك ثم يخرج")
	if !e.ThenVerb {
		t.Fatalf("then-verb not detected: %+v", e)
	}
}

func TestActionThresholdByContext(t *testing.T) {
	// verb only: score 2
	line := "يبتسم"
	if !IsAction(line, domain.Context{}) {
		t.Fatalf("score 2 should pass the default threshold")
	}
	if IsAction(line, domain.Context{PreviousType: domain.TypeDialogue, IsInDialogueBlock: true}) {
		t.Fatalf("score 2 should fail inside a dialogue block")
	}
	if ActionThreshold(domain.Context{PreviousType: domain.TypeAction}) != 1 {
		t.Fatalf("after action the threshold is 1")
	}
}

func TestDialogue(t *testing.T) {
	ctx := domain.Context{}
	for _, s := range []string{"أين كنت؟", "يا أحمد تعال", "أنا هنا.", "\"لن أذهب\""} {
		if !IsDialogue(s, ctx) {
			t.Fatalf("expected dialogue: %q", s)
		}
	}
	for _, s := range []string{"يدخل أحمد إلى الغرفة ببطء", "أحمد:", "(بهدوء)", "- هل أنت هنا؟"} {
		if IsDialogue(s, ctx) {
			t.Fatalf("unexpected dialogue: %q", s)
		}
	}
	in := domain.Context{PreviousType: domain.TypeDialogue, IsInDialogueBlock: true}
	if DialogueProbability("كنت أفكر في الأمر...", in) < DialogueProbability("كنت أفكر في الأمر...", ctx) {
		t.Fatalf("dialogue flow should raise the probability")
	}
	if DialogueThresholdFor("مش عارف أعمل ايه") != DialectDialogueThreshold {
		t.Fatalf("dialect threshold not applied")
	}
}

func TestCharacterAndParenthetical(t *testing.T) {
	if !IsCharacter("أحمد:", domain.Context{}) || !IsCharacter("عبد الرحمن:", domain.Context{}) {
		t.Fatalf("expected character cues")
	}
	for _, s := range []string{"في البيت:", "مشهد 1:", "قطع إلى:", "أحمد", "يدخل أحمد:"} {
		if IsCharacter(s, domain.Context{}) {
			t.Fatalf("unexpected character: %q", s)
		}
	}
	in := domain.Context{PreviousType: domain.TypeDialogue, IsInDialogueBlock: true}
	if IsCharacter("س:", in) {
		t.Fatalf("short fragment after dialogue accepted")
	}
	if !IsParenthetical("(بهدوء)") || IsParenthetical("(بهدوء) يقول") || IsParenthetical("(أ) و (ب)") || IsParenthetical("()") {
		t.Fatalf("parenthetical detection wrong")
	}
}

func TestSplitInline(t *testing.T) {
	parts, ok := SplitInline("أحمد: أنا هنا.")
	if !ok || len(parts) != 2 || parts[0].Text != "أحمد:" || parts[1].Type != domain.TypeDialogue || parts[1].Text != "أنا هنا." {
		t.Fatalf("SplitInline = %+v %v", parts, ok)
	}
	parts, ok = SplitInline("أحمد (بهدوء): لا تقلق")
	if !ok || len(parts) != 3 || parts[1].Type != domain.TypeParenthetical || parts[1].Text != "(بهدوء)" {
		t.Fatalf("SplitInline with cue = %+v %v", parts, ok)
	}
	parts, ok = SplitInline("سارة: (تبتسم) حسنا")
	if !ok || len(parts) != 3 || parts[2].Text != "حسنا" {
		t.Fatalf("SplitInline leading cue = %+v %v", parts, ok)
	}
	if _, ok := SplitInline("في البيت: شيء ما"); ok {
		t.Fatalf("stop-word name split")
	}
	if _, ok := SplitInline("مشهد 1: ليل - داخلي"); ok {
		t.Fatalf("scene header split as dialogue")
	}
}

func TestSplitImplicit(t *testing.T) {
	ctx := domain.Context{PreviousType: domain.TypeDialogue, IsInDialogueBlock: true}
	known := func(name string) bool { return name == patterns.NormalizeCharacterName("سارة") }
	parts, ok := SplitImplicit("سارة هل أنت بخير؟", ctx, known)
	if !ok || parts[0].Text != "سارة:" || parts[1].Text != "هل أنت بخير؟" {
		t.Fatalf("SplitImplicit = %+v %v", parts, ok)
	}
	if _, ok := SplitImplicit("منى هل أنت بخير؟", ctx, known); ok {
		t.Fatalf("unknown name split")
	}
	if _, ok := SplitImplicit("سارة هل أنت بخير؟", domain.Context{}, known); ok {
		t.Fatalf("split outside a dialogue block")
	}
	if _, ok := SplitImplicit("سارة هل أنت بخير؟", ctx, nil); ok {
		t.Fatalf("split without memory")
	}
}
