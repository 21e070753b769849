/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package repair

import (
	"testing"

	"goscreenplay/internal/domain"
)

func TestRepairLineCleansArtifacts(t *testing.T) {
	cases := []struct{ in, want string }{
		{"  <b>يدخل</b>   أحمد  ", "يدخل أحمد"},
		{"\u200fأحمد\u200e:", "أحمد:"},
		{"• • يجلس على الكرسي", "يجلس على الكرسي"},
		{"**قطع إلى**", "قطع إلى"},
		{"مشهد 1 \t\t ليل - داخلي", "مشهد 1\tليل - داخلي"},
		{"\ufeffمرحبا&nbsp;يا صديقي", "مرحبا يا صديقي"},
		{"- يدخل أحمد", "- يدخل أحمد"},
	}
	for _, c := range cases {
		if got := RepairLine(c.in); got != c.want {
			t.Fatalf("RepairLine(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestRepairAndNormalizeAreIdempotent(t *testing.T) {
	inputs := []string{
		"  <i><b>مشهد ٣</b></i> : نهار -  خارجي ",
		"•\t* أحمد:",
		"&lt;b&gt;نص&lt;/b&gt;",
		"ﻷ  بأس",
		"...   ثم   يخرج",
		"أحمد &amp;amp;amp;amp;amp;lt;b&amp;amp;amp;amp;amp;gt;يدخل",
	}
	for _, in := range inputs {
		once := RepairLine(in)
		if twice := RepairLine(once); twice != once {
			t.Fatalf("RepairLine not idempotent for %q: %q -> %q", in, once, twice)
		}
		n := NormalizeLine(in)
		if again := NormalizeLine(n); again != n {
			t.Fatalf("NormalizeLine not idempotent for %q: %q -> %q", in, n, again)
		}
	}
	if got := RepairLine("أحمد &amp;amp;amp;amp;amp;lt;b&amp;amp;amp;amp;amp;gt;يدخل"); got != "أحمد يدخل" {
		t.Fatalf("nested entities = %q", got)
	}
	if got := NormalizeLine("مشهد ٣"); got != "مشهد 3" {
		t.Fatalf("NormalizeLine digits = %q", got)
	}
}

func TestMergeBrokenCharacterName(t *testing.T) {
	got, ok := MergeBrokenCharacterName("عبد", "الرحمن:")
	if !ok || got != "عبد الرحمن:" {
		t.Fatalf("expected merge, got %q %v", got, ok)
	}
	// terminal punctuation, missing colon, action opener, stop word, fragment
	// token limit, prev already a cue
	rejects := [][2]string{
		{"انتهى الأمر.", "الرحمن:"},
		{"عبد", "الرحمن"},
		{"يدخل", "أحمد:"},
		{"في", "البيت:"},
		{"واحد اثنان ثلاثة", "أربعة:"},
		{"أحمد:", "علي:"},
	}
	for _, r := range rejects {
		if got, ok := MergeBrokenCharacterName(r[0], r[1]); ok {
			t.Fatalf("MergeBrokenCharacterName(%q,%q) should be rejected, got %q", r[0], r[1], got)
		}
	}
	// a merged cue cannot be merged again
	if _, ok := MergeBrokenCharacterName(got, "ثالث:"); ok {
		t.Fatalf("merge must be idempotent on its own output")
	}
}

func TestShouldMergeWrappedLines(t *testing.T) {
	if !ShouldMergeWrappedLines("أنا ذاهب", "إلى السوق الآن.", domain.TypeDialogue) {
		t.Fatalf("continuation opener should merge")
	}
	if !ShouldMergeWrappedLines("كنت أريد أن أقول", "... لكنني نسيت", domain.TypeDialogue) {
		t.Fatalf("ellipsis opener should merge")
	}
	cases := []struct {
		prev, curr string
		typ        domain.ElementType
	}{
		{"أنا ذاهب", "إلى السوق", domain.TypeAction},
		{"أنا ذاهب.", "إلى السوق", domain.TypeDialogue},
		{"أنا ذاهب", "- إلى السوق", domain.TypeDialogue},
		{"أنا ذاهب", "من هناك:", domain.TypeDialogue},
		{"أنا ذاهب", "السوق مزدحم", domain.TypeDialogue},
	}
	for _, c := range cases {
		if ShouldMergeWrappedLines(c.prev, c.curr, c.typ) {
			t.Fatalf("unexpected merge for %+v", c)
		}
	}
	if got := MergeWrapped(" أنا ذاهب ", " إلى السوق "); got != "أنا ذاهب إلى السوق" {
		t.Fatalf("MergeWrapped = %q", got)
	}
}
