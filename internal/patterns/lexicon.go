/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package patterns holds the static lexicons and regular expressions used by the
// detectors. Every lexicon is stored folded (see Fold) so lookups never depend on
// hamza spelling, diacritics or digit script.
package patterns

import (
	"regexp"
	"strings"
)

// verbStems are third person masculine present forms; feminine (ت) and plural (ون)
// variants are derived in init.
var verbStems = []string{
	"يدخل", "يخرج", "ينظر", "يجلس", "يقف", "يمشي", "يركض", "يجري", "يفتح", "يغلق",
	"يلتفت", "يبتسم", "يضحك", "يبكي", "يصرخ", "يمسك", "يضع", "يأخذ", "يرفع", "ينهض",
	"يقترب", "يبتعد", "يتجه", "يعود", "يسقط", "يدفع", "يلقي", "يحمل", "يقرأ", "يكتب",
	"يشير", "يهز", "يتنهد", "يطرق", "يرن", "يصعد", "ينزل", "يقفز", "يلمس", "يعانق",
	"يصفع", "يضرب", "يشرب", "يأكل", "يغادر", "يصل", "يتوقف", "يستدير", "يحدق", "يتأمل",
	"يرمي", "يسحب", "يمد", "يخلع", "يرتدي", "يشعل", "يطفئ", "يهرب", "يتحرك", "يتقدم",
	"يتراجع", "ينحني", "يركع", "يستيقظ", "ينام", "يمسح", "يبحث", "يخفي", "يظهر", "يختفي",
	"يدور", "يلوح", "يومئ", "يراقب", "يتناول", "يضغط", "يلتقط", "يقلب", "يرتجف", "يتصل",
	"يقول", "يهمس", "يرد", "يسأل", "يصيح",
}

// pastVerbs are narrative past forms frequently opening action lines.
var pastVerbs = []string{
	"دخل", "خرج", "جلس", "وقف", "نظر", "فتح", "أغلق", "التفت", "ابتسم", "ضحك",
	"صرخ", "أمسك", "وضع", "أخذ", "رفع", "نهض", "اقترب", "ابتعد", "اتجه", "عاد",
	"سقط", "دفع", "ألقى", "حمل", "مشى", "ركض", "دخلت", "خرجت", "جلست", "وقفت",
	"نظرت", "فتحت", "التفتت", "ابتسمت", "عادت", "اقتربت", "قال", "قالت",
}

// ActionVerbs is the folded set of verbs that make a line read as action.
var ActionVerbs Set

func init() {
	words := make([]string, 0, len(verbStems)*4+len(pastVerbs))
	for _, v := range verbStems {
		words = append(words, v)
		r := []rune(v)
		if r[0] == 'ي' {
			words = append(words, "ت"+string(r[1:]))
		}
		words = append(words, v+"ون", v+"ان")
	}
	words = append(words, pastVerbs...)
	ActionVerbs = NewSet(words...)
}

var (
	// ActionCues are camera/narration phrases.
	ActionCues = NewPhrases(
		"نرى", "نشاهد", "الكاميرا", "لقطة", "لقطة قريبة", "كادر", "زووم", "في الخلفية",
		"من بعيد", "فلاش باك", "عودة للحاضر", "في المقدمة", "نلاحظ", "يبدو",
	)

	// AudioCues mark sound descriptions.
	AudioCues = NewPhrases(
		"صوت", "أصوات", "نسمع", "يسمع", "تسمع", "رنين", "طرق على الباب", "موسيقى",
		"ضجيج", "صراخ", "انفجار", "صفارة", "صوت خطوات", "جرس",
	)

	// NarrativeOpeners are connectors that open narrative sentences.
	NarrativeOpeners = NewPhrases(
		"بينما", "عندما", "حين", "حينما", "فجأة", "في هذه الأثناء", "في الأثناء",
		"بعد قليل", "بعد لحظات", "وفي", "في تلك اللحظة", "لحظات", "يسود",
	)

	// Pronouns that may precede a verb in a pronoun-verb action construction.
	Pronouns = NewSet("هو", "هي", "هم", "هن", "وهو", "وهي", "وهم", "وهن")

	// ThenWords introduce a sequenced action ("ثم يخرج").
	ThenWords = NewSet("ثم", "وثم", "بعدها", "وبعدها")

	// StopWords can never be part of a character name.
	StopWords = NewSet(
		"في", "من", "إلى", "على", "عن", "مع", "هذا", "هذه", "ذلك", "تلك", "هو", "هي",
		"هم", "أنا", "أنت", "انت", "نحن", "الذي", "التي", "و", "أو", "ثم", "لا", "نعم",
		"ما", "ماذا", "لماذا", "كيف", "متى", "أين", "هل", "قد", "لقد", "كان", "كانت",
		"يا", "بعد", "قبل", "عند", "كل", "بين", "أيضا", "فقط", "ليس", "لكن", "إن", "أن",
		"حتى", "لم", "لن", "إذا", "لو", "الآن", "هنا", "هناك",
	)

	// DialogueOpeners are words that open spoken lines.
	DialogueOpeners = NewSet(
		"يا", "هل", "ماذا", "لماذا", "ليش", "ليه", "كيف", "متى", "أين", "وين", "فين",
		"لا", "نعم", "أيوه", "ايوة", "آه", "أه", "طيب", "خلاص", "والله", "يعني", "أنا",
		"أنت", "انت", "إنتي", "انتي", "أنتم", "نحن", "إحنا", "احنا", "حاضر", "شكرا",
		"أرجوك", "مرحبا", "أهلا", "السلام", "ألو", "اسمع", "اسمعي", "تعال", "تعالي",
		"لقد", "سوف", "سأ", "لن", "إزاي", "ازاي", "شو", "إيه",
	)

	// DialectMarkers indicate colloquial speech, which lowers the dialogue threshold.
	DialectMarkers = NewSet(
		"ازاي", "إزاي", "عايز", "عاوز", "عايزة", "مش", "دلوقتي", "كده", "ليه", "إيه",
		"شو", "هيك", "بدي", "كتير", "هلق", "ليش", "وش", "ايش", "زي", "اللي", "فين",
		"وين", "يلا", "خلي", "بتاع", "ده", "دي", "احنا", "إحنا",
	)

	// ContinuationOpeners start a wrapped continuation of a dialogue line.
	ContinuationOpeners = NewSet(
		"و", "أو", "ثم", "لكن", "بل", "لأن", "لان", "حتى", "كي", "لكي", "إلى", "من",
		"في", "على", "عن", "مع", "الذي", "التي", "اللي", "عشان", "علشان",
	)

	// Transitions are the closed set of transition cues, matched at line end.
	Transitions = NewPhrases(
		"قطع", "قطع إلى", "قطع الى", "قطع مفاجئ", "قطع سريع", "مزج", "مزج إلى", "ذوبان",
		"ذوبان إلى", "اختفاء تدريجي", "ظهور تدريجي", "إظلام", "إظلام تدريجي", "تلاشي",
		"انتقال", "انتقال إلى", "cut to", "fade in", "fade out", "fade to black",
		"dissolve to", "smash cut",
	)

	// TimeOfDay tokens for level-2 scene headers.
	TimeOfDay = NewSet(
		"ليل", "ليلا", "الليل", "ليلي", "نهار", "نهارا", "النهار", "نهاري", "صباح", "صباحا",
		"الصباح", "مساء", "مساءا", "المساء", "فجر", "الفجر", "ظهر", "ظهرا", "الظهر", "عصر",
		"العصر", "غروب", "الغروب", "شروق", "الشروق", "day", "night", "morning", "evening",
	)

	// InteriorExterior tokens for level-2 scene headers.
	InteriorExterior = NewSet("داخلي", "خارجي", "داخلية", "خارجية", "int", "ext")

	// PlacePrefixes open a detailed location line (article stripped before lookup).
	PlacePrefixes = NewSet(
		"منزل", "بيت", "شقة", "غرفة", "مكتب", "شارع", "مستشفى", "مدرسة", "مقهى", "مطعم",
		"سيارة", "حديقة", "قسم", "فيلا", "محل", "مسجد", "قصر", "سوق", "مطار", "فندق",
		"صالة", "مطبخ", "حمام", "ممر", "سطح", "جامعة", "شركة", "محطة", "كافيه", "ميدان",
		"حارة", "بهو", "مخزن", "مصنع", "سجن", "مبنى", "عمارة", "استوديو", "مسرح", "ملعب",
		"شاطئ", "كنيسة", "مزرعة", "صحراء", "غابة", "طريق", "كوبري", "جسر", "مكتبة", "مدخل",
	)

	// SceneWords name a scene in a level-1 header.
	SceneWords = NewSet("مشهد", "المشهد", "scene")

	// BasmalaTokens must all be present for a basmala line.
	BasmalaTokens = []string{Fold("بسم"), Fold("الله"), Fold("الرحيم")}
)

var (
	// SceneNumberRe matches a level-1 scene number token at line start on unfolded text.
	// Group 1 is the scene word and group 2 the digits; header1 is the whole match.
	SceneNumberRe = regexp.MustCompile(`^\s*((?:ال)?مشهد|[Ss][Cc][Ee][Nn][Ee])\s*(?:رقم\s*)?[#:\-]?\s*([0-9٠-٩۰-۹]+)`)

	// HeaderSeparatorRe trims the separators between header1 and header2.
	HeaderSeparatorRe = regexp.MustCompile(`^[\s\t:\-–—/|]+`)

	// BracketRe matches any bracket or quote glyph stripped before basmala matching.
	BracketRe = regexp.MustCompile(`[(){}\[\]«»﴾﴿"“”]`)

	// MultiLocationSplitRe splits a detailed location into parts.
	MultiLocationSplitRe = regexp.MustCompile(`\s+[-–—/]\s+|\s*[،,]\s*`)

	// InlineSplitRe matches "(cue) name (cue): dialogue" on one physical line.
	InlineSplitRe = regexp.MustCompile(`^(?:\(([^()]{1,40})\)\s*)?([^:()\n]{1,32}?)\s*(?:\(([^()]{1,40})\)\s*)?:\s*(.+)$`)

	// LeadingParentheticalRe peels a "(cue)" off the start of a dialogue remainder.
	LeadingParentheticalRe = regexp.MustCompile(`^\(([^()]{1,40})\)\s*(.*)$`)
)

// Punctuation sets used by several detectors. Kept as strings for ContainsAny.
const (
	DialogueTerminals = "?!؟"
	SentenceTerminals = ".!?؟…"
	LocationForbidden = ".!?؟:…؛\"«»“”"
	Quotes            = "\"«»“”"
	Dashes            = "-–—"
	Bullets           = "•●▪◦·▫■□◆◇►▶*"
)

// HasEllipsis reports "..." or "…" in s.
func HasEllipsis(s string) bool {
	return strings.Contains(s, "...") || strings.Contains(s, "…")
}

// StartsWithDash reports a leading hyphen or dash glyph.
func StartsWithDash(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && strings.ContainsRune(Dashes, []rune(s)[0])
}

// StartsWithBullet reports a leading bullet glyph.
func StartsWithBullet(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && strings.ContainsRune(Bullets, []rune(s)[0])
}

// EndsWithAny reports whether the trimmed s ends with one of the runes in set.
func EndsWithAny(s, set string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	r := []rune(s)
	return strings.ContainsRune(set, r[len(r)-1])
}

// EndsWithColon reports a trailing ASCII or full-width colon.
func EndsWithColon(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasSuffix(s, ":") || strings.HasSuffix(s, "：")
}

// IsActionVerb checks a folded token, allowing a glued conjunction.
func IsActionVerb(tok string) bool {
	return ActionVerbs.Has(tok) || ActionVerbs.Has(StripConjunction(tok))
}
