/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"goscreenplay/internal/detect"
	"goscreenplay/internal/domain"
	"goscreenplay/internal/memory"
	"goscreenplay/internal/patterns"
	"goscreenplay/internal/resolve"
)

// Confidences of the rule chain. The resolver path uses the resolve package values.
const (
	confNumberOnly       = 90
	confTimeLocation     = 88
	confLocationAfterTop = 90
	confInlineCharacter  = 90
	confInlineCue        = 88
	confInlineDialogue   = 88
	confParenthetical    = 92
	confContinuation     = 88
	confImplicitSplit    = 84
	confCharacter        = 90
	confDialogueCue      = 85
	confDialogueScore    = 78
	confLocationRetry    = 80
	confRevalidated      = 60
)

// lineInput is what every rule sees for the current line.
type lineInput struct {
	text   string
	ctx    domain.Context
	mem    memory.Memory
	action detect.ActionEvidence
}

// rule produces drafts for a line it claims. The first rule that claims a line wins.
type rule struct {
	name    string
	produce func(in *lineInput) ([]domain.Draft, bool)
}

var chain = []rule{
	{"basmala", ruleBasmala},
	{"top-line", ruleTopLine},
	{"transition", ruleTransition},
	{"location-after-top-line", ruleLocationAfterTopLine},
	{"inline-split", ruleInlineSplit},
	{"parenthetical", ruleParenthetical},
	{"dialogue-continuation", ruleDialogueContinuation},
	{"implicit-split", ruleImplicitSplit},
	{"character", ruleCharacter},
	{"dialogue", ruleDialogue},
	{"location-retry", ruleLocationRetry},
}

// classify runs the chain and falls through to resolver plus hybrid.
func classify(in *lineInput) ([]domain.Draft, string) {
	for _, r := range chain {
		if out, ok := r.produce(in); ok {
			return out, r.name
		}
	}
	return ruleResolver(in), "resolver"
}

func one(t domain.ElementType, text string, conf int, m domain.Method) []domain.Draft {
	return []domain.Draft{{Type: t, Text: text, Confidence: conf, Method: m}}
}

func ruleBasmala(in *lineInput) ([]domain.Draft, bool) {
	if !detect.IsBasmala(in.text) {
		return nil, false
	}
	return one(domain.TypeBasmala, in.text, resolve.ConfidenceBasmala, domain.MethodPatternMatch), true
}

func ruleTopLine(in *lineInput) ([]domain.Draft, bool) {
	tl := detect.DetectTopLine(in.text)
	d := domain.Draft{Type: domain.TypeSceneHeaderTopLine, Text: in.text, Header1: tl.Header1, Header2: tl.Header2, Method: domain.MethodPatternMatch}
	switch tl.Kind {
	case detect.TopLineComposite:
		d.Confidence = resolve.ConfidenceTopLine
	case detect.TopLineNumberOnly:
		d.Confidence = confNumberOnly
	case detect.TopLineTimeLocationOnly:
		d.Confidence = confTimeLocation
	default:
		return nil, false
	}
	return []domain.Draft{d}, true
}

func ruleTransition(in *lineInput) ([]domain.Draft, bool) {
	if !detect.IsTransition(in.text) {
		return nil, false
	}
	return one(domain.TypeTransition, in.text, resolve.ConfidenceTransition, domain.MethodPatternMatch), true
}

func ruleLocationAfterTopLine(in *lineInput) ([]domain.Draft, bool) {
	if !in.ctx.IsAfterSceneHeaderTopLine || in.action.Score() >= 2 || detect.DirectDialogueCue(in.text) {
		return nil, false
	}
	if !detect.IsDetailedLocation(in.text, in.ctx) {
		return nil, false
	}
	return one(domain.TypeSceneHeader3, in.text, confLocationAfterTop, domain.MethodContextInferred), true
}

func ruleInlineSplit(in *lineInput) ([]domain.Draft, bool) {
	parts, ok := detect.SplitInline(in.text)
	if !ok {
		return nil, false
	}
	out := make([]domain.Draft, 0, len(parts))
	for _, p := range parts {
		conf := confInlineDialogue
		switch p.Type {
		case domain.TypeCharacter:
			conf = confInlineCharacter
		case domain.TypeParenthetical:
			conf = confInlineCue
		}
		out = append(out, domain.Draft{Type: p.Type, Text: p.Text, Confidence: conf, Method: domain.MethodPatternMatch})
	}
	return out, true
}

func ruleParenthetical(in *lineInput) ([]domain.Draft, bool) {
	if !in.ctx.IsInDialogueBlock || !detect.IsParenthetical(in.text) {
		return nil, false
	}
	return one(domain.TypeParenthetical, in.text, confParenthetical, domain.MethodPatternMatch), true
}

func ruleDialogueContinuation(in *lineInput) ([]domain.Draft, bool) {
	prev := in.ctx.PreviousType
	if prev != domain.TypeCharacter && prev != domain.TypeParenthetical {
		return nil, false
	}
	if patterns.EndsWithColon(in.text) || in.action.Dash || detect.IsParenthetical(in.text) {
		return nil, false
	}
	return one(domain.TypeDialogue, in.text, confContinuation, domain.MethodContextInferred), true
}

func ruleImplicitSplit(in *lineInput) ([]domain.Draft, bool) {
	if in.mem == nil {
		return nil, false
	}
	parts, ok := detect.SplitImplicit(in.text, in.ctx, in.mem.Seen)
	if !ok {
		return nil, false
	}
	out := make([]domain.Draft, 0, len(parts))
	for _, p := range parts {
		out = append(out, domain.Draft{Type: p.Type, Text: p.Text, Confidence: confImplicitSplit, Method: domain.MethodContextInferred})
	}
	return out, true
}

func ruleCharacter(in *lineInput) ([]domain.Draft, bool) {
	if !detect.IsCharacter(in.text, in.ctx) {
		return nil, false
	}
	return one(domain.TypeCharacter, in.text, confCharacter, domain.MethodPatternMatch), true
}

func ruleDialogue(in *lineInput) ([]domain.Draft, bool) {
	if !detect.IsDialogue(in.text, in.ctx) {
		return nil, false
	}
	if detect.DirectDialogueCue(in.text) {
		return one(domain.TypeDialogue, in.text, confDialogueCue, domain.MethodPatternMatch), true
	}
	return one(domain.TypeDialogue, in.text, confDialogueScore, domain.MethodContextInferred), true
}

func ruleLocationRetry(in *lineInput) ([]domain.Draft, bool) {
	if in.action.Score() >= 2 || !detect.IsDetailedLocation(in.text, domain.Context{}) {
		return nil, false
	}
	return one(domain.TypeSceneHeader3, in.text, confLocationRetry, domain.MethodPatternMatch), true
}

func ruleResolver(in *lineInput) []domain.Draft {
	var view resolve.MemoryView
	if in.mem != nil {
		view = in.mem
	}
	r, _ := resolve.Classify(in.text, in.ctx, view)
	return []domain.Draft{{
		Type:       r.Type,
		Text:       in.text,
		Header1:    r.Header1,
		Header2:    r.Header2,
		Confidence: r.Confidence,
		Method:     r.Method,
	}}
}

// revalidate demotes drafts whose type contradicts the context they land in.
func revalidate(d domain.Draft, ctx domain.Context) (domain.Draft, bool) {
	demote := false
	switch d.Type {
	case domain.TypeCharacter:
		demote = !patterns.EndsWithColon(d.Text)
	case domain.TypeParenthetical:
		demote = !ctx.IsInDialogueBlock
	case domain.TypeDialogue:
		demote = !ctx.IsInDialogueBlock && !detect.DirectDialogueCue(d.Text)
	case domain.TypeSceneHeader3:
		demote = patterns.EndsWithAny(d.Text, patterns.DialogueTerminals)
	}
	if !demote {
		return d, false
	}
	conf := d.Confidence
	if conf > confRevalidated {
		conf = confRevalidated
	}
	return domain.Draft{Type: domain.TypeAction, Text: d.Text, Confidence: conf, Method: domain.MethodFallback}, true
}
