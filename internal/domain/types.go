/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import "strings"

// This file defines the core data model shared by the classification pipeline,
// the suspicion reviewer and the agent escalation protocol.

// ElementType is the structural role of one screenplay line.
type ElementType string

const (
	TypeBasmala            ElementType = "basmala"
	TypeSceneHeaderTopLine ElementType = "scene-header-top-line"
	TypeSceneHeader3       ElementType = "scene-header-3"
	TypeAction             ElementType = "action"
	TypeCharacter          ElementType = "character"
	TypeDialogue           ElementType = "dialogue"
	TypeParenthetical      ElementType = "parenthetical"
	TypeTransition         ElementType = "transition"
)

// AllTypes lists the closed set of element types in a stable order.
var AllTypes = []ElementType{
	TypeBasmala,
	TypeSceneHeaderTopLine,
	TypeSceneHeader3,
	TypeAction,
	TypeCharacter,
	TypeDialogue,
	TypeParenthetical,
	TypeTransition,
}

// Valid reports whether t is one of the known element types.
func (t ElementType) Valid() bool {
	for _, k := range AllTypes {
		if k == t {
			return true
		}
	}
	return false
}

// InDialogueBlock reports whether t belongs to a character/dialogue exchange.
func (t ElementType) InDialogueBlock() bool {
	return t == TypeCharacter || t == TypeDialogue || t == TypeParenthetical
}

// typeAliases maps names used by external collaborators and review agents
// onto the closed set. Keys are lower-case with '_' and ' ' folded to '-'.
var typeAliases = map[string]ElementType{
	"basmala":               TypeBasmala,
	"bismillah":             TypeBasmala,
	"scene-header-top-line": TypeSceneHeaderTopLine,
	"sceneheadertopline":    TypeSceneHeaderTopLine,
	"scene-header-top":      TypeSceneHeaderTopLine,
	"scene-header":          TypeSceneHeaderTopLine,
	"scene-header-1":        TypeSceneHeaderTopLine,
	"scene-header-2":        TypeSceneHeaderTopLine,
	"scene-heading":         TypeSceneHeaderTopLine,
	"scene-header-3":        TypeSceneHeader3,
	"sceneheader3":          TypeSceneHeader3,
	"detailed-location":     TypeSceneHeader3,
	"location":              TypeSceneHeader3,
	"action":                TypeAction,
	"description":           TypeAction,
	"character":             TypeCharacter,
	"dialogue":              TypeDialogue,
	"dialog":                TypeDialogue,
	"parenthetical":         TypeParenthetical,
	"transition":            TypeTransition,
}

// ParseElementType maps an external type name onto the closed set.
// The second result is false for unrecognised names.
func ParseElementType(s string) (ElementType, bool) {
	k := strings.ToLower(strings.TrimSpace(s))
	k = strings.NewReplacer("_", "-", " ", "-").Replace(k)
	t, ok := typeAliases[k]
	return t, ok
}

// Method records how a draft got its type; it orders confidence semantics.
type Method string

const (
	MethodPatternMatch    Method = "pattern-match"
	MethodContextInferred Method = "context-inferred"
	MethodFallback        Method = "fallback"
	MethodAgentCorrected  Method = "agent-corrected"
)

// Draft is one classified screenplay element.
// Header1/Header2 are only set for the composite scene-header top line.
type Draft struct {
	Type       ElementType `json:"type"`
	Text       string      `json:"text"`
	Header1    string      `json:"header1,omitempty"`
	Header2    string      `json:"header2,omitempty"`
	Confidence int         `json:"confidence"`
	Method     Method      `json:"method"`
}

// ClampConfidence bounds c to [0,100].
func ClampConfidence(c int) int {
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}

// TypedBlock is a pre-extracted block handed over by an importer.
// Type uses the importer's vocabulary and is resolved with ParseElementType.
type TypedBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}
