/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// DefaultContextWindow is how many previous types a Context carries.
const DefaultContextWindow = 6

// Context is the view of already classified lines that detectors see.
// It is rebuilt for every line and never mutated in place.
type Context struct {
	// PreviousTypes is most-recent-last and bounded by the window.
	PreviousTypes []ElementType
	// PreviousType is empty at the start of a document.
	PreviousType              ElementType
	IsInDialogueBlock         bool
	IsAfterSceneHeaderTopLine bool
}

// BuildContext derives a Context from the drafts classified so far.
func BuildContext(drafts []Draft, window int) Context {
	if window <= 0 {
		window = DefaultContextWindow
	}
	start := len(drafts) - window
	if start < 0 {
		start = 0
	}
	prev := make([]ElementType, 0, len(drafts)-start)
	for _, d := range drafts[start:] {
		prev = append(prev, d.Type)
	}
	var ctx Context
	ctx.PreviousTypes = prev
	if n := len(prev); n > 0 {
		ctx.PreviousType = prev[n-1]
		ctx.IsInDialogueBlock = ctx.PreviousType.InDialogueBlock()
		ctx.IsAfterSceneHeaderTopLine = ctx.PreviousType == TypeSceneHeaderTopLine
	}
	return ctx
}

// CountRecent returns how many of the last n previous types equal t.
func (c Context) CountRecent(t ElementType, n int) int {
	cnt := 0
	for i := len(c.PreviousTypes) - 1; i >= 0 && n > 0; i, n = i-1, n-1 {
		if c.PreviousTypes[i] == t {
			cnt++
		}
	}
	return cnt
}
