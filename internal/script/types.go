/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import "goscreenplay/internal/domain"

// Outline groups classified drafts into scenes.
// Drafts before the first top line (a basmala, a title) land in Preamble.

type Outline struct {
	Preamble []domain.Draft
	Scenes   []Scene
}

// Scene is one top line and everything up to the next one.
// Location is the detailed location directly after the header, if any.
// Characters lists speaking characters in order of first appearance.

type Scene struct {
	Header1    string
	Header2    string
	Location   string
	Characters []string
	Drafts     []domain.Draft
	Start      int // index of the top line in the draft sequence
}

// Error represents a read error with position context.

type Error struct {
	Line    int
	Column  int
	Message string
}
