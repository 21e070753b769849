/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"goscreenplay/internal/domain"
	"goscreenplay/internal/patterns"
)

// BuildOutline groups drafts into scenes at each top line.
func BuildOutline(drafts []domain.Draft) Outline {
	var o Outline
	var cur *Scene
	seen := map[string]struct{}{}
	for i, d := range drafts {
		if d.Type == domain.TypeSceneHeaderTopLine {
			o.Scenes = append(o.Scenes, Scene{Header1: d.Header1, Header2: d.Header2, Start: i})
			cur = &o.Scenes[len(o.Scenes)-1]
			seen = map[string]struct{}{}
		}
		if cur == nil {
			o.Preamble = append(o.Preamble, d)
			continue
		}
		cur.Drafts = append(cur.Drafts, d)
		switch d.Type {
		case domain.TypeSceneHeader3:
			if cur.Location == "" && i == cur.Start+1 {
				cur.Location = d.Text
			}
		case domain.TypeCharacter:
			key := patterns.NormalizeCharacterName(d.Text)
			if _, ok := seen[key]; ok || key == "" {
				continue
			}
			seen[key] = struct{}{}
			cur.Characters = append(cur.Characters, patterns.TrimColon(d.Text))
		}
	}
	return o
}
