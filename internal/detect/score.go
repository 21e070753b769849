/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package detect contains the per-type detectors. Every detector is a free function over
// plain text (plus an optional domain.Context) so it can be tested in isolation.
// Signals that feed a weighted score are declared as ordered Rule lists consumed by Score.
package detect

// Rule is one weighted signal.
type Rule[E any] struct {
	Name   string
	Weight int
	Test   func(E) bool
}

// Score sums the weights of every rule that fires and returns the fired rule names in order.
func Score[E any](rules []Rule[E], e E) (int, []string) {
	total := 0
	var fired []string
	for _, r := range rules {
		if r.Test(e) {
			total += r.Weight
			fired = append(fired, r.Name)
		}
	}
	return total, fired
}
