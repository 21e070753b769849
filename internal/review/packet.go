/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package review

import (
	"fmt"
	"strings"
)

// RenderText renders p as the plain-text review packet attached to escalation
// requests and printed by the CLI.
func RenderText(p Packet) string {
	var b strings.Builder
	fmt.Fprintf(&b, "review packet: %d of %d lines flagged (forced %d, candidates %d, local %d)\n",
		len(p.Lines), p.TotalReviewed,
		p.Count(BandAgentForced), p.Count(BandAgentCandidate), p.Count(BandLocalReview))
	for _, l := range p.Lines {
		b.WriteString("\n")
		fmt.Fprintf(&b, "#%d line %d [%s] %s score=%d suspicion=%d",
			l.ItemIndex, l.LineIndex, l.Assigned, l.Band, l.EscalationScore, l.TotalSuspicion)
		if l.Critical {
			b.WriteString(" critical")
		}
		b.WriteString("\n")
		fmt.Fprintf(&b, "  text: %s\n", l.Text)
		for _, f := range l.Findings {
			fmt.Fprintf(&b, "  - %s (%d): %s", f.Detector, f.Score, f.Reason)
			if f.Suggested != "" {
				fmt.Fprintf(&b, " -> %s", f.Suggested)
			}
			b.WriteString("\n")
		}
		if len(l.Context) > 0 {
			b.WriteString("  context:\n")
			for _, c := range l.Context {
				fmt.Fprintf(&b, "    %s\n", c)
			}
		}
	}
	return b.String()
}
