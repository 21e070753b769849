/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics are registered on the default registry once at package init.
//
//   - goscreenplay_drafts_total{type,method}
//   - goscreenplay_review_lines_total{band}
//   - goscreenplay_escalations_total{outcome}
//   - goscreenplay_escalation_attempts_total{result}
//   - goscreenplay_escalation_duration_seconds
var (
	draftsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "goscreenplay_drafts_total",
			Help: "Classified drafts by element type and classification method",
		},
		[]string{"type", "method"},
	)

	reviewLinesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "goscreenplay_review_lines_total",
			Help: "Reviewed lines by routing band",
		},
		[]string{"band"},
	)

	escalationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "goscreenplay_escalations_total",
			Help: "Escalation round trips by outcome",
		},
		[]string{"outcome"}, // "applied", "skipped", "failed", "aborted"
	)

	escalationAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "goscreenplay_escalation_attempts_total",
			Help: "Individual escalation HTTP attempts by result",
		},
		[]string{"result"}, // "ok", "retry", "terminal"
	)

	escalationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "goscreenplay_escalation_duration_seconds",
			Help:    "Wall time of an escalation including retries",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 20, 30},
		},
	)
)

// ObserveDraft counts one pushed draft.
func ObserveDraft(typ, method string) { draftsTotal.WithLabelValues(typ, method).Inc() }

// ObserveBand counts one reviewed line in its routing band.
func ObserveBand(band string) { reviewLinesTotal.WithLabelValues(band).Inc() }

// ObserveAttempt counts one escalation attempt.
func ObserveAttempt(result string) { escalationAttempts.WithLabelValues(result).Inc() }

// ObserveEscalation records the outcome and duration of a finished escalation.
func ObserveEscalation(outcome string, elapsed time.Duration) {
	escalationsTotal.WithLabelValues(outcome).Inc()
	escalationDuration.Observe(elapsed.Seconds())
}

// MetricsHandler serves the default registry in the Prometheus text format.
func MetricsHandler() http.Handler { return promhttp.Handler() }
