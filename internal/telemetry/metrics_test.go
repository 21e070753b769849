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
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	applog "goscreenplay/internal/log"
)

func TestMetricsHandlerExposesCounters(t *testing.T) {
	ObserveDraft("action", "pattern-match")
	ObserveBand("agent-forced")
	ObserveAttempt("retry")
	ObserveEscalation("applied", 120*time.Millisecond)

	rec := httptest.NewRecorder()
	MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{
		`goscreenplay_drafts_total{method="pattern-match",type="action"}`,
		`goscreenplay_review_lines_total{band="agent-forced"}`,
		`goscreenplay_escalation_attempts_total{result="retry"}`,
		`goscreenplay_escalations_total{outcome="applied"}`,
		"goscreenplay_escalation_duration_seconds_count",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics output missing %q", want)
		}
	}
}

func TestEventContextAddsSession(t *testing.T) {
	var mu sync.Mutex
	var got []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		var m map[string]any
		_ = json.Unmarshal(b, &m)
		mu.Lock()
		got = append(got, m)
		mu.Unlock()
	}))
	defer srv.Close()

	c := New(Config{OptIn: true, EventsURL: srv.URL, Timeout: time.Second})
	defer c.Close()
	props := map[string]any{"lines": 3}
	c.EventContext(applog.WithSession(context.Background(), "abc"), "classification_run", props)
	c.Flush(context.Background())
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0]["session"] != "abc" || got[0]["lines"] != float64(3) {
		t.Fatalf("unexpected events: %+v", got)
	}
	if _, ok := props["session"]; ok {
		t.Fatalf("caller props were mutated")
	}
}
