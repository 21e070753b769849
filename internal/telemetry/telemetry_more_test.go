/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package telemetry

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	applog "goscreenplay/internal/log"
)

type eventSink struct {
	mu     sync.Mutex
	events []map[string]any
}

func (s *eventSink) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var m map[string]any
	b, _ := io.ReadAll(r.Body)
	if json.Unmarshal(b, &m) == nil {
		s.mu.Lock()
		s.events = append(s.events, m)
		s.mu.Unlock()
	}
	w.WriteHeader(http.StatusNoContent)
}

// wait returns the first n events, or fails after two seconds.
func (s *eventSink) wait(t *testing.T, n int) []map[string]any {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		s.mu.Lock()
		got := append([]map[string]any(nil), s.events...)
		s.mu.Unlock()
		if len(got) >= n {
			return got[:n]
		}
		if time.Now().After(deadline) {
			t.Fatalf("received %d events, want %d", len(got), n)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestRunAndEscalationEventsCarrySession(t *testing.T) {
	sink := &eventSink{}
	srv := httptest.NewServer(sink)
	defer srv.Close()
	NewDefault(Config{OptIn: true, EventsURL: srv.URL, Timeout: time.Second})
	t.Cleanup(func() { NewDefault(Config{}) })

	ctx := applog.WithSession(context.Background(), "s-9")
	ClassificationRun(ctx, 12, 11, 2)
	Escalation(ctx, "aborted", 2, 3, 1500*time.Millisecond)
	FlushDefault(ctx)

	events := sink.wait(t, 2)
	run, esc := events[0], events[1]
	if run["name"] != "classification_run" || run["session"] != "s-9" || run["lines"] != float64(12) || run["drafts"] != float64(11) || run["revalidated"] != float64(2) {
		t.Fatalf("run event: %v", run)
	}
	if esc["name"] != "escalation" || esc["session"] != "s-9" || esc["outcome"] != "aborted" || esc["selected"] != float64(3) || esc["latency_ms"] != float64(1500) {
		t.Fatalf("escalation event: %v", esc)
	}
	for _, e := range events {
		if _, ok := e["text"]; ok {
			t.Fatalf("event carries line text: %v", e)
		}
		if _, ok := e["version"].(string); !ok {
			t.Fatalf("event without version: %v", e)
		}
	}
}
