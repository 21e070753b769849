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
	"net/http/httptest"
	"testing"
	"time"

	applog "goscreenplay/internal/log"
)

func TestEventContextLeavesPropsAlone(t *testing.T) {
	sink := &eventSink{}
	srv := httptest.NewServer(sink)
	defer srv.Close()
	c := New(Config{OptIn: true, EventsURL: srv.URL, Timeout: time.Second})
	defer c.Close()

	props := map[string]any{"lines": 3}
	c.EventContext(applog.WithSession(context.Background(), "s-1"), "classification_run", props)
	c.EventContext(context.Background(), "classification_run", props)
	c.Flush(context.Background())

	events := sink.wait(t, 2)
	if events[0]["session"] != "s-1" {
		t.Fatalf("session missing: %v", events[0])
	}
	if _, ok := events[1]["session"]; ok {
		t.Fatalf("session set without one in ctx: %v", events[1])
	}
	if _, ok := props["session"]; ok || len(props) != 1 {
		t.Fatalf("caller props mutated: %v", props)
	}
}

func TestDisabledDefaultSendsNothing(t *testing.T) {
	sink := &eventSink{}
	srv := httptest.NewServer(sink)
	defer srv.Close()
	NewDefault(Config{EventsURL: srv.URL, Timeout: time.Second})
	t.Cleanup(func() { NewDefault(Config{}) })

	ClassificationRun(context.Background(), 1, 1, 0)
	Escalation(context.Background(), "applied", 1, 1, time.Millisecond)
	FlushDefault(context.Background())
	time.Sleep(50 * time.Millisecond)
	sink.mu.Lock()
	n := len(sink.events)
	sink.mu.Unlock()
	if n != 0 {
		t.Fatalf("opted-out default sent %d events", n)
	}
}

// An unreachable endpoint must not stall callers once the queue is full.
func TestUnreachableEndpointNeverBlocks(t *testing.T) {
	NewDefault(Config{OptIn: true, EventsURL: "http://127.0.0.1:1/events", Timeout: 50 * time.Millisecond, DebugLogging: true})
	t.Cleanup(func() { NewDefault(Config{}) })

	start := time.Now()
	for i := 0; i < 200; i++ {
		Escalation(context.Background(), "failed", 3, 1, time.Second)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("events blocked for %v", time.Since(start))
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	FlushDefault(ctx)
}
