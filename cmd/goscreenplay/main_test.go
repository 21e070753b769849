/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"goscreenplay/internal/backend"
	"goscreenplay/internal/crash"
	"goscreenplay/internal/domain"
	"goscreenplay/internal/storage"
)

const scene = "مشهد 1 - ليل - داخلي\nأحمد:\nأنا هنا.\n"

const blocksJSON = `[{"type":"character","text":"أحمد:"},{"type":"dialogue","text":"انتظرتك طويلا ثم يخرج من الغرفة بسرعة"}]`

// syncBuffer lets the watch loop and the test share output.
type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

func execute(t *testing.T, ctx context.Context, stdin string, out *syncBuffer, args ...string) error {
	t.Helper()
	cfg := filepath.Join(t.TempDir(), "config.yaml")
	root := newRootCmd(strings.NewReader(stdin), out, &crash.Scope{})
	root.SetArgs(append([]string{"--config", cfg}, args...))
	return root.ExecuteContext(ctx)
}

func run1(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out syncBuffer
	err := execute(t, context.Background(), stdin, &out, args...)
	return out.String(), err
}

func setup(t *testing.T) {
	t.Helper()
	// keeps the OS keyring out of tests
	t.Setenv("GSP_AGENT_TOKEN", "test-token")
	t.Setenv("GSP_STORE_DRIVER", "")
	t.Setenv("GSP_AGENT_ENDPOINT", "")
}

func TestVersion(t *testing.T) {
	setup(t)
	out, err := run1(t, "", "version")
	if err != nil || !strings.HasPrefix(out, "goscreenplay ") {
		t.Fatalf("version: %q, %v", out, err)
	}
}

func TestClassifyStdinText(t *testing.T) {
	setup(t)
	out, err := run1(t, scene, "classify")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 output lines, got %q", out)
	}
	for i, want := range []string{"scene-header-top-line", "character", "dialogue"} {
		if !strings.Contains(lines[i], want) {
			t.Fatalf("line %d: %q lacks %s", i+1, lines[i], want)
		}
	}
}

func TestClassifyFileAsJSONAndOutline(t *testing.T) {
	setup(t)
	path := filepath.Join(t.TempDir(), "script.txt")
	if err := os.WriteFile(path, []byte(scene), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := run1(t, "", "classify", "-f", "json", path)
	if err != nil {
		t.Fatalf("classify json: %v", err)
	}
	var res backend.ClassifyResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(res.Drafts) != 3 || res.SessionID == "" {
		t.Fatalf("unexpected result: %+v", res)
	}

	out, err = run1(t, "", "classify", "--format", "outline", path)
	if err != nil || !strings.Contains(out, "scene 1: مشهد 1") || !strings.Contains(out, "characters: أحمد") {
		t.Fatalf("outline: %q, %v", out, err)
	}

	if _, err := run1(t, "", "classify", "--format", "yaml", path); err == nil {
		t.Fatalf("expected unknown format error")
	}
	if _, err := run1(t, "", "classify", filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Fatalf("expected error for a missing file")
	}
}

func TestClassifyBlocks(t *testing.T) {
	setup(t)
	out, err := run1(t, blocksJSON, "classify", "--blocks", "-f", "json")
	if err != nil {
		t.Fatalf("classify blocks: %v", err)
	}
	var res backend.ClassifyResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatal(err)
	}
	if len(res.Drafts) != 2 || res.Drafts[1].Type != domain.TypeDialogue {
		t.Fatalf("typed blocks must be kept: %+v", res.Drafts)
	}
	if _, err := run1(t, "not json", "classify", "--blocks"); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestReviewPersistsRunsInSQLite(t *testing.T) {
	setup(t)
	dsn := filepath.Join(t.TempDir(), "gsp.sqlite")
	t.Setenv("GSP_STORE_DRIVER", "sqlite")
	t.Setenv("GSP_STORE_DSN", dsn)

	out, err := run1(t, blocksJSON, "review", "--blocks", "--session", "s1")
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if !strings.HasPrefix(out, "review packet:") {
		t.Fatalf("unexpected review output: %q", out)
	}
	if _, err := run1(t, scene, "review", "--session", "s1"); err != nil {
		t.Fatalf("second review: %v", err)
	}

	st, err := storage.OpenSQLite(context.Background(), dsn)
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	run, ok, err := st.LatestRun(context.Background(), "s1")
	if err != nil || !ok || len(run.Drafts) != 3 {
		t.Fatalf("latest run: %+v ok=%v err=%v", run, ok, err)
	}
	snap, ok, err := st.Load(context.Background(), "s1")
	if err != nil || !ok || len(snap.History) != 5 {
		t.Fatalf("session memory: history=%v ok=%v err=%v", snap.History, ok, err)
	}
}

func TestEscalateNeedsEndpoint(t *testing.T) {
	setup(t)
	if _, err := run1(t, scene, "classify", "--escalate"); err == nil || !strings.Contains(err.Error(), "agent.endpoint") {
		t.Fatalf("expected endpoint error, got %v", err)
	}
}

func TestEscalateAgainstLocalReviewer(t *testing.T) {
	setup(t)
	const secret = "cli-test"
	ts := httptest.NewServer(backend.NewServer(backend.NewService(backend.Options{}), secret).Handler())
	defer ts.Close()
	tok, err := backend.SignToken(secret, "cli", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	t.Setenv("GSP_AGENT_ENDPOINT", ts.URL+"/api/review")
	t.Setenv("GSP_AGENT_TOKEN", tok)

	out, err := run1(t, blocksJSON, "classify", "--blocks", "--escalate", "-f", "json")
	if err != nil {
		t.Fatalf("classify --escalate: %v", err)
	}
	var res backend.ClassifyResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatal(err)
	}
	if res.Escalation == nil || res.Escalation.Outcome != "applied" || res.Drafts[1].Type != domain.TypeAction {
		t.Fatalf("escalation not applied: %+v %+v", res.Escalation, res.Drafts)
	}
}

func TestWatchReclassifiesOnWrite(t *testing.T) {
	setup(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "script.txt")
	if err := os.WriteFile(path, []byte("قطع إلى:\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	var out syncBuffer
	done := make(chan error, 1)
	go func() { done <- execute(t, ctx, "", &out, "watch", path) }()

	waitFor := func(n int) {
		t.Helper()
		deadline := time.Now().Add(5 * time.Second)
		for strings.Count(out.String(), " drafts, ") < n {
			if time.Now().After(deadline) {
				cancel()
				t.Fatalf("timed out waiting for run %d; output:\n%s", n, out.String())
			}
			time.Sleep(20 * time.Millisecond)
		}
	}
	waitFor(1)
	if err := os.WriteFile(path, []byte(scene), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(2)
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("watch: %v", err)
	}
	if !strings.Contains(out.String(), "3 drafts") {
		t.Fatalf("second run did not see the new content:\n%s", out.String())
	}
}

func TestConfigInitWritesFile(t *testing.T) {
	setup(t)
	path := filepath.Join(t.TempDir(), "gsp", "config.yaml")
	out, err := run1(t, "", "--config", path, "config", "init")
	if err != nil || strings.TrimSpace(out) != path {
		t.Fatalf("config init: %q, %v", out, err)
	}
	data, err := os.ReadFile(path)
	if err != nil || !strings.Contains(string(data), "agent:") {
		t.Fatalf("config file: %q, %v", data, err)
	}
	if strings.Contains(string(data), "test-token") {
		t.Fatalf("token leaked into config file")
	}
	if _, err := run1(t, "", "--config", path, "config", "init"); err == nil {
		t.Fatalf("expected refusal to overwrite")
	}
	if _, err := run1(t, "", "--config", path, "config", "init", "--force"); err != nil {
		t.Fatalf("config init --force: %v", err)
	}
	out, err = run1(t, "", "--config", path, "config", "path")
	if err != nil || strings.TrimSpace(out) != path {
		t.Fatalf("config path: %q, %v", out, err)
	}
}
