/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package backend runs the full classification flow for one session: classify,
// review, optionally escalate, then persist. The HTTP server and the CLI share it.
package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"

	"goscreenplay/internal/agent"
	"goscreenplay/internal/domain"
	applog "goscreenplay/internal/log"
	"goscreenplay/internal/memory"
	"goscreenplay/internal/review"
	"goscreenplay/internal/script"
	"goscreenplay/internal/storage"
	"goscreenplay/internal/telemetry"
)

// RunStore keeps classification run history. storage.SQLStore implements it.
type RunStore interface {
	SaveRun(ctx context.Context, r storage.Run) (int64, error)
	LatestRun(ctx context.Context, sessionID string) (storage.Run, bool, error)
}

// Options configures a Service. Zero values select the package defaults.
type Options struct {
	ContextWindow  int
	MemoryCapacity int
	ReviewRadius   int
	// Store holds session memory between requests; nil keeps every request fresh.
	Store memory.Store
	Runs  RunStore
	// Escalation enables the agent step; nil disables it.
	Escalation *agent.Config
	HTTPClient *http.Client
}

// Service classifies text for sessions.
type Service struct {
	opts     Options
	reviewer *review.Reviewer
	client   *http.Client
	log      *slog.Logger

	mu         sync.Mutex
	escalators map[string]*sessionEscalator
}

// sessionEscalator is the one Escalator of a session while it has requests in flight.
type sessionEscalator struct {
	e    *agent.Escalator
	refs int
}

// NewService builds a Service from opts.
func NewService(opts Options) *Service {
	s := &Service{
		opts:     opts,
		reviewer: review.New(review.Options{Radius: opts.ReviewRadius}),
		client:   opts.HTTPClient,
		log:      applog.WithComponent("backend"),

		escalators: make(map[string]*sessionEscalator),
	}
	if s.client == nil {
		s.client = &http.Client{}
	}
	return s
}

// ClassifyRequest is one classification job. Blocks win over Text when both are set.
type ClassifyRequest struct {
	SessionID string              `json:"sessionId,omitempty"`
	Text      string              `json:"text,omitempty"`
	Blocks    []domain.TypedBlock `json:"blocks,omitempty"`
	Escalate  bool                `json:"escalate,omitempty"`
}

// EscalationSummary reports what the agent step did.
type EscalationSummary struct {
	Outcome   string         `json:"outcome"`
	Strategy  agent.Strategy `json:"strategy,omitempty"`
	Attempts  int            `json:"attempts"`
	Selected  int            `json:"selected"`
	Applied   []int          `json:"applied,omitempty"`
	ElapsedMs int64          `json:"elapsedMs"`
	Error     string         `json:"error,omitempty"`
}

// ClassifyResult is the final drafts plus the review of the classified sequence.
type ClassifyResult struct {
	SessionID  string             `json:"sessionId"`
	Drafts     []domain.Draft     `json:"drafts"`
	Review     review.Packet      `json:"review"`
	Escalation *EscalationSummary `json:"escalation,omitempty"`
	RunID      int64              `json:"runId,omitempty"`
	Errors     []script.Error     `json:"errors,omitempty"`
}

// Classify runs the flow for req. Escalation failures never fail the call; they
// are reported in the summary and leave the drafts as classified.
func (s *Service) Classify(ctx context.Context, req ClassifyRequest) (ClassifyResult, error) {
	id := strings.TrimSpace(req.SessionID)
	if id == "" {
		id = uuid.NewString()
	}
	ctx = applog.WithSession(ctx, id)
	l := applog.WithOperation(s.log, "classify")

	tracker, err := memory.LoadTracker(ctx, s.opts.Store, id, s.opts.MemoryCapacity)
	if err != nil {
		l.ErrorContext(ctx, "load session failed", slog.Any("err", err))
		return ClassifyResult{}, fmt.Errorf("load session %s: %w", id, err)
	}
	c := script.NewClassifier(script.Options{
		ContextWindow:  s.opts.ContextWindow,
		MemoryCapacity: s.opts.MemoryCapacity,
		Memory:         tracker,
	})
	res := ClassifyResult{SessionID: id}
	if len(req.Blocks) > 0 {
		res.Drafts = c.ClassifyBlocks(req.Blocks)
	} else {
		res.Drafts, res.Errors = c.ClassifyText(req.Text)
	}
	st := c.LastRun()
	telemetry.ClassificationRun(ctx, st.Lines, st.Drafts, st.Revalidated)

	res.Review = s.reviewer.Review(res.Drafts)
	if req.Escalate && s.opts.Escalation != nil {
		res.Escalation = s.escalate(ctx, id, tracker, &res)
	}

	if s.opts.Store != nil {
		if err := s.opts.Store.Save(ctx, id, tracker.Snapshot()); err != nil {
			return res, fmt.Errorf("save session %s: %w", id, err)
		}
	}
	if s.opts.Runs != nil {
		runID, err := s.opts.Runs.SaveRun(ctx, storage.Run{
			SessionID: id,
			Lines:     st.Lines,
			Flagged:   len(res.Review.Lines),
			Drafts:    res.Drafts,
		})
		if err != nil {
			return res, err
		}
		res.RunID = runID
	}
	l.InfoContext(ctx, "classified",
		slog.Int("lines", st.Lines),
		slog.Int("drafts", len(res.Drafts)),
		slog.Int("flagged", len(res.Review.Lines)))
	return res, nil
}

// escalate replaces res.Drafts with the merged sequence and records every applied
// change as a correction in the session tracker.
func (s *Service) escalate(ctx context.Context, id string, tracker *memory.Tracker, res *ClassifyResult) *EscalationSummary {
	e, release := s.acquireEscalator(id)
	defer release()
	out, err := e.Escalate(ctx, res.Drafts, res.Review)

	sum := &EscalationSummary{
		Strategy:  out.Strategy,
		Attempts:  out.Attempts,
		Selected:  len(out.Request.SuspiciousLines),
		ElapsedMs: out.Elapsed.Milliseconds(),
	}
	switch {
	case errors.Is(err, agent.ErrNothingToEscalate):
		sum.Outcome = "nothing-to-escalate"
		return sum
	case errors.Is(err, agent.ErrAborted):
		sum.Outcome = "aborted"
		sum.Error = err.Error()
		return sum
	case err != nil:
		sum.Outcome = "failed"
		sum.Error = err.Error()
		return sum
	}
	reasons := make(map[int]string, len(out.Response.Decisions))
	for _, d := range out.Response.Decisions {
		reasons[d.ItemIndex] = d.Reason
	}
	for _, i := range out.Merge.Applied {
		tracker.RecordCorrection(memory.Correction{
			LineIndex:  i,
			Text:       res.Drafts[i].Text,
			From:       res.Drafts[i].Type,
			To:         out.Drafts[i].Type,
			Confidence: out.Drafts[i].Confidence,
			Source:     "agent",
			Reason:     reasons[i],
		})
	}
	sum.Outcome = string(out.Response.Status)
	sum.Applied = out.Merge.Applied
	res.Drafts = out.Drafts
	return sum
}

// acquireEscalator returns the session's Escalator, so a newer request for the
// same session aborts the one in flight. The entry is dropped with the last
// release.
func (s *Service) acquireEscalator(id string) (*agent.Escalator, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	se, ok := s.escalators[id]
	if !ok {
		cfg := *s.opts.Escalation
		cfg.SessionID = id
		se = &sessionEscalator{e: agent.New(cfg, s.client)}
		s.escalators[id] = se
	}
	se.refs++
	return se.e, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		se.refs--
		if se.refs == 0 {
			delete(s.escalators, id)
		}
	}
}

// SessionView is the stored state of one session.
type SessionView struct {
	SessionID string                 `json:"sessionId"`
	Memory    memory.TrackerSnapshot `json:"memory"`
	// RepeatedPattern is the dominant adjacent type pair, if one repeats.
	RepeatedPattern *memory.Pattern `json:"repeatedPattern,omitempty"`
	LatestRun       *storage.Run    `json:"latestRun,omitempty"`
}

// Session returns the stored state of id. ok is false when nothing is stored.
func (s *Service) Session(ctx context.Context, id string) (SessionView, bool, error) {
	if s.opts.Store == nil {
		return SessionView{}, false, nil
	}
	snap, ok, err := s.opts.Store.Load(ctx, id)
	if err != nil || !ok {
		return SessionView{}, false, err
	}
	v := SessionView{SessionID: id, Memory: snap}
	if p, ok := memory.RestoreTracker(snap, s.opts.MemoryCapacity).RepeatedPattern(memory.DefaultPatternMinCount); ok {
		v.RepeatedPattern = &p
	}
	if s.opts.Runs != nil {
		run, found, err := s.opts.Runs.LatestRun(ctx, id)
		if err != nil {
			return SessionView{}, false, err
		}
		if found {
			v.LatestRun = &run
		}
	}
	return v, true, nil
}

// Ping checks the stores that can fail.
func (s *Service) Ping(ctx context.Context) error {
	type pinger interface{ Ping(context.Context) error }
	for _, st := range []any{s.opts.Store, s.opts.Runs} {
		if p, ok := st.(pinger); ok {
			if err := p.Ping(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}
