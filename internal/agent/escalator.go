/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"goscreenplay/internal/domain"
	applog "goscreenplay/internal/log"
	"goscreenplay/internal/review"
	"goscreenplay/internal/telemetry"
)

// Defaults for Config fields left zero.
const (
	DefaultDeadline          = 20 * time.Second
	DefaultMinAttemptTimeout = 3 * time.Second
	DefaultMaxAttemptTimeout = 12 * time.Second
	DefaultMaxAttempts       = 3
	DefaultBackoff           = 400 * time.Millisecond
	DefaultMaxBackoff        = 2 * time.Second
	maxResponseBytes         = 4 << 20
)

// Config configures an Escalator.
type Config struct {
	Endpoint          string
	Token             string
	SessionID         string
	Deadline          time.Duration
	MinAttemptTimeout time.Duration
	MaxAttemptTimeout time.Duration
	MaxAttempts       int
	Backoff           time.Duration
	MaxBackoff        time.Duration
	// RequestsPerSecond paces attempts; zero means unlimited.
	RequestsPerSecond float64
	Ratio             float64
	ConfidenceFloor   int
}

func (c *Config) applyDefaults() {
	if c.Deadline <= 0 {
		c.Deadline = DefaultDeadline
	}
	if c.MinAttemptTimeout <= 0 {
		c.MinAttemptTimeout = DefaultMinAttemptTimeout
	}
	if c.MaxAttemptTimeout <= 0 {
		c.MaxAttemptTimeout = DefaultMaxAttemptTimeout
	}
	if c.MaxAttemptTimeout < c.MinAttemptTimeout {
		c.MaxAttemptTimeout = c.MinAttemptTimeout
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.Backoff <= 0 {
		c.Backoff = DefaultBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = DefaultMaxBackoff
	}
	if c.Ratio <= 0 {
		c.Ratio = DefaultRatio
	}
	if c.ConfidenceFloor <= 0 {
		c.ConfidenceFloor = DefaultConfidenceFloor
	}
	if c.SessionID == "" {
		c.SessionID = uuid.NewString()
	}
}

// Outcome is the result of one escalation. On error Drafts is the input sequence.
type Outcome struct {
	Drafts   []domain.Draft
	Request  Request
	Response Response
	Strategy Strategy
	Merge    MergeResult
	Attempts int
	Elapsed  time.Duration
}

// Escalator sends escalation requests for one editor session. At most one request
// is in flight; Escalate aborts the previous one.
type Escalator struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
	log     *slog.Logger

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelCauseFunc
}

// errSuperseded is the cancel cause of a request replaced by a newer one.
var errSuperseded = errors.New("superseded by a newer request")

// New builds an Escalator. A nil client selects a fresh http.Client.
func New(cfg Config, client *http.Client) *Escalator {
	cfg.applyDefaults()
	if client == nil {
		client = &http.Client{}
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &Escalator{
		cfg:     cfg,
		client:  client,
		limiter: rate.NewLimiter(limit, 1),
		log:     applog.WithComponent("agent"),
	}
}

// Abort cancels the in-flight request, if any.
func (e *Escalator) Abort() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel(ErrAborted)
		e.cancel = nil
	}
}

// Close aborts any request and releases idle connections.
func (e *Escalator) Close() {
	e.Abort()
	e.client.CloseIdleConnections()
}

// begin cancels the previous request and registers a new one.
func (e *Escalator) begin(parent context.Context) (context.Context, uint64, func()) {
	ctx, cancel := context.WithCancelCause(parent)
	e.mu.Lock()
	if e.cancel != nil {
		e.cancel(errSuperseded)
	}
	e.seq++
	seq := e.seq
	e.cancel = cancel
	e.mu.Unlock()
	return ctx, seq, func() {
		e.mu.Lock()
		if e.seq == seq {
			e.cancel = nil
		}
		e.mu.Unlock()
		cancel(nil)
	}
}

// Escalate selects lines from p, sends them and merges the answer into drafts.
// It returns ErrNothingToEscalate without a request when no line qualifies.
func (e *Escalator) Escalate(ctx context.Context, drafts []domain.Draft, p review.Packet) (Outcome, error) {
	out := Outcome{Drafts: drafts}
	if e.cfg.Endpoint == "" {
		return out, ErrNoEndpoint
	}
	sel := Select(p, e.cfg.Ratio)
	if sel.Empty() {
		return out, ErrNothingToEscalate
	}
	out.Request = sel.Request(e.cfg.SessionID, p.TotalReviewed, review.RenderText(p))

	started := time.Now()
	ctx = applog.WithSession(ctx, e.cfg.SessionID)
	runCtx, seq, done := e.begin(ctx)
	defer done()
	runCtx, cancelDeadline := context.WithDeadline(runCtx, started.Add(e.cfg.Deadline))
	defer cancelDeadline()

	l := applog.WithOperation(e.log, "escalate").With(slog.Uint64("seq", seq))
	l.InfoContext(ctx, "escalating", slog.Int("lines", len(sel.Lines)), slog.Int("forced", len(sel.Forced)))

	body, attempts, err := e.send(runCtx, l, out.Request)
	out.Attempts = attempts
	out.Elapsed = time.Since(started)
	if err != nil {
		return e.finish(ctx, l, out, err)
	}

	parsed := ParseResponse(body)
	out.Strategy = parsed.Strategy
	if parsed.Err != nil {
		return e.finish(ctx, l, out, parsed.Err)
	}
	out.Response = parsed.Response
	if parsed.Discarded > 0 {
		l.WarnContext(ctx, "discarded malformed decisions", slog.Int("count", parsed.Discarded))
	}
	if out.Response.Status == StatusFailed {
		return e.finish(ctx, l, out, fmt.Errorf("%w: %s", ErrServiceError, out.Response.Message))
	}

	m, err := Merge(drafts, sel, out.Response.Decisions, e.cfg.ConfidenceFloor)
	out.Merge = m
	if err != nil {
		return e.finish(ctx, l, out, err)
	}
	out.Drafts = m.Drafts
	return e.finish(ctx, l, out, nil)
}

func (e *Escalator) finish(ctx context.Context, l *slog.Logger, out Outcome, err error) (Outcome, error) {
	outcome := "applied"
	switch {
	case err == nil && len(out.Merge.Applied) == 0:
		outcome = "skipped"
	case errors.Is(err, ErrAborted):
		outcome = "aborted"
	case err != nil:
		outcome = "failed"
	}
	telemetry.ObserveEscalation(outcome, out.Elapsed)
	telemetry.Escalation(ctx, outcome, out.Attempts, len(out.Request.SuspiciousLines), out.Elapsed)
	attrs := []any{
		slog.String("outcome", outcome),
		slog.Int("attempts", out.Attempts),
		slog.Duration("elapsed", out.Elapsed),
		slog.Int("applied", len(out.Merge.Applied)),
	}
	switch {
	case err == nil:
		l.InfoContext(ctx, "escalation finished", attrs...)
	case errors.Is(err, ErrAborted):
		l.WarnContext(ctx, "escalation aborted", attrs...)
	default:
		l.ErrorContext(ctx, "escalation failed", append(attrs, slog.String("error", err.Error()))...)
	}
	if err != nil {
		out.Drafts = append([]domain.Draft(nil), out.Drafts...)
	}
	return out, err
}

// send posts req until it succeeds, fails terminally, runs out of attempts or
// the run context ends.
func (e *Escalator) send(ctx context.Context, l *slog.Logger, req Request) ([]byte, int, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, 0, fmt.Errorf("encode request: %w", err)
	}
	var lastErr error
	attempt := 0
	for attempt < e.cfg.MaxAttempts {
		if attempt > 0 {
			if err := sleep(ctx, e.backoff(attempt)); err != nil {
				return nil, attempt, runError(ctx, lastErr)
			}
		}
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, attempt, runError(ctx, lastErr)
		}
		attempt++
		body, err := e.attempt(ctx, payload)
		if err == nil {
			telemetry.ObserveAttempt("ok")
			return body, attempt, nil
		}
		if ctx.Err() != nil {
			telemetry.ObserveAttempt("terminal")
			return nil, attempt, runError(ctx, err)
		}
		lastErr = err
		if !IsRetryable(err) {
			telemetry.ObserveAttempt("terminal")
			return nil, attempt, err
		}
		telemetry.ObserveAttempt("retry")
		l.WarnContext(ctx, "escalation attempt failed; retrying", slog.Int("attempt", attempt), slog.String("error", err.Error()))
	}
	return nil, attempt, fmt.Errorf("agent: %d attempts failed: %w", attempt, lastErr)
}

// attempt performs one POST bounded by the per-attempt timeout.
func (e *Escalator) attempt(ctx context.Context, payload []byte) ([]byte, error) {
	actx, cancel := context.WithTimeout(ctx, e.attemptTimeout(ctx))
	defer cancel()
	req, err := http.NewRequestWithContext(actx, http.MethodPost, e.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Session-Id", e.cfg.SessionID)
	if e.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+e.cfg.Token)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		// network failures and attempt timeouts alike
		return nil, retryable(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, retryable(fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body[:min(len(body), 200)]))}
	}
	return body, nil
}

// attemptTimeout is the remaining run time clamped to the attempt window.
func (e *Escalator) attemptTimeout(ctx context.Context) time.Duration {
	t := e.cfg.MaxAttemptTimeout
	if dl, ok := ctx.Deadline(); ok {
		t = time.Until(dl)
	}
	return min(max(t, e.cfg.MinAttemptTimeout), e.cfg.MaxAttemptTimeout)
}

func (e *Escalator) backoff(attempt int) time.Duration {
	d := e.cfg.Backoff << (attempt - 1)
	if d <= 0 || d > e.cfg.MaxBackoff {
		return e.cfg.MaxBackoff
	}
	return d
}

// runError names why the run context ended.
func runError(ctx context.Context, last error) error {
	cause := context.Cause(ctx)
	switch {
	case errors.Is(cause, context.DeadlineExceeded):
		if last != nil {
			return fmt.Errorf("%w (last error: %v)", ErrDeadlineExceeded, last)
		}
		return ErrDeadlineExceeded
	case cause != nil:
		return fmt.Errorf("%w: %v", ErrAborted, cause)
	}
	if last != nil {
		return last
	}
	return ErrAborted
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
