/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"goscreenplay/internal/agent"
	applog "goscreenplay/internal/log"
	"goscreenplay/internal/telemetry"
	"goscreenplay/internal/version"
)

const (
	maxBodyBytes    = 8 << 20
	devSecret       = "dev-secret-change-me"
	defaultTokenTTL = time.Hour
	maxTokenTTL     = 24 * time.Hour
	shutdownTimeout = 5 * time.Second
)

// Server exposes a Service over HTTP.
type Server struct {
	svc    *Service
	secret string
	log    *slog.Logger
	mux    *http.ServeMux
}

// NewServer builds the routes. An empty secret selects an insecure development secret.
func NewServer(svc *Service, secret string) *Server {
	s := &Server{svc: svc, secret: secret, log: applog.WithComponent("backend"), mux: http.NewServeMux()}
	if s.secret == "" {
		s.secret = devSecret
		s.log.Warn("auth secret not set; using insecure dev secret")
	}
	s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	s.mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.svc.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("store not ready"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	s.mux.HandleFunc("GET /version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("goscreenplay " + version.String()))
	})
	s.mux.Handle("GET /metrics", telemetry.MetricsHandler())

	s.mux.HandleFunc("POST /api/auth/token", s.handleToken)
	s.mux.HandleFunc("POST /api/classify", withAuth(s.secret, s.handleClassify))
	s.mux.HandleFunc("POST /api/review", withAuth(s.secret, s.handleReview))
	s.mux.HandleFunc("GET /api/sessions/{id}", withAuth(s.secret, s.handleSession))
}

// POST /api/auth/token → { token, expires_at }
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	// Optional JSON body: { "subject": "name", "ttl_seconds": 3600 }
	var req struct {
		Subject    string `json:"subject"`
		TTLSeconds int64  `json:"ttl_seconds"`
	}
	_ = decodeBody(r, &req)
	if req.Subject == "" {
		req.Subject = "dev"
	}
	ttl := time.Duration(req.TTLSeconds) * time.Second
	if ttl <= 0 || ttl > maxTokenTTL {
		ttl = defaultTokenTTL
	}
	exp := time.Now().Add(ttl)
	tok, err := SignToken(s.secret, req.Subject, exp)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token":      tok,
		"expires_at": exp.UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request, sub string) {
	var req ClassifyRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Text) == "" && len(req.Blocks) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("text or blocks required"))
		return
	}
	res, err := s.svc.Classify(r.Context(), req)
	if err != nil {
		s.log.ErrorContext(r.Context(), "classify failed", slog.String("subject", sub), slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleReview answers escalation requests with LocalReview.
func (s *Server) handleReview(w http.ResponseWriter, r *http.Request, _ string) {
	var req agent.Request
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, agent.Response{Status: agent.StatusFailed, Model: LocalModel, Message: err.Error()})
		return
	}
	ctx := applog.WithSession(r.Context(), req.SessionID)
	resp := LocalReview(req)
	s.log.InfoContext(ctx, "reviewed escalation",
		slog.Int("lines", len(req.SuspiciousLines)),
		slog.Int("decisions", len(resp.Decisions)),
		slog.String("status", string(resp.Status)))
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request, _ string) {
	id := r.PathValue("id")
	v, ok, err := s.svc.Session(r.Context(), id)
	switch {
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
	case !ok:
		writeError(w, http.StatusNotFound, fmt.Errorf("no session %q", id))
	default:
		writeJSON(w, http.StatusOK, v)
	}
}

func decodeBody(r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty body")
		}
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	base := context.WithoutCancel(ctx)
	srv := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return base },
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.log.Info("listening", slog.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(base, shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.log.Info("stopped")
	return nil
}
