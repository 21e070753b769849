/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"goscreenplay/internal/domain"
	"goscreenplay/internal/memory"
)

var _ memory.Store = (*SQLStore)(nil)

// Load returns the stored tracker snapshot of sessionID.
func (s *SQLStore) Load(ctx context.Context, sessionID string) (memory.TrackerSnapshot, bool, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, s.q(`SELECT snapshot FROM sessions WHERE id = ?`), sessionID).Scan(&raw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return memory.TrackerSnapshot{}, false, nil
	case err != nil:
		return memory.TrackerSnapshot{}, false, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	var snap memory.TrackerSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return memory.TrackerSnapshot{}, false, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	return snap, true, nil
}

// Save upserts the tracker snapshot of sessionID.
func (s *SQLStore) Save(ctx context.Context, sessionID string, snap memory.TrackerSnapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sessionID, err)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = s.db.ExecContext(ctx, s.q(`INSERT INTO sessions (id, snapshot, created_at, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET snapshot = excluded.snapshot, updated_at = excluded.updated_at`),
		sessionID, string(b), now, now)
	if err != nil {
		return fmt.Errorf("save session %s: %w", sessionID, err)
	}
	return nil
}

// Run is one stored classification run.
type Run struct {
	ID        int64          `json:"id"`
	SessionID string         `json:"sessionId"`
	CreatedAt time.Time      `json:"createdAt"`
	Lines     int            `json:"lines"`
	Flagged   int            `json:"flagged"`
	Drafts    []domain.Draft `json:"drafts"`
}

// SaveRun appends r to the run history and returns its id.
func (s *SQLStore) SaveRun(ctx context.Context, r Run) (int64, error) {
	b, err := json.Marshal(r.Drafts)
	if err != nil {
		return 0, fmt.Errorf("encode run: %w", err)
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	var id int64
	err = s.db.QueryRowContext(ctx, s.q(`INSERT INTO runs (session_id, created_at, lines, flagged, drafts) VALUES (?, ?, ?, ?, ?) RETURNING id`),
		r.SessionID, r.CreatedAt.UTC().Format(time.RFC3339Nano), r.Lines, r.Flagged, string(b)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("save run for %s: %w", r.SessionID, err)
	}
	return id, nil
}

// LatestRun returns the newest run of sessionID.
func (s *SQLStore) LatestRun(ctx context.Context, sessionID string) (Run, bool, error) {
	var (
		r       Run
		created string
		drafts  []byte
	)
	err := s.db.QueryRowContext(ctx, s.q(`SELECT id, session_id, created_at, lines, flagged, drafts FROM runs WHERE session_id = ? ORDER BY id DESC LIMIT 1`), sessionID).
		Scan(&r.ID, &r.SessionID, &created, &r.Lines, &r.Flagged, &drafts)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return Run{}, false, nil
	case err != nil:
		return Run{}, false, fmt.Errorf("latest run for %s: %w", sessionID, err)
	}
	if r.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return Run{}, false, fmt.Errorf("run %d created_at: %w", r.ID, err)
	}
	if err := json.Unmarshal(drafts, &r.Drafts); err != nil {
		return Run{}, false, fmt.Errorf("decode run %d: %w", r.ID, err)
	}
	return r, true, nil
}

// SessionInfo summarises a stored session.
type SessionInfo struct {
	ID        string    `json:"id"`
	UpdatedAt time.Time `json:"updatedAt"`
	Runs      int       `json:"runs"`
}

// Sessions lists stored sessions, most recently updated first.
func (s *SQLStore) Sessions(ctx context.Context) ([]SessionInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT s.id, s.updated_at, COUNT(r.id)
		FROM sessions s LEFT JOIN runs r ON r.session_id = s.id
		GROUP BY s.id, s.updated_at
		ORDER BY s.updated_at DESC, s.id`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()
	var out []SessionInfo
	for rows.Next() {
		var (
			si      SessionInfo
			updated string
		)
		if err := rows.Scan(&si.ID, &updated, &si.Runs); err != nil {
			return nil, err
		}
		si.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
		out = append(out, si)
	}
	return out, rows.Err()
}
