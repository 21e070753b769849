/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Store persists tracker snapshots by session id.
type Store interface {
	Load(ctx context.Context, sessionID string) (TrackerSnapshot, bool, error)
	Save(ctx context.Context, sessionID string, s TrackerSnapshot) error
}

// CacheStore keeps snapshots in process with a TTL. Snapshots are stored encoded so
// callers never share slices or maps with the cache.
type CacheStore struct {
	c *gocache.Cache
}

// NewCacheStore creates an in-memory store; ttl <= 0 keeps entries until restart.
func NewCacheStore(ttl time.Duration) *CacheStore {
	exp := ttl
	cleanup := ttl * 2
	if ttl <= 0 {
		exp = gocache.NoExpiration
		cleanup = 0
	}
	return &CacheStore{c: gocache.New(exp, cleanup)}
}

// Load returns the snapshot for sessionID, if any.
func (s *CacheStore) Load(_ context.Context, sessionID string) (TrackerSnapshot, bool, error) {
	v, ok := s.c.Get(sessionID)
	if !ok {
		return TrackerSnapshot{}, false, nil
	}
	b, ok := v.([]byte)
	if !ok {
		return TrackerSnapshot{}, false, fmt.Errorf("session %s: unexpected cache value %T", sessionID, v)
	}
	var snap TrackerSnapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return TrackerSnapshot{}, false, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	return snap, true, nil
}

// Save replaces the snapshot for sessionID.
func (s *CacheStore) Save(_ context.Context, sessionID string, snap TrackerSnapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sessionID, err)
	}
	s.c.SetDefault(sessionID, b)
	return nil
}

// LoadTracker restores the session's tracker from st, or returns a fresh one.
func LoadTracker(ctx context.Context, st Store, sessionID string, capacity int) (*Tracker, error) {
	if st == nil || sessionID == "" {
		return NewTracker(capacity), nil
	}
	snap, ok, err := st.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return NewTracker(capacity), nil
	}
	return RestoreTracker(snap, capacity), nil
}
