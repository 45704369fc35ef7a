// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package session

import (
	"sync"
	"time"

	"github.com/oneagent-dev/oneagent/pkg/backbone"
	"github.com/oneagent-dev/oneagent/pkg/oneerr"
)

// SessionStorage is the pluggable persistence shape for Session records.
// The default implementation lives on top of the backbone cache; an
// alternative sqlite-backed implementation (SQLiteStorage) satisfies the
// same interface for deployments that want durability across restarts.
type SessionStorage interface {
	Create(s Session) error
	Get(id string) (*Session, error)
	Update(id string, patch func(*Session)) (*Session, error)
	Delete(id string) error
	ListActive() ([]Session, error)
	CleanupExpired(now time.Time) (int, error)
}

const (
	sessionKeyPrefix = "session:"
	stateSetPrefix   = "session:state:"
)

// CacheStorage implements SessionStorage against the backbone cache.
type CacheStorage struct {
	cache *backbone.Cache
	mu    sync.Mutex
}

// NewCacheStorage constructs a CacheStorage over the given backbone cache.
func NewCacheStorage(cache *backbone.Cache) *CacheStorage {
	return &CacheStorage{cache: cache}
}

func sessionKey(id string) string { return sessionKeyPrefix + id }
func stateSetKey(state State) string { return stateSetPrefix + string(state) }

func (s *CacheStorage) Create(sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cache.Get(sessionKey(sess.ID)); ok {
		return oneerr.New(oneerr.AlreadyExists, "session %s already exists", sess.ID)
	}
	s.cache.Set(sessionKey(sess.ID), sess, 0)
	s.addToStateSet(sess.State, sess.ID)
	return nil
}

// Get returns the session, or nil (not an error) if missing.
func (s *CacheStorage) Get(id string) (*Session, error) {
	raw, ok := s.cache.Get(sessionKey(id))
	if !ok {
		return nil, nil
	}
	sess := raw.(Session)
	return &sess, nil
}

// Update applies patch to the stored session, maintaining state-set
// membership if the state changed.
func (s *CacheStorage) Update(id string, patch func(*Session)) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok := s.cache.Get(sessionKey(id))
	if !ok {
		return nil, oneerr.New(oneerr.NotFound, "session %s not found", id)
	}
	sess := raw.(Session)
	prevState := sess.State
	patch(&sess)
	s.cache.Set(sessionKey(id), sess, 0)
	if sess.State != prevState {
		s.removeFromStateSet(prevState, id)
		s.addToStateSet(sess.State, id)
	}
	return &sess, nil
}

func (s *CacheStorage) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok := s.cache.Get(sessionKey(id))
	if ok {
		sess := raw.(Session)
		s.removeFromStateSet(sess.State, id)
	}
	s.cache.Delete(sessionKey(id))
	return nil
}

// ListActive returns every session currently in the ACTIVE state set.
func (s *CacheStorage) ListActive() ([]Session, error) {
	raw, ok := s.cache.Get(stateSetKey(StateActive))
	if !ok {
		return nil, nil
	}
	ids := raw.(map[string]struct{})
	out := make([]Session, 0, len(ids))
	for id := range ids {
		sraw, ok := s.cache.Get(sessionKey(id))
		if !ok {
			continue
		}
		out = append(out, sraw.(Session))
	}
	return out, nil
}

// CleanupExpired transitions every ACTIVE session whose expiresAt has
// passed into EXPIRED, returning the count transitioned.
func (s *CacheStorage) CleanupExpired(now time.Time) (int, error) {
	active, err := s.ListActive()
	if err != nil {
		return 0, err
	}
	count := 0
	for _, sess := range active {
		if now.Before(sess.ExpiresAt) {
			continue
		}
		if _, err := s.Update(sess.ID, func(sp *Session) { sp.State = StateExpired }); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func (s *CacheStorage) addToStateSet(state State, id string) {
	key := stateSetKey(state)
	raw := s.cache.GetOrCreate(key, 0, func() any { return make(map[string]struct{}) })
	set := raw.(map[string]struct{})
	set[id] = struct{}{}
	s.cache.Set(key, set, 0)
}

func (s *CacheStorage) removeFromStateSet(state State, id string) {
	key := stateSetKey(state)
	raw, ok := s.cache.Get(key)
	if !ok {
		return
	}
	set := raw.(map[string]struct{})
	delete(set, id)
	s.cache.Set(key, set, 0)
}

var _ SessionStorage = (*CacheStorage)(nil)
