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
	"container/ring"
	"fmt"
	"sync"
	"time"

	"github.com/oneagent-dev/oneagent/pkg/backbone"
	"github.com/oneagent-dev/oneagent/pkg/oneerr"
)

// EventLog is the pluggable persistence shape for the per-(session,stream)
// event buffer that makes SSE streams resumable.
type EventLog interface {
	AddEvent(sessionID, streamID string, payload []byte, typ EventType) (Event, error)
	GetEventsAfter(sessionID, streamID, lastEventID string) (events []Event, unknownLastEventID bool, err error)
	ClearSessionEvents(sessionID string) error
	CleanupOldEvents(ttl time.Duration) (int, error)
}

const (
	eventsCounterPrefix = "events:counter:"
	eventsBufferPrefix  = "events:"
)

// maxSequenceRetries bounds the optimistic-locking retry loop on the
// per-(session,stream) sequence counter.
const maxSequenceRetries = 16

// streamBuffer is the circular buffer of recent events for one
// (session,stream) pair, plus the bookkeeping needed for TTL eviction.
type streamBuffer struct {
	mu     sync.Mutex
	ring   *ring.Ring
	size   int
	lastID string
}

func newStreamBuffer(capacity int) *streamBuffer {
	if capacity <= 0 {
		capacity = 1000
	}
	return &streamBuffer{ring: ring.New(capacity)}
}

// CacheEventLog implements EventLog against the backbone cache: each
// (session,stream) sequence counter and a snapshot of its events live in
// cache entries, while the streamBuffers themselves are kept in a
// mutex-guarded map on the CacheEventLog.
type CacheEventLog struct {
	cache       *backbone.Cache
	clock       backbone.Clock
	idGen       func(kind string) string
	maxPerBuf   int
	mu          sync.Mutex
	buffers     map[string]*streamBuffer
}

// NewCacheEventLog constructs a CacheEventLog. maxEventsPerSession bounds
// the circular buffer capacity per (session,stream).
func NewCacheEventLog(cache *backbone.Cache, clock backbone.Clock, newID func(kind string) string, maxEventsPerSession int) *CacheEventLog {
	return &CacheEventLog{
		cache:     cache,
		clock:     clock,
		idGen:     newID,
		maxPerBuf: maxEventsPerSession,
		buffers:   make(map[string]*streamBuffer),
	}
}

func bufferKey(sessionID, streamID string) string {
	return sessionID + "\x00" + streamID
}

func (l *CacheEventLog) bufferFor(sessionID, streamID string) *streamBuffer {
	key := bufferKey(sessionID, streamID)
	l.mu.Lock()
	defer l.mu.Unlock()
	buf, ok := l.buffers[key]
	if !ok {
		buf = newStreamBuffer(l.maxPerBuf)
		l.buffers[key] = buf
	}
	return buf
}

// AddEvent appends a new event, enforcing the strictly-increasing
// per-(session,stream) sequence number via a bounded optimistic retry
// against the backbone cache counter.
func (l *CacheEventLog) AddEvent(sessionID, streamID string, payload []byte, typ EventType) (Event, error) {
	counterKey := eventsCounterPrefix + sessionID + ":" + streamID
	var seq uint64
	var attempt int
	for attempt = 0; attempt < maxSequenceRetries; attempt++ {
		err := l.cache.UpdateIf(counterKey, 0, func(current any, exists bool) (any, error) {
			if !exists {
				seq = 0
				return uint64(1), nil
			}
			seq = current.(uint64)
			return seq + 1, nil
		})
		if err == nil {
			break
		}
	}
	if attempt >= maxSequenceRetries {
		return Event{}, oneerr.New(oneerr.SequenceContention, "sequence contention on %s", counterKey)
	}

	event := Event{
		ID:        l.idGen("event"),
		SessionID: sessionID,
		StreamID:  streamID,
		Sequence:  seq,
		Timestamp: l.clock.Now(),
		Payload:   payload,
		Type:      typ,
	}

	buf := l.bufferFor(sessionID, streamID)
	buf.mu.Lock()
	buf.ring.Value = event
	buf.ring = buf.ring.Next()
	if buf.size < l.maxPerBuf {
		buf.size++
	}
	buf.lastID = event.ID
	buf.mu.Unlock()

	l.persistSnapshot(sessionID, streamID, buf)
	return event, nil
}

// persistSnapshot mirrors the in-memory ring into the backbone cache at
// events:{sessionId}:{streamId} so other processes/tests can inspect the
// bounded event list without reaching into the ring directly.
func (l *CacheEventLog) persistSnapshot(sessionID, streamID string, buf *streamBuffer) {
	buf.mu.Lock()
	events := make([]Event, 0, buf.size)
	buf.ring.Do(func(v any) {
		if v == nil {
			return
		}
		events = append(events, v.(Event))
	})
	buf.mu.Unlock()
	l.cache.Set(eventsBufferPrefix+sessionID+":"+streamID, events, 0)
}

// GetEventsAfter returns events with sequence > seq(lastEventID). If
// lastEventID is empty, the whole buffer is returned. If lastEventID is
// non-empty but not found in the buffer, the full buffer is returned
// along with unknownLastEventID=true so the caller can surface the
// unknown_last_event warning.
func (l *CacheEventLog) GetEventsAfter(sessionID, streamID, lastEventID string) ([]Event, bool, error) {
	buf := l.bufferFor(sessionID, streamID)
	buf.mu.Lock()
	defer buf.mu.Unlock()

	all := make([]Event, 0, buf.size)
	buf.ring.Do(func(v any) {
		if v == nil {
			return
		}
		all = append(all, v.(Event))
	})

	if lastEventID == "" {
		return all, false, nil
	}

	idx := -1
	for i, e := range all {
		if e.ID == lastEventID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return all, true, nil
	}
	return all[idx+1:], false, nil
}

// ClearSessionEvents drops every stream buffer belonging to sessionID.
func (l *CacheEventLog) ClearSessionEvents(sessionID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	prefix := sessionID + "\x00"
	for key := range l.buffers {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(l.buffers, key)
		}
	}
	cachePrefix := fmt.Sprintf("%s%s:", eventsBufferPrefix, sessionID)
	for key := range l.cache.ListByPrefix(cachePrefix) {
		l.cache.Delete(key)
	}
	return nil
}

// CleanupOldEvents removes events older than ttl from every buffer,
// independent of the circular-buffer cap, per the dual eviction policy
// resolved in SPEC_FULL.md §9.
func (l *CacheEventLog) CleanupOldEvents(ttl time.Duration) (int, error) {
	cutoff := l.clock.Now().Add(-ttl)
	l.mu.Lock()
	bufs := make(map[string]*streamBuffer, len(l.buffers))
	for k, v := range l.buffers {
		bufs[k] = v
	}
	l.mu.Unlock()

	removed := 0
	for key, buf := range bufs {
		buf.mu.Lock()
		kept := make([]Event, 0, buf.size)
		buf.ring.Do(func(v any) {
			if v == nil {
				return
			}
			ev := v.(Event)
			if ev.Timestamp.Before(cutoff) {
				removed++
				return
			}
			kept = append(kept, ev)
		})
		if removed > 0 {
			fresh := ring.New(l.maxPerBuf)
			for _, ev := range kept {
				fresh.Value = ev
				fresh = fresh.Next()
			}
			buf.ring = fresh
			buf.size = len(kept)
		}
		buf.mu.Unlock()
		if buf.size > 0 {
			parts := splitBufferKey(key)
			l.persistSnapshot(parts[0], parts[1], buf)
		}
	}
	return removed, nil
}

func splitBufferKey(key string) [2]string {
	for i := 0; i < len(key); i++ {
		if key[i] == '\x00' {
			return [2]string{key[:i], key[i+1:]}
		}
	}
	return [2]string{key, ""}
}

var _ EventLog = (*CacheEventLog)(nil)
