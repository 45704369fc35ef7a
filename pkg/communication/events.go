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

package communication

import (
	"fmt"
	"path"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// EventName is one of the fixed event topics the service emits.
type EventName string

const (
	EventAgentRegistered    EventName = "agent_registered"
	EventAgentDeregistered  EventName = "agent_deregistered"
	EventAgentStatusChanged EventName = "agent_status_changed"
	EventSessionCreated     EventName = "session_created"
	EventSessionJoined      EventName = "session_joined"
	EventSessionLeft        EventName = "session_left"
	EventMessageSent        EventName = "message_sent"
	EventMessageReceived    EventName = "message_received"
	EventBroadcast          EventName = "broadcast"
	EventHealthChanged      EventName = "health_changed"
	EventNLACS              EventName = "nlacs_event"
)

// Event is one occurrence published to subscribers. Payload's concrete
// type depends on Name (Message for message_sent/message_received,
// ConversationSession for session_* events, and so on).
type Event struct {
	Name      EventName
	SessionID string
	AgentID   string
	Payload   any
	Timestamp time.Time
}

// EventHandler processes a delivered Event. Handlers must be fast; slow
// handlers fall behind their own queue and start losing the oldest
// pending events, never blocking other subscribers.
type EventHandler func(Event)

// defaultSubscriberBuffer bounds each subscriber's pending-event queue.
const defaultSubscriberBuffer = 64

// subscription is one registered handler. Isolated in its own goroutine
// and channel so a slow handler cannot stall delivery to anyone else,
// mirroring this lineage's per-subscriber channel broadcaster.
type subscription struct {
	id      string
	pattern string
	handler EventHandler

	mu      sync.Mutex
	ch      chan Event
	dropped atomic.Int64
	done    chan struct{}
}

// deliver enqueues ev, dropping the oldest pending event first if the
// subscriber's queue is already full.
func (s *subscription) deliver(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		select {
		case s.ch <- ev:
			return
		default:
			select {
			case <-s.ch:
				s.dropped.Add(1)
			default:
			}
		}
	}
}

func (s *subscription) run() {
	for {
		select {
		case ev := <-s.ch:
			s.handler(ev)
		case <-s.done:
			return
		}
	}
}

// eventBus is the publish/subscribe core backing On/Off. Grounded
// directly on this lineage's in-process message bus: a topic pattern
// registry, per-subscriber bounded channels, and non-blocking delivery
// with a drop counter, retargeted onto native Event values instead of
// generated wire types.
type eventBus struct {
	mu   sync.RWMutex
	subs map[string]*subscription

	logger         *zap.Logger
	totalPublished atomic.Int64
	totalDelivered atomic.Int64
	nextSubID      atomic.Int64
}

func newEventBus(logger *zap.Logger) *eventBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &eventBus{subs: make(map[string]*subscription), logger: logger}
}

// On registers handler for events whose name matches pattern (exact or
// a path.Match wildcard such as "session_*"). Returns a subscription id
// for Off.
func (b *eventBus) On(pattern string, handler EventHandler) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := fmt.Sprintf("sub-%s-%d", pattern, b.nextSubID.Add(1))
	sub := &subscription{
		id:      id,
		pattern: pattern,
		handler: handler,
		ch:      make(chan Event, defaultSubscriberBuffer),
		done:    make(chan struct{}),
	}
	b.subs[id] = sub
	go sub.run()
	return id
}

// Off unregisters a subscription.
func (b *eventBus) Off(id string) {
	b.mu.Lock()
	sub, ok := b.subs[id]
	if ok {
		delete(b.subs, id)
	}
	b.mu.Unlock()
	if ok {
		close(sub.done)
	}
}

// Publish delivers ev to every subscription whose pattern matches
// ev.Name, non-blocking, drop-oldest on backpressure.
func (b *eventBus) Publish(ev Event) {
	b.totalPublished.Add(1)

	b.mu.RLock()
	defer b.mu.RUnlock()
	delivered := 0
	for _, sub := range b.subs {
		if !eventMatches(sub.pattern, string(ev.Name)) {
			continue
		}
		sub.deliver(ev)
		delivered++
	}
	b.totalDelivered.Add(int64(delivered))

	b.logger.Debug("event published",
		zap.String("event", string(ev.Name)),
		zap.String("session_id", ev.SessionID),
		zap.Int("delivered", delivered))
}

func eventMatches(pattern, name string) bool {
	if pattern == name || pattern == "*" {
		return true
	}
	matched, err := path.Match(pattern, name)
	return err == nil && matched
}

// Dropped returns the total number of events dropped across all
// subscribers for slow-consumer backpressure, surfaced by C11.
func (b *eventBus) Dropped() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var total int64
	for _, sub := range b.subs {
		total += sub.dropped.Load()
	}
	return total
}
