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
	"sync"
	"sync/atomic"

	"github.com/oneagent-dev/oneagent/pkg/agent"
	"github.com/oneagent-dev/oneagent/pkg/backbone"
	"github.com/oneagent-dev/oneagent/pkg/oneerr"
	"go.uber.org/zap"
)

const (
	sessionKeyPrefix = "conv:"
	historySuffix    = ":history"

	// defaultQueueCapacity bounds a session's pending-send queue before
	// SendMessage starts returning queue_full.
	defaultQueueCapacity = 256
)

// Config configures a Service.
type Config struct {
	// QueueCapacity bounds each session's inbound send queue.
	QueueCapacity int
}

// Service implements the communication service (C9): session lifecycle,
// message delivery, and the event bus other components subscribe to.
type Service struct {
	cache  *backbone.Cache
	bb     *backbone.Backbone
	agents *agent.Registry
	logger *zap.Logger
	bus    *eventBus

	queueCap int

	mu       sync.Mutex
	sessions map[string]*sessionQueue

	messagesSent   atomic.Int64
	messagesDrop   atomic.Int64
}

// sessionQueue serializes sends for one ConversationSession: messages
// for a single session are applied in FIFO order while different
// sessions proceed fully in parallel.
type sessionQueue struct {
	inbox chan *sendJob
	done  chan struct{}
}

type sendJob struct {
	req       SendMessageRequest
	broadcast bool
	result    chan sendResult
}

type sendResult struct {
	id  string
	err error
}

// New constructs a Service. agents is used to validate participants at
// CreateSession time; it may be nil in tests that construct sessions
// with pre-validated participant lists.
func New(bb *backbone.Backbone, agents *agent.Registry, logger *zap.Logger, cfg Config) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = defaultQueueCapacity
	}
	return &Service{
		cache:    bb.Cache(),
		bb:       bb,
		agents:   agents,
		logger:   logger,
		bus:      newEventBus(logger),
		queueCap: cfg.QueueCapacity,
		sessions: make(map[string]*sessionQueue),
	}
}

// On registers handler for events matching pattern; see EventName.
func (s *Service) On(pattern string, handler EventHandler) string { return s.bus.On(pattern, handler) }

// Off unregisters a subscription returned by On.
func (s *Service) Off(id string) { s.bus.Off(id) }

// Publish emits an event on the shared bus on behalf of a layered
// component (C10's NLACS layer emits nlacs_event and health_changed
// through this instead of maintaining a parallel bus).
func (s *Service) Publish(name EventName, sessionID, agentID string, payload any) {
	s.bus.Publish(Event{Name: name, SessionID: sessionID, AgentID: agentID, Timestamp: s.bb.Now(), Payload: payload})
}

// CreateSession rejects an empty participant list, validates that every
// participant is a known agent (when a Registry is configured) and
// stores a new ConversationSession.
func (s *Service) CreateSession(req CreateSessionRequest) (string, error) {
	if len(req.Participants) == 0 {
		return "", oneerr.New(oneerr.InvalidParams, "a session needs at least one participant")
	}
	if s.agents != nil {
		for _, p := range req.Participants {
			if s.agents.Get(p) == nil {
				return "", oneerr.New(oneerr.InvalidParams, "participant %s is not a known agent", p)
			}
		}
	}
	if req.Mode == "" {
		req.Mode = ModeCollaborative
	}

	cs := ConversationSession{
		ID:           s.bb.NewID("conv"),
		Name:         req.Name,
		Participants: append([]string(nil), req.Participants...),
		Mode:         req.Mode,
		Topic:        req.Topic,
		Status:       SessionActive,
		CreatedAt:    s.bb.Now(),
		NLACS:        req.NLACS,
	}
	s.cache.Set(sessionKeyPrefix+cs.ID, cs, 0)
	s.cache.Set(sessionKeyPrefix+cs.ID+historySuffix, []Message{}, 0)

	s.bus.Publish(Event{Name: EventSessionCreated, SessionID: cs.ID, Timestamp: s.bb.Now(), Payload: cs})
	return cs.ID, nil
}

// GetSessionInfo returns the session by id, or session_not_found.
func (s *Service) GetSessionInfo(id string) (ConversationSession, error) {
	raw, ok := s.cache.Get(sessionKeyPrefix + id)
	if !ok {
		return ConversationSession{}, oneerr.New(oneerr.SessionNotFound, "conversation session %s not found", id)
	}
	return raw.(ConversationSession), nil
}

func (s *Service) updateSession(id string, mutate func(*ConversationSession)) (ConversationSession, error) {
	raw, ok := s.cache.Get(sessionKeyPrefix + id)
	if !ok {
		return ConversationSession{}, oneerr.New(oneerr.SessionNotFound, "conversation session %s not found", id)
	}
	cs := raw.(ConversationSession)
	mutate(&cs)
	s.cache.Set(sessionKeyPrefix+id, cs, 0)
	return cs, nil
}

// Join adds agentID to the session's participant list. Idempotent:
// joining twice returns true both times with no duplicate entry.
func (s *Service) Join(sessionID, agentID string) (bool, error) {
	cs, err := s.updateSession(sessionID, func(cs *ConversationSession) {
		if !cs.hasParticipant(agentID) {
			cs.Participants = append(cs.Participants, agentID)
		}
	})
	if err != nil {
		return false, err
	}
	s.bus.Publish(Event{Name: EventSessionJoined, SessionID: sessionID, AgentID: agentID, Timestamp: s.bb.Now(), Payload: cs})
	return true, nil
}

// Leave removes agentID from the session's participant list. Idempotent.
func (s *Service) Leave(sessionID, agentID string) (bool, error) {
	cs, err := s.updateSession(sessionID, func(cs *ConversationSession) {
		out := cs.Participants[:0]
		for _, p := range cs.Participants {
			if p != agentID {
				out = append(out, p)
			}
		}
		cs.Participants = out
	})
	if err != nil {
		return false, err
	}
	s.bus.Publish(Event{Name: EventSessionLeft, SessionID: sessionID, AgentID: agentID, Timestamp: s.bb.Now(), Payload: cs})
	return true, nil
}

// queueFor returns (creating if needed) the serializing worker for a
// session.
func (s *Service) queueFor(sessionID string) *sessionQueue {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.sessions[sessionID]
	if ok {
		return q
	}
	q = &sessionQueue{
		inbox: make(chan *sendJob, s.queueCap),
		done:  make(chan struct{}),
	}
	s.sessions[sessionID] = q
	go s.runSessionQueue(sessionID, q)
	return q
}

func (s *Service) runSessionQueue(sessionID string, q *sessionQueue) {
	for {
		select {
		case job := <-q.inbox:
			job.result <- s.applySend(sessionID, job.req, job.broadcast)
		case <-q.done:
			return
		}
	}
}

// SendMessage delivers a directed (or, if ToAgent is empty, broadcast)
// message. fromAgent and, when set, toAgent must be session
// participants. Returns queue_full if the session's inbound queue is
// saturated; the service does not retry on the caller's behalf.
func (s *Service) SendMessage(req SendMessageRequest) (string, error) {
	return s.enqueue(req, req.ToAgent == "")
}

// BroadcastMessage delivers req to every other participant, ignoring
// any ToAgent on req.
func (s *Service) BroadcastMessage(req SendMessageRequest) (string, error) {
	req.ToAgent = ""
	return s.enqueue(req, true)
}

func (s *Service) enqueue(req SendMessageRequest, broadcast bool) (string, error) {
	q := s.queueFor(req.SessionID)
	job := &sendJob{req: req, broadcast: broadcast, result: make(chan sendResult, 1)}
	select {
	case q.inbox <- job:
	default:
		s.messagesDrop.Add(1)
		return "", oneerr.New(oneerr.QueueFull, "session %s inbound queue is full", req.SessionID)
	}
	res := <-job.result
	return res.id, res.err
}

// applySend runs on the session's single serializing goroutine: the
// validate-append-publish sequence for one message.
func (s *Service) applySend(sessionID string, req SendMessageRequest, broadcast bool) sendResult {
	cs, err := s.GetSessionInfo(sessionID)
	if err != nil {
		return sendResult{err: err}
	}
	if !cs.hasParticipant(req.FromAgent) {
		return sendResult{err: oneerr.New(oneerr.InvalidParams, "agent %s is not a participant of session %s", req.FromAgent, sessionID)}
	}
	if !broadcast && req.ToAgent != "" && !cs.hasParticipant(req.ToAgent) {
		return sendResult{err: oneerr.New(oneerr.InvalidParams, "agent %s is not a participant of session %s", req.ToAgent, sessionID)}
	}
	if len([]rune(req.Content)) > 10000 {
		return sendResult{err: oneerr.New(oneerr.InvalidParams, "message content exceeds 10000 characters")}
	}
	if req.Type == "" {
		req.Type = MessageUpdate
	}

	historyKey := sessionKeyPrefix + sessionID + historySuffix
	raw, _ := s.cache.Get(historyKey)
	history, _ := raw.([]Message)

	msg := Message{
		ID:        s.bb.NewID("msg"),
		SessionID: sessionID,
		FromAgent: req.FromAgent,
		ToAgent:   req.ToAgent,
		Content:   req.Content,
		Type:      req.Type,
		Timestamp: s.bb.Now(),
		Metadata:  req.Metadata,
		Sequence:  uint64(len(history)),
	}
	history = append(history, msg)
	s.cache.Set(historyKey, history, 0)
	s.messagesSent.Add(1)

	evName := EventMessageReceived
	if broadcast {
		evName = EventBroadcast
	}
	s.bus.Publish(Event{Name: EventMessageSent, SessionID: sessionID, AgentID: req.FromAgent, Timestamp: msg.Timestamp, Payload: msg})
	for _, p := range cs.Participants {
		if p == req.FromAgent {
			continue
		}
		if !broadcast && req.ToAgent != "" && p != req.ToAgent {
			continue
		}
		s.bus.Publish(Event{Name: evName, SessionID: sessionID, AgentID: p, Timestamp: msg.Timestamp, Payload: msg})
	}

	return sendResult{id: msg.ID}
}

// GetHistory returns up to limit of the most recent messages in
// creation order (limit<=0 means no limit).
func (s *Service) GetHistory(sessionID string, limit int) ([]Message, error) {
	if _, err := s.GetSessionInfo(sessionID); err != nil {
		return nil, err
	}
	raw, _ := s.cache.Get(sessionKeyPrefix + sessionID + historySuffix)
	history, _ := raw.([]Message)
	if limit <= 0 || limit >= len(history) {
		out := make([]Message, len(history))
		copy(out, history)
		return out, nil
	}
	start := len(history) - limit
	out := make([]Message, limit)
	copy(out, history[start:])
	return out, nil
}

// Dropped returns the total number of events dropped across all event
// subscribers, for C11.
func (s *Service) Dropped() int64 { return s.bus.Dropped() }

// MessagesSent returns the total number of successfully applied sends.
func (s *Service) MessagesSent() int64 { return s.messagesSent.Load() }

// MessagesQueueDropped returns the number of sends rejected with
// queue_full.
func (s *Service) MessagesQueueDropped() int64 { return s.messagesDrop.Load() }

// Close stops every session's serializing goroutine. Safe to call once
// during shutdown.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, q := range s.sessions {
		close(q.done)
	}
}
