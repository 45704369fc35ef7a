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
	"sync/atomic"
	"time"

	"github.com/oneagent-dev/oneagent/pkg/backbone"
	"github.com/oneagent-dev/oneagent/pkg/oneerr"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// TouchResult reports the outcome of Manager.Touch.
type TouchResult string

const (
	TouchOK       TouchResult = "ok"
	TouchExpired  TouchResult = "expired"
	TouchNotFound TouchResult = "not_found"
)

// Metrics is the aggregate snapshot Manager.Metrics returns; C11 reads
// this to populate /health/sessions.
type Metrics struct {
	SessionsActive       int
	SessionsCreated      int64
	SessionsExpired      int64
	SessionsTerminated   int64
	EventsAdded          int64
	EventsReplayed       int64
	SequenceContentions  int64
}

// Manager owns session lifecycle and the event surface (C4). It is the
// only component permitted to mutate Session/Event state; everything
// else goes through these methods.
type Manager struct {
	storage  SessionStorage
	events   EventLog
	backbone *backbone.Backbone
	logger   *zap.Logger

	idleTimeout time.Duration
	maxEvents   int

	cleanupInterval time.Duration
	eventTTL        time.Duration
	cronSchedule    string
	cronEngine      *cron.Cron
	stopJanitor     chan struct{}
	janitorDone     chan struct{}

	created      int64
	expired      int64
	terminated   int64
	eventsAdded  int64
	eventsReplay int64
	seqConflicts int64
}

// Config configures the Manager's timeouts and janitor cadence.
type Config struct {
	IdleTimeout         time.Duration
	MaxEventsPerSession int
	CleanupInterval     time.Duration
	EventTTL            time.Duration
	CleanupCron         string // optional; overrides CleanupInterval when set
}

// NewManager constructs a Manager over the given storage/event log.
func NewManager(storage SessionStorage, events EventLog, bb *backbone.Backbone, logger *zap.Logger, cfg Config) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 30 * time.Minute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}
	if cfg.EventTTL <= 0 {
		cfg.EventTTL = time.Hour
	}
	if cfg.MaxEventsPerSession <= 0 {
		cfg.MaxEventsPerSession = 1000
	}
	return &Manager{
		storage:         storage,
		events:          events,
		backbone:        bb,
		logger:          logger,
		idleTimeout:     cfg.IdleTimeout,
		maxEvents:       cfg.MaxEventsPerSession,
		cleanupInterval: cfg.CleanupInterval,
		eventTTL:        cfg.EventTTL,
		cronSchedule:    cfg.CleanupCron,
		stopJanitor:     make(chan struct{}),
		janitorDone:     make(chan struct{}),
	}
}

// Create issues a new session, to be echoed via Mcp-Session-Id.
func (m *Manager) Create(clientID, origin, protocolVersion string, capabilities map[string]any, meta map[string]any) (id string, expiresAt time.Time, err error) {
	now := m.backbone.Now()
	id = m.backbone.NewID("session")
	expiresAt = now.Add(m.idleTimeout)
	sess := Session{
		ID:              id,
		ClientID:        clientID,
		Origin:          origin,
		ProtocolVersion: protocolVersion,
		Capabilities:    capabilities,
		CreatedAt:       now,
		LastActivity:    now,
		ExpiresAt:       expiresAt,
		State:           StateActive,
		Metadata:        meta,
	}
	if err := m.storage.Create(sess); err != nil {
		return "", time.Time{}, err
	}
	atomic.AddInt64(&m.created, 1)
	m.logger.Info("session created", zap.String("session", maskID(id)), zap.String("client", clientID))
	return id, expiresAt, nil
}

// Get returns the session, transitioning it to EXPIRED as a side effect
// if its expiry has passed, and returning nil in that case.
func (m *Manager) Get(id string) (*Session, error) {
	sess, err := m.storage.Get(id)
	if err != nil || sess == nil {
		return nil, err
	}
	if sess.State == StateActive && !m.backbone.Now().Before(sess.ExpiresAt) {
		if _, uerr := m.storage.Update(id, func(s *Session) { s.State = StateExpired }); uerr != nil {
			return nil, uerr
		}
		atomic.AddInt64(&m.expired, 1)
		return nil, nil
	}
	if sess.State != StateActive {
		return nil, nil
	}
	return sess, nil
}

// Touch extends a session's expiry on authenticated activity.
func (m *Manager) Touch(id string) (TouchResult, error) {
	sess, err := m.storage.Get(id)
	if err != nil {
		return TouchNotFound, err
	}
	if sess == nil {
		return TouchNotFound, nil
	}
	if sess.State != StateActive {
		return TouchExpired, nil
	}
	now := m.backbone.Now()
	if !now.Before(sess.ExpiresAt) {
		if _, uerr := m.storage.Update(id, func(s *Session) { s.State = StateExpired }); uerr != nil {
			return TouchExpired, uerr
		}
		atomic.AddInt64(&m.expired, 1)
		return TouchExpired, nil
	}
	_, err = m.storage.Update(id, func(s *Session) {
		s.LastActivity = now
		s.ExpiresAt = now.Add(m.idleTimeout)
	})
	if err != nil {
		return TouchNotFound, err
	}
	return TouchOK, nil
}

// Terminate ends a session explicitly and purges its event log.
func (m *Manager) Terminate(id string) error {
	_, err := m.storage.Update(id, func(s *Session) { s.State = StateTerminated })
	if err != nil {
		return err
	}
	if err := m.events.ClearSessionEvents(id); err != nil {
		return err
	}
	atomic.AddInt64(&m.terminated, 1)
	m.logger.Info("session terminated", zap.String("session", maskID(id)))
	return nil
}

// AddEvent persists a frame for (sessionID, streamID) and bumps the
// session's monotonic event counter.
func (m *Manager) AddEvent(sessionID, streamID string, payload []byte, typ EventType) (string, error) {
	event, err := m.events.AddEvent(sessionID, streamID, payload, typ)
	if err != nil {
		if oneerr.Is(err, oneerr.SequenceContention) {
			atomic.AddInt64(&m.seqConflicts, 1)
		}
		return "", err
	}
	if _, uerr := m.storage.Update(sessionID, func(s *Session) { s.EventCounter++ }); uerr != nil {
		return "", uerr
	}
	atomic.AddInt64(&m.eventsAdded, 1)
	return event.ID, nil
}

// ReplayResult is returned by ReplayEvents.
type ReplayResult struct {
	Events   []Event
	Warnings []string
}

// ReplayEvents returns events strictly after lastEventID (or the whole
// buffer when lastEventID is empty), warning on an unknown lastEventID.
func (m *Manager) ReplayEvents(sessionID, streamID, lastEventID string) (ReplayResult, error) {
	events, unknown, err := m.events.GetEventsAfter(sessionID, streamID, lastEventID)
	if err != nil {
		return ReplayResult{}, err
	}
	atomic.AddInt64(&m.eventsReplay, int64(len(events)))
	res := ReplayResult{Events: events}
	if unknown {
		res.Warnings = append(res.Warnings, "unknown_last_event")
	}
	return res, nil
}

// Metrics returns an aggregate snapshot for C11.
func (m *Manager) Metrics() Metrics {
	active, _ := m.storage.ListActive()
	return Metrics{
		SessionsActive:      len(active),
		SessionsCreated:     atomic.LoadInt64(&m.created),
		SessionsExpired:     atomic.LoadInt64(&m.expired),
		SessionsTerminated:  atomic.LoadInt64(&m.terminated),
		EventsAdded:         atomic.LoadInt64(&m.eventsAdded),
		EventsReplayed:      atomic.LoadInt64(&m.eventsReplay),
		SequenceContentions: atomic.LoadInt64(&m.seqConflicts),
	}
}

// StartJanitor launches the periodic sweep that is the only component
// permitted to scan the store. If cronSchedule was configured, a
// robfig/cron schedule drives it; otherwise a plain ticker at
// cleanupInterval is used.
func (m *Manager) StartJanitor() {
	if m.cronSchedule != "" {
		m.cronEngine = cron.New()
		_, err := m.cronEngine.AddFunc(m.cronSchedule, m.sweep)
		if err != nil {
			m.logger.Error("invalid janitor cron schedule, falling back to interval", zap.Error(err))
			m.cronSchedule = ""
		} else {
			m.cronEngine.Start()
			return
		}
	}
	go func() {
		defer close(m.janitorDone)
		ticker := time.NewTicker(m.cleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.sweep()
			case <-m.stopJanitor:
				return
			}
		}
	}()
}

// StopJanitor halts the periodic sweep started by StartJanitor.
func (m *Manager) StopJanitor() {
	if m.cronEngine != nil {
		ctx := m.cronEngine.Stop()
		<-ctx.Done()
		return
	}
	close(m.stopJanitor)
	<-m.janitorDone
}

func (m *Manager) sweep() {
	now := m.backbone.Now()
	n, err := m.storage.CleanupExpired(now)
	if err != nil {
		m.logger.Error("janitor cleanupExpired failed", zap.Error(err))
	} else if n > 0 {
		atomic.AddInt64(&m.expired, int64(n))
		m.logger.Info("janitor expired sessions", zap.Int("count", n))
	}
	removed, err := m.events.CleanupOldEvents(m.eventTTL)
	if err != nil {
		m.logger.Error("janitor cleanupOldEvents failed", zap.Error(err))
	} else if removed > 0 {
		m.logger.Info("janitor trimmed aged events", zap.Int("count", removed))
	}
}

// maskID masks a session id to its first 8 characters for logging,
// per the never-log-full-session-id security requirement.
func maskID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8] + "…"
}
