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

// Package monitoring implements C11: aggregate health and usage
// counters derived from the other components' own bookkeeping, never
// a parallel counter store of its own.
package monitoring

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/oneagent-dev/oneagent/pkg/agent"
	"github.com/oneagent-dev/oneagent/pkg/communication"
	"github.com/oneagent-dev/oneagent/pkg/origin"
	"github.com/oneagent-dev/oneagent/pkg/session"
	"github.com/oneagent-dev/oneagent/pkg/tools"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Aggregator gathers counters from C3/C4/C5/C8/C9/C2 on demand. It holds
// no counters of its own; every value is read live from its source at
// scrape/request time.
type Aggregator struct {
	startedAt time.Time

	sessions *session.Manager
	toolReg  *tools.Registry
	agents   *agent.Registry
	comm     *communication.Service
	originV  *origin.Validator
}

// New constructs an Aggregator. comm (C9) and agents (C8) may be nil when
// they are not wired into a given deployment.
func New(sessions *session.Manager, toolReg *tools.Registry, agents *agent.Registry, comm *communication.Service, originV *origin.Validator) *Aggregator {
	return &Aggregator{
		startedAt: time.Now(),
		sessions:  sessions,
		toolReg:   toolReg,
		agents:    agents,
		comm:      comm,
		originV:   originV,
	}
}

// Health is the shape returned by GET /health.
type Health struct {
	Status    string `json:"status"`
	UptimeSec int64  `json:"uptime_seconds"`
}

// HealthSessions is the shape returned by GET /health/sessions.
type HealthSessions struct {
	SessionsActive       int   `json:"sessions_active"`
	SessionsCreated      int64 `json:"sessions_created"`
	SessionsExpired      int64 `json:"sessions_expired"`
	SessionsTerminated   int64 `json:"sessions_terminated"`
	EventsAdded          int64 `json:"events_added"`
	EventsReplayed       int64 `json:"events_replayed"`
	SequenceContentions  int64 `json:"sequence_contentions"`
	ToolsRegistered      int   `json:"tools_registered"`
	ToolsInvoked         int64 `json:"tools_invoked"`
	AgentsOnline         int   `json:"agents_online"`
	MessagesSent         int64 `json:"messages_sent"`
	MessagesQueueDropped int64 `json:"messages_queue_dropped"`
	EventBusDropped      int64 `json:"event_bus_dropped"`
	OriginBlocked        int64 `json:"origin_blocked"`
}

// Snapshot returns the values the system_health tool and /health/sessions report.
func (a *Aggregator) Snapshot() HealthSessions {
	var s HealthSessions
	if a.sessions != nil {
		m := a.sessions.Metrics()
		s.SessionsActive = m.SessionsActive
		s.SessionsCreated = m.SessionsCreated
		s.SessionsExpired = m.SessionsExpired
		s.SessionsTerminated = m.SessionsTerminated
		s.EventsAdded = m.EventsAdded
		s.EventsReplayed = m.EventsReplayed
		s.SequenceContentions = m.SequenceContentions
	}
	if a.toolReg != nil {
		s.ToolsRegistered = len(a.toolReg.List(nil))
		s.ToolsInvoked = a.toolReg.Invoked()
	}
	if a.agents != nil {
		s.AgentsOnline = len(a.agents.Discover(agent.DiscoverFilter{Status: agent.StatusOnline}))
	}
	if a.comm != nil {
		s.MessagesSent = a.comm.MessagesSent()
		s.MessagesQueueDropped = a.comm.MessagesQueueDropped()
		s.EventBusDropped = a.comm.Dropped()
	}
	if a.originV != nil {
		s.OriginBlocked = a.originV.BlockedCount()
	}
	return s
}

// HealthSnapshotFunc returns the tools.system_health projection.
func (a *Aggregator) HealthSnapshotFunc() tools.HealthSnapshotFunc {
	return func() map[string]any {
		snap := a.Snapshot()
		b, _ := json.Marshal(snap)
		var out map[string]any
		_ = json.Unmarshal(b, &out)
		return out
	}
}

// ServeHealth writes GET /health: a bare liveness probe.
func (a *Aggregator) ServeHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(Health{
		Status:    "ok",
		UptimeSec: int64(time.Since(a.startedAt).Seconds()),
	})
}

// ServeHealthSessions writes GET /health/sessions.
func (a *Aggregator) ServeHealthSessions(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(a.Snapshot())
}

// collector implements prometheus.Collector by reading the Aggregator's
// live snapshot on every scrape, rather than maintaining its own copy.
type collector struct {
	agg *Aggregator

	sessionsActive      *prometheus.Desc
	sessionsCreated     *prometheus.Desc
	sessionsExpired     *prometheus.Desc
	sessionsTerminated  *prometheus.Desc
	eventsAdded         *prometheus.Desc
	eventsReplayed      *prometheus.Desc
	sequenceContentions *prometheus.Desc
	toolsRegistered     *prometheus.Desc
	toolsInvoked        *prometheus.Desc
	agentsOnline        *prometheus.Desc
	messagesSent        *prometheus.Desc
	messagesDropped     *prometheus.Desc
	eventBusDropped     *prometheus.Desc
	originBlocked       *prometheus.Desc
}

func newCollector(agg *Aggregator) *collector {
	ns := "oneagent_mcp"
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(ns+"_"+name, help, nil, nil)
	}
	return &collector{
		agg:                 agg,
		sessionsActive:      desc("sessions_active", "Currently active MCP sessions."),
		sessionsCreated:     desc("sessions_created_total", "Sessions created since startup."),
		sessionsExpired:     desc("sessions_expired_total", "Sessions that expired from inactivity."),
		sessionsTerminated:  desc("sessions_terminated_total", "Sessions explicitly terminated."),
		eventsAdded:         desc("events_added_total", "Event log entries appended."),
		eventsReplayed:      desc("events_replayed_total", "Event log entries replayed via Last-Event-ID."),
		sequenceContentions: desc("sequence_contentions_total", "Event log optimistic-lock retries exhausted."),
		toolsRegistered:     desc("tools_registered", "Tools currently in the registry."),
		toolsInvoked:        desc("tools_invoked_total", "Successful tool invocations."),
		agentsOnline:        desc("agents_online", "Agents currently reporting online status."),
		messagesSent:        desc("messages_sent_total", "Messages accepted by the communication service."),
		messagesDropped:     desc("messages_queue_dropped_total", "Messages rejected with queue_full."),
		eventBusDropped:     desc("event_bus_dropped_total", "Subscriber deliveries dropped under backpressure."),
		originBlocked:       desc("origin_blocked_total", "Origin validations that were blocked or required."),
	}
}

func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.sessionsActive, c.sessionsCreated, c.sessionsExpired, c.sessionsTerminated,
		c.eventsAdded, c.eventsReplayed, c.sequenceContentions,
		c.toolsRegistered, c.toolsInvoked, c.agentsOnline,
		c.messagesSent, c.messagesDropped, c.eventBusDropped, c.originBlocked,
	} {
		ch <- d
	}
}

func (c *collector) Collect(ch chan<- prometheus.Metric) {
	s := c.agg.Snapshot()
	emit := func(d *prometheus.Desc, t prometheus.ValueType, v float64) {
		ch <- prometheus.MustNewConstMetric(d, t, v)
	}
	emit(c.sessionsActive, prometheus.GaugeValue, float64(s.SessionsActive))
	emit(c.sessionsCreated, prometheus.CounterValue, float64(s.SessionsCreated))
	emit(c.sessionsExpired, prometheus.CounterValue, float64(s.SessionsExpired))
	emit(c.sessionsTerminated, prometheus.CounterValue, float64(s.SessionsTerminated))
	emit(c.eventsAdded, prometheus.CounterValue, float64(s.EventsAdded))
	emit(c.eventsReplayed, prometheus.CounterValue, float64(s.EventsReplayed))
	emit(c.sequenceContentions, prometheus.CounterValue, float64(s.SequenceContentions))
	emit(c.toolsRegistered, prometheus.GaugeValue, float64(s.ToolsRegistered))
	emit(c.toolsInvoked, prometheus.CounterValue, float64(s.ToolsInvoked))
	emit(c.agentsOnline, prometheus.GaugeValue, float64(s.AgentsOnline))
	emit(c.messagesSent, prometheus.CounterValue, float64(s.MessagesSent))
	emit(c.messagesDropped, prometheus.CounterValue, float64(s.MessagesQueueDropped))
	emit(c.eventBusDropped, prometheus.CounterValue, float64(s.EventBusDropped))
	emit(c.originBlocked, prometheus.CounterValue, float64(s.OriginBlocked))
}

// MetricsHandler returns the http.Handler for GET /metrics, registering
// a fresh registry scoped to this Aggregator so repeated calls to
// MetricsHandler never double-register collectors.
func (a *Aggregator) MetricsHandler() http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(newCollector(a))
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
