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

// Package agent implements the agent registry (C8): known participants
// in the communication service, addressable by id, with capabilities,
// status, and health.
package agent

import (
	"sort"
	"sync"
	"time"

	"github.com/oneagent-dev/oneagent/pkg/backbone"
	"github.com/oneagent-dev/oneagent/pkg/oneerr"
)

// Status is the coarse-grained lifecycle status of an Agent.
type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
	StatusBusy    Status = "busy"
)

// Health is a point-in-time snapshot reported by an agent's heartbeat.
type Health struct {
	Status       Status
	ResponseTime time.Duration
	ErrorRate    float64
	LastActivity time.Time
	QueueSize    int
}

// Agent is a known participant in the communication service.
type Agent struct {
	ID           string
	Name         string
	Capabilities []string
	Status       Status
	Health       Health
	Metadata     map[string]any
}

const (
	agentKeyPrefix       = "agent:"
	capabilityKeyPrefix  = "agent:capability:"
)

// StatusChangeFunc is invoked whenever UpdateStatus changes an agent's
// status, so C9 can emit the agent_status_changed event.
type StatusChangeFunc func(agentID string, old, new Status)

// Registry implements C8 against the backbone cache.
type Registry struct {
	mu                  sync.Mutex
	cache               *backbone.Cache
	bb                  *backbone.Backbone
	heartbeatTimeout    time.Duration
	onStatusChange      StatusChangeFunc
}

// Config configures heartbeat-based liveness detection.
type Config struct {
	HeartbeatTimeout time.Duration
}

// New constructs a Registry.
func New(bb *backbone.Backbone, cfg Config, onStatusChange StatusChangeFunc) *Registry {
	if cfg.HeartbeatTimeout <= 0 {
		cfg.HeartbeatTimeout = 90 * time.Second // 3x a 30s heartbeat interval
	}
	return &Registry{cache: bb.Cache(), bb: bb, heartbeatTimeout: cfg.HeartbeatTimeout, onStatusChange: onStatusChange}
}

// Register adds or updates an agent; last-write-wins on a duplicate id.
// If a.ID is empty, a fresh id is generated.
func (r *Registry) Register(a Agent) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a.ID == "" {
		a.ID = r.bb.NewID("agent")
	}
	if a.Health.LastActivity.IsZero() {
		a.Health.LastActivity = r.bb.Now()
	}
	if a.Status == "" {
		a.Status = StatusOnline
	}
	r.cache.Set(agentKeyPrefix+a.ID, a, 0)
	for _, cap := range a.Capabilities {
		r.addToCapabilitySet(cap, a.ID)
	}
	return a.ID, nil
}

func (r *Registry) addToCapabilitySet(capability, agentID string) {
	key := capabilityKeyPrefix + capability
	raw := r.cache.GetOrCreate(key, 0, func() any { return make(map[string]struct{}) })
	set := raw.(map[string]struct{})
	set[agentID] = struct{}{}
	r.cache.Set(key, set, 0)
}

// Get returns the agent by id, or nil if unknown.
func (r *Registry) Get(id string) *Agent {
	raw, ok := r.cache.Get(agentKeyPrefix + id)
	if !ok {
		return nil
	}
	a := raw.(Agent)
	return &a
}

// DiscoverFilter narrows Discover results.
type DiscoverFilter struct {
	Capability string
	Status     Status
}

// Discover returns agents matching the filter, sorted by id.
func (r *Registry) Discover(filter DiscoverFilter) []Agent {
	var candidates map[string]struct{}
	if filter.Capability != "" {
		raw, ok := r.cache.Get(capabilityKeyPrefix + filter.Capability)
		if !ok {
			return nil
		}
		candidates = raw.(map[string]struct{})
	} else {
		candidates = nil
	}

	var ids []string
	if candidates != nil {
		for id := range candidates {
			ids = append(ids, id)
		}
	} else {
		for key := range r.cache.ListByPrefix(agentKeyPrefix) {
			if len(key) > len(capabilityKeyPrefix) && key[:len(capabilityKeyPrefix)] == capabilityKeyPrefix {
				continue
			}
			ids = append(ids, key[len(agentKeyPrefix):])
		}
	}

	out := make([]Agent, 0, len(ids))
	for _, id := range ids {
		a := r.Get(id)
		if a == nil {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// UpdateStatus changes an agent's status and notifies onStatusChange.
func (r *Registry) UpdateStatus(id string, status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	raw, ok := r.cache.Get(agentKeyPrefix + id)
	if !ok {
		return oneerr.New(oneerr.NotFound, "agent %s not found", id)
	}
	a := raw.(Agent)
	old := a.Status
	a.Status = status
	a.Health.Status = status
	a.Health.LastActivity = r.bb.Now()
	r.cache.Set(agentKeyPrefix+id, a, 0)
	if old != status && r.onStatusChange != nil {
		r.onStatusChange(id, old, status)
	}
	return nil
}

// Heartbeat records a liveness ping and health metrics from the agent.
func (r *Registry) Heartbeat(id string, snapshot Health) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	raw, ok := r.cache.Get(agentKeyPrefix + id)
	if !ok {
		return oneerr.New(oneerr.NotFound, "agent %s not found", id)
	}
	a := raw.(Agent)
	snapshot.LastActivity = r.bb.Now()
	a.Health = snapshot
	if a.Status == StatusOffline {
		a.Status = StatusOnline
	}
	r.cache.Set(agentKeyPrefix+id, a, 0)
	return nil
}

// SweepLiveness transitions agents that have missed heartbeats for
// longer than heartbeatTimeout to offline. Intended to be called
// periodically alongside the C4 janitor.
func (r *Registry) SweepLiveness() int {
	now := r.bb.Now()
	transitioned := 0
	for _, a := range r.Discover(DiscoverFilter{}) {
		if a.Status == StatusOffline {
			continue
		}
		if now.Sub(a.Health.LastActivity) > r.heartbeatTimeout {
			if err := r.UpdateStatus(a.ID, StatusOffline); err == nil {
				transitioned++
			}
		}
	}
	return transitioned
}

// Health returns the current health snapshot for an agent.
func (r *Registry) Health(id string) (Health, error) {
	a := r.Get(id)
	if a == nil {
		return Health{}, oneerr.New(oneerr.NotFound, "agent %s not found", id)
	}
	return a.Health, nil
}
