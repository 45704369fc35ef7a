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

package backbone

import (
	"time"

	"github.com/oneagent-dev/oneagent/pkg/oneerr"
)

// AgentRef is a tagged union: either a bare agent id, or a richer
// {id, name} pair. This is the one shape UnifiedMetadata.Agent may take;
// no component defines a second, competing variant.
type AgentRef struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// UnifiedMetadata is the single canonical metadata shape used by every
// content-bearing record in the core (tool descriptors, cache-backed
// content entries, insights). There is exactly one definition of this
// type in the module.
type UnifiedMetadata struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	Accessed  time.Time      `json:"accessed"`
	Agent     AgentRef       `json:"agent"`
	Tags      []string       `json:"tags,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

const metadataKeyPrefix = "backbone:metadata:"

// MetadataStore implements Create/Update/Retrieve against the backbone
// cache, so metadata never becomes a second in-process map.
type MetadataStore struct {
	cache *Cache
	clock Clock
}

// NewMetadataStore constructs a MetadataStore backed by cache.
func NewMetadataStore(cache *Cache, clock Clock) *MetadataStore {
	return &MetadataStore{cache: cache, clock: clock}
}

// Create allocates a new UnifiedMetadata record for id, stamping
// createdAt/updatedAt/accessed to now.
func (m *MetadataStore) Create(id string, agent AgentRef, tags []string, extra map[string]any) UnifiedMetadata {
	now := m.clock.Now()
	md := UnifiedMetadata{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
		Accessed:  now,
		Agent:     agent,
		Tags:      tags,
		Extra:     extra,
	}
	m.cache.Set(metadataKeyPrefix+id, md, 0)
	return md
}

// Update applies a partial mutation to the record identified by id,
// bumping updatedAt. Returns NotFound if no such record exists.
func (m *MetadataStore) Update(id string, mutate func(*UnifiedMetadata)) (UnifiedMetadata, error) {
	raw, ok := m.cache.Get(metadataKeyPrefix + id)
	if !ok {
		return UnifiedMetadata{}, oneerr.New(oneerr.NotFound, "metadata %s not found", id)
	}
	md := raw.(UnifiedMetadata)
	mutate(&md)
	md.UpdatedAt = m.clock.Now()
	m.cache.Set(metadataKeyPrefix+id, md, 0)
	return md, nil
}

// Retrieve returns the record identified by id, bumping its accessed
// timestamp as a side effect. Returns NotFound if absent.
func (m *MetadataStore) Retrieve(id string) (UnifiedMetadata, error) {
	raw, ok := m.cache.Get(metadataKeyPrefix + id)
	if !ok {
		return UnifiedMetadata{}, oneerr.New(oneerr.NotFound, "metadata %s not found", id)
	}
	md := raw.(UnifiedMetadata)
	md.Accessed = m.clock.Now()
	m.cache.Set(metadataKeyPrefix+id, md, 0)
	return md, nil
}
