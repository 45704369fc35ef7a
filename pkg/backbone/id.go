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
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator is the sole allocator of identifiers in the core. kind is
// an advisory tag (e.g. "session", "event", "agent"): NewID counts
// allocations per kind but does not store the tag with the id, and never
// encodes it into the id string itself, so ids remain opaque UUIDv4
// values per the wire contract.
type IDGenerator struct {
	mu      sync.Mutex
	counts  map[string]uint64
	allocs  int64
}

// NewIDGenerator constructs an IDGenerator.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{counts: make(map[string]uint64)}
}

// NewID returns a fresh UUIDv4 string and records an allocation count
// for the given advisory kind.
func (g *IDGenerator) NewID(kind string) string {
	atomic.AddInt64(&g.allocs, 1)
	g.mu.Lock()
	g.counts[kind]++
	g.mu.Unlock()
	return uuid.NewString()
}

// Allocated returns the total number of ids ever issued.
func (g *IDGenerator) Allocated() int64 { return atomic.LoadInt64(&g.allocs) }

// CountByKind returns how many ids were issued under a given advisory kind.
func (g *IDGenerator) CountByKind(kind string) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.counts[kind]
}
