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

// Package backbone provides the canonical time, id, cache, and metadata
// services every other component depends on. Component timestamps and
// ids come from here; monitoring.New (uptime) and MCPServer.HandleMessage
// (request duration) are the places that read the time package directly.
package backbone

import "time"

// Clock is the sole permitted source of the current time. Production
// code uses SystemClock; tests substitute FixedClock or a manually
// advanced clock to exercise expiry and TTL behavior deterministically.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock returns a constant instant, useful for deterministic tests.
type FixedClock struct{ At time.Time }

// Now returns the fixed instant.
func (c FixedClock) Now() time.Time { return c.At }

// Backbone is the canonical aggregate of time, id, cache, and metadata
// services. Every other component receives a *Backbone at construction
// time instead of reaching for globals.
type Backbone struct {
	clock Clock
	ids   *IDGenerator
	cache *Cache
	meta  *MetadataStore
}

// Option configures a Backbone at construction time.
type Option func(*Backbone)

// WithClock overrides the clock, primarily for tests.
func WithClock(c Clock) Option {
	return func(b *Backbone) { b.clock = c }
}

// New constructs a Backbone with a system clock, fresh cache, and
// metadata store unless overridden by options.
func New(opts ...Option) *Backbone {
	b := &Backbone{clock: SystemClock{}}
	for _, opt := range opts {
		opt(b)
	}
	b.cache = NewCache(b.clock)
	b.ids = NewIDGenerator()
	b.meta = NewMetadataStore(b.cache, b.clock)
	return b
}

// Now returns the current time per the canonical clock.
func (b *Backbone) Now() time.Time { return b.clock.Now() }

// NewID allocates a new UUIDv4, tagged with an advisory kind.
func (b *Backbone) NewID(kind string) string { return b.ids.NewID(kind) }

// Cache returns the canonical namespaced cache.
func (b *Backbone) Cache() *Cache { return b.cache }

// Metadata returns the canonical metadata store.
func (b *Backbone) Metadata() *MetadataStore { return b.meta }

// Close releases background resources (the cache's GC goroutine).
func (b *Backbone) Close() error { return b.cache.Close() }
