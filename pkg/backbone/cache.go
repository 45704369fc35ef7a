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
	"time"

	"github.com/oneagent-dev/oneagent/pkg/oneerr"
)

// Cache is the single permitted in-process shared state store. It is a
// namespaced key/value map with TTL expiry, optimistic updates, and
// prefix listing. No component other than the backbone may hold
// domain-data maps of its own; everything goes through this cache or
// through the pluggable SessionStorage/EventLog interfaces in pkg/session.
type Cache struct {
	mu    sync.RWMutex
	items map[string]cacheEntry
	clock Clock

	gcInterval time.Duration
	stopGC     chan struct{}
	gcDone     chan struct{}
}

type cacheEntry struct {
	value     any
	expiresAt time.Time // zero means no expiry
}

// NewCache constructs a Cache with a background GC sweep every minute.
func NewCache(clock Clock) *Cache {
	if clock == nil {
		clock = SystemClock{}
	}
	c := &Cache{
		items:      make(map[string]cacheEntry),
		clock:      clock,
		gcInterval: time.Minute,
		stopGC:     make(chan struct{}),
		gcDone:     make(chan struct{}),
	}
	go c.gcLoop()
	return c
}

func (c *Cache) gcLoop() {
	defer close(c.gcDone)
	ticker := time.NewTicker(c.gcInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.stopGC:
			return
		}
	}
}

func (c *Cache) sweep() {
	now := c.clock.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.items {
		if !e.expiresAt.IsZero() && now.After(e.expiresAt) {
			delete(c.items, k)
		}
	}
}

// Close stops the GC goroutine. Safe to call once.
func (c *Cache) Close() error {
	close(c.stopGC)
	<-c.gcDone
	return nil
}

// Set stores value under key with an optional ttl (0 = no expiry).
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = c.clock.Now().Add(ttl)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = cacheEntry{value: value, expiresAt: expiresAt}
}

// Get returns the value stored under key. ok is false if the key is
// absent or has expired (an expired key is lazily evicted on access).
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	e, found := c.items[key]
	c.mu.RUnlock()
	if !found {
		return nil, false
	}
	if !e.expiresAt.IsZero() && c.clock.Now().After(e.expiresAt) {
		c.mu.Lock()
		delete(c.items, key)
		c.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

// Delete removes key unconditionally.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// GetOrCreate atomically returns the existing value under key, or calls
// create and stores its result (with the given ttl) if absent.
func (c *Cache) GetOrCreate(key string, ttl time.Duration, create func() any) any {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, found := c.items[key]; found {
		if e.expiresAt.IsZero() || !c.clock.Now().After(e.expiresAt) {
			return e.value
		}
	}
	value := create()
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = c.clock.Now().Add(ttl)
	}
	c.items[key] = cacheEntry{value: value, expiresAt: expiresAt}
	return value
}

// ListByPrefix returns all non-expired values whose keys start with prefix.
func (c *Cache) ListByPrefix(prefix string) map[string]any {
	now := c.clock.Now()
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]any)
	for k, e := range c.items {
		if len(k) < len(prefix) || k[:len(prefix)] != prefix {
			continue
		}
		if !e.expiresAt.IsZero() && now.After(e.expiresAt) {
			continue
		}
		out[k] = e.value
	}
	return out
}

// UpdateIf performs an optimistic compare-and-swap: it loads the current
// value, invokes update to compute a replacement (update receives the
// current value, which is nil if the key is absent), and stores the
// result only if the key's value did not change between load and store.
// Callers that need atomic read-modify-write semantics under contention
// should wrap UpdateIf in a bounded retry loop (see pkg/session for the
// 16-attempt sequence-counter pattern).
func (c *Cache) UpdateIf(key string, ttl time.Duration, update func(current any, exists bool) (any, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, exists := c.items[key]
	if exists && !e.expiresAt.IsZero() && c.clock.Now().After(e.expiresAt) {
		exists = false
	}
	var current any
	if exists {
		current = e.value
	}
	next, err := update(current, exists)
	if err != nil {
		return err
	}
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = c.clock.Now().Add(ttl)
	}
	c.items[key] = cacheEntry{value: next, expiresAt: expiresAt}
	return nil
}

// Namespace returns a view of the cache where every key is automatically
// prefixed, useful for giving a component its own logical keyspace
// without creating a second map.
func (c *Cache) Namespace(prefix string) *NamespacedCache {
	return &NamespacedCache{cache: c, prefix: prefix}
}

// NamespacedCache scopes cache operations under a fixed key prefix.
type NamespacedCache struct {
	cache  *Cache
	prefix string
}

func (n *NamespacedCache) key(key string) string { return n.prefix + key }

func (n *NamespacedCache) Set(key string, value any, ttl time.Duration) {
	n.cache.Set(n.key(key), value, ttl)
}

func (n *NamespacedCache) Get(key string) (any, bool) { return n.cache.Get(n.key(key)) }

func (n *NamespacedCache) Delete(key string) { n.cache.Delete(n.key(key)) }

func (n *NamespacedCache) GetOrCreate(key string, ttl time.Duration, create func() any) any {
	return n.cache.GetOrCreate(n.key(key), ttl, create)
}

func (n *NamespacedCache) ListByPrefix(prefix string) map[string]any {
	raw := n.cache.ListByPrefix(n.key(prefix))
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		out[k[len(n.prefix):]] = v
	}
	return out
}

func (n *NamespacedCache) UpdateIf(key string, ttl time.Duration, update func(current any, exists bool) (any, error)) error {
	return n.cache.UpdateIf(n.key(key), ttl, update)
}

// NotFoundErr is a convenience constructor for a cache-level miss.
func NotFoundErr(what string) error {
	return oneerr.New(oneerr.NotFound, "%s not found", what)
}
