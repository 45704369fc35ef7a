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

// Package tools implements the canonical tool catalog (C5): a
// cache-backed registry of ToolDescriptors invoked identically
// regardless of which transport (HTTP or stdio) accepted the call.
package tools

import (
	"context"
	"encoding/json"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/oneagent-dev/oneagent/pkg/backbone"
	"github.com/oneagent-dev/oneagent/pkg/oneerr"
	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"
)

// Handler executes a tool call. args has already been validated against
// InputSchema by the time Handler runs.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Descriptor is a registered capability.
type Descriptor struct {
	Name         string
	Description  string
	InputSchema  map[string]any
	OutputSchema map[string]any
	Category     string
	Priority     int
	RegisteredAt time.Time
	Handler      Handler `json:"-"`
}

const (
	toolKeyPrefix = "mcp:tool:"
	toolNamesKey  = "mcp:tool-names"
)

// Registry is the canonical catalog of tool descriptors. Descriptors live
// in the backbone cache; the handler funcs are also kept in a
// mutex-guarded map on the Registry, which Invoke reads.
type Registry struct {
	mu     sync.RWMutex
	cache  *backbone.Cache
	bb     *backbone.Backbone
	logger *zap.Logger

	handlers map[string]Handler
	invoked  int64
}

// New constructs a Registry over the given backbone.
func New(bb *backbone.Backbone, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{cache: bb.Cache(), bb: bb, logger: logger, handlers: make(map[string]Handler)}
}

// Register adds or validates a descriptor. Re-registering the same name
// with an equivalent schema is a no-op; re-registering with a different
// schema fails schema_conflict.
func (r *Registry) Register(d Descriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := toolKeyPrefix + d.Name
	if raw, ok := r.cache.Get(key); ok {
		existing := raw.(Descriptor)
		if !schemaEqual(existing.InputSchema, d.InputSchema) {
			return oneerr.New(oneerr.SchemaConflict, "tool %s re-registered with a different input schema", d.Name)
		}
		existing.Handler = d.Handler
		r.cache.Set(key, existing, 0)
		r.handlers[d.Name] = d.Handler
		return nil
	}

	if d.RegisteredAt.IsZero() {
		d.RegisteredAt = r.bb.Now()
	}
	r.cache.Set(key, d, 0)
	r.handlers[d.Name] = d.Handler
	r.addName(d.Name)
	return nil
}

// RegisterAll registers a batch of descriptors and emits exactly one
// aggregate log line, keeping stdio initialization O(1) in log volume
// regardless of tool count.
func (r *Registry) RegisterAll(descriptors []Descriptor) error {
	for _, d := range descriptors {
		if err := r.Register(d); err != nil {
			return err
		}
	}
	r.logger.Info("tool registry initialized", zap.Int("count", len(descriptors)))
	return nil
}

func (r *Registry) addName(name string) {
	raw := r.cache.GetOrCreate(toolNamesKey, 0, func() any { return make(map[string]struct{}) })
	set := raw.(map[string]struct{})
	set[name] = struct{}{}
	r.cache.Set(toolNamesKey, set, 0)
}

// Get returns the descriptor by name, or nil if unregistered.
func (r *Registry) Get(name string) *Descriptor {
	raw, ok := r.cache.Get(toolKeyPrefix + name)
	if !ok {
		return nil
	}
	d := raw.(Descriptor)
	return &d
}

// Filter narrows List results.
type Filter struct {
	Category string
}

// List returns every registered descriptor, sorted by name, optionally
// narrowed by Filter.
func (r *Registry) List(filter *Filter) []Descriptor {
	raw, ok := r.cache.Get(toolNamesKey)
	if !ok {
		return nil
	}
	names := raw.(map[string]struct{})
	out := make([]Descriptor, 0, len(names))
	for name := range names {
		d := r.Get(name)
		if d == nil {
			continue
		}
		if filter != nil && filter.Category != "" && d.Category != filter.Category {
			continue
		}
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Invoke validates args against the descriptor's input schema and
// executes the handler on the same path regardless of transport.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) (any, error) {
	d := r.Get(name)
	if d == nil {
		return nil, oneerr.New(oneerr.MethodNotFound, "unknown tool %s", name)
	}
	if len(d.InputSchema) > 0 {
		if err := validateAgainstSchema(d.InputSchema, args); err != nil {
			return nil, oneerr.Wrap(oneerr.InvalidParams, err, "tool %s arguments invalid", name)
		}
	}
	r.mu.RLock()
	handler := r.handlers[name]
	r.mu.RUnlock()
	if handler == nil {
		return nil, oneerr.New(oneerr.MethodNotFound, "tool %s has no handler on this instance", name)
	}
	result, err := handler(ctx, args)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.invoked++
	r.mu.Unlock()
	return result, nil
}

// Invoked returns the total number of successful tool invocations, for
// C11 to surface as tools_invoked_total.
func (r *Registry) Invoked() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.invoked
}

func schemaEqual(a, b map[string]any) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}

func validateAgainstSchema(schema map[string]any, args map[string]any) error {
	schemaBytes, err := json.Marshal(schema)
	if err != nil {
		return err
	}
	argBytes, err := json.Marshal(args)
	if err != nil {
		return err
	}
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaBytes),
		gojsonschema.NewBytesLoader(argBytes),
	)
	if err != nil {
		return err
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return oneerr.New(oneerr.InvalidParams, "%v", msgs)
	}
	return nil
}
