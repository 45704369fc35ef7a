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

package tools

import (
	"context"
	"time"

	"github.com/oneagent-dev/oneagent/pkg/agent"
)

// AgentDescriptors bridges the C8 agent registry onto the tool catalog
// so MCP clients can register, discover, and report liveness for
// agents through tools/call instead of a side channel.
func AgentDescriptors(registry *agent.Registry) []Descriptor {
	return []Descriptor{
		agentRegisterDescriptor(registry),
		agentDiscoverDescriptor(registry),
		agentHeartbeatDescriptor(registry),
		agentHealthDescriptor(registry),
	}
}

func agentRegisterDescriptor(registry *agent.Registry) Descriptor {
	return Descriptor{
		Name:        "agent_register",
		Description: "Registers an agent (or updates it, if id is given) with the registry.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"id":           map[string]any{"type": "string"},
				"name":         map[string]any{"type": "string"},
				"capabilities": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				"metadata":     map[string]any{"type": "object"},
			},
			"required":             []any{"name"},
			"additionalProperties": false,
		},
		Category: "agent",
		Handler: func(_ context.Context, args map[string]any) (any, error) {
			name, err := requireStringArg(args, "name")
			if err != nil {
				return nil, err
			}
			id, err := registry.Register(agent.Agent{
				ID:           stringArg(args, "id"),
				Name:         name,
				Capabilities: stringSliceArg(args, "capabilities"),
				Metadata:     mapArg(args, "metadata"),
			})
			if err != nil {
				return nil, err
			}
			return map[string]any{"id": id}, nil
		},
	}
}

func agentDiscoverDescriptor(registry *agent.Registry) Descriptor {
	return Descriptor{
		Name:        "agent_discover",
		Description: "Lists registered agents, optionally narrowed by capability or status.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"capability": map[string]any{"type": "string"},
				"status":     map[string]any{"type": "string", "enum": []any{"online", "offline", "busy"}},
			},
			"additionalProperties": false,
		},
		Category: "agent",
		Handler: func(_ context.Context, args map[string]any) (any, error) {
			agents := registry.Discover(agent.DiscoverFilter{
				Capability: stringArg(args, "capability"),
				Status:     agent.Status(stringArg(args, "status")),
			})
			return map[string]any{"agents": agents}, nil
		},
	}
}

func agentHeartbeatDescriptor(registry *agent.Registry) Descriptor {
	return Descriptor{
		Name:        "agent_heartbeat",
		Description: "Records a liveness heartbeat and health snapshot for an agent.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"agent_id":          map[string]any{"type": "string"},
				"response_time_ms":  map[string]any{"type": "number"},
				"error_rate":        map[string]any{"type": "number"},
				"queue_size":        map[string]any{"type": "integer"},
			},
			"required":             []any{"agent_id"},
			"additionalProperties": false,
		},
		Category: "agent",
		Handler: func(_ context.Context, args map[string]any) (any, error) {
			id, err := requireStringArg(args, "agent_id")
			if err != nil {
				return nil, err
			}
			err = registry.Heartbeat(id, agent.Health{
				ResponseTime: time.Duration(floatArg(args, "response_time_ms", 0)) * time.Millisecond,
				ErrorRate:    floatArg(args, "error_rate", 0),
				QueueSize:    intArg(args, "queue_size", 0),
			})
			if err != nil {
				return nil, err
			}
			return map[string]any{"ok": true}, nil
		},
	}
}

func agentHealthDescriptor(registry *agent.Registry) Descriptor {
	return Descriptor{
		Name:        "agent_health",
		Description: "Returns the latest health snapshot reported by an agent.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"agent_id": map[string]any{"type": "string"},
			},
			"required":             []any{"agent_id"},
			"additionalProperties": false,
		},
		Category: "agent",
		Handler: func(_ context.Context, args map[string]any) (any, error) {
			id, err := requireStringArg(args, "agent_id")
			if err != nil {
				return nil, err
			}
			health, err := registry.Health(id)
			if err != nil {
				return nil, err
			}
			return health, nil
		},
	}
}
