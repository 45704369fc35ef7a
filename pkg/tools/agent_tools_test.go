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
	"testing"

	"github.com/oneagent-dev/oneagent/pkg/agent"
	"github.com/oneagent-dev/oneagent/pkg/backbone"
	"github.com/stretchr/testify/require"
)

func newTestAgentRegistry() *agent.Registry {
	bb := backbone.New()
	return agent.New(bb, agent.Config{}, nil)
}

func newAgentToolRegistry(t *testing.T, registry *agent.Registry) *Registry {
	t.Helper()
	bb := backbone.New()
	reg := New(bb, nil)
	require.NoError(t, reg.RegisterAll(AgentDescriptors(registry)))
	return reg
}

func TestAgentRegisterDescriptor(t *testing.T) {
	registry := newTestAgentRegistry()
	reg := newAgentToolRegistry(t, registry)

	out, err := reg.Invoke(context.Background(), "agent_register", map[string]any{
		"name":         "planner",
		"capabilities": []any{"planning", "search"},
	})
	require.NoError(t, err)
	result := out.(map[string]any)
	require.NotEmpty(t, result["id"])

	a := registry.Get(result["id"].(string))
	require.NotNil(t, a)
	require.Equal(t, "planner", a.Name)
	require.Equal(t, []string{"planning", "search"}, a.Capabilities)
}

func TestAgentRegisterDescriptor_MissingName(t *testing.T) {
	registry := newTestAgentRegistry()
	reg := newAgentToolRegistry(t, registry)

	_, err := reg.Invoke(context.Background(), "agent_register", map[string]any{})
	require.Error(t, err)
}

func TestAgentDiscoverDescriptor(t *testing.T) {
	registry := newTestAgentRegistry()
	reg := newAgentToolRegistry(t, registry)

	_, err := registry.Register(agent.Agent{Name: "worker", Capabilities: []string{"codegen"}})
	require.NoError(t, err)

	out, err := reg.Invoke(context.Background(), "agent_discover", map[string]any{"capability": "codegen"})
	require.NoError(t, err)
	agents := out.(map[string]any)["agents"].([]agent.Agent)
	require.Len(t, agents, 1)
	require.Equal(t, "worker", agents[0].Name)
}

func TestAgentHeartbeatAndHealthDescriptors(t *testing.T) {
	registry := newTestAgentRegistry()
	reg := newAgentToolRegistry(t, registry)

	id, err := registry.Register(agent.Agent{Name: "worker"})
	require.NoError(t, err)

	_, err = reg.Invoke(context.Background(), "agent_heartbeat", map[string]any{
		"agent_id":         id,
		"response_time_ms": float64(120),
		"error_rate":       0.05,
		"queue_size":       float64(3),
	})
	require.NoError(t, err)

	out, err := reg.Invoke(context.Background(), "agent_health", map[string]any{"agent_id": id})
	require.NoError(t, err)
	health := out.(agent.Health)
	require.Equal(t, 3, health.QueueSize)
	require.InDelta(t, 0.05, health.ErrorRate, 0.0001)
}

func TestAgentHeartbeatDescriptor_UnknownAgent(t *testing.T) {
	registry := newTestAgentRegistry()
	reg := newAgentToolRegistry(t, registry)

	_, err := reg.Invoke(context.Background(), "agent_heartbeat", map[string]any{"agent_id": "missing"})
	require.Error(t, err)
}
