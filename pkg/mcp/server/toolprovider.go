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

package server

import (
	"context"
	"fmt"

	"github.com/oneagent-dev/oneagent/pkg/mcp/protocol"
	"github.com/oneagent-dev/oneagent/pkg/tools"
)

// ToolRegistryProvider adapts a tools.Registry to the ToolProvider
// interface so the engine dispatches tools/list and tools/call through
// the same catalog regardless of which transport accepted the call.
type ToolRegistryProvider struct {
	registry *tools.Registry
}

// NewToolRegistryProvider wraps a tools.Registry as a ToolProvider.
func NewToolRegistryProvider(registry *tools.Registry) *ToolRegistryProvider {
	return &ToolRegistryProvider{registry: registry}
}

// ListTools returns every registered tool as an MCP tool definition.
func (p *ToolRegistryProvider) ListTools(_ context.Context) ([]protocol.Tool, error) {
	descriptors := p.registry.List(nil)
	out := make([]protocol.Tool, 0, len(descriptors))
	for _, d := range descriptors {
		out = append(out, protocol.Tool{
			Name:        d.Name,
			Description: d.Description,
			InputSchema: d.InputSchema,
		})
	}
	return out, nil
}

// CallTool invokes the named tool through the registry's single
// validation-then-dispatch path and wraps the result as MCP content.
func (p *ToolRegistryProvider) CallTool(ctx context.Context, name string, args map[string]interface{}) (*protocol.CallToolResult, error) {
	result, err := p.registry.Invoke(ctx, name, args)
	if err != nil {
		return nil, err
	}
	structured, ok := result.(map[string]interface{})
	if !ok {
		return &protocol.CallToolResult{
			Content: []protocol.Content{{Type: "text", Text: fmt.Sprintf("%v", result)}},
		}, nil
	}
	return &protocol.CallToolResult{
		Content:           []protocol.Content{{Type: "text", Text: fmt.Sprintf("%v", result)}},
		StructuredContent: structured,
	}, nil
}
