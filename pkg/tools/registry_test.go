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

	"github.com/oneagent-dev/oneagent/pkg/backbone"
	"github.com/oneagent-dev/oneagent/pkg/oneerr"
	"github.com/stretchr/testify/require"
)

func echoDescriptor() Descriptor {
	return Descriptor{
		Name:        "echo",
		Description: "echoes back the message argument",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"message": map[string]any{"type": "string"}},
			"required":   []any{"message"},
		},
		Handler: func(_ context.Context, args map[string]any) (any, error) {
			return args["message"], nil
		},
	}
}

func TestRegisterAndGet(t *testing.T) {
	bb := backbone.New()
	defer bb.Close()
	reg := New(bb, nil)

	require.NoError(t, reg.Register(echoDescriptor()))
	d := reg.Get("echo")
	require.NotNil(t, d)
	require.Equal(t, "echo", d.Name)
}

func TestRegisterSchemaConflict(t *testing.T) {
	bb := backbone.New()
	defer bb.Close()
	reg := New(bb, nil)

	require.NoError(t, reg.Register(echoDescriptor()))

	conflicting := echoDescriptor()
	conflicting.InputSchema = map[string]any{"type": "object", "properties": map[string]any{"other": map[string]any{"type": "number"}}}
	err := reg.Register(conflicting)
	require.Error(t, err)
	require.True(t, oneerr.Is(err, oneerr.SchemaConflict))
}

func TestInvokeUnknownTool(t *testing.T) {
	bb := backbone.New()
	defer bb.Close()
	reg := New(bb, nil)

	_, err := reg.Invoke(context.Background(), "nope", nil)
	require.Error(t, err)
	require.True(t, oneerr.Is(err, oneerr.MethodNotFound))
}

func TestInvokeValidatesSchema(t *testing.T) {
	bb := backbone.New()
	defer bb.Close()
	reg := New(bb, nil)
	require.NoError(t, reg.Register(echoDescriptor()))

	_, err := reg.Invoke(context.Background(), "echo", map[string]any{})
	require.Error(t, err)
	require.True(t, oneerr.Is(err, oneerr.InvalidParams))

	out, err := reg.Invoke(context.Background(), "echo", map[string]any{"message": "hi"})
	require.NoError(t, err)
	require.Equal(t, "hi", out)
}

func TestListSortedByName(t *testing.T) {
	bb := backbone.New()
	defer bb.Close()
	reg := New(bb, nil)
	require.NoError(t, reg.Register(Descriptor{Name: "zeta", Handler: func(context.Context, map[string]any) (any, error) { return nil, nil }}))
	require.NoError(t, reg.Register(Descriptor{Name: "alpha", Handler: func(context.Context, map[string]any) (any, error) { return nil, nil }}))

	list := reg.List(nil)
	require.Len(t, list, 2)
	require.Equal(t, "alpha", list[0].Name)
	require.Equal(t, "zeta", list[1].Name)
}
