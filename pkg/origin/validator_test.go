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

package origin

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateExactMatch(t *testing.T) {
	v := New(Config{Patterns: []string{"https://app.example.com"}}, nil)
	res := v.Validate("https://app.example.com")
	require.True(t, res.Allowed)
	require.Equal(t, "exact_match", res.Reason)
}

func TestValidateWildcardMatch(t *testing.T) {
	v := New(Config{Patterns: []string{"http://localhost:*"}}, nil)
	res := v.Validate("http://localhost:3000")
	require.True(t, res.Allowed)
}

func TestValidateBlocksUnknownOrigin(t *testing.T) {
	v := New(Config{Patterns: []string{"http://localhost:*"}}, nil)
	res := v.Validate("http://evil.com")
	require.False(t, res.Allowed)
	require.Equal(t, "origin_blocked", res.Reason)
	require.EqualValues(t, 1, v.BlockedCount())
}

func TestValidateMissingOriginRequired(t *testing.T) {
	v := New(Config{RequireOriginHeader: true}, nil)
	res := v.Validate("")
	require.False(t, res.Allowed)
	require.Equal(t, "origin_required", res.Reason)
}

func TestValidateMissingOriginNotRequired(t *testing.T) {
	v := New(Config{RequireOriginHeader: false}, nil)
	res := v.Validate("")
	require.True(t, res.Allowed)
}

func TestValidateFileProtocol(t *testing.T) {
	v := New(Config{AllowFileProtocol: true}, nil)
	res := v.Validate("file:///some/path")
	require.True(t, res.Allowed)
	require.Equal(t, "file_protocol", res.Reason)
}

func TestValidateIsPure(t *testing.T) {
	v := New(Config{Patterns: []string{"https://app.example.com"}}, nil)
	first := v.Validate("https://app.example.com")
	second := v.Validate("https://app.example.com")
	require.Equal(t, first, second)
}
