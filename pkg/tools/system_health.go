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

import "context"

// HealthSnapshotFunc produces the data the built-in system_health tool
// reports; C13 wires this to the C11 monitoring aggregate at startup.
type HealthSnapshotFunc func() map[string]any

// SystemHealthDescriptor returns the built-in system_health tool
// descriptor, expected by S1's tools/list follow-up.
func SystemHealthDescriptor(snapshot HealthSnapshotFunc) Descriptor {
	return Descriptor{
		Name:        "system_health",
		Description: "Reports aggregate health and usage counters for the coordination substrate.",
		InputSchema: map[string]any{
			"type":                 "object",
			"additionalProperties": false,
		},
		Category: "system",
		Priority: 0,
		Handler: func(_ context.Context, _ map[string]any) (any, error) {
			if snapshot == nil {
				return map[string]any{}, nil
			}
			return snapshot(), nil
		},
	}
}
