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

package protocol

import (
	"github.com/xeipuuv/gojsonschema"

	"github.com/oneagent-dev/oneagent/pkg/oneerr"
)

// ValidateToolArguments checks arguments against a tool's declared input
// schema. An empty schema means the tool accepts anything.
func ValidateToolArguments(tool Tool, arguments map[string]interface{}) error {
	if len(tool.InputSchema) == 0 {
		return nil
	}

	schemaLoader := gojsonschema.NewGoLoader(tool.InputSchema)
	argsLoader := gojsonschema.NewGoLoader(arguments)

	result, err := gojsonschema.Validate(schemaLoader, argsLoader)
	if err != nil {
		return oneerr.Wrap(oneerr.InvalidParams, err, "schema validation failed")
	}

	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, e := range result.Errors() {
			errs[i] = e.String()
		}
		return oneerr.New(oneerr.InvalidParams, "invalid arguments: %v", errs)
	}

	return nil
}

// ValidateRequest checks the framing-level invariants of an inbound
// JSON-RPC request: protocol version and a non-empty method name.
// Notifications (nil ID) are validated the same as calls.
func ValidateRequest(req *Request) error {
	if req.JSONRPC != JSONRPCVersion {
		return oneerr.New(oneerr.InvalidRequest, "invalid jsonrpc version: %s (expected %s)", req.JSONRPC, JSONRPCVersion)
	}

	if req.Method == "" {
		return oneerr.New(oneerr.InvalidRequest, "method is required")
	}

	return nil
}

// ValidateResponse checks the framing-level invariants of an outbound
// JSON-RPC response: protocol version, a present ID (responses are
// never sent for notifications, so ID is always required here), and
// exactly one of Result/Error set.
func ValidateResponse(resp *Response) error {
	if resp.JSONRPC != JSONRPCVersion {
		return oneerr.New(oneerr.InvalidRequest, "invalid jsonrpc version: %s (expected %s)", resp.JSONRPC, JSONRPCVersion)
	}

	if resp.ID == nil {
		return oneerr.New(oneerr.InvalidRequest, "response ID is required")
	}

	hasResult := len(resp.Result) > 0
	hasError := resp.Error != nil
	if hasResult == hasError {
		return oneerr.New(oneerr.InvalidRequest, "response must have exactly one of result or error")
	}

	return nil
}
