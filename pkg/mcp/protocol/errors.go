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
	"errors"

	"github.com/oneagent-dev/oneagent/pkg/oneerr"
)

// rpcCodeByKind is the stable mapping from the substrate's error
// taxonomy to JSON-RPC 2.0 codes.
var rpcCodeByKind = map[oneerr.Kind]int{
	oneerr.ParseError:        ParseError,
	oneerr.InvalidRequest:    InvalidRequest,
	oneerr.MethodNotFound:    MethodNotFound,
	oneerr.InvalidParams:     InvalidParams,
	oneerr.SequenceContention: InternalError,
	oneerr.QueueFull:         InternalError,
	oneerr.SchemaConflict:    InternalError,
	oneerr.LLMUnavailable:    InternalError,
	oneerr.MemoryUnavailable: InternalError,
	oneerr.InvalidConfidence: InternalError,
	oneerr.AlreadyExists:     InternalError,
	oneerr.NotFound:          InternalError,
	oneerr.Conflict:          InternalError,
	oneerr.BackendUnavailable: InternalError,
}

// errorData is the optional "data" payload on a JSON-RPC error frame:
// the stable kind string and whether the client may safely retry.
type errorData struct {
	Kind      string `json:"kind"`
	Retryable bool   `json:"retryable"`
}

// NewErrorFromErr maps an *oneerr.Error onto a JSON-RPC error frame.
// Non-oneerr errors are reported as an internal error without leaking
// their message, per the no-stack-traces-on-the-wire policy.
func NewErrorFromErr(err error) *Error {
	var oe *oneerr.Error
	if !errors.As(err, &oe) {
		return NewError(InternalError, "internal error", errorData{Kind: string(oneerr.Internal), Retryable: false})
	}
	code, ok := rpcCodeByKind[oe.Kind]
	if !ok {
		code = InternalError
	}
	return NewError(code, oe.Message, errorData{Kind: string(oe.Kind), Retryable: oe.Retryable()})
}
