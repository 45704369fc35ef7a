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

// Package oneerr defines the stable error-kind taxonomy shared by every
// component of the coordination substrate. Handlers return these values
// across component boundaries instead of raw errors so the protocol
// engine can map them onto JSON-RPC codes and HTTP statuses uniformly.
package oneerr

import (
	"errors"
	"fmt"
)

// Kind is a stable, wire-mapped error classification.
type Kind string

const (
	ParseError          Kind = "parse_error"
	InvalidRequest       Kind = "invalid_request"
	MethodNotFound       Kind = "method_not_found"
	InvalidParams        Kind = "invalid_params"
	OriginBlocked        Kind = "origin_blocked"
	OriginRequired       Kind = "origin_required"
	SessionNotFound      Kind = "session_not_found"
	SessionExpired       Kind = "session_expired"
	SequenceContention   Kind = "sequence_contention"
	QueueFull            Kind = "queue_full"
	SchemaConflict       Kind = "schema_conflict"
	LLMUnavailable       Kind = "llm_unavailable"
	MemoryUnavailable    Kind = "memory_unavailable"
	InvalidConfidence    Kind = "invalid_confidence"
	AlreadyExists        Kind = "already_exists"
	NotFound             Kind = "not_found"
	Conflict             Kind = "conflict"
	BackendUnavailable   Kind = "backend_unavailable"
	Internal             Kind = "internal"
)

// retryable lists kinds that the server advertises as safe to retry.
var retryable = map[Kind]bool{
	SequenceContention: true,
	QueueFull:          true,
	LLMUnavailable:     true,
	MemoryUnavailable:  true,
	BackendUnavailable: true,
}

// Error is the value type every component boundary returns instead of a
// bare error. It carries a stable Kind plus an optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

// New creates an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error of the given kind that wraps an existing cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Retryable reports whether the client may safely retry this error.
func (e *Error) Retryable() bool { return retryable[e.Kind] }

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf extracts the Kind from err, defaulting to Internal when err is
// not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}
