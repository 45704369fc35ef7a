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

// Package session implements the session store, event log, and session
// manager (C3/C4): the lifecycle of one client<->server MCP binding and
// the per-(session,stream) event log that makes SSE streams resumable.
package session

import "time"

// State is the lifecycle state of a Session.
type State string

const (
	StateActive     State = "ACTIVE"
	StateExpired    State = "EXPIRED"
	StateTerminated State = "TERMINATED"
)

// Session represents one client<->server MCP binding.
type Session struct {
	ID              string
	ClientID        string
	Origin          string
	ProtocolVersion string
	Capabilities    map[string]any
	CreatedAt       time.Time
	LastActivity    time.Time
	ExpiresAt       time.Time
	State           State
	EventCounter    uint64
	Metadata        map[string]any
}

// EventType tags the kind of JSON-RPC frame an Event persists.
type EventType string

const (
	EventRequest      EventType = "request"
	EventResponse     EventType = "response"
	EventNotification EventType = "notification"
	EventMessage      EventType = "message"
)

// Event is one SSE message persisted for resumability.
type Event struct {
	ID        string
	SessionID string
	StreamID  string
	Sequence  uint64
	Timestamp time.Time
	Payload   []byte
	Type      EventType
}
