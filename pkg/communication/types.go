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

// Package communication implements the agent-to-agent communication
// service (C9): bounded multi-agent sessions, message history, and the
// event bus other components subscribe to.
package communication

import "time"

// Mode describes how participants in a ConversationSession interact.
type Mode string

const (
	ModeCollaborative Mode = "collaborative"
	ModeCompetitive   Mode = "competitive"
	ModeHierarchical  Mode = "hierarchical"
)

// SessionStatus is the lifecycle state of a ConversationSession.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionInactive  SessionStatus = "inactive"
	SessionConcluded SessionStatus = "concluded"
)

// ConversationSession is a bounded multi-agent exchange. Only listed
// Participants may send messages into it.
type ConversationSession struct {
	ID           string
	Name         string
	Participants []string
	Mode         Mode
	Topic        string
	Status       SessionStatus
	CreatedAt    time.Time
	NLACS        bool
}

func (s ConversationSession) hasParticipant(agentID string) bool {
	for _, p := range s.Participants {
		if p == agentID {
			return true
		}
	}
	return false
}

// MessageType classifies the intent of a Message.
type MessageType string

const (
	MessageUpdate   MessageType = "update"
	MessageQuestion MessageType = "question"
	MessageDecision MessageType = "decision"
	MessageAction   MessageType = "action"
	MessageInsight  MessageType = "insight"
)

// Message is one exchange inside a ConversationSession. ToAgent empty
// means broadcast. Sequence is assigned by the session's serializer at
// enqueue time, so history order always matches delivery order.
type Message struct {
	ID        string
	SessionID string
	FromAgent string
	ToAgent   string
	Content   string
	Type      MessageType
	Timestamp time.Time
	Metadata  map[string]any
	Sequence  uint64
}

// CreateSessionRequest is the input to Service.CreateSession.
type CreateSessionRequest struct {
	Name         string
	Participants []string
	Mode         Mode
	Topic        string
	NLACS        bool
}

// SendMessageRequest is the input to Service.SendMessage and
// Service.BroadcastMessage (ToAgent is ignored for the latter).
type SendMessageRequest struct {
	SessionID string
	FromAgent string
	ToAgent   string
	Content   string
	Type      MessageType
	Metadata  map[string]any
}
