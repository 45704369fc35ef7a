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

	"github.com/oneagent-dev/oneagent/pkg/communication"
)

// CommunicationDescriptors bridges the C9 communication service onto
// the tool catalog: conversation session lifecycle and messaging,
// invoked identically from either transport.
func CommunicationDescriptors(comm *communication.Service) []Descriptor {
	return []Descriptor{
		conversationCreateDescriptor(comm),
		conversationInfoDescriptor(comm),
		conversationJoinDescriptor(comm),
		conversationLeaveDescriptor(comm),
		messageSendDescriptor(comm),
		messageBroadcastDescriptor(comm),
		messageHistoryDescriptor(comm),
	}
}

func conversationCreateDescriptor(comm *communication.Service) Descriptor {
	return Descriptor{
		Name:        "conversation_create",
		Description: "Creates a bounded multi-agent conversation session.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name":         map[string]any{"type": "string"},
				"participants": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				"mode":         map[string]any{"type": "string", "enum": []any{"collaborative", "competitive", "hierarchical"}},
				"topic":        map[string]any{"type": "string"},
				"nlacs":        map[string]any{"type": "boolean"},
			},
			"required":             []any{"name", "participants"},
			"additionalProperties": false,
		},
		Category: "communication",
		Handler: func(_ context.Context, args map[string]any) (any, error) {
			name, err := requireStringArg(args, "name")
			if err != nil {
				return nil, err
			}
			nlacs, _ := args["nlacs"].(bool)
			id, err := comm.CreateSession(communication.CreateSessionRequest{
				Name:         name,
				Participants: stringSliceArg(args, "participants"),
				Mode:         communication.Mode(stringArg(args, "mode")),
				Topic:        stringArg(args, "topic"),
				NLACS:        nlacs,
			})
			if err != nil {
				return nil, err
			}
			return map[string]any{"session_id": id}, nil
		},
	}
}

func conversationInfoDescriptor(comm *communication.Service) Descriptor {
	return Descriptor{
		Name:        "conversation_info",
		Description: "Returns a conversation session's current state.",
		InputSchema: sessionIDSchema(),
		Category:    "communication",
		Handler: func(_ context.Context, args map[string]any) (any, error) {
			id, err := requireStringArg(args, "session_id")
			if err != nil {
				return nil, err
			}
			return comm.GetSessionInfo(id)
		},
	}
}

func conversationJoinDescriptor(comm *communication.Service) Descriptor {
	return Descriptor{
		Name:        "conversation_join",
		Description: "Adds an agent to a conversation session's participant list.",
		InputSchema: sessionAgentSchema(),
		Category:    "communication",
		Handler: func(_ context.Context, args map[string]any) (any, error) {
			sessionID, agentID, err := requireSessionAndAgent(args)
			if err != nil {
				return nil, err
			}
			ok, err := comm.Join(sessionID, agentID)
			if err != nil {
				return nil, err
			}
			return map[string]any{"ok": ok}, nil
		},
	}
}

func conversationLeaveDescriptor(comm *communication.Service) Descriptor {
	return Descriptor{
		Name:        "conversation_leave",
		Description: "Removes an agent from a conversation session's participant list.",
		InputSchema: sessionAgentSchema(),
		Category:    "communication",
		Handler: func(_ context.Context, args map[string]any) (any, error) {
			sessionID, agentID, err := requireSessionAndAgent(args)
			if err != nil {
				return nil, err
			}
			ok, err := comm.Leave(sessionID, agentID)
			if err != nil {
				return nil, err
			}
			return map[string]any{"ok": ok}, nil
		},
	}
}

func messageSendDescriptor(comm *communication.Service) Descriptor {
	return Descriptor{
		Name:        "message_send",
		Description: "Sends a directed message from one participant to another within a session.",
		InputSchema: messageSchema(true),
		Category:    "communication",
		Handler: func(_ context.Context, args map[string]any) (any, error) {
			req, err := messageRequest(args)
			if err != nil {
				return nil, err
			}
			id, err := comm.SendMessage(req)
			if err != nil {
				return nil, err
			}
			return map[string]any{"message_id": id}, nil
		},
	}
}

func messageBroadcastDescriptor(comm *communication.Service) Descriptor {
	return Descriptor{
		Name:        "message_broadcast",
		Description: "Sends a message to every other participant in a session.",
		InputSchema: messageSchema(false),
		Category:    "communication",
		Handler: func(_ context.Context, args map[string]any) (any, error) {
			req, err := messageRequest(args)
			if err != nil {
				return nil, err
			}
			id, err := comm.BroadcastMessage(req)
			if err != nil {
				return nil, err
			}
			return map[string]any{"message_id": id}, nil
		},
	}
}

func messageHistoryDescriptor(comm *communication.Service) Descriptor {
	return Descriptor{
		Name:        "message_history",
		Description: "Returns a session's message history, most recent last.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"session_id": map[string]any{"type": "string"},
				"limit":      map[string]any{"type": "integer"},
			},
			"required":             []any{"session_id"},
			"additionalProperties": false,
		},
		Category: "communication",
		Handler: func(_ context.Context, args map[string]any) (any, error) {
			id, err := requireStringArg(args, "session_id")
			if err != nil {
				return nil, err
			}
			history, err := comm.GetHistory(id, intArg(args, "limit", 0))
			if err != nil {
				return nil, err
			}
			return map[string]any{"messages": history}, nil
		},
	}
}

func sessionIDSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"session_id": map[string]any{"type": "string"},
		},
		"required":             []any{"session_id"},
		"additionalProperties": false,
	}
}

func sessionAgentSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"session_id": map[string]any{"type": "string"},
			"agent_id":   map[string]any{"type": "string"},
		},
		"required":             []any{"session_id", "agent_id"},
		"additionalProperties": false,
	}
}

func requireSessionAndAgent(args map[string]any) (string, string, error) {
	sessionID, err := requireStringArg(args, "session_id")
	if err != nil {
		return "", "", err
	}
	agentID, err := requireStringArg(args, "agent_id")
	if err != nil {
		return "", "", err
	}
	return sessionID, agentID, nil
}

func messageSchema(withToAgent bool) map[string]any {
	properties := map[string]any{
		"session_id": map[string]any{"type": "string"},
		"from_agent": map[string]any{"type": "string"},
		"content":    map[string]any{"type": "string"},
		"type":       map[string]any{"type": "string", "enum": []any{"update", "question", "decision", "action", "insight"}},
		"metadata":   map[string]any{"type": "object"},
	}
	if withToAgent {
		properties["to_agent"] = map[string]any{"type": "string"}
	}
	return map[string]any{
		"type":                 "object",
		"properties":           properties,
		"required":             []any{"session_id", "from_agent", "content"},
		"additionalProperties": false,
	}
}

func messageRequest(args map[string]any) (communication.SendMessageRequest, error) {
	sessionID, err := requireStringArg(args, "session_id")
	if err != nil {
		return communication.SendMessageRequest{}, err
	}
	fromAgent, err := requireStringArg(args, "from_agent")
	if err != nil {
		return communication.SendMessageRequest{}, err
	}
	content, err := requireStringArg(args, "content")
	if err != nil {
		return communication.SendMessageRequest{}, err
	}
	return communication.SendMessageRequest{
		SessionID: sessionID,
		FromAgent: fromAgent,
		ToAgent:   stringArg(args, "to_agent"),
		Content:   content,
		Type:      communication.MessageType(stringArg(args, "type")),
		Metadata:  mapArg(args, "metadata"),
	}, nil
}
