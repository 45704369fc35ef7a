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

package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/oneagent-dev/oneagent/pkg/origin"
	"github.com/oneagent-dev/oneagent/pkg/session"
	"go.uber.org/zap"
)

// DefaultSessionTTL is the recommended session TTL for production use (30 minutes).
const DefaultSessionTTL = 30 * time.Minute

// MCPHandler processes one MCP JSON-RPC message and returns its
// response. For notifications (no id) it returns a nil response.
type MCPHandler func(ctx context.Context, msg []byte) ([]byte, error)

// StreamableHTTPServer implements the MCP Streamable HTTP transport:
// a single endpoint that accepts POST for JSON-RPC request/response,
// GET for SSE resumption, and DELETE for explicit session termination.
// Session bookkeeping is delegated to a session.Manager (C4) so every
// transport shares the same lifecycle and event log; this struct holds
// no session state of its own.
//
// Security: origin validation (C2) runs on every request here. An
// operator that also wants to restrict the bind address should still
// prefer localhost per WarnIfNotLocalhost.
type StreamableHTTPServer struct {
	handler  MCPHandler
	sessions *session.Manager
	originV  *origin.Validator
	logger   *zap.Logger
}

// StreamableHTTPServerConfig configures the HTTP server transport.
type StreamableHTTPServerConfig struct {
	Handler  MCPHandler      // Required: processes MCP messages.
	Sessions *session.Manager // Required: session lifecycle and event log (C4).
	Origin   *origin.Validator // Required: Origin header validation (C2).
	Logger   *zap.Logger
}

// NewStreamableHTTPServer creates a new MCP streamable HTTP server handler.
func NewStreamableHTTPServer(config StreamableHTTPServerConfig) (*StreamableHTTPServer, error) {
	if config.Handler == nil {
		return nil, fmt.Errorf("handler is required")
	}
	if config.Sessions == nil {
		return nil, fmt.Errorf("sessions manager is required")
	}
	if config.Origin == nil {
		return nil, fmt.Errorf("origin validator is required")
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	return &StreamableHTTPServer{
		handler:  config.Handler,
		sessions: config.Sessions,
		originV:  config.Origin,
		logger:   config.Logger,
	}, nil
}

// corsHeaders is the header set §6 requires on both the preflight
// response and every actual response, so browser clients can read
// Mcp-Session-Id and drive SSE resumption across origins.
func corsHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Mcp-Session-Id, MCP-Protocol-Version, Last-Event-ID")
	h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	h.Set("Access-Control-Expose-Headers", "Mcp-Session-Id")
	h.Set("Access-Control-Max-Age", "86400")
}

func writeJSONError(w http.ResponseWriter, status int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": kind, "message": message})
}

// ServeHTTP implements http.Handler for the MCP endpoint.
func (s *StreamableHTTPServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	corsHeaders(w)

	result := s.originV.Validate(r.Header.Get("Origin"))
	if !result.Allowed {
		writeJSONError(w, http.StatusForbidden, result.Reason, "origin not permitted")
		return
	}
	if o := r.Header.Get("Origin"); o != "" {
		w.Header().Set("Access-Control-Allow-Origin", o)
	}

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	switch r.Method {
	case http.MethodPost:
		s.handlePost(w, r)
	case http.MethodDelete:
		s.handleDelete(w, r)
	case http.MethodGet:
		s.handleGet(w, r)
	default:
		w.Header().Set("Allow", "GET, POST, DELETE, OPTIONS")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *StreamableHTTPServer) handlePost(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	ct := r.Header.Get("Content-Type")
	if ct != "" {
		mediaType, _, _ := mime.ParseMediaType(ct)
		if mediaType != "application/json" {
			http.Error(w, "Content-Type must be application/json", http.StatusUnsupportedMediaType)
			return
		}
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 10*1024*1024)) // 10MB max
	if err != nil {
		s.logger.Error("failed to read request body", zap.Error(err))
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	if len(body) == 0 {
		http.Error(w, "Empty request body", http.StatusBadRequest)
		return
	}

	isInit := s.isInitializeRequest(body)
	sessionID := r.Header.Get("Mcp-Session-Id")

	if sessionID != "" {
		switch res, err := s.sessions.Touch(sessionID); {
		case err != nil:
			s.logger.Error("session touch failed", zap.Error(err))
			writeJSONError(w, http.StatusInternalServerError, "internal_error", "session lookup failed")
			return
		case res == session.TouchNotFound:
			writeJSONError(w, http.StatusNotFound, "session_not_found", "unknown Mcp-Session-Id")
			return
		case res == session.TouchExpired:
			writeJSONError(w, http.StatusGone, "session_expired", "session has expired")
			return
		}
	} else if !isInit {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Mcp-Session-Id header required outside initialize")
		return
	}

	var issued string
	ctx := session.WithIssuedSessionSink(r.Context(), &issued)
	ctx = session.WithRequestOrigin(ctx, r.Header.Get("Origin"))

	resp, err := s.handler(ctx, body)
	if err != nil {
		s.logger.Error("handler error", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	effectiveSessionID := sessionID
	if isInit && issued != "" {
		effectiveSessionID = issued
		w.Header().Set("Mcp-Session-Id", issued)
		s.logger.Info("created new session", zap.String("session_id", issued))
	}

	if resp == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	if effectiveSessionID != "" {
		if _, err := s.sessions.AddEvent(effectiveSessionID, "default", resp, session.EventResponse); err != nil {
			s.logger.Warn("failed to persist outbound event", zap.Error(err))
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(resp)
}

func (s *StreamableHTTPServer) handleDelete(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get("Mcp-Session-Id")
	if sessionID == "" {
		http.Error(w, "Mcp-Session-Id header required", http.StatusBadRequest)
		return
	}
	if err := s.sessions.Terminate(sessionID); err != nil {
		writeJSONError(w, http.StatusNotFound, "session_not_found", "unknown Mcp-Session-Id")
		return
	}
	s.logger.Info("session terminated", zap.String("session_id", sessionID))
	w.WriteHeader(http.StatusOK)
}

// handleGet serves SSE resumption: events strictly after Last-Event-ID
// are replayed immediately, then the stream is held open with periodic
// comment pings until the client disconnects.
func (s *StreamableHTTPServer) handleGet(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get("Mcp-Session-Id")
	if sessionID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Mcp-Session-Id header required")
		return
	}
	switch res, err := s.sessions.Touch(sessionID); {
	case err != nil:
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "session lookup failed")
		return
	case res == session.TouchNotFound:
		writeJSONError(w, http.StatusNotFound, "session_not_found", "unknown Mcp-Session-Id")
		return
	case res == session.TouchExpired:
		writeJSONError(w, http.StatusGone, "session_expired", "session has expired")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	lastEventID := r.Header.Get("Last-Event-ID")
	result, err := s.sessions.ReplayEvents(sessionID, "default", lastEventID)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "replay failed")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	for _, warning := range result.Warnings {
		fmt.Fprintf(w, ": %s\n\n", warning)
	}
	for _, ev := range result.Events {
		writeSSEEvent(w, ev)
	}
	flusher.Flush()

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := io.WriteString(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeSSEEvent(w http.ResponseWriter, ev session.Event) {
	fmt.Fprintf(w, "id: %s\nevent: message\ndata: %s\n\n", ev.ID, ev.Payload)
}

// isInitializeRequest checks if the body contains an initialize method call.
func (s *StreamableHTTPServer) isInitializeRequest(body []byte) bool {
	var req struct {
		Method string `json:"method"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return false
	}
	return req.Method == "initialize"
}

// SessionCount returns the number of active sessions.
func (s *StreamableHTTPServer) SessionCount() int {
	return s.sessions.Metrics().SessionsActive
}

// Close is a no-op retained for API compatibility; session cleanup is
// owned by the session.Manager's own janitor (C4), started/stopped
// independently of this transport.
func (s *StreamableHTTPServer) Close() {}

// WarnIfNotLocalhost logs a warning if the given listen address appears to bind
// to a non-localhost interface. This transport relies on Origin validation
// rather than authentication, so binding to a public interface widens
// who can attempt to reach it.
func WarnIfNotLocalhost(logger *zap.Logger, addr string) {
	if logger == nil {
		return
	}
	host := addr
	if idx := strings.LastIndex(addr, ":"); idx >= 0 {
		host = addr[:idx]
	}
	host = strings.Trim(host, "[]")

	switch host {
	case "", "0.0.0.0", "::":
		logger.Warn("MCP HTTP transport binding to all interfaces",
			zap.String("addr", addr),
			zap.String("recommendation", "bind to 127.0.0.1 or ::1 for localhost-only access"),
		)
	case "127.0.0.1", "::1", "localhost":
	default:
		logger.Warn("MCP HTTP transport binding to non-localhost address",
			zap.String("addr", addr),
			zap.String("recommendation", "bind to 127.0.0.1 or ::1 for localhost-only access"),
		)
	}
}
