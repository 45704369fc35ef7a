// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package session

import "context"

// sessionIDKey is the context key for session IDs
type sessionIDKey struct{}

// WithSessionID injects a session ID into the context
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	if sessionID == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionIDKey{}, sessionID)
}

// SessionIDFromContext extracts the session ID from the context
// Returns empty string if not found
func SessionIDFromContext(ctx context.Context) string {
	if sessionID, ok := ctx.Value(sessionIDKey{}).(string); ok {
		return sessionID
	}
	return ""
}

// issuedSessionKey carries a pointer a transport can read after the
// engine handles an initialize call, so the id minted by Manager.Create
// reaches whichever transport needs to surface it (an Mcp-Session-Id
// response header over HTTP; nothing over stdio).
type issuedSessionKey struct{}

// WithIssuedSessionSink attaches a write-once sink for the session ID
// that the engine's initialize handler issues, if any.
func WithIssuedSessionSink(ctx context.Context, sink *string) context.Context {
	return context.WithValue(ctx, issuedSessionKey{}, sink)
}

// IssuedSessionSink returns the sink attached by WithIssuedSessionSink, if any.
func IssuedSessionSink(ctx context.Context) (*string, bool) {
	sink, ok := ctx.Value(issuedSessionKey{}).(*string)
	return sink, ok
}

// requestOriginKey carries the request's Origin header value, set by
// the transport that accepted the connection, read by the engine when
// it creates a session so the session record carries the origin it
// was opened from.
type requestOriginKey struct{}

// WithRequestOrigin attaches the Origin header value to the context.
func WithRequestOrigin(ctx context.Context, origin string) context.Context {
	return context.WithValue(ctx, requestOriginKey{}, origin)
}

// RequestOrigin returns the Origin header value attached by
// WithRequestOrigin, or "" if none was set.
func RequestOrigin(ctx context.Context) string {
	origin, _ := ctx.Value(requestOriginKey{}).(string)
	return origin
}
