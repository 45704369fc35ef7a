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

// Package transport implements the two ways an MCP client can reach
// the coordination substrate: a subprocess talking line-delimited JSON
// over stdio, or the Streamable HTTP+SSE transport the MCP 2025-06-18
// revision standardizes on.
package transport

import (
	"context"
	"io"
)

// Transport is one message-framed connection to an MCP client. The
// stdio and HTTP+SSE implementations both frame one JSON-RPC message
// per Send/Receive call; session and SSE-resumability concerns live
// above this interface, in the HTTP transport itself.
type Transport interface {
	Send(ctx context.Context, message []byte) error
	Receive(ctx context.Context) ([]byte, error)
	Close() error
}

// ReadWriteCloser combines io.Reader, io.Writer and io.Closer; *os.File
// satisfies it. StdioServerTransport takes a separate io.Reader and
// io.Writer rather than this type.
type ReadWriteCloser interface {
	io.Reader
	io.Writer
	io.Closer
}
