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
	"bufio"
	"context"
	"io"
	"sync"

	"github.com/oneagent-dev/oneagent/pkg/oneerr"
)

// stdioReadBufferBytes bounds a single line so a runaway client can't
// exhaust memory feeding an unterminated message.
const stdioReadBufferBytes = 1024 * 1024

// readResult is one line read from the underlying reader, or the error
// that ended the read.
type readResult struct {
	data []byte
	err  error
}

// StdioServerTransport is the Transport used when oneagent-mcp runs as
// a subprocess launched by an MCP client (Claude Desktop, an IDE
// plugin) rather than serving HTTP+SSE. Each message is a single line
// of JSON terminated by '\n' on stdin/stdout.
//
// A single reader goroutine runs for the transport's lifetime and feeds
// lines into readCh; Receive just selects on that channel against the
// caller's context, so a cancelled Receive never leaves a goroutine
// blocked on the underlying ReadBytes call.
type StdioServerTransport struct {
	reader *bufio.Reader
	writer io.Writer

	mu     sync.Mutex
	closed bool

	readCh chan readResult
	once   sync.Once
}

// NewStdioServerTransport wraps r/w (typically os.Stdin/os.Stdout) as a
// Transport.
func NewStdioServerTransport(r io.Reader, w io.Writer) *StdioServerTransport {
	return &StdioServerTransport{
		reader: bufio.NewReaderSize(r, stdioReadBufferBytes),
		writer: w,
		readCh: make(chan readResult, 1),
	}
}

// startReader launches the persistent line-reader goroutine exactly
// once, however many times Receive is called.
func (t *StdioServerTransport) startReader() {
	t.once.Do(func() {
		go func() {
			defer close(t.readCh)
			for {
				line, err := t.reader.ReadBytes('\n')
				t.readCh <- readResult{data: line, err: err}
				if err != nil {
					return
				}
			}
		}()
	})
}

// Send writes message followed by a newline.
func (t *StdioServerTransport) Send(_ context.Context, message []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return oneerr.New(oneerr.BackendUnavailable, "stdio transport closed")
	}

	if _, err := t.writer.Write(message); err != nil {
		return oneerr.Wrap(oneerr.BackendUnavailable, err, "write message")
	}
	if _, err := t.writer.Write([]byte("\n")); err != nil {
		return oneerr.Wrap(oneerr.BackendUnavailable, err, "write newline")
	}

	return nil
}

// Receive blocks until the next line arrives, the transport is closed,
// or ctx is cancelled. Blank lines are skipped rather than returned.
func (t *StdioServerTransport) Receive(ctx context.Context) ([]byte, error) {
	t.startReader()

	for {
		t.mu.Lock()
		closed := t.closed
		t.mu.Unlock()
		if closed {
			return nil, oneerr.New(oneerr.BackendUnavailable, "stdio transport closed")
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case result, ok := <-t.readCh:
			if !ok {
				// Reader goroutine already exited after delivering its
				// terminal error; treat any further read as EOF.
				return nil, io.EOF
			}
			if result.err != nil {
				if result.err == io.EOF {
					return nil, io.EOF
				}
				return nil, oneerr.Wrap(oneerr.BackendUnavailable, result.err, "read message")
			}
			line := trimLineEnding(result.data)
			if len(line) == 0 {
				continue
			}
			return line, nil
		}
	}
}

// trimLineEnding strips a trailing "\n" or "\r\n".
func trimLineEnding(line []byte) []byte {
	if len(line) > 0 && line[len(line)-1] == '\n' {
		line = line[:len(line)-1]
	}
	if len(line) > 0 && line[len(line)-1] == '\r' {
		line = line[:len(line)-1]
	}
	return line
}

// Close marks the transport closed. The underlying reader/writer are
// left open since they're typically process stdin/stdout; the reader
// goroutine exits on its own once the pipe closes or errors.
func (t *StdioServerTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}
