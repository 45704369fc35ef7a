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

// Package origin validates the HTTP Origin header against an allow-list
// of exact, wildcard, and protocol-prefix patterns, guarding the
// streamable-HTTP transport against DNS-rebinding attacks.
package origin

import (
	"path"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
)

// Config controls Validator behavior.
type Config struct {
	Patterns              []string
	AllowLocalhost        bool
	AllowFileProtocol     bool
	AllowVSCodeWebview    bool
	RequireOriginHeader   bool
	LogUnauthorizedAttempts bool
}

// Result is the outcome of validating one Origin header value.
type Result struct {
	Allowed        bool
	Reason         string
	MatchedPattern string
}

var localhostPatterns = []string{
	"http://localhost:*",
	"http://127.0.0.1:*",
	"http://[::1]:*",
}

// Validator is a pure function over an allow-list; the only side effects
// are an unauthorized-attempt counter and a structured log line, neither
// of which affect the result of subsequent calls with the same input.
type Validator struct {
	cfg     Config
	logger  *zap.Logger
	blocked int64
}

// New constructs a Validator. logger may be nil, in which case a no-op
// logger is used.
func New(cfg Config, logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{cfg: cfg, logger: logger}
}

// Validate classifies a raw Origin header value. It never mutates cfg
// and is safe for concurrent use.
func (v *Validator) Validate(rawOrigin string) Result {
	if rawOrigin == "" {
		if v.cfg.RequireOriginHeader {
			v.recordBlocked(rawOrigin, "origin_required")
			return Result{Allowed: false, Reason: "origin_required"}
		}
		return Result{Allowed: true, Reason: "no_origin_header_not_required"}
	}

	patterns := v.cfg.Patterns
	if v.cfg.AllowLocalhost {
		patterns = append(patterns, localhostPatterns...)
	}

	// Exact match first.
	for _, p := range patterns {
		if p == rawOrigin {
			return Result{Allowed: true, Reason: "exact_match", MatchedPattern: p}
		}
	}

	// Wildcard hostport match: "*" matches exactly one label or port segment,
	// so a match must keep the pattern's number of '.' and ':' separators.
	for _, p := range patterns {
		if !strings.Contains(p, "*") {
			continue
		}
		if ok, _ := path.Match(p, rawOrigin); ok &&
			strings.Count(p, ".") == strings.Count(rawOrigin, ".") &&
			strings.Count(p, ":") == strings.Count(rawOrigin, ":") {
			return Result{Allowed: true, Reason: "wildcard_match", MatchedPattern: p}
		}
	}

	// Protocol-prefix match, e.g. file:// or vscode-webview://.
	if v.cfg.AllowFileProtocol && strings.HasPrefix(rawOrigin, "file://") {
		return Result{Allowed: true, Reason: "file_protocol", MatchedPattern: "file://"}
	}
	if v.cfg.AllowVSCodeWebview && strings.HasPrefix(rawOrigin, "vscode-webview://") {
		return Result{Allowed: true, Reason: "vscode_webview_protocol", MatchedPattern: "vscode-webview://"}
	}
	for _, p := range patterns {
		if strings.HasSuffix(p, "://") && strings.HasPrefix(rawOrigin, p) {
			return Result{Allowed: true, Reason: "protocol_prefix", MatchedPattern: p}
		}
	}

	v.recordBlocked(rawOrigin, "origin_blocked")
	return Result{Allowed: false, Reason: "origin_blocked"}
}

func (v *Validator) recordBlocked(origin, reason string) {
	atomic.AddInt64(&v.blocked, 1)
	if v.cfg.LogUnauthorizedAttempts {
		v.logger.Warn("unauthorized origin", zap.String("origin", origin), zap.String("reason", reason))
	}
}

// BlockedCount returns the number of validations that resulted in a
// blocked/required outcome, for C11 to expose as origin_blocked_total.
func (v *Validator) BlockedCount() int64 { return atomic.LoadInt64(&v.blocked) }
