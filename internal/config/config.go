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

// Package config loads OneAgent's MCP server configuration from flags,
// environment variables, and an optional config file, in that order of
// precedence, via viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig configures the transports (C7, C13).
type ServerConfig struct {
	Port       int    `mapstructure:"port"`
	Host       string `mapstructure:"host"`
	StdioOnly  bool   `mapstructure:"stdio_only"`
}

// SessionConfig configures session lifecycle and the event log (C4).
type SessionConfig struct {
	TimeoutMS           int    `mapstructure:"timeout_ms"`
	CleanupIntervalMS   int    `mapstructure:"cleanup_interval_ms"`
	CleanupCron         string `mapstructure:"cleanup_cron"`
	EventLogTTLMS       int    `mapstructure:"event_log_ttl_ms"`
	MaxEventsPerSession int    `mapstructure:"max_events_per_session"`
}

// OriginConfig configures Origin header validation (C2).
type OriginConfig struct {
	AllowedOrigins      []string `mapstructure:"allowed_origins"`
	AllowLocalhost      bool     `mapstructure:"allow_localhost"`
	RequireOriginHeader bool     `mapstructure:"require_origin_header"`
}

// StorageConfig selects the session storage driver (C14).
type StorageConfig struct {
	Driver     string `mapstructure:"driver"` // "memory" or "sqlite"
	SQLitePath string `mapstructure:"sqlite_path"`
}

// LoggingConfig configures the zap logger (ambient).
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// HeartbeatConfig configures agent liveness detection (C8).
type HeartbeatConfig struct {
	IntervalMS int `mapstructure:"interval_ms"`
	TimeoutMS  int `mapstructure:"timeout_ms"`
}

// Config is the complete, validated configuration for the oneagent-mcp
// process.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Session   SessionConfig   `mapstructure:"session"`
	Origin    OriginConfig    `mapstructure:"origin"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Heartbeat HeartbeatConfig `mapstructure:"heartbeat"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8083)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.stdio_only", false)

	v.SetDefault("session.timeout_ms", 1_800_000)
	v.SetDefault("session.cleanup_interval_ms", 300_000)
	v.SetDefault("session.cleanup_cron", "")
	v.SetDefault("session.event_log_ttl_ms", 3_600_000)
	v.SetDefault("session.max_events_per_session", 1000)

	v.SetDefault("origin.allowed_origins", []string{})
	v.SetDefault("origin.allow_localhost", true)
	v.SetDefault("origin.require_origin_header", false)

	v.SetDefault("storage.driver", "memory")
	v.SetDefault("storage.sqlite_path", "./oneagent-mcp.db")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "")

	v.SetDefault("heartbeat.interval_ms", 30_000)
	v.SetDefault("heartbeat.timeout_ms", 90_000)
}

// LoadConfig reads defaults, an optional config file, and environment
// variables (ONEAGENT_MCP_* / ONEAGENT_HEARTBEAT_*) into a Config,
// flags already bound to viper by the caller take precedence over all
// of these. cfgFile may be empty, in which case ./oneagent-mcp.{yaml,json,toml}
// is searched for but its absence is not an error.
func LoadConfig(cfgFile string) (*Config, error) {
	v := viper.GetViper()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("oneagent-mcp")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnv(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// bindEnv wires each field to its ONEAGENT_MCP_* / ONEAGENT_HEARTBEAT_*
// env var explicitly, since the two top-level prefixes mean a single
// viper.SetEnvPrefix call cannot cover both families.
func bindEnv(v *viper.Viper) {
	binds := map[string]string{
		"server.port":                    "ONEAGENT_MCP_PORT",
		"server.host":                    "ONEAGENT_MCP_HOST",
		"server.stdio_only":              "ONEAGENT_MCP_STDIO_ONLY",
		"session.timeout_ms":             "ONEAGENT_MCP_SESSION_TIMEOUT_MS",
		"session.cleanup_interval_ms":    "ONEAGENT_MCP_SESSION_CLEANUP_INTERVAL_MS",
		"session.cleanup_cron":           "ONEAGENT_MCP_CLEANUP_CRON",
		"session.event_log_ttl_ms":       "ONEAGENT_MCP_EVENT_LOG_TTL_MS",
		"session.max_events_per_session": "ONEAGENT_MCP_MAX_EVENTS_PER_SESSION",
		"origin.allowed_origins":         "ONEAGENT_MCP_ALLOWED_ORIGINS",
		"origin.allow_localhost":         "ONEAGENT_MCP_ALLOW_LOCALHOST",
		"origin.require_origin_header":   "ONEAGENT_MCP_REQUIRE_ORIGIN_HEADER",
		"storage.driver":                 "ONEAGENT_MCP_STORAGE_DRIVER",
		"storage.sqlite_path":            "ONEAGENT_MCP_SQLITE_PATH",
		"logging.level":                  "ONEAGENT_MCP_LOG_LEVEL",
		"logging.file":                   "ONEAGENT_MCP_LOG_FILE",
		"heartbeat.interval_ms":          "ONEAGENT_HEARTBEAT_INTERVAL_MS",
		"heartbeat.timeout_ms":           "ONEAGENT_HEARTBEAT_TIMEOUT_MS",
	}
	for key, env := range binds {
		_ = v.BindEnv(key, env)
	}
}

// Validate checks invariants LoadConfig cannot express as plain
// defaults: port ranges, positive durations, and a recognized
// storage driver. Call once at startup; a validation failure should
// abort the process before any subsystem is constructed.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range [1, 65535]", c.Server.Port)
	}
	if c.Session.TimeoutMS <= 0 {
		return fmt.Errorf("session.timeout_ms must be positive")
	}
	if c.Session.CleanupIntervalMS <= 0 {
		return fmt.Errorf("session.cleanup_interval_ms must be positive")
	}
	if c.Session.EventLogTTLMS <= 0 {
		return fmt.Errorf("session.event_log_ttl_ms must be positive")
	}
	if c.Session.MaxEventsPerSession <= 0 {
		return fmt.Errorf("session.max_events_per_session must be positive")
	}
	switch c.Storage.Driver {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("storage.driver %q must be one of: memory, sqlite", c.Storage.Driver)
	}
	if c.Storage.Driver == "sqlite" && c.Storage.SQLitePath == "" {
		return fmt.Errorf("storage.sqlite_path is required when storage.driver is sqlite")
	}
	if c.Heartbeat.IntervalMS <= 0 {
		return fmt.Errorf("heartbeat.interval_ms must be positive")
	}
	if c.Heartbeat.TimeoutMS <= 0 {
		return fmt.Errorf("heartbeat.timeout_ms must be positive")
	}
	if c.Heartbeat.TimeoutMS <= c.Heartbeat.IntervalMS {
		return fmt.Errorf("heartbeat.timeout_ms must exceed heartbeat.interval_ms")
	}
	return nil
}

// SessionTimeout returns the session idle timeout as a time.Duration.
func (c *Config) SessionTimeout() time.Duration {
	return time.Duration(c.Session.TimeoutMS) * time.Millisecond
}

// SessionCleanupInterval returns the janitor sweep interval.
func (c *Config) SessionCleanupInterval() time.Duration {
	return time.Duration(c.Session.CleanupIntervalMS) * time.Millisecond
}

// SessionEventTTL returns the event log retention window.
func (c *Config) SessionEventTTL() time.Duration {
	return time.Duration(c.Session.EventLogTTLMS) * time.Millisecond
}

// HeartbeatInterval returns the expected agent heartbeat cadence.
func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.Heartbeat.IntervalMS) * time.Millisecond
}

// HeartbeatTimeout returns how long an agent may go quiet before it is
// marked offline.
func (c *Config) HeartbeatTimeout() time.Duration {
	return time.Duration(c.Heartbeat.TimeoutMS) * time.Millisecond
}

// Addr returns the host:port the HTTP+SSE transport should bind to.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
