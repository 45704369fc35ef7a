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
package main

import (
	"fmt"
	"os"

	"github.com/oneagent-dev/oneagent/internal/config"
	"github.com/oneagent-dev/oneagent/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:     "oneagent-mcp",
	Short:   "OneAgent MCP server",
	Long:    "oneagent-mcp exposes session, tool, agent registry, communication, and NLACS coordination primitives over the Model Context Protocol.",
	Version: version.Get(),
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./oneagent-mcp.yaml)")

	rootCmd.PersistentFlags().Int("port", 8083, "HTTP+SSE bind port")
	rootCmd.PersistentFlags().String("host", "0.0.0.0", "HTTP+SSE bind host")
	rootCmd.PersistentFlags().Bool("stdio-only", false, "disable the HTTP+SSE transport, stdio only")

	rootCmd.PersistentFlags().Int("session-timeout-ms", 1_800_000, "session idle timeout in milliseconds")
	rootCmd.PersistentFlags().Int("session-cleanup-interval-ms", 300_000, "janitor sweep interval in milliseconds")
	rootCmd.PersistentFlags().String("cleanup-cron", "", "cron expression overriding the plain cleanup interval")
	rootCmd.PersistentFlags().Int("event-log-ttl-ms", 3_600_000, "event log retention in milliseconds")
	rootCmd.PersistentFlags().Int("max-events-per-session", 1000, "event log cap per (session,stream)")

	rootCmd.PersistentFlags().StringSlice("allowed-origins", nil, "additional allowed Origin header patterns")
	rootCmd.PersistentFlags().Bool("allow-localhost", true, "always allow localhost/127.0.0.1/::1 origins")
	rootCmd.PersistentFlags().Bool("require-origin-header", false, "reject requests with no Origin header")

	rootCmd.PersistentFlags().String("storage-driver", "memory", "session storage driver (memory, sqlite)")
	rootCmd.PersistentFlags().String("sqlite-path", "./oneagent-mcp.db", "sqlite database path when storage-driver=sqlite")

	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-file", "", "log file path (default: stderr)")

	rootCmd.PersistentFlags().Int("heartbeat-interval-ms", 30_000, "expected agent heartbeat cadence in milliseconds")
	rootCmd.PersistentFlags().Int("heartbeat-timeout-ms", 90_000, "agent liveness timeout in milliseconds")

	_ = viper.BindPFlag("server.port", rootCmd.PersistentFlags().Lookup("port"))
	_ = viper.BindPFlag("server.host", rootCmd.PersistentFlags().Lookup("host"))
	_ = viper.BindPFlag("server.stdio_only", rootCmd.PersistentFlags().Lookup("stdio-only"))

	_ = viper.BindPFlag("session.timeout_ms", rootCmd.PersistentFlags().Lookup("session-timeout-ms"))
	_ = viper.BindPFlag("session.cleanup_interval_ms", rootCmd.PersistentFlags().Lookup("session-cleanup-interval-ms"))
	_ = viper.BindPFlag("session.cleanup_cron", rootCmd.PersistentFlags().Lookup("cleanup-cron"))
	_ = viper.BindPFlag("session.event_log_ttl_ms", rootCmd.PersistentFlags().Lookup("event-log-ttl-ms"))
	_ = viper.BindPFlag("session.max_events_per_session", rootCmd.PersistentFlags().Lookup("max-events-per-session"))

	_ = viper.BindPFlag("origin.allowed_origins", rootCmd.PersistentFlags().Lookup("allowed-origins"))
	_ = viper.BindPFlag("origin.allow_localhost", rootCmd.PersistentFlags().Lookup("allow-localhost"))
	_ = viper.BindPFlag("origin.require_origin_header", rootCmd.PersistentFlags().Lookup("require-origin-header"))

	_ = viper.BindPFlag("storage.driver", rootCmd.PersistentFlags().Lookup("storage-driver"))
	_ = viper.BindPFlag("storage.sqlite_path", rootCmd.PersistentFlags().Lookup("sqlite-path"))

	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.file", rootCmd.PersistentFlags().Lookup("log-file"))

	_ = viper.BindPFlag("heartbeat.interval_ms", rootCmd.PersistentFlags().Lookup("heartbeat-interval-ms"))
	_ = viper.BindPFlag("heartbeat.timeout_ms", rootCmd.PersistentFlags().Lookup("heartbeat-timeout-ms"))

	rootCmd.AddCommand(serveCmd)
}

func initConfig() {
	var err error
	cfg, err = config.LoadConfig(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
}
