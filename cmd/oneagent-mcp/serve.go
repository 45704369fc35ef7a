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
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oneagent-dev/oneagent/internal/config"
	"github.com/oneagent-dev/oneagent/internal/version"
	"github.com/oneagent-dev/oneagent/pkg/agent"
	"github.com/oneagent-dev/oneagent/pkg/backbone"
	"github.com/oneagent-dev/oneagent/pkg/communication"
	"github.com/oneagent-dev/oneagent/pkg/mcp/server"
	"github.com/oneagent-dev/oneagent/pkg/mcp/transport"
	"github.com/oneagent-dev/oneagent/pkg/monitoring"
	"github.com/oneagent-dev/oneagent/pkg/nlacs"
	"github.com/oneagent-dev/oneagent/pkg/origin"
	"github.com/oneagent-dev/oneagent/pkg/session"
	"github.com/oneagent-dev/oneagent/pkg/tools"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const serverName = "oneagent-mcp"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the OneAgent MCP server",
	RunE:  runServe,
}

func runServe(_ *cobra.Command, _ []string) error {
	logger, err := buildLogger(cfg.Logging.File, cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting oneagent-mcp",
		zap.String("version", version.Get()),
		zap.Bool("stdio_only", cfg.Server.StdioOnly),
		zap.String("storage_driver", cfg.Storage.Driver),
	)

	bb := backbone.New()

	storage, storageCloser, err := buildStorage(cfg, bb)
	if err != nil {
		return fmt.Errorf("building session storage: %w", err)
	}
	defer storageCloser()

	// The sqlite driver only varies SessionStorage; no durable EventLog
	// implementation exists, so the event log is always the in-memory
	// CacheEventLog regardless of the selected storage driver.
	events := session.NewCacheEventLog(bb.Cache(), bb, bb.NewID, cfg.Session.MaxEventsPerSession)

	sessions := session.NewManager(storage, events, bb, logger, session.Config{
		IdleTimeout:         cfg.SessionTimeout(),
		MaxEventsPerSession: cfg.Session.MaxEventsPerSession,
		CleanupInterval:     cfg.SessionCleanupInterval(),
		EventTTL:            cfg.SessionEventTTL(),
		CleanupCron:         cfg.Session.CleanupCron,
	})
	sessions.StartJanitor()
	defer sessions.StopJanitor()

	originV := origin.New(origin.Config{
		Patterns:            cfg.Origin.AllowedOrigins,
		AllowLocalhost:      cfg.Origin.AllowLocalhost,
		RequireOriginHeader: cfg.Origin.RequireOriginHeader,
	}, logger)

	toolReg := tools.New(bb, logger)

	var commService *communication.Service
	agents := agent.New(bb, agent.Config{HeartbeatTimeout: cfg.HeartbeatTimeout()}, func(agentID string, old, new agent.Status) {
		if commService != nil {
			commService.Publish(communication.EventAgentStatusChanged, "", agentID, map[string]string{
				"old": string(old),
				"new": string(new),
			})
		}
	})

	commService = communication.New(bb, agents, logger, communication.Config{})
	defer commService.Close()

	nlacsService := nlacs.New(bb, commService, logger, nlacs.Config{
		Strategy: nlacs.HeuristicStrategy{},
		Breakthrough: nlacs.BreakthroughThresholds{
			MinConfidence: 0.7,
			MinRelevance:  0.6,
		},
	})

	agg := monitoring.New(sessions, toolReg, agents, commService, originV)
	if err := toolReg.Register(tools.SystemHealthDescriptor(agg.HealthSnapshotFunc())); err != nil {
		return fmt.Errorf("registering system_health tool: %w", err)
	}
	if err := toolReg.RegisterAll(tools.AgentDescriptors(agents)); err != nil {
		return fmt.Errorf("registering agent tools: %w", err)
	}
	if err := toolReg.RegisterAll(tools.CommunicationDescriptors(commService)); err != nil {
		return fmt.Errorf("registering communication tools: %w", err)
	}
	if err := toolReg.RegisterAll(tools.NLACSDescriptors(nlacsService)); err != nil {
		return fmt.Errorf("registering nlacs tools: %w", err)
	}

	mcpServer := server.NewMCPServer(serverName, version.Get(), logger,
		server.WithToolProvider(server.NewToolRegistryProvider(toolReg)),
		server.WithSessionManager(sessions),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go runLivenessSweeper(ctx, agents, cfg.HeartbeatInterval(), logger)

	var httpSrv *http.Server
	if !cfg.Server.StdioOnly {
		httpSrv = buildHTTPServer(cfg, mcpServer, sessions, originV, agg, logger)
		transport.WarnIfNotLocalhost(logger, cfg.Addr())
		go func() {
			logger.Info("HTTP+SSE transport listening", zap.String("addr", cfg.Addr()))
			if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("HTTP server error", zap.Error(err))
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("shutting down gracefully (press Ctrl+C again to force)", zap.String("signal", sig.String()))

		go func() {
			<-sigCh
			logger.Warn("force shutdown requested")
			os.Exit(1)
		}()

		cancel()

		if httpSrv != nil {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			if err := httpSrv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("error stopping HTTP server", zap.Error(err))
			} else {
				logger.Info("HTTP server stopped")
			}
		}

		sessions.StopJanitor()
	}()

	stdioID, _, err := sessions.Create("stdio", "", "", nil, nil)
	if err != nil {
		return fmt.Errorf("creating stdio session: %w", err)
	}
	mcpServer.SetActiveSession(stdioID)
	defer func() { _ = sessions.Terminate(stdioID) }()

	stdioTransport := transport.NewStdioServerTransport(os.Stdin, os.Stdout)
	logger.Info("stdio transport ready, awaiting client connections")
	if err := mcpServer.Serve(ctx, stdioTransport); err != nil {
		if ctx.Err() != nil {
			logger.Info("server stopped gracefully")
			return nil
		}
		return fmt.Errorf("stdio transport: %w", err)
	}
	return nil
}

// runLivenessSweeper periodically transitions agents that have missed
// their heartbeat cadence to offline, at the same cadence agents are
// expected to heartbeat in. Stops when ctx is cancelled.
func runLivenessSweeper(ctx context.Context, agents *agent.Registry, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := agents.SweepLiveness(); n > 0 {
				logger.Info("liveness sweep marked agents offline", zap.Int("count", n))
			}
		}
	}
}

// buildStorage selects the SessionStorage backend per ONEAGENT_MCP_STORAGE_DRIVER,
// returning a closer that releases any backend resources (a no-op for the
// in-memory cache driver).
func buildStorage(cfg *config.Config, bb *backbone.Backbone) (session.SessionStorage, func(), error) {
	switch cfg.Storage.Driver {
	case "sqlite":
		store, err := session.OpenSQLiteStorage(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite storage at %s: %w", cfg.Storage.SQLitePath, err)
		}
		return store, func() { _ = store.Close() }, nil
	default:
		return session.NewCacheStorage(bb.Cache()), func() {}, nil
	}
}

func buildHTTPServer(cfg *config.Config, mcpServer *server.MCPServer, sessions *session.Manager, originV *origin.Validator, agg *monitoring.Aggregator, logger *zap.Logger) *http.Server {
	mcpHandler, err := transport.NewStreamableHTTPServer(transport.StreamableHTTPServerConfig{
		Handler:  mcpServer.HandleMessage,
		Sessions: sessions,
		Origin:   originV,
		Logger:   logger,
	})
	if err != nil {
		logger.Fatal("failed to build HTTP+SSE transport", zap.Error(err))
	}

	mux := http.NewServeMux()
	mux.Handle("/", mcpHandler)
	mux.HandleFunc("/health", agg.ServeHealth)
	mux.HandleFunc("/health/sessions", agg.ServeHealthSessions)
	mux.Handle("/metrics", agg.MetricsHandler())

	return &http.Server{
		Addr:    cfg.Addr(),
		Handler: mux,
	}
}

// buildLogger creates a zap logger that writes to a file, or stderr when
// no file is configured. It must never write to stdout: stdout is the
// stdio MCP transport.
func buildLogger(logFile, logLevel string) (*zap.Logger, error) {
	level := parseLogLevel(logLevel)

	var output zapcore.WriteSyncer
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return nil, fmt.Errorf("open log file %s: %w", logFile, err)
		}
		output = zapcore.AddSync(f)
	} else {
		output = zapcore.AddSync(os.Stderr)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "ts"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), output, level)
	return zap.New(core, zap.AddStacktrace(zap.ErrorLevel)), nil
}

func parseLogLevel(logLevel string) zapcore.Level {
	switch logLevel {
	case "debug":
		return zap.DebugLevel
	case "warn":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}
