// Package main is the entry point for the WhatsApp MCP gateway.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/mdp/qrterminal/v3"

	"github.com/wamcp/whatsapp-mcp-gateway/internal/backend"
	"github.com/wamcp/whatsapp-mcp-gateway/internal/bridge"
	"github.com/wamcp/whatsapp-mcp-gateway/internal/config"
	"github.com/wamcp/whatsapp-mcp-gateway/internal/conn"
	"github.com/wamcp/whatsapp-mcp-gateway/internal/format"
	"github.com/wamcp/whatsapp-mcp-gateway/internal/store"
	"github.com/wamcp/whatsapp-mcp-gateway/pkg/api"
	"github.com/wamcp/whatsapp-mcp-gateway/pkg/mcp"
)

var (
	configPath  = flag.String("config", "config.yaml", "Path to config file")
	logLevel    = flag.String("log-level", "", "Log level (debug, info, warn, error)")
	backendName = flag.String("backend", "", "Backend variant (real, mock, unavailable)")
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Flag overrides
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *backendName != "" {
		cfg.Backend = *backendName
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	logger.Info("WhatsApp MCP gateway starting",
		"config", *configPath,
		"backend", cfg.Backend,
		"bridge_url", cfg.BridgeURL,
	)

	// The message database lives wherever the bridge writes it. Failing
	// to open it degrades data tools to "unavailable" but the gateway
	// still serves connection and messaging tools.
	var st *store.SQLiteStore
	if err := os.MkdirAll(filepath.Dir(cfg.StorePath), 0700); err != nil {
		logger.Warn("Failed to create data directory", "error", err)
	} else if st, err = store.NewSQLiteStore(cfg.StorePath); err != nil {
		logger.Warn("Failed to open message database, data tools degraded", "path", cfg.StorePath, "error", err)
		st = nil
	}
	if st != nil {
		defer st.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	client := bridge.NewClient(cfg, logger)
	resolver := conn.NewResolver(client, logger)
	waiter := conn.NewWaiter(resolver, cfg.PollInterval, logger)
	b := backend.NewFromConfig(cfg, client, resolver, waiter, st, logger)

	// Resolve once at startup so an operator watching stderr sees the
	// pairing QR code without needing an MCP client first.
	printStartupStatus(ctx, resolver, logger)

	formatter := format.New(cfg.CharacterLimit)
	handler := api.NewHandler(b, formatter, format.ParseMode(cfg.ResponseFormat))
	mcpServer := mcp.NewServer(os.Stdin, os.Stdout, handler, logger)

	errChan := make(chan error, 1)
	go func() {
		errChan <- mcpServer.Run(ctx)
	}()

	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", "signal", sig)
		cancel()
	case err := <-errChan:
		if err != nil && err != context.Canceled {
			logger.Error("MCP server error", "error", err)
		}
	}

	logger.Info("WhatsApp MCP gateway stopped")
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	// Logs go to stderr; stdout belongs to the MCP transport.
	var handler slog.Handler
	if cfg.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	return slog.New(handler)
}

func printStartupStatus(ctx context.Context, resolver *conn.Resolver, logger *slog.Logger) {
	snap := resolver.Snapshot(ctx)
	logger.Info("Connection state resolved", "state", snap.State, "bridge_running", snap.BridgeRunning)

	switch snap.State {
	case conn.StateConnected:
		fmt.Fprintf(os.Stderr, "WhatsApp connected as %s\n", snap.PhoneNumber)
	case conn.StatePending:
		fmt.Fprintln(os.Stderr, "╔══════════════════════════════════════════╗")
		fmt.Fprintln(os.Stderr, "║  Scan this QR code with WhatsApp Mobile  ║")
		fmt.Fprintln(os.Stderr, "╚══════════════════════════════════════════╝")
		qrterminal.GenerateHalfBlock(snap.QR.RawString, qrterminal.L, os.Stderr)
		fmt.Fprintln(os.Stderr, "")
	default:
		fmt.Fprintf(os.Stderr, "%s\n", snap.Message)
	}
}
