// Package main implements the entry point for the WhastapWeb gateway.
// WhastapWeb exposes an HTTP surface for managing messaging-protocol
// sessions (QR pairing, lifecycle, logout) and for dispatching outbound
// text and media messages through a protocol engine sidecar.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/piyushkb/WhastapWeb/auth"
	"github.com/piyushkb/WhastapWeb/config"
	"github.com/piyushkb/WhastapWeb/engine/natsengine"
	"github.com/piyushkb/WhastapWeb/gateway"
	"github.com/piyushkb/WhastapWeb/message"
	"github.com/piyushkb/WhastapWeb/metric"
	"github.com/piyushkb/WhastapWeb/session"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "whastapweb"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	// Parse and validate CLI flags
	cliCfg, logger, shouldExit, err := initializeCLI()
	if shouldExit || err != nil {
		return err
	}

	// Load and validate configuration
	cfg, err := initializeConfiguration(cliCfg)
	if err != nil {
		return err
	}

	if cliCfg.Validate {
		slog.Info("Configuration is valid")
		return nil
	}

	ctx := context.Background()

	// Connect to the protocol engine sidecar
	eng, err := connectEngine(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer eng.Close()

	// Wire the gateway components
	server, err := buildServer(cfg, eng, logger)
	if err != nil {
		return err
	}

	return runWithSignalHandling(ctx, server)
}

// initializeCLI parses flags and sets up logging
func initializeCLI() (*CLIConfig, *slog.Logger, bool, error) {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return nil, nil, false, fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil, nil, true, nil
	}

	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil, nil, true, nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	slog.Info("Starting WhastapWeb gateway",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath)

	return cliCfg, logger, false, nil
}

// initializeConfiguration loads and validates configuration
func initializeConfiguration(cliCfg *CLIConfig) (*config.Config, error) {
	cfg, err := config.Load(cliCfg.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if cliCfg.Addr != "" {
		cfg.HTTP.Addr = cliCfg.Addr
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// connectEngine establishes the NATS connection to the engine sidecar and
// waits for it to be ready.
func connectEngine(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*natsengine.Client, error) {
	slog.Info("Connecting to engine", "url", cfg.Engine.URL)

	eng := natsengine.New(cfg.Engine.URL,
		natsengine.WithClientName(cfg.Engine.ClientName),
		natsengine.WithRequestTimeout(cfg.Engine.RequestTimeout()),
		natsengine.WithLogger(logger),
	)

	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := eng.Connect(connCtx); err != nil {
		return nil, fmt.Errorf("connect to engine: %w", err)
	}

	return eng, nil
}

// buildServer wires the keyring, orchestrator, message gateway and metrics
// into the HTTP surface.
func buildServer(cfg *config.Config, eng *natsengine.Client, logger *slog.Logger) (*gateway.Server, error) {
	keyring, err := auth.NewKeyring(cfg.Auth.Keys)
	if err != nil {
		return nil, fmt.Errorf("build keyring: %w", err)
	}

	registry := metric.NewRegistry()

	orchestrator := session.New(eng,
		session.WithLogger(logger),
		session.WithMetrics(registry.Metrics),
		session.WithStartTimeout(cfg.Session.StartTimeout()),
	)

	messages := message.NewGateway(eng, orchestrator,
		message.WithLogger(logger),
		message.WithMetrics(registry.Metrics),
	)

	serverCfg := gateway.Config{
		Addr:            cfg.HTTP.Addr,
		ReadTimeout:     cfg.HTTP.ReadTimeout(),
		WriteTimeout:    cfg.HTTP.WriteTimeout(),
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout(),
	}

	server, err := gateway.NewServer(serverCfg, gateway.Dependencies{
		Keyring:  keyring,
		Sessions: orchestrator,
		Messages: messages,
		Registry: registry,
		Engine:   eng,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build server: %w", err)
	}
	return server, nil
}

// runWithSignalHandling starts the server and blocks until shutdown
func runWithSignalHandling(ctx context.Context, server *gateway.Server) error {
	signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	if err := server.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	slog.Info("WhastapWeb gateway started", "addr", server.Addr())

	<-signalCtx.Done()
	slog.Info("Received shutdown signal")

	if err := server.Stop(); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	slog.Info("WhastapWeb shutdown complete")
	return nil
}
