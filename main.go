package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/room4-2/agentbridge/banking"
	"github.com/room4-2/agentbridge/config"
	"github.com/room4-2/agentbridge/deepgram"
	"github.com/room4-2/agentbridge/functions"
	"github.com/room4-2/agentbridge/logger"
	"github.com/room4-2/agentbridge/metrics"
	"github.com/room4-2/agentbridge/server"
	"github.com/room4-2/agentbridge/session"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	// Banking functions exposed to the agent
	ledger := banking.NewLedger(banking.DemoAccounts())
	registry, err := functions.NewRegistry(banking.Functions(ledger)...)
	if err != nil {
		log.Error("failed to build function registry", slog.Any("err", err))
		os.Exit(1)
	}
	dispatcher := functions.NewDispatcher(registry, cfg.FunctionTimeout, log)

	settings, err := deepgram.LoadSettings(cfg.AgentSettingsPath, registry)
	if err != nil {
		log.Error("failed to load agent settings", slog.Any("err", err))
		os.Exit(1)
	}

	// Create session manager
	sessionManager, err := session.NewManager(cfg, dispatcher, settings, log)
	if err != nil {
		log.Error("failed to create session manager", slog.Any("err", err))
		os.Exit(1)
	}

	// Start cleanup routine
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sessionManager.StartCleanupRoutine(ctx)

	twilioSrv := server.NewTwilioServer(cfg, sessionManager,
		deepgram.Dialer(cfg.AgentURL, cfg.DeepgramAPIKey), metrics.NewRegistry(), log)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info("received shutdown signal")
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := twilioSrv.Shutdown(shutdownCtx); err != nil {
			log.Error("twilio server shutdown error", slog.Any("err", err))
		}
		if err := sessionManager.Shutdown(shutdownCtx); err != nil {
			log.Error("session shutdown error", slog.Any("err", err))
		}
	}()

	log.Info("agent bridge ready",
		slog.String("agent_url", cfg.AgentURL),
		slog.Int("max_sessions", cfg.MaxSessions),
		slog.Int("functions", len(registry.Names())))

	if err := twilioSrv.Start(); err != nil {
		log.Error("twilio server error", slog.Any("err", err))
		os.Exit(1)
	}

	log.Info("server stopped")
}
