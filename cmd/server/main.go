package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/Devansh-Ruia/Pulse/internal/config"
	"github.com/Devansh-Ruia/Pulse/internal/domain"
	"github.com/Devansh-Ruia/Pulse/internal/httpserver"
	"github.com/Devansh-Ruia/Pulse/internal/logging"
	"github.com/Devansh-Ruia/Pulse/internal/payments"
	"github.com/Devansh-Ruia/Pulse/internal/room"
	"github.com/Devansh-Ruia/Pulse/internal/ws"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupAuthorizer(cfg *config.Config) domain.Authorizer {
	if cfg.PaymentBridgeURL == "" {
		slog.Warn("No payment bridge configured, using mock authorizer")
		return payments.MockAuthorizer{}
	}
	return payments.NewBridge(cfg.PaymentBridgeURL, cfg.PaymentTimeout)
}

func runGracefulShutdown(srv *httpserver.Server, registry *room.Registry, cancelSweep context.CancelFunc) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		cancelSweep()
		registry.Close()

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	registry := room.NewRegistry(clock, room.Options{
		SnapshotInterval:  cfg.SnapshotInterval,
		RoomTTL:           cfg.RoomTTL,
		MaxClientsPerRoom: cfg.MaxClientsPerRoom,
	})

	sweepCtx, cancelSweep := context.WithCancel(context.Background())
	go registry.Run(sweepCtx)

	wsHandler := ws.NewHandler(registry)
	authorizer := setupAuthorizer(cfg)

	srv := httpserver.NewServer(cfg, registry, wsHandler, authorizer)

	done := runGracefulShutdown(srv, registry, cancelSweep)

	slog.Info("Server starting", "port", cfg.Port)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
