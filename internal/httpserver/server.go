// Package httpserver wires the HTTP surface: room creation and lookup,
// websocket upgrade, tip authorization, health, and metrics.
package httpserver

import (
	"context"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Devansh-Ruia/Pulse/internal/config"
	"github.com/Devansh-Ruia/Pulse/internal/domain"
	"github.com/Devansh-Ruia/Pulse/internal/room"
	"github.com/Devansh-Ruia/Pulse/internal/ws"
)

type Server struct {
	echo       *echo.Echo
	config     *config.Config
	registry   *room.Registry
	wsHandler  *ws.Handler
	authorizer domain.Authorizer
	startTime  time.Time
}

func NewServer(cfg *config.Config, registry *room.Registry, wsHandler *ws.Handler, authorizer domain.Authorizer) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:       e,
		config:     cfg,
		registry:   registry,
		wsHandler:  wsHandler,
		authorizer: authorizer,
		startTime:  time.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}
