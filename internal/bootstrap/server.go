package bootstrap

import (
	"context"
	"fmt"

	"github.com/ssorj/stagger/internal/platform"
	"github.com/ssorj/stagger/internal/platform/mlog"

	"github.com/gofiber/fiber/v2"
)

// Server is the HTTP surface: a fiber app bound to an address, shut down
// gracefully when its Run context is canceled.
type Server struct {
	app           *fiber.App
	serverAddress string
	logger        mlog.Logger
}

// ServerAddress returns the address the server listens on.
func (s *Server) ServerAddress() string {
	return s.serverAddress
}

// NewServer creates an instance of Server.
func NewServer(cfg *Config, app *fiber.App, logger mlog.Logger) *Server {
	return &Server{
		app:           app,
		serverAddress: fmt.Sprintf(":%d", cfg.HTTPPort),
		logger:        logger,
	}
}

// Run implements platform.App: it serves HTTP until ctx is canceled, then
// shuts the fiber app down gracefully.
func (s *Server) Run(ctx context.Context, _ *platform.Launcher) error {
	errCh := make(chan error, 1)

	go func() {
		errCh <- s.app.Listen(s.serverAddress)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("http: shutting down")
		return s.app.ShutdownWithContext(ctx)
	}
}
