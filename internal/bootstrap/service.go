package bootstrap

import (
	"context"

	"github.com/ssorj/stagger/internal/amqpserver"
	"github.com/ssorj/stagger/internal/persistence"
	"github.com/ssorj/stagger/internal/platform"
	"github.com/ssorj/stagger/internal/platform/mlog"
)

// Service is the application glue where all top-level components are
// brought together to be run under one Launcher.
type Service struct {
	HTTPServer *Server
	AMQPServer *amqpserver.Server
	Worker     *persistence.Worker
	Logger     mlog.Logger
}

// Run starts the HTTP surface, the AMQP surface, and the persistence
// worker concurrently, and blocks until ctx is canceled and every app has
// returned.
func (app *Service) Run(ctx context.Context) {
	platform.NewLauncher(
		platform.WithLogger(app.Logger),
		platform.RunApp("HTTP surface", app.HTTPServer),
		platform.RunApp("AMQP surface", app.AMQPServer),
		platform.RunApp("persistence worker", app.Worker),
	).Run(ctx)
}
