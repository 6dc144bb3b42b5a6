package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ssorj/stagger/internal/bootstrap"
	"github.com/ssorj/stagger/internal/platform"
	"github.com/ssorj/stagger/internal/platform/mzap"
)

func main() {
	platform.InitLocalEnvConfig()

	logger := mzap.InitializeLogger()

	service, err := bootstrap.InitServersWithOptions(&bootstrap.Options{
		Logger: logger,
	})
	if err != nil {
		logger.Errorf("Failed to initialize stagger: %v", err)
		_ = logger.Sync()

		fmt.Fprintln(os.Stderr, err)

		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	service.Run(ctx)

	_ = logger.Sync()
}
