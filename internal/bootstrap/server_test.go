package bootstrap

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssorj/stagger/internal/platform/mlog"
)

func TestServer_ServesUntilCanceled(t *testing.T) {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	cfg := &Config{HTTPPort: 0}
	require.NoError(t, cfg.applyDefaults())

	// Port 0 picked by fiber.Listen isn't observable before it's bound, so
	// bind a fixed high port instead to make an HTTP request against it.
	cfg.HTTPPort = 18080

	s := NewServer(cfg, app, &mlog.NoneLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() { runDone <- s.Run(ctx, nil) }()

	var resp *http.Response
	var err error
	require.Eventually(t, func() bool {
		resp, err = http.Get("http://localhost:18080/healthz")
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()

	select {
	case err := <-runDone:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("expected Run to return after context cancellation")
	}
}
