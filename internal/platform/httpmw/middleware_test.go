package httpmw

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithCORS_SetsDefaultHeaders(t *testing.T) {
	app := fiber.New()
	app.Use(WithCORS())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Origin", "https://example.test")

	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestWithCorrelationID_AddsHeaderToRequestAndResponse(t *testing.T) {
	app := fiber.New()
	app.Use(WithCorrelationID())
	app.Get("/", func(c *fiber.Ctx) error {
		assert.NotEmpty(t, c.Get(headerCorrelationID))

		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.NotEmpty(t, resp.Header.Get(headerCorrelationID))
}

func TestHealthz_ReturnsOKWithEmptyBody(t *testing.T) {
	app := fiber.New()
	app.Get("/healthz", Healthz)

	req := httptest.NewRequest("GET", "/healthz", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
