package httpmw

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssorj/stagger/internal/platform"
)

func TestWithError_MapsEachTaxonomyEntry(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantPrefix string
	}{
		{"not found", platform.NotFoundError{EntityType: "repo"}, fiber.StatusNotFound, "404 Not found"},
		{"bad json", platform.BadJSONError{Message: "unexpected EOF"}, fiber.StatusBadRequest, "400 Bad request: Failure decoding JSON"},
		{"bad data", platform.BadDataError{Message: "missing field"}, fiber.StatusBadRequest, "400 Bad request: Illegal data"},
		{"server error", platform.ServerError{Message: "disk full"}, fiber.StatusInternalServerError, "500 Internal server error"},
		{"unmapped error", errors.New("boom"), fiber.StatusInternalServerError, "500 Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error {
				return WithError(c, tt.err)
			})

			req := httptest.NewRequest("GET", "/", nil)
			resp, err := app.Test(req)
			require.NoError(t, err)

			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Contains(t, string(body), tt.wantPrefix)
		})
	}
}
