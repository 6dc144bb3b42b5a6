package httpmw

import (
	"github.com/gofiber/fiber/v2"
	gid "github.com/google/uuid"
)

// WithCorrelationID attaches a generated correlation ID to the request and response.
func WithCorrelationID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		cid := gid.New().String()

		c.Set(headerCorrelationID, cid)
		c.Request().Header.Add(headerCorrelationID, cid)

		return c.Next()
	}
}
