package httpmw

import (
	"github.com/gofiber/fiber/v2"
)

// Healthz returns 200 with an empty body.
func Healthz(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusOK)
}
