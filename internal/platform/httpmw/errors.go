package httpmw

import (
	"github.com/ssorj/stagger/internal/platform"

	"github.com/gofiber/fiber/v2"
)

// WithError maps a platform error to its plain-text HTTP response, per the
// taxonomy: not-found, bad-json, bad-data, server-error.
func WithError(c *fiber.Ctx, err error) error {
	switch e := err.(type) {
	case platform.NotFoundError:
		return plainText(c, fiber.StatusNotFound, "404 Not found: "+e.Error())
	case platform.BadJSONError:
		return plainText(c, fiber.StatusBadRequest, "400 Bad request: Failure decoding JSON: "+e.Error())
	case platform.BadDataError:
		return plainText(c, fiber.StatusBadRequest, "400 Bad request: Illegal data: "+e.Error())
	case platform.ServerError:
		return plainText(c, fiber.StatusInternalServerError, "500 Internal server error: "+e.Error())
	default:
		return plainText(c, fiber.StatusInternalServerError, "500 Internal server error: "+err.Error())
	}
}

func plainText(c *fiber.Ctx, status int, message string) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)

	return c.Status(status).SendString(message + "\n")
}
