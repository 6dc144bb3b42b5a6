package httpapi

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// cachedNode is satisfied by every model node type and by *model.Model
// itself: anything with a validator and two cached renderings of its
// document.
type cachedNode interface {
	ETag() string
	JSON() []byte
	CompressedJSON() []byte
}

// renderNode implements step 4-6 of the per-node request handling contract:
// conditional GET via If-None-Match, gzip negotiation, and the ETag header
// on every response.
func renderNode(c *fiber.Ctx, n cachedNode) error {
	etag := n.ETag()

	c.Set(fiber.HeaderETag, etag)

	if c.Get(fiber.HeaderIfNoneMatch) == etag {
		return c.SendStatus(fiber.StatusNotModified)
	}

	if c.Method() == fiber.MethodHead {
		return c.SendStatus(fiber.StatusOK)
	}

	if strings.Contains(c.Get(fiber.HeaderAcceptEncoding), "gzip") {
		if gz := n.CompressedJSON(); gz != nil {
			c.Set(fiber.HeaderContentEncoding, "gzip")
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

			return c.Status(fiber.StatusOK).Send(gz)
		}
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	return c.Status(fiber.StatusOK).Send(n.JSON())
}

// ok writes the plain-text success body PUT/DELETE return on a completed
// mutation, including the dry-run short-circuit.
func ok(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)

	return c.Status(fiber.StatusOK).SendString("OK\n")
}

func isDryRun(c *fiber.Ctx) bool {
	return c.Query("dry-run") == "1"
}
