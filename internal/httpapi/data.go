package httpapi

import (
	"github.com/ssorj/stagger/internal/model"

	"github.com/gofiber/fiber/v2"
)

// dataHandler serves GET/HEAD /api/data: the whole document, validated by
// the root revision rather than a node digest.
type dataHandler struct {
	model *model.Model
}

func (h *dataHandler) handle(c *fiber.Ctx) error {
	return renderNode(c, h.model)
}
