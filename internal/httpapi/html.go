package httpapi

import (
	"path/filepath"

	"github.com/ssorj/stagger/internal/model"
	"github.com/ssorj/stagger/internal/platform/httpmw"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// htmlHandlers serves the single-page app shell for the browsable routes.
// Every page shares one ETag generated at process start: the shell itself
// never changes at runtime, only the data it fetches client-side does. A
// request naming a repo/branch/tag/artifact that doesn't exist still 404s,
// mirroring the JSON API's not-found handling.
type htmlHandlers struct {
	model *model.Model
	home  string
	etag  string
}

func newHTMLHandlers(m *model.Model, home string) *htmlHandlers {
	return &htmlHandlers{model: m, home: home, etag: uuid.NewString()}
}

func (h *htmlHandlers) index(c *fiber.Ctx) error {
	return h.render(c)
}

func (h *htmlHandlers) tag(c *fiber.Ctx) error {
	if _, err := h.model.GetTag(c.Params("repoId"), c.Params("branchId"), c.Params("tagId")); err != nil {
		return httpmw.WithError(c, err)
	}

	return h.render(c)
}

func (h *htmlHandlers) artifact(c *fiber.Ctx) error {
	_, err := h.model.GetArtifact(c.Params("repoId"), c.Params("branchId"), c.Params("tagId"), c.Params("artifactId"))
	if err != nil {
		return httpmw.WithError(c, err)
	}

	return h.render(c)
}

func (h *htmlHandlers) render(c *fiber.Ctx) error {
	c.Set(fiber.HeaderETag, h.etag)

	if c.Get(fiber.HeaderIfNoneMatch) == h.etag {
		return c.SendStatus(fiber.StatusNotModified)
	}

	if c.Method() == fiber.MethodHead {
		return c.SendStatus(fiber.StatusOK)
	}

	return c.SendFile(filepath.Join(h.home, "static", "index.html"))
}
