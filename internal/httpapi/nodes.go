package httpapi

import (
	"github.com/ssorj/stagger/internal/model"
	"github.com/ssorj/stagger/internal/platform/httpmw"

	"github.com/gofiber/fiber/v2"
)

// nodeHandlers groups the PUT/DELETE/GET/HEAD handlers for one level of the
// repo/branch/tag/artifact tree. Each is a thin adapter between fiber's
// *Ctx and the corresponding model.Model method: decode path params, call
// the method, and dispatch the result through ok/renderNode/httpmw.WithError.
type nodeHandlers struct {
	model *model.Model
}

func (h *nodeHandlers) repo(c *fiber.Ctx) error {
	repoID := c.Params("repoId")

	if isDryRun(c) && (c.Method() == fiber.MethodPut || c.Method() == fiber.MethodDelete) {
		return ok(c)
	}

	switch c.Method() {
	case fiber.MethodPut:
		if _, err := h.model.PutRepo(repoID, c.Body()); err != nil {
			return httpmw.WithError(c, err)
		}

		return ok(c)
	case fiber.MethodDelete:
		if err := h.model.DeleteRepo(repoID); err != nil {
			return httpmw.WithError(c, err)
		}

		return ok(c)
	default:
		r, err := h.model.GetRepo(repoID)
		if err != nil {
			return httpmw.WithError(c, err)
		}

		return renderNode(c, r)
	}
}

func (h *nodeHandlers) branch(c *fiber.Ctx) error {
	repoID := c.Params("repoId")
	branchID := c.Params("branchId")

	if isDryRun(c) && (c.Method() == fiber.MethodPut || c.Method() == fiber.MethodDelete) {
		return ok(c)
	}

	switch c.Method() {
	case fiber.MethodPut:
		if _, err := h.model.PutBranch(repoID, branchID); err != nil {
			return httpmw.WithError(c, err)
		}

		return ok(c)
	case fiber.MethodDelete:
		if err := h.model.DeleteBranch(repoID, branchID); err != nil {
			return httpmw.WithError(c, err)
		}

		return ok(c)
	default:
		b, err := h.model.GetBranch(repoID, branchID)
		if err != nil {
			return httpmw.WithError(c, err)
		}

		return renderNode(c, b)
	}
}

func (h *nodeHandlers) tag(c *fiber.Ctx) error {
	repoID := c.Params("repoId")
	branchID := c.Params("branchId")
	tagID := c.Params("tagId")

	if isDryRun(c) && (c.Method() == fiber.MethodPut || c.Method() == fiber.MethodDelete) {
		return ok(c)
	}

	switch c.Method() {
	case fiber.MethodPut:
		if _, err := h.model.PutTag(repoID, branchID, tagID, c.Body()); err != nil {
			return httpmw.WithError(c, err)
		}

		return ok(c)
	case fiber.MethodDelete:
		if err := h.model.DeleteTag(repoID, branchID, tagID); err != nil {
			return httpmw.WithError(c, err)
		}

		return ok(c)
	default:
		t, err := h.model.GetTag(repoID, branchID, tagID)
		if err != nil {
			return httpmw.WithError(c, err)
		}

		return renderNode(c, t)
	}
}

func (h *nodeHandlers) artifact(c *fiber.Ctx) error {
	repoID := c.Params("repoId")
	branchID := c.Params("branchId")
	tagID := c.Params("tagId")
	artifactID := c.Params("artifactId")

	if isDryRun(c) && (c.Method() == fiber.MethodPut || c.Method() == fiber.MethodDelete) {
		return ok(c)
	}

	switch c.Method() {
	case fiber.MethodPut:
		if _, err := h.model.PutArtifact(repoID, branchID, tagID, artifactID, c.Body()); err != nil {
			return httpmw.WithError(c, err)
		}

		return ok(c)
	case fiber.MethodDelete:
		if err := h.model.DeleteArtifact(repoID, branchID, tagID, artifactID); err != nil {
			return httpmw.WithError(c, err)
		}

		return ok(c)
	default:
		a, err := h.model.GetArtifact(repoID, branchID, tagID, artifactID)
		if err != nil {
			return httpmw.WithError(c, err)
		}

		return renderNode(c, a)
	}
}
