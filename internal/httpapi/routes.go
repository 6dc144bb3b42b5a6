// Package httpapi implements stagger's HTTP surface: the JSON API under
// /api, the browsable single-page app shell, and static file serving out of
// STAGGER_HOME/static.
package httpapi

import (
	"github.com/ssorj/stagger/internal/model"
	"github.com/ssorj/stagger/internal/platform/httpmw"
	"github.com/ssorj/stagger/internal/platform/mlog"

	"github.com/gofiber/fiber/v2"
)

// NewRouter builds the fiber app serving every stagger route. home is
// STAGGER_HOME, the file root containing the static/ directory the
// single-page app and its assets are served from.
func NewRouter(logger mlog.Logger, m *model.Model, home string) *fiber.App {
	f := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return httpmw.WithError(c, err)
		},
	})

	f.Use(httpmw.WithCorrelationID())
	f.Use(httpmw.WithCORS())
	f.Use(httpmw.WithHTTPLogging(httpmw.WithCustomLogger(logger)))

	f.Get("/healthz", httpmw.Healthz)

	data := &dataHandler{model: m}
	f.Get("/api/data", data.handle)
	f.Head("/api/data", data.handle)

	nodes := &nodeHandlers{model: m}

	f.Put("/api/repos/:repoId", nodes.repo)
	f.Delete("/api/repos/:repoId", nodes.repo)
	f.Get("/api/repos/:repoId", nodes.repo)
	f.Head("/api/repos/:repoId", nodes.repo)

	f.Put("/api/repos/:repoId/branches/:branchId", nodes.branch)
	f.Delete("/api/repos/:repoId/branches/:branchId", nodes.branch)
	f.Get("/api/repos/:repoId/branches/:branchId", nodes.branch)
	f.Head("/api/repos/:repoId/branches/:branchId", nodes.branch)

	f.Put("/api/repos/:repoId/branches/:branchId/tags/:tagId", nodes.tag)
	f.Delete("/api/repos/:repoId/branches/:branchId/tags/:tagId", nodes.tag)
	f.Get("/api/repos/:repoId/branches/:branchId/tags/:tagId", nodes.tag)
	f.Head("/api/repos/:repoId/branches/:branchId/tags/:tagId", nodes.tag)

	f.Put("/api/repos/:repoId/branches/:branchId/tags/:tagId/artifacts/:artifactId", nodes.artifact)
	f.Delete("/api/repos/:repoId/branches/:branchId/tags/:tagId/artifacts/:artifactId", nodes.artifact)
	f.Get("/api/repos/:repoId/branches/:branchId/tags/:tagId/artifacts/:artifactId", nodes.artifact)
	f.Head("/api/repos/:repoId/branches/:branchId/tags/:tagId/artifacts/:artifactId", nodes.artifact)

	html := newHTMLHandlers(m, home)

	f.Get("/", html.index)
	f.Head("/", html.index)
	f.Get("/tags/:repoId/:branchId/:tagId", html.tag)
	f.Head("/tags/:repoId/:branchId/:tagId", html.tag)
	f.Get("/artifacts/:repoId/:branchId/:tagId/:artifactId", html.artifact)
	f.Head("/artifacts/:repoId/:branchId/:tagId/:artifactId", html.artifact)

	f.Static("/", home+"/static")

	return f
}
