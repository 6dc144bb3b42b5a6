package httpapi

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssorj/stagger/internal/model"
	"github.com/ssorj/stagger/internal/platform/mlog"
)

func newTestRouter(t *testing.T) (*model.Model, *fiber.App) {
	t.Helper()

	home := t.TempDir()
	require.NoError(t, os.MkdirAll(home+"/static", 0o755))
	require.NoError(t, os.WriteFile(home+"/static/index.html", []byte("<html></html>"), 0o644))

	m := model.New(model.Config{HTTPURL: "http://localhost:8080"})
	app := NewRouter(&mlog.NoneLogger{}, m, home)

	return m, app
}

func TestHealthz(t *testing.T) {
	_, app := newTestRouter(t)

	resp := do(t, app, "GET", "/healthz", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestPutRepo_ThenGet(t *testing.T) {
	_, app := newTestRouter(t)

	resp := do(t, app, "PUT", "/api/repos/widget", strings.NewReader(`{"source_url": "https://git.example/widget"}`))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK\n", bodyString(t, resp))

	resp = do(t, app, "GET", "/api/repos/widget", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, bodyString(t, resp), "https://git.example/widget")
	assert.NotEmpty(t, resp.Header.Get("ETag"))
}

func TestGetRepo_NotFound(t *testing.T) {
	_, app := newTestRouter(t)

	resp := do(t, app, "GET", "/api/repos/missing", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Contains(t, bodyString(t, resp), "404 Not found")
}

func TestConditionalGet_ReturnsNotModified(t *testing.T) {
	_, app := newTestRouter(t)

	do(t, app, "PUT", "/api/repos/widget", strings.NewReader(`{}`))

	resp := do(t, app, "GET", "/api/repos/widget", nil)
	etag := resp.Header.Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest("GET", "/api/repos/widget", nil)
	req.Header.Set("If-None-Match", etag)
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusNotModified, resp.StatusCode)
}

func TestPutArtifact_BadDataReturns400(t *testing.T) {
	_, app := newTestRouter(t)

	resp := do(t, app, "PUT", "/api/repos/widget/branches/main/tags/v1/artifacts/a1", strings.NewReader(`{"type": "container"}`))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, bodyString(t, resp), "400 Bad request: Illegal data")
}

func TestPutRepo_DryRunDoesNotMutate(t *testing.T) {
	m, app := newTestRouter(t)

	resp := do(t, app, "PUT", "/api/repos/widget?dry-run=1", strings.NewReader(`{"source_url": "https://git.example/widget"}`))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	_, err := m.GetRepo("widget")
	assert.Error(t, err, "a dry-run PUT must not create the repo")
}

func TestDeleteArtifact_NotFound(t *testing.T) {
	_, app := newTestRouter(t)

	resp := do(t, app, "DELETE", "/api/repos/widget/branches/main/tags/v1/artifacts/a1", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestHTMLShell_ServedAtIndex(t *testing.T) {
	_, app := newTestRouter(t)

	resp := do(t, app, "GET", "/", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, bodyString(t, resp), "<html>")
}

func TestHTMLShell_TagRoute404sForMissingTag(t *testing.T) {
	_, app := newTestRouter(t)

	resp := do(t, app, "GET", "/tags/widget/main/v1", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestHTMLShell_TagRouteServesShellWhenTagExists(t *testing.T) {
	_, app := newTestRouter(t)

	do(t, app, "PUT", "/api/repos/widget/branches/main/tags/v1", strings.NewReader(`{}`))

	resp := do(t, app, "GET", "/tags/widget/main/v1", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, bodyString(t, resp), "<html>")
}

func TestHTMLShell_ArtifactRoute404sForMissingArtifact(t *testing.T) {
	_, app := newTestRouter(t)

	resp := do(t, app, "GET", "/artifacts/widget/main/v1/a1", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestHTMLShell_ArtifactRouteServesShellWhenArtifactExists(t *testing.T) {
	_, app := newTestRouter(t)

	putResp := do(t, app, "PUT", "/api/repos/widget/branches/main/tags/v1/artifacts/a1",
		strings.NewReader(`{"type": "file", "url": "https://example/file"}`))
	require.Equal(t, fiber.StatusOK, putResp.StatusCode)

	resp := do(t, app, "GET", "/artifacts/widget/main/v1/a1", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, bodyString(t, resp), "<html>")
}

func do(t *testing.T, app *fiber.App, method, path string, body io.Reader) *http.Response {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	resp, err := app.Test(req)
	require.NoError(t, err)

	return resp
}

func bodyString(t *testing.T, resp *http.Response) string {
	t.Helper()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return string(data)
}
