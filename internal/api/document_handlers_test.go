package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenDocument(t *testing.T) {
	ts := setupTestServer(t)

	view := ts.openDocument(t, "paper.pdf", "/library/paper.pdf")
	assert.NotZero(t, view.Document.ID)
	assert.Equal(t, "paper.pdf", view.Document.Name)
	assert.Empty(t, view.Highlights)
}

func TestOpenDocument_ValidationErrors(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/documents/open", map[string]any{
		"name": "",
		"path": "/library/paper.pdf",
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	apiErr := decode[APIError](t, resp)
	assert.Equal(t, "VALIDATION", apiErr.Code)
}

func TestOpenDocument_SamePathReturnsSameDocument(t *testing.T) {
	ts := setupTestServer(t)

	first := ts.openDocument(t, "paper.pdf", "/library/paper.pdf")
	second := ts.openDocument(t, "paper.pdf", "/library/paper.pdf")
	assert.Equal(t, first.Document.ID, second.Document.ID)

	resp := ts.api.Get("/api/v1/documents")
	require.Equal(t, http.StatusOK, resp.Code)
	list := decode[ListDocumentsResponse](t, resp)
	assert.Len(t, list.Documents, 1)
}

func TestOpenDocument_ReturnsAnnotations(t *testing.T) {
	ts := setupTestServer(t)

	view := ts.openDocument(t, "paper.pdf", "/library/paper.pdf")
	h := ts.createHighlight(t, view.Document.ID, map[string]any{"contentText": "a passage"})

	resp := ts.api.Post("/api/v1/highlights/"+h.ID+"/tags", map[string]any{"name": "physics"})
	require.Equal(t, http.StatusOK, resp.Code)

	reopened := ts.openDocument(t, "paper.pdf", "/library/paper.pdf")
	require.Len(t, reopened.Highlights, 1)
	assert.Equal(t, h.ID, reopened.Highlights[0].ID)
	require.Len(t, reopened.Tags[h.ID], 1)
	assert.Equal(t, "physics", reopened.Tags[h.ID][0].Name)
}

func TestGetDocument_NotFound(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/documents/9999")
	assert.Equal(t, http.StatusNotFound, resp.Code)

	apiErr := decode[APIError](t, resp)
	assert.Equal(t, "NOT_FOUND", apiErr.Code)
}

func TestDeleteDocument(t *testing.T) {
	ts := setupTestServer(t)

	view := ts.openDocument(t, "paper.pdf", "/library/paper.pdf")
	h := ts.createHighlight(t, view.Document.ID, map[string]any{"contentText": "a passage"})

	resp := ts.api.Delete("/api/v1/documents/" + itoa(view.Document.ID))
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Get("/api/v1/highlights/" + h.ID)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestDeleteDocument_NotFound(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Delete("/api/v1/documents/9999")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}
