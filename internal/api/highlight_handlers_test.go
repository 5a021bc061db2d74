package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateHighlight_ServerAssignsID(t *testing.T) {
	ts := setupTestServer(t)

	view := ts.openDocument(t, "paper.pdf", "/library/paper.pdf")
	h := ts.createHighlight(t, view.Document.ID, map[string]any{"contentText": "a passage"})

	assert.NotEmpty(t, h.ID)
	assert.Equal(t, view.Document.ID, h.DocumentID)
	assert.Equal(t, "a passage", h.ContentText)
}

func TestCreateHighlight_ClientID(t *testing.T) {
	ts := setupTestServer(t)

	view := ts.openDocument(t, "paper.pdf", "/library/paper.pdf")
	h := ts.createHighlight(t, view.Document.ID, map[string]any{
		"id":          "hl-from-client",
		"contentText": "a passage",
	})
	assert.Equal(t, "hl-from-client", h.ID)

	// Replaying the same creation conflicts.
	resp := ts.api.Post("/api/v1/documents/"+itoa(view.Document.ID)+"/highlights", map[string]any{
		"id": "hl-from-client",
		"position": map[string]any{
			"pageNumber": 1,
		},
	})
	assert.Equal(t, http.StatusConflict, resp.Code)
}

func TestCreateHighlight_UnknownDocument(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/documents/9999/highlights", map[string]any{
		"position": map[string]any{"pageNumber": 1},
	})
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestListHighlights(t *testing.T) {
	ts := setupTestServer(t)

	view := ts.openDocument(t, "paper.pdf", "/library/paper.pdf")
	ts.createHighlight(t, view.Document.ID, map[string]any{"contentText": "first"})
	ts.createHighlight(t, view.Document.ID, map[string]any{"contentText": "second"})

	resp := ts.api.Get("/api/v1/documents/" + itoa(view.Document.ID) + "/highlights")
	require.Equal(t, http.StatusOK, resp.Code)

	body := decode[struct {
		Highlights []HighlightResponse `json:"highlights"`
	}](t, resp)
	assert.Len(t, body.Highlights, 2)
}

func TestUpdateHighlight_PartialMerge(t *testing.T) {
	ts := setupTestServer(t)

	view := ts.openDocument(t, "paper.pdf", "/library/paper.pdf")
	h := ts.createHighlight(t, view.Document.ID, map[string]any{
		"contentText": "a passage",
		"position": map[string]any{
			"pageNumber": 3,
			"rects": []map[string]any{
				{"x1": 0, "y1": 0, "x2": 50, "y2": 10, "width": 50, "height": 10, "pageNumber": 3},
			},
		},
	})

	// Patch only the bounding rect.
	resp := ts.api.Patch("/api/v1/highlights/"+h.ID, map[string]any{
		"position": map[string]any{
			"boundingRect": map[string]any{"x1": 5, "y1": 5, "x2": 55, "y2": 25, "width": 50, "height": 20},
		},
	})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Get("/api/v1/highlights/" + h.ID)
	require.Equal(t, http.StatusOK, resp.Code)
	got := decode[HighlightResponse](t, resp)

	assert.Equal(t, 3, got.Position.PageNumber, "page number must survive the patch")
	require.NotNil(t, got.Position.BoundingRect)
	assert.Equal(t, 5.0, got.Position.BoundingRect.X1)
	assert.Len(t, got.Position.Rects, 1, "rects must survive the patch")
	assert.Equal(t, "a passage", got.ContentText)
}

func TestUpdateHighlight_UnknownIDSucceedsSilently(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Patch("/api/v1/highlights/hl-ghost", map[string]any{
		"position": map[string]any{"pageNumber": 7},
	})
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestUpdateComment(t *testing.T) {
	ts := setupTestServer(t)

	view := ts.openDocument(t, "paper.pdf", "/library/paper.pdf")
	h := ts.createHighlight(t, view.Document.ID, map[string]any{"contentText": "a passage"})

	resp := ts.api.Put("/api/v1/highlights/"+h.ID+"/comment", map[string]any{
		"text":  "a note",
		"emoji": "💡",
	})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Get("/api/v1/highlights/" + h.ID)
	got := decode[HighlightResponse](t, resp)
	assert.Equal(t, "a note", got.CommentText)
	assert.Equal(t, "💡", got.CommentEmoji)
}

func TestUpdateComment_NotFound(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Put("/api/v1/highlights/hl-ghost/comment", map[string]any{"text": "a note"})
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestDeleteHighlight(t *testing.T) {
	ts := setupTestServer(t)

	view := ts.openDocument(t, "paper.pdf", "/library/paper.pdf")
	h := ts.createHighlight(t, view.Document.ID, map[string]any{"contentText": "a passage"})

	resp := ts.api.Delete("/api/v1/highlights/" + h.ID)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Get("/api/v1/highlights/" + h.ID)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestAddHighlightTag(t *testing.T) {
	ts := setupTestServer(t)

	view := ts.openDocument(t, "paper.pdf", "/library/paper.pdf")
	h := ts.createHighlight(t, view.Document.ID, map[string]any{"contentText": "a passage"})

	resp := ts.api.Post("/api/v1/highlights/"+h.ID+"/tags", map[string]any{"name": "physics"})
	require.Equal(t, http.StatusOK, resp.Code)

	tags := decode[struct {
		Tags []TagResponse `json:"tags"`
	}](t, resp)
	require.Len(t, tags.Tags, 1)
	assert.Equal(t, "physics", tags.Tags[0].Name)
}

func TestAddHighlightTag_UnpersistedHighlightIs404(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/highlights/hl-ghost/tags", map[string]any{"name": "physics"})
	assert.Equal(t, http.StatusNotFound, resp.Code)

	apiErr := decode[APIError](t, resp)
	assert.Equal(t, "NOT_FOUND", apiErr.Code)

	// The failed attach must not have created the tag.
	listResp := ts.api.Get("/api/v1/tags")
	list := decode[struct {
		Tags []TagResponse `json:"tags"`
	}](t, listResp)
	assert.Empty(t, list.Tags)
}

func TestAddHighlightTag_CaseVariantsShareOneTag(t *testing.T) {
	ts := setupTestServer(t)

	view := ts.openDocument(t, "paper.pdf", "/library/paper.pdf")
	first := ts.createHighlight(t, view.Document.ID, map[string]any{"contentText": "one"})
	second := ts.createHighlight(t, view.Document.ID, map[string]any{"contentText": "two"})

	resp := ts.api.Post("/api/v1/highlights/"+first.ID+"/tags", map[string]any{"name": "important"})
	require.Equal(t, http.StatusOK, resp.Code)
	resp = ts.api.Post("/api/v1/highlights/"+second.ID+"/tags", map[string]any{"name": "Important"})
	require.Equal(t, http.StatusOK, resp.Code)

	// One tag row, original casing, linked to both highlights.
	listResp := ts.api.Get("/api/v1/tags")
	list := decode[struct {
		Tags []TagResponse `json:"tags"`
	}](t, listResp)
	require.Len(t, list.Tags, 1)
	assert.Equal(t, "important", list.Tags[0].Name)
}

func TestSetHighlightTags_Reconciles(t *testing.T) {
	ts := setupTestServer(t)

	view := ts.openDocument(t, "paper.pdf", "/library/paper.pdf")
	h := ts.createHighlight(t, view.Document.ID, map[string]any{"contentText": "a passage"})

	resp := ts.api.Post("/api/v1/highlights/"+h.ID+"/tags", map[string]any{"name": "physics"})
	require.Equal(t, http.StatusOK, resp.Code)
	resp = ts.api.Post("/api/v1/highlights/"+h.ID+"/tags", map[string]any{"name": "obsolete"})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Put("/api/v1/highlights/"+h.ID+"/tags", map[string]any{
		"tags": []string{"physics", "methods"},
	})
	require.Equal(t, http.StatusOK, resp.Code)

	tags := decode[struct {
		Tags []TagResponse `json:"tags"`
	}](t, resp)
	require.Len(t, tags.Tags, 2)
	assert.Equal(t, "methods", tags.Tags[0].Name)
	assert.Equal(t, "physics", tags.Tags[1].Name)
}

func TestRemoveHighlightTag(t *testing.T) {
	ts := setupTestServer(t)

	view := ts.openDocument(t, "paper.pdf", "/library/paper.pdf")
	h := ts.createHighlight(t, view.Document.ID, map[string]any{"contentText": "a passage"})

	resp := ts.api.Post("/api/v1/highlights/"+h.ID+"/tags", map[string]any{"name": "physics"})
	require.Equal(t, http.StatusOK, resp.Code)
	created := decode[struct {
		Tags []TagResponse `json:"tags"`
	}](t, resp)
	require.Len(t, created.Tags, 1)

	resp = ts.api.Delete("/api/v1/highlights/" + h.ID + "/tags/" + itoa(created.Tags[0].ID))
	require.Equal(t, http.StatusOK, resp.Code)

	remaining := decode[struct {
		Tags []TagResponse `json:"tags"`
	}](t, resp)
	assert.Empty(t, remaining.Tags)

	// The tag row survives.
	listResp := ts.api.Get("/api/v1/tags")
	list := decode[struct {
		Tags []TagResponse `json:"tags"`
	}](t, listResp)
	assert.Len(t, list.Tags, 1)
}
