package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marginalia-app/marginalia-server/internal/service"
	"github.com/marginalia-app/marginalia-server/internal/store/sqlite"
	"github.com/marginalia-app/marginalia-server/internal/validation"
)

// testServer wraps the API server for handler tests.
type testServer struct {
	*Server
	api humatest.TestAPI
}

// setupTestServer creates a server backed by a temp sqlite database.
func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	st, err := sqlite.Open(dbPath, logger)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	services := &Services{
		Annotations: service.NewAnnotationService(st, nil, logger),
		Suggestions: service.NewSuggestionService(st, time.Minute, logger),
	}

	s := NewServer(st, services, validation.New(), logger)

	return &testServer{
		Server: s,
		api:    humatest.Wrap(t, s.api),
	}
}

// decode unmarshals a response body into T.
func decode[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	return out
}

// openDocument opens a document through the API and returns its view.
func (ts *testServer) openDocument(t *testing.T, name, path string) DocumentViewResponse {
	t.Helper()
	resp := ts.api.Post("/api/v1/documents/open", map[string]any{
		"name": name,
		"path": path,
	})
	require.Equal(t, http.StatusOK, resp.Code)
	return decode[DocumentViewResponse](t, resp)
}

// createHighlight creates a highlight through the API.
func (ts *testServer) createHighlight(t *testing.T, documentID int64, body map[string]any) HighlightResponse {
	t.Helper()
	if _, ok := body["position"]; !ok {
		body["position"] = map[string]any{
			"pageNumber": 1,
			"rects": []map[string]any{
				{"x1": 0, "y1": 0, "x2": 50, "y2": 10, "width": 50, "height": 10, "pageNumber": 1},
			},
		}
	}
	resp := ts.api.Post("/api/v1/documents/"+itoa(documentID)+"/highlights", body)
	require.Equal(t, http.StatusOK, resp.Code)
	return decode[HighlightResponse](t, resp)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func TestServeHTTP(t *testing.T) {
	ts := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthCheck(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)

	health := decode[HealthResponse](t, resp)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "healthy", health.Components["database"].Status)
}
