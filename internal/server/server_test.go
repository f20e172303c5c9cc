package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/focusd/internal/config"
	"git.home.luguber.info/inful/focusd/internal/service"
	"git.home.luguber.info/inful/focusd/internal/storage"
)

const ownerHeader = "X-Owner-ID"

func newTestServer(t *testing.T) (*Server, *clockwork.FakeClock) {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "focusd.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(t.Context()))

	clock := clockwork.NewFakeClockAt(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	svc := service.New(store, service.Options{Clock: clock})

	cfg := config.ServerConfig{Addr: ":0", OwnerHeader: ownerHeader}
	return New(cfg, svc, nil, nil), clock
}

func doJSON(t *testing.T, srv *Server, method, path, owner string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if owner != "" {
		req.Header.Set(ownerHeader, owner)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func createInterval(t *testing.T, srv *Server, owner string) string {
	t.Helper()
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/intervals", owner, map[string]any{"title": "Deep work"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var resp struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.ID)
	return resp.ID
}

func TestCreateRequiresOwnerHeader(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/intervals", "", map[string]any{"title": "x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateReturnsPendingInterval(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/intervals", "alice", map[string]any{"title": "Deep work"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "PENDING", resp["status"])
	assert.Equal(t, "WORK", resp["kind"])
	assert.Equal(t, float64(25), resp["planned_duration_minutes"])
	assert.Equal(t, float64(0), resp["elapsed_seconds"])
}

func TestCreateRejectsUnknownFields(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/intervals", "alice", map[string]any{"title": "x", "status": "RUNNING"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateRejectsBadDuration(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/intervals", "alice",
		map[string]any{"title": "x", "planned_duration_minutes": 500})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLifecycleOverHTTP(t *testing.T) {
	srv, clock := newTestServer(t)
	id := createInterval(t, srv, "alice")

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/intervals/"+id+"/start", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	clock.Advance(5 * time.Minute)
	rec = doJSON(t, srv, http.MethodPost, "/api/v1/intervals/"+id+"/pause", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var paused map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &paused))
	assert.Equal(t, "PAUSED", paused["status"])
	assert.Equal(t, float64(300), paused["accumulated_seconds"])

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/intervals/"+id+"/resume", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/intervals/"+id+"/complete", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var done map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &done))
	assert.Equal(t, "COMPLETED", done["status"])
	assert.NotNil(t, done["completed_at"])
}

func TestConflictingStartMapsTo409(t *testing.T) {
	srv, _ := newTestServer(t)
	first := createInterval(t, srv, "alice")
	second := createInterval(t, srv, "alice")

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/intervals/"+first+"/start", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/intervals/"+second+"/start", "alice", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "already running")
}

func TestInvalidTransitionMapsTo422(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createInterval(t, srv, "alice")

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/intervals/"+id+"/pause", "alice", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestOwnerScopingMapsTo404(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createInterval(t, srv, "alice")

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/intervals/"+id, "bob", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateRunningMapsTo422(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createInterval(t, srv, "alice")

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/intervals/"+id+"/start", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodPatch, "/api/v1/intervals/"+id, "alice", map[string]any{"title": "New"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestDeleteHidesInterval(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createInterval(t, srv, "alice")

	rec := doJSON(t, srv, http.MethodDelete, "/api/v1/intervals/"+id, "alice", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/intervals/"+id, "alice", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/intervals", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 0, list.Count)
}

func TestActiveEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/intervals/active", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Nil(t, resp["active"])

	id := createInterval(t, srv, "alice")
	rec = doJSON(t, srv, http.MethodPost, "/api/v1/intervals/"+id+"/start", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/intervals/active", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp["active"])
}

func TestElapsedSecondsGrowsWhileRunning(t *testing.T) {
	srv, clock := newTestServer(t)
	id := createInterval(t, srv, "alice")

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/intervals/"+id+"/start", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	clock.Advance(90 * time.Second)
	rec = doJSON(t, srv, http.MethodGet, "/api/v1/intervals/"+id, "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, float64(90), resp["elapsed_seconds"])
}

func TestStatsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createInterval(t, srv, "alice")

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/intervals/"+id+"/start", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, srv, http.MethodPost, "/api/v1/intervals/"+id+"/complete", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/intervals/stats", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, float64(1), stats["total"])
	assert.Equal(t, float64(1), stats["completed"])
	assert.Equal(t, float64(100), stats["completion_rate"])
}

func TestSettingsRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/settings", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, float64(25), got["focus_minutes"])

	rec = doJSON(t, srv, http.MethodPatch, "/api/v1/settings", "alice", map[string]any{"focus_minutes": 50})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, float64(50), got["focus_minutes"])
	assert.Equal(t, float64(5), got["short_break_minutes"])
}

func TestSessionsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createInterval(t, srv, "alice")

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/intervals/"+id+"/start", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, srv, http.MethodPost, "/api/v1/intervals/"+id+"/complete", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/sessions", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/sessions/daily", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestSessionsRejectsBadDate(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/api/v1/sessions?from=junk", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestStatusPageRendersHTML(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/status", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html"))
	assert.Contains(t, rec.Body.String(), "focusd")

	rec = doJSON(t, srv, http.MethodGet, "/status?format=markdown", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "# focusd")
}

func TestRequestIDEchoed(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))

	rec = doJSON(t, srv, http.MethodGet, "/healthz", "", nil)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
