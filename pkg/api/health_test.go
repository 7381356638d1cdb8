package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/cuemby/bsgo/pkg/backup"
	"github.com/cuemby/bsgo/pkg/blob"
	"github.com/cuemby/bsgo/pkg/blobmanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFacade(t *testing.T, withStore bool) *backup.Facade {
	t.Helper()
	manager := blobmanager.New()
	if withStore {
		store, err := blob.NewDirectoryStore(t.TempDir())
		require.NoError(t, err)
		manager.Add(store)
	}
	facade, err := backup.Open(filepath.Join(t.TempDir(), "test.db"), 2, manager)
	require.NoError(t, err)
	t.Cleanup(func() { _ = facade.Close() })
	return facade
}

func TestHealthRouteAlwaysHealthy(t *testing.T) {
	srv := NewServer(newTestFacade(t, false))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthRouteRejectsWriteMethods(t *testing.T) {
	srv := NewServer(newTestFacade(t, false))

	req := httptest.NewRequest(http.MethodPost, "/health", nil)
	w := httptest.NewRecorder()
	srv.mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestReadyRouteNotReadyWithoutBlobStore(t *testing.T) {
	srv := NewServer(newTestFacade(t, false))
	refreshComponents(srv.facade)

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	w := httptest.NewRecorder()
	srv.mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "not_ready", body["status"])
}

func TestReadyRouteReadyWithDatabaseAndBlobStore(t *testing.T) {
	srv := NewServer(newTestFacade(t, true))
	refreshComponents(srv.facade)

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	w := httptest.NewRecorder()
	srv.mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "ready", body["status"])
}

func TestMetricsRouteAlwaysServesPlaintext(t *testing.T) {
	srv := NewServer(newTestFacade(t, false))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	srv.mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUnregisteredRouteReturns404(t *testing.T) {
	srv := NewServer(newTestFacade(t, false))

	req := httptest.NewRequest(http.MethodGet, "/nonexistent", nil)
	w := httptest.NewRecorder()
	srv.mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPingEchoesMessage(t *testing.T) {
	srv := NewServer(newTestFacade(t, false))

	payload, err := json.Marshal(map[string]any{"message": "hello", "fancy": "Сука Блять"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/ping", bytes.NewReader(payload))
	w := httptest.NewRecorder()
	srv.mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "hello", resp["message"])
	assert.Equal(t, "Сука Блять", resp["fancy"])
	assert.NotEmpty(t, resp["time"])
}

func TestPingRejectsGet(t *testing.T) {
	srv := NewServer(newTestFacade(t, false))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	w := httptest.NewRecorder()
	srv.mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestPingRejectsMalformedBody(t *testing.T) {
	srv := NewServer(newTestFacade(t, false))

	req := httptest.NewRequest(http.MethodPost, "/ping", bytes.NewReader([]byte("not json")))
	w := httptest.NewRecorder()
	srv.mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
