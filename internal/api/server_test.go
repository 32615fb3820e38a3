package api_test

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/settleline/reconcile-backend/internal/api"
	"github.com/settleline/reconcile-backend/internal/api/dto"
	"github.com/settleline/reconcile-backend/internal/application/service"
	"github.com/settleline/reconcile-backend/internal/infrastructure/config"
	"github.com/settleline/reconcile-backend/internal/infrastructure/storage"
)

func newTestServer(t *testing.T) (*api.Server, *storage.MockRepository) {
	t.Helper()
	repo := storage.NewMockRepository()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	matchService := service.NewMatchService(repo, config.MatchingConfig{
		Profile:    "strict",
		Threshold:  0.5,
		WindowDays: 60,
	}, logger)
	server := api.NewServer(api.DefaultConfig(), repo, matchService, logger)
	return server, repo
}

func TestServer_HealthEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var response dto.HealthResponse
	err := json.NewDecoder(rec.Body).Decode(&response)
	require.NoError(t, err)
	assert.Equal(t, "ok", response.Status)
	assert.Equal(t, "sqlite", response.Storage)
}

func TestServer_RoutesRegistered(t *testing.T) {
	server, _ := newTestServer(t)

	routes := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodGet, "/api/orders", ""},
		{http.MethodGet, "/api/transactions", ""},
		{http.MethodPost, "/api/match", ""},
		{http.MethodDelete, "/api/match", ""},
		{http.MethodGet, "/api/results", ""},
		{http.MethodGet, "/api/runs", ""},
	}

	for _, route := range routes {
		var body *strings.Reader
		if route.body != "" {
			body = strings.NewReader(route.body)
		} else {
			body = strings.NewReader("")
		}

		req := httptest.NewRequest(route.method, route.path, body)
		rec := httptest.NewRecorder()

		server.Router().ServeHTTP(rec, req)

		assert.NotEqual(t, http.StatusNotFound, rec.Code,
			"%s %s should be routed", route.method, route.path)
		assert.NotEqual(t, http.StatusMethodNotAllowed, rec.Code,
			"%s %s should be routed", route.method, route.path)
	}
}

func TestServer_UnknownRoute(t *testing.T) {
	server, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/nope", nil)
	rec := httptest.NewRecorder()

	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_CORSHeaders(t *testing.T) {
	server, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()

	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}
