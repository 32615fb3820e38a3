package api_test

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
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

// These tests use a real SQLite database to exercise the full stack:
// HTTP request → router → handlers → service → storage.

func createIntegrationServer(t *testing.T) *api.Server {
	t.Helper()

	store, err := storage.NewStorage(filepath.Join(t.TempDir(), "integration.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	matchService := service.NewMatchService(store, config.MatchingConfig{
		Profile:    "strict",
		Threshold:  0.5,
		WindowDays: 60,
	}, logger)

	return api.NewServer(api.DefaultConfig(), store, matchService, logger)
}

func doRequest(t *testing.T, server *api.Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	return rec
}

func TestIntegration_UploadMatchResults(t *testing.T) {
	server := createIntegrationServer(t)

	// Upload orders
	ordersCSV := strings.Join([]string{
		"customer,orderId,date,item,priceCents",
		"Alex Abel,18G,2024-03-01,Tool A,12300",
		"Brian Bell,20S,2024-03-05,Toy B,32100",
	}, "\n")

	rec := doRequest(t, server, http.MethodPost, "/api/orders/upload", ordersCSV)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var upload dto.UploadResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&upload))
	assert.Equal(t, 2, upload.InsertedCount)

	// Upload transactions
	txnsCSV := strings.Join([]string{
		"customer,orderId,date,item,priceCents,txnType,txnAmountCents",
		"Alexis Abe,1B6,2024-03-10,Tool A,12300,purchase,12300",
		"Alex Able,I8G,2024-03-20,Tool A,12300,refund,-12300",
		"Brian Ball,ZOS,2024-03-12,Toy B,32100,purchase,32100",
		"Nobody Known,Q,2020-01-01,???,1,purchase,1",
	}, "\n")

	rec = doRequest(t, server, http.MethodPost, "/api/transactions/upload", txnsCSV)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Run matching
	rec = doRequest(t, server, http.MethodPost, "/api/match", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var match dto.MatchResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&match))

	require.Len(t, match.Result.Matched, 2)
	require.NotNil(t, match.Run)
	assert.Equal(t, "strict", match.Run.Profile)
	assert.Equal(t, 4, match.Run.TransactionsTotal)
	assert.Len(t, match.Result.UnmatchedTransactions, 1)

	// Run history reflects the run
	rec = doRequest(t, server, http.MethodGet, "/api/runs/"+match.Run.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var run dto.MatchRunResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&run))
	assert.Equal(t, match.Run.ID, run.ID)

	// Results endpoint reconstructs the committed state
	rec = doRequest(t, server, http.MethodGet, "/api/results", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var results dto.MatchingResultResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&results))
	assert.Len(t, results.Matched, 2)
	assert.Len(t, results.UnmatchedTransactions, 1)
	for _, group := range results.Matched {
		for _, txn := range group.Transactions {
			assert.NotNil(t, txn.MatchedOrderID)
		}
	}

	// Reset clears the state
	rec = doRequest(t, server, http.MethodDelete, "/api/match", "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, server, http.MethodGet, "/api/results", "")
	require.Equal(t, http.StatusOK, rec.Code)

	results = dto.MatchingResultResponse{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&results))
	assert.Empty(t, results.Matched)
	assert.Len(t, results.UnmatchedTransactions, 4)
}

func TestIntegration_UnknownRunIs404(t *testing.T) {
	server := createIntegrationServer(t)

	rec := doRequest(t, server, http.MethodGet, "/api/runs/no-such-run", "")
	require.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())

	var apiErr dto.APIError
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&apiErr))
	assert.Equal(t, dto.ErrCodeNotFound, apiErr.Code)
}

func TestIntegration_Preview(t *testing.T) {
	server := createIntegrationServer(t)

	ordersCSV := strings.Join([]string{
		"customer,orderId,date,item,priceCents",
		"Alex Abel,18G,2024-03-01,Tool A,12300",
	}, "\n")
	rec := doRequest(t, server, http.MethodPost, "/api/orders/upload", ordersCSV)
	require.Equal(t, http.StatusOK, rec.Code)

	body := `{"transactions":[
		{"customer":"Alex Able","orderId":"I8G","date":"2024-03-12","item":"Tool A","priceCents":12300,"txnType":"purchase","txnAmountCents":12300}
	]}`
	rec = doRequest(t, server, http.MethodPost, "/api/match/preview", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var match dto.MatchResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&match))
	require.Len(t, match.Result.Matched, 1)
	assert.Nil(t, match.Run)

	// Preview never persists match state.
	rec = doRequest(t, server, http.MethodGet, "/api/results", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var results dto.MatchingResultResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&results))
	assert.Empty(t, results.Matched)
}
