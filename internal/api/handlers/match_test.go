package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/settleline/reconcile-backend/internal/api/dto"
	"github.com/settleline/reconcile-backend/internal/api/handlers"
	"github.com/settleline/reconcile-backend/internal/application/service"
	"github.com/settleline/reconcile-backend/internal/domain/model"
	"github.com/settleline/reconcile-backend/internal/infrastructure/config"
	"github.com/settleline/reconcile-backend/internal/infrastructure/storage"
)

func newMatchHandler(repo *storage.MockRepository) *handlers.MatchHandler {
	svc := service.NewMatchService(repo, config.MatchingConfig{
		Profile:    "strict",
		Threshold:  0.5,
		WindowDays: 60,
	}, nil)
	return handlers.NewMatchHandler(repo, svc)
}

func seedMatchData(t *testing.T, repo *storage.MockRepository) {
	t.Helper()
	ctx := context.Background()

	_, err := repo.InsertOrders(ctx, []model.Order{
		{Customer: "Alex Abel", ExternalID: "18G", Item: "Tool A", PriceCents: 12300, Date: seedDate("2024-03-01")},
		{Customer: "Brian Bell", ExternalID: "20S", Item: "Toy B", PriceCents: 32100, Date: seedDate("2024-03-05")},
	})
	require.NoError(t, err)

	_, err = repo.InsertTransactions(ctx, []model.Transaction{
		{Customer: "Alex Abel", ExternalID: "18G", Item: "Tool A", PriceCents: 12300, Kind: "purchase", AmountCents: 12300, Date: seedDate("2024-03-10")},
		{Customer: "Nobody Known", ExternalID: "Q", Item: "???", PriceCents: 1, Kind: "purchase", AmountCents: 1, Date: seedDate("2020-01-01")},
	})
	require.NoError(t, err)
}

func TestMatchHandler_Run(t *testing.T) {
	t.Run("runs with defaults on an empty body", func(t *testing.T) {
		repo := storage.NewMockRepository()
		seedMatchData(t, repo)
		handler := newMatchHandler(repo)

		req := httptest.NewRequest(http.MethodPost, "/api/match", nil)
		rec := httptest.NewRecorder()

		handler.Run(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var response dto.MatchResponse
		err := json.NewDecoder(rec.Body).Decode(&response)
		require.NoError(t, err)

		require.Len(t, response.Result.Matched, 1)
		assert.Equal(t, "Alex Abel", response.Result.Matched[0].Order.Customer)
		assert.Len(t, response.Result.UnmatchedOrders, 1)
		assert.Len(t, response.Result.UnmatchedTransactions, 1)

		require.NotNil(t, response.Run)
		assert.Equal(t, "strict", response.Run.Profile)
		assert.NotEmpty(t, response.Run.ID)

		assert.True(t, repo.ApplyMatchesCalled)
	})

	t.Run("honors request overrides", func(t *testing.T) {
		repo := storage.NewMockRepository()
		seedMatchData(t, repo)
		handler := newMatchHandler(repo)

		body := `{"profile":"name-only","threshold":0.8}`
		req := httptest.NewRequest(http.MethodPost, "/api/match", strings.NewReader(body))
		rec := httptest.NewRecorder()

		handler.Run(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var response dto.MatchResponse
		err := json.NewDecoder(rec.Body).Decode(&response)
		require.NoError(t, err)

		require.NotNil(t, response.Run)
		assert.Equal(t, "name-only", response.Run.Profile)
		assert.Equal(t, 0.8, response.Run.Threshold)
	})

	t.Run("custom weights", func(t *testing.T) {
		repo := storage.NewMockRepository()
		seedMatchData(t, repo)
		handler := newMatchHandler(repo)

		body := `{"weights":{"customerName":1,"price":1}}`
		req := httptest.NewRequest(http.MethodPost, "/api/match", strings.NewReader(body))
		rec := httptest.NewRecorder()

		handler.Run(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var response dto.MatchResponse
		err := json.NewDecoder(rec.Body).Decode(&response)
		require.NoError(t, err)
		require.NotNil(t, response.Run)
		assert.Equal(t, "custom", response.Run.Profile)
	})

	t.Run("unknown profile maps to 400", func(t *testing.T) {
		repo := storage.NewMockRepository()
		handler := newMatchHandler(repo)

		body := `{"profile":"fuzzy"}`
		req := httptest.NewRequest(http.MethodPost, "/api/match", strings.NewReader(body))
		rec := httptest.NewRecorder()

		handler.Run(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var response dto.APIError
		err := json.NewDecoder(rec.Body).Decode(&response)
		require.NoError(t, err)
		assert.Equal(t, dto.ErrCodeConfiguration, response.Code)
	})

	t.Run("malformed body maps to 400", func(t *testing.T) {
		repo := storage.NewMockRepository()
		handler := newMatchHandler(repo)

		req := httptest.NewRequest(http.MethodPost, "/api/match", strings.NewReader("{not json"))
		rec := httptest.NewRecorder()

		handler.Run(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("storage failure maps to 502", func(t *testing.T) {
		repo := storage.NewMockRepository()
		seedMatchData(t, repo)
		repo.AllOrdersErr = assert.AnError
		handler := newMatchHandler(repo)

		req := httptest.NewRequest(http.MethodPost, "/api/match", nil)
		rec := httptest.NewRecorder()

		handler.Run(rec, req)

		assert.Equal(t, http.StatusBadGateway, rec.Code)

		var response dto.APIError
		err := json.NewDecoder(rec.Body).Decode(&response)
		require.NoError(t, err)
		assert.Equal(t, dto.ErrCodeCollaborator, response.Code)
	})
}

func TestMatchHandler_Preview(t *testing.T) {
	t.Run("triages request transactions without persisting", func(t *testing.T) {
		repo := storage.NewMockRepository()
		seedMatchData(t, repo)
		handler := newMatchHandler(repo)

		body := `{"transactions":[
			{"customer":"Alex Able","orderId":"I8G","date":"2024-03-12","item":"Tool A","priceCents":12300,"txnType":"purchase","txnAmountCents":12300}
		]}`
		req := httptest.NewRequest(http.MethodPost, "/api/match/preview", strings.NewReader(body))
		rec := httptest.NewRecorder()

		handler.Preview(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var response dto.MatchResponse
		err := json.NewDecoder(rec.Body).Decode(&response)
		require.NoError(t, err)

		require.Len(t, response.Result.Matched, 1)
		assert.Equal(t, "Alex Abel", response.Result.Matched[0].Order.Customer)
		assert.Nil(t, response.Run)

		assert.False(t, repo.ApplyMatchesCalled)
		assert.False(t, repo.ResetMatchesCalled)
	})

	t.Run("requires transactions", func(t *testing.T) {
		repo := storage.NewMockRepository()
		handler := newMatchHandler(repo)

		req := httptest.NewRequest(http.MethodPost, "/api/match/preview", strings.NewReader(`{}`))
		rec := httptest.NewRecorder()

		handler.Preview(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("empty customer maps to 422", func(t *testing.T) {
		repo := storage.NewMockRepository()
		seedMatchData(t, repo)
		handler := newMatchHandler(repo)

		body := `{"transactions":[{"customer":"","orderId":"X","date":"2024-03-12","item":"Y","priceCents":1}]}`
		req := httptest.NewRequest(http.MethodPost, "/api/match/preview", strings.NewReader(body))
		rec := httptest.NewRecorder()

		handler.Preview(rec, req)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

		var response dto.APIError
		err := json.NewDecoder(rec.Body).Decode(&response)
		require.NoError(t, err)
		assert.Equal(t, dto.ErrCodeInput, response.Code)
	})
}

func TestMatchHandler_Reset(t *testing.T) {
	repo := storage.NewMockRepository()
	seedMatchData(t, repo)
	handler := newMatchHandler(repo)

	req := httptest.NewRequest(http.MethodDelete, "/api/match", nil)
	rec := httptest.NewRecorder()

	handler.Reset(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, repo.ResetMatchesCalled)
}
