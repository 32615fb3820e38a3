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
	"github.com/settleline/reconcile-backend/internal/domain/model"
	"github.com/settleline/reconcile-backend/internal/infrastructure/storage"
)

func TestTransactionsHandler_List(t *testing.T) {
	t.Run("returns transactions from repository", func(t *testing.T) {
		repo := storage.NewMockRepository()
		_, err := repo.InsertTransactions(context.Background(), []model.Transaction{
			{Customer: "Alexis Abe", ExternalID: "1B6", Item: "Tool A", PriceCents: 12300, Kind: "purchase", AmountCents: 12300, Date: seedDate("2024-03-10")},
			{Customer: "Alex Able", ExternalID: "I8G", Item: "Tool A", PriceCents: 12300, Kind: "refund", AmountCents: -12300, Date: seedDate("2024-03-20")},
		})
		require.NoError(t, err)

		handler := handlers.NewTransactionsHandler(repo)

		req := httptest.NewRequest(http.MethodGet, "/api/transactions", nil)
		rec := httptest.NewRecorder()

		handler.List(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var response dto.TransactionListResponse
		err = json.NewDecoder(rec.Body).Decode(&response)
		require.NoError(t, err)

		assert.Equal(t, 2, response.TotalCount)
		require.Len(t, response.Transactions, 2)
		assert.Equal(t, "purchase", response.Transactions[0].TxnType)
		assert.Equal(t, int64(-12300), response.Transactions[1].TxnAmountCents)
		assert.Nil(t, response.Transactions[0].MatchedOrderID)
	})
}

func TestTransactionsHandler_Upload(t *testing.T) {
	t.Run("inserts valid rows", func(t *testing.T) {
		repo := storage.NewMockRepository()
		handler := handlers.NewTransactionsHandler(repo)

		csv := strings.Join([]string{
			"customer,orderId,date,item,priceCents,txnType,txnAmountCents",
			"Alexis Abe,1B6,2024-03-10,Tool A,12300,purchase,12300",
			"Alex Able,I8G,2024-03-20,Tool A,12300,refund,-12300",
		}, "\n")

		req := httptest.NewRequest(http.MethodPost, "/api/transactions/upload", strings.NewReader(csv))
		rec := httptest.NewRecorder()

		handler.Upload(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var response dto.UploadResponse
		err := json.NewDecoder(rec.Body).Decode(&response)
		require.NoError(t, err)

		assert.Equal(t, 2, response.InsertedCount)
		assert.Empty(t, response.Errors)

		stored, err := repo.AllTransactions(context.Background())
		require.NoError(t, err)
		require.Len(t, stored, 2)
		assert.Equal(t, "refund", stored[1].Kind)
	})

	t.Run("rejects a file missing transaction columns", func(t *testing.T) {
		repo := storage.NewMockRepository()
		handler := handlers.NewTransactionsHandler(repo)

		csv := strings.Join([]string{
			"customer,orderId,date,item,priceCents",
			"Alexis Abe,1B6,2024-03-10,Tool A,12300",
		}, "\n")

		req := httptest.NewRequest(http.MethodPost, "/api/transactions/upload", strings.NewReader(csv))
		rec := httptest.NewRecorder()

		handler.Upload(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
