package handlers

import (
	"net/http"

	"github.com/settleline/reconcile-backend/internal/api/dto"
	"github.com/settleline/reconcile-backend/internal/infrastructure/storage"
	"github.com/settleline/reconcile-backend/internal/ingest"
)

// TransactionsHandler handles transaction-related HTTP requests.
type TransactionsHandler struct {
	*Base
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(repo storage.Repository) *TransactionsHandler {
	return &TransactionsHandler{
		Base: NewBase(repo),
	}
}

// List handles GET /api/transactions - returns a paginated list of
// transactions.
func (h *TransactionsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := ParseIntParam(r, "limit", 50)
	offset := ParseIntParam(r, "offset", 0)

	txns, total, err := h.repo.ListTransactions(r.Context(), storage.Page{Limit: limit, Offset: offset})
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.TransactionListResponse{
		Transactions: make([]dto.TransactionResponse, 0, len(txns)),
		TotalCount:   total,
		Limit:        limit,
		Offset:       offset,
	}
	for _, t := range txns {
		response.Transactions = append(response.Transactions, dto.FromTransaction(t))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// Upload handles POST /api/transactions/upload - bulk inserts
// transactions from a CSV body with a per-row error report.
func (h *TransactionsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	txns, rowErrs, err := ingest.ParseTransactions(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError(err.Error()))
		return
	}

	inserted, err := h.repo.InsertTransactions(r.Context(), txns)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.UploadResponse{
		InsertedCount:  inserted,
		TotalProcessed: len(txns) + len(rowErrs),
		Errors:         toRowErrors(rowErrs),
	})
}
