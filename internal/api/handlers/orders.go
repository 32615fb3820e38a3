package handlers

import (
	"net/http"

	"github.com/settleline/reconcile-backend/internal/api/dto"
	"github.com/settleline/reconcile-backend/internal/infrastructure/storage"
	"github.com/settleline/reconcile-backend/internal/ingest"
)

// maxUploadBytes caps CSV upload size.
const maxUploadBytes = 10 << 20 // 10 MB

// OrdersHandler handles order-related HTTP requests.
type OrdersHandler struct {
	*Base
}

// NewOrdersHandler creates a new orders handler.
func NewOrdersHandler(repo storage.Repository) *OrdersHandler {
	return &OrdersHandler{
		Base: NewBase(repo),
	}
}

// List handles GET /api/orders - returns a paginated list of orders.
func (h *OrdersHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := ParseIntParam(r, "limit", 50)
	offset := ParseIntParam(r, "offset", 0)

	orders, total, err := h.repo.ListOrders(r.Context(), storage.Page{Limit: limit, Offset: offset})
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.OrderListResponse{
		Orders:     make([]dto.OrderResponse, 0, len(orders)),
		TotalCount: total,
		Limit:      limit,
		Offset:     offset,
	}
	for _, o := range orders {
		response.Orders = append(response.Orders, dto.FromOrder(o))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// Upload handles POST /api/orders/upload - bulk inserts orders from a
// CSV body. Rows that fail validation are reported, not inserted.
func (h *OrdersHandler) Upload(w http.ResponseWriter, r *http.Request) {
	orders, rowErrs, err := ingest.ParseOrders(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError(err.Error()))
		return
	}

	inserted, err := h.repo.InsertOrders(r.Context(), orders)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.UploadResponse{
		InsertedCount:  inserted,
		TotalProcessed: len(orders) + len(rowErrs),
		Errors:         toRowErrors(rowErrs),
	})
}

// toRowErrors converts ingest row errors to their response shape.
func toRowErrors(rowErrs []ingest.RowError) []dto.RowError {
	if len(rowErrs) == 0 {
		return nil
	}
	out := make([]dto.RowError, 0, len(rowErrs))
	for _, e := range rowErrs {
		out = append(out, dto.RowError{Row: e.Row, Message: e.Message})
	}
	return out
}
