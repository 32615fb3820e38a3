package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/settleline/reconcile-backend/internal/api/dto"
)

// HealthHandler reports service liveness and which storage driver backs it.
type HealthHandler struct {
	storageDriver string
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(storageDriver string) *HealthHandler {
	return &HealthHandler{storageDriver: storageDriver}
}

// ServeHTTP handles the health check request.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	response := dto.NewHealthResponse(h.storageDriver)
	_ = json.NewEncoder(w).Encode(response)
}
