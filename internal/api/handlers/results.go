package handlers

import (
	"net/http"

	"github.com/settleline/reconcile-backend/internal/api/dto"
	"github.com/settleline/reconcile-backend/internal/application/service"
	"github.com/settleline/reconcile-backend/internal/infrastructure/storage"
)

// ResultsHandler serves the currently committed matching result.
type ResultsHandler struct {
	*Base
	matchService *service.MatchService
}

// NewResultsHandler creates a new results handler.
func NewResultsHandler(repo storage.Repository, matchService *service.MatchService) *ResultsHandler {
	return &ResultsHandler{
		Base:         NewBase(repo),
		matchService: matchService,
	}
}

// Get handles GET /api/results - reconstructs the matching result from
// storage. Before any run has committed, everything comes back
// unmatched.
func (h *ResultsHandler) Get(w http.ResponseWriter, r *http.Request) {
	result, err := h.matchService.Results(r.Context())
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.FromMatchingResult(result))
}
