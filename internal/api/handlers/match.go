package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/settleline/reconcile-backend/internal/api/dto"
	"github.com/settleline/reconcile-backend/internal/application/service"
	"github.com/settleline/reconcile-backend/internal/domain/matcher"
	"github.com/settleline/reconcile-backend/internal/domain/model"
	"github.com/settleline/reconcile-backend/internal/infrastructure/storage"
)

// MatchHandler handles matching run HTTP requests.
type MatchHandler struct {
	*Base
	matchService *service.MatchService
}

// NewMatchHandler creates a new match handler.
func NewMatchHandler(repo storage.Repository, matchService *service.MatchService) *MatchHandler {
	return &MatchHandler{
		Base:         NewBase(repo),
		matchService: matchService,
	}
}

// Run handles POST /api/match - runs matching over all persisted
// records and writes the committed matches back.
func (h *MatchHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req dto.MatchRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
			return
		}
	}

	opts := service.RunOptions{
		Profile:            req.Profile,
		Threshold:          req.Threshold,
		UseCandidateFilter: req.UseCandidateFilter,
	}
	if req.Weights != nil {
		opts.Weights = &matcher.Weights{
			CustomerName: req.Weights.CustomerName,
			ExternalID:   req.Weights.ExternalID,
			Item:         req.Weights.Item,
			Price:        req.Weights.Price,
			Date:         req.Weights.Date,
		}
	}

	result, run, err := h.matchService.Run(r.Context(), opts)
	if err != nil {
		h.WriteMatcherError(w, err)
		return
	}

	response := dto.MatchResponse{
		Result: dto.FromMatchingResult(result),
	}
	if run != nil {
		runResp := toMatchRunResponse(*run)
		response.Run = &runResp
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// Preview handles POST /api/match/preview - triages transactions from
// the request body against stored orders without persisting anything.
// This is the quick name-only path for data that has not been uploaded.
func (h *MatchHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req dto.PreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
		return
	}
	if len(req.Transactions) == 0 {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("transactions array is required"))
		return
	}

	txns := make([]model.Transaction, 0, len(req.Transactions))
	for _, p := range req.Transactions {
		date, _ := time.Parse("2006-01-02", p.Date) // bad dates score no bonus
		txns = append(txns, model.Transaction{
			Customer:    p.Customer,
			ExternalID:  p.ExternalID,
			Date:        date,
			Item:        p.Item,
			PriceCents:  p.PriceCents,
			Kind:        p.Kind,
			AmountCents: p.AmountCents,
		})
	}

	profile := req.Profile
	if profile == "" {
		profile = matcher.ProfileNameOnly
	}
	threshold := req.Threshold
	if threshold == 0 {
		threshold = 0.6
	}

	result, err := h.matchService.Preview(r.Context(), txns, service.RunOptions{
		Profile:   profile,
		Threshold: threshold,
	})
	if err != nil {
		h.WriteMatcherError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.MatchResponse{
		Result: dto.FromMatchingResult(result),
	})
}

// Reset handles DELETE /api/match - clears all persisted match state.
func (h *MatchHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.matchService.Reset(r.Context()); err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// toMatchRunResponse converts a run record to its response shape.
func toMatchRunResponse(run storage.MatchRun) dto.MatchRunResponse {
	return dto.MatchRunResponse{
		ID:                    run.ID,
		Profile:               run.Profile,
		Threshold:             run.Threshold,
		StartedAt:             run.StartedAt,
		CompletedAt:           run.CompletedAt,
		DurationMS:            run.DurationMS,
		OrdersTotal:           run.OrdersTotal,
		TransactionsTotal:     run.TransactionsTotal,
		MatchedGroups:         run.MatchedGroups,
		MatchedTransactions:   run.MatchedTransactions,
		UnmatchedOrders:       run.UnmatchedOrders,
		UnmatchedTransactions: run.UnmatchedTransactions,
		Status:                run.Status,
	}
}
