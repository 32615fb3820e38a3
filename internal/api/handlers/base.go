package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/settleline/reconcile-backend/internal/api/dto"
	"github.com/settleline/reconcile-backend/internal/domain/matcher"
	"github.com/settleline/reconcile-backend/internal/infrastructure/storage"
)

// Base provides shared functionality for all handlers.
type Base struct {
	repo storage.Repository
}

// NewBase creates a new base handler with the given repository.
func NewBase(repo storage.Repository) *Base {
	return &Base{repo: repo}
}

// WriteJSON writes a JSON response with the given status code.
func (b *Base) WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError writes an error response with the given status code.
func (b *Base) WriteError(w http.ResponseWriter, status int, err dto.APIError) {
	b.WriteJSON(w, status, err)
}

// WriteMatcherError maps domain error kinds to API error responses.
func (b *Base) WriteMatcherError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, matcher.ErrConfiguration):
		b.WriteError(w, http.StatusBadRequest, dto.NewAPIError(dto.ErrCodeConfiguration, err.Error()))
	case errors.Is(err, matcher.ErrInput):
		b.WriteError(w, http.StatusUnprocessableEntity, dto.NewAPIError(dto.ErrCodeInput, err.Error()))
	case errors.Is(err, matcher.ErrCollaborator):
		b.WriteError(w, http.StatusBadGateway, dto.NewAPIError(dto.ErrCodeCollaborator, err.Error()))
	default:
		b.WriteError(w, http.StatusInternalServerError, dto.InternalError())
	}
}

// ParseIntParam parses an integer query parameter with a default value.
func ParseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return parsed
}

// ParseBoolParam parses a boolean query parameter with a default value.
func ParseBoolParam(r *http.Request, name string, defaultVal bool) bool {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	return val == "true" || val == "1"
}
