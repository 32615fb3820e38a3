package matcher

import "errors"

// Sentinel error kinds. Callers detect them with errors.Is; the API
// layer maps them to response codes.
var (
	// ErrConfiguration indicates a bad weight profile or threshold.
	ErrConfiguration = errors.New("invalid matcher configuration")

	// ErrInput indicates a record missing a required field.
	ErrInput = errors.New("invalid input record")

	// ErrCollaborator indicates the candidate-retrieval dependency
	// failed. It is propagated, never retried; retry policy belongs to
	// the caller.
	ErrCollaborator = errors.New("collaborator unavailable")
)
