package storage

import (
	"context"

	"github.com/settleline/reconcile-backend/internal/domain/model"
)

// Repository defines the complete storage interface.
// This interface allows swapping implementations (SQLite, PostgreSQL)
// and makes testing with mocks straightforward.
type Repository interface {
	OrderRepository
	TransactionRepository
	MatchRunRepository
	Close() error
}

// OrderRepository handles order persistence and candidate retrieval.
type OrderRepository interface {
	// InsertOrders bulk-inserts orders, returning the inserted count.
	InsertOrders(ctx context.Context, orders []model.Order) (int, error)

	// ListOrders returns one page of orders plus the total count.
	ListOrders(ctx context.Context, page Page) ([]model.Order, int, error)

	// AllOrders returns every order, ordered by ID.
	AllOrders(ctx context.Context) ([]model.Order, error)

	// UnmatchedOrders returns orders no transaction currently points at.
	UnmatchedOrders(ctx context.Context) ([]model.Order, error)

	// FindCandidates returns orders whose customer name has at least
	// minSimilarity to name, most similar first. Used as a coarse
	// pre-filter before fine scoring.
	FindCandidates(ctx context.Context, name string, minSimilarity float64) ([]model.Order, error)
}

// TransactionRepository handles transaction persistence and match state.
type TransactionRepository interface {
	// InsertTransactions bulk-inserts transactions, returning the
	// inserted count.
	InsertTransactions(ctx context.Context, txns []model.Transaction) (int, error)

	// ListTransactions returns one page of transactions plus the total
	// count.
	ListTransactions(ctx context.Context, page Page) ([]model.Transaction, int, error)

	// AllTransactions returns every transaction, ordered by ID.
	AllTransactions(ctx context.Context) ([]model.Transaction, error)

	// UnmatchedTransactions returns transactions with no committed
	// match.
	UnmatchedTransactions(ctx context.Context) ([]model.Transaction, error)

	// ApplyMatches writes matched_order_id and the match score back for
	// every committed assignment.
	ApplyMatches(ctx context.Context, assignments []MatchAssignment) error

	// ResetMatches clears all committed matches.
	ResetMatches(ctx context.Context) error

	// MatchedGroups reconstructs the committed groups from storage,
	// ordered by order ID.
	MatchedGroups(ctx context.Context) ([]model.MatchedGroup, error)
}

// MatchRunRepository tracks matching run history.
type MatchRunRepository interface {
	// SaveMatchRun persists a completed run record.
	SaveMatchRun(ctx context.Context, run *MatchRun) error

	// ListMatchRuns returns recent runs, newest first.
	ListMatchRuns(ctx context.Context, limit int) ([]MatchRun, error)

	// GetMatchRun retrieves a run by ID. A missing run is (nil, nil).
	GetMatchRun(ctx context.Context, id string) (*MatchRun, error)
}
