// Package service orchestrates matching runs: it loads the record
// collections from storage, invokes the matching engine, and performs
// the write-back of committed matches as an explicit, separate step so
// the engine itself stays pure.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/settleline/reconcile-backend/internal/domain/matcher"
	"github.com/settleline/reconcile-backend/internal/domain/model"
	"github.com/settleline/reconcile-backend/internal/infrastructure/config"
	"github.com/settleline/reconcile-backend/internal/infrastructure/storage"
)

// RunOptions selects the weight profile and threshold for one run.
// Zero values fall back to the configured defaults.
type RunOptions struct {
	Profile   string
	Weights   *matcher.Weights // overrides Profile when set
	Threshold float64

	// UseCandidateFilter routes scoring through the repository's
	// coarse candidate lookup instead of scoring every pair.
	UseCandidateFilter bool
}

// MatchService runs the matching engine against persisted data.
type MatchService struct {
	repo   storage.Repository
	cfg    config.MatchingConfig
	logger *slog.Logger
}

// NewMatchService creates a match service.
func NewMatchService(repo storage.Repository, cfg config.MatchingConfig, logger *slog.Logger) *MatchService {
	if logger == nil {
		logger = slog.Default()
	}
	return &MatchService{repo: repo, cfg: cfg, logger: logger}
}

// Run matches all persisted orders against all persisted transactions.
// Previous match state is cleared first so a run always reflects the
// full current data set. On success the committed assignments are
// written back and a MatchRun record is stored.
func (s *MatchService) Run(ctx context.Context, opts RunOptions) (*model.MatchingResult, *storage.MatchRun, error) {
	engine, profile, threshold, err := s.buildEngine(opts)
	if err != nil {
		return nil, nil, err
	}

	started := time.Now().UTC()

	if err := s.repo.ResetMatches(ctx); err != nil {
		return nil, nil, fmt.Errorf("reset matches: %w", err)
	}

	orders, err := s.repo.AllOrders(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: load orders: %v", matcher.ErrCollaborator, err)
	}
	txns, err := s.repo.AllTransactions(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: load transactions: %v", matcher.ErrCollaborator, err)
	}

	s.logger.Info("starting matching run",
		"orders", len(orders),
		"transactions", len(txns),
		"profile", profile,
		"threshold", threshold,
	)

	result, err := engine.Match(ctx, orders, txns)
	if err != nil {
		return nil, nil, err
	}

	// Explicit write-back step: the engine returned a pure result; only
	// now does match state touch the database.
	assignments := assignmentsFrom(result)
	if err := s.repo.ApplyMatches(ctx, assignments); err != nil {
		return nil, nil, fmt.Errorf("write back matches: %w", err)
	}

	completed := time.Now().UTC()
	run := &storage.MatchRun{
		ID:                    uuid.NewString(),
		Profile:               profile,
		Threshold:             threshold,
		StartedAt:             started.Format(time.RFC3339),
		CompletedAt:           completed.Format(time.RFC3339),
		DurationMS:            completed.Sub(started).Milliseconds(),
		OrdersTotal:           len(orders),
		TransactionsTotal:     len(txns),
		MatchedGroups:         len(result.Matched),
		MatchedTransactions:   len(assignments),
		UnmatchedOrders:       len(result.UnmatchedOrders),
		UnmatchedTransactions: len(result.UnmatchedTransactions),
		Status:                "completed",
	}
	if err := s.repo.SaveMatchRun(ctx, run); err != nil {
		// The matches are already committed; a lost history row is not
		// worth failing the run over.
		s.logger.Error("failed to save match run", "error", err)
	}

	s.logger.Info("matching run complete",
		"run_id", run.ID,
		"matched_groups", run.MatchedGroups,
		"matched_transactions", run.MatchedTransactions,
		"unmatched_orders", run.UnmatchedOrders,
		"unmatched_transactions", run.UnmatchedTransactions,
	)

	return result, run, nil
}

// Preview matches caller-supplied transactions against the persisted
// orders without touching stored match state. This is the quick-triage
// path for uploaded files that have not been committed yet.
func (s *MatchService) Preview(ctx context.Context, txns []model.Transaction, opts RunOptions) (*model.MatchingResult, error) {
	engine, _, _, err := s.buildEngine(opts)
	if err != nil {
		return nil, err
	}

	orders, err := s.repo.AllOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: load orders: %v", matcher.ErrCollaborator, err)
	}

	return engine.Match(ctx, orders, txns)
}

// Reset clears all persisted match state.
func (s *MatchService) Reset(ctx context.Context) error {
	return s.repo.ResetMatches(ctx)
}

// Results reconstructs the current MatchingResult from storage.
func (s *MatchService) Results(ctx context.Context) (*model.MatchingResult, error) {
	matched, err := s.repo.MatchedGroups(ctx)
	if err != nil {
		return nil, err
	}
	unmatchedOrders, err := s.repo.UnmatchedOrders(ctx)
	if err != nil {
		return nil, err
	}
	unmatchedTxns, err := s.repo.UnmatchedTransactions(ctx)
	if err != nil {
		return nil, err
	}

	if matched == nil {
		matched = make([]model.MatchedGroup, 0)
	}
	if unmatchedOrders == nil {
		unmatchedOrders = make([]model.Order, 0)
	}
	if unmatchedTxns == nil {
		unmatchedTxns = make([]model.Transaction, 0)
	}

	return &model.MatchingResult{
		Matched:               matched,
		UnmatchedOrders:       unmatchedOrders,
		UnmatchedTransactions: unmatchedTxns,
	}, nil
}

// buildEngine resolves run options against configured defaults.
func (s *MatchService) buildEngine(opts RunOptions) (*matcher.Engine, string, float64, error) {
	profile := opts.Profile
	if profile == "" {
		profile = s.cfg.Profile
	}

	var weights matcher.Weights
	if opts.Weights != nil {
		profile = "custom"
		weights = *opts.Weights
	} else {
		var err error
		weights, err = matcher.WeightsForProfile(profile)
		if err != nil {
			return nil, "", 0, err
		}
	}

	threshold := opts.Threshold
	if threshold == 0 {
		threshold = s.cfg.Threshold
	}

	engineOpts := matcher.Options{
		Weights:     weights,
		Threshold:   threshold,
		WindowDays:  s.cfg.WindowDays,
		Parallelism: s.cfg.Parallelism,
	}
	if opts.UseCandidateFilter {
		engineOpts.Candidates = s.repo
		engineOpts.MinCandidateSimilarity = s.cfg.MinCandidateSimilarity
	}

	engine, err := matcher.NewEngine(engineOpts)
	if err != nil {
		return nil, "", 0, err
	}
	return engine, profile, threshold, nil
}

// assignmentsFrom flattens a result into write-back records. Groups
// whose records were never persisted (zero IDs) are skipped.
func assignmentsFrom(result *model.MatchingResult) []storage.MatchAssignment {
	var assignments []storage.MatchAssignment
	for _, group := range result.Matched {
		if group.Order.ID == 0 {
			continue
		}
		for _, txn := range group.Transactions {
			if txn.ID == 0 {
				continue
			}
			assignments = append(assignments, storage.MatchAssignment{
				TransactionID: txn.ID,
				OrderID:       group.Order.ID,
				Score:         group.Score,
			})
		}
	}
	return assignments
}
