// Package matcher implements the matching engine: a configurable
// weighted scorer and a greedy globally-sorted assignment algorithm that
// partitions orders and transactions into matched groups and unmatched
// remainders.
//
// The engine is deliberately a greedy, explainable heuristic, not a
// bipartite-optimal solver. Every invocation is pure given its inputs;
// concurrent calls need no locking.
package matcher

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/settleline/reconcile-backend/internal/domain/model"
)

// CandidateFinder narrows the order set for a transaction before fine
// scoring, typically backed by an index or trigram-style similarity
// lookup. Returned orders are mapped back to the engine's input set by
// ID; orders the engine was not given are ignored.
type CandidateFinder interface {
	FindCandidates(ctx context.Context, name string, minSimilarity float64) ([]model.Order, error)
}

// Options configures an Engine. Threshold is required; there is no
// default because the useful value depends on how the engine is used
// (0.5-0.6 for transaction-seeking runs, 0.15-0.2 for exhaustive
// database-scale scans that trade precision for recall).
type Options struct {
	Weights     Weights
	Threshold   float64
	WindowDays  int
	Parallelism int

	// Candidates, when set, pre-filters orders per transaction.
	// MinCandidateSimilarity is the coarse similarity floor passed to
	// the finder.
	Candidates             CandidateFinder
	MinCandidateSimilarity float64
}

// Engine performs greedy globally-sorted assignment.
type Engine struct {
	scorer      *Scorer
	threshold   float64
	parallelism int
	candidates  CandidateFinder
	minCandSim  float64
}

// NewEngine validates the configuration and builds an engine.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Threshold <= 0 || opts.Threshold >= 1 {
		return nil, fmt.Errorf("%w: match threshold must be in (0,1), got %v", ErrConfiguration, opts.Threshold)
	}

	scorer, err := NewScorer(opts.Weights, opts.WindowDays)
	if err != nil {
		return nil, err
	}

	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}

	return &Engine{
		scorer:      scorer,
		threshold:   opts.Threshold,
		parallelism: parallelism,
		candidates:  opts.Candidates,
		minCandSim:  opts.MinCandidateSimilarity,
	}, nil
}

// pair is one scored (order, transaction) candidate above threshold.
type pair struct {
	orderIdx int
	txnIdx   int
	score    float64
}

// Match partitions orders and transactions into a MatchingResult.
//
// Scoring of independent pairs fans out across goroutines bounded by the
// configured parallelism; the commit walk is a single pass on one
// goroutine because each decision depends on the consumed-transaction
// set built so far. Identical inputs and configuration always produce an
// identically ordered result.
func (e *Engine) Match(ctx context.Context, orders []model.Order, txns []model.Transaction) (*model.MatchingResult, error) {
	if err := validateInputs(orders, txns); err != nil {
		return nil, err
	}

	perTxn, err := e.scorePairs(ctx, orders, txns)
	if err != nil {
		return nil, err
	}

	// Flatten in (transaction index, order index) order, then stable
	// sort by score descending. Ties therefore resolve to the earlier
	// transaction, then the earlier order.
	var pairs []pair
	for _, candidates := range perTxn {
		pairs = append(pairs, candidates...)
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].score > pairs[j].score
	})

	// Single-pass greedy commit. A transaction is consumed at most
	// once; orders stay open so one order can accumulate several
	// transactions (payment plus refund).
	groups := make(map[int]*model.MatchedGroup)
	consumed := make([]bool, len(txns))

	for _, p := range pairs {
		if consumed[p.txnIdx] {
			continue
		}
		consumed[p.txnIdx] = true

		group, ok := groups[p.orderIdx]
		if !ok {
			// The first commitment is the highest-ranked one for
			// this order; its score stays the group's score.
			group = &model.MatchedGroup{
				Order: orders[p.orderIdx],
				Score: p.score,
			}
			groups[p.orderIdx] = group
		}
		group.Transactions = append(group.Transactions, txns[p.txnIdx])
	}

	result := &model.MatchingResult{
		Matched:               make([]model.MatchedGroup, 0, len(groups)),
		UnmatchedOrders:       make([]model.Order, 0),
		UnmatchedTransactions: make([]model.Transaction, 0),
	}

	for i, order := range orders {
		if group, ok := groups[i]; ok {
			result.Matched = append(result.Matched, *group)
		} else {
			result.UnmatchedOrders = append(result.UnmatchedOrders, order)
		}
	}

	for i, txn := range txns {
		if !consumed[i] {
			result.UnmatchedTransactions = append(result.UnmatchedTransactions, txn)
		}
	}

	return result, nil
}

// scorePairs computes, per transaction, the above-threshold candidate
// pairs against the (possibly pre-filtered) order set.
func (e *Engine) scorePairs(ctx context.Context, orders []model.Order, txns []model.Transaction) ([][]pair, error) {
	var ordersByID map[int64]int
	if e.candidates != nil {
		ordersByID = make(map[int64]int, len(orders))
		for i, o := range orders {
			if o.ID != 0 {
				ordersByID[o.ID] = i
			}
		}
	}

	perTxn := make([][]pair, len(txns))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelism)

	for ti := range txns {
		ti := ti
		g.Go(func() error {
			orderIdxs, err := e.candidateIndexes(ctx, orders, ordersByID, txns[ti])
			if err != nil {
				return err
			}

			var candidates []pair
			for _, oi := range orderIdxs {
				score := e.scorer.Score(orders[oi], txns[ti])
				if score > e.threshold {
					candidates = append(candidates, pair{orderIdx: oi, txnIdx: ti, score: score})
				}
			}
			perTxn[ti] = candidates
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return perTxn, nil
}

// candidateIndexes resolves which orders a transaction is scored
// against: every order, or the finder's pre-filtered subset.
func (e *Engine) candidateIndexes(ctx context.Context, orders []model.Order, ordersByID map[int64]int, txn model.Transaction) ([]int, error) {
	if e.candidates == nil {
		idxs := make([]int, len(orders))
		for i := range orders {
			idxs[i] = i
		}
		return idxs, nil
	}

	found, err := e.candidates.FindCandidates(ctx, txn.Customer, e.minCandSim)
	if err != nil {
		return nil, fmt.Errorf("%w: find candidates for %q: %v", ErrCollaborator, txn.Customer, err)
	}

	idxs := make([]int, 0, len(found))
	for _, o := range found {
		if i, ok := ordersByID[o.ID]; ok {
			idxs = append(idxs, i)
		}
	}
	sort.Ints(idxs)
	return idxs, nil
}

// validateInputs fails loudly on malformed records so a result with
// silently dropped records can never be produced.
func validateInputs(orders []model.Order, txns []model.Transaction) error {
	for i, o := range orders {
		if strings.TrimSpace(o.Customer) == "" {
			return fmt.Errorf("%w: order %d has an empty customer name", ErrInput, i)
		}
	}
	for i, t := range txns {
		if strings.TrimSpace(t.Customer) == "" {
			return fmt.Errorf("%w: transaction %d has an empty customer name", ErrInput, i)
		}
	}
	return nil
}
