package storage

import (
	"context"
	"sort"

	"github.com/settleline/reconcile-backend/internal/domain/model"
	"github.com/settleline/reconcile-backend/internal/domain/similarity"
)

// MockRepository is an in-memory implementation of Repository for
// testing. It stores all data in slices and maps, making tests fast and
// isolated.
type MockRepository struct {
	orders  []model.Order
	txns    []model.Transaction
	runs    map[string]MatchRun
	runIDs  []string
	nextOID int64
	nextTID int64

	// Hooks for test assertions
	ApplyMatchesCalled   bool
	LastAssignments      []MatchAssignment
	ResetMatchesCalled   bool
	SaveMatchRunCalled   bool
	LastSavedRun         *MatchRun
	FindCandidatesCalled bool

	// Error injection for testing error paths
	InsertOrdersErr       error
	InsertTransactionsErr error
	ApplyMatchesErr       error
	FindCandidatesErr     error
	AllOrdersErr          error
	AllTransactionsErr    error
	SaveMatchRunErr       error
}

// NewMockRepository creates a new mock repository for testing
func NewMockRepository() *MockRepository {
	return &MockRepository{
		runs:    make(map[string]MatchRun),
		nextOID: 1,
		nextTID: 1,
	}
}

// Compile-time check that MockRepository implements Repository
var _ Repository = (*MockRepository)(nil)

// Close does nothing for mock
func (m *MockRepository) Close() error {
	return nil
}

func (m *MockRepository) InsertOrders(_ context.Context, orders []model.Order) (int, error) {
	if m.InsertOrdersErr != nil {
		return 0, m.InsertOrdersErr
	}
	for _, o := range orders {
		o.ID = m.nextOID
		m.nextOID++
		m.orders = append(m.orders, o)
	}
	return len(orders), nil
}

func (m *MockRepository) ListOrders(_ context.Context, page Page) ([]model.Order, int, error) {
	page = page.normalize()
	total := len(m.orders)
	start := page.Offset
	if start > total {
		start = total
	}
	end := start + page.Limit
	if end > total {
		end = total
	}
	return append([]model.Order(nil), m.orders[start:end]...), total, nil
}

func (m *MockRepository) AllOrders(_ context.Context) ([]model.Order, error) {
	if m.AllOrdersErr != nil {
		return nil, m.AllOrdersErr
	}
	return append([]model.Order(nil), m.orders...), nil
}

func (m *MockRepository) UnmatchedOrders(_ context.Context) ([]model.Order, error) {
	matched := make(map[int64]bool)
	for _, t := range m.txns {
		if t.MatchedOrderID != nil {
			matched[*t.MatchedOrderID] = true
		}
	}
	var out []model.Order
	for _, o := range m.orders {
		if !matched[o.ID] {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *MockRepository) FindCandidates(_ context.Context, name string, minSimilarity float64) ([]model.Order, error) {
	m.FindCandidatesCalled = true
	if m.FindCandidatesErr != nil {
		return nil, m.FindCandidatesErr
	}

	type scored struct {
		order model.Order
		sim   float64
	}
	var candidates []scored
	for _, o := range m.orders {
		if sim := similarity.StringSimilarity(o.Customer, name); sim >= minSimilarity {
			candidates = append(candidates, scored{o, sim})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].sim > candidates[j].sim
	})

	out := make([]model.Order, len(candidates))
	for i, c := range candidates {
		out[i] = c.order
	}
	return out, nil
}

func (m *MockRepository) InsertTransactions(_ context.Context, txns []model.Transaction) (int, error) {
	if m.InsertTransactionsErr != nil {
		return 0, m.InsertTransactionsErr
	}
	for _, t := range txns {
		t.ID = m.nextTID
		m.nextTID++
		m.txns = append(m.txns, t)
	}
	return len(txns), nil
}

func (m *MockRepository) ListTransactions(_ context.Context, page Page) ([]model.Transaction, int, error) {
	page = page.normalize()
	total := len(m.txns)
	start := page.Offset
	if start > total {
		start = total
	}
	end := start + page.Limit
	if end > total {
		end = total
	}
	return append([]model.Transaction(nil), m.txns[start:end]...), total, nil
}

func (m *MockRepository) AllTransactions(_ context.Context) ([]model.Transaction, error) {
	if m.AllTransactionsErr != nil {
		return nil, m.AllTransactionsErr
	}
	return append([]model.Transaction(nil), m.txns...), nil
}

func (m *MockRepository) UnmatchedTransactions(_ context.Context) ([]model.Transaction, error) {
	var out []model.Transaction
	for _, t := range m.txns {
		if t.MatchedOrderID == nil {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *MockRepository) ApplyMatches(_ context.Context, assignments []MatchAssignment) error {
	m.ApplyMatchesCalled = true
	m.LastAssignments = assignments
	if m.ApplyMatchesErr != nil {
		return m.ApplyMatchesErr
	}
	for _, a := range assignments {
		for i := range m.txns {
			if m.txns[i].ID == a.TransactionID {
				id := a.OrderID
				m.txns[i].MatchedOrderID = &id
			}
		}
	}
	return nil
}

func (m *MockRepository) ResetMatches(_ context.Context) error {
	m.ResetMatchesCalled = true
	for i := range m.txns {
		m.txns[i].MatchedOrderID = nil
	}
	return nil
}

func (m *MockRepository) MatchedGroups(_ context.Context) ([]model.MatchedGroup, error) {
	byOrder := make(map[int64]*model.MatchedGroup)
	var orderIDs []int64

	for _, t := range m.txns {
		if t.MatchedOrderID == nil {
			continue
		}
		oid := *t.MatchedOrderID
		group, ok := byOrder[oid]
		if !ok {
			for _, o := range m.orders {
				if o.ID == oid {
					group = &model.MatchedGroup{Order: o}
					byOrder[oid] = group
					orderIDs = append(orderIDs, oid)
					break
				}
			}
			if group == nil {
				continue
			}
		}
		group.Transactions = append(group.Transactions, t)
	}

	sort.Slice(orderIDs, func(i, j int) bool { return orderIDs[i] < orderIDs[j] })

	out := make([]model.MatchedGroup, 0, len(orderIDs))
	for _, oid := range orderIDs {
		out = append(out, *byOrder[oid])
	}
	return out, nil
}

func (m *MockRepository) SaveMatchRun(_ context.Context, run *MatchRun) error {
	m.SaveMatchRunCalled = true
	m.LastSavedRun = run
	if m.SaveMatchRunErr != nil {
		return m.SaveMatchRunErr
	}
	if _, exists := m.runs[run.ID]; !exists {
		m.runIDs = append(m.runIDs, run.ID)
	}
	m.runs[run.ID] = *run
	return nil
}

func (m *MockRepository) ListMatchRuns(_ context.Context, limit int) ([]MatchRun, error) {
	if limit <= 0 {
		limit = 20
	}
	out := make([]MatchRun, 0, limit)
	// Newest first
	for i := len(m.runIDs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.runs[m.runIDs[i]])
	}
	return out, nil
}

func (m *MockRepository) GetMatchRun(_ context.Context, id string) (*MatchRun, error) {
	run, ok := m.runs[id]
	if !ok {
		return nil, nil
	}
	return &run, nil
}
