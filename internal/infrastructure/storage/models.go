package storage

// MatchAssignment is one committed (transaction, order) pairing to be
// written back after a matching run.
type MatchAssignment struct {
	TransactionID int64
	OrderID       int64
	Score         float64
}

// MatchRun records one completed matching run for history and audit.
type MatchRun struct {
	ID                    string  `json:"id"`
	Profile               string  `json:"profile"`
	Threshold             float64 `json:"threshold"`
	StartedAt             string  `json:"started_at"`
	CompletedAt           string  `json:"completed_at,omitempty"`
	DurationMS            int64   `json:"duration_ms"`
	OrdersTotal           int     `json:"orders_total"`
	TransactionsTotal     int     `json:"transactions_total"`
	MatchedGroups         int     `json:"matched_groups"`
	MatchedTransactions   int     `json:"matched_transactions"`
	UnmatchedOrders       int     `json:"unmatched_orders"`
	UnmatchedTransactions int     `json:"unmatched_transactions"`
	Status                string  `json:"status"`
}

// Page defines pagination for list queries.
type Page struct {
	Limit  int
	Offset int
}

// normalize applies the default page size and clamps the offset.
func (p Page) normalize() Page {
	if p.Limit <= 0 {
		p.Limit = 50
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// dateLayout is the storage format for order and transaction dates.
const dateLayout = "2006-01-02"
