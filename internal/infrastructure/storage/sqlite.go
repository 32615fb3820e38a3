package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/settleline/reconcile-backend/internal/domain/model"
	"github.com/settleline/reconcile-backend/internal/domain/similarity"
)

// Storage provides SQLite database access for orders, transactions, and
// match runs. It implements the Repository interface.
type Storage struct {
	db *sql.DB
}

// Compile-time check that Storage implements Repository
var _ Repository = (*Storage)(nil)

// NewStorage creates a new storage instance with SQLite database
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign key constraints (SQLite-specific)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Storage{db: db}

	// Run all pending migrations
	if err := s.runMigrations(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// InsertOrders bulk-inserts orders in a single transaction.
func (s *Storage) InsertOrders(ctx context.Context, orders []model.Order) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO orders (customer, external_id, order_date, item, price_cents)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	defer func() { _ = stmt.Close() }()

	inserted := 0
	for _, o := range orders {
		if _, err := stmt.ExecContext(ctx, o.Customer, o.ExternalID, o.Date.Format(dateLayout), o.Item, o.PriceCents); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("insert order for %q: %w", o.Customer, err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}

// ListOrders returns one page of orders plus the total count.
func (s *Storage) ListOrders(ctx context.Context, page Page) ([]model.Order, int, error) {
	page = page.normalize()

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, customer, external_id, order_date, item, price_cents
		FROM orders ORDER BY id LIMIT ? OFFSET ?
	`, page.Limit, page.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = rows.Close() }()

	orders, err := scanOrders(rows)
	return orders, total, err
}

// AllOrders returns every order, ordered by ID.
func (s *Storage) AllOrders(ctx context.Context) ([]model.Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, customer, external_id, order_date, item, price_cents
		FROM orders ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return scanOrders(rows)
}

// UnmatchedOrders returns orders no transaction currently points at.
func (s *Storage) UnmatchedOrders(ctx context.Context) ([]model.Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT o.id, o.customer, o.external_id, o.order_date, o.item, o.price_cents
		FROM orders o
		LEFT JOIN transactions t ON o.id = t.matched_order_id
		WHERE t.matched_order_id IS NULL
		ORDER BY o.id
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return scanOrders(rows)
}

// FindCandidates filters orders by customer-name similarity. SQLite has
// no trigram index, so this scans and scores in Go; the Postgres driver
// pushes the same filter into the database.
func (s *Storage) FindCandidates(ctx context.Context, name string, minSimilarity float64) ([]model.Order, error) {
	orders, err := s.AllOrders(ctx)
	if err != nil {
		return nil, err
	}

	type scored struct {
		order model.Order
		sim   float64
	}

	candidates := make([]scored, 0)
	for _, o := range orders {
		if sim := similarity.StringSimilarity(o.Customer, name); sim >= minSimilarity {
			candidates = append(candidates, scored{order: o, sim: sim})
		}
	}

	// Most similar first; equal similarity keeps ID order.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].sim > candidates[j].sim
	})

	result := make([]model.Order, len(candidates))
	for i, c := range candidates {
		result[i] = c.order
	}
	return result, nil
}

// InsertTransactions bulk-inserts transactions in a single transaction.
func (s *Storage) InsertTransactions(ctx context.Context, txns []model.Transaction) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions (customer, external_id, txn_date, item, price_cents, kind, amount_cents)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	defer func() { _ = stmt.Close() }()

	inserted := 0
	for _, t := range txns {
		if _, err := stmt.ExecContext(ctx, t.Customer, t.ExternalID, t.Date.Format(dateLayout), t.Item, t.PriceCents, t.Kind, t.AmountCents); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("insert transaction for %q: %w", t.Customer, err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}

// ListTransactions returns one page of transactions plus the total count.
func (s *Storage) ListTransactions(ctx context.Context, page Page) ([]model.Transaction, int, error) {
	page = page.normalize()

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, customer, external_id, txn_date, item, price_cents, kind, amount_cents, matched_order_id
		FROM transactions ORDER BY id LIMIT ? OFFSET ?
	`, page.Limit, page.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = rows.Close() }()

	txns, err := scanTransactions(rows)
	return txns, total, err
}

// AllTransactions returns every transaction, ordered by ID.
func (s *Storage) AllTransactions(ctx context.Context) ([]model.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, customer, external_id, txn_date, item, price_cents, kind, amount_cents, matched_order_id
		FROM transactions ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return scanTransactions(rows)
}

// UnmatchedTransactions returns transactions with no committed match.
func (s *Storage) UnmatchedTransactions(ctx context.Context) ([]model.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, customer, external_id, txn_date, item, price_cents, kind, amount_cents, matched_order_id
		FROM transactions WHERE matched_order_id IS NULL ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return scanTransactions(rows)
}

// ApplyMatches writes matched_order_id and match_score back for every
// committed assignment, atomically.
func (s *Storage) ApplyMatches(ctx context.Context, assignments []MatchAssignment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		UPDATE transactions SET matched_order_id = ?, match_score = ? WHERE id = ?
	`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, a := range assignments {
		if _, err := stmt.ExecContext(ctx, a.OrderID, a.Score, a.TransactionID); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply match for transaction %d: %w", a.TransactionID, err)
		}
	}

	return tx.Commit()
}

// ResetMatches clears all committed matches.
func (s *Storage) ResetMatches(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `UPDATE transactions SET matched_order_id = NULL, match_score = NULL`)
	return err
}

// MatchedGroups reconstructs the committed groups from storage. The
// group score is the highest score among its transactions, which is the
// score of the first commitment.
func (s *Storage) MatchedGroups(ctx context.Context) ([]model.MatchedGroup, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT o.id, o.customer, o.external_id, o.order_date, o.item, o.price_cents,
		       t.id, t.customer, t.external_id, t.txn_date, t.item, t.price_cents,
		       t.kind, t.amount_cents, t.matched_order_id, t.match_score
		FROM orders o
		INNER JOIN transactions t ON o.id = t.matched_order_id
		ORDER BY o.id, t.id
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var groups []model.MatchedGroup
	byOrder := make(map[int64]int)

	for rows.Next() {
		var (
			o          model.Order
			t          model.Transaction
			orderDate  string
			txnDate    string
			matchedID  sql.NullInt64
			matchScore sql.NullFloat64
		)
		if err := rows.Scan(
			&o.ID, &o.Customer, &o.ExternalID, &orderDate, &o.Item, &o.PriceCents,
			&t.ID, &t.Customer, &t.ExternalID, &txnDate, &t.Item, &t.PriceCents,
			&t.Kind, &t.AmountCents, &matchedID, &matchScore,
		); err != nil {
			return nil, err
		}
		o.Date = parseDate(orderDate)
		t.Date = parseDate(txnDate)
		if matchedID.Valid {
			id := matchedID.Int64
			t.MatchedOrderID = &id
		}

		idx, ok := byOrder[o.ID]
		if !ok {
			groups = append(groups, model.MatchedGroup{Order: o})
			idx = len(groups) - 1
			byOrder[o.ID] = idx
		}
		groups[idx].Transactions = append(groups[idx].Transactions, t)
		if matchScore.Valid && matchScore.Float64 > groups[idx].Score {
			groups[idx].Score = matchScore.Float64
		}
	}

	return groups, rows.Err()
}

// SaveMatchRun persists a completed run record.
func (s *Storage) SaveMatchRun(ctx context.Context, run *MatchRun) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO match_runs
		(id, profile, threshold, started_at, completed_at, duration_ms,
		 orders_total, transactions_total, matched_groups, matched_transactions,
		 unmatched_orders, unmatched_transactions, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID, run.Profile, run.Threshold, run.StartedAt, run.CompletedAt, run.DurationMS,
		run.OrdersTotal, run.TransactionsTotal, run.MatchedGroups, run.MatchedTransactions,
		run.UnmatchedOrders, run.UnmatchedTransactions, run.Status,
	)
	return err
}

// ListMatchRuns returns recent runs, newest first.
func (s *Storage) ListMatchRuns(ctx context.Context, limit int) ([]MatchRun, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, profile, threshold, started_at, completed_at, duration_ms,
		       orders_total, transactions_total, matched_groups, matched_transactions,
		       unmatched_orders, unmatched_transactions, status
		FROM match_runs ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var runs []MatchRun
	for rows.Next() {
		run, err := scanMatchRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetMatchRun retrieves a run by ID. A missing run is (nil, nil), not an
// error, so callers can distinguish not-found from storage failure.
func (s *Storage) GetMatchRun(ctx context.Context, id string) (*MatchRun, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, profile, threshold, started_at, completed_at, duration_ms,
		       orders_total, transactions_total, matched_groups, matched_transactions,
		       unmatched_orders, unmatched_transactions, status
		FROM match_runs WHERE id = ?
	`, id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		return nil, rows.Err()
	}

	run, err := scanMatchRun(rows)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// scanOrders reads order rows into model types.
func scanOrders(rows *sql.Rows) ([]model.Order, error) {
	var orders []model.Order
	for rows.Next() {
		var o model.Order
		var date string
		if err := rows.Scan(&o.ID, &o.Customer, &o.ExternalID, &date, &o.Item, &o.PriceCents); err != nil {
			return nil, err
		}
		o.Date = parseDate(date)
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// scanTransactions reads transaction rows into model types.
func scanTransactions(rows *sql.Rows) ([]model.Transaction, error) {
	var txns []model.Transaction
	for rows.Next() {
		var t model.Transaction
		var date string
		var matchedID sql.NullInt64
		if err := rows.Scan(&t.ID, &t.Customer, &t.ExternalID, &date, &t.Item, &t.PriceCents, &t.Kind, &t.AmountCents, &matchedID); err != nil {
			return nil, err
		}
		t.Date = parseDate(date)
		if matchedID.Valid {
			id := matchedID.Int64
			t.MatchedOrderID = &id
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

func scanMatchRun(rows *sql.Rows) (MatchRun, error) {
	var run MatchRun
	var completedAt sql.NullString
	err := rows.Scan(
		&run.ID, &run.Profile, &run.Threshold, &run.StartedAt, &completedAt, &run.DurationMS,
		&run.OrdersTotal, &run.TransactionsTotal, &run.MatchedGroups, &run.MatchedTransactions,
		&run.UnmatchedOrders, &run.UnmatchedTransactions, &run.Status,
	)
	if completedAt.Valid {
		run.CompletedAt = completedAt.String
	}
	return run, err
}

// parseDate tolerates both the storage layout and RFC3339 timestamps.
// Unparseable values come back as the zero time, which the scorer treats
// as "no date signal".
func parseDate(value string) time.Time {
	if t, err := time.Parse(dateLayout, value); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	return time.Time{}
}
