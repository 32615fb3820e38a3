package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/settleline/reconcile-backend/internal/domain/model"
	"github.com/settleline/reconcile-backend/internal/domain/similarity"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS orders (
    id BIGSERIAL PRIMARY KEY,
    customer TEXT NOT NULL,
    external_id TEXT NOT NULL,
    order_date DATE NOT NULL,
    item TEXT NOT NULL,
    price_cents BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS transactions (
    id BIGSERIAL PRIMARY KEY,
    customer TEXT NOT NULL,
    external_id TEXT NOT NULL,
    txn_date DATE NOT NULL,
    item TEXT NOT NULL,
    price_cents BIGINT NOT NULL,
    kind TEXT NOT NULL,
    amount_cents BIGINT NOT NULL,
    matched_order_id BIGINT REFERENCES orders(id),
    match_score DOUBLE PRECISION
);

CREATE TABLE IF NOT EXISTS match_runs (
    id TEXT PRIMARY KEY,
    profile TEXT NOT NULL,
    threshold DOUBLE PRECISION NOT NULL,
    started_at TEXT NOT NULL,
    completed_at TEXT,
    duration_ms BIGINT NOT NULL DEFAULT 0,
    orders_total INTEGER NOT NULL DEFAULT 0,
    transactions_total INTEGER NOT NULL DEFAULT 0,
    matched_groups INTEGER NOT NULL DEFAULT 0,
    matched_transactions INTEGER NOT NULL DEFAULT 0,
    unmatched_orders INTEGER NOT NULL DEFAULT 0,
    unmatched_transactions INTEGER NOT NULL DEFAULT 0,
    status TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transactions_matched_order ON transactions(matched_order_id);
`

// Postgres provides PostgreSQL-backed storage via pgx. When the pg_trgm
// extension is available, candidate retrieval runs inside the database;
// otherwise it falls back to the in-Go similarity scan.
type Postgres struct {
	db   *sql.DB
	trgm bool
}

var _ Repository = (*Postgres)(nil)

// NewPostgres opens a Postgres connection and ensures the schema.
func NewPostgres(ctx context.Context, uri string) (*Postgres, error) {
	db, err := sql.Open("pgx", uri)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	if _, err := db.ExecContext(ctx, pgSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	p := &Postgres{db: db}

	// pg_trgm needs superuser or extension privileges. If creating it
	// fails, candidate retrieval still works through the Go scan.
	if _, err := db.ExecContext(ctx, `CREATE EXTENSION IF NOT EXISTS pg_trgm`); err == nil {
		if _, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_orders_customer_trgm
			ON orders USING gin (customer gin_trgm_ops)`); err == nil {
			p.trgm = true
		}
	}

	return p, nil
}

// Close closes the database connection.
func (p *Postgres) Close() error {
	return p.db.Close()
}

func (p *Postgres) InsertOrders(ctx context.Context, orders []model.Order) (int, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}

	inserted := 0
	for _, o := range orders {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO orders (customer, external_id, order_date, item, price_cents)
			VALUES ($1, $2, $3, $4, $5)
		`, o.Customer, o.ExternalID, o.Date.Format(dateLayout), o.Item, o.PriceCents); err != nil {
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

func (p *Postgres) ListOrders(ctx context.Context, page Page) ([]model.Order, int, error) {
	page = page.normalize()

	var total int
	if err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT id, customer, external_id, to_char(order_date, 'YYYY-MM-DD'), item, price_cents
		FROM orders ORDER BY id LIMIT $1 OFFSET $2
	`, page.Limit, page.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = rows.Close() }()

	orders, err := scanOrders(rows)
	return orders, total, err
}

func (p *Postgres) AllOrders(ctx context.Context) ([]model.Order, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, customer, external_id, to_char(order_date, 'YYYY-MM-DD'), item, price_cents
		FROM orders ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return scanOrders(rows)
}

func (p *Postgres) UnmatchedOrders(ctx context.Context) ([]model.Order, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT o.id, o.customer, o.external_id, to_char(o.order_date, 'YYYY-MM-DD'), o.item, o.price_cents
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

// FindCandidates uses the pg_trgm similarity operator when available.
func (p *Postgres) FindCandidates(ctx context.Context, name string, minSimilarity float64) ([]model.Order, error) {
	if !p.trgm {
		return p.findCandidatesScan(ctx, name, minSimilarity)
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT id, customer, external_id, to_char(order_date, 'YYYY-MM-DD'), item, price_cents
		FROM orders
		WHERE similarity(customer, $1) >= $2
		ORDER BY similarity(customer, $1) DESC, id
	`, name, minSimilarity)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return scanOrders(rows)
}

func (p *Postgres) findCandidatesScan(ctx context.Context, name string, minSimilarity float64) ([]model.Order, error) {
	orders, err := p.AllOrders(ctx)
	if err != nil {
		return nil, err
	}

	candidates := make([]model.Order, 0)
	for _, o := range orders {
		if similarity.StringSimilarity(o.Customer, name) >= minSimilarity {
			candidates = append(candidates, o)
		}
	}
	return candidates, nil
}

func (p *Postgres) InsertTransactions(ctx context.Context, txns []model.Transaction) (int, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}

	inserted := 0
	for _, t := range txns {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO transactions (customer, external_id, txn_date, item, price_cents, kind, amount_cents)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, t.Customer, t.ExternalID, t.Date.Format(dateLayout), t.Item, t.PriceCents, t.Kind, t.AmountCents); err != nil {
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

func (p *Postgres) ListTransactions(ctx context.Context, page Page) ([]model.Transaction, int, error) {
	page = page.normalize()

	var total int
	if err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT id, customer, external_id, to_char(txn_date, 'YYYY-MM-DD'), item, price_cents, kind, amount_cents, matched_order_id
		FROM transactions ORDER BY id LIMIT $1 OFFSET $2
	`, page.Limit, page.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = rows.Close() }()

	txns, err := scanTransactions(rows)
	return txns, total, err
}

func (p *Postgres) AllTransactions(ctx context.Context) ([]model.Transaction, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, customer, external_id, to_char(txn_date, 'YYYY-MM-DD'), item, price_cents, kind, amount_cents, matched_order_id
		FROM transactions ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return scanTransactions(rows)
}

func (p *Postgres) UnmatchedTransactions(ctx context.Context) ([]model.Transaction, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, customer, external_id, to_char(txn_date, 'YYYY-MM-DD'), item, price_cents, kind, amount_cents, matched_order_id
		FROM transactions WHERE matched_order_id IS NULL ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return scanTransactions(rows)
}

func (p *Postgres) ApplyMatches(ctx context.Context, assignments []MatchAssignment) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	for _, a := range assignments {
		if _, err := tx.ExecContext(ctx, `
			UPDATE transactions SET matched_order_id = $1, match_score = $2 WHERE id = $3
		`, a.OrderID, a.Score, a.TransactionID); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply match for transaction %d: %w", a.TransactionID, err)
		}
	}

	return tx.Commit()
}

func (p *Postgres) ResetMatches(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `UPDATE transactions SET matched_order_id = NULL, match_score = NULL`)
	return err
}

func (p *Postgres) MatchedGroups(ctx context.Context) ([]model.MatchedGroup, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT o.id, o.customer, o.external_id, to_char(o.order_date, 'YYYY-MM-DD'), o.item, o.price_cents,
		       t.id, t.customer, t.external_id, to_char(t.txn_date, 'YYYY-MM-DD'), t.item, t.price_cents,
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

func (p *Postgres) SaveMatchRun(ctx context.Context, run *MatchRun) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO match_runs
		(id, profile, threshold, started_at, completed_at, duration_ms,
		 orders_total, transactions_total, matched_groups, matched_transactions,
		 unmatched_orders, unmatched_transactions, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			completed_at = EXCLUDED.completed_at,
			duration_ms = EXCLUDED.duration_ms,
			status = EXCLUDED.status
	`,
		run.ID, run.Profile, run.Threshold, run.StartedAt, run.CompletedAt, run.DurationMS,
		run.OrdersTotal, run.TransactionsTotal, run.MatchedGroups, run.MatchedTransactions,
		run.UnmatchedOrders, run.UnmatchedTransactions, run.Status,
	)
	return err
}

func (p *Postgres) ListMatchRuns(ctx context.Context, limit int) ([]MatchRun, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT id, profile, threshold, started_at, completed_at, duration_ms,
		       orders_total, transactions_total, matched_groups, matched_transactions,
		       unmatched_orders, unmatched_transactions, status
		FROM match_runs ORDER BY started_at DESC LIMIT $1
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

func (p *Postgres) GetMatchRun(ctx context.Context, id string) (*MatchRun, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, profile, threshold, started_at, completed_at, duration_ms,
		       orders_total, transactions_total, matched_groups, matched_transactions,
		       unmatched_orders, unmatched_transactions, status
		FROM match_runs WHERE id = $1
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
