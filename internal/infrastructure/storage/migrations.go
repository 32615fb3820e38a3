package storage

import (
	"database/sql"
	"fmt"
	"log"
)

// Migration represents a database schema migration
type Migration struct {
	Version int
	Name    string
	Up      func(*sql.Tx) error
}

// allMigrations defines all migrations in order
var allMigrations = []Migration{
	{
		Version: 1,
		Name:    "initial_schema",
		Up:      migration001InitialSchema,
	},
	{
		Version: 2,
		Name:    "add_match_runs_table",
		Up:      migration002AddMatchRunsTable,
	},
}

// runMigrations executes all pending migrations
func (s *Storage) runMigrations() error {
	// Ensure migrations table exists
	if err := s.ensureMigrationsTable(); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	// Get applied migrations
	applied, err := s.getAppliedMigrations()
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	// Run pending migrations
	for _, migration := range allMigrations {
		if applied[migration.Version] {
			continue // Already applied
		}

		log.Printf("Running migration %d: %s", migration.Version, migration.Name)

		// Run migration in transaction
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", migration.Version, err)
		}

		// Execute migration
		if err := migration.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", migration.Version, migration.Name, err)
		}

		// Record migration
		_, err = tx.Exec(`
			INSERT INTO schema_migrations (version, name) VALUES (?, ?)
		`, migration.Version, migration.Name)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		// Commit
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

// ensureMigrationsTable creates the schema_migrations table
func (s *Storage) ensureMigrationsTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	_, err := s.db.Exec(query)
	return err
}

// getAppliedMigrations returns a set of applied migration versions
func (s *Storage) getAppliedMigrations() (map[int]bool, error) {
	applied := make(map[int]bool)

	rows, err := s.db.Query(`SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}

	return applied, rows.Err()
}

// migration001InitialSchema creates the orders and transactions tables
func migration001InitialSchema(tx *sql.Tx) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS orders (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			customer TEXT NOT NULL,
			external_id TEXT NOT NULL,
			order_date TEXT NOT NULL,
			item TEXT NOT NULL,
			price_cents INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			customer TEXT NOT NULL,
			external_id TEXT NOT NULL,
			txn_date TEXT NOT NULL,
			item TEXT NOT NULL,
			price_cents INTEGER NOT NULL,
			kind TEXT NOT NULL,
			amount_cents INTEGER NOT NULL,
			matched_order_id INTEGER REFERENCES orders(id),
			match_score REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_matched_order
			ON transactions(matched_order_id)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_customer ON orders(customer)`,
	}

	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return err
		}
	}
	return nil
}

// migration002AddMatchRunsTable adds matching run history
func migration002AddMatchRunsTable(tx *sql.Tx) error {
	query := `
	CREATE TABLE IF NOT EXISTS match_runs (
		id TEXT PRIMARY KEY,
		profile TEXT NOT NULL,
		threshold REAL NOT NULL,
		started_at TEXT NOT NULL,
		completed_at TEXT,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		orders_total INTEGER NOT NULL DEFAULT 0,
		transactions_total INTEGER NOT NULL DEFAULT 0,
		matched_groups INTEGER NOT NULL DEFAULT 0,
		matched_transactions INTEGER NOT NULL DEFAULT 0,
		unmatched_orders INTEGER NOT NULL DEFAULT 0,
		unmatched_transactions INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL
	)`

	_, err := tx.Exec(query)
	return err
}
