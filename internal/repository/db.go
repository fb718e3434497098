package repository

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// InitDB opens (or creates) a SQLite database at the given path and ensures
// all required tables exist. Pass ":memory:" for an in-memory database.
//
// Money columns are TEXT holding canonical decimal strings; amounts never
// pass through floating point on the way in or out.
func InitDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// One connection: SQLite serialises writers anyway, and pooling would
	// give each connection its own database under :memory:.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return db, nil
}

func createTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS bank_transactions (
			id TEXT PRIMARY KEY,
			txn_date DATETIME NOT NULL,
			amount TEXT NOT NULL,
			category TEXT NOT NULL,
			reference TEXT NOT NULL DEFAULT '',
			property_id TEXT,
			reconciliation_status TEXT NOT NULL DEFAULT 'PENDING',
			matched_type TEXT,
			matched_id TEXT,
			reconciled_at DATETIME
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bank_transactions_date ON bank_transactions(txn_date)`,
		`CREATE INDEX IF NOT EXISTS idx_bank_transactions_category ON bank_transactions(category)`,
		`CREATE INDEX IF NOT EXISTS idx_bank_transactions_status ON bank_transactions(reconciliation_status)`,

		`CREATE TABLE IF NOT EXISTS occupancy_metrics (
			id TEXT PRIMARY KEY,
			metric_date DATETIME NOT NULL,
			property_id TEXT NOT NULL,
			total_revenue TEXT NOT NULL,
			rooms_available INTEGER NOT NULL DEFAULT 0,
			reconciliation_status TEXT NOT NULL DEFAULT 'PENDING',
			matched_amount TEXT NOT NULL DEFAULT '0',
			variance TEXT NOT NULL DEFAULT '0'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_occupancy_metrics_date ON occupancy_metrics(metric_date)`,
		`CREATE INDEX IF NOT EXISTS idx_occupancy_metrics_property ON occupancy_metrics(property_id)`,
		`CREATE INDEX IF NOT EXISTS idx_occupancy_metrics_status ON occupancy_metrics(reconciliation_status)`,

		`CREATE TABLE IF NOT EXISTS pos_sales (
			id TEXT PRIMARY KEY,
			sale_date DATETIME NOT NULL,
			property_id TEXT NOT NULL,
			gross_sales TEXT NOT NULL,
			reconciliation_status TEXT NOT NULL DEFAULT 'PENDING',
			matched_amount TEXT NOT NULL DEFAULT '0',
			variance TEXT NOT NULL DEFAULT '0'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pos_sales_date ON pos_sales(sale_date)`,
		`CREATE INDEX IF NOT EXISTS idx_pos_sales_property ON pos_sales(property_id)`,
		`CREATE INDEX IF NOT EXISTS idx_pos_sales_status ON pos_sales(reconciliation_status)`,

		`CREATE TABLE IF NOT EXISTS lease_payments (
			id TEXT PRIMARY KEY,
			lease_id TEXT NOT NULL,
			unit_id TEXT NOT NULL,
			property_id TEXT NOT NULL,
			amount TEXT NOT NULL,
			payment_status TEXT NOT NULL,
			paid_date DATETIME,
			reconciliation_status TEXT NOT NULL DEFAULT 'PENDING',
			matched_amount TEXT NOT NULL DEFAULT '0',
			variance TEXT NOT NULL DEFAULT '0'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_lease_payments_paid_date ON lease_payments(paid_date)`,
		`CREATE INDEX IF NOT EXISTS idx_lease_payments_property ON lease_payments(property_id)`,
		`CREATE INDEX IF NOT EXISTS idx_lease_payments_status ON lease_payments(reconciliation_status)`,

		`CREATE TABLE IF NOT EXISTS reconciliation_runs (
			id TEXT PRIMARY KEY,
			period_start DATETIME NOT NULL,
			period_end DATETIME NOT NULL,
			property_id TEXT,
			bank_txn_count INTEGER NOT NULL,
			occupancy_count INTEGER NOT NULL,
			pos_count INTEGER NOT NULL,
			lease_count INTEGER NOT NULL,
			matched_count INTEGER NOT NULL,
			unmatched_count INTEGER NOT NULL,
			flagged_count INTEGER NOT NULL,
			force_matched_count INTEGER NOT NULL,
			write_failures INTEGER NOT NULL,
			total_bank_amount TEXT NOT NULL,
			total_source_amount TEXT NOT NULL,
			total_variance TEXT NOT NULL,
			match_rate REAL NOT NULL,
			completed_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reconciliation_runs_completed ON reconciliation_runs(completed_at)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:60], err)
		}
	}

	return nil
}
