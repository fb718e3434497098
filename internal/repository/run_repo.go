package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/marchbank/estate-reconciler/internal/domain"
)

// RunRepo persists reconciliation run summaries. History is append-only;
// there is no update path.
type RunRepo struct {
	db *sql.DB
}

func NewRunRepo(db *sql.DB) *RunRepo {
	return &RunRepo{db: db}
}

func (r *RunRepo) Insert(run *domain.Run) error {
	_, err := r.db.Exec(
		`INSERT INTO reconciliation_runs
		(id, period_start, period_end, property_id, bank_txn_count,
		 occupancy_count, pos_count, lease_count, matched_count,
		 unmatched_count, flagged_count, force_matched_count, write_failures,
		 total_bank_amount, total_source_amount, total_variance, match_rate,
		 completed_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		run.ID, run.PeriodStart.Format(time.RFC3339), run.PeriodEnd.Format(time.RFC3339),
		nullableString(run.PropertyID), run.BankTxnCount,
		run.OccupancyCount, run.PosCount, run.LeaseCount, run.MatchedCount,
		run.UnmatchedCount, run.FlaggedCount, run.ForceMatchedCount, run.WriteFailures,
		run.TotalBankAmount.String(), run.TotalSourceAmount.String(),
		run.TotalVariance.String(), run.MatchRate,
		run.CompletedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// ListRecent returns the most recently completed runs, newest first.
func (r *RunRepo) ListRecent(limit int) ([]domain.Run, error) {
	if limit <= 0 {
		limit = 5
	}

	rows, err := r.db.Query(
		"SELECT * FROM reconciliation_runs ORDER BY completed_at DESC, id LIMIT ?", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var runs []domain.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

func scanRun(rows *sql.Rows) (*domain.Run, error) {
	var run domain.Run
	var start, end, completed string
	var propertyID sql.NullString
	var bankAmount, sourceAmount, variance string

	err := rows.Scan(
		&run.ID, &start, &end, &propertyID, &run.BankTxnCount,
		&run.OccupancyCount, &run.PosCount, &run.LeaseCount, &run.MatchedCount,
		&run.UnmatchedCount, &run.FlaggedCount, &run.ForceMatchedCount, &run.WriteFailures,
		&bankAmount, &sourceAmount, &variance, &run.MatchRate, &completed,
	)
	if err != nil {
		return nil, err
	}

	run.PeriodStart, _ = time.Parse(time.RFC3339, start)
	run.PeriodEnd, _ = time.Parse(time.RFC3339, end)
	run.CompletedAt, _ = time.Parse(time.RFC3339, completed)
	if propertyID.Valid {
		run.PropertyID = propertyID.String
	}
	if run.TotalBankAmount, err = parseAmount(bankAmount); err != nil {
		return nil, fmt.Errorf("parse bank amount %q: %w", bankAmount, err)
	}
	if run.TotalSourceAmount, err = parseAmount(sourceAmount); err != nil {
		return nil, fmt.Errorf("parse source amount %q: %w", sourceAmount, err)
	}
	if run.TotalVariance, err = parseAmount(variance); err != nil {
		return nil, fmt.Errorf("parse variance %q: %w", variance, err)
	}
	return &run, nil
}
