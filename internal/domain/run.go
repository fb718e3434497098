package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Result is the per-record outcome of one reconciliation pass. It is never
// stored as its own row; it feeds the run summary and is surfaced to
// callers for transparency.
type Result struct {
	SourceType        SourceType           `json:"source_type"`
	SourceID          string               `json:"source_id"`
	BankTransactionID string               `json:"bank_transaction_id,omitempty"`
	Date              time.Time            `json:"date"`
	BankAmount        decimal.Decimal      `json:"bank_amount"`
	SourceAmount      decimal.Decimal      `json:"source_amount"`
	Variance          decimal.Decimal      `json:"variance"`
	VariancePercent   decimal.Decimal      `json:"variance_percent"`
	Status            ReconciliationStatus `json:"status"`
	Note              string               `json:"note"`
}

// Run is the persisted summary of one reconciliation pass over a period.
// Runs are append-only: re-running the same period creates a new row.
type Run struct {
	ID                string          `json:"id"`
	PeriodStart       time.Time       `json:"period_start"`
	PeriodEnd         time.Time       `json:"period_end"`
	PropertyID        string          `json:"property_id,omitempty"`
	BankTxnCount      int             `json:"bank_txn_count"`
	OccupancyCount    int             `json:"occupancy_count"`
	PosCount          int             `json:"pos_count"`
	LeaseCount        int             `json:"lease_count"`
	MatchedCount      int             `json:"matched_count"`
	UnmatchedCount    int             `json:"unmatched_count"`
	FlaggedCount      int             `json:"flagged_count"`
	ForceMatchedCount int             `json:"force_matched_count"`
	WriteFailures     int             `json:"write_failures"`
	TotalBankAmount   decimal.Decimal `json:"total_bank_amount"`
	TotalSourceAmount decimal.Decimal `json:"total_source_amount"`
	TotalVariance     decimal.Decimal `json:"total_variance"`
	MatchRate         float64         `json:"match_rate"`
	CompletedAt       time.Time       `json:"completed_at"`
}

// ClassifiedCount is the number of records the automatic pipeline classified
// this run. Force-matched records are sticky and sit outside it.
func (r Run) ClassifiedCount() int {
	return r.MatchedCount + r.UnmatchedCount + r.FlaggedCount
}
