package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category tags a bank transaction with the operational subsystem whose
// revenue it carries. The tag comes from upstream ingestion; the engine
// never derives it.
type Category string

const (
	CategoryHotel Category = "hotel"
	CategoryCafe  Category = "cafe"
	CategoryRent  Category = "rent"
	CategoryOther Category = "other"
)

// ReconciledCategories returns the categories the engine reconciles.
// CategoryOther transactions are left to manual review.
func ReconciledCategories() []Category {
	return []Category{CategoryHotel, CategoryCafe, CategoryRent}
}

type ReconciliationStatus string

const (
	StatusPending      ReconciliationStatus = "PENDING"
	StatusMatched      ReconciliationStatus = "MATCHED"
	StatusUnmatched    ReconciliationStatus = "UNMATCHED"
	StatusFlagged      ReconciliationStatus = "FLAGGED"
	StatusForceMatched ReconciliationStatus = "FORCE_MATCHED"
)

// BankTransaction is a ledger entry sourced from the bank feed. The engine
// treats it as read-only apart from the status/linkage fields, which the
// override path may set.
type BankTransaction struct {
	ID           string               `json:"id"`
	Date         time.Time            `json:"date"`
	Amount       decimal.Decimal      `json:"amount"`
	Category     Category             `json:"category"`
	Reference    string               `json:"reference,omitempty"`
	PropertyID   string               `json:"property_id,omitempty"`
	Status       ReconciliationStatus `json:"status"`
	MatchedType  SourceType           `json:"matched_type,omitempty"`
	MatchedID    string               `json:"matched_id,omitempty"`
	ReconciledAt *time.Time           `json:"reconciled_at,omitempty"`
}
