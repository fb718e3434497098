package reconciliation

import (
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/shopspring/decimal"

	"github.com/marchbank/estate-reconciler/internal/domain"
)

// ErrNotFound reports an override naming a record or transaction that does
// not exist. The override is rejected without any mutation.
var ErrNotFound = errors.New("not found")

// ForceMatch asserts that a bank transaction settles a revenue record,
// bypassing the matcher and classifier. Both sides are loaded first so a
// bad id rejects cleanly; the revenue record becomes FORCE_MATCHED (sticky
// against later automatic runs) and the transaction is linked back to it.
func (s *Service) ForceMatch(
	sourceType domain.SourceType,
	sourceID, bankTxnID, notes string,
) (*domain.Result, error) {
	rec, err := s.revenueRepo.Get(sourceType, sourceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s record %s", ErrNotFound, sourceType, sourceID)
		}
		return nil, fmt.Errorf("load revenue record: %w", err)
	}

	txn, err := s.bankRepo.GetByID(bankTxnID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: bank transaction %s", ErrNotFound, bankTxnID)
		}
		return nil, fmt.Errorf("load bank transaction: %w", err)
	}

	variance := txn.Amount.Sub(rec.Amount).Abs()
	variancePercent := decimal.Zero
	if !rec.Amount.IsZero() {
		variancePercent = variance.Div(rec.Amount)
	}
	now := s.now().UTC()

	if err := s.revenueRepo.ForceMatch(sourceType, sourceID, txn.Amount, variance); err != nil {
		return nil, fmt.Errorf("force match revenue record: %w", err)
	}
	if err := s.bankRepo.MarkForceMatched(txn.ID, sourceType, sourceID, now); err != nil {
		return nil, fmt.Errorf("force match bank transaction: %w", err)
	}

	note := "force-matched by operator"
	if notes != "" {
		note += ": " + notes
	}

	log.Printf("[reconciliation] Force-matched %s %s -> %s (variance %s)",
		sourceType, sourceID, txn.ID, variance.StringFixed(2))

	return &domain.Result{
		SourceType:        sourceType,
		SourceID:          sourceID,
		BankTransactionID: txn.ID,
		Date:              rec.Date,
		BankAmount:        txn.Amount,
		SourceAmount:      rec.Amount,
		Variance:          variance,
		VariancePercent:   variancePercent,
		Status:            domain.StatusForceMatched,
		Note:              note,
	}, nil
}
