package reconciliation

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/marchbank/estate-reconciler/internal/domain"
)

// findMatch selects the bank transaction that settles a revenue record:
// same calendar day, category matching the record's source type, and not
// already claimed — whether by an earlier record of this run or by a
// standing operator override. Rent additionally
// requires the amounts to differ by less than rentTolerance, because many
// tenants pay on the same day and a day-level match alone is ambiguous.
//
// When several candidates remain, the smallest absolute variance wins; ties
// break on the lowest transaction ID. Returns nil when nothing qualifies.
func findMatch(
	rec domain.RevenueRecord,
	txns []domain.BankTransaction,
	used map[string]bool,
	rentTolerance decimal.Decimal,
) *domain.BankTransaction {
	category := rec.Type.Category()

	var best *domain.BankTransaction
	var bestVariance decimal.Decimal

	for i := range txns {
		t := &txns[i]
		if used[t.ID] || t.Status == domain.StatusForceMatched {
			continue
		}
		if t.Category != category || !sameDay(t.Date, rec.Date) {
			continue
		}

		variance := t.Amount.Sub(rec.Amount).Abs()
		if rec.Type == domain.SourceLease && !variance.LessThan(rentTolerance) {
			continue
		}

		if best == nil ||
			variance.LessThan(bestVariance) ||
			(variance.Equal(bestVariance) && t.ID < best.ID) {
			best = t
			bestVariance = variance
		}
	}

	return best
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
