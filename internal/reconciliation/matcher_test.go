package reconciliation

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marchbank/estate-reconciler/internal/domain"
)

var rentTol = decimal.RequireFromString("1.00")

func day(d int) time.Time {
	return time.Date(2024, 6, d, 0, 0, 0, 0, time.UTC)
}

func txn(id string, d int, amount string, cat domain.Category) domain.BankTransaction {
	return domain.BankTransaction{
		ID:       id,
		Date:     day(d),
		Amount:   dec(amount),
		Category: cat,
		Status:   domain.StatusPending,
	}
}

func occRecord(d int, amount string) domain.RevenueRecord {
	return domain.RevenueRecord{
		Type:   domain.SourceOccupancy,
		ID:     "OCC-1",
		Date:   day(d),
		Amount: dec(amount),
	}
}

func TestFindMatchSameDayAndCategory(t *testing.T) {
	txns := []domain.BankTransaction{
		txn("BTX-1", 1, "3450.00", domain.CategoryCafe),  // wrong category
		txn("BTX-2", 2, "3450.00", domain.CategoryHotel), // wrong day
		txn("BTX-3", 1, "3450.00", domain.CategoryHotel),
	}

	got := findMatch(occRecord(1, "3450.00"), txns, map[string]bool{}, rentTol)
	require.NotNil(t, got)
	assert.Equal(t, "BTX-3", got.ID)
}

func TestFindMatchNoCandidate(t *testing.T) {
	txns := []domain.BankTransaction{
		txn("BTX-1", 2, "2890.00", domain.CategoryHotel),
	}
	assert.Nil(t, findMatch(occRecord(3, "2890.00"), txns, map[string]bool{}, rentTol))
}

// Smallest absolute variance wins; ties break on lowest transaction ID.
func TestFindMatchTieBreak(t *testing.T) {
	txns := []domain.BankTransaction{
		txn("BTX-1", 1, "1100.00", domain.CategoryHotel),
		txn("BTX-2", 1, "1010.00", domain.CategoryHotel),
		txn("BTX-3", 1, "1005.00", domain.CategoryHotel),
	}
	got := findMatch(occRecord(1, "1000.00"), txns, map[string]bool{}, rentTol)
	require.NotNil(t, got)
	assert.Equal(t, "BTX-3", got.ID)

	// Equal variance either side of the amount: lowest ID.
	txns = []domain.BankTransaction{
		txn("BTX-9", 1, "1005.00", domain.CategoryHotel),
		txn("BTX-2", 1, "995.00", domain.CategoryHotel),
	}
	got = findMatch(occRecord(1, "1000.00"), txns, map[string]bool{}, rentTol)
	require.NotNil(t, got)
	assert.Equal(t, "BTX-2", got.ID)
}

func TestFindMatchSkipsUsedTransactions(t *testing.T) {
	txns := []domain.BankTransaction{
		txn("BTX-1", 1, "1000.00", domain.CategoryHotel),
		txn("BTX-2", 1, "1000.00", domain.CategoryHotel),
	}
	used := map[string]bool{"BTX-1": true}

	got := findMatch(occRecord(1, "1000.00"), txns, used, rentTol)
	require.NotNil(t, got)
	assert.Equal(t, "BTX-2", got.ID)
}

func TestFindMatchSkipsForceMatchedTransactions(t *testing.T) {
	claimed := txn("BTX-1", 1, "1000.00", domain.CategoryHotel)
	claimed.Status = domain.StatusForceMatched
	txns := []domain.BankTransaction{claimed}

	assert.Nil(t, findMatch(occRecord(1, "1000.00"), txns, map[string]bool{}, rentTol))
}

// Rent matching requires the amounts to differ by less than the absolute
// tolerance; a same-day rent deposit for a different tenant's amount is
// not a candidate at all.
func TestFindMatchRentTolerance(t *testing.T) {
	rec := domain.RevenueRecord{
		Type:   domain.SourceLease,
		ID:     "LP-1",
		Date:   day(2),
		Amount: dec("1500.00"),
	}
	txns := []domain.BankTransaction{
		txn("BTX-1", 2, "1525.00", domain.CategoryRent), // another tenant
		txn("BTX-2", 2, "1500.00", domain.CategoryRent),
	}

	got := findMatch(rec, txns, map[string]bool{}, rentTol)
	require.NotNil(t, got)
	assert.Equal(t, "BTX-2", got.ID)

	// With only the off-amount deposit available, rent refuses to match.
	got = findMatch(rec, txns[:1], map[string]bool{}, rentTol)
	assert.Nil(t, got)

	// Exactly at the tolerance boundary is excluded (strictly less than).
	boundary := []domain.BankTransaction{
		txn("BTX-3", 2, "1501.00", domain.CategoryRent),
	}
	assert.Nil(t, findMatch(rec, boundary, map[string]bool{}, rentTol))
}

func TestSameDayIgnoresTimeOfDay(t *testing.T) {
	a := time.Date(2024, 6, 1, 23, 45, 0, 0, time.UTC)
	b := time.Date(2024, 6, 1, 0, 10, 0, 0, time.UTC)
	assert.True(t, sameDay(a, b))
	assert.False(t, sameDay(a, b.AddDate(0, 0, 1)))
}
