// Generates testdata/fixtures.json: one month of bank transactions and
// revenue records with a deterministic mix of clean matches, small
// variances, material discrepancies and missing deposits.
package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"github.com/marchbank/estate-reconciler/internal/domain"
)

const (
	hotelProperty       = "PROP-HARBOUR"
	residentialProperty = "PROP-ORCHARD"
)

func main() {
	rng := rand.New(rand.NewSource(42))
	baseDir := findTestdataDir()

	// One month of activity: 2024-06-01 to 2024-06-28.
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	days := 28

	var fixtures struct {
		BankTransactions []domain.BankTransaction `json:"bank_transactions"`
		OccupancyMetrics []domain.OccupancyMetric `json:"occupancy_metrics"`
		PosSales         []domain.PosSale         `json:"pos_sales"`
		LeasePayments    []domain.LeasePayment    `json:"lease_payments"`
	}

	pence := func(min, max int) decimal.Decimal {
		return decimal.New(int64(min+rng.Intn(max-min+1)), -2)
	}

	txnSeq := 0
	addTxn := func(date time.Time, amount decimal.Decimal, category domain.Category, ref string) {
		txnSeq++
		fixtures.BankTransactions = append(fixtures.BankTransactions, domain.BankTransaction{
			ID:        fmt.Sprintf("BTX-%04d", txnSeq),
			Date:      date,
			Amount:    amount,
			Category:  category,
			Reference: ref,
			Status:    domain.StatusPending,
		})
	}

	for d := 0; d < days; d++ {
		date := start.AddDate(0, 0, d)

		// Hotel occupancy: daily revenue between 2000.00 and 4000.00.
		revenue := pence(200000, 400000)
		fixtures.OccupancyMetrics = append(fixtures.OccupancyMetrics, domain.OccupancyMetric{
			ID:             fmt.Sprintf("OCC-%s", date.Format("20060102")),
			Date:           date,
			PropertyID:     hotelProperty,
			TotalRevenue:   revenue,
			RoomsAvailable: 42,
			Status:         domain.StatusPending,
			MatchedAmount:  decimal.Zero,
			Variance:       decimal.Zero,
		})

		// Café takings: between 600.00 and 1200.00.
		sales := pence(60000, 120000)
		fixtures.PosSales = append(fixtures.PosSales, domain.PosSale{
			ID:            fmt.Sprintf("POS-%s", date.Format("20060102")),
			Date:          date,
			PropertyID:    hotelProperty,
			GrossSales:    sales,
			Status:        domain.StatusPending,
			MatchedAmount: decimal.Zero,
			Variance:      decimal.Zero,
		})

		// Deposits: most days land exactly, some drift, some never arrive.
		for _, rec := range []struct {
			amount   decimal.Decimal
			category domain.Category
			ref      string
		}{
			{revenue, domain.CategoryHotel, "PMS daily settlement"},
			{sales, domain.CategoryCafe, "POS card batch"},
		} {
			switch roll := rng.Intn(100); {
			case roll < 10:
				// Missing deposit: no transaction for this day.
			case roll < 20:
				// Card fees shaved off: a material shortfall past the flag
				// threshold (6-9%).
				shave := decimal.New(int64(6+rng.Intn(4)), -2)
				amt := rec.amount.Sub(rec.amount.Mul(shave)).Round(2)
				addTxn(date, amt, rec.category, rec.ref+" (net of fees)")
			case roll < 35:
				// Rounding drift inside the match tolerance.
				drift := decimal.New(int64(rng.Intn(99)-49), -2)
				addTxn(date, rec.amount.Add(drift), rec.category, rec.ref)
			default:
				addTxn(date, rec.amount, rec.category, rec.ref)
			}
		}
	}

	// Residential rents: eight units, paid in the first week. Several
	// tenants pay on the same day, so amounts must discriminate.
	for unit := 1; unit <= 8; unit++ {
		amount := decimal.New(int64(95000+unit*2500), -2)
		paidDate := start.AddDate(0, 0, rng.Intn(6))
		payment := domain.LeasePayment{
			ID:            fmt.Sprintf("LP-2024-06-U%02d", unit),
			LeaseID:       fmt.Sprintf("LEASE-%03d", unit),
			UnitID:        fmt.Sprintf("UNIT-%02d", unit),
			PropertyID:    residentialProperty,
			Amount:        amount,
			PaymentStatus: domain.LeasePaymentPaid,
			PaidDate:      &paidDate,
			Status:        domain.StatusPending,
			MatchedAmount: decimal.Zero,
			Variance:      decimal.Zero,
		}
		fixtures.LeasePayments = append(fixtures.LeasePayments, payment)

		// One tenant's standing order never shows up.
		if unit != 5 {
			addTxn(paidDate, amount, domain.CategoryRent,
				fmt.Sprintf("SO RENT %s", payment.UnitID))
		}
	}

	// One unpaid payment: must never enter a run.
	fixtures.LeasePayments = append(fixtures.LeasePayments, domain.LeasePayment{
		ID:            "LP-2024-06-U09",
		LeaseID:       "LEASE-009",
		UnitID:        "UNIT-09",
		PropertyID:    residentialProperty,
		Amount:        decimal.New(117500, -2),
		PaymentStatus: domain.LeasePaymentDue,
		Status:        domain.StatusPending,
		MatchedAmount: decimal.Zero,
		Variance:      decimal.Zero,
	})

	out := filepath.Join(baseDir, "fixtures.json")
	data, err := json.MarshalIndent(fixtures, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal fixtures: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write %s: %v\n", out, err)
		os.Exit(1)
	}

	fmt.Printf("Wrote %s: %d bank transactions, %d occupancy metrics, %d pos sales, %d lease payments\n",
		out, len(fixtures.BankTransactions), len(fixtures.OccupancyMetrics),
		len(fixtures.PosSales), len(fixtures.LeasePayments))
}

func findTestdataDir() string {
	for _, dir := range []string{"testdata", filepath.Join("..", "..", "testdata"), "."} {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
	}
	return "."
}
