package reconciliation

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/marchbank/estate-reconciler/internal/domain"
	"github.com/marchbank/estate-reconciler/internal/repository"
)

// ErrRunNotLogged reports that every per-record write may have succeeded but
// the run summary itself could not be persisted. Callers must treat this as
// a distinct state: records are updated, the audit trail is not.
var ErrRunNotLogged = errors.New("reconciliation run not logged")

// Summary is the caller-facing outcome of one reconciliation pass.
type Summary struct {
	Run       domain.Run      `json:"run"`
	Results   []domain.Result `json:"results"`
	RunLogged bool            `json:"run_logged"`
}

// Service runs revenue reconciliation against the record store.
type Service struct {
	bankRepo    *repository.BankTransactionRepo
	revenueRepo *repository.RevenueRepo
	runRepo     *repository.RunRepo

	rentTolerance decimal.Decimal
	locks         *runLock
	now           func() time.Time
}

// NewService creates a new reconciliation service.
func NewService(
	bankRepo *repository.BankTransactionRepo,
	revenueRepo *repository.RevenueRepo,
	runRepo *repository.RunRepo,
) *Service {
	return &Service{
		bankRepo:      bankRepo,
		revenueRepo:   revenueRepo,
		runRepo:       runRepo,
		rentTolerance: rentMatchTolerance(),
		locks:         newRunLock(),
		now:           time.Now,
	}
}

// rentMatchTolerance returns the absolute amount tolerance for rent matching
// from the RENT_MATCH_TOLERANCE environment variable, defaulting to 1.00.
func rentMatchTolerance() decimal.Decimal {
	if v := os.Getenv("RENT_MATCH_TOLERANCE"); v != "" {
		if d, err := decimal.NewFromString(v); err == nil && d.IsPositive() {
			return d
		}
	}
	return decimal.RequireFromString("1.00")
}

// Run reconciles all revenue records in the inclusive period against bank
// transactions. An empty propertyID covers the whole portfolio. Runs over
// the same property key are serialised; each invocation appends one run to
// the history regardless of how often the period has been reconciled before.
func (s *Service) Run(periodStart, periodEnd time.Time, propertyID string) (*Summary, error) {
	if periodEnd.Before(periodStart) {
		return nil, fmt.Errorf("period end %s before start %s",
			periodEnd.Format("2006-01-02"), periodStart.Format("2006-01-02"))
	}

	s.locks.acquire(propertyID)
	defer s.locks.release(propertyID)

	// Collect all four record sets up front. Any read failure aborts the run
	// before a single write; empty sets are valid input.
	bankTxns, err := s.bankRepo.ListForPeriod(periodStart, periodEnd, domain.ReconciledCategories(), propertyID)
	if err != nil {
		return nil, fmt.Errorf("collect bank transactions: %w", err)
	}
	metrics, err := s.revenueRepo.ListOccupancy(periodStart, periodEnd, propertyID)
	if err != nil {
		return nil, fmt.Errorf("collect occupancy metrics: %w", err)
	}
	sales, err := s.revenueRepo.ListPosSales(periodStart, periodEnd, propertyID)
	if err != nil {
		return nil, fmt.Errorf("collect pos sales: %w", err)
	}
	payments, err := s.revenueRepo.ListLeasePayments(periodStart, periodEnd, propertyID)
	if err != nil {
		return nil, fmt.Errorf("collect lease payments: %w", err)
	}

	used := make(map[string]bool)
	var results []domain.Result
	totalSource := decimal.Zero
	totalVariance := decimal.Zero
	var matched, unmatched, flagged, forceMatched, failures int

	process := func(rec domain.RevenueRecord) {
		totalSource = totalSource.Add(rec.Amount)

		// Force-matched records are terminal: a human asserted the match and
		// no automatic pass may overwrite it.
		if rec.Status == domain.StatusForceMatched {
			forceMatched++
			results = append(results, domain.Result{
				SourceType:   rec.Type,
				SourceID:     rec.ID,
				Date:         rec.Date,
				SourceAmount: rec.Amount,
				Status:       domain.StatusForceMatched,
				Note:         "force-matched by operator, left untouched",
			})
			return
		}

		bankAmount := decimal.Zero
		var bankTxnID string
		if t := findMatch(rec, bankTxns, used, s.rentTolerance); t != nil {
			bankAmount = t.Amount
			bankTxnID = t.ID
			used[t.ID] = true
		}

		c := classify(bankAmount, rec.Amount)
		switch c.Status {
		case domain.StatusMatched:
			matched++
		case domain.StatusUnmatched:
			unmatched++
		case domain.StatusFlagged:
			flagged++
		}
		totalVariance = totalVariance.Add(c.Variance)

		updated, err := s.revenueRepo.UpdateReconciliation(rec.Type, rec.ID, c.Status, bankAmount, c.Variance)
		if err != nil {
			log.Printf("[reconciliation] WARNING: write-back failed for %s %s: %v", rec.Type, rec.ID, err)
			failures++
		} else if !updated {
			log.Printf("[reconciliation] %s %s was force-matched concurrently, computed status discarded",
				rec.Type, rec.ID)
		}

		results = append(results, domain.Result{
			SourceType:        rec.Type,
			SourceID:          rec.ID,
			BankTransactionID: bankTxnID,
			Date:              rec.Date,
			BankAmount:        bankAmount,
			SourceAmount:      rec.Amount,
			Variance:          c.Variance,
			VariancePercent:   c.VariancePercent,
			Status:            c.Status,
			Note:              c.Note,
		})
	}

	for _, m := range metrics {
		process(m.Revenue())
	}
	for _, sl := range sales {
		process(sl.Revenue())
	}
	for _, p := range payments {
		process(p.Revenue())
	}

	totalBank := decimal.Zero
	for i := range bankTxns {
		totalBank = totalBank.Add(bankTxns[i].Amount)
	}

	classified := matched + unmatched + flagged
	matchRate := 0.0
	if classified > 0 {
		matchRate = float64(matched) / float64(classified) * 100
	}

	run := domain.Run{
		ID:                "RUN-" + uuid.NewString(),
		PeriodStart:       periodStart,
		PeriodEnd:         periodEnd,
		PropertyID:        propertyID,
		BankTxnCount:      len(bankTxns),
		OccupancyCount:    len(metrics),
		PosCount:          len(sales),
		LeaseCount:        len(payments),
		MatchedCount:      matched,
		UnmatchedCount:    unmatched,
		FlaggedCount:      flagged,
		ForceMatchedCount: forceMatched,
		WriteFailures:     failures,
		TotalBankAmount:   totalBank,
		TotalSourceAmount: totalSource,
		TotalVariance:     totalVariance,
		MatchRate:         matchRate,
		CompletedAt:       s.now().UTC(),
	}

	summary := &Summary{Run: run, Results: results}
	if err := s.runRepo.Insert(&run); err != nil {
		return summary, fmt.Errorf("%w: %v", ErrRunNotLogged, err)
	}
	summary.RunLogged = true

	log.Printf("[reconciliation] Run %s complete: matched=%d, unmatched=%d, flagged=%d, force_matched=%d, failures=%d, match_rate=%.1f",
		run.ID, matched, unmatched, flagged, forceMatched, failures, matchRate)

	return summary, nil
}
