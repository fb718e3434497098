package reconciliation

import (
	"fmt"

	"github.com/marchbank/estate-reconciler/internal/domain"
)

const (
	recentRunLimit  = 5
	outstandingDays = 30
)

// SourceCounts is outstanding reconciliation work for one source type.
type SourceCounts struct {
	Unmatched int `json:"unmatched"`
	Flagged   int `json:"flagged"`
}

// DashboardData is the read-only view backing the reconciliation dashboard.
// Safe to build while a run is in progress; it may trail the run by one pass.
type DashboardData struct {
	RecentRuns       []domain.Run                       `json:"recent_runs"`
	Outstanding      map[domain.SourceType]SourceCounts `json:"outstanding"`
	OverallMatchRate float64                            `json:"overall_match_rate"`
}

// Dashboard aggregates recent run history and outstanding unmatched/flagged
// counts over the last 30 days. The overall match rate is the unweighted
// average of each recent run's matched/classified ratio.
func (s *Service) Dashboard() (*DashboardData, error) {
	runs, err := s.runRepo.ListRecent(recentRunLimit)
	if err != nil {
		return nil, fmt.Errorf("list recent runs: %w", err)
	}

	since := s.now().UTC().AddDate(0, 0, -outstandingDays)
	outstanding := make(map[domain.SourceType]SourceCounts, 3)
	for _, t := range []domain.SourceType{domain.SourceOccupancy, domain.SourcePos, domain.SourceLease} {
		un, err := s.revenueRepo.CountByStatus(t, domain.StatusUnmatched, since)
		if err != nil {
			return nil, fmt.Errorf("count unmatched %s: %w", t, err)
		}
		fl, err := s.revenueRepo.CountByStatus(t, domain.StatusFlagged, since)
		if err != nil {
			return nil, fmt.Errorf("count flagged %s: %w", t, err)
		}
		outstanding[t] = SourceCounts{Unmatched: un, Flagged: fl}
	}

	var ratioSum float64
	ratioCount := 0
	for _, r := range runs {
		if c := r.ClassifiedCount(); c > 0 {
			ratioSum += float64(r.MatchedCount) / float64(c)
			ratioCount++
		}
	}
	rate := 0.0
	if ratioCount > 0 {
		rate = ratioSum / float64(ratioCount) * 100
	}

	return &DashboardData{
		RecentRuns:       runs,
		Outstanding:      outstanding,
		OverallMatchRate: rate,
	}, nil
}
