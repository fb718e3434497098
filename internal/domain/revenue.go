package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SourceType identifies which operational subsystem a revenue record came from.
type SourceType string

const (
	SourceOccupancy SourceType = "occupancy"
	SourcePos       SourceType = "pos"
	SourceLease     SourceType = "lease"
)

// Category returns the bank transaction category that settles revenue of
// this source type.
func (t SourceType) Category() Category {
	switch t {
	case SourceOccupancy:
		return CategoryHotel
	case SourcePos:
		return CategoryCafe
	case SourceLease:
		return CategoryRent
	}
	return CategoryOther
}

// PaymentStatus of a lease payment as recorded by the lettings system.
// Only paid payments are eligible for reconciliation.
const (
	LeasePaymentPaid = "paid"
	LeasePaymentDue  = "due"
)

// OccupancyMetric is one property-day of hotel revenue. RoomsAvailable is
// carried for reporting only and plays no part in matching.
type OccupancyMetric struct {
	ID             string               `json:"id"`
	Date           time.Time            `json:"date"`
	PropertyID     string               `json:"property_id"`
	TotalRevenue   decimal.Decimal      `json:"total_revenue"`
	RoomsAvailable int                  `json:"rooms_available"`
	Status         ReconciliationStatus `json:"status"`
	MatchedAmount  decimal.Decimal      `json:"matched_amount"`
	Variance       decimal.Decimal      `json:"variance"`
}

// PosSale is one property-day of café point-of-sale takings.
type PosSale struct {
	ID            string               `json:"id"`
	Date          time.Time            `json:"date"`
	PropertyID    string               `json:"property_id"`
	GrossSales    decimal.Decimal      `json:"gross_sales"`
	Status        ReconciliationStatus `json:"status"`
	MatchedAmount decimal.Decimal      `json:"matched_amount"`
	Variance      decimal.Decimal      `json:"variance"`
}

// LeasePayment is a rent payment recorded against a lease. PaidDate is nil
// until the payment clears; unpaid payments never enter a run.
type LeasePayment struct {
	ID            string               `json:"id"`
	LeaseID       string               `json:"lease_id"`
	UnitID        string               `json:"unit_id"`
	PropertyID    string               `json:"property_id"`
	Amount        decimal.Decimal      `json:"amount"`
	PaymentStatus string               `json:"payment_status"`
	PaidDate      *time.Time           `json:"paid_date,omitempty"`
	Status        ReconciliationStatus `json:"status"`
	MatchedAmount decimal.Decimal      `json:"matched_amount"`
	Variance      decimal.Decimal      `json:"variance"`
}

// RevenueRecord is the uniform view the matcher and classifier operate on.
// The three source structs project into it; reconciliation results are
// written back to the underlying row, not to this view.
type RevenueRecord struct {
	Type       SourceType
	ID         string
	PropertyID string
	Date       time.Time
	Amount     decimal.Decimal
	Status     ReconciliationStatus
}

func (m OccupancyMetric) Revenue() RevenueRecord {
	return RevenueRecord{
		Type:       SourceOccupancy,
		ID:         m.ID,
		PropertyID: m.PropertyID,
		Date:       m.Date,
		Amount:     m.TotalRevenue,
		Status:     m.Status,
	}
}

func (s PosSale) Revenue() RevenueRecord {
	return RevenueRecord{
		Type:       SourcePos,
		ID:         s.ID,
		PropertyID: s.PropertyID,
		Date:       s.Date,
		Amount:     s.GrossSales,
		Status:     s.Status,
	}
}

func (p LeasePayment) Revenue() RevenueRecord {
	rec := RevenueRecord{
		Type:       SourceLease,
		ID:         p.ID,
		PropertyID: p.PropertyID,
		Amount:     p.Amount,
		Status:     p.Status,
	}
	if p.PaidDate != nil {
		rec.Date = *p.PaidDate
	}
	return rec
}
