package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/marchbank/estate-reconciler/internal/domain"
)

// RevenueRepo reads the three revenue record types and writes reconciliation
// outcomes back onto them. One repo covers all three because the engine
// treats them uniformly; each has its own table and scan path.
type RevenueRepo struct {
	db *sql.DB
}

func NewRevenueRepo(db *sql.DB) *RevenueRepo {
	return &RevenueRepo{db: db}
}

// sourceTable maps a source type to its table and the columns the generic
// queries need.
func sourceTable(t domain.SourceType) (table, dateCol, amountCol string, err error) {
	switch t {
	case domain.SourceOccupancy:
		return "occupancy_metrics", "metric_date", "total_revenue", nil
	case domain.SourcePos:
		return "pos_sales", "sale_date", "gross_sales", nil
	case domain.SourceLease:
		return "lease_payments", "paid_date", "amount", nil
	}
	return "", "", "", fmt.Errorf("unknown source type: %s", t)
}

func (r *RevenueRepo) ListOccupancy(start, end time.Time, propertyID string) ([]domain.OccupancyMetric, error) {
	query := `SELECT * FROM occupancy_metrics WHERE metric_date >= ? AND metric_date <= ?`
	args := []any{start.Format(time.RFC3339), end.Format(time.RFC3339)}
	if propertyID != "" {
		query += " AND property_id = ?"
		args = append(args, propertyID)
	}
	query += " ORDER BY metric_date, id"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var metrics []domain.OccupancyMetric
	for rows.Next() {
		var m domain.OccupancyMetric
		var date, revenue, status, matched, variance string
		if err := rows.Scan(&m.ID, &date, &m.PropertyID, &revenue, &m.RoomsAvailable,
			&status, &matched, &variance); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		m.Date, _ = time.Parse(time.RFC3339, date)
		if m.TotalRevenue, err = parseAmount(revenue); err != nil {
			return nil, fmt.Errorf("parse revenue %q: %w", revenue, err)
		}
		m.Status = domain.ReconciliationStatus(status)
		m.MatchedAmount, _ = parseAmount(matched)
		m.Variance, _ = parseAmount(variance)
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}

func (r *RevenueRepo) ListPosSales(start, end time.Time, propertyID string) ([]domain.PosSale, error) {
	query := `SELECT * FROM pos_sales WHERE sale_date >= ? AND sale_date <= ?`
	args := []any{start.Format(time.RFC3339), end.Format(time.RFC3339)}
	if propertyID != "" {
		query += " AND property_id = ?"
		args = append(args, propertyID)
	}
	query += " ORDER BY sale_date, id"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var sales []domain.PosSale
	for rows.Next() {
		var s domain.PosSale
		var date, gross, status, matched, variance string
		if err := rows.Scan(&s.ID, &date, &s.PropertyID, &gross,
			&status, &matched, &variance); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		s.Date, _ = time.Parse(time.RFC3339, date)
		if s.GrossSales, err = parseAmount(gross); err != nil {
			return nil, fmt.Errorf("parse gross sales %q: %w", gross, err)
		}
		s.Status = domain.ReconciliationStatus(status)
		s.MatchedAmount, _ = parseAmount(matched)
		s.Variance, _ = parseAmount(variance)
		sales = append(sales, s)
	}
	return sales, rows.Err()
}

// ListLeasePayments returns paid lease payments whose paid date falls within
// the inclusive period. Unpaid payments never reach the engine.
func (r *RevenueRepo) ListLeasePayments(start, end time.Time, propertyID string) ([]domain.LeasePayment, error) {
	query := `SELECT * FROM lease_payments
		WHERE payment_status = ? AND paid_date IS NOT NULL
		  AND paid_date >= ? AND paid_date <= ?`
	args := []any{domain.LeasePaymentPaid, start.Format(time.RFC3339), end.Format(time.RFC3339)}
	if propertyID != "" {
		query += " AND property_id = ?"
		args = append(args, propertyID)
	}
	query += " ORDER BY paid_date, id"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var payments []domain.LeasePayment
	for rows.Next() {
		p, err := scanLeasePayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}

// Get returns the uniform revenue view of a single record of any source type.
func (r *RevenueRepo) Get(t domain.SourceType, id string) (*domain.RevenueRecord, error) {
	table, dateCol, amountCol, err := sourceTable(t)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(
		"SELECT id, property_id, %s, %s, reconciliation_status FROM %s WHERE id = ?",
		dateCol, amountCol, table,
	)

	var rec domain.RevenueRecord
	rec.Type = t
	var date sql.NullString
	var amount, status string
	err = r.db.QueryRow(query, id).Scan(&rec.ID, &rec.PropertyID, &date, &amount, &status)
	if err != nil {
		return nil, err
	}
	if date.Valid {
		rec.Date, _ = time.Parse(time.RFC3339, date.String)
	}
	if rec.Amount, err = parseAmount(amount); err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	rec.Status = domain.ReconciliationStatus(status)
	return &rec, nil
}

// UpdateReconciliation writes a computed status, matched amount and variance
// back onto a revenue record. Force-matched records are never overwritten;
// the guard also closes the race against a concurrent override. Returns
// false when the guard suppressed the write.
func (r *RevenueRepo) UpdateReconciliation(
	t domain.SourceType,
	id string,
	status domain.ReconciliationStatus,
	matchedAmount, variance decimal.Decimal,
) (bool, error) {
	table, _, _, err := sourceTable(t)
	if err != nil {
		return false, err
	}

	query := fmt.Sprintf(
		`UPDATE %s SET reconciliation_status = ?, matched_amount = ?, variance = ?
		 WHERE id = ? AND reconciliation_status != ?`,
		table,
	)
	res, err := r.db.Exec(query, string(status), matchedAmount.String(),
		variance.String(), id, string(domain.StatusForceMatched))
	if err != nil {
		return false, fmt.Errorf("update %s %s: %w", t, id, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ForceMatch sets a revenue record to FORCE_MATCHED unconditionally. Only the
// override path calls this.
func (r *RevenueRepo) ForceMatch(
	t domain.SourceType,
	id string,
	matchedAmount, variance decimal.Decimal,
) error {
	table, _, _, err := sourceTable(t)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(
		`UPDATE %s SET reconciliation_status = ?, matched_amount = ?, variance = ? WHERE id = ?`,
		table,
	)
	res, err := r.db.Exec(query, string(domain.StatusForceMatched),
		matchedAmount.String(), variance.String(), id)
	if err != nil {
		return fmt.Errorf("force match %s %s: %w", t, id, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountByStatus counts records of one source type in a status, dated on or
// after since. Backs the dashboard's outstanding-work widgets.
func (r *RevenueRepo) CountByStatus(
	t domain.SourceType,
	status domain.ReconciliationStatus,
	since time.Time,
) (int, error) {
	table, dateCol, _, err := sourceTable(t)
	if err != nil {
		return 0, err
	}

	query := fmt.Sprintf(
		"SELECT COUNT(*) FROM %s WHERE reconciliation_status = ? AND %s >= ?",
		table, dateCol,
	)
	var count int
	err = r.db.QueryRow(query, string(status), since.Format(time.RFC3339)).Scan(&count)
	return count, err
}

func (r *RevenueRepo) BulkInsertOccupancy(metrics []domain.OccupancyMetric) (int, error) {
	return r.bulkInsert(len(metrics),
		`INSERT OR IGNORE INTO occupancy_metrics
		(id, metric_date, property_id, total_revenue, rooms_available,
		 reconciliation_status, matched_amount, variance)
		VALUES (?,?,?,?,?,?,?,?)`,
		func(i int) []any {
			m := &metrics[i]
			return []any{m.ID, m.Date.Format(time.RFC3339), m.PropertyID,
				m.TotalRevenue.String(), m.RoomsAvailable,
				string(statusOrPending(m.Status)), m.MatchedAmount.String(), m.Variance.String()}
		})
}

func (r *RevenueRepo) BulkInsertPosSales(sales []domain.PosSale) (int, error) {
	return r.bulkInsert(len(sales),
		`INSERT OR IGNORE INTO pos_sales
		(id, sale_date, property_id, gross_sales,
		 reconciliation_status, matched_amount, variance)
		VALUES (?,?,?,?,?,?,?)`,
		func(i int) []any {
			s := &sales[i]
			return []any{s.ID, s.Date.Format(time.RFC3339), s.PropertyID,
				s.GrossSales.String(),
				string(statusOrPending(s.Status)), s.MatchedAmount.String(), s.Variance.String()}
		})
}

func (r *RevenueRepo) BulkInsertLeasePayments(payments []domain.LeasePayment) (int, error) {
	return r.bulkInsert(len(payments),
		`INSERT OR IGNORE INTO lease_payments
		(id, lease_id, unit_id, property_id, amount, payment_status, paid_date,
		 reconciliation_status, matched_amount, variance)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		func(i int) []any {
			p := &payments[i]
			return []any{p.ID, p.LeaseID, p.UnitID, p.PropertyID,
				p.Amount.String(), p.PaymentStatus, formatNullableTime(p.PaidDate),
				string(statusOrPending(p.Status)), p.MatchedAmount.String(), p.Variance.String()}
		})
}

// --- helpers ---

func (r *RevenueRepo) bulkInsert(n int, query string, argsFor func(i int) []any) (int, error) {
	sqlTx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer sqlTx.Rollback()

	stmt, err := sqlTx.Prepare(query)
	if err != nil {
		return 0, fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for i := 0; i < n; i++ {
		res, err := stmt.Exec(argsFor(i)...)
		if err != nil {
			return inserted, fmt.Errorf("insert row %d: %w", i, err)
		}
		ra, _ := res.RowsAffected()
		inserted += int(ra)
	}

	if err := sqlTx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

func statusOrPending(s domain.ReconciliationStatus) domain.ReconciliationStatus {
	if s == "" {
		return domain.StatusPending
	}
	return s
}

func scanLeasePayment(rows *sql.Rows) (*domain.LeasePayment, error) {
	var p domain.LeasePayment
	var amount, status, matched, variance string
	var paidDate sql.NullString

	err := rows.Scan(&p.ID, &p.LeaseID, &p.UnitID, &p.PropertyID, &amount,
		&p.PaymentStatus, &paidDate, &status, &matched, &variance)
	if err != nil {
		return nil, err
	}

	if p.Amount, err = parseAmount(amount); err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	if paidDate.Valid {
		ts, _ := time.Parse(time.RFC3339, paidDate.String)
		p.PaidDate = &ts
	}
	p.Status = domain.ReconciliationStatus(status)
	p.MatchedAmount, _ = parseAmount(matched)
	p.Variance, _ = parseAmount(variance)
	return &p, nil
}
