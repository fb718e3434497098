package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/marchbank/estate-reconciler/internal/domain"
)

type BankTransactionRepo struct {
	db *sql.DB
}

func NewBankTransactionRepo(db *sql.DB) *BankTransactionRepo {
	return &BankTransactionRepo{db: db}
}

func (r *BankTransactionRepo) Insert(t *domain.BankTransaction) error {
	_, err := r.db.Exec(
		`INSERT OR IGNORE INTO bank_transactions
		(id, txn_date, amount, category, reference, property_id,
		 reconciliation_status, matched_type, matched_id, reconciled_at)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		t.ID, t.Date.Format(time.RFC3339), t.Amount.String(), string(t.Category),
		t.Reference, nullableString(t.PropertyID), string(t.Status),
		nullableString(string(t.MatchedType)), nullableString(t.MatchedID),
		formatNullableTime(t.ReconciledAt),
	)
	if err != nil {
		return fmt.Errorf("insert bank transaction: %w", err)
	}
	return nil
}

func (r *BankTransactionRepo) BulkInsert(txns []domain.BankTransaction) (int, error) {
	sqlTx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer sqlTx.Rollback()

	stmt, err := sqlTx.Prepare(
		`INSERT OR IGNORE INTO bank_transactions
		(id, txn_date, amount, category, reference, property_id,
		 reconciliation_status, matched_type, matched_id, reconciled_at)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
	)
	if err != nil {
		return 0, fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for i := range txns {
		t := &txns[i]
		res, err := stmt.Exec(
			t.ID, t.Date.Format(time.RFC3339), t.Amount.String(), string(t.Category),
			t.Reference, nullableString(t.PropertyID), string(t.Status),
			nullableString(string(t.MatchedType)), nullableString(t.MatchedID),
			formatNullableTime(t.ReconciledAt),
		)
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

func (r *BankTransactionRepo) Count() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM bank_transactions").Scan(&count)
	return count, err
}

func (r *BankTransactionRepo) GetByID(id string) (*domain.BankTransaction, error) {
	rows, err := r.db.Query("SELECT * FROM bank_transactions WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, sql.ErrNoRows
	}
	return scanBankTransaction(rows)
}

// ListForPeriod returns transactions of the given categories dated within
// the inclusive period, ordered by date then id. An empty propertyID means
// no property filter; transactions without a property tag always pass.
func (r *BankTransactionRepo) ListForPeriod(
	start, end time.Time,
	categories []domain.Category,
	propertyID string,
) ([]domain.BankTransaction, error) {
	if len(categories) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(categories))
	args := []any{start.Format(time.RFC3339), end.Format(time.RFC3339)}
	for i, c := range categories {
		placeholders[i] = "?"
		args = append(args, string(c))
	}

	query := `SELECT * FROM bank_transactions
		WHERE txn_date >= ? AND txn_date <= ?
		  AND category IN (` + strings.Join(placeholders, ",") + `)`
	if propertyID != "" {
		query += " AND (property_id IS NULL OR property_id = ?)"
		args = append(args, propertyID)
	}
	query += " ORDER BY txn_date, id"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var txns []domain.BankTransaction
	for rows.Next() {
		t, err := scanBankTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		txns = append(txns, *t)
	}
	return txns, rows.Err()
}

type BankTransactionFilter struct {
	Category string
	Status   string
	From     *time.Time
	To       *time.Time
	Page     int
	Limit    int
}

func (r *BankTransactionRepo) List(f BankTransactionFilter) ([]domain.BankTransaction, int, error) {
	where, args := buildBankTransactionWhere(f)

	var total int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM bank_transactions"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count: %w", err)
	}

	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	offset := (f.Page - 1) * f.Limit

	query := "SELECT * FROM bank_transactions" + where + " ORDER BY txn_date DESC, id LIMIT ? OFFSET ?"
	args = append(args, f.Limit, offset)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var txns []domain.BankTransaction
	for rows.Next() {
		t, err := scanBankTransaction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan: %w", err)
		}
		txns = append(txns, *t)
	}
	return txns, total, rows.Err()
}

// MarkForceMatched records a manual override on a bank transaction: status,
// the revenue record it settles, and the reconciliation timestamp.
func (r *BankTransactionRepo) MarkForceMatched(
	id string,
	matchedType domain.SourceType,
	matchedID string,
	reconciledAt time.Time,
) error {
	res, err := r.db.Exec(
		`UPDATE bank_transactions
		 SET reconciliation_status = ?, matched_type = ?, matched_id = ?, reconciled_at = ?
		 WHERE id = ?`,
		string(domain.StatusForceMatched), string(matchedType), matchedID,
		reconciledAt.Format(time.RFC3339), id,
	)
	if err != nil {
		return fmt.Errorf("update bank transaction: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// --- helpers ---

func buildBankTransactionWhere(f BankTransactionFilter) (string, []any) {
	var clauses []string
	var args []any

	if f.Category != "" {
		clauses = append(clauses, "category = ?")
		args = append(args, f.Category)
	}
	if f.Status != "" {
		clauses = append(clauses, "reconciliation_status = ?")
		args = append(args, f.Status)
	}
	if f.From != nil {
		clauses = append(clauses, "txn_date >= ?")
		args = append(args, f.From.Format(time.RFC3339))
	}
	if f.To != nil {
		clauses = append(clauses, "txn_date <= ?")
		args = append(args, f.To.Format(time.RFC3339))
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func formatNullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}

func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

func scanBankTransaction(rows *sql.Rows) (*domain.BankTransaction, error) {
	var t domain.BankTransaction
	var date, amount, category, status string
	var propertyID, matchedType, matchedID, reconciledAt sql.NullString

	err := rows.Scan(
		&t.ID, &date, &amount, &category, &t.Reference, &propertyID,
		&status, &matchedType, &matchedID, &reconciledAt,
	)
	if err != nil {
		return nil, err
	}

	t.Date, _ = time.Parse(time.RFC3339, date)
	t.Amount, err = parseAmount(amount)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	t.Category = domain.Category(category)
	t.Status = domain.ReconciliationStatus(status)
	if propertyID.Valid {
		t.PropertyID = propertyID.String
	}
	if matchedType.Valid {
		t.MatchedType = domain.SourceType(matchedType.String)
	}
	if matchedID.Valid {
		t.MatchedID = matchedID.String
	}
	if reconciledAt.Valid {
		ts, _ := time.Parse(time.RFC3339, reconciledAt.String)
		t.ReconciledAt = &ts
	}

	return &t, nil
}
