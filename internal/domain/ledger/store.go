package ledger

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"staffledger/internal/platform/querier"
)

type StoreAPI interface {
	InsertAdvance(ctx context.Context, advance Advance) (Advance, error)
	InsertPayment(ctx context.Context, payment Payment) (Payment, error)
	ListAdvances(ctx context.Context, employeeID string, from, to time.Time) ([]Advance, error)
	ListPayments(ctx context.Context, employeeID string, from, to time.Time) ([]Payment, error)
}

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) InsertAdvance(ctx context.Context, advance Advance) (Advance, error) {
	err := s.DB.QueryRow(ctx, `
    INSERT INTO advances (employee_id, amount, advance_date, note, recorded_by)
    VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, '')::uuid)
    RETURNING id, created_at
  `, advance.EmployeeID, advance.Amount, advance.Date, advance.Note, advance.RecordedBy).Scan(&advance.ID, &advance.CreatedAt)
	return advance, err
}

func (s *Store) InsertPayment(ctx context.Context, payment Payment) (Payment, error) {
	err := s.DB.QueryRow(ctx, `
    INSERT INTO payments (employee_id, amount_paid, date_paid, period_month, period_year, recorded_by)
    VALUES ($1, $2, $3, $4, $5, NULLIF($6, '')::uuid)
    RETURNING id, created_at
  `, payment.EmployeeID, payment.AmountPaid, payment.DatePaid, payment.Month, payment.Year, payment.RecordedBy).Scan(&payment.ID, &payment.CreatedAt)
	return payment, err
}

func (s *Store) ListAdvances(ctx context.Context, employeeID string, from, to time.Time) ([]Advance, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, employee_id, amount, advance_date, COALESCE(note, ''), COALESCE(recorded_by::text, ''), created_at
    FROM advances
    WHERE employee_id = $1
      AND ($2::timestamptz IS NULL OR advance_date >= $2)
      AND ($3::timestamptz IS NULL OR advance_date < $3)
    ORDER BY advance_date DESC
  `, employeeID, bound(from), bound(to))
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Advance, error) {
		var a Advance
		err := row.Scan(&a.ID, &a.EmployeeID, &a.Amount, &a.Date, &a.Note, &a.RecordedBy, &a.CreatedAt)
		return a, err
	})
}

func (s *Store) ListPayments(ctx context.Context, employeeID string, from, to time.Time) ([]Payment, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, employee_id, amount_paid, date_paid, period_month, period_year, COALESCE(recorded_by::text, ''), created_at
    FROM payments
    WHERE employee_id = $1
      AND ($2::timestamptz IS NULL OR date_paid >= $2)
      AND ($3::timestamptz IS NULL OR date_paid < $3)
    ORDER BY date_paid DESC
  `, employeeID, bound(from), bound(to))
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Payment, error) {
		var p Payment
		err := row.Scan(&p.ID, &p.EmployeeID, &p.AmountPaid, &p.DatePaid, &p.Month, &p.Year, &p.RecordedBy, &p.CreatedAt)
		return p, err
	})
}

func bound(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
