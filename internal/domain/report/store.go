package report

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"staffledger/internal/domain/accrual"
	"staffledger/internal/platform/querier"
)

// Store reads report inputs from Postgres.
type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) ListEmployees(ctx context.Context) ([]Employee, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, COALESCE(employee_number, ''), name, base_salary, joining_date
    FROM employees
    ORDER BY name, employee_number
  `)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Employee, error) {
		var emp Employee
		err := row.Scan(&emp.ID, &emp.Number, &emp.Name, &emp.BaseSalary, &emp.JoiningDate)
		return emp, err
	})
}

func (s *Store) ListAttendance(ctx context.Context, employeeID string, r Range) ([]accrual.AttendanceRecord, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, employee_id, marked_at
    FROM attendance
    WHERE ($1 = '' OR employee_id::text = $1)
      AND ($2::timestamptz IS NULL OR marked_at >= $2)
      AND ($3::timestamptz IS NULL OR marked_at < $3)
    ORDER BY marked_at
  `, employeeID, bound(r.From), bound(r.To))
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (accrual.AttendanceRecord, error) {
		var rec accrual.AttendanceRecord
		err := row.Scan(&rec.ID, &rec.EmployeeID, &rec.Timestamp)
		return rec, err
	})
}

func (s *Store) ListAdvances(ctx context.Context, employeeID string, r Range) ([]accrual.AdvanceRecord, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, employee_id, amount, advance_date
    FROM advances
    WHERE ($1 = '' OR employee_id::text = $1)
      AND ($2::timestamptz IS NULL OR advance_date >= $2)
      AND ($3::timestamptz IS NULL OR advance_date < $3)
    ORDER BY advance_date
  `, employeeID, bound(r.From), bound(r.To))
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (accrual.AdvanceRecord, error) {
		var rec accrual.AdvanceRecord
		err := row.Scan(&rec.ID, &rec.EmployeeID, &rec.Amount, &rec.Date)
		return rec, err
	})
}

func (s *Store) ListPayments(ctx context.Context, employeeID string, r Range) ([]accrual.PaymentRecord, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, employee_id, amount_paid, date_paid, period_month, period_year
    FROM payments
    WHERE ($1 = '' OR employee_id::text = $1)
      AND ($2::timestamptz IS NULL OR date_paid >= $2)
      AND ($3::timestamptz IS NULL OR date_paid < $3)
    ORDER BY date_paid
  `, employeeID, bound(r.From), bound(r.To))
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (accrual.PaymentRecord, error) {
		var rec accrual.PaymentRecord
		err := row.Scan(&rec.ID, &rec.EmployeeID, &rec.AmountPaid, &rec.DatePaid, &rec.Month, &rec.Year)
		return rec, err
	})
}

func bound(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
