package attendance

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"staffledger/internal/platform/querier"
)

type StoreAPI interface {
	Insert(ctx context.Context, employeeID string, markedAt, day time.Time) (Record, error)
	ListBetween(ctx context.Context, employeeID string, from, to time.Time) ([]Record, error)
}

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

// Insert stores one mark. day is the local calendar day at UTC midnight.
func (s *Store) Insert(ctx context.Context, employeeID string, markedAt, day time.Time) (Record, error) {
	rec := Record{EmployeeID: employeeID, MarkedAt: markedAt}
	err := s.DB.QueryRow(ctx, `
    INSERT INTO attendance (employee_id, marked_at, attendance_day)
    VALUES ($1, $2, $3)
    RETURNING id, attendance_day::text
  `, employeeID, markedAt, day).Scan(&rec.ID, &rec.Day)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Record{}, ErrAlreadyMarked
		}
		return Record{}, err
	}
	return rec, nil
}

// ListBetween returns marks in [from, to), newest first. An empty employeeID
// lists every employee.
func (s *Store) ListBetween(ctx context.Context, employeeID string, from, to time.Time) ([]Record, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT a.id, a.employee_id, e.name, COALESCE(e.employee_number, ''), a.marked_at, a.attendance_day::text
    FROM attendance a
    JOIN employees e ON e.id = a.employee_id
    WHERE ($1 = '' OR a.employee_id::text = $1)
      AND a.marked_at >= $2 AND a.marked_at < $3
    ORDER BY a.marked_at DESC
  `, employeeID, from, to)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Record, error) {
		var rec Record
		err := row.Scan(&rec.ID, &rec.EmployeeID, &rec.EmployeeName, &rec.EmployeeNumber, &rec.MarkedAt, &rec.Day)
		return rec, err
	})
}
