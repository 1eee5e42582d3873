package employee

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"staffledger/internal/domain/auth"
	"staffledger/internal/platform/querier"
)

// Sealer encrypts national ids at rest.
type Sealer interface {
	EncryptString(value string) ([]byte, error)
	DecryptString(value []byte) (string, error)
}

type Store struct {
	DB     querier.TxBeginner
	Crypto Sealer
}

func NewStore(db querier.TxBeginner, crypto Sealer) *Store {
	return &Store{DB: db, Crypto: crypto}
}

const selectEmployee = `
    SELECT id, COALESCE(user_id::text, ''), COALESCE(employee_number, ''), name, email, COALESCE(phone, ''),
           national_id_enc, base_salary, joining_date, created_at
    FROM employees
`

// Enroll creates the login account and the employee row in one transaction.
func (s *Store) Enroll(ctx context.Context, emp Employee, passwordHash string) (Employee, error) {
	nationalEnc, err := s.Crypto.EncryptString(emp.NationalID)
	if err != nil {
		return Employee{}, err
	}

	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return Employee{}, err
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.Warn("enroll rollback failed", "err", err)
		}
	}()

	if err := tx.QueryRow(ctx, `
    INSERT INTO users (email, password_hash, role)
    VALUES ($1, $2, $3)
    RETURNING id
  `, emp.Email, passwordHash, auth.RoleEmployee).Scan(&emp.UserID); err != nil {
		return Employee{}, mapUniqueViolation(err)
	}

	if err := tx.QueryRow(ctx, `
    INSERT INTO employees (user_id, employee_number, name, email, phone, national_id_enc, base_salary, joining_date)
    VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8)
    RETURNING id, created_at
  `, emp.UserID, emp.EmployeeNumber, emp.Name, emp.Email, emp.Phone, nationalEnc, emp.BaseSalary, emp.JoiningDate).Scan(&emp.ID, &emp.CreatedAt); err != nil {
		return Employee{}, mapUniqueViolation(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Employee{}, err
	}
	return emp, nil
}

func (s *Store) List(ctx context.Context) ([]Employee, error) {
	rows, err := s.DB.Query(ctx, selectEmployee+" ORDER BY name, employee_number")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Employee{}
	for rows.Next() {
		emp, err := s.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, emp)
	}
	return out, rows.Err()
}

func (s *Store) Get(ctx context.Context, employeeID string) (Employee, error) {
	emp, err := s.scan(s.DB.QueryRow(ctx, selectEmployee+" WHERE id = $1", employeeID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Employee{}, ErrNotFound
	}
	return emp, err
}

func (s *Store) GetByUserID(ctx context.Context, userID string) (Employee, error) {
	emp, err := s.scan(s.DB.QueryRow(ctx, selectEmployee+" WHERE user_id = $1", userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Employee{}, ErrNotFound
	}
	return emp, err
}

// Delete removes the employee with their records and login account.
func (s *Store) Delete(ctx context.Context, employeeID string) (bool, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.Warn("delete employee rollback failed", "err", err)
		}
	}()

	var userID *string
	err = tx.QueryRow(ctx, "DELETE FROM employees WHERE id = $1 RETURNING user_id::text", employeeID).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if userID != nil {
		if _, err := tx.Exec(ctx, "DELETE FROM users WHERE id = $1 AND role = $2", *userID, auth.RoleEmployee); err != nil {
			return false, err
		}
	}
	return true, tx.Commit(ctx)
}

// ListUnnumbered returns employees without an employee number, oldest first.
func (s *Store) ListUnnumbered(ctx context.Context) ([]Employee, error) {
	rows, err := s.DB.Query(ctx, selectEmployee+" WHERE COALESCE(employee_number, '') = '' ORDER BY created_at, id")
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Employee, error) {
		return s.scan(row)
	})
}

// AssignNumber sets the number of an employee that has none. It reports
// false when the employee is gone or was numbered in the meantime.
func (s *Store) AssignNumber(ctx context.Context, employeeID, number string) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE employees SET employee_number = $2
    WHERE id = $1 AND COALESCE(employee_number, '') = ''
  `, employeeID, number)
	if err != nil {
		return false, mapUniqueViolation(err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) scan(row pgx.Row) (Employee, error) {
	var emp Employee
	var nationalEnc []byte
	if err := row.Scan(&emp.ID, &emp.UserID, &emp.EmployeeNumber, &emp.Name, &emp.Email, &emp.Phone,
		&nationalEnc, &emp.BaseSalary, &emp.JoiningDate, &emp.CreatedAt); err != nil {
		return Employee{}, err
	}
	nationalID, err := s.Crypto.DecryptString(nationalEnc)
	if err != nil {
		slog.Warn("national id decrypt failed", "employeeId", emp.ID, "err", err)
	}
	emp.NationalID = nationalID
	return emp, nil
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return err
	}
	switch pgErr.ConstraintName {
	case "employees_employee_number_key":
		return ErrNumberTaken
	case "users_email_key":
		return ErrEmailTaken
	}
	return err
}
