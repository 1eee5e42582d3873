package employee

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"staffledger/internal/domain/audit"
	"staffledger/internal/domain/auth"
)

// RosterObserver is told when the set of employees changes, so cached
// reports built over the old roster can be dropped.
type RosterObserver interface {
	Reset()
}

type Auditor interface {
	Record(ctx context.Context, entry audit.Entry) error
}

type Service struct {
	store   StoreAPI
	roster  RosterObserver
	auditor Auditor
	now     func() time.Time
	random  func(n int) int
}

func NewService(store StoreAPI, roster RosterObserver, auditor Auditor) *Service {
	return &Service{store: store, roster: roster, auditor: auditor, now: time.Now}
}

func (s *Service) Enroll(ctx context.Context, input EnrollInput) (Employee, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Phone = strings.TrimSpace(input.Phone)
	input.NationalID = strings.TrimSpace(input.NationalID)
	if err := validateEnroll(input); err != nil {
		return Employee{}, err
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return Employee{}, err
	}

	emp := Employee{
		Name:        input.Name,
		Email:       input.Email,
		Phone:       input.Phone,
		NationalID:  input.NationalID,
		BaseSalary:  input.BaseSalary,
		JoiningDate: input.JoiningDate,
	}
	var created Employee
	for attempt := 0; attempt < numberAttempts; attempt++ {
		emp.EmployeeNumber = NewEmployeeNumber(s.now(), s.random)
		created, err = s.store.Enroll(ctx, emp, hash)
		if !errors.Is(err, ErrNumberTaken) {
			break
		}
		slog.Warn("employee number collision", "employeeNumber", emp.EmployeeNumber, "attempt", attempt+1)
	}
	if errors.Is(err, ErrNumberTaken) {
		return Employee{}, ErrNumberSpace
	}
	if err != nil {
		return Employee{}, err
	}

	s.rosterChanged()
	s.audit(ctx, audit.ActionEmployeeEnrolled, created.ID, nil, map[string]any{
		"employeeNumber": created.EmployeeNumber,
		"baseSalary":     created.BaseSalary,
		"joiningDate":    created.JoiningDate.Format("2006-01-02"),
	})
	return created, nil
}

func (s *Service) List(ctx context.Context) ([]Employee, error) {
	return s.store.List(ctx)
}

func (s *Service) Get(ctx context.Context, employeeID string) (Employee, error) {
	return s.store.Get(ctx, employeeID)
}

func (s *Service) GetByUserID(ctx context.Context, userID string) (Employee, error) {
	return s.store.GetByUserID(ctx, userID)
}

func (s *Service) Delete(ctx context.Context, employeeID string) error {
	before, err := s.store.Get(ctx, employeeID)
	if err != nil {
		return err
	}
	deleted, err := s.store.Delete(ctx, employeeID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}
	s.rosterChanged()
	s.audit(ctx, audit.ActionEmployeeDeleted, employeeID, map[string]any{
		"employeeNumber": before.EmployeeNumber,
		"name":           before.Name,
	}, nil)
	return nil
}

// BackfillNumbers gives every employee without an employee number a fresh
// one, retrying collisions like Enroll does. Running it again is a no-op.
// On error the numbers assigned so far are returned with it.
func (s *Service) BackfillNumbers(ctx context.Context) ([]Assignment, error) {
	pending, err := s.store.ListUnnumbered(ctx)
	if err != nil {
		return nil, err
	}
	assigned := []Assignment{}
	defer func() {
		if len(assigned) > 0 {
			s.rosterChanged()
		}
	}()
	for _, emp := range pending {
		number, ok, err := s.assign(ctx, emp.ID)
		if err != nil {
			return assigned, err
		}
		if !ok {
			continue
		}
		assigned = append(assigned, Assignment{EmployeeID: emp.ID, Name: emp.Name, EmployeeNumber: number})
		s.audit(ctx, audit.ActionEmployeeNumbered, emp.ID, nil, map[string]any{"employeeNumber": number})
	}
	if len(assigned) > 0 {
		slog.Info("employee numbers backfilled", "count", len(assigned))
	}
	return assigned, nil
}

func (s *Service) assign(ctx context.Context, employeeID string) (string, bool, error) {
	for attempt := 0; attempt < numberAttempts; attempt++ {
		number := NewEmployeeNumber(s.now(), s.random)
		ok, err := s.store.AssignNumber(ctx, employeeID, number)
		if errors.Is(err, ErrNumberTaken) {
			slog.Warn("employee number collision", "employeeNumber", number, "attempt", attempt+1)
			continue
		}
		return number, ok, err
	}
	return "", false, ErrNumberSpace
}

func (s *Service) rosterChanged() {
	if s.roster != nil {
		s.roster.Reset()
	}
}

func (s *Service) audit(ctx context.Context, action, entityID string, before, after any) {
	if s.auditor == nil {
		return
	}
	entry := audit.Entry{Action: action, EntityType: audit.EntityEmployee, EntityID: entityID, Before: before, After: after}
	if err := s.auditor.Record(ctx, entry); err != nil {
		slog.Warn("audit record failed", "action", action, "entityId", entityID, "err", err)
	}
}

func validateEnroll(input EnrollInput) error {
	switch {
	case input.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	case input.Email == "":
		return fmt.Errorf("%w: email is required", ErrInvalidInput)
	case !validEmail(input.Email):
		return fmt.Errorf("%w: email is invalid", ErrInvalidInput)
	case !input.BaseSalary.IsPositive():
		return fmt.Errorf("%w: baseSalary must be positive", ErrInvalidInput)
	case input.JoiningDate.IsZero():
		return fmt.Errorf("%w: joiningDate is required", ErrInvalidInput)
	case len(input.Password) < 8:
		return fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidInput)
	}
	return nil
}

func validEmail(value string) bool {
	addr, err := mail.ParseAddress(value)
	return err == nil && addr.Address == value
}
