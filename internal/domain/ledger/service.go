package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"staffledger/internal/domain/accrual"
	"staffledger/internal/domain/audit"
	"staffledger/internal/domain/employee"
	"staffledger/internal/domain/report"
	"staffledger/internal/platform/requestctx"
)

type Directory interface {
	Get(ctx context.Context, employeeID string) (employee.Employee, error)
}

type Notifier interface {
	Notify(ctx context.Context, notice Notice) error
}

type Auditor interface {
	Record(ctx context.Context, entry audit.Entry) error
}

type Service struct {
	store       StoreAPI
	directory   Directory
	invalidator report.Invalidator
	notifier    Notifier
	auditor     Auditor
	loc         *time.Location
	now         func() time.Time
}

func NewService(store StoreAPI, directory Directory, invalidator report.Invalidator, notifier Notifier, auditor Auditor, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		store:       store,
		directory:   directory,
		invalidator: invalidator,
		notifier:    notifier,
		auditor:     auditor,
		loc:         loc,
		now:         time.Now,
	}
}

func (s *Service) RecordAdvance(ctx context.Context, employeeID string, input AdvanceInput) (Advance, error) {
	if !input.Amount.IsPositive() {
		return Advance{}, ErrInvalidAmount
	}
	emp, err := s.directory.Get(ctx, employeeID)
	if err != nil {
		return Advance{}, err
	}
	at := input.Date
	if at.IsZero() {
		at = s.now()
	}
	actor, _ := requestctx.GetActor(ctx)
	created, err := s.store.InsertAdvance(ctx, Advance{
		EmployeeID: emp.ID,
		Amount:     input.Amount,
		Date:       at,
		Note:       strings.TrimSpace(input.Note),
		RecordedBy: actor.UserID,
	})
	if err != nil {
		return Advance{}, fmt.Errorf("insert advance: %w", err)
	}

	s.recorded(ctx, emp, KindAdvance, created.ID, created.Amount.String(), at, Notice{
		Kind:   KindAdvance,
		Amount: created.Amount,
		At:     at,
	})
	return created, nil
}

func (s *Service) RecordPayment(ctx context.Context, employeeID string, input PaymentInput) (Payment, error) {
	if !input.Amount.IsPositive() {
		return Payment{}, ErrInvalidAmount
	}
	if input.Month != nil && (*input.Month < 0 || *input.Month >= accrual.MonthsPerYear) {
		return Payment{}, fmt.Errorf("%w: month must be between 0 and 11", ErrInvalidPeriod)
	}
	if input.Year != nil && *input.Year <= 0 {
		return Payment{}, fmt.Errorf("%w: year must be positive", ErrInvalidPeriod)
	}
	emp, err := s.directory.Get(ctx, employeeID)
	if err != nil {
		return Payment{}, err
	}
	at := input.Date
	if at.IsZero() {
		at = s.now()
	}
	actor, _ := requestctx.GetActor(ctx)
	created, err := s.store.InsertPayment(ctx, Payment{
		EmployeeID: emp.ID,
		AmountPaid: input.Amount,
		DatePaid:   at,
		Month:      input.Month,
		Year:       input.Year,
		RecordedBy: actor.UserID,
	})
	if err != nil {
		return Payment{}, fmt.Errorf("insert payment: %w", err)
	}

	s.recorded(ctx, emp, KindPayment, created.ID, created.AmountPaid.String(), at, Notice{
		Kind:   KindPayment,
		Amount: created.AmountPaid,
		At:     at,
	})
	return created, nil
}

// recorded runs the side effects of a stored record. None of them can undo
// the write, so failures are logged.
func (s *Service) recorded(ctx context.Context, emp employee.Employee, kind, recordID, amount string, at time.Time, notice Notice) {
	if s.invalidator != nil {
		s.invalidator.Invalidate(emp.ID, at)
	}

	if s.notifier != nil {
		notice.EmployeeID = emp.ID
		notice.EmployeeName = emp.Name
		notice.EmployeeEmail = emp.Email
		if err := s.notifier.Notify(ctx, notice); err != nil {
			slog.Warn("ledger notification failed", "kind", kind, "employee_id", emp.ID, "err", err)
		}
	}

	if s.auditor == nil {
		return
	}
	action, entity := audit.ActionAdvanceRecorded, audit.EntityAdvance
	if kind == KindPayment {
		action, entity = audit.ActionPaymentRecorded, audit.EntityPayment
	}
	entry := audit.Entry{
		Action:     action,
		EntityType: entity,
		EntityID:   recordID,
		After: map[string]any{
			"employeeId": emp.ID,
			"amount":     amount,
			"date":       at.Format(time.RFC3339),
		},
	}
	if err := s.auditor.Record(ctx, entry); err != nil {
		slog.Warn("audit record failed", "action", action, "entity_id", recordID, "err", err)
	}
}

func (s *Service) ListAdvances(ctx context.Context, employeeID string) ([]Advance, error) {
	if _, err := s.directory.Get(ctx, employeeID); err != nil {
		return nil, err
	}
	return s.store.ListAdvances(ctx, employeeID, time.Time{}, time.Time{})
}

// Transactions merges advances and payments, newest first.
func (s *Service) Transactions(ctx context.Context, employeeID string, filter Filter) ([]Transaction, error) {
	if filter.Month != nil && (*filter.Month < 0 || *filter.Month >= accrual.MonthsPerYear) {
		return nil, fmt.Errorf("%w: month must be between 0 and 11", ErrInvalidPeriod)
	}
	if filter.Year != nil && *filter.Year <= 0 {
		return nil, fmt.Errorf("%w: year must be positive", ErrInvalidPeriod)
	}
	if _, err := s.directory.Get(ctx, employeeID); err != nil {
		return nil, err
	}

	var from, to time.Time
	switch {
	case filter.Year != nil && filter.Month != nil:
		from, to = accrual.MonthRange(*filter.Year, *filter.Month, s.loc)
	case filter.Year != nil:
		from, to = accrual.YearRange(*filter.Year, s.loc)
	}

	advances, err := s.store.ListAdvances(ctx, employeeID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list advances: %w", err)
	}
	payments, err := s.store.ListPayments(ctx, employeeID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}

	out := make([]Transaction, 0, len(advances)+len(payments))
	for _, a := range advances {
		if s.inMonth(a.Date, filter.Month) {
			out = append(out, Transaction{ID: a.ID, Kind: KindAdvance, Amount: a.Amount, Date: a.Date, Note: a.Note})
		}
	}
	for _, p := range payments {
		if s.inMonth(p.DatePaid, filter.Month) {
			out = append(out, Transaction{ID: p.ID, Kind: KindPayment, Amount: p.AmountPaid, Date: p.DatePaid, Month: p.Month, Year: p.Year})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Service) inMonth(at time.Time, month *int) bool {
	if month == nil {
		return true
	}
	return int(at.In(s.loc).Month())-1 == *month
}
