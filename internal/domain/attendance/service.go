package attendance

import (
	"context"
	"fmt"
	"time"

	"staffledger/internal/domain/accrual"
	"staffledger/internal/domain/employee"
	"staffledger/internal/domain/report"
)

type Directory interface {
	Get(ctx context.Context, employeeID string) (employee.Employee, error)
}

// Verifier checks the account's second factor. It passes when the account
// has none enabled.
type Verifier interface {
	VerifySecondFactor(ctx context.Context, userID, code string) error
}

type Service struct {
	store       StoreAPI
	directory   Directory
	verifier    Verifier
	invalidator report.Invalidator
	loc         *time.Location
}

func NewService(store StoreAPI, directory Directory, verifier Verifier, invalidator report.Invalidator, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{store: store, directory: directory, verifier: verifier, invalidator: invalidator, loc: loc}
}

func (s *Service) Mark(ctx context.Context, employeeID string, now time.Time, mfaCode string) (Record, error) {
	emp, err := s.directory.Get(ctx, employeeID)
	if err != nil {
		return Record{}, err
	}
	if s.verifier != nil && emp.UserID != "" {
		if err := s.verifier.VerifySecondFactor(ctx, emp.UserID, mfaCode); err != nil {
			return Record{}, err
		}
	}

	day := accrual.DayOf(now, s.loc)
	rec, err := s.store.Insert(ctx, emp.ID, now, day.Time(time.UTC))
	if err != nil {
		return Record{}, err
	}
	rec.EmployeeName = emp.Name
	rec.EmployeeNumber = emp.EmployeeNumber
	if s.invalidator != nil {
		s.invalidator.Invalidate(emp.ID, now)
	}
	return rec, nil
}

func (s *Service) Today(ctx context.Context, now time.Time) ([]Record, error) {
	return s.onDay(ctx, accrual.DayOf(now, s.loc))
}

// OnDate lists marks on the local calendar day of date.
func (s *Service) OnDate(ctx context.Context, date time.Time) ([]Record, error) {
	return s.onDay(ctx, accrual.DateOf(date))
}

func (s *Service) onDay(ctx context.Context, day accrual.Day) ([]Record, error) {
	from := day.Time(s.loc)
	records, err := s.store.ListBetween(ctx, "", from, from.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return records, nil
}

func (s *Service) MonthCalendar(ctx context.Context, employeeID string, year, month int, today time.Time) (Calendar, error) {
	if year <= 0 || month < 0 || month >= accrual.MonthsPerYear {
		return Calendar{}, ErrInvalidPeriod
	}
	emp, err := s.directory.Get(ctx, employeeID)
	if err != nil {
		return Calendar{}, err
	}
	from, to := accrual.MonthRange(year, month, s.loc)
	records, err := s.store.ListBetween(ctx, emp.ID, from, to)
	if err != nil {
		return Calendar{}, fmt.Errorf("list attendance: %w", err)
	}

	marks := make([]accrual.AttendanceRecord, 0, len(records))
	for _, rec := range records {
		marks = append(marks, accrual.AttendanceRecord{ID: rec.ID, EmployeeID: rec.EmployeeID, Timestamp: rec.MarkedAt})
	}
	present := accrual.DistinctDays(marks, s.loc)
	cal := Calendar{
		EmployeeID:   emp.ID,
		Year:         year,
		Month:        month,
		PresentDates: make([]string, 0, len(present)),
		PresentCount: len(present),
	}
	seen := make(map[accrual.Day]struct{}, len(present))
	for _, day := range present {
		seen[day] = struct{}{}
		cal.PresentDates = append(cal.PresentDates, day.Time(time.UTC).Format(time.DateOnly))
	}
	cal.AbsentCount = absentDays(year, month, accrual.DateOf(emp.JoiningDate), accrual.DayOf(today, s.loc), seen)
	return cal, nil
}

// absentDays counts days without a mark. The window starts at the
// later of the 1st and joined, and ends yesterday when the month is the
// current one.
func absentDays(year, month int, joined, today accrual.Day, present map[accrual.Day]struct{}) int {
	first := accrual.Day{Year: year, Month: time.Month(month + 1), Day: 1}
	start := first.Time(time.UTC)
	end := start.AddDate(0, 1, 0)
	if joinedAt := joined.Time(time.UTC); joinedAt.After(start) {
		start = joinedAt
	}
	if todayAt := today.Time(time.UTC); todayAt.Before(end) {
		end = todayAt
	}
	absent := 0
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		if _, ok := present[accrual.DateOf(d)]; !ok {
			absent++
		}
	}
	return absent
}
