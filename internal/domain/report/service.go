package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"staffledger/internal/domain/accrual"
)

// Source is the read side of the record store.
// An empty employeeID lists records of every employee.
type Source interface {
	ListEmployees(ctx context.Context) ([]Employee, error)
	ListAttendance(ctx context.Context, employeeID string, r Range) ([]accrual.AttendanceRecord, error)
	ListAdvances(ctx context.Context, employeeID string, r Range) ([]accrual.AdvanceRecord, error)
	ListPayments(ctx context.Context, employeeID string, r Range) ([]accrual.PaymentRecord, error)
}

// Invalidator is notified when an employee's records change.
type Invalidator interface {
	Invalidate(employeeID string, at time.Time)
}

type Observer interface {
	ReportBuilt(duration time.Duration, employees, failed int)
	ReportCacheHit()
	ReportCacheMiss()
	ReportInvalidated()
}

type nopObserver struct{}

func (nopObserver) ReportBuilt(time.Duration, int, int) {}
func (nopObserver) ReportCacheHit()                     {}
func (nopObserver) ReportCacheMiss()                    {}
func (nopObserver) ReportInvalidated()                  {}

type Service struct {
	source      Source
	engine      *accrual.Engine
	concurrency int
	observer    Observer
	cache       *cache
	group       singleflight.Group
	now         func() time.Time

	buildTimeout time.Duration
}

// DefaultBuildTimeout bounds one shared snapshot computation.
const DefaultBuildTimeout = 2 * time.Minute

func NewService(source Source, engine *accrual.Engine, concurrency int, observer Observer) *Service {
	if concurrency <= 0 {
		concurrency = 1
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &Service{
		source:      source,
		engine:      engine,
		concurrency: concurrency,
		observer:    observer,
		cache:       newCache(),
		now:         time.Now,

		buildTimeout: DefaultBuildTimeout,
	}
}

func (s *Service) Location() *time.Location {
	return s.engine.Location()
}

// Year returns the snapshot for year, building it on first use and
// recomputing invalidated employees before returning it. Concurrent callers
// for the same year share one computation.
func (s *Service) Year(ctx context.Context, year int) (*YearReport, error) {
	if year <= 0 {
		return nil, ErrInvalidPeriod
	}
	if v := s.cache.view(year); v.fresh() {
		s.observer.ReportCacheHit()
		return v.report, nil
	}
	return s.shared(ctx, "year:"+strconv.Itoa(year), func(ctx context.Context) (*YearReport, error) {
		v := s.cache.view(year)
		if v.fresh() {
			s.observer.ReportCacheHit()
			return v.report, nil
		}
		s.observer.ReportCacheMiss()
		var (
			next *YearReport
			err  error
		)
		if v.report == nil {
			next, err = s.build(ctx, year)
		} else {
			next, err = s.refresh(ctx, v.report, v.stale)
		}
		if err != nil {
			return nil, err
		}
		return s.keep(next, v), nil
	})
}

// Refresh rebuilds year from scratch, retrying employees that failed before.
func (s *Service) Refresh(ctx context.Context, year int) (*YearReport, error) {
	if year <= 0 {
		return nil, ErrInvalidPeriod
	}
	return s.shared(ctx, "refresh:"+strconv.Itoa(year), func(ctx context.Context) (*YearReport, error) {
		v := s.cache.view(year)
		next, err := s.build(ctx, year)
		if err != nil {
			return nil, err
		}
		return s.keep(next, v), nil
	})
}

// shared runs fn once per key for all concurrent callers. The computation
// is detached from the caller that started it and bounded by buildTimeout,
// so a caller that gives up only stops its own wait.
func (s *Service) shared(ctx context.Context, key string, fn func(context.Context) (*YearReport, error)) (*YearReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ch := s.group.DoChan(key, func() (any, error) {
		buildCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.buildTimeout)
		defer cancel()
		return fn(buildCtx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*YearReport), nil
	}
}

// keep stores next and returns the snapshot readers should see. When a
// newer snapshot won the race that one is returned instead.
func (s *Service) keep(next *YearReport, v view) *YearReport {
	current, ok := s.cache.store(next, v)
	if ok || current == nil {
		return next
	}
	return current
}

// Invalidate marks the employee's year containing at for recomputation.
func (s *Service) Invalidate(employeeID string, at time.Time) {
	year := accrual.DayOf(at, s.engine.Location()).Year
	s.cache.invalidate(employeeID, year)
	s.observer.ReportInvalidated()
}

// Reset drops every snapshot. Used when the roster changes.
func (s *Service) Reset() {
	s.cache.reset()
	s.observer.ReportInvalidated()
}

func (s *Service) Dashboard(ctx context.Context, year, month int, rounding accrual.Rounding) (Dashboard, error) {
	if month < 0 || month >= accrual.MonthsPerYear {
		return Dashboard{}, ErrInvalidPeriod
	}
	report, err := s.Year(ctx, year)
	if err != nil {
		return Dashboard{}, err
	}
	rows := SummarizeForDashboard(report.Employees(), report.Yearly(), month)
	total := decimal.Zero
	for i := range rows {
		total = total.Add(rows[i].NetAmountDue)
		rows[i].MonthlyAccrual = rows[i].MonthlyAccrual.Rounded(rounding)
	}
	if rounding == accrual.RoundWhole {
		total = total.Round(0)
	}
	failures := report.SortedFailures()
	return Dashboard{
		Year:        year,
		Month:       month,
		Rounding:    rounding,
		Rows:        rows,
		TotalNetDue: total,
		FailedCount: len(failures),
		Failures:    failures,
		Warnings:    report.Warnings(),
		GeneratedAt: report.BuiltAt,
	}, nil
}

func (s *Service) EmployeeMonth(ctx context.Context, employeeID string, year, month int, rounding accrual.Rounding) (EmployeeMonth, error) {
	if month < 0 || month >= accrual.MonthsPerYear {
		return EmployeeMonth{}, ErrInvalidPeriod
	}
	entry, err := s.entry(ctx, employeeID, year)
	if err != nil {
		return EmployeeMonth{}, err
	}
	return EmployeeMonth{
		Employee: entry.Employee,
		Accrual:  entry.Months[month].Rounded(rounding),
		Advances: nonNil(entry.Advances[month]),
		Payments: nonNil(entry.Payments[month]),
		Warnings: entry.Warnings,
	}, nil
}

func (s *Service) EmployeeHistory(ctx context.Context, employeeID string, year int, rounding accrual.Rounding) (History, error) {
	entry, err := s.entry(ctx, employeeID, year)
	if err != nil {
		return History{}, err
	}
	months := make([]accrual.MonthlyAccrual, 0, accrual.MonthsPerYear)
	for _, m := range entry.Months {
		months = append(months, m.Rounded(rounding))
	}
	return History{
		Employee: entry.Employee,
		Year:     year,
		Months:   months,
		Warnings: entry.Warnings,
	}, nil
}

// Overview counts today's check-ins against the roster. It reads the store
// directly and is never cached.
func (s *Service) Overview(ctx context.Context, now time.Time) (Overview, error) {
	loc := s.engine.Location()
	employees, err := s.source.ListEmployees(ctx)
	if err != nil {
		return Overview{}, fmt.Errorf("list employees: %w", err)
	}
	today := accrual.DayOf(now, loc)
	from := today.Time(loc)
	attendance, err := s.source.ListAttendance(ctx, "", Range{From: from, To: from.AddDate(0, 0, 1)})
	if err != nil {
		return Overview{}, fmt.Errorf("list attendance: %w", err)
	}
	present := make(map[string]struct{}, len(attendance))
	for _, rec := range attendance {
		present[rec.EmployeeID] = struct{}{}
	}
	base := decimal.Zero
	checkedIn := 0
	for _, emp := range employees {
		base = base.Add(emp.BaseSalary)
		if _, ok := present[emp.ID]; ok {
			checkedIn++
		}
	}
	return Overview{
		Date:             from.Format(time.DateOnly),
		TotalEmployees:   len(employees),
		CheckedInToday:   checkedIn,
		NotCheckedIn:     len(employees) - checkedIn,
		TotalMonthlyBase: base,
	}, nil
}

func (s *Service) entry(ctx context.Context, employeeID string, year int) (*EmployeeYear, error) {
	report, err := s.Year(ctx, year)
	if err != nil {
		return nil, err
	}
	if entry, ok := report.Entries[employeeID]; ok {
		return entry, nil
	}
	if failure, ok := report.Failures[employeeID]; ok {
		return nil, &accrual.IncompleteDataError{
			EmployeeID: employeeID,
			RecordSet:  failure.RecordSet,
			Err:        errors.New(failure.Reason),
		}
	}
	return nil, ErrEmployeeNotFound
}

func (s *Service) build(ctx context.Context, year int) (*YearReport, error) {
	started := s.now()
	employees, err := s.source.ListEmployees(ctx)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}

	from, to := accrual.YearRange(year, s.engine.Location())
	var byEmployee map[string][]accrual.AttendanceRecord
	attendance, err := s.source.ListAttendance(ctx, "", Range{From: from, To: to})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		slog.Warn("bulk attendance fetch failed, falling back to per employee", "year", year, "err", err)
	} else {
		byEmployee = make(map[string][]accrual.AttendanceRecord, len(employees))
		for _, rec := range attendance {
			byEmployee[rec.EmployeeID] = append(byEmployee[rec.EmployeeID], rec)
		}
	}

	report := &YearReport{
		Year:     year,
		Order:    make([]string, 0, len(employees)),
		Entries:  make(map[string]*EmployeeYear, len(employees)),
		Failures: make(map[string]Failure),
	}
	for _, emp := range employees {
		report.Order = append(report.Order, emp.ID)
	}
	results := s.computeAll(ctx, employees, year, byEmployee)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for i, res := range results {
		s.apply(report, employees[i], res)
	}
	report.BuiltAt = s.now()
	s.observer.ReportBuilt(report.BuiltAt.Sub(started), len(employees), len(report.Failures))
	return report, nil
}

// refresh recomputes the stale employees on a copy of report. Employees no
// longer on the roster snapshot are skipped; roster changes go through Reset.
func (s *Service) refresh(ctx context.Context, report *YearReport, stale []string) (*YearReport, error) {
	started := s.now()
	next := report.clone()
	employees := make([]Employee, 0, len(stale))
	for _, id := range stale {
		if entry, ok := report.Entries[id]; ok {
			employees = append(employees, entry.Employee)
			continue
		}
		if failure, ok := report.Failures[id]; ok {
			emp, err := s.lookup(ctx, failure.EmployeeID)
			if err != nil {
				return nil, err
			}
			if emp != nil {
				employees = append(employees, *emp)
			}
		}
	}
	results := s.computeAll(ctx, employees, report.Year, nil)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for i, res := range results {
		s.apply(next, employees[i], res)
	}
	next.BuiltAt = s.now()
	s.observer.ReportBuilt(next.BuiltAt.Sub(started), len(employees), len(next.Failures))
	return next, nil
}

func (s *Service) lookup(ctx context.Context, employeeID string) (*Employee, error) {
	employees, err := s.source.ListEmployees(ctx)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	for i := range employees {
		if employees[i].ID == employeeID {
			return &employees[i], nil
		}
	}
	return nil, nil
}

type result struct {
	entry *EmployeeYear
	err   error
}

// computeAll fetches and resolves every employee with at most concurrency
// fetches in flight. A nil attendance map fetches attendance per employee.
func (s *Service) computeAll(ctx context.Context, employees []Employee, year int, attendance map[string][]accrual.AttendanceRecord) []result {
	results := make([]result, len(employees))
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, emp := range employees {
		g.Go(func() error {
			var own []accrual.AttendanceRecord
			if attendance != nil {
				own = attendance[emp.ID]
			}
			entry, err := s.computeOne(ctx, emp, year, own, attendance == nil)
			results[i] = result{entry: entry, err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (s *Service) computeOne(ctx context.Context, emp Employee, year int, attendance []accrual.AttendanceRecord, fetchAttendance bool) (*EmployeeYear, error) {
	from, to := accrual.YearRange(year, s.engine.Location())
	window := Range{From: from, To: to}

	var (
		advances []accrual.AdvanceRecord
		payments []accrual.PaymentRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	if fetchAttendance {
		g.Go(func() error {
			records, err := s.source.ListAttendance(gctx, emp.ID, window)
			if err != nil {
				return &accrual.IncompleteDataError{EmployeeID: emp.ID, RecordSet: accrual.RecordSetAttendance, Err: err}
			}
			attendance = records
			return nil
		})
	}
	g.Go(func() error {
		records, err := s.source.ListAdvances(gctx, emp.ID, window)
		if err != nil {
			return &accrual.IncompleteDataError{EmployeeID: emp.ID, RecordSet: accrual.RecordSetAdvances, Err: err}
		}
		advances = records
		return nil
	})
	g.Go(func() error {
		records, err := s.source.ListPayments(gctx, emp.ID, window)
		if err != nil {
			return &accrual.IncompleteDataError{EmployeeID: emp.ID, RecordSet: accrual.RecordSetPayments, Err: err}
		}
		payments = records
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	months, warnings, err := s.engine.ComputeYearlyAccrual(emp.Employee, attendance, advances, payments, year)
	if err != nil {
		return nil, err
	}
	entry := &EmployeeYear{Employee: emp, Months: months, Warnings: warnings}
	loc := s.engine.Location()
	entry.Advances, _ = accrual.BucketByMonth(ownedAdvances(emp.ID, advances), accrual.AdvanceTime, year, loc)
	entry.Payments, _ = accrual.BucketByMonth(ownedPayments(emp.ID, payments), accrual.PaymentTime, year, loc)
	return entry, nil
}

func (s *Service) apply(report *YearReport, emp Employee, res result) {
	if res.err == nil {
		report.Entries[emp.ID] = res.entry
		delete(report.Failures, emp.ID)
		return
	}
	failure := Failure{
		EmployeeID:     emp.ID,
		Name:           emp.Name,
		EmployeeNumber: emp.Number,
		Reason:         res.err.Error(),
	}
	var incomplete *accrual.IncompleteDataError
	if errors.As(res.err, &incomplete) {
		failure.RecordSet = incomplete.RecordSet
	}
	slog.Warn("employee excluded from report", "year", report.Year, "employee_id", emp.ID, "err", res.err)
	delete(report.Entries, emp.ID)
	report.Failures[emp.ID] = failure
}

func ownedAdvances(employeeID string, records []accrual.AdvanceRecord) []accrual.AdvanceRecord {
	out := make([]accrual.AdvanceRecord, 0, len(records))
	for _, rec := range records {
		if (rec.EmployeeID == "" || rec.EmployeeID == employeeID) && rec.Amount.IsPositive() {
			out = append(out, rec)
		}
	}
	return out
}

func ownedPayments(employeeID string, records []accrual.PaymentRecord) []accrual.PaymentRecord {
	out := make([]accrual.PaymentRecord, 0, len(records))
	for _, rec := range records {
		if (rec.EmployeeID == "" || rec.EmployeeID == employeeID) && rec.AmountPaid.IsPositive() {
			out = append(out, rec)
		}
	}
	return out
}

func nonNil[T any](records []T) []T {
	if records == nil {
		return []T{}
	}
	return records
}
