package accrual

import (
	"time"

	"github.com/shopspring/decimal"
)

type Engine struct {
	policy Policy
}

func NewEngine(policy Policy) (*Engine, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &Engine{policy: policy}, nil
}

func (e *Engine) Policy() Policy {
	return e.policy
}

func (e *Engine) Location() *time.Location {
	return e.policy.location()
}

// ComputeYearlyAccrual buckets the employee's records into the months of year
// and resolves them with carry-forward. Malformed records are skipped and
// returned as warnings. An invalid employee or year is returned as an error.
func (e *Engine) ComputeYearlyAccrual(emp Employee, attendance []AttendanceRecord, advances []AdvanceRecord, payments []PaymentRecord, year int) (Year, []ValidationError, error) {
	if err := validateEmployee(emp); err != nil {
		return Year{}, nil, err
	}
	if year <= 0 {
		return Year{}, nil, &ValidationError{EmployeeID: emp.ID, Field: "year", Reason: "must be positive"}
	}

	var warnings []ValidationError
	attendance, rejected := keepOwned(emp.ID, attendance, AttendanceTime)
	warnings = append(warnings, rejected...)
	advances, rejected = keepOwned(emp.ID, advances, AdvanceTime)
	warnings = append(warnings, rejected...)
	payments, rejected = keepOwned(emp.ID, payments, PaymentTime)
	warnings = append(warnings, rejected...)

	advances, rejected = keepPositive(emp.ID, advances, AdvanceTime, "amount", func(r AdvanceRecord) decimal.Decimal { return r.Amount })
	warnings = append(warnings, rejected...)
	payments, rejected = keepPositive(emp.ID, payments, PaymentTime, "amountPaid", func(r PaymentRecord) decimal.Decimal { return r.AmountPaid })
	warnings = append(warnings, rejected...)

	loc := e.policy.location()
	attendanceByMonth, rejected := BucketByMonth(attendance, AttendanceTime, year, loc)
	warnings = append(warnings, withEmployee(emp.ID, rejected)...)
	advancesByMonth, rejected := BucketByMonth(advances, AdvanceTime, year, loc)
	warnings = append(warnings, withEmployee(emp.ID, rejected)...)
	paymentsByMonth, rejected := BucketByMonth(payments, PaymentTime, year, loc)
	warnings = append(warnings, withEmployee(emp.ID, rejected)...)

	var months Year
	for m := 0; m < MonthsPerYear; m++ {
		months[m] = e.policy.ComputeMonth(emp, attendanceByMonth[m], advancesByMonth[m], paymentsByMonth[m], year, m)
	}
	resolved, err := e.policy.Resolve(months)
	if err != nil {
		return Year{}, warnings, err
	}
	return resolved, warnings, nil
}

// ComputeMonthlyAccrual resolves the whole year up to month because a month's
// carry-forward depends on every month before it.
func (e *Engine) ComputeMonthlyAccrual(emp Employee, attendance []AttendanceRecord, advances []AdvanceRecord, payments []PaymentRecord, year, month int) (MonthlyAccrual, []ValidationError, error) {
	if month < 0 || month >= MonthsPerYear {
		return MonthlyAccrual{}, nil, &ValidationError{EmployeeID: emp.ID, Field: "month", Reason: "must be between 0 and 11"}
	}
	months, warnings, err := e.ComputeYearlyAccrual(emp, attendance, advances, payments, year)
	if err != nil {
		return MonthlyAccrual{}, warnings, err
	}
	return months[month], warnings, nil
}

func validateEmployee(emp Employee) error {
	if emp.ID == "" {
		return &ValidationError{Field: "employee.id", Reason: "is required"}
	}
	if !emp.BaseSalary.IsPositive() {
		return &ValidationError{EmployeeID: emp.ID, Field: "employee.baseSalary", Reason: "must be positive"}
	}
	return nil
}

type owned interface {
	AttendanceRecord | AdvanceRecord | PaymentRecord
}

func ownerOf[T owned](rec T) string {
	switch r := any(rec).(type) {
	case AttendanceRecord:
		return r.EmployeeID
	case AdvanceRecord:
		return r.EmployeeID
	case PaymentRecord:
		return r.EmployeeID
	}
	return ""
}

// keepOwned drops records that name a different employee. Records with no
// owner are taken to belong to the employee being computed.
func keepOwned[T owned](employeeID string, records []T, ex Extractor[T]) ([]T, []ValidationError) {
	out := make([]T, 0, len(records))
	var rejected []ValidationError
	for _, rec := range records {
		owner := ownerOf(rec)
		if owner != "" && owner != employeeID {
			rejected = append(rejected, ValidationError{RecordID: ex.ID(rec), EmployeeID: employeeID, Field: "employeeId", Reason: "references employee " + owner})
			continue
		}
		out = append(out, rec)
	}
	return out, rejected
}

func keepPositive[T any](employeeID string, records []T, ex Extractor[T], field string, amount func(T) decimal.Decimal) ([]T, []ValidationError) {
	out := make([]T, 0, len(records))
	var rejected []ValidationError
	for _, rec := range records {
		if !amount(rec).IsPositive() {
			rejected = append(rejected, ValidationError{RecordID: ex.ID(rec), EmployeeID: employeeID, Field: field, Reason: "must be positive"})
			continue
		}
		out = append(out, rec)
	}
	return out, rejected
}

func withEmployee(employeeID string, errs []ValidationError) []ValidationError {
	for i := range errs {
		errs[i].EmployeeID = employeeID
	}
	return errs
}
