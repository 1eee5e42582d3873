package report

import (
	"time"

	"github.com/shopspring/decimal"

	"staffledger/internal/domain/accrual"
)

// Employee is the roster entry a report is built for.
type Employee struct {
	accrual.Employee
	Number string `json:"employeeNumber"`
}

// Range is a half-open time window. A zero bound is open.
type Range struct {
	From time.Time
	To   time.Time
}

// EmployeeYear is one employee's resolved year together with the records it
// was computed from, bucketed by month for drill-down.
type EmployeeYear struct {
	Employee Employee                                       `json:"employee"`
	Months   accrual.Year                                   `json:"months"`
	Warnings []accrual.ValidationError                      `json:"warnings,omitempty"`
	Advances [accrual.MonthsPerYear][]accrual.AdvanceRecord `json:"-"`
	Payments [accrual.MonthsPerYear][]accrual.PaymentRecord `json:"-"`
}

type Failure struct {
	EmployeeID     string `json:"employeeId"`
	Name           string `json:"name"`
	EmployeeNumber string `json:"employeeNumber"`
	RecordSet      string `json:"recordSet,omitempty"`
	Reason         string `json:"reason"`
}

// YearReport is an immutable snapshot of every employee's resolved year.
// Updates build a new snapshot and swap it in.
type YearReport struct {
	Year     int
	Order    []string
	Entries  map[string]*EmployeeYear
	Failures map[string]Failure
	BuiltAt  time.Time
}

type DashboardRow struct {
	Name           string `json:"name"`
	EmployeeNumber string `json:"employeeNumber"`
	accrual.MonthlyAccrual
}

type Dashboard struct {
	Year        int                       `json:"year"`
	Month       int                       `json:"month"`
	Rounding    accrual.Rounding          `json:"rounding"`
	Rows        []DashboardRow            `json:"rows"`
	TotalNetDue decimal.Decimal           `json:"totalNetDue"`
	FailedCount int                       `json:"failedCount"`
	Failures    []Failure                 `json:"failures,omitempty"`
	Warnings    []accrual.ValidationError `json:"warnings,omitempty"`
	GeneratedAt time.Time                 `json:"generatedAt"`
}

type EmployeeMonth struct {
	Employee Employee                  `json:"employee"`
	Accrual  accrual.MonthlyAccrual    `json:"accrual"`
	Advances []accrual.AdvanceRecord   `json:"advances"`
	Payments []accrual.PaymentRecord   `json:"payments"`
	Warnings []accrual.ValidationError `json:"warnings,omitempty"`
}

type History struct {
	Employee Employee                  `json:"employee"`
	Year     int                       `json:"year"`
	Months   []accrual.MonthlyAccrual  `json:"months"`
	Warnings []accrual.ValidationError `json:"warnings,omitempty"`
}

type Overview struct {
	Date             string          `json:"date"`
	TotalEmployees   int             `json:"totalEmployees"`
	CheckedInToday   int             `json:"checkedInToday"`
	NotCheckedIn     int             `json:"notCheckedIn"`
	TotalMonthlyBase decimal.Decimal `json:"totalMonthlyBase"`
}
