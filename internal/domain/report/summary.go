package report

import (
	"sort"

	"staffledger/internal/domain/accrual"
)

// SummarizeForDashboard selects month from each employee's resolved year.
// Employees without a resolved year are left out; they are reported as
// failures by the caller.
func SummarizeForDashboard(employees []Employee, yearly map[string]accrual.Year, month int) []DashboardRow {
	rows := make([]DashboardRow, 0, len(employees))
	if month < 0 || month >= accrual.MonthsPerYear {
		return rows
	}
	for _, emp := range employees {
		months, ok := yearly[emp.ID]
		if !ok {
			continue
		}
		rows = append(rows, DashboardRow{
			Name:           emp.Name,
			EmployeeNumber: emp.Number,
			MonthlyAccrual: months[month],
		})
	}
	return rows
}

func (r *YearReport) Employees() []Employee {
	out := make([]Employee, 0, len(r.Order))
	for _, id := range r.Order {
		if entry, ok := r.Entries[id]; ok {
			out = append(out, entry.Employee)
		}
	}
	return out
}

func (r *YearReport) Yearly() map[string]accrual.Year {
	out := make(map[string]accrual.Year, len(r.Entries))
	for id, entry := range r.Entries {
		out[id] = entry.Months
	}
	return out
}

func (r *YearReport) Warnings() []accrual.ValidationError {
	var out []accrual.ValidationError
	for _, id := range r.Order {
		if entry, ok := r.Entries[id]; ok {
			out = append(out, entry.Warnings...)
		}
	}
	return out
}

func (r *YearReport) SortedFailures() []Failure {
	out := make([]Failure, 0, len(r.Failures))
	for _, f := range r.Failures {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].EmployeeID < out[j].EmployeeID
	})
	return out
}

// clone copies the maps and order so the result can be modified without
// touching a snapshot readers may hold. Entries are shared.
func (r *YearReport) clone() *YearReport {
	next := &YearReport{
		Year:     r.Year,
		Order:    append([]string(nil), r.Order...),
		Entries:  make(map[string]*EmployeeYear, len(r.Entries)),
		Failures: make(map[string]Failure, len(r.Failures)),
		BuiltAt:  r.BuiltAt,
	}
	for id, entry := range r.Entries {
		next.Entries[id] = entry
	}
	for id, f := range r.Failures {
		next.Failures[id] = f
	}
	return next
}
