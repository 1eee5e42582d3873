package accrual

import "github.com/shopspring/decimal"

// ComputeMonth computes the unresolved accrual of one month from records
// already bucketed into it. PreviousDueBalance, NetAmountDue and Status are
// filled in by Resolve.
//
// earned = baseSalary * presentDays / PerDiemDivisor, multiplied before the
// division.
func (p Policy) ComputeMonth(emp Employee, attendance []AttendanceRecord, advances []AdvanceRecord, payments []PaymentRecord, year, month int) MonthlyAccrual {
	loc := p.location()

	present := 0
	for _, day := range DistinctDays(attendance, loc) {
		if p.countable(emp, day) {
			present++
		}
	}

	totalAdvances := decimal.Zero
	for _, adv := range advances {
		if p.countable(emp, DayOf(adv.Date, loc)) {
			totalAdvances = totalAdvances.Add(adv.Amount)
		}
	}

	totalPaid := decimal.Zero
	for _, pay := range payments {
		if p.countable(emp, DayOf(pay.DatePaid, loc)) {
			totalPaid = totalPaid.Add(pay.AmountPaid)
		}
	}

	earned := emp.BaseSalary.Mul(decimal.NewFromInt(int64(present))).Div(p.PerDiemDivisor)

	return MonthlyAccrual{
		EmployeeID:         emp.ID,
		Year:               year,
		Month:              month,
		PresentDays:        present,
		EarnedSalary:       earned,
		TotalAdvances:      totalAdvances,
		TotalPaid:          totalPaid,
		PreviousDueBalance: decimal.Zero,
		NetAmountDue:       decimal.Zero,
	}
}

// countable reports whether a day is on or after the joining date.
func (p Policy) countable(emp Employee, day Day) bool {
	if emp.JoiningDate.IsZero() {
		return true
	}
	return !day.Before(DateOf(emp.JoiningDate))
}
