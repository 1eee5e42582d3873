package accrual

import "github.com/shopspring/decimal"

// Resolve folds twelve unresolved months left to right, January first,
// filling in the carried-forward balance, net due and status of each month.
// The running balance starts at zero every January.
func (p Policy) Resolve(months Year) (Year, error) {
	for i, m := range months {
		if err := checkNonNegative(m); err != nil {
			return Year{}, err
		}
		if m.Month != i {
			return Year{}, &ArithmeticPolicyViolation{EmployeeID: m.EmployeeID, Month: m.Month, Field: "month", Value: decimal.NewFromInt(int64(i))}
		}
	}

	running := decimal.Zero
	for i := range months {
		m := &months[i]
		m.PreviousDueBalance = decimal.Max(decimal.Zero, running)
		m.NetAmountDue = decimal.Max(decimal.Zero, m.EarnedSalary.Add(m.PreviousDueBalance).Sub(m.TotalAdvances).Sub(m.TotalPaid))
		m.Status = p.classify(*m)
		running = running.Add(m.Surplus())
	}
	return months, nil
}

func (p Policy) classify(m MonthlyAccrual) Status {
	switch {
	case m.NetAmountDue.LessThanOrEqual(p.PaidEpsilon):
		return StatusPaid
	case m.TotalPaid.IsPositive():
		return StatusPartiallyPaid
	default:
		return StatusUnpaid
	}
}

func checkNonNegative(m MonthlyAccrual) error {
	fields := []struct {
		name  string
		value decimal.Decimal
	}{
		{"earnedSalary", m.EarnedSalary},
		{"totalAdvances", m.TotalAdvances},
		{"totalPaid", m.TotalPaid},
	}
	for _, f := range fields {
		if f.value.IsNegative() {
			return &ArithmeticPolicyViolation{EmployeeID: m.EmployeeID, Month: m.Month, Field: f.name, Value: f.value}
		}
	}
	if m.PresentDays < 0 {
		return &ArithmeticPolicyViolation{EmployeeID: m.EmployeeID, Month: m.Month, Field: "presentDays", Value: decimal.NewFromInt(int64(m.PresentDays))}
	}
	return nil
}
