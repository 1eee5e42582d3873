package accrual

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func unresolvedYear(employeeID string) Year {
	var months Year
	for i := range months {
		months[i] = MonthlyAccrual{
			EmployeeID:    employeeID,
			Year:          2025,
			Month:         i,
			EarnedSalary:  decimal.Zero,
			TotalAdvances: decimal.Zero,
			TotalPaid:     decimal.Zero,
		}
	}
	return months
}

func TestResolveCarriesBalanceForward(t *testing.T) {
	months := unresolvedYear("emp-1")
	months[0].EarnedSalary = amount("3000")
	months[0].TotalPaid = amount("1000")
	months[1].EarnedSalary = amount("600")
	months[1].TotalPaid = amount("4000")

	resolved, err := utcPolicy().Resolve(months)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertAmount(t, "jan netAmountDue", resolved[0].NetAmountDue, "2000")
	if resolved[0].Status != StatusPartiallyPaid {
		t.Fatalf("expected jan PARTIALLY_PAID, got %s", resolved[0].Status)
	}
	assertAmount(t, "feb previousDueBalance", resolved[1].PreviousDueBalance, "2000")
	assertAmount(t, "feb netAmountDue", resolved[1].NetAmountDue, "0")
	// The overpayment drives the running balance negative, so March starts clean.
	assertAmount(t, "mar previousDueBalance", resolved[2].PreviousDueBalance, "0")
}

func TestResolveRejectsNegativeAmounts(t *testing.T) {
	cases := []struct {
		name  string
		field string
		set   func(m *MonthlyAccrual)
	}{
		{"earned", "earnedSalary", func(m *MonthlyAccrual) { m.EarnedSalary = amount("-1") }},
		{"advances", "totalAdvances", func(m *MonthlyAccrual) { m.TotalAdvances = amount("-0.01") }},
		{"paid", "totalPaid", func(m *MonthlyAccrual) { m.TotalPaid = amount("-250") }},
		{"present days", "presentDays", func(m *MonthlyAccrual) { m.PresentDays = -2 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			months := unresolvedYear("emp-1")
			tc.set(&months[4])

			_, err := utcPolicy().Resolve(months)
			if !errors.Is(err, ErrArithmeticPolicy) {
				t.Fatalf("expected arithmetic policy violation, got %v", err)
			}
			var violation *ArithmeticPolicyViolation
			if !errors.As(err, &violation) {
				t.Fatalf("expected *ArithmeticPolicyViolation, got %T", err)
			}
			if violation.Field != tc.field {
				t.Fatalf("expected field %s, got %s", tc.field, violation.Field)
			}
			if violation.EmployeeID != "emp-1" || violation.Month != 4 {
				t.Fatalf("unexpected location %s/%d", violation.EmployeeID, violation.Month)
			}
			if !violation.Value.IsNegative() {
				t.Fatalf("expected the offending negative value, got %s", violation.Value)
			}
		})
	}
}

func TestResolveRejectsMisplacedMonth(t *testing.T) {
	months := unresolvedYear("emp-1")
	months[6].Month = 7

	_, err := utcPolicy().Resolve(months)
	if !errors.Is(err, ErrArithmeticPolicy) {
		t.Fatalf("expected arithmetic policy violation, got %v", err)
	}
	var violation *ArithmeticPolicyViolation
	if !errors.As(err, &violation) {
		t.Fatalf("expected *ArithmeticPolicyViolation, got %T", err)
	}
	if violation.Field != "month" || violation.Month != 7 {
		t.Fatalf("unexpected violation %+v", violation)
	}
	assertAmount(t, "slot", violation.Value, "6")
}
