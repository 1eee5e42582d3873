package accrual

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Policy struct {
	PerDiemDivisor decimal.Decimal
	PaidEpsilon    decimal.Decimal
	// Location decides which local calendar day a timestamp falls on.
	Location *time.Location
}

func DefaultPolicy() Policy {
	return Policy{
		PerDiemDivisor: decimal.NewFromInt(DefaultPerDiemDivisor),
		PaidEpsilon:    decimal.RequireFromString(DefaultPaidEpsilon),
		Location:       time.Local,
	}
}

func (p Policy) Validate() error {
	if !p.PerDiemDivisor.IsPositive() {
		return fmt.Errorf("per diem divisor must be positive, got %s", p.PerDiemDivisor)
	}
	if p.PaidEpsilon.IsNegative() {
		return fmt.Errorf("paid epsilon must not be negative, got %s", p.PaidEpsilon)
	}
	return nil
}

func (p Policy) location() *time.Location {
	if p.Location == nil {
		return time.Local
	}
	return p.Location
}

type Rounding string

const (
	RoundNone  Rounding = "none"
	RoundWhole Rounding = "whole"
)

func ParseRounding(value string) (Rounding, error) {
	switch Rounding(strings.ToLower(strings.TrimSpace(value))) {
	case "", RoundNone:
		return RoundNone, nil
	case RoundWhole:
		return RoundWhole, nil
	default:
		return "", fmt.Errorf("unknown rounding %q", value)
	}
}

// Rounded returns a presentation copy of m. Status is kept from the
// unrounded values.
func (m MonthlyAccrual) Rounded(r Rounding) MonthlyAccrual {
	if r != RoundWhole {
		return m
	}
	m.EarnedSalary = m.EarnedSalary.Round(0)
	m.TotalAdvances = m.TotalAdvances.Round(0)
	m.TotalPaid = m.TotalPaid.Round(0)
	m.PreviousDueBalance = m.PreviousDueBalance.Round(0)
	m.NetAmountDue = m.NetAmountDue.Round(0)
	return m
}
