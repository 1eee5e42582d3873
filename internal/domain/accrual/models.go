package accrual

import (
	"time"

	"github.com/shopspring/decimal"
)

type Employee struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	BaseSalary  decimal.Decimal `json:"baseSalary"`
	JoiningDate time.Time       `json:"joiningDate"`
}

type AttendanceRecord struct {
	ID         string    `json:"id"`
	EmployeeID string    `json:"employeeId"`
	Timestamp  time.Time `json:"timestamp"`
}

type AdvanceRecord struct {
	ID         string          `json:"id"`
	EmployeeID string          `json:"employeeId"`
	Amount     decimal.Decimal `json:"amount"`
	Date       time.Time       `json:"date"`
}

// PaymentRecord is bucketed by DatePaid. Month and Year are the period the
// payer selected when confirming and are informational only.
type PaymentRecord struct {
	ID         string          `json:"id"`
	EmployeeID string          `json:"employeeId"`
	AmountPaid decimal.Decimal `json:"amountPaid"`
	DatePaid   time.Time       `json:"datePaid"`
	Month      *int            `json:"month,omitempty"`
	Year       *int            `json:"year,omitempty"`
}

type Status string

type MonthlyAccrual struct {
	EmployeeID         string          `json:"employeeId"`
	Year               int             `json:"year"`
	Month              int             `json:"month"`
	PresentDays        int             `json:"presentDays"`
	EarnedSalary       decimal.Decimal `json:"earnedSalary"`
	TotalAdvances      decimal.Decimal `json:"totalAdvances"`
	TotalPaid          decimal.Decimal `json:"totalPaid"`
	PreviousDueBalance decimal.Decimal `json:"previousDueBalance"`
	NetAmountDue       decimal.Decimal `json:"netAmountDue"`
	Status             Status          `json:"status"`
}

// Surplus is earned minus advances minus paid for the month alone. It is
// negative when the month was overpaid.
func (m MonthlyAccrual) Surplus() decimal.Decimal {
	return m.EarnedSalary.Sub(m.TotalAdvances).Sub(m.TotalPaid)
}

// Year holds the twelve resolved months of one employee, January first.
type Year [MonthsPerYear]MonthlyAccrual
