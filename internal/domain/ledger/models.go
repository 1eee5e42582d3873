package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"staffledger/internal/domain/accrual"
)

const (
	KindAdvance = "advance"
	KindPayment = "payment"
)

type Advance struct {
	ID         string          `json:"id"`
	EmployeeID string          `json:"employeeId"`
	Amount     decimal.Decimal `json:"amount"`
	Date       time.Time       `json:"date"`
	Note       string          `json:"note,omitempty"`
	RecordedBy string          `json:"recordedBy,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

func (a Advance) Record() accrual.AdvanceRecord {
	return accrual.AdvanceRecord{ID: a.ID, EmployeeID: a.EmployeeID, Amount: a.Amount, Date: a.Date}
}

// Payment is a confirmed salary payment. Month and Year name the period the
// payer selected; balances bucket the payment by DatePaid.
type Payment struct {
	ID         string          `json:"id"`
	EmployeeID string          `json:"employeeId"`
	AmountPaid decimal.Decimal `json:"amountPaid"`
	DatePaid   time.Time       `json:"datePaid"`
	Month      *int            `json:"month,omitempty"`
	Year       *int            `json:"year,omitempty"`
	RecordedBy string          `json:"recordedBy,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

func (p Payment) Record() accrual.PaymentRecord {
	return accrual.PaymentRecord{ID: p.ID, EmployeeID: p.EmployeeID, AmountPaid: p.AmountPaid, DatePaid: p.DatePaid, Month: p.Month, Year: p.Year}
}

type AdvanceInput struct {
	Amount decimal.Decimal `json:"amount"`
	Date   time.Time       `json:"date"`
	Note   string          `json:"note"`
}

type PaymentInput struct {
	Amount decimal.Decimal `json:"amount"`
	Date   time.Time       `json:"date"`
	Month  *int            `json:"month"`
	Year   *int            `json:"year"`
}

// Transaction is one advance or payment in an employee's statement.
type Transaction struct {
	ID     string          `json:"id"`
	Kind   string          `json:"kind"`
	Amount decimal.Decimal `json:"amount"`
	Date   time.Time       `json:"date"`
	Note   string          `json:"note,omitempty"`
	Month  *int            `json:"month,omitempty"`
	Year   *int            `json:"year,omitempty"`
}

// Filter narrows a statement. Year alone selects a calendar year, Year with
// Month a single month, and Month alone that month in every year.
type Filter struct {
	Year  *int
	Month *int
}

// Notice is sent to the employee after a record is stored.
type Notice struct {
	Kind          string
	EmployeeID    string
	EmployeeName  string
	EmployeeEmail string
	Amount        decimal.Decimal
	At            time.Time
}
