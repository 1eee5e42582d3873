package employee

import (
	"time"

	"github.com/shopspring/decimal"

	"staffledger/internal/domain/accrual"
)

type Employee struct {
	ID             string          `json:"id"`
	UserID         string          `json:"userId,omitempty"`
	EmployeeNumber string          `json:"employeeNumber"`
	Name           string          `json:"name"`
	Email          string          `json:"email"`
	Phone          string          `json:"phone,omitempty"`
	NationalID     string          `json:"nationalId,omitempty"`
	BaseSalary     decimal.Decimal `json:"baseSalary"`
	JoiningDate    time.Time       `json:"joiningDate"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// Accrual returns the fields the payroll engine needs.
func (e Employee) Accrual() accrual.Employee {
	return accrual.Employee{ID: e.ID, Name: e.Name, BaseSalary: e.BaseSalary, JoiningDate: e.JoiningDate}
}

type EnrollInput struct {
	Name        string
	Email       string
	Phone       string
	NationalID  string
	BaseSalary  decimal.Decimal
	JoiningDate time.Time
	Password    string
}

// Assignment is one number handed out by a backfill.
type Assignment struct {
	EmployeeID     string `json:"employeeId"`
	Name           string `json:"name"`
	EmployeeNumber string `json:"employeeNumber"`
}
