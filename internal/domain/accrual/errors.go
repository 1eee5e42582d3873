package accrual

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrValidation       = errors.New("validation failed")
	ErrIncompleteData   = errors.New("incomplete record data")
	ErrArithmeticPolicy = errors.New("arithmetic policy violation")
)

// ValidationError describes one rejected input. Per-record validation errors
// are collected as warnings and never abort a computation.
type ValidationError struct {
	RecordID   string `json:"recordId,omitempty"`
	EmployeeID string `json:"employeeId,omitempty"`
	Field      string `json:"field"`
	Reason     string `json:"reason"`
}

func (e *ValidationError) Error() string {
	if e.RecordID != "" {
		return fmt.Sprintf("record %s: %s %s", e.RecordID, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// IncompleteDataError reports that one of the three record sets of an
// employee could not be resolved.
type IncompleteDataError struct {
	EmployeeID string
	RecordSet  string
	Err        error
}

func (e *IncompleteDataError) Error() string {
	return fmt.Sprintf("employee %s: %s unavailable: %v", e.EmployeeID, e.RecordSet, e.Err)
}

func (e *IncompleteDataError) Unwrap() error {
	return e.Err
}

func (e *IncompleteDataError) Is(target error) bool {
	return target == ErrIncompleteData
}

type ArithmeticPolicyViolation struct {
	EmployeeID string
	Month      int
	Field      string
	Value      decimal.Decimal
}

func (e *ArithmeticPolicyViolation) Error() string {
	return fmt.Sprintf("employee %s month %d: %s is %s", e.EmployeeID, e.Month, e.Field, e.Value.String())
}

func (e *ArithmeticPolicyViolation) Is(target error) bool {
	return target == ErrArithmeticPolicy
}
