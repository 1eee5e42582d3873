package report

import "errors"

var (
	ErrEmployeeNotFound = errors.New("employee not in report")
	ErrInvalidPeriod    = errors.New("invalid report period")
)
