package ledger

import "errors"

var (
	ErrInvalidAmount = errors.New("amount must be positive")
	ErrInvalidPeriod = errors.New("invalid period")
)
