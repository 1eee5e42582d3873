package attendance

import "errors"

var (
	ErrAlreadyMarked = errors.New("attendance already marked today")
	ErrInvalidPeriod = errors.New("invalid period")
)
