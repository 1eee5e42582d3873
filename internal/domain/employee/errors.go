package employee

import "errors"

var (
	ErrNotFound     = errors.New("employee not found")
	ErrInvalidInput = errors.New("invalid employee input")
	ErrEmailTaken   = errors.New("email already registered")
	ErrNumberTaken  = errors.New("employee number already used")
	ErrNumberSpace  = errors.New("could not allocate a unique employee number")
)
