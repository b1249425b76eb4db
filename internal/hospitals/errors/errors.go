package errors

import "errors"

var (
	ErrNotFound = errors.New("hospital not found")

	ErrInvalidID = errors.New("invalid hospital ID format")

	ErrCounterNotFound = errors.New("counter not found")

	ErrDuplicateCode = errors.New("hospital code already exists")
)
