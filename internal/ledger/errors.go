package ledger

import "errors"

var (
	// ErrInvalidAmount is returned for a non-positive or missing amount
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrNotFound is returned when a department or bill does not exist
	ErrNotFound = errors.New("not found")

	// ErrMissingDocument is returned when a bill is submitted without any
	// source documents to merge.
	ErrMissingDocument = errors.New("bill submission requires at least one document")

	// ErrDuplicateBillNo is returned when a bill number is reused within a
	// department.
	ErrDuplicateBillNo = errors.New("bill number already used in this department")

	// ErrDuplicateDepartment is returned when a department name is taken
	ErrDuplicateDepartment = errors.New("department name already exists")
)
