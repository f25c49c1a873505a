package db

import "fmt"

var (
	ErrNotFound      = fmt.Errorf("not found")
	ErrInvalidData   = fmt.Errorf("invalid data provided")
	ErrAlreadyExists = fmt.Errorf("already exists")
	// ErrConflict means a unique key was reused with different data, as
	// opposed to a plain duplicate of the same data.
	ErrConflict       = fmt.Errorf("conflicting data for existing key")
	ErrInvalidAmount  = fmt.Errorf("amount must be greater than zero")
	ErrUnknownAccount = fmt.Errorf("unknown ledger account")
)
