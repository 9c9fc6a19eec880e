package contract

import "errors"

var (
	// ErrConflict: the row changed since it was read, or a concurrent insert won.
	ErrConflict = errors.New("concurrent modification")
	// ErrDuplicate: a unique column other than the id already holds the value.
	ErrDuplicate = errors.New("duplicate value")
)
