package store

import "errors"

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrDuplicateKey   = errors.New("already exists")
	// ErrStatusConflict is returned by conditional updates whose row exists
	// but is no longer in the status the update expects.
	ErrStatusConflict = errors.New("job status changed concurrently")
)
