package repository

import "errors"

// ErrNotFound is returned when a requested record is not found in the repository.
// This abstracts away the underlying storage implementation (SQL, NoSQL, etc.)
// from the service layer.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when an insert collides with an existing primary
// key or unique field.
var ErrDuplicate = errors.New("duplicate record")

// ErrContention is returned when a transaction could not commit within the
// configured number of attempts.
var ErrContention = errors.New("transaction contention: retries exhausted")
