package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind represents the type of error
type Kind int

const (
	ErrInternal Kind = iota
	ErrUnavailable
)

func (k Kind) String() string {
	if k == ErrUnavailable {
		return "unavailable"
	}
	return "internal"
}

// Error is an application-level error with a kind for classification
type Error struct {
	Kind    Kind
	Message string
	Err     error // underlying error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Unavailable marks a failure to reach the backing store. The caller may retry
// reads; writes must be treated as not committed.
func Unavailable(err error) *Error {
	return &Error{Kind: ErrUnavailable, Message: "persistence unavailable", Err: err}
}

// IsKind reports whether any error in err's chain is an *Error of the given kind
func IsKind(err error, kind Kind) bool {
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}
