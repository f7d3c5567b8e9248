package borrowing

import (
	"errors"
	"fmt"
)

// Kind classifies a borrowing failure. Callers map kinds to transport
// responses; the code gives clients a stable string to branch on.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindLimitExceeded
	KindUnavailable
	KindNoActiveLoan
	KindConflict
	KindStore
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindLimitExceeded:
		return "limit_exceeded"
	case KindUnavailable:
		return "unavailable"
	case KindNoActiveLoan:
		return "no_active_loan"
	case KindConflict:
		return "conflict"
	case KindStore:
		return "store"
	}
	return "unknown"
}

// Machine-readable error codes.
const (
	CodeInvalidInput    = "invalid_input"
	CodeUserNotFound    = "user_not_found"
	CodeBookNotFound    = "book_not_found"
	CodeLimitExceeded   = "limit_exceeded"
	CodeBookUnavailable = "book_unavailable"
	CodeNoActiveLoan    = "no_active_loan"
	CodeLoanConflict    = "loan_conflict"
	CodeStoreError      = "store_error"
)

// Error is returned by every Service operation.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
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

// Is matches on kind, so errors.Is(err, ErrNotFound) holds for both a
// missing user and a missing book.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Code == "" || t.Code == e.Code)
}

// Retryable hints whether the same request may succeed later.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindUnavailable, KindConflict, KindStore:
		return true
	}
	return false
}

// Sentinels for errors.Is.
var (
	ErrValidation    = &Error{Kind: KindValidation}
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrUserNotFound  = &Error{Kind: KindNotFound, Code: CodeUserNotFound}
	ErrBookNotFound  = &Error{Kind: KindNotFound, Code: CodeBookNotFound}
	ErrLimitExceeded = &Error{Kind: KindLimitExceeded}
	ErrUnavailable   = &Error{Kind: KindUnavailable}
	ErrNoActiveLoan  = &Error{Kind: KindNoActiveLoan}
	ErrConflict      = &Error{Kind: KindConflict}
	ErrStore         = &Error{Kind: KindStore}
)

// AsError extracts the *Error from err.
func AsError(err error) (*Error, bool) {
	var be *Error
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}

func invalidInput(msg string) *Error {
	return &Error{Kind: KindValidation, Code: CodeInvalidInput, Message: msg}
}

func userNotFound() *Error {
	return &Error{Kind: KindNotFound, Code: CodeUserNotFound, Message: "user not found"}
}

func bookNotFound() *Error {
	return &Error{Kind: KindNotFound, Code: CodeBookNotFound, Message: "book not found"}
}

func limitExceeded(limit int) *Error {
	return &Error{
		Kind:    KindLimitExceeded,
		Code:    CodeLimitExceeded,
		Message: fmt.Sprintf("borrow limit of %d books reached", limit),
	}
}

func bookUnavailable() *Error {
	return &Error{Kind: KindUnavailable, Code: CodeBookUnavailable, Message: "book is currently unavailable"}
}

func noActiveLoan() *Error {
	return &Error{Kind: KindNoActiveLoan, Code: CodeNoActiveLoan, Message: "no active loan for this book"}
}

func loanConflict(err error) *Error {
	return &Error{Kind: KindConflict, Code: CodeLoanConflict, Message: "book was borrowed concurrently", Err: err}
}

func storeError(op string, err error) *Error {
	return &Error{Kind: KindStore, Code: CodeStoreError, Message: op + " failed", Err: err}
}
