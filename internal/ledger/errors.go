package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput indicates a malformed amount or quantity. The
	// operation that reported it did not change any state.
	ErrInvalidInput = errors.New("invalid amount or quantity")

	// ErrNotFound indicates a referenced line item does not exist.
	ErrNotFound = errors.New("line item not found")

	// ErrMissingVerification indicates a commit was attempted without a
	// verified amount.
	ErrMissingVerification = errors.New("verified amount is required")

	// ErrMissingDocument indicates a commit was attempted without an open
	// document page.
	ErrMissingDocument = errors.New("no document page is open")

	// ErrInvalidAmount indicates the verified amount did not parse as a
	// number. Commits are rejected rather than written with a zero total.
	ErrInvalidAmount = errors.New("verified amount is not a number")
)

// WriteError reports a failed workbook append, naming the workbook so the
// operator can retry against the right file.
type WriteError struct {
	Workbook string
	Err      error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("writing ledger workbook %s: %v", e.Workbook, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
