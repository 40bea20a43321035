package leave

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrValidation          = errors.New("validation failed")
	ErrInsufficientCredits = errors.New("insufficient leave credits")
	ErrNotEligible         = errors.New("not eligible for credited leave")
	ErrStateConflict       = errors.New("leave request state conflict")
	ErrNotFound            = errors.New("leave request not found")
	ErrUnknownRole         = errors.New("unknown role")
	// ErrRestoreIncomplete means the ledger no longer holds enough used
	// credits to take back a deduction.
	ErrRestoreIncomplete = errors.New("credit restoration incomplete")
)

type ValidationError struct {
	Field  string
	Reason string
	// Err optionally names a more specific sentinel, e.g. ErrUnknownRole.
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrValidation, e.Err}
	}
	return []error{ErrValidation}
}

// InsufficientCreditsError carries the numbers behind a failed deduction.
type InsufficientCreditsError struct {
	EmployeeID string
	Year       int
	Requested  decimal.Decimal
	Available  decimal.Decimal
	Shortfall  decimal.Decimal
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient leave credits for %d: requested %s, available %s (short %s)",
		e.Year, e.Requested, e.Available, e.Shortfall)
}

func (e *InsufficientCreditsError) Unwrap() error { return ErrInsufficientCredits }

type NotEligibleError struct {
	EmployeeID   string
	EligibleFrom time.Time
}

func (e *NotEligibleError) Error() string {
	if e.EligibleFrom.IsZero() {
		return "credited leave requires a hired date"
	}
	return fmt.Sprintf("credited leave is available from %s", e.EligibleFrom.Format(time.DateOnly))
}

func (e *NotEligibleError) Unwrap() error { return ErrNotEligible }

type StateConflictError struct {
	RequestID string
	From      Status
	Action    string
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("cannot %s leave request %s in status %s", e.Action, e.RequestID, e.From)
}

func (e *StateConflictError) Unwrap() error { return ErrStateConflict }
