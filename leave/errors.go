/*
errors.go - Error taxonomy for the leave core

ERROR CATEGORIES:
  1. Validation kinds - collected, never fail-fast (ErrorKind + FieldError)
  2. Configuration   - PolicyNotFound
  3. Ledger          - InsufficientBalance, InvalidCreditAmount, InvalidAmount
  4. State machine   - InvalidStateTransition

USAGE:
  Callers branch with errors.Is on the sentinels and errors.As on the
  structured types when they need the details:

    var insufficient *leave.InsufficientBalanceError
    if errors.As(err, &insufficient) {
        fmt.Println("short by", insufficient.Shortfall)
    }

SEE ALSO:
  - validator.go: Produces FieldError values
  - api/errors.go: Maps these errors to HTTP responses
*/
package leave

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrInvalidDateRange       = errors.New("invalid date range")
	ErrPolicyNotFound         = errors.New("leave type unavailable")
	ErrRequestNotFound        = errors.New("leave request not found")
	ErrValidationFailed       = errors.New("leave request validation failed")
	ErrInsufficientBalance    = errors.New("insufficient leave balance")
	ErrInvalidCreditAmount    = errors.New("invalid credit amount")
	ErrInvalidAmount          = errors.New("amount must be positive")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrInvalidPolicy          = errors.New("invalid leave type policy")
	ErrMissingIdentity        = errors.New("employee or actor id is required")
)

// =============================================================================
// VALIDATION KINDS
// =============================================================================

type ErrorKind string

const (
	KindInvalidDateRange          ErrorKind = "InvalidDateRange"
	KindInsufficientAdvanceNotice ErrorKind = "InsufficientAdvanceNotice"
	KindDurationExceedsPolicy     ErrorKind = "DurationExceedsPolicy"
	KindMissingRequiredDocuments  ErrorKind = "MissingRequiredDocuments"
	KindMissingWorkHandover       ErrorKind = "MissingWorkHandover"
	KindMissingEmergencyContact   ErrorKind = "MissingEmergencyContact"
	KindMissingReason             ErrorKind = "MissingReason"
)

// FieldError is one entry of a ValidationResult. Limit carries the policy
// number the draft failed against (notice days, max duration).
type FieldError struct {
	Kind    ErrorKind
	Limit   int
	Message string
}

func newFieldError(kind ErrorKind, limit int) FieldError {
	return FieldError{Kind: kind, Limit: limit, Message: kind.Message(limit)}
}

// Message returns the text shown to the employee.
func (k ErrorKind) Message(limit int) string {
	switch k {
	case KindInvalidDateRange:
		return "End date must be on or after the start date; a half-day leave must start and end on the same day."
	case KindInsufficientAdvanceNotice:
		return fmt.Sprintf("This leave type must be requested at least %d day(s) before it starts.", limit)
	case KindDurationExceedsPolicy:
		return fmt.Sprintf("This leave type allows at most %d day(s) per request.", limit)
	case KindMissingRequiredDocuments:
		return "This leave type requires at least one supporting document."
	case KindMissingWorkHandover:
		return fmt.Sprintf("Work handover notes are required for leave longer than %d day(s).", limit)
	case KindMissingEmergencyContact:
		return fmt.Sprintf("An emergency contact name and phone are required for leave longer than %d day(s).", limit)
	case KindMissingReason:
		return "Please give a reason for the leave."
	default:
		return string(k)
	}
}

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// DateRangeError is returned by ComputeDays.
type DateRangeError struct {
	Start   time.Time
	End     time.Time
	HalfDay bool
}

func (e *DateRangeError) Error() string {
	if e.HalfDay {
		return fmt.Sprintf("invalid date range: half-day leave must start and end on the same day (%s..%s)",
			e.Start.Format(time.DateOnly), e.End.Format(time.DateOnly))
	}
	return fmt.Sprintf("invalid date range: end %s before start %s",
		e.End.Format(time.DateOnly), e.Start.Format(time.DateOnly))
}

func (e *DateRangeError) Unwrap() error { return ErrInvalidDateRange }

// ValidationError wraps a failed ValidationResult so Submit can return it
// as an error while keeping every field problem.
type ValidationError struct {
	Result ValidationResult
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("leave request validation failed: %d problem(s)", len(e.Result.Errors))
}

func (e *ValidationError) Unwrap() error { return ErrValidationFailed }

// PolicyNotFoundError names the leave type that could not be resolved.
type PolicyNotFoundError struct {
	OrganizationID string
	LeaveTypeID    string
	Inactive       bool
}

func (e *PolicyNotFoundError) Error() string {
	if e.Inactive {
		return fmt.Sprintf("leave type unavailable: %s is disabled for organization %s", e.LeaveTypeID, e.OrganizationID)
	}
	return fmt.Sprintf("leave type unavailable: %s not found for organization %s", e.LeaveTypeID, e.OrganizationID)
}

func (e *PolicyNotFoundError) Unwrap() error { return ErrPolicyNotFound }

// InsufficientBalanceError provides details about a balance shortage.
type InsufficientBalanceError struct {
	Key       BalanceKey
	Available decimal.Decimal
	Requested decimal.Decimal
	Shortfall decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient leave balance for %s/%s/%d: available %s, requested %s, shortfall %s",
		e.Key.EmployeeID, e.Key.LeaveTypeID, e.Key.Year, e.Available, e.Requested, e.Shortfall)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// CreditAmountError is returned when a credit would push Used below zero.
type CreditAmountError struct {
	Key       BalanceKey
	Used      decimal.Decimal
	Requested decimal.Decimal
}

func (e *CreditAmountError) Error() string {
	return fmt.Sprintf("invalid credit amount for %s/%s/%d: used %s, credit %s",
		e.Key.EmployeeID, e.Key.LeaveTypeID, e.Key.Year, e.Used, e.Requested)
}

func (e *CreditAmountError) Unwrap() error { return ErrInvalidCreditAmount }

// StateTransitionError reports an action attempted from the wrong status.
type StateTransitionError struct {
	RequestID string
	From      Status
	To        Status
}

func (e *StateTransitionError) Error() string {
	return fmt.Sprintf("invalid state transition for request %s: %s -> %s", e.RequestID, e.From, e.To)
}

func (e *StateTransitionError) Unwrap() error { return ErrInvalidStateTransition }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the submitter or approver can fix the input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidationFailed) ||
		errors.Is(err, ErrInvalidDateRange) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidCreditAmount) ||
		errors.Is(err, ErrInvalidPolicy) ||
		errors.Is(err, ErrMissingIdentity)
}

// IsConflict returns true for errors caused by current ledger or request state.
func IsConflict(err error) bool {
	return errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrInvalidStateTransition)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPolicyNotFound) ||
		errors.Is(err, ErrRequestNotFound)
}
