/*
Package leave implements the leave request lifecycle and the balance ledger.

PURPOSE:
  This package owns the rules that decide whether an employee's time-off
  request is acceptable, how many days it charges, and how those days move
  through a per-employee, per-leave-type, per-year balance. Everything else
  in an HR application (forms, calendars, payroll) consumes this package.

KEY CONCEPTS IN THIS FILE (types.go):
  - LeaveRequest: A submitted request and its decision trail
  - Draft: What an employee fills in before submitting
  - Status: PENDING -> APPROVED | REJECTED | CANCELLED
  - BalanceKey / LeaveBalance: One ledger row per (organization, employee, leave type, year)

DESIGN PRINCIPLES:
  1. Precision: Day counts and balances use decimal.Decimal (half days are exact)
  2. Calendar days: Dates are compared at day resolution, time-of-day ignored
  3. Retention: Requests are never deleted, only moved to a terminal status
  4. One rule set: Validator is pure and shared by preview and submit

USAGE:
  svc := leave.NewRequestService(store, policies)
  req, err := svc.Submit(ctx, leave.Draft{...})
  req, err = svc.Approve(ctx, req.ID, "mgr-1", "enjoy")

SEE ALSO:
  - duration.go: Chargeable day computation
  - validator.go: Draft validation against a LeaveTypePolicy
  - ledger.go: Debit/credit with per-key serialization
  - request.go: The state machine orchestrating validator and ledger
*/
package leave

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// STATUS - Request lifecycle states
// =============================================================================

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusCancelled Status = "CANCELLED"
)

// IsTerminal reports whether no further transition is allowed.
// APPROVED is terminal for approve/reject but can still be cancelled.
func (s Status) IsTerminal() bool {
	return s == StatusRejected || s == StatusCancelled
}

// CanTransition encodes the state machine:
//
//	PENDING  -> APPROVED | REJECTED | CANCELLED
//	APPROVED -> CANCELLED
func (s Status) CanTransition(to Status) bool {
	switch s {
	case StatusPending:
		return to == StatusApproved || to == StatusRejected || to == StatusCancelled
	case StatusApproved:
		return to == StatusCancelled
	default:
		return false
	}
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// =============================================================================
// REQUEST
// =============================================================================

type EmergencyContact struct {
	Name         string
	Phone        string
	Relationship string
	Email        string
}

// LeaveRequest is a persisted request. TotalDays is computed once at
// submission and never changes; editing dates means cancel and resubmit.
type LeaveRequest struct {
	ID             string
	OrganizationID string
	EmployeeID     string
	LeaveTypeID    string

	StartDate time.Time
	EndDate   time.Time
	IsHalfDay bool
	TotalDays decimal.Decimal

	Reason            string
	WorkHandoverNotes string
	EmergencyContact  *EmergencyContact
	AttachmentCount   int

	Status Status

	AppliedAt       time.Time
	DecidedAt       *time.Time
	DecidedBy       string
	DecisionComment string
	CancelledAt     *time.Time
	CancelledBy     string
}

// BalanceKey returns the ledger row this request charges.
// The year is the calendar year of the start date.
func (r *LeaveRequest) BalanceKey() BalanceKey {
	return BalanceKey{
		OrganizationID: r.OrganizationID,
		EmployeeID:     r.EmployeeID,
		LeaveTypeID:    r.LeaveTypeID,
		Year:           r.StartDate.Year(),
	}
}

// Draft is the caller-supplied input to Validate and Submit.
type Draft struct {
	OrganizationID string
	EmployeeID     string
	LeaveTypeID    string

	StartDate time.Time
	EndDate   time.Time
	IsHalfDay bool

	Reason            string
	WorkHandoverNotes string
	EmergencyContact  *EmergencyContact

	// AttachmentCount is the only signal needed from the attachment store.
	AttachmentCount int
}

// Normalize returns the draft with dates truncated to calendar days and,
// for half-day requests, EndDate forced to StartDate.
func (d Draft) Normalize() Draft {
	d.StartDate = Day(d.StartDate)
	if d.IsHalfDay {
		d.EndDate = d.StartDate
	} else {
		d.EndDate = Day(d.EndDate)
	}
	return d
}

// RequestFilter narrows ListRequests. Zero values mean "any".
type RequestFilter struct {
	OrganizationID string
	EmployeeID     string
	LeaveTypeID    string
	Status         Status
	Limit          int
}

// =============================================================================
// BALANCE - One ledger row per (organization, employee, leave type, year)
// =============================================================================

// BalanceKey identifies a ledger row. Leave types are per organization, so
// the organization is part of the key.
type BalanceKey struct {
	OrganizationID string
	EmployeeID     string
	LeaveTypeID    string
	Year           int
}

// LeaveBalance holds the running totals for one key.
//
// INVARIANT: ClosingBalance == OpeningBalance + Earned - Used
type LeaveBalance struct {
	BalanceKey

	OpeningBalance decimal.Decimal
	Earned         decimal.Decimal
	Used           decimal.Decimal
	ClosingBalance decimal.Decimal

	UpdatedAt time.Time
}

// NewLeaveBalance returns an all-zero row for key.
func NewLeaveBalance(key BalanceKey, at time.Time) LeaveBalance {
	return LeaveBalance{
		BalanceKey:     key,
		OpeningBalance: decimal.Zero,
		Earned:         decimal.Zero,
		Used:           decimal.Zero,
		ClosingBalance: decimal.Zero,
		UpdatedAt:      at,
	}
}

// Entitlement is opening + earned.
func (b LeaveBalance) Entitlement() decimal.Decimal {
	return b.OpeningBalance.Add(b.Earned)
}

// recompute is the only place ClosingBalance is derived.
func (b *LeaveBalance) recompute() {
	b.ClosingBalance = b.Entitlement().Sub(b.Used)
}

// Check verifies the ledger invariant.
func (b LeaveBalance) Check() bool {
	return b.ClosingBalance.Equal(b.Entitlement().Sub(b.Used)) && !b.Used.IsNegative()
}
