/*
store.go - Persistence interface for leave records

PURPOSE:
  Defines what the core needs from storage: point lookups, inserts, and
  updates for leave types, requests, and balances, plus an append-only
  event log. The engine behind it is a collaborator.

KEY INTERFACES:
  Store:   Record access
  TxStore: Store + WithTx for atomic multi-record writes

CONVENTIONS:
  - Lookups return (nil, nil) when the record does not exist
  - Requests are never deleted
  - Events are append-only

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite (production)
  - leave/store/memory.go: In-memory (tests, dev)
*/
package leave

import "context"

// =============================================================================
// STORE - Record persistence
// =============================================================================

type Store interface {
	SaveLeaveType(ctx context.Context, p LeaveTypePolicy) error
	LeaveType(ctx context.Context, organizationID, leaveTypeID string) (*LeaveTypePolicy, error)
	ListLeaveTypes(ctx context.Context, organizationID string) ([]LeaveTypePolicy, error)

	InsertRequest(ctx context.Context, r LeaveRequest) error
	Request(ctx context.Context, id string) (*LeaveRequest, error)
	UpdateRequest(ctx context.Context, r LeaveRequest) error
	ListRequests(ctx context.Context, filter RequestFilter) ([]LeaveRequest, error)

	Balance(ctx context.Context, key BalanceKey) (*LeaveBalance, error)
	PutBalance(ctx context.Context, b LeaveBalance) error
	ListBalances(ctx context.Context, organizationID, employeeID string, year int) ([]LeaveBalance, error)

	AppendEvent(ctx context.Context, e TransitionEvent) error
	Events(ctx context.Context, requestID string) ([]TransitionEvent, error)
}

// =============================================================================
// TRANSACTIONAL STORE
// =============================================================================

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, transaction is rolled back.
	// If fn returns nil, transaction is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}
