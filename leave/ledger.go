/*
ledger.go - Per (organization, employee, leave type, year) balance ledger

PURPOSE:
  Tracks opening, earned, used, and closing balance for one key and moves
  Used in response to approvals (debit) and cancellations (credit).

CRITICAL INVARIANTS:
  1. ClosingBalance == OpeningBalance + Earned - Used, before and after every call
  2. Used >= 0
  3. Used only changes through Debit/Credit
  4. Mutations on the same key are serialized (no lost updates)

CONCURRENCY:
  Every mutation takes the key's mutex and then runs its read-modify-write
  inside TxStore.WithTx. Lock order is always key mutex -> store transaction.
  RequestService uses the same path (within) so an approval's status change
  and its debit commit together.

EXAMPLE:
  ledger := leave.NewBalanceLedger(store)
  bal, err := ledger.Debit(ctx, leave.BalanceKey{"org-1", "emp-1", "vacation", 2025}, days(3))
  if errors.Is(err, leave.ErrInsufficientBalance) {
      // surface "balance exhausted"
  }

SEE ALSO:
  - request.go: Approve/Cancel call debit/credit inside their transaction
  - types.go: LeaveBalance and the recompute helper
*/
package leave

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// =============================================================================
// BALANCE LEDGER
// =============================================================================

type BalanceLedger struct {
	store          TxStore
	locks          *keyLocks
	allowOverdraft bool
	clock          func() time.Time
	logger         *zap.Logger
}

type LedgerOption func(*BalanceLedger)

// WithOverdraft lets debits drive ClosingBalance below zero.
// Organizational policy; the default blocks.
func WithOverdraft(allow bool) LedgerOption {
	return func(l *BalanceLedger) { l.allowOverdraft = allow }
}

func WithLedgerClock(clock func() time.Time) LedgerOption {
	return func(l *BalanceLedger) { l.clock = clock }
}

func WithLedgerLogger(logger *zap.Logger) LedgerOption {
	return func(l *BalanceLedger) { l.logger = logger.Named("leave.ledger") }
}

func NewBalanceLedger(store TxStore, opts ...LedgerOption) *BalanceLedger {
	l := &BalanceLedger{
		store:  store,
		locks:  newKeyLocks(),
		clock:  time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// GetOrInitialize returns the row for key, creating a zero row if missing.
func (l *BalanceLedger) GetOrInitialize(ctx context.Context, key BalanceKey) (LeaveBalance, error) {
	var out LeaveBalance
	err := l.within(ctx, key, func(s Store) error {
		b, err := l.load(ctx, s, key)
		if err != nil {
			return err
		}
		out = b
		return nil
	})
	return out, err
}

// Debit increases Used by days.
func (l *BalanceLedger) Debit(ctx context.Context, key BalanceKey, days decimal.Decimal) (LeaveBalance, error) {
	var out LeaveBalance
	err := l.within(ctx, key, func(s Store) error {
		b, err := l.debit(ctx, s, key, days)
		out = b
		return err
	})
	return out, err
}

// Credit decreases Used by days, reversing an earlier debit.
func (l *BalanceLedger) Credit(ctx context.Context, key BalanceKey, days decimal.Decimal) (LeaveBalance, error) {
	var out LeaveBalance
	err := l.within(ctx, key, func(s Store) error {
		b, err := l.credit(ctx, s, key, days)
		out = b
		return err
	})
	return out, err
}

// SetEntitlement records the opening balance and earned days for a key.
// Seeding these is an HR/payroll concern; this is the hook it calls.
func (l *BalanceLedger) SetEntitlement(ctx context.Context, key BalanceKey, opening, earned decimal.Decimal) (LeaveBalance, error) {
	if opening.IsNegative() || earned.IsNegative() {
		return LeaveBalance{}, fmt.Errorf("%w: opening %s, earned %s", ErrInvalidAmount, opening, earned)
	}
	var out LeaveBalance
	err := l.within(ctx, key, func(s Store) error {
		b, err := l.load(ctx, s, key)
		if err != nil {
			return err
		}
		b.OpeningBalance = opening
		b.Earned = earned
		b.recompute()
		if b.ClosingBalance.IsNegative() && !l.allowOverdraft {
			return &InsufficientBalanceError{
				Key:       key,
				Available: b.Entitlement(),
				Requested: b.Used,
				Shortfall: b.ClosingBalance.Neg(),
			}
		}
		b.UpdatedAt = l.clock()
		if err := s.PutBalance(ctx, b); err != nil {
			return fmt.Errorf("failed to write balance: %w", err)
		}
		out = b
		return nil
	})
	if err == nil {
		l.logger.Info("entitlement set",
			zap.String("employee_id", key.EmployeeID),
			zap.String("leave_type_id", key.LeaveTypeID),
			zap.Int("year", key.Year),
			zap.String("opening", opening.String()),
			zap.String("earned", earned.String()),
		)
	}
	return out, err
}

// Balances lists every row for an employee of an organization in a year.
// Read-only.
func (l *BalanceLedger) Balances(ctx context.Context, organizationID, employeeID string, year int) ([]LeaveBalance, error) {
	return l.store.ListBalances(ctx, organizationID, employeeID, year)
}

// =============================================================================
// INTERNALS - Callers must hold the key lock and an open transaction
// =============================================================================

// within serializes fn on key and runs it in a store transaction.
func (l *BalanceLedger) within(ctx context.Context, key BalanceKey, fn func(Store) error) error {
	unlock := l.locks.lock(key)
	defer unlock()
	return l.store.WithTx(ctx, fn)
}

func (l *BalanceLedger) load(ctx context.Context, s Store, key BalanceKey) (LeaveBalance, error) {
	existing, err := s.Balance(ctx, key)
	if err != nil {
		return LeaveBalance{}, fmt.Errorf("failed to read balance: %w", err)
	}
	if existing != nil {
		return *existing, nil
	}
	b := NewLeaveBalance(key, l.clock())
	if err := s.PutBalance(ctx, b); err != nil {
		return LeaveBalance{}, fmt.Errorf("failed to initialize balance: %w", err)
	}
	return b, nil
}

func (l *BalanceLedger) debit(ctx context.Context, s Store, key BalanceKey, days decimal.Decimal) (LeaveBalance, error) {
	if !days.IsPositive() {
		return LeaveBalance{}, fmt.Errorf("%w: debit %s", ErrInvalidAmount, days)
	}
	b, err := l.load(ctx, s, key)
	if err != nil {
		return LeaveBalance{}, err
	}

	next := b
	next.Used = b.Used.Add(days)
	next.recompute()
	if next.ClosingBalance.IsNegative() && !l.allowOverdraft {
		return b, &InsufficientBalanceError{
			Key:       key,
			Available: b.ClosingBalance,
			Requested: days,
			Shortfall: next.ClosingBalance.Neg(),
		}
	}

	next.UpdatedAt = l.clock()
	if err := s.PutBalance(ctx, next); err != nil {
		return b, fmt.Errorf("failed to write balance: %w", err)
	}
	return next, nil
}

func (l *BalanceLedger) credit(ctx context.Context, s Store, key BalanceKey, days decimal.Decimal) (LeaveBalance, error) {
	if !days.IsPositive() {
		return LeaveBalance{}, fmt.Errorf("%w: credit %s", ErrInvalidAmount, days)
	}
	b, err := l.load(ctx, s, key)
	if err != nil {
		return LeaveBalance{}, err
	}

	next := b
	next.Used = b.Used.Sub(days)
	if next.Used.IsNegative() {
		return b, &CreditAmountError{Key: key, Used: b.Used, Requested: days}
	}
	next.recompute()

	next.UpdatedAt = l.clock()
	if err := s.PutBalance(ctx, next); err != nil {
		return b, fmt.Errorf("failed to write balance: %w", err)
	}
	return next, nil
}

// =============================================================================
// KEY LOCKS - One mutex per ledger key, dropped when idle
// =============================================================================

type keyLocks struct {
	mu    sync.Mutex
	locks map[BalanceKey]*keyLock
}

type keyLock struct {
	mu      sync.Mutex
	waiters int
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: make(map[BalanceKey]*keyLock)}
}

func (k *keyLocks) lock(key BalanceKey) func() {
	k.mu.Lock()
	kl, ok := k.locks[key]
	if !ok {
		kl = &keyLock{}
		k.locks[key] = kl
	}
	kl.waiters++
	k.mu.Unlock()

	kl.mu.Lock()
	return func() {
		kl.mu.Unlock()
		k.mu.Lock()
		kl.waiters--
		if kl.waiters == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
