/*
request.go - Leave request lifecycle

PURPOSE:
  Drives a request from submission to a terminal status, orchestrating the
  validator, the policy registry, and the balance ledger.

STATE MACHINE:
  ┌─────────┐  approve (debit)   ┌──────────┐  cancel (credit)  ┌───────────┐
  │ PENDING │ ─────────────────▶ │ APPROVED │ ────────────────▶ │ CANCELLED │
  └─────────┘                    └──────────┘                   └───────────┘
       │  reject                                                      ▲
       ├────────────────────────▶ REJECTED                            │
       │  cancel (no ledger effect)                                   │
       └──────────────────────────────────────────────────────────────┘

ATOMICITY:
  Approve and cancel-after-approval run under the ledger key lock inside a
  single store transaction: the status change, the debit/credit, and the
  audit event either all commit or none do. A failed debit leaves the
  request PENDING with Used unchanged.

NOTIFICATIONS:
  Events are persisted inside the transaction and handed to the Notifier
  after commit. A notifier failure is logged; it never undoes a transition.

SEE ALSO:
  - ledger.go: within/debit/credit
  - validator.go: Submit's gate
  - events.go: TransitionEvent, Notifier
*/
package leave

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// =============================================================================
// REQUEST SERVICE
// =============================================================================

type RequestService struct {
	store     TxStore
	policies  *PolicyRegistry
	ledger    *BalanceLedger
	validator *Validator
	notifier  Notifier
	clock     func() time.Time
	newID     func() string
	logger    *zap.Logger
}

type ServiceOption func(*RequestService)

func WithLedger(l *BalanceLedger) ServiceOption {
	return func(rs *RequestService) { rs.ledger = l }
}

func WithValidator(v *Validator) ServiceOption {
	return func(rs *RequestService) { rs.validator = v }
}

func WithNotifier(n Notifier) ServiceOption {
	return func(rs *RequestService) { rs.notifier = n }
}

func WithClock(clock func() time.Time) ServiceOption {
	return func(rs *RequestService) { rs.clock = clock }
}

func WithIDGenerator(gen func() string) ServiceOption {
	return func(rs *RequestService) { rs.newID = gen }
}

func WithLogger(logger *zap.Logger) ServiceOption {
	return func(rs *RequestService) { rs.logger = logger.Named("leave.requests") }
}

// NewRequestService wires the lifecycle. Without WithLedger it builds a
// BalanceLedger over the same store and clock.
func NewRequestService(store TxStore, policies PolicySource, opts ...ServiceOption) *RequestService {
	rs := &RequestService{
		store:     store,
		policies:  NewPolicyRegistry(policies),
		validator: NewValidator(DefaultThresholds()),
		clock:     time.Now,
		newID:     func() string { return uuid.NewString() },
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(rs)
	}
	if rs.ledger == nil {
		rs.ledger = NewBalanceLedger(store, WithLedgerClock(rs.clock), WithLedgerLogger(rs.logger))
	}
	return rs
}

func (rs *RequestService) Ledger() *BalanceLedger { return rs.ledger }

func (rs *RequestService) Policies() *PolicyRegistry { return rs.policies }

// =============================================================================
// SUBMIT
// =============================================================================

// Preview validates a draft without persisting anything. It runs exactly
// the checks Submit runs.
func (rs *RequestService) Preview(ctx context.Context, draft Draft) (ValidationResult, error) {
	policy, err := rs.policies.GetPolicy(ctx, draft.OrganizationID, draft.LeaveTypeID)
	if err != nil {
		return ValidationResult{}, err
	}
	return rs.validator.Validate(draft, policy, rs.clock()), nil
}

// Submit validates draft and, if it passes, stores a PENDING request.
// Validation failures come back as *ValidationError; nothing is created.
func (rs *RequestService) Submit(ctx context.Context, draft Draft) (*LeaveRequest, error) {
	if draft.EmployeeID == "" {
		return nil, ErrMissingIdentity
	}
	policy, err := rs.policies.GetPolicy(ctx, draft.OrganizationID, draft.LeaveTypeID)
	if err != nil {
		return nil, err
	}

	now := rs.clock()
	result := rs.validator.Validate(draft, policy, now)
	if !result.Valid {
		rs.logger.Debug("submit rejected by validation",
			zap.String("employee_id", draft.EmployeeID),
			zap.String("leave_type_id", draft.LeaveTypeID),
			zap.Int("problems", len(result.Errors)),
		)
		return nil, &ValidationError{Result: result}
	}

	req := LeaveRequest{
		ID:                rs.newID(),
		OrganizationID:    draft.OrganizationID,
		EmployeeID:        draft.EmployeeID,
		LeaveTypeID:       draft.LeaveTypeID,
		StartDate:         result.StartDate,
		EndDate:           result.EndDate,
		IsHalfDay:         draft.IsHalfDay,
		TotalDays:         result.TotalDays,
		Reason:            draft.Reason,
		WorkHandoverNotes: draft.WorkHandoverNotes,
		EmergencyContact:  draft.EmergencyContact,
		AttachmentCount:   draft.AttachmentCount,
		Status:            StatusPending,
		AppliedAt:         now,
	}
	event := rs.event(req, "", StatusPending, draft.EmployeeID, "", now)

	err = rs.store.WithTx(ctx, func(s Store) error {
		if err := s.InsertRequest(ctx, req); err != nil {
			return fmt.Errorf("failed to insert request: %w", err)
		}
		if err := s.AppendEvent(ctx, event); err != nil {
			return fmt.Errorf("failed to record event: %w", err)
		}
		return nil
	})
	if err != nil {
		rs.logger.Error("submit failed", zap.String("employee_id", draft.EmployeeID), zap.Error(err))
		return nil, err
	}

	rs.logger.Info("leave request submitted",
		zap.String("request_id", req.ID),
		zap.String("employee_id", req.EmployeeID),
		zap.String("leave_type_id", req.LeaveTypeID),
		zap.String("total_days", req.TotalDays.String()),
	)
	rs.notify(ctx, event)
	return &req, nil
}

// =============================================================================
// DECISIONS
// =============================================================================

// Approve debits the ledger and marks the request APPROVED as one unit.
func (rs *RequestService) Approve(ctx context.Context, id, managerID, comment string) (*LeaveRequest, error) {
	return rs.transition(ctx, id, StatusApproved, managerID, comment)
}

// Reject marks a PENDING request REJECTED. Nothing was debited, so nothing
// is credited.
func (rs *RequestService) Reject(ctx context.Context, id, managerID, comment string) (*LeaveRequest, error) {
	return rs.transition(ctx, id, StatusRejected, managerID, comment)
}

// Cancel withdraws a PENDING request, or reverses an APPROVED one by
// crediting its days back.
func (rs *RequestService) Cancel(ctx context.Context, id, actorID, comment string) (*LeaveRequest, error) {
	return rs.transition(ctx, id, StatusCancelled, actorID, comment)
}

func (rs *RequestService) transition(ctx context.Context, id string, to Status, actorID, comment string) (*LeaveRequest, error) {
	if actorID == "" {
		return nil, ErrMissingIdentity
	}
	// Employee, leave type and start date never change, so the key can be
	// read before taking the lock. Status is re-read inside the transaction.
	current, err := rs.get(ctx, rs.store, id)
	if err != nil {
		return nil, err
	}
	key := current.BalanceKey()

	var (
		updated LeaveRequest
		event   TransitionEvent
	)
	err = rs.ledger.within(ctx, key, func(s Store) error {
		req, err := rs.get(ctx, s, id)
		if err != nil {
			return err
		}
		from := req.Status
		if !from.CanTransition(to) {
			return &StateTransitionError{RequestID: id, From: from, To: to}
		}

		now := rs.clock()
		switch to {
		case StatusApproved:
			if _, err := rs.ledger.debit(ctx, s, key, req.TotalDays); err != nil {
				return err
			}
			req.DecidedAt, req.DecidedBy, req.DecisionComment = &now, actorID, comment
		case StatusRejected:
			req.DecidedAt, req.DecidedBy, req.DecisionComment = &now, actorID, comment
		case StatusCancelled:
			if from == StatusApproved {
				if _, err := rs.ledger.credit(ctx, s, key, req.TotalDays); err != nil {
					return err
				}
			}
			req.CancelledAt, req.CancelledBy = &now, actorID
		}
		req.Status = to

		if err := s.UpdateRequest(ctx, *req); err != nil {
			return fmt.Errorf("failed to update request: %w", err)
		}
		event = rs.event(*req, from, to, actorID, comment, now)
		if err := s.AppendEvent(ctx, event); err != nil {
			return fmt.Errorf("failed to record event: %w", err)
		}
		updated = *req
		return nil
	})
	if err != nil {
		rs.logger.Warn("transition failed",
			zap.String("request_id", id),
			zap.String("to", string(to)),
			zap.String("actor_id", actorID),
			zap.Error(err),
		)
		return nil, err
	}

	rs.logger.Info("leave request transitioned",
		zap.String("request_id", id),
		zap.String("from", string(event.From)),
		zap.String("to", string(to)),
		zap.String("actor_id", actorID),
	)
	rs.notify(ctx, event)
	return &updated, nil
}

// =============================================================================
// QUERIES
// =============================================================================

func (rs *RequestService) Get(ctx context.Context, id string) (*LeaveRequest, error) {
	return rs.get(ctx, rs.store, id)
}

func (rs *RequestService) List(ctx context.Context, filter RequestFilter) ([]LeaveRequest, error) {
	return rs.store.ListRequests(ctx, filter)
}

// History returns the request's transition events, oldest first.
func (rs *RequestService) History(ctx context.Context, id string) ([]TransitionEvent, error) {
	if _, err := rs.get(ctx, rs.store, id); err != nil {
		return nil, err
	}
	return rs.store.Events(ctx, id)
}

// =============================================================================
// HELPERS
// =============================================================================

func (rs *RequestService) get(ctx context.Context, s Store, id string) (*LeaveRequest, error) {
	req, err := s.Request(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load request: %w", err)
	}
	if req == nil {
		return nil, fmt.Errorf("%w: %s", ErrRequestNotFound, id)
	}
	return req, nil
}

func (rs *RequestService) event(req LeaveRequest, from, to Status, actorID, comment string, at time.Time) TransitionEvent {
	return TransitionEvent{
		ID:             rs.newID(),
		RequestID:      req.ID,
		OrganizationID: req.OrganizationID,
		EmployeeID:     req.EmployeeID,
		LeaveTypeID:    req.LeaveTypeID,
		From:           from,
		To:             to,
		ActorID:        actorID,
		Comment:        comment,
		TotalDays:      req.TotalDays,
		At:             at,
	}
}

func (rs *RequestService) notify(ctx context.Context, e TransitionEvent) {
	if rs.notifier == nil {
		return
	}
	if err := rs.notifier.Notify(ctx, e); err != nil {
		rs.logger.Error("notification failed",
			zap.String("request_id", e.RequestID),
			zap.String("to", string(e.To)),
			zap.Error(err),
		)
	}
}
