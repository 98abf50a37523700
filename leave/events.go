package leave

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// =============================================================================
// TRANSITION EVENTS - Audit trail and notification feed
// =============================================================================

// TransitionEvent records one status change. From is empty for submission.
type TransitionEvent struct {
	ID             string
	RequestID      string
	OrganizationID string
	EmployeeID     string
	LeaveTypeID    string
	From           Status
	To             Status
	ActorID        string
	Comment        string
	TotalDays      decimal.Decimal
	At             time.Time
}

// Notifier receives events after the transition has committed.
// Delivery (email, chat) belongs to the implementation.
type Notifier interface {
	Notify(ctx context.Context, e TransitionEvent) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, e TransitionEvent) error

func (f NotifierFunc) Notify(ctx context.Context, e TransitionEvent) error { return f(ctx, e) }

// LogNotifier writes every event to a zap logger.
type LogNotifier struct {
	Logger *zap.Logger
}

func (n LogNotifier) Notify(_ context.Context, e TransitionEvent) error {
	n.Logger.Info("leave request transition",
		zap.String("request_id", e.RequestID),
		zap.String("employee_id", e.EmployeeID),
		zap.String("leave_type_id", e.LeaveTypeID),
		zap.String("from", string(e.From)),
		zap.String("to", string(e.To)),
		zap.String("actor_id", e.ActorID),
		zap.String("total_days", e.TotalDays.String()),
	)
	return nil
}
