package usecase

import (
	"context"
	"time"

	accountdomain "inboxpilot-backend/internal/account/domain"
	actiondomain "inboxpilot-backend/internal/action/domain"
	"inboxpilot-backend/pkg/provider"
)

// AccountDirectory is the slice of account persistence the reconciliation core
// reads from
type AccountDirectory interface {
	FindEligibleForReconciliation() ([]*accountdomain.Account, error)
	FindByID(id string) (*accountdomain.Account, error)
}

// HistoryReplayer replays provider change history from a watermark. Its side
// effect is advancing the account's persisted watermark; the poller observes
// that indirectly by re-reading the account record.
type HistoryReplayer interface {
	ReplayHistorySince(ctx context.Context, accountEmail, watermark string) error
}

// ActionStore is the slice of scheduled action persistence the sweep reads from
type ActionStore interface {
	FindEligibleForExecution(now time.Time, gracePeriod time.Duration, limit int) ([]*actiondomain.ScheduledAction, error)
}

// HandleFactory creates provider-bound execution handles
type HandleFactory interface {
	CreateHandle(ctx context.Context, accountID string, p accountdomain.Provider) (provider.Handle, error)
}

// ExecutionResult is the action executor's reported outcome
type ExecutionResult struct {
	Success    bool
	ExecutedID string
	Error      string
}

// ActionExecutor performs one scheduled action through a provider handle. It
// must be safe to invoke more than once for the same action; the sweep only
// guarantees at-least-once delivery.
type ActionExecutor interface {
	Execute(ctx context.Context, action *actiondomain.ScheduledAction, handle provider.Handle) (*ExecutionResult, error)
}

// Sleeper is the injectable inter-batch pacing primitive; tests substitute a
// no-op
type Sleeper func(ctx context.Context, d time.Duration)

// SleepWithContext is the default Sleeper; it returns early on context
// cancellation
func SleepWithContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
