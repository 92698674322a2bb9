package repository

import (
	"time"

	actiondomain "inboxpilot-backend/internal/action/domain"
)

// ScheduledActionRepository defines the interface for scheduled action persistence
type ScheduledActionRepository interface {
	// FindEligibleForExecution returns pending actions whose external timer is
	// presumed dead: scheduling failed outright, or the due time is past the
	// grace window and the action was never confirmed as scheduled. Oldest
	// overdue first, capped at limit.
	FindEligibleForExecution(now time.Time, gracePeriod time.Duration, limit int) ([]*actiondomain.ScheduledAction, error)
	// MarkExecuted transitions the action to its terminal executed state
	MarkExecuted(actionID string) error
	// MarkFailed transitions the action to failed and records the reason
	MarkFailed(actionID, reason string) error
}
