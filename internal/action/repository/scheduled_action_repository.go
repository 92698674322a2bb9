package repository

import (
	"time"

	actiondomain "inboxpilot-backend/internal/action/domain"

	"gorm.io/gorm"
)

// scheduledActionRepository implements ScheduledActionRepository using GORM
type scheduledActionRepository struct {
	db *gorm.DB
}

// NewScheduledActionRepository creates a new GORM-based ScheduledActionRepository
func NewScheduledActionRepository(db *gorm.DB) ScheduledActionRepository {
	return &scheduledActionRepository{db: db}
}

// FindEligibleForExecution selects pending actions abandoned by their timer.
// Eligible iff status = pending AND (scheduling_status = failed OR
// (scheduled_for < now - grace AND scheduling_status != scheduled)).
func (r *scheduledActionRepository) FindEligibleForExecution(now time.Time, gracePeriod time.Duration, limit int) ([]*actiondomain.ScheduledAction, error) {
	var actions []*actiondomain.ScheduledAction
	cutoff := now.Add(-gracePeriod)
	err := r.db.
		Where("status = ?", actiondomain.ActionStatusPending).
		Where("scheduling_status = ? OR (scheduled_for < ? AND scheduling_status != ?)",
			actiondomain.SchedulingStatusFailed, cutoff, actiondomain.SchedulingStatusScheduled).
		Order("scheduled_for ASC").
		Limit(limit).
		Find(&actions).Error
	return actions, err
}

func (r *scheduledActionRepository) MarkExecuted(actionID string) error {
	now := time.Now()
	return r.db.Model(&actiondomain.ScheduledAction{}).Where("id = ?", actionID).
		Updates(map[string]interface{}{
			"status":      actiondomain.ActionStatusExecuted,
			"executed_at": now,
			"updated_at":  now,
		}).Error
}

func (r *scheduledActionRepository) MarkFailed(actionID, reason string) error {
	return r.db.Model(&actiondomain.ScheduledAction{}).Where("id = ?", actionID).
		Updates(map[string]interface{}{
			"status":     actiondomain.ActionStatusFailed,
			"last_error": reason,
			"updated_at": time.Now(),
		}).Error
}
