package domain

import "time"

// ActionType represents the mailbox mutation a scheduled action performs
type ActionType string

const (
	ActionArchive  ActionType = "archive"
	ActionLabel    ActionType = "label"
	ActionTrash    ActionType = "trash"
	ActionMarkRead ActionType = "mark_read"
)

// ActionStatus represents the lifecycle state of a scheduled action
type ActionStatus string

const (
	ActionStatusPending  ActionStatus = "pending"
	ActionStatusExecuted ActionStatus = "executed"
	ActionStatusFailed   ActionStatus = "failed"
)

// SchedulingStatus distinguishes actions whose external timer was registered
// successfully from those where scheduling itself failed
type SchedulingStatus string

const (
	SchedulingStatusScheduled SchedulingStatus = "scheduled"
	SchedulingStatusFailed    SchedulingStatus = "failed"
	SchedulingStatusNone      SchedulingStatus = "none"
)

// ScheduledAction is a deferred mailbox mutation queued for execution at or
// after ScheduledFor. Normally an external timer fires it; the anti-entropy
// sweep picks it up when that timer never did.
type ScheduledAction struct {
	ID               string           `json:"id" gorm:"primaryKey"`
	AccountID        string           `json:"account_id" gorm:"index;not null"`
	MessageID        string           `json:"message_id" gorm:"not null"`
	ThreadID         string           `json:"thread_id,omitempty"`
	ActionType       ActionType       `json:"action_type" gorm:"not null"`
	LabelID          string           `json:"label_id,omitempty"` // target label for ActionLabel
	ScheduledFor     time.Time        `json:"scheduled_for" gorm:"index;not null"`
	Status           ActionStatus     `json:"status" gorm:"index;default:pending"`
	SchedulingStatus SchedulingStatus `json:"scheduling_status" gorm:"default:none"`
	ExecutedAt       *time.Time       `json:"executed_at,omitempty"`
	LastError        *string          `json:"last_error,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}
