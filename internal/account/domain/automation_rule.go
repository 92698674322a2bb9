package domain

import "time"

// AutomationRule describes one inbound-mail automation configured by the user.
// The reconciliation core only cares about Enabled (accounts without at least
// one enabled rule are never polled); matching and execution of the rule body
// happens in the classification engine.
type AutomationRule struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	AccountID string    `json:"account_id" gorm:"index;not null"`
	Name      string    `json:"name" gorm:"not null"`
	Enabled   bool      `json:"enabled" gorm:"index;default:true"`
	Trigger   string    `json:"trigger"` // e.g. "from:billing@example.com"
	Action    string    `json:"action"`  // e.g. "label:Receipts"
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
