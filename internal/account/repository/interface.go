package repository

import (
	accountdomain "inboxpilot-backend/internal/account/domain"
)

// AccountRepository defines the interface for account persistence operations
type AccountRepository interface {
	// FindEligibleForReconciliation returns premium accounts with at least one
	// enabled automation rule, least-recently-updated first
	FindEligibleForReconciliation() ([]*accountdomain.Account, error)
	// Find an account by id. Returns (nil, nil) when not found.
	FindByID(id string) (*accountdomain.Account, error)
	// Find an account by email address. Returns (nil, nil) when not found.
	FindByEmail(email string) (*accountdomain.Account, error)
	// UpdateWatermark advances the account's history cursor
	UpdateWatermark(accountID, watermark string) error
	// RecordWebhookReceipt stamps the webhook-last-seen timestamp
	RecordWebhookReceipt(accountID string) error
	// UpdateTokens persists refreshed OAuth tokens
	UpdateTokens(accountID, accessToken, refreshToken string) error
}
