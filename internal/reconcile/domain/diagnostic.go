package domain

import "time"

// WebhookDiagnostic is an ephemeral cause hypothesis for a detected webhook
// gap. It exists only to be logged; it is never persisted.
type WebhookDiagnostic struct {
	Provider             string         `json:"provider"`
	AccountEmail         string         `json:"account_email"`
	MissedMessageCount   int            `json:"missed_message_count"`
	TimeSinceLastWebhook *time.Duration `json:"time_since_last_webhook,omitempty"`
	SuggestedFixes       []string       `json:"suggested_fixes"`
}
