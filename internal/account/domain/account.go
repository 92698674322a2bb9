package domain

import "time"

// Provider identifies which mail provider an account is connected through
type Provider string

const (
	ProviderGoogle  Provider = "google"
	ProviderOutlook Provider = "outlook"
)

// ProviderCapability describes how an account's mailbox changes can be recovered
// when its webhook channel has gone quiet
type ProviderCapability int

const (
	// CapabilityHistoryReplay means the provider exposes an incremental change
	// history we can replay from a stored cursor (Gmail history.list)
	CapabilityHistoryReplay ProviderCapability = iota
	// CapabilitySubscriptionOnly means the provider only pushes via renewable
	// subscriptions and has no equivalent polling API (Outlook Graph)
	CapabilitySubscriptionOnly
	// CapabilityUnknown covers provider values we do not recognize
	CapabilityUnknown
)

// Capability returns the recovery capability for this provider.
// Unknown values deliberately fall through to CapabilityUnknown so that the
// poller can surface them as per-account errors instead of guessing.
func (p Provider) Capability() ProviderCapability {
	switch p {
	case ProviderGoogle:
		return CapabilityHistoryReplay
	case ProviderOutlook:
		return CapabilitySubscriptionOnly
	default:
		return CapabilityUnknown
	}
}

// Account represents a connected mailbox account
type Account struct {
	ID           string   `json:"id" gorm:"primaryKey"`
	Email        string   `json:"email" gorm:"uniqueIndex;not null"`
	Provider     Provider `json:"provider" gorm:"index;default:google"`
	AccessToken  string   `json:"-"`
	RefreshToken string   `json:"-"`
	// HistoryWatermark is the opaque provider cursor marking the last change we
	// processed. Nil for brand-new accounts that have never synced.
	HistoryWatermark *string `json:"history_watermark,omitempty"`
	// WebhookLastSeenAt records when we last received a push notification for
	// this account. Nil means a webhook was never observed.
	WebhookLastSeenAt *time.Time       `json:"webhook_last_seen_at,omitempty"`
	IsPremium         bool             `json:"is_premium" gorm:"index;default:false"`
	Rules             []AutomationRule `json:"rules,omitempty" gorm:"foreignKey:AccountID"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// EnabledRuleIDs returns the ids of the account's enabled automation rules
func (a *Account) EnabledRuleIDs() []string {
	var ids []string
	for _, r := range a.Rules {
		if r.Enabled {
			ids = append(ids, r.ID)
		}
	}
	return ids
}
