package usecase

import (
	"fmt"
	"time"

	reconciledomain "inboxpilot-backend/internal/reconcile/domain"

	"go.uber.org/zap"
)

// Remediation checks per provider, most likely cause first.
var googleFixes = []string{
	"Verify the OAuth access token is still valid and has not been revoked",
	"Re-run users.watch to refresh the Gmail push subscription (it expires after 7 days)",
	"Check the Pub/Sub topic grants publish to gmail-api-push@system.gserviceaccount.com",
	"Confirm the Pub/Sub subscription is attached and acking messages",
}

var outlookFixes = []string{
	"Check the Microsoft Graph change subscription was renewed before expiry",
	"Verify the app registration's client secret has not expired",
	"Confirm the notification URL is reachable from Microsoft Graph",
	"Re-create the subscription for the mailbox resource",
}

var genericFixes = []string{
	"Verify the account's credentials are still valid",
	"Check network connectivity to the provider's API",
	"Re-register the webhook subscription for this account",
}

// GenerateDiagnostic builds a cause hypothesis for a webhook gap on one
// account. Pure; no I/O.
func GenerateDiagnostic(provider, email string, missedCount int, lastWebhookAt *time.Time) reconciledomain.WebhookDiagnostic {
	diag := reconciledomain.WebhookDiagnostic{
		Provider:           provider,
		AccountEmail:       email,
		MissedMessageCount: missedCount,
	}

	if lastWebhookAt != nil {
		elapsed := time.Since(*lastWebhookAt)
		diag.TimeSinceLastWebhook = &elapsed
	}

	switch provider {
	case "google":
		diag.SuggestedFixes = googleFixes
	case "outlook":
		diag.SuggestedFixes = outlookFixes
	default:
		diag.SuggestedFixes = genericFixes
	}

	return diag
}

// LogDiagnostic emits one structured warning for the gap. Only the top three
// suggestions are logged to keep the volume down.
func LogDiagnostic(diag reconciledomain.WebhookDiagnostic, logger *zap.Logger) {
	fixes := diag.SuggestedFixes
	if len(fixes) > 3 {
		fixes = fixes[:3]
	}

	logger.Warn("webhook gap detected",
		zap.String("provider", diag.Provider),
		zap.String("email", diag.AccountEmail),
		zap.Int("missed_messages", diag.MissedMessageCount),
		zap.String("last_webhook", formatElapsedDuration(diag.TimeSinceLastWebhook)),
		zap.Strings("suggested_fixes", fixes))
}

// FormatElapsed renders a timestamp as a relative-time phrase, "never" when
// nil
func FormatElapsed(t *time.Time) string {
	if t == nil {
		return "never"
	}
	elapsed := time.Since(*t)
	return formatElapsedDuration(&elapsed)
}

func formatElapsedDuration(d *time.Duration) string {
	if d == nil {
		return "never"
	}
	switch {
	case *d < time.Minute:
		return "moments ago"
	case *d < time.Hour:
		return fmt.Sprintf("%d minutes ago", int(d.Minutes()))
	case *d < 24*time.Hour:
		return fmt.Sprintf("%d hours ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%d days ago", int(d.Hours()/24))
	}
}
