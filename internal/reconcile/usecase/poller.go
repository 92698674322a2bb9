package usecase

import (
	"context"
	"fmt"

	accountdomain "inboxpilot-backend/internal/account/domain"
	reconciledomain "inboxpilot-backend/internal/reconcile/domain"

	"go.uber.org/zap"
)

// AccountPoller reconciles a single account by replaying provider history
// from its last known watermark
type AccountPoller struct {
	accounts AccountDirectory
	replayer HistoryReplayer
	logger   *zap.Logger
}

func NewAccountPoller(accounts AccountDirectory, replayer HistoryReplayer, logger *zap.Logger) *AccountPoller {
	return &AccountPoller{
		accounts: accounts,
		replayer: replayer,
		logger:   logger.Named("reconcile.poller"),
	}
}

// PollAccount replays history for one account and reports whether the
// webhook channel missed anything. Failures are captured on the result, never
// returned: one bad account must not abort its batch.
func (p *AccountPoller) PollAccount(ctx context.Context, acct *accountdomain.Account) (result reconciledomain.PollResult) {
	log := p.logger.With(
		zap.String("account_id", acct.ID),
		zap.String("email", acct.Email),
		zap.String("provider", string(acct.Provider)))

	defer func() {
		if r := recover(); r != nil {
			log.Error("panic while polling account", zap.Any("panic", r))
			result = reconciledomain.PollResult{Err: fmt.Sprintf("panic while polling account: %v", r)}
		}
	}()

	switch acct.Provider.Capability() {
	case accountdomain.CapabilityHistoryReplay:
		return p.pollHistoryReplay(ctx, acct, log)
	case accountdomain.CapabilitySubscriptionOnly:
		// No polling API to reconcile against; subscription renewal is handled
		// by the webhook layer. Known limitation, not an error.
		log.Info("provider has no history polling API, skipping reconciliation")
		return reconciledomain.PollResult{}
	default:
		err := fmt.Sprintf("unknown provider: %s", acct.Provider)
		log.Error("cannot poll account", zap.String("reason", err))
		return reconciledomain.PollResult{Err: err}
	}
}

func (p *AccountPoller) pollHistoryReplay(ctx context.Context, acct *accountdomain.Account, log *zap.Logger) reconciledomain.PollResult {
	if acct.HistoryWatermark == nil {
		// Brand-new account: no cursor to replay against. The first webhook or
		// initial sync will seed the watermark.
		log.Debug("no history watermark yet, nothing to replay")
		return reconciledomain.PollResult{}
	}

	before := *acct.HistoryWatermark

	if err := p.replayer.ReplayHistorySince(ctx, acct.Email, before); err != nil {
		log.Error("history replay failed", zap.Error(err))
		return reconciledomain.PollResult{Err: err.Error()}
	}

	// The replay service advances the persisted watermark as a side channel;
	// re-read the account to observe it.
	current, err := p.accounts.FindByID(acct.ID)
	if err != nil {
		log.Error("failed to re-read account after replay", zap.Error(err))
		return reconciledomain.PollResult{Err: err.Error()}
	}
	if current == nil {
		err := fmt.Sprintf("account %s disappeared during poll", acct.ID)
		log.Error("failed to re-read account after replay", zap.String("reason", err))
		return reconciledomain.PollResult{Err: err}
	}

	if current.HistoryWatermark == nil || *current.HistoryWatermark == before {
		return reconciledomain.PollResult{}
	}

	// Watermark advanced: the webhook channel missed at least one message.
	// MessagesProcessed is deliberately the coarse 0/1 signal; the real count
	// is not observable from the watermark alone.
	result := reconciledomain.PollResult{MessagesProcessed: 1, CaughtGap: true}

	diag := GenerateDiagnostic(string(acct.Provider), acct.Email, result.MessagesProcessed, acct.WebhookLastSeenAt)
	LogDiagnostic(diag, log)

	return result
}
