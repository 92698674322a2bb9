package usecase

import (
	"context"
	"errors"
	"fmt"

	accountdomain "inboxpilot-backend/internal/account/domain"
	accountrepo "inboxpilot-backend/internal/account/repository"
	"inboxpilot-backend/pkg/gmail"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// ErrAccountNotFound is returned when the account id resolves to nothing
var ErrAccountNotFound = errors.New("account not found")

// MailboxWatcher is the provider surface for push subscription management.
// Satisfied by *gmail.Service.
type MailboxWatcher interface {
	Watch(ctx context.Context, accessToken, refreshToken string, topicName string, onTokenRefresh gmail.TokenUpdateFunc) error
	Stop(ctx context.Context, accessToken, refreshToken string, onTokenRefresh gmail.TokenUpdateFunc) error
	GetProfileHistoryID(ctx context.Context, accessToken, refreshToken string, onTokenRefresh gmail.TokenUpdateFunc) (uint64, error)
}

// WatchUsecase manages the provider-side push subscription lifecycle. Gmail
// watches expire after 7 days, so they are re-established both on demand and
// by a periodic renewal job.
type WatchUsecase struct {
	watcher   MailboxWatcher
	accounts  accountrepo.AccountRepository
	topicName string
	logger    *zap.Logger
}

func NewWatchUsecase(watcher MailboxWatcher, accounts accountrepo.AccountRepository, topicName string, logger *zap.Logger) *WatchUsecase {
	return &WatchUsecase{
		watcher:   watcher,
		accounts:  accounts,
		topicName: topicName,
		logger:    logger.Named("watch"),
	}
}

// EnsureWatch establishes (or refreshes) the mailbox watch for one account.
// Brand-new accounts also get their history watermark seeded from the current
// profile history id, so the poller has a cursor even before the first push
// notification arrives.
func (u *WatchUsecase) EnsureWatch(ctx context.Context, accountID string) error {
	account, err := u.accounts.FindByID(accountID)
	if err != nil {
		return fmt.Errorf("failed to load account %s: %w", accountID, err)
	}
	if account == nil {
		return ErrAccountNotFound
	}
	if account.Provider.Capability() != accountdomain.CapabilityHistoryReplay {
		return fmt.Errorf("provider %s does not support mailbox watch", account.Provider)
	}

	log := u.logger.With(zap.String("account_id", account.ID), zap.String("email", account.Email))
	onTokenRefresh := u.tokenPersister(account.ID)

	if err := u.watcher.Watch(ctx, account.AccessToken, account.RefreshToken, u.topicName, onTokenRefresh); err != nil {
		return fmt.Errorf("failed to establish watch for %s: %w", account.Email, err)
	}
	log.Info("mailbox watch established", zap.String("topic", u.topicName))

	if account.HistoryWatermark == nil {
		historyID, err := u.watcher.GetProfileHistoryID(ctx, account.AccessToken, account.RefreshToken, onTokenRefresh)
		if err != nil {
			return fmt.Errorf("failed to seed watermark for %s: %w", account.Email, err)
		}
		if err := u.accounts.UpdateWatermark(account.ID, gmail.FormatHistoryID(historyID)); err != nil {
			return fmt.Errorf("failed to persist seeded watermark for %s: %w", account.Email, err)
		}
		log.Info("seeded history watermark", zap.Uint64("history_id", historyID))
	}

	return nil
}

// StopWatch tears down the mailbox watch for one account
func (u *WatchUsecase) StopWatch(ctx context.Context, accountID string) error {
	account, err := u.accounts.FindByID(accountID)
	if err != nil {
		return fmt.Errorf("failed to load account %s: %w", accountID, err)
	}
	if account == nil {
		return ErrAccountNotFound
	}

	if err := u.watcher.Stop(ctx, account.AccessToken, account.RefreshToken, u.tokenPersister(account.ID)); err != nil {
		return fmt.Errorf("failed to stop watch for %s: %w", account.Email, err)
	}
	u.logger.Info("mailbox watch stopped",
		zap.String("account_id", account.ID), zap.String("email", account.Email))
	return nil
}

// RenewAll refreshes the watch for every account the reconciliation engine
// cares about. One failed account never aborts the sweep.
func (u *WatchUsecase) RenewAll(ctx context.Context) (renewed, failed int) {
	accounts, err := u.accounts.FindEligibleForReconciliation()
	if err != nil {
		u.logger.Error("failed to list accounts for watch renewal", zap.Error(err))
		return 0, 0
	}

	for _, account := range accounts {
		if account.Provider.Capability() != accountdomain.CapabilityHistoryReplay {
			continue
		}
		if err := u.EnsureWatch(ctx, account.ID); err != nil {
			failed++
			u.logger.Error("watch renewal failed",
				zap.String("account_id", account.ID),
				zap.String("email", account.Email),
				zap.Error(err))
			continue
		}
		renewed++
	}

	u.logger.Info("watch renewal sweep completed",
		zap.Int("renewed", renewed), zap.Int("failed", failed))
	return renewed, failed
}

func (u *WatchUsecase) tokenPersister(accountID string) gmail.TokenUpdateFunc {
	return func(token *oauth2.Token) error {
		return u.accounts.UpdateTokens(accountID, token.AccessToken, token.RefreshToken)
	}
}
