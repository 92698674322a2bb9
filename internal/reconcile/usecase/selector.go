package usecase

import (
	"math/rand"
	"time"

	accountdomain "inboxpilot-backend/internal/account/domain"
	"inboxpilot-backend/pkg/config"

	"go.uber.org/zap"
)

// SelectionResult is the slate of accounts chosen for one run plus the
// counts the orchestrator folds into metrics
type SelectionResult struct {
	Accounts []*accountdomain.Account
	Found    int
	Skipped  int
}

// AccountSelector picks the bounded working set of accounts for a run
type AccountSelector struct {
	accounts AccountDirectory
	cfg      config.ReconcileConfig
	logger   *zap.Logger
	now      func() time.Time
}

func NewAccountSelector(accounts AccountDirectory, cfg config.ReconcileConfig, logger *zap.Logger) *AccountSelector {
	return &AccountSelector{
		accounts: accounts,
		cfg:      cfg,
		logger:   logger.Named("reconcile.selector"),
		now:      time.Now,
	}
}

// SelectAccounts queries eligible accounts (premium, at least one enabled
// rule, least-recently-updated first), drops accounts whose webhook channel
// looks healthy, shuffles the remainder to avoid starving any fixed ordering
// across runs, and truncates to the per-run cap.
//
// The returned snapshots may go stale before they are polled minutes later in
// a large run; that is accepted, the next run picks up whatever changed.
func (s *AccountSelector) SelectAccounts() (*SelectionResult, error) {
	candidates, err := s.accounts.FindEligibleForReconciliation()
	if err != nil {
		return nil, err
	}

	result := &SelectionResult{Found: len(candidates)}
	freshCutoff := s.now().Add(-s.cfg.FreshnessWindow)

	var stale []*accountdomain.Account
	for _, acct := range candidates {
		// A recent webhook receipt means the push channel is working; nothing
		// to reconcile. Nil means a webhook was never observed, so the account
		// stays a candidate.
		if acct.WebhookLastSeenAt != nil && acct.WebhookLastSeenAt.After(freshCutoff) {
			result.Skipped++
			continue
		}
		stale = append(stale, acct)
	}

	rand.Shuffle(len(stale), func(i, j int) {
		stale[i], stale[j] = stale[j], stale[i]
	})

	if len(stale) > s.cfg.MaxAccountsPerRun {
		stale = stale[:s.cfg.MaxAccountsPerRun]
	}
	result.Accounts = stale

	s.logger.Info("selected accounts for reconciliation",
		zap.Int("found", result.Found),
		zap.Int("skipped_healthy", result.Skipped),
		zap.Int("selected", len(result.Accounts)))

	return result, nil
}
