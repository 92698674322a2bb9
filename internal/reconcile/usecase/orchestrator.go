package usecase

import (
	"context"
	"sync"
	"time"

	accountdomain "inboxpilot-backend/internal/account/domain"
	reconciledomain "inboxpilot-backend/internal/reconcile/domain"
	"inboxpilot-backend/pkg/config"

	"go.uber.org/zap"
)

// Orchestrator composes one anti-entropy run: sweep pending actions, select
// stale accounts, poll them in paced concurrent batches, aggregate metrics
type Orchestrator struct {
	selector *AccountSelector
	poller   *AccountPoller
	executor *PendingActionExecutor
	accounts AccountDirectory
	cfg      config.ReconcileConfig
	sleep    Sleeper
	logger   *zap.Logger
}

func NewOrchestrator(selector *AccountSelector, poller *AccountPoller, executor *PendingActionExecutor, accounts AccountDirectory, cfg config.ReconcileConfig, sleep Sleeper, logger *zap.Logger) *Orchestrator {
	if sleep == nil {
		sleep = SleepWithContext
	}
	return &Orchestrator{
		selector: selector,
		poller:   poller,
		executor: executor,
		accounts: accounts,
		cfg:      cfg,
		sleep:    sleep,
		logger:   logger.Named("reconcile.orchestrator"),
	}
}

// RunAll performs a full reconciliation sweep. It always completes and
// returns metrics, even when every unit of work failed.
func (o *Orchestrator) RunAll(ctx context.Context) *reconciledomain.RunMetrics {
	start := time.Now()
	metrics := reconciledomain.NewRunMetrics()

	o.logger.Info("starting reconciliation run")

	// Pending actions first: they are user-visible work already overdue,
	// polling is only gap detection.
	summary := o.executor.ExecutePending(ctx)
	metrics.ScheduledActionsExecuted = summary.Executed
	metrics.ScheduledActionsFailed = summary.Failed

	selection, err := o.selector.SelectAccounts()
	if err != nil {
		o.logger.Error("account selection failed", zap.Error(err))
		metrics.ErrorCount++
		metrics.Duration = time.Since(start)
		return metrics
	}
	metrics.TotalAccountsFound = selection.Found
	metrics.AccountsSkipped = selection.Skipped

	batches := partition(selection.Accounts, o.cfg.PollBatchSize)
	for i, batch := range batches {
		// Fan out the batch and join before touching metrics: results are
		// immutable per-account values folded in only after every poll has
		// settled, so the counter bag never has concurrent writers.
		results := make([]reconciledomain.PollResult, len(batch))
		var wg sync.WaitGroup
		for j, acct := range batch {
			wg.Add(1)
			go func(j int, acct *accountdomain.Account) {
				defer wg.Done()
				results[j] = o.poller.PollAccount(ctx, acct)
			}(j, acct)
		}
		wg.Wait()

		for j, res := range results {
			acct := batch[j]
			metrics.AccountsPolled++
			metrics.ByProvider[string(acct.Provider)]++
			metrics.MessagesRecovered += res.MessagesProcessed
			if res.CaughtGap {
				metrics.WebhookGapsDetected++
			}
			if res.Err != "" {
				metrics.ErrorCount++
			}
		}

		// Pace between batches to stay under provider rate limits
		if i < len(batches)-1 {
			o.sleep(ctx, o.cfg.BatchDelay)
		}
	}

	metrics.Duration = time.Since(start)

	o.logger.Info("reconciliation run complete",
		zap.Int("accounts_found", metrics.TotalAccountsFound),
		zap.Int("accounts_skipped", metrics.AccountsSkipped),
		zap.Int("accounts_polled", metrics.AccountsPolled),
		zap.Int("messages_recovered", metrics.MessagesRecovered),
		zap.Int("webhook_gaps", metrics.WebhookGapsDetected),
		zap.Int("actions_executed", metrics.ScheduledActionsExecuted),
		zap.Int("actions_failed", metrics.ScheduledActionsFailed),
		zap.Int("errors", metrics.ErrorCount),
		zap.Duration("duration", metrics.Duration))

	return metrics
}

// RunForAccount reconciles a single account on demand. It does not run the
// pending action sweep; callers needing that use RunAll.
func (o *Orchestrator) RunForAccount(ctx context.Context, accountID string) reconciledomain.AccountRunResult {
	account, err := o.accounts.FindByID(accountID)
	if err != nil {
		o.logger.Error("failed to look up account", zap.String("account_id", accountID), zap.Error(err))
		return reconciledomain.AccountRunResult{Err: err.Error()}
	}
	if account == nil {
		return reconciledomain.AccountRunResult{Err: "Account not found"}
	}

	res := o.poller.PollAccount(ctx, account)
	return reconciledomain.AccountRunResult{
		MessagesProcessed: res.MessagesProcessed,
		Err:               res.Err,
	}
}

func partition(accounts []*accountdomain.Account, size int) [][]*accountdomain.Account {
	if size <= 0 {
		size = 1
	}
	var batches [][]*accountdomain.Account
	for start := 0; start < len(accounts); start += size {
		end := start + size
		if end > len(accounts) {
			end = len(accounts)
		}
		batches = append(batches, accounts[start:end])
	}
	return batches
}
