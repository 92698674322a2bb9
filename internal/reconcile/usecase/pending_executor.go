package usecase

import (
	"context"
	"fmt"
	"time"

	accountdomain "inboxpilot-backend/internal/account/domain"
	reconciledomain "inboxpilot-backend/internal/reconcile/domain"
	"inboxpilot-backend/pkg/config"

	"go.uber.org/zap"
)

// PendingActionExecutor sweeps scheduled actions whose external timer never
// fired and drives them to completion
type PendingActionExecutor struct {
	store    ActionStore
	accounts AccountDirectory
	handles  HandleFactory
	executor ActionExecutor
	cfg      config.ReconcileConfig
	logger   *zap.Logger
	now      func() time.Time
}

func NewPendingActionExecutor(store ActionStore, accounts AccountDirectory, handles HandleFactory, executor ActionExecutor, cfg config.ReconcileConfig, logger *zap.Logger) *PendingActionExecutor {
	return &PendingActionExecutor{
		store:    store,
		accounts: accounts,
		handles:  handles,
		executor: executor,
		cfg:      cfg,
		logger:   logger.Named("reconcile.actions"),
		now:      time.Now,
	}
}

// ExecutePending finds overdue or scheduling-failed actions and executes them
// one at a time. Actions commonly touch the same account's mailbox state, so
// processing stays strictly sequential. Each action's failure is isolated;
// the sweep never retries within a run, the next run re-selects anything
// still eligible.
func (e *PendingActionExecutor) ExecutePending(ctx context.Context) reconciledomain.ExecutionSummary {
	summary := reconciledomain.ExecutionSummary{Errors: []string{}}

	actions, err := e.store.FindEligibleForExecution(e.now(), e.cfg.ActionGracePeriod, e.cfg.ActionBatchSize)
	if err != nil {
		e.logger.Error("failed to query eligible actions", zap.Error(err))
		summary.Errors = append(summary.Errors, fmt.Sprintf("Failed to query eligible actions: %v", err))
		return summary
	}

	if len(actions) == 0 {
		return summary
	}

	e.logger.Info("executing pending scheduled actions", zap.Int("count", len(actions)))

	for _, action := range actions {
		log := e.logger.With(
			zap.String("action_id", action.ID),
			zap.String("account_id", action.AccountID),
			zap.String("action_type", string(action.ActionType)))

		provider := e.resolveProvider(action.AccountID)

		handle, err := e.handles.CreateHandle(ctx, action.AccountID, provider)
		if err != nil {
			summary.Failed++
			summary.Errors = append(summary.Errors, fmt.Sprintf("Error executing action %s: %v", action.ID, err))
			log.Error("failed to create provider handle", zap.Error(err))
			continue
		}

		result, err := e.executor.Execute(ctx, action, handle)
		if err != nil {
			summary.Failed++
			summary.Errors = append(summary.Errors, fmt.Sprintf("Error executing action %s: %v", action.ID, err))
			log.Error("action execution threw", zap.Error(err))
			continue
		}

		if !result.Success {
			summary.Failed++
			summary.Errors = append(summary.Errors, fmt.Sprintf("Failed to execute action %s: %s", action.ID, result.Error))
			log.Warn("action execution reported failure", zap.String("reason", result.Error))
			continue
		}

		summary.Executed++
		log.Info("executed overdue scheduled action", zap.String("executed_id", result.ExecutedID))
	}

	return summary
}

// resolveProvider looks up the owning account's provider, defaulting to
// google when the account or its provider field is missing. An action is
// never failed solely because provider metadata is absent.
func (e *PendingActionExecutor) resolveProvider(accountID string) accountdomain.Provider {
	account, err := e.accounts.FindByID(accountID)
	if err != nil || account == nil || account.Provider == "" {
		return accountdomain.ProviderGoogle
	}
	return account.Provider
}
