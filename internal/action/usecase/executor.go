package usecase

import (
	"context"
	"fmt"

	actiondomain "inboxpilot-backend/internal/action/domain"
	actionrepo "inboxpilot-backend/internal/action/repository"
	reconcileusecase "inboxpilot-backend/internal/reconcile/usecase"
	"inboxpilot-backend/pkg/provider"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// actionExecutor performs scheduled mailbox mutations through a provider
// handle and records the terminal status. Gmail label modifications are
// idempotent, so the sweep's at-least-once semantics are safe here.
type actionExecutor struct {
	store  actionrepo.ScheduledActionRepository
	logger *zap.Logger
}

// NewActionExecutor creates the concrete action executor
func NewActionExecutor(store actionrepo.ScheduledActionRepository, logger *zap.Logger) reconcileusecase.ActionExecutor {
	return &actionExecutor{
		store:  store,
		logger: logger.Named("action.executor"),
	}
}

func (e *actionExecutor) Execute(ctx context.Context, action *actiondomain.ScheduledAction, handle provider.Handle) (*reconcileusecase.ExecutionResult, error) {
	var err error
	switch action.ActionType {
	case actiondomain.ActionArchive:
		err = handle.Archive(ctx, action.MessageID)
	case actiondomain.ActionLabel:
		err = handle.ApplyLabel(ctx, action.MessageID, action.LabelID)
	case actiondomain.ActionTrash:
		err = handle.Trash(ctx, action.MessageID)
	case actiondomain.ActionMarkRead:
		err = handle.MarkRead(ctx, action.MessageID)
	default:
		reason := fmt.Sprintf("unsupported action type: %s", action.ActionType)
		if markErr := e.store.MarkFailed(action.ID, reason); markErr != nil {
			e.logger.Error("failed to mark action failed", zap.String("action_id", action.ID), zap.Error(markErr))
		}
		return &reconcileusecase.ExecutionResult{Success: false, Error: reason}, nil
	}

	if err != nil {
		if markErr := e.store.MarkFailed(action.ID, err.Error()); markErr != nil {
			e.logger.Error("failed to mark action failed", zap.String("action_id", action.ID), zap.Error(markErr))
		}
		return &reconcileusecase.ExecutionResult{Success: false, Error: err.Error()}, nil
	}

	if err := e.store.MarkExecuted(action.ID); err != nil {
		return nil, fmt.Errorf("action applied but status update failed: %w", err)
	}

	return &reconcileusecase.ExecutionResult{
		Success:    true,
		ExecutedID: uuid.New().String(),
	}, nil
}
