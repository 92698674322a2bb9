package main

import (
	"context"
	"fmt"
	"log"
	"strings"

	api "inboxpilot-backend/cmd/api"
	accountdomain "inboxpilot-backend/internal/account/domain"
	accountRepo "inboxpilot-backend/internal/account/repository"
	actiondomain "inboxpilot-backend/internal/action/domain"
	actionRepo "inboxpilot-backend/internal/action/repository"
	actionUsecase "inboxpilot-backend/internal/action/usecase"
	"inboxpilot-backend/internal/notification"
	reconcileUsecase "inboxpilot-backend/internal/reconcile/usecase"
	replayUsecase "inboxpilot-backend/internal/replay/usecase"
	watchUsecase "inboxpilot-backend/internal/watch/usecase"
	"inboxpilot-backend/pkg/config"
	"inboxpilot-backend/pkg/cronrunner"
	"inboxpilot-backend/pkg/database"
	"inboxpilot-backend/pkg/gmail"
	"inboxpilot-backend/pkg/logger"
	"inboxpilot-backend/pkg/provider"

	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg := config.Load()

	zlog, err := logger.New(cfg.LogLevel, cfg.LogEncoding)
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer zlog.Sync()

	// Initialize database
	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		zlog.Fatal("failed to connect to database", zap.Error(err))
	}

	// Auto-migrate database schemas
	if err := db.AutoMigrate(&accountdomain.Account{}, &accountdomain.AutomationRule{}, &actiondomain.ScheduledAction{}); err != nil {
		zlog.Fatal("failed to migrate database", zap.Error(err))
	}

	// Initialize repositories (dependency injection)
	accounts := accountRepo.NewAccountRepository(db)
	actions := actionRepo.NewScheduledActionRepository(db)

	// Initialize Gmail service
	gmailService := gmail.NewService(cfg.GoogleClientID, cfg.GoogleClientSecret)

	// History replay: the recovery path the poller drives. Recovered messages
	// are handed to the classification pipeline downstream.
	processor := replayUsecase.NewLoggingMessageProcessor(zlog)
	replayer := replayUsecase.NewHistoryReplayUsecase(gmailService, accounts, processor, zlog)

	// Action execution path
	handleFactory := provider.NewFactory(gmailService, accounts)
	actionExecutor := actionUsecase.NewActionExecutor(actions, zlog)

	// Push subscription lifecycle. Gmail's watch API expects the full topic
	// resource name.
	watchTopic := cfg.GooglePubSubTopic
	if !strings.Contains(watchTopic, "/") && cfg.GoogleProjectID != "" {
		watchTopic = fmt.Sprintf("projects/%s/topics/%s", cfg.GoogleProjectID, watchTopic)
	}
	watcher := watchUsecase.NewWatchUsecase(gmailService, accounts, watchTopic, zlog)

	// Anti-entropy core
	selector := reconcileUsecase.NewAccountSelector(accounts, cfg.Reconcile, zlog)
	poller := reconcileUsecase.NewAccountPoller(accounts, replayer, zlog)
	pendingExecutor := reconcileUsecase.NewPendingActionExecutor(actions, accounts, handleFactory, actionExecutor, cfg.Reconcile, zlog)
	orchestrator := reconcileUsecase.NewOrchestrator(selector, poller, pendingExecutor, accounts, cfg.Reconcile, nil, zlog)

	ctx := context.Background()

	// Gmail push listener (Pub/Sub). Only start if project ID is configured.
	if cfg.GoogleProjectID != "" {
		// Extract short topic name from full resource name if necessary
		topicName := cfg.GooglePubSubTopic
		if parts := strings.Split(topicName, "/"); len(parts) > 1 {
			topicName = parts[len(parts)-1]
		}

		notifService, err := notification.NewService(cfg.GoogleProjectID, topicName, accounts, replayer, cfg.GoogleCredentials, zlog)
		if err != nil {
			zlog.Error("failed to initialize notification service", zap.Error(err))
		} else {
			go notifService.Start(ctx)
		}
	} else {
		zlog.Warn("GOOGLE_PROJECT_ID not configured, push notification listener disabled")
	}

	// Scheduled reconciliation runs
	runner := cronrunner.New(zlog, ctx)
	if _, err := runner.Add(cfg.ReconcileCron, func(ctx context.Context) {
		orchestrator.RunAll(ctx)
	}); err != nil {
		zlog.Fatal("failed to schedule reconciliation run", zap.Error(err))
	}
	// Gmail watches expire after 7 days; renew them daily for every account
	// the reconciliation engine covers
	if cfg.GoogleProjectID != "" {
		if _, err := runner.Add(cfg.WatchRenewalCron, func(ctx context.Context) {
			watcher.RenewAll(ctx)
		}); err != nil {
			zlog.Fatal("failed to schedule watch renewal", zap.Error(err))
		}
	}
	runner.Start()
	defer runner.Stop()

	// Initialize HTTP handler
	handler := api.NewHandler(orchestrator, watcher, cfg)

	zlog.Info("server starting", zap.String("port", cfg.Port))
	if err := handler.Start(":" + cfg.Port); err != nil {
		zlog.Fatal("failed to start server", zap.Error(err))
	}
}
