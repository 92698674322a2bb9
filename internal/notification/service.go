package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	accountrepo "inboxpilot-backend/internal/account/repository"
	replayusecase "inboxpilot-backend/internal/replay/usecase"
	"inboxpilot-backend/pkg/gmail"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// GmailNotification is the payload Gmail publishes to the push topic
type GmailNotification struct {
	EmailAddress string `json:"emailAddress"`
	HistoryID    uint64 `json:"historyId"`
}

// Service consumes Gmail push notifications from Pub/Sub. Each notification
// stamps the account's webhook-last-seen timestamp (the freshness signal the
// reconciliation selector reads) and triggers an incremental replay from the
// stored watermark.
type Service struct {
	pubsubClient *pubsub.Client
	accounts     accountrepo.AccountRepository
	replayer     *replayusecase.HistoryReplayUsecase
	logger       *zap.Logger
	projectID    string
	topicName    string
	subName      string

	// Deduplication: track last historyId per account to drop replays of the
	// same notification
	mu            sync.Mutex
	lastHistoryID map[string]uint64
}

func NewService(projectID, topicName string, accounts accountrepo.AccountRepository, replayer *replayusecase.HistoryReplayUsecase, credentialsFile string, logger *zap.Logger) (*Service, error) {
	ctx := context.Background()

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %v", err)
	}

	return &Service{
		pubsubClient:  client,
		accounts:      accounts,
		replayer:      replayer,
		logger:        logger.Named("notification"),
		projectID:     projectID,
		topicName:     topicName,
		subName:       topicName + "-sub", // Convention: topic-sub
		lastHistoryID: make(map[string]uint64),
	}, nil
}

func (s *Service) Start(ctx context.Context) {
	s.logger.Info("starting notification listener",
		zap.String("topic", s.topicName), zap.String("subscription", s.subName))

	sub := s.pubsubClient.Subscription(s.subName)
	exists, err := sub.Exists(ctx)
	if err != nil {
		s.logger.Error("failed to check subscription existence", zap.Error(err))
		return
	}

	if !exists {
		topic := s.pubsubClient.Topic(s.topicName)
		topicExists, err := topic.Exists(ctx)
		if err != nil {
			s.logger.Error("failed to check topic existence", zap.Error(err))
			return
		}
		if !topicExists {
			s.logger.Error("push topic does not exist, cannot create subscription",
				zap.String("topic", s.topicName))
			return
		}

		sub, err = s.pubsubClient.CreateSubscription(ctx, s.subName, pubsub.SubscriptionConfig{
			Topic:       topic,
			AckDeadline: 10 * time.Second,
		})
		if err != nil {
			s.logger.Error("failed to create subscription", zap.Error(err))
			return
		}
		s.logger.Info("created subscription", zap.String("subscription", s.subName))
	}

	err = sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		s.handleMessage(ctx, msg)
		msg.Ack()
	})
	if err != nil {
		s.logger.Error("receive loop ended", zap.Error(err))
	}
}

func (s *Service) handleMessage(ctx context.Context, msg *pubsub.Message) {
	var notification GmailNotification
	if err := json.Unmarshal(msg.Data, &notification); err != nil {
		s.logger.Error("failed to unmarshal notification", zap.Error(err))
		return
	}

	log := s.logger.With(
		zap.String("email", notification.EmailAddress),
		zap.Uint64("history_id", notification.HistoryID))

	account, err := s.accounts.FindByEmail(notification.EmailAddress)
	if err != nil {
		log.Error("failed to look up account", zap.Error(err))
		return
	}
	if account == nil {
		log.Warn("notification for unknown account")
		return
	}

	if s.isDuplicate(account.ID, notification.HistoryID) {
		log.Debug("skipping duplicate notification")
		return
	}

	// The receipt itself is the health signal the selector reads; record it
	// even if the replay below fails.
	if err := s.accounts.RecordWebhookReceipt(account.ID); err != nil {
		log.Error("failed to record webhook receipt", zap.Error(err))
	}

	if account.HistoryWatermark == nil {
		// First notification for this account: seed the cursor so future
		// replays have a starting point.
		if err := s.accounts.UpdateWatermark(account.ID, gmail.FormatHistoryID(notification.HistoryID)); err != nil {
			log.Error("failed to seed watermark", zap.Error(err))
		}
		return
	}

	if err := s.replayer.ReplayHistorySince(ctx, account.Email, *account.HistoryWatermark); err != nil {
		log.Error("incremental replay failed", zap.Error(err))
	}
}

func (s *Service) isDuplicate(accountID string, historyID uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if last, ok := s.lastHistoryID[accountID]; ok && historyID <= last {
		return true
	}
	s.lastHistoryID[accountID] = historyID
	return false
}
