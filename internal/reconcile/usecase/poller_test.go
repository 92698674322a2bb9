package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	accountdomain "inboxpilot-backend/internal/account/domain"

	"go.uber.org/zap"
)

func TestPollAccountNoWatermarkSkipsReplay(t *testing.T) {
	acct := &accountdomain.Account{ID: "a1", Email: "new@example.com", Provider: accountdomain.ProviderGoogle}
	replayer := &fakeReplayer{}
	poller := NewAccountPoller(newFakeDirectory(acct), replayer, zap.NewNop())

	result := poller.PollAccount(context.Background(), acct)
	if result.MessagesProcessed != 0 || result.CaughtGap || result.Err != "" {
		t.Fatalf("expected zero result for brand-new account, got %+v", result)
	}
	if replayer.callCount() != 0 {
		t.Fatalf("replay should not be invoked for accounts without a watermark")
	}
}

func TestPollAccountWatermarkAdvanceCatchesGap(t *testing.T) {
	acct := &accountdomain.Account{ID: "a1", Email: "gap@example.com",
		Provider: accountdomain.ProviderGoogle, HistoryWatermark: strPtr("1000")}
	dir := newFakeDirectory(acct)
	replayer := &fakeReplayer{onReplay: func(email, watermark string) {
		// Simulate the replay service advancing the persisted cursor
		dir.mu.Lock()
		dir.byID["a1"] = &accountdomain.Account{ID: "a1", Email: "gap@example.com",
			Provider: accountdomain.ProviderGoogle, HistoryWatermark: strPtr("1042")}
		dir.mu.Unlock()
	}}
	poller := NewAccountPoller(dir, replayer, zap.NewNop())

	result := poller.PollAccount(context.Background(), acct)
	if result.MessagesProcessed != 1 || !result.CaughtGap {
		t.Fatalf("expected gap caught, got %+v", result)
	}
	if result.Err != "" {
		t.Fatalf("unexpected error: %s", result.Err)
	}
}

func TestPollAccountNoAdvanceReturnsZero(t *testing.T) {
	acct := &accountdomain.Account{ID: "a1", Email: "quiet@example.com",
		Provider: accountdomain.ProviderGoogle, HistoryWatermark: strPtr("1000")}
	poller := NewAccountPoller(newFakeDirectory(acct), &fakeReplayer{}, zap.NewNop())

	result := poller.PollAccount(context.Background(), acct)
	if result.MessagesProcessed != 0 || result.CaughtGap || result.Err != "" {
		t.Fatalf("expected zero result when watermark did not advance, got %+v", result)
	}
}

func TestPollAccountSubscriptionProviderIsCleanNoop(t *testing.T) {
	acct := &accountdomain.Account{ID: "a1", Email: "ms@example.com",
		Provider: accountdomain.ProviderOutlook, HistoryWatermark: strPtr("1000")}
	replayer := &fakeReplayer{}
	poller := NewAccountPoller(newFakeDirectory(acct), replayer, zap.NewNop())

	result := poller.PollAccount(context.Background(), acct)
	if result.MessagesProcessed != 0 || result.CaughtGap || result.Err != "" {
		t.Fatalf("expected clean zero result for subscription-only provider, got %+v", result)
	}
	if replayer.callCount() != 0 {
		t.Fatalf("replay should not be invoked for subscription-only providers")
	}
}

func TestPollAccountUnknownProviderRecordsError(t *testing.T) {
	acct := &accountdomain.Account{ID: "a1", Email: "odd@example.com",
		Provider: "yahoo", HistoryWatermark: strPtr("1000")}
	poller := NewAccountPoller(newFakeDirectory(acct), &fakeReplayer{}, zap.NewNop())

	result := poller.PollAccount(context.Background(), acct)
	if !strings.Contains(result.Err, "unknown provider") {
		t.Fatalf("expected unknown provider error, got %+v", result)
	}
	if result.MessagesProcessed != 0 || result.CaughtGap {
		t.Fatalf("unknown provider must not report recovered work, got %+v", result)
	}
}

func TestPollAccountReplayFailureIsIsolated(t *testing.T) {
	acct := &accountdomain.Account{ID: "a1", Email: "flaky@example.com",
		Provider: accountdomain.ProviderGoogle, HistoryWatermark: strPtr("1000")}
	replayer := &fakeReplayer{err: errors.New("rate limited by provider")}
	poller := NewAccountPoller(newFakeDirectory(acct), replayer, zap.NewNop())

	result := poller.PollAccount(context.Background(), acct)
	if !strings.Contains(result.Err, "rate limited") {
		t.Fatalf("expected replay error captured on result, got %+v", result)
	}
	if result.MessagesProcessed != 0 || result.CaughtGap {
		t.Fatalf("failed replay must not report recovered work, got %+v", result)
	}
}

func TestPollAccountRecoversFromReplayPanic(t *testing.T) {
	acct := &accountdomain.Account{ID: "a1", Email: "boom@example.com",
		Provider: accountdomain.ProviderGoogle, HistoryWatermark: strPtr("1000")}
	replayer := &fakeReplayer{onReplay: func(email, watermark string) {
		panic("history store corrupted")
	}}
	poller := NewAccountPoller(newFakeDirectory(acct), replayer, zap.NewNop())

	result := poller.PollAccount(context.Background(), acct)
	if !strings.Contains(result.Err, "panic") || !strings.Contains(result.Err, "history store corrupted") {
		t.Fatalf("expected panic converted to result error, got %+v", result)
	}
	if result.MessagesProcessed != 0 || result.CaughtGap {
		t.Fatalf("panicked poll must not report recovered work, got %+v", result)
	}
}

func TestPollAccountRereadFailureIsIsolated(t *testing.T) {
	acct := &accountdomain.Account{ID: "a1", Email: "gone@example.com",
		Provider: accountdomain.ProviderGoogle, HistoryWatermark: strPtr("1000")}
	dir := newFakeDirectory(acct)
	dir.byIDErr = errors.New("connection reset")
	poller := NewAccountPoller(dir, &fakeReplayer{}, zap.NewNop())

	result := poller.PollAccount(context.Background(), acct)
	if !strings.Contains(result.Err, "connection reset") {
		t.Fatalf("expected re-read error captured on result, got %+v", result)
	}
}
