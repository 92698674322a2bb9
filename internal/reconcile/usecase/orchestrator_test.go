package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	accountdomain "inboxpilot-backend/internal/account/domain"
	actiondomain "inboxpilot-backend/internal/action/domain"

	"go.uber.org/zap"
)

func newTestOrchestrator(dir *fakeDirectory, replayer *fakeReplayer, store *fakeActionStore, sleep Sleeper) *Orchestrator {
	cfg := testReconcileConfig()
	log := zap.NewNop()
	selector := NewAccountSelector(dir, cfg, log)
	poller := NewAccountPoller(dir, replayer, log)
	pending := NewPendingActionExecutor(store, dir, &fakeHandleFactory{}, &fakeActionExecutor{}, cfg, log)
	return NewOrchestrator(selector, poller, pending, dir, cfg, sleep, log)
}

func TestRunForAccountNotFound(t *testing.T) {
	replayer := &fakeReplayer{}
	orch := newTestOrchestrator(newFakeDirectory(), replayer, &fakeActionStore{}, nil)

	result := orch.RunForAccount(context.Background(), "nope")
	if result.Err != "Account not found" {
		t.Fatalf("err=%q want %q", result.Err, "Account not found")
	}
	if result.MessagesProcessed != 0 || result.ScheduledActionsExecuted != 0 {
		t.Fatalf("expected zero counters, got %+v", result)
	}
	if replayer.callCount() != 0 {
		t.Fatalf("no poll should run for an unknown account")
	}
}

func TestRunForAccountPollsOnce(t *testing.T) {
	acct := &accountdomain.Account{ID: "a1", Email: "a@example.com",
		Provider: accountdomain.ProviderGoogle, HistoryWatermark: strPtr("500")}
	replayer := &fakeReplayer{}
	store := &fakeActionStore{}
	orch := newTestOrchestrator(newFakeDirectory(acct), replayer, store, nil)

	result := orch.RunForAccount(context.Background(), "a1")
	if result.Err != "" {
		t.Fatalf("unexpected error: %s", result.Err)
	}
	if replayer.callCount() != 1 {
		t.Fatalf("replay calls=%d want=1", replayer.callCount())
	}
	// The single-account path deliberately skips the pending action sweep
	if store.callCount != 0 {
		t.Fatalf("single-account run must not sweep pending actions")
	}
}

func TestRunAllCapsPolledAccounts(t *testing.T) {
	dir := newFakeDirectory()
	for i := 0; i < 150; i++ {
		acct := &accountdomain.Account{
			ID:               fmt.Sprintf("acct-%d", i),
			Email:            fmt.Sprintf("user%d@example.com", i),
			Provider:         accountdomain.ProviderGoogle,
			HistoryWatermark: strPtr("100"),
		}
		dir.eligible = append(dir.eligible, acct)
		dir.byID[acct.ID] = acct
	}
	sleeper := &sleepRecorder{}
	orch := newTestOrchestrator(dir, &fakeReplayer{}, &fakeActionStore{}, sleeper.sleep)

	metrics := orch.RunAll(context.Background())
	if metrics.TotalAccountsFound != 150 {
		t.Fatalf("found=%d want=150", metrics.TotalAccountsFound)
	}
	if metrics.AccountsPolled != 100 {
		t.Fatalf("polled=%d want=100", metrics.AccountsPolled)
	}
	if metrics.ByProvider["google"] != 100 {
		t.Fatalf("byProvider[google]=%d want=100", metrics.ByProvider["google"])
	}
	// 100 accounts in batches of 10 pause after every batch except the last
	if len(sleeper.delays) != 9 {
		t.Fatalf("sleeps=%d want=9", len(sleeper.delays))
	}
	for _, d := range sleeper.delays {
		if d != time.Second {
			t.Fatalf("sleep delay=%s want=1s", d)
		}
	}
}

func TestRunAllAggregatesOutcomes(t *testing.T) {
	good := &accountdomain.Account{ID: "good", Email: "good@example.com",
		Provider: accountdomain.ProviderGoogle, HistoryWatermark: strPtr("100")}
	bad := &accountdomain.Account{ID: "bad", Email: "bad@example.com",
		Provider: "yahoo", HistoryWatermark: strPtr("100")}
	skippable := &accountdomain.Account{ID: "ms", Email: "ms@example.com",
		Provider: accountdomain.ProviderOutlook, HistoryWatermark: strPtr("100")}

	dir := newFakeDirectory(good, bad, skippable)
	replayer := &fakeReplayer{onReplay: func(email, watermark string) {
		if email != "good@example.com" {
			return
		}
		dir.mu.Lock()
		dir.byID["good"] = &accountdomain.Account{ID: "good", Email: "good@example.com",
			Provider: accountdomain.ProviderGoogle, HistoryWatermark: strPtr("200")}
		dir.mu.Unlock()
	}}
	orch := newTestOrchestrator(dir, replayer, &fakeActionStore{}, (&sleepRecorder{}).sleep)

	metrics := orch.RunAll(context.Background())
	if metrics.AccountsPolled != 3 {
		t.Fatalf("polled=%d want=3", metrics.AccountsPolled)
	}
	if metrics.MessagesRecovered != 1 {
		t.Fatalf("recovered=%d want=1", metrics.MessagesRecovered)
	}
	if metrics.WebhookGapsDetected != 1 {
		t.Fatalf("gaps=%d want=1", metrics.WebhookGapsDetected)
	}
	if metrics.ErrorCount != 1 {
		t.Fatalf("errors=%d want=1 (unknown provider only)", metrics.ErrorCount)
	}
	if metrics.Duration <= 0 {
		t.Fatalf("duration should be stamped, got %s", metrics.Duration)
	}
}

func TestRunAllFoldsActionSweep(t *testing.T) {
	store := &fakeActionStore{actions: []*actiondomain.ScheduledAction{
		overdueAction("act-1"), overdueAction("act-2"),
	}}
	orch := newTestOrchestrator(newFakeDirectory(), &fakeReplayer{}, store, (&sleepRecorder{}).sleep)

	metrics := orch.RunAll(context.Background())
	if metrics.ScheduledActionsExecuted != 2 {
		t.Fatalf("actions executed=%d want=2", metrics.ScheduledActionsExecuted)
	}
	if store.callCount != 1 {
		t.Fatalf("sweep ran %d times, want once per run", store.callCount)
	}
}

func TestRunAllCompletesOnSelectionFailure(t *testing.T) {
	dir := newFakeDirectory()
	dir.findErr = fmt.Errorf("db unavailable")
	orch := newTestOrchestrator(dir, &fakeReplayer{}, &fakeActionStore{}, (&sleepRecorder{}).sleep)

	metrics := orch.RunAll(context.Background())
	if metrics == nil {
		t.Fatalf("run must always return metrics")
	}
	if metrics.ErrorCount != 1 {
		t.Fatalf("errors=%d want=1", metrics.ErrorCount)
	}
	if metrics.AccountsPolled != 0 {
		t.Fatalf("polled=%d want=0", metrics.AccountsPolled)
	}
}
