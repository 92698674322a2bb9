package usecase

import (
	"context"
	"sync"
	"time"

	accountdomain "inboxpilot-backend/internal/account/domain"
	actiondomain "inboxpilot-backend/internal/action/domain"
	"inboxpilot-backend/pkg/provider"
)

type fakeDirectory struct {
	mu       sync.Mutex
	eligible []*accountdomain.Account
	byID     map[string]*accountdomain.Account
	findErr  error
	byIDErr  error

	findByIDCalls int
}

func newFakeDirectory(accounts ...*accountdomain.Account) *fakeDirectory {
	d := &fakeDirectory{byID: make(map[string]*accountdomain.Account)}
	for _, a := range accounts {
		d.eligible = append(d.eligible, a)
		d.byID[a.ID] = a
	}
	return d
}

func (d *fakeDirectory) FindEligibleForReconciliation() ([]*accountdomain.Account, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.findErr != nil {
		return nil, d.findErr
	}
	return d.eligible, nil
}

func (d *fakeDirectory) FindByID(id string) (*accountdomain.Account, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.findByIDCalls++
	if d.byIDErr != nil {
		return nil, d.byIDErr
	}
	return d.byID[id], nil
}

type fakeReplayer struct {
	mu    sync.Mutex
	calls []string
	err   error
	// onReplay runs before returning, letting tests simulate the watermark
	// side channel
	onReplay func(email, watermark string)
}

func (r *fakeReplayer) ReplayHistorySince(ctx context.Context, accountEmail, watermark string) error {
	r.mu.Lock()
	r.calls = append(r.calls, accountEmail)
	cb := r.onReplay
	r.mu.Unlock()
	if cb != nil {
		cb(accountEmail, watermark)
	}
	return r.err
}

func (r *fakeReplayer) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

type fakeActionStore struct {
	actions   []*actiondomain.ScheduledAction
	err       error
	gotLimit  int
	gotGrace  time.Duration
	callCount int
}

func (s *fakeActionStore) FindEligibleForExecution(now time.Time, gracePeriod time.Duration, limit int) ([]*actiondomain.ScheduledAction, error) {
	s.callCount++
	s.gotGrace = gracePeriod
	s.gotLimit = limit
	if s.err != nil {
		return nil, s.err
	}
	return s.actions, nil
}

type fakeHandle struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (h *fakeHandle) record(op string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, op)
	return h.err
}

func (h *fakeHandle) Archive(ctx context.Context, messageID string) error {
	return h.record("archive:" + messageID)
}

func (h *fakeHandle) ApplyLabel(ctx context.Context, messageID, labelID string) error {
	return h.record("label:" + messageID + ":" + labelID)
}

func (h *fakeHandle) Trash(ctx context.Context, messageID string) error {
	return h.record("trash:" + messageID)
}

func (h *fakeHandle) MarkRead(ctx context.Context, messageID string) error {
	return h.record("mark_read:" + messageID)
}

type fakeHandleFactory struct {
	handle       provider.Handle
	err          error
	gotProviders []accountdomain.Provider
}

func (f *fakeHandleFactory) CreateHandle(ctx context.Context, accountID string, p accountdomain.Provider) (provider.Handle, error) {
	f.gotProviders = append(f.gotProviders, p)
	if f.err != nil {
		return nil, f.err
	}
	if f.handle != nil {
		return f.handle, nil
	}
	return &fakeHandle{}, nil
}

type fakeActionExecutor struct {
	result *ExecutionResult
	err    error
	calls  int
}

func (e *fakeActionExecutor) Execute(ctx context.Context, action *actiondomain.ScheduledAction, handle provider.Handle) (*ExecutionResult, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	if e.result != nil {
		return e.result, nil
	}
	return &ExecutionResult{Success: true, ExecutedID: "exec-" + action.ID}, nil
}

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
}

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }
