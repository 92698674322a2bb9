package domain

import "time"

// RunMetrics aggregates the outcome of one reconciliation run. Created fresh
// per run, owned by the orchestrator, and only ever mutated after each batch's
// join point.
type RunMetrics struct {
	TotalAccountsFound       int            `json:"total_accounts_found"`
	AccountsSkipped          int            `json:"accounts_skipped"`
	AccountsPolled           int            `json:"accounts_polled"`
	ByProvider               map[string]int `json:"by_provider"`
	MessagesRecovered        int            `json:"messages_recovered"`
	ScheduledActionsExecuted int            `json:"scheduled_actions_executed"`
	ScheduledActionsFailed   int            `json:"scheduled_actions_failed"`
	WebhookGapsDetected      int            `json:"webhook_gaps_detected"`
	ErrorCount               int            `json:"error_count"`
	Duration                 time.Duration  `json:"duration"`
}

func NewRunMetrics() *RunMetrics {
	return &RunMetrics{ByProvider: make(map[string]int)}
}

// PollResult is the immutable outcome of polling one account. Errors are
// carried as a field rather than returned so one bad account never aborts its
// batch.
type PollResult struct {
	// MessagesProcessed is a coarse recovered-something signal: 1 when the
	// watermark advanced during replay, 0 otherwise. The exact number of
	// recovered messages is not observable from the watermark alone.
	MessagesProcessed int    `json:"messages_processed"`
	CaughtGap         bool   `json:"caught_gap"`
	Err               string `json:"error,omitempty"`
}

// ExecutionSummary is the outcome of one pending-action sweep
type ExecutionSummary struct {
	Executed int      `json:"executed"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors"`
}

// AccountRunResult is the outcome of a single-account reconciliation
type AccountRunResult struct {
	MessagesProcessed        int    `json:"messages_processed"`
	ScheduledActionsExecuted int    `json:"scheduled_actions_executed"`
	Err                      string `json:"error,omitempty"`
}
