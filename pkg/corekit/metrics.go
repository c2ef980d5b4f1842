package corekit

import "time"

// MetricEvent is implemented by every concrete event kind published to the
// metric ring buffer. Tenant is resolved at publish time by the caller, not
// baked in at event construction.
type MetricEvent interface {
	Kind() string
}

// TokenUsageEvent records LLM token consumption and estimated cost for one
// completion (sync or final streaming chunk).
type TokenUsageEvent struct {
	Provider           string
	Model              string
	Time               time.Time
	TenantID           string
	PromptTokens       int
	CachedTokens       int
	CompletionTokens   int
	ReasoningTokens    int
	EstimatedCostUsd   float64
}

func (TokenUsageEvent) Kind() string { return "token_usage" }

// ToolCallEvent records the outcome of one tool invocation.
type ToolCallEvent struct {
	Name       string
	Time       time.Time
	TenantID   string
	DurationMs int64
	Success    bool
}

func (ToolCallEvent) Kind() string { return "tool_call" }

// ExecutionEvent records the terminal outcome of one agent run.
type ExecutionEvent struct {
	Time       time.Time
	TenantID   string
	DurationMs int64
	Success    bool
	ErrorCode  string
}

func (ExecutionEvent) Kind() string { return "execution" }

// GuardRejectionEvent records a request rejected by the guard pipeline.
type GuardRejectionEvent struct {
	Time     time.Time
	TenantID string
	Stage    string
	Reason   string
}

func (GuardRejectionEvent) Kind() string { return "guard_rejection" }

// CircuitBreakerTransitionEvent records a state transition of a named
// circuit breaker.
type CircuitBreakerTransitionEvent struct {
	Time     time.Time
	TenantID string
	Name     string
	From     string
	To       string
}

func (CircuitBreakerTransitionEvent) Kind() string { return "circuit_breaker_transition" }

// KV is an ordered key/value fact, used in ConversationSummary.Facts.
type KV struct {
	Key   string
	Value string
}

// ConversationSummary is the hierarchical-memory artifact for one session.
// SummarizedUpToIndex never decreases for a session.
type ConversationSummary struct {
	SessionID           string
	Narrative           string
	Facts               []KV
	SummarizedUpToIndex int
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// CachedResponse is the artifact stored in the ResponseCache, keyed by a
// fingerprint of the cache-equivalence fields of an AgentCommand.
type CachedResponse struct {
	Content   string
	ToolsUsed []string
}
