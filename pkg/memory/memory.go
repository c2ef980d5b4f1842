// Package memory implements conversation history persistence and
// hierarchical summarization: a bounded recent-message
// window plus a running narrative summary of everything older, so a
// long-lived session's prompt stays within the model's context budget
// without losing earlier facts outright.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/codeready-toolchain/agentcore/pkg/corekit"
)

// MemoryStore persists and loads the raw message history for a session.
type MemoryStore interface {
	LoadMessages(ctx context.Context, sessionID string) ([]corekit.Message, error)
	SaveMessages(ctx context.Context, sessionID string, messages []corekit.Message) error
}

// SummaryStore persists and loads the hierarchical summary for a session.
type SummaryStore interface {
	LoadSummary(ctx context.Context, sessionID string) (*corekit.ConversationSummary, error)
	SaveSummary(ctx context.Context, summary corekit.ConversationSummary) error
}

// UserMemoryStore persists durable cross-session facts about a user (e.g.
// stated preferences), distinct from any one conversation's summary.
type UserMemoryStore interface {
	LoadUserMemory(ctx context.Context, userID string) ([]corekit.KV, error)
	SaveUserMemory(ctx context.Context, userID string, facts []corekit.KV) error
}

// Summarizer condenses the oldest messages in a session into an updated
// narrative + facts, given the previous summary (if any). Implemented by an
// LLM-backed adapter in pkg/llm; memory only depends on this narrow seam.
type Summarizer interface {
	Summarize(ctx context.Context, previous *corekit.ConversationSummary, messages []corekit.Message) (corekit.ConversationSummary, error)
}

// Config tunes when summarization triggers and how much history is kept
// verbatim afterward.
type Config struct {
	// TriggerMessageCount is the message count above which a summarization
	// pass runs before the next turn begins.
	TriggerMessageCount int
	// RecentMessageCount is how many of the most recent messages are always
	// kept verbatim, never folded into the summary.
	RecentMessageCount int
	// MaxPromptTokens bounds the token budget trimming aims to fit.
	MaxPromptTokens int
}

// DefaultConfig returns the spec's suggested defaults.
func DefaultConfig() Config {
	return Config{TriggerMessageCount: 40, RecentMessageCount: 20, MaxPromptTokens: 24000}
}

// activeSummarization tracks one session's in-flight summarization so a
// second concurrent turn for the same session can cancel and supersede it
// rather than race it.
type activeSummarization struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// ConversationManager loads, trims, and — on trigger — summarizes a
// session's history, using a pluggable TokenEstimator so the trimming
// algorithm itself is model-agnostic.
type ConversationManager struct {
	messages MemoryStore
	summary  SummaryStore
	summar   Summarizer
	cfg      Config
	estimate TokenEstimator

	mu      sync.Mutex
	active  map[string]*activeSummarization
}

// NewConversationManager builds a manager. estimate may be nil, in which
// case EstimateTokens is used.
func NewConversationManager(messages MemoryStore, summary SummaryStore, summarizer Summarizer, cfg Config, estimate TokenEstimator) *ConversationManager {
	if estimate == nil {
		estimate = EstimateTokens
	}
	if cfg.TriggerMessageCount <= 0 {
		cfg = DefaultConfig()
	}
	return &ConversationManager{
		messages: messages,
		summary:  summary,
		summar:   summarizer,
		cfg:      cfg,
		estimate: estimate,
		active:   make(map[string]*activeSummarization),
	}
}

// LoadedHistory is what a turn builds its prompt from: the running summary
// (if any) plus the verbatim recent messages, already trimmed to fit the
// configured token budget.
type LoadedHistory struct {
	Summary  *corekit.ConversationSummary
	Messages []corekit.Message
}

// LoadHistory fetches the session's summary and messages, triggers a
// synchronous summarization pass if the message count exceeds
// TriggerMessageCount, and returns a token-trimmed result ready for
// prompt assembly.
func (m *ConversationManager) LoadHistory(ctx context.Context, sessionID string) (LoadedHistory, error) {
	msgs, err := m.messages.LoadMessages(ctx, sessionID)
	if err != nil {
		return LoadedHistory{}, fmt.Errorf("load messages: %w", err)
	}
	summary, err := m.summary.LoadSummary(ctx, sessionID)
	if err != nil {
		return LoadedHistory{}, fmt.Errorf("load summary: %w", err)
	}

	if len(msgs) > m.cfg.TriggerMessageCount {
		summary, msgs, err = m.summarizeOnce(ctx, sessionID, summary, msgs)
		if err != nil {
			// Summarization failure degrades to raw trimming rather than
			// failing the turn outright — stale history beats no history.
			slog.Error("summarization failed, falling back to trim-only history", "session_id", sessionID, "error", err)
		}
	}

	trimmed := m.trim(summary, msgs)
	return LoadedHistory{Summary: summary, Messages: trimmed}, nil
}

// SaveHistory appends newMessages to the session's persisted history.
func (m *ConversationManager) SaveHistory(ctx context.Context, sessionID string, existing []corekit.Message, newMessages ...corekit.Message) error {
	all := append(append([]corekit.Message{}, existing...), newMessages...)
	return m.messages.SaveMessages(ctx, sessionID, all)
}

// summarizeOnce runs one hierarchical-summarization pass: everything
// older than RecentMessageCount is folded into the summary;
// SummarizedUpToIndex only ever advances.
func (m *ConversationManager) summarizeOnce(ctx context.Context, sessionID string, prev *corekit.ConversationSummary, msgs []corekit.Message) (*corekit.ConversationSummary, []corekit.Message, error) {
	cutoff := len(msgs) - m.cfg.RecentMessageCount
	if cutoff <= 0 {
		return prev, msgs, nil
	}

	startIdx := 0
	if prev != nil && prev.SummarizedUpToIndex > startIdx {
		startIdx = prev.SummarizedUpToIndex
	}
	if startIdx >= cutoff {
		return prev, msgs, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	m.registerActive(sessionID, cancel, done)
	defer func() {
		close(done)
		m.clearActive(sessionID)
	}()

	toFold := msgs[startIdx:cutoff]
	updated, err := m.summar.Summarize(ctx, prev, toFold)
	if err != nil {
		return prev, msgs, err
	}

	if updated.SummarizedUpToIndex < cutoff {
		updated.SummarizedUpToIndex = cutoff
	}
	if prev != nil && updated.SummarizedUpToIndex < prev.SummarizedUpToIndex {
		updated.SummarizedUpToIndex = prev.SummarizedUpToIndex
	}
	updated.SessionID = sessionID

	if err := m.summary.SaveSummary(ctx, updated); err != nil {
		return prev, msgs, fmt.Errorf("save summary: %w", err)
	}
	return &updated, msgs, nil
}

// CancelActiveSummarization cancels any in-flight summarization for
// sessionID and waits for it to unwind, so a newer turn for the same
// session never races a stale one.
func (m *ConversationManager) CancelActiveSummarization(sessionID string) {
	m.mu.Lock()
	a, ok := m.active[sessionID]
	m.mu.Unlock()
	if !ok {
		return
	}
	a.cancel()
	<-a.done
}

func (m *ConversationManager) registerActive(sessionID string, cancel context.CancelFunc, done chan struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.active[sessionID]; ok {
		existing.cancel()
	}
	m.active[sessionID] = &activeSummarization{cancel: cancel, done: done}
}

func (m *ConversationManager) clearActive(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.active, sessionID)
}

// trim keeps all of the summary plus as many trailing messages as fit in
// what's left of the token budget, via TrimPreservingToolPairs so an
// assistant-with-tool-calls message is never separated from its
// tool-response. If the summary alone consumes the whole budget, only the
// most recent user message is kept verbatim.
func (m *ConversationManager) trim(summary *corekit.ConversationSummary, msgs []corekit.Message) []corekit.Message {
	budget := m.cfg.MaxPromptTokens
	summaryTokens := 0
	if summary != nil {
		summaryTokens = m.estimate(summary.Narrative)
	}
	remaining := budget - summaryTokens
	return TrimPreservingToolPairs(msgs, remaining, m.estimate)
}
