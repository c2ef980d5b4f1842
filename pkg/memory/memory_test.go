package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/codeready-toolchain/agentcore/pkg/corekit"
)

type fakeMessageStore struct {
	mu   sync.Mutex
	msgs map[string][]corekit.Message
}

func newFakeMessageStore() *fakeMessageStore {
	return &fakeMessageStore{msgs: make(map[string][]corekit.Message)}
}

func (f *fakeMessageStore) LoadMessages(_ context.Context, sessionID string) ([]corekit.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]corekit.Message{}, f.msgs[sessionID]...), nil
}

func (f *fakeMessageStore) SaveMessages(_ context.Context, sessionID string, messages []corekit.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs[sessionID] = append([]corekit.Message{}, messages...)
	return nil
}

type fakeSummaryStore struct {
	mu       sync.Mutex
	byID     map[string]corekit.ConversationSummary
}

func newFakeSummaryStore() *fakeSummaryStore {
	return &fakeSummaryStore{byID: make(map[string]corekit.ConversationSummary)}
}

func (f *fakeSummaryStore) LoadSummary(_ context.Context, sessionID string) (*corekit.ConversationSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byID[sessionID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (f *fakeSummaryStore) SaveSummary(_ context.Context, s corekit.ConversationSummary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[s.SessionID] = s
	return nil
}

type fakeSummarizer struct {
	calls int
}

func (f *fakeSummarizer) Summarize(_ context.Context, prev *corekit.ConversationSummary, msgs []corekit.Message) (corekit.ConversationSummary, error) {
	f.calls++
	narrative := "summary of " + string(rune('0'+len(msgs))) + " messages"
	if prev != nil {
		narrative = prev.Narrative + " + " + narrative
	}
	return corekit.ConversationSummary{Narrative: narrative}, nil
}

func seedMessages(n int) []corekit.Message {
	msgs := make([]corekit.Message, n)
	for i := range msgs {
		msgs[i] = corekit.Message{Role: corekit.RoleUser, Text: "message content"}
	}
	return msgs
}

func TestLoadHistory_NoTriggerBelowThreshold(t *testing.T) {
	store := newFakeMessageStore()
	store.msgs["s1"] = seedMessages(5)
	summ := newFakeSummarizer()

	mgr := NewConversationManager(store, newFakeSummaryStore(), summ, Config{TriggerMessageCount: 40, RecentMessageCount: 20, MaxPromptTokens: 100000}, nil)
	hist, err := mgr.LoadHistory(context.Background(), "s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(hist.Messages) != 5 {
		t.Fatalf("expected all 5 messages kept, got %d", len(hist.Messages))
	}
	if summ.calls != 0 {
		t.Fatalf("expected no summarization below threshold, got %d calls", summ.calls)
	}
}

func TestLoadHistory_TriggersSummarization(t *testing.T) {
	store := newFakeMessageStore()
	store.msgs["s1"] = seedMessages(50)
	summ := newFakeSummarizer()

	mgr := NewConversationManager(store, newFakeSummaryStore(), summ, Config{TriggerMessageCount: 40, RecentMessageCount: 20, MaxPromptTokens: 100000}, nil)
	hist, err := mgr.LoadHistory(context.Background(), "s1")
	if err != nil {
		t.Fatal(err)
	}
	if summ.calls != 1 {
		t.Fatalf("expected exactly 1 summarization call, got %d", summ.calls)
	}
	if hist.Summary == nil {
		t.Fatal("expected a summary to be produced")
	}
	if hist.Summary.SummarizedUpToIndex != 30 {
		t.Fatalf("expected SummarizedUpToIndex=30, got %d", hist.Summary.SummarizedUpToIndex)
	}
}

func TestLoadHistory_SummarizedUpToIndexNeverDecreases(t *testing.T) {
	store := newFakeMessageStore()
	summaryStore := newFakeSummaryStore()
	summaryStore.byID["s1"] = corekit.ConversationSummary{SessionID: "s1", Narrative: "old", SummarizedUpToIndex: 25}
	store.msgs["s1"] = seedMessages(50)
	summ := newFakeSummarizer()

	mgr := NewConversationManager(store, summaryStore, summ, Config{TriggerMessageCount: 40, RecentMessageCount: 20, MaxPromptTokens: 100000}, nil)
	hist, err := mgr.LoadHistory(context.Background(), "s1")
	if err != nil {
		t.Fatal(err)
	}
	if hist.Summary.SummarizedUpToIndex < 25 {
		t.Fatalf("SummarizedUpToIndex regressed: %d", hist.Summary.SummarizedUpToIndex)
	}
}

func TestTrim_DropsOldestWhenOverBudget(t *testing.T) {
	mgr := NewConversationManager(newFakeMessageStore(), newFakeSummaryStore(), newFakeSummarizer(),
		Config{TriggerMessageCount: 1000, RecentMessageCount: 1000, MaxPromptTokens: 10}, func(s string) int { return 3 })

	msgs := seedMessages(10)
	trimmed := mgr.trim(nil, msgs)
	if len(trimmed) >= len(msgs) {
		t.Fatalf("expected trimming to drop messages, kept %d of %d", len(trimmed), len(msgs))
	}
	// Must keep the most recent messages, in original order.
	if len(trimmed) > 0 && trimmed[len(trimmed)-1] != msgs[len(msgs)-1] {
		t.Fatal("expected the trimmed tail to end with the most recent message")
	}
}

func TestCancelActiveSummarization_NoOpWhenNoneActive(t *testing.T) {
	mgr := NewConversationManager(newFakeMessageStore(), newFakeSummaryStore(), newFakeSummarizer(), DefaultConfig(), nil)
	mgr.CancelActiveSummarization("nonexistent") // must not block or panic
}
