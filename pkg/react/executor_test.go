package react

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/codeready-toolchain/agentcore/pkg/boundary"
	"github.com/codeready-toolchain/agentcore/pkg/cache"
	"github.com/codeready-toolchain/agentcore/pkg/corekit"
	"github.com/codeready-toolchain/agentcore/pkg/filters"
	"github.com/codeready-toolchain/agentcore/pkg/guard"
	"github.com/codeready-toolchain/agentcore/pkg/hooks"
	"github.com/codeready-toolchain/agentcore/pkg/llm"
	"github.com/codeready-toolchain/agentcore/pkg/memory"
	"github.com/codeready-toolchain/agentcore/pkg/tools"
)

// fakeProvider is a scripted llm.Provider/react.Provider double: Complete
// pops the next response/error pair off its queue each call.
type fakeProvider struct {
	responses []llm.CompletionResponse
	errs      []error
	calls     int

	streamChunks [][]llm.StreamEvent
	streamErr    error
}

func (f *fakeProvider) Complete(_ context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
	i := f.calls
	f.calls++
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], err
	}
	return llm.CompletionResponse{}, err
}

func (f *fakeProvider) Stream(_ context.Context, _ llm.CompletionRequest) (<-chan llm.StreamEvent, error) {
	if f.streamErr != nil {
		return nil, f.streamErr
	}
	i := f.calls
	f.calls++
	ch := make(chan llm.StreamEvent, 16)
	go func() {
		defer close(ch)
		if i < len(f.streamChunks) {
			for _, ev := range f.streamChunks[i] {
				ch <- ev
			}
		}
	}()
	return ch, nil
}

type fakeTools struct {
	defs []tools.Definition
	exec func(ctx context.Context, call tools.Call) (tools.Result, error)
}

func (f *fakeTools) ListTools(_ context.Context) ([]tools.Definition, error) { return f.defs, nil }

func (f *fakeTools) Execute(ctx context.Context, call tools.Call) (tools.Result, error) {
	if f.exec != nil {
		return f.exec(ctx, call)
	}
	return tools.Result{Name: call.Name, Content: "ok"}, nil
}

type memMemoryStore struct {
	messages map[string][]corekit.Message
}

func newMemMemoryStore() *memMemoryStore { return &memMemoryStore{messages: map[string][]corekit.Message{}} }

func (s *memMemoryStore) LoadMessages(_ context.Context, sessionID string) ([]corekit.Message, error) {
	return s.messages[sessionID], nil
}

func (s *memMemoryStore) SaveMessages(_ context.Context, sessionID string, messages []corekit.Message) error {
	s.messages[sessionID] = messages
	return nil
}

type memSummaryStore struct{}

func (memSummaryStore) LoadSummary(_ context.Context, _ string) (*corekit.ConversationSummary, error) {
	return nil, nil
}

func (memSummaryStore) SaveSummary(_ context.Context, _ corekit.ConversationSummary) error {
	return nil
}

func newTestExecutor(t *testing.T, provider *fakeProvider, toolsReg ToolExecutor) *Executor {
	t.Helper()
	cfg := DefaultConfig()
	cfg.MaxIterations = 5
	cfg.MaxToolCalls = 4

	guardPipeline := guard.NewPipeline()
	hookExec := hooks.NewExecutor(nil, nil, nil, nil)
	respCache := cache.New(100, time.Minute)
	convManager := memory.NewConversationManager(newMemMemoryStore(), memSummaryStore{}, nil, memory.DefaultConfig(), nil)
	filterChain := filters.NewChain()

	return NewExecutor(cfg, guardPipeline, hookExec, respCache, convManager, toolsReg, tools.AllSelector{}, provider, filterChain, nil, "test-model")
}

func TestExecute_NoToolCalls_ReturnsFinalAnswer(t *testing.T) {
	provider := &fakeProvider{responses: []llm.CompletionResponse{{Content: "the answer"}}}
	exec := newTestExecutor(t, provider, &fakeTools{})

	result := exec.Execute(context.Background(), corekit.AgentCommand{UserPrompt: "hi"})

	if !result.Success {
		t.Fatalf("expected success, got error %q: %s", result.ErrorCode, result.ErrorMessage)
	}
	if result.Content != "the answer" {
		t.Fatalf("unexpected content: %q", result.Content)
	}
}

func TestExecute_ToolCallThenFinalAnswer(t *testing.T) {
	provider := &fakeProvider{responses: []llm.CompletionResponse{
		{ToolCalls: []corekit.ToolCall{{Name: "search", Arguments: map[string]any{"q": "go"}}}},
		{Content: "done"},
	}}
	toolsReg := &fakeTools{defs: []tools.Definition{{Name: "search"}}}
	exec := newTestExecutor(t, provider, toolsReg)

	result := exec.Execute(context.Background(), corekit.AgentCommand{UserPrompt: "search for go"})

	if !result.Success {
		t.Fatalf("expected success, got %s", result.ErrorMessage)
	}
	if result.Content != "done" {
		t.Fatalf("unexpected content: %q", result.Content)
	}
	if len(result.ToolsUsed) != 1 || result.ToolsUsed[0] != "search" {
		t.Fatalf("expected search recorded as used, got %v", result.ToolsUsed)
	}
}

func TestExecute_LLMError_FailsWithLLMFailedCode(t *testing.T) {
	provider := &fakeProvider{errs: []error{errors.New("boom")}}
	exec := newTestExecutor(t, provider, &fakeTools{})

	result := exec.Execute(context.Background(), corekit.AgentCommand{UserPrompt: "hi"})

	if result.Success {
		t.Fatal("expected failure")
	}
	if result.ErrorCode != corekit.ErrLLMFailed {
		t.Fatalf("expected %s, got %s", corekit.ErrLLMFailed, result.ErrorCode)
	}
}

func TestExecute_CacheHitSkipsProvider(t *testing.T) {
	provider := &fakeProvider{responses: []llm.CompletionResponse{{Content: "first"}}}
	exec := newTestExecutor(t, provider, &fakeTools{})

	cmd := corekit.AgentCommand{UserPrompt: "cache me"}
	first := exec.Execute(context.Background(), cmd)
	if !first.Success {
		t.Fatalf("first call failed: %s", first.ErrorMessage)
	}

	callsBefore := provider.calls
	second := exec.Execute(context.Background(), cmd)
	if !second.Success {
		t.Fatalf("second call failed: %s", second.ErrorMessage)
	}
	if second.Content != first.Content {
		t.Fatalf("expected cached content %q, got %q", first.Content, second.Content)
	}
	if provider.calls != callsBefore {
		t.Fatalf("expected provider not called again on cache hit, calls went from %d to %d", callsBefore, provider.calls)
	}
}

func TestExecute_NonCacheableTemperatureBypassesCache(t *testing.T) {
	provider := &fakeProvider{responses: []llm.CompletionResponse{{Content: "a"}, {Content: "b"}}}
	exec := newTestExecutor(t, provider, &fakeTools{})

	hot := 0.9
	cmd := corekit.AgentCommand{UserPrompt: "hi", Temperature: &hot}
	exec.Execute(context.Background(), cmd)
	exec.Execute(context.Background(), cmd)

	if provider.calls != 2 {
		t.Fatalf("expected two provider calls for non-cacheable requests, got %d", provider.calls)
	}
}

func TestExecute_MaxToolCallsStripsToolsAndForcesFinalAnswer(t *testing.T) {
	toolCall := corekit.ToolCall{Name: "search"}
	provider := &fakeProvider{responses: []llm.CompletionResponse{
		{ToolCalls: []corekit.ToolCall{toolCall, toolCall, toolCall, toolCall}},
		{Content: "final after strip"},
	}}
	toolsReg := &fakeTools{defs: []tools.Definition{{Name: "search"}}}
	exec := newTestExecutor(t, provider, toolsReg)

	result := exec.Execute(context.Background(), corekit.AgentCommand{UserPrompt: "go wild"})

	if !result.Success {
		t.Fatalf("expected success, got %s", result.ErrorMessage)
	}
	if result.Content != "final after strip" {
		t.Fatalf("unexpected content: %q", result.Content)
	}
	if provider.calls != 2 {
		t.Fatalf("expected exactly 2 provider calls (one tool round, one forced final), got %d", provider.calls)
	}
}

func TestExecute_OutputTooShortFailsWhenModeFail(t *testing.T) {
	provider := &fakeProvider{responses: []llm.CompletionResponse{{Content: "hi"}}}
	exec := newTestExecutor(t, provider, &fakeTools{})
	exec.cfg.Boundary = boundary.Config{MinChars: 100, MinMode: boundary.ModeFail}

	result := exec.Execute(context.Background(), corekit.AgentCommand{UserPrompt: "hi"})

	if result.Success {
		t.Fatal("expected failure for output below minimum length")
	}
	if result.ErrorCode != corekit.ErrOutputTooShort {
		t.Fatalf("expected %s, got %s", corekit.ErrOutputTooShort, result.ErrorCode)
	}
}

func TestExecute_GuardRejectionShortCircuits(t *testing.T) {
	provider := &fakeProvider{responses: []llm.CompletionResponse{{Content: "unreachable"}}}
	exec := newTestExecutor(t, provider, &fakeTools{})
	exec.guard = guard.NewPipeline(rejectAllStage{})

	result := exec.Execute(context.Background(), corekit.AgentCommand{UserPrompt: "hi"})

	if result.Success {
		t.Fatal("expected guard rejection to fail the turn")
	}
	if result.ErrorCode != corekit.ErrGuardRejected {
		t.Fatalf("expected %s, got %s", corekit.ErrGuardRejected, result.ErrorCode)
	}
	if provider.calls != 0 {
		t.Fatal("expected provider never called after guard rejection")
	}
}

type rejectAllStage struct{}

func (rejectAllStage) Name() string      { return "reject-all" }
func (rejectAllStage) Order() int        { return 0 }
func (rejectAllStage) FailOnError() bool { return false }
func (rejectAllStage) Check(_ context.Context, _ corekit.AgentCommand) (guard.Result, error) {
	return guard.Result{Allowed: false, Stage: "reject-all", Category: guard.ReasonPolicy, Message: "no"}, nil
}
