package react

import (
	"context"
	"testing"

	"github.com/codeready-toolchain/agentcore/pkg/corekit"
	"github.com/codeready-toolchain/agentcore/pkg/llm"
	"github.com/codeready-toolchain/agentcore/pkg/tools"
)

func drainStream(ch <-chan StreamEvent) []StreamEvent {
	var events []StreamEvent
	for ev := range ch {
		events = append(events, ev)
	}
	return events
}

func TestExecuteStream_TextThenDone(t *testing.T) {
	provider := &fakeProvider{streamChunks: [][]llm.StreamEvent{
		{
			{Delta: "hel"},
			{Delta: "lo"},
			{Done: true, Usage: llm.Usage{PromptTokens: 5, CompletionTokens: 2}},
		},
	}}
	exec := newTestExecutor(t, provider, &fakeTools{})

	events := drainStream(exec.ExecuteStream(context.Background(), corekit.AgentCommand{UserPrompt: "hi"}))

	if len(events) < 2 {
		t.Fatalf("expected at least text + done events, got %v", events)
	}
	last := events[len(events)-1]
	if last.Kind != EventDone {
		t.Fatalf("expected terminal Done event, got %v", last.Kind)
	}
	var text string
	for _, ev := range events {
		if ev.Kind == EventText {
			text += ev.Text
		}
	}
	if text != "hello" {
		t.Fatalf("expected accumulated text %q, got %q", "hello", text)
	}
}

func TestExecuteStream_ToolStartPrecedesToolEnd(t *testing.T) {
	provider := &fakeProvider{streamChunks: [][]llm.StreamEvent{
		{
			{Delta: "calling"},
			{ToolCalls: []corekit.ToolCall{{Name: "search"}}, Done: true},
		},
		{
			{Delta: "final"},
			{Done: true},
		},
	}}
	toolsReg := &fakeTools{defs: []tools.Definition{{Name: "search"}}}
	exec := newTestExecutor(t, provider, toolsReg)

	events := drainStream(exec.ExecuteStream(context.Background(), corekit.AgentCommand{UserPrompt: "search something"}))

	var startIdx, endIdx = -1, -1
	for i, ev := range events {
		if ev.Kind == EventToolStart && ev.Tool == "search" {
			startIdx = i
		}
		if ev.Kind == EventToolEnd && ev.Tool == "search" {
			endIdx = i
		}
	}
	if startIdx == -1 || endIdx == -1 {
		t.Fatalf("expected both ToolStart and ToolEnd for search, got %v", events)
	}
	if endIdx <= startIdx {
		t.Fatalf("expected ToolEnd to follow ToolStart, got start=%d end=%d", startIdx, endIdx)
	}
	if events[len(events)-1].Kind != EventDone {
		t.Fatal("expected terminal Done event")
	}
}

func TestExecuteStream_StructuredOutputRejected(t *testing.T) {
	provider := &fakeProvider{}
	exec := newTestExecutor(t, provider, &fakeTools{})

	cmd := corekit.AgentCommand{UserPrompt: "hi", Metadata: map[string]any{"responseFormat": "json"}}
	events := drainStream(exec.ExecuteStream(context.Background(), cmd))

	if len(events) != 2 {
		t.Fatalf("expected exactly Error then Done, got %v", events)
	}
	if events[0].Kind != EventError || events[0].Error != corekit.ErrInvalidResponse {
		t.Fatalf("expected INVALID_RESPONSE error first, got %v", events[0])
	}
	if events[1].Kind != EventDone {
		t.Fatalf("expected Done second, got %v", events[1])
	}
	if provider.calls != 0 {
		t.Fatal("expected provider never invoked for a rejected structured-output request")
	}
}

func TestExecuteStream_ProviderErrorEmitsErrorThenDone(t *testing.T) {
	provider := &fakeProvider{streamErr: errTestStream}
	exec := newTestExecutor(t, provider, &fakeTools{})

	events := drainStream(exec.ExecuteStream(context.Background(), corekit.AgentCommand{UserPrompt: "hi"}))

	if len(events) != 2 {
		t.Fatalf("expected exactly Error then Done, got %v", events)
	}
	if events[0].Kind != EventError {
		t.Fatalf("expected Error first, got %v", events[0])
	}
	if events[1].Kind != EventDone {
		t.Fatalf("expected Done last, got %v", events[1])
	}
}

var errTestStream = &streamTestError{}

type streamTestError struct{}

func (*streamTestError) Error() string { return "stream unavailable" }
