package react

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/agentcore/pkg/boundary"
	"github.com/codeready-toolchain/agentcore/pkg/cache"
	"github.com/codeready-toolchain/agentcore/pkg/corekit"
	"github.com/codeready-toolchain/agentcore/pkg/hooks"
	"github.com/codeready-toolchain/agentcore/pkg/llm"
	"github.com/codeready-toolchain/agentcore/pkg/memory"
	"github.com/codeready-toolchain/agentcore/pkg/tools"
)

// EventKind tags a StreamEvent's variant.
type EventKind string

const (
	EventText      EventKind = "text"
	EventToolStart EventKind = "tool_start"
	EventToolEnd   EventKind = "tool_end"
	EventError     EventKind = "error"
	EventDone      EventKind = "done"
)

// StreamEvent is one increment of a streaming run. Done is always the
// terminal event on the channel returned by ExecuteStream; no event follows
// it, and an Error is always immediately followed by Done.
type StreamEvent struct {
	Kind  EventKind
	Text  string
	Tool  string
	Error string
}

// isStructuredOutput reports whether cmd requested a structured response
// format (JSON/YAML), which streaming rejects outright.
func isStructuredOutput(cmd corekit.AgentCommand) bool {
	format, ok := cmd.Metadata["responseFormat"]
	if !ok {
		return false
	}
	s, ok := format.(string)
	if !ok {
		return false
	}
	return s == "json" || s == "yaml"
}

// ExecuteStream runs the same algorithm as Execute, but emits Text/
// ToolStart/ToolEnd events incrementally instead of returning only a
// terminal AgentResult. Client disconnect (ctx cancellation) cancels the
// underlying computation cooperatively.
func (e *Executor) ExecuteStream(ctx context.Context, cmd corekit.AgentCommand) <-chan StreamEvent {
	out := make(chan StreamEvent, 16)
	go func() {
		defer close(out)
		e.runStream(ctx, cmd, out)
	}()
	return out
}

func (e *Executor) runStream(ctx context.Context, cmd corekit.AgentCommand, out chan<- StreamEvent) {
	start := time.Now()

	if isStructuredOutput(cmd) {
		out <- StreamEvent{Kind: EventError, Error: corekit.ErrInvalidResponse}
		out <- StreamEvent{Kind: EventDone}
		return
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
	defer cancel()

	release, errCode := e.acquirePermit(ctx)
	if errCode != "" {
		out <- StreamEvent{Kind: EventError, Error: errCode}
		out <- StreamEvent{Kind: EventDone}
		return
	}
	defer release()

	guardRes := e.guard.Check(ctx, cmd)
	if !guardRes.Allowed {
		e.publish(corekit.GuardRejectionEvent{
			Time: time.Now(), TenantID: cmd.TenantID, Stage: guardRes.Stage, Reason: string(guardRes.Category),
		})
		out <- StreamEvent{Kind: EventError, Error: corekit.ErrGuardRejected}
		out <- StreamEvent{Kind: EventDone}
		return
	}

	runID := uuid.New().String()
	hc := corekit.NewHookContext(runID, cmd.UserID, cmd.UserPrompt)

	startRes, err := e.hooks.RunBeforeAgentStart(ctx, hc)
	if err != nil || startRes.Outcome == hooks.Reject || startRes.Outcome == hooks.PendingApproval {
		out <- StreamEvent{Kind: EventError, Error: corekit.ErrHookRejected}
		out <- StreamEvent{Kind: EventDone}
		return
	}

	eff, err := e.resolver.Resolve(ctx, cmd)
	if err != nil {
		out <- StreamEvent{Kind: EventError, Error: corekit.ErrHookRejected}
		out <- StreamEvent{Kind: EventDone}
		return
	}

	allTools, err := e.toolsReg.ListTools(ctx)
	if err != nil {
		out <- StreamEvent{Kind: EventError, Error: corekit.ErrToolFailed}
		out <- StreamEvent{Kind: EventDone}
		return
	}

	temperature := effectiveTemperature(eff)
	cacheable := temperature <= e.cfg.CacheableTemperature
	fp := cache.Fingerprint(eff.SystemPrompt, eff.UserPrompt, eff.Mode, toolNamesOf(allTools), temperature)

	if cacheable {
		if cached, ok := e.cache.Get(fp); ok {
			for _, name := range cached.ToolsUsed {
				hc.AddToolUsed(name)
			}
			out <- StreamEvent{Kind: EventText, Text: cached.Content}
			result := corekit.AgentResult{
				Success: true, Content: cached.Content, ToolsUsed: cached.ToolsUsed,
				DurationMs: time.Since(start).Milliseconds(),
			}
			e.runAfterComplete(ctx, hc, result)
			e.publish(corekit.ExecutionEvent{Time: time.Now(), TenantID: cmd.TenantID, DurationMs: result.DurationMs, Success: true})
			out <- StreamEvent{Kind: EventDone}
			return
		}
	}

	history := e.loadHistory(ctx, eff)

	ragContext := ""
	if e.rag != nil {
		if text, rerr := e.rag.Retrieve(ctx, eff); rerr == nil {
			ragContext = text
		} else {
			slog.Warn("RAG context retrieval failed", "run_id", runID, "error", rerr)
		}
	}

	selected, err := e.selector.Select(ctx, eff.UserPrompt, allTools)
	if err != nil {
		selected = allTools
	}

	messages := buildInitialMessages(eff.SystemPrompt, ragContext, history, eff)
	systemTokens := memory.EstimateTokens(eff.SystemPrompt) + memory.EstimateTokens(ragContext)

	content, usage, streamErr := e.runStreamLoop(ctx, hc, systemTokens, messages, selected, out)
	if streamErr != nil {
		result := e.fail(start, corekit.ErrLLMFailed, streamErr.Error())
		e.runAfterComplete(ctx, hc, result)
		out <- StreamEvent{Kind: EventError, Error: corekit.ErrLLMFailed}
		out <- StreamEvent{Kind: EventDone}
		return
	}

	if usage.PromptTokens > 0 || usage.CompletionTokens > 0 {
		e.publish(corekit.TokenUsageEvent{
			Provider: e.model, Model: e.model, Time: time.Now(), TenantID: cmd.TenantID,
			PromptTokens: usage.PromptTokens, CachedTokens: usage.CachedTokens, CompletionTokens: usage.CompletionTokens,
		})
	}

	finalContent := boundary.EnforceMax(e.cfg.Boundary, content)
	finalContent = e.filters.Run(ctx, finalContent)

	if cacheable {
		e.cache.Put(fp, corekit.CachedResponse{Content: finalContent, ToolsUsed: hc.ToolsUsed()})
	}

	if err := e.memory.SaveHistory(ctx, eff.SessionID, history,
		corekit.Message{Role: corekit.RoleUser, Text: eff.UserPrompt, Media: eff.Media},
		corekit.Message{Role: corekit.RoleAssistant, Text: finalContent},
	); err != nil {
		slog.Error("save history failed", "run_id", runID, "session_id", eff.SessionID, "error", err)
	}

	result := corekit.AgentResult{
		Success: true, Content: finalContent, ToolsUsed: hc.ToolsUsed(),
		DurationMs: time.Since(start).Milliseconds(),
	}
	e.runAfterComplete(ctx, hc, result)
	e.publish(corekit.ExecutionEvent{Time: time.Now(), TenantID: cmd.TenantID, DurationMs: result.DurationMs, Success: true})
	out <- StreamEvent{Kind: EventDone}
}

// runStreamLoop is the streaming counterpart of runLoop: Text events for
// iteration n are forwarded as they arrive, all preceding that iteration's
// ToolStart events, since tool calls only
// surface once the provider's Done chunk for the iteration has been read.
func (e *Executor) runStreamLoop(ctx context.Context, hc *corekit.HookContext, systemTokens int, messages []corekit.Message, toolDefs []tools.Definition, out chan<- StreamEvent) (string, llm.Usage, error) {
	toolSpecs := toToolSpecs(toolDefs)
	toolCallCount := 0
	toolsStripped := false
	var totalUsage llm.Usage

	for iter := 0; iter < e.cfg.MaxIterations; iter++ {
		messages = e.trimLoopMessages(messages, systemTokens)

		stream, err := e.provider.Stream(ctx, llm.CompletionRequest{Model: e.model, Messages: messages, Tools: toolSpecs})
		if err != nil {
			return "", totalUsage, err
		}

		var iterText strings.Builder
		var toolCalls []corekit.ToolCall
		var streamErr error
		for chunk := range stream {
			if chunk.Err != nil {
				streamErr = chunk.Err
				break
			}
			if chunk.Delta != "" {
				iterText.WriteString(chunk.Delta)
				out <- StreamEvent{Kind: EventText, Text: chunk.Delta}
			}
			if len(chunk.ToolCalls) > 0 {
				toolCalls = chunk.ToolCalls
			}
			if chunk.Done {
				totalUsage.PromptTokens += chunk.Usage.PromptTokens
				totalUsage.CachedTokens += chunk.Usage.CachedTokens
				totalUsage.CompletionTokens += chunk.Usage.CompletionTokens
				break
			}
		}
		if streamErr != nil {
			return "", totalUsage, streamErr
		}

		lastText := iterText.String()

		if toolsStripped && len(toolCalls) > 0 {
			return lastText, totalUsage, nil
		}
		if len(toolCalls) == 0 {
			return lastText, totalUsage, nil
		}

		messages = append(messages, corekit.Message{Role: corekit.RoleAssistant, Text: lastText, ToolCalls: toolCalls})
		messages = append(messages, e.executeToolCallsStreaming(ctx, hc, toolCalls, out)...)

		toolCallCount += len(toolCalls)
		if toolCallCount >= e.cfg.MaxToolCalls && !toolsStripped {
			toolsStripped = true
			toolSpecs = nil
		}
	}

	return "", totalUsage, fmt.Errorf("max iterations (%d) reached without a final answer", e.cfg.MaxIterations)
}
