package react

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/codeready-toolchain/agentcore/pkg/corekit"
	"github.com/codeready-toolchain/agentcore/pkg/llm"
	"github.com/codeready-toolchain/agentcore/pkg/memory"
	"github.com/codeready-toolchain/agentcore/pkg/tools"
)

// loopResult is the terminal outcome of the ReAct iteration loop.
type loopResult struct {
	content   string
	toolsUsed []string
	usage     llm.Usage
	err       error
	errorCode string
}

// runLoop is the ReAct iteration loop itself: build
// request, call the LLM, exit on a tool-call-free response, otherwise
// execute the requested tools behind the parallel barrier and continue.
func (e *Executor) runLoop(ctx context.Context, hc *corekit.HookContext, model string, systemTokens int, messages []corekit.Message, toolDefs []tools.Definition) loopResult {
	toolSpecs := toToolSpecs(toolDefs)
	toolCallCount := 0
	toolsStripped := false
	var totalUsage llm.Usage

	for iter := 0; iter < e.cfg.MaxIterations; iter++ {
		messages = e.trimLoopMessages(messages, systemTokens)

		resp, err := e.provider.Complete(ctx, llm.CompletionRequest{Model: model, Messages: messages, Tools: toolSpecs})
		if err != nil {
			return loopResult{err: err, errorCode: corekit.ErrLLMFailed, usage: totalUsage}
		}

		totalUsage.PromptTokens += resp.Usage.PromptTokens
		totalUsage.CachedTokens += resp.Usage.CachedTokens
		totalUsage.CompletionTokens += resp.Usage.CompletionTokens

		if toolsStripped && len(resp.ToolCalls) > 0 {
			// Model still attempted a call with no tools offered — accept
			// whatever text it produced rather than loop forever.
			return loopResult{content: resp.Content, toolsUsed: hc.ToolsUsed(), usage: totalUsage}
		}
		if len(resp.ToolCalls) == 0 {
			return loopResult{content: resp.Content, toolsUsed: hc.ToolsUsed(), usage: totalUsage}
		}

		messages = append(messages, corekit.Message{Role: corekit.RoleAssistant, Text: resp.Content, ToolCalls: resp.ToolCalls})
		messages = append(messages, e.executeToolCalls(ctx, hc, resp.ToolCalls)...)

		toolCallCount += len(resp.ToolCalls)
		if toolCallCount >= e.cfg.MaxToolCalls && !toolsStripped {
			toolsStripped = true
			toolSpecs = nil
			slog.Info("max tool calls reached, stripping tools for final iteration",
				"run_id", hc.RunID, "tool_calls", toolCallCount)
		}
	}

	return loopResult{
		err:       fmt.Errorf("max iterations (%d) reached without a final answer", e.cfg.MaxIterations),
		errorCode: corekit.ErrLLMFailed,
		usage:     totalUsage,
	}
}

// trimLoopMessages bounds the live loop's message list to
// maxContextWindowTokens - systemTokens - outputReserveTokens via
// memory.TrimPreservingToolPairs, the same pair-preserving algorithm
// memory.ConversationManager.trim applies to stored history — an
// assistant-with-tool-calls message is never separated from its
// tool-response here either. A non-positive budget keeps only the most
// recent user message.
func (e *Executor) trimLoopMessages(messages []corekit.Message, systemTokens int) []corekit.Message {
	budget := e.cfg.MaxContextWindowTokens - systemTokens - e.cfg.OutputReserveTokens
	return memory.TrimPreservingToolPairs(messages, budget, memory.EstimateTokens)
}
