package react

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/codeready-toolchain/agentcore/pkg/corekit"
	"github.com/codeready-toolchain/agentcore/pkg/hooks"
	"github.com/codeready-toolchain/agentcore/pkg/tools"
)

// executeToolCalls runs calls with up to ToolParallelism concurrent
// workers and returns one ToolResponse Message per call, in the same order
// as calls. Results are returned together only once every call has
// completed — the barrier required before appending tool
// responses to the running message history.
func (e *Executor) executeToolCalls(ctx context.Context, hc *corekit.HookContext, calls []corekit.ToolCall) []corekit.Message {
	results := make([]corekit.Message, len(calls))

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, e.cfg.ToolParallelism)

	for i, call := range calls {
		i, call := i, call
		sem <- struct{}{}
		g.Go(func() error {
			defer func() { <-sem }()
			results[i] = e.executeOneTool(gctx, hc, call)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (e *Executor) executeOneTool(ctx context.Context, hc *corekit.HookContext, call corekit.ToolCall) corekit.Message {
	toolCtx := hooks.ToolCallContext{Name: call.Name, Arguments: call.Arguments, CallIndex: call.CallIndex}

	res, err := e.hooks.RunBeforeToolCall(ctx, hc, toolCtx)
	if err != nil {
		return toolErrorMessage(call.Name, fmt.Sprintf("beforeToolCall hook error: %v", err))
	}
	switch res.Outcome {
	case hooks.Reject:
		return toolErrorMessage(call.Name, "tool call rejected: "+res.Reason)
	case hooks.PendingApproval:
		return toolErrorMessage(call.Name, "tool call pending approval: "+res.ApprovalMessage)
	}

	callCtx, cancel := context.WithTimeout(ctx, e.cfg.ToolCallTimeout)
	defer cancel()

	start := time.Now()
	result, execErr := e.toolsReg.Execute(callCtx, tools.Call{Name: call.Name, Arguments: call.Arguments})
	duration := time.Since(start)

	var content string
	var success bool
	var toolRes hooks.ToolCallResult
	if execErr != nil {
		content = fmt.Sprintf("tool error: %v", execErr)
		toolRes = hooks.ToolCallResult{Content: content, Success: false, Err: execErr}
	} else {
		content = result.Content
		success = !result.IsError
		toolRes = hooks.ToolCallResult{Content: content, Success: success}
	}

	if _, herr := e.hooks.RunAfterToolCall(ctx, hc, toolCtx, toolRes); herr != nil {
		slog.Warn("afterToolCall hook failed", "tool", call.Name, "error", herr)
	}

	hc.AddToolUsed(call.Name)
	if e.metrics != nil {
		e.metrics.Publish(corekit.ToolCallEvent{
			Name:       call.Name,
			Time:       time.Now(),
			DurationMs: duration.Milliseconds(),
			Success:    success,
		})
	}

	return corekit.Message{Role: corekit.RoleToolResponse, ToolName: call.Name, Text: content}
}

func toolErrorMessage(name, content string) corekit.Message {
	return corekit.Message{Role: corekit.RoleToolResponse, ToolName: name, Text: content}
}

// executeToolCallsStreaming is executeToolCalls with a ToolStart/ToolEnd
// event wrapped tightly around each call. Per-tool start-before-end is
// strict; concurrent calls may interleave their starts and ends with each
// other.
func (e *Executor) executeToolCallsStreaming(ctx context.Context, hc *corekit.HookContext, calls []corekit.ToolCall, out chan<- StreamEvent) []corekit.Message {
	results := make([]corekit.Message, len(calls))

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, e.cfg.ToolParallelism)

	for i, call := range calls {
		i, call := i, call
		sem <- struct{}{}
		g.Go(func() error {
			defer func() { <-sem }()
			out <- StreamEvent{Kind: EventToolStart, Tool: call.Name}
			results[i] = e.executeOneTool(gctx, hc, call)
			out <- StreamEvent{Kind: EventToolEnd, Tool: call.Name}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
