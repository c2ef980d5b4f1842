// Package hooks implements the four lifecycle extension points of an agent
// run: beforeAgentStart, beforeToolCall, afterToolCall, afterAgentComplete.
package hooks

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/codeready-toolchain/agentcore/pkg/corekit"
)

// Outcome is the sum-typed result of a single hook invocation.
type Outcome int

const (
	Continue Outcome = iota
	Reject
	PendingApproval
	Modify
)

// Result carries the Outcome plus whichever payload it needs.
type Result struct {
	Outcome Outcome

	// Reject
	Reason string

	// PendingApproval
	ApprovalID      string
	ApprovalMessage string

	// Modify
	Params map[string]any
}

func ContinueResult() Result { return Result{Outcome: Continue} }

// ToolCallContext describes the tool invocation a beforeToolCall/
// afterToolCall hook observes.
type ToolCallContext struct {
	Name      string
	Arguments map[string]any
	CallIndex int
}

// ToolCallResult is the outcome an afterToolCall hook observes.
type ToolCallResult struct {
	Content string
	Success bool
	Err     error
}

// base is embedded by every concrete hook implementation to provide the
// common Name/Order/Enabled/FailOnError bookkeeping.
type base struct {
	name        string
	order       int
	enabled     bool
	failOnError bool
}

func (b base) Name() string      { return b.name }
func (b base) Order() int        { return b.order }
func (b base) Enabled() bool     { return b.enabled }
func (b base) FailOnError() bool { return b.failOnError }

// NewBase constructs the common hook fields; embed the result in a concrete
// hook type alongside its callback.
func NewBase(name string, order int, enabled, failOnError bool) base {
	return base{name: name, order: order, enabled: enabled, failOnError: failOnError}
}

type ordered interface {
	Name() string
	Order() int
	Enabled() bool
	FailOnError() bool
}

// BeforeAgentStartHook runs once admission succeeds, before LLM work starts.
type BeforeAgentStartHook interface {
	ordered
	BeforeAgentStart(ctx context.Context, hc *corekit.HookContext) (Result, error)
}

// BeforeToolCallHook runs immediately before a tool is invoked.
type BeforeToolCallHook interface {
	ordered
	BeforeToolCall(ctx context.Context, hc *corekit.HookContext, call ToolCallContext) (Result, error)
}

// AfterToolCallHook runs immediately after a tool call completes.
type AfterToolCallHook interface {
	ordered
	AfterToolCall(ctx context.Context, hc *corekit.HookContext, call ToolCallContext, result ToolCallResult) (Result, error)
}

// AfterAgentCompleteHook runs once the ReAct loop has produced a final
// AgentResult, before that result is returned to the caller.
type AfterAgentCompleteHook interface {
	ordered
	AfterAgentComplete(ctx context.Context, hc *corekit.HookContext, response corekit.AgentResult) (Result, error)
}

// Executor runs each lifecycle point's hooks in ascending Order.
type Executor struct {
	beforeStart    []BeforeAgentStartHook
	beforeTool     []BeforeToolCallHook
	afterTool      []AfterToolCallHook
	afterComplete  []AfterAgentCompleteHook
}

// NewExecutor builds an Executor, pre-sorting each point's hooks by Order.
func NewExecutor(beforeStart []BeforeAgentStartHook, beforeTool []BeforeToolCallHook,
	afterTool []AfterToolCallHook, afterComplete []AfterAgentCompleteHook) *Executor {

	sortOrdered(beforeStart)
	sortOrdered(beforeTool)
	sortOrdered(afterTool)
	sortOrdered(afterComplete)

	return &Executor{
		beforeStart:   beforeStart,
		beforeTool:    beforeTool,
		afterTool:     afterTool,
		afterComplete: afterComplete,
	}
}

func sortOrdered[H ordered](hooks []H) {
	sort.SliceStable(hooks, func(i, j int) bool { return hooks[i].Order() < hooks[j].Order() })
}

// RunBeforeAgentStart runs the beforeAgentStart hooks in order. A Reject or
// PendingApproval short-circuits and is returned immediately.
func (e *Executor) RunBeforeAgentStart(ctx context.Context, hc *corekit.HookContext) (Result, error) {
	for _, h := range e.beforeStart {
		if !h.Enabled() {
			continue
		}
		res, err := h.BeforeAgentStart(ctx, hc)
		if short, stop := handleErr(h, err); stop {
			return short, nil
		} else if err != nil && h.FailOnError() {
			return Result{}, fmt.Errorf("hook %s: %w", h.Name(), err)
		}
		if res.Outcome == Reject || res.Outcome == PendingApproval {
			return res, nil
		}
	}
	return ContinueResult(), nil
}

// RunBeforeToolCall runs the beforeToolCall hooks in order for one call.
func (e *Executor) RunBeforeToolCall(ctx context.Context, hc *corekit.HookContext, call ToolCallContext) (Result, error) {
	for _, h := range e.beforeTool {
		if !h.Enabled() {
			continue
		}
		res, err := h.BeforeToolCall(ctx, hc, call)
		if short, stop := handleErr(h, err); stop {
			return short, nil
		} else if err != nil && h.FailOnError() {
			return Result{}, fmt.Errorf("hook %s: %w", h.Name(), err)
		}
		if res.Outcome == Reject || res.Outcome == PendingApproval {
			return res, nil
		}
	}
	return ContinueResult(), nil
}

// RunAfterToolCall runs the afterToolCall hooks in order for one completed call.
func (e *Executor) RunAfterToolCall(ctx context.Context, hc *corekit.HookContext, call ToolCallContext, result ToolCallResult) (Result, error) {
	for _, h := range e.afterTool {
		if !h.Enabled() {
			continue
		}
		res, err := h.AfterToolCall(ctx, hc, call, result)
		if short, stop := handleErr(h, err); stop {
			return short, nil
		} else if err != nil && h.FailOnError() {
			return Result{}, fmt.Errorf("hook %s: %w", h.Name(), err)
		}
		if res.Outcome == Reject || res.Outcome == PendingApproval {
			return res, nil
		}
	}
	return ContinueResult(), nil
}

// RunAfterAgentComplete runs the afterAgentComplete hooks in order.
func (e *Executor) RunAfterAgentComplete(ctx context.Context, hc *corekit.HookContext, response corekit.AgentResult) (Result, error) {
	for _, h := range e.afterComplete {
		if !h.Enabled() {
			continue
		}
		res, err := h.AfterAgentComplete(ctx, hc, response)
		if short, stop := handleErr(h, err); stop {
			return short, nil
		} else if err != nil && h.FailOnError() {
			return Result{}, fmt.Errorf("hook %s: %w", h.Name(), err)
		}
		if res.Outcome == Reject || res.Outcome == PendingApproval {
			return res, nil
		}
	}
	return ContinueResult(), nil
}

// handleErr logs a non-fail-closed hook error and signals the caller to
// treat it as Continue. It never itself decides fail-closed behavior — the
// caller still checks h.FailOnError() for that — it only centralizes the
// "log and continue" logging call.
func handleErr(h ordered, err error) (Result, bool) {
	if err == nil {
		return Result{}, false
	}
	if h.FailOnError() {
		return Result{}, false
	}
	slog.Warn("hook error swallowed (failOnError=false)", "hook", h.Name(), "error", err)
	return ContinueResult(), true
}
