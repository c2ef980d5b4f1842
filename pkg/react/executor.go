package react

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

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

// Executor is the sole owner of per-request behavior: the
// ReAct orchestration loop, wrapped in admission control, caching, history
// management, output enforcement, and lifecycle hooks.
type Executor struct {
	cfg Config

	sem chan struct{}

	guard    *guard.Pipeline
	hooks    *hooks.Executor
	cache    *cache.ResponseCache
	memory   *memory.ConversationManager
	toolsReg ToolExecutor
	selector tools.Selector
	provider Provider
	filters  *filters.Chain
	metrics  MetricPublisher

	model    string
	rag      RAGContextProvider
	resolver CommandResolver
}

// Option configures optional Executor collaborators.
type Option func(*Executor)

// WithRAGContextProvider sets the retrieval-augmented-generation collaborator.
func WithRAGContextProvider(p RAGContextProvider) Option {
	return func(e *Executor) { e.rag = p }
}

// WithCommandResolver overrides the identity command resolver.
func WithCommandResolver(r CommandResolver) Option {
	return func(e *Executor) { e.resolver = r }
}

// NewExecutor builds an Executor. model is the provider-facing model
// identifier sent with every completion request.
func NewExecutor(
	cfg Config,
	guardPipeline *guard.Pipeline,
	hookExec *hooks.Executor,
	respCache *cache.ResponseCache,
	convManager *memory.ConversationManager,
	toolsReg ToolExecutor,
	selector tools.Selector,
	provider Provider,
	filterChain *filters.Chain,
	metricsPub MetricPublisher,
	model string,
	opts ...Option,
) *Executor {
	if cfg.MaxConcurrentRequests <= 0 {
		cfg.MaxConcurrentRequests = 1
	}
	e := &Executor{
		cfg:      cfg,
		sem:      make(chan struct{}, cfg.MaxConcurrentRequests),
		guard:    guardPipeline,
		hooks:    hookExec,
		cache:    respCache,
		memory:   convManager,
		toolsReg: toolsReg,
		selector: selector,
		provider: provider,
		filters:  filterChain,
		metrics:  metricsPub,
		model:    model,
		resolver: identityResolver{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs one request to completion, start to finish.
func (e *Executor) Execute(ctx context.Context, cmd corekit.AgentCommand) corekit.AgentResult {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
	defer cancel()

	release, errCode := e.acquirePermit(ctx)
	if errCode != "" {
		return e.fail(start, errCode, "request permit not acquired: "+errCode)
	}
	defer release()

	guardRes := e.guard.Check(ctx, cmd)
	if !guardRes.Allowed {
		e.publish(corekit.GuardRejectionEvent{
			Time: time.Now(), TenantID: cmd.TenantID, Stage: guardRes.Stage, Reason: string(guardRes.Category),
		})
		return e.fail(start, corekit.ErrGuardRejected, guardRes.Message)
	}

	runID := uuid.New().String()
	hc := corekit.NewHookContext(runID, cmd.UserID, cmd.UserPrompt)
	hc.SetMetadata("tenantId", cmd.TenantID)
	hc.SetMetadata("sessionId", cmd.SessionID)

	startRes, err := e.hooks.RunBeforeAgentStart(ctx, hc)
	if err != nil {
		return e.fail(start, corekit.ErrHookRejected, err.Error())
	}
	if startRes.Outcome == hooks.Reject || startRes.Outcome == hooks.PendingApproval {
		return e.fail(start, corekit.ErrHookRejected, startRes.Reason)
	}

	eff, err := e.resolver.Resolve(ctx, cmd)
	if err != nil {
		return e.fail(start, corekit.ErrHookRejected, "command resolution: "+err.Error())
	}

	allTools, err := e.toolsReg.ListTools(ctx)
	if err != nil {
		return e.fail(start, corekit.ErrToolFailed, "list tools: "+err.Error())
	}

	temperature := effectiveTemperature(eff)
	cacheable := temperature <= e.cfg.CacheableTemperature
	fp := cache.Fingerprint(eff.SystemPrompt, eff.UserPrompt, eff.Mode, toolNamesOf(allTools), temperature)

	if cacheable {
		if cached, ok := e.cache.Get(fp); ok {
			for _, name := range cached.ToolsUsed {
				hc.AddToolUsed(name)
			}
			result := corekit.AgentResult{
				Success: true, Content: cached.Content, ToolsUsed: cached.ToolsUsed,
				DurationMs: time.Since(start).Milliseconds(),
			}
			e.runAfterComplete(ctx, hc, result)
			e.publish(corekit.ExecutionEvent{Time: time.Now(), TenantID: cmd.TenantID, DurationMs: result.DurationMs, Success: true})
			return result
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

	lr := e.runLoop(ctx, hc, e.model, systemTokens, messages, selected)
	if lr.err != nil {
		result := e.fail(start, lr.errorCode, lr.err.Error())
		e.runAfterComplete(ctx, hc, result)
		return result
	}

	if lr.usage.PromptTokens > 0 || lr.usage.CompletionTokens > 0 {
		e.publish(corekit.TokenUsageEvent{
			Provider: e.model, Model: e.model, Time: time.Now(), TenantID: cmd.TenantID,
			PromptTokens: lr.usage.PromptTokens, CachedTokens: lr.usage.CachedTokens, CompletionTokens: lr.usage.CompletionTokens,
		})
	}

	content := boundary.EnforceMax(e.cfg.Boundary, lr.content)
	switch boundary.EnforceMin(e.cfg.Boundary, content) {
	case boundary.OutcomeFail:
		result := e.fail(start, corekit.ErrOutputTooShort, "response shorter than the configured minimum")
		e.runAfterComplete(ctx, hc, result)
		return result
	case boundary.OutcomeRetry:
		retried := e.retryForLonger(ctx, hc, messages)
		if retried != "" {
			content = retried
		}
	case boundary.OutcomeWarn:
		slog.Warn("response shorter than the configured minimum, keeping content under WARN mode",
			"run_id", hc.RunID, "min_chars", e.cfg.Boundary.MinChars, "length", len([]rune(strings.TrimSpace(content))))
	}

	content = e.filters.Run(ctx, content)

	if cacheable {
		e.cache.Put(fp, corekit.CachedResponse{Content: content, ToolsUsed: lr.toolsUsed})
	}

	if err := e.memory.SaveHistory(ctx, eff.SessionID, history,
		corekit.Message{Role: corekit.RoleUser, Text: eff.UserPrompt, Media: eff.Media},
		corekit.Message{Role: corekit.RoleAssistant, Text: content},
	); err != nil {
		slog.Error("save history failed", "run_id", runID, "session_id", eff.SessionID, "error", err)
	}

	result := corekit.AgentResult{
		Success: true, Content: content, ToolsUsed: lr.toolsUsed,
		DurationMs: time.Since(start).Milliseconds(),
	}
	e.runAfterComplete(ctx, hc, result)
	e.publish(corekit.ExecutionEvent{Time: time.Now(), TenantID: cmd.TenantID, DurationMs: result.DurationMs, Success: true})
	return result
}

// retryForLonger implements boundary.ModeRetryOnce: ask the model once more
// for a longer response, accepting the retry only if it itself meets the
// minimum. Returns "" if the retry did not help.
func (e *Executor) retryForLonger(ctx context.Context, hc *corekit.HookContext, messages []corekit.Message) string {
	prompt := corekit.Message{
		Role: corekit.RoleUser,
		Text: "Your previous response was too short. Please provide a more complete, detailed answer.",
	}
	retryMessages := append(append([]corekit.Message{}, messages...), prompt)
	resp, err := e.provider.Complete(ctx, llm.CompletionRequest{Model: e.model, Messages: retryMessages})
	if err != nil {
		return ""
	}
	if boundary.EnforceMin(e.cfg.Boundary, resp.Content) != boundary.OutcomeOK {
		return ""
	}
	return resp.Content
}

func (e *Executor) loadHistory(ctx context.Context, cmd corekit.AgentCommand) []corekit.Message {
	if len(cmd.ConversationHistory) > 0 {
		return cmd.ConversationHistory
	}
	if cmd.SessionID == "" {
		return nil
	}
	hist, err := e.memory.LoadHistory(ctx, cmd.SessionID)
	if err != nil {
		slog.Error("load history failed, falling back to command history", "session_id", cmd.SessionID, "error", err)
		return cmd.ConversationHistory
	}
	return hist.Messages
}

func (e *Executor) runAfterComplete(ctx context.Context, hc *corekit.HookContext, result corekit.AgentResult) {
	if _, err := e.hooks.RunAfterAgentComplete(ctx, hc, result); err != nil {
		slog.Warn("afterAgentComplete hook failed", "run_id", hc.RunID, "error", err)
	}
}

func (e *Executor) publish(ev corekit.MetricEvent) {
	if e.metrics != nil {
		e.metrics.Publish(ev)
	}
}

func (e *Executor) fail(start time.Time, code, message string) corekit.AgentResult {
	return corekit.AgentResult{
		Success: false, ErrorCode: code, ErrorMessage: message,
		DurationMs: time.Since(start).Milliseconds(),
	}
}

// acquirePermit acquires a slot from the bounded request semaphore,
// returning a release func. On saturation, SaturationFailFast rejects
// immediately; SaturationQueue waits up to ctx's deadline.
func (e *Executor) acquirePermit(ctx context.Context) (func(), string) {
	select {
	case e.sem <- struct{}{}:
		return func() { <-e.sem }, ""
	default:
	}

	if e.cfg.SaturationPolicy == SaturationFailFast {
		return nil, corekit.ErrOverloaded
	}

	select {
	case e.sem <- struct{}{}:
		return func() { <-e.sem }, ""
	case <-ctx.Done():
		return nil, corekit.ErrQueueTimeout
	}
}
