// Package llm defines the provider seam the ReAct loop calls into, plus a
// gRPC-backed reference implementation and the ordered-fallback strategy
// that wraps it.
package llm

import (
	"context"

	"github.com/codeready-toolchain/agentcore/pkg/corekit"
)

// CompletionRequest is what a provider needs to produce one completion.
type CompletionRequest struct {
	Model       string
	Messages    []corekit.Message
	Tools       []ToolSpec
	Temperature *float64
	MaxTokens   int
}

// ToolSpec is the provider-facing shape of a callable tool definition.
type ToolSpec struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// Usage reports token accounting for a completion.
type Usage struct {
	PromptTokens     int
	CachedTokens     int
	CompletionTokens int
}

// CompletionResponse is one provider completion: either a final text
// answer, one or more tool calls, or both (a thinking preamble plus calls).
type CompletionResponse struct {
	Content   string
	ToolCalls []corekit.ToolCall
	Usage     Usage
}

// StreamEvent is one increment of a streaming completion, in emission
// order: zero or more Delta events, then exactly one of ToolCalls or Done.
type StreamEvent struct {
	Delta     string
	ToolCalls []corekit.ToolCall
	Done      bool
	Usage     Usage
	Err       error
}

// Provider is implemented by each LLM backend.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
	Stream(ctx context.Context, req CompletionRequest) (<-chan StreamEvent, error)
}
