// Package react implements the ReAct orchestration loop:
// the sole owner of per-request behavior, from permit acquisition through
// guard admission, history load, tool-augmented LLM iteration, output
// boundary enforcement, response filtering, and cache/history persistence.
package react

import (
	"time"

	"github.com/codeready-toolchain/agentcore/pkg/boundary"
	"github.com/codeready-toolchain/agentcore/pkg/breaker"
	"github.com/codeready-toolchain/agentcore/pkg/retry"
)

// SaturationPolicy controls what happens when the request permit semaphore
// is exhausted.
type SaturationPolicy string

const (
	// SaturationFailFast rejects immediately with OVERLOADED.
	SaturationFailFast SaturationPolicy = "fail_fast"
	// SaturationQueue waits up to Config.RequestTimeout for a permit before
	// rejecting with QUEUE_TIMEOUT.
	SaturationQueue SaturationPolicy = "queue"
)

// Config tunes one Executor's admission, iteration, and timeout behavior.
type Config struct {
	// MaxConcurrentRequests bounds the permit semaphore.
	MaxConcurrentRequests int
	// SaturationPolicy selects fail-fast vs. bounded-wait on exhaustion.
	SaturationPolicy SaturationPolicy
	// RequestTimeout bounds the entire request, including queue wait.
	RequestTimeout time.Duration
	// ToolCallTimeout bounds each individual tool call.
	ToolCallTimeout time.Duration
	// MaxToolCalls is the total tool-call budget for one run. Once reached,
	// tools are stripped and the loop runs exactly one more iteration.
	MaxToolCalls int
	// ToolParallelism bounds how many tool calls from one assistant message
	// execute concurrently.
	ToolParallelism int
	// MaxContextWindowTokens and OutputReserveTokens together bound the
	// prompt trimming budget: maxContextWindowTokens - systemTokens -
	// outputReserveTokens.
	MaxContextWindowTokens int
	OutputReserveTokens    int
	// CacheableTemperature is the inclusive upper bound on Temperature for a
	// command to be eligible for response caching.
	CacheableTemperature float64
	// MaxIterations bounds the ReAct loop itself, independent of the tool
	// budget, as a final safety net against a model that never stops
	// calling tools within budget but also never emits a final answer.
	MaxIterations int

	Retry   retry.Config
	Breaker breaker.Config
	Boundary boundary.Config
}

// DefaultConfig returns the spec's suggested defaults.
func DefaultConfig() Config {
	return Config{
		MaxConcurrentRequests:  64,
		SaturationPolicy:       SaturationFailFast,
		RequestTimeout:         60 * time.Second,
		ToolCallTimeout:        20 * time.Second,
		MaxToolCalls:           25,
		ToolParallelism:        4,
		MaxContextWindowTokens: 128000,
		OutputReserveTokens:    4096,
		CacheableTemperature:   0.1,
		MaxIterations:          30,
		Retry:                  retry.DefaultConfig(),
		Breaker:                breaker.DefaultConfig(),
		Boundary:               boundary.Config{},
	}
}
