package react

import (
	"context"
	"errors"

	"github.com/codeready-toolchain/agentcore/pkg/breaker"
	"github.com/codeready-toolchain/agentcore/pkg/llm"
	"github.com/codeready-toolchain/agentcore/pkg/retry"
)

// ProtectedProvider wraps a raw llm.Provider with the retry + circuit
// breaker + fallback protection around every outbound
// LLM call. One breaker is held per provider name in the shared registry,
// so a GRPCProvider and its fallback entries each get an independent
// circuit.
type ProtectedProvider struct {
	provider llm.Provider
	breakers *breaker.Registry
	retryCfg retry.Config
	fallback *llm.FallbackStrategy
}

// NewProtectedProvider builds a ProtectedProvider. fallback may be nil,
// meaning a final failure is surfaced as-is with no alternate-model retry.
func NewProtectedProvider(provider llm.Provider, breakers *breaker.Registry, retryCfg retry.Config, fallback *llm.FallbackStrategy) *ProtectedProvider {
	return &ProtectedProvider{provider: provider, breakers: breakers, retryCfg: retryCfg, fallback: fallback}
}

// Complete runs the primary provider's Complete wrapped in retry and the
// named circuit breaker. On final failure, a configured fallback is tried
// exactly once; fallback failure preserves the original error.
func (p *ProtectedProvider) Complete(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	br := p.breakers.Get(p.provider.Name())

	var resp llm.CompletionResponse
	err := br.Do(ctx, func(ctx context.Context) error {
		r, result := retry.DoWithValue(ctx, p.retryCfg, func() (llm.CompletionResponse, error) {
			return p.provider.Complete(ctx, req)
		})
		if result.Err != nil {
			return result.Err
		}
		resp = r
		return nil
	})
	if err == nil {
		return resp, nil
	}

	if p.fallback != nil {
		if fbResp, fbErr := p.fallback.Complete(ctx, req); fbErr == nil {
			return fbResp, nil
		}
	}
	return llm.CompletionResponse{}, err
}

// Stream runs the primary provider's Stream guarded by the circuit breaker.
// Only connection establishment is breaker-observed — once a stream is
// open, per-chunk errors arrive as StreamEvent.Err rather than a Go error,
// and are not retried mid-stream.
func (p *ProtectedProvider) Stream(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamEvent, error) {
	br := p.breakers.Get(p.provider.Name())
	if !br.Allow() {
		return nil, breaker.ErrOpen
	}

	stream, err := p.provider.Stream(ctx, req)
	if err != nil {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			br.OnFailure()
		}
		return nil, err
	}
	br.OnSuccess()
	return stream, nil
}
