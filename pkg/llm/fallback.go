package llm

import (
	"context"
	"fmt"
	"log/slog"
)

// FallbackStrategy tries an ordered list of providers/models, in order,
// falling through to the next entry on a transient failure. A non-transient
// failure (e.g. authentication) on the primary still falls through — the
// point of fallback is availability, not error classification — but the
// final attempt's error is what's returned if every entry fails, so the
// caller sees the root cause rather than the last (possibly less
// informative) fallback's error.
type FallbackStrategy struct {
	// Entries is the ordered list of (provider, model) pairs to try.
	Entries []FallbackEntry
	// ToollessRetry, if true, retries the final entry once more with Tools
	// stripped from the request — some providers fail tool-calling requests
	// in ways a plain completion wouldn't.
	ToollessRetry bool
}

// FallbackEntry names one provider+model pair to try.
type FallbackEntry struct {
	Provider Provider
	Model    string
}

// Complete tries each entry in order, returning the first success. If every
// entry fails, the error from the FIRST entry is returned — it's the
// request the caller actually wanted, and usually the most diagnostic.
func (f FallbackStrategy) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	var firstErr error
	for i, entry := range f.Entries {
		attempt := req
		attempt.Model = entry.Model

		resp, err := entry.Provider.Complete(ctx, attempt)
		if err == nil {
			return resp, nil
		}
		if i == 0 {
			firstErr = err
		}
		slog.Warn("LLM provider failed, falling back", "provider", entry.Provider.Name(), "model", entry.Model, "attempt", i, "error", err)
	}

	if f.ToollessRetry && len(f.Entries) > 0 && len(req.Tools) > 0 {
		last := f.Entries[len(f.Entries)-1]
		attempt := req
		attempt.Model = last.Model
		attempt.Tools = nil
		if resp, err := last.Provider.Complete(ctx, attempt); err == nil {
			return resp, nil
		}
	}

	if firstErr == nil {
		firstErr = fmt.Errorf("no LLM providers configured")
	}
	return CompletionResponse{}, fmt.Errorf("all fallback providers failed: %w", firstErr)
}
