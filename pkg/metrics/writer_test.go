package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/codeready-toolchain/agentcore/pkg/corekit"
)

type fakeEventStore struct {
	saved []corekit.MetricEvent
}

func (f *fakeEventStore) SaveBatch(_ context.Context, events []corekit.MetricEvent) error {
	f.saved = append(f.saved, events...)
	return nil
}

type fakeCostEstimator struct {
	costPerUnit float64
	err         error
}

func (f *fakeCostEstimator) Estimate(_ context.Context, _, _ string, _ time.Time, promptTokens, _, completionTokens, _ int) (float64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return float64(promptTokens+completionTokens) * f.costPerUnit, nil
}

func TestWriter_FlushEnrichesTokenUsageCost(t *testing.T) {
	ring := NewRingBuffer(16)
	ring.Publish(corekit.TokenUsageEvent{Provider: "openai", Model: "gpt-5", PromptTokens: 100, CompletionTokens: 50})
	ring.Publish(corekit.ExecutionEvent{Success: true})

	store := &fakeEventStore{}
	w := NewWriter(ring, store, &fakeCostEstimator{costPerUnit: 0.01}, DefaultWriterConfig(), nil)

	w.flush(context.Background())

	if len(store.saved) != 2 {
		t.Fatalf("expected 2 saved events, got %d", len(store.saved))
	}
	tu, ok := store.saved[0].(corekit.TokenUsageEvent)
	if !ok {
		t.Fatalf("expected first saved event to be a TokenUsageEvent, got %T", store.saved[0])
	}
	if want := 1.5; tu.EstimatedCostUsd != want {
		t.Fatalf("expected estimated cost %v, got %v", want, tu.EstimatedCostUsd)
	}
}

func TestWriter_FlushLeavesCostZeroOnEstimatorFailure(t *testing.T) {
	ring := NewRingBuffer(16)
	ring.Publish(corekit.TokenUsageEvent{Provider: "openai", Model: "gpt-5", PromptTokens: 100})

	store := &fakeEventStore{}
	w := NewWriter(ring, store, &fakeCostEstimator{err: errors.New("price table unavailable")}, DefaultWriterConfig(), nil)

	w.flush(context.Background())

	if len(store.saved) != 1 {
		t.Fatalf("expected the event to still be persisted, got %d saved", len(store.saved))
	}
	tu := store.saved[0].(corekit.TokenUsageEvent)
	if tu.EstimatedCostUsd != 0 {
		t.Fatalf("expected zero cost on estimator failure, got %v", tu.EstimatedCostUsd)
	}
}

func TestWriter_FlushWithNilCostEstimatorSkipsEnrichment(t *testing.T) {
	ring := NewRingBuffer(16)
	ring.Publish(corekit.TokenUsageEvent{Provider: "openai", Model: "gpt-5", PromptTokens: 100, CompletionTokens: 50})

	store := &fakeEventStore{}
	w := NewWriter(ring, store, nil, DefaultWriterConfig(), nil)

	w.flush(context.Background())

	tu := store.saved[0].(corekit.TokenUsageEvent)
	if tu.EstimatedCostUsd != 0 {
		t.Fatalf("expected zero cost with no cost estimator wired, got %v", tu.EstimatedCostUsd)
	}
}
