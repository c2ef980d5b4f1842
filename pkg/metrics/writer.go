package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/codeready-toolchain/agentcore/pkg/corekit"
)

// EventStore persists a batch of drained metric events. Implemented by a
// pgx-backed adapter; the writer never depends on the storage engine
// directly.
type EventStore interface {
	SaveBatch(ctx context.Context, events []corekit.MetricEvent) error
}

// CostEstimator prices a token-usage event's cost at the time it occurred.
// Implemented by pkg/pricing.CostCalculator; the writer only depends on this
// narrow seam so it can be exercised with a fake in tests.
type CostEstimator interface {
	Estimate(ctx context.Context, provider, model string, at time.Time, promptTokens, cachedTokens, completionTokens, reasoningTokens int) (float64, error)
}

// WriterConfig configures the drain loop.
type WriterConfig struct {
	// DrainInterval is how often the buffer is flushed to the store.
	DrainInterval time.Duration
	// BatchSize is the max number of events drained per tick.
	BatchSize int
}

// DefaultWriterConfig returns sensible drain-loop defaults.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{DrainInterval: 2 * time.Second, BatchSize: 1024}
}

// Writer owns a RingBuffer and a background goroutine that periodically
// drains it and persists the result, reporting queue-health gauges to
// Prometheus along the way (internal health signal only; there is no HTTP
// /metrics endpoint).
type Writer struct {
	ring  *RingBuffer
	store EventStore
	cost  CostEstimator
	cfg   WriterConfig

	queueDepth  prometheus.Gauge
	droppedGg   prometheus.Gauge
	lastFlushOK prometheus.Gauge

	stop chan struct{}
	done chan struct{}
}

// NewWriter builds a Writer around an existing ring buffer. registerer may
// be nil (tests), in which case the gauges are created but not registered to
// any collector. cost may be nil, in which case TokenUsageEvent.EstimatedCostUsd
// is left at its zero value rather than computed.
func NewWriter(ring *RingBuffer, store EventStore, cost CostEstimator, cfg WriterConfig, registerer prometheus.Registerer) *Writer {
	if cfg.DrainInterval <= 0 {
		cfg = DefaultWriterConfig()
	}

	w := &Writer{
		ring:  ring,
		store: store,
		cost:  cost,
		cfg:   cfg,
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "agentcore_metric_queue_depth",
			Help: "Number of metric events currently queued in the ring buffer.",
		}),
		droppedGg: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "agentcore_metric_events_dropped_total",
			Help: "Cumulative count of metric events dropped due to a full ring buffer.",
		}),
		lastFlushOK: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "agentcore_metric_last_flush_success",
			Help: "1 if the last drain flush succeeded, 0 otherwise.",
		}),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	if registerer != nil {
		registerer.MustRegister(w.queueDepth, w.droppedGg, w.lastFlushOK)
	}
	return w
}

// Publish enqueues an event for later persistence. Safe for concurrent use
// by any number of request-handling goroutines.
func (w *Writer) Publish(ev corekit.MetricEvent) {
	if !w.ring.Publish(ev) {
		slog.Warn("metric event dropped, ring buffer full", "kind", ev.Kind())
	}
}

// Run starts the drain loop and blocks until ctx is canceled or Stop is
// called. Intended to run in its own goroutine from the composition root.
func (w *Writer) Run(ctx context.Context) {
	defer close(w.done)
	ticker := time.NewTicker(w.cfg.DrainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.flush(context.Background())
			return
		case <-w.stop:
			w.flush(context.Background())
			return
		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

// Stop signals Run to drain once more and exit, then blocks until it has.
func (w *Writer) Stop() {
	close(w.stop)
	<-w.done
}

func (w *Writer) flush(ctx context.Context) {
	w.queueDepth.Set(float64(w.ring.Len()))
	w.droppedGg.Set(float64(w.ring.Dropped()))

	events := w.ring.Drain(w.cfg.BatchSize)
	if len(events) == 0 {
		return
	}

	w.enrichCost(ctx, events)

	if w.store == nil {
		return
	}
	if err := w.store.SaveBatch(ctx, events); err != nil {
		w.lastFlushOK.Set(0)
		slog.Error("failed to persist metric event batch", "count", len(events), "error", err)
		return
	}
	w.lastFlushOK.Set(1)
}

// enrichCost fills in TokenUsageEvent.EstimatedCostUsd in place before the
// batch is persisted. A pricing lookup failure for one event logs and
// leaves that event's cost at zero rather than aborting the whole flush.
func (w *Writer) enrichCost(ctx context.Context, events []corekit.MetricEvent) {
	if w.cost == nil {
		return
	}
	for i, ev := range events {
		tu, ok := ev.(corekit.TokenUsageEvent)
		if !ok {
			continue
		}
		cost, err := w.cost.Estimate(ctx, tu.Provider, tu.Model, tu.Time,
			tu.PromptTokens, tu.CachedTokens, tu.CompletionTokens, tu.ReasoningTokens)
		if err != nil {
			slog.Warn("cost estimation failed, leaving event uncosted", "provider", tu.Provider, "model", tu.Model, "error", err)
			continue
		}
		tu.EstimatedCostUsd = cost
		events[i] = tu
	}
}
