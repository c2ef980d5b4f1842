package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/codeready-toolchain/agentcore/pkg/corekit"
	"github.com/codeready-toolchain/agentcore/pkg/metrics"
)

// MetricEventStore is the pgx-backed metrics.EventStore implementation. Each
// concrete event kind is stored as its own JSON payload alongside a kind
// discriminator, so the table schema never has to change when a new event
// kind is added to corekit.
type MetricEventStore struct {
	pool *pgxpool.Pool
}

var _ metrics.EventStore = (*MetricEventStore)(nil)

func (s *MetricEventStore) SaveBatch(ctx context.Context, events []corekit.MetricEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, ev := range events {
		tenant, occurredAt := eventMeta(ev)
		payload, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("encode metric event: %w", err)
		}
		batch.Queue(`
			INSERT INTO metric_events (kind, tenant_id, occurred_at, payload)
			VALUES ($1, $2, $3, $4)`,
			ev.Kind(), tenant, occurredAt, payload)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert metric event %d: %w", i, err)
		}
	}
	return nil
}

// eventMeta pulls the two fields every concrete event kind carries in
// common (tenant and timestamp) without forcing a shared base struct on
// corekit's event types.
func eventMeta(ev corekit.MetricEvent) (tenant string, occurredAt time.Time) {
	switch e := ev.(type) {
	case corekit.TokenUsageEvent:
		return e.TenantID, e.Time
	case corekit.ToolCallEvent:
		return e.TenantID, e.Time
	case corekit.ExecutionEvent:
		return e.TenantID, e.Time
	case corekit.GuardRejectionEvent:
		return e.TenantID, e.Time
	case corekit.CircuitBreakerTransitionEvent:
		return e.TenantID, e.Time
	default:
		return "", time.Now()
	}
}
