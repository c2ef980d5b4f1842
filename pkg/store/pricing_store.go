package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/codeready-toolchain/agentcore/pkg/pricing"
)

// ModelPriceStore is the pgx-backed pricing.Store implementation.
type ModelPriceStore struct {
	pool *pgxpool.Pool
}

var _ pricing.Store = (*ModelPriceStore)(nil)

// ListPrices returns every price revision of every model, including
// superseded ones, so CostCalculator can resolve the rate in effect at an
// arbitrary point in time rather than only the current one.
func (s *ModelPriceStore) ListPrices(ctx context.Context) ([]pricing.ModelPrice, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT provider, model, effective_at, prompt_per_million, completion_per_million,
		       cached_per_million, reasoning_per_million
		FROM model_prices`)
	if err != nil {
		return nil, fmt.Errorf("query model prices: %w", err)
	}
	defer rows.Close()

	var out []pricing.ModelPrice
	for rows.Next() {
		var p pricing.ModelPrice
		if err := rows.Scan(&p.Provider, &p.Model, &p.EffectiveAt, &p.PromptPerMillion,
			&p.CompletionPerMillion, &p.CachedPerMillion, &p.ReasoningPerMillion); err != nil {
			return nil, fmt.Errorf("scan model price row: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpsertPrice inserts a new price revision, or updates the rates of an
// existing revision sharing the same (provider, model, effective_at). Used
// by the composition root's admin-side price-table loader; the read path
// only ever goes through ListPrices.
func (s *ModelPriceStore) UpsertPrice(ctx context.Context, p pricing.ModelPrice) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO model_prices (provider, model, effective_at, prompt_per_million,
		                           completion_per_million, cached_per_million, reasoning_per_million)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (provider, model, effective_at) DO UPDATE SET
			prompt_per_million = EXCLUDED.prompt_per_million,
			completion_per_million = EXCLUDED.completion_per_million,
			cached_per_million = EXCLUDED.cached_per_million,
			reasoning_per_million = EXCLUDED.reasoning_per_million`,
		p.Provider, p.Model, p.EffectiveAt, p.PromptPerMillion, p.CompletionPerMillion,
		p.CachedPerMillion, p.ReasoningPerMillion)
	if err != nil {
		return fmt.Errorf("upsert model price: %w", err)
	}
	return nil
}
