// Package pricing computes the estimated USD cost of an LLM completion from
// its token usage, backed by a per-model price table that is cached in
// 5-minute buckets to absorb read-through load without serving stale prices
// for long. No suitable off-the-shelf cache library appeared
// across the example pack for this narrow a shape, so the bucket is
// hand-rolled in the same style as pkg/guard's rate-limit windows.
package pricing

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"
)

// ModelPrice is one historical rate revision for a model, effective from
// EffectiveAt until the next revision (or forever, for the latest one).
type ModelPrice struct {
	Provider             string
	Model                string
	EffectiveAt          time.Time
	PromptPerMillion     float64
	CompletionPerMillion float64
	CachedPerMillion     float64
	ReasoningPerMillion  float64
}

// Store looks up the full price history. Implemented by a pgx-backed
// adapter; CostCalculator never imports the storage engine directly.
type Store interface {
	ListPrices(ctx context.Context) ([]ModelPrice, error)
}

const bucketWidth = 5 * time.Minute

// CostCalculator estimates completion cost from a cached price table,
// refreshing it at most once per bucketWidth.
type CostCalculator struct {
	store Store

	mu       sync.RWMutex
	prices   map[string][]ModelPrice // key: provider + "/" + model, sorted ascending by EffectiveAt
	loadedAt time.Time
	now      func() time.Time
}

// NewCostCalculator builds a calculator backed by store.
func NewCostCalculator(store Store) *CostCalculator {
	return &CostCalculator{store: store, prices: map[string][]ModelPrice{}, now: time.Now}
}

func key(provider, model string) string { return provider + "/" + model }

func (c *CostCalculator) ensureFresh(ctx context.Context) error {
	c.mu.RLock()
	fresh := c.now().Sub(c.loadedAt) < bucketWidth && len(c.prices) > 0
	c.mu.RUnlock()
	if fresh {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.now().Sub(c.loadedAt) < bucketWidth && len(c.prices) > 0 {
		return nil
	}

	prices, err := c.store.ListPrices(ctx)
	if err != nil {
		return err
	}
	table := make(map[string][]ModelPrice, len(prices))
	for _, p := range prices {
		k := key(p.Provider, p.Model)
		table[k] = append(table[k], p)
	}
	for k := range table {
		revisions := table[k]
		sort.Slice(revisions, func(i, j int) bool { return revisions[i].EffectiveAt.Before(revisions[j].EffectiveAt) })
		table[k] = revisions
	}
	c.prices = table
	c.loadedAt = c.now()
	return nil
}

// priceAt returns the latest revision effective at or before at. at's zero
// value means "now": the most recent revision regardless of its timestamp.
func priceAt(revisions []ModelPrice, at time.Time) (ModelPrice, bool) {
	if len(revisions) == 0 {
		return ModelPrice{}, false
	}
	if at.IsZero() {
		return revisions[len(revisions)-1], true
	}
	best := -1
	for i, p := range revisions {
		if !p.EffectiveAt.After(at) {
			best = i
		} else {
			break
		}
	}
	if best == -1 {
		return ModelPrice{}, false
	}
	return revisions[best], true
}

// Estimate computes the USD cost of a completion from its token counts using
// the price revision in effect at the given time, rounded half-up to 8
// decimal places. at's zero value means "use the latest known price". An
// unknown model, or a time before any known revision, yields a zero cost
// rather than an error — billing visibility is best-effort, not a gate.
func (c *CostCalculator) Estimate(ctx context.Context, provider, model string, at time.Time, promptTokens, cachedTokens, completionTokens, reasoningTokens int) (float64, error) {
	if err := c.ensureFresh(ctx); err != nil {
		return 0, err
	}

	c.mu.RLock()
	revisions := c.prices[key(provider, model)]
	c.mu.RUnlock()

	price, ok := priceAt(revisions, at)
	if !ok {
		return 0, nil
	}

	uncachedPrompt := promptTokens - cachedTokens
	if uncachedPrompt < 0 {
		uncachedPrompt = 0
	}

	cost := float64(uncachedPrompt)*price.PromptPerMillion/1_000_000 +
		float64(cachedTokens)*price.CachedPerMillion/1_000_000 +
		float64(completionTokens)*price.CompletionPerMillion/1_000_000 +
		float64(reasoningTokens)*price.ReasoningPerMillion/1_000_000

	return roundHalfUp(cost, 8), nil
}

func roundHalfUp(v float64, decimals int) float64 {
	factor := math.Pow(10, float64(decimals))
	return math.Floor(v*factor+0.5) / factor
}
