package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/codeready-toolchain/agentcore/pkg/corekit"
	"github.com/codeready-toolchain/agentcore/pkg/memory"
)

// SummaryStore is the pgx-backed memory.SummaryStore implementation.
type SummaryStore struct {
	pool *pgxpool.Pool
}

var _ memory.SummaryStore = (*SummaryStore)(nil)

func (s *SummaryStore) LoadSummary(ctx context.Context, sessionID string) (*corekit.ConversationSummary, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT narrative, facts, summarized_up_to_index, created_at, updated_at
		FROM conversation_summaries
		WHERE session_id = $1`, sessionID)

	var (
		narrative            string
		factsJSON            []byte
		summarized           int
		createdAt, updatedAt time.Time
	)
	if err := row.Scan(&narrative, &factsJSON, &summarized, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query summary: %w", err)
	}
	var facts []corekit.KV
	if err := json.Unmarshal(factsJSON, &facts); err != nil {
		return nil, fmt.Errorf("decode facts: %w", err)
	}
	return &corekit.ConversationSummary{
		SessionID:           sessionID,
		Narrative:           narrative,
		Facts:               facts,
		SummarizedUpToIndex: summarized,
		CreatedAt:           createdAt,
		UpdatedAt:           updatedAt,
	}, nil
}

func (s *SummaryStore) SaveSummary(ctx context.Context, summary corekit.ConversationSummary) error {
	factsJSON, err := json.Marshal(summary.Facts)
	if err != nil {
		return fmt.Errorf("encode facts: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO conversation_summaries (session_id, narrative, facts, summarized_up_to_index, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (session_id) DO UPDATE SET
			narrative = EXCLUDED.narrative,
			facts = EXCLUDED.facts,
			summarized_up_to_index = EXCLUDED.summarized_up_to_index,
			updated_at = now()`,
		summary.SessionID, summary.Narrative, factsJSON, summary.SummarizedUpToIndex)
	if err != nil {
		return fmt.Errorf("upsert summary: %w", err)
	}
	return nil
}
