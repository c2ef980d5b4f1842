package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/codeready-toolchain/agentcore/pkg/corekit"
	"github.com/codeready-toolchain/agentcore/pkg/memory"
)

// UserMemoryStore is the pgx-backed memory.UserMemoryStore implementation
// for durable cross-session facts about a user.
type UserMemoryStore struct {
	pool *pgxpool.Pool
}

var _ memory.UserMemoryStore = (*UserMemoryStore)(nil)

func (s *UserMemoryStore) LoadUserMemory(ctx context.Context, userID string) ([]corekit.KV, error) {
	var factsJSON []byte
	err := s.pool.QueryRow(ctx, `SELECT facts FROM user_memories WHERE user_id = $1`, userID).Scan(&factsJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query user memory: %w", err)
	}
	var facts []corekit.KV
	if err := json.Unmarshal(factsJSON, &facts); err != nil {
		return nil, fmt.Errorf("decode facts: %w", err)
	}
	return facts, nil
}

func (s *UserMemoryStore) SaveUserMemory(ctx context.Context, userID string, facts []corekit.KV) error {
	factsJSON, err := json.Marshal(facts)
	if err != nil {
		return fmt.Errorf("encode facts: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO user_memories (user_id, facts, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (user_id) DO UPDATE SET facts = EXCLUDED.facts, updated_at = now()`,
		userID, factsJSON)
	if err != nil {
		return fmt.Errorf("upsert user memory: %w", err)
	}
	return nil
}
