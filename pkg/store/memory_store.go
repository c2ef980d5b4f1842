package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/codeready-toolchain/agentcore/pkg/corekit"
	"github.com/codeready-toolchain/agentcore/pkg/memory"
)

// MessageStore is the pgx-backed memory.MemoryStore implementation, keyed by
// session and an explicit position so history loads back in order.
type MessageStore struct {
	pool *pgxpool.Pool
}

var _ memory.MemoryStore = (*MessageStore)(nil)

func (s *MessageStore) LoadMessages(ctx context.Context, sessionID string) ([]corekit.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT role, text, tool_name, tool_calls, media
		FROM conversation_messages
		WHERE session_id = $1
		ORDER BY position ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var out []corekit.Message
	for rows.Next() {
		var (
			role, text, toolName string
			toolCallsJSON, mediaJSON []byte
		)
		if err := rows.Scan(&role, &text, &toolName, &toolCallsJSON, &mediaJSON); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		var toolCalls []corekit.ToolCall
		if err := json.Unmarshal(toolCallsJSON, &toolCalls); err != nil {
			return nil, fmt.Errorf("decode tool_calls: %w", err)
		}
		var media []corekit.Attachment
		if err := json.Unmarshal(mediaJSON, &media); err != nil {
			return nil, fmt.Errorf("decode media: %w", err)
		}
		out = append(out, corekit.Message{
			Role:      corekit.Role(role),
			Text:      text,
			ToolName:  toolName,
			ToolCalls: toolCalls,
			Media:     media,
		})
	}
	return out, rows.Err()
}

// SaveMessages replaces the session's full message history in one
// transaction: the conversation manager always passes the complete, already
// trimmed slice, so a delete-then-insert is simpler and just as correct as a
// diff.
func (s *MessageStore) SaveMessages(ctx context.Context, sessionID string, messages []corekit.Message) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM conversation_messages WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("clear existing messages: %w", err)
	}

	batch := &pgx.Batch{}
	for i, m := range messages {
		toolCallsJSON, err := json.Marshal(m.ToolCalls)
		if err != nil {
			return fmt.Errorf("encode tool_calls: %w", err)
		}
		mediaJSON, err := json.Marshal(m.Media)
		if err != nil {
			return fmt.Errorf("encode media: %w", err)
		}
		batch.Queue(`
			INSERT INTO conversation_messages (session_id, position, role, text, tool_name, tool_calls, media)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			sessionID, i, string(m.Role), m.Text, m.ToolName, toolCallsJSON, mediaJSON)
	}
	if batch.Len() > 0 {
		br := tx.SendBatch(ctx, batch)
		for i := 0; i < batch.Len(); i++ {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("insert message %d: %w", i, err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("close batch: %w", err)
		}
	}

	return tx.Commit(ctx)
}
