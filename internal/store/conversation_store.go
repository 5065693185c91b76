package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"taskchat/internal/database"
	"taskchat/internal/models"

	"github.com/google/uuid"
)

// ConversationStore is the append-only log of messages and tool-call
// records. Rows are never updated, and the only deletion is the
// retention purge of old turns: replaying the same Recent result plus
// the same new message reproduces the same resolver decision, which is
// what makes turns reproducible.
type ConversationStore struct {
	db *database.DB
}

// NewConversationStore creates a new conversation store
func NewConversationStore(db *database.DB) *ConversationStore {
	return &ConversationStore{db: db}
}

// Append writes one message as an atomic single-row insert
func (s *ConversationStore) Append(ctx context.Context, userID string, role models.MessageRole, kind models.MessageKind, meta, content string) (int64, error) {
	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO conversation_messages (user_id, role, kind, meta, content, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		userID, role, kind, meta, content, now,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to append message: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read message id: %w", err)
	}
	return id, nil
}

// Recent returns the user's messages in chronological order, bounded by
// both a message count and a maximum age. Safe to call with an empty
// history: returns an empty slice, not an error.
func (s *ConversationStore) Recent(ctx context.Context, userID string, limit int, maxAge time.Duration) ([]models.ConversationMessage, error) {
	cutoff := time.Now().UTC().Add(-maxAge)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, role, kind, meta, content, created_at
		 FROM conversation_messages
		 WHERE user_id = ? AND created_at >= ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		userID, cutoff, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent messages: %w", err)
	}
	defer rows.Close()

	messages := []models.ConversationMessage{}
	for rows.Next() {
		var m models.ConversationMessage
		var meta sql.NullString
		if err := rows.Scan(&m.ID, &m.UserID, &m.Role, &m.Kind, &meta, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.Meta = meta.String
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}

	// Query is newest-first for the LIMIT; callers want chronological.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// AppendToolCall writes the audit record for one executed (or attempted)
// tool call, owned by the given assistant message.
func (s *ConversationStore) AppendToolCall(ctx context.Context, messageID int64, toolName string, parameters, result json.RawMessage, success bool) (int64, error) {
	now := time.Now().UTC()
	toolUseID := uuid.NewString()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tool_calls (message_id, tool_use_id, tool_name, parameters, result, success, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		messageID, toolUseID, toolName, string(parameters), string(result), success, now,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to append tool call: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read tool call id: %w", err)
	}
	return id, nil
}

// PurgeOlderThan removes messages and their tool-call records older
// than the cutoff. Retention cleanup is the one deletion the log
// permits; it trims whole turns far outside the context window, so
// replayability of recent turns is unaffected.
func (s *ConversationStore) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM tool_calls WHERE message_id IN (
			SELECT id FROM conversation_messages WHERE created_at < ?)`,
		cutoff,
	); err != nil {
		return 0, fmt.Errorf("failed to purge tool calls: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM conversation_messages WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge messages: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged messages: %w", err)
	}
	return n, nil
}

// RecentToolCalls returns the user's tool-call records newest-first.
// Records are joined against their owning messages so retrieval never
// mixes users.
func (s *ConversationStore) RecentToolCalls(ctx context.Context, userID string, limit int) ([]models.ToolCallRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT t.id, t.message_id, t.tool_use_id, t.tool_name, t.parameters, t.result, t.success, t.created_at
		 FROM tool_calls t
		 JOIN conversation_messages m ON m.id = t.message_id
		 WHERE m.user_id = ?
		 ORDER BY t.created_at DESC, t.id DESC
		 LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load tool calls: %w", err)
	}
	defer rows.Close()

	records := []models.ToolCallRecord{}
	for rows.Next() {
		var r models.ToolCallRecord
		var params, result string
		if err := rows.Scan(&r.ID, &r.MessageID, &r.ToolUseID, &r.ToolName, &params, &result, &r.Success, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tool call: %w", err)
		}
		r.Parameters = json.RawMessage(params)
		r.Result = json.RawMessage(result)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tool calls: %w", err)
	}
	return records, nil
}
