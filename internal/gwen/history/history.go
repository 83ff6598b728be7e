// Package history implements the persistent conversation log behind Gwen's
// chat sessions. Each Discord user has an implicit conversation: the ordered
// set of rows sharing their user ID. Rows are immutable once written; the
// row id assigned by SQLite is the authoritative ordering key.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// DefaultMaxMessages is the conversation bound applied by the session layer
// when it does not specify one. One pinned system prompt plus a window of
// eight recent turns keeps the model request payload small without losing
// the persona instructions.
const DefaultMaxMessages = 9

// ErrInvalidBound is returned by PruneConversation when maxMessages < 1.
// A bound below one would leave no room for even the anchor message.
var ErrInvalidBound = errors.New("history: max messages must be at least 1")

// Message is a single turn in a conversation.
type Message struct {
	Role      string    // "system", "user" or "assistant"; not validated here
	Content   string    // message text, may contain newlines and unicode
	Timestamp time.Time // advisory creation time, never used for ordering
}

// History persists and retrieves per-user conversation logs.
// It is safe for concurrent use; SQLite serializes writers underneath.
type History struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates a History backed by the given database connection. The caller
// must ensure the conversation table exists (created by migration
// 0001_conversation.sql). If logger is nil, the default slog logger is used.
func New(db *sql.DB, logger *slog.Logger) *History {
	if logger == nil {
		logger = slog.Default()
	}
	return &History{db: db, logger: logger}
}

// AddMessage appends one message to the user's conversation. The row id
// assigned by SQLite becomes the message's position in the conversation.
func (h *History) AddMessage(ctx context.Context, userID, role, content string) error {
	_, err := h.db.ExecContext(ctx, `
		INSERT INTO conversation (user_id, role, content)
		VALUES (?, ?, ?)
	`, userID, role, content)
	if err != nil {
		return fmt.Errorf("failed to store message: %w", err)
	}

	h.logger.Debug("stored message", "user_id", userID, "role", role, "content_len", len(content))
	return nil
}

// AddMessages appends the given messages in order. Each message is inserted
// individually; relative order among them is preserved but the batch is not
// a single transaction.
func (h *History) AddMessages(ctx context.Context, userID string, msgs []Message) error {
	for _, m := range msgs {
		if err := h.AddMessage(ctx, userID, m.Role, m.Content); err != nil {
			return err
		}
	}
	h.logger.Debug("bulk stored messages", "user_id", userID, "count", len(msgs))
	return nil
}

// GetConversation returns every message for the user in insertion order.
// An unknown user yields an empty slice, not an error.
func (h *History) GetConversation(ctx context.Context, userID string) ([]Message, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT role, content, timestamp FROM conversation
		WHERE user_id = ?
		ORDER BY id ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversation: %w", err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var (
			m  Message
			ts sql.NullString
		)
		if err := rows.Scan(&m.Role, &m.Content, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		if ts.Valid {
			// SQLite's CURRENT_TIMESTAMP renders as "2006-01-02 15:04:05".
			// The timestamp is advisory; a row whose timestamp does not
			// parse is still returned, with a zero Timestamp.
			if t, err := time.Parse(time.DateTime, ts.String); err == nil {
				m.Timestamp = t
			}
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	return msgs, nil
}

// PruneConversation bounds the user's conversation to maxMessages rows.
// The chronologically first row is always retained — it is expected to be
// the system prompt, but its role is deliberately not checked — together
// with the last maxMessages-1 rows. Everything else is deleted in a single
// transaction, so concurrent readers never observe a half-pruned state.
//
// A conversation at or under the bound is left untouched. maxMessages < 1
// is rejected with ErrInvalidBound.
func (h *History) PruneConversation(ctx context.Context, userID string, maxMessages int) error {
	if maxMessages < 1 {
		return ErrInvalidBound
	}

	rows, err := h.db.QueryContext(ctx, `
		SELECT id FROM conversation
		WHERE user_id = ?
		ORDER BY id ASC
	`, userID)
	if err != nil {
		return fmt.Errorf("failed to query conversation ids: %w", err)
	}

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan message id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("error iterating message ids: %w", err)
	}
	rows.Close()

	if len(ids) <= maxMessages {
		return nil
	}

	// Retained set: the anchor (first id) plus the newest maxMessages-1 ids.
	// When the conversation barely exceeds the bound the anchor may also sit
	// inside the tail window; the map deduplicates it.
	keep := make(map[int64]struct{}, maxMessages)
	keep[ids[0]] = struct{}{}
	for _, id := range ids[len(ids)-(maxMessages-1):] {
		keep[id] = struct{}{}
	}

	var doomed []int64
	for _, id := range ids {
		if _, ok := keep[id]; !ok {
			doomed = append(doomed, id)
		}
	}
	if len(doomed) == 0 {
		return nil
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin prune transaction: %w", err)
	}

	query := fmt.Sprintf(
		"DELETE FROM conversation WHERE id IN (%s)",
		placeholders(len(doomed)),
	)
	args := make([]any, len(doomed))
	for i, id := range doomed {
		args[i] = id
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete pruned messages: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit prune: %w", err)
	}

	h.logger.Debug("pruned conversation", "user_id", userID, "deleted", len(doomed), "bound", maxMessages)
	return nil
}

// Clear irreversibly deletes all messages for all users.
func (h *History) Clear(ctx context.Context) error {
	if _, err := h.db.ExecContext(ctx, "DELETE FROM conversation"); err != nil {
		return fmt.Errorf("failed to clear conversation history: %w", err)
	}
	h.logger.Info("cleared all conversation history")
	return nil
}

// placeholders returns n comma-separated SQL placeholders.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
