// Package session orchestrates a single chat turn: it pins the system
// prompt, persists the user's message, bounds the conversation window,
// invokes the chat-completion backend and persists the reply.
package session

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/solunara/gwen/internal/gwen/chat"
	"github.com/solunara/gwen/internal/gwen/config"
	"github.com/solunara/gwen/internal/gwen/history"
)

// ConversationLog is the slice of the history store the responder depends
// on. *history.History satisfies it; tests may substitute their own.
type ConversationLog interface {
	AddMessage(ctx context.Context, userID, role, content string) error
	GetConversation(ctx context.Context, userID string) ([]history.Message, error)
	PruneConversation(ctx context.Context, userID string, maxMessages int) error
}

// Responder turns a user utterance into a persisted, context-aware reply.
//
// Queries for the same user are serialized: each call's fetch → append →
// prune → complete → append → prune cycle runs atomically relative to other
// calls for that user. Queries for different users run in parallel.
type Responder struct {
	log    ConversationLog
	chatFn chat.Func
	model  string
	locks  *userLocks
	logger *slog.Logger
}

// NewResponder creates a Responder. model may be empty, in which case the
// chat backend's default is used. If logger is nil, the default slog logger
// is used.
func NewResponder(log ConversationLog, chatFn chat.Func, model string, logger *slog.Logger) *Responder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Responder{
		log:    log,
		chatFn: chatFn,
		model:  model,
		locks:  newUserLocks(),
		logger: logger,
	}
}

// Query sends prompt to the chat model on behalf of userID and returns the
// assistant's reply verbatim.
//
// The first query for a user pins the configured system prompt as the
// conversation's anchor message. The user turn and the assistant turn are
// both persisted, with a prune after each so the conversation never exceeds
// history.DefaultMaxMessages rows.
//
// The completion call is made at most once and never retried. When it fails,
// the already-persisted user turn is intentionally left in history so a
// follow-up query sees continuity rather than a lost turn.
func (r *Responder) Query(ctx context.Context, prompt, userID, userName string, cfg *config.Config) (string, error) {
	userKey := userID

	mu := r.locks.get(userKey)
	mu.Lock()
	defer mu.Unlock()

	r.logger.Info("querying chat model", "user_id", userKey, "user_name", userName, "prompt_len", len(prompt))

	conversation, err := r.log.GetConversation(ctx, userKey)
	if err != nil {
		return "", err
	}
	if len(conversation) == 0 {
		if err := r.log.AddMessage(ctx, userKey, "system", cfg.SystemPrompt()); err != nil {
			return "", err
		}
		r.logger.Debug("pinned system prompt", "user_id", userKey)
	}

	if err := r.log.AddMessage(ctx, userKey, "user", prompt); err != nil {
		return "", err
	}
	if err := r.log.PruneConversation(ctx, userKey, history.DefaultMaxMessages); err != nil {
		return "", err
	}

	// The re-fetched window is sent to the model exactly as stored — no
	// further truncation or reordering.
	conversation, err = r.log.GetConversation(ctx, userKey)
	if err != nil {
		return "", err
	}
	window := make([]chat.Message, len(conversation))
	for i, m := range conversation {
		window[i] = chat.Message{Role: m.Role, Content: m.Content}
	}

	r.logger.Debug("sending chat request", "model", r.model, "messages", len(window))
	completion, err := r.chatFn(ctx, r.model, window)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	reply, err := completion.AssistantText()
	if err != nil {
		return "", err
	}

	if err := r.log.AddMessage(ctx, userKey, "assistant", reply); err != nil {
		return "", err
	}
	if err := r.log.PruneConversation(ctx, userKey, history.DefaultMaxMessages); err != nil {
		return "", err
	}

	r.logger.Debug("stored assistant reply", "user_id", userKey, "reply_len", len(reply))
	return reply, nil
}
