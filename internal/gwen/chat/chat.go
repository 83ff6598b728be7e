// Package chat defines the contract between Gwen's session layer and the
// chat-completion backends that produce her replies.
//
// Backends differ in how they shape their results: some hand back a bare
// string, some a typed message object, and some a decoded JSON mapping.
// Completion is the tagged union covering those three shapes; it is
// normalized into plain reply text at this boundary so nothing downstream
// ever branches on shape again.
package chat

import (
	"context"
	"errors"
)

// ErrUnrecognizedShape is returned by AssistantText when a completion
// carries none of the three recognized result shapes.
var ErrUnrecognizedShape = errors.New("chat: unable to extract assistant text from completion")

// Message is one {role, content} pair sent to a chat-completion backend.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AssistantMessage is the nested message object some backends return.
type AssistantMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completion is the result of one chat-completion call. Exactly one of the
// carrier fields is expected to be populated:
//
//   - Text for backends that return the reply as a raw string
//   - Message for backends that return a typed message object
//   - Raw for backends that return a decoded JSON mapping with a
//     "message" entry containing a "content" key
type Completion struct {
	Text    *string
	Message *AssistantMessage
	Raw     map[string]any
}

// TextCompletion wraps a raw-string reply in a Completion. The pointer
// carrier keeps a legitimately empty reply distinct from an absent one.
func TextCompletion(text string) Completion {
	return Completion{Text: &text}
}

// AssistantText extracts the assistant's reply from the completion. The
// carriers are tried in order: Text, Message, Raw. A completion matching
// none of them yields ErrUnrecognizedShape.
func (c Completion) AssistantText() (string, error) {
	if c.Text != nil {
		return *c.Text, nil
	}
	if c.Message != nil {
		return c.Message.Content, nil
	}
	if c.Raw != nil {
		if msg, ok := c.Raw["message"].(map[string]any); ok {
			if content, ok := msg["content"].(string); ok {
				return content, nil
			}
		}
	}
	return "", ErrUnrecognizedShape
}

// Func is an injectable chat-completion call: given a model identifier and
// an ordered message window, it blocks until the backend produces a
// completion or fails. Implementations must be safe for concurrent use.
type Func func(ctx context.Context, model string, messages []Message) (Completion, error)
