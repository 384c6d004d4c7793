package assistant

import (
	"context"
	"time"

	"github.com/huddlehq/huddle-server/internal/domain/content"
)

const MaxPromptLength = 4000

// Role of a chat message sent to the language model.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one turn of a completion request.
type ChatMessage struct {
	Role    Role
	Content string
}

// ChatModel produces a completion for a conversation.
type ChatModel interface {
	Complete(ctx context.Context, messages []ChatMessage) (string, error)
}

// RespondParams asks the assistant to reply inside a channel or conversation, optionally in a thread.
type RespondParams struct {
	Scope    content.Scope
	ParentID string
	Prompt   string
}

// SummarizeParams selects what to summarize: a thread when ParentID is set, the recent scope otherwise.
type SummarizeParams struct {
	Scope    content.Scope
	ParentID string
}

// Reply is the stored assistant answer.
type Reply struct {
	content.Target
	Scope     content.Scope `json:"scope"`
	ParentID  string        `json:"parent_id,omitempty"`
	AuthorID  string        `json:"author_id"`
	Text      string        `json:"text"`
	CreatedAt time.Time     `json:"created_at"`
}

// Summary is an unsaved summarization.
type Summary struct {
	Scope    content.Scope `json:"scope"`
	ParentID string        `json:"parent_id,omitempty"`
	Text     string        `json:"text"`
	Messages int           `json:"messages"`
}
