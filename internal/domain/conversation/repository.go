package conversation

import (
	"context"
	"time"

	"github.com/huddlehq/huddle-server/internal/domain/query"
)

// Repository persists conversations, participants, messages and thread comments.
type Repository interface {
	Create(ctx context.Context, c *Conversation, participants []*Participant) error
	FindByID(ctx context.Context, id string) (*Conversation, error)
	FindByDirectKey(ctx context.Context, key string) (*Conversation, error)
	// ListForUser orders by latest activity (last message, else creation), newest first.
	ListForUser(ctx context.Context, userID string, p query.Pagination) ([]*Conversation, error)

	ListParticipants(ctx context.Context, conversationIDs []string) ([]*Participant, error)
	GetParticipant(ctx context.Context, conversationID, userID string) (*Participant, error)
	AddParticipant(ctx context.Context, p *Participant) error
	RemoveParticipant(ctx context.Context, conversationID, userID string) error
	MarkRead(ctx context.Context, conversationID, userID string, at time.Time) error

	// CreateMessage inserts the message and advances the conversation's last_message_at in one transaction.
	CreateMessage(ctx context.Context, m *Message) error
	FindMessage(ctx context.Context, id string) (*Message, error)
	ListMessages(ctx context.Context, conversationID string, p query.Pagination) ([]*Message, error)
	UpdateMessage(ctx context.Context, id, content string, editedAt time.Time) (*Message, error)
	DeleteMessage(ctx context.Context, id string) error

	CreateComment(ctx context.Context, c *Comment) error
	FindComment(ctx context.Context, id string) (*Comment, error)
	ListComments(ctx context.Context, messageID string, p query.Pagination) ([]*Comment, error)
	ListCommentIDs(ctx context.Context, messageID string) ([]string, error)
	UpdateComment(ctx context.Context, id, content string, editedAt time.Time) (*Comment, error)
	DeleteComment(ctx context.Context, c *Comment) error
}
