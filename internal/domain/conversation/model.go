package conversation

import (
	"sort"
	"strings"
	"time"

	"github.com/huddlehq/huddle-server/internal/domain/content"
	"github.com/huddlehq/huddle-server/internal/domain/file"
)

const (
	// MaxContentLength bounds messages and thread comments, in characters.
	MaxContentLength = 8000
	// MinGroupOthers and MaxGroupOthers bound the people a creator can start a group with.
	MinGroupOthers = 2
	MaxGroupOthers = 50
)

// Conversation is a direct or group chat.
type Conversation struct {
	ID            string         `json:"id"`
	IsGroup       bool           `json:"is_group"`
	Title         string         `json:"title"`
	DirectKey     *string        `json:"-"`
	CreatedBy     string         `json:"created_by"`
	LastMessageAt *time.Time     `json:"last_message_at,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	Participants  []*Participant `json:"participants,omitempty"`
}

// DirectKey identifies the 1:1 conversation between two users regardless of who started it.
func DirectKey(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return strings.Join(pair, ":")
}

// Participant links a user to a conversation.
type Participant struct {
	ConversationID string     `json:"conversation_id"`
	UserID         string     `json:"user_id"`
	JoinedAt       time.Time  `json:"joined_at"`
	LastReadAt     *time.Time `json:"last_read_at,omitempty"`
}

// Message is a top-level entry of a conversation.
type Message struct {
	ID                 string             `json:"id"`
	ConversationID     string             `json:"conversation_id"`
	UserID             string             `json:"user_id"`
	Content            string             `json:"content"`
	Metadata           map[string]any     `json:"metadata,omitempty"`
	ThreadCommentCount int                `json:"thread_comment_count"`
	LastCommentAt      *time.Time         `json:"last_comment_at,omitempty"`
	EditedAt           *time.Time         `json:"edited_at,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
	Attachments        []*file.Attachment `json:"attachments"`
}

func (m *Message) Target() content.Target {
	return content.Target{Type: content.TargetMessage, ID: m.ID}
}

// Comment is a reply in a message's thread.
type Comment struct {
	ID             string             `json:"id"`
	MessageID      string             `json:"message_id"`
	ConversationID string             `json:"conversation_id"`
	UserID         string             `json:"user_id"`
	Content        string             `json:"content"`
	Metadata       map[string]any     `json:"metadata,omitempty"`
	EditedAt       *time.Time         `json:"edited_at,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
	Attachments    []*file.Attachment `json:"attachments"`
}

func (c *Comment) Target() content.Target {
	return content.Target{Type: content.TargetConversationThreadComment, ID: c.ID}
}

// CreateConversationParams starts a conversation with UserIDs besides the creator.
type CreateConversationParams struct {
	UserIDs []string
	Title   string
	IsGroup bool
}

// CreateParams describes a new message or comment. System writes skip the participant check.
type CreateParams struct {
	UserID   string
	Content  string
	FileIDs  []string
	Metadata map[string]any
	System   bool
}
