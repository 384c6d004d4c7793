package entities

import (
	"time"

	"gorm.io/datatypes"

	"github.com/huddlehq/huddle-server/internal/domain/conversation"
)

// Conversation is a row of conversations.
type Conversation struct {
	ID            string `gorm:"primaryKey"`
	IsGroup       bool   `gorm:"not null;default:false"`
	Title         string `gorm:"not null;default:''"`
	DirectKey     *string
	CreatedBy     string `gorm:"not null"`
	LastMessageAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (Conversation) TableName() string {
	return "conversations"
}

func (c *Conversation) EtoD() *conversation.Conversation {
	return &conversation.Conversation{
		ID:            c.ID,
		IsGroup:       c.IsGroup,
		Title:         c.Title,
		DirectKey:     c.DirectKey,
		CreatedBy:     c.CreatedBy,
		LastMessageAt: c.LastMessageAt,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

func ConversationDtoE(c *conversation.Conversation) *Conversation {
	return &Conversation{
		ID:            c.ID,
		IsGroup:       c.IsGroup,
		Title:         c.Title,
		DirectKey:     c.DirectKey,
		CreatedBy:     c.CreatedBy,
		LastMessageAt: c.LastMessageAt,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

// ConversationParticipant is a row of conversation_participants.
type ConversationParticipant struct {
	ConversationID string `gorm:"primaryKey"`
	UserID         string `gorm:"primaryKey"`
	JoinedAt       time.Time
	LastReadAt     *time.Time
}

func (ConversationParticipant) TableName() string {
	return "conversation_participants"
}

func (p *ConversationParticipant) EtoD() *conversation.Participant {
	return &conversation.Participant{
		ConversationID: p.ConversationID,
		UserID:         p.UserID,
		JoinedAt:       p.JoinedAt,
		LastReadAt:     p.LastReadAt,
	}
}

func ConversationParticipantDtoE(p *conversation.Participant) *ConversationParticipant {
	return &ConversationParticipant{
		ConversationID: p.ConversationID,
		UserID:         p.UserID,
		JoinedAt:       p.JoinedAt,
		LastReadAt:     p.LastReadAt,
	}
}

// Message is a row of messages.
type Message struct {
	ID                 string `gorm:"primaryKey"`
	ConversationID     string `gorm:"not null;index"`
	UserID             string `gorm:"not null"`
	Content            string `gorm:"not null;default:''"`
	Metadata           datatypes.JSONMap
	ThreadCommentCount int `gorm:"not null;default:0"`
	LastCommentAt      *time.Time
	EditedAt           *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (Message) TableName() string {
	return "messages"
}

func (m *Message) EtoD() *conversation.Message {
	return &conversation.Message{
		ID:                 m.ID,
		ConversationID:     m.ConversationID,
		UserID:             m.UserID,
		Content:            m.Content,
		Metadata:           m.Metadata,
		ThreadCommentCount: m.ThreadCommentCount,
		LastCommentAt:      m.LastCommentAt,
		EditedAt:           m.EditedAt,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

func MessageDtoE(m *conversation.Message) *Message {
	return &Message{
		ID:                 m.ID,
		ConversationID:     m.ConversationID,
		UserID:             m.UserID,
		Content:            m.Content,
		Metadata:           jsonMap(m.Metadata),
		ThreadCommentCount: m.ThreadCommentCount,
		LastCommentAt:      m.LastCommentAt,
		EditedAt:           m.EditedAt,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

// ConversationThreadComment is a row of conversation_thread_comments. ConversationID is filled by joins only.
type ConversationThreadComment struct {
	ID             string `gorm:"primaryKey"`
	MessageID      string `gorm:"not null;index"`
	ConversationID string `gorm:"->;-:migration"`
	UserID         string `gorm:"not null"`
	Content        string `gorm:"not null;default:''"`
	Metadata       datatypes.JSONMap
	EditedAt       *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (ConversationThreadComment) TableName() string {
	return "conversation_thread_comments"
}

func (c *ConversationThreadComment) EtoD() *conversation.Comment {
	return &conversation.Comment{
		ID:             c.ID,
		MessageID:      c.MessageID,
		ConversationID: c.ConversationID,
		UserID:         c.UserID,
		Content:        c.Content,
		Metadata:       c.Metadata,
		EditedAt:       c.EditedAt,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

func ConversationThreadCommentDtoE(c *conversation.Comment) *ConversationThreadComment {
	return &ConversationThreadComment{
		ID:        c.ID,
		MessageID: c.MessageID,
		UserID:    c.UserID,
		Content:   c.Content,
		Metadata:  jsonMap(c.Metadata),
		EditedAt:  c.EditedAt,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}
