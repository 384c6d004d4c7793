package entities

import (
	"time"

	"github.com/huddlehq/huddle-server/internal/domain/channel"
)

// Channel is a row of channels.
type Channel struct {
	ID         string `gorm:"primaryKey"`
	Name       string `gorm:"uniqueIndex;not null"`
	Topic      string `gorm:"not null;default:''"`
	IsPrivate  bool   `gorm:"not null;default:false"`
	CreatedBy  string `gorm:"not null"`
	ArchivedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (Channel) TableName() string {
	return "channels"
}

func (c *Channel) EtoD() *channel.Channel {
	return &channel.Channel{
		ID:         c.ID,
		Name:       c.Name,
		Topic:      c.Topic,
		IsPrivate:  c.IsPrivate,
		CreatedBy:  c.CreatedBy,
		ArchivedAt: c.ArchivedAt,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}

func ChannelDtoE(c *channel.Channel) *Channel {
	return &Channel{
		ID:         c.ID,
		Name:       c.Name,
		Topic:      c.Topic,
		IsPrivate:  c.IsPrivate,
		CreatedBy:  c.CreatedBy,
		ArchivedAt: c.ArchivedAt,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}

// ChannelMember is a row of channel_members.
type ChannelMember struct {
	ChannelID  string `gorm:"primaryKey"`
	UserID     string `gorm:"primaryKey"`
	Role       string `gorm:"not null;default:'member'"`
	JoinedAt   time.Time
	LastReadAt *time.Time
}

func (ChannelMember) TableName() string {
	return "channel_members"
}

func (m *ChannelMember) EtoD() *channel.Member {
	return &channel.Member{
		ChannelID:  m.ChannelID,
		UserID:     m.UserID,
		Role:       channel.Role(m.Role),
		JoinedAt:   m.JoinedAt,
		LastReadAt: m.LastReadAt,
	}
}

func ChannelMemberDtoE(m *channel.Member) *ChannelMember {
	return &ChannelMember{
		ChannelID:  m.ChannelID,
		UserID:     m.UserID,
		Role:       string(m.Role),
		JoinedAt:   m.JoinedAt,
		LastReadAt: m.LastReadAt,
	}
}
