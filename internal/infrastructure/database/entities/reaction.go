package entities

import (
	"time"

	"github.com/huddlehq/huddle-server/internal/domain/content"
	"github.com/huddlehq/huddle-server/internal/domain/reaction"
)

// EmojiReaction is a row of emoji_reactions.
type EmojiReaction struct {
	ID         string `gorm:"primaryKey"`
	TargetType string `gorm:"not null"`
	TargetID   string `gorm:"not null"`
	UserID     string `gorm:"not null"`
	Emoji      string `gorm:"not null"`
	CreatedAt  time.Time
}

func (EmojiReaction) TableName() string {
	return "emoji_reactions"
}

func (r *EmojiReaction) EtoD() *reaction.Reaction {
	return &reaction.Reaction{
		ID:         r.ID,
		TargetType: content.TargetType(r.TargetType),
		TargetID:   r.TargetID,
		UserID:     r.UserID,
		Emoji:      r.Emoji,
		CreatedAt:  r.CreatedAt,
	}
}

func EmojiReactionDtoE(r *reaction.Reaction) *EmojiReaction {
	return &EmojiReaction{
		ID:         r.ID,
		TargetType: string(r.TargetType),
		TargetID:   r.TargetID,
		UserID:     r.UserID,
		Emoji:      r.Emoji,
		CreatedAt:  r.CreatedAt,
	}
}
