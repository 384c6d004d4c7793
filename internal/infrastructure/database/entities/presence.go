package entities

import (
	"time"

	"github.com/huddlehq/huddle-server/internal/domain/presence"
)

// Presence is a row of presence.
type Presence struct {
	UserID     string `gorm:"primaryKey"`
	Status     string `gorm:"not null;default:'offline'"`
	StatusText string `gorm:"not null;default:''"`
	LastSeenAt time.Time
	UpdatedAt  time.Time
}

func (Presence) TableName() string {
	return "presence"
}

func (p *Presence) EtoD() *presence.Presence {
	return &presence.Presence{
		UserID:     p.UserID,
		Status:     presence.Status(p.Status),
		StatusText: p.StatusText,
		LastSeenAt: p.LastSeenAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

func PresenceDtoE(p *presence.Presence) *Presence {
	return &Presence{
		UserID:     p.UserID,
		Status:     string(p.Status),
		StatusText: p.StatusText,
		LastSeenAt: p.LastSeenAt,
		UpdatedAt:  p.UpdatedAt,
	}
}
