package presence

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Status is what a user shows to others.
type Status string

const (
	StatusOnline  Status = "online"
	StatusAway    Status = "away"
	StatusDND     Status = "dnd"
	StatusOffline Status = "offline"
)

const (
	MaxStatusText = 100
	MaxLookup     = 100
)

// ParseStatus validates a raw status.
func ParseStatus(raw string) (Status, error) {
	switch s := Status(strings.ToLower(strings.TrimSpace(raw))); s {
	case StatusOnline, StatusAway, StatusDND, StatusOffline:
		return s, nil
	default:
		return "", fmt.Errorf("unknown presence status %q", raw)
	}
}

// Presence is the last known state of a user.
type Presence struct {
	UserID     string    `json:"user_id"`
	Status     Status    `json:"status"`
	StatusText string    `json:"status_text"`
	LastSeenAt time.Time `json:"last_seen_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Offline is the presence of a user that never connected.
func Offline(userID string) *Presence {
	return &Presence{UserID: userID, Status: StatusOffline}
}

// Repository persists presence rows.
type Repository interface {
	Find(ctx context.Context, userID string) (*Presence, error)
	FindMany(ctx context.Context, userIDs []string) ([]*Presence, error)
	Save(ctx context.Context, p *Presence) error
	// ListForChannel returns the presence of every channel member; members without a row are offline.
	ListForChannel(ctx context.Context, channelID string) ([]*Presence, error)
	// ExpireStale sets users not seen since before to offline and returns the changed rows.
	ExpireStale(ctx context.Context, before time.Time) ([]*Presence, error)
}

// Tracker keeps a short lived liveness key per user.
type Tracker interface {
	Touch(ctx context.Context, userID string, ttl time.Duration) error
	Alive(ctx context.Context, userIDs []string) (map[string]bool, error)
}
