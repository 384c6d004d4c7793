package channel

import (
	"regexp"
	"time"
)

// Role is a member's privilege inside a channel.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// CanModerate reports whether the role may manage the channel and its members.
func (r Role) CanModerate() bool {
	return r == RoleOwner || r == RoleAdmin
}

// ParseRole validates a raw role.
func ParseRole(raw string) (Role, bool) {
	switch Role(raw) {
	case RoleOwner, RoleAdmin, RoleMember:
		return Role(raw), true
	}
	return "", false
}

var namePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,79}$`)

// ValidName reports whether name is a lowercase slug of 1 to 80 characters.
func ValidName(name string) bool {
	return namePattern.MatchString(name)
}

// Channel is a named room holding posts.
type Channel struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Topic      string     `json:"topic"`
	IsPrivate  bool       `json:"is_private"`
	CreatedBy  string     `json:"created_by"`
	ArchivedAt *time.Time `json:"archived_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// IsArchived reports whether the channel is read-only.
func (c *Channel) IsArchived() bool {
	return c.ArchivedAt != nil
}

// Member links a user to a channel.
type Member struct {
	ChannelID  string     `json:"channel_id"`
	UserID     string     `json:"user_id"`
	Role       Role       `json:"role"`
	JoinedAt   time.Time  `json:"joined_at"`
	LastReadAt *time.Time `json:"last_read_at,omitempty"`
}

// CreateParams describes a new channel.
type CreateParams struct {
	Name      string
	Topic     string
	IsPrivate bool
}

// Update carries optional channel changes.
type Update struct {
	Name      *string
	Topic     *string
	IsPrivate *bool
}

// ListFilter narrows channel listings.
type ListFilter struct {
	UserID          string
	OnlyJoined      bool
	IncludeArchived bool
}
