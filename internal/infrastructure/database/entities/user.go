package entities

import (
	"time"

	"github.com/huddlehq/huddle-server/internal/domain/user"
)

// User is a row of users.
type User struct {
	ID                string  `gorm:"primaryKey"`
	Subject           string  `gorm:"uniqueIndex;not null"`
	Email             string  `gorm:"not null;default:''"`
	DisplayName       string  `gorm:"not null;default:''"`
	AvatarFileID      *string `gorm:"column:avatar_file_id"`
	PreferredLanguage string  `gorm:"not null;default:'en'"`
	VoiceID           *string
	VoiceStatus       string `gorm:"not null;default:'none'"`
	VoiceError        string `gorm:"not null;default:''"`
	IsBot             bool   `gorm:"not null;default:false"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (User) TableName() string {
	return "users"
}

// EtoD converts the row to the domain user.
func (u *User) EtoD() *user.User {
	return &user.User{
		ID:                u.ID,
		Subject:           u.Subject,
		Email:             u.Email,
		DisplayName:       u.DisplayName,
		AvatarFileID:      u.AvatarFileID,
		PreferredLanguage: u.PreferredLanguage,
		VoiceID:           u.VoiceID,
		VoiceStatus:       user.VoiceStatus(u.VoiceStatus),
		VoiceError:        u.VoiceError,
		IsBot:             u.IsBot,
		CreatedAt:         u.CreatedAt,
		UpdatedAt:         u.UpdatedAt,
	}
}

// UserDtoE converts a domain user to a row.
func UserDtoE(u *user.User) *User {
	return &User{
		ID:                u.ID,
		Subject:           u.Subject,
		Email:             u.Email,
		DisplayName:       u.DisplayName,
		AvatarFileID:      u.AvatarFileID,
		PreferredLanguage: u.PreferredLanguage,
		VoiceID:           u.VoiceID,
		VoiceStatus:       string(u.VoiceStatus),
		VoiceError:        u.VoiceError,
		IsBot:             u.IsBot,
		CreatedAt:         u.CreatedAt,
		UpdatedAt:         u.UpdatedAt,
	}
}
