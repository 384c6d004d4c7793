package user

import "time"

// VoiceStatus tracks the state of a user's cloned voice.
type VoiceStatus string

const (
	VoiceStatusNone       VoiceStatus = "none"
	VoiceStatusProcessing VoiceStatus = "processing"
	VoiceStatusReady      VoiceStatus = "ready"
	VoiceStatusFailed     VoiceStatus = "failed"
)

// User is a chat account, human or bot.
type User struct {
	ID                string      `json:"id"`
	Subject           string      `json:"-"`
	Email             string      `json:"email,omitempty"`
	DisplayName       string      `json:"display_name"`
	AvatarFileID      *string     `json:"avatar_file_id,omitempty"`
	PreferredLanguage string      `json:"preferred_language"`
	VoiceID           *string     `json:"voice_id,omitempty"`
	VoiceStatus       VoiceStatus `json:"voice_status"`
	VoiceError        string      `json:"voice_error,omitempty"`
	IsBot             bool        `json:"is_bot"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

// HasReadyVoice reports whether speech can use the user's own voice.
func (u *User) HasReadyVoice() bool {
	return u != nil && u.VoiceID != nil && *u.VoiceID != "" && u.VoiceStatus == VoiceStatusReady
}

// Identity is the authenticated caller as seen by the token.
type Identity struct {
	Subject  string
	Email    string
	Name     string
	Username string
}

// ProfileUpdate carries optional profile changes.
type ProfileUpdate struct {
	DisplayName       *string
	AvatarFileID      *string
	PreferredLanguage *string
}

// VoiceUpdate records the outcome of a voice cloning attempt.
type VoiceUpdate struct {
	VoiceID *string
	Status  VoiceStatus
	Error   string
}
