package entities

import (
	"time"

	"github.com/huddlehq/huddle-server/internal/domain/content"
	"github.com/huddlehq/huddle-server/internal/domain/voice"
)

// TTSRecording is a row of tts_recordings.
type TTSRecording struct {
	ID          string `gorm:"primaryKey"`
	TargetType  string `gorm:"not null"`
	TargetID    string `gorm:"not null"`
	VoiceID     string `gorm:"not null"`
	Language    string `gorm:"not null;default:''"`
	StorageKey  *string
	MimeType    string `gorm:"not null;default:''"`
	Status      string `gorm:"not null"`
	Error       string `gorm:"not null;default:''"`
	Attempts    int    `gorm:"not null;default:0"`
	RequestedBy string `gorm:"not null;default:''"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (TTSRecording) TableName() string {
	return "tts_recordings"
}

func (r *TTSRecording) EtoD() *voice.Recording {
	return &voice.Recording{
		ID:          r.ID,
		TargetType:  content.TargetType(r.TargetType),
		TargetID:    r.TargetID,
		VoiceID:     r.VoiceID,
		Language:    r.Language,
		StorageKey:  r.StorageKey,
		MimeType:    r.MimeType,
		Status:      voice.Status(r.Status),
		Error:       r.Error,
		Attempts:    r.Attempts,
		RequestedBy: r.RequestedBy,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func TTSRecordingDtoE(r *voice.Recording) *TTSRecording {
	return &TTSRecording{
		ID:          r.ID,
		TargetType:  string(r.TargetType),
		TargetID:    r.TargetID,
		VoiceID:     r.VoiceID,
		Language:    r.Language,
		StorageKey:  r.StorageKey,
		MimeType:    r.MimeType,
		Status:      string(r.Status),
		Error:       r.Error,
		Attempts:    r.Attempts,
		RequestedBy: r.RequestedBy,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}
