package entities

import (
	"time"

	"github.com/huddlehq/huddle-server/internal/domain/content"
	"github.com/huddlehq/huddle-server/internal/domain/translation"
)

// Translation is a row of translations.
type Translation struct {
	ID             string `gorm:"primaryKey"`
	TargetType     string `gorm:"not null"`
	TargetID       string `gorm:"not null"`
	Language       string `gorm:"not null"`
	SourceLanguage string `gorm:"not null;default:''"`
	SourceHash     string `gorm:"not null;default:''"`
	Content        string `gorm:"not null;default:''"`
	Status         string `gorm:"not null"`
	Error          string `gorm:"not null;default:''"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (Translation) TableName() string {
	return "translations"
}

func (t *Translation) EtoD() *translation.Translation {
	return &translation.Translation{
		ID:             t.ID,
		TargetType:     content.TargetType(t.TargetType),
		TargetID:       t.TargetID,
		Language:       t.Language,
		SourceLanguage: t.SourceLanguage,
		SourceHash:     t.SourceHash,
		Content:        t.Content,
		Status:         translation.Status(t.Status),
		Error:          t.Error,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

func TranslationDtoE(t *translation.Translation) *Translation {
	return &Translation{
		ID:             t.ID,
		TargetType:     string(t.TargetType),
		TargetID:       t.TargetID,
		Language:       t.Language,
		SourceLanguage: t.SourceLanguage,
		SourceHash:     t.SourceHash,
		Content:        t.Content,
		Status:         string(t.Status),
		Error:          t.Error,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}
