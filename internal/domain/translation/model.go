package translation

import (
	"context"
	"time"

	"github.com/huddlehq/huddle-server/internal/domain/content"
)

// Status of a stored translation.
type Status string

const (
	StatusReady  Status = "ready"
	StatusFailed Status = "failed"
)

// Translation is a target's text rendered in one language.
type Translation struct {
	ID             string             `json:"id"`
	TargetType     content.TargetType `json:"target_type"`
	TargetID       string             `json:"target_id"`
	Language       string             `json:"language"`
	SourceLanguage string             `json:"source_language,omitempty"`
	SourceHash     string             `json:"-"`
	Content        string             `json:"content"`
	Status         Status             `json:"status"`
	Error          string             `json:"error,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// Result is what a provider returns for one text.
type Result struct {
	Text           string `json:"text"`
	SourceLanguage string `json:"source_language"`
}

// Translator is the external translation provider.
type Translator interface {
	Translate(ctx context.Context, text, targetLanguage string) (*Result, error)
}

// Cache stores provider results keyed by text hash and language.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Repository persists translations.
type Repository interface {
	Find(ctx context.Context, target content.Target, language string) (*Translation, error)
	// Upsert inserts or replaces the row for (target, language) and returns the stored row.
	Upsert(ctx context.Context, t *Translation) (*Translation, error)
	ListForTarget(ctx context.Context, target content.Target) ([]*Translation, error)
}
