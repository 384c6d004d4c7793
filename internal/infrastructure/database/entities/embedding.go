package entities

import (
	"time"

	"github.com/huddlehq/huddle-server/internal/domain/embedding"
)

// VectorEmbedding is a row of vector_embeddings. The vector column is written and read with raw SQL.
type VectorEmbedding struct {
	ID          string `gorm:"primaryKey"`
	TargetType  string `gorm:"not null"`
	TargetID    string `gorm:"not null"`
	ScopeType   string `gorm:"not null"`
	ScopeID     string `gorm:"not null"`
	Model       string `gorm:"not null;default:''"`
	ContentHash string `gorm:"not null;default:''"`
	Status      string `gorm:"not null"`
	Error       string `gorm:"not null;default:''"`
	Attempts    int    `gorm:"not null;default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (VectorEmbedding) TableName() string {
	return "vector_embeddings"
}

func VectorEmbeddingDtoE(e *embedding.Embedding) *VectorEmbedding {
	return &VectorEmbedding{
		ID:          e.ID,
		TargetType:  string(e.TargetType),
		TargetID:    e.TargetID,
		ScopeType:   string(e.ScopeType),
		ScopeID:     e.ScopeID,
		Model:       e.Model,
		ContentHash: e.ContentHash,
		Status:      string(e.Status),
		Error:       e.Error,
		Attempts:    e.Attempts,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}
