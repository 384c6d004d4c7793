package translationrepo

import (
	"context"

	"gorm.io/gorm/clause"

	"github.com/huddlehq/huddle-server/internal/domain/content"
	"github.com/huddlehq/huddle-server/internal/domain/translation"
	"github.com/huddlehq/huddle-server/internal/infrastructure/database/entities"
	"github.com/huddlehq/huddle-server/internal/infrastructure/database/transaction"
)

type TranslationGormRepository struct {
	db *transaction.Database
}

var _ translation.Repository = (*TranslationGormRepository)(nil)

func NewTranslationGormRepository(db *transaction.Database) translation.Repository {
	return &TranslationGormRepository{db: db}
}

func (repo *TranslationGormRepository) Find(ctx context.Context, target content.Target, language string) (*translation.Translation, error) {
	var entity entities.Translation
	err := repo.db.GetTx(ctx).
		Where("target_type = ? AND target_id = ? AND language = ?", string(target.Type), target.ID, language).
		First(&entity).Error
	if err != nil {
		return nil, transaction.Error(ctx, err, "translation not found", "c1e7a3f9-4b0d-4d25-8e6a-9f2b5c0d7e12")
	}
	return entity.EtoD(), nil
}

// Upsert keeps the original id and created_at of an existing row.
func (repo *TranslationGormRepository) Upsert(ctx context.Context, t *translation.Translation) (*translation.Translation, error) {
	err := repo.db.GetTx(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "target_type"}, {Name: "target_id"}, {Name: "language"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"source_language", "source_hash", "content", "status", "error", "updated_at",
			}),
		}).
		Create(entities.TranslationDtoE(t)).Error
	if err != nil {
		return nil, transaction.Error(ctx, err, "failed to store translation", "58d2f0b6-e3a9-4c74-b1d8-0a6e4f2c9b23")
	}
	return repo.Find(ctx, content.Target{Type: t.TargetType, ID: t.TargetID}, t.Language)
}

func (repo *TranslationGormRepository) ListForTarget(ctx context.Context, target content.Target) ([]*translation.Translation, error) {
	var rows []entities.Translation
	err := repo.db.GetTx(ctx).
		Where("target_type = ? AND target_id = ?", string(target.Type), target.ID).
		Order("language ASC").
		Find(&rows).Error
	if err != nil {
		return nil, transaction.Error(ctx, err, "failed to list translations", "a9b4e6d1-7f2c-4e80-95a3-3d1c8b0f6e34")
	}
	out := make([]*translation.Translation, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].EtoD())
	}
	return out, nil
}
