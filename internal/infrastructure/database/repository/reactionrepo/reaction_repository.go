package reactionrepo

import (
	"context"

	"gorm.io/gorm/clause"

	"github.com/huddlehq/huddle-server/internal/domain/content"
	"github.com/huddlehq/huddle-server/internal/domain/reaction"
	"github.com/huddlehq/huddle-server/internal/infrastructure/database/entities"
	"github.com/huddlehq/huddle-server/internal/infrastructure/database/transaction"
)

type ReactionGormRepository struct {
	db *transaction.Database
}

var _ reaction.Repository = (*ReactionGormRepository)(nil)

func NewReactionGormRepository(db *transaction.Database) reaction.Repository {
	return &ReactionGormRepository{db: db}
}

func (repo *ReactionGormRepository) Insert(ctx context.Context, r *reaction.Reaction) (bool, error) {
	result := repo.db.GetTx(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "target_type"}, {Name: "target_id"}, {Name: "user_id"}, {Name: "emoji"}},
			DoNothing: true,
		}).
		Create(entities.EmojiReactionDtoE(r))
	if result.Error != nil {
		return false, transaction.Error(ctx, result.Error, "failed to add reaction", "7b2e0d94-5c1a-4f38-a6e9-2d4f8c1b0e12")
	}
	return result.RowsAffected > 0, nil
}

func (repo *ReactionGormRepository) Delete(ctx context.Context, target content.Target, userID, emoji string) (*reaction.Reaction, error) {
	var removed []entities.EmojiReaction
	err := repo.db.GetTx(ctx).
		Clauses(clause.Returning{}).
		Where("target_type = ? AND target_id = ? AND user_id = ? AND emoji = ?", string(target.Type), target.ID, userID, emoji).
		Delete(&removed).Error
	if err != nil {
		return nil, transaction.Error(ctx, err, "failed to remove reaction", "e4a1c8f6-0d3b-4e72-9b5c-7a2e6d0f3b23")
	}
	if len(removed) == 0 {
		return nil, nil
	}
	return removed[0].EtoD(), nil
}

func (repo *ReactionGormRepository) ListForTarget(ctx context.Context, target content.Target) ([]*reaction.Reaction, error) {
	var rows []entities.EmojiReaction
	err := repo.db.GetTx(ctx).
		Where("target_type = ? AND target_id = ?", string(target.Type), target.ID).
		Order("created_at ASC").Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, transaction.Error(ctx, err, "failed to list reactions", "3f9d5b07-a2e4-4c61-8d0f-1b7c3e9a5d34")
	}
	out := make([]*reaction.Reaction, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].EtoD())
	}
	return out, nil
}
