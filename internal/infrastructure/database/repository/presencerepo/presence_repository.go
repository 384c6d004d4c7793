package presencerepo

import (
	"context"
	"time"

	"gorm.io/gorm/clause"

	"github.com/huddlehq/huddle-server/internal/domain/presence"
	"github.com/huddlehq/huddle-server/internal/infrastructure/database/entities"
	"github.com/huddlehq/huddle-server/internal/infrastructure/database/transaction"
)

type PresenceGormRepository struct {
	db *transaction.Database
}

var _ presence.Repository = (*PresenceGormRepository)(nil)

func NewPresenceGormRepository(db *transaction.Database) presence.Repository {
	return &PresenceGormRepository{db: db}
}

func (repo *PresenceGormRepository) Find(ctx context.Context, userID string) (*presence.Presence, error) {
	var entity entities.Presence
	if err := repo.db.GetTx(ctx).Where("user_id = ?", userID).First(&entity).Error; err != nil {
		return nil, transaction.Error(ctx, err, "presence not found", "6e0b3d8a-1f4c-4a57-92e6-8d5c0a3f7b12")
	}
	return entity.EtoD(), nil
}

func (repo *PresenceGormRepository) FindMany(ctx context.Context, userIDs []string) ([]*presence.Presence, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var rows []entities.Presence
	if err := repo.db.GetTx(ctx).Where("user_id IN ?", userIDs).Find(&rows).Error; err != nil {
		return nil, transaction.Error(ctx, err, "failed to load presence", "a3c9f1e7-5d2b-4c80-b4a1-0e7f2d6c9a23")
	}
	return presenceEtoD(rows), nil
}

func (repo *PresenceGormRepository) Save(ctx context.Context, p *presence.Presence) error {
	err := repo.db.GetTx(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "status_text", "last_seen_at", "updated_at"}),
		}).
		Create(entities.PresenceDtoE(p)).Error
	if err != nil {
		return transaction.Error(ctx, err, "failed to save presence", "0f5d8b2c-9e3a-4f61-a7d4-2b6e1c8f0a34")
	}
	return nil
}

func (repo *PresenceGormRepository) ListForChannel(ctx context.Context, channelID string) ([]*presence.Presence, error) {
	var rows []entities.Presence
	err := repo.db.GetTx(ctx).Raw(`
		SELECT m.user_id,
			COALESCE(p.status, 'offline') AS status,
			COALESCE(p.status_text, '') AS status_text,
			COALESCE(p.last_seen_at, m.joined_at) AS last_seen_at,
			COALESCE(p.updated_at, m.joined_at) AS updated_at
		FROM channel_members m
		LEFT JOIN presence p ON p.user_id = m.user_id
		WHERE m.channel_id = ?
		ORDER BY m.user_id ASC`, channelID).
		Scan(&rows).Error
	if err != nil {
		return nil, transaction.Error(ctx, err, "failed to list channel presence", "c8e2a6f0-3b7d-4e19-95c2-7a0d4f1b8e45")
	}
	return presenceEtoD(rows), nil
}

func (repo *PresenceGormRepository) ExpireStale(ctx context.Context, before time.Time) ([]*presence.Presence, error) {
	var rows []entities.Presence
	err := repo.db.GetTx(ctx).Raw(`
		UPDATE presence SET status = 'offline', updated_at = NOW()
		WHERE status <> 'offline' AND last_seen_at < ?
		RETURNING *`, before).
		Scan(&rows).Error
	if err != nil {
		return nil, transaction.Error(ctx, err, "failed to expire presence", "4b1f7d93-e0a6-4c28-8b5f-1d9c3e7a0b56")
	}
	return presenceEtoD(rows), nil
}

func presenceEtoD(rows []entities.Presence) []*presence.Presence {
	out := make([]*presence.Presence, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].EtoD())
	}
	return out
}
