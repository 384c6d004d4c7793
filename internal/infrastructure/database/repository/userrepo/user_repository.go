package userrepo

import (
	"context"
	"strings"
	"time"

	"github.com/huddlehq/huddle-server/internal/domain/user"
	"github.com/huddlehq/huddle-server/internal/infrastructure/database/entities"
	"github.com/huddlehq/huddle-server/internal/infrastructure/database/transaction"
)

type UserGormRepository struct {
	db *transaction.Database
}

var _ user.Repository = (*UserGormRepository)(nil)

func NewUserGormRepository(db *transaction.Database) user.Repository {
	return &UserGormRepository{db: db}
}

func (repo *UserGormRepository) FindBySubject(ctx context.Context, subject string) (*user.User, error) {
	var entity entities.User
	err := repo.db.GetTx(ctx).Where("subject = ?", subject).First(&entity).Error
	if err != nil {
		return nil, transaction.Error(ctx, err, "user not found", "1f0a7c52-93d4-4b6e-a8f1-5c2d9e3b7a10")
	}
	return entity.EtoD(), nil
}

func (repo *UserGormRepository) FindByID(ctx context.Context, id string) (*user.User, error) {
	var entity entities.User
	err := repo.db.GetTx(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		return nil, transaction.Error(ctx, err, "user not found", "8c3e1d27-4a5b-4f69-9e0d-2b7a6c1f3e21")
	}
	return entity.EtoD(), nil
}

func (repo *UserGormRepository) FindByIDs(ctx context.Context, ids []string) ([]*user.User, error) {
	var rows []entities.User
	if err := repo.db.GetTx(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, transaction.Error(ctx, err, "failed to load users", "5d2b8f40-7c1e-4a3d-b6f9-0e4a2c7d1b32")
	}
	out := make([]*user.User, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].EtoD())
	}
	return out, nil
}

func (repo *UserGormRepository) Create(ctx context.Context, u *user.User) error {
	if err := repo.db.GetTx(ctx).Create(entities.UserDtoE(u)).Error; err != nil {
		return transaction.Error(ctx, err, "failed to create user", "e7a94c13-2f8b-4d5e-91c6-3b0d7f2a8e43")
	}
	return nil
}

func (repo *UserGormRepository) UpdateProfile(ctx context.Context, id string, update user.ProfileUpdate) (*user.User, error) {
	changes := map[string]any{"updated_at": time.Now().UTC()}
	if update.DisplayName != nil {
		changes["display_name"] = *update.DisplayName
	}
	if update.PreferredLanguage != nil {
		changes["preferred_language"] = *update.PreferredLanguage
	}
	if update.AvatarFileID != nil {
		if *update.AvatarFileID == "" {
			changes["avatar_file_id"] = nil
		} else {
			changes["avatar_file_id"] = *update.AvatarFileID
		}
	}
	return repo.update(ctx, id, changes)
}

func (repo *UserGormRepository) UpdateVoice(ctx context.Context, id string, update user.VoiceUpdate) (*user.User, error) {
	return repo.update(ctx, id, map[string]any{
		"voice_id":     update.VoiceID,
		"voice_status": string(update.Status),
		"voice_error":  update.Error,
		"updated_at":   time.Now().UTC(),
	})
}

func (repo *UserGormRepository) update(ctx context.Context, id string, changes map[string]any) (*user.User, error) {
	result := repo.db.GetTx(ctx).Model(&entities.User{}).Where("id = ?", id).Updates(changes)
	if result.Error != nil {
		return nil, transaction.Error(ctx, result.Error, "failed to update user", "3a6f0e85-d1c2-4b79-8e4a-6f2c9b1d0e54")
	}
	return repo.FindByID(ctx, id)
}

// Search matches display names and emails by prefix, humans first.
func (repo *UserGormRepository) Search(ctx context.Context, term string, limit int) ([]*user.User, error) {
	tx := repo.db.GetTx(ctx).Model(&entities.User{})
	if term != "" {
		pattern := escapeLike(strings.ToLower(term)) + "%"
		tx = tx.Where("LOWER(display_name) LIKE ? OR LOWER(email) LIKE ?", pattern, pattern)
	}
	var rows []entities.User
	if err := tx.Order("is_bot ASC").Order("LOWER(display_name) ASC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, transaction.Error(ctx, err, "failed to search users", "b41c7e9a-0d3f-4e28-a5b6-7c9e1f2d4a65")
	}
	out := make([]*user.User, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].EtoD())
	}
	return out, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
