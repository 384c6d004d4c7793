package channelrepo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/huddlehq/huddle-server/internal/domain/channel"
	"github.com/huddlehq/huddle-server/internal/domain/content"
	"github.com/huddlehq/huddle-server/internal/domain/query"
	"github.com/huddlehq/huddle-server/internal/infrastructure/database/entities"
	"github.com/huddlehq/huddle-server/internal/infrastructure/database/gormpage"
	"github.com/huddlehq/huddle-server/internal/infrastructure/database/transaction"
)

type ChannelGormRepository struct {
	db *transaction.Database
}

var _ channel.Repository = (*ChannelGormRepository)(nil)

func NewChannelGormRepository(db *transaction.Database) channel.Repository {
	return &ChannelGormRepository{db: db}
}

// Create inserts the channel together with its first owner.
func (repo *ChannelGormRepository) Create(ctx context.Context, ch *channel.Channel, owner *channel.Member) error {
	return repo.db.Transaction(ctx, func(ctx context.Context) error {
		tx := repo.db.GetTx(ctx)
		if err := tx.Create(entities.ChannelDtoE(ch)).Error; err != nil {
			return transaction.Error(ctx, err, "failed to create channel", "6b1d3f72-8a0e-4c95-b2d7-1e9f4a6c3b01")
		}
		if err := tx.Create(entities.ChannelMemberDtoE(owner)).Error; err != nil {
			return transaction.Error(ctx, err, "failed to add channel owner", "c82e5a14-3d7f-4b06-9a1c-5f0e2d8b7c12")
		}
		return nil
	})
}

func (repo *ChannelGormRepository) FindByID(ctx context.Context, id string) (*channel.Channel, error) {
	var entity entities.Channel
	if err := repo.db.GetTx(ctx).Where("id = ?", id).First(&entity).Error; err != nil {
		return nil, transaction.Error(ctx, err, "channel not found", "1e4a9c07-5b2d-4f83-a6e0-9c3b7d1f2a23")
	}
	return entity.EtoD(), nil
}

// List returns public channels plus the private ones the user belongs to.
func (repo *ChannelGormRepository) List(ctx context.Context, filter channel.ListFilter, p query.Pagination) ([]*channel.Channel, error) {
	tx := repo.db.GetTx(ctx).Model(&entities.Channel{})
	joined := repo.db.GetTx(ctx).Model(&entities.ChannelMember{}).
		Select("channel_id").
		Where("user_id = ?", filter.UserID)
	if filter.OnlyJoined {
		tx = tx.Where("id IN (?)", joined)
	} else {
		tx = tx.Where("is_private = FALSE OR id IN (?)", joined)
	}
	if !filter.IncludeArchived {
		tx = tx.Where("archived_at IS NULL")
	}

	var rows []entities.Channel
	if err := gormpage.Apply(tx, "id", p).Find(&rows).Error; err != nil {
		return nil, transaction.Error(ctx, err, "failed to list channels", "f3a07d58-2c6e-4b19-8d4f-0a7e5c9b1d34")
	}
	out := make([]*channel.Channel, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].EtoD())
	}
	return out, nil
}

func (repo *ChannelGormRepository) Update(ctx context.Context, id string, update channel.Update) (*channel.Channel, error) {
	changes := map[string]any{"updated_at": time.Now().UTC()}
	if update.Name != nil {
		changes["name"] = *update.Name
	}
	if update.Topic != nil {
		changes["topic"] = *update.Topic
	}
	if update.IsPrivate != nil {
		changes["is_private"] = *update.IsPrivate
	}
	if err := repo.db.GetTx(ctx).Model(&entities.Channel{}).Where("id = ?", id).Updates(changes).Error; err != nil {
		return nil, transaction.Error(ctx, err, "failed to update channel", "97c2e0b4-6d1a-4f38-b5e9-3c8a0f2d6e45")
	}
	return repo.FindByID(ctx, id)
}

func (repo *ChannelGormRepository) SetArchived(ctx context.Context, id string, at *time.Time) (*channel.Channel, error) {
	err := repo.db.GetTx(ctx).Model(&entities.Channel{}).Where("id = ?", id).
		Updates(map[string]any{"archived_at": at, "updated_at": time.Now().UTC()}).Error
	if err != nil {
		return nil, transaction.Error(ctx, err, "failed to archive channel", "2d8f6b13-a0c7-4e54-9b2f-7e1d4a3c8b56")
	}
	return repo.FindByID(ctx, id)
}

// Delete removes the channel. Members, posts and comments cascade.
func (repo *ChannelGormRepository) Delete(ctx context.Context, id string) error {
	if err := repo.db.GetTx(ctx).Where("id = ?", id).Delete(&entities.Channel{}).Error; err != nil {
		return transaction.Error(ctx, err, "failed to delete channel", "a5e31c9d-7f20-4b86-8c4a-1d6f9e0b2c67")
	}
	return nil
}

// ContentTargets lists every post and thread comment of the channel.
func (repo *ChannelGormRepository) ContentTargets(ctx context.Context, id string) ([]content.Target, error) {
	tx := repo.db.GetTx(ctx)
	var postIDs []string
	if err := tx.Model(&entities.Post{}).Where("channel_id = ?", id).Pluck("id", &postIDs).Error; err != nil {
		return nil, transaction.Error(ctx, err, "failed to collect channel posts", "4c7a2e60-9b3d-4f15-a8e2-6b0c3d7f1e78")
	}
	var commentIDs []string
	err := tx.Model(&entities.PostThreadComment{}).
		Joins("JOIN posts ON posts.id = post_thread_comments.post_id").
		Where("posts.channel_id = ?", id).
		Pluck("post_thread_comments.id", &commentIDs).Error
	if err != nil {
		return nil, transaction.Error(ctx, err, "failed to collect channel comments", "e0b95d27-1a4c-4e63-b7f8-2c9d5a0e3f89")
	}

	targets := make([]content.Target, 0, len(postIDs)+len(commentIDs))
	for _, pid := range postIDs {
		targets = append(targets, content.Target{Type: content.TargetPost, ID: pid})
	}
	for _, cid := range commentIDs {
		targets = append(targets, content.Target{Type: content.TargetPostThreadComment, ID: cid})
	}
	return targets, nil
}

func (repo *ChannelGormRepository) GetMember(ctx context.Context, channelID, userID string) (*channel.Member, error) {
	var entity entities.ChannelMember
	err := repo.db.GetTx(ctx).Where("channel_id = ? AND user_id = ?", channelID, userID).First(&entity).Error
	if err != nil {
		return nil, transaction.Error(ctx, err, "channel member not found", "b38d1f04-5e2a-4c97-a1d6-8f3e0b7c2a90")
	}
	return entity.EtoD(), nil
}

func (repo *ChannelGormRepository) AddMember(ctx context.Context, m *channel.Member) error {
	if err := repo.db.GetTx(ctx).Create(entities.ChannelMemberDtoE(m)).Error; err != nil {
		return transaction.Error(ctx, err, "failed to add channel member", "7f0c4a91-2d6b-4e38-95c1-0a8e3d6b4f01")
	}
	return nil
}

func (repo *ChannelGormRepository) RemoveMember(ctx context.Context, channelID, userID string) error {
	err := repo.db.GetTx(ctx).Where("channel_id = ? AND user_id = ?", channelID, userID).Delete(&entities.ChannelMember{}).Error
	if err != nil {
		return transaction.Error(ctx, err, "failed to remove channel member", "d16e8b32-4f7a-4c05-b9d3-5e2a1c0f7b12")
	}
	return nil
}

func (repo *ChannelGormRepository) UpdateMemberRole(ctx context.Context, channelID, userID string, role channel.Role) (*channel.Member, error) {
	result := repo.db.GetTx(ctx).Model(&entities.ChannelMember{}).
		Where("channel_id = ? AND user_id = ?", channelID, userID).
		Update("role", string(role))
	if result.Error != nil {
		return nil, transaction.Error(ctx, result.Error, "failed to update member role", "58a3c7e0-1b9d-4f26-a4e7-9c0b2d5f8e23")
	}
	if result.RowsAffected == 0 {
		return nil, transaction.Error(ctx, gorm.ErrRecordNotFound, "channel member not found", "0c9f2d46-7e3b-4a18-8d5c-1f6a4b9e0c34")
	}
	return repo.GetMember(ctx, channelID, userID)
}

func (repo *ChannelGormRepository) ListMembers(ctx context.Context, channelID string, p query.Pagination) ([]*channel.Member, error) {
	tx := repo.db.GetTx(ctx).Model(&entities.ChannelMember{}).Where("channel_id = ?", channelID)
	var rows []entities.ChannelMember
	if err := gormpage.Apply(tx, "user_id", p).Find(&rows).Error; err != nil {
		return nil, transaction.Error(ctx, err, "failed to list channel members", "e2b7f5a9-3c0d-4d41-b6e8-7a1f9c3d5b45")
	}
	out := make([]*channel.Member, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].EtoD())
	}
	return out, nil
}

func (repo *ChannelGormRepository) CountByRole(ctx context.Context, channelID string) (map[channel.Role]int64, error) {
	var rows []struct {
		Role  string
		Count int64
	}
	err := repo.db.GetTx(ctx).Model(&entities.ChannelMember{}).
		Select("role, COUNT(*) AS count").
		Where("channel_id = ?", channelID).
		Group("role").
		Scan(&rows).Error
	if err != nil {
		return nil, transaction.Error(ctx, err, "failed to count channel members", "93d0a6c2-8e4f-4b7a-a1c5-2d9e6f0b3a56")
	}
	counts := make(map[channel.Role]int64, len(rows))
	for _, row := range rows {
		counts[channel.Role(row.Role)] = row.Count
	}
	return counts, nil
}

func (repo *ChannelGormRepository) MarkRead(ctx context.Context, channelID, userID string, at time.Time) error {
	err := repo.db.GetTx(ctx).Model(&entities.ChannelMember{}).
		Where("channel_id = ? AND user_id = ?", channelID, userID).
		Update("last_read_at", at).Error
	if err != nil {
		return transaction.Error(ctx, err, "failed to mark channel read", "6a4e1b08-d5c3-4f92-87b0-3e5c2a9d1f67")
	}
	return nil
}
