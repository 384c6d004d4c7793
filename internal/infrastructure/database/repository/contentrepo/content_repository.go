// Package contentrepo resolves polymorphic content targets and scope access with SQL.
package contentrepo

import (
	"context"

	"github.com/huddlehq/huddle-server/internal/domain/content"
	"github.com/huddlehq/huddle-server/internal/infrastructure/database/entities"
	"github.com/huddlehq/huddle-server/internal/infrastructure/database/transaction"
	"github.com/huddlehq/huddle-server/internal/utils/platformerrors"
)

// dependentTables hold rows keyed by (target_type, target_id) without a foreign key.
var dependentTables = []string{
	"file_attachments",
	"emoji_reactions",
	"translations",
	"tts_recordings",
	"vector_embeddings",
}

type ContentGormRepository struct {
	db *transaction.Database
}

var (
	_ content.Resolver = (*ContentGormRepository)(nil)
	_ content.Cleaner  = (*ContentGormRepository)(nil)
)

func NewContentGormRepository(db *transaction.Database) *ContentGormRepository {
	return &ContentGormRepository{db: db}
}

func (repo *ContentGormRepository) Resolve(ctx context.Context, target content.Target) (*content.Item, error) {
	var rows []entities.ContentItem
	err := repo.db.GetTx(ctx).Raw(`SELECT ci.* FROM `+entities.ContentItemsSQL+` ci
		WHERE ci.target_type = ? AND ci.target_id = ? LIMIT 1`, string(target.Type), target.ID).
		Scan(&rows).Error
	if err != nil {
		return nil, transaction.Error(ctx, err, "failed to resolve content", "5a2d8e17-0c9f-4b63-a4e1-7d3b0f6c2e12")
	}
	if len(rows) == 0 {
		return nil, platformerrors.NewErrorWithContext(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound,
			"content not found", nil, "c9e4b1a6-3f7d-4e20-8b5c-1a6e9d2f0b23",
			map[string]any{"target_type": target.Type, "target_id": target.ID})
	}
	item := rows[0].EtoD()
	return &item, nil
}

func (repo *ContentGormRepository) IsMember(ctx context.Context, scope content.Scope, userID string) (bool, error) {
	var count int64
	tx := repo.db.GetTx(ctx)
	switch scope.Type {
	case content.ScopeChannel:
		tx = tx.Table("channel_members m").
			Joins("JOIN channels c ON c.id = m.channel_id").
			Where("m.channel_id = ? AND m.user_id = ? AND c.archived_at IS NULL", scope.ID, userID)
	case content.ScopeConversation:
		tx = tx.Table("conversation_participants").Where("conversation_id = ? AND user_id = ?", scope.ID, userID)
	default:
		return false, nil
	}
	if err := tx.Count(&count).Error; err != nil {
		return false, transaction.Error(ctx, err, "failed to check membership", "71f0c3d8-e6a2-4b95-9c47-2e8d5a1f3b34")
	}
	return count > 0, nil
}

func (repo *ContentGormRepository) CanRead(ctx context.Context, scope content.Scope, userID string) (bool, error) {
	var count int64
	tx := repo.db.GetTx(ctx)
	switch scope.Type {
	case content.ScopeChannel:
		tx = tx.Table("channels c").
			Where("c.id = ?", scope.ID).
			Where("c.is_private = FALSE OR EXISTS (SELECT 1 FROM channel_members m WHERE m.channel_id = c.id AND m.user_id = ?)", userID)
	case content.ScopeConversation:
		tx = tx.Table("conversation_participants").Where("conversation_id = ? AND user_id = ?", scope.ID, userID)
	default:
		return false, nil
	}
	if err := tx.Count(&count).Error; err != nil {
		return false, transaction.Error(ctx, err, "failed to check read access", "e3b6a9f2-4d0c-4e81-a7d5-0f2c8b6e1a45")
	}
	return count > 0, nil
}

// IsModerator is true for channel owners and admins. Conversations have no moderators.
func (repo *ContentGormRepository) IsModerator(ctx context.Context, scope content.Scope, userID string) (bool, error) {
	if scope.Type != content.ScopeChannel {
		return false, nil
	}
	var count int64
	err := repo.db.GetTx(ctx).Table("channel_members").
		Where("channel_id = ? AND user_id = ? AND role IN ?", scope.ID, userID, []string{"owner", "admin"}).
		Count(&count).Error
	if err != nil {
		return false, transaction.Error(ctx, err, "failed to check channel role", "0b8d2f5e-9a3c-4f17-b6e0-4c1a7d9f2b56")
	}
	return count > 0, nil
}

func (repo *ContentGormRepository) ScopesForUser(ctx context.Context, userID string) ([]content.Scope, error) {
	var rows []struct {
		ScopeType string
		ScopeID   string
	}
	err := repo.db.GetTx(ctx).Raw(`
		SELECT 'channel' AS scope_type, channel_id AS scope_id FROM channel_members WHERE user_id = ?
		UNION ALL
		SELECT 'conversation', conversation_id FROM conversation_participants WHERE user_id = ?
		ORDER BY scope_id`, userID, userID).
		Scan(&rows).Error
	if err != nil {
		return nil, transaction.Error(ctx, err, "failed to list user scopes", "d5a1e7c3-2b6f-4a98-8e04-3f9b1c6d0a67")
	}
	scopes := make([]content.Scope, 0, len(rows))
	for _, row := range rows {
		scopes = append(scopes, content.Scope{Type: content.ScopeType(row.ScopeType), ID: row.ScopeID})
	}
	return scopes, nil
}

func (repo *ContentGormRepository) Recent(ctx context.Context, scope content.Scope, parent *content.Target, limit int) ([]content.Item, error) {
	tx := repo.db.GetTx(ctx).
		Table(entities.ContentItemsSQL+" ci").
		Where("ci.scope_type = ? AND ci.scope_id = ?", string(scope.Type), scope.ID)
	if parent != nil {
		tx = tx.Where("(ci.target_type = ? AND ci.target_id = ?) OR ci.parent_id = ?", string(parent.Type), parent.ID, parent.ID)
	} else {
		tx = tx.Where("ci.parent_id = ''")
	}

	var rows []entities.ContentItem
	if err := tx.Order("ci.created_at DESC").Order("ci.target_id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, transaction.Error(ctx, err, "failed to load recent content", "8f4c0a92-6e1d-4b35-a9c8-5d2e7f0b3a78")
	}
	items := entities.ContentItemsEtoD(rows)
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	return items, nil
}

func (repo *ContentGormRepository) DeleteDependents(ctx context.Context, targets []content.Target) error {
	if len(targets) == 0 {
		return nil
	}
	pairs := make([][]any, 0, len(targets))
	for _, t := range targets {
		pairs = append(pairs, []any{string(t.Type), t.ID})
	}
	return repo.db.Transaction(ctx, func(ctx context.Context) error {
		tx := repo.db.GetTx(ctx)
		for _, table := range dependentTables {
			if err := tx.Exec("DELETE FROM "+table+" WHERE (target_type, target_id) IN ?", pairs).Error; err != nil {
				return transaction.Error(ctx, err, "failed to delete dependent rows", "26b9e3d1-c0a7-4f52-8d6b-9e1f4a3c7b89")
			}
		}
		return nil
	})
}
