package conversationrepo

import (
	"context"
	"time"

	"github.com/huddlehq/huddle-server/internal/domain/conversation"
	"github.com/huddlehq/huddle-server/internal/domain/query"
	"github.com/huddlehq/huddle-server/internal/infrastructure/database/entities"
	"github.com/huddlehq/huddle-server/internal/infrastructure/database/transaction"
)

const activityColumn = "COALESCE(conversations.last_message_at, conversations.created_at)"

type ConversationGormRepository struct {
	db *transaction.Database
}

var _ conversation.Repository = (*ConversationGormRepository)(nil)

func NewConversationGormRepository(db *transaction.Database) conversation.Repository {
	return &ConversationGormRepository{db: db}
}

func (repo *ConversationGormRepository) Create(ctx context.Context, c *conversation.Conversation, participants []*conversation.Participant) error {
	return repo.db.Transaction(ctx, func(ctx context.Context) error {
		tx := repo.db.GetTx(ctx)
		if err := tx.Create(entities.ConversationDtoE(c)).Error; err != nil {
			return transaction.Error(ctx, err, "failed to create conversation", "5e1a9c37-2b8d-4f60-a4c7-0d3e6b9f1a12")
		}
		rows := make([]*entities.ConversationParticipant, 0, len(participants))
		for _, p := range participants {
			rows = append(rows, entities.ConversationParticipantDtoE(p))
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.Create(&rows).Error; err != nil {
			return transaction.Error(ctx, err, "failed to add participants", "b0f74d29-6e1c-4a83-9d5b-2c8a7e0f4b23")
		}
		return nil
	})
}

func (repo *ConversationGormRepository) FindByID(ctx context.Context, id string) (*conversation.Conversation, error) {
	var entity entities.Conversation
	if err := repo.db.GetTx(ctx).Where("id = ?", id).First(&entity).Error; err != nil {
		return nil, transaction.Error(ctx, err, "conversation not found", "7c3d0e85-4a2f-4b19-8e6d-1f5c9a3b0e34")
	}
	return entity.EtoD(), nil
}

func (repo *ConversationGormRepository) FindByDirectKey(ctx context.Context, key string) (*conversation.Conversation, error) {
	var entity entities.Conversation
	if err := repo.db.GetTx(ctx).Where("direct_key = ?", key).First(&entity).Error; err != nil {
		return nil, transaction.Error(ctx, err, "conversation not found", "e2a6f1b3-9d0c-4e57-b8a4-3c7e1d6f2a45")
	}
	return entity.EtoD(), nil
}

func (repo *ConversationGormRepository) ListForUser(ctx context.Context, userID string, p query.Pagination) ([]*conversation.Conversation, error) {
	tx := repo.db.GetTx(ctx).Model(&entities.Conversation{}).
		Joins("JOIN conversation_participants cp ON cp.conversation_id = conversations.id AND cp.user_id = ?", userID)

	cmp, dir := "<", "DESC"
	if p.Order == query.OrderAsc {
		cmp, dir = ">", "ASC"
	}
	if p.Cursor != "" {
		tx = tx.Where("("+activityColumn+", conversations.id) "+cmp+
			" (SELECT COALESCE(c2.last_message_at, c2.created_at), c2.id FROM conversations c2 WHERE c2.id = ?)", p.Cursor)
	}

	var rows []entities.Conversation
	err := tx.Order(activityColumn + " " + dir).
		Order("conversations.id " + dir).
		Limit(p.Limit + 1).
		Find(&rows).Error
	if err != nil {
		return nil, transaction.Error(ctx, err, "failed to list conversations", "4f8b2c60-7a1e-4d93-a0c5-6e9d3b2f7c56")
	}
	out := make([]*conversation.Conversation, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].EtoD())
	}
	return out, nil
}

func (repo *ConversationGormRepository) ListParticipants(ctx context.Context, conversationIDs []string) ([]*conversation.Participant, error) {
	if len(conversationIDs) == 0 {
		return nil, nil
	}
	var rows []entities.ConversationParticipant
	err := repo.db.GetTx(ctx).Where("conversation_id IN ?", conversationIDs).
		Order("joined_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, transaction.Error(ctx, err, "failed to list participants", "a9d1e4c7-3b6f-4a20-95e8-7d0c2f4b9a67")
	}
	out := make([]*conversation.Participant, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].EtoD())
	}
	return out, nil
}

func (repo *ConversationGormRepository) GetParticipant(ctx context.Context, conversationID, userID string) (*conversation.Participant, error) {
	var entity entities.ConversationParticipant
	err := repo.db.GetTx(ctx).Where("conversation_id = ? AND user_id = ?", conversationID, userID).First(&entity).Error
	if err != nil {
		return nil, transaction.Error(ctx, err, "participant not found", "16e0b8f3-c5a2-4d79-b3f1-8a4e7c0d2b78")
	}
	return entity.EtoD(), nil
}

func (repo *ConversationGormRepository) AddParticipant(ctx context.Context, p *conversation.Participant) error {
	if err := repo.db.GetTx(ctx).Create(entities.ConversationParticipantDtoE(p)).Error; err != nil {
		return transaction.Error(ctx, err, "failed to add participant", "c3b7a5e0-8f4d-4e12-a6c9-0b1d5e8f3a89")
	}
	return nil
}

func (repo *ConversationGormRepository) RemoveParticipant(ctx context.Context, conversationID, userID string) error {
	err := repo.db.GetTx(ctx).Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Delete(&entities.ConversationParticipant{}).Error
	if err != nil {
		return transaction.Error(ctx, err, "failed to remove participant", "7a2e9d14-0c6b-4f85-9b3a-5e8d1c4f7b90")
	}
	return nil
}

func (repo *ConversationGormRepository) MarkRead(ctx context.Context, conversationID, userID string, at time.Time) error {
	err := repo.db.GetTx(ctx).Model(&entities.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Update("last_read_at", at).Error
	if err != nil {
		return transaction.Error(ctx, err, "failed to mark conversation read", "e5c0f3a8-2d7b-4a61-8e94-1b6c9d3f0a01")
	}
	return nil
}
