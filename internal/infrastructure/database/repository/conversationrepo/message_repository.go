package conversationrepo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/huddlehq/huddle-server/internal/domain/conversation"
	"github.com/huddlehq/huddle-server/internal/domain/query"
	"github.com/huddlehq/huddle-server/internal/infrastructure/database/entities"
	"github.com/huddlehq/huddle-server/internal/infrastructure/database/gormpage"
	"github.com/huddlehq/huddle-server/internal/infrastructure/database/transaction"
)

const commentColumns = "conversation_thread_comments.*, messages.conversation_id AS conversation_id"

func (repo *ConversationGormRepository) CreateMessage(ctx context.Context, m *conversation.Message) error {
	return repo.db.Transaction(ctx, func(ctx context.Context) error {
		tx := repo.db.GetTx(ctx)
		if err := tx.Create(entities.MessageDtoE(m)).Error; err != nil {
			return transaction.Error(ctx, err, "failed to create message", "2b9f6c03-7e1a-4d58-b0c4-9a3e5d7f1c12")
		}
		err := tx.Model(&entities.Conversation{}).Where("id = ?", m.ConversationID).
			Updates(map[string]any{"last_message_at": m.CreatedAt, "updated_at": m.CreatedAt}).Error
		if err != nil {
			return transaction.Error(ctx, err, "failed to touch conversation", "d8a4e1b6-3c0f-4e79-a5d2-6f1b8c4e0a23")
		}
		return nil
	})
}

func (repo *ConversationGormRepository) FindMessage(ctx context.Context, id string) (*conversation.Message, error) {
	var entity entities.Message
	if err := repo.db.GetTx(ctx).Where("id = ?", id).First(&entity).Error; err != nil {
		return nil, transaction.Error(ctx, err, "message not found", "61c5d8a2-9f3b-4b04-8e7a-0d2c6f9b3e34")
	}
	return entity.EtoD(), nil
}

func (repo *ConversationGormRepository) ListMessages(ctx context.Context, conversationID string, p query.Pagination) ([]*conversation.Message, error) {
	tx := repo.db.GetTx(ctx).Model(&entities.Message{}).Where("conversation_id = ?", conversationID)
	var rows []entities.Message
	if err := gormpage.Apply(tx, "id", p).Find(&rows).Error; err != nil {
		return nil, transaction.Error(ctx, err, "failed to list messages", "f0b3a7e9-4d2c-4a68-b1e5-7c8d0f2a6b45")
	}
	out := make([]*conversation.Message, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].EtoD())
	}
	return out, nil
}

func (repo *ConversationGormRepository) UpdateMessage(ctx context.Context, id, text string, editedAt time.Time) (*conversation.Message, error) {
	result := repo.db.GetTx(ctx).Model(&entities.Message{}).Where("id = ?", id).
		Updates(map[string]any{"content": text, "edited_at": editedAt, "updated_at": editedAt})
	if result.Error != nil {
		return nil, transaction.Error(ctx, result.Error, "failed to update message", "8e2d5b10-a6c4-4f93-9b07-3d1e8a5c2f56")
	}
	if result.RowsAffected == 0 {
		return nil, transaction.Error(ctx, gorm.ErrRecordNotFound, "message not found", "3a7f1c94-0e5b-4d26-a8c3-9f4b2e6d0a67")
	}
	return repo.FindMessage(ctx, id)
}

// DeleteMessage removes the message. Its thread comments cascade.
func (repo *ConversationGormRepository) DeleteMessage(ctx context.Context, id string) error {
	if err := repo.db.GetTx(ctx).Where("id = ?", id).Delete(&entities.Message{}).Error; err != nil {
		return transaction.Error(ctx, err, "failed to delete message", "c4e8b2f7-1d9a-4e50-b6c3-5a0f7d1e8b78")
	}
	return nil
}

func (repo *ConversationGormRepository) CreateComment(ctx context.Context, c *conversation.Comment) error {
	return repo.db.Transaction(ctx, func(ctx context.Context) error {
		tx := repo.db.GetTx(ctx)
		if err := tx.Create(entities.ConversationThreadCommentDtoE(c)).Error; err != nil {
			return transaction.Error(ctx, err, "failed to create comment", "95a1d6e3-7b4f-4c82-8e0a-2d6c9b3f1e89")
		}
		err := tx.Model(&entities.Message{}).Where("id = ?", c.MessageID).Updates(map[string]any{
			"thread_comment_count": gorm.Expr("thread_comment_count + 1"),
			"last_comment_at":      c.CreatedAt,
		}).Error
		if err != nil {
			return transaction.Error(ctx, err, "failed to bump thread counter", "0d6f2a58-c3e1-4b97-a4d8-6e1b5f9c2a90")
		}
		return nil
	})
}

func (repo *ConversationGormRepository) FindComment(ctx context.Context, id string) (*conversation.Comment, error) {
	var entity entities.ConversationThreadComment
	err := repo.comments(ctx).Where("conversation_thread_comments.id = ?", id).First(&entity).Error
	if err != nil {
		return nil, transaction.Error(ctx, err, "comment not found", "b7c3e9a1-5f0d-4a24-9d6b-8e2a4c7f0b01")
	}
	return entity.EtoD(), nil
}

func (repo *ConversationGormRepository) ListComments(ctx context.Context, messageID string, p query.Pagination) ([]*conversation.Comment, error) {
	tx := repo.comments(ctx).Where("conversation_thread_comments.message_id = ?", messageID)
	var rows []entities.ConversationThreadComment
	if err := gormpage.Apply(tx, "conversation_thread_comments.id", p).Find(&rows).Error; err != nil {
		return nil, transaction.Error(ctx, err, "failed to list comments", "4e0a8d35-2b7c-4f61-b9e2-1c5d8a3f6e12")
	}
	out := make([]*conversation.Comment, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].EtoD())
	}
	return out, nil
}

func (repo *ConversationGormRepository) ListCommentIDs(ctx context.Context, messageID string) ([]string, error) {
	var ids []string
	err := repo.db.GetTx(ctx).Model(&entities.ConversationThreadComment{}).Where("message_id = ?", messageID).Pluck("id", &ids).Error
	if err != nil {
		return nil, transaction.Error(ctx, err, "failed to list comment ids", "a1f7c4e0-9d3b-4e86-8a5c-3f2b7e1d9c23")
	}
	return ids, nil
}

func (repo *ConversationGormRepository) UpdateComment(ctx context.Context, id, text string, editedAt time.Time) (*conversation.Comment, error) {
	result := repo.db.GetTx(ctx).Model(&entities.ConversationThreadComment{}).Where("id = ?", id).
		Updates(map[string]any{"content": text, "edited_at": editedAt, "updated_at": editedAt})
	if result.Error != nil {
		return nil, transaction.Error(ctx, result.Error, "failed to update comment", "6c2e9b47-0a5f-4d13-b7e8-4d9a1c6f3b34")
	}
	if result.RowsAffected == 0 {
		return nil, transaction.Error(ctx, gorm.ErrRecordNotFound, "comment not found", "e9b5d1a3-7c2f-4a40-95d6-0b8e3f1c7a45")
	}
	return repo.FindComment(ctx, id)
}

func (repo *ConversationGormRepository) DeleteComment(ctx context.Context, c *conversation.Comment) error {
	return repo.db.Transaction(ctx, func(ctx context.Context) error {
		tx := repo.db.GetTx(ctx)
		result := tx.Where("id = ?", c.ID).Delete(&entities.ConversationThreadComment{})
		if result.Error != nil {
			return transaction.Error(ctx, result.Error, "failed to delete comment", "2f8a0c63-d4b1-4e97-a3c5-7e6d2b0f4a56")
		}
		if result.RowsAffected == 0 {
			return nil
		}
		err := tx.Model(&entities.Message{}).Where("id = ?", c.MessageID).
			Update("thread_comment_count", gorm.Expr("GREATEST(thread_comment_count - 1, 0)")).Error
		if err != nil {
			return transaction.Error(ctx, err, "failed to decrement thread counter", "8d4b6e19-3a0c-4f72-b8e5-1c9f4a7d2b67")
		}
		return nil
	})
}

func (repo *ConversationGormRepository) comments(ctx context.Context) *gorm.DB {
	return repo.db.GetTx(ctx).Model(&entities.ConversationThreadComment{}).
		Select(commentColumns).
		Joins("JOIN messages ON messages.id = conversation_thread_comments.message_id")
}
