package postrepo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/huddlehq/huddle-server/internal/domain/post"
	"github.com/huddlehq/huddle-server/internal/domain/query"
	"github.com/huddlehq/huddle-server/internal/infrastructure/database/entities"
	"github.com/huddlehq/huddle-server/internal/infrastructure/database/gormpage"
	"github.com/huddlehq/huddle-server/internal/infrastructure/database/transaction"
)

const commentColumns = "post_thread_comments.*, posts.channel_id AS channel_id"

type PostGormRepository struct {
	db *transaction.Database
}

var _ post.Repository = (*PostGormRepository)(nil)

func NewPostGormRepository(db *transaction.Database) post.Repository {
	return &PostGormRepository{db: db}
}

func (repo *PostGormRepository) CreatePost(ctx context.Context, p *post.Post) error {
	if err := repo.db.GetTx(ctx).Create(entities.PostDtoE(p)).Error; err != nil {
		return transaction.Error(ctx, err, "failed to create post", "3e8b0c71-6a2f-4d95-b4c1-7f9e2a5d0b12")
	}
	return nil
}

func (repo *PostGormRepository) FindPost(ctx context.Context, id string) (*post.Post, error) {
	var entity entities.Post
	if err := repo.db.GetTx(ctx).Where("id = ?", id).First(&entity).Error; err != nil {
		return nil, transaction.Error(ctx, err, "post not found", "a0d4f7e2-3c1b-4e68-9a5d-2b8c6f1e0a23")
	}
	return entity.EtoD(), nil
}

func (repo *PostGormRepository) ListPosts(ctx context.Context, channelID string, p query.Pagination) ([]*post.Post, error) {
	tx := repo.db.GetTx(ctx).Model(&entities.Post{}).Where("channel_id = ?", channelID)
	var rows []entities.Post
	if err := gormpage.Apply(tx, "id", p).Find(&rows).Error; err != nil {
		return nil, transaction.Error(ctx, err, "failed to list posts", "5b9e2a06-8d3f-4c71-a0e4-9c1d7b3f2e34")
	}
	out := make([]*post.Post, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].EtoD())
	}
	return out, nil
}

func (repo *PostGormRepository) UpdatePost(ctx context.Context, id, text string, editedAt time.Time) (*post.Post, error) {
	result := repo.db.GetTx(ctx).Model(&entities.Post{}).Where("id = ?", id).
		Updates(map[string]any{"content": text, "edited_at": editedAt, "updated_at": editedAt})
	if result.Error != nil {
		return nil, transaction.Error(ctx, result.Error, "failed to update post", "c7f1d3a8-0e6b-4b29-85d7-4a2e0c9f1b45")
	}
	if result.RowsAffected == 0 {
		return nil, transaction.Error(ctx, gorm.ErrRecordNotFound, "post not found", "19a6e4c0-5f2d-4a83-b7e1-6d0f3c8a2e56")
	}
	return repo.FindPost(ctx, id)
}

// DeletePost removes the post. Its thread comments cascade.
func (repo *PostGormRepository) DeletePost(ctx context.Context, id string) error {
	if err := repo.db.GetTx(ctx).Where("id = ?", id).Delete(&entities.Post{}).Error; err != nil {
		return transaction.Error(ctx, err, "failed to delete post", "e84b2d17-9a0c-4f56-a3b8-1c7e5d0f3a67")
	}
	return nil
}

func (repo *PostGormRepository) CreateComment(ctx context.Context, c *post.Comment) error {
	return repo.db.Transaction(ctx, func(ctx context.Context) error {
		tx := repo.db.GetTx(ctx)
		if err := tx.Create(entities.PostThreadCommentDtoE(c)).Error; err != nil {
			return transaction.Error(ctx, err, "failed to create comment", "4d0a8f63-b2e7-4c15-9f6a-3e1b8d2c7f78")
		}
		err := tx.Model(&entities.Post{}).Where("id = ?", c.PostID).Updates(map[string]any{
			"thread_comment_count": gorm.Expr("thread_comment_count + 1"),
			"last_comment_at":      c.CreatedAt,
		}).Error
		if err != nil {
			return transaction.Error(ctx, err, "failed to bump thread counter", "b6e3c9a1-7d4f-4e02-8a5b-0f2d6c1e9b89")
		}
		return nil
	})
}

func (repo *PostGormRepository) FindComment(ctx context.Context, id string) (*post.Comment, error) {
	var entity entities.PostThreadComment
	err := repo.comments(ctx).Where("post_thread_comments.id = ?", id).First(&entity).Error
	if err != nil {
		return nil, transaction.Error(ctx, err, "comment not found", "2f7c5e90-1a3b-4d68-b9c0-8e4f2a6d1c90")
	}
	return entity.EtoD(), nil
}

func (repo *PostGormRepository) ListComments(ctx context.Context, postID string, p query.Pagination) ([]*post.Comment, error) {
	tx := repo.comments(ctx).Where("post_thread_comments.post_id = ?", postID)
	var rows []entities.PostThreadComment
	if err := gormpage.Apply(tx, "post_thread_comments.id", p).Find(&rows).Error; err != nil {
		return nil, transaction.Error(ctx, err, "failed to list comments", "8a1d6b24-e5c0-4f37-a2d9-5c3e7f0b4a01")
	}
	out := make([]*post.Comment, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].EtoD())
	}
	return out, nil
}

func (repo *PostGormRepository) ListCommentIDs(ctx context.Context, postID string) ([]string, error) {
	var ids []string
	err := repo.db.GetTx(ctx).Model(&entities.PostThreadComment{}).Where("post_id = ?", postID).Pluck("id", &ids).Error
	if err != nil {
		return nil, transaction.Error(ctx, err, "failed to list comment ids", "d3e9a0f5-6b2c-4a81-97e4-1f8c5b2d0e12")
	}
	return ids, nil
}

func (repo *PostGormRepository) UpdateComment(ctx context.Context, id, text string, editedAt time.Time) (*post.Comment, error) {
	result := repo.db.GetTx(ctx).Model(&entities.PostThreadComment{}).Where("id = ?", id).
		Updates(map[string]any{"content": text, "edited_at": editedAt, "updated_at": editedAt})
	if result.Error != nil {
		return nil, transaction.Error(ctx, result.Error, "failed to update comment", "70b4c2e8-3f9a-4d56-b1e0-6a2d8c4f9b23")
	}
	if result.RowsAffected == 0 {
		return nil, transaction.Error(ctx, gorm.ErrRecordNotFound, "comment not found", "c5a8e1d3-0b7f-4c29-9e46-2d1f7b3a8c34")
	}
	return repo.FindComment(ctx, id)
}

func (repo *PostGormRepository) DeleteComment(ctx context.Context, c *post.Comment) error {
	return repo.db.Transaction(ctx, func(ctx context.Context) error {
		tx := repo.db.GetTx(ctx)
		result := tx.Where("id = ?", c.ID).Delete(&entities.PostThreadComment{})
		if result.Error != nil {
			return transaction.Error(ctx, result.Error, "failed to delete comment", "1b6f3d09-8e2a-4f74-a5c1-9d0e4b7f2a45")
		}
		if result.RowsAffected == 0 {
			return nil
		}
		err := tx.Model(&entities.Post{}).Where("id = ?", c.PostID).
			Update("thread_comment_count", gorm.Expr("GREATEST(thread_comment_count - 1, 0)")).Error
		if err != nil {
			return transaction.Error(ctx, err, "failed to decrement thread counter", "e9c2a7b4-5d1f-4e83-8b06-3f7a1c0d5e56")
		}
		return nil
	})
}

func (repo *PostGormRepository) comments(ctx context.Context) *gorm.DB {
	return repo.db.GetTx(ctx).Model(&entities.PostThreadComment{}).
		Select(commentColumns).
		Joins("JOIN posts ON posts.id = post_thread_comments.post_id")
}
