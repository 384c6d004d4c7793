package post

import (
	"context"
	"time"

	"github.com/huddlehq/huddle-server/internal/domain/query"
)

// Repository persists posts and their thread comments.
type Repository interface {
	CreatePost(ctx context.Context, p *Post) error
	FindPost(ctx context.Context, id string) (*Post, error)
	ListPosts(ctx context.Context, channelID string, p query.Pagination) ([]*Post, error)
	UpdatePost(ctx context.Context, id, content string, editedAt time.Time) (*Post, error)
	DeletePost(ctx context.Context, id string) error

	// CreateComment inserts the comment and bumps the parent's counter and last_comment_at in one transaction.
	CreateComment(ctx context.Context, c *Comment) error
	FindComment(ctx context.Context, id string) (*Comment, error)
	ListComments(ctx context.Context, postID string, p query.Pagination) ([]*Comment, error)
	ListCommentIDs(ctx context.Context, postID string) ([]string, error)
	UpdateComment(ctx context.Context, id, content string, editedAt time.Time) (*Comment, error)
	// DeleteComment removes the comment and decrements the parent's counter in one transaction.
	DeleteComment(ctx context.Context, c *Comment) error
}
