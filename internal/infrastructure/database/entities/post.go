package entities

import (
	"time"

	"gorm.io/datatypes"

	"github.com/huddlehq/huddle-server/internal/domain/post"
)

// Post is a row of posts.
type Post struct {
	ID                 string `gorm:"primaryKey"`
	ChannelID          string `gorm:"not null;index"`
	UserID             string `gorm:"not null"`
	Content            string `gorm:"not null;default:''"`
	Metadata           datatypes.JSONMap
	ThreadCommentCount int `gorm:"not null;default:0"`
	LastCommentAt      *time.Time
	EditedAt           *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (Post) TableName() string {
	return "posts"
}

func (p *Post) EtoD() *post.Post {
	return &post.Post{
		ID:                 p.ID,
		ChannelID:          p.ChannelID,
		UserID:             p.UserID,
		Content:            p.Content,
		Metadata:           p.Metadata,
		ThreadCommentCount: p.ThreadCommentCount,
		LastCommentAt:      p.LastCommentAt,
		EditedAt:           p.EditedAt,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
}

func PostDtoE(p *post.Post) *Post {
	return &Post{
		ID:                 p.ID,
		ChannelID:          p.ChannelID,
		UserID:             p.UserID,
		Content:            p.Content,
		Metadata:           jsonMap(p.Metadata),
		ThreadCommentCount: p.ThreadCommentCount,
		LastCommentAt:      p.LastCommentAt,
		EditedAt:           p.EditedAt,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
}

// PostThreadComment is a row of post_thread_comments. ChannelID is filled by joins only.
type PostThreadComment struct {
	ID        string `gorm:"primaryKey"`
	PostID    string `gorm:"not null;index"`
	ChannelID string `gorm:"->;-:migration"`
	UserID    string `gorm:"not null"`
	Content   string `gorm:"not null;default:''"`
	Metadata  datatypes.JSONMap
	EditedAt  *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (PostThreadComment) TableName() string {
	return "post_thread_comments"
}

func (c *PostThreadComment) EtoD() *post.Comment {
	return &post.Comment{
		ID:        c.ID,
		PostID:    c.PostID,
		ChannelID: c.ChannelID,
		UserID:    c.UserID,
		Content:   c.Content,
		Metadata:  c.Metadata,
		EditedAt:  c.EditedAt,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func PostThreadCommentDtoE(c *post.Comment) *PostThreadComment {
	return &PostThreadComment{
		ID:        c.ID,
		PostID:    c.PostID,
		UserID:    c.UserID,
		Content:   c.Content,
		Metadata:  jsonMap(c.Metadata),
		EditedAt:  c.EditedAt,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func jsonMap(m map[string]any) datatypes.JSONMap {
	if len(m) == 0 {
		return nil
	}
	return datatypes.JSONMap(m)
}
