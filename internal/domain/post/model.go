package post

import (
	"time"

	"github.com/huddlehq/huddle-server/internal/domain/content"
	"github.com/huddlehq/huddle-server/internal/domain/file"
)

// MaxContentLength bounds the text of posts and comments, in characters.
const MaxContentLength = 8000

// Post is a top-level entry of a channel.
type Post struct {
	ID                 string             `json:"id"`
	ChannelID          string             `json:"channel_id"`
	UserID             string             `json:"user_id"`
	Content            string             `json:"content"`
	Metadata           map[string]any     `json:"metadata,omitempty"`
	ThreadCommentCount int                `json:"thread_comment_count"`
	LastCommentAt      *time.Time         `json:"last_comment_at,omitempty"`
	EditedAt           *time.Time         `json:"edited_at,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
	Attachments        []*file.Attachment `json:"attachments"`
}

func (p *Post) Target() content.Target {
	return content.Target{Type: content.TargetPost, ID: p.ID}
}

// Comment is a reply in a post's thread.
type Comment struct {
	ID          string             `json:"id"`
	PostID      string             `json:"post_id"`
	ChannelID   string             `json:"channel_id"`
	UserID      string             `json:"user_id"`
	Content     string             `json:"content"`
	Metadata    map[string]any     `json:"metadata,omitempty"`
	EditedAt    *time.Time         `json:"edited_at,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
	Attachments []*file.Attachment `json:"attachments"`
}

func (c *Comment) Target() content.Target {
	return content.Target{Type: content.TargetPostThreadComment, ID: c.ID}
}

// CreateParams describes a new post or comment. System writes skip the membership check and are
// used for assistant replies.
type CreateParams struct {
	UserID   string
	Content  string
	FileIDs  []string
	Metadata map[string]any
	System   bool
}
