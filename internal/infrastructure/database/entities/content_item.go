package entities

import (
	"time"

	"github.com/huddlehq/huddle-server/internal/domain/content"
)

// ContentItemsSQL selects every post, message and thread comment with its scope, as a subquery.
const ContentItemsSQL = `(
	SELECT 'post' AS target_type, p.id AS target_id, 'channel' AS scope_type, p.channel_id AS scope_id,
		'' AS parent_id, p.user_id AS author_id, p.content AS text, p.created_at
	FROM posts p
	UNION ALL
	SELECT 'post_thread_comment', c.id, 'channel', p.channel_id, c.post_id, c.user_id, c.content, c.created_at
	FROM post_thread_comments c JOIN posts p ON p.id = c.post_id
	UNION ALL
	SELECT 'message', m.id, 'conversation', m.conversation_id, '', m.user_id, m.content, m.created_at
	FROM messages m
	UNION ALL
	SELECT 'conversation_thread_comment', c.id, 'conversation', m.conversation_id, c.message_id, c.user_id, c.content, c.created_at
	FROM conversation_thread_comments c JOIN messages m ON m.id = c.message_id
)`

// ContentItem is a row of ContentItemsSQL.
type ContentItem struct {
	TargetType string
	TargetID   string
	ScopeType  string
	ScopeID    string
	ParentID   string
	AuthorID   string
	Text       string
	CreatedAt  time.Time
}

func (c *ContentItem) EtoD() content.Item {
	return content.Item{
		Target:    content.Target{Type: content.TargetType(c.TargetType), ID: c.TargetID},
		Scope:     content.Scope{Type: content.ScopeType(c.ScopeType), ID: c.ScopeID},
		ParentID:  c.ParentID,
		AuthorID:  c.AuthorID,
		Text:      c.Text,
		CreatedAt: c.CreatedAt,
	}
}

func ContentItemsEtoD(rows []ContentItem) []content.Item {
	out := make([]content.Item, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].EtoD())
	}
	return out
}
