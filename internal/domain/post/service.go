package post

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/huddlehq/huddle-server/internal/domain/content"
	"github.com/huddlehq/huddle-server/internal/domain/file"
	"github.com/huddlehq/huddle-server/internal/domain/query"
	"github.com/huddlehq/huddle-server/internal/domain/realtime"
	"github.com/huddlehq/huddle-server/internal/utils/idgen"
	"github.com/huddlehq/huddle-server/internal/utils/platformerrors"
)

const (
	tablePosts    = "posts"
	tableComments = "post_thread_comments"
)

// Service exposes channel posts and their threads.
type Service interface {
	CreatePost(ctx context.Context, channelID string, params CreateParams) (*Post, error)
	ListPosts(ctx context.Context, userID, channelID string, p query.Pagination) (query.Page[*Post], error)
	GetPost(ctx context.Context, userID, id string) (*Post, error)
	UpdatePost(ctx context.Context, userID, id, text string) (*Post, error)
	DeletePost(ctx context.Context, userID, id string) error

	CreateComment(ctx context.Context, postID string, params CreateParams) (*Comment, error)
	ListComments(ctx context.Context, userID, postID string, p query.Pagination) (query.Page[*Comment], error)
	UpdateComment(ctx context.Context, userID, id, text string) (*Comment, error)
	DeleteComment(ctx context.Context, userID, id string) error
}

type service struct {
	repo     Repository
	resolver content.Resolver
	files    file.Attacher
	cleaner  content.Cleaner
	notifier *realtime.Notifier
	log      zerolog.Logger
}

func NewService(repo Repository, resolver content.Resolver, files file.Attacher, cleaner content.Cleaner, notifier *realtime.Notifier, log zerolog.Logger) Service {
	return &service{
		repo:     repo,
		resolver: resolver,
		files:    files,
		cleaner:  cleaner,
		notifier: notifier,
		log:      log.With().Str("component", "post-service").Logger(),
	}
}

func channelScope(id string) content.Scope {
	return content.Scope{Type: content.ScopeChannel, ID: id}
}

// normalizeContent trims text and enforces 1..MaxContentLength characters unless attachments carry the content.
func normalizeContent(ctx context.Context, text string, hasFiles bool) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" && !hasFiles {
		return "", platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "content or at least one file is required", nil, "8e3b1d7a-4f2c-4a96-b0e5-c9d7f1a2e384")
	}
	if utf8.RuneCountInString(text) > MaxContentLength {
		return "", platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "content must be at most 8000 characters", nil, "1c7f4a2e-9b5d-4e38-a6f1-d2e8b3c0f597")
	}
	return text, nil
}

func (s *service) requireWriter(ctx context.Context, channelID string, params CreateParams) error {
	if params.System {
		return nil
	}
	ok, err := s.resolver.IsMember(ctx, channelScope(channelID), params.UserID)
	if err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "check channel membership")
	}
	if !ok {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden, "join the channel to post", nil, "b5e9c2f4-7a1d-4b63-8c0e-f4a6d9b2e718")
	}
	return nil
}

func (s *service) requireReader(ctx context.Context, channelID, userID string) error {
	ok, err := s.resolver.CanRead(ctx, channelScope(channelID), userID)
	if err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "check channel access")
	}
	if !ok {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, "channel not found", nil, "f7a3d8e1-2c6b-4f94-9d5a-0b8e4c1f7a26")
	}
	return nil
}

// requireAuthorOrModerator allows the author, and channel owners and admins.
func (s *service) requireAuthorOrModerator(ctx context.Context, channelID, authorID, userID string) error {
	if authorID == userID {
		return nil
	}
	ok, err := s.resolver.IsModerator(ctx, channelScope(channelID), userID)
	if err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "check channel role")
	}
	if !ok {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden, "only the author or a channel admin can delete this", nil, "3a9e6c0d-8f2b-4d71-b4e7-a1c5f8d3e069")
	}
	return nil
}

func (s *service) CreatePost(ctx context.Context, channelID string, params CreateParams) (*Post, error) {
	text, err := normalizeContent(ctx, params.Content, len(params.FileIDs) > 0)
	if err != nil {
		return nil, err
	}
	if err := s.requireWriter(ctx, channelID, params); err != nil {
		return nil, err
	}
	if err := s.files.CheckAttachable(ctx, params.UserID, params.FileIDs); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	p := &Post{
		ID:        idgen.New(idgen.PrefixPost),
		ChannelID: channelID,
		UserID:    params.UserID,
		Content:   text,
		Metadata:  params.Metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreatePost(ctx, p); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "create post")
	}

	attachments, err := s.files.Attach(ctx, params.UserID, p.Target(), params.FileIDs)
	if err != nil {
		if delErr := s.repo.DeletePost(context.WithoutCancel(ctx), p.ID); delErr != nil {
			s.log.Error().Err(delErr).Str("post_id", p.ID).Msg("roll back post after attach failure")
		}
		return nil, err
	}
	p.Attachments = attachments

	s.notifier.Emit(ctx, tablePosts, realtime.ChangeInsert, p, nil, channelScope(channelID).Topic())
	return p, nil
}

func (s *service) ListPosts(ctx context.Context, userID, channelID string, p query.Pagination) (query.Page[*Post], error) {
	if err := s.requireReader(ctx, channelID, userID); err != nil {
		return query.Page[*Post]{}, err
	}
	p = p.Normalize(query.OrderDesc)
	rows, err := s.repo.ListPosts(ctx, channelID, p)
	if err != nil {
		return query.Page[*Post]{}, err
	}
	page := query.NewPage(rows, p.Limit, func(p *Post) string { return p.ID })
	if err := s.withPostAttachments(ctx, page.Data...); err != nil {
		return query.Page[*Post]{}, err
	}
	return page, nil
}

func (s *service) GetPost(ctx context.Context, userID, id string) (*Post, error) {
	p, err := s.repo.FindPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireReader(ctx, p.ChannelID, userID); err != nil {
		return nil, err
	}
	if err := s.withPostAttachments(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) UpdatePost(ctx context.Context, userID, id, text string) (*Post, error) {
	before, err := s.repo.FindPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if before.UserID != userID {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden, "only the author can edit a post", nil, "6d2f9b4e-1a8c-4e57-a3d0-e9b7c2f5a814")
	}
	if err := s.withPostAttachments(ctx, before); err != nil {
		return nil, err
	}
	text, err = normalizeContent(ctx, text, len(before.Attachments) > 0)
	if err != nil {
		return nil, err
	}

	after, err := s.repo.UpdatePost(ctx, id, text, time.Now().UTC())
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "update post")
	}
	after.Attachments = before.Attachments
	s.notifier.Emit(ctx, tablePosts, realtime.ChangeUpdate, after, before, channelScope(after.ChannelID).Topic())
	return after, nil
}

func (s *service) DeletePost(ctx context.Context, userID, id string) error {
	p, err := s.repo.FindPost(ctx, id)
	if err != nil {
		return err
	}
	if err := s.requireAuthorOrModerator(ctx, p.ChannelID, p.UserID, userID); err != nil {
		return err
	}

	commentIDs, err := s.repo.ListCommentIDs(ctx, id)
	if err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "list post comments")
	}
	if err := s.repo.DeletePost(ctx, id); err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "delete post")
	}

	targets := make([]content.Target, 0, len(commentIDs)+1)
	targets = append(targets, p.Target())
	for _, cid := range commentIDs {
		targets = append(targets, content.Target{Type: content.TargetPostThreadComment, ID: cid})
	}
	if err := s.cleaner.DeleteDependents(ctx, targets); err != nil {
		s.log.Error().Err(err).Str("post_id", id).Msg("delete post dependents")
	}

	s.notifier.Emit(ctx, tablePosts, realtime.ChangeDelete, nil, p, channelScope(p.ChannelID).Topic())
	return nil
}

func (s *service) CreateComment(ctx context.Context, postID string, params CreateParams) (*Comment, error) {
	text, err := normalizeContent(ctx, params.Content, len(params.FileIDs) > 0)
	if err != nil {
		return nil, err
	}
	parent, err := s.repo.FindPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if err := s.requireWriter(ctx, parent.ChannelID, params); err != nil {
		return nil, err
	}
	if err := s.files.CheckAttachable(ctx, params.UserID, params.FileIDs); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	c := &Comment{
		ID:        idgen.New(idgen.PrefixComment),
		PostID:    postID,
		ChannelID: parent.ChannelID,
		UserID:    params.UserID,
		Content:   text,
		Metadata:  params.Metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateComment(ctx, c); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "create comment")
	}

	attachments, err := s.files.Attach(ctx, params.UserID, c.Target(), params.FileIDs)
	if err != nil {
		if delErr := s.repo.DeleteComment(context.WithoutCancel(ctx), c); delErr != nil {
			s.log.Error().Err(delErr).Str("comment_id", c.ID).Msg("roll back comment after attach failure")
		}
		return nil, err
	}
	c.Attachments = attachments

	topic := channelScope(parent.ChannelID).Topic()
	s.notifier.Emit(ctx, tableComments, realtime.ChangeInsert, c, nil, topic)
	s.emitParentUpdate(ctx, parent, topic)
	return c, nil
}

// emitParentUpdate publishes the parent's refreshed thread counters.
func (s *service) emitParentUpdate(ctx context.Context, before *Post, topic string) {
	after, err := s.repo.FindPost(ctx, before.ID)
	if err != nil {
		s.log.Warn().Err(err).Str("post_id", before.ID).Msg("reload post for thread counters")
		return
	}
	s.notifier.Emit(ctx, tablePosts, realtime.ChangeUpdate, after, before, topic)
}

func (s *service) ListComments(ctx context.Context, userID, postID string, p query.Pagination) (query.Page[*Comment], error) {
	parent, err := s.repo.FindPost(ctx, postID)
	if err != nil {
		return query.Page[*Comment]{}, err
	}
	if err := s.requireReader(ctx, parent.ChannelID, userID); err != nil {
		return query.Page[*Comment]{}, err
	}
	p = p.Normalize(query.OrderAsc)
	rows, err := s.repo.ListComments(ctx, postID, p)
	if err != nil {
		return query.Page[*Comment]{}, err
	}
	page := query.NewPage(rows, p.Limit, func(c *Comment) string { return c.ID })
	if err := s.withCommentAttachments(ctx, page.Data...); err != nil {
		return query.Page[*Comment]{}, err
	}
	return page, nil
}

func (s *service) UpdateComment(ctx context.Context, userID, id, text string) (*Comment, error) {
	before, err := s.repo.FindComment(ctx, id)
	if err != nil {
		return nil, err
	}
	if before.UserID != userID {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden, "only the author can edit a comment", nil, "c0e8a5f3-6b2d-4a19-8f7c-d3b1e9a4c652")
	}
	if err := s.withCommentAttachments(ctx, before); err != nil {
		return nil, err
	}
	text, err = normalizeContent(ctx, text, len(before.Attachments) > 0)
	if err != nil {
		return nil, err
	}

	after, err := s.repo.UpdateComment(ctx, id, text, time.Now().UTC())
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "update comment")
	}
	after.Attachments = before.Attachments
	s.notifier.Emit(ctx, tableComments, realtime.ChangeUpdate, after, before, channelScope(after.ChannelID).Topic())
	return after, nil
}

func (s *service) DeleteComment(ctx context.Context, userID, id string) error {
	c, err := s.repo.FindComment(ctx, id)
	if err != nil {
		return err
	}
	if err := s.requireAuthorOrModerator(ctx, c.ChannelID, c.UserID, userID); err != nil {
		return err
	}
	parent, err := s.repo.FindPost(ctx, c.PostID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteComment(ctx, c); err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "delete comment")
	}
	if err := s.cleaner.DeleteDependents(ctx, []content.Target{c.Target()}); err != nil {
		s.log.Error().Err(err).Str("comment_id", id).Msg("delete comment dependents")
	}

	topic := channelScope(c.ChannelID).Topic()
	s.notifier.Emit(ctx, tableComments, realtime.ChangeDelete, nil, c, topic)
	s.emitParentUpdate(ctx, parent, topic)
	return nil
}

func (s *service) withPostAttachments(ctx context.Context, posts ...*Post) error {
	targets := make([]content.Target, 0, len(posts))
	for _, p := range posts {
		targets = append(targets, p.Target())
	}
	grouped, err := s.files.ListForTargets(ctx, targets)
	if err != nil {
		return err
	}
	for _, p := range posts {
		p.Attachments = nonNil(grouped[p.Target()])
	}
	return nil
}

func (s *service) withCommentAttachments(ctx context.Context, comments ...*Comment) error {
	targets := make([]content.Target, 0, len(comments))
	for _, c := range comments {
		targets = append(targets, c.Target())
	}
	grouped, err := s.files.ListForTargets(ctx, targets)
	if err != nil {
		return err
	}
	for _, c := range comments {
		c.Attachments = nonNil(grouped[c.Target()])
	}
	return nil
}

func nonNil(a []*file.Attachment) []*file.Attachment {
	if a == nil {
		return []*file.Attachment{}
	}
	return a
}
