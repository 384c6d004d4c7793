package conversation

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/huddlehq/huddle-server/internal/domain/content"
	"github.com/huddlehq/huddle-server/internal/domain/file"
	"github.com/huddlehq/huddle-server/internal/domain/query"
	"github.com/huddlehq/huddle-server/internal/domain/realtime"
	"github.com/huddlehq/huddle-server/internal/domain/user"
	"github.com/huddlehq/huddle-server/internal/utils/idgen"
	"github.com/huddlehq/huddle-server/internal/utils/platformerrors"
)

const (
	tableConversations = "conversations"
	tableParticipants  = "conversation_participants"
	tableMessages      = "messages"
	tableComments      = "conversation_thread_comments"

	maxTitleLength = 120
)

// Directory resolves user ids.
type Directory interface {
	GetMany(ctx context.Context, ids []string) ([]*user.User, error)
}

// Service exposes direct and group conversations. Only participants can read or write.
type Service interface {
	Create(ctx context.Context, userID string, params CreateConversationParams) (*Conversation, bool, error)
	List(ctx context.Context, userID string, p query.Pagination) (query.Page[*Conversation], error)
	Get(ctx context.Context, userID, id string) (*Conversation, error)
	AddParticipant(ctx context.Context, actorID, id, userID string) (*Participant, error)
	Leave(ctx context.Context, userID, id string) error
	MarkRead(ctx context.Context, userID, id string) error

	CreateMessage(ctx context.Context, conversationID string, params CreateParams) (*Message, error)
	ListMessages(ctx context.Context, userID, conversationID string, p query.Pagination) (query.Page[*Message], error)
	GetMessage(ctx context.Context, userID, id string) (*Message, error)
	UpdateMessage(ctx context.Context, userID, id, text string) (*Message, error)
	DeleteMessage(ctx context.Context, userID, id string) error

	CreateComment(ctx context.Context, messageID string, params CreateParams) (*Comment, error)
	ListComments(ctx context.Context, userID, messageID string, p query.Pagination) (query.Page[*Comment], error)
	UpdateComment(ctx context.Context, userID, id, text string) (*Comment, error)
	DeleteComment(ctx context.Context, userID, id string) error
}

type service struct {
	repo      Repository
	directory Directory
	files     file.Attacher
	cleaner   content.Cleaner
	notifier  *realtime.Notifier
	log       zerolog.Logger
}

func NewService(repo Repository, directory Directory, files file.Attacher, cleaner content.Cleaner, notifier *realtime.Notifier, log zerolog.Logger) Service {
	return &service{
		repo:      repo,
		directory: directory,
		files:     files,
		cleaner:   cleaner,
		notifier:  notifier,
		log:       log.With().Str("component", "conversation-service").Logger(),
	}
}

func topicOf(id string) string {
	return realtime.TopicConversationPrefix + id
}

// Create opens a conversation. A 1:1 request returns the existing conversation between the pair
// when there is one; the bool reports whether a new conversation was created.
func (s *service) Create(ctx context.Context, userID string, params CreateConversationParams) (*Conversation, bool, error) {
	others := make([]string, 0, len(params.UserIDs))
	seen := map[string]struct{}{userID: {}}
	for _, id := range params.UserIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		others = append(others, id)
	}

	title := strings.TrimSpace(params.Title)
	if utf8.RuneCountInString(title) > maxTitleLength {
		return nil, false, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "title must be at most 120 characters", nil, "5b2e8d1f-4c7a-4e90-b3f6-a9d1c5e2f047")
	}

	if params.IsGroup {
		if len(others) < MinGroupOthers || len(others) > MaxGroupOthers {
			return nil, false, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, fmt.Sprintf("a group needs %d to %d other participants", MinGroupOthers, MaxGroupOthers), nil, "e1a7c4f9-2d5b-4a83-9c0e-6f3b8d1a4e52")
		}
	} else if len(others) != 1 {
		return nil, false, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "a direct conversation needs exactly one other participant", nil, "7f4d1a8c-9e2b-4c65-a0d3-b8e6f2c9a175")
	}

	if err := s.requireUsers(ctx, others); err != nil {
		return nil, false, err
	}

	var directKey *string
	if !params.IsGroup {
		key := DirectKey(userID, others[0])
		existing, err := s.repo.FindByDirectKey(ctx, key)
		if err == nil {
			return existing, false, nil
		}
		if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
			return nil, false, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "find direct conversation")
		}
		directKey = &key
		title = ""
	}

	now := time.Now().UTC()
	c := &Conversation{
		ID:        idgen.New(idgen.PrefixConversation),
		IsGroup:   params.IsGroup,
		Title:     title,
		DirectKey: directKey,
		CreatedBy: userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	participants := make([]*Participant, 0, len(others)+1)
	for _, id := range append([]string{userID}, others...) {
		participants = append(participants, &Participant{ConversationID: c.ID, UserID: id, JoinedAt: now})
	}

	if err := s.repo.Create(ctx, c, participants); err != nil {
		// the other side opened the same direct conversation concurrently
		if directKey != nil && platformerrors.IsErrorType(err, platformerrors.ErrorTypeConflict) {
			existing, findErr := s.repo.FindByDirectKey(ctx, *directKey)
			if findErr != nil {
				return nil, false, platformerrors.AsError(ctx, platformerrors.LayerDomain, findErr, "find direct conversation")
			}
			return existing, false, nil
		}
		return nil, false, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "create conversation")
	}
	c.Participants = participants

	topics := make([]string, 0, len(participants))
	for _, p := range participants {
		topics = append(topics, realtime.UserTopic(p.UserID))
	}
	s.notifier.Emit(ctx, tableConversations, realtime.ChangeInsert, c, nil, topics...)
	s.log.Info().Str("conversation_id", c.ID).Bool("group", c.IsGroup).Int("participants", len(participants)).Msg("conversation created")
	return c, true, nil
}

func (s *service) requireUsers(ctx context.Context, ids []string) error {
	found, err := s.directory.GetMany(ctx, ids)
	if err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "load participants")
	}
	known := make(map[string]bool, len(found))
	for _, u := range found {
		known[u.ID] = true
	}
	for _, id := range ids {
		if !known[id] {
			return platformerrors.NewErrorWithContext(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, "user not found", nil, "c3e9b6a2-1f8d-4b74-8e5c-d0a4f7b2c986", map[string]any{"user_id": id})
		}
	}
	return nil
}

func (s *service) List(ctx context.Context, userID string, p query.Pagination) (query.Page[*Conversation], error) {
	p = p.Normalize(query.OrderDesc)
	rows, err := s.repo.ListForUser(ctx, userID, p)
	if err != nil {
		return query.Page[*Conversation]{}, err
	}
	page := query.NewPage(rows, p.Limit, func(c *Conversation) string { return c.ID })
	if err := s.withParticipants(ctx, page.Data...); err != nil {
		return query.Page[*Conversation]{}, err
	}
	return page, nil
}

func (s *service) Get(ctx context.Context, userID, id string) (*Conversation, error) {
	c, err := s.accessible(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := s.withParticipants(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *service) withParticipants(ctx context.Context, conversations ...*Conversation) error {
	if len(conversations) == 0 {
		return nil
	}
	ids := make([]string, 0, len(conversations))
	byID := make(map[string]*Conversation, len(conversations))
	for _, c := range conversations {
		ids = append(ids, c.ID)
		byID[c.ID] = c
		c.Participants = []*Participant{}
	}
	rows, err := s.repo.ListParticipants(ctx, ids)
	if err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "list participants")
	}
	for _, p := range rows {
		if c, ok := byID[p.ConversationID]; ok {
			c.Participants = append(c.Participants, p)
		}
	}
	return nil
}

func (s *service) AddParticipant(ctx context.Context, actorID, id, userID string) (*Participant, error) {
	c, err := s.accessible(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	if !c.IsGroup {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeConflict, "participants can only be added to group conversations", nil, "8a5c2e9f-6d1b-4f37-a4e0-c7b3d9f1e268")
	}
	if err := s.requireUsers(ctx, []string{userID}); err != nil {
		return nil, err
	}
	if existing, err := s.participant(ctx, id, userID); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}
	if err := s.withParticipants(ctx, c); err != nil {
		return nil, err
	}
	if len(c.Participants) >= MaxGroupOthers+1 {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeConflict, "group conversation is full", nil, "2d8f5b1c-9a4e-4c06-b7d2-e1f8a3c6b590")
	}

	p := &Participant{ConversationID: id, UserID: userID, JoinedAt: time.Now().UTC()}
	if err := s.repo.AddParticipant(ctx, p); err != nil {
		if platformerrors.IsErrorType(err, platformerrors.ErrorTypeConflict) {
			return s.repo.GetParticipant(ctx, id, userID)
		}
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "add participant")
	}
	s.notifier.Emit(ctx, tableParticipants, realtime.ChangeInsert, p, nil, topicOf(id), realtime.UserTopic(userID))
	return p, nil
}

func (s *service) Leave(ctx context.Context, userID, id string) error {
	c, err := s.accessible(ctx, userID, id)
	if err != nil {
		return err
	}
	if !c.IsGroup {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeConflict, "cannot leave a direct conversation", nil, "f6b3a0d8-5e2c-4a91-8d7f-2c9e4b1a7d03")
	}
	if err := s.repo.RemoveParticipant(ctx, id, userID); err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "remove participant")
	}
	s.notifier.Emit(ctx, tableParticipants, realtime.ChangeDelete, nil, &Participant{ConversationID: id, UserID: userID}, topicOf(id), realtime.UserTopic(userID))
	return nil
}

func (s *service) MarkRead(ctx context.Context, userID, id string) error {
	if _, err := s.accessible(ctx, userID, id); err != nil {
		return err
	}
	return s.repo.MarkRead(ctx, id, userID, time.Now().UTC())
}

func (s *service) participant(ctx context.Context, conversationID, userID string) (*Participant, error) {
	p, err := s.repo.GetParticipant(ctx, conversationID, userID)
	if err != nil {
		if platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
			return nil, nil
		}
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "load participant")
	}
	return p, nil
}

// accessible loads a conversation the user participates in. Outsiders get NOT_FOUND.
func (s *service) accessible(ctx context.Context, userID, id string) (*Conversation, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p, err := s.participant(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, notFoundError(ctx)
	}
	return c, nil
}

func (s *service) requireWriter(ctx context.Context, conversationID string, params CreateParams) error {
	if params.System {
		return nil
	}
	_, err := s.accessible(ctx, params.UserID, conversationID)
	return err
}

func normalizeContent(ctx context.Context, text string, hasFiles bool) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" && !hasFiles {
		return "", platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "content or at least one file is required", nil, "4c1a7e3d-8b6f-4d25-9a0c-f5e2b8d4a731")
	}
	if utf8.RuneCountInString(text) > MaxContentLength {
		return "", platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "content must be at most 8000 characters", nil, "a9d6f2b8-3e1c-4f47-b5a9-0d7c3e6f1b84")
	}
	return text, nil
}

func (s *service) CreateMessage(ctx context.Context, conversationID string, params CreateParams) (*Message, error) {
	text, err := normalizeContent(ctx, params.Content, len(params.FileIDs) > 0)
	if err != nil {
		return nil, err
	}
	if err := s.requireWriter(ctx, conversationID, params); err != nil {
		return nil, err
	}
	if err := s.files.CheckAttachable(ctx, params.UserID, params.FileIDs); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	m := &Message{
		ID:             idgen.New(idgen.PrefixMessage),
		ConversationID: conversationID,
		UserID:         params.UserID,
		Content:        text,
		Metadata:       params.Metadata,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.CreateMessage(ctx, m); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "create message")
	}

	attachments, err := s.files.Attach(ctx, params.UserID, m.Target(), params.FileIDs)
	if err != nil {
		if delErr := s.repo.DeleteMessage(context.WithoutCancel(ctx), m.ID); delErr != nil {
			s.log.Error().Err(delErr).Str("message_id", m.ID).Msg("roll back message after attach failure")
		}
		return nil, err
	}
	m.Attachments = attachments

	s.notifier.Emit(ctx, tableMessages, realtime.ChangeInsert, m, nil, topicOf(conversationID))
	return m, nil
}

func (s *service) ListMessages(ctx context.Context, userID, conversationID string, p query.Pagination) (query.Page[*Message], error) {
	if _, err := s.accessible(ctx, userID, conversationID); err != nil {
		return query.Page[*Message]{}, err
	}
	p = p.Normalize(query.OrderDesc)
	rows, err := s.repo.ListMessages(ctx, conversationID, p)
	if err != nil {
		return query.Page[*Message]{}, err
	}
	page := query.NewPage(rows, p.Limit, func(m *Message) string { return m.ID })
	if err := s.withMessageAttachments(ctx, page.Data...); err != nil {
		return query.Page[*Message]{}, err
	}
	return page, nil
}

func (s *service) GetMessage(ctx context.Context, userID, id string) (*Message, error) {
	m, err := s.repo.FindMessage(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.accessible(ctx, userID, m.ConversationID); err != nil {
		return nil, err
	}
	if err := s.withMessageAttachments(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *service) UpdateMessage(ctx context.Context, userID, id, text string) (*Message, error) {
	before, err := s.repo.FindMessage(ctx, id)
	if err != nil {
		return nil, err
	}
	if before.UserID != userID {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden, "only the author can edit a message", nil, "1e7b4d0a-6c3f-4e82-9b5d-a2f8c1e6d397")
	}
	if err := s.withMessageAttachments(ctx, before); err != nil {
		return nil, err
	}
	text, err = normalizeContent(ctx, text, len(before.Attachments) > 0)
	if err != nil {
		return nil, err
	}
	after, err := s.repo.UpdateMessage(ctx, id, text, time.Now().UTC())
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "update message")
	}
	after.Attachments = before.Attachments
	s.notifier.Emit(ctx, tableMessages, realtime.ChangeUpdate, after, before, topicOf(after.ConversationID))
	return after, nil
}

func (s *service) DeleteMessage(ctx context.Context, userID, id string) error {
	m, err := s.repo.FindMessage(ctx, id)
	if err != nil {
		return err
	}
	if m.UserID != userID {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden, "only the author can delete a message", nil, "b4f1c8e5-0a7d-4b39-8e2f-d6a3b9c0e514")
	}
	commentIDs, err := s.repo.ListCommentIDs(ctx, id)
	if err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "list message comments")
	}
	if err := s.repo.DeleteMessage(ctx, id); err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "delete message")
	}

	targets := make([]content.Target, 0, len(commentIDs)+1)
	targets = append(targets, m.Target())
	for _, cid := range commentIDs {
		targets = append(targets, content.Target{Type: content.TargetConversationThreadComment, ID: cid})
	}
	if err := s.cleaner.DeleteDependents(ctx, targets); err != nil {
		s.log.Error().Err(err).Str("message_id", id).Msg("delete message dependents")
	}
	s.notifier.Emit(ctx, tableMessages, realtime.ChangeDelete, nil, m, topicOf(m.ConversationID))
	return nil
}

func (s *service) CreateComment(ctx context.Context, messageID string, params CreateParams) (*Comment, error) {
	text, err := normalizeContent(ctx, params.Content, len(params.FileIDs) > 0)
	if err != nil {
		return nil, err
	}
	parent, err := s.repo.FindMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if err := s.requireWriter(ctx, parent.ConversationID, params); err != nil {
		return nil, err
	}
	if err := s.files.CheckAttachable(ctx, params.UserID, params.FileIDs); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	c := &Comment{
		ID:             idgen.New(idgen.PrefixComment),
		MessageID:      messageID,
		ConversationID: parent.ConversationID,
		UserID:         params.UserID,
		Content:        text,
		Metadata:       params.Metadata,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.CreateComment(ctx, c); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "create thread comment")
	}
	attachments, err := s.files.Attach(ctx, params.UserID, c.Target(), params.FileIDs)
	if err != nil {
		if delErr := s.repo.DeleteComment(context.WithoutCancel(ctx), c); delErr != nil {
			s.log.Error().Err(delErr).Str("comment_id", c.ID).Msg("roll back thread comment after attach failure")
		}
		return nil, err
	}
	c.Attachments = attachments

	topic := topicOf(parent.ConversationID)
	s.notifier.Emit(ctx, tableComments, realtime.ChangeInsert, c, nil, topic)
	s.emitParentUpdate(ctx, parent, topic)
	return c, nil
}

func (s *service) emitParentUpdate(ctx context.Context, before *Message, topic string) {
	after, err := s.repo.FindMessage(ctx, before.ID)
	if err != nil {
		s.log.Warn().Err(err).Str("message_id", before.ID).Msg("reload message for thread counters")
		return
	}
	s.notifier.Emit(ctx, tableMessages, realtime.ChangeUpdate, after, before, topic)
}

func (s *service) ListComments(ctx context.Context, userID, messageID string, p query.Pagination) (query.Page[*Comment], error) {
	parent, err := s.repo.FindMessage(ctx, messageID)
	if err != nil {
		return query.Page[*Comment]{}, err
	}
	if _, err := s.accessible(ctx, userID, parent.ConversationID); err != nil {
		return query.Page[*Comment]{}, err
	}
	p = p.Normalize(query.OrderAsc)
	rows, err := s.repo.ListComments(ctx, messageID, p)
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
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden, "only the author can edit a comment", nil, "6f3c0a9e-2b8d-4d16-a7e4-c9b5f1d8a203")
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
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "update thread comment")
	}
	after.Attachments = before.Attachments
	s.notifier.Emit(ctx, tableComments, realtime.ChangeUpdate, after, before, topicOf(after.ConversationID))
	return after, nil
}

func (s *service) DeleteComment(ctx context.Context, userID, id string) error {
	c, err := s.repo.FindComment(ctx, id)
	if err != nil {
		return err
	}
	if c.UserID != userID {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden, "only the author can delete a comment", nil, "d2a8e5b1-7f4c-4a60-9c3e-8b1d6f4a2c75")
	}
	parent, err := s.repo.FindMessage(ctx, c.MessageID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteComment(ctx, c); err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "delete thread comment")
	}
	if err := s.cleaner.DeleteDependents(ctx, []content.Target{c.Target()}); err != nil {
		s.log.Error().Err(err).Str("comment_id", id).Msg("delete thread comment dependents")
	}
	topic := topicOf(c.ConversationID)
	s.notifier.Emit(ctx, tableComments, realtime.ChangeDelete, nil, c, topic)
	s.emitParentUpdate(ctx, parent, topic)
	return nil
}

func (s *service) withMessageAttachments(ctx context.Context, messages ...*Message) error {
	targets := make([]content.Target, 0, len(messages))
	for _, m := range messages {
		targets = append(targets, m.Target())
	}
	grouped, err := s.files.ListForTargets(ctx, targets)
	if err != nil {
		return err
	}
	for _, m := range messages {
		m.Attachments = nonNil(grouped[m.Target()])
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

func notFoundError(ctx context.Context) error {
	return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, "conversation not found", nil, "9c6e3b0f-4a1d-4e58-b2f7-e5c8a1d4b639")
}
