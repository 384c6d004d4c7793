package channel

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/huddlehq/huddle-server/internal/domain/content"
	"github.com/huddlehq/huddle-server/internal/domain/query"
	"github.com/huddlehq/huddle-server/internal/domain/realtime"
	"github.com/huddlehq/huddle-server/internal/utils/idgen"
	"github.com/huddlehq/huddle-server/internal/utils/platformerrors"
)

const (
	maxTopicLength = 250

	tableChannels = "channels"
	tableMembers  = "channel_members"
)

// Service exposes channel and membership use cases. Every method takes the acting user id.
type Service interface {
	Create(ctx context.Context, userID string, params CreateParams) (*Channel, error)
	List(ctx context.Context, filter ListFilter, p query.Pagination) (query.Page[*Channel], error)
	Get(ctx context.Context, userID, id string) (*Channel, error)
	Update(ctx context.Context, userID, id string, update Update) (*Channel, error)
	SetArchived(ctx context.Context, userID, id string, archived bool) (*Channel, error)
	Delete(ctx context.Context, userID, id string) error

	Join(ctx context.Context, userID, id string) (*Member, error)
	Leave(ctx context.Context, userID, id string) error
	AddMember(ctx context.Context, actorID, id, memberID string, role Role) (*Member, error)
	RemoveMember(ctx context.Context, actorID, id, memberID string) error
	UpdateMemberRole(ctx context.Context, actorID, id, memberID string, role Role) (*Member, error)
	ListMembers(ctx context.Context, userID, id string, p query.Pagination) (query.Page[*Member], error)
	MarkRead(ctx context.Context, userID, id string) error
}

type service struct {
	repo     Repository
	cleaner  content.Cleaner
	notifier *realtime.Notifier
	log      zerolog.Logger
}

func NewService(repo Repository, cleaner content.Cleaner, notifier *realtime.Notifier, log zerolog.Logger) Service {
	return &service{
		repo:     repo,
		cleaner:  cleaner,
		notifier: notifier,
		log:      log.With().Str("component", "channel-service").Logger(),
	}
}

func topicOf(id string) string {
	return realtime.TopicChannelPrefix + id
}

func (s *service) Create(ctx context.Context, userID string, params CreateParams) (*Channel, error) {
	name := strings.ToLower(strings.TrimSpace(params.Name))
	if !ValidName(name) {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "name must be a lowercase slug of 1-80 characters", nil, "0f651086-dd11-4c9d-9cc4-43378ef057d6")
	}
	topic := strings.TrimSpace(params.Topic)
	if utf8.RuneCountInString(topic) > maxTopicLength {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "topic must be at most 250 characters", nil, "d725c6a8-9ac0-4100-acc9-0b02528c5dc1")
	}

	now := time.Now().UTC()
	ch := &Channel{
		ID:        idgen.New(idgen.PrefixChannel),
		Name:      name,
		Topic:     topic,
		IsPrivate: params.IsPrivate,
		CreatedBy: userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	owner := &Member{ChannelID: ch.ID, UserID: userID, Role: RoleOwner, JoinedAt: now}
	if err := s.repo.Create(ctx, ch, owner); err != nil {
		if platformerrors.IsErrorType(err, platformerrors.ErrorTypeConflict) {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeConflict, "channel name already taken", err, "a3d180bc-91f8-4a63-bc1a-14ac1359ddb9")
		}
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "create channel")
	}

	s.log.Info().Str("channel_id", ch.ID).Str("user_id", userID).Msg("channel created")
	s.notifier.Emit(ctx, tableChannels, realtime.ChangeInsert, ch, nil, topicOf(ch.ID), realtime.UserTopic(userID))
	return ch, nil
}

func (s *service) List(ctx context.Context, filter ListFilter, p query.Pagination) (query.Page[*Channel], error) {
	p = p.Normalize(query.OrderAsc)
	rows, err := s.repo.List(ctx, filter, p)
	if err != nil {
		return query.Page[*Channel]{}, err
	}
	return query.NewPage(rows, p.Limit, func(c *Channel) string { return c.ID }), nil
}

func (s *service) Get(ctx context.Context, userID, id string) (*Channel, error) {
	ch, _, err := s.readable(ctx, userID, id)
	return ch, err
}

func (s *service) Update(ctx context.Context, userID, id string, update Update) (*Channel, error) {
	before, _, err := s.moderated(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if before.IsArchived() {
		return nil, archivedError(ctx)
	}
	if update.Name != nil {
		name := strings.ToLower(strings.TrimSpace(*update.Name))
		if !ValidName(name) {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "name must be a lowercase slug of 1-80 characters", nil, "2b3d6f8c-1c9a-4a55-a6f2-3b49b1e0c7d4")
		}
		update.Name = &name
	}
	if update.Topic != nil {
		topic := strings.TrimSpace(*update.Topic)
		if utf8.RuneCountInString(topic) > maxTopicLength {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "topic must be at most 250 characters", nil, "7c4e0a91-5d2b-4f6e-8a13-9e2c7b5d1f08")
		}
		update.Topic = &topic
	}

	after, err := s.repo.Update(ctx, id, update)
	if err != nil {
		if platformerrors.IsErrorType(err, platformerrors.ErrorTypeConflict) {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeConflict, "channel name already taken", err, "e8a1f2b3-6c4d-4e5f-9a0b-1c2d3e4f5a69")
		}
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "update channel")
	}
	s.notifier.Emit(ctx, tableChannels, realtime.ChangeUpdate, after, before, topicOf(id))
	return after, nil
}

func (s *service) SetArchived(ctx context.Context, userID, id string, archived bool) (*Channel, error) {
	before, member, err := s.moderated(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if member.Role != RoleOwner {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden, "only an owner can archive the channel", nil, "5f0e9d8c-7b6a-4c5d-8e4f-3a2b1c0d9e8f")
	}
	var at *time.Time
	if archived {
		now := time.Now().UTC()
		at = &now
	}
	after, err := s.repo.SetArchived(ctx, id, at)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "archive channel")
	}
	s.notifier.Emit(ctx, tableChannels, realtime.ChangeUpdate, after, before, topicOf(id))
	return after, nil
}

func (s *service) Delete(ctx context.Context, userID, id string) error {
	ch, member, err := s.moderated(ctx, userID, id)
	if err != nil {
		return err
	}
	if member.Role != RoleOwner {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden, "only an owner can delete the channel", nil, "91b2c3d4-e5f6-4a7b-8c9d-0e1f2a3b4c5d")
	}

	targets, err := s.repo.ContentTargets(ctx, id)
	if err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "collect channel content")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "delete channel")
	}
	if len(targets) > 0 {
		if err := s.cleaner.DeleteDependents(ctx, targets); err != nil {
			// rows left behind are unreachable, storage objects get reclaimed by the orphan sweep
			s.log.Error().Err(err).Str("channel_id", id).Int("targets", len(targets)).Msg("delete channel dependents")
		}
	}

	s.log.Info().Str("channel_id", id).Str("user_id", userID).Msg("channel deleted")
	s.notifier.Emit(ctx, tableChannels, realtime.ChangeDelete, nil, ch, topicOf(id))
	return nil
}

func (s *service) Join(ctx context.Context, userID, id string) (*Member, error) {
	ch, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	existing, err := s.membership(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	if ch.IsPrivate {
		// private channels look absent to outsiders
		return nil, notFoundError(ctx)
	}
	if ch.IsArchived() {
		return nil, archivedError(ctx)
	}
	return s.insertMember(ctx, &Member{ChannelID: id, UserID: userID, Role: RoleMember, JoinedAt: time.Now().UTC()})
}

func (s *service) Leave(ctx context.Context, userID, id string) error {
	member, err := s.membership(ctx, id, userID)
	if err != nil {
		return err
	}
	if member == nil {
		return notFoundError(ctx)
	}
	if member.Role == RoleOwner {
		counts, err := s.repo.CountByRole(ctx, id)
		if err != nil {
			return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "count channel members")
		}
		total := counts[RoleOwner] + counts[RoleAdmin] + counts[RoleMember]
		if counts[RoleOwner] <= 1 && total > 1 {
			return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeConflict, "the last owner must hand over ownership before leaving", nil, "3e4f5a6b-7c8d-4e9f-a0b1-c2d3e4f5a6b7")
		}
	}
	return s.deleteMember(ctx, member)
}

func (s *service) AddMember(ctx context.Context, actorID, id, memberID string, role Role) (*Member, error) {
	ch, actor, err := s.moderated(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	if ch.IsArchived() {
		return nil, archivedError(ctx)
	}
	if role == "" {
		role = RoleMember
	}
	if role == RoleOwner && actor.Role != RoleOwner {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden, "only an owner can add owners", nil, "b8c9d0e1-f2a3-4b4c-9d5e-6f7a8b9c0d1e")
	}
	existing, err := s.membership(ctx, id, memberID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeConflict, "user is already a member", nil, "c4d5e6f7-a8b9-4c0d-8e1f-2a3b4c5d6e7f")
	}
	return s.insertMember(ctx, &Member{ChannelID: id, UserID: memberID, Role: role, JoinedAt: time.Now().UTC()})
}

func (s *service) RemoveMember(ctx context.Context, actorID, id, memberID string) error {
	if actorID == memberID {
		return s.Leave(ctx, actorID, id)
	}
	_, actor, err := s.moderated(ctx, actorID, id)
	if err != nil {
		return err
	}
	target, err := s.membership(ctx, id, memberID)
	if err != nil {
		return err
	}
	if target == nil {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, "member not found", nil, "d0e1f2a3-b4c5-4d6e-9f7a-8b9c0d1e2f3a")
	}
	if target.Role == RoleOwner && actor.Role != RoleOwner {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden, "only an owner can remove owners", nil, "e6f7a8b9-c0d1-4e2f-a3b4-c5d6e7f8a9b0")
	}
	return s.deleteMember(ctx, target)
}

func (s *service) UpdateMemberRole(ctx context.Context, actorID, id, memberID string, role Role) (*Member, error) {
	_, actor, err := s.moderated(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	target, err := s.membership(ctx, id, memberID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, "member not found", nil, "f2a3b4c5-d6e7-4f8a-b9c0-d1e2f3a4b5c6")
	}
	if target.Role == role {
		return target, nil
	}
	if (role == RoleOwner || target.Role == RoleOwner) && actor.Role != RoleOwner {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden, "only an owner can grant or revoke ownership", nil, "0a1b2c3d-4e5f-4a6b-8c7d-9e0f1a2b3c4d")
	}
	if target.Role == RoleOwner {
		counts, err := s.repo.CountByRole(ctx, id)
		if err != nil {
			return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "count channel members")
		}
		if counts[RoleOwner] <= 1 {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeConflict, "a channel needs at least one owner", nil, "1b2c3d4e-5f6a-4b7c-9d8e-0f1a2b3c4d5e")
		}
	}

	updated, err := s.repo.UpdateMemberRole(ctx, id, memberID, role)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "update member role")
	}
	s.notifier.Emit(ctx, tableMembers, realtime.ChangeUpdate, updated, target, topicOf(id), realtime.UserTopic(memberID))
	return updated, nil
}

func (s *service) ListMembers(ctx context.Context, userID, id string, p query.Pagination) (query.Page[*Member], error) {
	if _, _, err := s.readable(ctx, userID, id); err != nil {
		return query.Page[*Member]{}, err
	}
	p = p.Normalize(query.OrderAsc)
	rows, err := s.repo.ListMembers(ctx, id, p)
	if err != nil {
		return query.Page[*Member]{}, err
	}
	return query.NewPage(rows, p.Limit, func(m *Member) string { return m.UserID }), nil
}

func (s *service) MarkRead(ctx context.Context, userID, id string) error {
	member, err := s.membership(ctx, id, userID)
	if err != nil {
		return err
	}
	if member == nil {
		return notFoundError(ctx)
	}
	return s.repo.MarkRead(ctx, id, userID, time.Now().UTC())
}

func (s *service) insertMember(ctx context.Context, m *Member) (*Member, error) {
	if err := s.repo.AddMember(ctx, m); err != nil {
		if platformerrors.IsErrorType(err, platformerrors.ErrorTypeConflict) {
			return s.repo.GetMember(ctx, m.ChannelID, m.UserID)
		}
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "add channel member")
	}
	s.log.Debug().Str("channel_id", m.ChannelID).Str("user_id", m.UserID).Str("role", string(m.Role)).Msg("member added")
	s.notifier.Emit(ctx, tableMembers, realtime.ChangeInsert, m, nil, topicOf(m.ChannelID), realtime.UserTopic(m.UserID))
	return m, nil
}

func (s *service) deleteMember(ctx context.Context, m *Member) error {
	if err := s.repo.RemoveMember(ctx, m.ChannelID, m.UserID); err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "remove channel member")
	}
	s.notifier.Emit(ctx, tableMembers, realtime.ChangeDelete, nil, m, topicOf(m.ChannelID), realtime.UserTopic(m.UserID))
	return nil
}

// membership returns nil without error when the user is not a member.
func (s *service) membership(ctx context.Context, channelID, userID string) (*Member, error) {
	m, err := s.repo.GetMember(ctx, channelID, userID)
	if err != nil {
		if platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
			return nil, nil
		}
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "load channel membership")
	}
	return m, nil
}

// readable loads a channel the user may see. The membership is nil for public channels the user has not joined.
func (s *service) readable(ctx context.Context, userID, id string) (*Channel, *Member, error) {
	ch, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	member, err := s.membership(ctx, id, userID)
	if err != nil {
		return nil, nil, err
	}
	if ch.IsPrivate && member == nil {
		return nil, nil, notFoundError(ctx)
	}
	return ch, member, nil
}

func (s *service) moderated(ctx context.Context, userID, id string) (*Channel, *Member, error) {
	ch, member, err := s.readable(ctx, userID, id)
	if err != nil {
		return nil, nil, err
	}
	if member == nil || !member.Role.CanModerate() {
		return nil, nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden, "requires channel owner or admin", nil, "2c3d4e5f-6a7b-4c8d-9e0f-1a2b3c4d5e6f")
	}
	return ch, member, nil
}

func notFoundError(ctx context.Context) error {
	return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, "channel not found", nil, "3d4e5f6a-7b8c-4d9e-8f0a-1b2c3d4e5f6a")
}

func archivedError(ctx context.Context) error {
	return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeConflict, "channel is archived", nil, "4e5f6a7b-8c9d-4e0f-a1b2-c3d4e5f6a7b8")
}
