package channel_test

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huddlehq/huddle-server/internal/domain/channel"
	"github.com/huddlehq/huddle-server/internal/domain/content"
	"github.com/huddlehq/huddle-server/internal/domain/content/contenttest"
	"github.com/huddlehq/huddle-server/internal/domain/query"
	"github.com/huddlehq/huddle-server/internal/utils/platformerrors"
)

type memoryRepository struct {
	mu       sync.Mutex
	channels map[string]*channel.Channel
	members  map[string]map[string]*channel.Member
	targets  map[string][]content.Target
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		channels: map[string]*channel.Channel{},
		members:  map[string]map[string]*channel.Member{},
		targets:  map[string][]content.Target{},
	}
}

func errOf(ctx context.Context, t platformerrors.ErrorType) error {
	return platformerrors.NewError(ctx, platformerrors.LayerRepository, t, string(t), nil, "test")
}

func (r *memoryRepository) Create(ctx context.Context, ch *channel.Channel, owner *channel.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.channels {
		if existing.Name == ch.Name {
			return errOf(ctx, platformerrors.ErrorTypeConflict)
		}
	}
	copied := *ch
	r.channels[ch.ID] = &copied
	r.members[ch.ID] = map[string]*channel.Member{owner.UserID: owner}
	return nil
}

func (r *memoryRepository) FindByID(ctx context.Context, id string) (*channel.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.channels[id]
	if !ok {
		return nil, errOf(ctx, platformerrors.ErrorTypeNotFound)
	}
	copied := *ch
	return &copied, nil
}

func (r *memoryRepository) List(_ context.Context, filter channel.ListFilter, p query.Pagination) ([]*channel.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*channel.Channel
	for id, ch := range r.channels {
		_, joined := r.members[id][filter.UserID]
		if (ch.IsPrivate || filter.OnlyJoined) && !joined {
			continue
		}
		if ch.IsArchived() && !filter.IncludeArchived {
			continue
		}
		if p.Cursor != "" && id <= p.Cursor {
			continue
		}
		out = append(out, ch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > p.Limit+1 {
		out = out[:p.Limit+1]
	}
	return out, nil
}

func (r *memoryRepository) Update(ctx context.Context, id string, update channel.Update) (*channel.Channel, error) {
	r.mu.Lock()
	ch := r.channels[id]
	if update.Name != nil {
		ch.Name = *update.Name
	}
	if update.Topic != nil {
		ch.Topic = *update.Topic
	}
	if update.IsPrivate != nil {
		ch.IsPrivate = *update.IsPrivate
	}
	r.mu.Unlock()
	return r.FindByID(ctx, id)
}

func (r *memoryRepository) SetArchived(ctx context.Context, id string, at *time.Time) (*channel.Channel, error) {
	r.mu.Lock()
	r.channels[id].ArchivedAt = at
	r.mu.Unlock()
	return r.FindByID(ctx, id)
}

func (r *memoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.channels, id)
	delete(r.members, id)
	return nil
}

func (r *memoryRepository) ContentTargets(_ context.Context, id string) ([]content.Target, error) {
	return r.targets[id], nil
}

func (r *memoryRepository) GetMember(ctx context.Context, channelID, userID string) (*channel.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[channelID][userID]
	if !ok {
		return nil, errOf(ctx, platformerrors.ErrorTypeNotFound)
	}
	copied := *m
	return &copied, nil
}

func (r *memoryRepository) AddMember(ctx context.Context, m *channel.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[m.ChannelID][m.UserID]; ok {
		return errOf(ctx, platformerrors.ErrorTypeConflict)
	}
	if r.members[m.ChannelID] == nil {
		r.members[m.ChannelID] = map[string]*channel.Member{}
	}
	copied := *m
	r.members[m.ChannelID][m.UserID] = &copied
	return nil
}

func (r *memoryRepository) RemoveMember(_ context.Context, channelID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.members[channelID], userID)
	return nil
}

func (r *memoryRepository) UpdateMemberRole(ctx context.Context, channelID, userID string, role channel.Role) (*channel.Member, error) {
	r.mu.Lock()
	r.members[channelID][userID].Role = role
	r.mu.Unlock()
	return r.GetMember(ctx, channelID, userID)
}

func (r *memoryRepository) ListMembers(_ context.Context, channelID string, p query.Pagination) ([]*channel.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*channel.Member
	for _, m := range r.members[channelID] {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (r *memoryRepository) CountByRole(_ context.Context, channelID string) (map[channel.Role]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := map[channel.Role]int64{}
	for _, m := range r.members[channelID] {
		counts[m.Role]++
	}
	return counts, nil
}

func (r *memoryRepository) MarkRead(_ context.Context, channelID, userID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members[channelID][userID].LastReadAt = &at
	return nil
}

func newService() (channel.Service, *memoryRepository, *contenttest.Resolver) {
	repo := newMemoryRepository()
	cleaner := contenttest.NewResolver()
	return channel.NewService(repo, cleaner, nil, zerolog.Nop()), repo, cleaner
}

func TestCreateChannel(t *testing.T) {
	svc, repo, _ := newService()
	ctx := context.Background()

	ch, err := svc.Create(ctx, "usr_owner", channel.CreateParams{Name: " General ", Topic: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "general", ch.Name)
	assert.Equal(t, channel.RoleOwner, repo.members[ch.ID]["usr_owner"].Role)

	_, err = svc.Create(ctx, "usr_other", channel.CreateParams{Name: "general"})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeConflict))

	_, err = svc.Create(ctx, "usr_other", channel.CreateParams{Name: "no spaces allowed"})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))
}

func TestPrivateChannelVisibility(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()

	private, err := svc.Create(ctx, "usr_owner", channel.CreateParams{Name: "secret", IsPrivate: true})
	require.NoError(t, err)
	public, err := svc.Create(ctx, "usr_owner", channel.CreateParams{Name: "lobby"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, "usr_outsider", private.ID)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
	_, err = svc.Join(ctx, "usr_outsider", private.ID)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))

	page, err := svc.List(ctx, channel.ListFilter{UserID: "usr_outsider"}, query.Pagination{})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, public.ID, page.Data[0].ID)

	member, err := svc.Join(ctx, "usr_outsider", public.ID)
	require.NoError(t, err)
	assert.Equal(t, channel.RoleMember, member.Role)

	again, err := svc.Join(ctx, "usr_outsider", public.ID)
	require.NoError(t, err)
	assert.Equal(t, member.JoinedAt, again.JoinedAt)
}

func TestLastOwnerCannotLeave(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()

	ch, err := svc.Create(ctx, "usr_owner", channel.CreateParams{Name: "team"})
	require.NoError(t, err)
	_, err = svc.Join(ctx, "usr_member", ch.ID)
	require.NoError(t, err)

	err = svc.Leave(ctx, "usr_owner", ch.ID)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeConflict))

	_, err = svc.UpdateMemberRole(ctx, "usr_owner", ch.ID, "usr_owner", channel.RoleMember)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeConflict))

	_, err = svc.UpdateMemberRole(ctx, "usr_owner", ch.ID, "usr_member", channel.RoleOwner)
	require.NoError(t, err)
	require.NoError(t, svc.Leave(ctx, "usr_owner", ch.ID))
}

func TestModerationRules(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()

	ch, err := svc.Create(ctx, "usr_owner", channel.CreateParams{Name: "ops"})
	require.NoError(t, err)
	_, err = svc.AddMember(ctx, "usr_owner", ch.ID, "usr_admin", channel.RoleAdmin)
	require.NoError(t, err)
	_, err = svc.Join(ctx, "usr_member", ch.ID)
	require.NoError(t, err)

	tests := []struct {
		name     string
		run      func() error
		wantType platformerrors.ErrorType
	}{
		{
			name: "member cannot add",
			run: func() error {
				_, err := svc.AddMember(ctx, "usr_member", ch.ID, "usr_new", channel.RoleMember)
				return err
			},
			wantType: platformerrors.ErrorTypeForbidden,
		},
		{
			name: "admin cannot add owners",
			run: func() error {
				_, err := svc.AddMember(ctx, "usr_admin", ch.ID, "usr_new", channel.RoleOwner)
				return err
			},
			wantType: platformerrors.ErrorTypeForbidden,
		},
		{
			name:     "admin cannot remove owner",
			run:      func() error { return svc.RemoveMember(ctx, "usr_admin", ch.ID, "usr_owner") },
			wantType: platformerrors.ErrorTypeForbidden,
		},
		{
			name:     "admin cannot delete",
			run:      func() error { return svc.Delete(ctx, "usr_admin", ch.ID) },
			wantType: platformerrors.ErrorTypeForbidden,
		},
		{
			name: "duplicate member",
			run: func() error {
				_, err := svc.AddMember(ctx, "usr_admin", ch.ID, "usr_member", channel.RoleMember)
				return err
			},
			wantType: platformerrors.ErrorTypeConflict,
		},
		{
			name: "admin adds member",
			run: func() error {
				_, err := svc.AddMember(ctx, "usr_admin", ch.ID, "usr_new", "")
				return err
			},
		},
		{
			name: "admin removes member",
			run:  func() error { return svc.RemoveMember(ctx, "usr_admin", ch.ID, "usr_member") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			if tt.wantType != "" {
				require.Error(t, err)
				assert.True(t, platformerrors.IsErrorType(err, tt.wantType), err.Error())
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestArchivedChannelRejectsChanges(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()

	ch, err := svc.Create(ctx, "usr_owner", channel.CreateParams{Name: "old"})
	require.NoError(t, err)
	archived, err := svc.SetArchived(ctx, "usr_owner", ch.ID, true)
	require.NoError(t, err)
	assert.True(t, archived.IsArchived())

	topic := "new topic"
	_, err = svc.Update(ctx, "usr_owner", ch.ID, channel.Update{Topic: &topic})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeConflict))
	_, err = svc.Join(ctx, "usr_late", ch.ID)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeConflict))
}

func TestDeleteCleansDependents(t *testing.T) {
	svc, repo, cleaner := newService()
	ctx := context.Background()

	ch, err := svc.Create(ctx, "usr_owner", channel.CreateParams{Name: "doomed"})
	require.NoError(t, err)
	targets := []content.Target{
		{Type: content.TargetPost, ID: "pst_1"},
		{Type: content.TargetPostThreadComment, ID: "cmt_1"},
	}
	repo.targets[ch.ID] = targets

	require.NoError(t, svc.Delete(ctx, "usr_owner", ch.ID))
	assert.Equal(t, targets, cleaner.Deleted)
	_, err = repo.FindByID(ctx, ch.ID)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
}
