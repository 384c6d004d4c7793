package user_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huddlehq/huddle-server/internal/domain/user"
	"github.com/huddlehq/huddle-server/internal/utils/platformerrors"
)

type memoryRepository struct {
	mu    sync.Mutex
	users map[string]*user.User
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{users: map[string]*user.User{}}
}

func notFound(ctx context.Context) error {
	return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound, "user not found", nil, "test")
}

func (r *memoryRepository) FindBySubject(ctx context.Context, subject string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Subject == subject {
			copied := *u
			return &copied, nil
		}
	}
	return nil, notFound(ctx)
}

func (r *memoryRepository) FindByID(ctx context.Context, id string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, notFound(ctx)
}

func (r *memoryRepository) FindByIDs(ctx context.Context, ids []string) ([]*user.User, error) {
	var out []*user.User
	for _, id := range ids {
		if u, err := r.FindByID(ctx, id); err == nil {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *memoryRepository) Create(_ context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *u
	r.users[u.ID] = &copied
	return nil
}

func (r *memoryRepository) UpdateProfile(ctx context.Context, id string, update user.ProfileUpdate) (*user.User, error) {
	r.mu.Lock()
	u, ok := r.users[id]
	if !ok {
		r.mu.Unlock()
		return nil, notFound(ctx)
	}
	if update.DisplayName != nil {
		u.DisplayName = *update.DisplayName
	}
	if update.PreferredLanguage != nil {
		u.PreferredLanguage = *update.PreferredLanguage
	}
	if update.AvatarFileID != nil {
		u.AvatarFileID = update.AvatarFileID
	}
	r.mu.Unlock()
	return r.FindByID(ctx, id)
}

func (r *memoryRepository) UpdateVoice(ctx context.Context, id string, update user.VoiceUpdate) (*user.User, error) {
	r.mu.Lock()
	u, ok := r.users[id]
	if !ok {
		r.mu.Unlock()
		return nil, notFound(ctx)
	}
	u.VoiceID = update.VoiceID
	u.VoiceStatus = update.Status
	u.VoiceError = update.Error
	r.mu.Unlock()
	return r.FindByID(ctx, id)
}

func (r *memoryRepository) Search(_ context.Context, term string, limit int) ([]*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*user.User
	for _, u := range r.users {
		if strings.HasPrefix(strings.ToLower(u.DisplayName), strings.ToLower(term)) && len(out) < limit {
			out = append(out, u)
		}
	}
	return out, nil
}

type ownership map[string]string

func (o ownership) OwnedBy(_ context.Context, fileID, userID string) (bool, error) {
	return o[fileID] == userID, nil
}

func TestEnsureUserProvisionsOnce(t *testing.T) {
	repo := newMemoryRepository()
	svc := user.NewService(repo, ownership{}, zerolog.Nop())
	ctx := context.Background()

	first, err := svc.EnsureUser(ctx, user.Identity{Subject: "kc|123", Email: "ada@example.com"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(first.ID, "usr_"))
	assert.Equal(t, "ada", first.DisplayName)
	assert.Equal(t, "en", first.PreferredLanguage)
	assert.Equal(t, user.VoiceStatusNone, first.VoiceStatus)

	second, err := svc.EnsureUser(ctx, user.Identity{Subject: "kc|123", Name: "Ada Lovelace"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, repo.users, 1)

	_, err = svc.EnsureUser(ctx, user.Identity{})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeUnauthorized))
}

func TestUpdateProfileValidation(t *testing.T) {
	repo := newMemoryRepository()
	svc := user.NewService(repo, ownership{"fil_mine": "usr_1"}, zerolog.Nop())
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &user.User{ID: "usr_1", Subject: "s1", DisplayName: "one", PreferredLanguage: "en"}))

	str := func(s string) *string { return &s }

	tests := []struct {
		name     string
		update   user.ProfileUpdate
		wantType platformerrors.ErrorType
	}{
		{name: "blank name", update: user.ProfileUpdate{DisplayName: str("   ")}, wantType: platformerrors.ErrorTypeValidation},
		{name: "bad language", update: user.ProfileUpdate{PreferredLanguage: str("klingon")}, wantType: platformerrors.ErrorTypeValidation},
		{name: "foreign avatar", update: user.ProfileUpdate{AvatarFileID: str("fil_other")}, wantType: platformerrors.ErrorTypeForbidden},
		{name: "valid", update: user.ProfileUpdate{DisplayName: str(" Ada "), PreferredLanguage: str("pt_BR"), AvatarFileID: str("fil_mine")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.UpdateProfile(ctx, "usr_1", tt.update)
			if tt.wantType != "" {
				require.Error(t, err)
				assert.True(t, platformerrors.IsErrorType(err, tt.wantType))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Ada", got.DisplayName)
			assert.Equal(t, "pt-br", got.PreferredLanguage)
			require.NotNil(t, got.AvatarFileID)
			assert.Equal(t, "fil_mine", *got.AvatarFileID)
		})
	}
}
