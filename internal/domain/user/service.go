package user

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/huddlehq/huddle-server/internal/domain/language"
	"github.com/huddlehq/huddle-server/internal/utils/idgen"
	"github.com/huddlehq/huddle-server/internal/utils/platformerrors"
)

const maxDisplayNameLength = 80

// FileOwnership answers whether a file belongs to a user.
type FileOwnership interface {
	OwnedBy(ctx context.Context, fileID, userID string) (bool, error)
}

// Service exposes user use cases.
type Service interface {
	EnsureUser(ctx context.Context, identity Identity) (*User, error)
	Get(ctx context.Context, id string) (*User, error)
	GetMany(ctx context.Context, ids []string) ([]*User, error)
	UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (*User, error)
	UpdateVoice(ctx context.Context, id string, update VoiceUpdate) (*User, error)
	Search(ctx context.Context, term string, limit int) ([]*User, error)
}

type service struct {
	repo  Repository
	files FileOwnership
	log   zerolog.Logger
}

func NewService(repo Repository, files FileOwnership, log zerolog.Logger) Service {
	return &service{
		repo:  repo,
		files: files,
		log:   log.With().Str("component", "user-service").Logger(),
	}
}

// EnsureUser returns the account mapped to the token subject, creating it on first sight.
func (s *service) EnsureUser(ctx context.Context, identity Identity) (*User, error) {
	subject := strings.TrimSpace(identity.Subject)
	if subject == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeUnauthorized, "missing subject", nil, "6f0a8f0e-1c1e-4a3a-9a55-0d7d4d8a1b01")
	}

	existing, err := s.repo.FindBySubject(ctx, subject)
	if err == nil {
		return existing, nil
	}
	if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "find user by subject")
	}

	now := time.Now().UTC()
	u := &User{
		ID:                idgen.New(idgen.PrefixUser),
		Subject:           subject,
		Email:             strings.TrimSpace(identity.Email),
		DisplayName:       displayNameFor(identity),
		PreferredLanguage: "en",
		VoiceStatus:       VoiceStatusNone,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		// a concurrent first request may have created the row
		if platformerrors.IsErrorType(err, platformerrors.ErrorTypeConflict) {
			return s.repo.FindBySubject(ctx, subject)
		}
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "create user")
	}
	s.log.Info().Str("user_id", u.ID).Msg("user provisioned")
	return u, nil
}

func displayNameFor(identity Identity) string {
	for _, candidate := range []string{identity.Name, identity.Username} {
		if c := strings.TrimSpace(candidate); c != "" {
			return truncate(c, maxDisplayNameLength)
		}
	}
	if local, _, ok := strings.Cut(identity.Email, "@"); ok && local != "" {
		return truncate(local, maxDisplayNameLength)
	}
	return "user"
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func (s *service) Get(ctx context.Context, id string) (*User, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *service) GetMany(ctx context.Context, ids []string) ([]*User, error) {
	if len(ids) == 0 {
		return []*User{}, nil
	}
	return s.repo.FindByIDs(ctx, ids)
}

func (s *service) UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (*User, error) {
	if update.DisplayName != nil {
		name := strings.TrimSpace(*update.DisplayName)
		if name == "" || utf8.RuneCountInString(name) > maxDisplayNameLength {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "display_name must be 1-80 characters", nil, "4b8e2f61-3e1a-4f0c-8d2b-7a9c1e0f2b02")
		}
		update.DisplayName = &name
	}
	if update.PreferredLanguage != nil {
		tag, err := language.Normalize(*update.PreferredLanguage)
		if err != nil {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, err.Error(), nil, "a1f4d9c2-5b7e-4c3a-9e8f-2d6b0c1a3f03")
		}
		update.PreferredLanguage = &tag
	}
	if update.AvatarFileID != nil && *update.AvatarFileID != "" {
		owned, err := s.files.OwnedBy(ctx, *update.AvatarFileID, id)
		if err != nil {
			return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "check avatar ownership")
		}
		if !owned {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden, "avatar must be a file you uploaded", nil, "d3c2b1a0-9f8e-4d7c-b6a5-4e3f2a1b0c04")
		}
	}
	return s.repo.UpdateProfile(ctx, id, update)
}

func (s *service) UpdateVoice(ctx context.Context, id string, update VoiceUpdate) (*User, error) {
	return s.repo.UpdateVoice(ctx, id, update)
}

func (s *service) Search(ctx context.Context, term string, limit int) ([]*User, error) {
	term = strings.TrimSpace(term)
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	return s.repo.Search(ctx, term, limit)
}
