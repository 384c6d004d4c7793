package user

import "context"

// Repository persists users.
type Repository interface {
	FindBySubject(ctx context.Context, subject string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	FindByIDs(ctx context.Context, ids []string) ([]*User, error)
	Create(ctx context.Context, u *User) error
	UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (*User, error)
	UpdateVoice(ctx context.Context, id string, update VoiceUpdate) (*User, error)
	Search(ctx context.Context, term string, limit int) ([]*User, error)
}
