package channel

import (
	"context"
	"time"

	"github.com/huddlehq/huddle-server/internal/domain/content"
	"github.com/huddlehq/huddle-server/internal/domain/query"
)

// Repository persists channels and memberships.
type Repository interface {
	Create(ctx context.Context, ch *Channel, owner *Member) error
	FindByID(ctx context.Context, id string) (*Channel, error)
	List(ctx context.Context, filter ListFilter, p query.Pagination) ([]*Channel, error)
	Update(ctx context.Context, id string, update Update) (*Channel, error)
	SetArchived(ctx context.Context, id string, at *time.Time) (*Channel, error)
	Delete(ctx context.Context, id string) error
	ContentTargets(ctx context.Context, id string) ([]content.Target, error)

	GetMember(ctx context.Context, channelID, userID string) (*Member, error)
	AddMember(ctx context.Context, m *Member) error
	RemoveMember(ctx context.Context, channelID, userID string) error
	UpdateMemberRole(ctx context.Context, channelID, userID string, role Role) (*Member, error)
	ListMembers(ctx context.Context, channelID string, p query.Pagination) ([]*Member, error)
	CountByRole(ctx context.Context, channelID string) (map[Role]int64, error)
	MarkRead(ctx context.Context, channelID, userID string, at time.Time) error
}
