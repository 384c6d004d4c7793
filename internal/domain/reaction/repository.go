package reaction

import (
	"context"

	"github.com/huddlehq/huddle-server/internal/domain/content"
)

// Repository persists reactions.
type Repository interface {
	// Insert stores the reaction and reports false when the same user already used the emoji on the target.
	Insert(ctx context.Context, r *Reaction) (bool, error)
	// Delete removes the reaction and returns it, or nil when there was none.
	Delete(ctx context.Context, target content.Target, userID, emoji string) (*Reaction, error)
	ListForTarget(ctx context.Context, target content.Target) ([]*Reaction, error)
}
