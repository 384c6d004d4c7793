package voice

import (
	"context"
	"time"
)

// Repository persists speech recordings.
type Repository interface {
	FindByID(ctx context.Context, id string) (*Recording, error)
	// Ensure inserts r unless a recording for the same target, voice and language exists, and returns the stored row.
	Ensure(ctx context.Context, r *Recording) (*Recording, error)
	MarkReady(ctx context.Context, id, storageKey, mimeType string) (*Recording, error)
	// MarkFailed stores the error and increments attempts.
	MarkFailed(ctx context.Context, id, message string) (*Recording, error)
	// ListPending returns pending recordings and failed ones with attempts left, oldest first.
	ListPending(ctx context.Context, maxAttempts, limit int) ([]*Recording, error)
	// Candidates returns content created after since by authors with a ready voice and no recording in that voice.
	Candidates(ctx context.Context, since time.Time, limit int) ([]Candidate, error)
}
