package file

import (
	"context"
	"io"
	"time"

	"github.com/huddlehq/huddle-server/internal/domain/content"
)

// Repository persists file metadata and attachments.
type Repository interface {
	Create(ctx context.Context, f *File) error
	FindByID(ctx context.Context, id string) (*File, error)
	FindByIDs(ctx context.Context, ids []string) ([]*File, error)
	Delete(ctx context.Context, id string) error
	IsAvatar(ctx context.Context, id string) (bool, error)

	CreateAttachments(ctx context.Context, attachments []*Attachment) error
	ListAttachmentsByFile(ctx context.Context, fileID string) ([]*Attachment, error)
	ListAttachmentsByTargets(ctx context.Context, targets []content.Target) ([]*Attachment, error)

	// ListUnattached returns files created before the cutoff that no content or avatar references.
	ListUnattached(ctx context.Context, createdBefore time.Time, limit int) ([]*File, error)
	// ReferencedKeys returns the subset of keys referenced by files or speech recordings.
	ReferencedKeys(ctx context.Context, keys []string) (map[string]bool, error)
}

// Storage abstracts the object store.
type Storage interface {
	Bucket() string
	Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Download(ctx context.Context, key string) (io.ReadCloser, string, error)
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]Object, error)
}
