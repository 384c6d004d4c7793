// Package storage provides the object storage backends behind file.Storage.
package storage

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/huddlehq/huddle-server/internal/config"
	"github.com/huddlehq/huddle-server/internal/domain/file"
	"github.com/huddlehq/huddle-server/internal/infrastructure/metrics"
)

// Backend is a file.Storage that can report its health.
type Backend interface {
	file.Storage
	Health(ctx context.Context) error
}

// New selects the backend named by STORAGE_BACKEND and instruments it.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (Backend, error) {
	var (
		backend Backend
		err     error
	)
	if cfg.IsS3Storage() {
		backend, err = NewS3Storage(ctx, cfg, log)
	} else {
		backend, err = NewLocalStorage(cfg, log)
	}
	if err != nil {
		return nil, err
	}
	return instrumented{next: backend}, nil
}

// instrumented records every operation in the storage metrics.
type instrumented struct {
	next Backend
}

func (i instrumented) Bucket() string {
	return i.next.Bucket()
}

func (i instrumented) Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	start := time.Now()
	err := i.next.Upload(ctx, key, body, size, contentType)
	metrics.RecordStorage("upload", err, time.Since(start))
	return err
}

func (i instrumented) Download(ctx context.Context, key string) (io.ReadCloser, string, error) {
	start := time.Now()
	rc, contentType, err := i.next.Download(ctx, key)
	metrics.RecordStorage("download", err, time.Since(start))
	return rc, contentType, err
}

func (i instrumented) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	start := time.Now()
	url, err := i.next.PresignGet(ctx, key, ttl)
	metrics.RecordStorage("presign", err, time.Since(start))
	return url, err
}

func (i instrumented) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := i.next.Delete(ctx, key)
	metrics.RecordStorage("delete", err, time.Since(start))
	return err
}

func (i instrumented) List(ctx context.Context, prefix string) ([]file.Object, error) {
	start := time.Now()
	objects, err := i.next.List(ctx, prefix)
	metrics.RecordStorage("list", err, time.Since(start))
	return objects, err
}

func (i instrumented) Health(ctx context.Context) error {
	return i.next.Health(ctx)
}
