package file_test

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huddlehq/huddle-server/internal/config"
	"github.com/huddlehq/huddle-server/internal/domain/content"
	"github.com/huddlehq/huddle-server/internal/domain/content/contenttest"
	"github.com/huddlehq/huddle-server/internal/domain/file"
	"github.com/huddlehq/huddle-server/internal/utils/platformerrors"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

type memoryStorage struct {
	mu      sync.Mutex
	objects map[string]file.Object
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{objects: map[string]file.Object{}}
}

func (s *memoryStorage) Bucket() string { return "test" }

func (s *memoryStorage) Upload(_ context.Context, key string, body io.Reader, size int64, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := io.Copy(io.Discard, body); err != nil {
		return err
	}
	s.objects[key] = file.Object{Key: key, Size: size, LastModified: time.Now()}
	return nil
}

func (s *memoryStorage) Download(_ context.Context, key string) (io.ReadCloser, string, error) {
	return io.NopCloser(strings.NewReader(key)), "", nil
}

func (s *memoryStorage) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://storage.test/" + key, nil
}

func (s *memoryStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *memoryStorage) List(_ context.Context, prefix string) ([]file.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []file.Object
	for key, obj := range s.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, obj)
		}
	}
	return out, nil
}

type memoryRepository struct {
	mu          sync.Mutex
	files       map[string]*file.File
	attachments []*file.Attachment
	avatars     map[string]bool
	speechKeys  map[string]bool
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		files:      map[string]*file.File{},
		avatars:    map[string]bool{},
		speechKeys: map[string]bool{},
	}
}

func (r *memoryRepository) Create(_ context.Context, f *file.File) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *f
	r.files[f.ID] = &copied
	return nil
}

func (r *memoryRepository) FindByID(ctx context.Context, id string) (*file.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.files[id]
	if !ok {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound, "file not found", nil, "test")
	}
	copied := *f
	return &copied, nil
}

func (r *memoryRepository) FindByIDs(ctx context.Context, ids []string) ([]*file.File, error) {
	var out []*file.File
	for _, id := range ids {
		if f, err := r.FindByID(ctx, id); err == nil {
			out = append(out, f)
		}
	}
	return out, nil
}

func (r *memoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.files, id)
	kept := r.attachments[:0]
	for _, a := range r.attachments {
		if a.FileID != id {
			kept = append(kept, a)
		}
	}
	r.attachments = kept
	return nil
}

func (r *memoryRepository) IsAvatar(_ context.Context, id string) (bool, error) {
	return r.avatars[id], nil
}

func (r *memoryRepository) CreateAttachments(_ context.Context, attachments []*file.Attachment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attachments = append(r.attachments, attachments...)
	return nil
}

func (r *memoryRepository) ListAttachmentsByFile(_ context.Context, fileID string) ([]*file.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*file.Attachment
	for _, a := range r.attachments {
		if a.FileID == fileID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memoryRepository) ListAttachmentsByTargets(_ context.Context, targets []content.Target) ([]*file.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wanted := map[content.Target]bool{}
	for _, t := range targets {
		wanted[t] = true
	}
	var out []*file.Attachment
	for _, a := range r.attachments {
		if wanted[a.Target()] {
			copied := *a
			copied.File = r.files[a.FileID]
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *memoryRepository) ListUnattached(_ context.Context, createdBefore time.Time, _ int) ([]*file.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	attached := map[string]bool{}
	for _, a := range r.attachments {
		attached[a.FileID] = true
	}
	var out []*file.File
	for _, f := range r.files {
		if f.CreatedAt.Before(createdBefore) && !attached[f.ID] && !r.avatars[f.ID] {
			out = append(out, f)
		}
	}
	return out, nil
}

func (r *memoryRepository) ReferencedKeys(_ context.Context, keys []string) (map[string]bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[string]bool{}
	for _, key := range keys {
		if r.speechKeys[key] {
			out[key] = true
		}
		for _, f := range r.files {
			if f.StorageKey == key {
				out[key] = true
			}
		}
	}
	return out, nil
}

func newService(t *testing.T) (file.Service, *memoryRepository, *memoryStorage, *contenttest.Resolver) {
	t.Helper()
	cfg := &config.Config{FileMaxBytes: 1024, PresignTTL: time.Minute}
	repo := newMemoryRepository()
	storage := newMemoryStorage()
	resolver := contenttest.NewResolver()
	return file.NewService(cfg, repo, storage, resolver, zerolog.Nop()), repo, storage, resolver
}

func TestUploadValidation(t *testing.T) {
	svc, _, storage, _ := newService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		body     []byte
		wantType platformerrors.ErrorType
		wantMIME string
	}{
		{name: "png", body: pngHeader, wantMIME: "image/png"},
		{name: "plain text", body: []byte("hello world\n"), wantMIME: "text/plain"},
		{name: "empty", body: nil, wantType: platformerrors.ErrorTypeValidation},
		{name: "too large", body: bytes.Repeat([]byte("a"), 2048), wantType: platformerrors.ErrorTypeValidation},
		{name: "executable", body: []byte("MZ\x90\x00\x03\x00\x00\x00\x04\x00\x00\x00\xff\xff"), wantType: platformerrors.ErrorTypeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := svc.Upload(ctx, file.UploadParams{OwnerID: "usr_1", Name: "C:\\docs\\" + tt.name, Body: bytes.NewReader(tt.body)})
			if tt.wantType != "" {
				require.Error(t, err)
				assert.True(t, platformerrors.IsErrorType(err, tt.wantType), err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantMIME, f.MimeType)
			assert.Equal(t, tt.name, f.Name)
			assert.True(t, strings.HasPrefix(f.StorageKey, "uploads/usr_1/"+f.ID+"."))
			assert.Len(t, f.Sha256, 64)
			assert.Contains(t, storage.objects, f.StorageKey)
		})
	}
}

func TestAttachRequiresOwnership(t *testing.T) {
	svc, _, _, _ := newService(t)
	ctx := context.Background()

	mine, err := svc.Upload(ctx, file.UploadParams{OwnerID: "usr_1", Name: "a.png", Body: bytes.NewReader(pngHeader)})
	require.NoError(t, err)
	theirs, err := svc.Upload(ctx, file.UploadParams{OwnerID: "usr_2", Name: "b.png", Body: bytes.NewReader(pngHeader)})
	require.NoError(t, err)

	target := content.Target{Type: content.TargetPost, ID: "pst_1"}

	_, err = svc.Attach(ctx, "usr_1", target, []string{mine.ID, theirs.ID})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeForbidden))

	_, err = svc.Attach(ctx, "usr_1", target, []string{"fil_missing"})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))

	attached, err := svc.Attach(ctx, "usr_1", target, []string{mine.ID, mine.ID})
	require.NoError(t, err)
	require.Len(t, attached, 1)
	assert.Equal(t, mine.ID, attached[0].File.ID)
}

func TestFileVisibilityFollowsAttachments(t *testing.T) {
	svc, _, _, resolver := newService(t)
	ctx := context.Background()

	scope := content.Scope{Type: content.ScopeChannel, ID: "chn_1"}
	target := content.Target{Type: content.TargetPost, ID: "pst_1"}
	resolver.AddItem(content.Item{Target: target, Scope: scope, AuthorID: "usr_1"})
	resolver.AddMember(scope, "usr_1")
	resolver.AddMember(scope, "usr_reader")

	f, err := svc.Upload(ctx, file.UploadParams{OwnerID: "usr_1", Name: "a.png", Body: bytes.NewReader(pngHeader)})
	require.NoError(t, err)

	_, err = svc.Get(ctx, "usr_reader", f.ID)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))

	_, err = svc.Attach(ctx, "usr_1", target, []string{f.ID})
	require.NoError(t, err)

	got, err := svc.Get(ctx, "usr_reader", f.ID)
	require.NoError(t, err)
	assert.Equal(t, f.ID, got.ID)

	_, err = svc.Get(ctx, "usr_stranger", f.ID)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))

	url, expires, err := svc.Presign(ctx, "usr_reader", f.ID)
	require.NoError(t, err)
	assert.Contains(t, url, f.StorageKey)
	assert.True(t, expires.After(time.Now()))

	err = svc.Delete(ctx, "usr_reader", f.ID)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeForbidden))
}

func TestSweepOrphans(t *testing.T) {
	svc, repo, storage, _ := newService(t)
	ctx := context.Background()
	old := time.Now().Add(-48 * time.Hour)

	storage.objects["uploads/usr_1/fil_gone.png"] = file.Object{Key: "uploads/usr_1/fil_gone.png", LastModified: old}
	storage.objects["uploads/usr_1/fil_fresh.png"] = file.Object{Key: "uploads/usr_1/fil_fresh.png", LastModified: time.Now()}
	storage.objects["tts/pst_1/tts_1.mp3"] = file.Object{Key: "tts/pst_1/tts_1.mp3", LastModified: old}
	storage.objects["tts/pst_2/tts_2.mp3"] = file.Object{Key: "tts/pst_2/tts_2.mp3", LastModified: old}
	repo.speechKeys["tts/pst_1/tts_1.mp3"] = true

	storage.objects["uploads/usr_1/fil_stale.png"] = file.Object{Key: "uploads/usr_1/fil_stale.png", LastModified: old}
	repo.files["fil_stale"] = &file.File{ID: "fil_stale", OwnerID: "usr_1", StorageKey: "uploads/usr_1/fil_stale.png", CreatedAt: old}
	storage.objects["uploads/usr_1/fil_avatar.png"] = file.Object{Key: "uploads/usr_1/fil_avatar.png", LastModified: old}
	repo.files["fil_avatar"] = &file.File{ID: "fil_avatar", OwnerID: "usr_1", StorageKey: "uploads/usr_1/fil_avatar.png", CreatedAt: old}
	repo.avatars["fil_avatar"] = true

	report, err := svc.SweepOrphans(ctx, 24*time.Hour)
	require.NoError(t, err)

	assert.Equal(t, 1, report.DeletedFiles)
	assert.Equal(t, 2, report.DeletedObjects)
	assert.Equal(t, 0, report.Failures)
	assert.NotContains(t, storage.objects, "uploads/usr_1/fil_gone.png")
	assert.NotContains(t, storage.objects, "uploads/usr_1/fil_stale.png")
	assert.NotContains(t, storage.objects, "tts/pst_2/tts_2.mp3")
	assert.Contains(t, storage.objects, "uploads/usr_1/fil_fresh.png")
	assert.Contains(t, storage.objects, "uploads/usr_1/fil_avatar.png")
	assert.Contains(t, storage.objects, "tts/pst_1/tts_1.mp3")
	assert.NotContains(t, repo.files, "fil_stale")
}
