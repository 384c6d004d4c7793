package file

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"github.com/huddlehq/huddle-server/internal/config"
	"github.com/huddlehq/huddle-server/internal/domain/content"
	"github.com/huddlehq/huddle-server/internal/utils/idgen"
	"github.com/huddlehq/huddle-server/internal/utils/platformerrors"
)

const (
	// MaxAttachments bounds the files a single piece of content can carry.
	MaxAttachments = 10

	maxNameLength      = 255
	orphanDeleteBudget = 500
)

var allowedMIMEs = map[string]string{
	"image/jpeg":      "jpg",
	"image/png":       "png",
	"image/webp":      "webp",
	"image/gif":       "gif",
	"image/svg+xml":   "svg",
	"audio/mpeg":      "mp3",
	"audio/wav":       "wav",
	"audio/x-wav":     "wav",
	"audio/ogg":       "ogg",
	"audio/webm":      "weba",
	"audio/mp4":       "m4a",
	"audio/x-m4a":     "m4a",
	"video/mp4":       "mp4",
	"video/webm":      "webm",
	"video/quicktime": "mov",
	"application/pdf": "pdf",
	"text/plain":      "txt",
	"text/csv":        "csv",
	"application/zip": "zip",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   "docx",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         "xlsx",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": "pptx",
}

// IsAudio reports whether a sniffed MIME type is one of the accepted audio types.
func IsAudio(mimeType string) bool {
	return strings.HasPrefix(mimeType, "audio/") && allowedMIMEs[mimeType] != ""
}

// Attacher links uploaded files to content.
type Attacher interface {
	CheckAttachable(ctx context.Context, ownerID string, fileIDs []string) error
	Attach(ctx context.Context, ownerID string, target content.Target, fileIDs []string) ([]*Attachment, error)
	ListForTargets(ctx context.Context, targets []content.Target) (map[content.Target][]*Attachment, error)
}

// Service handles uploads, downloads and attachment bookkeeping.
type Service interface {
	Attacher

	Upload(ctx context.Context, params UploadParams) (*File, error)
	Get(ctx context.Context, userID, id string) (*File, error)
	Open(ctx context.Context, userID, id string) (io.ReadCloser, *File, error)
	Presign(ctx context.Context, userID, id string) (string, time.Time, error)
	Delete(ctx context.Context, userID, id string) error
	OwnedBy(ctx context.Context, fileID, userID string) (bool, error)

	SweepOrphans(ctx context.Context, gracePeriod time.Duration) (OrphanReport, error)
}

type service struct {
	cfg      *config.Config
	repo     Repository
	storage  Storage
	resolver content.Resolver
	log      zerolog.Logger
}

func NewService(cfg *config.Config, repo Repository, storage Storage, resolver content.Resolver, log zerolog.Logger) Service {
	return &service{
		cfg:      cfg,
		repo:     repo,
		storage:  storage,
		resolver: resolver,
		log:      log.With().Str("component", "file-service").Logger(),
	}
}

// Upload sniffs, hashes and stores a file. The body is read at most FILE_MAX_BYTES+1 bytes.
func (s *service) Upload(ctx context.Context, params UploadParams) (*File, error) {
	if params.Body == nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "file is required", nil, "5d1f7c0a-2b8e-4e61-93a4-6c0d8b2e1f57")
	}
	data, err := io.ReadAll(io.LimitReader(params.Body, s.cfg.FileMaxBytes+1))
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "failed to read upload", err, "c7e2a9b4-0d3f-4a18-8b5c-e1f6a7d2c903")
	}
	if len(data) == 0 {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "file is empty", nil, "81f4b6d2-9a0c-4e37-b5d8-2c6e0f1a4b79")
	}
	if int64(len(data)) > s.cfg.FileMaxBytes {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, fmt.Sprintf("file exceeds max size of %d bytes", s.cfg.FileMaxBytes), nil, "f03a8c5e-6b1d-4f92-a7e4-9d2b0c8f6a15")
	}

	mimeType := mimetype.Detect(data).String()
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	ext, ok := allowedMIMEs[mimeType]
	if !ok {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, fmt.Sprintf("unsupported file type %s", mimeType), nil, "2e9d6b3a-7c4f-4a80-9e1b-5f8a3d0c7e26")
	}

	sum := sha256.Sum256(data)
	id := idgen.New(idgen.PrefixFile)
	key := fmt.Sprintf("%s%s/%s.%s", UploadsPrefix, params.OwnerID, id, ext)

	if err := s.storage.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), mimeType); err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeExternal, "failed to store file", err, "9b4c1e7f-3a6d-4b2e-8f05-d7a1c4e9b362")
	}

	f := &File{
		ID:         id,
		OwnerID:    params.OwnerID,
		Bucket:     s.storage.Bucket(),
		StorageKey: key,
		Name:       cleanName(params.Name, id, ext),
		MimeType:   mimeType,
		Size:       int64(len(data)),
		Sha256:     hex.EncodeToString(sum[:]),
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, f); err != nil {
		if delErr := s.storage.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			s.log.Warn().Err(delErr).Str("key", key).Msg("remove object after failed insert")
		}
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "create file")
	}

	s.log.Info().Str("file_id", id).Str("owner_id", params.OwnerID).Str("mime", mimeType).Int64("bytes", f.Size).Msg("file uploaded")
	return f, nil
}

func cleanName(raw, id, ext string) string {
	name := strings.TrimSpace(path.Base(strings.ReplaceAll(raw, "\\", "/")))
	if name == "" || name == "." || name == "/" {
		return id + "." + ext
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		name = string([]rune(name)[:maxNameLength])
	}
	return name
}

func (s *service) Get(ctx context.Context, userID, id string) (*File, error) {
	f, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeRead(ctx, userID, f); err != nil {
		return nil, err
	}
	return f, nil
}

// authorizeRead allows the owner, anyone for avatars, and anyone who can read content the file is attached to.
func (s *service) authorizeRead(ctx context.Context, userID string, f *File) error {
	if f.OwnerID == userID {
		return nil
	}
	avatar, err := s.repo.IsAvatar(ctx, f.ID)
	if err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "check avatar")
	}
	if avatar {
		return nil
	}

	attachments, err := s.repo.ListAttachmentsByFile(ctx, f.ID)
	if err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "list file attachments")
	}
	for _, a := range attachments {
		item, err := s.resolver.Resolve(ctx, a.Target())
		if err != nil {
			if platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
				continue
			}
			return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "resolve attachment target")
		}
		ok, err := s.resolver.CanRead(ctx, item.Scope, userID)
		if err != nil {
			return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "check attachment access")
		}
		if ok {
			return nil
		}
	}
	return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, "file not found", nil, "6a3f9e2c-1d7b-4c58-a0e6-b4d8f2c1e937")
}

func (s *service) Open(ctx context.Context, userID, id string) (io.ReadCloser, *File, error) {
	f, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, nil, err
	}
	reader, mime, err := s.storage.Download(ctx, f.StorageKey)
	if err != nil {
		return nil, nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeExternal, "failed to read file", err, "d8b1e4a7-5c2f-4e93-b6a0-7f3c9d1e2b48")
	}
	if mime != "" && mime != f.MimeType {
		s.log.Debug().Str("file_id", id).Str("stored", mime).Str("recorded", f.MimeType).Msg("content type mismatch")
	}
	return reader, f, nil
}

func (s *service) Presign(ctx context.Context, userID, id string) (string, time.Time, error) {
	f, err := s.Get(ctx, userID, id)
	if err != nil {
		return "", time.Time{}, err
	}
	url, err := s.storage.PresignGet(ctx, f.StorageKey, s.cfg.PresignTTL)
	if err != nil {
		if platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotImplemented) {
			return "", time.Time{}, err
		}
		return "", time.Time{}, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeExternal, "failed to presign file", err, "4f7c2a9e-8b3d-4e16-9a5c-0e8d6b1f3a72")
	}
	return url, time.Now().Add(s.cfg.PresignTTL).UTC(), nil
}

func (s *service) Delete(ctx context.Context, userID, id string) error {
	f, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if f.OwnerID != userID {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden, "only the owner can delete a file", nil, "b2e6d9a1-4c7f-4a30-8e5b-1d9f6c3a7e04")
	}
	return s.remove(ctx, f)
}

// remove deletes the row (attachments cascade) before the object, so a failed object delete leaves an orphan for the sweep.
func (s *service) remove(ctx context.Context, f *File) error {
	if err := s.repo.Delete(ctx, f.ID); err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "delete file")
	}
	if err := s.storage.Delete(ctx, f.StorageKey); err != nil {
		s.log.Warn().Err(err).Str("file_id", f.ID).Str("key", f.StorageKey).Msg("delete object")
	}
	return nil
}

func (s *service) OwnedBy(ctx context.Context, fileID, userID string) (bool, error) {
	f, err := s.repo.FindByID(ctx, fileID)
	if err != nil {
		if platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
			return false, nil
		}
		return false, err
	}
	return f.OwnerID == userID, nil
}

// CheckAttachable verifies every file exists and belongs to ownerID.
func (s *service) CheckAttachable(ctx context.Context, ownerID string, fileIDs []string) error {
	ids := dedupe(fileIDs)
	if len(ids) == 0 {
		return nil
	}
	if len(ids) > MaxAttachments {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, fmt.Sprintf("at most %d files can be attached", MaxAttachments), nil, "7e0a3c6f-2d9b-4f41-b8e7-5a1c4d9f0b83")
	}
	files, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "load attachable files")
	}
	owners := make(map[string]string, len(files))
	for _, f := range files {
		owners[f.ID] = f.OwnerID
	}
	for _, id := range ids {
		owner, ok := owners[id]
		if !ok {
			return platformerrors.NewErrorWithContext(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, "file not found", nil, "3c8f1b5d-6e2a-4d97-a4c0-9b7e2f5d1a68", map[string]any{"file_id": id})
		}
		if owner != ownerID {
			return platformerrors.NewErrorWithContext(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden, "cannot attach a file you do not own", nil, "e5a2d8c1-9f4b-4e06-b3d7-8c1a6e4f2b95", map[string]any{"file_id": id})
		}
	}
	return nil
}

func (s *service) Attach(ctx context.Context, ownerID string, target content.Target, fileIDs []string) ([]*Attachment, error) {
	ids := dedupe(fileIDs)
	if len(ids) == 0 {
		return []*Attachment{}, nil
	}
	if err := s.CheckAttachable(ctx, ownerID, ids); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	attachments := make([]*Attachment, 0, len(ids))
	for _, id := range ids {
		attachments = append(attachments, &Attachment{
			ID:         idgen.New(idgen.PrefixAttachment),
			FileID:     id,
			TargetType: target.Type,
			TargetID:   target.ID,
			CreatedAt:  now,
		})
	}
	if err := s.repo.CreateAttachments(ctx, attachments); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "attach files")
	}

	grouped, err := s.ListForTargets(ctx, []content.Target{target})
	if err != nil {
		return nil, err
	}
	return grouped[target], nil
}

func (s *service) ListForTargets(ctx context.Context, targets []content.Target) (map[content.Target][]*Attachment, error) {
	grouped := make(map[content.Target][]*Attachment, len(targets))
	if len(targets) == 0 {
		return grouped, nil
	}
	rows, err := s.repo.ListAttachmentsByTargets(ctx, targets)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "list attachments")
	}
	for _, a := range rows {
		grouped[a.Target()] = append(grouped[a.Target()], a)
	}
	return grouped, nil
}

// SweepOrphans deletes unattached files past the grace period, then storage objects nothing references.
func (s *service) SweepOrphans(ctx context.Context, gracePeriod time.Duration) (OrphanReport, error) {
	var report OrphanReport
	cutoff := time.Now().Add(-gracePeriod)

	stale, err := s.repo.ListUnattached(ctx, cutoff, orphanDeleteBudget)
	if err != nil {
		return report, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "list unattached files")
	}
	for _, f := range stale {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := s.remove(ctx, f); err != nil {
			report.Failures++
			s.log.Warn().Err(err).Str("file_id", f.ID).Msg("delete unattached file")
			continue
		}
		report.DeletedFiles++
	}

	for _, prefix := range []string{UploadsPrefix, SpeechPrefix} {
		objects, err := s.storage.List(ctx, prefix)
		if err != nil {
			return report, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeExternal, "failed to list storage", err, "0d6b9f3e-7a1c-4b52-9e8d-2f5a0c7b4e19")
		}
		report.ScannedObjects += len(objects)

		var candidates []string
		for _, obj := range objects {
			if obj.LastModified.Before(cutoff) {
				candidates = append(candidates, obj.Key)
			}
		}
		if len(candidates) == 0 {
			continue
		}
		referenced, err := s.repo.ReferencedKeys(ctx, candidates)
		if err != nil {
			return report, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "check referenced keys")
		}
		for _, key := range candidates {
			if referenced[key] {
				continue
			}
			if report.DeletedObjects >= orphanDeleteBudget {
				break
			}
			if err := s.storage.Delete(ctx, key); err != nil {
				report.Failures++
				s.log.Warn().Err(err).Str("key", key).Msg("delete orphaned object")
				continue
			}
			report.DeletedObjects++
		}
	}

	s.log.Info().
		Int("scanned", report.ScannedObjects).
		Int("deleted_objects", report.DeletedObjects).
		Int("deleted_files", report.DeletedFiles).
		Int("failures", report.Failures).
		Msg("orphan sweep finished")
	return report, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
