package filerepo

import (
	"context"
	"time"

	"gorm.io/gorm/clause"

	"github.com/huddlehq/huddle-server/internal/domain/content"
	"github.com/huddlehq/huddle-server/internal/domain/file"
	"github.com/huddlehq/huddle-server/internal/infrastructure/database/entities"
	"github.com/huddlehq/huddle-server/internal/infrastructure/database/transaction"
)

type FileGormRepository struct {
	db *transaction.Database
}

var _ file.Repository = (*FileGormRepository)(nil)

func NewFileGormRepository(db *transaction.Database) file.Repository {
	return &FileGormRepository{db: db}
}

func (repo *FileGormRepository) Create(ctx context.Context, f *file.File) error {
	if err := repo.db.GetTx(ctx).Create(entities.FileDtoE(f)).Error; err != nil {
		return transaction.Error(ctx, err, "failed to create file", "0a5c8e37-4d1b-4f92-b6e3-9c2d7a1f5e12")
	}
	return nil
}

func (repo *FileGormRepository) FindByID(ctx context.Context, id string) (*file.File, error) {
	var entity entities.File
	if err := repo.db.GetTx(ctx).Where("id = ?", id).First(&entity).Error; err != nil {
		return nil, transaction.Error(ctx, err, "file not found", "d7e2b4a9-1c6f-4e30-8a5d-3b9e0f6c2d23")
	}
	return entity.EtoD(), nil
}

func (repo *FileGormRepository) FindByIDs(ctx context.Context, ids []string) ([]*file.File, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []entities.File
	if err := repo.db.GetTx(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, transaction.Error(ctx, err, "failed to load files", "59b1f6c3-8e0a-4d47-a2c9-6f4e1b8d3a34")
	}
	out := make([]*file.File, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].EtoD())
	}
	return out, nil
}

// Delete removes the file row. Attachments cascade.
func (repo *FileGormRepository) Delete(ctx context.Context, id string) error {
	if err := repo.db.GetTx(ctx).Where("id = ?", id).Delete(&entities.File{}).Error; err != nil {
		return transaction.Error(ctx, err, "failed to delete file", "c2a9d0e5-7b3f-4a61-9e84-0d5c2f7b1a45")
	}
	return nil
}

func (repo *FileGormRepository) IsAvatar(ctx context.Context, id string) (bool, error) {
	var count int64
	if err := repo.db.GetTx(ctx).Model(&entities.User{}).Where("avatar_file_id = ?", id).Count(&count).Error; err != nil {
		return false, transaction.Error(ctx, err, "failed to check avatar use", "83e6c1b7-2f9d-4e05-b0a3-5d8f1c4e7b56")
	}
	return count > 0, nil
}

// CreateAttachments inserts the links, ignoring ones that already exist.
func (repo *FileGormRepository) CreateAttachments(ctx context.Context, attachments []*file.Attachment) error {
	if len(attachments) == 0 {
		return nil
	}
	rows := make([]*entities.FileAttachment, 0, len(attachments))
	for _, a := range attachments {
		rows = append(rows, entities.FileAttachmentDtoE(a))
	}
	if err := repo.db.GetTx(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
		return transaction.Error(ctx, err, "failed to attach files", "f1b4a8d2-6e0c-4b79-a3f5-8c2e9d0b6a67")
	}
	return nil
}

func (repo *FileGormRepository) ListAttachmentsByFile(ctx context.Context, fileID string) ([]*file.Attachment, error) {
	var rows []entities.FileAttachment
	err := repo.db.GetTx(ctx).Preload("File").Where("file_id = ?", fileID).Order("id ASC").Find(&rows).Error
	if err != nil {
		return nil, transaction.Error(ctx, err, "failed to list attachments", "47d0e3c9-b5a1-4f28-96e7-1a3f8c5d2b78")
	}
	return attachmentsEtoD(rows), nil
}

func (repo *FileGormRepository) ListAttachmentsByTargets(ctx context.Context, targets []content.Target) ([]*file.Attachment, error) {
	if len(targets) == 0 {
		return nil, nil
	}
	pairs := make([][]any, 0, len(targets))
	for _, t := range targets {
		pairs = append(pairs, []any{string(t.Type), t.ID})
	}
	var rows []entities.FileAttachment
	err := repo.db.GetTx(ctx).Preload("File").
		Where("(target_type, target_id) IN ?", pairs).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, transaction.Error(ctx, err, "failed to list attachments", "b8e5f2a0-3c7d-4e16-a9b4-7f0d1e6c3a89")
	}
	return attachmentsEtoD(rows), nil
}

func (repo *FileGormRepository) ListUnattached(ctx context.Context, createdBefore time.Time, limit int) ([]*file.File, error) {
	var rows []entities.File
	err := repo.db.GetTx(ctx).
		Where("files.created_at < ?", createdBefore).
		Where("NOT EXISTS (SELECT 1 FROM file_attachments fa WHERE fa.file_id = files.id)").
		Where("NOT EXISTS (SELECT 1 FROM users u WHERE u.avatar_file_id = files.id)").
		Order("files.created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, transaction.Error(ctx, err, "failed to list unattached files", "2c6a9f14-e8d3-4b50-87c1-4e9b0a5d7f90")
	}
	out := make([]*file.File, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].EtoD())
	}
	return out, nil
}

func (repo *FileGormRepository) ReferencedKeys(ctx context.Context, keys []string) (map[string]bool, error) {
	out := make(map[string]bool, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	var found []string
	err := repo.db.GetTx(ctx).Raw(
		`SELECT storage_key FROM files WHERE storage_key IN ?
		 UNION
		 SELECT storage_key FROM tts_recordings WHERE storage_key IN ?`, keys, keys).
		Scan(&found).Error
	if err != nil {
		return nil, transaction.Error(ctx, err, "failed to look up storage keys", "9e3d7b51-0f4a-4c86-b2e8-6a1c5f9d3b01")
	}
	for _, key := range found {
		out[key] = true
	}
	return out, nil
}

func attachmentsEtoD(rows []entities.FileAttachment) []*file.Attachment {
	out := make([]*file.Attachment, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].EtoD())
	}
	return out
}
