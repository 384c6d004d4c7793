package voicerepo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/huddlehq/huddle-server/internal/domain/voice"
	"github.com/huddlehq/huddle-server/internal/infrastructure/database/entities"
	"github.com/huddlehq/huddle-server/internal/infrastructure/database/transaction"
)

type RecordingGormRepository struct {
	db *transaction.Database
}

var _ voice.Repository = (*RecordingGormRepository)(nil)

func NewRecordingGormRepository(db *transaction.Database) voice.Repository {
	return &RecordingGormRepository{db: db}
}

func (repo *RecordingGormRepository) FindByID(ctx context.Context, id string) (*voice.Recording, error) {
	var entity entities.TTSRecording
	if err := repo.db.GetTx(ctx).Where("id = ?", id).First(&entity).Error; err != nil {
		return nil, transaction.Error(ctx, err, "recording not found", "4a8c2e61-9d0b-4f37-b5e2-7c1f3a9d0e12")
	}
	return entity.EtoD(), nil
}

func (repo *RecordingGormRepository) Ensure(ctx context.Context, r *voice.Recording) (*voice.Recording, error) {
	err := repo.db.GetTx(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "target_type"}, {Name: "target_id"}, {Name: "voice_id"}, {Name: "language"}},
			DoNothing: true,
		}).
		Create(entities.TTSRecordingDtoE(r)).Error
	if err != nil {
		return nil, transaction.Error(ctx, err, "failed to create recording", "d06f9b3a-2e7c-4d81-a4b6-5e0c8f2d1a23")
	}

	var stored entities.TTSRecording
	err = repo.db.GetTx(ctx).
		Where("target_type = ? AND target_id = ? AND voice_id = ? AND language = ?", string(r.TargetType), r.TargetID, r.VoiceID, r.Language).
		First(&stored).Error
	if err != nil {
		return nil, transaction.Error(ctx, err, "failed to reload recording", "91e3a7c5-6b0f-4e29-8d4a-2f7b1c5e9d34")
	}
	return stored.EtoD(), nil
}

func (repo *RecordingGormRepository) MarkReady(ctx context.Context, id, storageKey, mimeType string) (*voice.Recording, error) {
	return repo.update(ctx, id, map[string]any{
		"status":      string(voice.StatusReady),
		"storage_key": storageKey,
		"mime_type":   mimeType,
		"error":       "",
		"updated_at":  time.Now().UTC(),
	})
}

func (repo *RecordingGormRepository) MarkFailed(ctx context.Context, id, message string) (*voice.Recording, error) {
	return repo.update(ctx, id, map[string]any{
		"status":     string(voice.StatusFailed),
		"error":      message,
		"attempts":   gorm.Expr("attempts + 1"),
		"updated_at": time.Now().UTC(),
	})
}

func (repo *RecordingGormRepository) update(ctx context.Context, id string, changes map[string]any) (*voice.Recording, error) {
	result := repo.db.GetTx(ctx).Model(&entities.TTSRecording{}).Where("id = ?", id).Updates(changes)
	if result.Error != nil {
		return nil, transaction.Error(ctx, result.Error, "failed to update recording", "5c7e0b28-a3d9-4f16-b8e1-0d4a6c2f7b45")
	}
	if result.RowsAffected == 0 {
		return nil, transaction.Error(ctx, gorm.ErrRecordNotFound, "recording not found", "e2b9d4f0-7c1a-4e63-95d7-3a8f0b6c1e56")
	}
	return repo.FindByID(ctx, id)
}

func (repo *RecordingGormRepository) ListPending(ctx context.Context, maxAttempts, limit int) ([]*voice.Recording, error) {
	var rows []entities.TTSRecording
	err := repo.db.GetTx(ctx).
		Where("status = ? OR (status = ? AND attempts < ?)", string(voice.StatusPending), string(voice.StatusFailed), maxAttempts).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, transaction.Error(ctx, err, "failed to list pending recordings", "7f1a5c93-0e4b-4d28-a6c2-9b3e1d7f0a67")
	}
	out := make([]*voice.Recording, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].EtoD())
	}
	return out, nil
}

func (repo *RecordingGormRepository) Candidates(ctx context.Context, since time.Time, limit int) ([]voice.Candidate, error) {
	var rows []struct {
		entities.ContentItem
		VoiceID string
	}
	err := repo.db.GetTx(ctx).Raw(`
		SELECT ci.*, u.voice_id
		FROM `+entities.ContentItemsSQL+` ci
		JOIN users u ON u.id = ci.author_id
		WHERE ci.created_at > ?
		  AND u.voice_status = 'ready' AND u.voice_id IS NOT NULL AND u.voice_id <> ''
		  AND ci.text <> ''
		  AND NOT EXISTS (
			SELECT 1 FROM tts_recordings r
			WHERE r.target_type = ci.target_type AND r.target_id = ci.target_id AND r.voice_id = u.voice_id
		  )
		ORDER BY ci.created_at ASC
		LIMIT ?`, since, limit).
		Scan(&rows).Error
	if err != nil {
		return nil, transaction.Error(ctx, err, "failed to list speech candidates", "b3d8e2a0-5f6c-4b91-8e07-4c2a9d1f6b78")
	}
	out := make([]voice.Candidate, 0, len(rows))
	for i := range rows {
		out = append(out, voice.Candidate{Item: rows[i].ContentItem.EtoD(), VoiceID: rows[i].VoiceID})
	}
	return out, nil
}
