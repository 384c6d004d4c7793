package embeddingrepo

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/huddlehq/huddle-server/internal/domain/content"
	"github.com/huddlehq/huddle-server/internal/domain/embedding"
	"github.com/huddlehq/huddle-server/internal/infrastructure/database/entities"
	"github.com/huddlehq/huddle-server/internal/infrastructure/database/transaction"
	"github.com/huddlehq/huddle-server/internal/utils/idgen"
)

type EmbeddingGormRepository struct {
	db *transaction.Database
}

var _ embedding.Repository = (*EmbeddingGormRepository)(nil)

func NewEmbeddingGormRepository(db *transaction.Database) embedding.Repository {
	return &EmbeddingGormRepository{db: db}
}

const upsertReadySQL = `
INSERT INTO vector_embeddings
	(id, target_type, target_id, scope_type, scope_id, model, content_hash, embedding, status, error, attempts, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?::vector, ?, '', 0, ?, ?)
ON CONFLICT (target_type, target_id) DO UPDATE SET
	scope_type = EXCLUDED.scope_type,
	scope_id = EXCLUDED.scope_id,
	model = EXCLUDED.model,
	content_hash = EXCLUDED.content_hash,
	embedding = EXCLUDED.embedding,
	status = EXCLUDED.status,
	error = '',
	attempts = 0,
	updated_at = EXCLUDED.updated_at`

func (repo *EmbeddingGormRepository) UpsertReady(ctx context.Context, rows []*embedding.Embedding) error {
	return repo.db.Transaction(ctx, func(ctx context.Context) error {
		tx := repo.db.GetTx(ctx)
		for _, e := range rows {
			row := entities.VectorEmbeddingDtoE(e)
			err := tx.Exec(upsertReadySQL,
				row.ID, row.TargetType, row.TargetID, row.ScopeType, row.ScopeID, row.Model, row.ContentHash,
				vectorLiteral(e.Vector), string(embedding.StatusReady), row.CreatedAt, row.UpdatedAt,
			).Error
			if err != nil {
				return transaction.Error(ctx, err, "failed to store embedding", "8b3e1f70-c5a2-4d96-a0e7-3f9d6b2c1e12")
			}
		}
		return nil
	})
}

const markFailedSQL = `
INSERT INTO vector_embeddings
	(id, target_type, target_id, scope_type, scope_id, model, content_hash, status, error, attempts, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
ON CONFLICT (target_type, target_id) DO UPDATE SET
	model = EXCLUDED.model,
	content_hash = EXCLUDED.content_hash,
	status = EXCLUDED.status,
	error = EXCLUDED.error,
	attempts = vector_embeddings.attempts + 1,
	updated_at = EXCLUDED.updated_at`

func (repo *EmbeddingGormRepository) MarkFailed(ctx context.Context, items []content.Item, model, message string) error {
	now := time.Now().UTC()
	return repo.db.Transaction(ctx, func(ctx context.Context) error {
		tx := repo.db.GetTx(ctx)
		for _, item := range items {
			err := tx.Exec(markFailedSQL,
				idgen.New(idgen.PrefixEmbedding), string(item.Target.Type), item.Target.ID,
				string(item.Scope.Type), item.Scope.ID, model, embedding.ContentHash(item.Text),
				string(embedding.StatusFailed), message, now, now,
			).Error
			if err != nil {
				return transaction.Error(ctx, err, "failed to record embedding failure", "f4a09c2d-7e6b-4b31-85d8-1c0e5a9f3b23")
			}
		}
		return nil
	})
}

// Search ranks ready rows of the same dimension by cosine similarity.
func (repo *EmbeddingGormRepository) Search(ctx context.Context, vector []float32, scopes []content.Scope, limit int, minSimilarity float64) ([]embedding.Hit, error) {
	if len(scopes) == 0 || len(vector) == 0 {
		return nil, nil
	}
	pairs := make([][]any, 0, len(scopes))
	for _, s := range scopes {
		pairs = append(pairs, []any{string(s.Type), s.ID})
	}
	literal := vectorLiteral(vector)

	var rows []struct {
		TargetType string
		TargetID   string
		ScopeType  string
		ScopeID    string
		Similarity float64
	}
	err := repo.db.GetTx(ctx).Raw(`
		SELECT * FROM (
			SELECT target_type, target_id, scope_type, scope_id,
				1 - (embedding <=> ?::vector) AS similarity
			FROM vector_embeddings
			WHERE status = ? AND embedding IS NOT NULL AND vector_dims(embedding) = ?
			  AND (scope_type, scope_id) IN ?
			ORDER BY embedding <=> ?::vector
			LIMIT ?
		) ranked
		WHERE similarity >= ?
		ORDER BY similarity DESC`,
		literal, string(embedding.StatusReady), len(vector), pairs, literal, limit, minSimilarity).
		Scan(&rows).Error
	if err != nil {
		return nil, transaction.Error(ctx, err, "failed to search embeddings", "2d7c5a81-b9e0-4f46-a3c2-6e1f8d0b4a34")
	}

	hits := make([]embedding.Hit, 0, len(rows))
	for _, row := range rows {
		hits = append(hits, embedding.Hit{
			Target:     content.Target{Type: content.TargetType(row.TargetType), ID: row.TargetID},
			Scope:      content.Scope{Type: content.ScopeType(row.ScopeType), ID: row.ScopeID},
			Similarity: row.Similarity,
		})
	}
	return hits, nil
}

func (repo *EmbeddingGormRepository) Candidates(ctx context.Context, model string, dimensions, maxAttempts, limit int) ([]content.Item, error) {
	var rows []entities.ContentItem
	err := repo.db.GetTx(ctx).Raw(`
		SELECT ci.*
		FROM `+entities.ContentItemsSQL+` ci
		LEFT JOIN vector_embeddings ve ON ve.target_type = ci.target_type AND ve.target_id = ci.target_id
		WHERE ci.text <> ''
		  AND (
			ve.id IS NULL
			OR (ve.status = 'ready' AND (ve.model <> ? OR ve.content_hash <> encode(sha256(convert_to(ci.text, 'UTF8')), 'hex')
				OR (? > 0 AND (ve.embedding IS NULL OR vector_dims(ve.embedding) <> ?))))
			OR (ve.status = 'failed' AND (ve.attempts < ? OR ve.model <> ? OR ve.content_hash <> encode(sha256(convert_to(ci.text, 'UTF8')), 'hex')))
		  )
		ORDER BY ci.created_at ASC
		LIMIT ?`, model, dimensions, dimensions, maxAttempts, model, limit).
		Scan(&rows).Error
	if err != nil {
		return nil, transaction.Error(ctx, err, "failed to list embedding candidates", "a6f3d0e8-2c4b-4e79-9b15-0d7a3c6f1e45")
	}
	return entities.ContentItemsEtoD(rows), nil
}

// vectorLiteral formats v as a pgvector text literal such as [0.1,0.2].
func vectorLiteral(v []float32) string {
	var b strings.Builder
	b.Grow(len(v) * 10)
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
