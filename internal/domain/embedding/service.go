package embedding

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/huddlehq/huddle-server/internal/config"
	"github.com/huddlehq/huddle-server/internal/domain/content"
	"github.com/huddlehq/huddle-server/internal/utils/idgen"
	"github.com/huddlehq/huddle-server/internal/utils/platformerrors"
)

const (
	DefaultSearchLimit   = 10
	MaxSearchLimit       = 50
	DefaultMinSimilarity = 0.2
)

// Service embeds content and answers semantic queries.
type Service interface {
	Search(ctx context.Context, userID string, params SearchParams) ([]Match, error)
	// Related searches one scope without an access check. Callers must have authorized the scope.
	Related(ctx context.Context, scope content.Scope, text string, limit int) ([]Match, error)
	Index(ctx context.Context, target content.Target) (*Embedding, error)
	Backfill(ctx context.Context, batchSize, maxAttempts int) (*BackfillReport, error)
}

type service struct {
	cfg      *config.Config
	repo     Repository
	embedder Embedder
	cache    VectorCache
	resolver content.Resolver
	log      zerolog.Logger
}

// NewService wires the embedding service. embedder may be nil, in which case search and indexing
// report NOT_IMPLEMENTED and the backfill does nothing.
func NewService(cfg *config.Config, repo Repository, embedder Embedder, cache VectorCache, resolver content.Resolver, log zerolog.Logger) Service {
	return &service{
		cfg:      cfg,
		repo:     repo,
		embedder: embedder,
		cache:    cache,
		resolver: resolver,
		log:      log.With().Str("component", "embedding-service").Logger(),
	}
}

func (s *service) Search(ctx context.Context, userID string, params SearchParams) ([]Match, error) {
	query := strings.TrimSpace(params.Query)
	if query == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "query is required", nil, "d4a7c1e9-3b6f-4f02-8e5d-a9c2b7f1e036")
	}
	limit := params.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}
	minSimilarity := params.MinSimilarity
	if minSimilarity <= 0 {
		minSimilarity = DefaultMinSimilarity
	}
	if minSimilarity > 1 {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "min_similarity must be between 0 and 1", nil, "81e3f6b2-0c9a-4d57-b4e8-2f7a1c6d9b05")
	}

	var scopes []content.Scope
	if params.Scope != nil {
		ok, err := s.resolver.CanRead(ctx, *params.Scope, userID)
		if err != nil {
			return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "check read access")
		}
		if !ok {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, "scope not found", nil, "5c0b8e4d-7a1f-4e93-9d26-b3f8a0e7c412")
		}
		scopes = []content.Scope{*params.Scope}
	} else {
		// joined channels and conversations only; unjoined public channels need an explicit scope
		var err error
		scopes, err = s.resolver.ScopesForUser(ctx, userID)
		if err != nil {
			return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "list scopes")
		}
	}
	if len(scopes) == 0 {
		return []Match{}, nil
	}
	return s.search(ctx, query, scopes, limit, minSimilarity)
}

func (s *service) Related(ctx context.Context, scope content.Scope, text string, limit int) ([]Match, error) {
	text = strings.TrimSpace(text)
	if text == "" || limit <= 0 {
		return []Match{}, nil
	}
	return s.search(ctx, text, []content.Scope{scope}, limit, DefaultMinSimilarity)
}

func (s *service) search(ctx context.Context, query string, scopes []content.Scope, limit int, minSimilarity float64) ([]Match, error) {
	vector, err := s.queryVector(ctx, query)
	if err != nil {
		return nil, err
	}
	hits, err := s.repo.Search(ctx, vector, scopes, limit, minSimilarity)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "vector search")
	}

	matches := make([]Match, 0, len(hits))
	for _, hit := range hits {
		item, err := s.resolver.Resolve(ctx, hit.Target)
		if err != nil {
			// The row was deleted after it was embedded.
			if platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
				continue
			}
			return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "resolve search hit")
		}
		matches = append(matches, Match{
			Target:     item.Target,
			Scope:      item.Scope,
			ParentID:   item.ParentID,
			AuthorID:   item.AuthorID,
			Text:       item.Text,
			Similarity: hit.Similarity,
			CreatedAt:  item.CreatedAt,
		})
	}
	return matches, nil
}

func (s *service) queryVector(ctx context.Context, query string) ([]float32, error) {
	if s.embedder == nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotImplemented, "embedding provider is not configured", nil, "2f9d5b1a-8e4c-4a36-a07b-c6e1d3f9b258")
	}
	key := s.embedder.Model() + ":" + ContentHash(query)
	if s.cache != nil {
		if vector, ok := s.cache.Get(key); ok {
			return vector, nil
		}
	}
	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeExternal, "embedding provider failed", err, "a6c3e0f7-4b2d-4d81-9f5a-e8b1c7d2a469")
	}
	if len(vectors) != 1 || len(vectors[0]) == 0 {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeExternal, "embedding provider returned no vector", nil, "e0b7a4d1-9c6f-4e25-b3d8-1a5f9c0e7b64")
	}
	if err := s.checkDimensions(ctx, vectors); err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(key, vectors[0], s.cfg.EmbeddingCacheTTL)
	}
	return vectors[0], nil
}

func (s *service) Index(ctx context.Context, target content.Target) (*Embedding, error) {
	if s.embedder == nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotImplemented, "embedding provider is not configured", nil, "7b4e1c8a-2d5f-4f90-8c63-d9a2e6b0f137")
	}
	item, err := s.resolver.Resolve(ctx, target)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(item.Text) == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "content has no text to embed", nil, "c3f0a7e4-6b1d-4c58-a2e9-5d8b3f1c0a76")
	}
	rows, err := s.embed(ctx, []content.Item{*item})
	if err != nil {
		return nil, err
	}
	return rows[0], nil
}

func (s *service) Backfill(ctx context.Context, batchSize, maxAttempts int) (*BackfillReport, error) {
	report := &BackfillReport{}
	if s.embedder == nil {
		s.log.Debug().Msg("embedding provider not configured, skipping backfill")
		return report, nil
	}
	report.Model = s.embedder.Model()

	items, err := s.repo.Candidates(ctx, report.Model, s.cfg.EmbeddingDimensions, maxAttempts, batchSize)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "list embedding candidates")
	}
	report.Candidates = len(items)
	if len(items) == 0 {
		return report, nil
	}

	rows, err := s.embed(ctx, items)
	if err != nil {
		if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeExternal) {
			return nil, err
		}
		s.log.Warn().Err(err).Int("items", len(items)).Msg("embedding batch failed")
		if markErr := s.repo.MarkFailed(ctx, items, report.Model, errorMessage(err)); markErr != nil {
			return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, markErr, "mark embeddings failed")
		}
		report.Failed = len(items)
		return report, nil
	}
	report.Embedded = len(rows)
	s.log.Info().Int("embedded", report.Embedded).Str("model", report.Model).Msg("embedding backfill finished")
	return report, nil
}

// embed sends every item in one provider call and stores the vectors.
func (s *service) embed(ctx context.Context, items []content.Item) ([]*Embedding, error) {
	inputs := make([]string, len(items))
	for i, item := range items {
		inputs[i] = item.Text
	}
	vectors, err := s.embedder.Embed(ctx, inputs)
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeExternal, "embedding provider failed", err, "4d1a8f5c-0e7b-4b39-9a62-f3c6e9d0b285")
	}
	if len(vectors) != len(items) {
		return nil, platformerrors.NewErrorWithContext(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeExternal, "embedding provider returned a mismatched batch", nil, "9e6b3d0a-5f2c-4e84-b1a7-08d4f2c9e6b3", map[string]any{"inputs": len(items), "vectors": len(vectors)})
	}
	if err := s.checkDimensions(ctx, vectors); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	rows := make([]*Embedding, len(items))
	for i, item := range items {
		rows[i] = &Embedding{
			ID:          idgen.New(idgen.PrefixEmbedding),
			TargetType:  item.Target.Type,
			TargetID:    item.Target.ID,
			ScopeType:   item.Scope.Type,
			ScopeID:     item.Scope.ID,
			Model:       s.embedder.Model(),
			ContentHash: ContentHash(item.Text),
			Vector:      vectors[i],
			Status:      StatusReady,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
	}
	if err := s.repo.UpsertReady(ctx, rows); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "store embeddings")
	}
	return rows, nil
}

// checkDimensions rejects vectors whose size differs from EMBEDDING_DIMENSIONS. Zero disables the check.
func (s *service) checkDimensions(ctx context.Context, vectors [][]float32) error {
	want := s.cfg.EmbeddingDimensions
	if want <= 0 {
		return nil
	}
	for _, v := range vectors {
		if len(v) != want {
			err := fmt.Errorf("embedding has %d dimensions, expected %d", len(v), want)
			return platformerrors.NewErrorWithContext(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeExternal, "embedding provider returned vectors of the wrong size", err, "5c8e2a4f-1d7b-4f63-b09e-7a3d6c1f8e52", map[string]any{"dimensions": len(v), "expected": want})
		}
	}
	return nil
}

func errorMessage(err error) string {
	if pe := platformerrors.GetPlatformError(err); pe != nil && pe.Err != nil {
		return pe.Err.Error()
	}
	return err.Error()
}
