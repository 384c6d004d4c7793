package embedding_test

import (
	"context"
	"errors"
	"math"
	"sort"
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
	"github.com/huddlehq/huddle-server/internal/domain/embedding"
	"github.com/huddlehq/huddle-server/internal/utils/platformerrors"
)

type memoryRepository struct {
	mu       sync.Mutex
	rows     map[content.Target]*embedding.Embedding
	resolver *contenttest.Resolver
}

func (r *memoryRepository) UpsertReady(_ context.Context, rows []*embedding.Embedding) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range rows {
		copied := *row
		r.rows[content.Target{Type: row.TargetType, ID: row.TargetID}] = &copied
	}
	return nil
}

func (r *memoryRepository) MarkFailed(_ context.Context, items []content.Item, model, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range items {
		row, ok := r.rows[item.Target]
		if !ok {
			row = &embedding.Embedding{TargetType: item.Target.Type, TargetID: item.Target.ID}
			r.rows[item.Target] = row
		}
		row.Model = model
		row.Status = embedding.StatusFailed
		row.Error = message
		row.Attempts++
	}
	return nil
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func (r *memoryRepository) Search(_ context.Context, vector []float32, scopes []content.Scope, limit int, minSimilarity float64) ([]embedding.Hit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	allowed := map[content.Scope]bool{}
	for _, s := range scopes {
		allowed[s] = true
	}
	var hits []embedding.Hit
	for target, row := range r.rows {
		scope := content.Scope{Type: row.ScopeType, ID: row.ScopeID}
		if row.Status != embedding.StatusReady || !allowed[scope] {
			continue
		}
		if sim := cosine(vector, row.Vector); sim >= minSimilarity {
			hits = append(hits, embedding.Hit{Target: target, Scope: scope, Similarity: sim})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Similarity > hits[j].Similarity })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (r *memoryRepository) Candidates(_ context.Context, model string, dimensions, maxAttempts, limit int) ([]content.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []content.Item
	for target, item := range r.resolver.Items {
		if item.Text == "" {
			continue
		}
		row, ok := r.rows[target]
		switch {
		case !ok:
		case row.Status == embedding.StatusFailed && row.Attempts < maxAttempts:
		case row.Status == embedding.StatusReady && (row.Model != model || row.ContentHash != embedding.ContentHash(item.Text)):
		case row.Status == embedding.StatusReady && dimensions > 0 && len(row.Vector) != dimensions:
		default:
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Target.ID < out[j].Target.ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// keywordEmbedder maps texts onto three axes so similarity is predictable.
type keywordEmbedder struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (e *keywordEmbedder) Model() string { return "test-embedding" }

func (e *keywordEmbedder) Embed(_ context.Context, inputs []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(inputs))
	for i, in := range inputs {
		v := []float32{0.01, 0.01, 0.01}
		switch {
		case strings.Contains(in, "deploy"):
			v[0] = 1
		case strings.Contains(in, "lunch"):
			v[1] = 1
		default:
			v[2] = 1
		}
		out[i] = v
	}
	return out, nil
}

type mapCache struct {
	mu   sync.Mutex
	data map[string][]float32
}

func (c *mapCache) Get(key string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok
}

func (c *mapCache) Set(key string, v []float32, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = v
}

var (
	general = content.Scope{Type: content.ScopeChannel, ID: "chn_general"}
	secret  = content.Scope{Type: content.ScopeChannel, ID: "chn_secret"}
	dm      = content.Scope{Type: content.ScopeConversation, ID: "cnv_dm"}
)

type fixture struct {
	svc      embedding.Service
	repo     *memoryRepository
	embedder *keywordEmbedder
	resolver *contenttest.Resolver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	resolver := contenttest.NewResolver()
	repo := &memoryRepository{rows: map[content.Target]*embedding.Embedding{}, resolver: resolver}
	embedder := &keywordEmbedder{}
	cfg := &config.Config{EmbeddingCacheTTL: time.Hour, EmbeddingDimensions: 3}
	svc := embedding.NewService(cfg, repo, embedder, &mapCache{data: map[string][]float32{}}, resolver, zerolog.Nop())

	resolver.AddMember(general, "usr_alice")
	resolver.AddMember(dm, "usr_alice")
	resolver.AddMember(secret, "usr_bob")
	add := func(id string, scope content.Scope, text string) {
		resolver.AddItem(content.Item{Target: content.Target{Type: content.TargetPost, ID: id}, Scope: scope, AuthorID: "usr_bob", Text: text})
	}
	add("pst_1", general, "deploy is done")
	add("pst_2", general, "who wants lunch")
	add("pst_3", secret, "secret deploy plan")
	add("pst_4", dm, "deploy again tomorrow")
	add("pst_5", general, "")
	return &fixture{svc: svc, repo: repo, embedder: embedder, resolver: resolver}
}

func TestBackfillEmbedsCandidatesInOneCall(t *testing.T) {
	f := newFixture(t)

	report, err := f.svc.Backfill(context.Background(), 10, 3)
	require.NoError(t, err)
	assert.Equal(t, 4, report.Candidates)
	assert.Equal(t, 4, report.Embedded)
	assert.Equal(t, 1, f.embedder.calls)

	report, err = f.svc.Backfill(context.Background(), 10, 3)
	require.NoError(t, err)
	assert.Zero(t, report.Candidates)
}

func TestBackfillReembedsChangedContent(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Backfill(context.Background(), 10, 3)
	require.NoError(t, err)

	f.resolver.AddItem(content.Item{Target: content.Target{Type: content.TargetPost, ID: "pst_2"}, Scope: general, Text: "lunch moved to noon"})
	report, err := f.svc.Backfill(context.Background(), 10, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Embedded)
	assert.Equal(t, embedding.ContentHash("lunch moved to noon"), f.repo.rows[content.Target{Type: content.TargetPost, ID: "pst_2"}].ContentHash)
}

func TestBackfillFailureMarksEveryItem(t *testing.T) {
	f := newFixture(t)
	f.embedder.err = errors.New("quota exceeded")

	for i := 0; i < 3; i++ {
		report, err := f.svc.Backfill(context.Background(), 10, 3)
		require.NoError(t, err)
		assert.Equal(t, 4, report.Failed)
	}
	for _, row := range f.repo.rows {
		assert.Equal(t, embedding.StatusFailed, row.Status)
		assert.Equal(t, 3, row.Attempts)
		assert.Equal(t, "quota exceeded", row.Error)
	}

	// Attempts are exhausted.
	report, err := f.svc.Backfill(context.Background(), 10, 3)
	require.NoError(t, err)
	assert.Zero(t, report.Candidates)
}

func TestBackfillRejectsVectorsOfTheWrongSize(t *testing.T) {
	resolver := contenttest.NewResolver()
	repo := &memoryRepository{rows: map[content.Target]*embedding.Embedding{}, resolver: resolver}
	cfg := &config.Config{EmbeddingCacheTTL: time.Hour, EmbeddingDimensions: 1536}
	svc := embedding.NewService(cfg, repo, &keywordEmbedder{}, nil, resolver, zerolog.Nop())
	target := content.Target{Type: content.TargetPost, ID: "pst_1"}
	resolver.AddMember(general, "usr_alice")
	resolver.AddItem(content.Item{Target: target, Scope: general, Text: "deploy is done"})

	report, err := svc.Backfill(context.Background(), 10, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Zero(t, report.Embedded)
	assert.Equal(t, embedding.StatusFailed, repo.rows[target].Status)
	assert.Contains(t, repo.rows[target].Error, "expected 1536")

	// retried until attempts run out
	report, err = svc.Backfill(context.Background(), 10, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Candidates)

	_, err = svc.Search(context.Background(), "usr_alice", embedding.SearchParams{Query: "deploy"})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeExternal))
}

func TestBackfillReplacesReadyRowsAfterDimensionChange(t *testing.T) {
	f := newFixture(t)
	target := content.Target{Type: content.TargetPost, ID: "pst_1"}
	f.repo.rows[target] = &embedding.Embedding{
		TargetType:  target.Type,
		TargetID:    target.ID,
		Model:       f.embedder.Model(),
		ContentHash: embedding.ContentHash("deploy is done"),
		Vector:      make([]float32, 8),
		Status:      embedding.StatusReady,
	}

	report, err := f.svc.Backfill(context.Background(), 10, 3)
	require.NoError(t, err)
	assert.Equal(t, 4, report.Embedded)
	assert.Len(t, f.repo.rows[target].Vector, 3)
}

func TestSearchOnlyCoversReadableScopes(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Backfill(context.Background(), 10, 3)
	require.NoError(t, err)

	matches, err := f.svc.Search(context.Background(), "usr_alice", embedding.SearchParams{Query: "deploy status"})
	require.NoError(t, err)
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.ID)
		assert.NotEqual(t, secret, m.Scope)
	}
	assert.ElementsMatch(t, []string{"pst_1", "pst_4"}, ids)
	assert.Equal(t, "deploy is done", textOf(matches, "pst_1"))

	_, err = f.svc.Search(context.Background(), "usr_alice", embedding.SearchParams{Query: "deploy", Scope: &secret})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
}

func TestGlobalSearchSkipsPublicChannelsNotJoined(t *testing.T) {
	f := newFixture(t)
	f.resolver.PublicScopes[secret] = true
	_, err := f.svc.Backfill(context.Background(), 10, 3)
	require.NoError(t, err)

	matches, err := f.svc.Search(context.Background(), "usr_alice", embedding.SearchParams{Query: "deploy"})
	require.NoError(t, err)
	for _, m := range matches {
		assert.NotEqual(t, secret, m.Scope)
	}

	matches, err = f.svc.Search(context.Background(), "usr_alice", embedding.SearchParams{Query: "deploy", Scope: &secret})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "pst_3", matches[0].ID)
}

func textOf(matches []embedding.Match, id string) string {
	for _, m := range matches {
		if m.ID == id {
			return m.Text
		}
	}
	return ""
}

func TestSearchCachesQueryVectors(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Backfill(context.Background(), 10, 3)
	require.NoError(t, err)
	before := f.embedder.calls

	for i := 0; i < 3; i++ {
		_, err := f.svc.Search(context.Background(), "usr_alice", embedding.SearchParams{Query: "lunch"})
		require.NoError(t, err)
	}
	assert.Equal(t, before+1, f.embedder.calls)
}

func TestSearchSkipsDeletedContent(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Backfill(context.Background(), 10, 3)
	require.NoError(t, err)
	delete(f.resolver.Items, content.Target{Type: content.TargetPost, ID: "pst_1"})

	matches, err := f.svc.Search(context.Background(), "usr_alice", embedding.SearchParams{Query: "deploy"})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "pst_4", matches[0].ID)
}

func TestSearchValidation(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Search(context.Background(), "usr_alice", embedding.SearchParams{Query: "  "})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))

	_, err = f.svc.Search(context.Background(), "usr_alice", embedding.SearchParams{Query: "x", MinSimilarity: 2})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))
}

func TestWithoutEmbedder(t *testing.T) {
	svc := embedding.NewService(&config.Config{}, &memoryRepository{}, nil, nil, contenttest.NewResolver(), zerolog.Nop())

	report, err := svc.Backfill(context.Background(), 10, 3)
	require.NoError(t, err)
	assert.Zero(t, report.Candidates)

	_, err = svc.Search(context.Background(), "usr_alice", embedding.SearchParams{Query: "x", Scope: nil})
	// no scopes short-circuits before the provider is needed
	require.NoError(t, err)

	_, err = svc.Index(context.Background(), content.Target{Type: content.TargetPost, ID: "pst_1"})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotImplemented))
}
