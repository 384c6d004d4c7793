package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/huddlehq/huddle-server/internal/domain/content"
)

// Status of a stored embedding.
type Status string

const (
	StatusReady  Status = "ready"
	StatusFailed Status = "failed"
)

// Embedding is the vector of one piece of content.
type Embedding struct {
	ID          string             `json:"id"`
	TargetType  content.TargetType `json:"target_type"`
	TargetID    string             `json:"target_id"`
	ScopeType   content.ScopeType  `json:"scope_type"`
	ScopeID     string             `json:"scope_id"`
	Model       string             `json:"model"`
	ContentHash string             `json:"content_hash"`
	Vector      []float32          `json:"-"`
	Status      Status             `json:"status"`
	Error       string             `json:"error,omitempty"`
	Attempts    int                `json:"attempts"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// Hit is a raw nearest-neighbour row.
type Hit struct {
	Target     content.Target
	Scope      content.Scope
	Similarity float64
}

// Match is a search result with its text.
type Match struct {
	content.Target
	Scope      content.Scope `json:"scope"`
	ParentID   string        `json:"parent_id,omitempty"`
	AuthorID   string        `json:"author_id"`
	Text       string        `json:"text"`
	Similarity float64       `json:"similarity"`
	CreatedAt  time.Time     `json:"created_at"`
}

// SearchParams narrows a semantic search.
type SearchParams struct {
	Query         string
	Limit         int
	MinSimilarity float64
	Scope         *content.Scope
}

// BackfillReport summarizes one backfill run.
type BackfillReport struct {
	Candidates int    `json:"candidates"`
	Embedded   int    `json:"embedded"`
	Failed     int    `json:"failed"`
	Model      string `json:"model"`
}

// ContentHash fingerprints embedded text. It must agree with the SQL used to find stale rows.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Embedder turns texts into vectors, one per input, in order.
type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
	Model() string
}

// VectorCache keeps query vectors in memory.
type VectorCache interface {
	Get(key string) ([]float32, bool)
	Set(key string, vector []float32, ttl time.Duration)
}

// Repository persists embeddings and runs similarity queries.
type Repository interface {
	UpsertReady(ctx context.Context, rows []*Embedding) error
	// MarkFailed records the error and increments attempts for every item.
	MarkFailed(ctx context.Context, items []content.Item, model, message string) error
	Search(ctx context.Context, vector []float32, scopes []content.Scope, limit int, minSimilarity float64) ([]Hit, error)
	// Candidates returns non-empty content without a ready embedding for model and dimensions or whose
	// text changed, skipping rows that already failed maxAttempts times. dimensions <= 0 matches any size.
	Candidates(ctx context.Context, model string, dimensions, maxAttempts, limit int) ([]content.Item, error)
}
