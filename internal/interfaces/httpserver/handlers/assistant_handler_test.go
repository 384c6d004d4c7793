package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huddlehq/huddle-server/internal/domain/assistant"
	"github.com/huddlehq/huddle-server/internal/domain/content"
	"github.com/huddlehq/huddle-server/internal/domain/embedding"
	"github.com/huddlehq/huddle-server/internal/interfaces/httpserver/handlers"
	"github.com/huddlehq/huddle-server/internal/utils/platformerrors"
)

func TestAssistantHandler_Respond(t *testing.T) {
	var params assistant.RespondParams
	svc := &MockAssistantService{RespondFunc: func(_ context.Context, userID string, p assistant.RespondParams) (*assistant.Reply, error) {
		params = p
		return &assistant.Reply{
			Target:   content.Target{Type: content.TargetPostThreadComment, ID: "cmt_9"},
			Scope:    p.Scope,
			ParentID: p.ParentID,
			AuthorID: "usr_assistant",
			Text:     "Sure.",
		}, nil
	}}
	h := handlers.NewAssistantHandler(svc, &MockEmbeddingService{}, zerolog.Nop())
	router := newRouter(http.MethodPost, "/v1/assistant/respond", h.Respond)

	w := postJSON(router, "/v1/assistant/respond", `{"scope_type":"channel","scope_id":"chn_1","parent_id":"pst_1","prompt":"help"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, content.Scope{Type: content.ScopeChannel, ID: "chn_1"}, params.Scope)
	assert.Equal(t, "pst_1", params.ParentID)
	assert.Contains(t, w.Body.String(), `"target_id":"cmt_9"`)

	w = postJSON(router, "/v1/assistant/respond", `{"scope_type":"team","scope_id":"x","prompt":"help"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAssistantHandler_SummarizeEmptyCompletion(t *testing.T) {
	svc := &MockAssistantService{SummarizeFunc: func(ctx context.Context, _ string, _ assistant.SummarizeParams) (*assistant.Summary, error) {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeExternal, "empty completion", nil, "test")
	}}
	h := handlers.NewAssistantHandler(svc, &MockEmbeddingService{}, zerolog.Nop())
	router := newRouter(http.MethodPost, "/v1/assistant/summarize", h.Summarize)

	w := postJSON(router, "/v1/assistant/summarize", `{"scope_type":"conversation","scope_id":"cnv_1"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "empty completion")
}

func TestAssistantHandler_Search(t *testing.T) {
	var params embedding.SearchParams
	emb := &MockEmbeddingService{SearchFunc: func(_ context.Context, _ string, p embedding.SearchParams) ([]embedding.Match, error) {
		params = p
		return []embedding.Match{{Text: "deploy notes", Similarity: 0.91}}, nil
	}}
	h := handlers.NewAssistantHandler(&MockAssistantService{}, emb, zerolog.Nop())
	router := newRouter(http.MethodGet, "/v1/search", h.Search)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/search?q=deploy&limit=3&min_similarity=0.5&scope_type=channel&scope_id=chn_1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "deploy", params.Query)
	assert.Equal(t, 3, params.Limit)
	assert.InDelta(t, 0.5, params.MinSimilarity, 1e-9)
	require.NotNil(t, params.Scope)
	assert.Equal(t, "chn_1", params.Scope.ID)
	assert.Contains(t, w.Body.String(), "deploy notes")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/search", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/search?q=x&scope_type=channel", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
