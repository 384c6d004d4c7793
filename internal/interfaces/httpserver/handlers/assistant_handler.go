package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/huddlehq/huddle-server/internal/domain/assistant"
	"github.com/huddlehq/huddle-server/internal/domain/embedding"
	"github.com/huddlehq/huddle-server/internal/interfaces/httpserver/requests"
	"github.com/huddlehq/huddle-server/internal/interfaces/httpserver/responses"
	"github.com/huddlehq/huddle-server/internal/utils/platformerrors"
)

// AssistantHandler serves the AI endpoints: replies, summaries and semantic search.
type AssistantHandler struct {
	assistant  assistant.Service
	embeddings embedding.Service
	log        zerolog.Logger
}

func NewAssistantHandler(assistantService assistant.Service, embeddings embedding.Service, log zerolog.Logger) *AssistantHandler {
	return &AssistantHandler{
		assistant:  assistantService,
		embeddings: embeddings,
		log:        log.With().Str("handler", "assistant").Logger(),
	}
}

// Respond godoc
// @Summary      Ask the assistant
// @Tags         assistant
// @Accept       json
// @Produce      json
// @Param        request  body      requests.RespondRequest     true   "Question and optional scope"
// @Success      201      {object}  assistant.Reply
// @Failure      400      {object}  platformerrors.HTTPErrorResponse
// @Failure      401      {object}  platformerrors.HTTPErrorResponse
// @Failure      403      {object}  platformerrors.HTTPErrorResponse
// @Failure      404      {object}  platformerrors.HTTPErrorResponse
// @Failure      503      {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /v1/assistant/respond [post]
func (h *AssistantHandler) Respond(c *gin.Context) {
	me, ok := caller(c)
	if !ok {
		return
	}
	var req requests.RespondRequest
	if !bindJSON(c, &req) {
		return
	}
	reply, err := h.assistant.Respond(c.Request.Context(), me.ID, assistant.RespondParams{
		Scope:    req.Scope(),
		ParentID: req.ParentID,
		Prompt:   req.Prompt,
	})
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusCreated, reply)
}

// Summarize godoc
// @Summary      Summarize a scope
// @Tags         assistant
// @Accept       json
// @Produce      json
// @Param        request  body      requests.SummarizeRequest   true   "Scope to summarize"
// @Success      200      {object}  assistant.Summary
// @Failure      400      {object}  platformerrors.HTTPErrorResponse
// @Failure      401      {object}  platformerrors.HTTPErrorResponse
// @Failure      403      {object}  platformerrors.HTTPErrorResponse
// @Failure      404      {object}  platformerrors.HTTPErrorResponse
// @Failure      503      {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /v1/assistant/summarize [post]
func (h *AssistantHandler) Summarize(c *gin.Context) {
	me, ok := caller(c)
	if !ok {
		return
	}
	var req requests.SummarizeRequest
	if !bindJSON(c, &req) {
		return
	}
	summary, err := h.assistant.Summarize(c.Request.Context(), me.ID, assistant.SummarizeParams{
		Scope:    req.Scope(),
		ParentID: req.ParentID,
	})
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Search godoc
// @Summary      Semantic search
// @Tags         assistant
// @Produce      json
// @Param        q        query     string                      true   "Search text"
// @Param        limit    query     int                         false  "Maximum matches (1-50)"
// @Param        min_similarity query     number                      false  "Similarity floor between 0 and 1"
// @Param        scope_type query     string                      false  "channel or conversation"
// @Param        scope_id query     string                      false  "Scope ID"
// @Success      200      {object}  responses.DataResponse[embedding.Match]
// @Failure      400      {object}  platformerrors.HTTPErrorResponse
// @Failure      401      {object}  platformerrors.HTTPErrorResponse
// @Failure      403      {object}  platformerrors.HTTPErrorResponse
// @Failure      503      {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /v1/search [get]
func (h *AssistantHandler) Search(c *gin.Context) {
	me, ok := caller(c)
	if !ok {
		return
	}
	var q requests.SearchQuery
	if !bindQuery(c, &q) {
		return
	}
	matches, err := h.embeddings.Search(c.Request.Context(), me.ID, embedding.SearchParams{
		Query:         q.Query,
		Limit:         q.Limit,
		MinSimilarity: q.MinSimilarity,
		Scope:         q.Scope(),
	})
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, responses.NewDataResponse(matches))
}
