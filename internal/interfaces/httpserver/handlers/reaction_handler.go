package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/huddlehq/huddle-server/internal/domain/reaction"
	"github.com/huddlehq/huddle-server/internal/interfaces/httpserver/requests"
	"github.com/huddlehq/huddle-server/internal/interfaces/httpserver/responses"
	"github.com/huddlehq/huddle-server/internal/utils/platformerrors"
)

// ReactionHandler serves emoji reactions on any content target.
type ReactionHandler struct {
	reactions reaction.Service
	log       zerolog.Logger
}

func NewReactionHandler(reactions reaction.Service, log zerolog.Logger) *ReactionHandler {
	return &ReactionHandler{reactions: reactions, log: log.With().Str("handler", "reaction").Logger()}
}

// List godoc
// @Summary      List reactions
// @Tags         reactions
// @Produce      json
// @Param        target_type path      string                      true   "post, post_thread_comment, message or conversation_thread_comment"
// @Param        target_id path      string                      true   "Target ID"
// @Success      200      {object}  responses.DataResponse[reaction.Summary]
// @Failure      400      {object}  platformerrors.HTTPErrorResponse
// @Failure      401      {object}  platformerrors.HTTPErrorResponse
// @Failure      404      {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /v1/reactions/{target_type}/{target_id} [get]
func (h *ReactionHandler) List(c *gin.Context) {
	me, ok := caller(c)
	if !ok {
		return
	}
	var uri requests.TargetURI
	if !bindURI(c, &uri) {
		return
	}
	summary, err := h.reactions.List(c.Request.Context(), me.ID, uri.Target())
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, responses.NewDataResponse(summary))
}

// React godoc
// @Summary      Add or toggle reaction
// @Description  The default action toggles.
// @Tags         reactions
// @Accept       json
// @Produce      json
// @Param        target_type path      string                      true   "post, post_thread_comment, message or conversation_thread_comment"
// @Param        target_id path      string                      true   "Target ID"
// @Param        request  body      requests.ReactionRequest    true   "Emoji and action"
// @Success      200      {object}  reaction.ToggleResult
// @Failure      400      {object}  platformerrors.HTTPErrorResponse
// @Failure      401      {object}  platformerrors.HTTPErrorResponse
// @Failure      404      {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /v1/reactions/{target_type}/{target_id} [post]
func (h *ReactionHandler) React(c *gin.Context) {
	me, ok := caller(c)
	if !ok {
		return
	}
	var uri requests.TargetURI
	if !bindURI(c, &uri) {
		return
	}
	var req requests.ReactionRequest
	if !bindJSON(c, &req) {
		return
	}

	if req.Action == "add" {
		summary, err := h.reactions.Add(c.Request.Context(), me.ID, uri.Target(), req.Emoji)
		if err != nil {
			platformerrors.WriteError(c, err, h.log)
			return
		}
		c.JSON(http.StatusOK, responses.NewDataResponse(summary))
		return
	}

	result, err := h.reactions.Toggle(c.Request.Context(), me.ID, uri.Target(), req.Emoji)
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Remove godoc
// @Summary      Remove reaction
// @Tags         reactions
// @Produce      json
// @Param        target_type path      string                      true   "post, post_thread_comment, message or conversation_thread_comment"
// @Param        target_id path      string                      true   "Target ID"
// @Param        emoji    path      string                      true   "Emoji to remove"
// @Success      200      {object}  responses.DataResponse[reaction.Summary]
// @Failure      400      {object}  platformerrors.HTTPErrorResponse
// @Failure      401      {object}  platformerrors.HTTPErrorResponse
// @Failure      404      {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /v1/reactions/{target_type}/{target_id}/{emoji} [delete]
func (h *ReactionHandler) Remove(c *gin.Context) {
	me, ok := caller(c)
	if !ok {
		return
	}
	var uri requests.TargetURI
	if !bindURI(c, &uri) {
		return
	}
	emoji, valid := reaction.NormalizeEmoji(c.Param("emoji"))
	if !valid {
		platformerrors.WriteValidationError(c, "invalid emoji")
		return
	}
	summary, err := h.reactions.Remove(c.Request.Context(), me.ID, uri.Target(), emoji)
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, responses.NewDataResponse(summary))
}
