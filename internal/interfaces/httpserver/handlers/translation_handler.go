package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/huddlehq/huddle-server/internal/domain/translation"
	"github.com/huddlehq/huddle-server/internal/interfaces/httpserver/requests"
	"github.com/huddlehq/huddle-server/internal/interfaces/httpserver/responses"
	"github.com/huddlehq/huddle-server/internal/utils/platformerrors"
)

type TranslationHandler struct {
	translations translation.Service
	log          zerolog.Logger
}

func NewTranslationHandler(translations translation.Service, log zerolog.Logger) *TranslationHandler {
	return &TranslationHandler{translations: translations, log: log.With().Str("handler", "translation").Logger()}
}

// Translate godoc
// @Summary      Translate content
// @Tags         translations
// @Accept       json
// @Produce      json
// @Param        request  body      requests.TranslateRequest   true   "Target and language"
// @Success      200      {object}  translation.Translation
// @Failure      400      {object}  platformerrors.HTTPErrorResponse
// @Failure      401      {object}  platformerrors.HTTPErrorResponse
// @Failure      404      {object}  platformerrors.HTTPErrorResponse
// @Failure      503      {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /v1/translations [post]
func (h *TranslationHandler) Translate(c *gin.Context) {
	me, ok := caller(c)
	if !ok {
		return
	}
	var req requests.TranslateRequest
	if !bindJSON(c, &req) {
		return
	}
	t, err := h.translations.Translate(c.Request.Context(), me.ID, req.Target(), req.Language)
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, t)
}

// List godoc
// @Summary      List translations
// @Tags         translations
// @Produce      json
// @Param        target_type path      string                      true   "post, post_thread_comment, message or conversation_thread_comment"
// @Param        target_id path      string                      true   "Target ID"
// @Success      200      {object}  responses.DataResponse[translation.Translation]
// @Failure      400      {object}  platformerrors.HTTPErrorResponse
// @Failure      401      {object}  platformerrors.HTTPErrorResponse
// @Failure      404      {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /v1/translations/{target_type}/{target_id} [get]
func (h *TranslationHandler) List(c *gin.Context) {
	me, ok := caller(c)
	if !ok {
		return
	}
	var uri requests.TargetURI
	if !bindURI(c, &uri) {
		return
	}
	items, err := h.translations.ListForTarget(c.Request.Context(), me.ID, uri.Target())
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, responses.NewDataResponse(items))
}
