package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/huddlehq/huddle-server/internal/domain/presence"
	"github.com/huddlehq/huddle-server/internal/interfaces/httpserver/requests"
	"github.com/huddlehq/huddle-server/internal/interfaces/httpserver/responses"
	"github.com/huddlehq/huddle-server/internal/utils/platformerrors"
)

type PresenceHandler struct {
	presence presence.Service
	log      zerolog.Logger
}

func NewPresenceHandler(presenceService presence.Service, log zerolog.Logger) *PresenceHandler {
	return &PresenceHandler{presence: presenceService, log: log.With().Str("handler", "presence").Logger()}
}

// Heartbeat godoc
// @Summary      Presence heartbeat
// @Tags         presence
// @Produce      json
// @Success      200      {object}  presence.Presence
// @Failure      401      {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /v1/presence/heartbeat [post]
func (h *PresenceHandler) Heartbeat(c *gin.Context) {
	me, ok := caller(c)
	if !ok {
		return
	}
	p, err := h.presence.Heartbeat(c.Request.Context(), me.ID)
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, p)
}

// SetStatus godoc
// @Summary      Set presence status
// @Tags         presence
// @Accept       json
// @Produce      json
// @Param        request  body      requests.SetPresenceRequest true   "Status and optional message"
// @Success      200      {object}  presence.Presence
// @Failure      400      {object}  platformerrors.HTTPErrorResponse
// @Failure      401      {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /v1/presence [put]
func (h *PresenceHandler) SetStatus(c *gin.Context) {
	me, ok := caller(c)
	if !ok {
		return
	}
	var req requests.SetPresenceRequest
	if !bindJSON(c, &req) {
		return
	}
	status, err := presence.ParseStatus(req.Status)
	if err != nil {
		platformerrors.WriteValidationError(c, err.Error())
		return
	}
	p, err := h.presence.SetStatus(c.Request.Context(), me.ID, status, req.StatusText)
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Get godoc
// @Summary      Get presence
// @Tags         presence
// @Produce      json
// @Param        user_ids query     string                      true   "Comma-separated user IDs"
// @Success      200      {object}  responses.DataResponse[presence.Presence]
// @Failure      400      {object}  platformerrors.HTTPErrorResponse
// @Failure      401      {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /v1/presence [get]
func (h *PresenceHandler) Get(c *gin.Context) {
	if _, ok := caller(c); !ok {
		return
	}
	var ids []string
	for _, raw := range c.QueryArray("user_ids") {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	if len(ids) == 0 {
		platformerrors.WriteValidationError(c, "user_ids is required")
		return
	}
	if len(ids) > presence.MaxLookup {
		platformerrors.WriteValidationError(c, "too many user_ids")
		return
	}
	rows, err := h.presence.Get(c.Request.Context(), ids)
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, responses.NewDataResponse(rows))
}

// ListForChannel godoc
// @Summary      Channel presence
// @Tags         presence
// @Produce      json
// @Param        id       path      string                      true   "Channel ID"
// @Success      200      {object}  responses.DataResponse[presence.Presence]
// @Failure      401      {object}  platformerrors.HTTPErrorResponse
// @Failure      404      {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /v1/channels/{id}/presence [get]
func (h *PresenceHandler) ListForChannel(c *gin.Context) {
	me, ok := caller(c)
	if !ok {
		return
	}
	rows, err := h.presence.ListForChannel(c.Request.Context(), me.ID, c.Param("id"))
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, responses.NewDataResponse(rows))
}
