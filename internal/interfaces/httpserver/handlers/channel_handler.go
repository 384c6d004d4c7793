package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/huddlehq/huddle-server/internal/domain/channel"
	"github.com/huddlehq/huddle-server/internal/interfaces/httpserver/requests"
	"github.com/huddlehq/huddle-server/internal/interfaces/httpserver/responses"
	"github.com/huddlehq/huddle-server/internal/utils/platformerrors"
)

// ChannelHandler serves channels and their memberships.
type ChannelHandler struct {
	channels channel.Service
	log      zerolog.Logger
}

func NewChannelHandler(channels channel.Service, log zerolog.Logger) *ChannelHandler {
	return &ChannelHandler{channels: channels, log: log.With().Str("handler", "channel").Logger()}
}

// Create godoc
// @Summary      Create channel
// @Tags         channels
// @Accept       json
// @Produce      json
// @Param        request  body      requests.CreateChannelRequest true   "Channel definition"
// @Success      201      {object}  channel.Channel
// @Failure      400      {object}  platformerrors.HTTPErrorResponse
// @Failure      401      {object}  platformerrors.HTTPErrorResponse
// @Failure      409      {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /v1/channels [post]
func (h *ChannelHandler) Create(c *gin.Context) {
	me, ok := caller(c)
	if !ok {
		return
	}
	var req requests.CreateChannelRequest
	if !bindJSON(c, &req) {
		return
	}
	ch, err := h.channels.Create(c.Request.Context(), me.ID, channel.CreateParams{
		Name:      req.Name,
		Topic:     req.Topic,
		IsPrivate: req.IsPrivate,
	})
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusCreated, ch)
}

// List godoc
// @Summary      List channels
// @Tags         channels
// @Produce      json
// @Param        joined   query     bool                        false  "Only channels the caller joined"
// @Param        include_archived query     bool                        false  "Include archived channels"
// @Param        limit    query     int                         false  "Page size (1-100)"
// @Param        cursor   query     string                      false  "Opaque cursor from the previous page"
// @Param        order    query     string                      false  "asc or desc"
// @Success      200      {object}  responses.ListResponse[channel.Channel]
// @Failure      400      {object}  platformerrors.HTTPErrorResponse
// @Failure      401      {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /v1/channels [get]
func (h *ChannelHandler) List(c *gin.Context) {
	me, ok := caller(c)
	if !ok {
		return
	}
	var q requests.ListChannelsQuery
	if !bindQuery(c, &q) {
		return
	}
	page, err := h.channels.List(c.Request.Context(), channel.ListFilter{
		UserID:          me.ID,
		OnlyJoined:      q.Joined,
		IncludeArchived: q.IncludeArchived,
	}, q.Pagination())
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, responses.FromPage(page))
}

// Get godoc
// @Summary      Get channel
// @Tags         channels
// @Produce      json
// @Param        id       path      string                      true   "Channel ID"
// @Success      200      {object}  channel.Channel
// @Failure      401      {object}  platformerrors.HTTPErrorResponse
// @Failure      404      {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /v1/channels/{id} [get]
func (h *ChannelHandler) Get(c *gin.Context) {
	me, ok := caller(c)
	if !ok {
		return
	}
	ch, err := h.channels.Get(c.Request.Context(), me.ID, c.Param("id"))
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, ch)
}

// Update godoc
// @Summary      Update channel
// @Description  Archiving is a field of the same patch.
// @Tags         channels
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true   "Channel ID"
// @Param        request  body      requests.UpdateChannelRequest true   "Fields to change, including archived"
// @Success      200      {object}  channel.Channel
// @Failure      400      {object}  platformerrors.HTTPErrorResponse
// @Failure      401      {object}  platformerrors.HTTPErrorResponse
// @Failure      403      {object}  platformerrors.HTTPErrorResponse
// @Failure      404      {object}  platformerrors.HTTPErrorResponse
// @Failure      409      {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /v1/channels/{id} [patch]
func (h *ChannelHandler) Update(c *gin.Context) {
	me, ok := caller(c)
	if !ok {
		return
	}
	var req requests.UpdateChannelRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	id := c.Param("id")

	var (
		ch  *channel.Channel
		err error
	)
	if req.Name != nil || req.Topic != nil || req.IsPrivate != nil {
		ch, err = h.channels.Update(ctx, me.ID, id, channel.Update{
			Name:      req.Name,
			Topic:     req.Topic,
			IsPrivate: req.IsPrivate,
		})
		if err != nil {
			platformerrors.WriteError(c, err, h.log)
			return
		}
	}
	if req.Archived != nil {
		ch, err = h.channels.SetArchived(ctx, me.ID, id, *req.Archived)
		if err != nil {
			platformerrors.WriteError(c, err, h.log)
			return
		}
	}
	if ch == nil {
		platformerrors.WriteValidationError(c, "nothing to update")
		return
	}
	c.JSON(http.StatusOK, ch)
}

// Delete godoc
// @Summary      Delete channel
// @Tags         channels
// @Produce      json
// @Param        id       path      string                      true   "Channel ID"
// @Success      204
// @Failure      401      {object}  platformerrors.HTTPErrorResponse
// @Failure      403      {object}  platformerrors.HTTPErrorResponse
// @Failure      404      {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /v1/channels/{id} [delete]
func (h *ChannelHandler) Delete(c *gin.Context) {
	me, ok := caller(c)
	if !ok {
		return
	}
	if err := h.channels.Delete(c.Request.Context(), me.ID, c.Param("id")); err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.Status(http.StatusNoContent)
}

// Join godoc
// @Summary      Join channel
// @Tags         channels
// @Produce      json
// @Param        id       path      string                      true   "Channel ID"
// @Success      200      {object}  channel.Member
// @Failure      401      {object}  platformerrors.HTTPErrorResponse
// @Failure      403      {object}  platformerrors.HTTPErrorResponse
// @Failure      404      {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /v1/channels/{id}/join [post]
func (h *ChannelHandler) Join(c *gin.Context) {
	me, ok := caller(c)
	if !ok {
		return
	}
	member, err := h.channels.Join(c.Request.Context(), me.ID, c.Param("id"))
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, member)
}

// Leave godoc
// @Summary      Leave channel
// @Tags         channels
// @Produce      json
// @Param        id       path      string                      true   "Channel ID"
// @Success      204
// @Failure      401      {object}  platformerrors.HTTPErrorResponse
// @Failure      404      {object}  platformerrors.HTTPErrorResponse
// @Failure      409      {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /v1/channels/{id}/leave [post]
func (h *ChannelHandler) Leave(c *gin.Context) {
	me, ok := caller(c)
	if !ok {
		return
	}
	if err := h.channels.Leave(c.Request.Context(), me.ID, c.Param("id")); err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.Status(http.StatusNoContent)
}

// MarkRead godoc
// @Summary      Mark channel read
// @Tags         channels
// @Produce      json
// @Param        id       path      string                      true   "Channel ID"
// @Success      204
// @Failure      401      {object}  platformerrors.HTTPErrorResponse
// @Failure      404      {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /v1/channels/{id}/read [post]
func (h *ChannelHandler) MarkRead(c *gin.Context) {
	me, ok := caller(c)
	if !ok {
		return
	}
	if err := h.channels.MarkRead(c.Request.Context(), me.ID, c.Param("id")); err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListMembers godoc
// @Summary      List channel members
// @Tags         channels
// @Produce      json
// @Param        id       path      string                      true   "Channel ID"
// @Param        limit    query     int                         false  "Page size (1-100)"
// @Param        cursor   query     string                      false  "Opaque cursor from the previous page"
// @Param        order    query     string                      false  "asc or desc"
// @Success      200      {object}  responses.ListResponse[channel.Member]
// @Failure      400      {object}  platformerrors.HTTPErrorResponse
// @Failure      401      {object}  platformerrors.HTTPErrorResponse
// @Failure      404      {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /v1/channels/{id}/members [get]
func (h *ChannelHandler) ListMembers(c *gin.Context) {
	me, ok := caller(c)
	if !ok {
		return
	}
	var q requests.PaginationQuery
	if !bindQuery(c, &q) {
		return
	}
	page, err := h.channels.ListMembers(c.Request.Context(), me.ID, c.Param("id"), q.Pagination())
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, responses.FromPage(page))
}

// AddMember godoc
// @Summary      Add channel member
// @Tags         channels
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true   "Channel ID"
// @Param        request  body      requests.AddMemberRequest   true   "Member to add"
// @Success      201      {object}  channel.Member
// @Failure      400      {object}  platformerrors.HTTPErrorResponse
// @Failure      401      {object}  platformerrors.HTTPErrorResponse
// @Failure      403      {object}  platformerrors.HTTPErrorResponse
// @Failure      404      {object}  platformerrors.HTTPErrorResponse
// @Failure      409      {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /v1/channels/{id}/members [post]
func (h *ChannelHandler) AddMember(c *gin.Context) {
	me, ok := caller(c)
	if !ok {
		return
	}
	var req requests.AddMemberRequest
	if !bindJSON(c, &req) {
		return
	}
	role := channel.RoleMember
	if req.Role != "" {
		role, _ = channel.ParseRole(req.Role)
	}
	member, err := h.channels.AddMember(c.Request.Context(), me.ID, c.Param("id"), req.UserID, role)
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusCreated, member)
}

// UpdateMember godoc
// @Summary      Change member role
// @Tags         channels
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true   "Channel ID"
// @Param        user_id  path      string                      true   "Member user ID"
// @Param        request  body      requests.UpdateMemberRequest true   "New role"
// @Success      200      {object}  channel.Member
// @Failure      400      {object}  platformerrors.HTTPErrorResponse
// @Failure      401      {object}  platformerrors.HTTPErrorResponse
// @Failure      403      {object}  platformerrors.HTTPErrorResponse
// @Failure      404      {object}  platformerrors.HTTPErrorResponse
// @Failure      409      {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /v1/channels/{id}/members/{user_id} [patch]
func (h *ChannelHandler) UpdateMember(c *gin.Context) {
	me, ok := caller(c)
	if !ok {
		return
	}
	var req requests.UpdateMemberRequest
	if !bindJSON(c, &req) {
		return
	}
	role, _ := channel.ParseRole(req.Role)
	member, err := h.channels.UpdateMemberRole(c.Request.Context(), me.ID, c.Param("id"), c.Param("user_id"), role)
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, member)
}

// RemoveMember godoc
// @Summary      Remove channel member
// @Tags         channels
// @Produce      json
// @Param        id       path      string                      true   "Channel ID"
// @Param        user_id  path      string                      true   "Member user ID"
// @Success      204
// @Failure      401      {object}  platformerrors.HTTPErrorResponse
// @Failure      403      {object}  platformerrors.HTTPErrorResponse
// @Failure      404      {object}  platformerrors.HTTPErrorResponse
// @Failure      409      {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /v1/channels/{id}/members/{user_id} [delete]
func (h *ChannelHandler) RemoveMember(c *gin.Context) {
	me, ok := caller(c)
	if !ok {
		return
	}
	if err := h.channels.RemoveMember(c.Request.Context(), me.ID, c.Param("id"), c.Param("user_id")); err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.Status(http.StatusNoContent)
}
