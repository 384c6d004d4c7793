package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/huddlehq/huddle-server/internal/domain/user"
	"github.com/huddlehq/huddle-server/internal/interfaces/httpserver/requests"
	"github.com/huddlehq/huddle-server/internal/interfaces/httpserver/responses"
	"github.com/huddlehq/huddle-server/internal/utils/platformerrors"
)

// UserHandler serves profile endpoints.
type UserHandler struct {
	users user.Service
	log   zerolog.Logger
}

func NewUserHandler(users user.Service, log zerolog.Logger) *UserHandler {
	return &UserHandler{users: users, log: log.With().Str("handler", "user").Logger()}
}

// GetMe godoc
// @Summary      Current user
// @Tags         users
// @Produce      json
// @Success      200      {object}  user.User
// @Failure      401      {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /v1/users/me [get]
func (h *UserHandler) GetMe(c *gin.Context) {
	me, ok := caller(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, me)
}

// UpdateMe godoc
// @Summary      Update profile
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        request  body      requests.UpdateMeRequest    true   "Profile fields"
// @Success      200      {object}  user.User
// @Failure      400      {object}  platformerrors.HTTPErrorResponse
// @Failure      401      {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /v1/users/me [patch]
func (h *UserHandler) UpdateMe(c *gin.Context) {
	me, ok := caller(c)
	if !ok {
		return
	}
	var req requests.UpdateMeRequest
	if !bindJSON(c, &req) {
		return
	}
	updated, err := h.users.UpdateProfile(c.Request.Context(), me.ID, user.ProfileUpdate{
		DisplayName:       req.DisplayName,
		AvatarFileID:      req.AvatarFileID,
		PreferredLanguage: req.PreferredLanguage,
	})
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// Get godoc
// @Summary      Get user
// @Tags         users
// @Produce      json
// @Param        id       path      string                      true   "User ID"
// @Success      200      {object}  user.User
// @Failure      401      {object}  platformerrors.HTTPErrorResponse
// @Failure      404      {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /v1/users/{id} [get]
func (h *UserHandler) Get(c *gin.Context) {
	u, err := h.users.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, u)
}

// Search godoc
// @Summary      Search users
// @Tags         users
// @Produce      json
// @Param        q        query     string                      false  "Name or email prefix"
// @Param        limit    query     int                         false  "Maximum results (1-100)"
// @Success      200      {object}  responses.DataResponse[user.User]
// @Failure      400      {object}  platformerrors.HTTPErrorResponse
// @Failure      401      {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /v1/users [get]
func (h *UserHandler) Search(c *gin.Context) {
	var q requests.SearchUsersQuery
	if !bindQuery(c, &q) {
		return
	}
	users, err := h.users.Search(c.Request.Context(), q.Query, q.Limit)
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, responses.NewDataResponse(users))
}
