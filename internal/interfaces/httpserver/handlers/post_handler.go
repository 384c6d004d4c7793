package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/huddlehq/huddle-server/internal/domain/post"
	"github.com/huddlehq/huddle-server/internal/interfaces/httpserver/requests"
	"github.com/huddlehq/huddle-server/internal/interfaces/httpserver/responses"
	"github.com/huddlehq/huddle-server/internal/utils/platformerrors"
)

// PostHandler serves channel posts and their thread comments.
type PostHandler struct {
	posts post.Service
	log   zerolog.Logger
}

func NewPostHandler(posts post.Service, log zerolog.Logger) *PostHandler {
	return &PostHandler{posts: posts, log: log.With().Str("handler", "post").Logger()}
}

// Create godoc
// @Summary      Create post
// @Tags         posts
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true   "Channel ID"
// @Param        request  body      requests.CreateContentRequest true   "Post body and attachments"
// @Success      201      {object}  post.Post
// @Failure      400      {object}  platformerrors.HTTPErrorResponse
// @Failure      401      {object}  platformerrors.HTTPErrorResponse
// @Failure      403      {object}  platformerrors.HTTPErrorResponse
// @Failure      404      {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /v1/channels/{id}/posts [post]
func (h *PostHandler) Create(c *gin.Context) {
	me, ok := caller(c)
	if !ok {
		return
	}
	var req requests.CreateContentRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.posts.CreatePost(c.Request.Context(), c.Param("id"), post.CreateParams{
		UserID:   me.ID,
		Content:  req.Content,
		FileIDs:  req.FileIDs,
		Metadata: req.Metadata,
	})
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// List godoc
// @Summary      List posts
// @Tags         posts
// @Produce      json
// @Param        id       path      string                      true   "Channel ID"
// @Param        limit    query     int                         false  "Page size (1-100)"
// @Param        cursor   query     string                      false  "Opaque cursor from the previous page"
// @Param        order    query     string                      false  "asc or desc"
// @Success      200      {object}  responses.ListResponse[post.Post]
// @Failure      400      {object}  platformerrors.HTTPErrorResponse
// @Failure      401      {object}  platformerrors.HTTPErrorResponse
// @Failure      404      {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /v1/channels/{id}/posts [get]
func (h *PostHandler) List(c *gin.Context) {
	me, ok := caller(c)
	if !ok {
		return
	}
	var q requests.PaginationQuery
	if !bindQuery(c, &q) {
		return
	}
	page, err := h.posts.ListPosts(c.Request.Context(), me.ID, c.Param("id"), q.Pagination())
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, responses.FromPage(page))
}

// Get godoc
// @Summary      Get post
// @Tags         posts
// @Produce      json
// @Param        id       path      string                      true   "Post ID"
// @Success      200      {object}  post.Post
// @Failure      401      {object}  platformerrors.HTTPErrorResponse
// @Failure      404      {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /v1/posts/{id} [get]
func (h *PostHandler) Get(c *gin.Context) {
	me, ok := caller(c)
	if !ok {
		return
	}
	p, err := h.posts.GetPost(c.Request.Context(), me.ID, c.Param("id"))
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Update godoc
// @Summary      Edit post
// @Tags         posts
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true   "Post ID"
// @Param        request  body      requests.UpdateContentRequest true   "New body"
// @Success      200      {object}  post.Post
// @Failure      400      {object}  platformerrors.HTTPErrorResponse
// @Failure      401      {object}  platformerrors.HTTPErrorResponse
// @Failure      403      {object}  platformerrors.HTTPErrorResponse
// @Failure      404      {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /v1/posts/{id} [patch]
func (h *PostHandler) Update(c *gin.Context) {
	me, ok := caller(c)
	if !ok {
		return
	}
	var req requests.UpdateContentRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.posts.UpdatePost(c.Request.Context(), me.ID, c.Param("id"), req.Content)
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Delete godoc
// @Summary      Delete post
// @Tags         posts
// @Produce      json
// @Param        id       path      string                      true   "Post ID"
// @Success      204
// @Failure      401      {object}  platformerrors.HTTPErrorResponse
// @Failure      403      {object}  platformerrors.HTTPErrorResponse
// @Failure      404      {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /v1/posts/{id} [delete]
func (h *PostHandler) Delete(c *gin.Context) {
	me, ok := caller(c)
	if !ok {
		return
	}
	if err := h.posts.DeletePost(c.Request.Context(), me.ID, c.Param("id")); err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.Status(http.StatusNoContent)
}

// CreateComment godoc
// @Summary      Reply in post thread
// @Tags         posts
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true   "Post ID"
// @Param        request  body      requests.CreateContentRequest true   "Comment body and attachments"
// @Success      201      {object}  post.Comment
// @Failure      400      {object}  platformerrors.HTTPErrorResponse
// @Failure      401      {object}  platformerrors.HTTPErrorResponse
// @Failure      404      {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /v1/posts/{id}/comments [post]
func (h *PostHandler) CreateComment(c *gin.Context) {
	me, ok := caller(c)
	if !ok {
		return
	}
	var req requests.CreateContentRequest
	if !bindJSON(c, &req) {
		return
	}
	comment, err := h.posts.CreateComment(c.Request.Context(), c.Param("id"), post.CreateParams{
		UserID:   me.ID,
		Content:  req.Content,
		FileIDs:  req.FileIDs,
		Metadata: req.Metadata,
	})
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// ListComments godoc
// @Summary      List post thread
// @Tags         posts
// @Produce      json
// @Param        id       path      string                      true   "Post ID"
// @Param        limit    query     int                         false  "Page size (1-100)"
// @Param        cursor   query     string                      false  "Opaque cursor from the previous page"
// @Param        order    query     string                      false  "asc or desc"
// @Success      200      {object}  responses.ListResponse[post.Comment]
// @Failure      400      {object}  platformerrors.HTTPErrorResponse
// @Failure      401      {object}  platformerrors.HTTPErrorResponse
// @Failure      404      {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /v1/posts/{id}/comments [get]
func (h *PostHandler) ListComments(c *gin.Context) {
	me, ok := caller(c)
	if !ok {
		return
	}
	var q requests.PaginationQuery
	if !bindQuery(c, &q) {
		return
	}
	page, err := h.posts.ListComments(c.Request.Context(), me.ID, c.Param("id"), q.Pagination())
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, responses.FromPage(page))
}

// UpdateComment godoc
// @Summary      Edit post comment
// @Tags         posts
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true   "Comment ID"
// @Param        request  body      requests.UpdateContentRequest true   "New body"
// @Success      200      {object}  post.Comment
// @Failure      400      {object}  platformerrors.HTTPErrorResponse
// @Failure      401      {object}  platformerrors.HTTPErrorResponse
// @Failure      403      {object}  platformerrors.HTTPErrorResponse
// @Failure      404      {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /v1/post-comments/{id} [patch]
func (h *PostHandler) UpdateComment(c *gin.Context) {
	me, ok := caller(c)
	if !ok {
		return
	}
	var req requests.UpdateContentRequest
	if !bindJSON(c, &req) {
		return
	}
	comment, err := h.posts.UpdateComment(c.Request.Context(), me.ID, c.Param("id"), req.Content)
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, comment)
}

// DeleteComment godoc
// @Summary      Delete post comment
// @Tags         posts
// @Produce      json
// @Param        id       path      string                      true   "Comment ID"
// @Success      204
// @Failure      401      {object}  platformerrors.HTTPErrorResponse
// @Failure      403      {object}  platformerrors.HTTPErrorResponse
// @Failure      404      {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /v1/post-comments/{id} [delete]
func (h *PostHandler) DeleteComment(c *gin.Context) {
	me, ok := caller(c)
	if !ok {
		return
	}
	if err := h.posts.DeleteComment(c.Request.Context(), me.ID, c.Param("id")); err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.Status(http.StatusNoContent)
}
