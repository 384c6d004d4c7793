package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/huddlehq/huddle-server/internal/domain/conversation"
	"github.com/huddlehq/huddle-server/internal/interfaces/httpserver/requests"
	"github.com/huddlehq/huddle-server/internal/interfaces/httpserver/responses"
	"github.com/huddlehq/huddle-server/internal/utils/platformerrors"
)

// ConversationHandler serves direct and group conversations, their messages and thread comments.
type ConversationHandler struct {
	conversations conversation.Service
	log           zerolog.Logger
}

func NewConversationHandler(conversations conversation.Service, log zerolog.Logger) *ConversationHandler {
	return &ConversationHandler{conversations: conversations, log: log.With().Str("handler", "conversation").Logger()}
}

// Create godoc
// @Summary      Start conversation
// @Description  An existing direct conversation is returned with 200.
// @Tags         conversations
// @Accept       json
// @Produce      json
// @Param        request  body      requests.CreateConversationRequest true   "Participants and optional title"
// @Success      201      {object}  responses.ConversationResponse
// @Failure      400      {object}  platformerrors.HTTPErrorResponse
// @Failure      401      {object}  platformerrors.HTTPErrorResponse
// @Failure      404      {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /v1/conversations [post]
func (h *ConversationHandler) Create(c *gin.Context) {
	me, ok := caller(c)
	if !ok {
		return
	}
	var req requests.CreateConversationRequest
	if !bindJSON(c, &req) {
		return
	}
	conv, created, err := h.conversations.Create(c.Request.Context(), me.ID, conversation.CreateConversationParams{
		UserIDs: req.UserIDs,
		Title:   req.Title,
		IsGroup: req.IsGroup,
	})
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, responses.ConversationResponse{Conversation: conv, Created: created})
}

// List godoc
// @Summary      List conversations
// @Tags         conversations
// @Produce      json
// @Param        limit    query     int                         false  "Page size (1-100)"
// @Param        cursor   query     string                      false  "Opaque cursor from the previous page"
// @Param        order    query     string                      false  "asc or desc"
// @Success      200      {object}  responses.ListResponse[conversation.Conversation]
// @Failure      400      {object}  platformerrors.HTTPErrorResponse
// @Failure      401      {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /v1/conversations [get]
func (h *ConversationHandler) List(c *gin.Context) {
	me, ok := caller(c)
	if !ok {
		return
	}
	var q requests.PaginationQuery
	if !bindQuery(c, &q) {
		return
	}
	page, err := h.conversations.List(c.Request.Context(), me.ID, q.Pagination())
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, responses.FromPage(page))
}

// Get godoc
// @Summary      Get conversation
// @Tags         conversations
// @Produce      json
// @Param        id       path      string                      true   "Conversation ID"
// @Success      200      {object}  conversation.Conversation
// @Failure      401      {object}  platformerrors.HTTPErrorResponse
// @Failure      404      {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /v1/conversations/{id} [get]
func (h *ConversationHandler) Get(c *gin.Context) {
	me, ok := caller(c)
	if !ok {
		return
	}
	conv, err := h.conversations.Get(c.Request.Context(), me.ID, c.Param("id"))
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, conv)
}

// AddParticipant godoc
// @Summary      Add participant
// @Tags         conversations
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true   "Conversation ID"
// @Param        request  body      requests.AddParticipantRequest true   "User to add"
// @Success      201      {object}  conversation.Participant
// @Failure      400      {object}  platformerrors.HTTPErrorResponse
// @Failure      401      {object}  platformerrors.HTTPErrorResponse
// @Failure      404      {object}  platformerrors.HTTPErrorResponse
// @Failure      409      {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /v1/conversations/{id}/participants [post]
func (h *ConversationHandler) AddParticipant(c *gin.Context) {
	me, ok := caller(c)
	if !ok {
		return
	}
	var req requests.AddParticipantRequest
	if !bindJSON(c, &req) {
		return
	}
	participant, err := h.conversations.AddParticipant(c.Request.Context(), me.ID, c.Param("id"), req.UserID)
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusCreated, participant)
}

// Leave godoc
// @Summary      Leave conversation
// @Tags         conversations
// @Produce      json
// @Param        id       path      string                      true   "Conversation ID"
// @Success      204
// @Failure      401      {object}  platformerrors.HTTPErrorResponse
// @Failure      404      {object}  platformerrors.HTTPErrorResponse
// @Failure      409      {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /v1/conversations/{id}/leave [post]
func (h *ConversationHandler) Leave(c *gin.Context) {
	me, ok := caller(c)
	if !ok {
		return
	}
	if err := h.conversations.Leave(c.Request.Context(), me.ID, c.Param("id")); err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.Status(http.StatusNoContent)
}

// MarkRead godoc
// @Summary      Mark conversation read
// @Tags         conversations
// @Produce      json
// @Param        id       path      string                      true   "Conversation ID"
// @Success      204
// @Failure      401      {object}  platformerrors.HTTPErrorResponse
// @Failure      404      {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /v1/conversations/{id}/read [post]
func (h *ConversationHandler) MarkRead(c *gin.Context) {
	me, ok := caller(c)
	if !ok {
		return
	}
	if err := h.conversations.MarkRead(c.Request.Context(), me.ID, c.Param("id")); err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.Status(http.StatusNoContent)
}

// CreateMessage godoc
// @Summary      Send message
// @Tags         messages
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true   "Conversation ID"
// @Param        request  body      requests.CreateContentRequest true   "Message body and attachments"
// @Success      201      {object}  conversation.Message
// @Failure      400      {object}  platformerrors.HTTPErrorResponse
// @Failure      401      {object}  platformerrors.HTTPErrorResponse
// @Failure      404      {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /v1/conversations/{id}/messages [post]
func (h *ConversationHandler) CreateMessage(c *gin.Context) {
	me, ok := caller(c)
	if !ok {
		return
	}
	var req requests.CreateContentRequest
	if !bindJSON(c, &req) {
		return
	}
	msg, err := h.conversations.CreateMessage(c.Request.Context(), c.Param("id"), conversation.CreateParams{
		UserID:   me.ID,
		Content:  req.Content,
		FileIDs:  req.FileIDs,
		Metadata: req.Metadata,
	})
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// ListMessages godoc
// @Summary      List messages
// @Tags         messages
// @Produce      json
// @Param        id       path      string                      true   "Conversation ID"
// @Param        limit    query     int                         false  "Page size (1-100)"
// @Param        cursor   query     string                      false  "Opaque cursor from the previous page"
// @Param        order    query     string                      false  "asc or desc"
// @Success      200      {object}  responses.ListResponse[conversation.Message]
// @Failure      400      {object}  platformerrors.HTTPErrorResponse
// @Failure      401      {object}  platformerrors.HTTPErrorResponse
// @Failure      404      {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /v1/conversations/{id}/messages [get]
func (h *ConversationHandler) ListMessages(c *gin.Context) {
	me, ok := caller(c)
	if !ok {
		return
	}
	var q requests.PaginationQuery
	if !bindQuery(c, &q) {
		return
	}
	page, err := h.conversations.ListMessages(c.Request.Context(), me.ID, c.Param("id"), q.Pagination())
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, responses.FromPage(page))
}

// GetMessage godoc
// @Summary      Get message
// @Tags         messages
// @Produce      json
// @Param        id       path      string                      true   "Message ID"
// @Success      200      {object}  conversation.Message
// @Failure      401      {object}  platformerrors.HTTPErrorResponse
// @Failure      404      {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /v1/messages/{id} [get]
func (h *ConversationHandler) GetMessage(c *gin.Context) {
	me, ok := caller(c)
	if !ok {
		return
	}
	msg, err := h.conversations.GetMessage(c.Request.Context(), me.ID, c.Param("id"))
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, msg)
}

// UpdateMessage godoc
// @Summary      Edit message
// @Tags         messages
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true   "Message ID"
// @Param        request  body      requests.UpdateContentRequest true   "New body"
// @Success      200      {object}  conversation.Message
// @Failure      400      {object}  platformerrors.HTTPErrorResponse
// @Failure      401      {object}  platformerrors.HTTPErrorResponse
// @Failure      403      {object}  platformerrors.HTTPErrorResponse
// @Failure      404      {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /v1/messages/{id} [patch]
func (h *ConversationHandler) UpdateMessage(c *gin.Context) {
	me, ok := caller(c)
	if !ok {
		return
	}
	var req requests.UpdateContentRequest
	if !bindJSON(c, &req) {
		return
	}
	msg, err := h.conversations.UpdateMessage(c.Request.Context(), me.ID, c.Param("id"), req.Content)
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, msg)
}

// DeleteMessage godoc
// @Summary      Delete message
// @Tags         messages
// @Produce      json
// @Param        id       path      string                      true   "Message ID"
// @Success      204
// @Failure      401      {object}  platformerrors.HTTPErrorResponse
// @Failure      403      {object}  platformerrors.HTTPErrorResponse
// @Failure      404      {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /v1/messages/{id} [delete]
func (h *ConversationHandler) DeleteMessage(c *gin.Context) {
	me, ok := caller(c)
	if !ok {
		return
	}
	if err := h.conversations.DeleteMessage(c.Request.Context(), me.ID, c.Param("id")); err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.Status(http.StatusNoContent)
}

// CreateComment godoc
// @Summary      Reply in message thread
// @Tags         messages
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true   "Message ID"
// @Param        request  body      requests.CreateContentRequest true   "Comment body and attachments"
// @Success      201      {object}  conversation.Comment
// @Failure      400      {object}  platformerrors.HTTPErrorResponse
// @Failure      401      {object}  platformerrors.HTTPErrorResponse
// @Failure      404      {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /v1/messages/{id}/comments [post]
func (h *ConversationHandler) CreateComment(c *gin.Context) {
	me, ok := caller(c)
	if !ok {
		return
	}
	var req requests.CreateContentRequest
	if !bindJSON(c, &req) {
		return
	}
	comment, err := h.conversations.CreateComment(c.Request.Context(), c.Param("id"), conversation.CreateParams{
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
// @Summary      List message thread
// @Tags         messages
// @Produce      json
// @Param        id       path      string                      true   "Message ID"
// @Param        limit    query     int                         false  "Page size (1-100)"
// @Param        cursor   query     string                      false  "Opaque cursor from the previous page"
// @Param        order    query     string                      false  "asc or desc"
// @Success      200      {object}  responses.ListResponse[conversation.Comment]
// @Failure      400      {object}  platformerrors.HTTPErrorResponse
// @Failure      401      {object}  platformerrors.HTTPErrorResponse
// @Failure      404      {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /v1/messages/{id}/comments [get]
func (h *ConversationHandler) ListComments(c *gin.Context) {
	me, ok := caller(c)
	if !ok {
		return
	}
	var q requests.PaginationQuery
	if !bindQuery(c, &q) {
		return
	}
	page, err := h.conversations.ListComments(c.Request.Context(), me.ID, c.Param("id"), q.Pagination())
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, responses.FromPage(page))
}

// UpdateComment godoc
// @Summary      Edit message comment
// @Tags         messages
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true   "Comment ID"
// @Param        request  body      requests.UpdateContentRequest true   "New body"
// @Success      200      {object}  conversation.Comment
// @Failure      400      {object}  platformerrors.HTTPErrorResponse
// @Failure      401      {object}  platformerrors.HTTPErrorResponse
// @Failure      403      {object}  platformerrors.HTTPErrorResponse
// @Failure      404      {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /v1/message-comments/{id} [patch]
func (h *ConversationHandler) UpdateComment(c *gin.Context) {
	me, ok := caller(c)
	if !ok {
		return
	}
	var req requests.UpdateContentRequest
	if !bindJSON(c, &req) {
		return
	}
	comment, err := h.conversations.UpdateComment(c.Request.Context(), me.ID, c.Param("id"), req.Content)
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, comment)
}

// DeleteComment godoc
// @Summary      Delete message comment
// @Tags         messages
// @Produce      json
// @Param        id       path      string                      true   "Comment ID"
// @Success      204
// @Failure      401      {object}  platformerrors.HTTPErrorResponse
// @Failure      403      {object}  platformerrors.HTTPErrorResponse
// @Failure      404      {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /v1/message-comments/{id} [delete]
func (h *ConversationHandler) DeleteComment(c *gin.Context) {
	me, ok := caller(c)
	if !ok {
		return
	}
	if err := h.conversations.DeleteComment(c.Request.Context(), me.ID, c.Param("id")); err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	c.Status(http.StatusNoContent)
}
