package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/huddlehq/huddle-server/internal/interfaces/httpserver/handlers"
)

func registerConversationRoutes(router gin.IRoutes, handler *handlers.ConversationHandler) {
	router.POST("/conversations", handler.Create)
	router.GET("/conversations", handler.List)
	router.GET("/conversations/:id", handler.Get)
	router.POST("/conversations/:id/participants", handler.AddParticipant)
	router.POST("/conversations/:id/leave", handler.Leave)
	router.POST("/conversations/:id/read", handler.MarkRead)

	router.POST("/conversations/:id/messages", handler.CreateMessage)
	router.GET("/conversations/:id/messages", handler.ListMessages)
	router.GET("/messages/:id", handler.GetMessage)
	router.PATCH("/messages/:id", handler.UpdateMessage)
	router.DELETE("/messages/:id", handler.DeleteMessage)

	router.POST("/messages/:id/comments", handler.CreateComment)
	router.GET("/messages/:id/comments", handler.ListComments)
	router.PATCH("/message-comments/:id", handler.UpdateComment)
	router.DELETE("/message-comments/:id", handler.DeleteComment)
}
