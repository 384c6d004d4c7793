package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/huddlehq/huddle-server/internal/interfaces/httpserver/handlers"
)

func registerChannelRoutes(router gin.IRoutes, handler *handlers.ChannelHandler) {
	router.POST("/channels", handler.Create)
	router.GET("/channels", handler.List)
	router.GET("/channels/:id", handler.Get)
	router.PATCH("/channels/:id", handler.Update)
	router.DELETE("/channels/:id", handler.Delete)
	router.POST("/channels/:id/join", handler.Join)
	router.POST("/channels/:id/leave", handler.Leave)
	router.POST("/channels/:id/read", handler.MarkRead)

	// Membership
	router.GET("/channels/:id/members", handler.ListMembers)
	router.POST("/channels/:id/members", handler.AddMember)
	router.PATCH("/channels/:id/members/:user_id", handler.UpdateMember)
	router.DELETE("/channels/:id/members/:user_id", handler.RemoveMember)
}

func registerPostRoutes(router gin.IRoutes, handler *handlers.PostHandler) {
	router.POST("/channels/:id/posts", handler.Create)
	router.GET("/channels/:id/posts", handler.List)
	router.GET("/posts/:id", handler.Get)
	router.PATCH("/posts/:id", handler.Update)
	router.DELETE("/posts/:id", handler.Delete)

	// Threads
	router.POST("/posts/:id/comments", handler.CreateComment)
	router.GET("/posts/:id/comments", handler.ListComments)
	router.PATCH("/post-comments/:id", handler.UpdateComment)
	router.DELETE("/post-comments/:id", handler.DeleteComment)
}
