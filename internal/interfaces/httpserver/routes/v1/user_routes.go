package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/huddlehq/huddle-server/internal/interfaces/httpserver/handlers"
)

func registerUserRoutes(router gin.IRoutes, handler *handlers.UserHandler) {
	router.GET("/users/me", handler.GetMe)
	router.PATCH("/users/me", handler.UpdateMe)
	router.GET("/users/:id", handler.Get)
	router.GET("/users", handler.Search)
}

func registerPresenceRoutes(router gin.IRoutes, handler *handlers.PresenceHandler) {
	router.POST("/presence/heartbeat", handler.Heartbeat)
	router.PUT("/presence", handler.SetStatus)
	router.GET("/presence", handler.Get)
	router.GET("/channels/:id/presence", handler.ListForChannel)
}
