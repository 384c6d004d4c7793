package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/huddlehq/huddle-server/internal/interfaces/httpserver/handlers"
)

func registerFileRoutes(router gin.IRoutes, handler *handlers.FileHandler) {
	router.POST("/files", handler.Upload)
	router.GET("/files/:id", handler.Get)
	router.DELETE("/files/:id", handler.Delete)
	router.GET("/files/:id/content", handler.Download)
	router.GET("/files/:id/url", handler.Presign)
}

func registerReactionRoutes(router gin.IRoutes, handler *handlers.ReactionHandler) {
	router.GET("/reactions/:target_type/:target_id", handler.List)
	router.POST("/reactions/:target_type/:target_id", handler.React)
	router.DELETE("/reactions/:target_type/:target_id/:emoji", handler.Remove)
}

func registerTranslationRoutes(router gin.IRoutes, handler *handlers.TranslationHandler) {
	router.POST("/translations", handler.Translate)
	router.GET("/translations/:target_type/:target_id", handler.List)
}

func registerAssistantRoutes(router gin.IRoutes, handler *handlers.AssistantHandler) {
	router.POST("/assistant/respond", handler.Respond)
	router.POST("/assistant/summarize", handler.Summarize)
	router.GET("/search", handler.Search)
}

// registerVoiceRoutes throttles the calls that reach the voice provider.
func registerVoiceRoutes(router, throttled gin.IRoutes, handler *handlers.VoiceHandler) {
	throttled.POST("/voice", handler.Clone)
	router.DELETE("/voice", handler.Delete)
	throttled.POST("/tts", handler.Synthesize)
	router.GET("/tts/:id", handler.Get)
	router.GET("/tts/:id/audio", handler.Audio)
}

func registerRealtimeRoutes(router gin.IRoutes, handler *handlers.RealtimeHandler) {
	router.GET("/realtime", handler.Stream)
}

func registerAdminRoutes(router gin.IRoutes, handler *handlers.SweepHandler) {
	router.GET("/sweeps", handler.List)
	router.POST("/sweeps/:name", handler.Run)
}
