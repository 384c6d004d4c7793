package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/huddlehq/huddle-server/internal/interfaces/httpserver/handlers"
)

// Guards are the middleware chains applied to route groups.
type Guards struct {
	// Authenticated runs on every /v1 route.
	Authenticated []gin.HandlerFunc
	// Throttled runs on the AI backed routes.
	Throttled []gin.HandlerFunc
	// Admin runs on /v1/admin.
	Admin []gin.HandlerFunc
}

// Routes encapsulates versioned route registration.
type Routes struct {
	handlers *handlers.Provider
	guards   Guards
}

// NewRoutes builds the v1 route registrar.
func NewRoutes(handlerProvider *handlers.Provider, guards Guards) *Routes {
	return &Routes{
		handlers: handlerProvider,
		guards:   guards,
	}
}

// Register attaches all v1 routes under /v1 prefix.
func (r *Routes) Register(engine *gin.Engine) {
	group := engine.Group("/v1", r.guards.Authenticated...)
	throttled := group.Group("", r.guards.Throttled...)

	registerUserRoutes(group, r.handlers.User)
	registerChannelRoutes(group, r.handlers.Channel)
	registerPostRoutes(group, r.handlers.Post)
	registerConversationRoutes(group, r.handlers.Conversation)
	registerFileRoutes(group, r.handlers.File)
	registerReactionRoutes(group, r.handlers.Reaction)
	registerTranslationRoutes(throttled, r.handlers.Translation)
	registerAssistantRoutes(throttled, r.handlers.Assistant)
	registerVoiceRoutes(group, throttled, r.handlers.Voice)
	registerPresenceRoutes(group, r.handlers.Presence)
	registerRealtimeRoutes(group, r.handlers.Realtime)

	if r.handlers.Sweep != nil {
		registerAdminRoutes(group.Group("/admin", r.guards.Admin...), r.handlers.Sweep)
	}
}
