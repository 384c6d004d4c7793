package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/huddlehq/huddle-server/internal/interfaces/httpserver/handlers"
	v1 "github.com/huddlehq/huddle-server/internal/interfaces/httpserver/routes/v1"
)

// Provider coordinates all route registrations.
type Provider struct {
	V1 *v1.Routes
}

// NewProvider constructs the route provider.
func NewProvider(handlerProvider *handlers.Provider, guards v1.Guards) *Provider {
	return &Provider{
		V1: v1.NewRoutes(handlerProvider, guards),
	}
}

// Register attaches all available routes to the gin engine.
func (p *Provider) Register(engine *gin.Engine) {
	p.V1.Register(engine)
}
