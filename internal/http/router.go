// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"berline/internal/http/handlers"
	"berline/internal/http/middleware"
	"berline/internal/modules/chat"
	"berline/internal/modules/tariff"
	"berline/internal/ratelimit"
)

type RouterDeps struct {
	Orchestrator     *chat.Orchestrator
	Tariffs          *tariff.Service
	Limiter          ratelimit.Limiter
	DefaultTenantKey string
	Log              *zap.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(deps.Log))
	r.Use(middleware.Logging(deps.Log))

	chatHandler := handlers.NewChatHandler(deps.Orchestrator)
	tariffHandler := handlers.NewTariffHandler(deps.Tariffs, deps.DefaultTenantKey)

	api := r.Group("/api")
	api.POST("/chat", middleware.RateLimit(deps.Limiter, deps.Log), chatHandler.Handle)
	api.POST("/tariff", tariffHandler.Handle)

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	return r
}
