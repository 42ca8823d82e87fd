package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/escriba-legal/escriba-backend/internal/handlers"
	"github.com/escriba-legal/escriba-backend/internal/middleware"
	"github.com/escriba-legal/escriba-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	SessionHandler *handlers.SessionHandler
	EditHandler    *handlers.EditHandler
	SSEHandler     *handlers.SSEHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.AttachRequestContext())
	router.Use(middleware.RequestLogger(cfg.Log))

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5174",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "X-Client-ID"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	{
		api.POST("/sessions", cfg.SessionHandler.CreateSession)
		api.GET("/sessions/:id/document", cfg.SessionHandler.GetDocument)
		api.POST("/sessions/:id/edits", cfg.EditHandler.ApplyEdit)
		api.GET("/sessions/:id/events", cfg.SessionHandler.ListEvents)
		api.DELETE("/sessions/:id/cache", cfg.SessionHandler.ClearCache)
		api.POST("/sessions/:id/end", cfg.SessionHandler.EndSession)
	}

	// SSE
	router.GET("/sse/stream", cfg.SSEHandler.Stream)

	return router
}
