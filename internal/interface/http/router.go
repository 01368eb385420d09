package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/note-it-down/internal/domain/auth"
	"github.com/yanqian/note-it-down/internal/infra/config"
)

// NewRouter wires up the HTTP handlers and returns a configured server.
func NewRouter(cfg *config.Config, handler *Handler, verifier auth.Verifier) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestLogger(handler.logger),
		corsMiddleware(cfg.HTTP.AllowedOrigins),
		errorHandlingMiddleware(handler.logger),
		rateLimitMiddleware(cfg.HTTP.RateLimit, handler.logger),
	)

	router.GET("/healthz", handler.Health)

	api := router.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		authGroup.POST("/register", handler.Register)
		authGroup.POST("/login", handler.Login)
		authGroup.POST("/refresh", handler.Refresh)
		authGroup.GET("/me", authMiddleware(verifier), handler.Me)

		recordings := api.Group("/recordings", optionalAuthMiddleware(verifier))
		recordings.POST("/start", handler.StartRecording)
		recordings.POST("/stop", handler.StopRecording)
		recordings.POST("/abort", handler.AbortRecording)
		recordings.GET("/status", handler.RecordingStatus)

		summaries := api.Group("/summaries", optionalAuthMiddleware(verifier))
		summaries.GET("", handler.ListSummaries)
		summaries.DELETE("/:id", handler.DeleteSummary)
		summaries.POST("/migrate", authMiddleware(verifier), handler.MigrateSummaries)

		settingsGroup := api.Group("/settings")
		settingsGroup.GET("", handler.GetSettings)
		settingsGroup.PUT("/model", handler.SelectModel)
		settingsGroup.PUT("/keys/:provider", handler.SaveAPIKey)
		settingsGroup.DELETE("/keys/:provider", handler.ClearAPIKey)
		settingsGroup.PUT("/generation", handler.SaveGeneration)
		settingsGroup.DELETE("/generation", handler.ClearGeneration)
	}

	return &http.Server{
		Addr:           cfg.HTTP.Address,
		Handler:        withRetry(router, cfg.HTTP.Retry, handler.logger),
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}
