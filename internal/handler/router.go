package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/sre-portfolio/notetrack/internal/config"
	"github.com/sre-portfolio/notetrack/internal/middleware"
)

type RouterConfig struct {
	Auth      *AuthHandler
	Tasks     *TaskHandler
	Notes     *NoteHandler
	Health    *HealthHandler
	Validator middleware.TokenValidator
	CORS      config.CORSConfig
	Logger    zerolog.Logger
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Metrics())

	r.GET("/health/live", cfg.Health.Liveness)
	r.GET("/health/ready", cfg.Health.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", cfg.Auth.Register)
			auth.POST("/login", cfg.Auth.Login)
			auth.POST("/refresh", cfg.Auth.Refresh)
		}

		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.Validator))
		{
			protected.POST("/auth/logout", cfg.Auth.Logout)
			protected.GET("/auth/session", cfg.Auth.Session)
			protected.PUT("/auth/password", cfg.Auth.ChangePassword)

			tasks := protected.Group("/tasks")
			{
				tasks.GET("", cfg.Tasks.List)
				tasks.POST("", cfg.Tasks.Create)
				tasks.PUT("/reorder", cfg.Tasks.Reorder)
				tasks.GET("/metrics", cfg.Tasks.Metrics)
				tasks.GET("/metrics/report", cfg.Tasks.Report)
				tasks.GET("/:id", cfg.Tasks.Get)
				tasks.PATCH("/:id", cfg.Tasks.Update)
				tasks.DELETE("/:id", cfg.Tasks.Delete)
				tasks.POST("/:id/start", cfg.Tasks.Start)
				tasks.POST("/:id/pause", cfg.Tasks.Pause)
				tasks.POST("/:id/complete", cfg.Tasks.Complete)
				tasks.GET("/:id/entries", cfg.Tasks.Entries)
			}

			notes := protected.Group("/notes")
			{
				notes.GET("", cfg.Notes.List)
				notes.POST("", cfg.Notes.Create)
				notes.GET("/shared", cfg.Notes.Shared)
				notes.GET("/public", cfg.Notes.Public)
				notes.GET("/tags", cfg.Notes.Tags)
				notes.GET("/export", cfg.Notes.Export)
				notes.POST("/import", cfg.Notes.Import)
				notes.PATCH("/:id", cfg.Notes.Update)
				notes.DELETE("/:id", cfg.Notes.Delete)
				notes.POST("/:id/share", cfg.Notes.Share)
				notes.POST("/:id/like", cfg.Notes.Like)
				notes.PUT("/:id/visibility", cfg.Notes.Visibility)
			}
		}
	}

	return r
}
