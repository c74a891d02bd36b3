package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Pinger is a backend the readiness probe can reach.
type Pinger interface {
	Ping(ctx context.Context) error
}

type PingerFunc func(ctx context.Context) error

func (f PingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// Dependency is one backend checked by the readiness probe.
type Dependency struct {
	Name   string
	Pinger Pinger
}

type HealthHandler struct {
	deps   []Dependency
	logger zerolog.Logger
}

func NewHealthHandler(logger zerolog.Logger, deps ...Dependency) *HealthHandler {
	for _, d := range deps {
		if d.Pinger == nil {
			logger.Warn().Str("dependency", d.Name).Msg("health check registered without a client")
		}
	}
	return &HealthHandler{
		deps:   deps,
		logger: logger,
	}
}

func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// Readiness pings every dependency in order and reports each one.
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	body := gin.H{"status": "ok"}
	status := http.StatusOK

	for _, d := range h.deps {
		if d.Pinger == nil {
			body[d.Name] = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		if err := d.Pinger.Ping(ctx); err != nil {
			h.logger.Warn().Err(err).Str("dependency", d.Name).Msg("health check failed")
			body[d.Name] = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		body[d.Name] = "ok"
	}

	if status != http.StatusOK {
		body["status"] = "unhealthy"
	}
	c.JSON(status, body)
}
