package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/sre-portfolio/notetrack/internal/middleware"
	"github.com/sre-portfolio/notetrack/internal/service"
)

// respondError maps service errors to status codes. Anything unrecognised
// is logged and answered with a generic 500 carrying fallback.
func respondError(c *gin.Context, logger zerolog.Logger, err error, fallback string) {
	status, msg := classify(err)
	if status == http.StatusInternalServerError {
		logger.Error().
			Err(err).
			Str("request_id", middleware.GetRequestID(c)).
			Str("path", c.FullPath()).
			Msg(fallback)
		msg = fallback
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": msg})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrUnauthenticated),
		errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, service.ErrTokenExpired):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, service.ErrTaskNotFound),
		errors.Is(err, service.ErrNoteNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, service.ErrUserExists),
		errors.Is(err, service.ErrInvalidTransition):
		return http.StatusConflict, err.Error()
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrInvalidImport):
		return http.StatusBadRequest, err.Error()
	}
	return http.StatusInternalServerError, ""
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
