package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/sre-portfolio/notetrack/internal/middleware"
	"github.com/sre-portfolio/notetrack/internal/store"
)

// Sessions is implemented by *store.Manager.
type Sessions interface {
	Open(ctx context.Context, userID string) (*store.Session, error)
}

// openSession resolves the caller's session, answering the request itself
// when that fails.
func openSession(c *gin.Context, sessions Sessions, logger zerolog.Logger) (*store.Session, bool) {
	s, err := sessions.Open(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, logger, err, "failed to load session")
		return nil, false
	}
	return s, true
}
