package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/sre-portfolio/notetrack/internal/config"
	"github.com/sre-portfolio/notetrack/internal/handler"
	"github.com/sre-portfolio/notetrack/internal/logging"
	"github.com/sre-portfolio/notetrack/internal/service"
	"github.com/sre-portfolio/notetrack/internal/store"
	"github.com/sre-portfolio/notetrack/internal/tracking"
)

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.New(cfg.Log)
	for _, w := range cfg.Warnings {
		logger.Warn().Msg(w)
	}

	gin.SetMode(cfg.Server.Mode)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := openBackend(ctx, cfg, logger, !skipMigrate)
	if err != nil {
		logger.Error().Err(err).Msg("failed to open storage")
		return err
	}
	defer b.Close()

	authService := service.NewAuthService(b.users, b.tokens, cfg.JWT)
	taskService := service.NewTaskService(b.tasks, b.entries, b.tx)
	noteService := service.NewNoteService(b.notes, b.tx)

	sessions := store.NewManager(authService, taskService, noteService, store.ManagerOptions{
		Aggregator:  tracking.Aggregator{Location: cfg.Metrics.Location},
		IdleTimeout: cfg.Session.IdleTimeout,
		Logger:      logger.With().Str("component", "sessions").Logger(),
	})
	if err := sessions.StartSweeper(cfg.Session.SweepSchedule); err != nil {
		return err
	}
	defer sessions.Stop()

	router := handler.NewRouter(handler.RouterConfig{
		Auth:      handler.NewAuthHandler(authService, logger),
		Tasks:     handler.NewTaskHandler(sessions, logger),
		Notes:     handler.NewNoteHandler(sessions, logger),
		Health:    handler.NewHealthHandler(logger, b.deps...),
		Validator: authService,
		CORS:      cfg.CORS,
		Logger:    logger,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("port", cfg.Server.Port).Str("storage", cfg.Storage.Driver).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("server failed")
			return err
		}
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
		return err
	}

	logger.Info().Msg("server exited gracefully")
	return nil
}
