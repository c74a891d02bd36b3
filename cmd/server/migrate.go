package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/sre-portfolio/notetrack/internal/config"
	"github.com/sre-portfolio/notetrack/internal/logging"
	"github.com/sre-portfolio/notetrack/internal/repository"
)

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Storage.Driver != config.StoragePostgres {
		return errors.New("migrate requires STORAGE_DRIVER=postgres")
	}

	logger := logging.New(cfg.Log)

	db, err := repository.NewDB(cmd.Context(), cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	applied, err := repository.Migrate(cmd.Context(), db)
	if err != nil {
		return err
	}

	for _, name := range applied {
		logger.Info().Str("migration", name).Msg("applied migration")
	}
	logger.Info().Int("count", len(applied)).Msg("migrations complete")
	return nil
}
