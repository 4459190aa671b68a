package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"invoicebook/backend/internal/config"
	"invoicebook/backend/internal/logging"
	pgstore "invoicebook/backend/internal/store/postgres"
)

var errDatabaseURLRequired = errors.New("DATABASE_URL is required")

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending postgres migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context(), config.Load())
		},
	}
}

func runMigrate(ctx context.Context, cfg config.Config) error {
	if cfg.DatabaseURL == "" {
		return errDatabaseURLRequired
	}
	logger := logging.New(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	pg, err := pgstore.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()

	applied, err := pg.Migrate(ctx)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		logger.Info("schema up to date")
		return nil
	}
	for _, name := range applied {
		logger.WithField("migration", name).Info("migration applied")
	}
	return nil
}
