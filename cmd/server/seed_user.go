package main

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"invoicebook/backend/internal/config"
	"invoicebook/backend/internal/domain"
	"invoicebook/backend/internal/httpapi"
	"invoicebook/backend/internal/logging"
	pgstore "invoicebook/backend/internal/store/postgres"
)

type seedUserOptions struct {
	Username string
	Password string
	Role     string
}

func newSeedUserCommand() *cobra.Command {
	opts := &seedUserOptions{}

	cmd := &cobra.Command{
		Use:   "seed-user",
		Short: "Create a login account in the postgres user table",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeedUser(cmd.Context(), config.Load(), *opts)
		},
	}
	cmd.Flags().StringVar(&opts.Username, "username", "", "account username")
	cmd.Flags().StringVar(&opts.Password, "password", "", "account password")
	cmd.Flags().StringVar(&opts.Role, "role", domain.RoleUser, "account role (admin|user)")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func runSeedUser(ctx context.Context, cfg config.Config, opts seedUserOptions) error {
	if cfg.DatabaseURL == "" {
		return errDatabaseURLRequired
	}
	logger := logging.New(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	pg, err := pgstore.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()

	auth := httpapi.NewAuthManager(ctx, cfg.AuthSecret, time.Minute, pg)
	user, err := auth.CreateUser(ctx, opts.Username, opts.Password, opts.Role)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	logger.WithFields(logrus.Fields{"username": user.Username, "role": user.Role}).Info("user created")
	return nil
}
