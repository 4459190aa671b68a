package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"invoicebook/backend/internal/attachment"
	"invoicebook/backend/internal/config"
	"invoicebook/backend/internal/httpapi"
	"invoicebook/backend/internal/logging"
	"invoicebook/backend/internal/service"
)

func newServeCommand() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), config.Load(), migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply pending postgres migrations before serving")

	return cmd
}

func runServe(ctx context.Context, cfg config.Config, migrate bool) error {
	logger := logging.New(cfg.LogLevel)
	if err := validateSecurityConfig(cfg); err != nil {
		return fmt.Errorf("invalid security configuration: %w", err)
	}

	startCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var toClose closers
	defer func() { toClose.closeAll(logger) }()

	repo, repoClosers, err := openRepository(startCtx, cfg, logger, migrate)
	if err != nil {
		return fmt.Errorf("postgres unavailable and DATABASE_URL is set: %w", err)
	}
	toClose = append(toClose, repoClosers...)

	distributorCache, cacheTTL, cacheClosers := openDistributorCache(startCtx, cfg, logger)
	toClose = append(toClose, cacheClosers...)

	images, uploadDir, imageClosers, err := openImageStore(startCtx, cfg, logger)
	if err != nil {
		return fmt.Errorf("image store unavailable: %w", err)
	}
	toClose = append(toClose, imageClosers...)

	svc := service.New(repo, attachment.NewManager(images, logger), service.Options{
		DistributorCache:    distributorCache,
		DistributorCacheTTL: cacheTTL,
		Logger:              logger,
	})
	auth := httpapi.NewAuthManager(startCtx, cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, repo)
	api := httpapi.New(svc, auth, httpapi.Options{
		AllowedOrigin: cfg.AllowedOrigin,
		UploadDir:     uploadDir,
		Logger:        logger,
	})

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.WithField("addr", cfg.Address()).Info("invoicebook backend listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("shutdown error")
	}

	logger.Info("server stopped")
	return nil
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if cfg.GCSBucket == "" && cfg.UploadDir == "" {
		return fmt.Errorf("either GCS_BUCKET or UPLOAD_DIR must be set")
	}
	return nil
}
