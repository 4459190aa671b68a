package main

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"invoicebook/backend/internal/cache"
	"invoicebook/backend/internal/config"
	"invoicebook/backend/internal/imagestore"
	"invoicebook/backend/internal/store"
	"invoicebook/backend/internal/store/memory"
	pgstore "invoicebook/backend/internal/store/postgres"
)

type closers []func() error

func (c closers) closeAll(logger logrus.FieldLogger) {
	for _, closeFn := range c {
		if err := closeFn(); err != nil {
			logger.WithError(err).Warn("close_failed")
		}
	}
}

func openRepository(ctx context.Context, cfg config.Config, logger logrus.FieldLogger, migrate bool) (store.Repository, closers, error) {
	if cfg.DatabaseURL == "" {
		logger.WithField("repository", "memory").Info("repository_selected")
		return memory.NewSeeded(), nil, nil
	}

	pg, err := pgstore.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if migrate {
		applied, err := pg.Migrate(ctx)
		if err != nil {
			_ = pg.Close()
			return nil, nil, err
		}
		logger.WithField("applied", applied).Info("migrations_applied")
	}
	logger.WithField("repository", "postgres").Info("repository_selected")
	return pg, closers{pg.Close}, nil
}

// openDistributorCache falls back to the noop cache when redis is not
// configured or does not answer.
func openDistributorCache(ctx context.Context, cfg config.Config, logger logrus.FieldLogger) (cache.DistributorCache, time.Duration, closers) {
	ttl := time.Duration(cfg.DistributorCacheTTLSeconds) * time.Second
	if cfg.RedisAddr == "" {
		logger.WithField("cache", "noop").Info("cache_selected")
		return cache.NoopDistributorCache{}, ttl, nil
	}

	redisCache := cache.NewRedisDistributorCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err := redisCache.Ping(ctx); err != nil {
		logger.WithError(err).Warn("redis unavailable, using noop cache")
		_ = redisCache.Close()
		return cache.NoopDistributorCache{}, ttl, nil
	}
	logger.WithField("cache", "redis").Info("cache_selected")
	return redisCache, ttl, closers{redisCache.Close}
}

// openImageStore prefers GCS when a bucket is configured. The local store
// returns the directory the HTTP layer should serve.
func openImageStore(ctx context.Context, cfg config.Config, logger logrus.FieldLogger) (imagestore.Store, string, closers, error) {
	if cfg.GCSBucket != "" {
		gcs, err := imagestore.NewGCSStore(ctx, cfg.GCSBucket, cfg.GCSCredentialsJSON)
		if err != nil {
			return nil, "", nil, err
		}
		logger.WithField("bucket", cfg.GCSBucket).Info("image_store_gcs")
		return gcs, "", closers{gcs.Close}, nil
	}

	local, err := imagestore.NewLocalStore(cfg.UploadDir, cfg.PublicBaseURL+"/uploads")
	if err != nil {
		return nil, "", nil, err
	}
	logger.WithField("dir", local.Root()).Info("image_store_local")
	return local, local.Root(), nil, nil
}
