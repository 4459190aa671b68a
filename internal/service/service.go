package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"invoicebook/backend/internal/attachment"
	"invoicebook/backend/internal/cache"
	"invoicebook/backend/internal/domain"
	"invoicebook/backend/internal/logging"
	"invoicebook/backend/internal/store"
)

var ErrForbidden = errors.New("admin role required")

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Options struct {
	DistributorCache    cache.DistributorCache
	DistributorCacheTTL time.Duration
	Logger              logrus.FieldLogger
	Now                 func() time.Time
}

type Service struct {
	repo             store.Repository
	attachments      *attachment.Manager
	distributorCache cache.DistributorCache
	cacheTTL         time.Duration
	logger           logrus.FieldLogger
	now              func() time.Time
}

func New(repo store.Repository, attachments *attachment.Manager, opts Options) *Service {
	if opts.DistributorCache == nil {
		opts.DistributorCache = cache.NoopDistributorCache{}
	}
	if opts.DistributorCacheTTL <= 0 {
		opts.DistributorCacheTTL = time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}

	return &Service{
		repo:             repo,
		attachments:      attachments,
		distributorCache: opts.DistributorCache,
		cacheTTL:         opts.DistributorCacheTTL,
		logger:           opts.Logger,
		now:              opts.Now,
	}
}

func requireAdmin(ctx context.Context) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return ErrForbidden
	}
	return nil
}

func (s *Service) logAudit(ctx context.Context, action string, fields logrus.Fields) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}
	entry := s.logger.WithFields(logrus.Fields{
		"actor":     actor.Username,
		"actorRole": actor.Role,
	})
	entry.WithFields(fields).Info(action)
}
