package microservices

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/navatransportes/nava-fleet/config"
	"github.com/navatransportes/nava-fleet/internal/adapter/http/handler"
	"github.com/navatransportes/nava-fleet/internal/adapter/postgres"
	rabbitadapter "github.com/navatransportes/nava-fleet/internal/adapter/rabbit"
	redisadapter "github.com/navatransportes/nava-fleet/internal/adapter/redis"
	"github.com/navatransportes/nava-fleet/internal/domain/models"
	"github.com/navatransportes/nava-fleet/internal/service/auth"
	"github.com/navatransportes/nava-fleet/pkg/logger"
	postgresclient "github.com/navatransportes/nava-fleet/pkg/postgres"
	"github.com/navatransportes/nava-fleet/pkg/rabbit"
	redisclient "github.com/navatransportes/nava-fleet/pkg/redis"
	"github.com/navatransportes/nava-fleet/pkg/trm"
)

type publisher interface {
	Publish(ctx context.Context, event models.Event) error
}

// publishFunc adapts an in-process event handler to a publisher.
type publishFunc func(ctx context.Context, event models.Event) error

func (f publishFunc) Publish(ctx context.Context, event models.Event) error { return f(ctx, event) }

type repositories struct {
	users     *postgres.UserRepo
	trips     *postgres.TripRepo
	payments  *postgres.PaymentRepo
	refresh   *postgres.RefreshTokenRepo
	analytics *postgres.AnalyticsRepo
}

// infra holds the connections shared by every service mode.
// broker and redis stay nil when disabled in the config.
type infra struct {
	db     *postgresclient.PostgreDB
	trm    *trm.Manager
	broker *rabbit.RabbitMQ
	events *rabbitadapter.EventBroker
	redis  *goredis.Client

	denylist auth.Denylist
	repos    repositories

	log logger.Logger
}

func newInfra(ctx context.Context, cfg config.Config, log logger.Logger) (_ *infra, err error) {
	in := &infra{log: log}
	defer func() {
		if err != nil {
			in.close(ctx)
		}
	}()

	in.db, err = postgresclient.New(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	in.trm = trm.New(in.db.Pool)

	in.repos = repositories{
		users:     postgres.NewUserRepo(in.db.Pool),
		trips:     postgres.NewTripRepo(in.db.Pool),
		payments:  postgres.NewPaymentRepo(in.db.Pool),
		refresh:   postgres.NewRefreshTokenRepo(in.db.Pool),
		analytics: postgres.NewAnalyticsRepo(in.db.Pool),
	}

	if cfg.RabbitMQ.Enabled {
		in.broker, err = rabbit.New(ctx, cfg.RabbitMQ.GetDSN(), log)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
		}
		in.events = rabbitadapter.NewEventBroker(in.broker, string(cfg.Mode), log)
	} else {
		log.Warn(ctx, "rabbitmq disabled, events stay inside this process")
	}

	if cfg.Redis.Enabled {
		in.redis, err = redisclient.New(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		in.denylist = redisadapter.NewDenylist(in.redis)
	} else {
		log.Warn(ctx, "redis disabled, logout only revokes refresh tokens")
		in.denylist = redisadapter.NopDenylist{}
	}

	return in, nil
}

// publisher returns the broker when enabled, otherwise fallback. fallback may be nil.
func (in *infra) publisher(fallback publisher) publisher {
	if in.events != nil {
		return in.events
	}
	if fallback != nil {
		return fallback
	}
	return rabbitadapter.NopPublisher{}
}

func (in *infra) authService(cfg config.Config) *auth.AuthService {
	tokens := auth.NewTokenService(
		cfg.Auth.JWTSecret,
		in.repos.users,
		in.repos.refresh,
		in.trm,
		cfg.Auth.RefreshTokenTTL,
		cfg.Auth.AccessTokenTTL,
		in.log,
	)

	return auth.NewAuthService(
		auth.Config{Service: string(cfg.Mode), BcryptCost: cfg.Auth.BcryptCost},
		in.repos.users,
		in.repos.refresh,
		tokens,
		in.denylist,
		in.trm,
		in.log,
	)
}

// dependencies are the /health checks of the enabled connections.
func (in *infra) dependencies() []handler.Dependency {
	deps := []handler.Dependency{{Name: "postgres", Ping: in.db.Pool.Ping}}
	if in.redis != nil {
		deps = append(deps, handler.Dependency{Name: "redis", Ping: func(ctx context.Context) error {
			return in.redis.Ping(ctx).Err()
		}})
	}
	if in.broker != nil {
		deps = append(deps, handler.Dependency{Name: "rabbitmq", Ping: func(context.Context) error {
			if in.broker.IsConnectionClosed() {
				return rabbit.ErrClosed
			}
			return nil
		}})
	}
	return deps
}

func (in *infra) close(ctx context.Context) {
	if in.broker != nil {
		if err := in.broker.Close(ctx); err != nil {
			in.log.Error(ctx, "failed to close rabbitmq connection", err)
		}
	}
	if in.redis != nil {
		if err := in.redis.Close(); err != nil {
			in.log.Error(ctx, "failed to close redis client", err)
		}
	}
	if in.db != nil {
		in.db.Pool.Close()
	}
}
