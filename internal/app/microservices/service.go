package microservices

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/navatransportes/nava-fleet/config"
	httpserver "github.com/navatransportes/nava-fleet/internal/adapter/http/server"
	wshandler "github.com/navatransportes/nava-fleet/internal/adapter/http/ws"
	"github.com/navatransportes/nava-fleet/internal/service/auth"
	"github.com/navatransportes/nava-fleet/pkg/logger"
	wrap "github.com/navatransportes/nava-fleet/pkg/logger/wrapper"
)

const (
	shutdownTimeout        = 10 * time.Second
	refreshCleanupInterval = time.Hour
)

// task runs alongside the HTTP server until ctx is done.
type task struct {
	name string
	run  func(ctx context.Context) error
}

// Service is one running mode: the HTTP server, its connections and background tasks.
type Service struct {
	name       string
	infra      *infra
	httpServer *httpserver.API
	tasks      []task

	log logger.Logger
}

func (s *Service) Start(ctx context.Context) error {
	parent := ctx
	defer func() {
		s.close(parent)
		s.log.Info(parent, "service closed", "service", s.name)
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(shutdownCh)

	g, gctx := errgroup.WithContext(ctx)

	errCh := make(chan error, 1)
	s.httpServer.Run(gctx, errCh)
	g.Go(func() error {
		select {
		case err := <-errCh:
			return err
		case <-gctx.Done():
			return nil
		}
	})

	g.Go(func() error {
		select {
		case sig := <-shutdownCh:
			s.log.Info(gctx, "shuting down application", "signal", sig.String())
			cancel()
		case <-gctx.Done():
		}
		return nil
	})

	for _, t := range s.tasks {
		g.Go(func() error {
			tctx := wrap.WithAction(gctx, t.name)
			s.log.Debug(tctx, "background task started")
			return t.run(tctx)
		})
	}

	s.log.Info(ctx, "service started", "service", s.name, "tasks", len(s.tasks))
	return g.Wait()
}

func (s *Service) close(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Stop(ctx); err != nil {
		s.log.Error(ctx, "failed to shutdown HTTP server", err)
	}

	s.infra.close(ctx)
}

// refreshCleanup deletes expired refresh tokens every interval.
func refreshCleanup(svc *auth.AuthService, interval time.Duration, l logger.Logger) task {
	return task{
		name: "refresh_token_cleanup",
		run: func(ctx context.Context) error {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					n, err := svc.CleanupExpired(ctx)
					if err != nil {
						l.Error(ctx, "failed to delete expired refresh tokens", err)
						continue
					}
					if n > 0 {
						l.Info(ctx, "expired refresh tokens deleted", "count", n)
					}
				}
			}
		},
	}
}

// adminFeedConsumer forwards broker events to the connected admins.
func adminFeedConsumer(in *infra, feed *wshandler.AdminFeed) task {
	return task{
		name: "admin_feed_consumer",
		run: func(ctx context.Context) error {
			return in.events.ConsumeAdminFeed(ctx, feed.HandleEvent)
		},
	}
}

// wireFunc builds the HTTP dependencies and background tasks of one mode.
type wireFunc func(in *infra, authSvc *auth.AuthService) (httpserver.Services, []task)

func newService(ctx context.Context, cfg config.Config, log logger.Logger, wire wireFunc) (*Service, error) {
	in, err := newInfra(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	authSvc := in.authService(cfg)
	services, tasks := wire(in, authSvc)
	services.Dependencies = in.dependencies()

	server, err := httpserver.New(cfg, services, log)
	if err != nil {
		in.close(ctx)
		return nil, err
	}

	return &Service{
		name:       string(cfg.Mode),
		infra:      in,
		httpServer: server,
		tasks:      tasks,
		log:        log,
	}, nil
}
