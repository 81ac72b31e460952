package microservices

import (
	"context"

	"github.com/navatransportes/nava-fleet/config"
	httpserver "github.com/navatransportes/nava-fleet/internal/adapter/http/server"
	"github.com/navatransportes/nava-fleet/internal/service/auth"
	"github.com/navatransportes/nava-fleet/pkg/logger"
)

// NewAll serves every route from one process, the way the web client is deployed.
func NewAll(ctx context.Context, cfg config.Config, log logger.Logger) (*Service, error) {
	return newService(ctx, cfg, log, func(in *infra, authSvc *auth.AuthService) (httpserver.Services, []task) {
		feed := newAdminFeed(cfg, authSvc, log)
		pub := in.publisher(publishFunc(feed.HandleEvent))

		services := httpserver.Services{
			Auth:   authSvc,
			Admin:  newAdminService(cfg, in, pub, log),
			Driver: newDriverService(ctx, cfg, in, pub, log),
			Feed:   feed,
		}

		tasks := []task{refreshCleanup(authSvc, refreshCleanupInterval, log)}
		tasks = append(tasks, feedTasks(in, feed)...)
		return services, tasks
	})
}
