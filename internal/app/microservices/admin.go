package microservices

import (
	"context"

	"github.com/navatransportes/nava-fleet/config"
	"github.com/navatransportes/nava-fleet/internal/adapter/export"
	httpserver "github.com/navatransportes/nava-fleet/internal/adapter/http/server"
	wshandler "github.com/navatransportes/nava-fleet/internal/adapter/http/ws"
	"github.com/navatransportes/nava-fleet/internal/service/admin"
	"github.com/navatransportes/nava-fleet/internal/service/auth"
	"github.com/navatransportes/nava-fleet/pkg/logger"
	"github.com/navatransportes/nava-fleet/pkg/metrics"
	ws "github.com/navatransportes/nava-fleet/pkg/wsHub"
)

func NewAdmin(ctx context.Context, cfg config.Config, log logger.Logger) (*Service, error) {
	return newService(ctx, cfg, log, func(in *infra, authSvc *auth.AuthService) (httpserver.Services, []task) {
		feed := newAdminFeed(cfg, authSvc, log)
		adminSvc := newAdminService(cfg, in, in.publisher(publishFunc(feed.HandleEvent)), log)

		services := httpserver.Services{Auth: authSvc, Admin: adminSvc, Feed: feed}
		return services, feedTasks(in, feed)
	})
}

func newAdminService(cfg config.Config, in *infra, pub publisher, log logger.Logger) *admin.AdminService {
	return admin.NewAdminService(
		admin.Config{
			Service:       string(cfg.Mode),
			MapURL:        cfg.ExternalAPIConfig.MapEmbedURL,
			BcryptCost:    cfg.Auth.BcryptCost,
			ExportMaxRows: cfg.Export.MaxRows,
		},
		in.repos.users,
		in.repos.trips,
		in.repos.payments,
		in.repos.analytics,
		export.New(cfg.Export.CompanyName),
		pub,
		in.trm,
		log,
	)
}

func newAdminFeed(cfg config.Config, authSvc *auth.AuthService, log logger.Logger) *wshandler.AdminFeed {
	hub := ws.NewConnHub(log)
	gauge := metrics.WebSocketConnectionsGauge.WithLabelValues(string(cfg.Mode))
	hub.OnChange = func(n int) { gauge.Set(float64(n)) }

	return wshandler.NewAdminFeed(hub, authSvc, cfg.HTTP.AllowedOrigins, log)
}

// feedTasks consumes broker events into the feed. Without a broker the admin
// service publishes straight to the feed and nothing needs consuming.
func feedTasks(in *infra, feed *wshandler.AdminFeed) []task {
	if in.events == nil {
		return nil
	}
	return []task{adminFeedConsumer(in, feed)}
}
