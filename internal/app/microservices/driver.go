package microservices

import (
	"context"

	"github.com/navatransportes/nava-fleet/config"
	httpserver "github.com/navatransportes/nava-fleet/internal/adapter/http/server"
	"github.com/navatransportes/nava-fleet/internal/adapter/locationIQ"
	"github.com/navatransportes/nava-fleet/internal/service/auth"
	"github.com/navatransportes/nava-fleet/internal/service/driver"
	"github.com/navatransportes/nava-fleet/pkg/logger"
)

func NewDriver(ctx context.Context, cfg config.Config, log logger.Logger) (*Service, error) {
	return newService(ctx, cfg, log, func(in *infra, authSvc *auth.AuthService) (httpserver.Services, []task) {
		driverSvc := newDriverService(ctx, cfg, in, in.publisher(nil), log)
		return httpserver.Services{Auth: authSvc, Driver: driverSvc}, nil
	})
}

func newDriverService(ctx context.Context, cfg config.Config, in *infra, pub publisher, log logger.Logger) *driver.Service {
	var geocoder driver.GeoCoder
	if key := cfg.ExternalAPIConfig.LocationIQapiKey; key != "" {
		geocoder = locationIQ.New(cfg.ExternalAPIConfig.LocationIQURL, key)
	} else {
		log.Warn(ctx, "LOCATIONIQ_API_KEY is empty, trip addresses are not resolved")
	}

	return driver.New(
		driver.Config{Service: string(cfg.Mode), MapURL: cfg.ExternalAPIConfig.MapEmbedURL},
		in.repos.trips,
		in.repos.payments,
		in.repos.users,
		geocoder,
		pub,
		in.trm,
		log,
	)
}
