package microservices

import (
	"context"

	"github.com/navatransportes/nava-fleet/config"
	httpserver "github.com/navatransportes/nava-fleet/internal/adapter/http/server"
	"github.com/navatransportes/nava-fleet/internal/service/auth"
	"github.com/navatransportes/nava-fleet/pkg/logger"
)

// NewAuth serves login, token rotation, logout and password change.
func NewAuth(ctx context.Context, cfg config.Config, log logger.Logger) (*Service, error) {
	return newService(ctx, cfg, log, func(in *infra, authSvc *auth.AuthService) (httpserver.Services, []task) {
		services := httpserver.Services{Auth: authSvc}
		tasks := []task{refreshCleanup(authSvc, refreshCleanupInterval, log)}
		return services, tasks
	})
}
