package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/navatransportes/nava-fleet/config"
	"github.com/navatransportes/nava-fleet/docs"
	"github.com/navatransportes/nava-fleet/internal/app/microservices"
	"github.com/navatransportes/nava-fleet/internal/domain/types"
	"github.com/navatransportes/nava-fleet/pkg/logger"
)

var ErrInvalidMode = errors.New("invalid mode")

type Service interface {
	Start(ctx context.Context) error
}

type constructor func(ctx context.Context, cfg config.Config, log logger.Logger) (*microservices.Service, error)

var constructors = map[types.ServiceMode]constructor{
	types.AuthService:   microservices.NewAuth,
	types.AdminService:  microservices.NewAdmin,
	types.DriverService: microservices.NewDriver,
	types.AllServices:   microservices.NewAll,
}

// App runs the service of one mode.
type App struct {
	mode    types.ServiceMode
	service Service
	log     logger.Logger
}

// NewApplication connects the dependencies of cfg.Mode and registers its API docs.
func NewApplication(ctx context.Context, cfg config.Config, log logger.Logger) (*App, error) {
	newService, ok := constructors[cfg.Mode]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, cfg.Mode)
	}

	service, err := newService(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to init %s: %w", cfg.Mode, err)
	}

	docs.Register(string(cfg.Mode), "", cfg.HTTP.BasePath)

	return &App{mode: cfg.Mode, service: service, log: log}, nil
}

// Run blocks until the service stops on a signal or a fatal error.
func (a *App) Run(ctx context.Context) error {
	a.log.Info(ctx, "starting application", "mode", string(a.mode))
	return a.service.Start(ctx)
}
