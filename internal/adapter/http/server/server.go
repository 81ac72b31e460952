package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/navatransportes/nava-fleet/config"
	"github.com/navatransportes/nava-fleet/internal/adapter/http/handler"
	"github.com/navatransportes/nava-fleet/internal/adapter/http/middleware"
	wshandler "github.com/navatransportes/nava-fleet/internal/adapter/http/ws"
	"github.com/navatransportes/nava-fleet/internal/domain/types"
	"github.com/navatransportes/nava-fleet/pkg/logger"
	wrap "github.com/navatransportes/nava-fleet/pkg/logger/wrapper"
)

const serverIPAddress = "%s:%s"

// AuthService serves the auth routes and authenticates every other request.
type AuthService interface {
	handler.AuthService
	middleware.AuthService
}

// Services are the handlers' dependencies. Only the ones of the configured mode are required.
type Services struct {
	Auth   AuthService
	Admin  handler.AdminService
	Driver handler.DriverService
	// Feed is optional, the admin websocket is not served without it.
	Feed *wshandler.AdminFeed
	// Dependencies are pinged by /health.
	Dependencies []handler.Dependency
}

type API struct {
	mode   types.ServiceMode
	mux    *http.ServeMux
	server *http.Server
	routes *handlers
	m      *middleware.Middleware

	addr string
	cfg  config.Config
	log  logger.Logger
}

type handlers struct {
	health *handler.Health
	auth   *handler.Auth
	admin  *handler.Admin
	driver *handler.Driver
	feed   *wshandler.AdminFeed
}

func New(cfg config.Config, services Services, logger logger.Logger) (*API, error) {
	if services.Auth == nil {
		return nil, errors.New("auth service is required")
	}

	h := &handlers{
		health: handler.NewHealth(string(cfg.Mode), services.Dependencies, logger),
		feed:   services.Feed,
	}

	if cfg.Mode.Has(types.AuthService) {
		h.auth = handler.NewAuth(services.Auth, logger)
	}
	if cfg.Mode.Has(types.AdminService) {
		if services.Admin == nil {
			return nil, errors.New("admin service is required")
		}
		h.admin = handler.NewAdmin(services.Admin, logger)
	}
	if cfg.Mode.Has(types.DriverService) {
		if services.Driver == nil {
			return nil, errors.New("driver service is required")
		}
		h.driver = handler.NewDriver(services.Driver, logger)
	}
	if !cfg.Mode.Valid() {
		return nil, fmt.Errorf("invalid mode: %s", cfg.Mode)
	}

	api := &API{
		mode:   cfg.Mode,
		mux:    http.NewServeMux(),
		routes: h,
		m:      middleware.NewMiddleware(services.Auth, logger),
		addr:   fmt.Sprintf(serverIPAddress, "0.0.0.0", cfg.Port()),
		cfg:    cfg,
		log:    logger,
	}

	api.setupRoutes()

	api.server = &http.Server{
		Addr:              api.addr,
		Handler:           api.withMiddleware(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		ErrorLog:          slog.NewLogLogger(logger.GetSlogLogger().Handler(), slog.LevelWarn),
	}

	return api, nil
}

func (a *API) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	ctx = wrap.WithAction(ctx, "http_server_stop")

	a.log.Debug(ctx, "shutting down HTTP server...", "address", a.addr)
	if a.routes.feed != nil {
		// hijacked connections are not closed by Shutdown
		a.routes.feed.Close()
	}
	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}
	a.log.Debug(ctx, "shutting down HTTP server completed")

	return nil
}

func (a *API) Run(ctx context.Context, errCh chan<- error) {
	go func() {
		ctx = wrap.WithAction(ctx, "http_server_start")
		a.log.Info(ctx, "started http server", "address", a.addr, "base_path", a.basePath())
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("failed to start HTTP server: %w", err)
			return
		}
	}()
}

// Handler returns the full middleware chain, used by tests.
func (a *API) Handler() http.Handler {
	return a.server.Handler
}

// withMiddleware wraps the mux. Metrics sits right on the mux to see the matched pattern.
func (a *API) withMiddleware() http.Handler {
	var h http.Handler = a.m.Metrics(string(a.mode))(a.mux)
	if base := a.basePath(); base != "" {
		h = stripBasePath(base, h)
	}
	h = a.m.Auth(h)
	h = a.m.CORS(a.cfg.HTTP.AllowedOrigins)(h)
	h = a.m.Logging(h)
	h = a.m.RequestID(h)
	return a.m.Recover(h)
}

func (a *API) basePath() string {
	return strings.TrimSuffix(a.cfg.HTTP.BasePath, "/")
}

// stripBasePath serves routes both under base and at the root, so load balancers can hit /health directly.
func stripBasePath(base string, next http.Handler) http.Handler {
	stripped := http.StripPrefix(base, next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == base || strings.HasPrefix(r.URL.Path, base+"/") {
			stripped.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
