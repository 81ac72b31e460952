package server

import (
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/navatransportes/nava-fleet/internal/domain/types"
)

// setupRoutes registers the routes of every service the mode serves.
func (a *API) setupRoutes() {
	a.mux.HandleFunc("GET /health", a.routes.health.HealthCheck)
	a.mux.Handle("GET /metrics", promhttp.Handler())
	a.setupSwaggerRoutes()

	if a.mode.Has(types.AuthService) {
		a.setupAuthRoutes()
	}
	if a.mode.Has(types.AdminService) {
		a.setupAdminRoutes()
	}
	if a.mode.Has(types.DriverService) {
		a.setupDriverRoutes()
	}
}

func (a *API) setupAuthRoutes() {
	h, m := a.routes.auth, a.m

	a.mux.HandleFunc("POST /auth/login", h.Login)
	a.mux.HandleFunc("POST /auth/refresh", h.Refresh)
	a.mux.HandleFunc("GET /auth/me", h.Me)
	a.mux.HandleFunc("POST /auth/logout", h.Logout)
	a.mux.Handle("PUT /auth/password", m.RequireRoles(h.ChangePassword))
}

func (a *API) setupAdminRoutes() {
	h, m := a.routes.admin, a.m

	a.mux.Handle("GET /admin/dashboard", m.RequireRoles(h.GetDashboard, types.RoleAdmin))

	a.mux.Handle("GET /admin/users", m.RequireRoles(h.ListUsers, types.RoleAdmin))
	a.mux.Handle("POST /admin/users", m.RequireRoles(h.CreateUser, types.RoleAdmin))
	a.mux.Handle("PATCH /admin/users/{id}", m.RequireRoles(h.UpdateUser, types.RoleAdmin))

	a.mux.Handle("GET /admin/trips", m.RequireRoles(h.ListTrips, types.RoleAdmin))
	a.mux.Handle("GET /admin/trips/export", m.RequireRoles(h.ExportTrips, types.RoleAdmin))
	a.mux.Handle("GET /admin/trips/{id}", m.RequireRoles(h.GetTrip, types.RoleAdmin))
	a.mux.Handle("PUT /admin/trips/{id}", m.RequireRoles(h.UpdateTrip, types.RoleAdmin))
	a.mux.Handle("DELETE /admin/trips/{id}", m.RequireRoles(h.DeleteTrip, types.RoleAdmin))

	a.mux.Handle("GET /admin/payments", m.RequireRoles(h.ListPayments, types.RoleAdmin))
	a.mux.Handle("POST /admin/payments", m.RequireRoles(h.RegisterPayment, types.RoleAdmin))

	a.mux.Handle("GET /admin/analytics/drivers", m.RequireRoles(h.DriverAnalytics, types.RoleAdmin))

	if a.routes.feed != nil {
		// authenticates with the token query parameter
		a.mux.HandleFunc("GET /ws/admin", a.routes.feed.HandleWS)
	}
}

// setupDriverRoutes registers the driver app routes. Admins may use them to post on behalf of a driver.
func (a *API) setupDriverRoutes() {
	h, m := a.routes.driver, a.m

	a.mux.Handle("POST /driver/trips", m.RequireRoles(h.CreateTrip, types.RoleDriver, types.RoleAdmin))
	a.mux.Handle("GET /driver/trips", m.RequireRoles(h.ListTrips, types.RoleDriver, types.RoleAdmin))
	a.mux.Handle("PUT /driver/trips/{id}", m.RequireRoles(h.UpdateTrip, types.RoleDriver, types.RoleAdmin))
	a.mux.Handle("DELETE /driver/trips/{id}", m.RequireRoles(h.DeleteTrip, types.RoleDriver, types.RoleAdmin))
	a.mux.Handle("GET /driver/payments", m.RequireRoles(h.Payments, types.RoleDriver))
}

// setupSwaggerRoutes serves the UI of the docs instance registered for the mode.
func (a *API) setupSwaggerRoutes() {
	swaggerURL := httpSwagger.InstanceName(string(a.mode))
	a.mux.HandleFunc("GET /swagger/", httpSwagger.Handler(swaggerURL))
}
