// Package docs registers the OpenAPI documents served by the swagger UI, one instance per service mode.
package docs

import (
	"encoding/json"
	"strings"

	"github.com/swaggo/swag"
)

type route struct {
	method, path, summary, tag string
	public                     bool
}

var (
	authRoutes = []route{
		{"post", "/auth/login", "Sign in", "Auth", true},
		{"post", "/auth/refresh", "Rotate the token pair", "Auth", true},
		{"get", "/auth/me", "Current user", "Auth", false},
		{"post", "/auth/logout", "Sign out", "Auth", false},
		{"put", "/auth/password", "Change own password", "Auth", false},
	}
	adminRoutes = []route{
		{"get", "/admin/dashboard", "Back office totals", "Admin", false},
		{"get", "/admin/users", "List accounts", "Admin", false},
		{"post", "/admin/users", "Create an account", "Admin", false},
		{"patch", "/admin/users/{id}", "Change name, role or active flag", "Admin", false},
		{"get", "/admin/trips", "List trips of every driver", "Admin", false},
		{"get", "/admin/trips/export", "Download the filtered trips as pdf or xlsx", "Admin", false},
		{"get", "/admin/trips/{id}", "Trip details", "Admin", false},
		{"put", "/admin/trips/{id}", "Correct a trip", "Admin", false},
		{"delete", "/admin/trips/{id}", "Delete a trip", "Admin", false},
		{"get", "/admin/payments", "List payments to drivers", "Admin", false},
		{"post", "/admin/payments", "Register a payment to a driver", "Admin", false},
		{"get", "/admin/analytics/drivers", "Per driver totals", "Admin", false},
		{"get", "/ws/admin", "Admin live feed, token in the query", "Admin", true},
	}
	driverRoutes = []route{
		{"post", "/driver/trips", "Submit a trip log", "Driver", false},
		{"get", "/driver/trips", "Own trips, newest first", "Driver", false},
		{"put", "/driver/trips/{id}", "Replace an own trip", "Driver", false},
		{"delete", "/driver/trips/{id}", "Delete an own trip", "Driver", false},
		{"get", "/driver/payments", "Own payments", "Driver", false},
	}
	systemRoutes = []route{
		{"get", "/health", "Health check", "Health", true},
	}
)

var instances = map[string]struct {
	title, description string
	routes             [][]route
}{
	"auth-service":   {"Nava Auth Service API", "Login, token rotation, logout and password change.", [][]route{authRoutes}},
	"admin-service":  {"Nava Admin Service API", "Accounts, trip review, exports, payments and analytics.", [][]route{adminRoutes}},
	"driver-service": {"Nava Driver Service API", "Trip logs and payments of the signed in driver.", [][]route{driverRoutes}},
	"all":            {"Nava Fleet API", "Every Nava Transportes route in one process.", [][]route{authRoutes, adminRoutes, driverRoutes}},
}

// Register registers the document of mode under the instance name mode. Unknown modes are ignored.
func Register(mode, host, basePath string) {
	inst, ok := instances[mode]
	if !ok {
		return
	}

	var routes []route
	for _, group := range inst.routes {
		routes = append(routes, group...)
	}
	routes = append(routes, systemRoutes...)

	swag.Register(mode, &swag.Spec{
		Version:          "1.0",
		Host:             host,
		BasePath:         basePath,
		Schemes:          []string{},
		Title:            inst.title,
		Description:      inst.description,
		InfoInstanceName: mode,
		SwaggerTemplate:  template(routes),
		LeftDelim:        "{{",
		RightDelim:       "}}",
	})
}

func template(routes []route) string {
	paths := map[string]map[string]any{}
	for _, r := range routes {
		op := map[string]any{
			"summary":  r.summary,
			"tags":     []string{r.tag},
			"produces": []string{"application/json"},
			"responses": map[string]any{
				"default": map[string]string{"description": "JSON body, errors as {\"error\": message}"},
			},
		}
		if !r.public {
			op["security"] = []map[string][]string{{"BearerAuth": {}}}
		}
		if strings.Contains(r.path, "{id}") {
			op["parameters"] = []map[string]any{{"name": "id", "in": "path", "required": true, "type": "string", "format": "uuid"}}
		}
		if paths[r.path] == nil {
			paths[r.path] = map[string]any{}
		}
		paths[r.path][r.method] = op
	}

	doc := map[string]any{
		"swagger": "2.0",
		"info": map[string]string{
			"title":       "{{.Title}}",
			"description": "{{.Description}}",
			"version":     "{{.Version}}",
		},
		"host":     "{{.Host}}",
		"basePath": "{{.BasePath}}",
		"paths":    paths,
		"securityDefinitions": map[string]any{
			"BearerAuth": map[string]string{"type": "apiKey", "name": "Authorization", "in": "header"},
		},
	}

	b, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		panic(err)
	}
	return string(b)
}
