package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/navatransportes/nava-fleet/internal/domain/models"
	"github.com/navatransportes/nava-fleet/internal/domain/types"
	"github.com/navatransportes/nava-fleet/pkg/logger"
	wrap "github.com/navatransportes/nava-fleet/pkg/logger/wrapper"
)

type fakeAuth struct {
	users map[string]*models.User
	err   error
}

func (f *fakeAuth) RoleCheck(_ context.Context, token string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[token]
	if !ok {
		return nil, types.ErrInvalidToken
	}
	return u, nil
}

func newTestMiddleware(auth *fakeAuth) *Middleware {
	return NewMiddleware(auth, logger.Nop())
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body["error"]
}

func TestAuth(t *testing.T) {
	driver := &models.User{ID: uuid.New(), Role: types.RoleDriver, Active: true}
	auth := &fakeAuth{users: map[string]*models.User{"good": driver}}

	tests := []struct {
		name       string
		header     string
		err        error
		wantStatus int
		wantUser   bool
	}{
		{name: "no header is anonymous", wantStatus: http.StatusOK},
		{name: "valid token", header: "Bearer good", wantStatus: http.StatusOK, wantUser: true},
		{name: "lowercase scheme", header: "bearer good", wantStatus: http.StatusOK, wantUser: true},
		{name: "malformed header", header: "Token good", wantStatus: http.StatusUnauthorized},
		{name: "unknown token", header: "Bearer nope", wantStatus: http.StatusUnauthorized},
		{name: "expired", header: "Bearer good", err: types.ErrExpiredToken, wantStatus: http.StatusUnauthorized},
		{name: "revoked", header: "Bearer good", err: types.ErrRevokedToken, wantStatus: http.StatusUnauthorized},
		{name: "inactive", header: "Bearer good", err: types.ErrUserInactive, wantStatus: http.StatusForbidden},
		{name: "store failure", header: "Bearer good", err: errors.New("db down"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth.err = tt.err
			m := newTestMiddleware(auth)

			var got *models.User
			h := m.Auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = models.UserFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/driver/trips", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if rec.Code == http.StatusUnauthorized && rec.Header().Get("WWW-Authenticate") != "Bearer" {
				t.Fatalf("401 without WWW-Authenticate header")
			}
			if rec.Code == http.StatusInternalServerError && strings.Contains(decodeError(t, rec), "db down") {
				t.Fatalf("internal error text leaked to the client")
			}
			if tt.wantUser && (got == nil || got.ID != driver.ID) {
				t.Fatalf("user not injected: %+v", got)
			}
			if tt.wantStatus == http.StatusOK && !tt.wantUser && !got.IsAnonymous() {
				t.Fatalf("expected anonymous user, got %+v", got)
			}
		})
	}
}

func TestAuth_ExpiredTokenOnLogout(t *testing.T) {
	auth := &fakeAuth{err: types.ErrExpiredToken}
	m := newTestMiddleware(auth)

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{"logout", http.MethodPost, "/auth/logout", http.StatusNoContent},
		{"logout under base path", http.MethodPost, "/nava/auth/logout", http.StatusNoContent},
		{"other route", http.MethodPost, "/driver/trips", http.StatusUnauthorized},
		{"logout with wrong method", http.MethodGet, "/auth/logout", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := m.Auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if !models.UserFromContext(r.Context()).IsAnonymous() {
					t.Errorf("expired token must not authenticate")
				}
				w.WriteHeader(http.StatusNoContent)
			}))

			req := httptest.NewRequest(tt.method, tt.path, nil)
			req.Header.Set("Authorization", "Bearer old")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestRequireRoles(t *testing.T) {
	m := newTestMiddleware(&fakeAuth{})
	ok := func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }

	tests := []struct {
		name       string
		user       *models.User
		roles      []types.UserRole
		wantStatus int
	}{
		{"anonymous", models.AnonymousUser(), []types.UserRole{types.RoleAdmin}, http.StatusUnauthorized},
		{"missing user", nil, nil, http.StatusUnauthorized},
		{"wrong role", &models.User{ID: uuid.New(), Role: types.RoleDriver}, []types.UserRole{types.RoleAdmin}, http.StatusForbidden},
		{"allowed role", &models.User{ID: uuid.New(), Role: types.RoleAdmin}, []types.UserRole{types.RoleDriver, types.RoleAdmin}, http.StatusNoContent},
		{"any signed in user", &models.User{ID: uuid.New(), Role: types.RoleDriver}, nil, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
			if tt.user != nil {
				req = req.WithContext(models.WithUser(req.Context(), tt.user))
			}
			rec := httptest.NewRecorder()
			m.RequireRoles(ok, tt.roles...).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	m := newTestMiddleware(&fakeAuth{})

	var seen, logged string
	h := m.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = types.RequestIDFromContext(r.Context())
		logged = wrap.FromContext(r.Context()).RequestID
	}))

	t.Run("reuses incoming id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(types.RequestIDHeader, "abc-123")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if seen != "abc-123" || logged != "abc-123" || rec.Header().Get(types.RequestIDHeader) != "abc-123" {
			t.Fatalf("request id not propagated: ctx=%q log=%q header=%q", seen, logged, rec.Header().Get(types.RequestIDHeader))
		}
	})

	t.Run("replaces oversized id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(types.RequestIDHeader, strings.Repeat("x", 100))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if _, err := uuid.Parse(seen); err != nil {
			t.Fatalf("expected generated uuid, got %q", seen)
		}
	})
}

func TestRecover(t *testing.T) {
	m := newTestMiddleware(&fakeAuth{})
	h := m.Recover(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("secret details")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if msg := decodeError(t, rec); strings.Contains(msg, "secret") {
		t.Fatalf("panic value leaked: %q", msg)
	}
}

func TestMetrics_KeepsStatusAndHijacker(t *testing.T) {
	m := newTestMiddleware(&fakeAuth{})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /admin/trips/{id}", func(w http.ResponseWriter, r *http.Request) {
		if _, ok := w.(http.Hijacker); !ok {
			t.Errorf("wrapped writer lost http.Hijacker")
		}
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	m.Logging(m.Metrics("test")(mux)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/trips/"+uuid.NewString(), nil))

	if rec.Code != http.StatusTeapot {
		t.Fatalf("status = %d, want 418", rec.Code)
	}
}

func TestCORS_Preflight(t *testing.T) {
	m := newTestMiddleware(&fakeAuth{})
	h := m.CORS([]string{"http://localhost:3000"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/driver/trips", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("Access-Control-Allow-Origin = %q", got)
	}
}
