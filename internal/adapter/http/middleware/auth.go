package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/navatransportes/nava-fleet/internal/domain/models"
	"github.com/navatransportes/nava-fleet/internal/domain/types"
	wrap "github.com/navatransportes/nava-fleet/pkg/logger/wrapper"
)

var errAuthHeader = errors.New("invalid Authorization header format")

const logoutPath = "/auth/logout"

// Auth validates the bearer token, loads the user and injects it into the context.
// Requests without a header continue as anonymous, protected routes reject them in RequireRoles.
func (h *Middleware) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r.WithContext(models.WithUser(ctx, models.AnonymousUser())))
			return
		}

		token, err := extractBearerToken(header)
		if err != nil {
			unauthorized(w, err.Error())
			return
		}

		user, err := h.auth.RoleCheck(ctx, token)
		switch {
		case errors.Is(err, types.ErrUserInactive):
			errorResponse(w, http.StatusForbidden, types.ErrUserInactive.Error())
			return
		case errors.Is(err, types.ErrExpiredToken) && isLogout(r):
			// logout reads the token itself to revoke the refresh token
			next.ServeHTTP(w, r.WithContext(models.WithUser(ctx, models.AnonymousUser())))
			return
		case errors.Is(err, types.ErrExpiredToken):
			unauthorized(w, types.ErrExpiredToken.Error())
			return
		case errors.Is(err, types.ErrInvalidToken), errors.Is(err, types.ErrRevokedToken):
			h.log.Debug(ctx, "rejected access token", "error", err.Error())
			unauthorized(w, "invalid or revoked token")
			return
		case err != nil || user == nil:
			h.log.Error(wrap.ErrorCtx(ctx, err), "failed to authenticate user", err)
			errorResponse(w, http.StatusInternalServerError, internalErrorMessage)
			return
		}

		ctx = wrap.WithUserID(models.WithUser(ctx, user), user.ID.String())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRoles allows only authenticated users with one of the given roles.
func (h *Middleware) RequireRoles(next http.HandlerFunc, allowedRoles ...types.UserRole) http.Handler {
	allowed := make(map[types.UserRole]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := models.UserFromContext(r.Context())
		if user.IsAnonymous() {
			unauthorized(w, "authorization required")
			return
		}
		if len(allowed) > 0 {
			if _, ok := allowed[user.Role]; !ok {
				errorResponse(w, http.StatusForbidden, "forbidden: insufficient role")
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	errorResponse(w, http.StatusUnauthorized, message)
}

func extractBearerToken(header string) (string, error) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", errAuthHeader
	}
	return strings.TrimSpace(parts[1]), nil
}

// isLogout also matches the route under a base path, Auth runs before the prefix is stripped.
func isLogout(r *http.Request) bool {
	return r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, logoutPath)
}
