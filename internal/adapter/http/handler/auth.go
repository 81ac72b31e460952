package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/navatransportes/nava-fleet/internal/adapter/http/handler/dto"
	"github.com/navatransportes/nava-fleet/internal/domain/models"
	"github.com/navatransportes/nava-fleet/internal/domain/types"
	"github.com/navatransportes/nava-fleet/pkg/logger"
	wrap "github.com/navatransportes/nava-fleet/pkg/logger/wrapper"
	"github.com/navatransportes/nava-fleet/pkg/validator"
)

type AuthService interface {
	Login(ctx context.Context, email, password string) (*models.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	Logout(ctx context.Context, accessToken, refreshToken string) error
	ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error
}

type Auth struct {
	auth AuthService
	l    logger.Logger
}

func NewAuth(service AuthService, l logger.Logger) *Auth {
	return &Auth{
		auth: service,
		l:    l,
	}
}

// Login godoc
// @Summary      Sign in
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      dto.LoginRequest  true  "credentials"
// @Success      200   {object}  dto.LoginResponse
// @Failure      401   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Router       /auth/login [post]
func (h *Auth) Login(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "login_user")

	req := &dto.LoginRequest{}
	if err := readJSON(w, r, req); err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	res, err := h.auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		logServiceError(ctx, h.l, "failed to login user", err)
		serviceErrorResponse(w, err)
		return
	}

	response := envelope{
		"user":             res.User,
		"accessToken":      res.Tokens.AccessToken,
		"accessExpiresAt":  res.Tokens.AccessExpiresAt,
		"refreshToken":     res.Tokens.RefreshToken,
		"refreshExpiresAt": res.Tokens.RefreshExpiresAt,
	}

	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write JSON response", err)
		internalErrorResponse(w, "failed to write JSON response")
	}
}

// Refresh godoc
// @Summary      Rotate the token pair
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      dto.RefreshTokenRequest  true  "refresh token"
// @Success      200   {object}  dto.TokenResponse
// @Failure      401   {object}  map[string]string
// @Router       /auth/refresh [post]
func (h *Auth) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "refresh_token")

	req := &dto.RefreshTokenRequest{}
	if err := readJSON(w, r, req); err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	tokens, err := h.auth.Refresh(ctx, req.RefreshToken)
	if err != nil {
		logServiceError(ctx, h.l, "failed to refresh token pair", err)
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{
		"accessToken":      tokens.AccessToken,
		"accessExpiresAt":  tokens.AccessExpiresAt,
		"refreshToken":     tokens.RefreshToken,
		"refreshExpiresAt": tokens.RefreshExpiresAt,
	}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write JSON response", err)
		internalErrorResponse(w, "failed to write JSON response")
	}
}

// Me godoc
// @Summary      Current user
// @Tags         Auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]models.User
// @Failure      401  {object}  map[string]string
// @Router       /auth/me [get]
func (h *Auth) Me(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "get_me")

	user := models.UserFromContext(ctx)
	if user.IsAnonymous() {
		unauthorizedResponse(w)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"user": user}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write JSON response", err)
		internalErrorResponse(w, "failed to write JSON response")
	}
}

// Logout godoc
// @Summary      Sign out
// @Description  Revokes the refresh token when given and deny-lists the access token until it expires.
// @Tags         Auth
// @Accept       json
// @Security     BearerAuth
// @Param        body  body  dto.LogoutRequest  false  "refresh token"
// @Success      204
// @Failure      401  {object}  map[string]string
// @Router       /auth/logout [post]
func (h *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "logout_user")

	access := bearerToken(r)
	if access == "" {
		unauthorizedResponse(w)
		return
	}

	req := &dto.LogoutRequest{}
	if r.ContentLength != 0 {
		if err := readJSON(w, r, req); err != nil {
			badRequestResponse(w, err.Error())
			return
		}
	}

	if err := h.auth.Logout(ctx, access, req.RefreshToken); err != nil {
		logServiceError(ctx, h.l, "failed to logout user", err)
		serviceErrorResponse(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ChangePassword godoc
// @Summary      Change own password
// @Description  Every refresh token of the user is revoked.
// @Tags         Auth
// @Accept       json
// @Security     BearerAuth
// @Param        body  body  dto.ChangePasswordRequest  true  "passwords"
// @Success      204
// @Failure      401  {object}  map[string]string
// @Failure      422  {object}  map[string]string
// @Router       /auth/password [put]
func (h *Auth) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "change_password")

	user := models.UserFromContext(ctx)
	if user.IsAnonymous() {
		unauthorizedResponse(w)
		return
	}
	ctx = wrap.WithUserID(ctx, user.ID.String())

	req := &dto.ChangePasswordRequest{}
	if err := readJSON(w, r, req); err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	err := h.auth.ChangePassword(ctx, user.ID, req.CurrentPassword, req.NewPassword)
	if errors.Is(err, types.ErrInvalidCredentials) {
		// a 401 here would make clients refresh their session
		v.AddError("currentPassword", "is incorrect")
		failedValidationResponse(w, v.Errors)
		return
	}
	if err != nil {
		logServiceError(ctx, h.l, "failed to change password", err)
		serviceErrorResponse(w, err)
		return
	}

	h.l.Info(ctx, "password changed")
	w.WriteHeader(http.StatusNoContent)
}

// logServiceError logs client errors as warnings and everything else as errors.
func logServiceError(ctx context.Context, l logger.Logger, msg string, err error) {
	if GetCode(err) < http.StatusInternalServerError {
		l.Warn(wrap.ErrorCtx(ctx, err), msg, "error", err.Error())
		return
	}
	l.Error(wrap.ErrorCtx(ctx, err), msg, err)
}

func bearerToken(r *http.Request) string {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}
