package navaclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/navatransportes/nava-fleet/internal/domain/models"
	"github.com/navatransportes/nava-fleet/pkg/session"
)

type tokenResponse struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

func (t tokenResponse) pair() session.TokenPair {
	return session.TokenPair{AccessToken: t.AccessToken, RefreshToken: t.RefreshToken}
}

type loginResponse struct {
	User models.User `json:"user"`
	tokenResponse
}

// Login exchanges credentials for a token pair and stores it.
func (c *Client) Login(ctx context.Context, email, password string) (*models.User, error) {
	in := map[string]string{"email": email, "password": password}

	var out loginResponse
	if err := c.do(ctx, c.plain, http.MethodPost, "/auth/login", nil, in, &out); err != nil {
		return nil, err
	}

	if err := c.session.Authenticate(ctx, out.pair()); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}
	return &out.User, nil
}

// Refresh implements session.Refresher. It bypasses the session transport.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (session.TokenPair, error) {
	in := map[string]string{"refreshToken": refreshToken}

	var out tokenResponse
	if err := c.do(ctx, c.plain, http.MethodPost, "/auth/refresh", nil, in, &out); err != nil {
		return session.TokenPair{}, err
	}
	return out.pair(), nil
}

// Logout revokes the session on the server and always clears the local tokens.
func (c *Client) Logout(ctx context.Context) error {
	pair, err := c.session.Tokens(ctx)
	if err != nil {
		return err
	}
	if pair.Empty() {
		return nil
	}

	var in map[string]string
	if pair.RefreshToken != "" {
		in = map[string]string{"refreshToken": pair.RefreshToken}
	}
	serverErr := c.do(ctx, c.api, http.MethodPost, "/auth/logout", nil, in, nil)
	if serverErr != nil {
		c.log.Warn(ctx, "server side logout failed", "error", serverErr.Error())
	}

	if _, err := c.session.Logout(ctx); err != nil {
		return err
	}
	return serverErr
}

func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var out struct {
		User models.User `json:"user"`
	}
	if err := c.do(ctx, c.api, http.MethodGet, "/auth/me", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	in := map[string]string{"currentPassword": current, "newPassword": next}
	return c.do(ctx, c.api, http.MethodPut, "/auth/password", nil, in, nil)
}
