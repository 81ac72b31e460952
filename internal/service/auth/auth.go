package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/navatransportes/nava-fleet/internal/domain/models"
	"github.com/navatransportes/nava-fleet/internal/domain/types"
	"github.com/navatransportes/nava-fleet/pkg/logger"
	wrap "github.com/navatransportes/nava-fleet/pkg/logger/wrapper"
	"github.com/navatransportes/nava-fleet/pkg/metrics"
	"github.com/navatransportes/nava-fleet/pkg/passhash"
	"github.com/navatransportes/nava-fleet/pkg/trm"
)

type AuthService struct {
	userRepo     UserRepo
	refreshRepo  RefreshTokenRepo
	tokenService TokenProvider
	denylist     Denylist
	txManager    trm.TxManager
	bcryptCost   int
	service      string
	log          logger.Logger
}

type Config struct {
	Service    string
	BcryptCost int
}

func NewAuthService(cfg Config, userRepo UserRepo, refreshRepo RefreshTokenRepo, tokens TokenProvider, denylist Denylist, txManager trm.TxManager, log logger.Logger) *AuthService {
	return &AuthService{
		userRepo:     userRepo,
		refreshRepo:  refreshRepo,
		tokenService: tokens,
		denylist:     denylist,
		txManager:    txManager,
		bcryptCost:   cfg.BcryptCost,
		service:      cfg.Service,
		log:          log,
	}
}

// Login checks the credentials and issues a token pair. Unknown emails and wrong passwords
// are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (_ *models.LoginResult, err error) {
	ctx = wrap.WithAction(ctx, "login")
	defer func() { metrics.RecordAuthAttempt(s.service, "login", err) }()

	user, err := s.userRepo.GetByEmail(ctx, email)
	if errors.Is(err, types.ErrUserNotFound) {
		return nil, types.ErrInvalidCredentials
	}
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	ctx = wrap.WithUserID(ctx, user.ID.String())

	ok, err := passhash.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("failed to verify password: %w", err))
	}
	if !ok {
		return nil, types.ErrInvalidCredentials
	}
	if !user.Active {
		return nil, types.ErrUserInactive
	}

	tokens, err := s.tokenService.GenerateTokens(ctx, user)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	s.log.Info(ctx, "user logged in", "role", user.Role.String())
	return &models.LoginResult{User: user, Tokens: tokens}, nil
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (_ *models.TokenPair, err error) {
	defer func() { metrics.RecordAuthAttempt(s.service, "refresh", err) }()
	return s.tokenService.Refresh(ctx, refreshToken)
}

// Logout denies the access token until it expires and revokes the refresh token when given.
// The refresh token must belong to the same user. An expired access token still identifies
// the user, then only the refresh token is revoked.
func (s *AuthService) Logout(ctx context.Context, accessToken, refreshToken string) error {
	ctx = wrap.WithAction(ctx, types.ActionTokenRevoked)

	access, err := s.tokenService.Validate(ctx, accessToken)
	expired := errors.Is(err, types.ErrExpiredToken)
	if expired {
		access, err = s.tokenService.ExpiredClaims(ctx, accessToken)
	}
	if err != nil {
		return err
	}
	if access.TokenType != models.AccessToken {
		return wrap.Error(ctx, types.ErrInvalidToken)
	}
	ctx = wrap.WithUserID(ctx, access.UserID.String())

	if refreshToken != "" {
		refresh, err := s.tokenService.Validate(ctx, refreshToken)
		switch {
		case errors.Is(err, types.ErrExpiredToken):
			// nothing left to revoke
		case err != nil:
			return err
		case refresh.TokenType != models.RefreshToken || refresh.UserID != access.UserID:
			return wrap.Error(ctx, types.ErrInvalidToken)
		default:
			if err := s.refreshRepo.MarkUsed(ctx, refresh.TokenID); err != nil {
				return wrap.Error(ctx, err)
			}
		}
	}

	if !expired {
		ttl := time.Until(access.ExpiresAt.Time)
		if err := s.denylist.Revoke(ctx, access.TokenID.String(), ttl); err != nil {
			return wrap.Error(ctx, fmt.Errorf("failed to deny access token: %w", err))
		}
	}

	s.log.Info(ctx, "user logged out")
	return nil
}

// ChangePassword replaces the password and signs out every other session.
func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	ctx = wrap.WithUserID(wrap.WithAction(ctx, "change_password"), userID.String())

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return wrap.Error(ctx, err)
	}

	ok, err := passhash.VerifyPassword(current, user.PasswordHash)
	if err != nil {
		return wrap.Error(ctx, err)
	}
	if !ok {
		return types.ErrInvalidCredentials
	}

	hash, err := passhash.HashPassword(next, s.bcryptCost)
	if err != nil {
		return wrap.Error(ctx, err)
	}

	err = s.txManager.Do(ctx, func(ctx context.Context) error {
		if err := s.userRepo.UpdatePassword(ctx, userID, hash); err != nil {
			return err
		}
		return s.refreshRepo.RevokeAllForUser(ctx, userID)
	})
	if err != nil {
		return wrap.Error(ctx, err)
	}

	s.log.Info(ctx, "password changed")
	return nil
}

// RoleCheck resolves an access token to an active user.
func (s *AuthService) RoleCheck(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.tokenService.Validate(ctx, token)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != models.AccessToken {
		return nil, types.ErrInvalidToken
	}
	ctx = wrap.WithUserID(ctx, claims.UserID.String())

	revoked, err := s.denylist.IsRevoked(ctx, claims.TokenID.String())
	if err != nil {
		// fail open
		s.log.Warn(ctx, "denylist check failed", "error", err.Error())
	}
	if revoked {
		return nil, types.ErrRevokedToken
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if errors.Is(err, types.ErrUserNotFound) {
		return nil, types.ErrInvalidToken
	}
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	if !user.Active {
		return nil, types.ErrUserInactive
	}

	return user, nil
}

// CleanupExpired deletes refresh tokens that expired before now.
func (s *AuthService) CleanupExpired(ctx context.Context) (int64, error) {
	n, err := s.refreshRepo.DeleteExpired(ctx, time.Now().UTC())
	if err != nil {
		return 0, wrap.Error(wrap.WithAction(ctx, "refresh_token_cleanup"), err)
	}
	return n, nil
}
