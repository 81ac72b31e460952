package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/navatransportes/nava-fleet/internal/domain/models"
	"github.com/navatransportes/nava-fleet/internal/domain/types"
	"github.com/navatransportes/nava-fleet/pkg/hasher"
	"github.com/navatransportes/nava-fleet/pkg/logger"
	wrap "github.com/navatransportes/nava-fleet/pkg/logger/wrapper"
	"github.com/navatransportes/nava-fleet/pkg/trm"
)

type TokenService struct {
	userRepo    UserRepo
	refreshRepo RefreshTokenRepo
	txManager   trm.TxManager
	RefreshTTL  time.Duration
	AccessTTL   time.Duration
	secret      string
	log         logger.Logger

	now func() time.Time
}

func NewTokenService(secret string, userRepo UserRepo, refreshRepo RefreshTokenRepo, txManager trm.TxManager, refreshTTL, accessTTL time.Duration, log logger.Logger) *TokenService {
	return &TokenService{
		userRepo:    userRepo,
		refreshRepo: refreshRepo,
		txManager:   txManager,
		RefreshTTL:  refreshTTL,
		AccessTTL:   accessTTL,
		secret:      secret,
		log:         log,
		now:         time.Now,
	}
}

// GenerateTokens creates a new pair of access and refresh tokens for the given user.
// Only the hash of the refresh token is stored.
func (s *TokenService) GenerateTokens(ctx context.Context, user *models.User) (*models.TokenPair, error) {
	ctx = wrap.WithAction(ctx, "generate_tokens")
	if user == nil {
		return nil, wrap.Error(ctx, errors.New("user is nil"))
	}

	issuedAt := s.now().UTC()
	accessID := uuid.New()
	refreshID := uuid.New()

	accessExp := issuedAt.Add(s.AccessTTL)
	refreshExp := issuedAt.Add(s.RefreshTTL)

	accessToken, err := s.signClaims(NewAccessClaim(user, issuedAt, s.AccessTTL, accessID))
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	refreshToken, err := s.signClaims(NewRefreshClaim(user, issuedAt, s.RefreshTTL, refreshID))
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	record := &models.RefreshTokenRecord{
		ID:        refreshID,
		UserID:    user.ID,
		TokenHash: hasher.Hash(refreshToken),
		ExpiresAt: refreshExp,
		CreatedAt: issuedAt,
	}
	if err := s.refreshRepo.Save(ctx, record); err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("failed to persist refresh token: %w", err))
	}

	return &models.TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Refresh rotates the refresh token: the presented one is marked used and a new pair is issued.
// Presenting a used token again revokes every session of its user.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	ctx = wrap.WithAction(ctx, "refresh_token")

	claims, err := s.Validate(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != models.RefreshToken {
		return nil, wrap.Error(ctx, types.ErrInvalidToken)
	}
	ctx = wrap.WithUserID(ctx, claims.UserID.String())

	var (
		pair   *models.TokenPair
		reject error
	)

	// rejections still commit, the revocations must stick
	txErr := s.txManager.Do(ctx, func(txCtx context.Context) error {
		record, err := s.refreshRepo.Get(txCtx, claims.TokenID)
		if errors.Is(err, types.ErrNotFound) {
			reject = types.ErrInvalidToken
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to load refresh token record: %w", err)
		}

		switch {
		case record.UserID != claims.UserID || !hasher.Verify(refreshToken, record.TokenHash):
			reject = types.ErrInvalidToken
		case record.Revoked:
			s.log.Warn(txCtx, "refresh token reuse detected, revoking all sessions", "token_id", record.ID.String())
			if err := s.refreshRepo.RevokeAllForUser(txCtx, record.UserID); err != nil {
				return fmt.Errorf("failed to revoke sessions: %w", err)
			}
			reject = types.ErrRevokedToken
		case s.now().UTC().After(record.ExpiresAt):
			reject = types.ErrExpiredToken
		}
		if reject != nil {
			return nil
		}

		if err := s.refreshRepo.MarkUsed(txCtx, record.ID); err != nil {
			return fmt.Errorf("failed to mark refresh token as used: %w", err)
		}

		user, err := s.userRepo.GetByID(txCtx, claims.UserID)
		if err != nil {
			return fmt.Errorf("failed to load user for refresh token: %w", err)
		}
		if !user.Active {
			reject = types.ErrUserInactive
			return nil
		}

		pair, err = s.GenerateTokens(txCtx, user)
		return err
	})
	if txErr != nil {
		return nil, wrap.Error(ctx, txErr)
	}
	if reject != nil {
		return nil, wrap.Error(ctx, reject)
	}

	return pair, nil
}

// Validate checks the signature and expiry of token and returns its claims.
func (s *TokenService) Validate(ctx context.Context, token string) (*models.CustomClaims, error) {
	return s.parse(wrap.WithAction(ctx, "validate_token"), token, jwt.WithExpirationRequired(), jwt.WithTimeFunc(s.now))
}

// ExpiredClaims checks only the signature of token, so an expired token still yields its claims.
func (s *TokenService) ExpiredClaims(ctx context.Context, token string) (*models.CustomClaims, error) {
	return s.parse(wrap.WithAction(ctx, "read_expired_token"), token, jwt.WithoutClaimsValidation())
}

func (s *TokenService) parse(ctx context.Context, token string, opts ...jwt.ParserOption) (*models.CustomClaims, error) {
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		return []byte(s.secret), nil
	}, opts...)
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, wrap.Error(ctx, types.ErrExpiredToken)
	}
	if err != nil || !parsed.Valid {
		return nil, wrap.Error(ctx, types.ErrInvalidToken)
	}

	mc, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, wrap.Error(ctx, types.ErrInvalidToken)
	}

	typ, _ := mc["typ"].(string)
	if !models.IsValidTokenType(typ) {
		return nil, wrap.Error(ctx, types.ErrInvalidToken)
	}

	userID, err := uuidClaim(mc, "user_id")
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	tokenID, err := uuidClaim(mc, "jti")
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	exp, err := mc.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, wrap.Error(ctx, types.ErrInvalidToken)
	}

	email, _ := mc["email"].(string)
	role, _ := mc["role"].(string)

	return &models.CustomClaims{
		UserID:    userID,
		TokenID:   tokenID,
		TokenType: typ,
		Email:     email,
		Role:      role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: exp,
		},
	}, nil
}

func uuidClaim(mc jwt.MapClaims, key string) (uuid.UUID, error) {
	s, _ := mc[key].(string)
	if s == "" {
		return uuid.Nil, fmt.Errorf("%w: missing '%s' claim", types.ErrInvalidToken, key)
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid '%s' claim", types.ErrInvalidToken, key)
	}
	return id, nil
}

func (s *TokenService) signClaims(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secret))
}

func NewAccessClaim(user *models.User, issuedAt time.Time, accessTTL time.Duration, tokenID uuid.UUID) jwt.Claims {
	return jwt.MapClaims{
		"typ":     models.AccessToken,
		"jti":     tokenID.String(),
		"user_id": user.ID.String(),
		"email":   user.Email,
		"role":    user.Role.String(),
		"iat":     issuedAt.Unix(),
		"exp":     issuedAt.Add(accessTTL).Unix(),
	}
}

func NewRefreshClaim(user *models.User, issuedAt time.Time, refreshTTL time.Duration, tokenID uuid.UUID) jwt.Claims {
	return jwt.MapClaims{
		"typ":     models.RefreshToken,
		"jti":     tokenID.String(),
		"user_id": user.ID.String(),
		"iat":     issuedAt.Unix(),
		"exp":     issuedAt.Add(refreshTTL).Unix(),
	}
}
