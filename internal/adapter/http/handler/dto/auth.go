package dto

import (
	"time"

	"github.com/navatransportes/nava-fleet/internal/domain/models"
	"github.com/navatransportes/nava-fleet/pkg/validator"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Validate(v *validator.Validator) {
	v.Check(r.Email != "", "email", "must be provided")
	v.Check(r.Password != "", "password", "must be provided")
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (r *RefreshTokenRequest) Validate(v *validator.Validator) {
	v.Check(r.RefreshToken != "", "refreshToken", "must be provided")
}

// LogoutRequest is optional, a logout without body only deny-lists the access token.
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (r *ChangePasswordRequest) Validate(v *validator.Validator) {
	v.Check(r.CurrentPassword != "", "currentPassword", "must be provided")
	ValidatePassword(v, "newPassword", r.NewPassword)
	v.Check(r.NewPassword != r.CurrentPassword, "newPassword", "must differ from the current password")
}

type TokenResponse struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

func NewTokenResponse(p *models.TokenPair) TokenResponse {
	return TokenResponse{
		AccessToken:      p.AccessToken,
		AccessExpiresAt:  p.AccessExpiresAt,
		RefreshToken:     p.RefreshToken,
		RefreshExpiresAt: p.RefreshExpiresAt,
	}
}

type LoginResponse struct {
	User *models.User `json:"user"`
	TokenResponse
}

func ValidatePassword(v *validator.Validator, key, password string) {
	v.Check(password != "", key, "must be provided")
	v.Check(len(password) >= 8, key, "must be at least 8 bytes long")
	v.Check(len(password) <= 72, key, "must not be more than 72 bytes long")
}
