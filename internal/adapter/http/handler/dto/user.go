package dto

import (
	"strings"

	"github.com/navatransportes/nava-fleet/internal/domain/models"
	"github.com/navatransportes/nava-fleet/internal/domain/types"
	"github.com/navatransportes/nava-fleet/pkg/validator"
)

type CreateUserRequest struct {
	Name     string         `json:"name"`
	Email    string         `json:"email"`
	Password string         `json:"password"`
	Role     types.UserRole `json:"role"`
}

func (r *CreateUserRequest) Validate(v *validator.Validator) {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	if r.Role == "" {
		r.Role = types.RoleDriver
	}

	v.Check(r.Name != "", "name", "must be provided")
	v.Check(len(r.Name) <= 200, "name", "must not be more than 200 bytes long")

	v.Check(r.Email != "", "email", "must be provided")
	v.Check(validator.Matches(r.Email, validator.EmailRX), "email", "must be a valid email address")
	v.Check(len(r.Email) <= 254, "email", "must not be more than 254 bytes long")

	ValidatePassword(v, "password", r.Password)
	v.Check(r.Role.Valid(), "role", "must be admin or driver")
}

func (r *CreateUserRequest) ToModel() models.UserCreateRequest {
	return models.UserCreateRequest{
		Name:     r.Name,
		Email:    r.Email,
		Password: r.Password,
		Role:     r.Role,
	}
}

type UpdateUserRequest struct {
	Name   *string         `json:"name"`
	Role   *types.UserRole `json:"role"`
	Active *bool           `json:"active"`
}

func (r *UpdateUserRequest) Validate(v *validator.Validator) {
	v.Check(r.Name != nil || r.Role != nil || r.Active != nil, "body", "must change at least one field")
	if r.Name != nil {
		*r.Name = strings.TrimSpace(*r.Name)
		v.Check(*r.Name != "", "name", "must not be empty")
		v.Check(len(*r.Name) <= 200, "name", "must not be more than 200 bytes long")
	}
	if r.Role != nil {
		v.Check(r.Role.Valid(), "role", "must be admin or driver")
	}
}

func (r *UpdateUserRequest) ToModel() models.UserUpdate {
	return models.UserUpdate{Name: r.Name, Role: r.Role, Active: r.Active}
}
