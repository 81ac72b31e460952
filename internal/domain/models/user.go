package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/navatransportes/nava-fleet/internal/domain/types"
)

type User struct {
	ID           uuid.UUID      `json:"id"`
	Name         string         `json:"name"`
	Email        string         `json:"email"`
	Role         types.UserRole `json:"role"`
	Active       bool           `json:"active"`
	PasswordHash string         `json:"-"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt,omitzero"`
}

// AnonymousUser is put into the context of requests without credentials.
func AnonymousUser() *User {
	return &User{}
}

func (u *User) IsAnonymous() bool {
	return u == nil || u.ID == uuid.Nil
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == types.RoleAdmin
}

type UserCreateRequest struct {
	Name     string
	Email    string
	Password string
	Role     types.UserRole
}

// UserUpdate holds optional changes applied by an administrator.
type UserUpdate struct {
	Name   *string
	Role   *types.UserRole
	Active *bool
}

type UserFilter struct {
	Query string
	Role  types.UserRole
	Filters
}

type UserList struct {
	Items    []User   `json:"items"`
	Total    int      `json:"total"`
	Metadata Metadata `json:"metadata"`
}
