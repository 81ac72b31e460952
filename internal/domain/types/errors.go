package types

import "errors"

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserInactive      = errors.New("user is inactive")
	ErrEmailAlreadyTaken = errors.New("user with this email already exists")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("expired token")
	ErrRevokedToken       = errors.New("token has been revoked")
	ErrForbidden          = errors.New("action forbidden")

	ErrTripNotFound    = errors.New("trip not found")
	ErrTripWithoutLegs = errors.New("trip must have at least one leg")
	ErrDriverNotFound  = errors.New("driver not found")

	ErrPaymentNotFound      = errors.New("payment not found")
	ErrInvalidPaymentAmount = errors.New("payment amount must be greater than zero")

	ErrInvalidExportFormat = errors.New("invalid export format")

	ErrDatabaseFailed       = errors.New("database operation failed")
	ErrFailedToPublishEvent = errors.New("failed to publish event")
	ErrNotFound             = errors.New("requested item not found")
)
