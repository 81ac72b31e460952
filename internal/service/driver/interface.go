package driver

import (
	"context"

	"github.com/google/uuid"

	"github.com/navatransportes/nava-fleet/internal/domain/models"
)

type TripRepo interface {
	Create(ctx context.Context, t *models.Trip) error
	Get(ctx context.Context, id uuid.UUID) (*models.Trip, error)
	List(ctx context.Context, f models.TripFilter) ([]models.Trip, int, error)
	Update(ctx context.Context, t *models.Trip) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type PaymentRepo interface {
	List(ctx context.Context, f models.PaymentFilter) (*models.PaymentList, error)
}

type UserRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// GeoCoder turns the captured position into a readable address.
type GeoCoder interface {
	GetAddress(ctx context.Context, p models.GeoPoint) (string, error)
}

type Publisher interface {
	Publish(ctx context.Context, event models.Event) error
}
