package admin

import (
	"context"

	"github.com/google/uuid"

	"github.com/navatransportes/nava-fleet/internal/domain/models"
	"github.com/navatransportes/nava-fleet/internal/domain/types"
)

type UserRepo interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	List(ctx context.Context, f models.UserFilter) ([]models.User, int, error)
	Update(ctx context.Context, id uuid.UUID, upd models.UserUpdate) (*models.User, error)
	Count(ctx context.Context, role types.UserRole) (int, error)
	Latest(ctx context.Context, n int) ([]models.User, error)
}

type TripRepo interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Trip, error)
	List(ctx context.Context, f models.TripFilter) ([]models.Trip, int, error)
	Update(ctx context.Context, t *models.Trip) error
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int, error)
}

type PaymentRepo interface {
	Create(ctx context.Context, p *models.Payment) error
	List(ctx context.Context, f models.PaymentFilter) (*models.PaymentList, error)
}

type AnalyticsRepo interface {
	DriverStats(ctx context.Context) ([]models.DriverStats, error)
}

type Exporter interface {
	Export(format types.ExportFormat, trips []models.Trip, filter models.TripFilter) (*models.ExportFile, error)
}

type Publisher interface {
	Publish(ctx context.Context, event models.Event) error
}
