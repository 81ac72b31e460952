// Package admin implements the back office: accounts, trip review, exports, payments and analytics.
package admin

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/navatransportes/nava-fleet/internal/domain/models"
	"github.com/navatransportes/nava-fleet/internal/domain/types"
	"github.com/navatransportes/nava-fleet/internal/service/ledger"
	"github.com/navatransportes/nava-fleet/pkg/logger"
	wrap "github.com/navatransportes/nava-fleet/pkg/logger/wrapper"
	"github.com/navatransportes/nava-fleet/pkg/metrics"
	"github.com/navatransportes/nava-fleet/pkg/passhash"
	"github.com/navatransportes/nava-fleet/pkg/trm"
)

const latestUsers = 5

type AdminService struct {
	users     UserRepo
	trips     TripRepo
	payments  PaymentRepo
	analytics AnalyticsRepo
	exporter  Exporter
	publisher Publisher
	trm       trm.TxManager

	cfg Config
	l   logger.Logger
}

type Config struct {
	Service    string
	MapURL     string
	BcryptCost int
	// ExportMaxRows caps the number of trips in one export.
	ExportMaxRows int
}

func NewAdminService(cfg Config, users UserRepo, trips TripRepo, payments PaymentRepo, analytics AnalyticsRepo, exporter Exporter, publisher Publisher, trm trm.TxManager, l logger.Logger) *AdminService {
	if cfg.ExportMaxRows <= 0 {
		cfg.ExportMaxRows = 5000
	}
	return &AdminService{
		users:     users,
		trips:     trips,
		payments:  payments,
		analytics: analytics,
		exporter:  exporter,
		publisher: publisher,
		trm:       trm,
		cfg:       cfg,
		l:         l,
	}
}

// Dashboard fetches the counters concurrently.
func (s *AdminService) Dashboard(ctx context.Context) (*models.Dashboard, error) {
	var d models.Dashboard

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		d.TotalUsers, err = s.users.Count(gctx, "")
		return err
	})
	g.Go(func() (err error) {
		d.Drivers, err = s.users.Count(gctx, types.RoleDriver)
		return err
	})
	g.Go(func() (err error) {
		d.Admins, err = s.users.Count(gctx, types.RoleAdmin)
		return err
	})
	g.Go(func() (err error) {
		d.Trips, err = s.trips.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		d.LatestUsers, err = s.users.Latest(gctx, latestUsers)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, wrap.Error(wrap.WithAction(ctx, "admin_dashboard"), err)
	}
	return &d, nil
}

func (s *AdminService) ListUsers(ctx context.Context, f models.UserFilter) (*models.UserList, error) {
	users, total, err := s.users.List(ctx, f)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	return &models.UserList{
		Items:    users,
		Total:    total,
		Metadata: models.CalculateMetadata(total, f.Page, f.PageSize),
	}, nil
}

func (s *AdminService) CreateUser(ctx context.Context, req models.UserCreateRequest) (*models.User, error) {
	ctx = wrap.WithAction(ctx, "user_create")

	hash, err := passhash.HashPassword(req.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	u := &models.User{
		Name:         req.Name,
		Email:        req.Email,
		Role:         req.Role,
		Active:       true,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, wrap.Error(ctx, err)
	}

	s.l.Info(wrap.WithUserID(ctx, u.ID.String()), "user created", "role", u.Role.String())
	return u, nil
}

// UpdateUser applies upd. An admin cannot demote or deactivate their own account.
func (s *AdminService) UpdateUser(ctx context.Context, caller *models.User, id uuid.UUID, upd models.UserUpdate) (*models.User, error) {
	ctx = wrap.WithUserID(wrap.WithAction(ctx, "user_update"), id.String())

	if caller != nil && caller.ID == id {
		if (upd.Active != nil && !*upd.Active) || (upd.Role != nil && *upd.Role != caller.Role) {
			return nil, types.ErrForbidden
		}
	}

	u, err := s.users.Update(ctx, id, upd)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	return u, nil
}

func (s *AdminService) ListTrips(ctx context.Context, f models.TripFilter) (*models.TripList, error) {
	trips, total, err := s.trips.List(ctx, f)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	for i := range trips {
		s.decorate(&trips[i])
	}
	return &models.TripList{
		Items:    trips,
		Total:    total,
		Metadata: models.CalculateMetadata(total, f.Page, f.PageSize),
	}, nil
}

func (s *AdminService) GetTrip(ctx context.Context, id uuid.UUID) (*models.Trip, error) {
	t, err := s.trips.Get(ctx, id)
	if err != nil {
		return nil, wrap.Error(wrap.WithTripID(ctx, id.String()), err)
	}
	s.decorate(t)
	return t, nil
}

// UpdateTrip applies upd and recomputes the derived values.
func (s *AdminService) UpdateTrip(ctx context.Context, id uuid.UUID, upd models.TripUpdate) (*models.Trip, error) {
	ctx = wrap.WithTripID(wrap.WithAction(ctx, types.ActionTripUpdated), id.String())

	if upd.Legs != nil && len(upd.Legs) == 0 {
		return nil, types.ErrTripWithoutLegs
	}

	var trip *models.Trip
	err := s.trm.Do(ctx, func(ctx context.Context) error {
		var err error
		if trip, err = s.trips.Get(ctx, id); err != nil {
			return err
		}

		if upd.DriverID != nil && *upd.DriverID != trip.DriverID {
			driver, err := s.users.GetByID(ctx, *upd.DriverID)
			if errors.Is(err, types.ErrUserNotFound) || (err == nil && driver.Role != types.RoleDriver) {
				return types.ErrDriverNotFound
			}
			if err != nil {
				return err
			}
			trip.DriverID = driver.ID
			trip.DriverName = driver.Name
		}
		if upd.Plate != nil {
			trip.Plate = *upd.Plate
		}
		if upd.CommissionPercent != nil {
			trip.CommissionPercent = *upd.CommissionPercent
		}
		if upd.SignedTotal != nil {
			trip.SignedTotal = *upd.SignedTotal
		}
		if upd.PaidTotal != nil {
			trip.PaidTotal = *upd.PaidTotal
		}
		if upd.Extras != nil {
			trip.Extras = upd.Extras
		}
		if upd.Legs != nil {
			trip.Legs = upd.Legs
		}
		ledger.Apply(trip)

		return s.trips.Update(ctx, trip)
	})
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	metrics.RecordTrip(s.cfg.Service, "updated", trip.TotalFreight)
	s.publishTrip(ctx, types.EventTripUpdated, trip)
	s.l.Info(ctx, "trip updated by admin")

	s.decorate(trip)
	return trip, nil
}

func (s *AdminService) DeleteTrip(ctx context.Context, id uuid.UUID) error {
	ctx = wrap.WithTripID(wrap.WithAction(ctx, types.ActionTripDeleted), id.String())

	var trip *models.Trip
	err := s.trm.Do(ctx, func(ctx context.Context) error {
		var err error
		if trip, err = s.trips.Get(ctx, id); err != nil {
			return err
		}
		return s.trips.Delete(ctx, id)
	})
	if err != nil {
		return wrap.Error(ctx, err)
	}

	metrics.RecordTrip(s.cfg.Service, "deleted", 0)
	s.publishTrip(ctx, types.EventTripDeleted, trip)
	s.l.Info(ctx, "trip deleted by admin")
	return nil
}

// ExportTrips renders every trip matching f, pagination is ignored.
func (s *AdminService) ExportTrips(ctx context.Context, format types.ExportFormat, f models.TripFilter) (_ *models.ExportFile, err error) {
	ctx = wrap.WithAction(ctx, "trip_export")
	defer func() { metrics.RecordExport(s.cfg.Service, string(format), err) }()

	if !format.Valid() {
		return nil, types.ErrInvalidExportFormat
	}

	f.Page, f.PageSize = 1, s.cfg.ExportMaxRows
	trips, total, err := s.trips.List(ctx, f)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	if total > len(trips) {
		s.l.Warn(ctx, "export truncated", "total", total, "exported", len(trips))
	}

	file, err := s.exporter.Export(format, trips, f)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	s.l.Info(ctx, "trips exported", "format", string(format), "trips", len(trips))
	return file, nil
}

func (s *AdminService) ListPayments(ctx context.Context, f models.PaymentFilter) (*models.PaymentList, error) {
	list, err := s.payments.List(ctx, f)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	return list, nil
}

// RegisterPayment records a payment to a driver. PaidAt defaults to now.
func (s *AdminService) RegisterPayment(ctx context.Context, p *models.Payment) (*models.Payment, error) {
	ctx = wrap.WithAction(ctx, types.ActionPaymentRegistered)

	if p.Amount <= 0 {
		return nil, types.ErrInvalidPaymentAmount
	}
	if p.PaidAt.IsZero() {
		p.PaidAt = time.Now().UTC()
	}

	driver, err := s.users.GetByID(ctx, p.DriverID)
	if errors.Is(err, types.ErrUserNotFound) || (err == nil && driver.Role != types.RoleDriver) {
		return nil, types.ErrDriverNotFound
	}
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	if err := s.payments.Create(ctx, p); err != nil {
		return nil, wrap.Error(ctx, err)
	}

	metrics.RecordPayment(s.cfg.Service, p.Amount)
	s.publish(ctx, types.EventPaymentRegistered, p.ID, p.DriverID, p)
	s.l.Info(wrap.WithUserID(ctx, p.DriverID.String()), "payment registered", "amount", p.Amount)
	return p, nil
}

func (s *AdminService) DriverAnalytics(ctx context.Context) ([]models.DriverStats, error) {
	stats, err := s.analytics.DriverStats(ctx)
	if err != nil {
		return nil, wrap.Error(wrap.WithAction(ctx, "driver_analytics"), err)
	}
	return stats, nil
}

func (s *AdminService) decorate(t *models.Trip) {
	if t.Location != nil {
		t.MapURL = t.Location.MapURL(s.cfg.MapURL)
	}
}

func (s *AdminService) publishTrip(ctx context.Context, typ types.EventType, t *models.Trip) {
	s.publish(ctx, typ, t.ID, t.DriverID, models.NewTripSummary(t))
}

// publish runs after commit, a broker failure is only logged.
func (s *AdminService) publish(ctx context.Context, typ types.EventType, entityID, driverID uuid.UUID, payload any) {
	event, err := models.NewEvent(typ, entityID, driverID, payload)
	if err == nil {
		err = s.publisher.Publish(ctx, event)
	}
	if err != nil {
		s.l.Error(wrap.ErrorCtx(ctx, err), "failed to publish event", err, "event", typ.String())
	}
}
