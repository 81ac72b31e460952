// Package driver holds the trip log operations available to a signed in driver.
package driver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/navatransportes/nava-fleet/internal/domain/models"
	"github.com/navatransportes/nava-fleet/internal/domain/types"
	"github.com/navatransportes/nava-fleet/internal/service/ledger"
	"github.com/navatransportes/nava-fleet/pkg/logger"
	wrap "github.com/navatransportes/nava-fleet/pkg/logger/wrapper"
	"github.com/navatransportes/nava-fleet/pkg/metrics"
	"github.com/navatransportes/nava-fleet/pkg/trm"
)

type Service struct {
	repos     repos
	geocoder  GeoCoder
	publisher Publisher
	trm       trm.TxManager

	mapURL  string
	service string
	l       logger.Logger
}

type repos struct {
	trip    TripRepo
	payment PaymentRepo
	user    UserRepo
}

type Config struct {
	Service string
	// MapURL formats the embeddable map of a trip location, empty disables it.
	MapURL string
}

// New returns the driver service. geocoder may be nil when no LocationIQ key is configured.
func New(cfg Config, tripRepo TripRepo, paymentRepo PaymentRepo, userRepo UserRepo, geocoder GeoCoder, publisher Publisher, trm trm.TxManager, l logger.Logger) *Service {
	return &Service{
		repos: repos{
			trip:    tripRepo,
			payment: paymentRepo,
			user:    userRepo,
		},
		geocoder:  geocoder,
		publisher: publisher,
		trm:       trm,
		mapURL:    cfg.MapURL,
		service:   cfg.Service,
		l:         l,
	}
}

// CreateTrip stores a trip submitted by caller. Derived values are recomputed here,
// whatever the client sent. Only an admin may record a trip on behalf of another driver.
func (s *Service) CreateTrip(ctx context.Context, caller *models.User, trip *models.Trip) (*models.Trip, error) {
	ctx = wrap.WithUserID(wrap.WithAction(ctx, types.ActionTripCreated), caller.ID.String())

	if len(trip.Legs) == 0 {
		return nil, types.ErrTripWithoutLegs
	}

	if err := s.assignDriver(ctx, caller, trip); err != nil {
		return nil, err
	}

	ledger.Apply(trip)
	trip.Address = s.address(ctx, trip.Location)

	if err := s.trm.Do(ctx, func(ctx context.Context) error {
		return s.repos.trip.Create(ctx, trip)
	}); err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("failed to save trip: %w", err))
	}
	ctx = wrap.WithTripID(ctx, trip.ID.String())

	metrics.RecordTrip(s.service, "created", trip.TotalFreight)
	s.publish(ctx, types.EventTripCreated, trip)
	s.l.Info(ctx, "trip created", "legs", len(trip.Legs), "total_freight", trip.TotalFreight)

	s.decorate(trip)
	return trip, nil
}

func (s *Service) assignDriver(ctx context.Context, caller *models.User, trip *models.Trip) error {
	if !caller.IsAdmin() || trip.DriverID == uuid.Nil || trip.DriverID == caller.ID {
		trip.DriverID = caller.ID
		trip.DriverName = caller.Name
		return nil
	}

	driver, err := s.repos.user.GetByID(ctx, trip.DriverID)
	if errors.Is(err, types.ErrUserNotFound) {
		return types.ErrDriverNotFound
	}
	if err != nil {
		return wrap.Error(ctx, err)
	}
	trip.DriverName = driver.Name
	return nil
}

// ListTrips returns a page of the caller's own trips, newest first.
func (s *Service) ListTrips(ctx context.Context, caller *models.User, filters models.Filters) (*models.TripList, error) {
	f := models.TripFilter{DriverID: &caller.ID, Filters: filters}

	trips, total, err := s.repos.trip.List(ctx, f)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	for i := range trips {
		s.decorate(&trips[i])
	}

	return &models.TripList{
		Items:    trips,
		Total:    total,
		Metadata: models.CalculateMetadata(total, filters.Page, filters.PageSize),
	}, nil
}

// UpdateTrip replaces the editable part of one of the caller's trips.
// Trips of other drivers are reported as not found.
func (s *Service) UpdateTrip(ctx context.Context, caller *models.User, id uuid.UUID, in *models.Trip) (*models.Trip, error) {
	ctx = wrap.WithTripID(wrap.WithAction(ctx, types.ActionTripUpdated), id.String())

	if len(in.Legs) == 0 {
		return nil, types.ErrTripWithoutLegs
	}

	address := s.address(ctx, in.Location)

	var trip *models.Trip
	err := s.trm.Do(ctx, func(ctx context.Context) error {
		var err error
		trip, err = s.own(ctx, caller, id)
		if err != nil {
			return err
		}

		trip.Plate = in.Plate
		trip.CommissionPercent = in.CommissionPercent
		trip.SignedTotal = in.SignedTotal
		trip.PaidTotal = in.PaidTotal
		trip.Legs = in.Legs
		trip.Extras = in.Extras
		if in.Location != nil {
			trip.Location = in.Location
			trip.Address = address
		}
		ledger.Apply(trip)

		return s.repos.trip.Update(ctx, trip)
	})
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	metrics.RecordTrip(s.service, "updated", trip.TotalFreight)
	s.publish(ctx, types.EventTripUpdated, trip)
	s.l.Info(ctx, "trip updated")

	s.decorate(trip)
	return trip, nil
}

func (s *Service) DeleteTrip(ctx context.Context, caller *models.User, id uuid.UUID) error {
	ctx = wrap.WithTripID(wrap.WithAction(ctx, types.ActionTripDeleted), id.String())

	var trip *models.Trip
	err := s.trm.Do(ctx, func(ctx context.Context) error {
		var err error
		if trip, err = s.own(ctx, caller, id); err != nil {
			return err
		}
		return s.repos.trip.Delete(ctx, id)
	})
	if err != nil {
		return wrap.Error(ctx, err)
	}

	metrics.RecordTrip(s.service, "deleted", 0)
	s.publish(ctx, types.EventTripDeleted, trip)
	s.l.Info(ctx, "trip deleted")
	return nil
}

// Payments lists the payments made to the caller.
func (s *Service) Payments(ctx context.Context, caller *models.User) (*models.PaymentList, error) {
	list, err := s.repos.payment.List(ctx, models.PaymentFilter{DriverID: &caller.ID})
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	return list, nil
}

// own loads the trip when caller may change it, admins may change any trip.
func (s *Service) own(ctx context.Context, caller *models.User, id uuid.UUID) (*models.Trip, error) {
	trip, err := s.repos.trip.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if trip.DriverID != caller.ID && !caller.IsAdmin() {
		return nil, types.ErrTripNotFound
	}
	return trip, nil
}

// address reverse geocodes p. Failures are logged, the trip is saved without an address.
func (s *Service) address(ctx context.Context, p *models.GeoPoint) string {
	if s.geocoder == nil || p == nil {
		return ""
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	addr, err := s.geocoder.GetAddress(ctx, *p)
	if err != nil {
		s.l.Warn(wrap.ErrorCtx(ctx, err), "reverse geocoding failed", "error", err.Error())
		return ""
	}
	return addr
}

func (s *Service) decorate(t *models.Trip) {
	if t.Location != nil {
		t.MapURL = t.Location.MapURL(s.mapURL)
	}
}

// publish sends the event after the transaction committed. The trip is already stored,
// a broker failure is only logged.
func (s *Service) publish(ctx context.Context, typ types.EventType, t *models.Trip) {
	event, err := models.NewEvent(typ, t.ID, t.DriverID, models.NewTripSummary(t))
	if err == nil {
		err = s.publisher.Publish(ctx, event)
	}
	if err != nil {
		s.l.Error(wrap.ErrorCtx(ctx, err), "failed to publish trip event", err, "event", typ.String())
	}
}
