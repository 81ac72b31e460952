package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/navatransportes/nava-fleet/internal/adapter/http/handler/dto"
	"github.com/navatransportes/nava-fleet/internal/domain/models"
	"github.com/navatransportes/nava-fleet/pkg/logger"
	wrap "github.com/navatransportes/nava-fleet/pkg/logger/wrapper"
	"github.com/navatransportes/nava-fleet/pkg/validator"
)

type DriverService interface {
	CreateTrip(ctx context.Context, caller *models.User, trip *models.Trip) (*models.Trip, error)
	ListTrips(ctx context.Context, caller *models.User, filters models.Filters) (*models.TripList, error)
	UpdateTrip(ctx context.Context, caller *models.User, id uuid.UUID, in *models.Trip) (*models.Trip, error)
	DeleteTrip(ctx context.Context, caller *models.User, id uuid.UUID) error
	Payments(ctx context.Context, caller *models.User) (*models.PaymentList, error)
}

type Driver struct {
	service DriverService
	l       logger.Logger
}

func NewDriver(service DriverService, l logger.Logger) *Driver {
	return &Driver{
		service: service,
		l:       l,
	}
}

var ownTripSortSafeList = []string{"-created_at", "created_at"}

// CreateTrip godoc
// @Summary      Submit a trip log
// @Description  The trip is recorded for the caller. Admins may pass driverId to record it for a driver.
// @Tags         Driver
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      dto.TripRequest  true  "trip"
// @Success      201   {object}  map[string]models.Trip
// @Failure      422   {object}  map[string]string
// @Router       /driver/trips [post]
func (h *Driver) CreateTrip(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "driver_create_trip")
	caller := models.UserFromContext(ctx)

	req := &dto.TripRequest{}
	if err := readJSON(w, r, req); err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		h.l.Debug(ctx, "invalid trip", "errors", v.Errors)
		failedValidationResponse(w, v.Errors)
		return
	}

	trip, err := h.service.CreateTrip(ctx, caller, req.ToModel())
	if err != nil {
		logServiceError(ctx, h.l, "failed to create trip", err)
		serviceErrorResponse(w, err)
		return
	}

	h.write(ctx, w, http.StatusCreated, envelope{"trip": trip})
}

// ListTrips godoc
// @Summary      Own trips, newest first
// @Tags         Driver
// @Produce      json
// @Security     BearerAuth
// @Param        page   query  int  false  "page"
// @Param        limit  query  int  false  "page size"
// @Success      200  {object}  models.TripList
// @Router       /driver/trips [get]
func (h *Driver) ListTrips(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "driver_list_trips")

	v := validator.New()
	filters := readFilters(r.URL.Query(), "-created_at", ownTripSortSafeList, v)
	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	list, err := h.service.ListTrips(ctx, models.UserFromContext(ctx), filters)
	if err != nil {
		logServiceError(ctx, h.l, "failed to list trips", err)
		serviceErrorResponse(w, err)
		return
	}

	h.write(ctx, w, http.StatusOK, envelope{"items": list.Items, "total": list.Total, "metadata": list.Metadata})
}

// UpdateTrip godoc
// @Summary      Replace an own trip
// @Tags         Driver
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string           true  "trip id"
// @Param        body  body      dto.TripRequest  true  "trip"
// @Success      200   {object}  map[string]models.Trip
// @Failure      404   {object}  map[string]string
// @Router       /driver/trips/{id} [put]
func (h *Driver) UpdateTrip(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "driver_update_trip")

	id, err := readIDParam(r)
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}
	ctx = wrap.WithTripID(ctx, id.String())

	req := &dto.TripRequest{}
	if err := readJSON(w, r, req); err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	trip, err := h.service.UpdateTrip(ctx, models.UserFromContext(ctx), id, req.ToModel())
	if err != nil {
		logServiceError(ctx, h.l, "failed to update trip", err)
		serviceErrorResponse(w, err)
		return
	}

	h.write(ctx, w, http.StatusOK, envelope{"trip": trip})
}

// DeleteTrip godoc
// @Summary      Delete an own trip
// @Tags         Driver
// @Security     BearerAuth
// @Param        id   path  string  true  "trip id"
// @Success      204
// @Failure      404  {object}  map[string]string
// @Router       /driver/trips/{id} [delete]
func (h *Driver) DeleteTrip(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "driver_delete_trip")

	id, err := readIDParam(r)
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}
	ctx = wrap.WithTripID(ctx, id.String())

	if err := h.service.DeleteTrip(ctx, models.UserFromContext(ctx), id); err != nil {
		logServiceError(ctx, h.l, "failed to delete trip", err)
		serviceErrorResponse(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Payments godoc
// @Summary      Own payments
// @Tags         Driver
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  models.PaymentList
// @Router       /driver/payments [get]
func (h *Driver) Payments(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "driver_list_payments")

	list, err := h.service.Payments(ctx, models.UserFromContext(ctx))
	if err != nil {
		logServiceError(ctx, h.l, "failed to list payments", err)
		serviceErrorResponse(w, err)
		return
	}

	h.write(ctx, w, http.StatusOK, envelope{"items": list.Items, "total": list.Total})
}

func (h *Driver) write(ctx context.Context, w http.ResponseWriter, status int, data envelope) {
	if err := writeJSON(w, status, data, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write JSON response", err)
		internalErrorResponse(w, "failed to write JSON response")
	}
}
