package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"github.com/navatransportes/nava-fleet/internal/adapter/http/handler/dto"
	"github.com/navatransportes/nava-fleet/internal/domain/models"
	"github.com/navatransportes/nava-fleet/internal/domain/types"
	"github.com/navatransportes/nava-fleet/pkg/logger"
	wrap "github.com/navatransportes/nava-fleet/pkg/logger/wrapper"
	"github.com/navatransportes/nava-fleet/pkg/validator"
)

type AdminService interface {
	Dashboard(ctx context.Context) (*models.Dashboard, error)

	ListUsers(ctx context.Context, f models.UserFilter) (*models.UserList, error)
	CreateUser(ctx context.Context, req models.UserCreateRequest) (*models.User, error)
	UpdateUser(ctx context.Context, caller *models.User, id uuid.UUID, upd models.UserUpdate) (*models.User, error)

	ListTrips(ctx context.Context, f models.TripFilter) (*models.TripList, error)
	GetTrip(ctx context.Context, id uuid.UUID) (*models.Trip, error)
	UpdateTrip(ctx context.Context, id uuid.UUID, upd models.TripUpdate) (*models.Trip, error)
	DeleteTrip(ctx context.Context, id uuid.UUID) error
	ExportTrips(ctx context.Context, format types.ExportFormat, f models.TripFilter) (*models.ExportFile, error)

	ListPayments(ctx context.Context, f models.PaymentFilter) (*models.PaymentList, error)
	RegisterPayment(ctx context.Context, p *models.Payment) (*models.Payment, error)

	DriverAnalytics(ctx context.Context) ([]models.DriverStats, error)
}

type Admin struct {
	s AdminService
	l logger.Logger
}

func NewAdmin(s AdminService, l logger.Logger) *Admin {
	return &Admin{
		s: s,
		l: l,
	}
}

var (
	userSortSafeList = []string{"-created_at", "created_at", "name", "-name", "email", "-email"}
	tripSortSafeList = []string{
		"-created_at", "created_at", "plate", "-plate", "driver_name", "-driver_name",
		"total_freight", "-total_freight", "distance", "-distance", "overall_efficiency", "-overall_efficiency",
	}
)

// GetDashboard godoc
// @Summary      Back office totals
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]models.Dashboard
// @Router       /admin/dashboard [get]
func (h *Admin) GetDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "admin_get_dashboard")

	dashboard, err := h.s.Dashboard(ctx)
	if err != nil {
		logServiceError(ctx, h.l, "failed to get dashboard", err)
		serviceErrorResponse(w, err)
		return
	}

	h.l.Debug(ctx, "fetched dashboard", "users", dashboard.TotalUsers, "trips", dashboard.Trips)
	h.write(ctx, w, http.StatusOK, envelope{"dashboard": dashboard})
}

// ListUsers godoc
// @Summary      List accounts
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Param        q      query  string  false  "name or email"
// @Param        role   query  string  false  "admin or driver"
// @Param        page   query  int     false  "page"
// @Param        limit  query  int     false  "page size"
// @Success      200  {object}  models.UserList
// @Failure      422  {object}  map[string]string
// @Router       /admin/users [get]
func (h *Admin) ListUsers(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "admin_list_users")

	v := validator.New()
	qs := r.URL.Query()

	filters := readFilters(qs, "-created_at", userSortSafeList, v)
	f := models.UserFilter{
		Query:   readString(qs, "q", ""),
		Role:    types.UserRole(readString(qs, "role", "")),
		Filters: filters,
	}
	if f.Role != "" {
		v.Check(f.Role.Valid(), "role", "must be admin or driver")
	}
	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	list, err := h.s.ListUsers(ctx, f)
	if err != nil {
		logServiceError(ctx, h.l, "failed to list users", err)
		serviceErrorResponse(w, err)
		return
	}

	h.write(ctx, w, http.StatusOK, envelope{"items": list.Items, "total": list.Total, "metadata": list.Metadata})
}

// CreateUser godoc
// @Summary      Create an account
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      dto.CreateUserRequest  true  "account"
// @Success      201   {object}  map[string]models.User
// @Failure      409   {object}  map[string]string
// @Failure      422   {object}  map[string]string
// @Router       /admin/users [post]
func (h *Admin) CreateUser(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "admin_create_user")

	req := &dto.CreateUserRequest{}
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

	user, err := h.s.CreateUser(ctx, req.ToModel())
	if err != nil {
		logServiceError(ctx, h.l, "failed to create user", err)
		serviceErrorResponse(w, err)
		return
	}

	h.write(ctx, w, http.StatusCreated, envelope{"user": user})
}

// UpdateUser godoc
// @Summary      Change name, role or active flag
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string                 true  "user id"
// @Param        body  body      dto.UpdateUserRequest  true  "changes"
// @Success      200   {object}  map[string]models.User
// @Failure      403   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /admin/users/{id} [patch]
func (h *Admin) UpdateUser(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "admin_update_user")

	id, err := readIDParam(r)
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}
	ctx = wrap.WithUserID(ctx, id.String())

	req := &dto.UpdateUserRequest{}
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

	user, err := h.s.UpdateUser(ctx, models.UserFromContext(ctx), id, req.ToModel())
	if err != nil {
		logServiceError(ctx, h.l, "failed to update user", err)
		serviceErrorResponse(w, err)
		return
	}

	h.write(ctx, w, http.StatusOK, envelope{"user": user})
}

// ListTrips godoc
// @Summary      List trips of every driver
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Param        driverId  query  string  false  "driver id"
// @Param        plate     query  string  false  "plate, dash insensitive"
// @Param        from      query  string  false  "YYYY-MM-DD"
// @Param        to        query  string  false  "YYYY-MM-DD, inclusive"
// @Param        q         query  string  false  "driver, plate, origin or destination"
// @Param        page      query  int     false  "page"
// @Param        limit     query  int     false  "page size"
// @Param        sort      query  string  false  "e.g. -created_at"
// @Success      200  {object}  models.TripList
// @Failure      422  {object}  map[string]string
// @Router       /admin/trips [get]
func (h *Admin) ListTrips(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "admin_list_trips")

	v := validator.New()
	f := readTripFilter(r.URL.Query(), v)
	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	list, err := h.s.ListTrips(ctx, f)
	if err != nil {
		logServiceError(ctx, h.l, "failed to list trips", err)
		serviceErrorResponse(w, err)
		return
	}

	h.write(ctx, w, http.StatusOK, envelope{"items": list.Items, "total": list.Total, "metadata": list.Metadata})
}

// GetTrip godoc
// @Summary      Trip details
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "trip id"
// @Success      200  {object}  map[string]models.Trip
// @Failure      404  {object}  map[string]string
// @Router       /admin/trips/{id} [get]
func (h *Admin) GetTrip(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "admin_get_trip")

	id, err := readIDParam(r)
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	trip, err := h.s.GetTrip(ctx, id)
	if err != nil {
		logServiceError(ctx, h.l, "failed to get trip", err)
		serviceErrorResponse(w, err)
		return
	}

	h.write(ctx, w, http.StatusOK, envelope{"trip": trip})
}

// UpdateTrip godoc
// @Summary      Correct a trip
// @Description  Absent fields are kept. Legs, when sent, replace every leg. Totals are recomputed.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string                 true  "trip id"
// @Param        body  body      dto.UpdateTripRequest  true  "changes"
// @Success      200   {object}  map[string]models.Trip
// @Failure      404   {object}  map[string]string
// @Failure      422   {object}  map[string]string
// @Router       /admin/trips/{id} [put]
func (h *Admin) UpdateTrip(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "admin_update_trip")

	id, err := readIDParam(r)
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}
	ctx = wrap.WithTripID(ctx, id.String())

	req := &dto.UpdateTripRequest{}
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

	trip, err := h.s.UpdateTrip(ctx, id, req.ToModel())
	if err != nil {
		logServiceError(ctx, h.l, "failed to update trip", err)
		serviceErrorResponse(w, err)
		return
	}

	h.write(ctx, w, http.StatusOK, envelope{"trip": trip})
}

// DeleteTrip godoc
// @Summary      Delete a trip
// @Tags         Admin
// @Security     BearerAuth
// @Param        id   path  string  true  "trip id"
// @Success      204
// @Failure      404  {object}  map[string]string
// @Router       /admin/trips/{id} [delete]
func (h *Admin) DeleteTrip(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "admin_delete_trip")

	id, err := readIDParam(r)
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	if err := h.s.DeleteTrip(wrap.WithTripID(ctx, id.String()), id); err != nil {
		logServiceError(ctx, h.l, "failed to delete trip", err)
		serviceErrorResponse(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ExportTrips godoc
// @Summary      Download the filtered trips
// @Description  Accepts the trip list filters. Pagination is ignored.
// @Tags         Admin
// @Produce      application/pdf
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security     BearerAuth
// @Param        format    query  string  true   "pdf or xlsx"
// @Param        driverId  query  string  false  "driver id"
// @Param        plate     query  string  false  "plate"
// @Param        from      query  string  false  "YYYY-MM-DD"
// @Param        to        query  string  false  "YYYY-MM-DD"
// @Param        q         query  string  false  "search"
// @Success      200  {file}    file
// @Failure      400  {object}  map[string]string
// @Router       /admin/trips/export [get]
func (h *Admin) ExportTrips(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "admin_export_trips")

	v := validator.New()
	qs := r.URL.Query()

	format := types.ExportFormat(readString(qs, "format", string(types.ExportPDF)))
	v.Check(format.Valid(), "format", "must be pdf or xlsx")
	f := readTripFilter(qs, v)
	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	file, err := h.s.ExportTrips(ctx, format, f)
	if err != nil {
		logServiceError(ctx, h.l, "failed to export trips", err)
		serviceErrorResponse(w, err)
		return
	}

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(file.Data); err != nil {
		h.l.Warn(ctx, "failed to write export", "error", err.Error())
	}
}

// ListPayments godoc
// @Summary      List payments to drivers
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Param        driverId  query  string  false  "driver id"
// @Param        from      query  string  false  "YYYY-MM-DD"
// @Param        to        query  string  false  "YYYY-MM-DD, inclusive"
// @Success      200  {object}  models.PaymentList
// @Router       /admin/payments [get]
func (h *Admin) ListPayments(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "admin_list_payments")

	v := validator.New()
	qs := r.URL.Query()

	f := models.PaymentFilter{
		DriverID: readUUID(qs, "driverId", v),
		From:     readDate(qs, "from", v),
		To:       readDate(qs, "to", v),
	}
	validateRange(v, f.From, f.To)
	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	list, err := h.s.ListPayments(ctx, f)
	if err != nil {
		logServiceError(ctx, h.l, "failed to list payments", err)
		serviceErrorResponse(w, err)
		return
	}

	h.write(ctx, w, http.StatusOK, envelope{"items": list.Items, "total": list.Total})
}

// RegisterPayment godoc
// @Summary      Register a payment to a driver
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      dto.RegisterPaymentRequest  true  "payment"
// @Success      201   {object}  map[string]models.Payment
// @Failure      404   {object}  map[string]string
// @Failure      422   {object}  map[string]string
// @Router       /admin/payments [post]
func (h *Admin) RegisterPayment(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "admin_register_payment")

	req := &dto.RegisterPaymentRequest{}
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

	payment, err := h.s.RegisterPayment(ctx, req.ToModel())
	if err != nil {
		logServiceError(ctx, h.l, "failed to register payment", err)
		serviceErrorResponse(w, err)
		return
	}

	h.write(ctx, w, http.StatusCreated, envelope{"payment": payment})
}

// DriverAnalytics godoc
// @Summary      Per driver totals
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string][]models.DriverStats
// @Router       /admin/analytics/drivers [get]
func (h *Admin) DriverAnalytics(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "admin_driver_analytics")

	stats, err := h.s.DriverAnalytics(ctx)
	if err != nil {
		logServiceError(ctx, h.l, "failed to get driver analytics", err)
		serviceErrorResponse(w, err)
		return
	}
	if stats == nil {
		stats = []models.DriverStats{}
	}

	h.write(ctx, w, http.StatusOK, envelope{"items": stats})
}

func (h *Admin) write(ctx context.Context, w http.ResponseWriter, status int, data envelope) {
	if err := writeJSON(w, status, data, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write JSON response", err)
		internalErrorResponse(w, "failed to write JSON response")
	}
}

// readFilters reads page, limit and sort. Errors are added to v.
func readFilters(qs url.Values, defaultSort string, safelist []string, v *validator.Validator) models.Filters {
	f, err := models.NewFilters(
		readInt(qs, "page", 1, v),
		readInt(qs, "limit", 20, v),
		readString(qs, "sort", defaultSort),
		safelist,
	)
	if err != nil {
		v.AddError("sort", "sorting is not supported here")
		return f
	}
	f.Validate(v)
	return f
}

func readTripFilter(qs url.Values, v *validator.Validator) models.TripFilter {
	f := models.TripFilter{
		DriverID: readUUID(qs, "driverId", v),
		Plate:    readString(qs, "plate", ""),
		From:     readDate(qs, "from", v),
		To:       readDate(qs, "to", v),
		Query:    readString(qs, "q", ""),
		Filters:  readFilters(qs, "-created_at", tripSortSafeList, v),
	}
	validateRange(v, f.From, f.To)
	v.Check(len(f.Query) <= 200, "q", "must not be more than 200 bytes long")
	return f
}
