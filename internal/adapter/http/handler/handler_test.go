package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/navatransportes/nava-fleet/internal/domain/models"
	"github.com/navatransportes/nava-fleet/internal/domain/types"
	"github.com/navatransportes/nava-fleet/pkg/logger"
	"github.com/navatransportes/nava-fleet/pkg/validator"
)

func TestGetCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{types.ErrTripWithoutLegs, http.StatusBadRequest},
		{types.ErrInvalidExportFormat, http.StatusBadRequest},
		{types.ErrExpiredToken, http.StatusUnauthorized},
		{types.ErrRevokedToken, http.StatusUnauthorized},
		{types.ErrUserInactive, http.StatusForbidden},
		{fmt.Errorf("save: %w", types.ErrTripNotFound), http.StatusNotFound},
		{types.ErrDriverNotFound, http.StatusNotFound},
		{types.ErrEmailAlreadyTaken, http.StatusConflict},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := GetCode(tt.err); got != tt.want {
			t.Errorf("GetCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestGetMessage_HidesInternalErrors(t *testing.T) {
	if got := GetMessage(fmt.Errorf("failed to save trip: %w", types.ErrTripNotFound)); got != types.ErrTripNotFound.Error() {
		t.Fatalf("unexpected message %q", got)
	}
	if got := GetMessage(errors.New("pq: password authentication failed")); strings.Contains(got, "pq") {
		t.Fatalf("internal error leaked: %q", got)
	}
}

type fakeAuth struct {
	loginErr     error
	logoutAccess string
	logoutToken  string
	changeErr    error
}

func (f *fakeAuth) Login(ctx context.Context, email, password string) (*models.LoginResult, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &models.LoginResult{
		User:   &models.User{ID: uuid.New(), Email: email, Role: types.RoleDriver, Active: true},
		Tokens: &models.TokenPair{AccessToken: "access", RefreshToken: "refresh", AccessExpiresAt: time.Now().Add(time.Minute)},
	}, nil
}

func (f *fakeAuth) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	if refreshToken != "refresh" {
		return nil, types.ErrInvalidToken
	}
	return &models.TokenPair{AccessToken: "access-2", RefreshToken: "refresh-2"}, nil
}

func (f *fakeAuth) Logout(ctx context.Context, accessToken, refreshToken string) error {
	f.logoutAccess, f.logoutToken = accessToken, refreshToken
	return nil
}

func (f *fakeAuth) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	return f.changeErr
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func withUser(r *http.Request, u *models.User) *http.Request {
	return r.WithContext(models.WithUser(r.Context(), u))
}

func TestAuth_Login(t *testing.T) {
	h := NewAuth(&fakeAuth{}, logger.Nop())

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"ana@nava.com","password":"secret123"}`))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	out := decode(t, rec)
	if out["accessToken"] != "access" || out["refreshToken"] != "refresh" {
		t.Fatalf("unexpected tokens %v", out)
	}
	if _, ok := out["user"].(map[string]any); !ok {
		t.Fatalf("user missing: %v", out)
	}
}

func TestAuth_LoginErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		err  error
		want int
	}{
		{"bad json", `{"email":`, nil, http.StatusBadRequest},
		{"unknown field", `{"email":"a@b.c","password":"x","role":"admin"}`, nil, http.StatusBadRequest},
		{"missing password", `{"email":"a@b.c"}`, nil, http.StatusUnprocessableEntity},
		{"wrong credentials", `{"email":"a@b.c","password":"x"}`, types.ErrInvalidCredentials, http.StatusUnauthorized},
		{"inactive", `{"email":"a@b.c","password":"x"}`, types.ErrUserInactive, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAuth(&fakeAuth{loginErr: tt.err}, logger.Nop())
			rec := httptest.NewRecorder()
			h.Login(rec, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(tt.body)))
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d, body %s", rec.Code, tt.want, rec.Body)
			}
		})
	}
}

func TestAuth_Refresh(t *testing.T) {
	h := NewAuth(&fakeAuth{}, logger.Nop())

	rec := httptest.NewRecorder()
	h.Refresh(rec, httptest.NewRequest(http.MethodPost, "/auth/refresh", strings.NewReader(`{"refreshToken":"refresh"}`)))
	if rec.Code != http.StatusOK || decode(t, rec)["accessToken"] != "access-2" {
		t.Fatalf("unexpected refresh response %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.Refresh(rec, httptest.NewRequest(http.MethodPost, "/auth/refresh", strings.NewReader(`{"refreshToken":"stolen"}`)))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestAuth_LogoutWithoutBody(t *testing.T) {
	svc := &fakeAuth{}
	h := NewAuth(svc, logger.Nop())

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer abc")
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if svc.logoutAccess != "abc" || svc.logoutToken != "" {
		t.Fatalf("unexpected logout args %q %q", svc.logoutAccess, svc.logoutToken)
	}

	req = httptest.NewRequest(http.MethodPost, "/auth/logout", strings.NewReader(`{"refreshToken":"r"}`))
	req.Header.Set("Authorization", "Bearer abc")
	rec = httptest.NewRecorder()
	h.Logout(rec, req)
	if rec.Code != http.StatusNoContent || svc.logoutToken != "r" {
		t.Fatalf("refresh token not passed, status %d", rec.Code)
	}
}

func TestAuth_Me(t *testing.T) {
	h := NewAuth(&fakeAuth{}, logger.Nop())

	rec := httptest.NewRecorder()
	h.Me(rec, withUser(httptest.NewRequest(http.MethodGet, "/auth/me", nil), models.AnonymousUser()))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.Me(rec, withUser(httptest.NewRequest(http.MethodGet, "/auth/me", nil), &models.User{ID: uuid.New(), Name: "Ana"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestAuth_ChangePasswordWrongCurrent(t *testing.T) {
	h := NewAuth(&fakeAuth{changeErr: types.ErrInvalidCredentials}, logger.Nop())

	req := httptest.NewRequest(http.MethodPut, "/auth/password", strings.NewReader(`{"currentPassword":"old-pass","newPassword":"new-pass-123"}`))
	rec := httptest.NewRecorder()
	h.ChangePassword(rec, withUser(req, &models.User{ID: uuid.New()}))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	errs, _ := decode(t, rec)["error"].(map[string]any)
	if errs["currentPassword"] == nil {
		t.Fatalf("expected currentPassword error, got %v", errs)
	}
}

type fakeAdmin struct {
	AdminService

	tripFilter models.TripFilter
	format     types.ExportFormat
	updateErr  error
}

func (f *fakeAdmin) ListTrips(ctx context.Context, tf models.TripFilter) (*models.TripList, error) {
	f.tripFilter = tf
	return &models.TripList{Items: []models.Trip{}, Metadata: models.CalculateMetadata(0, tf.Page, tf.PageSize)}, nil
}

func (f *fakeAdmin) ExportTrips(ctx context.Context, format types.ExportFormat, tf models.TripFilter) (*models.ExportFile, error) {
	f.format, f.tripFilter = format, tf
	return &models.ExportFile{Filename: "trips-20240502-101500.xlsx", ContentType: format.ContentType(), Data: []byte("PK")}, nil
}

func (f *fakeAdmin) UpdateUser(ctx context.Context, caller *models.User, id uuid.UUID, upd models.UserUpdate) (*models.User, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return &models.User{ID: id, Name: *upd.Name}, nil
}

func TestAdmin_ListTripsFilters(t *testing.T) {
	svc := &fakeAdmin{}
	h := NewAdmin(svc, logger.Nop())

	driverID := uuid.New()
	target := "/admin/trips?driverId=" + driverID.String() + "&plate=abc-1d23&from=2024-05-01&to=2024-05-31&q=santos&page=2&limit=10&sort=-total_freight"
	rec := httptest.NewRecorder()
	h.ListTrips(rec, httptest.NewRequest(http.MethodGet, target, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	f := svc.tripFilter
	if f.DriverID == nil || *f.DriverID != driverID || f.Plate != "abc-1d23" || f.Query != "santos" {
		t.Fatalf("unexpected filter %+v", f)
	}
	if f.From == nil || f.To == nil || f.To.Day() != 31 {
		t.Fatalf("dates not parsed %+v", f)
	}
	if f.Page != 2 || f.PageSize != 10 || f.SortColumn() != "total_freight" || f.SortDirection() != "DESC" {
		t.Fatalf("unexpected paging %+v", f.Filters)
	}
	out := decode(t, rec)
	if _, ok := out["metadata"]; !ok {
		t.Fatalf("metadata missing: %v", out)
	}
}

func TestAdmin_ListTripsInvalidQuery(t *testing.T) {
	h := NewAdmin(&fakeAdmin{}, logger.Nop())

	rec := httptest.NewRecorder()
	h.ListTrips(rec, httptest.NewRequest(http.MethodGet, "/admin/trips?sort=password&from=yesterday&driverId=42", nil))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rec.Code)
	}
	errs, _ := decode(t, rec)["error"].(map[string]any)
	for _, key := range []string{"sort", "from", "driverId"} {
		if errs[key] == nil {
			t.Errorf("expected error for %s in %v", key, errs)
		}
	}
}

func TestReadFilters(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		safelist []string
		wantErr  string
		wantSort string
	}{
		{name: "defaults", safelist: tripSortSafeList, wantSort: "created_at"},
		{name: "safelisted sort", query: "sort=plate&page=2", safelist: tripSortSafeList, wantSort: "plate"},
		{name: "unknown sort", query: "sort=password", safelist: tripSortSafeList, wantErr: "sort"},
		{name: "page size too large", query: "limit=1000", safelist: tripSortSafeList, wantErr: "limit"},
		{name: "no safelist", safelist: nil, wantErr: "sort"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qs, err := url.ParseQuery(tt.query)
			if err != nil {
				t.Fatal(err)
			}
			v := validator.New()
			f := readFilters(qs, "-created_at", tt.safelist, v)

			if tt.wantErr != "" {
				if v.Errors[tt.wantErr] == "" {
					t.Fatalf("expected %s error, got %v", tt.wantErr, v.Errors)
				}
				return
			}
			if !v.Valid() {
				t.Fatalf("unexpected errors %v", v.Errors)
			}
			if f.SortColumn() != tt.wantSort {
				t.Fatalf("sort column = %q, want %q", f.SortColumn(), tt.wantSort)
			}
		})
	}
}

func TestAdmin_ExportTrips(t *testing.T) {
	svc := &fakeAdmin{}
	h := NewAdmin(svc, logger.Nop())

	rec := httptest.NewRecorder()
	h.ExportTrips(rec, httptest.NewRequest(http.MethodGet, "/admin/trips/export?format=xlsx&plate=ABC1D23", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if svc.format != types.ExportXLSX || svc.tripFilter.Plate != "ABC1D23" {
		t.Fatalf("unexpected call %s %+v", svc.format, svc.tripFilter)
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="trips-20240502-101500.xlsx"` {
		t.Fatalf("unexpected disposition %q", got)
	}
	if rec.Body.String() != "PK" {
		t.Fatalf("unexpected body %q", rec.Body)
	}

	rec = httptest.NewRecorder()
	h.ExportTrips(rec, httptest.NewRequest(http.MethodGet, "/admin/trips/export?format=csv", nil))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("csv status = %d", rec.Code)
	}
}

func TestAdmin_UpdateUser(t *testing.T) {
	svc := &fakeAdmin{}
	h := NewAdmin(svc, logger.Nop())
	id := uuid.New()

	req := httptest.NewRequest(http.MethodPatch, "/admin/users/"+id.String(), strings.NewReader(`{"name":"Bruno"}`))
	req.SetPathValue("id", id.String())
	rec := httptest.NewRecorder()
	h.UpdateUser(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	svc.updateErr = types.ErrForbidden
	req = httptest.NewRequest(http.MethodPatch, "/admin/users/"+id.String(), strings.NewReader(`{"name":"Bruno"}`))
	req.SetPathValue("id", id.String())
	rec = httptest.NewRecorder()
	h.UpdateUser(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPatch, "/admin/users/nope", strings.NewReader(`{}`))
	req.SetPathValue("id", "nope")
	rec = httptest.NewRecorder()
	h.UpdateUser(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

type fakeDriver struct {
	DriverService

	caller *models.User
	trip   *models.Trip
	err    error
}

func (f *fakeDriver) CreateTrip(ctx context.Context, caller *models.User, trip *models.Trip) (*models.Trip, error) {
	f.caller, f.trip = caller, trip
	if f.err != nil {
		return nil, f.err
	}
	trip.ID = uuid.New()
	return trip, nil
}

func (f *fakeDriver) DeleteTrip(ctx context.Context, caller *models.User, id uuid.UUID) error {
	return f.err
}

const tripBody = `{
	"plate": "abc1d23",
	"commissionPercent": 10,
	"signedTotal": 0,
	"paidTotal": 0,
	"extras": [],
	"legs": [{"date":"2024-05-02","origin":"Santos","destination":"Campinas","freight":1000,"advance":200,
		"balance":999,"startOdometer":100,"endOdometer":400,"fuelStation":"","liters":100,"efficiency":0,
		"signer":"","paid":false}]
}`

func TestDriver_CreateTrip(t *testing.T) {
	svc := &fakeDriver{}
	h := NewDriver(svc, logger.Nop())
	caller := &models.User{ID: uuid.New(), Name: "Ana", Role: types.RoleDriver}

	rec := httptest.NewRecorder()
	h.CreateTrip(rec, withUser(httptest.NewRequest(http.MethodPost, "/driver/trips", strings.NewReader(tripBody)), caller))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if svc.caller != caller || svc.trip.Plate != "ABC1D23" || len(svc.trip.Legs) != 1 {
		t.Fatalf("unexpected call %+v", svc.trip)
	}
	if _, ok := decode(t, rec)["trip"]; !ok {
		t.Fatal("trip envelope missing")
	}
}

func TestDriver_CreateTripValidation(t *testing.T) {
	h := NewDriver(&fakeDriver{}, logger.Nop())

	rec := httptest.NewRecorder()
	body := `{"plate":"??","commissionPercent":10,"legs":[]}`
	h.CreateTrip(rec, withUser(httptest.NewRequest(http.MethodPost, "/driver/trips", strings.NewReader(body)), &models.User{ID: uuid.New()}))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rec.Code)
	}
	errs, _ := decode(t, rec)["error"].(map[string]any)
	if errs["plate"] == nil || errs["legs"] == nil {
		t.Fatalf("unexpected errors %v", errs)
	}
}

func TestDriver_DeleteForeignTrip(t *testing.T) {
	h := NewDriver(&fakeDriver{err: fmt.Errorf("wrapped: %w", types.ErrTripNotFound)}, logger.Nop())
	id := uuid.New()

	req := httptest.NewRequest(http.MethodDelete, "/driver/trips/"+id.String(), nil)
	req.SetPathValue("id", id.String())
	rec := httptest.NewRecorder()
	h.DeleteTrip(rec, withUser(req, &models.User{ID: uuid.New()}))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if got := decode(t, rec)["error"]; got != types.ErrTripNotFound.Error() {
		t.Fatalf("unexpected error %v", got)
	}
}
