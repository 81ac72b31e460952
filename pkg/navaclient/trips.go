package navaclient

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/navatransportes/nava-fleet/internal/domain/models"
	"github.com/navatransportes/nava-fleet/internal/domain/types"
)

// TripInput is the body of trip create and replace calls. Derived totals are computed by the server.
type TripInput struct {
	DriverID          *uuid.UUID         `json:"driverId,omitempty"`
	DriverName        string             `json:"driverName,omitempty"`
	Plate             string             `json:"plate"`
	Location          *models.GeoPoint   `json:"location,omitempty"`
	CommissionPercent float64            `json:"commissionPercent"`
	SignedTotal       float64            `json:"signedTotal"`
	PaidTotal         float64            `json:"paidTotal"`
	Extras            []models.TripExtra `json:"extras"`
	Legs              []models.TripLeg   `json:"legs"`
}

// NewTripInput copies the editable part of a trip, e.g. the result of ledger.Form.Trip.
func NewTripInput(t models.Trip) TripInput {
	in := TripInput{
		DriverName:        t.DriverName,
		Plate:             t.Plate,
		Location:          t.Location,
		CommissionPercent: t.CommissionPercent,
		SignedTotal:       t.SignedTotal,
		PaidTotal:         t.PaidTotal,
		Extras:            t.Extras,
		Legs:              t.Legs,
	}
	if t.DriverID != uuid.Nil {
		id := t.DriverID
		in.DriverID = &id
	}
	return in
}

// TripPatch is the admin update body, nil fields are left untouched.
type TripPatch struct {
	DriverID          *uuid.UUID         `json:"driverId,omitempty"`
	Plate             *string            `json:"plate,omitempty"`
	CommissionPercent *float64           `json:"commissionPercent,omitempty"`
	SignedTotal       *float64           `json:"signedTotal,omitempty"`
	PaidTotal         *float64           `json:"paidTotal,omitempty"`
	Extras            []models.TripExtra `json:"extras,omitempty"`
	Legs              []models.TripLeg   `json:"legs,omitempty"`
}

type TripQuery struct {
	DriverID *uuid.UUID
	Plate    string
	From     *time.Time
	To       *time.Time
	Query    string
	Page     int
	Limit    int
	Sort     string
}

func (q TripQuery) values() url.Values {
	v := url.Values{}
	if q.DriverID != nil {
		v.Set("driverId", q.DriverID.String())
	}
	setString(v, "plate", q.Plate)
	setDate(v, "from", q.From)
	setDate(v, "to", q.To)
	setString(v, "q", q.Query)
	setInt(v, "page", q.Page)
	setInt(v, "limit", q.Limit)
	setString(v, "sort", q.Sort)
	return v
}

type tripEnvelope struct {
	Trip models.Trip `json:"trip"`
}

func (c *Client) CreateTrip(ctx context.Context, in TripInput) (*models.Trip, error) {
	var out tripEnvelope
	if err := c.do(ctx, c.api, http.MethodPost, "/driver/trips", nil, in, &out); err != nil {
		return nil, err
	}
	return &out.Trip, nil
}

func (c *Client) ListMyTrips(ctx context.Context, page, limit int) (*models.TripList, error) {
	v := url.Values{}
	setInt(v, "page", page)
	setInt(v, "limit", limit)

	var out models.TripList
	if err := c.do(ctx, c.api, http.MethodGet, "/driver/trips", v, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateMyTrip(ctx context.Context, id uuid.UUID, in TripInput) (*models.Trip, error) {
	var out tripEnvelope
	if err := c.do(ctx, c.api, http.MethodPut, "/driver/trips/"+id.String(), nil, in, &out); err != nil {
		return nil, err
	}
	return &out.Trip, nil
}

func (c *Client) DeleteMyTrip(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, c.api, http.MethodDelete, "/driver/trips/"+id.String(), nil, nil, nil)
}

func (c *Client) ListTrips(ctx context.Context, q TripQuery) (*models.TripList, error) {
	var out models.TripList
	if err := c.do(ctx, c.api, http.MethodGet, "/admin/trips", q.values(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetTrip(ctx context.Context, id uuid.UUID) (*models.Trip, error) {
	var out tripEnvelope
	if err := c.do(ctx, c.api, http.MethodGet, "/admin/trips/"+id.String(), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out.Trip, nil
}

func (c *Client) UpdateTrip(ctx context.Context, id uuid.UUID, patch TripPatch) (*models.Trip, error) {
	var out tripEnvelope
	if err := c.do(ctx, c.api, http.MethodPut, "/admin/trips/"+id.String(), nil, patch, &out); err != nil {
		return nil, err
	}
	return &out.Trip, nil
}

func (c *Client) DeleteTrip(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, c.api, http.MethodDelete, "/admin/trips/"+id.String(), nil, nil, nil)
}

// Export is a downloaded report.
type Export struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportTrips downloads the filtered trip report as pdf or xlsx.
func (c *Client) ExportTrips(ctx context.Context, format types.ExportFormat, q TripQuery) (*Export, error) {
	if !format.Valid() {
		return nil, types.ErrInvalidExportFormat
	}
	v := q.values()
	v.Set("format", string(format))

	req, err := c.newRequest(ctx, http.MethodGet, "/admin/trips/export", v, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", format.ContentType())

	resp, err := c.api.Do(req)
	if err != nil {
		return nil, fmt.Errorf("export trips: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("export trips: %w", err)
	}

	out := &Export{
		Filename:    "trips." + string(format),
		ContentType: resp.Header.Get("Content-Type"),
		Data:        data,
	}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		out.Filename = params["filename"]
	}
	return out, nil
}

func setString(v url.Values, key, val string) {
	if val != "" {
		v.Set(key, val)
	}
}

func setInt(v url.Values, key string, val int) {
	if val > 0 {
		v.Set(key, strconv.Itoa(val))
	}
}

func setDate(v url.Values, key string, t *time.Time) {
	if t != nil {
		v.Set(key, t.Format(models.DateLayout))
	}
}
