package dto

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/navatransportes/nava-fleet/internal/domain/models"
	"github.com/navatransportes/nava-fleet/pkg/validator"
)

// TripRequest is the body of trip create and replace calls.
// Derived values sent by the client are ignored and recomputed.
type TripRequest struct {
	DriverID          *uuid.UUID         `json:"driverId"`
	DriverName        string             `json:"driverName"`
	Plate             string             `json:"plate"`
	Location          *models.GeoPoint   `json:"location"`
	CommissionPercent float64            `json:"commissionPercent"`
	SignedTotal       float64            `json:"signedTotal"`
	PaidTotal         float64            `json:"paidTotal"`
	Extras            []models.TripExtra `json:"extras"`
	Legs              []models.TripLeg   `json:"legs"`
}

func (r *TripRequest) Validate(v *validator.Validator) {
	r.Plate = normalizePlate(r.Plate)

	validatePlate(v, r.Plate)
	validateCommission(v, r.CommissionPercent)
	v.Check(r.SignedTotal >= 0, "signedTotal", "must not be negative")
	v.Check(r.PaidTotal >= 0, "paidTotal", "must not be negative")
	if r.Location != nil {
		v.Check(r.Location.Valid(), "location", "must be a valid coordinate")
	}
	v.Check(len(r.Legs) > 0, "legs", "must contain at least one leg")
	validateLegs(v, r.Legs)
	validateExtras(v, r.Extras)
}

func (r *TripRequest) ToModel() *models.Trip {
	t := &models.Trip{
		DriverName:        r.DriverName,
		Plate:             r.Plate,
		Location:          r.Location,
		CommissionPercent: r.CommissionPercent,
		SignedTotal:       r.SignedTotal,
		PaidTotal:         r.PaidTotal,
		Extras:            r.Extras,
		Legs:              r.Legs,
	}
	if r.DriverID != nil {
		t.DriverID = *r.DriverID
	}
	if t.Extras == nil {
		t.Extras = []models.TripExtra{}
	}
	return t
}

// UpdateTripRequest is the admin patch, absent fields are left untouched.
type UpdateTripRequest struct {
	DriverID          *uuid.UUID         `json:"driverId"`
	Plate             *string            `json:"plate"`
	CommissionPercent *float64           `json:"commissionPercent"`
	SignedTotal       *float64           `json:"signedTotal"`
	PaidTotal         *float64           `json:"paidTotal"`
	Extras            []models.TripExtra `json:"extras"`
	Legs              []models.TripLeg   `json:"legs"`
}

func (r *UpdateTripRequest) Validate(v *validator.Validator) {
	if r.Plate != nil {
		*r.Plate = normalizePlate(*r.Plate)
		validatePlate(v, *r.Plate)
	}
	if r.CommissionPercent != nil {
		validateCommission(v, *r.CommissionPercent)
	}
	if r.SignedTotal != nil {
		v.Check(*r.SignedTotal >= 0, "signedTotal", "must not be negative")
	}
	if r.PaidTotal != nil {
		v.Check(*r.PaidTotal >= 0, "paidTotal", "must not be negative")
	}
	if r.Legs != nil {
		v.Check(len(r.Legs) > 0, "legs", "must contain at least one leg")
		validateLegs(v, r.Legs)
	}
	validateExtras(v, r.Extras)
}

func (r *UpdateTripRequest) ToModel() models.TripUpdate {
	return models.TripUpdate{
		DriverID:          r.DriverID,
		Plate:             r.Plate,
		CommissionPercent: r.CommissionPercent,
		SignedTotal:       r.SignedTotal,
		PaidTotal:         r.PaidTotal,
		Extras:            r.Extras,
		Legs:              r.Legs,
	}
}

func normalizePlate(plate string) string {
	return strings.ToUpper(strings.TrimSpace(plate))
}

func validatePlate(v *validator.Validator, plate string) {
	v.Check(plate != "", "plate", "must be provided")
	v.Check(validator.Matches(plate, validator.PlateRX), "plate", "must be a valid plate, e.g. ABC1D23 or ABC-1234")
}

func validateCommission(v *validator.Validator, percent float64) {
	v.Check(percent >= 0 && percent <= 100, "commissionPercent", "must be between 0 and 100")
}

func validateLegs(v *validator.Validator, legs []models.TripLeg) {
	v.Check(len(legs) <= 100, "legs", "must not contain more than 100 legs")

	for i, l := range legs {
		key := func(field string) string { return fmt.Sprintf("legs[%d].%s", i, field) }

		_, err := time.Parse(models.DateLayout, l.Date)
		v.Check(err == nil, key("date"), "must be a date in YYYY-MM-DD format")
		v.Check(strings.TrimSpace(l.Origin) != "", key("origin"), "must be provided")
		v.Check(strings.TrimSpace(l.Destination) != "", key("destination"), "must be provided")
		v.Check(l.Freight >= 0, key("freight"), "must not be negative")
		v.Check(l.Advance >= 0, key("advance"), "must not be negative")
		v.Check(l.StartOdometer >= 0, key("startOdometer"), "must not be negative")
		v.Check(l.EndOdometer >= 0, key("endOdometer"), "must not be negative")
		v.Check(l.Liters >= 0, key("liters"), "must not be negative")
	}
}

func validateExtras(v *validator.Validator, extras []models.TripExtra) {
	for i, e := range extras {
		v.Check(strings.TrimSpace(e.Description) != "", fmt.Sprintf("extras[%d].description", i), "must be provided")
	}
}
