package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/navatransportes/nava-fleet/internal/domain/models"
	"github.com/navatransportes/nava-fleet/internal/service/ledger"
	"github.com/navatransportes/nava-fleet/pkg/navaclient"
)

// amount is a number in a hand written trip file: 1500.5, "1500.5" and "1.500,50" all work.
// Values that are not numbers become 0, like in the interactive form.
type amount float64

func (a *amount) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	*a = amount(ledger.Coerce(v))
	return nil
}

// yesNo accepts true/false as well as "sim", "n" and the other spellings of ledger.ParseBool.
type yesNo bool

func (y *yesNo) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	if s, ok := v.(string); ok {
		parsed, ok := ledger.ParseBool(s)
		if !ok {
			return fmt.Errorf("%q is not yes or no", s)
		}
		*y = yesNo(parsed)
		return nil
	}
	*y = ledger.Coerce(v) != 0
	return nil
}

type tripFileLeg struct {
	Date          string `json:"date"`
	Origin        string `json:"origin"`
	Destination   string `json:"destination"`
	Freight       amount `json:"freight"`
	Advance       amount `json:"advance"`
	StartOdometer amount `json:"startOdometer"`
	EndOdometer   amount `json:"endOdometer"`
	FuelStation   string `json:"fuelStation"`
	Liters        amount `json:"liters"`
	Signer        string `json:"signer"`
	Paid          yesNo  `json:"paid"`
}

type tripFileExtra struct {
	Description string `json:"description"`
	Amount      amount `json:"amount"`
}

type tripFile struct {
	DriverID          *uuid.UUID       `json:"driverId"`
	DriverName        string           `json:"driverName"`
	Plate             string           `json:"plate"`
	Location          *models.GeoPoint `json:"location"`
	CommissionPercent amount           `json:"commissionPercent"`
	SignedTotal       amount           `json:"signedTotal"`
	PaidTotal         amount           `json:"paidTotal"`
	Extras            []tripFileExtra  `json:"extras"`
	Legs              []tripFileLeg    `json:"legs"`
}

// readTripFile decodes a trip JSON file. Leg balance and efficiency are recomputed, not read.
func readTripFile(r io.Reader) (navaclient.TripInput, error) {
	var f tripFile
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return navaclient.TripInput{}, fmt.Errorf("invalid trip file: %w", err)
	}

	in := navaclient.TripInput{
		DriverID:          f.DriverID,
		DriverName:        f.DriverName,
		Plate:             f.Plate,
		Location:          f.Location,
		CommissionPercent: float64(f.CommissionPercent),
		SignedTotal:       float64(f.SignedTotal),
		PaidTotal:         float64(f.PaidTotal),
		Extras:            make([]models.TripExtra, 0, len(f.Extras)),
		Legs:              make([]models.TripLeg, 0, len(f.Legs)),
	}
	for _, e := range f.Extras {
		in.Extras = append(in.Extras, models.TripExtra{Description: e.Description, Amount: float64(e.Amount)})
	}
	for _, l := range f.Legs {
		leg := models.TripLeg{
			Date:          l.Date,
			Origin:        l.Origin,
			Destination:   l.Destination,
			Freight:       float64(l.Freight),
			Advance:       float64(l.Advance),
			StartOdometer: float64(l.StartOdometer),
			EndOdometer:   float64(l.EndOdometer),
			FuelStation:   l.FuelStation,
			Liters:        float64(l.Liters),
			Signer:        l.Signer,
			Paid:          bool(l.Paid),
		}
		ledger.Recalculate(&leg)
		in.Legs = append(in.Legs, leg)
	}
	return in, nil
}
