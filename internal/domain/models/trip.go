package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const DateLayout = "2006-01-02"

// TripLeg is one origin to destination segment of a trip.
// Balance and Efficiency are derived, see the ledger package.
type TripLeg struct {
	Date          string  `json:"date"`
	Origin        string  `json:"origin"`
	Destination   string  `json:"destination"`
	Freight       float64 `json:"freight"`
	Advance       float64 `json:"advance"`
	Balance       float64 `json:"balance"`
	StartOdometer float64 `json:"startOdometer"`
	EndOdometer   float64 `json:"endOdometer"`
	FuelStation   string  `json:"fuelStation"`
	Liters        float64 `json:"liters"`
	Efficiency    float64 `json:"efficiency"`
	Signer        string  `json:"signer"`
	Paid          bool    `json:"paid"`
}

type TripExtra struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

// TripTotals is the derived snapshot of a trip record.
type TripTotals struct {
	StartOdometer     float64 `json:"startOdometer"`
	EndOdometer       float64 `json:"endOdometer"`
	Distance          float64 `json:"distance"`
	TotalFuel         float64 `json:"totalFuel"`
	OverallEfficiency float64 `json:"overallEfficiency"`
	TotalFreight      float64 `json:"totalFreight"`
	TotalAdvance      float64 `json:"totalAdvance"`
	TotalBalance      float64 `json:"totalBalance"`
	ExtrasTotal       float64 `json:"extrasTotal"`
	CommissionAmount  float64 `json:"commissionAmount"`
}

type Trip struct {
	ID                uuid.UUID   `json:"id"`
	DriverID          uuid.UUID   `json:"driverId"`
	DriverName        string      `json:"driverName"`
	Plate             string      `json:"plate"`
	Location          *GeoPoint   `json:"location,omitempty"`
	Address           string      `json:"address,omitempty"`
	MapURL            string      `json:"mapUrl,omitempty"`
	CommissionPercent float64     `json:"commissionPercent"`
	SignedTotal       float64     `json:"signedTotal"`
	PaidTotal         float64     `json:"paidTotal"`
	Extras            []TripExtra `json:"extras"`
	Legs              []TripLeg   `json:"legs"`
	TripTotals
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}

// TripFilter narrows trip listings and exports.
type TripFilter struct {
	DriverID *uuid.UUID
	Plate    string
	From     *time.Time
	To       *time.Time
	Query    string
	Filters
}

// Describe returns a human readable summary of the active filters.
func (f TripFilter) Describe() string {
	parts := make([]string, 0, 5)
	if f.DriverID != nil {
		parts = append(parts, "driver "+f.DriverID.String())
	}
	if f.Plate != "" {
		parts = append(parts, "plate "+f.Plate)
	}
	if f.From != nil {
		parts = append(parts, "from "+f.From.Format(DateLayout))
	}
	if f.To != nil {
		parts = append(parts, "to "+f.To.Format(DateLayout))
	}
	if f.Query != "" {
		parts = append(parts, "search \""+f.Query+"\"")
	}
	if len(parts) == 0 {
		return "all trips"
	}
	return strings.Join(parts, ", ")
}

type TripList struct {
	Items    []Trip   `json:"items"`
	Total    int      `json:"total"`
	Metadata Metadata `json:"metadata"`
}

// TripUpdate holds optional changes to a stored trip. Legs replaces all legs when not nil.
type TripUpdate struct {
	DriverID          *uuid.UUID
	Plate             *string
	CommissionPercent *float64
	SignedTotal       *float64
	PaidTotal         *float64
	Extras            []TripExtra
	Legs              []TripLeg
}

// ExportFile is a rendered trip listing ready to be downloaded.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}
