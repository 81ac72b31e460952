package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/navatransportes/nava-fleet/internal/domain/types"
)

// Event is published to the message broker on every trip or payment change.
type Event struct {
	Type      types.EventType `json:"type"`
	EntityID  uuid.UUID       `json:"entityId"`
	DriverID  uuid.UUID       `json:"driverId"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

func NewEvent(typ types.EventType, entityID, driverID uuid.UUID, payload any) (Event, error) {
	e := Event{
		Type:      typ,
		EntityID:  entityID,
		DriverID:  driverID,
		Timestamp: time.Now().UTC(),
	}
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return Event{}, err
		}
		e.Payload = b
	}
	return e, nil
}

// TripSummary is the event payload of trip changes.
type TripSummary struct {
	ID           uuid.UUID `json:"id"`
	DriverName   string    `json:"driverName"`
	Plate        string    `json:"plate"`
	Legs         int       `json:"legs"`
	Distance     float64   `json:"distance"`
	TotalFreight float64   `json:"totalFreight"`
	TotalBalance float64   `json:"totalBalance"`
}

func NewTripSummary(t *Trip) TripSummary {
	return TripSummary{
		ID:           t.ID,
		DriverName:   t.DriverName,
		Plate:        t.Plate,
		Legs:         len(t.Legs),
		Distance:     t.Distance,
		TotalFreight: t.TotalFreight,
		TotalBalance: t.TotalBalance,
	}
}
