package models

import (
	"time"

	"github.com/google/uuid"
)

type Payment struct {
	ID         uuid.UUID `json:"id"`
	DriverID   uuid.UUID `json:"driverId"`
	DriverName string    `json:"driverName"`
	Amount     float64   `json:"amount"`
	ProofSent  bool      `json:"proofSent"`
	Note       string    `json:"note"`
	PaidAt     time.Time `json:"paidAt"`
	CreatedAt  time.Time `json:"createdAt"`
}

type PaymentFilter struct {
	DriverID *uuid.UUID
	From     *time.Time
	To       *time.Time
}

type PaymentList struct {
	Items []Payment `json:"items"`
	Total float64   `json:"total"`
}
