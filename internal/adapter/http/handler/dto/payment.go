package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/navatransportes/nava-fleet/internal/domain/models"
	"github.com/navatransportes/nava-fleet/pkg/validator"
)

type RegisterPaymentRequest struct {
	DriverID  uuid.UUID  `json:"driverId"`
	Amount    float64    `json:"amount"`
	ProofSent bool       `json:"proofSent"`
	Note      string     `json:"note"`
	PaidAt    *time.Time `json:"paidAt"`
}

func (r *RegisterPaymentRequest) Validate(v *validator.Validator) {
	v.Check(r.DriverID != uuid.Nil, "driverId", "must be provided")
	v.Check(r.Amount > 0, "amount", "must be greater than zero")
	v.Check(len(r.Note) <= 1000, "note", "must not be more than 1000 bytes long")
}

func (r *RegisterPaymentRequest) ToModel() *models.Payment {
	p := &models.Payment{
		DriverID:  r.DriverID,
		Amount:    r.Amount,
		ProofSent: r.ProofSent,
		Note:      r.Note,
	}
	if r.PaidAt != nil {
		p.PaidAt = r.PaidAt.UTC()
	}
	return p
}
