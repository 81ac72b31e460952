// Package ledger derives the aggregate figures of a trip record from its legs.
//
// All functions are pure: the same legs always produce the same totals.
package ledger

import (
	"math"

	"github.com/navatransportes/nava-fleet/internal/domain/models"
)

// Round2 rounds to two decimal places, half away from zero.
func Round2(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return math.Round(x*100) / 100
}

// LegBalance returns freight minus advance.
func LegBalance(l models.TripLeg) float64 {
	return Round2(l.Freight - l.Advance)
}

// LegEfficiency returns km per liter of a leg. Reversed odometer readings count as zero distance.
func LegEfficiency(l models.TripLeg) float64 {
	if l.Liters <= 0 {
		return 0
	}
	return Round2(math.Max(0, l.EndOdometer-l.StartOdometer) / l.Liters)
}

// Recalculate refreshes the derived fields of a leg in place.
func Recalculate(l *models.TripLeg) {
	l.Balance = LegBalance(*l)
	l.Efficiency = LegEfficiency(*l)
}

// Commission returns round2(totalFreight * percent / 100).
func Commission(totalFreight, percent float64) float64 {
	return Round2(totalFreight * percent / 100)
}

// Compute derives the trip totals.
// Overall efficiency uses the first leg's start and the last leg's end odometer over the summed liters,
// never the sum of per-leg efficiencies.
func Compute(legs []models.TripLeg, extras []models.TripExtra, commissionPercent float64) models.TripTotals {
	var t models.TripTotals
	var freight, advance, balance, liters float64

	if len(legs) == 0 {
		t.ExtrasTotal = sumExtras(extras)
		return t
	}

	for _, l := range legs {
		freight += l.Freight
		advance += l.Advance
		balance += LegBalance(l)
		liters += l.Liters
	}

	t.StartOdometer = legs[0].StartOdometer
	t.EndOdometer = legs[len(legs)-1].EndOdometer
	t.Distance = Round2(t.EndOdometer - t.StartOdometer)
	t.TotalFuel = Round2(liters)
	if liters > 0 {
		t.OverallEfficiency = Round2((t.EndOdometer - t.StartOdometer) / liters)
	}

	t.TotalFreight = Round2(freight)
	t.TotalAdvance = Round2(advance)
	t.TotalBalance = Round2(balance)
	t.ExtrasTotal = sumExtras(extras)
	t.CommissionAmount = Commission(freight, commissionPercent)

	return t
}

// Apply recomputes every derived field of the trip, values sent by clients are discarded.
func Apply(trip *models.Trip) {
	for i := range trip.Legs {
		Recalculate(&trip.Legs[i])
	}
	trip.TripTotals = Compute(trip.Legs, trip.Extras, trip.CommissionPercent)
}

func sumExtras(extras []models.TripExtra) float64 {
	var s float64
	for _, e := range extras {
		s += e.Amount
	}
	return Round2(s)
}
