package ledger

import (
	"math/rand"
	"reflect"
	"testing"

	"github.com/navatransportes/nava-fleet/internal/domain/models"
)

func scenarioLegs() []models.TripLeg {
	return []models.TripLeg{
		{StartOdometer: 100, EndOdometer: 150, Liters: 5, Freight: 200},
		{StartOdometer: 150, EndOdometer: 230, Liters: 10, Freight: 300},
	}
}

func TestCompute_Scenario(t *testing.T) {
	got := Compute(scenarioLegs(), nil, 10)

	if got.TotalFreight != 500 {
		t.Errorf("TotalFreight = %v, want 500", got.TotalFreight)
	}
	if got.CommissionAmount != 50 {
		t.Errorf("CommissionAmount = %v, want 50", got.CommissionAmount)
	}
	if got.OverallEfficiency != 8.67 {
		t.Errorf("OverallEfficiency = %v, want 8.67", got.OverallEfficiency)
	}
	if got.StartOdometer != 100 || got.EndOdometer != 230 || got.Distance != 130 {
		t.Errorf("unexpected odometer totals %+v", got)
	}
	if got.TotalFuel != 15 {
		t.Errorf("TotalFuel = %v, want 15", got.TotalFuel)
	}
}

func TestCompute_Empty(t *testing.T) {
	if got := Compute(nil, nil, 10); got != (models.TripTotals{}) {
		t.Fatalf("empty legs must give zero totals, got %+v", got)
	}
}

func TestCompute_NoFuel(t *testing.T) {
	legs := []models.TripLeg{{StartOdometer: 10, EndOdometer: 90}}
	if got := Compute(legs, nil, 0); got.OverallEfficiency != 0 {
		t.Fatalf("OverallEfficiency = %v, want 0", got.OverallEfficiency)
	}
}

func TestCompute_UsesEndpointsNotLegSum(t *testing.T) {
	// idle gap between legs: 150 -> 200 is not driven in any leg
	legs := []models.TripLeg{
		{StartOdometer: 100, EndOdometer: 150, Liters: 10},
		{StartOdometer: 200, EndOdometer: 300, Liters: 10},
	}

	got := Compute(legs, nil, 0)
	if got.OverallEfficiency != 10 {
		t.Fatalf("OverallEfficiency = %v, want 10", got.OverallEfficiency)
	}
}

func TestCompute_BalanceAndExtras(t *testing.T) {
	legs := []models.TripLeg{
		{Freight: 1000.10, Advance: 300.05},
		{Freight: 50, Advance: 75},
	}
	extras := []models.TripExtra{{Description: "toll", Amount: 12.5}, {Description: "wash", Amount: 30}}

	got := Compute(legs, extras, 0)
	if got.TotalBalance != 675.05 {
		t.Errorf("TotalBalance = %v, want 675.05", got.TotalBalance)
	}
	if got.TotalAdvance != 375.05 {
		t.Errorf("TotalAdvance = %v, want 375.05", got.TotalAdvance)
	}
	if got.ExtrasTotal != 42.5 {
		t.Errorf("ExtrasTotal = %v, want 42.5", got.ExtrasTotal)
	}
}

func TestLegEfficiency(t *testing.T) {
	tests := []struct {
		name string
		leg  models.TripLeg
		want float64
	}{
		{"regular", models.TripLeg{StartOdometer: 100, EndOdometer: 150, Liters: 5}, 10},
		{"zero liters", models.TripLeg{StartOdometer: 100, EndOdometer: 150}, 0},
		{"negative liters", models.TripLeg{StartOdometer: 100, EndOdometer: 150, Liters: -2}, 0},
		{"reversed odometer", models.TripLeg{StartOdometer: 150, EndOdometer: 100, Liters: 5}, 0},
		{"rounded", models.TripLeg{StartOdometer: 0, EndOdometer: 100, Liters: 3}, 33.33},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LegEfficiency(tt.leg); got != tt.want {
				t.Fatalf("LegEfficiency = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProperties_Random(t *testing.T) {
	r := rand.New(rand.NewSource(42))

	for range 500 {
		n := r.Intn(6)
		legs := make([]models.TripLeg, n)
		var freight, liters float64
		for i := range legs {
			legs[i] = models.TripLeg{
				StartOdometer: float64(r.Intn(100000)),
				EndOdometer:   float64(r.Intn(100000)),
				Liters:        float64(r.Intn(300)),
				Freight:       float64(r.Intn(100000)) / 100,
			}
			freight += legs[i].Freight
			liters += legs[i].Liters

			if LegEfficiency(legs[i]) < 0 {
				t.Fatalf("negative leg efficiency for %+v", legs[i])
			}
		}
		pct := float64(r.Intn(101))

		got := Compute(legs, nil, pct)

		if want := Round2(freight * pct / 100); got.CommissionAmount != want {
			t.Fatalf("CommissionAmount = %v, want %v", got.CommissionAmount, want)
		}

		var wantEff float64
		if n > 0 && liters > 0 {
			wantEff = Round2((legs[n-1].EndOdometer - legs[0].StartOdometer) / liters)
		}
		if got.OverallEfficiency != wantEff {
			t.Fatalf("OverallEfficiency = %v, want %v", got.OverallEfficiency, wantEff)
		}

		if again := Compute(legs, nil, pct); !reflect.DeepEqual(got, again) {
			t.Fatalf("Compute is not idempotent: %+v vs %+v", got, again)
		}
	}
}

func TestApply_OverwritesClientValues(t *testing.T) {
	trip := models.Trip{
		CommissionPercent: 10,
		Legs:              scenarioLegs(),
	}
	trip.Legs[0].Efficiency = 999
	trip.Legs[0].Balance = -1
	trip.TotalFreight = 1

	Apply(&trip)

	if trip.Legs[0].Efficiency != 10 || trip.Legs[0].Balance != 200 {
		t.Fatalf("leg derived values were not recomputed: %+v", trip.Legs[0])
	}
	if trip.TotalFreight != 500 || trip.CommissionAmount != 50 {
		t.Fatalf("totals were not recomputed: %+v", trip.TripTotals)
	}
}
