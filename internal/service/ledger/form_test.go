package ledger

import (
	"errors"
	"testing"
	"time"
)

func newTestForm() *Form {
	f := NewForm()
	f.now = func() time.Time { return time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC) }
	f.Reset()
	return f
}

func fill(t *testing.T, f *Form, i int, values map[Field]string) {
	t.Helper()
	for field, raw := range values {
		if err := f.SetField(i, field, raw); err != nil {
			t.Fatalf("SetField(%d, %s): %v", i, field, err)
		}
	}
}

func TestForm_ScenarioEndToEnd(t *testing.T) {
	f := newTestForm()
	fill(t, f, 0, map[Field]string{
		FieldStartOdometer: "100", FieldEndOdometer: "150", FieldLiters: "5", FieldFreight: "200",
	})
	i := f.AddLeg()
	fill(t, f, i, map[Field]string{
		FieldStartOdometer: "150", FieldEndOdometer: "230", FieldLiters: "10", FieldFreight: "300",
	})
	f.SetCommissionPercent("10")

	snap := f.Snapshot()
	if snap.TotalFreight != 500 || snap.CommissionAmount != 50 || snap.OverallEfficiency != 8.67 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	legs := f.Legs()
	if legs[0].Efficiency != 10 || legs[1].Efficiency != 8 {
		t.Fatalf("unexpected leg efficiency %v %v", legs[0].Efficiency, legs[1].Efficiency)
	}
	if legs[0].Date != "2025-03-14" {
		t.Fatalf("new legs must be dated today, got %q", legs[0].Date)
	}
}

func TestForm_EditRecomputesLeg(t *testing.T) {
	f := newTestForm()
	fill(t, f, 0, map[Field]string{FieldFreight: "500", FieldAdvance: "120"})

	if got := f.Legs()[0].Balance; got != 380 {
		t.Fatalf("Balance = %v, want 380", got)
	}

	fill(t, f, 0, map[Field]string{FieldAdvance: "500"})
	if got := f.Legs()[0].Balance; got != 0 {
		t.Fatalf("Balance = %v, want 0", got)
	}
}

func TestForm_CoercionWarnings(t *testing.T) {
	f := newTestForm()
	fill(t, f, 0, map[Field]string{FieldLiters: "dez"})

	if got := f.Legs()[0].Liters; got != 0 {
		t.Fatalf("invalid liters must be zero, got %v", got)
	}
	ws := f.Warnings()
	if len(ws) != 1 || ws[0].Field != FieldLiters || ws[0].Raw != "dez" {
		t.Fatalf("unexpected warnings %+v", ws)
	}

	// a valid value clears the warning
	fill(t, f, 0, map[Field]string{FieldLiters: "10"})
	if len(f.Warnings()) != 0 {
		t.Fatalf("warning must be cleared, got %+v", f.Warnings())
	}
}

func TestForm_CoercionWarnings_MisformattedNumbers(t *testing.T) {
	tests := []struct {
		raw     string
		want    float64
		warning bool
	}{
		{"1,234.5", 1234.5, false},
		{"1.234,5", 1234.5, false},
		{"0x1p3", 0, true},
		{"1_000", 0, true},
		{"1,2,3", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			f := newTestForm()
			fill(t, f, 0, map[Field]string{FieldFreight: tt.raw})

			if got := f.Legs()[0].Freight; got != tt.want {
				t.Fatalf("freight = %v, want %v", got, tt.want)
			}
			ws := f.Warnings()
			if tt.warning && (len(ws) != 1 || ws[0].Field != FieldFreight || ws[0].Raw != tt.raw) {
				t.Fatalf("expected one freight warning, got %+v", ws)
			}
			if !tt.warning && len(ws) != 0 {
				t.Fatalf("unexpected warnings %+v", ws)
			}
		})
	}
}

func TestForm_RemoveLeg(t *testing.T) {
	f := newTestForm()
	if err := f.RemoveLeg(0); !errors.Is(err, ErrLastLeg) {
		t.Fatalf("expected ErrLastLeg, got %v", err)
	}

	f.AddLeg()
	fill(t, f, 1, map[Field]string{FieldFreight: "oops"})
	f.AddLeg()
	fill(t, f, 2, map[Field]string{FieldAdvance: "bad"})

	if err := f.RemoveLeg(1); err != nil {
		t.Fatal(err)
	}
	if len(f.Legs()) != 2 {
		t.Fatalf("expected 2 legs, got %d", len(f.Legs()))
	}

	ws := f.Warnings()
	if len(ws) != 1 || ws[0].Leg != 1 || ws[0].Field != FieldAdvance {
		t.Fatalf("warnings were not shifted: %+v", ws)
	}

	if err := f.RemoveLeg(5); !errors.Is(err, ErrLegIndex) {
		t.Fatalf("expected ErrLegIndex, got %v", err)
	}
}

func TestForm_UnknownField(t *testing.T) {
	f := newTestForm()
	if err := f.SetField(0, "balance", "1"); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("derived fields must not be editable, got %v", err)
	}
}

func TestForm_TripPayload(t *testing.T) {
	f := newTestForm()
	f.SetPlate(" abc1d23 ")
	f.AddExtra("", "0")
	f.AddExtra("toll", "15,50")
	fill(t, f, 0, map[Field]string{FieldFreight: "100", FieldPaid: "sim"})
	f.SetCommissionPercent("5")

	trip := f.Trip()
	if trip.Plate != "ABC1D23" {
		t.Fatalf("plate = %q", trip.Plate)
	}
	if len(trip.Extras) != 1 || trip.ExtrasTotal != 15.5 {
		t.Fatalf("unexpected extras %+v total %v", trip.Extras, trip.ExtrasTotal)
	}
	if !trip.Legs[0].Paid || trip.CommissionAmount != 5 {
		t.Fatalf("unexpected trip %+v", trip)
	}

	f.Reset()
	if len(f.Legs()) != 1 || f.Legs()[0].Freight != 0 {
		t.Fatalf("reset must leave one empty leg")
	}
}
