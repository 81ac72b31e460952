package main

import (
	"strings"
	"testing"
)

func TestReadTripFile(t *testing.T) {
	const file = `{
		"plate": "ABC1D23",
		"commissionPercent": "10",
		"signedTotal": 100,
		"extras": [{"description": "Pedagio", "amount": "80,00"}],
		"legs": [{
			"date": "2025-03-14",
			"origin": "Santos",
			"destination": "Campinas",
			"freight": "1.500,50",
			"advance": 500,
			"startOdometer": "1,000.0",
			"endOdometer": 1450,
			"liters": "0x96",
			"paid": "sim"
		}]
	}`

	in, err := readTripFile(strings.NewReader(file))
	if err != nil {
		t.Fatal(err)
	}

	if in.CommissionPercent != 10 || in.SignedTotal != 100 || in.Extras[0].Amount != 80 {
		t.Fatalf("unexpected header %+v", in)
	}
	leg := in.Legs[0]
	if leg.Freight != 1500.5 || leg.StartOdometer != 1000 || leg.EndOdometer != 1450 || !leg.Paid {
		t.Fatalf("unexpected leg %+v", leg)
	}
	if leg.Liters != 0 || leg.Efficiency != 0 {
		t.Fatalf("hex liters must coerce to 0, got %+v", leg)
	}
	if leg.Balance != 1000.5 {
		t.Fatalf("balance = %v, want 1000.5", leg.Balance)
	}
}

func TestReadTripFile_Errors(t *testing.T) {
	tests := []struct {
		name string
		file string
	}{
		{"not json", `plate: ABC`},
		{"unknown paid spelling", `{"legs": [{"paid": "maybe"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := readTripFile(strings.NewReader(tt.file)); err == nil {
				t.Fatalf("expected an error")
			}
		})
	}
}
