package models

import (
	"testing"

	"github.com/navatransportes/nava-fleet/pkg/validator"
)

func TestCalculateMetadata(t *testing.T) {
	tests := []struct {
		name                  string
		total, page, pageSize int
		wantLast              int
	}{
		{"empty", 0, 1, 20, 0},
		{"exact", 40, 1, 20, 2},
		{"rounds up", 12, 2, 5, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := CalculateMetadata(tt.total, tt.page, tt.pageSize)
			if m.LastPage != tt.wantLast {
				t.Fatalf("LastPage = %d, want %d", m.LastPage, tt.wantLast)
			}
		})
	}
}

func TestFilters_SortAndOffset(t *testing.T) {
	f, err := NewFilters(3, 10, "-created_at", []string{"created_at", "-created_at"})
	if err != nil {
		t.Fatal(err)
	}

	if f.SortColumn() != "created_at" || f.SortDirection() != "DESC" {
		t.Fatalf("unexpected sort %s %s", f.SortColumn(), f.SortDirection())
	}
	if f.Offset() != 20 || f.Limit() != 10 {
		t.Fatalf("unexpected offset/limit %d/%d", f.Offset(), f.Limit())
	}
}

func TestFilters_Validate(t *testing.T) {
	f, _ := NewFilters(0, 500, "name", []string{"created_at"})

	v := validator.New()
	f.Validate(v)

	for _, key := range []string{"page", "limit", "sort"} {
		if _, ok := v.Errors[key]; !ok {
			t.Errorf("expected error for %s", key)
		}
	}
}

func TestTripFilter_Describe(t *testing.T) {
	if got := (TripFilter{}).Describe(); got != "all trips" {
		t.Fatalf("unexpected description %q", got)
	}
	if got := (TripFilter{Plate: "ABC1D23", Query: "santos"}).Describe(); got != `plate ABC1D23, search "santos"` {
		t.Fatalf("unexpected description %q", got)
	}
}
