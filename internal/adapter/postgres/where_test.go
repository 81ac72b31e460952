package postgres

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/navatransportes/nava-fleet/internal/domain/models"
)

func TestTripWhere(t *testing.T) {
	driver := uuid.New()
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)

	where, args := tripWhere(models.TripFilter{
		DriverID: &driver,
		Plate:    "abc-1d23",
		From:     &from,
		To:       &to,
		Query:    "santos",
	})

	if len(args) != 5 {
		t.Fatalf("expected 5 args, got %d", len(args))
	}
	for _, want := range []string{"t.driver_id = $1", "upper($2)", "t.created_at >= $3", "t.created_at < $4", "ILIKE $5"} {
		if !strings.Contains(where, want) {
			t.Errorf("where clause %q misses %q", where, want)
		}
	}
	if got := args[3].(time.Time); !got.Equal(to.AddDate(0, 0, 1)) {
		t.Errorf("upper bound = %v, want the day after %v", got, to)
	}
	if args[4] != "%santos%" {
		t.Errorf("search pattern = %v", args[4])
	}
}

func TestTripWhere_Empty(t *testing.T) {
	where, args := tripWhere(models.TripFilter{})
	if where != "" || args != nil {
		t.Fatalf("expected no conditions, got %q %v", where, args)
	}
}

func TestPaymentWhere(t *testing.T) {
	driver := uuid.New()
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	where, args := paymentWhere(models.PaymentFilter{DriverID: &driver, From: &from})
	if len(args) != 2 {
		t.Fatalf("expected 2 args, got %d", len(args))
	}
	if !strings.Contains(where, "p.driver_id = $1 AND p.paid_at >= $2") {
		t.Fatalf("unexpected where clause %q", where)
	}
}

func TestUserWhere(t *testing.T) {
	where, args := userWhere(models.UserFilter{Query: "ana", Role: "driver"})
	if len(args) != 2 {
		t.Fatalf("expected 2 args, got %d: %q", len(args), where)
	}
}
