package locationIQ

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/navatransportes/nava-fleet/internal/domain/models"
)

func TestGetAddress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/reverse" {
			http.NotFound(w, r)
			return
		}
		q := r.URL.Query()
		if q.Get("key") != "secret" || q.Get("lat") != "-23.550520" || q.Get("lon") != "-46.633308" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{"display_name":"Praça da Sé, São Paulo"}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/", "secret")
	addr, err := c.GetAddress(context.Background(), models.GeoPoint{Latitude: -23.55052, Longitude: -46.633308})
	if err != nil {
		t.Fatal(err)
	}
	if addr != "Praça da Sé, São Paulo" {
		t.Fatalf("unexpected address %q", addr)
	}
}

func TestGetAddress_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		notFound bool
	}{
		{"not found", http.StatusNotFound, `{"error":"Unable to geocode"}`, true},
		{"empty address", http.StatusOK, `{}`, true},
		{"server error", http.StatusInternalServerError, ``, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := New(srv.URL, "k").GetAddress(context.Background(), models.GeoPoint{})
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.Is(err, ErrLocationNotFound); got != tt.notFound {
				t.Fatalf("errors.Is(ErrLocationNotFound) = %v, err %v", got, err)
			}
		})
	}
}
