package docs

import (
	"encoding/json"
	"testing"

	"github.com/swaggo/swag"
)

func TestRegister(t *testing.T) {
	Register("driver-service", "localhost:3001", "/nava")

	raw, err := swag.ReadDoc("driver-service")
	if err != nil {
		t.Fatalf("ReadDoc: %v", err)
	}

	var doc struct {
		BasePath string                    `json:"basePath"`
		Info     map[string]string         `json:"info"`
		Paths    map[string]map[string]any `json:"paths"`
	}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("document is not JSON: %v", err)
	}
	if doc.BasePath != "/nava" || doc.Info["title"] != "Nava Driver Service API" {
		t.Fatalf("unexpected header %+v", doc)
	}
	if _, ok := doc.Paths["/driver/trips/{id}"]["delete"]; !ok {
		t.Fatalf("driver route missing: %v", doc.Paths)
	}
	if _, ok := doc.Paths["/admin/dashboard"]; ok {
		t.Fatal("admin route leaked into the driver document")
	}
}
