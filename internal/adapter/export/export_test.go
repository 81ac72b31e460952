package export

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/navatransportes/nava-fleet/internal/domain/models"
	"github.com/navatransportes/nava-fleet/internal/domain/types"
)

func testTrips() []models.Trip {
	return []models.Trip{
		{
			DriverName: "João Silva",
			Plate:      "ABC1D23",
			Legs: []models.TripLeg{
				{Date: "2024-03-01", Origin: "São Paulo", Destination: "Santos"},
				{Date: "2024-03-02", Origin: "Santos", Destination: "Campinas"},
			},
			TripTotals: models.TripTotals{
				Distance:          450,
				TotalFuel:         150,
				OverallEfficiency: 3,
				TotalFreight:      1500.5,
				TotalAdvance:      500,
				TotalBalance:      1000.5,
				ExtrasTotal:       80,
				CommissionAmount:  150.05,
			},
		},
		{
			DriverName: "Maria",
			Plate:      "XYZ9A87",
			CreatedAt:  time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC),
			TripTotals: models.TripTotals{Distance: 50, TotalFuel: 10, TotalFreight: 200},
		},
	}
}

func newTestExporter() *Exporter {
	e := New("Nava Transportes")
	e.now = func() time.Time { return time.Date(2024, 3, 10, 14, 30, 5, 0, time.UTC) }
	return e
}

func TestExport_PDF(t *testing.T) {
	plate := "ABC1D23"
	f, err := newTestExporter().Export(types.ExportPDF, testTrips(), models.TripFilter{Plate: plate})
	if err != nil {
		t.Fatal(err)
	}
	if f.Filename != "trips-20240310-143005.pdf" {
		t.Fatalf("unexpected filename %q", f.Filename)
	}
	if f.ContentType != "application/pdf" {
		t.Fatalf("unexpected content type %q", f.ContentType)
	}
	if !bytes.HasPrefix(f.Data, []byte("%PDF-")) {
		t.Fatal("output is not a PDF document")
	}
}

func TestExport_PDFWithoutTrips(t *testing.T) {
	f, err := newTestExporter().Export(types.ExportPDF, nil, models.TripFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(f.Data) == 0 {
		t.Fatal("empty output")
	}
}

func TestExport_XLSX(t *testing.T) {
	f, err := newTestExporter().Export(types.ExportXLSX, testTrips(), models.TripFilter{Query: "santos"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(f.Filename, ".xlsx") {
		t.Fatalf("unexpected filename %q", f.Filename)
	}

	book, err := excelize.OpenReader(bytes.NewReader(f.Data))
	if err != nil {
		t.Fatal(err)
	}
	defer book.Close()

	cells := map[string]string{
		"A1": "Nava Transportes - trip report",
		"A2": `Filters: search "santos"`,
		"A3": "Generated at 2024-03-10 14:30",
		"A5": "Date",
		"A6": "2024-03-01",
		"B6": "João Silva",
		"D6": "São Paulo > Santos > Campinas",
		"A7": "2024-03-05",
		"A8": "TOTAL",
		"H8": "1700.5",
	}
	for cell, want := range cells {
		got, err := book.GetCellValue(sheetName, cell, excelize.Options{RawCellValue: true})
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("%s = %q, want %q", cell, got, want)
		}
	}
}

func TestExport_UnknownFormat(t *testing.T) {
	_, err := newTestExporter().Export("csv", testTrips(), models.TripFilter{})
	if !errors.Is(err, types.ErrInvalidExportFormat) {
		t.Fatalf("expected ErrInvalidExportFormat, got %v", err)
	}
}

func TestMoney(t *testing.T) {
	tests := map[float64]string{
		0:           "0,00",
		1500.5:      "1.500,50",
		-80:         "-80,00",
		1234567.891: "1.234.567,89",
		999:         "999,00",
	}
	for in, want := range tests {
		if got := money(in); got != want {
			t.Errorf("money(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestRoute(t *testing.T) {
	legs := []models.TripLeg{{Origin: "A", Destination: "B"}, {Origin: "B", Destination: ""}, {Destination: "C"}}
	if got := route(legs); got != "A > B > C" {
		t.Fatalf("route = %q", got)
	}
}
