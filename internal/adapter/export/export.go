// Package export renders trip listings as downloadable PDF and XLSX files.
package export

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/navatransportes/nava-fleet/internal/domain/models"
	"github.com/navatransportes/nava-fleet/internal/domain/types"
)

type Exporter struct {
	company string
	now     func() time.Time
}

func New(company string) *Exporter {
	return &Exporter{company: company, now: time.Now}
}

// Export renders trips in the given format. filter only feeds the header summary.
func (e *Exporter) Export(format types.ExportFormat, trips []models.Trip, filter models.TripFilter) (*models.ExportFile, error) {
	generated := e.now()
	doc := document{
		title:     e.company + " - trip report",
		filter:    filter.Describe(),
		generated: generated.Format("2006-01-02 15:04"),
		rows:      buildRows(trips),
	}

	var (
		data []byte
		err  error
	)
	switch format {
	case types.ExportPDF:
		data, err = renderPDF(doc)
	case types.ExportXLSX:
		data, err = renderXLSX(doc)
	default:
		return nil, types.ErrInvalidExportFormat
	}
	if err != nil {
		return nil, fmt.Errorf("failed to render %s export: %w", format, err)
	}

	return &models.ExportFile{
		Filename:    fmt.Sprintf("trips-%s.%s", generated.Format("20060102-150405"), format),
		ContentType: format.ContentType(),
		Data:        data,
	}, nil
}

type document struct {
	title     string
	filter    string
	generated string
	rows      []row
}

var columns = []struct {
	title string
	width float64
}{
	{"Date", 20},
	{"Driver", 38},
	{"Plate", 20},
	{"Route", 62},
	{"Km", 16},
	{"Fuel (L)", 17},
	{"Km/L", 13},
	{"Freight", 22},
	{"Advance", 22},
	{"Balance", 22},
	{"Extras", 18},
	{"Commission", 22},
}

type row struct {
	date, driver, plate, route string
	distance, fuel, efficiency float64
	freight, advance, balance  float64
	extras, commission         float64
}

func (r row) numbers() []float64 {
	return []float64{r.distance, r.fuel, r.efficiency, r.freight, r.advance, r.balance, r.extras, r.commission}
}

func buildRows(trips []models.Trip) []row {
	rows := make([]row, 0, len(trips))
	for _, t := range trips {
		rows = append(rows, row{
			date:       tripDate(t),
			driver:     t.DriverName,
			plate:      t.Plate,
			route:      route(t.Legs),
			distance:   t.Distance,
			fuel:       t.TotalFuel,
			efficiency: t.OverallEfficiency,
			freight:    t.TotalFreight,
			advance:    t.TotalAdvance,
			balance:    t.TotalBalance,
			extras:     t.ExtrasTotal,
			commission: t.CommissionAmount,
		})
	}
	return rows
}

func totals(rows []row) row {
	var t row
	for _, r := range rows {
		t.distance += r.distance
		t.fuel += r.fuel
		t.freight += r.freight
		t.advance += r.advance
		t.balance += r.balance
		t.extras += r.extras
		t.commission += r.commission
	}
	if t.fuel > 0 {
		t.efficiency = t.distance / t.fuel
	}
	return t
}

func tripDate(t models.Trip) string {
	if len(t.Legs) > 0 && t.Legs[0].Date != "" {
		return t.Legs[0].Date
	}
	return t.CreatedAt.Format(models.DateLayout)
}

// route is "first origin > ... > last destination", skipping blanks.
func route(legs []models.TripLeg) string {
	stops := make([]string, 0, len(legs)+1)
	for i, l := range legs {
		if i == 0 && l.Origin != "" {
			stops = append(stops, l.Origin)
		}
		if l.Destination != "" {
			stops = append(stops, l.Destination)
		}
	}
	return strings.Join(stops, " > ")
}

func round(x float64) float64 {
	return math.Round(x*100) / 100
}

// money formats x the Brazilian way, 1.500,50.
func money(x float64) string {
	s := strconv.FormatFloat(math.Abs(round(x)), 'f', 2, 64)
	intPart, frac := s[:len(s)-3], s[len(s)-2:]

	var b strings.Builder
	if x < 0 && round(x) != 0 {
		b.WriteByte('-')
	}
	for i, d := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(d)
	}
	b.WriteByte(',')
	b.WriteString(frac)
	return b.String()
}
