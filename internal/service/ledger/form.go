package ledger

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/navatransportes/nava-fleet/internal/domain/models"
)

var (
	ErrLegIndex     = errors.New("leg index out of range")
	ErrLastLeg      = errors.New("a trip must keep at least one leg")
	ErrUnknownField = errors.New("unknown leg field")
)

// Field names a leg column that can be edited.
type Field string

const (
	FieldDate          Field = "date"
	FieldOrigin        Field = "origin"
	FieldDestination   Field = "destination"
	FieldFreight       Field = "freight"
	FieldAdvance       Field = "advance"
	FieldStartOdometer Field = "startOdometer"
	FieldEndOdometer   Field = "endOdometer"
	FieldFuelStation   Field = "fuelStation"
	FieldLiters        Field = "liters"
	FieldSigner        Field = "signer"
	FieldPaid          Field = "paid"

	FieldCommissionPercent Field = "commissionPercent"
	FieldSignedTotal       Field = "signedTotal"
	FieldPaidTotal         Field = "paidTotal"
	FieldExtraAmount       Field = "extraAmount"
)

// HeaderLeg is the Warning.Leg value of trip level fields.
const HeaderLeg = -1

// Warning reports a raw value that was not a number and was taken as zero.
type Warning struct {
	Leg   int
	Field Field
	Raw   string
}

func (w Warning) String() string {
	if w.Leg == HeaderLeg {
		return fmt.Sprintf("%s: %q is not a number, using 0", w.Field, w.Raw)
	}
	return fmt.Sprintf("leg %d %s: %q is not a number, using 0", w.Leg+1, w.Field, w.Raw)
}

type warnKey struct {
	leg   int
	field Field
}

// Form is the editable state of a trip being filled in. Every edit keeps derived values current.
// Form is not safe for concurrent use.
type Form struct {
	driverName        string
	plate             string
	commissionPercent float64
	signedTotal       float64
	paidTotal         float64
	location          *models.GeoPoint

	legs     []models.TripLeg
	extras   []models.TripExtra
	warnings map[warnKey]Warning

	now func() time.Time
}

// NewForm returns a form with one empty leg dated today.
func NewForm() *Form {
	f := &Form{
		warnings: make(map[warnKey]Warning),
		now:      time.Now,
	}
	f.AddLeg()
	return f
}

func (f *Form) newLeg() models.TripLeg {
	return models.TripLeg{Date: f.now().Format(models.DateLayout)}
}

// AddLeg appends an empty leg and returns its index.
func (f *Form) AddLeg() int {
	f.legs = append(f.legs, f.newLeg())
	return len(f.legs) - 1
}

// RemoveLeg deletes the leg at i. The last remaining leg cannot be removed.
func (f *Form) RemoveLeg(i int) error {
	if i < 0 || i >= len(f.legs) {
		return ErrLegIndex
	}
	if len(f.legs) == 1 {
		return ErrLastLeg
	}

	f.legs = slices.Delete(f.legs, i, i+1)

	// shift warnings of the following legs
	shifted := make(map[warnKey]Warning, len(f.warnings))
	for k, w := range f.warnings {
		switch {
		case k.leg == i:
			continue
		case k.leg > i:
			k.leg--
			w.Leg--
		}
		shifted[k] = w
	}
	f.warnings = shifted

	return nil
}

// SetField applies a raw user input to one leg column.
func (f *Form) SetField(i int, field Field, raw string) error {
	if i < 0 || i >= len(f.legs) {
		return ErrLegIndex
	}
	l := &f.legs[i]

	switch field {
	case FieldDate:
		l.Date = strings.TrimSpace(raw)
	case FieldOrigin:
		l.Origin = raw
	case FieldDestination:
		l.Destination = raw
	case FieldFuelStation:
		l.FuelStation = raw
	case FieldSigner:
		l.Signer = raw
	case FieldPaid:
		b, ok := ParseBool(raw)
		f.track(i, field, raw, ok)
		l.Paid = b
	case FieldFreight:
		l.Freight = f.number(i, field, raw)
	case FieldAdvance:
		l.Advance = f.number(i, field, raw)
	case FieldStartOdometer:
		l.StartOdometer = f.number(i, field, raw)
	case FieldEndOdometer:
		l.EndOdometer = f.number(i, field, raw)
	case FieldLiters:
		l.Liters = f.number(i, field, raw)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}

	Recalculate(l)
	return nil
}

func (f *Form) SetDriverName(name string) { f.driverName = name }

func (f *Form) SetPlate(plate string) { f.plate = strings.ToUpper(strings.TrimSpace(plate)) }

func (f *Form) SetLocation(p *models.GeoPoint) { f.location = p }

func (f *Form) SetCommissionPercent(raw string) {
	f.commissionPercent = f.number(HeaderLeg, FieldCommissionPercent, raw)
}

func (f *Form) SetSignedTotal(raw string) {
	f.signedTotal = f.number(HeaderLeg, FieldSignedTotal, raw)
}

func (f *Form) SetPaidTotal(raw string) {
	f.paidTotal = f.number(HeaderLeg, FieldPaidTotal, raw)
}

// AddExtra appends an extra charge. Entries with neither description nor amount are ignored.
func (f *Form) AddExtra(description, rawAmount string) {
	amount := f.number(HeaderLeg, FieldExtraAmount, rawAmount)
	if strings.TrimSpace(description) == "" && amount == 0 {
		return
	}
	f.extras = append(f.extras, models.TripExtra{Description: description, Amount: amount})
}

// Legs returns a copy of the current legs.
func (f *Form) Legs() []models.TripLeg {
	return slices.Clone(f.legs)
}

// Snapshot returns the derived totals of the current state.
func (f *Form) Snapshot() models.TripTotals {
	return Compute(f.legs, f.extras, f.commissionPercent)
}

// Warnings lists the coerced inputs ordered by leg then field.
func (f *Form) Warnings() []Warning {
	out := make([]Warning, 0, len(f.warnings))
	for _, w := range f.warnings {
		out = append(out, w)
	}
	slices.SortFunc(out, func(a, b Warning) int {
		if a.Leg != b.Leg {
			return a.Leg - b.Leg
		}
		return strings.Compare(string(a.Field), string(b.Field))
	})
	return out
}

// Trip builds the payload to submit.
func (f *Form) Trip() models.Trip {
	t := models.Trip{
		DriverName:        f.driverName,
		Plate:             f.plate,
		Location:          f.location,
		CommissionPercent: f.commissionPercent,
		SignedTotal:       f.signedTotal,
		PaidTotal:         f.paidTotal,
		Extras:            slices.Clone(f.extras),
		Legs:              slices.Clone(f.legs),
	}
	if t.Extras == nil {
		t.Extras = []models.TripExtra{}
	}
	Apply(&t)
	return t
}

// Reset clears legs and extras after a successful submit, header fields are kept.
func (f *Form) Reset() {
	f.legs = []models.TripLeg{f.newLeg()}
	f.extras = nil
	f.warnings = make(map[warnKey]Warning)
}

func (f *Form) number(leg int, field Field, raw string) float64 {
	n, ok := ParseNumber(raw)
	f.track(leg, field, raw, ok)
	return n
}

func (f *Form) track(leg int, field Field, raw string, ok bool) {
	k := warnKey{leg: leg, field: field}
	if ok {
		delete(f.warnings, k)
		return
	}
	f.warnings[k] = Warning{Leg: leg, Field: field, Raw: raw}
}
