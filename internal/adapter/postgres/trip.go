package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/navatransportes/nava-fleet/internal/domain/models"
	"github.com/navatransportes/nava-fleet/internal/domain/types"
	pgclient "github.com/navatransportes/nava-fleet/pkg/postgres"
)

type TripRepo struct {
	db *pgxpool.Pool
}

func NewTripRepo(db *pgxpool.Pool) *TripRepo {
	return &TripRepo{db: db}
}

const tripColumns = `
	t.id, t.driver_id, t.driver_name, t.plate, t.latitude, t.longitude, t.accuracy, t.address,
	t.commission_percent, t.signed_total, t.paid_total,
	t.start_odometer, t.end_odometer, t.distance, t.total_fuel, t.overall_efficiency,
	t.total_freight, t.total_advance, t.total_balance, t.extras_total, t.commission_amount,
	t.created_at, t.updated_at`

func scanTrip(row pgx.Row) (*models.Trip, error) {
	var (
		t             models.Trip
		lat, lon, acc *float64
	)
	err := row.Scan(
		&t.ID, &t.DriverID, &t.DriverName, &t.Plate, &lat, &lon, &acc, &t.Address,
		&t.CommissionPercent, &t.SignedTotal, &t.PaidTotal,
		&t.StartOdometer, &t.EndOdometer, &t.Distance, &t.TotalFuel, &t.OverallEfficiency,
		&t.TotalFreight, &t.TotalAdvance, &t.TotalBalance, &t.ExtrasTotal, &t.CommissionAmount,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lat != nil && lon != nil {
		t.Location = &models.GeoPoint{Latitude: *lat, Longitude: *lon}
		if acc != nil {
			t.Location.Accuracy = *acc
		}
	}
	t.Legs = []models.TripLeg{}
	t.Extras = []models.TripExtra{}
	return &t, nil
}

func locationArgs(p *models.GeoPoint) (lat, lon, acc *float64) {
	if p == nil {
		return nil, nil, nil
	}
	return &p.Latitude, &p.Longitude, &p.Accuracy
}

// Create stores the trip with its legs and extras. Call it inside a transaction.
func (r *TripRepo) Create(ctx context.Context, t *models.Trip) (err error) {
	defer observe("trip_create", time.Now(), &err)

	const q = `
		INSERT INTO trips (
			driver_id, driver_name, plate, latitude, longitude, accuracy, address,
			commission_percent, signed_total, paid_total,
			start_odometer, end_odometer, distance, total_fuel, overall_efficiency,
			total_freight, total_advance, total_balance, extras_total, commission_amount
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING id, created_at, updated_at;
	`

	lat, lon, acc := locationArgs(t.Location)
	err = TxorDB(ctx, r.db).QueryRow(ctx, q,
		t.DriverID, t.DriverName, t.Plate, lat, lon, acc, t.Address,
		t.CommissionPercent, t.SignedTotal, t.PaidTotal,
		t.StartOdometer, t.EndOdometer, t.Distance, t.TotalFuel, t.OverallEfficiency,
		t.TotalFreight, t.TotalAdvance, t.TotalBalance, t.ExtrasTotal, t.CommissionAmount,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if pgclient.IsForeignKeyViolation(err) {
		return types.ErrDriverNotFound
	}
	if err != nil {
		return err
	}

	return r.insertChildren(ctx, t)
}

// Update rewrites the trip header and replaces legs and extras. Call it inside a transaction.
func (r *TripRepo) Update(ctx context.Context, t *models.Trip) (err error) {
	defer observe("trip_update", time.Now(), &err)

	const q = `
		UPDATE trips SET
			driver_id = $2, driver_name = $3, plate = $4,
			latitude = $5, longitude = $6, accuracy = $7, address = $8,
			commission_percent = $9, signed_total = $10, paid_total = $11,
			start_odometer = $12, end_odometer = $13, distance = $14, total_fuel = $15, overall_efficiency = $16,
			total_freight = $17, total_advance = $18, total_balance = $19, extras_total = $20, commission_amount = $21,
			updated_at = now()
		WHERE id = $1
		RETURNING updated_at;
	`

	lat, lon, acc := locationArgs(t.Location)
	err = TxorDB(ctx, r.db).QueryRow(ctx, q, t.ID,
		t.DriverID, t.DriverName, t.Plate, lat, lon, acc, t.Address,
		t.CommissionPercent, t.SignedTotal, t.PaidTotal,
		t.StartOdometer, t.EndOdometer, t.Distance, t.TotalFuel, t.OverallEfficiency,
		t.TotalFreight, t.TotalAdvance, t.TotalBalance, t.ExtrasTotal, t.CommissionAmount,
	).Scan(&t.UpdatedAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return types.ErrTripNotFound
	case pgclient.IsForeignKeyViolation(err):
		return types.ErrDriverNotFound
	case err != nil:
		return err
	}

	db := TxorDB(ctx, r.db)
	if _, err := db.Exec(ctx, `DELETE FROM trip_legs WHERE trip_id = $1`, t.ID); err != nil {
		return err
	}
	if _, err := db.Exec(ctx, `DELETE FROM trip_extras WHERE trip_id = $1`, t.ID); err != nil {
		return err
	}
	return r.insertChildren(ctx, t)
}

func (r *TripRepo) insertChildren(ctx context.Context, t *models.Trip) error {
	db := TxorDB(ctx, r.db)

	const legQ = `
		INSERT INTO trip_legs (
			trip_id, position, leg_date, origin, destination, freight, advance, balance,
			start_odometer, end_odometer, fuel_station, liters, efficiency, signer, paid
		)
		VALUES ($1, $2, $3::date, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15);
	`
	for i, l := range t.Legs {
		if _, err := db.Exec(ctx, legQ,
			t.ID, i, l.Date, l.Origin, l.Destination, l.Freight, l.Advance, l.Balance,
			l.StartOdometer, l.EndOdometer, l.FuelStation, l.Liters, l.Efficiency, l.Signer, l.Paid,
		); err != nil {
			return fmt.Errorf("insert leg %d: %w", i+1, err)
		}
	}

	const extraQ = `INSERT INTO trip_extras (trip_id, position, description, amount) VALUES ($1, $2, $3, $4);`
	for i, e := range t.Extras {
		if _, err := db.Exec(ctx, extraQ, t.ID, i, e.Description, e.Amount); err != nil {
			return fmt.Errorf("insert extra %d: %w", i+1, err)
		}
	}
	return nil
}

func (r *TripRepo) Get(ctx context.Context, id uuid.UUID) (_ *models.Trip, err error) {
	defer observe("trip_get", time.Now(), &err)

	q := `SELECT ` + tripColumns + ` FROM trips t WHERE t.id = $1;`

	t, err := scanTrip(TxorDB(ctx, r.db).QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, types.ErrTripNotFound
	}
	if err != nil {
		return nil, err
	}

	trips := []models.Trip{*t}
	if err := r.loadChildren(ctx, trips); err != nil {
		return nil, err
	}
	return &trips[0], nil
}

// List returns one page of trips, newest first unless sorted otherwise, and the number of matches.
func (r *TripRepo) List(ctx context.Context, f models.TripFilter) (_ []models.Trip, total int, err error) {
	defer observe("trip_list", time.Now(), &err)

	where, args := tripWhere(f)

	if err := TxorDB(ctx, r.db).QueryRow(ctx, `SELECT count(*) FROM trips t`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []models.Trip{}, 0, nil
	}

	q := fmt.Sprintf(`SELECT %s FROM trips t%s ORDER BY t.%s %s, t.id LIMIT $%d OFFSET $%d`,
		tripColumns, where, f.SortColumn(), f.SortDirection(), len(args)+1, len(args)+2)
	args = append(args, f.Limit(), f.Offset())

	rows, err := TxorDB(ctx, r.db).Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	trips := make([]models.Trip, 0, f.Limit())
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, 0, err
		}
		trips = append(trips, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	rows.Close()

	if err := r.loadChildren(ctx, trips); err != nil {
		return nil, 0, err
	}
	return trips, total, nil
}

func tripWhere(f models.TripFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.DriverID != nil {
		conds = append(conds, "t.driver_id = "+arg(*f.DriverID))
	}
	if f.Plate != "" {
		conds = append(conds, "replace(t.plate, '-', '') = replace(upper("+arg(f.Plate)+"), '-', '')")
	}
	if f.From != nil {
		conds = append(conds, "t.created_at >= "+arg(*f.From))
	}
	if f.To != nil {
		// inclusive day
		conds = append(conds, "t.created_at < "+arg(f.To.AddDate(0, 0, 1)))
	}
	if f.Query != "" {
		p := arg("%" + f.Query + "%")
		conds = append(conds, fmt.Sprintf(`(t.driver_name ILIKE %[1]s OR t.plate ILIKE %[1]s OR EXISTS (
			SELECT 1 FROM trip_legs l WHERE l.trip_id = t.id AND (l.origin ILIKE %[1]s OR l.destination ILIKE %[1]s)))`, p))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// loadChildren fills legs and extras of trips with two queries.
func (r *TripRepo) loadChildren(ctx context.Context, trips []models.Trip) error {
	if len(trips) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(trips))
	byID := make(map[uuid.UUID]*models.Trip, len(trips))
	for i := range trips {
		ids[i] = trips[i].ID
		byID[trips[i].ID] = &trips[i]
	}

	db := TxorDB(ctx, r.db)

	rows, err := db.Query(ctx, `
		SELECT trip_id, to_char(leg_date, 'YYYY-MM-DD'), origin, destination, freight, advance, balance,
			start_odometer, end_odometer, fuel_station, liters, efficiency, signer, paid
		FROM trip_legs
		WHERE trip_id = ANY($1)
		ORDER BY trip_id, position;`, ids)
	if err != nil {
		return err
	}
	for rows.Next() {
		var (
			tripID uuid.UUID
			l      models.TripLeg
		)
		if err := rows.Scan(&tripID, &l.Date, &l.Origin, &l.Destination, &l.Freight, &l.Advance, &l.Balance,
			&l.StartOdometer, &l.EndOdometer, &l.FuelStation, &l.Liters, &l.Efficiency, &l.Signer, &l.Paid); err != nil {
			rows.Close()
			return err
		}
		t := byID[tripID]
		t.Legs = append(t.Legs, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = db.Query(ctx, `
		SELECT trip_id, description, amount
		FROM trip_extras
		WHERE trip_id = ANY($1)
		ORDER BY trip_id, position;`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			tripID uuid.UUID
			e      models.TripExtra
		)
		if err := rows.Scan(&tripID, &e.Description, &e.Amount); err != nil {
			return err
		}
		t := byID[tripID]
		t.Extras = append(t.Extras, e)
	}
	return rows.Err()
}

func (r *TripRepo) Delete(ctx context.Context, id uuid.UUID) (err error) {
	defer observe("trip_delete", time.Now(), &err)

	tag, err := TxorDB(ctx, r.db).Exec(ctx, `DELETE FROM trips WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return types.ErrTripNotFound
	}
	return nil
}

func (r *TripRepo) Count(ctx context.Context) (n int, err error) {
	defer observe("trip_count", time.Now(), &err)

	err = TxorDB(ctx, r.db).QueryRow(ctx, `SELECT count(*) FROM trips;`).Scan(&n)
	return n, err
}
