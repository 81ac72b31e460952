package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/navatransportes/nava-fleet/internal/domain/models"
)

type AnalyticsRepo struct {
	db *pgxpool.Pool
}

func NewAnalyticsRepo(db *pgxpool.Pool) *AnalyticsRepo {
	return &AnalyticsRepo{db: db}
}

// DriverStats aggregates every driver account, drivers without trips included.
// Trips with zero overall efficiency are left out of the average.
func (r *AnalyticsRepo) DriverStats(ctx context.Context) (_ []models.DriverStats, err error) {
	defer observe("analytics_driver_stats", time.Now(), &err)

	const q = `
		SELECT
			u.id,
			u.name,
			COALESCE(t.trips, 0),
			COALESCE(t.freight, 0),
			COALESCE(t.paid, 0),
			COALESCE(t.commission, 0),
			COALESCE(p.total, 0),
			COALESCE(t.efficiency, 0)
		FROM users u
		LEFT JOIN (
			SELECT
				driver_id,
				count(*)                               AS trips,
				sum(total_freight)                     AS freight,
				sum(paid_total)                        AS paid,
				sum(commission_amount)                 AS commission,
				avg(NULLIF(overall_efficiency, 0))     AS efficiency
			FROM trips
			GROUP BY driver_id
		) t ON t.driver_id = u.id
		LEFT JOIN (
			SELECT driver_id, sum(amount) AS total
			FROM payments
			GROUP BY driver_id
		) p ON p.driver_id = u.id
		WHERE u.role = 'driver'
		ORDER BY COALESCE(t.freight, 0) DESC, u.name;
	`

	rows, err := TxorDB(ctx, r.db).Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := []models.DriverStats{}
	for rows.Next() {
		var s models.DriverStats
		if err := rows.Scan(&s.DriverID, &s.DriverName, &s.Trips, &s.TotalFreight, &s.TotalPaid,
			&s.Commission, &s.PaymentsTotal, &s.AverageEfficiency); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
