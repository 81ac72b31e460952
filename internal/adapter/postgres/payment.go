package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/navatransportes/nava-fleet/internal/domain/models"
	"github.com/navatransportes/nava-fleet/internal/domain/types"
	pgclient "github.com/navatransportes/nava-fleet/pkg/postgres"
)

type PaymentRepo struct {
	db *pgxpool.Pool
}

func NewPaymentRepo(db *pgxpool.Pool) *PaymentRepo {
	return &PaymentRepo{db: db}
}

func (r *PaymentRepo) Create(ctx context.Context, p *models.Payment) (err error) {
	defer observe("payment_create", time.Now(), &err)

	const q = `
		WITH inserted AS (
			INSERT INTO payments (driver_id, amount, proof_sent, note, paid_at)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, driver_id, paid_at, created_at
		)
		SELECT i.id, i.paid_at, i.created_at, u.name
		FROM inserted i JOIN users u ON u.id = i.driver_id;
	`

	err = TxorDB(ctx, r.db).QueryRow(ctx, q, p.DriverID, p.Amount, p.ProofSent, p.Note, p.PaidAt).
		Scan(&p.ID, &p.PaidAt, &p.CreatedAt, &p.DriverName)
	if pgclient.IsForeignKeyViolation(err) {
		return types.ErrDriverNotFound
	}
	return err
}

// List returns payments newest first with the sum of their amounts.
func (r *PaymentRepo) List(ctx context.Context, f models.PaymentFilter) (_ *models.PaymentList, err error) {
	defer observe("payment_list", time.Now(), &err)

	where, args := paymentWhere(f)
	q := `
		SELECT p.id, p.driver_id, u.name, p.amount, p.proof_sent, p.note, p.paid_at, p.created_at
		FROM payments p
		JOIN users u ON u.id = p.driver_id` + where + `
		ORDER BY p.paid_at DESC, p.id;`

	rows, err := TxorDB(ctx, r.db).Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := &models.PaymentList{Items: []models.Payment{}}
	for rows.Next() {
		var p models.Payment
		if err := rows.Scan(&p.ID, &p.DriverID, &p.DriverName, &p.Amount, &p.ProofSent, &p.Note, &p.PaidAt, &p.CreatedAt); err != nil {
			return nil, err
		}
		list.Items = append(list.Items, p)
		list.Total += p.Amount
	}
	return list, rows.Err()
}

func paymentWhere(f models.PaymentFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.DriverID != nil {
		args = append(args, *f.DriverID)
		conds = append(conds, fmt.Sprintf("p.driver_id = $%d", len(args)))
	}
	if f.From != nil {
		args = append(args, *f.From)
		conds = append(conds, fmt.Sprintf("p.paid_at >= $%d", len(args)))
	}
	if f.To != nil {
		args = append(args, f.To.AddDate(0, 0, 1))
		conds = append(conds, fmt.Sprintf("p.paid_at < $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return "\n\t\tWHERE " + strings.Join(conds, " AND "), args
}
