package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/navatransportes/nava-fleet/internal/domain/types"
	"github.com/navatransportes/nava-fleet/pkg/metrics"
	"github.com/navatransportes/nava-fleet/pkg/trm"
)

type Querier interface {
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, query string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
}

// TxorDB returns the transaction carried by ctx or the pool.
func TxorDB(ctx context.Context, db *pgxpool.Pool) Querier {
	if tx, ok := trm.TxFromContext(ctx); ok {
		return tx
	}
	return db
}

// observe records the query metrics and marks unexpected failures with ErrDatabaseFailed.
func observe(op string, start time.Time, err *error) {
	metrics.RecordDatabaseQuery("postgres", op, *err, time.Since(start))

	if *err == nil || isDomainError(*err) {
		return
	}
	*err = fmt.Errorf("%s: %w: %w", op, types.ErrDatabaseFailed, *err)
}

func isDomainError(err error) bool {
	return errors.Is(err, types.ErrUserNotFound) ||
		errors.Is(err, types.ErrTripNotFound) ||
		errors.Is(err, types.ErrEmailAlreadyTaken) ||
		errors.Is(err, types.ErrDriverNotFound) ||
		errors.Is(err, types.ErrPaymentNotFound) ||
		errors.Is(err, types.ErrNotFound) ||
		errors.Is(err, context.Canceled)
}
