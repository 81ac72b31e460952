package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/navatransportes/nava-fleet/internal/domain/models"
	"github.com/navatransportes/nava-fleet/internal/domain/types"
)

type RefreshTokenRepo struct {
	db *pgxpool.Pool
}

func NewRefreshTokenRepo(db *pgxpool.Pool) *RefreshTokenRepo {
	return &RefreshTokenRepo{db: db}
}

func (r *RefreshTokenRepo) Save(ctx context.Context, record *models.RefreshTokenRecord) (err error) {
	defer observe("refresh_token_save", time.Now(), &err)

	if record == nil {
		return errors.New("refresh token record is nil")
	}

	const q = `
		INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, revoked, created_at)
		VALUES ($1, $2, $3, $4, false, $5)
		ON CONFLICT (id)
		DO UPDATE SET
			token_hash = EXCLUDED.token_hash,
			expires_at = EXCLUDED.expires_at,
			revoked = false,
			last_used_at = NULL;
	`

	_, err = TxorDB(ctx, r.db).Exec(ctx, q, record.ID, record.UserID, record.TokenHash, record.ExpiresAt, record.CreatedAt)
	return err
}

// Get returns the record or types.ErrNotFound.
func (r *RefreshTokenRepo) Get(ctx context.Context, tokenID uuid.UUID) (_ *models.RefreshTokenRecord, err error) {
	defer observe("refresh_token_get", time.Now(), &err)

	// FOR UPDATE serializes concurrent rotations of the same token inside a transaction
	const q = `
		SELECT id, user_id, token_hash, expires_at, revoked, created_at, last_used_at
		FROM refresh_tokens
		WHERE id = $1
		FOR UPDATE;
	`

	var rec models.RefreshTokenRecord
	err = TxorDB(ctx, r.db).QueryRow(ctx, q, tokenID).Scan(
		&rec.ID,
		&rec.UserID,
		&rec.TokenHash,
		&rec.ExpiresAt,
		&rec.Revoked,
		&rec.CreatedAt,
		&rec.LastUsed,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &rec, nil
}

// MarkUsed revokes the token, a rotated token can never be presented again.
func (r *RefreshTokenRepo) MarkUsed(ctx context.Context, tokenID uuid.UUID) (err error) {
	defer observe("refresh_token_mark_used", time.Now(), &err)

	const q = `
		UPDATE refresh_tokens
		SET revoked = true,
		    last_used_at = $2
		WHERE id = $1;
	`

	_, err = TxorDB(ctx, r.db).Exec(ctx, q, tokenID, time.Now().UTC())
	return err
}

// RevokeAllForUser revokes every active token of the user, e.g. after a password change.
func (r *RefreshTokenRepo) RevokeAllForUser(ctx context.Context, userID uuid.UUID) (err error) {
	defer observe("refresh_token_revoke_all", time.Now(), &err)

	const q = `UPDATE refresh_tokens SET revoked = true WHERE user_id = $1 AND revoked = false;`

	_, err = TxorDB(ctx, r.db).Exec(ctx, q, userID)
	return err
}

// DeleteExpired removes tokens that expired before the given time.
func (r *RefreshTokenRepo) DeleteExpired(ctx context.Context, before time.Time) (n int64, err error) {
	defer observe("refresh_token_delete_expired", time.Now(), &err)

	tag, err := TxorDB(ctx, r.db).Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at < $1;`, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
