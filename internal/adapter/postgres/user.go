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

type UserRepo struct {
	db *pgxpool.Pool
}

func NewUserRepo(db *pgxpool.Pool) *UserRepo {
	return &UserRepo{
		db: db,
	}
}

const userColumns = `id, name, email, role, active, password_hash, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.Role,
		&u.Active,
		&u.PasswordHash,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a user. u.Name, u.Email, u.Role and u.PasswordHash must be set.
func (r *UserRepo) Create(ctx context.Context, u *models.User) (err error) {
	defer observe("user_create", time.Now(), &err)

	if u == nil {
		return errors.New("nil user")
	}

	const q = `
		INSERT INTO users (name, email, role, active, password_hash)
		VALUES ($1, lower($2), $3, $4, $5)
		RETURNING id, email, created_at, updated_at;
	`

	err = TxorDB(ctx, r.db).QueryRow(ctx, q, u.Name, u.Email, u.Role, u.Active, u.PasswordHash).
		Scan(&u.ID, &u.Email, &u.CreatedAt, &u.UpdatedAt)
	if pgclient.IsUniqueViolation(err) {
		return types.ErrEmailAlreadyTaken
	}
	return err
}

// GetByEmail fetches by email (unique, case insensitive).
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (_ *models.User, err error) {
	defer observe("user_get_by_email", time.Now(), &err)

	q := `SELECT ` + userColumns + ` FROM users WHERE email = lower($1);`

	u, err := scanUser(TxorDB(ctx, r.db).QueryRow(ctx, q, strings.TrimSpace(email)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, types.ErrUserNotFound
	}
	return u, err
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (_ *models.User, err error) {
	defer observe("user_get_by_id", time.Now(), &err)

	q := `SELECT ` + userColumns + ` FROM users WHERE id = $1;`

	u, err := scanUser(TxorDB(ctx, r.db).QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, types.ErrUserNotFound
	}
	return u, err
}

// List returns one page of users matching the filter and the total number of matches.
func (r *UserRepo) List(ctx context.Context, f models.UserFilter) (_ []models.User, total int, err error) {
	defer observe("user_list", time.Now(), &err)

	where, args := userWhere(f)

	countQ := `SELECT count(*) FROM users` + where
	if err := TxorDB(ctx, r.db).QueryRow(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := fmt.Sprintf(`SELECT %s FROM users%s ORDER BY %s %s, id LIMIT $%d OFFSET $%d`,
		userColumns, where, f.SortColumn(), f.SortDirection(), len(args)+1, len(args)+2)
	args = append(args, f.Limit(), f.Offset())

	rows, err := TxorDB(ctx, r.db).Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := make([]models.User, 0, f.Limit())
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, *u)
	}
	return users, total, rows.Err()
}

func userWhere(f models.UserFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.Query != "" {
		args = append(args, "%"+f.Query+"%")
		conds = append(conds, fmt.Sprintf("(name ILIKE $%d OR email ILIKE $%d)", len(args), len(args)))
	}
	if f.Role != "" {
		args = append(args, f.Role)
		conds = append(conds, fmt.Sprintf("role = $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// Update applies the non nil fields and returns the stored user.
func (r *UserRepo) Update(ctx context.Context, id uuid.UUID, upd models.UserUpdate) (_ *models.User, err error) {
	defer observe("user_update", time.Now(), &err)

	q := `
		UPDATE users SET
			name = COALESCE($2, name),
			role = COALESCE($3, role),
			active = COALESCE($4, active),
			updated_at = now()
		WHERE id = $1
		RETURNING ` + userColumns + `;`

	var role *string
	if upd.Role != nil {
		s := string(*upd.Role)
		role = &s
	}

	u, err := scanUser(TxorDB(ctx, r.db).QueryRow(ctx, q, id, upd.Name, role, upd.Active))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, types.ErrUserNotFound
	}
	return u, err
}

func (r *UserRepo) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) (err error) {
	defer observe("user_update_password", time.Now(), &err)

	const q = `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1;`

	tag, err := TxorDB(ctx, r.db).Exec(ctx, q, id, hash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return types.ErrUserNotFound
	}
	return nil
}

// Count returns the number of users, of one role when role is not empty.
func (r *UserRepo) Count(ctx context.Context, role types.UserRole) (n int, err error) {
	defer observe("user_count", time.Now(), &err)

	const q = `SELECT count(*) FROM users WHERE $1 = '' OR role = $1;`
	err = TxorDB(ctx, r.db).QueryRow(ctx, q, string(role)).Scan(&n)
	return n, err
}

// Latest returns the n most recently created users.
func (r *UserRepo) Latest(ctx context.Context, n int) (_ []models.User, err error) {
	defer observe("user_latest", time.Now(), &err)

	q := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC LIMIT $1;`

	rows, err := TxorDB(ctx, r.db).Query(ctx, q, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]models.User, 0, n)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}
