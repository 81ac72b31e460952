package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/navatransportes/nava-fleet/internal/domain/models"
	"github.com/navatransportes/nava-fleet/internal/domain/types"
	"github.com/navatransportes/nava-fleet/pkg/logger"
	"github.com/navatransportes/nava-fleet/pkg/passhash"
)

type fakeUsers struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, types.ErrUserNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, types.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[id].PasswordHash = hash
	return nil
}

type fakeRefreshRepo struct {
	mu      sync.Mutex
	records map[uuid.UUID]models.RefreshTokenRecord
}

func (f *fakeRefreshRepo) Save(_ context.Context, r *models.RefreshTokenRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[r.ID] = *r
	return nil
}

func (f *fakeRefreshRepo) Get(_ context.Context, id uuid.UUID) (*models.RefreshTokenRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	return &r, nil
}

func (f *fakeRefreshRepo) MarkUsed(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.records[id]
	r.Revoked = true
	f.records[id] = r
	return nil
}

func (f *fakeRefreshRepo) RevokeAllForUser(_ context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, r := range f.records {
		if r.UserID == userID {
			r.Revoked = true
			f.records[id] = r
		}
	}
	return nil
}

func (f *fakeRefreshRepo) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, r := range f.records {
		if r.ExpiresAt.Before(before) {
			delete(f.records, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeRefreshRepo) active(userID uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.records {
		if r.UserID == userID && !r.Revoked {
			n++
		}
	}
	return n
}

type fakeDenylist struct {
	mu   sync.Mutex
	jtis map[string]time.Duration
}

func (f *fakeDenylist) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jtis[jti] = ttl
	return nil
}

func (f *fakeDenylist) IsRevoked(_ context.Context, jti string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.jtis[jti]
	return ok, nil
}

type passthroughTx struct{}

func (passthroughTx) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (passthroughTx) DoReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fixture struct {
	svc      *AuthService
	tokens   *TokenService
	users    *fakeUsers
	refresh  *fakeRefreshRepo
	denylist *fakeDenylist
	driver   *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	hash, err := passhash.HashPassword("s3cret", bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	driver := &models.User{
		ID:           uuid.New(),
		Name:         "João",
		Email:        "joao@nava.com",
		Role:         types.RoleDriver,
		Active:       true,
		PasswordHash: hash,
	}

	f := &fixture{
		users:    &fakeUsers{users: map[uuid.UUID]*models.User{driver.ID: driver}},
		refresh:  &fakeRefreshRepo{records: map[uuid.UUID]models.RefreshTokenRecord{}},
		denylist: &fakeDenylist{jtis: map[string]time.Duration{}},
		driver:   driver,
	}
	f.tokens = NewTokenService("test-secret", f.users, f.refresh, passthroughTx{}, time.Hour, 15*time.Minute, logger.Nop())
	f.svc = NewAuthService(Config{Service: "test", BcryptCost: bcrypt.MinCost}, f.users, f.refresh, f.tokens, f.denylist, passthroughTx{}, logger.Nop())
	return f
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Login(ctx, "joao@nava.com", "s3cret")
	if err != nil {
		t.Fatal(err)
	}
	if res.User.ID != f.driver.ID || res.Tokens.AccessToken == "" || res.Tokens.RefreshToken == "" {
		t.Fatalf("unexpected login result %+v", res)
	}
	if f.refresh.active(f.driver.ID) != 1 {
		t.Fatal("refresh token was not stored")
	}

	user, err := f.svc.RoleCheck(ctx, res.Tokens.AccessToken)
	if err != nil {
		t.Fatal(err)
	}
	if user.ID != f.driver.ID {
		t.Fatalf("RoleCheck returned %s", user.ID)
	}

	if _, err := f.svc.RoleCheck(ctx, res.Tokens.RefreshToken); !errors.Is(err, types.ErrInvalidToken) {
		t.Fatalf("refresh token must not authenticate requests, got %v", err)
	}
}

func TestLogin_Rejected(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		inactive bool
		want     error
	}{
		{"wrong password", "joao@nava.com", "nope", false, types.ErrInvalidCredentials},
		{"unknown email", "ghost@nava.com", "s3cret", false, types.ErrInvalidCredentials},
		{"inactive", "joao@nava.com", "s3cret", true, types.ErrUserInactive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.driver.Active = !tt.inactive

			_, err := f.svc.Login(context.Background(), tt.email, tt.password)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestRefresh_RotatesAndDetectsReuse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Login(ctx, "joao@nava.com", "s3cret")
	if err != nil {
		t.Fatal(err)
	}

	next, err := f.svc.Refresh(ctx, res.Tokens.RefreshToken)
	if err != nil {
		t.Fatal(err)
	}
	if next.RefreshToken == res.Tokens.RefreshToken {
		t.Fatal("refresh token was not rotated")
	}

	_, err = f.svc.Refresh(ctx, res.Tokens.RefreshToken)
	if !errors.Is(err, types.ErrRevokedToken) {
		t.Fatalf("reused token: expected ErrRevokedToken, got %v", err)
	}

	if n := f.refresh.active(f.driver.ID); n != 0 {
		t.Fatalf("reuse must revoke every session, %d still active", n)
	}
	if _, err := f.svc.Refresh(ctx, next.RefreshToken); !errors.Is(err, types.ErrRevokedToken) {
		t.Fatalf("expected rotated token to be revoked too, got %v", err)
	}
}

func TestRefresh_AccessTokenRejected(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Login(context.Background(), "joao@nava.com", "s3cret")
	if err != nil {
		t.Fatal(err)
	}

	_, err = f.svc.Refresh(context.Background(), res.Tokens.AccessToken)
	if !errors.Is(err, types.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestValidate_Expired(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Login(context.Background(), "joao@nava.com", "s3cret")
	if err != nil {
		t.Fatal(err)
	}

	f.tokens.now = func() time.Time { return time.Now().Add(20 * time.Minute) }

	if _, err := f.svc.RoleCheck(context.Background(), res.Tokens.AccessToken); !errors.Is(err, types.ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestValidate_WrongSecret(t *testing.T) {
	f := newFixture(t)
	other := NewTokenService("other-secret", f.users, f.refresh, passthroughTx{}, time.Hour, time.Minute, logger.Nop())

	pair, err := other.GenerateTokens(context.Background(), f.driver)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.RoleCheck(context.Background(), pair.AccessToken); !errors.Is(err, types.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Login(ctx, "joao@nava.com", "s3cret")
	if err != nil {
		t.Fatal(err)
	}

	if err := f.svc.Logout(ctx, res.Tokens.AccessToken, res.Tokens.RefreshToken); err != nil {
		t.Fatal(err)
	}

	if _, err := f.svc.RoleCheck(ctx, res.Tokens.AccessToken); !errors.Is(err, types.ErrRevokedToken) {
		t.Fatalf("expected ErrRevokedToken after logout, got %v", err)
	}
	if f.refresh.active(f.driver.ID) != 0 {
		t.Fatal("refresh token still active after logout")
	}
	for _, ttl := range f.denylist.jtis {
		if ttl <= 0 || ttl > 15*time.Minute {
			t.Fatalf("unexpected denylist ttl %v", ttl)
		}
	}
}

func TestLogout_ForeignRefreshToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	other := &models.User{ID: uuid.New(), Email: "other@nava.com", Role: types.RoleDriver, Active: true}
	f.users.users[other.ID] = other

	mine, err := f.svc.Login(ctx, "joao@nava.com", "s3cret")
	if err != nil {
		t.Fatal(err)
	}
	theirs, err := f.tokens.GenerateTokens(ctx, other)
	if err != nil {
		t.Fatal(err)
	}

	if err := f.svc.Logout(ctx, mine.Tokens.AccessToken, theirs.RefreshToken); !errors.Is(err, types.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if f.refresh.active(other.ID) != 1 {
		t.Fatal("foreign refresh token must stay active")
	}
}

func TestLogout_ExpiredAccessToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	other := &models.User{ID: uuid.New(), Email: "other@nava.com", Role: types.RoleDriver, Active: true}
	f.users.users[other.ID] = other

	mine, err := f.svc.Login(ctx, "joao@nava.com", "s3cret")
	if err != nil {
		t.Fatal(err)
	}
	theirs, err := f.tokens.GenerateTokens(ctx, other)
	if err != nil {
		t.Fatal(err)
	}

	// past the 15 minute access TTL, inside the hour of the refresh TTL
	f.tokens.now = func() time.Time { return time.Now().Add(20 * time.Minute) }

	if err := f.svc.Logout(ctx, mine.Tokens.AccessToken, theirs.RefreshToken); !errors.Is(err, types.ErrInvalidToken) {
		t.Fatalf("foreign refresh token: expected ErrInvalidToken, got %v", err)
	}
	if f.refresh.active(other.ID) != 1 {
		t.Fatal("foreign refresh token must stay active")
	}

	if err := f.svc.Logout(ctx, mine.Tokens.AccessToken, mine.Tokens.RefreshToken); err != nil {
		t.Fatalf("logout with an expired access token: %v", err)
	}
	if f.refresh.active(f.driver.ID) != 0 {
		t.Fatal("refresh token still active after logout")
	}
	if len(f.denylist.jtis) != 0 {
		t.Fatalf("expired access token must not be denied, got %v", f.denylist.jtis)
	}
}

func TestLogout_ExpiredTokenWithWrongSecret(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	forger := NewTokenService("other-secret", f.users, &fakeRefreshRepo{records: map[uuid.UUID]models.RefreshTokenRecord{}}, passthroughTx{}, time.Hour, time.Minute, logger.Nop())

	forged, err := forger.GenerateTokens(ctx, f.driver)
	if err != nil {
		t.Fatal(err)
	}
	mine, err := f.svc.Login(ctx, "joao@nava.com", "s3cret")
	if err != nil {
		t.Fatal(err)
	}

	f.tokens.now = func() time.Time { return time.Now().Add(20 * time.Minute) }

	if err := f.svc.Logout(ctx, forged.AccessToken, mine.Tokens.RefreshToken); !errors.Is(err, types.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if f.refresh.active(f.driver.ID) != 1 {
		t.Fatal("refresh token must stay active")
	}
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Login(ctx, "joao@nava.com", "s3cret"); err != nil {
		t.Fatal(err)
	}

	if err := f.svc.ChangePassword(ctx, f.driver.ID, "wrong", "n3w"); !errors.Is(err, types.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	if err := f.svc.ChangePassword(ctx, f.driver.ID, "s3cret", "n3w"); err != nil {
		t.Fatal(err)
	}
	if f.refresh.active(f.driver.ID) != 0 {
		t.Fatal("sessions must be revoked after a password change")
	}
	if _, err := f.svc.Login(ctx, "joao@nava.com", "n3w"); err != nil {
		t.Fatalf("login with the new password failed: %v", err)
	}
}

func TestRoleCheck_InactiveUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Login(ctx, "joao@nava.com", "s3cret")
	if err != nil {
		t.Fatal(err)
	}
	f.driver.Active = false

	if _, err := f.svc.RoleCheck(ctx, res.Tokens.AccessToken); !errors.Is(err, types.ErrUserInactive) {
		t.Fatalf("expected ErrUserInactive, got %v", err)
	}
}
