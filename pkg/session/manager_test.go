package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeRefresher struct {
	calls   atomic.Int32
	release chan struct{}
	pair    TokenPair
	err     error
	got     atomic.Value
}

func (f *fakeRefresher) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	f.calls.Add(1)
	f.got.Store(refreshToken)
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return TokenPair{}, ctx.Err()
		}
	}
	return f.pair, f.err
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func newTestManager(t *testing.T, stored TokenPair, r *fakeRefresher) (*Manager, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	_ = store.Save(stored)

	m, err := NewManager(store, r)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { m.Close() })
	return m, store
}

func pendingCount(m *Manager) int {
	n, _ := m.pending(context.Background())
	return n
}

func TestManager_SingleFlightRefresh(t *testing.T) {
	r := &fakeRefresher{
		release: make(chan struct{}),
		pair:    TokenPair{AccessToken: "new", RefreshToken: "r2"},
	}
	m, store := newTestManager(t, TokenPair{AccessToken: "old", RefreshToken: "r1"}, r)

	const n = 10
	results := make([]string, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = m.Refresh(context.Background(), "old")
		}()
	}

	waitFor(t, "all waiters queued", func() bool { return pendingCount(m) == n })
	if st, _ := m.State(context.Background()); st != Refreshing {
		t.Fatalf("state = %s, want refreshing", st)
	}

	close(r.release)
	wg.Wait()

	if got := r.calls.Load(); got != 1 {
		t.Fatalf("refresh calls = %d, want 1", got)
	}
	if got := r.got.Load(); got != "r1" {
		t.Fatalf("refresh token sent = %v, want r1", got)
	}
	for i := range n {
		if errs[i] != nil || results[i] != "new" {
			t.Fatalf("waiter %d got %q %v", i, results[i], errs[i])
		}
	}

	if p, _ := store.Load(); p != (TokenPair{AccessToken: "new", RefreshToken: "r2"}) {
		t.Fatalf("store not updated: %+v", p)
	}
	if st, _ := m.State(context.Background()); st != Authenticated {
		t.Fatalf("state = %s, want authenticated", st)
	}
}

func TestManager_RefreshFailureRejectsAll(t *testing.T) {
	refreshErr := errors.New("refresh token expired")
	r := &fakeRefresher{release: make(chan struct{}), err: refreshErr}
	m, store := newTestManager(t, TokenPair{AccessToken: "old", RefreshToken: "r1"}, r)

	const n = 5
	errs := make(chan error, n)
	for range n {
		go func() {
			_, err := m.Refresh(context.Background(), "old")
			errs <- err
		}()
	}

	waitFor(t, "all waiters queued", func() bool { return pendingCount(m) == n })
	close(r.release)

	for range n {
		err := <-errs
		if !errors.Is(err, ErrRefreshFailed) || !errors.Is(err, refreshErr) {
			t.Fatalf("unexpected error %v", err)
		}
	}

	if p, _ := store.Load(); !p.Empty() {
		t.Fatalf("both tokens must be cleared, got %+v", p)
	}
	if st, _ := m.State(context.Background()); st != Unauthenticated {
		t.Fatalf("state = %s, want unauthenticated", st)
	}
	if r.calls.Load() != 1 {
		t.Fatalf("refresh calls = %d, want 1", r.calls.Load())
	}
}

func TestManager_StaleTokenAlreadyReplaced(t *testing.T) {
	r := &fakeRefresher{pair: TokenPair{AccessToken: "new"}}
	m, store := newTestManager(t, TokenPair{AccessToken: "old", RefreshToken: "r1"}, r)

	if tok, err := m.Refresh(context.Background(), "old"); err != nil || tok != "new" {
		t.Fatalf("first refresh: %q %v", tok, err)
	}
	if tok, err := m.Refresh(context.Background(), "old"); err != nil || tok != "new" {
		t.Fatalf("late caller: %q %v", tok, err)
	}
	if r.calls.Load() != 1 {
		t.Fatalf("late caller with a replaced token must not refresh again")
	}

	// refresh token not rotated by the server is kept
	if p, _ := store.Load(); p.RefreshToken != "r1" {
		t.Fatalf("refresh token lost: %+v", p)
	}
}

func TestManager_NoRefreshToken(t *testing.T) {
	r := &fakeRefresher{}
	m, store := newTestManager(t, TokenPair{AccessToken: "old"}, r)

	if _, err := m.Refresh(context.Background(), "old"); !errors.Is(err, ErrNoRefreshToken) {
		t.Fatalf("expected ErrNoRefreshToken, got %v", err)
	}
	if p, _ := store.Load(); !p.Empty() {
		t.Fatalf("store must be cleared")
	}
	if r.calls.Load() != 0 {
		t.Fatalf("refresher must not be called")
	}
}

func TestManager_WaiterCancelDoesNotAbortRefresh(t *testing.T) {
	r := &fakeRefresher{release: make(chan struct{}), pair: TokenPair{AccessToken: "new"}}
	m, _ := newTestManager(t, TokenPair{AccessToken: "old", RefreshToken: "r1"}, r)

	ctx, cancel := context.WithCancel(context.Background())
	cancelled := make(chan error, 1)
	go func() {
		_, err := m.Refresh(ctx, "old")
		cancelled <- err
	}()

	waitFor(t, "first waiter", func() bool { return pendingCount(m) == 1 })

	other := make(chan string, 1)
	go func() {
		tok, _ := m.Refresh(context.Background(), "old")
		other <- tok
	}()
	waitFor(t, "second waiter", func() bool { return pendingCount(m) == 2 })

	cancel()
	if err := <-cancelled; !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled waiter got %v", err)
	}

	close(r.release)
	if tok := <-other; tok != "new" {
		t.Fatalf("remaining waiter got %q", tok)
	}
}

func TestManager_LogoutDuringRefresh(t *testing.T) {
	r := &fakeRefresher{release: make(chan struct{}), pair: TokenPair{AccessToken: "new"}}
	m, store := newTestManager(t, TokenPair{AccessToken: "old", RefreshToken: "r1"}, r)

	errCh := make(chan error, 1)
	go func() {
		_, err := m.Refresh(context.Background(), "old")
		errCh <- err
	}()
	waitFor(t, "waiter", func() bool { return pendingCount(m) == 1 })

	prev, err := m.Logout(context.Background())
	if err != nil || prev.RefreshToken != "r1" {
		t.Fatalf("Logout = %+v %v", prev, err)
	}
	if err := <-errCh; !errors.Is(err, ErrLoggedOut) {
		t.Fatalf("waiter got %v", err)
	}

	close(r.release)
	// the late refresh result must not resurrect the session
	time.Sleep(50 * time.Millisecond)
	if p, _ := store.Load(); !p.Empty() {
		t.Fatalf("store must stay empty, got %+v", p)
	}
}

func TestManager_AuthenticateAndClose(t *testing.T) {
	r := &fakeRefresher{release: make(chan struct{})}
	m, store := newTestManager(t, TokenPair{}, r)

	if st, _ := m.State(context.Background()); st != Unauthenticated {
		t.Fatalf("state = %s", st)
	}
	if err := m.Authenticate(context.Background(), TokenPair{AccessToken: "a", RefreshToken: "r"}); err != nil {
		t.Fatal(err)
	}
	if p, _ := store.Load(); p.AccessToken != "a" {
		t.Fatalf("store not written")
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := m.Refresh(context.Background(), "a")
		errCh <- err
	}()
	waitFor(t, "waiter", func() bool { return pendingCount(m) == 1 })

	m.Close()
	if err := <-errCh; !errors.Is(err, ErrClosed) {
		t.Fatalf("waiter got %v, want ErrClosed", err)
	}
	if _, err := m.Tokens(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("calls after Close must fail with ErrClosed, got %v", err)
	}
}
