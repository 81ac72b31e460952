// Package session keeps the bearer tokens of an API client and recovers from access token expiry.
//
// A Manager owns the token store. All state changes go through its loop goroutine,
// so at most one refresh exchange runs at a time and concurrent callers that hit a
// 401 queue behind it in FIFO order.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/navatransportes/nava-fleet/pkg/logger"
	wrap "github.com/navatransportes/nava-fleet/pkg/logger/wrapper"
)

var (
	ErrNoRefreshToken = errors.New("no refresh token stored")
	ErrRefreshFailed  = errors.New("token refresh failed")
	ErrLoggedOut      = errors.New("session was logged out")
	ErrClosed         = errors.New("session manager closed")
)

// Refresher exchanges a refresh token for a new pair.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (TokenPair, error)
}

type State int

const (
	Unauthenticated State = iota
	Authenticated
	Refreshing
)

func (s State) String() string {
	switch s {
	case Authenticated:
		return "authenticated"
	case Refreshing:
		return "refreshing"
	default:
		return "unauthenticated"
	}
}

type (
	loginMsg struct {
		pair  TokenPair
		reply chan error
	}
	logoutMsg struct {
		reply chan TokenPair
	}
	tokensMsg struct {
		reply chan TokenPair
	}
	stateMsg struct {
		reply chan State
	}
	pendingMsg struct {
		reply chan int
	}
	refreshMsg struct {
		stale string
		reply chan refreshResult
	}
	refreshDoneMsg struct {
		gen  uint64
		pair TokenPair
		err  error
	}

	refreshResult struct {
		token string
		err   error
	}
)

// Manager is the session state machine:
// Unauthenticated -> Authenticated -> Refreshing -> Authenticated | Unauthenticated.
type Manager struct {
	store     Store
	refresher Refresher
	log       logger.Logger
	timeout   time.Duration

	inbox  chan any
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	// owned by the loop goroutine
	state   State
	cur     TokenPair
	waiters []chan refreshResult
	gen     uint64
}

type Option func(*Manager)

func WithLogger(l logger.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// WithRefreshTimeout bounds one refresh exchange.
func WithRefreshTimeout(d time.Duration) Option {
	return func(m *Manager) { m.timeout = d }
}

// NewManager loads the stored tokens and starts the manager loop. Call Close when done.
func NewManager(store Store, refresher Refresher, opts ...Option) (*Manager, error) {
	if store == nil || refresher == nil {
		return nil, errors.New("session: store and refresher are required")
	}

	pair, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		store:     store,
		refresher: refresher,
		log:       logger.Nop(),
		timeout:   30 * time.Second,
		inbox:     make(chan any),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		cur:       pair,
	}
	for _, opt := range opts {
		opt(m)
	}

	if pair.AccessToken != "" {
		m.state = Authenticated
	}

	go m.run()
	return m, nil
}

// Authenticate stores a freshly issued pair, e.g. after login.
func (m *Manager) Authenticate(ctx context.Context, pair TokenPair) error {
	reply := make(chan error, 1)
	if err := m.send(ctx, loginMsg{pair: pair, reply: reply}); err != nil {
		return err
	}
	saveErr, err := awaitValue(ctx, m.done, reply)
	if err != nil {
		return err
	}
	return saveErr
}

// Logout clears the stored tokens and returns the pair that was stored.
func (m *Manager) Logout(ctx context.Context) (TokenPair, error) {
	reply := make(chan TokenPair, 1)
	if err := m.send(ctx, logoutMsg{reply: reply}); err != nil {
		return TokenPair{}, err
	}
	return awaitValue(ctx, m.done, reply)
}

// Tokens returns the current pair, empty when unauthenticated.
func (m *Manager) Tokens(ctx context.Context) (TokenPair, error) {
	reply := make(chan TokenPair, 1)
	if err := m.send(ctx, tokensMsg{reply: reply}); err != nil {
		return TokenPair{}, err
	}
	return awaitValue(ctx, m.done, reply)
}

// State returns the current state.
func (m *Manager) State(ctx context.Context) (State, error) {
	reply := make(chan State, 1)
	if err := m.send(ctx, stateMsg{reply: reply}); err != nil {
		return Unauthenticated, err
	}
	return awaitValue(ctx, m.done, reply)
}

// Refresh returns an access token newer than stale. Only one exchange runs at a time,
// other callers wait for its result. If stale was already replaced the current token is returned.
func (m *Manager) Refresh(ctx context.Context, stale string) (string, error) {
	reply := make(chan refreshResult, 1)
	if err := m.send(ctx, refreshMsg{stale: stale, reply: reply}); err != nil {
		return "", err
	}
	res, err := awaitValue(ctx, m.done, reply)
	if err != nil {
		return "", err
	}
	return res.token, res.err
}

// Close stops the loop. Pending waiters get ErrClosed.
func (m *Manager) Close() error {
	m.cancel()
	<-m.done
	return nil
}

func (m *Manager) pending(ctx context.Context) (int, error) {
	reply := make(chan int, 1)
	if err := m.send(ctx, pendingMsg{reply: reply}); err != nil {
		return 0, err
	}
	return awaitValue(ctx, m.done, reply)
}

func (m *Manager) run() {
	defer close(m.done)

	for {
		select {
		case <-m.ctx.Done():
			m.resolve("", ErrClosed)
			return
		case msg := <-m.inbox:
			m.handle(msg)
		}
	}
}

func (m *Manager) handle(msg any) {
	ctx := wrap.WithAction(m.ctx, "session")

	switch msg := msg.(type) {
	case loginMsg:
		if err := m.store.Save(msg.pair); err != nil {
			msg.reply <- err
			return
		}
		m.gen++
		m.cur = msg.pair
		m.state = Authenticated
		// a login that lands during a refresh satisfies the waiters
		m.resolve(m.cur.AccessToken, nil)
		msg.reply <- nil

	case logoutMsg:
		m.gen++
		prev := m.cur
		m.clear(ctx)
		m.resolve("", ErrLoggedOut)
		msg.reply <- prev

	case tokensMsg:
		msg.reply <- m.cur

	case stateMsg:
		msg.reply <- m.state

	case pendingMsg:
		msg.reply <- len(m.waiters)

	case refreshMsg:
		switch {
		case m.state == Refreshing:
			m.waiters = append(m.waiters, msg.reply)
		case m.state == Authenticated && msg.stale != m.cur.AccessToken:
			msg.reply <- refreshResult{token: m.cur.AccessToken}
		case m.cur.RefreshToken == "":
			m.clear(ctx)
			msg.reply <- refreshResult{err: ErrNoRefreshToken}
		default:
			m.state = Refreshing
			m.waiters = append(m.waiters, msg.reply)
			m.log.Debug(ctx, "refreshing access token")
			go m.exchange(m.gen, m.cur.RefreshToken)
		}

	case refreshDoneMsg:
		if msg.gen != m.gen {
			// login or logout happened meanwhile, the result is stale
			return
		}
		if msg.err != nil {
			m.log.Warn(ctx, "token refresh failed", "error", msg.err.Error())
			m.clear(ctx)
			m.resolve("", fmt.Errorf("%w: %w", ErrRefreshFailed, msg.err))
			return
		}

		pair := msg.pair
		if pair.RefreshToken == "" {
			pair.RefreshToken = m.cur.RefreshToken
		}
		if err := m.store.Save(pair); err != nil {
			m.log.Warn(ctx, "failed to persist refreshed tokens", "error", err.Error())
		}
		m.cur = pair
		m.state = Authenticated
		m.resolve(pair.AccessToken, nil)
	}
}

// exchange runs on the manager context so a waiter giving up never cancels the shared refresh.
func (m *Manager) exchange(gen uint64, refreshToken string) {
	ctx, cancel := context.WithTimeout(m.ctx, m.timeout)
	defer cancel()

	pair, err := m.refresher.Refresh(ctx, refreshToken)
	if err == nil && pair.AccessToken == "" {
		err = errors.New("refresh returned an empty access token")
	}

	select {
	case m.inbox <- refreshDoneMsg{gen: gen, pair: pair, err: err}:
	case <-m.ctx.Done():
	}
}

// resolve answers every waiter in arrival order. Reply channels are buffered, this never blocks.
func (m *Manager) resolve(token string, err error) {
	for _, w := range m.waiters {
		w <- refreshResult{token: token, err: err}
	}
	m.waiters = nil
}

func (m *Manager) clear(ctx context.Context) {
	if err := m.store.Clear(); err != nil {
		m.log.Warn(ctx, "failed to clear session store", "error", err.Error())
	}
	m.cur = TokenPair{}
	m.state = Unauthenticated
}

func (m *Manager) send(ctx context.Context, msg any) error {
	select {
	case m.inbox <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-m.done:
		return ErrClosed
	}
}

func awaitValue[T any](ctx context.Context, done <-chan struct{}, reply <-chan T) (T, error) {
	var zero T
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-done:
		// the loop may have answered right before exiting
		select {
		case v := <-reply:
			return v, nil
		default:
			return zero, ErrClosed
		}
	}
}
