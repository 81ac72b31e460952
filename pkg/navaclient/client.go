// Package navaclient is a typed client for the Nava fleet API.
//
// Requests carry the bearer token of a session.Manager and an expired access token is
// refreshed once, transparently, for every request that is not itself an auth call.
package navaclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/navatransportes/nava-fleet/pkg/logger"
	"github.com/navatransportes/nava-fleet/pkg/session"
)

const defaultTimeout = 30 * time.Second

type Client struct {
	baseURL string
	api     *http.Client // intercepted by session.Transport
	plain   *http.Client // login and refresh
	session *session.Manager
	log     logger.Logger
}

type Option func(*options)

type options struct {
	timeout   time.Duration
	transport http.RoundTripper
	log       logger.Logger
}

func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithTransport sets the round tripper below the session layer.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

func WithLogger(l logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// New creates a client for baseURL, e.g. https://api.example.com/nava. Tokens are loaded from
// and persisted to store.
func New(baseURL string, store session.Store, opts ...Option) (*Client, error) {
	o := options{timeout: defaultTimeout, log: logger.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", baseURL)
	}

	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		plain:   &http.Client{Timeout: o.timeout, Transport: o.transport},
		log:     o.log,
	}

	m, err := session.NewManager(store, c, session.WithLogger(o.log), session.WithRefreshTimeout(o.timeout))
	if err != nil {
		return nil, err
	}
	c.session = m
	c.api = &http.Client{Timeout: o.timeout, Transport: session.NewTransport(m, o.transport)}

	return c, nil
}

// Session exposes the token state, mostly for status output.
func (c *Client) Session() *session.Manager {
	return c.session
}

func (c *Client) Close() error {
	return c.session.Close()
}

// APIError is a non-2xx answer of the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, http.StatusText(e.Status), e.Message)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, in any) (*http.Request, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) do(ctx context.Context, hc *http.Client, method, path string, query url.Values, in, out any) error {
	req, err := c.newRequest(ctx, method, path, query, in)
	if err != nil {
		return err
	}

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: failed to decode response: %w", method, path, err)
	}
	return nil
}

// decodeError turns an {"error": ...} body into an APIError. Non JSON bodies are never shown.
func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}

	var payload struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&payload); err != nil || len(payload.Error) == 0 {
		return apiErr
	}

	var msg string
	if err := json.Unmarshal(payload.Error, &msg); err == nil && msg != "" {
		apiErr.Message = msg
		return apiErr
	}

	// validation errors come as field -> message
	var fields map[string]string
	if err := json.Unmarshal(payload.Error, &fields); err == nil && len(fields) > 0 {
		apiErr.Message = joinFieldErrors(fields)
	}
	return apiErr
}
