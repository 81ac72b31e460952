package session

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

type retriedKey struct{}

// DefaultAuthEndpoints are never intercepted: a 401 from them is final.
var DefaultAuthEndpoints = []string{"/auth/login", "/auth/refresh", "/auth/me", "/auth/logout"}

// Transport attaches the bearer token of a Manager to outgoing requests and,
// on a 401, refreshes the token once and replays the request.
type Transport struct {
	Base    http.RoundTripper
	Manager *Manager
	// AuthEndpoints are path suffixes exempt from refresh, DefaultAuthEndpoints when nil.
	AuthEndpoints []string
}

func NewTransport(m *Manager, base http.RoundTripper) *Transport {
	return &Transport{Base: base, Manager: m}
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	pair, err := t.Manager.Tokens(ctx)
	if err != nil {
		return nil, err
	}

	getBody, err := replayableBody(req)
	if err != nil {
		return nil, err
	}

	first, err := withToken(ctx, req, getBody, pair.AccessToken)
	if err != nil {
		return nil, err
	}

	resp, err := t.base().RoundTrip(first)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusUnauthorized ||
		pair.AccessToken == "" ||
		t.isAuthEndpoint(req) ||
		IsRetried(ctx) {
		return resp, nil
	}

	// the 401 body is dropped, the replayed request answers instead
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()

	token, err := t.Manager.Refresh(ctx, pair.AccessToken)
	if err != nil {
		return nil, err
	}

	retry, err := withToken(context.WithValue(ctx, retriedKey{}, true), req, getBody, token)
	if err != nil {
		return nil, err
	}
	return t.base().RoundTrip(retry)
}

// IsRetried reports whether the request context belongs to a replayed request.
func IsRetried(ctx context.Context) bool {
	v, _ := ctx.Value(retriedKey{}).(bool)
	return v
}

func (t *Transport) isAuthEndpoint(req *http.Request) bool {
	endpoints := t.AuthEndpoints
	if endpoints == nil {
		endpoints = DefaultAuthEndpoints
	}
	path := strings.TrimSuffix(req.URL.Path, "/")
	for _, e := range endpoints {
		if strings.HasSuffix(path, e) {
			return true
		}
	}
	return false
}

// replayableBody returns a func producing fresh copies of the request body, nil when there is none.
func replayableBody(req *http.Request) (func() (io.ReadCloser, error), error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	if req.GetBody != nil {
		req.Body.Close()
		return req.GetBody, nil
	}

	b, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to buffer request body: %w", err)
	}

	return func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(b)), nil
	}, nil
}

// withToken clones req with a fresh body and the given bearer token.
func withToken(ctx context.Context, req *http.Request, getBody func() (io.ReadCloser, error), token string) (*http.Request, error) {
	out := req.Clone(ctx)
	if getBody != nil {
		body, err := getBody()
		if err != nil {
			return nil, fmt.Errorf("failed to rewind request body: %w", err)
		}
		out.Body = body
		out.GetBody = getBody
	}

	if token != "" {
		out.Header.Set("Authorization", "Bearer "+token)
	} else {
		out.Header.Del("Authorization")
	}
	return out, nil
}
