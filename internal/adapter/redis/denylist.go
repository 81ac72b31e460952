// Package redis keeps the ids of revoked access tokens until they would expire anyway.
package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/navatransportes/nava-fleet/pkg/metrics"
)

const denylistPrefix = "denylist:access:"

type Denylist struct {
	client goredis.Cmdable
}

func NewDenylist(client goredis.Cmdable) *Denylist {
	return &Denylist{client: client}
}

func denylistKey(jti string) string {
	return denylistPrefix + jti
}

// Revoke denies jti for ttl. A non positive ttl is a no-op, the token is already expired.
func (d *Denylist) Revoke(ctx context.Context, jti string, ttl time.Duration) (err error) {
	if ttl <= 0 {
		return nil
	}
	defer observe("denylist_revoke", time.Now(), &err)

	return d.client.Set(ctx, denylistKey(jti), 1, ttl).Err()
}

func (d *Denylist) IsRevoked(ctx context.Context, jti string) (_ bool, err error) {
	defer observe("denylist_check", time.Now(), &err)

	_, err = d.client.Get(ctx, denylistKey(jti)).Result()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func observe(op string, start time.Time, err *error) {
	metrics.RecordDatabaseQuery("redis", op, *err, time.Since(start))
}

// NopDenylist is used when redis is disabled. Logout then only revokes refresh tokens.
type NopDenylist struct{}

func (NopDenylist) Revoke(context.Context, string, time.Duration) error { return nil }
func (NopDenylist) IsRevoked(context.Context, string) (bool, error)     { return false, nil }
