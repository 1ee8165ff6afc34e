// Package revocation records blacklisted token identifiers (jti) in an
// expiring key-value store.
package revocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/plantapi/internal/common"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix    = "blacklist:"
	revokedValue = "blacklisted"
	minTTL       = time.Second
)

// Ledger is consulted on every end-user request. Implementations must
// report store failures instead of answering false.
type Ledger interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// RedisLedger keeps one key per revoked jti with an expiry.
type RedisLedger struct {
	client  redis.Cmdable
	timeout time.Duration
}

func NewRedisLedger(client redis.Cmdable, timeout time.Duration) *RedisLedger {
	return &RedisLedger{client: client, timeout: timeout}
}

func key(jti string) string {
	return keyPrefix + jti
}

func (l *RedisLedger) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, l.timeout)
}

// Revoke marks jti revoked for ttl. TTLs under a second are raised to one
// second; Redis treats a zero expiry as "no expiry".
func (l *RedisLedger) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return fmt.Errorf("%w: empty jti", common.ErrValidation)
	}
	if ttl < minTTL {
		ttl = minTTL
	}

	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	if err := l.client.Set(ctx, key(jti), revokedValue, ttl).Err(); err != nil {
		return fmt.Errorf("%w: revoke: %v", common.ErrStoreUnavailable, err)
	}
	return nil
}

func (l *RedisLedger) IsRevoked(ctx context.Context, jti string) (bool, error) {
	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	err := l.client.Get(ctx, key(jti)).Err()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, redis.Nil):
		return false, nil
	default:
		return false, fmt.Errorf("%w: lookup: %v", common.ErrStoreUnavailable, err)
	}
}

// Connect parses a redis:// URL, dials and pings the server.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
