package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const (
	keyPrefixRevoked = "auth:revoked:"
	keyPrefixCode    = "auth:code:"

	maxWatchRetries = 5
)

var errNilClient = errors.New("redis client cannot be nil")

// watch runs fn as an optimistic WATCH/MULTI transaction on keys and retries
// when a concurrent writer touched them first.
func watch(ctx context.Context, client redis.UniversalClient, fn func(tx *redis.Tx) error, keys ...string) error {
	for i := 0; i < maxWatchRetries; i++ {
		err := client.Watch(ctx, fn, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("redis transaction on %v: too much contention", keys)
}
