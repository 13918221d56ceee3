package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/yourusername/animemaster-api/internal/domain/entity"
	apperrors "github.com/yourusername/animemaster-api/internal/pkg/errors"
)

// codeRetentionGrace keeps an expired entry around for a while after its
// expiry so that a late verify still reports it as expired.
const codeRetentionGrace = time.Minute

// VerificationCodeStore implements repository.VerificationCodeStore on redis.
// Conditional writes use WATCH on the recipient key.
type VerificationCodeStore struct {
	client redis.UniversalClient
}

func NewVerificationCodeStore(client redis.UniversalClient) (*VerificationCodeStore, error) {
	if client == nil {
		return nil, errNilClient
	}
	return &VerificationCodeStore{client: client}, nil
}

func (s *VerificationCodeStore) Get(ctx context.Context, recipient string) (*entity.VerificationCode, error) {
	return load(ctx, s.client, codeKey(recipient))
}

func (s *VerificationCodeStore) PutIfIdle(ctx context.Context, code *entity.VerificationCode, interval time.Duration) (bool, error) {
	key := codeKey(code.Recipient)
	data, err := json.Marshal(code)
	if err != nil {
		return false, err
	}
	ttl := code.ExpiryTime.Sub(code.SendTime) + codeRetentionGrace

	var stored bool
	err = watch(ctx, s.client, func(tx *redis.Tx) error {
		stored = false
		existing, err := load(ctx, tx, key)
		if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			return err
		}
		if existing != nil && !existing.IsExpired(code.SendTime) && existing.InSendInterval(code.SendTime, interval) {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, ttl)
			return nil
		})
		if err == nil {
			stored = true
		}
		return err
	}, key)
	if err != nil {
		return false, fmt.Errorf("failed to store verification code: %w", err)
	}
	return stored, nil
}

func (s *VerificationCodeStore) DeleteIfMatch(ctx context.Context, recipient, code string, sendTime time.Time) (bool, error) {
	return s.deleteWhen(ctx, codeKey(recipient), func(existing *entity.VerificationCode) bool {
		return existing.Code == code && existing.SendTime.Equal(sendTime)
	})
}

// PruneExpired is handled by key expiry: every entry is written with a TTL
// of its lifetime plus codeRetentionGrace. Scanning would only reach one
// node of a cluster.
func (s *VerificationCodeStore) PruneExpired(context.Context, time.Time) (int, error) {
	return 0, nil
}

func (s *VerificationCodeStore) deleteWhen(ctx context.Context, key string, match func(*entity.VerificationCode) bool) (bool, error) {
	var deleted bool
	err := watch(ctx, s.client, func(tx *redis.Tx) error {
		deleted = false
		existing, err := load(ctx, tx, key)
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if !match(existing) {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		})
		if err == nil {
			deleted = true
		}
		return err
	}, key)
	if err != nil {
		return false, fmt.Errorf("failed to delete verification code: %w", err)
	}
	return deleted, nil
}

// getter is the part of a client or transaction load needs.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func load(ctx context.Context, c getter, key string) (*entity.VerificationCode, error) {
	data, err := c.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	var code entity.VerificationCode
	if err := json.Unmarshal(data, &code); err != nil {
		return nil, fmt.Errorf("corrupt verification code entry %s: %w", key, err)
	}
	return &code, nil
}

func codeKey(recipient string) string {
	return keyPrefixCode + recipient
}
