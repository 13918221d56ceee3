package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// minRevocationRetention keeps entries for tokens that are already past
// their expiry around briefly instead of handing redis a non-positive TTL.
const minRevocationRetention = time.Minute

// RevocationStore implements repository.RevocationStore on redis so that all
// API instances share one revocation set. Entries expire together with the
// token they revoke, which makes Prune a no-op.
type RevocationStore struct {
	client redis.UniversalClient
	now    func() time.Time
}

func NewRevocationStore(client redis.UniversalClient) (*RevocationStore, error) {
	if client == nil {
		return nil, errNilClient
	}
	return &RevocationStore{client: client, now: time.Now}, nil
}

func (s *RevocationStore) Add(ctx context.Context, token string, expiresAt time.Time) error {
	var ttl time.Duration
	if !expiresAt.IsZero() {
		ttl = expiresAt.Sub(s.now())
		if ttl < minRevocationRetention {
			ttl = minRevocationRetention
		}
	}
	value := strconv.FormatInt(expiresAt.Unix(), 10)
	return s.client.SetNX(ctx, revokedKey(token), value, ttl).Err()
}

func (s *RevocationStore) Contains(ctx context.Context, token string) (bool, error) {
	n, err := s.client.Exists(ctx, revokedKey(token)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RevocationStore) Remove(ctx context.Context, token string) error {
	return s.client.Del(ctx, revokedKey(token)).Err()
}

// Prune is handled by key expiry.
func (s *RevocationStore) Prune(context.Context, time.Time) (int, error) {
	return 0, nil
}

// revokedKey hashes the token so keys stay short; equal tokens map to equal keys.
func revokedKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return keyPrefixRevoked + hex.EncodeToString(sum[:])
}
