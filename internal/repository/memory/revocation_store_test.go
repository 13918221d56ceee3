package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRevocationStore_AddContainsRemove(t *testing.T) {
	ctx := context.Background()
	store := NewRevocationStore()

	require.NoError(t, store.Add(ctx, "token-a", time.Time{}))
	require.NoError(t, store.Add(ctx, "token-a", time.Time{}))

	ok, err := store.Contains(ctx, "token-a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, store.Len())

	ok, _ = store.Contains(ctx, "token-b")
	assert.False(t, ok)

	require.NoError(t, store.Remove(ctx, "token-a"))
	ok, _ = store.Contains(ctx, "token-a")
	assert.False(t, ok)
}

func TestRevocationStore_Prune(t *testing.T) {
	ctx := context.Background()
	store := NewRevocationStore()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Add(ctx, "expired", now.Add(-time.Minute)))
	require.NoError(t, store.Add(ctx, "live", now.Add(time.Hour)))
	require.NoError(t, store.Add(ctx, "unknown-expiry", time.Time{}))

	removed, err := store.Prune(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	ok, _ := store.Contains(ctx, "expired")
	assert.False(t, ok)
	ok, _ = store.Contains(ctx, "live")
	assert.True(t, ok)
	ok, _ = store.Contains(ctx, "unknown-expiry")
	assert.True(t, ok)
}

func TestRevocationStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	store := NewRevocationStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			token := fmt.Sprintf("token-%d", i%10)
			_ = store.Add(ctx, token, time.Time{})
			ok, _ := store.Contains(ctx, token)
			assert.True(t, ok)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, store.Len())
}
