package service

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/animemaster-api/internal/domain/entity"
)

type testClock struct{ t time.Time }

func newTestClock() *testClock {
	return &testClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time          { return c.t }
func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLockout(clock *testClock) *LockoutPolicy {
	p := NewLockoutPolicy(0, 0, zerolog.Nop())
	p.SetClock(clock.Now)
	return p
}

func TestLockoutPolicy_LocksOnFifthFailure(t *testing.T) {
	clock := newTestClock()
	policy := newTestLockout(clock)
	user := &entity.User{ID: 1}

	for i := 1; i <= 4; i++ {
		assert.False(t, policy.RegisterFailure(user))
		assert.Equal(t, i, user.FailedLoginCount)
		assert.Equal(t, LockStateOpen, policy.State(user))
	}

	assert.True(t, policy.RegisterFailure(user))
	assert.Equal(t, 5, user.FailedLoginCount)
	assert.Equal(t, LockStateLocked, policy.State(user))
	require.NotNil(t, user.LockedUntil)
	assert.Equal(t, clock.Now().Add(30*time.Minute), *user.LockedUntil)
}

func TestLockoutPolicy_LockExpiresLazily(t *testing.T) {
	clock := newTestClock()
	policy := newTestLockout(clock)
	until := clock.Now().Add(30 * time.Minute)
	user := &entity.User{ID: 1, FailedLoginCount: 5, LockedUntil: &until}

	clock.Advance(29 * time.Minute)
	assert.True(t, policy.IsLocked(user))

	clock.Advance(time.Minute)
	assert.False(t, policy.IsLocked(user))
	// The field is not cleared until a successful login.
	assert.NotNil(t, user.LockedUntil)
	assert.Equal(t, 5, user.FailedLoginCount)
}

func TestLockoutPolicy_FailureAfterExpiryRelocksImmediately(t *testing.T) {
	clock := newTestClock()
	policy := newTestLockout(clock)
	until := clock.Now().Add(-time.Second)
	user := &entity.User{ID: 1, FailedLoginCount: 5, LockedUntil: &until}

	assert.True(t, policy.RegisterFailure(user))
	assert.Equal(t, 6, user.FailedLoginCount)
	assert.True(t, policy.IsLocked(user))
}

func TestLockoutPolicy_SuccessResets(t *testing.T) {
	clock := newTestClock()
	policy := newTestLockout(clock)
	until := clock.Now().Add(-time.Minute)
	user := &entity.User{ID: 1, FailedLoginCount: 5, LockedUntil: &until}

	policy.RegisterSuccess(user)

	assert.Zero(t, user.FailedLoginCount)
	assert.Nil(t, user.LockedUntil)
	require.NotNil(t, user.LastLoginTime)
	assert.Equal(t, clock.Now(), *user.LastLoginTime)
}

func TestLockoutPolicy_CustomThreshold(t *testing.T) {
	clock := newTestClock()
	policy := NewLockoutPolicy(2, time.Minute, zerolog.Nop())
	policy.SetClock(clock.Now)
	user := &entity.User{ID: 1}

	assert.False(t, policy.RegisterFailure(user))
	assert.True(t, policy.RegisterFailure(user))
	assert.Equal(t, clock.Now().Add(time.Minute), *user.LockedUntil)
}
