package service

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/yourusername/animemaster-api/internal/domain/entity"
)

const (
	DefaultMaxFailedLogins = 5
	DefaultLockDuration    = 30 * time.Minute
)

// LockState is the lockout state of an account at a point in time.
type LockState string

const (
	LockStateOpen   LockState = "OPEN"
	LockStateLocked LockState = "LOCKED"
)

// LockoutPolicy is the brute-force lockout state machine. It only mutates
// the lockout fields of the user record it is given; callers must hand it a
// record they hold exclusively (see UserRepository.UpdateLoginState).
//
// The failure counter is cleared only by a successful login. A lock that
// expires on its own leaves the counter at the threshold, so the next failed
// attempt locks the account again.
type LockoutPolicy struct {
	maxFailures  int
	lockDuration time.Duration
	log          zerolog.Logger
	now          func() time.Time
}

// NewLockoutPolicy creates a policy. Non-positive arguments select the defaults.
func NewLockoutPolicy(maxFailures int, lockDuration time.Duration, log zerolog.Logger) *LockoutPolicy {
	if maxFailures <= 0 {
		maxFailures = DefaultMaxFailedLogins
	}
	if lockDuration <= 0 {
		lockDuration = DefaultLockDuration
	}
	return &LockoutPolicy{
		maxFailures:  maxFailures,
		lockDuration: lockDuration,
		log:          log.With().Str("component", "lockout").Logger(),
		now:          time.Now,
	}
}

// SetClock replaces the wall clock used for lock decisions.
func (p *LockoutPolicy) SetClock(now func() time.Time) {
	p.now = now
}

// State evaluates the account lazily against the current time.
func (p *LockoutPolicy) State(user *entity.User) LockState {
	if user.LockedUntil != nil && p.now().Before(*user.LockedUntil) {
		return LockStateLocked
	}
	return LockStateOpen
}

// IsLocked reports whether login attempts must be rejected without checking credentials.
func (p *LockoutPolicy) IsLocked(user *entity.User) bool {
	return p.State(user) == LockStateLocked
}

// RegisterFailure records a failed credential check and reports whether it
// locked the account. It must not be called while the account is locked.
func (p *LockoutPolicy) RegisterFailure(user *entity.User) bool {
	user.FailedLoginCount++
	if user.FailedLoginCount < p.maxFailures {
		p.log.Info().Uint("user_id", user.ID).Int("failed_count", user.FailedLoginCount).Msg("failed login recorded")
		return false
	}

	lockedUntil := p.now().Add(p.lockDuration)
	user.LockedUntil = &lockedUntil
	p.log.Warn().
		Uint("user_id", user.ID).
		Int("failed_count", user.FailedLoginCount).
		Time("locked_until", lockedUntil).
		Msg("account locked")
	return true
}

// RegisterSuccess resets the lockout record after a successful login.
func (p *LockoutPolicy) RegisterSuccess(user *entity.User) {
	now := p.now()
	user.FailedLoginCount = 0
	user.LockedUntil = nil
	user.LastLoginTime = &now
}
