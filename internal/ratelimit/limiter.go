// Package ratelimit provides the process-wide request gate shared by every
// extraction call: a sliding one-minute window and a daily ceiling per tier.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

const minuteWindow = time.Minute

// Snapshot is a point-in-time view of a limiter's counters.
type Snapshot struct {
	Tier           string
	MinuteUsed     int
	DailyUsed      int
	DailyRemaining int
	ResetAt        time.Time
	UntilReset     time.Duration
}

// Limiter enforces one tier's RPM and RPD ceilings. All state is guarded by
// mu, which is never held while waiting for a slot.
type Limiter struct {
	tier  Tier
	clock Clock
	reset ResetPolicy

	mu         sync.Mutex
	recent     []time.Time
	dailyCount int
	resetAt    time.Time

	// alternatives is set by a Registry to name other tiers with capacity.
	alternatives func(exclude Tier) []string
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(l *Limiter) { l.clock = c }
}

// WithResetPolicy replaces the default rolling 24h reset.
func WithResetPolicy(p ResetPolicy) Option {
	return func(l *Limiter) { l.reset = p }
}

// NewLimiter creates a limiter for tier. RPM or RPD values below one are
// treated as one.
func NewLimiter(tier Tier, opts ...Option) *Limiter {
	if tier.RPM < 1 {
		tier.RPM = 1
	}
	if tier.RPD < 1 {
		tier.RPD = 1
	}
	l := &Limiter{
		tier:   tier,
		clock:  SystemClock,
		reset:  RollingReset{Period: 24 * time.Hour},
		recent: make([]time.Time, 0, tier.RPM),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Tier returns the tier this limiter enforces.
func (l *Limiter) Tier() Tier { return l.tier }

// Acquire blocks until a request may be issued under the per-minute ceiling,
// then records it. It fails immediately with *QuotaExhaustedError when the
// daily ceiling is reached, and with ctx.Err() if ctx ends while waiting.
func (l *Limiter) Acquire(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := l.clock.Now()
		l.rollDailyLocked(now)

		if l.dailyCount >= l.tier.RPD {
			retryAfter := l.resetAt.Sub(now)
			l.mu.Unlock()
			return l.exhausted(retryAfter)
		}

		l.evictLocked(now)
		if len(l.recent) < l.tier.RPM {
			l.recent = append(l.recent, now)
			l.dailyCount++
			l.mu.Unlock()
			return nil
		}

		wait := l.recent[0].Add(minuteWindow).Sub(now)
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.clock.After(wait):
		}
	}
}

func (l *Limiter) exhausted(retryAfter time.Duration) error {
	var alts []string
	if l.alternatives != nil {
		alts = l.alternatives(l.tier)
	}
	return &QuotaExhaustedError{
		Tier:         l.tier.Name,
		Limit:        l.tier.RPD,
		RetryAfter:   retryAfter,
		Alternatives: alts,
	}
}

// rollDailyLocked initializes the reset instant on first use and zeroes the
// counter once it has passed.
func (l *Limiter) rollDailyLocked(now time.Time) {
	if l.resetAt.IsZero() {
		l.resetAt = l.reset.Next(now)
		return
	}
	if now.Before(l.resetAt) {
		return
	}
	l.dailyCount = 0
	for !now.Before(l.resetAt) {
		l.resetAt = l.reset.Next(l.resetAt)
	}
}

func (l *Limiter) evictLocked(now time.Time) {
	i := 0
	for i < len(l.recent) && now.Sub(l.recent[i]) >= minuteWindow {
		i++
	}
	if i > 0 {
		l.recent = append(l.recent[:0], l.recent[i:]...)
	}
}

// HasCapacity reports whether the daily ceiling still admits a request.
func (l *Limiter) HasCapacity() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollDailyLocked(l.clock.Now())
	return l.dailyCount < l.tier.RPD
}

// Snapshot returns the current counters.
func (l *Limiter) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	l.rollDailyLocked(now)
	l.evictLocked(now)

	return Snapshot{
		Tier:           l.tier.Name,
		MinuteUsed:     len(l.recent),
		DailyUsed:      l.dailyCount,
		DailyRemaining: l.tier.RPD - l.dailyCount,
		ResetAt:        l.resetAt,
		UntilReset:     l.resetAt.Sub(now),
	}
}
