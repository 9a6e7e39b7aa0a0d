package auth

import (
	"sync"
	"time"
)

const (
	maxLoginAttempts = 5
	loginWindow      = 15 * time.Minute
)

// LoginLimiter is a sliding-window rate limit on login attempts, keyed by an
// identifier (normally the email). State lives in process memory only — a
// restart forgets all counters, which is acceptable for a throttle whose job
// is slowing down online guessing, not keeping an audit trail.
//
// The window is anchored at the first attempt: once loginWindow has elapsed
// since that first attempt the counter resets fully; within the window each
// check increments the counter and denies once the cap is reached.
type LoginLimiter struct {
	mu       sync.Mutex
	attempts map[string]*attemptWindow

	// now is swappable in tests.
	now func() time.Time
}

type attemptWindow struct {
	count int
	start time.Time
}

// RateLimitResult is the outcome of a Check call. When Allowed is false,
// RetryAfter is the instant the window expires and attempts are permitted
// again.
type RateLimitResult struct {
	Allowed    bool
	RetryAfter time.Time
}

// NewLoginLimiter creates an empty limiter.
func NewLoginLimiter() *LoginLimiter {
	return &LoginLimiter{
		attempts: make(map[string]*attemptWindow),
		now:      time.Now,
	}
}

// Check records an attempt for identifier and reports whether it is allowed.
func (l *LoginLimiter) Check(identifier string) RateLimitResult {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	window, ok := l.attempts[identifier]

	if !ok || now.Sub(window.start) >= loginWindow {
		l.attempts[identifier] = &attemptWindow{count: 1, start: now}
		return RateLimitResult{Allowed: true}
	}

	if window.count >= maxLoginAttempts {
		return RateLimitResult{
			Allowed:    false,
			RetryAfter: window.start.Add(loginWindow),
		}
	}

	window.count++
	return RateLimitResult{Allowed: true}
}

// Reset clears the counter for identifier, e.g. after a successful login.
func (l *LoginLimiter) Reset(identifier string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.attempts, identifier)
}
