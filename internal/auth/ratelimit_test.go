package auth

import (
	"testing"
	"time"
)

// newTestLimiter returns a limiter with a controllable clock.
func newTestLimiter(start time.Time) (*LoginLimiter, *time.Time) {
	clock := start
	l := NewLoginLimiter()
	l.now = func() time.Time { return clock }
	return l, &clock
}

func TestLoginLimiter_AllowsUpToLimit(t *testing.T) {
	l, _ := newTestLimiter(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))

	for i := 0; i < maxLoginAttempts; i++ {
		res := l.Check("alice@example.com")
		if !res.Allowed {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}

	res := l.Check("alice@example.com")
	if res.Allowed {
		t.Fatal("attempt beyond the limit should be denied")
	}
}

func TestLoginLimiter_RetryAfterAnchoredAtFirstAttempt(t *testing.T) {
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	l, clock := newTestLimiter(start)

	for i := 0; i < maxLoginAttempts; i++ {
		l.Check("alice@example.com")
		*clock = clock.Add(time.Minute)
	}

	res := l.Check("alice@example.com")
	if res.Allowed {
		t.Fatal("sixth attempt should be denied")
	}
	want := start.Add(loginWindow)
	if !res.RetryAfter.Equal(want) {
		t.Errorf("RetryAfter = %v, want %v (first attempt + window)", res.RetryAfter, want)
	}
}

func TestLoginLimiter_WindowExpiryResets(t *testing.T) {
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	l, clock := newTestLimiter(start)

	for i := 0; i < maxLoginAttempts+1; i++ {
		l.Check("alice@example.com")
	}

	*clock = start.Add(loginWindow)
	res := l.Check("alice@example.com")
	if !res.Allowed {
		t.Fatal("attempt after the window has elapsed should be allowed")
	}
}

func TestLoginLimiter_ResetClearsCounter(t *testing.T) {
	l, _ := newTestLimiter(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))

	for i := 0; i < maxLoginAttempts; i++ {
		l.Check("alice@example.com")
	}
	l.Reset("alice@example.com")

	if res := l.Check("alice@example.com"); !res.Allowed {
		t.Fatal("attempt after Reset should be allowed")
	}
}

func TestLoginLimiter_IdentifiersIndependent(t *testing.T) {
	l, _ := newTestLimiter(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))

	for i := 0; i < maxLoginAttempts; i++ {
		l.Check("alice@example.com")
	}
	if res := l.Check("alice@example.com"); res.Allowed {
		t.Fatal("alice should be throttled")
	}
	if res := l.Check("bob@example.com"); !res.Allowed {
		t.Fatal("bob should be unaffected by alice's attempts")
	}
}
