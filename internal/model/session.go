package model

import "time"

// Session is the single active authentication session. Exactly one session
// slot exists in storage; logging in overwrites it and logging out clears it.
//
// User is a sanitized snapshot taken at login (or the last profile update) —
// it never contains a password hash. ExpiresAt is epoch milliseconds; the
// slot is cleared lazily when a read finds it in the past.
type Session struct {
	User      User   `json:"user"`
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expiresAt"`
}

// Expired reports whether the session's expiry is at or before now.
func (s Session) Expired(now time.Time) bool {
	return now.UnixMilli() >= s.ExpiresAt
}

// ResetToken is a single-use, time-boxed credential that allows a password
// change without knowing the current password. At most one unused token is
// kept per email: requesting a new one removes any earlier tokens for that
// address. Used or expired tokens linger until CleanupExpiredTokens runs.
type ResetToken struct {
	Email     string `json:"email"`
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expiresAt"`
	Used      bool   `json:"used"`
}

// Expired reports whether the token's expiry is at or before now.
func (t ResetToken) Expired(now time.Time) bool {
	return now.UnixMilli() >= t.ExpiresAt
}
