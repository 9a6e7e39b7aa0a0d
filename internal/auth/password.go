// Package auth — password hashing, policy checks, session tokens, and
// login rate limiting.
//
// WHY BCRYPT?
// bcrypt is a password hashing function designed to be slow, which makes
// brute-force attacks expensive. It generates a random salt per hash and
// embeds it in the output, so the stored string is self-contained and two
// users with the same password get different hashes. Never store passwords
// in plain text, with reversible encodings, or with fast hashes.
package auth

import (
	"errors"
	"fmt"
	"regexp"

	"golang.org/x/crypto/bcrypt"
)

// defaultCost is the bcrypt work factor. Cost 12 takes roughly ~250ms on a
// modern server — negligible for login, brutal for attackers.
const defaultCost = 12

// emailPattern is the simple local@domain.tld shape check. Deliberately
// loose: real deliverability can only be proven by sending mail.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var (
	hasLetter = regexp.MustCompile(`[a-zA-Z]`)
	hasDigit  = regexp.MustCompile(`[0-9]`)
)

// PasswordService provides bcrypt hashing and verification.
//
// It's a struct (not free functions) so the cost can be injected in tests —
// a lower cost makes tests run much faster without changing the logic.
type PasswordService struct {
	cost int
}

// NewPasswordService creates a PasswordService with the default cost.
func NewPasswordService() *PasswordService {
	return &PasswordService{cost: defaultCost}
}

// NewPasswordServiceForTest creates a PasswordService with a custom (low)
// cost. Do NOT use in production.
func NewPasswordServiceForTest(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// Hash hashes the given plaintext password with bcrypt. The output embeds
// the salt and cost; store it directly.
//
// Returns an error if the plaintext exceeds 72 bytes — bcrypt silently
// truncates longer input, so we reject it explicitly instead.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > 72 {
		return "", fmt.Errorf("auth: password must be 72 bytes or fewer")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}

	return string(hashed), nil
}

// Verify checks whether a plaintext password matches a stored bcrypt hash.
// Returns nil on match. bcrypt compares in constant time, so this is safe
// against timing attacks.
func (p *PasswordService) Verify(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return fmt.Errorf("auth: invalid password")
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}

// ValidateEmail reports whether the address has a plausible shape.
func ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ValidatePassword checks the password policy and returns every violated
// rule, not just the first — the caller shows the full list so the user can
// fix their password in one go.
func ValidatePassword(password string) []string {
	var violations []string
	if len(password) < 6 {
		violations = append(violations, "password must be at least 6 characters long")
	}
	if !hasLetter.MatchString(password) {
		violations = append(violations, "password must contain at least one letter")
	}
	if !hasDigit.MatchString(password) {
		violations = append(violations, "password must contain at least one number")
	}
	return violations
}
