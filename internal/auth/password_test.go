package auth

import (
	"strings"
	"testing"
)

// testCost keeps bcrypt fast in tests. Never use a cost this low in
// production.
const testCost = 4

func TestHashAndVerify(t *testing.T) {
	ps := NewPasswordServiceForTest(testCost)

	hash, err := ps.Hash("abc123")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if hash == "" {
		t.Fatal("Hash() returned empty string")
	}
	if hash == "abc123" {
		t.Fatal("Hash() returned the plaintext")
	}

	if err := ps.Verify(hash, "abc123"); err != nil {
		t.Errorf("Verify() with correct password: %v", err)
	}
	if err := ps.Verify(hash, "wrong123"); err == nil {
		t.Error("Verify() should fail with wrong password")
	}
}

func TestHash_DifferentSaltsPerCall(t *testing.T) {
	ps := NewPasswordServiceForTest(testCost)

	h1, err := ps.Hash("abc123")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	h2, err := ps.Hash("abc123")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if h1 == h2 {
		t.Error("two hashes of the same password should differ (random salt)")
	}
}

func TestHash_RejectsOverlongPassword(t *testing.T) {
	ps := NewPasswordServiceForTest(testCost)

	_, err := ps.Hash(strings.Repeat("a", 73))
	if err == nil {
		t.Error("Hash() should reject passwords longer than 72 bytes")
	}
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"a@x.com", true},
		{"alex.johnson@example.co.uk", true},
		{"", false},
		{"not-an-email", false},
		{"missing@tld", false},
		{"@example.com", false},
		{"spaces in@example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			if got := ValidateEmail(tt.email); got != tt.want {
				t.Errorf("ValidateEmail(%q) = %v, want %v", tt.email, got, tt.want)
			}
		})
	}
}

func TestValidatePassword_CollectsAllViolations(t *testing.T) {
	tests := []struct {
		name       string
		password   string
		violations int
	}{
		{"valid", "abc123", 0},
		{"too short but mixed", "a1", 1},
		{"no digit", "abcdef", 1},
		{"no letter", "123456", 1},
		{"short and no digit", "abc", 2},
		{"everything wrong", "", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidatePassword(tt.password)
			if len(got) != tt.violations {
				t.Errorf("ValidatePassword(%q) returned %d violations %v, want %d",
					tt.password, len(got), got, tt.violations)
			}
		})
	}
}
