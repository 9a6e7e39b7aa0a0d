// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account.
//
// PasswordHash holds the bcrypt hash of the user's password. It is part of
// the persisted record, so it carries a JSON tag like every other field —
// but it must never leave the process. Anything handed back to a caller
// (session snapshots, register/login results, profile updates) goes through
// Sanitized() first.
//
// Email is stored lowercased and is unique across the collection,
// case-insensitively. The database manager enforces that on save.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Sanitized returns a copy of the user with the password hash blanked.
// Use this for any value that crosses the package boundary outward.
func (u User) Sanitized() User {
	u.PasswordHash = ""
	return u
}

// UserPatch describes a partial update to a user record.
// Nil fields are left untouched.
type UserPatch struct {
	Name         *string
	PasswordHash *string
}
