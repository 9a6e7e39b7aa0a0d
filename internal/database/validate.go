package database

import (
	"strings"

	"github.com/sakif/learncode/internal/model"
)

// ValidateUser reports whether a user record is structurally sound enough to
// persist: identifiers and hash present, a plausible email, a non-empty name,
// and real timestamps. Records failing this are rejected on save and dropped
// on read.
func ValidateUser(user model.User) bool {
	return user.ID != "" &&
		user.Name != "" &&
		strings.Contains(user.Email, "@") &&
		user.PasswordHash != "" &&
		!user.CreatedAt.IsZero() &&
		!user.UpdatedAt.IsZero()
}

// ValidateSnippet reports whether a snippet record is structurally sound:
// id, title, code, and language present, a non-nil tag slice, non-negative
// likes, and real timestamps. Description may be empty, and UserID is not
// checked against the users collection — orphaned snippets are tolerated.
func ValidateSnippet(snippet model.Snippet) bool {
	return snippet.ID != "" &&
		snippet.Title != "" &&
		snippet.Code != "" &&
		snippet.Language != "" &&
		snippet.Tags != nil &&
		snippet.Likes >= 0 &&
		!snippet.CreatedAt.IsZero() &&
		!snippet.UpdatedAt.IsZero()
}
