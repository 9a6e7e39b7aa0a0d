package database

import (
	"testing"
	"time"

	"github.com/sakif/learncode/internal/model"
)

func validUser() model.User {
	now := time.Now()
	return model.User{
		ID:           "u1",
		Name:         "Alice",
		Email:        "alice@example.com",
		PasswordHash: "hash",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func validSnippet() model.Snippet {
	now := time.Now()
	return model.Snippet{
		ID:        "s1",
		Title:     "Hello",
		Code:      "code",
		Language:  "Go",
		Tags:      []string{},
		UserID:    "u1",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestValidateUser(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.User)
		want   bool
	}{
		{"valid", func(u *model.User) {}, true},
		{"missing id", func(u *model.User) { u.ID = "" }, false},
		{"missing name", func(u *model.User) { u.Name = "" }, false},
		{"email without at sign", func(u *model.User) { u.Email = "not-an-email" }, false},
		{"missing hash", func(u *model.User) { u.PasswordHash = "" }, false},
		{"zero created", func(u *model.User) { u.CreatedAt = time.Time{} }, false},
		{"zero updated", func(u *model.User) { u.UpdatedAt = time.Time{} }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := validUser()
			tt.mutate(&user)
			if got := ValidateUser(user); got != tt.want {
				t.Errorf("ValidateUser() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateSnippet(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.Snippet)
		want   bool
	}{
		{"valid", func(s *model.Snippet) {}, true},
		{"empty description ok", func(s *model.Snippet) { s.Description = "" }, true},
		{"orphaned user ok", func(s *model.Snippet) { s.UserID = "ghost" }, true},
		{"missing id", func(s *model.Snippet) { s.ID = "" }, false},
		{"missing title", func(s *model.Snippet) { s.Title = "" }, false},
		{"missing code", func(s *model.Snippet) { s.Code = "" }, false},
		{"missing language", func(s *model.Snippet) { s.Language = "" }, false},
		{"nil tags", func(s *model.Snippet) { s.Tags = nil }, false},
		{"negative likes", func(s *model.Snippet) { s.Likes = -1 }, false},
		{"zero created", func(s *model.Snippet) { s.CreatedAt = time.Time{} }, false},
		{"zero updated", func(s *model.Snippet) { s.UpdatedAt = time.Time{} }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snippet := validSnippet()
			tt.mutate(&snippet)
			if got := ValidateSnippet(snippet); got != tt.want {
				t.Errorf("ValidateSnippet() = %v, want %v", got, tt.want)
			}
		})
	}
}
