// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data — similar to classes in other
// languages, but without inheritance. Go favours composition over inheritance.
package model

import "time"

// Snippet represents a saved code snippet.
//
// The `json:"..."` tags tell Go's encoding/json package how to
// serialize/deserialize this struct — the same shape is used both for the
// persisted collection and for values returned to callers.
//
// UserName is a derived field: it is never persisted (snippets store only
// UserID) and is filled in by the query layer when a public view joins the
// snippet with its author.
//
// Tags may contain the same value more than once; the upload path filters
// out empty strings but deliberately keeps duplicates.
type Snippet struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Code        string    `json:"code"`
	Language    string    `json:"language"`
	Tags        []string  `json:"tags"`
	IsPublic    bool      `json:"isPublic"`
	Likes       int       `json:"likes"`
	UserID      string    `json:"userId"`
	UserName    string    `json:"userName,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// SnippetPatch describes a partial update to a snippet record.
// Nil fields are left untouched.
type SnippetPatch struct {
	Title       *string
	Description *string
	Code        *string
	Language    *string
	Tags        *[]string
	IsPublic    *bool
	Likes       *int
}
