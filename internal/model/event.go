package model

import "time"

// Event levels. Stored as plain strings so the persisted log stays readable.
const (
	EventError   = "error"
	EventWarning = "warning"
	EventInfo    = "info"
)

// Event is one entry in the persisted error/event log. The log is capped at
// a fixed size; the database manager drops the oldest entries on append.
type Event struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Level     string            `json:"level"`
	Message   string            `json:"message"`
	Context   map[string]string `json:"context,omitempty"`
	UserID    string            `json:"userId,omitempty"`
}

// Stats summarizes the database contents. TotalSize is the re-serialized
// size of both collections formatted for humans ("1.24 KB"), an
// approximation rather than a true storage footprint.
type Stats struct {
	Users          int    `json:"users"`
	Snippets       int    `json:"snippets"`
	PublicSnippets int    `json:"publicSnippets"`
	TotalSize      string `json:"totalSize"`
}
