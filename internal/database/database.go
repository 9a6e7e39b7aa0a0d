// Package database owns the persisted collections and their lifecycle rules.
//
// THE STORAGE MODEL:
// Collections are the unit of storage. Users and snippets are each one JSON
// array under one fixed key in the kvstore — there is no per-record address.
// Every mutation therefore reads the whole collection, changes it in memory,
// and rewrites the whole array. A failed rewrite leaves the prior collection
// untouched, so operations never apply partially.
//
// Because a whole-collection rewrite is last-write-wins, the Manager guards
// every mutation with a mutex. Two concurrent writers would otherwise lose
// one writer's change even when they touch different records.
//
// The Manager is constructed once in main and passed to every collaborator —
// one logical instance coordinates all access, without a hidden global.
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/sakif/learncode/internal/apperror"
	"github.com/sakif/learncode/internal/kvstore"
	"github.com/sakif/learncode/internal/model"
)

// Fixed top-level keys in the key/value store.
const (
	usersKey       = "learncode_users"
	snippetsKey    = "learncode_snippets"
	sessionKey     = "learncode_session"
	backupKey      = "learncode_backup"
	resetTokensKey = "learncode_reset_tokens"
	eventsKey      = "learncode_events"
	versionKey     = "learncode_db_version"
	selfTestKey    = "learncode_test"
)

// Manager coordinates all reads and writes of the persisted collections.
type Manager struct {
	store  kvstore.Store
	logger *slog.Logger

	// Serializes read-modify-write cycles. Coarse by design: the write unit
	// is the whole collection, so finer locking buys nothing.
	mu sync.Mutex
}

// backup is the single-slot snapshot written under backupKey.
type backup struct {
	Users     []model.User    `json:"users"`
	Snippets  []model.Snippet `json:"snippets"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewManager creates the Manager and verifies the store is usable with a
// write/read/delete self-test. A store that cannot round-trip a value is
// unusable, and that is the one failure allowed to abort startup.
func NewManager(ctx context.Context, store kvstore.Store, logger *slog.Logger) (*Manager, error) {
	if err := store.Set(ctx, selfTestKey, "test"); err != nil {
		return nil, fmt.Errorf("database: self-test write failed: %w", err)
	}
	value, ok, err := store.Get(ctx, selfTestKey)
	if err != nil || !ok || value != "test" {
		return nil, fmt.Errorf("database: self-test read failed (ok=%v, err=%v)", ok, err)
	}
	if err := store.Remove(ctx, selfTestKey); err != nil {
		return nil, fmt.Errorf("database: self-test delete failed: %w", err)
	}

	logger.Debug("database initialized")
	return &Manager{store: store, logger: logger}, nil
}

// readCollection reads the array under key and decodes each element with
// decode, skipping elements that fail. A missing key is normalized to an
// empty array written back to the store; a value that isn't array-shaped is
// reset to empty with a warning. Corruption never propagates to callers.
func readCollection[T any](ctx context.Context, m *Manager, key string, decode func(T) bool) ([]T, error) {
	data, ok, err := m.store.Get(ctx, key)
	if err != nil {
		return nil, apperror.Storage("reading "+key, err)
	}
	if !ok {
		if err := m.store.Set(ctx, key, "[]"); err != nil {
			return nil, apperror.Storage("normalizing "+key, err)
		}
		return []T{}, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		m.logger.Warn("invalid collection format, resetting",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		if err := m.store.Set(ctx, key, "[]"); err != nil {
			return nil, apperror.Storage("resetting "+key, err)
		}
		return []T{}, nil
	}

	records := make([]T, 0, len(raw))
	for _, entry := range raw {
		var record T
		if err := json.Unmarshal(entry, &record); err != nil {
			m.logger.Warn("dropping corrupt record", slog.String("key", key))
			continue
		}
		if !decode(record) {
			m.logger.Warn("dropping invalid record", slog.String("key", key))
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// writeCollection serializes records and rewrites the key in one shot.
func writeCollection[T any](ctx context.Context, m *Manager, key string, records []T) error {
	data, err := json.Marshal(records)
	if err != nil {
		return apperror.Storage("encoding "+key, err)
	}
	if err := m.store.Set(ctx, key, string(data)); err != nil {
		return apperror.Storage("writing "+key, err)
	}
	return nil
}

// GetUsers returns all structurally valid users. Corrupt or invalid entries
// are dropped from the result (and logged), never surfaced as errors.
func (m *Manager) GetUsers(ctx context.Context) ([]model.User, error) {
	return readCollection(ctx, m, usersKey, ValidateUser)
}

// SaveUser validates and appends a new user. It rejects records whose email
// is already taken by a different id — compared case-insensitively.
func (m *Manager) SaveUser(ctx context.Context, user model.User) error {
	if !ValidateUser(user) {
		return apperror.ValidationFailed("user", "invalid user data")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	users, err := m.GetUsers(ctx)
	if err != nil {
		return err
	}
	for _, existing := range users {
		if strings.EqualFold(existing.Email, user.Email) && existing.ID != user.ID {
			return apperror.Conflict("user", "email already registered")
		}
	}

	return writeCollection(ctx, m, usersKey, append(users, user))
}

// UpdateUser merges patch into the stored record, touches UpdatedAt, and
// re-validates before persisting. Unknown ids return ErrNotFound.
func (m *Manager) UpdateUser(ctx context.Context, id string, patch model.UserPatch) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	users, err := m.GetUsers(ctx)
	if err != nil {
		return model.User{}, err
	}

	for i, user := range users {
		if user.ID != id {
			continue
		}
		if patch.Name != nil {
			user.Name = *patch.Name
		}
		if patch.PasswordHash != nil {
			user.PasswordHash = *patch.PasswordHash
		}
		user.UpdatedAt = time.Now()

		if !ValidateUser(user) {
			return model.User{}, apperror.ValidationFailed("user", "invalid updated user data")
		}
		users[i] = user
		if err := writeCollection(ctx, m, usersKey, users); err != nil {
			return model.User{}, err
		}
		return user, nil
	}

	return model.User{}, apperror.NotFound("user", id)
}

// GetSnippets returns all structurally valid snippets.
func (m *Manager) GetSnippets(ctx context.Context) ([]model.Snippet, error) {
	return readCollection(ctx, m, snippetsKey, ValidateSnippet)
}

// SaveSnippet validates and appends a new snippet.
func (m *Manager) SaveSnippet(ctx context.Context, snippet model.Snippet) error {
	if !ValidateSnippet(snippet) {
		return apperror.ValidationFailed("snippet", "invalid snippet data")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	snippets, err := m.GetSnippets(ctx)
	if err != nil {
		return err
	}
	return writeCollection(ctx, m, snippetsKey, append(snippets, snippet))
}

// UpdateSnippet merges patch into the stored record, touches UpdatedAt, and
// re-validates before persisting.
func (m *Manager) UpdateSnippet(ctx context.Context, id string, patch model.SnippetPatch) (model.Snippet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	snippets, err := m.GetSnippets(ctx)
	if err != nil {
		return model.Snippet{}, err
	}

	for i, snippet := range snippets {
		if snippet.ID != id {
			continue
		}
		if patch.Title != nil {
			snippet.Title = *patch.Title
		}
		if patch.Description != nil {
			snippet.Description = *patch.Description
		}
		if patch.Code != nil {
			snippet.Code = *patch.Code
		}
		if patch.Language != nil {
			snippet.Language = *patch.Language
		}
		if patch.Tags != nil {
			snippet.Tags = *patch.Tags
		}
		if patch.IsPublic != nil {
			snippet.IsPublic = *patch.IsPublic
		}
		if patch.Likes != nil {
			snippet.Likes = *patch.Likes
		}
		snippet.UpdatedAt = time.Now()

		if !ValidateSnippet(snippet) {
			return model.Snippet{}, apperror.ValidationFailed("snippet", "invalid updated snippet data")
		}
		snippets[i] = snippet
		if err := writeCollection(ctx, m, snippetsKey, snippets); err != nil {
			return model.Snippet{}, err
		}
		return snippet, nil
	}

	return model.Snippet{}, apperror.NotFound("snippet", id)
}

// DeleteSnippet removes the snippet with the given id and persists the
// filtered collection.
func (m *Manager) DeleteSnippet(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snippets, err := m.GetSnippets(ctx)
	if err != nil {
		return err
	}

	filtered := snippets[:0:0]
	for _, snippet := range snippets {
		if snippet.ID != id {
			filtered = append(filtered, snippet)
		}
	}
	if len(filtered) == len(snippets) {
		return apperror.NotFound("snippet", id)
	}
	return writeCollection(ctx, m, snippetsKey, filtered)
}

// GetSession returns the stored session, or nil when the slot is empty.
// An unparsable slot is treated as corrupted: it is cleared and nil is
// returned rather than an error. Expiry is the auth layer's concern.
func (m *Manager) GetSession(ctx context.Context) (*model.Session, error) {
	data, ok, err := m.store.Get(ctx, sessionKey)
	if err != nil {
		return nil, apperror.Storage("reading session", err)
	}
	if !ok {
		return nil, nil
	}

	var session model.Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		m.logger.Warn("corrupted session slot, clearing", slog.String("error", err.Error()))
		if err := m.store.Remove(ctx, sessionKey); err != nil {
			return nil, apperror.Storage("clearing session", err)
		}
		return nil, nil
	}
	return &session, nil
}

// SetSession overwrites the single session slot.
func (m *Manager) SetSession(ctx context.Context, session model.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return apperror.Storage("encoding session", err)
	}
	if err := m.store.Set(ctx, sessionKey, string(data)); err != nil {
		return apperror.Storage("writing session", err)
	}
	return nil
}

// ClearSession empties the session slot. Idempotent.
func (m *Manager) ClearSession(ctx context.Context) error {
	if err := m.store.Remove(ctx, sessionKey); err != nil {
		return apperror.Storage("clearing session", err)
	}
	return nil
}

// GetResetTokens returns the stored password-reset tokens.
func (m *Manager) GetResetTokens(ctx context.Context) ([]model.ResetToken, error) {
	data, ok, err := m.store.Get(ctx, resetTokensKey)
	if err != nil {
		return nil, apperror.Storage("reading reset tokens", err)
	}
	if !ok {
		return []model.ResetToken{}, nil
	}
	var tokens []model.ResetToken
	if err := json.Unmarshal([]byte(data), &tokens); err != nil {
		m.logger.Warn("invalid reset token data, resetting", slog.String("error", err.Error()))
		return []model.ResetToken{}, nil
	}
	return tokens, nil
}

// SetResetTokens rewrites the whole reset-token array.
func (m *Manager) SetResetTokens(ctx context.Context, tokens []model.ResetToken) error {
	if tokens == nil {
		tokens = []model.ResetToken{}
	}
	data, err := json.Marshal(tokens)
	if err != nil {
		return apperror.Storage("encoding reset tokens", err)
	}
	if err := m.store.Set(ctx, resetTokensKey, string(data)); err != nil {
		return apperror.Storage("writing reset tokens", err)
	}
	return nil
}

// Version returns the stored schema version, with ok=false when no version
// marker exists (fresh install).
func (m *Manager) Version(ctx context.Context) (string, bool, error) {
	version, ok, err := m.store.Get(ctx, versionKey)
	if err != nil {
		return "", false, apperror.Storage("reading version", err)
	}
	return version, ok, nil
}

// SetVersion writes the schema version marker.
func (m *Manager) SetVersion(ctx context.Context, version string) error {
	if err := m.store.Set(ctx, versionKey, version); err != nil {
		return apperror.Storage("writing version", err)
	}
	return nil
}

// ClearVersion removes the schema version marker.
func (m *Manager) ClearVersion(ctx context.Context) error {
	if err := m.store.Remove(ctx, versionKey); err != nil {
		return apperror.Storage("clearing version", err)
	}
	return nil
}

// ClearAll unconditionally removes the users, snippets, session, and event
// log keys. A destructive reset — idempotent, and missing keys are fine.
// Reset tokens and the backup snapshot survive a clear.
func (m *Manager) ClearAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range []string{usersKey, snippetsKey, sessionKey, eventsKey} {
		if err := m.store.Remove(ctx, key); err != nil {
			return apperror.Storage("clearing "+key, err)
		}
	}
	m.logger.Info("all data cleared")
	return nil
}

// Stats returns record counts and the approximate serialized size of both
// collections. The size is computed by re-serializing the in-memory
// collections, not by measuring the store.
func (m *Manager) Stats(ctx context.Context) (model.Stats, error) {
	users, err := m.GetUsers(ctx)
	if err != nil {
		return model.Stats{}, err
	}
	snippets, err := m.GetSnippets(ctx)
	if err != nil {
		return model.Stats{}, err
	}

	public := 0
	for _, snippet := range snippets {
		if snippet.IsPublic {
			public++
		}
	}

	usersJSON, _ := json.Marshal(users)
	snippetsJSON, _ := json.Marshal(snippets)

	return model.Stats{
		Users:          len(users),
		Snippets:       len(snippets),
		PublicSnippets: public,
		TotalSize:      formatBytes(len(usersJSON) + len(snippetsJSON)),
	}, nil
}

// Backup snapshots both collections plus a timestamp under the backup key,
// overwriting any previous backup. Single slot, not versioned.
func (m *Manager) Backup(ctx context.Context) error {
	users, err := m.GetUsers(ctx)
	if err != nil {
		return err
	}
	snippets, err := m.GetSnippets(ctx)
	if err != nil {
		return err
	}

	data, err := json.Marshal(backup{
		Users:     users,
		Snippets:  snippets,
		Timestamp: time.Now(),
	})
	if err != nil {
		return apperror.Storage("encoding backup", err)
	}
	if err := m.store.Set(ctx, backupKey, string(data)); err != nil {
		return apperror.Storage("writing backup", err)
	}

	m.logger.Info("backup created",
		slog.Int("users", len(users)),
		slog.Int("snippets", len(snippets)),
	)
	return nil
}

// RestoreFromBackup overwrites the live collections with the backup's
// arrays. Returns false when no backup exists. Destructive, last-write-wins;
// each collection is restored only if its array decoded cleanly.
func (m *Manager) RestoreFromBackup(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok, err := m.store.Get(ctx, backupKey)
	if err != nil {
		return false, apperror.Storage("reading backup", err)
	}
	if !ok {
		m.logger.Warn("no backup found")
		return false, nil
	}

	var snapshot backup
	if err := json.Unmarshal([]byte(data), &snapshot); err != nil {
		return false, apperror.Storage("decoding backup", err)
	}

	if snapshot.Users != nil {
		if err := writeCollection(ctx, m, usersKey, snapshot.Users); err != nil {
			return false, err
		}
	}
	if snapshot.Snippets != nil {
		if err := writeCollection(ctx, m, snippetsKey, snapshot.Snippets); err != nil {
			return false, err
		}
	}

	m.logger.Info("data restored from backup", slog.Time("taken", snapshot.Timestamp))
	return true, nil
}

// formatBytes renders a byte count for humans: "512 B", "1.24 KB", "3.1 MB".
func formatBytes(n int) string {
	if n == 0 {
		return "0 B"
	}
	units := []string{"B", "KB", "MB", "GB"}
	i := int(math.Floor(math.Log(float64(n)) / math.Log(1024)))
	if i >= len(units) {
		i = len(units) - 1
	}
	value := float64(n) / math.Pow(1024, float64(i))
	return fmt.Sprintf("%s %s", trimZeros(value), units[i])
}

// trimZeros formats with two decimals, then drops a trailing ".00"/"0".
func trimZeros(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}
