package migrate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sakif/learncode/internal/model"
)

// exportEnvelope is the shape Export produces and Import consumes.
type exportEnvelope struct {
	Version   string          `json:"version"`
	Timestamp time.Time       `json:"timestamp"`
	Users     []model.User    `json:"users"`
	Snippets  []model.Snippet `json:"snippets"`
}

// Info summarizes the store for the maintenance surface.
type Info struct {
	Version    string      `json:"version"`
	Stats      model.Stats `json:"stats"`
	Migrations []string    `json:"migrations"`
}

// Export serializes the current version marker and both collections as
// indented JSON, suitable for moving data between stores.
func (r *Runner) Export(ctx context.Context) (string, error) {
	users, err := r.db.GetUsers(ctx)
	if err != nil {
		return "", err
	}
	snippets, err := r.db.GetSnippets(ctx)
	if err != nil {
		return "", err
	}

	version, _, err := r.db.Version(ctx)
	if err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(exportEnvelope{
		Version:   version,
		Timestamp: time.Now(),
		Users:     users,
		Snippets:  snippets,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("migrate: encoding export: %w", err)
	}
	return string(data), nil
}

// Import replaces the live collections with the envelope's contents. The
// envelope must carry both arrays; each record goes through the normal save
// path, so invalid records and duplicate emails are rejected one by one.
func (r *Runner) Import(ctx context.Context, jsonData string) error {
	var envelope exportEnvelope
	if err := json.Unmarshal([]byte(jsonData), &envelope); err != nil {
		return fmt.Errorf("migrate: decoding import: %w", err)
	}
	if envelope.Users == nil || envelope.Snippets == nil {
		return fmt.Errorf("migrate: invalid import data format")
	}

	if err := r.db.ClearAll(ctx); err != nil {
		return err
	}
	for _, user := range envelope.Users {
		if err := r.db.SaveUser(ctx, user); err != nil {
			return fmt.Errorf("migrate: importing user %s: %w", user.ID, err)
		}
	}
	for _, snippet := range envelope.Snippets {
		if err := r.db.SaveSnippet(ctx, snippet); err != nil {
			return fmt.Errorf("migrate: importing snippet %s: %w", snippet.ID, err)
		}
	}

	r.logger.Info("database imported")
	return nil
}

// Reset wipes the collections and the version marker, then re-initializes
// from scratch — fresh install semantics, seed included.
func (r *Runner) Reset(ctx context.Context) error {
	if err := r.db.ClearAll(ctx); err != nil {
		return err
	}
	if err := r.db.ClearVersion(ctx); err != nil {
		return err
	}
	return r.Initialize(ctx)
}

// DatabaseInfo returns the stored version, current stats, and the known
// migration versions.
func (r *Runner) DatabaseInfo(ctx context.Context) (Info, error) {
	version, ok, err := r.db.Version(ctx)
	if err != nil {
		return Info{}, err
	}
	if !ok {
		version = "unknown"
	}
	stats, err := r.db.Stats(ctx)
	if err != nil {
		return Info{}, err
	}

	versions := make([]string, 0, len(r.migrations))
	for _, migration := range r.migrations {
		versions = append(versions, migration.Version+": "+migration.Description)
	}
	return Info{Version: version, Stats: stats, Migrations: versions}, nil
}
