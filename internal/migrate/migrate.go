// Package migrate tracks the schema version marker and applies versioned
// migration steps at startup.
//
// The version marker is a plain MAJOR.MINOR.PATCH string in the store.
// Three states exist: no marker (fresh install — every step runs), a marker
// below the target (only steps strictly above it run), and a marker equal to
// the target (no-op). After any run the marker is set to the target.
//
// Today exactly one step exists (the sample-data seed), but the runner
// handles any number: steps are kept sorted and compared with a three-part
// numeric rule, missing parts padded with zero.
package migrate

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/sakif/learncode/internal/auth"
	"github.com/sakif/learncode/internal/database"
)

// TargetVersion is the schema version this build expects.
const TargetVersion = "1.0.0"

// Migration is one versioned step. Up applies it; Down undoes it. Down is
// only reached through Rollback, which nothing triggers automatically.
type Migration struct {
	Version     string
	Description string
	Up          func(ctx context.Context) error
	Down        func(ctx context.Context) error
}

// Runner applies migrations against the database manager.
type Runner struct {
	db         *database.Manager
	logger     *slog.Logger
	migrations []Migration
	target     string
}

// NewRunner creates a Runner with the standard migration list. The password
// service is needed because the seed step stores real bcrypt hashes.
func NewRunner(db *database.Manager, passwords *auth.PasswordService, logger *slog.Logger) *Runner {
	r := &Runner{
		db:     db,
		logger: logger,
		target: TargetVersion,
	}
	r.migrations = []Migration{
		{
			Version:     "1.0.0",
			Description: "initial setup with sample data",
			Up: func(ctx context.Context) error {
				return seedSampleData(ctx, db, passwords, logger)
			},
			Down: func(ctx context.Context) error {
				return db.ClearAll(ctx)
			},
		},
	}
	sort.Slice(r.migrations, func(i, j int) bool {
		return compareVersions(r.migrations[i].Version, r.migrations[j].Version) < 0
	})
	return r
}

// Migrations returns the known steps, in order.
func (r *Runner) Migrations() []Migration {
	return r.migrations
}

// Initialize brings the store up to the target version. Fresh installs run
// every step; stale stores run only the steps above the recorded version;
// up-to-date stores are a no-op. Ends with a cheap integrity check.
func (r *Runner) Initialize(ctx context.Context) error {
	current, ok, err := r.db.Version(ctx)
	if err != nil {
		return err
	}

	switch {
	case !ok:
		r.logger.Info("fresh installation detected, setting up database")
		if err := r.run(ctx, ""); err != nil {
			return err
		}
	case current != r.target:
		r.logger.Info("database version mismatch, migrating",
			slog.String("current", current),
			slog.String("required", r.target),
		)
		if err := r.run(ctx, current); err != nil {
			return err
		}
	default:
		r.logger.Debug("database is up to date", slog.String("version", current))
		return r.verifyIntegrity(ctx)
	}

	if err := r.db.SetVersion(ctx, r.target); err != nil {
		return err
	}
	return r.verifyIntegrity(ctx)
}

// run applies every step strictly above fromVersion, in ascending order.
// An empty fromVersion means "run everything".
func (r *Runner) run(ctx context.Context, fromVersion string) error {
	ran := 0
	for _, migration := range r.migrations {
		if fromVersion != "" && compareVersions(migration.Version, fromVersion) <= 0 {
			continue
		}
		r.logger.Info("running migration",
			slog.String("version", migration.Version),
			slog.String("description", migration.Description),
		)
		if err := migration.Up(ctx); err != nil {
			return fmt.Errorf("migrate: step %s: %w", migration.Version, err)
		}
		ran++
	}
	r.logger.Info("migrations complete", slog.Int("ran", ran))
	return nil
}

// Rollback runs Down steps in descending order for every migration above
// toVersion, then records toVersion as the current version. Callable
// maintenance only — the startup path never invokes it.
func (r *Runner) Rollback(ctx context.Context, toVersion string) error {
	for i := len(r.migrations) - 1; i >= 0; i-- {
		migration := r.migrations[i]
		if compareVersions(migration.Version, toVersion) <= 0 {
			continue
		}
		r.logger.Info("rolling back migration", slog.String("version", migration.Version))
		if err := migration.Down(ctx); err != nil {
			return fmt.Errorf("migrate: rolling back %s: %w", migration.Version, err)
		}
	}
	if err := r.db.SetVersion(ctx, toVersion); err != nil {
		return err
	}
	r.logger.Info("rolled back", slog.String("version", toVersion))
	return nil
}

// verifyIntegrity re-reads the stats and fails on a negative count.
// A sanity check, not a consistency proof.
func (r *Runner) verifyIntegrity(ctx context.Context) error {
	stats, err := r.db.Stats(ctx)
	if err != nil {
		return err
	}
	if stats.Users < 0 || stats.Snippets < 0 {
		return fmt.Errorf("migrate: invalid database state (users=%d, snippets=%d)", stats.Users, stats.Snippets)
	}
	r.logger.Debug("database integrity verified",
		slog.Int("users", stats.Users),
		slog.Int("snippets", stats.Snippets),
		slog.String("size", stats.TotalSize),
	)
	return nil
}

// compareVersions compares two MAJOR.MINOR.PATCH strings numerically,
// padding missing parts with zero. Returns -1, 0, or 1.
func compareVersions(a, b string) int {
	partsA := strings.Split(a, ".")
	partsB := strings.Split(b, ".")

	n := len(partsA)
	if len(partsB) > n {
		n = len(partsB)
	}
	for i := 0; i < n; i++ {
		numA := versionPart(partsA, i)
		numB := versionPart(partsB, i)
		if numA > numB {
			return 1
		}
		if numA < numB {
			return -1
		}
	}
	return 0
}

func versionPart(parts []string, i int) int {
	if i >= len(parts) {
		return 0
	}
	n, err := strconv.Atoi(parts[i])
	if err != nil {
		return 0
	}
	return n
}
