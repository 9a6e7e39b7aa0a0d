// Package main is the entry point for the learncode maintenance CLI.
//
// The CLI is the operational surface of the snippet store: it runs
// migrations, inspects stats and the event log, manages backups, and
// performs the maintenance operations (token cleanup, rollback, reset)
// that nothing schedules automatically.
//
// main stays minimal: read configuration, build the dependency graph
// (store → database manager → services → migration runner), hand it to the
// subcommands. All actual logic lives in internal/.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/sakif/learncode/internal/auth"
	"github.com/sakif/learncode/internal/database"
	"github.com/sakif/learncode/internal/kvstore"
	"github.com/sakif/learncode/internal/migrate"
	"github.com/sakif/learncode/internal/service"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// app bundles the wired dependency graph for the subcommands.
type app struct {
	db     *database.Manager
	runner *migrate.Runner
	auth   *service.AuthService
	logger *slog.Logger
	close  func()
}

// newApp reads configuration and wires everything together.
//
// Configuration comes from the environment, with a .env file loaded first
// if one exists:
//
//	DB_PATH        path to the SQLite store (default data/learncode.db)
//	SESSION_SECRET HMAC secret for session tokens; generate with
//	               `openssl rand -hex 32`. A development fallback is used
//	               when unset — fine for local maintenance, never for a
//	               deployment.
func newApp(ctx context.Context) (*app, error) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file found, using system environment")
	}

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = filepath.Join("data", "learncode.db")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	secret := os.Getenv("SESSION_SECRET")
	if secret == "" {
		logger.Warn("SESSION_SECRET not set, using development fallback")
		secret = "learncode-dev-secret-not-for-production"
	}

	store, err := kvstore.OpenSQLite(dbPath)
	if err != nil {
		return nil, err
	}

	db, err := database.NewManager(ctx, store, logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	passwords := auth.NewPasswordService()
	tokens, err := auth.NewTokenService(secret)
	if err != nil {
		store.Close()
		return nil, err
	}

	return &app{
		db:     db,
		runner: migrate.NewRunner(db, passwords, logger),
		auth:   service.NewAuthService(db, passwords, tokens, auth.NewLoginLimiter(), logger),
		logger: logger,
		close:  func() { store.Close() },
	}, nil
}

// withApp wraps a subcommand body with wiring and teardown.
func withApp(run func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()
		return run(ctx, a, cmd, args)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "learncode",
		Short:         "Maintenance CLI for the learncode snippet store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newMigrateCmd(),
		newRollbackCmd(),
		newStatsCmd(),
		newInfoCmd(),
		newBackupCmd(),
		newRestoreCmd(),
		newCleanupCmd(),
		newEventsCmd(),
		newResetCmd(),
		newExportCmd(),
		newImportCmd(),
	)
	return root
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Bring the store up to the current schema version (seeds fresh installs)",
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
			if err := a.runner.Initialize(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "database is up to date")
			return nil
		}),
	}
}

func newRollbackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rollback",
		Short: "Run down-migrations back to a target version",
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
			to, _ := cmd.Flags().GetString("to")
			if err := a.runner.Rollback(ctx, to); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rolled back to version %s\n", to)
			return nil
		}),
	}
	cmd.Flags().String("to", "0.0.0", "Version to roll back to")
	return cmd
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show record counts and approximate data size",
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
			stats, err := a.db.Stats(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "users:           %d\n", stats.Users)
			fmt.Fprintf(out, "snippets:        %d\n", stats.Snippets)
			fmt.Fprintf(out, "public snippets: %d\n", stats.PublicSnippets)
			fmt.Fprintf(out, "total size:      %s\n", stats.TotalSize)
			return nil
		}),
	}
}

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show schema version, stats, and known migrations",
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
			info, err := a.runner.DatabaseInfo(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "version: %s\n", info.Version)
			fmt.Fprintf(out, "users: %d  snippets: %d  public: %d  size: %s\n",
				info.Stats.Users, info.Stats.Snippets, info.Stats.PublicSnippets, info.Stats.TotalSize)
			for _, migration := range info.Migrations {
				fmt.Fprintf(out, "migration: %s\n", migration)
			}
			return nil
		}),
	}
}

func newBackupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Snapshot both collections into the single backup slot",
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
			if err := a.db.Backup(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "backup created")
			return nil
		}),
	}
}

func newRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore",
		Short: "Overwrite live collections from the backup slot",
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
			restored, err := a.db.RestoreFromBackup(ctx)
			if err != nil {
				return err
			}
			if !restored {
				fmt.Fprintln(cmd.OutOrStdout(), "no backup found")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "data restored from backup")
			return nil
		}),
	}
}

func newCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Prune expired and used password-reset tokens",
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
			removed, err := a.auth.CleanupExpiredTokens(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d reset tokens\n", removed)
			return nil
		}),
	}
}

func newEventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show recent entries from the persisted event log",
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			events, err := a.db.RecentEvents(ctx, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(events) == 0 {
				fmt.Fprintln(out, "event log is empty")
				return nil
			}
			for _, event := range events {
				fmt.Fprintf(out, "%s  %-7s  %s\n",
					event.Timestamp.Format("2006-01-02 15:04:05"), event.Level, event.Message)
			}
			return nil
		}),
	}
	cmd.Flags().Int("limit", 10, "Maximum number of events to show")
	return cmd
}

func newResetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Wipe all data and re-initialize from scratch (destructive)",
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
			confirmed, _ := cmd.Flags().GetBool("yes")
			if !confirmed {
				return fmt.Errorf("reset is destructive; re-run with --yes to confirm")
			}
			if err := a.runner.Reset(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "database reset complete")
			return nil
		}),
	}
	cmd.Flags().Bool("yes", false, "Confirm the destructive reset")
	return cmd
}

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Write both collections as JSON to stdout",
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
			data, err := a.runner.Export(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), data)
			return nil
		}),
	}
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace live collections with an exported JSON file (destructive)",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading import file: %w", err)
			}
			if err := a.runner.Import(ctx, string(data)); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "database imported")
			return nil
		}),
	}
}
