package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"legacy-sync/internal/config"
	"legacy-sync/internal/contextutil"
	"legacy-sync/internal/dump"
	"legacy-sync/internal/migrate"
	"legacy-sync/internal/objectstore"
	"legacy-sync/internal/rows"
	"legacy-sync/internal/storage"
)

//go:generate swagger generate spec -o swagger.json

// General API information
//
// This API triggers and reports on migrations of a legacy WordPress SQL dump
// into the target record store.
//
// swagger:meta
//
// ---
// swagger: '2.0'
// info:
//   title: Legacy Sync API
//   description: |
//     Operational API for the legacy content migration. Start a run, poll the
//     latest run summary and inspect migrated records.
//   version: 1.0.0
// schemes:
//   - http
// produces:
//   - application/json

// app holds the components shared by every command.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	db      *sql.DB
	records *storage.RecordRepo
	runner  *migrate.Runner
	dump    string
}

var current *app

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "legacy-sync",
	Short: "Migrate a legacy WordPress SQL dump into the record store",
	Long: `legacy-sync streams a WordPress SQL dump, rebuilds the relations between
posts, meta, terms and attachments, rewrites legacy media URLs to the object
store and upserts the cleaned records in batches.

Configuration is read from the environment or a .env file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		current = a
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "Port to listen on (default: API_PORT)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if current != nil {
		_ = current.db.Close()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitError carries a process exit code.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}

// setup loads configuration, configures logging and opens the stores.
func setup() (*app, error) {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	// Initialize database
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := storage.Migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	// Create repository instances
	recordRepo := storage.NewRecordRepo(db)
	runRepo := storage.NewRunRepo(db)

	objects, err := objectstore.NewLocalStore(cfg.ObjectStoreRoot, cfg.ObjectStorePublicURL)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open object store: %w", err)
	}
	slog.Info("Object store ready", "root", cfg.ObjectStoreRoot, "public_url", cfg.ObjectStorePublicURL)

	source := dump.FileSource{Path: cfg.DumpPath}
	pipeline := migrate.NewPipeline(source, recordRepo, objects, pipelineOptions(cfg))

	return &app{
		cfg:     cfg,
		logger:  logger,
		db:      db,
		records: recordRepo,
		runner:  migrate.NewRunner(pipeline, runRepo),
		dump:    source.Name(),
	}, nil
}

// commandContext returns the command context carrying the application logger.
func (a *app) commandContext(cmd *cobra.Command) context.Context {
	return contextutil.WithLogger(cmd.Context(), a.logger)
}

// pipelineOptions maps configuration onto pipeline options, keeping the
// built-in lists where the configuration leaves them empty.
func pipelineOptions(cfg *config.Config) migrate.Options {
	opts := migrate.DefaultOptions()
	opts.Tables = rows.TablesFor(cfg.TablePrefix)
	opts.PostTypes = make([]rows.PostType, 0, len(cfg.PostTypes))
	for _, t := range cfg.PostTypes {
		opts.PostTypes = append(opts.PostTypes, rows.PostType(t))
	}
	opts.PostStatuses = make([]rows.PostStatus, 0, len(cfg.PostStatuses))
	for _, s := range cfg.PostStatuses {
		opts.PostStatuses = append(opts.PostStatuses, rows.PostStatus(s))
	}
	if len(cfg.GalleryMetaKeys) > 0 {
		opts.GalleryKeys = cfg.GalleryMetaKeys
	}
	if len(cfg.ShortcodePrefixes) > 0 {
		opts.StripPrefixes = cfg.ShortcodePrefixes
	}
	opts.LegacyDomains = cfg.LegacyDomains
	opts.UploadsPath = cfg.LegacyUploadsPath
	opts.AssetRoot = cfg.AssetRoot
	opts.ObjectPrefix = cfg.ObjectStorePrefix
	opts.FuzzyMinLength = cfg.FuzzyMinLength
	opts.MirrorAssets = cfg.MirrorAssets
	opts.BatchSize = cfg.BatchSize
	opts.UploadConcurrency = cfg.UploadConcurrency
	return opts
}
