package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/researchgraph/crossref/internal/cache"
	"github.com/researchgraph/crossref/internal/config"
	"github.com/researchgraph/crossref/internal/store"
	"github.com/researchgraph/crossref/internal/util"
	"github.com/researchgraph/crossref/pkg/crossref"
	"github.com/researchgraph/crossref/pkg/logger"
	"github.com/researchgraph/crossref/pkg/logger/console"
)

var (
	cfg  *config.Config
	flags struct {
		configFile     string
		cache          string
		versionsFolder string
		migrations     string
		databaseURL    string
		dbHost         string
		dbPort         int
		dbUser         string
		dbPassword     string
		dbName         string
		debug          bool
	}
)

var rootCmd = &cobra.Command{
	Use:   "crossref",
	Short: "Resolve DOIs against CrossRef and import them into the research graph",
	Long: `crossref resolves DOI identifiers against the CrossRef registry and
imports the resolved publications, authors and authorship relationships
into the graph store as batched, deduplicated upserts.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		util.LoadEnv()

		loaded, err := config.Load(flags.configFile)
		if err != nil {
			return err
		}
		cfg = loaded
		applyFlagOverrides(cmd)

		logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{
			Debug: cfg.Debug,
		}))
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.configFile, "config", "c", "", "configuration file (optional)")
	pf.StringVarP(&flags.cache, "cache", "C", "", "CrossRef cache (folder or s3://bucket/prefix)")
	pf.StringVarP(&flags.versionsFolder, "versions-folder", "v", "", "versions folder")
	pf.StringVar(&flags.migrations, "migrations", "", "migrations folder")
	pf.StringVar(&flags.databaseURL, "database-url", "", "database connection URL")
	pf.StringVarP(&flags.dbHost, "db-host", "H", "", "database host")
	pf.IntVarP(&flags.dbPort, "db-port", "P", 0, "database port")
	pf.StringVarP(&flags.dbUser, "db-user", "u", "", "database user")
	pf.StringVarP(&flags.dbPassword, "db-password", "p", "", "database password")
	pf.StringVarP(&flags.dbName, "db-name", "d", "", "database name")
	pf.BoolVar(&flags.debug, "debug", false, "enable debug logging")
}

// applyFlagOverrides copies explicitly set flags over the loaded config, so
// precedence is flag > config file > environment > default.
func applyFlagOverrides(cmd *cobra.Command) {
	set := cmd.Flags().Changed
	if set("cache") {
		cfg.Cache = flags.cache
	}
	if set("versions-folder") {
		cfg.VersionsFolder = flags.versionsFolder
	}
	if set("migrations") {
		cfg.Migrations = flags.migrations
	}
	if set("database-url") {
		cfg.Database.URL = flags.databaseURL
	}
	if set("db-host") {
		cfg.Database.Host = flags.dbHost
	}
	if set("db-port") {
		cfg.Database.Port = flags.dbPort
	}
	if set("db-user") {
		cfg.Database.User = flags.dbUser
	}
	if set("db-password") {
		cfg.Database.Password = flags.dbPassword
	}
	if set("db-name") {
		cfg.Database.Name = flags.dbName
	}
	if set("debug") {
		cfg.Debug = flags.debug
	}
}

// bootstrap connects the database, applies migrations and builds the store
// and metadata client shared by the subcommands.
func bootstrap(ctx context.Context) (*pgxpool.Pool, *store.DB, *crossref.Client, error) {
	if err := runMigrations(); err != nil {
		return nil, nil, nil, err
	}

	pool, err := pgxpool.New(ctx, cfg.Database.ConnString())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connecting to database: %w", err)
	}

	db := store.New(pool)

	cacheBackend, err := cache.New(ctx, cfg.Cache)
	if err != nil {
		pool.Close()
		return nil, nil, nil, err
	}

	client := crossref.NewClient(crossref.ClientParams{
		Cache:        cacheBackend,
		Authorities:  db,
		Works:        db,
		MaxAttempts:  cfg.MaxAttempts,
		AttemptDelay: time.Duration(cfg.AttemptDelayMS) * time.Millisecond,
	})
	return pool, db, client, nil
}

func runMigrations() error {
	m, err := migrate.New("file://"+cfg.Migrations, cfg.Database.ConnString())
	if err != nil {
		return fmt.Errorf("initializing migrations: %w", err)
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
