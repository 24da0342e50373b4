package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rebeliceyang/lazysearch/internal/backend"
	"github.com/rebeliceyang/lazysearch/internal/catalog"
	"github.com/rebeliceyang/lazysearch/internal/compiler"
	"github.com/rebeliceyang/lazysearch/internal/config"
	"github.com/rebeliceyang/lazysearch/internal/db/connection"
	"github.com/rebeliceyang/lazysearch/internal/db/metadata"
	"github.com/rebeliceyang/lazysearch/internal/history"
	"github.com/rebeliceyang/lazysearch/internal/logging"
	"github.com/rebeliceyang/lazysearch/internal/profile"
	"github.com/rebeliceyang/lazysearch/internal/session"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "lazysearch",
	Short: "Saved, reusable record searches over PostgreSQL",
	Long: `lazysearch keeps named search profiles: ordered field conditions or a
filter expression over one entity type. Choosing a profile compiles its
conditions into a filter, validates it by running it once, and opens the
matching records.

Run without arguments to pick a profile interactively.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractive(cmd.Context(), "")
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default: <user config dir>/lazysearch/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(searchCmd, compileCmd, profileCmd, actionCmd, historyCmd, entitiesCmd, passwordCmd)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// env holds what the commands share; fields are opened on demand
type env struct {
	cfg     *config.Config
	logger  *zap.Logger
	store   *profile.Store
	pool    *connection.Pool
	catalog catalog.Catalog
	history *history.Store
}

// openEnv loads the config and opens the profile store. interactive routes
// logs to the log file so they do not draw over the terminal UI.
func openEnv(interactive bool) (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Log.Level = "debug"
	}

	var logger *zap.Logger
	if interactive {
		logger, err = logging.NewFile(cfg.Log)
	} else {
		logger, err = logging.New(cfg.Log)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	store, err := profile.NewStore(cfg.Storage.Path, logger.Named("profiles"))
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	return &env{cfg: cfg, logger: logger, store: store}, nil
}

func (e *env) Close() {
	if e.history != nil {
		if err := e.history.Close(); err != nil {
			e.logger.Warn("failed to close history", zap.Error(err))
		}
	}
	if e.pool != nil {
		e.pool.Close()
	}
	if err := e.store.Close(); err != nil {
		e.logger.Warn("failed to close profile store", zap.Error(err))
	}
	_ = e.logger.Sync()
}

// connect opens the database pool, resolving the password from the keyring
// or ~/.pgpass when the config has none
func (e *env) connect(ctx context.Context) (*connection.Pool, error) {
	if e.pool != nil {
		return e.pool, nil
	}
	dbCfg := connection.ResolvePassword(e.cfg.Database, connection.NewPasswordStore())
	pool, err := connection.NewPool(ctx, dbCfg, e.cfg.Performance.ConnectionPoolSize)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("connected",
		zap.String("host", dbCfg.Host),
		zap.Int("port", dbCfg.Port),
		zap.String("database", dbCfg.Database))
	e.pool = pool
	return pool, nil
}

// loadCatalog returns the entity catalog named by the config
func (e *env) loadCatalog(ctx context.Context) (catalog.Catalog, error) {
	if e.catalog != nil {
		return e.catalog, nil
	}
	switch e.cfg.Catalog.Source {
	case "postgres":
		pool, err := e.connect(ctx)
		if err != nil {
			return nil, err
		}
		e.catalog = metadata.NewCatalog(pool, e.cfg.Database.Schema, e.cfg.Catalog.Searchable, e.cfg.Catalog.CacheTTLDuration())
	default:
		cat, err := catalog.LoadFile(e.cfg.Catalog.File)
		if err != nil {
			return nil, err
		}
		e.catalog = cat
	}
	return e.catalog, nil
}

func (e *env) compiler(ctx context.Context) (*compiler.Compiler, error) {
	cat, err := e.loadCatalog(ctx)
	if err != nil {
		return nil, err
	}
	return compiler.New(cat, e.store), nil
}

func (e *env) openHistory() (*history.Store, error) {
	if !e.cfg.History.Enabled {
		return nil, nil
	}
	if e.history != nil {
		return e.history, nil
	}
	h, err := history.NewStore(e.cfg.History.Path, history.Options{
		MaxEntries: e.cfg.History.MaxEntries,
		SaveFailed: e.cfg.History.SaveFailed,
	})
	if err != nil {
		return nil, err
	}
	e.history = h
	return h, nil
}

// sessionConfig wires a search session to the database
func (e *env) sessionConfig(ctx context.Context) (session.Config, error) {
	comp, err := e.compiler(ctx)
	if err != nil {
		return session.Config{}, err
	}
	pool, err := e.connect(ctx)
	if err != nil {
		return session.Config{}, err
	}

	cfg := session.Config{
		Compiler: comp,
		Catalog:  e.catalog,
		Searcher: backend.NewPostgres(pool, e.catalog, e.cfg.Database.Schema, e.cfg.Performance.QueryTimeoutDuration(), e.logger.Named("backend")),
		Actions:  e.store,
		Logger:   e.logger.Named("session"),
	}
	h, err := e.openHistory()
	if err != nil {
		return session.Config{}, err
	}
	if h != nil {
		cfg.History = h
	}
	return cfg, nil
}
