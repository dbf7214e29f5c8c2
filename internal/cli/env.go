package cli

import (
	"context"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/wikidb/internal/config"
	"github.com/roach88/wikidb/internal/engine"
	"github.com/roach88/wikidb/internal/store"
	"github.com/roach88/wikidb/internal/types"
	"github.com/roach88/wikidb/internal/wiki"
)

// env is what a command works with: the configuration and, once opened,
// the store and engine.
type env struct {
	cfg *config.Config
	ns  *wiki.Namespaces
	reg *types.Registry
	log *slog.Logger

	store  *store.Store
	engine *engine.Engine
}

// newLogger logs to w at info level, or debug level with --verbose.
func newLogger(opts *RootOptions, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// loadEnv reads the configuration and builds the namespaces and type
// registry. It does not touch the database.
func loadEnv(opts *RootOptions, cmd *cobra.Command) (*env, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.Config != "" {
		cfg, err = config.Load(opts.Config)
	} else {
		cfg, err = config.Default()
	}
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load configuration", err)
	}
	if opts.Driver != "" {
		cfg.Database.Driver = opts.Driver
	}
	if opts.Database != "" {
		cfg.Database.DSN = opts.Database
	}

	ns, err := cfg.WikiNamespaces()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	reg, err := cfg.Registry(ns)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	return &env{cfg: cfg, ns: ns, reg: reg, log: newLogger(opts, cmd.ErrOrStderr())}, nil
}

// openEnv is loadEnv followed by opening the store, which creates or
// migrates its schema. Call close when done.
func openEnv(ctx context.Context, opts *RootOptions, cmd *cobra.Command) (*env, error) {
	e, err := loadEnv(opts, cmd)
	if err != nil {
		return nil, err
	}

	db := e.cfg.Database
	e.log.Debug("opening database", "driver", db.Driver)
	st, err := store.Open(ctx, db.Driver, db.DSN, store.WithNamespaces(e.ns), store.WithLogger(e.log))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	e.store = st

	engOpts := []engine.Option{
		engine.WithLogger(e.log),
		engine.WithMaxRefreshRate(e.cfg.MaxRefreshRate),
	}
	if opts.IDGenerator != nil {
		engOpts = append(engOpts, engine.WithIDGenerator(opts.IDGenerator))
	}
	e.engine = engine.New(st, e.reg, engOpts...)
	return e, nil
}

func (e *env) close() {
	if e.store == nil {
		return
	}
	if err := e.store.Close(); err != nil {
		e.log.Error("error closing database", "error", err)
	}
}

func formatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
