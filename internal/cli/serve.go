package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/wikidb/internal/server"
)

// NewServeCommand creates the serve command.
func NewServeCommand(opts *RootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: `Serve the HTTP API and refresh stale rows in the background, on the
configured interval and whenever a write leaves rows stale.

Routes:
  GET    /healthz
  GET    /api/tables
  GET    /api/tables/:table/rows
  PUT    /api/pages/*title
  DELETE /api/pages/*title
  POST   /api/refresh

Example:
  wikidb serve --db wiki.sqlite --addr :8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(commandContext(cmd))
			defer cancel()

			e, err := openEnv(ctx, opts, cmd)
			if err != nil {
				return err
			}
			defer e.close()
			if addr == "" {
				addr = e.cfg.Server.Addr
			}

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigChan)

			go func() {
				select {
				case sig := <-sigChan:
					e.log.Info("received signal, shutting down", "signal", sig)
					cancel()
				case <-ctx.Done():
				}
			}()

			refresher := e.engine.NewRefresher(e.cfg.RefreshEvery())
			refreshDone := make(chan error, 1)
			go func() { refreshDone <- refresher.Run(ctx) }()

			srv := server.New(e.engine, server.WithRefresher(refresher), server.WithLogger(e.log))
			fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s. Press Ctrl-C to stop.\n", addr)
			serveErr := srv.Run(ctx, addr)

			cancel()
			if err := <-refreshDone; err != nil && !errors.Is(err, context.Canceled) {
				e.log.Error("refresher stopped", "error", err)
			}
			if serveErr != nil {
				return WrapExitError(ExitFailure, "server error", serveErr)
			}
			e.log.Info("server stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides the configuration)")
	return cmd
}
