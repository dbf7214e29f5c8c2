package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// RefreshOptions holds flags for the refresh command.
type RefreshOptions struct {
	*RootOptions
	Limit int
	Force bool
}

// RefreshResult is the output of the refresh command.
type RefreshResult struct {
	Marked    int64 `json:"marked,omitempty"`
	Refreshed int   `json:"refreshed"`
	Remaining int   `json:"remaining"`
}

// NewRefreshCommand creates the refresh command.
func NewRefreshCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RefreshOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Rebuild stale rows",
		Long: `Rebuild the field index of rows whose table definition changed since they
were written. Without --limit one batch of the configured size is refreshed;
--limit 0 refreshes every stale row.

--force marks every row stale first, which rebuilds the whole index.

Examples:
  wikidb refresh
  wikidb refresh --limit 0
  wikidb refresh --force --limit 0`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var limit *int
			if cmd.Flags().Changed("limit") {
				if opts.Limit < 0 {
					return NewExitError(ExitCommandError, fmt.Sprintf("invalid --limit %d: must not be negative", opts.Limit))
				}
				limit = &opts.Limit
			}
			return runRefresh(opts, limit, cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 0, "rows to refresh, 0 for all")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "mark every row stale first")

	return cmd
}

func runRefresh(opts *RefreshOptions, limit *int, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	e, err := openEnv(ctx, opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer e.close()

	var res RefreshResult
	if opts.Force {
		if res.Marked, err = e.engine.MarkAllRowsStale(ctx); err != nil {
			return WrapExitError(ExitCommandError, "failed to mark rows stale", err)
		}
	}
	if res.Refreshed, err = e.engine.RefreshStaleFieldData(ctx, limit); err != nil {
		return WrapExitError(ExitCommandError, "refresh failed", err)
	}
	if res.Remaining, err = e.engine.CountStaleRows(ctx); err != nil {
		return WrapExitError(ExitCommandError, "failed to count stale rows", err)
	}

	return formatter(opts.RootOptions, cmd).Success(res, func(w io.Writer) error {
		if opts.Force {
			fmt.Fprintf(w, "marked %d rows stale\n", res.Marked)
		}
		_, err := fmt.Fprintf(w, "refreshed %d rows, %d remaining\n", res.Refreshed, res.Remaining)
		return err
	})
}
