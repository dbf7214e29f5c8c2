package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/wikidb/internal/store"
)

// TableEntry is one table in the tables listing.
type TableEntry struct {
	Title    string `json:"title"`
	Redirect string `json:"redirect,omitempty"`
	Rows     int    `json:"rows"`
}

// NewTablesCommand creates the tables command.
func NewTablesCommand(opts *RootOptions) *cobra.Command {
	var undefined, empty bool

	cmd := &cobra.Command{
		Use:   "tables",
		Short: "List tables",
		Long: `List the defined tables with their row counts. A table that is an alias
of another shows the table it redirects to.

--undefined lists tables that have rows but no definition page; --empty
lists defined tables without rows.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			e, err := openEnv(ctx, opts, cmd)
			if err != nil {
				return err
			}
			defer e.close()

			var list func(context.Context) ([]store.TableInfo, error)
			switch {
			case undefined:
				list = e.store.UndefinedTables
			case empty:
				list = e.store.EmptyTables
			default:
				list = e.store.Tables
			}
			infos, err := list(ctx)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to list tables", err)
			}

			entries := make([]TableEntry, len(infos))
			for i, info := range infos {
				entries[i] = TableEntry{Title: info.Title.FullText(), Rows: info.Rows}
				if !info.Redirect.IsZero() {
					entries[i].Redirect = info.Redirect.FullText()
				}
			}

			return formatter(opts, cmd).Success(entries, func(w io.Writer) error {
				if len(entries) == 0 {
					_, err := fmt.Fprintln(w, "No tables.")
					return err
				}
				tw := newTable(w)
				fmt.Fprintln(tw, "TITLE\tROWS\tREDIRECT")
				for _, t := range entries {
					fmt.Fprintf(tw, "%s\t%d\t%s\n", t.Title, t.Rows, t.Redirect)
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().BoolVar(&undefined, "undefined", false, "list tables with rows but no definition")
	cmd.Flags().BoolVar(&empty, "empty", false, "list defined tables without rows")
	cmd.MarkFlagsMutuallyExclusive("undefined", "empty")

	return cmd
}
