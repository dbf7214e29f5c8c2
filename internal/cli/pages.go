package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/wikidb/internal/engine"
	"github.com/roach88/wikidb/internal/wiki"
)

// UpdateResult is the report of one page write.
type UpdateResult struct {
	Page        string `json:"page"`
	Unit        string `json:"unit"`
	Deleted     bool   `json:"deleted,omitempty"`
	TableSaved  bool   `json:"table_saved,omitempty"`
	RowsRemoved int64  `json:"rows_removed"`
	RowsWritten int    `json:"rows_written"`
	StaleRows   int64  `json:"stale_rows,omitempty"`
}

func toUpdateResults(updates []engine.Update) []UpdateResult {
	out := make([]UpdateResult, len(updates))
	for i, u := range updates {
		out[i] = UpdateResult{
			Page:        u.Page.FullText(),
			Unit:        u.Unit,
			Deleted:     u.Deleted,
			TableSaved:  u.TableSaved,
			RowsRemoved: u.RowsRemoved,
			RowsWritten: u.RowsWritten,
			StaleRows:   u.StaleRows,
		}
	}
	return out
}

func writeUpdates(w io.Writer, results []UpdateResult) error {
	for _, r := range results {
		verb := "updated"
		if r.Deleted {
			verb = "deleted"
		}
		line := fmt.Sprintf("%s %s: -%d +%d rows", verb, r.Page, r.RowsRemoved, r.RowsWritten)
		if r.TableSaved {
			line += ", table definition"
		}
		if r.StaleRows > 0 {
			line += fmt.Sprintf(", %d rows stale", r.StaleRows)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// readInput reads the named file, or standard input for "-".
func readInput(cmd *cobra.Command, name string) (io.ReadCloser, error) {
	if name == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open input", err)
	}
	return f, nil
}

// NewImportCommand creates the import command.
func NewImportCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <dump.yaml|->",
		Short: "Apply a page dump",
		Long: `Apply a YAML page dump through the write path, in order. Each entry
updates a page with new text or deletes it:

  - title: Table:People
    text: |
      > Name : string
      > Age : integer
  - title: Old page
    deleted: true

Each page is written in its own transaction; the import stops at the first
failure.

Examples:
  wikidb import pages.yaml
  cat pages.yaml | wikidb import -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			defer in.Close()

			changes, err := engine.ParseDump(in)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid page dump", err)
			}

			ctx := commandContext(cmd)
			e, err := openEnv(ctx, opts, cmd)
			if err != nil {
				return err
			}
			defer e.close()

			updates, err := e.engine.Apply(ctx, changes)
			results := toUpdateResults(updates)
			if err != nil {
				_ = writeUpdates(cmd.OutOrStdout(), results)
				return WrapExitError(ExitFailure, fmt.Sprintf("import stopped after %d of %d pages", len(updates), len(changes)), err)
			}
			return formatter(opts, cmd).Success(results, func(w io.Writer) error {
				if err := writeUpdates(w, results); err != nil {
					return err
				}
				_, err := fmt.Fprintf(w, "Imported %d pages\n", len(results))
				return err
			})
		},
	}
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <title>...",
		Short: "Delete pages",
		Long: `Remove everything stored for the given pages: their rows and, for pages
in a table namespace, their table definition.

Example:
  wikidb delete "Table:People" "Staff list"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			e, err := openEnv(ctx, opts, cmd)
			if err != nil {
				return err
			}
			defer e.close()

			var updates []engine.Update
			for _, arg := range args {
				page, err := e.ns.ParseTitle(arg, wiki.NSMain)
				if err != nil {
					return WrapExitError(ExitCommandError, fmt.Sprintf("invalid title %q", arg), err)
				}
				u, err := e.engine.PageDeleted(ctx, page)
				if err != nil {
					return WrapExitError(ExitFailure, "failed to delete "+page.FullText(), err)
				}
				updates = append(updates, u)
			}

			results := toUpdateResults(updates)
			return formatter(opts, cmd).Success(results, func(w io.Writer) error {
				return writeUpdates(w, results)
			})
		},
	}
}
