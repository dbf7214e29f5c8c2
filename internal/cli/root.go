package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/wikidb/internal/engine"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	// Config is the path of a TOML or YAML configuration file. Without one
	// the built-in defaults apply.
	Config string

	// Database and Driver override the configured DSN and driver.
	Database string
	Driver   string

	// IDGenerator overrides the processing unit id generator (for testing).
	IDGenerator engine.IDGenerator
}

// ValidFormats lists the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the wikidb command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wikidb",
		Short: "Structured data in wiki pages",
		Long: `wikidb stores the table definitions and <data> tags of wiki pages and
answers queries over them.

Pages are written with import and delete; tables are queried with query.
Changing a table definition marks the rows of the table stale until refresh
rebuilds them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVarP(&opts.Config, "config", "c", "", "configuration file (.toml, .yaml or .yml)")
	flags.StringVar(&opts.Database, "db", "", "database DSN (overrides the configuration)")
	flags.StringVar(&opts.Driver, "driver", "", "database driver: sqlite3, sqlite, pgx or mysql (overrides the configuration)")

	cmd.AddCommand(
		NewSetupCommand(opts),
		NewImportCommand(opts),
		NewDeleteCommand(opts),
		NewQueryCommand(opts),
		NewRefreshCommand(opts),
		NewTablesCommand(opts),
		NewGuessCommand(opts),
		NewServeCommand(opts),
		NewTestCommand(opts),
	)
	return cmd
}
