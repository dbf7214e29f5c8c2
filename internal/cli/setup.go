package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// SetupResult reports the database prepared by setup.
type SetupResult struct {
	Driver        string `json:"driver"`
	SchemaVersion int    `json:"schema_version"`
}

// NewSetupCommand creates the setup command.
func NewSetupCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Create or migrate the database schema",
		Long: `Create the wikidb tables in the configured database, or migrate them to
the current schema version. Running setup again is harmless.

Examples:
  wikidb setup --db wiki.sqlite
  wikidb setup --driver pgx --db postgres://wiki@localhost/wiki`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			e, err := openEnv(ctx, opts, cmd)
			if err != nil {
				return err
			}
			defer e.close()

			v, err := e.store.SchemaVersion(ctx)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read schema version", err)
			}
			res := SetupResult{Driver: e.store.Driver(), SchemaVersion: v}
			return formatter(opts, cmd).Success(res, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Schema version %d ready (%s)\n", res.SchemaVersion, res.Driver)
				return err
			})
		},
	}
}
