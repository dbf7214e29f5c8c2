package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/wikidb/internal/markup"
)

// GuessResult is the output of the guess command.
type GuessResult struct {
	Lines      []markup.GuessLine `json:"lines"`
	Mismatches int                `json:"mismatches"`
}

// NewGuessCommand creates the guess command.
func NewGuessCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "guess [file|-]",
		Short: "Guess the types of values",
		Long: `Guess a type for each "description: value" line of the input and show how
the value would be displayed and sorted. A following "=type:output" line
states the expected result; any mismatch fails the command.

Input is read from the file, or from standard input when it is "-" or
omitted. No database is opened.

Example input:
  Year: 1976
  =integer:1976
  Site: [[Main Page]]
  =[[Main Page]]`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := "-"
			if len(args) == 1 {
				name = args[0]
			}
			in, err := readInput(cmd, name)
			if err != nil {
				return err
			}
			defer in.Close()
			data, err := io.ReadAll(in)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read input", err)
			}

			e, err := loadEnv(opts, cmd)
			if err != nil {
				return err
			}

			res := GuessResult{Lines: markup.ParseGuessTypes(string(data), e.reg)}
			for _, l := range res.Lines {
				if !l.TypeMatches() || !l.OutputMatches() {
					res.Mismatches++
				}
			}

			err = formatter(opts, cmd).Success(res, func(w io.Writer) error {
				return writeGuessText(w, res)
			})
			if err != nil {
				return err
			}
			if res.Mismatches > 0 {
				return NewExitError(ExitFailure, fmt.Sprintf("%d of %d values did not match", res.Mismatches, len(res.Lines)))
			}
			return nil
		},
	}
}

func writeGuessText(w io.Writer, res GuessResult) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "DESCRIPTION\tTYPE\tDISPLAY\tSORT\t")
	for _, l := range res.Lines {
		mark := ""
		switch {
		case !l.TypeMatches():
			mark = fmt.Sprintf("expected type %s", l.ExpectedType)
		case !l.OutputMatches():
			mark = fmt.Sprintf("expected %q", l.ExpectedOutput)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", l.Description, l.Type, l.Display, l.Sort, mark)
	}
	return tw.Flush()
}
