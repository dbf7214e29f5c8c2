package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/wikidb/internal/query"
	"github.com/roach88/wikidb/internal/schema"
	"github.com/roach88/wikidb/internal/wiki"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Criteria string
	Sort     string
	Source   string
	Offset   int
	Limit    int
	SQL      bool
}

// QueryResult is the output of the query command.
type QueryResult struct {
	Table  string           `json:"table"`
	Count  int              `json:"count"`
	Offset int              `json:"offset"`
	Fields []string         `json:"fields"`
	Rows   []*schema.Record `json:"rows"`
	SQL    string           `json:"sql,omitempty"`
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <table>",
		Short: "Query a table",
		Long: `Query the rows of a table and its aliases. Field aliases are resolved
and values are formatted for display.

Criteria combine comparisons with AND, OR and parentheses; the sort order is
a comma-separated list of fields, each optionally followed by DESC.

Exit codes:
  0 - Query ran
  1 - The query was rejected (bad criteria, sort or table name)
  2 - Command error

Examples:
  wikidb query People
  wikidb query People --where 'Age > 18 AND Name != Bob' --sort 'Age DESC'
  wikidb query People --source "Staff list" --format json
  wikidb query People --where 'Age > 18' --sql`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Criteria, "where", "w", "", "criteria the rows must match")
	cmd.Flags().StringVarP(&opts.Sort, "sort", "s", "", "sort order, e.g. 'Age DESC, Name'")
	cmd.Flags().StringVar(&opts.Source, "source", "", "only rows defined on this page")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "rows to skip")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 50, "maximum rows to print, -1 for all")
	cmd.Flags().BoolVar(&opts.SQL, "sql", false, "print the compiled SQL as well")

	return cmd
}

func runQuery(opts *QueryOptions, table string, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	e, err := openEnv(ctx, opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer e.close()

	req := query.Request{Tables: []string{table}, Criteria: opts.Criteria, Sort: opts.Sort}
	if opts.Source != "" {
		src, err := e.ns.ParseTitle(opts.Source, wiki.NSMain)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --source", err)
		}
		req.Source = &src
	}

	out := formatter(opts.RootOptions, cmd)
	q, err := e.engine.Query(ctx, req)
	if err != nil {
		return WrapExitError(ExitCommandError, "query failed", err)
	}
	if q.HasErrors() {
		_ = out.Error("E_QUERY", q.ErrorMessage(), map[string]string{
			"table":    table,
			"criteria": opts.Criteria,
			"sort":     opts.Sort,
		})
		return NewExitError(ExitFailure, q.ErrorMessage())
	}

	count, err := q.Count(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "query failed", err)
	}
	res, err := q.Rows(ctx, opts.Offset, opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "query failed", err)
	}

	result := QueryResult{
		Table:  q.Table().Title().FullText(),
		Count:  count,
		Offset: res.Offset(),
		Rows:   make([]*schema.Record, res.Len()),
	}
	for i := range result.Rows {
		result.Rows[i] = res.NormalisedRow(i)
	}
	result.Fields = columns(result.Rows)
	if opts.SQL {
		result.SQL = q.DebugSQL()
	}

	return out.Success(result, func(w io.Writer) error {
		return writeQueryText(w, result)
	})
}

// columns lists every field of rows, in first-seen order.
func columns(rows []*schema.Record) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, r := range rows {
		for _, f := range r.Fields() {
			if !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
	}
	return out
}

func writeQueryText(w io.Writer, r QueryResult) error {
	if r.SQL != "" {
		fmt.Fprintf(w, "%s\n\n", strings.TrimSpace(r.SQL))
	}
	if len(r.Rows) > 0 {
		tw := newTable(w)
		fmt.Fprintln(tw, strings.Join(r.Fields, "\t"))
		for _, row := range r.Rows {
			cells := make([]string, len(r.Fields))
			for i, f := range r.Fields {
				v, _ := row.Get(f)
				cells[i] = schema.Join(v, query.MultiValueSeparator)
			}
			fmt.Fprintln(tw, strings.Join(cells, "\t"))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	first, last := 0, 0
	if len(r.Rows) > 0 {
		first, last = r.Offset+1, r.Offset+len(r.Rows)
	}
	_, err := fmt.Fprintf(w, "%s: rows %d-%d of %d\n", r.Table, first, last, r.Count)
	return err
}
