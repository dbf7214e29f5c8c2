package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/wikidb/internal/engine"
	"github.com/roach88/wikidb/internal/query"
	"github.com/roach88/wikidb/internal/schema"
	"github.com/roach88/wikidb/internal/store"
	"github.com/roach88/wikidb/internal/wiki"
)

// EvaluateAssertions checks every assertion against e and returns the
// failures. Query outcomes are recorded on result.
func EvaluateAssertions(ctx context.Context, e *engine.Engine, assertions []Assertion, result *Result) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertQuery:
			err = assertQuery(ctx, e, a, result)
		case AssertStaleCount:
			err = assertStaleCount(ctx, e, a)
		case AssertTables:
			err = assertTables(ctx, e, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d] (%s): %v", i, a.Type, err))
		}
	}
	return errs
}

func assertQuery(ctx context.Context, e *engine.Engine, a Assertion, result *Result) error {
	req := query.Request{Tables: []string{a.Table}, Criteria: a.Criteria, Sort: a.Sort}
	if a.Source != "" {
		src, err := e.Namespaces().ParseTitle(a.Source, wiki.NSMain)
		if err != nil {
			return fmt.Errorf("source: %w", err)
		}
		req.Source = &src
	}

	q, err := e.Query(ctx, req)
	if err != nil {
		return err
	}
	rec := QueryRecord{
		Table:    a.Table,
		Criteria: a.Criteria,
		Sort:     a.Sort,
		Error:    q.ErrorMessage(),
		Rows:     []*schema.Record{},
	}

	if q.HasErrors() {
		result.Queries = append(result.Queries, rec)
		if a.Error == "" {
			return fmt.Errorf("unexpected query error: %s", rec.Error)
		}
		if !strings.Contains(rec.Error, a.Error) {
			return fmt.Errorf("error: expected %q in %q", a.Error, rec.Error)
		}
		return nil
	}

	limit := -1
	if a.Limit != nil {
		limit = *a.Limit
	}
	if rec.Count, err = q.Count(ctx); err != nil {
		return err
	}
	res, err := q.Rows(ctx, a.Offset, limit)
	if err != nil {
		return err
	}
	for i := range res.Len() {
		rec.Rows = append(rec.Rows, res.NormalisedRow(i))
	}
	result.Queries = append(result.Queries, rec)

	if a.Error != "" {
		return fmt.Errorf("expected query error %q, got none", a.Error)
	}
	if a.Count != nil && *a.Count != rec.Count {
		return fmt.Errorf("count: expected %d, got %d", *a.Count, rec.Count)
	}
	if a.Rows != nil {
		return matchRows(a.Rows, rec.Rows)
	}
	return nil
}

// matchRows checks rows in order; each expected row is a subset match.
func matchRows(want []map[string]string, got []*schema.Record) error {
	if len(want) != len(got) {
		return fmt.Errorf("rows: expected %d, got %d", len(want), len(got))
	}
	for i, w := range want {
		for field, value := range w {
			v, ok := got[i].Get(field)
			if !ok {
				return fmt.Errorf("row %d: field %q missing", i+1, field)
			}
			if s := schema.Join(v, query.MultiValueSeparator); s != value {
				return fmt.Errorf("row %d: field %q: expected %q, got %q", i+1, field, value, s)
			}
		}
	}
	return nil
}

func assertStaleCount(ctx context.Context, e *engine.Engine, a Assertion) error {
	n, err := e.CountStaleRows(ctx)
	if err != nil {
		return err
	}
	if n != *a.Count {
		return fmt.Errorf("expected %d stale rows, got %d", *a.Count, n)
	}
	return nil
}

func assertTables(ctx context.Context, e *engine.Engine, a Assertion) error {
	list := e.Store().Tables
	switch a.Kind {
	case ListUndefined:
		list = e.Store().UndefinedTables
	case ListEmpty:
		list = e.Store().EmptyTables
	}
	infos, err := list(ctx)
	if err != nil {
		return err
	}

	got := tableTitles(infos)
	want := a.Tables
	if want == nil {
		want = []string{}
	}
	if !slices.Equal(want, got) {
		return fmt.Errorf("%s tables: expected %v, got %v", a.Kind, want, got)
	}
	return nil
}

func tableTitles(infos []store.TableInfo) []string {
	out := make([]string, len(infos))
	for i, info := range infos {
		out[i] = info.Title.FullText()
	}
	return out
}
