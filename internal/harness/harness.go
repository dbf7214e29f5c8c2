package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/roach88/wikidb/internal/config"
	"github.com/roach88/wikidb/internal/engine"
	"github.com/roach88/wikidb/internal/store"
	"github.com/roach88/wikidb/internal/testutil"
	"github.com/roach88/wikidb/internal/wiki"
)

// Harness runs one scenario against its own engine.
type Harness struct {
	engine *engine.Engine
}

// Run executes a scenario and returns its result. The returned error
// reports failures to run the scenario at all; failed expectations are
// recorded on the result.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	dir, err := os.MkdirTemp("", "wikidb-harness-")
	if err != nil {
		return nil, fmt.Errorf("failed to create scenario directory: %w", err)
	}
	defer os.RemoveAll(dir)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	e, closeStore, err := newEngine(ctx, scenario, filepath.Join(dir, "scenario.db"), logger)
	if err != nil {
		return nil, err
	}
	defer closeStore()

	h := &Harness{engine: e}

	if _, err := e.Apply(ctx, scenario.Setup); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}

	result := NewResult()
	for i, step := range scenario.Flow {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("failed to execute flow[%d]: %w", i, err)
		}
	}

	for _, msg := range EvaluateAssertions(ctx, e, scenario.Assertions, result) {
		result.AddError(msg)
	}
	return result, nil
}

// newEngine opens a SQLite store at path, configured from the defaults
// and the scenario's overrides.
func newEngine(ctx context.Context, scenario *Scenario, path string, logger *slog.Logger) (*engine.Engine, func(), error) {
	cfg, err := config.Default()
	if err != nil {
		return nil, nil, err
	}
	if len(scenario.Namespaces) > 0 {
		cfg.Namespaces = scenario.Namespaces
	}
	if scenario.Locale != "" {
		cfg.Locale = scenario.Locale
	}

	ns, err := cfg.WikiNamespaces()
	if err != nil {
		return nil, nil, err
	}
	reg, err := cfg.Registry(ns)
	if err != nil {
		return nil, nil, err
	}

	st, err := store.Open(ctx, "sqlite3", path, store.WithNamespaces(ns), store.WithLogger(logger))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create scenario store: %w", err)
	}

	e := engine.New(st, reg,
		engine.WithIDGenerator(testutil.NewSequenceIDs("unit")),
		engine.WithLogger(logger),
		engine.WithMaxRefreshRate(cfg.MaxRefreshRate),
	)
	return e, func() { st.Close() }, nil
}

func (h *Harness) title(text string) (wiki.Title, error) {
	return h.engine.Namespaces().ParseTitle(text, wiki.NSMain)
}

func (h *Harness) executeStep(ctx context.Context, i int, step FlowStep, result *Result) error {
	switch {
	case step.Refresh != nil:
		n, err := h.engine.RefreshStaleFieldData(ctx, step.Refresh)
		if err != nil {
			return err
		}
		result.AddTrace(TraceEvent{Op: OpRefresh, Refreshed: n})
		checkStep(result, i, step.Expect, engine.Update{}, &n)
		return nil

	case step.MarkStale:
		n, err := h.engine.MarkAllRowsStale(ctx)
		if err != nil {
			return err
		}
		result.AddTrace(TraceEvent{Op: OpMarkStale, StaleRows: n})
		checkStep(result, i, step.Expect, engine.Update{StaleRows: n}, nil)
		return nil
	}

	page, err := h.title(step.Page)
	if err != nil {
		return err
	}

	switch {
	case step.MoveTo != "":
		to, err := h.title(step.MoveTo)
		if err != nil {
			return err
		}
		redirect := "#REDIRECT [[" + to.FullText() + "]]"
		updates, err := h.engine.PageMoved(ctx, page, redirect, to, step.Text)
		if err != nil {
			return err
		}
		for _, u := range updates {
			result.AddTrace(traceUpdate(OpMove, u))
		}
		checkStep(result, i, step.Expect, updates[1], nil)

	case step.Deleted:
		u, err := h.engine.PageDeleted(ctx, page)
		if err != nil {
			return err
		}
		result.AddTrace(traceUpdate(OpDelete, u))
		checkStep(result, i, step.Expect, u, nil)

	default:
		u, err := h.engine.PageUpdated(ctx, page, step.Text)
		if err != nil {
			return err
		}
		result.AddTrace(traceUpdate(OpUpdate, u))
		checkStep(result, i, step.Expect, u, nil)
	}
	return nil
}

func traceUpdate(op string, u engine.Update) TraceEvent {
	return TraceEvent{
		Op:          op,
		Page:        u.Page.FullText(),
		Unit:        u.Unit,
		TableSaved:  u.TableSaved,
		RowsRemoved: u.RowsRemoved,
		RowsWritten: u.RowsWritten,
		StaleRows:   u.StaleRows,
	}
}

// checkStep compares a step's outcome with its expectation. For moves the
// outcome is that of the destination page.
func checkStep(result *Result, i int, want *StepExpect, got engine.Update, refreshed *int) {
	if want == nil {
		return
	}
	fail := func(field string, want, got any) {
		result.AddError(fmt.Sprintf("flow[%d]: %s: expected %v, got %v", i, field, want, got))
	}

	if want.TableSaved != nil && *want.TableSaved != got.TableSaved {
		fail("table_saved", *want.TableSaved, got.TableSaved)
	}
	if want.RowsRemoved != nil && *want.RowsRemoved != got.RowsRemoved {
		fail("rows_removed", *want.RowsRemoved, got.RowsRemoved)
	}
	if want.RowsWritten != nil && *want.RowsWritten != got.RowsWritten {
		fail("rows_written", *want.RowsWritten, got.RowsWritten)
	}
	if want.StaleRows != nil && *want.StaleRows != got.StaleRows {
		fail("stale_rows", *want.StaleRows, got.StaleRows)
	}
	if want.Refreshed != nil {
		n := 0
		if refreshed != nil {
			n = *refreshed
		}
		if *want.Refreshed != n {
			fail("refreshed", *want.Refreshed, n)
		}
	}
}
