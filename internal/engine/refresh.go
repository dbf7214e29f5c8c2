package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/wikidb/internal/store"
	"github.com/roach88/wikidb/internal/table"
)

// Batch sizes with special meaning for RefreshStaleFieldData.
const (
	// RefreshAll refreshes every stale row.
	RefreshAll = 0

	// DisableAutoRefresh turns the refresh into a no-op.
	DisableAutoRefresh = -1

	// DefaultMaxRefreshRate is the batch size used when none is configured.
	DefaultMaxRefreshRate = 100
)

// RefreshStaleFieldData rebuilds the field index entries of up to limit
// stale rows against the current table definitions and clears their flags.
// A nil limit uses the configured maximum refresh rate. Rows are processed
// oldest first, each in its own transaction, and a row another process
// refreshed meanwhile is skipped. It returns the number of rows refreshed.
func (e *Engine) RefreshStaleFieldData(ctx context.Context, limit *int) (int, error) {
	n := e.maxRefresh
	if limit != nil {
		n = *limit
	}
	if n < RefreshAll {
		return 0, nil
	}

	run := e.ids.NewID()
	rows, err := e.store.StaleRows(ctx, n)
	if err != nil {
		return 0, fmt.Errorf("refresh stale rows: %w", err)
	}

	refreshed := 0
	for _, row := range rows {
		ok, err := e.refreshRow(ctx, row)
		if err != nil {
			return refreshed, fmt.Errorf("refresh row %d: %w", row.ID, err)
		}
		if ok {
			refreshed++
		}
	}

	if len(rows) > 0 {
		remaining, err := e.store.CountStaleRows(ctx)
		if err != nil {
			return refreshed, fmt.Errorf("refresh stale rows: %w", err)
		}
		e.log.Info("stale rows refreshed",
			"run", run,
			"refreshed", refreshed,
			"remaining", remaining,
		)
	}
	return refreshed, nil
}

func (e *Engine) refreshRow(ctx context.Context, row store.StoredRow) (bool, error) {
	var replaced bool
	err := e.store.WithTx(ctx, func(tx *store.Tx) error {
		s := table.NewSession(tx, e.reg, e.store.Namespaces())
		tbl, err := s.Table(ctx, row.Table)
		if err != nil {
			return err
		}
		dest, err := tbl.Destination(ctx)
		if err != nil {
			return err
		}
		replaced, err = tx.ReplaceFields(ctx, row.ID, fieldEntries(dest, row.Data))
		return err
	})
	return replaced, err
}

// CountStaleRows returns the number of rows awaiting a refresh.
func (e *Engine) CountStaleRows(ctx context.Context) (int, error) {
	return e.store.CountStaleRows(ctx)
}

// MarkAllRowsStale flags every row for a refresh, as after a change to the
// type handlers.
func (e *Engine) MarkAllRowsStale(ctx context.Context) (int64, error) {
	n, err := e.store.MarkAllRowsStale(ctx)
	if err != nil {
		return 0, err
	}
	e.log.Info("all rows marked stale", "rows", n)
	return n, nil
}

// Refresher runs RefreshStaleFieldData on a timer and on demand.
//
// Thread-safety model:
//   - Trigger(): safe from any goroutine
//   - Run(): must be called from exactly one goroutine
type Refresher struct {
	e        *Engine
	interval time.Duration
	signal   chan struct{} // buffered, size 1
}

// NewRefresher returns a refresher that runs every interval.
func (e *Engine) NewRefresher(interval time.Duration) *Refresher {
	return &Refresher{
		e:        e,
		interval: interval,
		signal:   make(chan struct{}, 1),
	}
}

// Trigger asks for a refresh without waiting for the next tick. Requests
// made while one is pending coalesce.
func (r *Refresher) Trigger() {
	select {
	case r.signal <- struct{}{}:
	default:
	}
}

// Run refreshes stale rows until ctx is cancelled.
//
// A failed batch is logged and retried on the next tick.
func (r *Refresher) Run(ctx context.Context) error {
	if r.e.maxRefresh < RefreshAll {
		r.e.log.Info("refresher disabled")
		<-ctx.Done()
		return ctx.Err()
	}

	r.e.log.Info("refresher starting", "interval", r.interval)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.e.log.Info("refresher stopping: context cancelled")
			return ctx.Err()
		case <-ticker.C:
		case <-r.signal:
		}

		if _, err := r.e.RefreshStaleFieldData(ctx, nil); err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return ctx.Err()
			}
			r.e.log.Error("stale row refresh failed", "error", err)
		}
	}
}
