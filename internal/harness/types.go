package harness

import "github.com/roach88/wikidb/internal/schema"

// Step operations recorded in the trace.
const (
	OpUpdate    = "update"
	OpDelete    = "delete"
	OpMove      = "move"
	OpRefresh   = "refresh"
	OpMarkStale = "mark_stale"
)

// TraceEvent records the outcome of one flow step. A move records one
// event per title.
type TraceEvent struct {
	Seq         int    `json:"seq"`
	Op          string `json:"op"`
	Page        string `json:"page,omitempty"`
	Unit        string `json:"unit,omitempty"`
	TableSaved  bool   `json:"table_saved,omitempty"`
	RowsRemoved int64  `json:"rows_removed,omitempty"`
	RowsWritten int    `json:"rows_written,omitempty"`
	StaleRows   int64  `json:"stale_rows,omitempty"`
	Refreshed   int    `json:"refreshed,omitempty"`
}

// QueryRecord is the outcome of a query assertion.
type QueryRecord struct {
	Table    string           `json:"table"`
	Criteria string           `json:"criteria,omitempty"`
	Sort     string           `json:"sort,omitempty"`
	Error    string           `json:"error,omitempty"`
	Count    int              `json:"count"`
	Rows     []*schema.Record `json:"rows"`
}

// Result is the outcome of a scenario.
type Result struct {
	// Pass is true if every step expectation and assertion held.
	Pass bool `json:"pass"`

	Trace   []TraceEvent  `json:"trace"`
	Queries []QueryRecord `json:"queries"`

	// Errors holds the failed expectations. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Trace:   []TraceEvent{},
		Queries: []QueryRecord{},
		Errors:  []string{},
	}
}

// AddError adds a failed expectation and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends an event, numbering it.
func (r *Result) AddTrace(ev TraceEvent) {
	ev.Seq = len(r.Trace) + 1
	r.Trace = append(r.Trace, ev)
}
