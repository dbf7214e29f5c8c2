package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/wikidb/internal/config"
	"github.com/roach88/wikidb/internal/engine"
)

// Scenario is a scripted sequence of page edits with assertions on the
// outcome.
type Scenario struct {
	// Name uniquely identifies this scenario; it names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Namespaces replaces the default namespace configuration.
	Namespaces []config.Namespace `yaml:"namespaces,omitempty"`

	// Locale is the content language. Default: en.
	Locale string `yaml:"locale,omitempty"`

	// Setup holds pages stored before the flow runs. Setup is not traced
	// and must succeed.
	Setup []engine.PageChange `yaml:"setup,omitempty"`

	// Flow holds the traced steps.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the final state.
	Assertions []Assertion `yaml:"assertions"`
}

// FlowStep is one step of the flow. Exactly one of Page, Refresh and
// MarkStale is set.
type FlowStep struct {
	// Page is the title of the page to update, delete or move.
	Page string `yaml:"page,omitempty"`

	// Text is the new text of Page, or of MoveTo when moving.
	Text string `yaml:"text,omitempty"`

	// Deleted deletes Page instead of updating it.
	Deleted bool `yaml:"deleted,omitempty"`

	// MoveTo moves Page to this title, leaving a redirect behind.
	MoveTo string `yaml:"move_to,omitempty"`

	// Refresh refreshes up to this many stale rows.
	Refresh *int `yaml:"refresh,omitempty"`

	// MarkStale marks every row stale.
	MarkStale bool `yaml:"mark_stale,omitempty"`

	Expect *StepExpect `yaml:"expect,omitempty"`
}

// StepExpect holds the expected outcome of a flow step. Unset fields are
// not checked.
type StepExpect struct {
	TableSaved  *bool  `yaml:"table_saved,omitempty"`
	RowsRemoved *int64 `yaml:"rows_removed,omitempty"`
	RowsWritten *int   `yaml:"rows_written,omitempty"`
	StaleRows   *int64 `yaml:"stale_rows,omitempty"`
	Refreshed   *int   `yaml:"refreshed,omitempty"`
}

// Assertion validates the state after the flow.
type Assertion struct {
	// Type is one of the Assert constants.
	Type string `yaml:"type"`

	// Table, Criteria, Sort, Source, Offset and Limit describe a query.
	Table    string `yaml:"table,omitempty"`
	Criteria string `yaml:"criteria,omitempty"`
	Sort     string `yaml:"sort,omitempty"`
	Source   string `yaml:"source,omitempty"`
	Offset   int    `yaml:"offset,omitempty"`
	Limit    *int   `yaml:"limit,omitempty"`

	// Rows holds the expected rows of a query, in order. Each row is a
	// subset match against the normalised row.
	Rows []map[string]string `yaml:"rows,omitempty"`

	// Count is the expected number of query matches or stale rows.
	Count *int `yaml:"count,omitempty"`

	// Error is a substring of the expected query error message.
	Error string `yaml:"error,omitempty"`

	// Kind selects the table listing: defined, undefined or empty.
	Kind string `yaml:"kind,omitempty"`

	// Tables holds the expected listing, as full titles in order.
	Tables []string `yaml:"tables,omitempty"`
}

// Assertion types.
const (
	AssertQuery      = "query"
	AssertStaleCount = "stale_count"
	AssertTables     = "tables"
)

// Table listing kinds.
const (
	ListDefined   = "defined"
	ListUndefined = "undefined"
	ListEmpty     = "empty"
)

// LoadScenario reads and validates a scenario file. Unknown fields are
// rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates a scenario.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Flow) == 0 && len(s.Setup) == 0 {
		return fmt.Errorf("setup or flow is required")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, c := range s.Setup {
		if c.Title == "" {
			return fmt.Errorf("setup[%d]: title is required", i)
		}
	}
	for i, step := range s.Flow {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func validateStep(step FlowStep) error {
	actions := 0
	if step.Page != "" {
		actions++
	}
	if step.Refresh != nil {
		actions++
	}
	if step.MarkStale {
		actions++
	}
	if actions != 1 {
		return fmt.Errorf("exactly one of page, refresh or mark_stale is required")
	}

	switch {
	case step.Deleted && step.MoveTo != "":
		return fmt.Errorf("deleted and move_to are exclusive")
	case step.Deleted && step.Text != "":
		return fmt.Errorf("deleted page has text")
	case step.Page == "" && (step.Text != "" || step.Deleted || step.MoveTo != ""):
		return fmt.Errorf("text, deleted and move_to need a page")
	}
	return nil
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("type is required")
	case AssertQuery:
		if a.Table == "" {
			return fmt.Errorf("table is required for query")
		}
		if a.Error != "" && (a.Rows != nil || a.Count != nil) {
			return fmt.Errorf("error excludes rows and count")
		}
	case AssertStaleCount:
		if a.Count == nil {
			return fmt.Errorf("count is required for stale_count")
		}
	case AssertTables:
		switch a.Kind {
		case ListDefined, ListUndefined, ListEmpty:
		default:
			return fmt.Errorf("unknown table listing %q", a.Kind)
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
