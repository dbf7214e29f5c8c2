package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wikidb/internal/testutil"
)

const seedDump = `- title: Table:People
  text: |
    > Name : string
    > Age : integer
    > Years [[#Age]]
- title: Table:Persons
  text: "#REDIRECT [[Table:People]]"
- title: Staff list
  text: |
    <data table="People">
    Name=Alexandria
    Years=40
    </data>
    <data table="Persons" fields="Name,Age">
    Bob,7
    Carol,12
    </data>
`

func dbPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "wiki.sqlite")
}

// execute runs the wikidb command tree with args and stdin, returning what
// it wrote to stdout.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand(&RootOptions{IDGenerator: testutil.NewSequenceIDs("unit")})
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(t.Context())
	return out.String(), err
}

// seeded returns a database holding seedDump.
func seeded(t *testing.T) string {
	t.Helper()
	db := dbPath(t)
	_, err := execute(t, seedDump, "import", "-", "--db", db)
	require.NoError(t, err)
	return db
}

// data decodes the data of a JSON response.
func data(t *testing.T, out string, v any) {
	t.Helper()
	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	require.Equal(t, "ok", resp.Status)
	require.NoError(t, json.Unmarshal(resp.Data, v))
}

func TestSetupCommand(t *testing.T) {
	db := dbPath(t)
	out, err := execute(t, "", "setup", "--db", db)
	require.NoError(t, err)
	assert.Regexp(t, `^Schema version \d+ ready \(sqlite3\)\n$`, out)

	// Running it again is harmless.
	out, err = execute(t, "", "setup", "--db", db, "--format", "json")
	require.NoError(t, err)
	var res SetupResult
	data(t, out, &res)
	assert.Equal(t, "sqlite3", res.Driver)
	assert.Positive(t, res.SchemaVersion)
}

func TestImportCommand(t *testing.T) {
	db := dbPath(t)
	file := filepath.Join(t.TempDir(), "pages.yaml")
	require.NoError(t, os.WriteFile(file, []byte(seedDump), 0o644))

	out, err := execute(t, "", "import", file, "--db", db)
	require.NoError(t, err)
	assert.Equal(t, `updated Table:People: -0 +0 rows, table definition
updated Table:Persons: -0 +0 rows, table definition
updated Staff list: -0 +3 rows
Imported 3 pages
`, out)

	out, err = execute(t, "", "import", file, "--db", db, "--format", "json")
	require.NoError(t, err)
	var results []UpdateResult
	data(t, out, &results)
	require.Len(t, results, 3)
	assert.Equal(t, "unit-0001", results[0].Unit)
	assert.Equal(t, int64(3), results[0].StaleRows)
	assert.Equal(t, int64(3), results[2].RowsRemoved)
	assert.Equal(t, 3, results[2].RowsWritten)
}

func TestImportCommand_Errors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		stdin    string
		wantCode int
		wantErr  string
	}{
		{"missing file", []string{"import", "nope.yaml"}, "", ExitCommandError, "failed to open input"},
		{"invalid dump", []string{"import", "-"}, "- text: no title\n", ExitCommandError, "invalid page dump"},
		{"unknown key", []string{"import", "-"}, "- title: A\n  body: x\n", ExitCommandError, "invalid page dump"},
		{"bad title", []string{"import", "-"}, "- title: A\n- title: \"B|C\"\n", ExitFailure, "import stopped after 1 of 2 pages"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.stdin, append(tt.args, "--db", dbPath(t))...)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestQueryCommand(t *testing.T) {
	db := seeded(t)

	out, err := execute(t, "", "query", "People", "--db", db, "--sort", "Name")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.Regexp(t, `^_Row\s+_SourceArticle\s+Name\s+Age`, lines[0])
	assert.Contains(t, lines[1], "Alexandria")
	assert.Contains(t, lines[2], "Bob")
	assert.Contains(t, lines[3], "Carol")
	assert.Equal(t, "Table:People: rows 1-3 of 3", lines[4])

	out, err = execute(t, "", "query", "Persons", "--db", db,
		"--where", "Age > 10", "--sort", "Age DESC", "--format", "json")
	require.NoError(t, err)
	var res struct {
		Table string              `json:"table"`
		Count int                 `json:"count"`
		Rows  []map[string]string `json:"rows"`
	}
	data(t, out, &res)
	assert.Equal(t, "Table:People", res.Table)
	assert.Equal(t, 2, res.Count)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "Alexandria", res.Rows[0]["Name"])
	assert.Equal(t, "40", res.Rows[0]["Age"])
	assert.Equal(t, "Carol", res.Rows[1]["Name"])
}

func TestQueryCommand_Paging(t *testing.T) {
	db := seeded(t)

	out, err := execute(t, "", "query", "People", "--db", db, "--sort", "Name", "--offset", "1", "--limit", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Bob")
	assert.NotContains(t, out, "Carol")
	assert.Contains(t, out, "Table:People: rows 2-2 of 3")

	out, err = execute(t, "", "query", "People", "--db", db, "--where", "Name = Nobody")
	require.NoError(t, err)
	assert.Equal(t, "Table:People: rows 0-0 of 0\n", out)
}

func TestQueryCommand_SQL(t *testing.T) {
	db := seeded(t)

	out, err := execute(t, "", "query", "People", "--db", db, "--where", "Age > 10", "--sql")
	require.NoError(t, err)
	assert.Contains(t, out, "SELECT")
}

func TestQueryCommand_Errors(t *testing.T) {
	db := seeded(t)

	tests := []struct {
		name    string
		args    []string
		wantMsg string
	}{
		{"partial expression", []string{"--where", "Age > 1 AND"}, "Incomplete expression"},
		{"unclosed parenthesis", []string{"--where", "(Age > 1"}, "Unclosed parenthesis"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"query", "People", "--db", db}, tt.args...)
			out, err := execute(t, "", args...)
			require.Error(t, err)
			assert.Equal(t, ExitFailure, GetExitCode(err))
			assert.Contains(t, out, "Error [E_QUERY]: "+tt.wantMsg)
		})
	}

	_, err := execute(t, "", "query", "People", "--db", db, "--source", "A|B")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestDeleteCommand(t *testing.T) {
	db := seeded(t)

	out, err := execute(t, "", "delete", "Staff list", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "deleted Staff list: -3 +0 rows\n", out)

	out, err = execute(t, "", "query", "People", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "Table:People: rows 0-0 of 0\n", out)
}

func TestRefreshCommand(t *testing.T) {
	db := seeded(t)

	// Re-importing the definition marks every row of the table stale.
	_, err := execute(t, "- title: Table:People\n  text: \"> Name : string\\n> Age : integer\\n\"\n", "import", "-", "--db", db)
	require.NoError(t, err)

	out, err := execute(t, "", "refresh", "--db", db, "--limit", "2")
	require.NoError(t, err)
	assert.Equal(t, "refreshed 2 rows, 1 remaining\n", out)

	out, err = execute(t, "", "refresh", "--db", db, "--format", "json")
	require.NoError(t, err)
	var res RefreshResult
	data(t, out, &res)
	assert.Equal(t, RefreshResult{Refreshed: 1, Remaining: 0}, res)

	out, err = execute(t, "", "refresh", "--db", db, "--force", "--limit", "0")
	require.NoError(t, err)
	assert.Equal(t, "marked 3 rows stale\nrefreshed 3 rows, 0 remaining\n", out)

	_, err = execute(t, "", "refresh", "--db", db, "--limit", "-1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTablesCommand(t *testing.T) {
	db := seeded(t)
	_, err := execute(t, `- title: Table:Empty
  text: "> Thing : string"
- title: Ghosts
  text: <data table="Ghost">Name=Casper</data>
`, "import", "-", "--db", db)
	require.NoError(t, err)

	out, err := execute(t, "", "tables", "--db", db, "--format", "json")
	require.NoError(t, err)
	var entries []TableEntry
	data(t, out, &entries)
	assert.Equal(t, []TableEntry{
		{Title: "Table:Empty", Rows: 0},
		{Title: "Table:People", Rows: 1},
		{Title: "Table:Persons", Redirect: "Table:People", Rows: 2},
	}, entries)

	out, err = execute(t, "", "tables", "--db", db, "--undefined")
	require.NoError(t, err)
	assert.Regexp(t, `^TITLE\s+ROWS\s+REDIRECT\s*\nTable:Ghost\s+1\s*\n$`, out)

	out, err = execute(t, "", "tables", "--db", db, "--empty", "--format", "json")
	require.NoError(t, err)
	data(t, out, &entries)
	assert.Equal(t, []TableEntry{{Title: "Table:Empty", Rows: 0}}, entries)

	_, err = execute(t, "", "tables", "--db", db, "--empty", "--undefined")
	require.Error(t, err)
}

func TestGuessCommand(t *testing.T) {
	input := "Year: 1976\n=integer:1976\nSite: [[Main Page]]\n=[[Main Page]]\n"

	out, err := execute(t, input, "guess", "--format", "json")
	require.NoError(t, err)
	var res GuessResult
	data(t, out, &res)
	require.Len(t, res.Lines, 2)
	assert.Equal(t, "integer", res.Lines[0].Type)
	assert.Equal(t, "link", res.Lines[1].Type)
	assert.Zero(t, res.Mismatches)

	out, err = execute(t, "Price: 12,345.67\n=number:wrong\n", "guess")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, `expected "wrong"`)
}

func TestTestCommand(t *testing.T) {
	root := t.TempDir()
	scenarios := filepath.Join(root, "scenarios")
	require.NoError(t, os.MkdirAll(scenarios, 0o755))
	src, err := os.ReadFile("../harness/testdata/scenarios/people_aliases.yaml")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(scenarios, "people_aliases.yaml"), src, 0o644))

	out, err := execute(t, "", "test", scenarios, "--update")
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ people_aliases (golden updated)")
	assert.FileExists(t, filepath.Join(root, "golden", "people_aliases.golden"))

	out, err = execute(t, "", "test", scenarios, "--format", "json")
	require.NoError(t, err, out)
	var res TestResult
	data(t, out, &res)
	assert.Equal(t, 1, res.Passed)
	require.Len(t, res.Scenarios, 1)
	assert.Equal(t, "match", res.Scenarios[0].Golden)

	// A changed golden file fails the scenario.
	require.NoError(t, os.WriteFile(filepath.Join(root, "golden", "people_aliases.golden"), []byte("{}\n"), 0o644))
	out, err = execute(t, "", "test", scenarios)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Test Summary: 0 passed, 1 failed, 1 total")

	out, err = execute(t, "", "test", scenarios, "--filter", "other-*")
	require.NoError(t, err)
	assert.Equal(t, "No scenarios found.\n", out)

	_, err = execute(t, "", "test", filepath.Join(root, "missing"))
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
